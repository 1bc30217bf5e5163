package main

import (
	"log"
	"os"

	"github.com/ridgeline-homes/portalchat/pkg/config"
	"github.com/ridgeline-homes/portalchat/pkg/store"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal(err)
	}

	session, err := store.NewSession(cfg.ScyllaHosts, cfg.Keyspace)
	if err != nil {
		log.Fatal(err)
	}
	defer session.Close()

	for _, table := range []string{"messages", "memberships", "channel_members", "user_conversations", "conversation_counters"} {
		log.Printf("Dropping table %s...", table)
		if err := session.Query("DROP TABLE IF EXISTS " + table).Exec(); err != nil {
			log.Fatalf("Failed to drop table %s: %v", table, err)
		}
	}
	log.Println("Tables dropped successfully.")
}
