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

	if err := store.EnsureKeyspace(cfg.ScyllaHosts, cfg.Keyspace); err != nil {
		log.Fatalf("Failed to create keyspace: %v", err)
	}

	session, err := store.NewSession(cfg.ScyllaHosts, cfg.Keyspace)
	if err != nil {
		log.Fatal(err)
	}
	defer session.Close()

	if err := session.EnsureSchema(); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	log.Println("Schema created successfully")
}
