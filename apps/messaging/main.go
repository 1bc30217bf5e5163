package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/ridgeline-homes/portalchat/pkg/activity"
	"github.com/ridgeline-homes/portalchat/pkg/config"
	"github.com/ridgeline-homes/portalchat/pkg/logger"
	"github.com/ridgeline-homes/portalchat/pkg/snowflake"
	"github.com/ridgeline-homes/portalchat/pkg/store"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.Development())
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// The materializer never assigns ids; the node exists only because
	// the store constructor wants one.
	ids, err := snowflake.NewNode(3)
	if err != nil {
		log.Fatal("snowflake node", zap.Error(err))
	}

	if err := store.EnsureKeyspace(cfg.ScyllaHosts, cfg.Keyspace); err != nil {
		log.Fatal("ensure keyspace", zap.Error(err))
	}

	session, err := store.NewSession(cfg.ScyllaHosts, cfg.Keyspace)
	if err != nil {
		log.Fatal("connect scylla", zap.Error(err))
	}
	defer session.Close()

	if err := session.EnsureSchema(); err != nil {
		log.Fatal("ensure schema", zap.Error(err))
	}

	st := store.New(session, ids)
	reader := activity.NewReader(cfg.KafkaBrokers, cfg.ActivityTopic, "conversation-materializer")
	consumer := NewConsumer(reader, st, log)
	defer consumer.Close()

	log.Info("conversation materializer starting",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.ActivityTopic),
	)
	consumer.Consume(context.Background())
}
