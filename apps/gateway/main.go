package main

import (
	"context"
	"net/http"
	"os"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ridgeline-homes/portalchat/pkg/activity"
	"github.com/ridgeline-homes/portalchat/pkg/auth"
	"github.com/ridgeline-homes/portalchat/pkg/config"
	"github.com/ridgeline-homes/portalchat/pkg/fanout"
	"github.com/ridgeline-homes/portalchat/pkg/logger"
	"github.com/ridgeline-homes/portalchat/pkg/publish"
	"github.com/ridgeline-homes/portalchat/pkg/readstate"
	"github.com/ridgeline-homes/portalchat/pkg/send"
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

	// Node id must be unique per instance; defaults suit a single node.
	nodeID, _ := strconv.ParseInt(os.Getenv("NODE_ID"), 10, 64)
	ids, err := snowflake.NewNode(nodeID)
	if err != nil {
		log.Fatal("snowflake node", zap.Error(err))
	}

	session, err := store.NewSession(cfg.ScyllaHosts, cfg.Keyspace)
	if err != nil {
		log.Fatal("connect scylla", zap.Error(err))
	}
	defer session.Close()
	st := store.New(session, ids)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	pub := publish.New(publish.NewRedisBroker(rdb), log)
	resolver := fanout.NewResolver(st)
	tracker := readstate.NewTracker(st, resolver, pub, log)

	producer := activity.NewProducer(cfg.KafkaBrokers, cfg.ActivityTopic)
	defer producer.Close()
	sender := send.NewService(st, resolver, pub, producer, log)

	hub := NewHub(rdb, log)
	go hub.Run(context.Background())

	gw := &Gateway{
		hub:      hub,
		auth:     auth.New(cfg.JWTSecret),
		sender:   sender,
		tracker:  tracker,
		resolver: resolver,
		pub:      pub,
		store:    st,
		log:      log,
	}

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(gw, w, r)
	})

	log.Info("gateway listening", zap.String("addr", cfg.GatewayAddr))
	if err := http.ListenAndServe(cfg.GatewayAddr, nil); err != nil {
		log.Fatal("listen", zap.Error(err))
	}
}
