package main

import (
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

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if r.Method == "OPTIONS" {
			return
		}

		next.ServeHTTP(w, r)
	})
}

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

	nodeID, _ := strconv.ParseInt(os.Getenv("NODE_ID"), 10, 64)
	if nodeID == 0 {
		nodeID = 2 // keep the API's id space apart from the gateway's
	}
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

	authn := auth.New(cfg.JWTSecret)
	api := &API{
		auth:    authn,
		store:   st,
		sender:  sender,
		tracker: tracker,
		redis:   rdb,
		log:     log,
	}

	http.Handle("/login", CORSMiddleware(http.HandlerFunc(api.Login)))
	http.Handle("/history", CORSMiddleware(api.RequireAuth(api.History)))
	http.Handle("/messages", CORSMiddleware(api.RequireAuth(api.SendMessage)))
	http.Handle("/conversations", CORSMiddleware(api.RequireAuth(api.Conversations)))
	http.Handle("/conversations/read", CORSMiddleware(api.RequireAuth(api.MarkRead)))
	http.Handle("/channels/", CORSMiddleware(api.RequireAuth(api.Presence)))

	log.Info("api listening", zap.String("addr", cfg.APIAddr))
	if err := http.ListenAndServe(cfg.APIAddr, nil); err != nil {
		log.Fatal("listen", zap.Error(err))
	}
}
