package main

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ridgeline-homes/portalchat/pkg/publish"
)

const presenceKey = "presence:online"

// Hub tracks connected sockets per user and bridges each user's private
// pub/sub destination onto their open sockets. Events for a user are
// delivered to every session they have open, never to anyone else's.
type Hub struct {
	mu    sync.RWMutex
	users map[string]*userSession

	rdb *redis.Client
	log *zap.Logger

	register   chan *Client
	unregister chan *Client
}

// userSession is the fan-in point for one user: their sockets plus the
// single subscription on their private destination.
type userSession struct {
	clients map[*Client]bool
	pubsub  *redis.PubSub
}

func NewHub(rdb *redis.Client, log *zap.Logger) *Hub {
	return &Hub{
		users:      make(map[string]*userSession),
		rdb:        rdb,
		log:        log,
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(ctx, client)
		case client := <-h.unregister:
			h.removeClient(ctx, client)
		}
	}
}

func (h *Hub) addClient(ctx context.Context, client *Client) {
	h.mu.Lock()
	sess, ok := h.users[client.userID]
	if !ok {
		sess = &userSession{
			clients: make(map[*Client]bool),
			pubsub:  h.rdb.Subscribe(ctx, publish.Destination(client.userID)),
		}
		h.users[client.userID] = sess
		go h.forward(client.userID, sess.pubsub)
	}
	sess.clients[client] = true
	h.mu.Unlock()

	if err := h.rdb.SAdd(ctx, presenceKey, client.userID).Err(); err != nil {
		h.log.Warn("set presence", zap.String("user_id", client.userID), zap.Error(err))
	}
	h.log.Info("client registered",
		zap.String("user_id", client.userID),
		zap.String("session_id", client.sessionID),
	)
}

func (h *Hub) removeClient(ctx context.Context, client *Client) {
	h.mu.Lock()
	sess, ok := h.users[client.userID]
	if ok {
		if _, ok := sess.clients[client]; ok {
			delete(sess.clients, client)
			close(client.send)
		}
		if len(sess.clients) == 0 {
			sess.pubsub.Close()
			delete(h.users, client.userID)
			if err := h.rdb.SRem(ctx, presenceKey, client.userID).Err(); err != nil {
				h.log.Warn("clear presence", zap.String("user_id", client.userID), zap.Error(err))
			}
		}
	}
	h.mu.Unlock()

	h.log.Info("client unregistered",
		zap.String("user_id", client.userID),
		zap.String("session_id", client.sessionID),
	)
}

// forward pushes every frame from the user's private destination onto
// all of their open sockets. Slow sockets are dropped rather than
// allowed to stall the rest.
func (h *Hub) forward(userID string, pubsub *redis.PubSub) {
	for msg := range pubsub.Channel() {
		h.mu.RLock()
		sess, ok := h.users[userID]
		if ok {
			for client := range sess.clients {
				select {
				case client.send <- []byte(msg.Payload):
				default:
					h.log.Warn("dropping slow client",
						zap.String("user_id", userID),
						zap.String("session_id", client.sessionID),
					)
				}
			}
		}
		h.mu.RUnlock()
	}
}
