package main

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ridgeline-homes/portalchat/pkg/channel"
)

// Presence reports which of a channel's participants are currently
// online. Route: /channels/{id}/users.
func (a *API) Presence(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(r.URL.Path, "/")
	if len(pathParts) < 4 || pathParts[3] != "users" {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}
	channelID := pathParts[2]

	var members []string
	var err error
	if channel.IsDirect(channelID) {
		members, err = channel.Participants(channelID)
	} else {
		members, err = a.store.Members(r.Context(), channelID)
	}
	if err != nil {
		http.Error(w, "Invalid channel", http.StatusBadRequest)
		return
	}

	online := make([]string, 0, len(members))
	for _, userID := range members {
		ok, err := a.redis.SIsMember(r.Context(), "presence:online", userID).Result()
		if err != nil {
			a.log.Warn("presence lookup", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		if ok {
			online = append(online, userID)
		}
	}

	writeJSON(w, online)
}
