package main

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type ReadRequest struct {
	ChannelID string `json:"channel_id"`
}

// MarkRead advances the caller's read watermark for a channel, notifies
// the affected senders, and resets the durable unread counter.
func (a *API) MarkRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := claimsFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req ReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChannelID == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := a.tracker.MarkRead(r.Context(), claims.UserID, req.ChannelID); err != nil {
		a.log.Error("mark read",
			zap.String("channel_id", req.ChannelID),
			zap.String("user_id", claims.UserID),
			zap.Error(err),
		)
		http.Error(w, "Failed to mark read", http.StatusInternalServerError)
		return
	}

	// Counter reset mirrors the watermark; losing it self-heals on the
	// next conversations reload.
	if err := a.store.ResetUnread(r.Context(), claims.UserID, req.ChannelID); err != nil {
		a.log.Warn("reset unread counter",
			zap.String("channel_id", req.ChannelID),
			zap.String("user_id", claims.UserID),
			zap.Error(err),
		)
	}

	w.WriteHeader(http.StatusOK)
}
