package main

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type SendMessageRequest struct {
	ChannelID string `json:"channel_id"`
	Body      string `json:"body"`
}

// SendMessage is the HTTP send path; it shares the gateway's pipeline.
// The response carries the server-assigned message for the caller's
// optimistic insert.
func (a *API) SendMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := claimsFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChannelID == "" || req.Body == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	msg, err := a.sender.Send(r.Context(), req.ChannelID, claims.UserID, claims.UserName, req.Body)
	if err != nil {
		a.log.Error("send message",
			zap.String("channel_id", req.ChannelID),
			zap.String("user_id", claims.UserID),
			zap.Error(err),
		)
		http.Error(w, "Message not sent", http.StatusInternalServerError)
		return
	}

	writeJSON(w, msg)
}
