package main

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type LoginRequest struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// Login mints a session token. Real identity lives in the portal's auth
// provider; this takes the portal's word for it.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if req.UserName == "" {
		req.UserName = req.UserID
	}

	token, err := a.auth.GenerateToken(req.UserID, req.UserName)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, LoginResponse{Token: token})
}

// History returns a channel's messages in creation order, with the
// caller's own messages decorated with derived read state. Clients merge
// the result through the same dedup path as pushed events.
func (a *API) History(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	channelID := r.URL.Query().Get("channel_id")
	if channelID == "" {
		http.Error(w, "channel_id is required", http.StatusBadRequest)
		return
	}

	messages, err := a.store.History(r.Context(), channelID, claims.UserID)
	if err != nil {
		a.log.Error("load history", zap.String("channel_id", channelID), zap.Error(err))
		http.Error(w, "Failed to retrieve history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, messages)
}
