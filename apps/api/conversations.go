package main

import (
	"net/http"

	"go.uber.org/zap"
)

// Conversations returns the caller's channel list ordered by most recent
// activity, each with its unread counter. This is the authoritative
// snapshot clients reconcile their optimistic inbox against.
func (a *API) Conversations(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conversations, err := a.store.Conversations(r.Context(), claims.UserID)
	if err != nil {
		a.log.Error("load conversations", zap.String("user_id", claims.UserID), zap.Error(err))
		http.Error(w, "Failed to retrieve conversations", http.StatusInternalServerError)
		return
	}

	writeJSON(w, conversations)
}
