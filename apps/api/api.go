package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ridgeline-homes/portalchat/pkg/auth"
	"github.com/ridgeline-homes/portalchat/pkg/readstate"
	"github.com/ridgeline-homes/portalchat/pkg/send"
	"github.com/ridgeline-homes/portalchat/pkg/store"
)

type API struct {
	auth    *auth.Authenticator
	store   *store.Store
	sender  *send.Service
	tracker *readstate.Tracker
	redis   *redis.Client
	log     *zap.Logger
}

// RequireAuth validates the bearer token and stores the claims on the
// request context.
func (a *API) RequireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}
		if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
			tokenString = tokenString[7:]
		}

		claims, err := a.auth.ValidateToken(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), auth.UserKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFrom(r *http.Request) (*auth.Claims, bool) {
	claims, ok := r.Context().Value(auth.UserKey).(*auth.Claims)
	return claims, ok
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
