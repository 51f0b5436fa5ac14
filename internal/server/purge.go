package server

import (
	"log/slog"
	"net/http"

	"github.com/ryanolee/serverless-offline-edge-lambda/internal/cache"
)

// PurgeMethod is the distinguished HTTP method that empties the
// response cache.
const PurgeMethod = "PURGE"

// PurgeMiddleware intercepts PURGE requests before behavior matching,
// empties the response cache and responds 200 with an empty body. A
// PURGE request never reaches the lifecycle engine.
func PurgeMiddleware(store cache.Store, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != PurgeMethod {
				next.ServeHTTP(w, r)
				return
			}

			if err := store.PurgeAll(r.Context()); err != nil {
				logger.Error("cache purge failed", slog.String("error", err.Error()))
				writeErrorJSON(w, http.StatusInternalServerError, "purge_failed", "failed to purge the response cache")
				return
			}

			logger.Info("response cache purged")
			w.WriteHeader(http.StatusOK)
		})
	}
}
