package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"reservation-api/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type HealthHandler struct {
	db     *sql.DB
	redis  *redis.Client
	logger zerolog.Logger
}

// NewHealthHandler accepts a nil redis client when Redis is disabled.
func NewHealthHandler(db *sql.DB, rdb *redis.Client, logger zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		redis:  rdb,
		logger: logger,
	}
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, models.Envelope{Success: true, Message: "Server is running"})
}

type readinessResponse struct {
	Success      bool              `json:"success"`
	Dependencies map[string]string `json:"dependencies"`
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	deps := make(map[string]string)
	healthy := true

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Error().Err(err).Msg("Database ping failed")
		deps["database"] = "unhealthy"
		healthy = false
	} else {
		deps["database"] = "ok"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			h.logger.Error().Err(err).Msg("Redis ping failed")
			deps["redis"] = "unhealthy"
			healthy = false
		} else {
			deps["redis"] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	respondWithJSON(w, status, readinessResponse{Success: healthy, Dependencies: deps})
}
