package handlers

import (
	"errors"
	"net/http"

	"reservation-api/internal/metrics"
	"reservation-api/internal/models"
	"reservation-api/internal/ratelimit"
	"reservation-api/internal/services"

	"github.com/rs/zerolog"
)

const (
	msgRegisterRequired = "Name, email & password required"
	msgLoginRequired    = "Email & password required"
	msgTooManyAttempts  = "Too many login attempts"
)

type AuthHandler struct {
	userService  *services.UserService
	authService  *services.AuthService
	loginLimiter ratelimit.LoginLimiter
	logger       zerolog.Logger
}

func NewAuthHandler(userService *services.UserService, authService *services.AuthService, loginLimiter ratelimit.LoginLimiter, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		userService:  userService,
		authService:  authService,
		loginLimiter: loginLimiter,
		logger:       logger,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeAndValidate(w, r, &req, msgRegisterRequired) {
		return
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, messages{services.ErrValidation: msgRegisterRequired})
		return
	}

	token, err := h.authService.GenerateToken(user.ID, user.Role)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, nil)
		return
	}

	metrics.RegistrationsTotal.Inc()
	respondWithJSON(w, http.StatusCreated, models.AuthResponse{
		Success: true,
		UserID:  user.ID,
		Role:    user.Role,
		Token:   token,
	})
}

// Login answers "Invalid credentials" for unknown emails and wrong passwords
// alike. Every attempt for an email is counted before the password is
// checked; a success clears the count.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeAndValidate(w, r, &req, msgLoginRequired) {
		return
	}

	ctx := r.Context()
	allowed, err := h.loginLimiter.Acquire(ctx, req.Email)
	if err != nil {
		// fail open: a limiter outage must not lock everyone out
		h.logger.Warn().Err(err).Msg("Login limiter unavailable")
		allowed = true
	}
	if !allowed {
		metrics.LoginAttemptsTotal.WithLabelValues("throttled").Inc()
		respondWithError(w, http.StatusTooManyRequests, msgTooManyAttempts)
		return
	}

	user, err := h.userService.Authenticate(ctx, &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			metrics.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
		}
		respondWithServiceError(w, r, h.logger, err, messages{services.ErrValidation: msgLoginRequired})
		return
	}

	token, err := h.authService.GenerateToken(user.ID, user.Role)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, nil)
		return
	}

	if err := h.loginLimiter.Reset(ctx, req.Email); err != nil {
		h.logger.Warn().Err(err).Msg("Could not reset login attempts")
	}
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	respondWithJSON(w, http.StatusOK, models.AuthResponse{
		Success: true,
		UserID:  user.ID,
		Role:    user.Role,
		Token:   token,
	})
}
