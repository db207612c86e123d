package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"reservation-api/internal/middleware"
	"reservation-api/internal/models"
	"reservation-api/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const (
	msgInvalidBody = "Invalid request body"
	msgInternal    = "Internal server error"
	maxBodyBytes   = 1 << 20
)

// requestValidator wraps go-playground/validator so every failure surfaces
// as services.ErrValidation.
type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	return &requestValidator{v: validator.New()}
}

func (rv *requestValidator) Validate(i interface{}) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		fields := make([]string, 0, len(ve))
		for _, fe := range ve {
			fields = append(fields, strings.ToLower(fe.Field())+" "+fe.Tag())
		}
		return fmt.Errorf("%w: %s", services.ErrValidation, strings.Join(fields, "; "))
	}
	return fmt.Errorf("%w: %v", services.ErrValidation, err)
}

var validate = newRequestValidator()

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// On failure it writes a 400 with message and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}, message string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	if err := validate.Validate(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, message)
		return false
	}
	return true
}

// messages overrides the client message for specific sentinel errors.
type messages map[error]string

var defaultErrors = []struct {
	target  error
	status  int
	message string
}{
	{services.ErrValidation, http.StatusBadRequest, "Invalid request"},
	{services.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
	{services.ErrNotFound, http.StatusNotFound, "Not found"},
	{services.ErrEmailTaken, http.StatusConflict, "Email already in use"},
}

// respondWithServiceError maps a service error to its status and fixed
// message. Anything unrecognised is logged in full and returned as a 500.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error, overrides messages) {
	for _, known := range defaultErrors {
		if errors.Is(err, known.target) {
			msg := known.message
			if m, ok := overrides[known.target]; ok {
				msg = m
			}
			respondWithError(w, known.status, msg)
			return
		}
	}

	logger.Error().
		Err(err).
		Str("request_id", middleware.GetRequestID(r)).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("Unhandled error")
	respondWithError(w, http.StatusInternalServerError, msgInternal)
}

func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, models.Envelope{Success: false, Message: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
