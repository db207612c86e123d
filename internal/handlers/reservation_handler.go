package handlers

import (
	"net/http"

	"reservation-api/internal/middleware"
	"reservation-api/internal/models"
	"reservation-api/internal/services"

	"github.com/rs/zerolog"
)

const (
	msgReservationRequired = "Both date and time are required."
	msgReservationFormat   = "Date must be YYYY-MM-DD and time HH:MM."
	msgInvalidReservation  = "Invalid reservation id"
	msgReservationNotFound = "Not found or unauthorized"
	msgUnauthenticated     = "Missing token"
)

type ReservationHandler struct {
	reservationService *services.ReservationService
	logger             zerolog.Logger
}

func NewReservationHandler(reservationService *services.ReservationService, logger zerolog.Logger) *ReservationHandler {
	return &ReservationHandler{
		reservationService: reservationService,
		logger:             logger,
	}
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}
	restaurantID, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, msgInvalidRestaurant)
		return
	}

	var req models.CreateReservationRequest
	if !decodeAndValidate(w, r, &req, msgReservationRequired) {
		return
	}

	reservation, err := h.reservationService.Create(r.Context(), userID, restaurantID, &req)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, messages{services.ErrValidation: msgReservationFormat})
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success":       true,
		"reservationId": reservation.ID,
	})
}

func (h *ReservationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}

	reservations, err := h.reservationService.ListForUser(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, nil)
		return
	}
	respondWithJSON(w, http.StatusOK, models.DataResponse{Success: true, Data: reservations})
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}
	reservationID, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, msgInvalidReservation)
		return
	}

	if err := h.reservationService.Cancel(r.Context(), userID, reservationID); err != nil {
		respondWithServiceError(w, r, h.logger, err, messages{services.ErrNotFound: msgReservationNotFound})
		return
	}
	respondWithJSON(w, http.StatusOK, models.Envelope{Success: true})
}
