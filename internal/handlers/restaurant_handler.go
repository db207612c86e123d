package handlers

import (
	"net/http"

	"reservation-api/internal/models"
	"reservation-api/internal/services"

	"github.com/rs/zerolog"
)

const (
	msgRestaurantRequired = "Name & location required"
	msgInvalidRestaurant  = "Invalid restaurant id"
)

type RestaurantHandler struct {
	restaurantService *services.RestaurantService
	logger            zerolog.Logger
}

func NewRestaurantHandler(restaurantService *services.RestaurantService, logger zerolog.Logger) *RestaurantHandler {
	return &RestaurantHandler{
		restaurantService: restaurantService,
		logger:            logger,
	}
}

func (h *RestaurantHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurants, err := h.restaurantService.List(r.Context())
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, nil)
		return
	}
	respondWithJSON(w, http.StatusOK, models.DataResponse{Success: true, Data: restaurants})
}

func (h *RestaurantHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, msgInvalidRestaurant)
		return
	}

	restaurant, err := h.restaurantService.Get(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, nil)
		return
	}
	respondWithJSON(w, http.StatusOK, models.DataResponse{Success: true, Data: restaurant})
}

// Create is mounted behind Authentication and RequireAdmin.
func (h *RestaurantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRestaurantRequest
	if !decodeAndValidate(w, r, &req, msgRestaurantRequired) {
		return
	}

	restaurant, err := h.restaurantService.Create(r.Context(), &req)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, messages{services.ErrValidation: msgRestaurantRequired})
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success":      true,
		"restaurantId": restaurant.ID,
	})
}

func (h *RestaurantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, msgInvalidRestaurant)
		return
	}

	if err := h.restaurantService.Delete(r.Context(), id); err != nil {
		respondWithServiceError(w, r, h.logger, err, nil)
		return
	}
	respondWithJSON(w, http.StatusOK, models.Envelope{Success: true})
}
