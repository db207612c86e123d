package models

import "time"

const (
	ReservationDateLayout = "2006-01-02"
	ReservationTimeLayout = "15:04"
)

type Reservation struct {
	ID              int
	UserID          int
	RestaurantID    int
	ReservationTime time.Time
}

// CreateReservationRequest mirrors the client's split date and time pickers.
type CreateReservationRequest struct {
	Date string `json:"date" validate:"required"`
	Time string `json:"time" validate:"required"`
}

// ReservationSummary is a reservation joined with its restaurant, as listed
// on the profile screen.
type ReservationSummary struct {
	ID                 int    `json:"id"`
	RestaurantID       int    `json:"restaurantId"`
	Date               string `json:"date"`
	Time               string `json:"time"`
	RestaurantName     string `json:"restaurantName"`
	RestaurantLocation string `json:"restaurantLocation"`
}
