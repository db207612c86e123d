package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"reservation-api/internal/db"
	"reservation-api/internal/models"

	"github.com/rs/zerolog"
)

type ReservationService struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewReservationService(db *sql.DB, logger zerolog.Logger) *ReservationService {
	return &ReservationService{
		db:     db,
		logger: logger,
	}
}

// ParseReservationTime combines a YYYY-MM-DD date and an HH:MM time into one
// UTC timestamp with zero seconds.
func ParseReservationTime(date, clock string) (time.Time, error) {
	if date == "" || clock == "" {
		return time.Time{}, fmt.Errorf("%w: both date and time are required", ErrValidation)
	}
	t, err := time.ParseInLocation(
		models.ReservationDateLayout+" "+models.ReservationTimeLayout,
		date+" "+clock,
		time.UTC,
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return t, nil
}

// Create books a table for userID. The user always comes from the verified
// token; an unknown restaurant surfaces as ErrNotFound via the foreign key.
func (s *ReservationService) Create(ctx context.Context, userID, restaurantID int, req *models.CreateReservationRequest) (*models.Reservation, error) {
	at, err := ParseReservationTime(req.Date, req.Time)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO reservations (user_id, restaurant_id, reservation_time) VALUES (?, ?, ?)",
		userID, restaurantID, at,
	)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("insert reservation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reservation id: %w", err)
	}

	s.logger.Info().
		Int64("reservation_id", id).
		Int("user_id", userID).
		Int("restaurant_id", restaurantID).
		Time("reservation_time", at).
		Msg("Reservation created")

	return &models.Reservation{
		ID:              int(id),
		UserID:          userID,
		RestaurantID:    restaurantID,
		ReservationTime: at,
	}, nil
}

// ListForUser returns the user's reservations, latest first.
func (s *ReservationService) ListForUser(ctx context.Context, userID int) ([]models.ReservationSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.restaurant_id, r.reservation_time, res.name, res.location
		   FROM reservations r
		   JOIN restaurants res ON res.id = r.restaurant_id
		  WHERE r.user_id = ?
		  ORDER BY r.reservation_time DESC, r.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	out := []models.ReservationSummary{}
	for rows.Next() {
		var (
			item models.ReservationSummary
			at   time.Time
		)
		if err := rows.Scan(&item.ID, &item.RestaurantID, &at, &item.RestaurantName, &item.RestaurantLocation); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		at = at.UTC()
		item.Date = at.Format(models.ReservationDateLayout)
		item.Time = at.Format(models.ReservationTimeLayout)
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return out, nil
}

// Cancel deletes a reservation owned by userID. Missing rows and rows owned
// by someone else both yield ErrNotFound.
func (s *ReservationService) Cancel(ctx context.Context, userID, reservationID int) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM reservations WHERE id = ? AND user_id = ?",
		reservationID, userID,
	)
	if err != nil {
		return fmt.Errorf("cancel reservation %d: %w", reservationID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("cancel reservation %d: %w", reservationID, err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	s.logger.Info().Int("reservation_id", reservationID).Int("user_id", userID).Msg("Reservation cancelled")
	return nil
}
