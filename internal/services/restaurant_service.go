package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"reservation-api/internal/models"

	"github.com/rs/zerolog"
)

type RestaurantService struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewRestaurantService(db *sql.DB, logger zerolog.Logger) *RestaurantService {
	return &RestaurantService{
		db:     db,
		logger: logger,
	}
}

func (s *RestaurantService) List(ctx context.Context) ([]models.Restaurant, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, location FROM restaurants ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list restaurants: %w", err)
	}
	defer rows.Close()

	restaurants := []models.Restaurant{}
	for rows.Next() {
		var r models.Restaurant
		if err := rows.Scan(&r.ID, &r.Name, &r.Location); err != nil {
			return nil, fmt.Errorf("scan restaurant: %w", err)
		}
		restaurants = append(restaurants, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list restaurants: %w", err)
	}
	return restaurants, nil
}

func (s *RestaurantService) Get(ctx context.Context, id int) (*models.Restaurant, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var r models.Restaurant
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, location FROM restaurants WHERE id = ?", id,
	).Scan(&r.ID, &r.Name, &r.Location)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get restaurant %d: %w", id, err)
	}
	return &r, nil
}

func (s *RestaurantService) Create(ctx context.Context, req *models.CreateRestaurantRequest) (*models.Restaurant, error) {
	if req.Name == "" || req.Location == "" {
		return nil, fmt.Errorf("%w: name and location are required", ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO restaurants (name, location) VALUES (?, ?)",
		req.Name, req.Location,
	)
	if err != nil {
		return nil, fmt.Errorf("insert restaurant: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("restaurant id: %w", err)
	}

	s.logger.Info().Int64("restaurant_id", id).Msg("Restaurant created")
	return &models.Restaurant{ID: int(id), Name: req.Name, Location: req.Location}, nil
}

// Delete removes the restaurant; its reservations go with it through the
// foreign key cascade.
func (s *RestaurantService) Delete(ctx context.Context, id int) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := s.db.ExecContext(ctx, "DELETE FROM restaurants WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete restaurant %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete restaurant %d: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	s.logger.Info().Int("restaurant_id", id).Msg("Restaurant deleted")
	return nil
}
