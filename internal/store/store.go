package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hotel-booking-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetHotelByID retrieves a hotel by ID
func (s *Store) GetHotelByID(ctx context.Context, id int64) (*models.Hotel, error) {
	var hotel models.Hotel
	err := s.db.GetContext(ctx, &hotel, "SELECT * FROM hotels WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id=%d", models.ErrHotelNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &hotel, nil
}

// GetHotels retrieves all hotels
func (s *Store) GetHotels(ctx context.Context) ([]models.Hotel, error) {
	var hotels []models.Hotel
	err := s.db.SelectContext(ctx, &hotels, "SELECT * FROM hotels ORDER BY id")
	return hotels, err
}

// ReserveRoomTx decrements a hotel's available-room counter inside a
// transaction holding a row lock, so concurrent reservations for the same
// hotel serialize and the counter never goes negative.
func (s *Store) ReserveRoomTx(ctx context.Context, hotelID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var available int
	err = tx.GetContext(ctx, &available,
		"SELECT available_rooms FROM hotels WHERE id = $1 FOR UPDATE", hotelID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: id=%d", models.ErrHotelNotFound, hotelID)
	}
	if err != nil {
		return fmt.Errorf("failed to lock hotel row: %w", err)
	}

	if available <= 0 {
		return fmt.Errorf("%w: hotel=%d", models.ErrCapacityExceeded, hotelID)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE hotels SET available_rooms = available_rooms - 1 WHERE id = $1", hotelID)
	if err != nil {
		return fmt.Errorf("failed to reserve room: %w", err)
	}

	return tx.Commit()
}

// ReleaseRoom increments a hotel's available-room counter. Callers release
// exactly once per prior successful reservation, so the counter never
// exceeds the hotel's configured capacity.
func (s *Store) ReleaseRoom(ctx context.Context, hotelID int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE hotels SET available_rooms = available_rooms + 1 WHERE id = $1", hotelID)
	return err
}
