package service

import (
	"context"
	"fmt"
	"time"

	"hotel-booking-service/internal/models"
	"hotel-booking-service/internal/redisclient"
	"hotel-booking-service/internal/store"
	"hotel-booking-service/internal/util"

	"go.uber.org/zap"
)

type inventoryStore interface {
	ReserveRoomTx(ctx context.Context, hotelID int64) error
	ReleaseRoom(ctx context.Context, hotelID int64) error
	GetHotels(ctx context.Context) ([]models.Hotel, error)
}

type roomCache interface {
	ReserveRoom(ctx context.Context, hotelID int64) (int, error)
	ReleaseRoom(ctx context.Context, hotelID int64) error
	SyncRoomCount(ctx context.Context, hotelID int64, availableRooms int) error
}

// RoomInventory owns the per-hotel available-room counter. The database is
// the source of truth; Redis mirrors the counter as a fast rejection path
// for sold-out hotels under load.
type RoomInventory struct {
	store  inventoryStore
	cache  roomCache
	logger *zap.Logger
}

// NewRoomInventory creates a new room inventory
func NewRoomInventory(st *store.Store, cache *redisclient.Client) *RoomInventory {
	return &RoomInventory{
		store:  st,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// Reserve takes one room from the hotel's inventory. Fails with
// ErrCapacityExceeded when no rooms are left.
func (ri *RoomInventory) Reserve(ctx context.Context, hotelID int64) error {
	ctx, span := util.StartSpan(ctx, "RoomInventory.Reserve")
	defer span.End()

	start := time.Now()
	defer func() {
		util.RoomReserveLatency.Observe(time.Since(start).Seconds())
	}()

	cached, err := ri.cache.ReserveRoom(ctx, hotelID)
	if err != nil {
		ri.logger.Warn("Redis room reservation failed, using database only",
			zap.Int64("hotel_id", hotelID),
			zap.Error(err))
		cached = redisclient.ReserveUnknown
	}

	if cached == redisclient.ReserveSoldOut {
		return fmt.Errorf("%w: hotel=%d", models.ErrCapacityExceeded, hotelID)
	}

	if err := ri.store.ReserveRoomTx(ctx, hotelID); err != nil {
		if cached == redisclient.ReserveOK {
			if cerr := ri.cache.ReleaseRoom(ctx, hotelID); cerr != nil {
				ri.logger.Error("Failed to roll back cached room counter",
					zap.Int64("hotel_id", hotelID),
					zap.Error(cerr))
			}
		}
		return err
	}

	util.RoomsReservedTotal.Inc()
	return nil
}

// Release returns one previously reserved room to the hotel's inventory.
// Callers release exactly once per prior successful Reserve.
func (ri *RoomInventory) Release(ctx context.Context, hotelID int64) error {
	ctx, span := util.StartSpan(ctx, "RoomInventory.Release")
	defer span.End()

	if err := ri.store.ReleaseRoom(ctx, hotelID); err != nil {
		return fmt.Errorf("failed to release room: %w", err)
	}

	if err := ri.cache.ReleaseRoom(ctx, hotelID); err != nil {
		ri.logger.Error("Failed to release room in Redis",
			zap.Int64("hotel_id", hotelID),
			zap.Error(err))
	}

	util.RoomsReleasedTotal.Inc()
	return nil
}

// Hotels returns all hotels with their current room counters
func (ri *RoomInventory) Hotels(ctx context.Context) ([]models.Hotel, error) {
	return ri.store.GetHotels(ctx)
}

// SyncRoomCounts pushes the database room counters into Redis
func (ri *RoomInventory) SyncRoomCounts(ctx context.Context) error {
	ri.logger.Info("Starting room count sync to Redis")

	hotels, err := ri.store.GetHotels(ctx)
	if err != nil {
		return fmt.Errorf("failed to get hotels: %w", err)
	}

	for _, hotel := range hotels {
		if err := ri.cache.SyncRoomCount(ctx, hotel.ID, hotel.AvailableRooms); err != nil {
			ri.logger.Error("Failed to sync room count",
				zap.Int64("hotel_id", hotel.ID),
				zap.Error(err))
		}
	}

	ri.logger.Info("Room count sync completed", zap.Int("hotels", len(hotels)))
	return nil
}
