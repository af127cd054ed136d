// Package store - Persistence of parking capacity and availability counts.
package store

import (
	"context"

	"github.com/nvr-ai/go-parking/regions"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when a count has never been written.
var ErrNotFound = errors.New("count not set")

// Key names one persisted count.
type Key string

const (
	// KeyTotalSpots is the number of normal stalls in the lot.
	KeyTotalSpots Key = "total_spots"
	// KeyTotalHandicapSpots is the number of handicap stalls in the lot.
	KeyTotalHandicapSpots Key = "total_handicap_spots"
	// KeyAvailableFreeSpots is the last computed number of free normal stalls.
	KeyAvailableFreeSpots Key = "available_free_spots"
	// KeyAvailableHandicapSpots is the last computed number of free handicap stalls.
	KeyAvailableHandicapSpots Key = "available_handicap_spots"
)

// Store is a key-value store of integer counts with overwrite semantics.
type Store interface {
	// Get returns the value of key, or ErrNotFound.
	Get(ctx context.Context, key Key) (int, error)
	// Set overwrites the value of key.
	Set(ctx context.Context, key Key, value int) error
	// Close releases the store.
	Close() error
}

// TotalKey returns the capacity key of a category.
func TotalKey(c regions.Category) (Key, error) {
	switch c {
	case regions.Normal:
		return KeyTotalSpots, nil
	case regions.Handicap:
		return KeyTotalHandicapSpots, nil
	default:
		return "", errors.Errorf("no capacity key for %s", c)
	}
}

// AvailableKey returns the availability key of a category.
func AvailableKey(c regions.Category) (Key, error) {
	switch c {
	case regions.Normal:
		return KeyAvailableFreeSpots, nil
	case regions.Handicap:
		return KeyAvailableHandicapSpots, nil
	default:
		return "", errors.Errorf("no availability key for %s", c)
	}
}

// Spots exposes the parking counts of a Store by name.
type Spots struct {
	Store Store
}

// NewSpots wraps a store.
func NewSpots(s Store) *Spots {
	return &Spots{Store: s}
}

// TotalSpots returns the number of normal stalls.
func (s *Spots) TotalSpots(ctx context.Context) (int, error) {
	return s.get(ctx, KeyTotalSpots)
}

// TotalHandicapSpots returns the number of handicap stalls.
func (s *Spots) TotalHandicapSpots(ctx context.Context) (int, error) {
	return s.get(ctx, KeyTotalHandicapSpots)
}

// SaveTotalSpots overwrites the number of normal stalls.
func (s *Spots) SaveTotalSpots(ctx context.Context, n int) error {
	return s.set(ctx, KeyTotalSpots, n)
}

// SaveTotalHandicapSpots overwrites the number of handicap stalls.
func (s *Spots) SaveTotalHandicapSpots(ctx context.Context, n int) error {
	return s.set(ctx, KeyTotalHandicapSpots, n)
}

// AvailableFreeSpots returns the last saved number of free normal stalls.
func (s *Spots) AvailableFreeSpots(ctx context.Context) (int, error) {
	return s.get(ctx, KeyAvailableFreeSpots)
}

// SaveAvailableFreeSpots overwrites the number of free normal stalls.
func (s *Spots) SaveAvailableFreeSpots(ctx context.Context, n int) error {
	return s.set(ctx, KeyAvailableFreeSpots, n)
}

// AvailableHandicapSpots returns the last saved number of free handicap stalls.
func (s *Spots) AvailableHandicapSpots(ctx context.Context) (int, error) {
	return s.get(ctx, KeyAvailableHandicapSpots)
}

// SaveAvailableHandicapSpots overwrites the number of free handicap stalls.
func (s *Spots) SaveAvailableHandicapSpots(ctx context.Context, n int) error {
	return s.set(ctx, KeyAvailableHandicapSpots, n)
}

// Total returns the capacity of a category.
func (s *Spots) Total(ctx context.Context, c regions.Category) (int, error) {
	key, err := TotalKey(c)
	if err != nil {
		return 0, err
	}
	return s.get(ctx, key)
}

// Available returns the last saved free count of a category.
func (s *Spots) Available(ctx context.Context, c regions.Category) (int, error) {
	key, err := AvailableKey(c)
	if err != nil {
		return 0, err
	}
	return s.get(ctx, key)
}

// SaveAvailable overwrites the free count of a category.
func (s *Spots) SaveAvailable(ctx context.Context, c regions.Category, n int) error {
	key, err := AvailableKey(c)
	if err != nil {
		return err
	}
	return s.set(ctx, key, n)
}

func (s *Spots) get(ctx context.Context, key Key) (int, error) {
	v, err := s.Store.Get(ctx, key)
	if err != nil {
		return 0, errors.Wrapf(err, "get %s", key)
	}
	return v, nil
}

func (s *Spots) set(ctx context.Context, key Key, n int) error {
	if err := s.Store.Set(ctx, key, n); err != nil {
		return errors.Wrapf(err, "set %s", key)
	}
	return nil
}
