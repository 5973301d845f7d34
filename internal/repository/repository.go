// FilePath: internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/airflowiq/hub/internal/models"
)

var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")
	// ErrDuplicate indicates that a resource already exists
	ErrDuplicate = errors.New("resource already exists")
	// ErrInvalidInput indicates that the input data is invalid
	ErrInvalidInput = errors.New("invalid input")
)

// ReadingStore is the data-query collaborator for the time-series table
type ReadingStore interface {
	// QueryReadings returns rows of the given devices recorded at or after
	// q.Since (no lower bound when zero), ordered by recorded_at.
	QueryReadings(ctx context.Context, q models.ReadingQuery) ([]models.SensorReading, error)
	// MostRecentTimestamp returns the latest recorded_at across the devices.
	// ok is false when none of them ever reported.
	MostRecentTimestamp(ctx context.Context, deviceIDs []string) (ts time.Time, ok bool, err error)
}

// OwnershipStore answers device ownership questions
type OwnershipStore interface {
	OwnedDeviceIDs(ctx context.Context, userID string) ([]string, error)
	IsDeviceOwner(ctx context.Context, deviceID, userID string) (bool, error)
}

// DeviceRepository defines the interface for device management
type DeviceRepository interface {
	OwnershipStore
	Create(ctx context.Context, device *models.Device) error
	Get(ctx context.Context, id string) (*models.Device, error)
	GetByMAC(ctx context.Context, mac string) (*models.Device, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Device, error)
	Update(ctx context.Context, device *models.Device) error
	// Claim sets the owner only if the device is still unclaimed; ok reports whether it did.
	Claim(ctx context.Context, id, ownerID string) (ok bool, err error)
	Unclaim(ctx context.Context, id, ownerID string) error
}

// ProductRepository reads the product catalogue
type ProductRepository interface {
	ListActive(ctx context.Context) ([]*models.Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.Product, error)
}

// OrderRepository stores orders together with their items
type OrderRepository interface {
	// CreateWithItems writes the order and its items in one transaction
	CreateWithItems(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, id string) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*models.Order, error)
}

// ProfileRepository stores user profiles
type ProfileRepository interface {
	Get(ctx context.Context, userID string) (*models.Profile, error)
	UpdateFullName(ctx context.Context, userID, fullName string) error
}
