// Package catalog manages the admin-maintained list of purchasable
// services and their unit prices.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"panel/internal/models"
	"panel/internal/storage"
)

var (
	// ErrPermissionDenied rejects catalog mutations from non-admin principals.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidService rejects an upsert with a bad name or price.
	ErrInvalidService = errors.New("invalid service definition")
)

// Catalog exposes the service list and its admin-only mutations.
type Catalog struct {
	store  storage.Storage
	admins map[int64]bool
	logger *zap.Logger
}

// New creates a catalog backed by the given store. Only the listed
// admin user IDs may mutate it.
func New(store storage.Storage, adminIDs []int64, logger *zap.Logger) *Catalog {
	admins := make(map[int64]bool)
	for _, id := range adminIDs {
		admins[id] = true
	}
	return &Catalog{store: store, admins: admins, logger: logger}
}

// Upsert creates or replaces the service keyed by name.
func (c *Catalog) Upsert(ctx context.Context, adminID int64, name, apiLink string, pricePerThousand int64) error {
	if !c.admins[adminID] {
		c.logger.Warn("Unauthorized catalog mutation attempt",
			zap.Int64("user_id", adminID),
			zap.String("service", name),
		)
		return ErrPermissionDenied
	}

	name = strings.TrimSpace(name)
	if name == "" || pricePerThousand <= 0 {
		return ErrInvalidService
	}

	svc := models.Service{
		Name:             name,
		APILink:          apiLink,
		PricePerThousand: pricePerThousand,
	}
	if err := c.store.UpsertService(ctx, svc); err != nil {
		return fmt.Errorf("failed to upsert service: %w", err)
	}

	c.logger.Info("Service upserted",
		zap.String("service", name),
		zap.Int64("price_per_thousand", pricePerThousand),
		zap.Int64("admin_id", adminID),
	)
	return nil
}

// Get returns a single service by name.
func (c *Catalog) Get(ctx context.Context, name string) (*models.Service, error) {
	return c.store.GetService(ctx, name)
}

// List returns all services. An empty catalog is a valid, displayable
// state, not an error.
func (c *Catalog) List(ctx context.Context) ([]models.Service, error) {
	return c.store.ListServices(ctx)
}
