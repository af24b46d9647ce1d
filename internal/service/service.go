// Package service implements the account and library business rules.
package service

import (
	"context"

	"github.com/gaming-library/internal/domain"
)

// Catalog resolves catalog games by their external ID
type Catalog interface {
	GetGameByID(ctx context.Context, id int64) (*domain.CatalogGame, error)
}

// ActivityPublisher fans library changes out to interested listeners
type ActivityPublisher interface {
	Publish(ctx context.Context, event domain.ActivityEvent) error
}
