// Package repository stores saved flows and recorded test results.
package repository

import (
	"context"
	"errors"

	"flowbuilder/backend/pkg/models"
)

// ErrNotFound is returned when a flow or result id is unknown.
var ErrNotFound = errors.New("not found")

// Repository persists flows and results. Lists are most recent first and every
// value handed out is a detached copy.
type Repository interface {
	// SaveFlow stores a flow snapshot.
	SaveFlow(ctx context.Context, flow *models.Flow) error
	// ListFlows returns every saved flow.
	ListFlows(ctx context.Context) ([]*models.Flow, error)
	// GetFlow retrieves a flow by its ID.
	GetFlow(ctx context.Context, id string) (*models.Flow, error)
	// SaveResult records a test result.
	SaveResult(ctx context.Context, result *models.Result) error
	// ListResults returns the result history.
	ListResults(ctx context.Context) ([]*models.Result, error)
	// GetResult retrieves a result by its ID.
	GetResult(ctx context.Context, id string) (*models.Result, error)
	// Ping checks the backing store is reachable.
	Ping(ctx context.Context) error
}
