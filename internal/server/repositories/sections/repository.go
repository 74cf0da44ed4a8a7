// Package sections declares the repository contract for user sections and its
// PostgreSQL implementation. Every per-user operation is scoped by owner, so a
// section belonging to someone else is reported as not found.
package sections

import (
	"context"

	"github.com/readback/readback/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Section) (*models.Section, error)
	Update(ctx context.Context, s *models.Section) (*models.Section, error)
	Delete(ctx context.Context, userID, id string) error
	GetByID(ctx context.Context, userID, id string) (*models.Section, error)
	// ListByUser returns the user's sections, most recently updated first.
	ListByUser(ctx context.Context, userID string) ([]*models.Section, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	// ListRecent returns the newest sections across all users.
	ListRecent(ctx context.Context, limit int) ([]*models.Section, error)
	Count(ctx context.Context) (int, error)
}
