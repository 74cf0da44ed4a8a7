// Package profiles declares the repository contract for user profiles and its
// PostgreSQL implementation.
package profiles

import (
	"context"

	"github.com/readback/readback/internal/server/models"
)

type Repository interface {
	// Create inserts p and fills in its ID and CreatedAt.
	// A duplicate email yields common.ErrEmailAlreadyExists.
	Create(ctx context.Context, p *models.Profile) (*models.Profile, error)
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	// IsAdmin reports the admin flag; an unknown id is simply not an admin.
	IsAdmin(ctx context.Context, id string) (bool, error)
	// List returns all profiles, newest first.
	List(ctx context.Context) ([]*models.Profile, error)
	Count(ctx context.Context) (int, error)
}
