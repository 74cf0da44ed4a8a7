package repomanager

import (
	"context"
	"database/sql"

	"github.com/readback/readback/internal/dbx"
	"github.com/readback/readback/internal/server/repositories/audiocache"
	"github.com/readback/readback/internal/server/repositories/profiles"
	"github.com/readback/readback/internal/server/repositories/refreshtokens"
	"github.com/readback/readback/internal/server/repositories/sections"
	"github.com/readback/readback/internal/server/repositories/subscriptions"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code runs
// against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Profiles(db dbx.DBTX) profiles.Repository
	Sections(db dbx.DBTX) sections.Repository
	AudioCache(db dbx.DBTX) audiocache.Repository
	Subscriptions(db dbx.DBTX) subscriptions.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
