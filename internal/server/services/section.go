package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/readback/readback/internal/common"
	"github.com/readback/readback/internal/dbx"
	"github.com/readback/readback/internal/server/models"
	"github.com/readback/readback/internal/server/policy"
	"github.com/readback/readback/internal/server/repositories/repomanager"
)

// SectionList is a user's sections together with their plan allowance.
// Limit is zero for premium accounts.
type SectionList struct {
	Sections  []*models.Section
	Count     int
	Limit     int
	CanCreate bool
}

// SectionService manages a user's sections. Every operation is scoped to the
// caller; sections of other users behave as if they did not exist.
type SectionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	authz       AuthorizationProvider
}

func NewSectionService(db *sql.DB, m repomanager.RepositoryManager, authz AuthorizationProvider) *SectionService {
	return &SectionService{db: db, repomanager: m, authz: authz}
}

// validSectionID reports whether id can name a section at all.
func validSectionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func cleanSection(title, content string) (string, string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", "", fmt.Errorf("%w: title is required", common.ErrValidation)
	}
	return title, strings.TrimSpace(content), nil
}

func (s *SectionService) List(ctx context.Context, userID string) (*SectionList, error) {
	sub, err := s.authz.GetSubscription(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error reading subscription: %w", err)
	}

	list, err := s.repomanager.Sections(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*models.Section{}
	}

	res := &SectionList{
		Sections:  list,
		Count:     len(list),
		CanCreate: policy.CanCreateSection(sub, len(list)),
	}
	if !policy.IsPremium(sub) {
		res.Limit = policy.FreeSectionLimit
	}
	return res, nil
}

func (s *SectionService) Get(ctx context.Context, userID, id string) (*models.Section, error) {
	if !validSectionID(id) {
		return nil, common.ErrorNotFound
	}
	return s.repomanager.Sections(s.db).GetByID(ctx, userID, id)
}

// Create stores a new section unless the caller's plan ceiling is reached.
// The count and the insert share a transaction.
func (s *SectionService) Create(ctx context.Context, userID, title, content string) (*models.Section, error) {
	title, content, err := cleanSection(title, content)
	if err != nil {
		return nil, err
	}

	sub, err := s.authz.GetSubscription(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error reading subscription: %w", err)
	}

	var created *models.Section
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Sections(tx)

		n, err := repo.CountByUser(ctx, userID)
		if err != nil {
			return err
		}
		if !policy.CanCreateSection(sub, n) {
			return common.ErrSectionLimit
		}

		created, err = repo.Create(ctx, &models.Section{UserID: userID, Title: title, Content: content})
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *SectionService) Update(ctx context.Context, userID, id, title, content string) (*models.Section, error) {
	if !validSectionID(id) {
		return nil, common.ErrorNotFound
	}
	title, content, err := cleanSection(title, content)
	if err != nil {
		return nil, err
	}
	return s.repomanager.Sections(s.db).Update(ctx, &models.Section{ID: id, UserID: userID, Title: title, Content: content})
}

// Delete removes the section. Its audio cache entries are left in place.
func (s *SectionService) Delete(ctx context.Context, userID, id string) error {
	if !validSectionID(id) {
		return common.ErrorNotFound
	}
	return s.repomanager.Sections(s.db).Delete(ctx, userID, id)
}
