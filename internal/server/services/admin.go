package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/readback/readback/internal/common"
	"github.com/readback/readback/internal/server/models"
	"github.com/readback/readback/internal/server/repositories/repomanager"
)

const (
	recentSectionsLimit = 10
	previewLength       = 100
)

type RecentSection struct {
	ID        string
	UserID    string
	Title     string
	Preview   string
	CreatedAt time.Time
}

type UserSummary struct {
	ID          string
	Email       string
	DisplayName *string
	IsAdmin     bool
	PlanType    models.PlanType
	Status      models.SubscriptionStatus
	CreatedAt   time.Time
}

// Dashboard is the admin overview. ConversionRate is the premium share of
// users in percent, formatted with one decimal.
type Dashboard struct {
	TotalUsers      int
	PremiumUsers    int
	TotalSections   int
	TotalAudioFiles int
	ConversionRate  string
	RecentSections  []RecentSection
	Users           []UserSummary
}

type AdminService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	authz       AuthorizationProvider
}

func NewAdminService(db *sql.DB, m repomanager.RepositoryManager, authz AuthorizationProvider) *AdminService {
	return &AdminService{db: db, repomanager: m, authz: authz}
}

// Dashboard collects usage metrics. Non-admin callers get common.ErrForbidden.
func (s *AdminService) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	isAdmin, err := s.authz.IsAdmin(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error checking admin: %w", err)
	}
	if !isAdmin {
		return nil, common.ErrForbidden
	}

	d := &Dashboard{}

	profiles, err := s.repomanager.Profiles(s.db).List(ctx)
	if err != nil {
		return nil, err
	}
	d.TotalUsers = len(profiles)

	if d.PremiumUsers, err = s.repomanager.Subscriptions(s.db).CountPremiumActive(ctx); err != nil {
		return nil, err
	}
	if d.TotalSections, err = s.repomanager.Sections(s.db).Count(ctx); err != nil {
		return nil, err
	}
	if d.TotalAudioFiles, err = s.repomanager.AudioCache(s.db).Count(ctx); err != nil {
		return nil, err
	}
	d.ConversionRate = conversionRate(d.PremiumUsers, d.TotalUsers)

	recent, err := s.repomanager.Sections(s.db).ListRecent(ctx, recentSectionsLimit)
	if err != nil {
		return nil, err
	}
	d.RecentSections = make([]RecentSection, 0, len(recent))
	for _, sec := range recent {
		d.RecentSections = append(d.RecentSections, RecentSection{
			ID:        sec.ID,
			UserID:    sec.UserID,
			Title:     sec.Title,
			Preview:   preview(sec.Content),
			CreatedAt: sec.CreatedAt,
		})
	}

	subs, err := s.repomanager.Subscriptions(s.db).List(ctx)
	if err != nil {
		return nil, err
	}
	byUser := make(map[string]*models.Subscription, len(subs))
	for _, sub := range subs {
		byUser[sub.UserID] = sub
	}

	d.Users = make([]UserSummary, 0, len(profiles))
	for _, p := range profiles {
		u := UserSummary{
			ID:          p.ID,
			Email:       p.Email,
			DisplayName: p.DisplayName,
			IsAdmin:     p.IsAdmin,
			PlanType:    models.PlanFree,
			Status:      models.StatusActive,
			CreatedAt:   p.CreatedAt,
		}
		if sub, ok := byUser[p.ID]; ok {
			u.PlanType, u.Status = sub.PlanType, sub.Status
		}
		d.Users = append(d.Users, u)
	}

	return d, nil
}

func conversionRate(premium, total int) string {
	if total == 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", float64(premium)/float64(total)*100)
}

// preview cuts content to previewLength runes and marks the cut with "...".
func preview(content string) string {
	if utf8.RuneCountInString(content) <= previewLength {
		return content
	}
	return string([]rune(content)[:previewLength]) + "..."
}
