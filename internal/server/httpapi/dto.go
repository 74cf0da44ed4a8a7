package httpapi

import (
	"time"

	"github.com/readback/readback/internal/server/models"
	"github.com/readback/readback/internal/server/services"
)

type registerRequest struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	DisplayName *string `json:"displayName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type profileResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName *string   `json:"displayName"`
	IsAdmin     bool      `json:"isAdmin"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toProfile(p *models.Profile) profileResponse {
	return profileResponse{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		IsAdmin:     p.IsAdmin,
		CreatedAt:   p.CreatedAt,
	}
}

type sectionRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type sectionResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toSection(s *models.Section) sectionResponse {
	return sectionResponse{
		ID:        s.ID,
		UserID:    s.UserID,
		Title:     s.Title,
		Content:   s.Content,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

type sectionListResponse struct {
	Sections  []sectionResponse `json:"sections"`
	Count     int               `json:"count"`
	Limit     int               `json:"limit"`
	CanCreate bool              `json:"canCreate"`
}

type ttsRequest struct {
	SectionID string `json:"sectionId"`
	VoiceID   string `json:"voiceId"`
	Content   string `json:"content"`
}

type ttsResponse struct {
	AudioURL string `json:"audioUrl"`
	Cached   bool   `json:"cached"`
}

type voicesResponse struct {
	Voices    []models.Voice `json:"voices"`
	IsPremium bool           `json:"isPremium"`
}

type subscriptionResponse struct {
	Status             models.SubscriptionStatus `json:"status"`
	PlanType           models.PlanType           `json:"planType"`
	StartedAt          *time.Time                `json:"startedAt,omitempty"`
	ExpiresAt          *time.Time                `json:"expiresAt,omitempty"`
	AppleTransactionID *string                   `json:"appleTransactionId,omitempty"`
}

func toSubscription(s *models.Subscription) subscriptionResponse {
	res := subscriptionResponse{
		Status:             s.Status,
		PlanType:           s.PlanType,
		ExpiresAt:          s.ExpiresAt,
		AppleTransactionID: s.AppleTransactionID,
	}
	if !s.StartedAt.IsZero() {
		started := s.StartedAt
		res.StartedAt = &started
	}
	return res
}

type upgradeRequest struct {
	Receipt string `json:"receipt"`
}

type recentSectionResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Preview   string    `json:"preview"`
	CreatedAt time.Time `json:"createdAt"`
}

type userSummaryResponse struct {
	ID          string                    `json:"id"`
	Email       string                    `json:"email"`
	DisplayName *string                   `json:"displayName"`
	IsAdmin     bool                      `json:"isAdmin"`
	PlanType    models.PlanType           `json:"planType"`
	Status      models.SubscriptionStatus `json:"status"`
	CreatedAt   time.Time                 `json:"createdAt"`
}

type dashboardResponse struct {
	TotalUsers      int                     `json:"totalUsers"`
	PremiumUsers    int                     `json:"premiumUsers"`
	TotalSections   int                     `json:"totalSections"`
	TotalAudioFiles int                     `json:"totalAudioFiles"`
	ConversionRate  string                  `json:"conversionRate"`
	RecentSections  []recentSectionResponse `json:"recentSections"`
	Users           []userSummaryResponse   `json:"users"`
}

func toDashboard(d *services.Dashboard) dashboardResponse {
	res := dashboardResponse{
		TotalUsers:      d.TotalUsers,
		PremiumUsers:    d.PremiumUsers,
		TotalSections:   d.TotalSections,
		TotalAudioFiles: d.TotalAudioFiles,
		ConversionRate:  d.ConversionRate,
		RecentSections:  make([]recentSectionResponse, 0, len(d.RecentSections)),
		Users:           make([]userSummaryResponse, 0, len(d.Users)),
	}
	for _, r := range d.RecentSections {
		res.RecentSections = append(res.RecentSections, recentSectionResponse(r))
	}
	for _, u := range d.Users {
		res.Users = append(res.Users, userSummaryResponse(u))
	}
	return res
}
