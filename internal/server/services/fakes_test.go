package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/readback/readback/internal/common"
	"github.com/readback/readback/internal/dbx"
	"github.com/readback/readback/internal/server/models"
	"github.com/readback/readback/internal/server/repositories/audiocache"
	"github.com/readback/readback/internal/server/repositories/profiles"
	"github.com/readback/readback/internal/server/repositories/refreshtokens"
	"github.com/readback/readback/internal/server/repositories/sections"
	"github.com/readback/readback/internal/server/repositories/subscriptions"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}


var seq struct {
	sync.Mutex
	n int
}

// nextID returns a fresh UUID-shaped id.
func nextID() string {
	seq.Lock()
	defer seq.Unlock()
	seq.n++
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", seq.n)
}

// --- profiles ---

type fakeProfiles struct {
	mu        sync.Mutex
	byID      map[string]*models.Profile
	createErr error
	listErr   error
}

func newFakeProfiles() *fakeProfiles { return &fakeProfiles{byID: map[string]*models.Profile{}} }

func (f *fakeProfiles) Create(_ context.Context, p *models.Profile) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, existing := range f.byID {
		if existing.Email == p.Email {
			return nil, common.ErrEmailAlreadyExists
		}
	}
	p.ID = nextID()
	p.CreatedAt = time.Now()
	cp := *p
	f.byID[p.ID] = &cp
	return p, nil
}

func (f *fakeProfiles) GetByID(_ context.Context, id string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) GetByEmail(_ context.Context, email string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.byID {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeProfiles) IsAdmin(ctx context.Context, id string) (bool, error) {
	p, err := f.GetByID(ctx, id)
	if err != nil {
		return false, nil
	}
	return p.IsAdmin, nil
}

func (f *fakeProfiles) List(_ context.Context) ([]*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*models.Profile, 0, len(f.byID))
	for _, p := range f.byID {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeProfiles) Count(ctx context.Context) (int, error) {
	l, err := f.List(ctx)
	return len(l), err
}

// --- sections ---

type fakeSections struct {
	mu        sync.Mutex
	byID      map[string]*models.Section
	countErr  error
	createErr error
}

func newFakeSections() *fakeSections { return &fakeSections{byID: map[string]*models.Section{}} }

func (f *fakeSections) add(userID, title, content string) *models.Section {
	s, _ := f.Create(context.Background(), &models.Section{UserID: userID, Title: title, Content: content})
	return s
}

func (f *fakeSections) Create(_ context.Context, s *models.Section) (*models.Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	s.ID = nextID()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	cp := *s
	f.byID[s.ID] = &cp
	return s, nil
}

func (f *fakeSections) Update(_ context.Context, s *models.Section) (*models.Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.byID[s.ID]
	if !ok || cur.UserID != s.UserID {
		return nil, common.ErrorNotFound
	}
	cur.Title, cur.Content, cur.UpdatedAt = s.Title, s.Content, time.Now()
	cp := *cur
	return &cp, nil
}

func (f *fakeSections) Delete(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.byID[id]
	if !ok || cur.UserID != userID {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeSections) GetByID(_ context.Context, userID, id string) (*models.Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.byID[id]
	if !ok || cur.UserID != userID {
		return nil, common.ErrorNotFound
	}
	cp := *cur
	return &cp, nil
}

func (f *fakeSections) all(filter func(*models.Section) bool) []*models.Section {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Section
	for _, s := range f.byID {
		if filter(s) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out
}

func (f *fakeSections) ListByUser(_ context.Context, userID string) ([]*models.Section, error) {
	out := f.all(func(s *models.Section) bool { return s.UserID == userID })
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (f *fakeSections) CountByUser(ctx context.Context, userID string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	l, _ := f.ListByUser(ctx, userID)
	return len(l), nil
}

func (f *fakeSections) ListRecent(_ context.Context, limit int) ([]*models.Section, error) {
	out := f.all(func(*models.Section) bool { return true })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeSections) Count(_ context.Context) (int, error) {
	return len(f.all(func(*models.Section) bool { return true })), nil
}

// --- audio cache ---

type fakeAudioCache struct {
	mu        sync.Mutex
	entries   []*models.AudioCacheEntry
	finds     int
	inserts   int
	findErr   error
	insertErr error
}

func (f *fakeAudioCache) Find(_ context.Context, sectionID, voiceID, hash string) (*models.AudioCacheEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds++
	if f.findErr != nil {
		return nil, f.findErr
	}
	for i := len(f.entries) - 1; i >= 0; i-- {
		e := f.entries[i]
		if e.SectionID == sectionID && e.VoiceID == voiceID && e.ContentHash == hash {
			cp := *e
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeAudioCache) Insert(_ context.Context, e *models.AudioCacheEntry) (*models.AudioCacheEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	e.ID = nextID()
	e.CreatedAt = time.Now()
	cp := *e
	f.entries = append(f.entries, &cp)
	return e, nil
}

func (f *fakeAudioCache) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries), nil
}

// --- subscriptions ---

type fakeSubscriptions struct {
	mu         sync.Mutex
	byUser     map[string]*models.Subscription
	createErr  error
	upgradeErr error
}

func newFakeSubscriptions() *fakeSubscriptions {
	return &fakeSubscriptions{byUser: map[string]*models.Subscription{}}
}

func (f *fakeSubscriptions) set(userID string, plan models.PlanType, status models.SubscriptionStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byUser[userID] = &models.Subscription{ID: nextID(), UserID: userID, PlanType: plan, Status: status, CreatedAt: time.Now()}
}

func (f *fakeSubscriptions) CreateFree(_ context.Context, userID string) (*models.Subscription, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.set(userID, models.PlanFree, models.StatusActive)
	return f.GetByUserID(context.Background(), userID)
}

func (f *fakeSubscriptions) GetByUserID(_ context.Context, userID string) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byUser[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSubscriptions) UpgradeToPremium(ctx context.Context, userID string, txID *string) (*models.Subscription, error) {
	if f.upgradeErr != nil {
		return nil, f.upgradeErr
	}
	f.set(userID, models.PlanPremium, models.StatusActive)
	f.mu.Lock()
	f.byUser[userID].AppleTransactionID = txID
	f.mu.Unlock()
	return f.GetByUserID(ctx, userID)
}

func (f *fakeSubscriptions) List(_ context.Context) ([]*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Subscription, 0, len(f.byUser))
	for _, s := range f.byUser {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeSubscriptions) CountPremiumActive(ctx context.Context) (int, error) {
	l, _ := f.List(ctx)
	n := 0
	for _, s := range l {
		if s.PlanType == models.PlanPremium && s.Status == models.StatusActive {
			n++
		}
	}
	return n, nil
}

// --- refresh tokens ---

type fakeRefreshRepo struct {
	findOut   *models.RefreshToken
	findErr   error
	delErr    error
	createErr error
	created   []string
}

func (f *fakeRefreshRepo) Create(_ context.Context, userID string, token string, _ time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, userID+":"+token)
	return nil
}

func (f *fakeRefreshRepo) Find(_ context.Context, _ string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeRefreshRepo) Delete(_ context.Context, _ string) error { return f.delErr }

// --- manager ---

type fakeRepoManager struct {
	profiles *fakeProfiles
	sections *fakeSections
	cache    *fakeAudioCache
	subs     *fakeSubscriptions
	refresh  *fakeRefreshRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		profiles: newFakeProfiles(),
		sections: newFakeSections(),
		cache:    &fakeAudioCache{},
		subs:     newFakeSubscriptions(),
		refresh:  &fakeRefreshRepo{},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Profiles(dbx.DBTX) profiles.Repository { return m.profiles }
func (m *fakeRepoManager) Sections(dbx.DBTX) sections.Repository { return m.sections }
func (m *fakeRepoManager) AudioCache(dbx.DBTX) audiocache.Repository { return m.cache }
func (m *fakeRepoManager) Subscriptions(dbx.DBTX) subscriptions.Repository { return m.subs }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.refresh }

// --- authorization ---

type fakeAuthz struct {
	admins map[string]bool
	subs   map[string]*models.Subscription
	err    error
	reads  int
}

func newFakeAuthz() *fakeAuthz {
	return &fakeAuthz{admins: map[string]bool{}, subs: map[string]*models.Subscription{}}
}

func (a *fakeAuthz) premium(userID string) {
	a.subs[userID] = &models.Subscription{UserID: userID, PlanType: models.PlanPremium, Status: models.StatusActive}
}

func (a *fakeAuthz) IsAdmin(_ context.Context, userID string) (bool, error) {
	if a.err != nil {
		return false, a.err
	}
	return a.admins[userID], nil
}

func (a *fakeAuthz) GetSubscription(_ context.Context, userID string) (*models.Subscription, error) {
	a.reads++
	if a.err != nil {
		return nil, a.err
	}
	return a.subs[userID], nil
}
