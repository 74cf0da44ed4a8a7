package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/readback/readback/internal/common"
	"github.com/readback/readback/internal/logging"
	"github.com/readback/readback/internal/server/auth"
	"github.com/readback/readback/internal/server/models"
	"github.com/readback/readback/internal/server/policy"
	"github.com/readback/readback/internal/server/services"
	"github.com/readback/readback/internal/server/speech"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// ---- stubs ----

type stubUsers struct {
	register func(email, password string, displayName *string) (*models.Profile, error)
	login    func(email, password string) (*services.TokenPair, error)
	refresh  func(token string) (*services.TokenPair, error)
}

func (s stubUsers) Register(_ context.Context, email, password string, displayName *string) (*models.Profile, error) {
	return s.register(email, password, displayName)
}

func (s stubUsers) Login(_ context.Context, email, password string) (*services.TokenPair, error) {
	return s.login(email, password)
}

func (s stubUsers) RefreshToken(_ context.Context, token string) (*services.TokenPair, error) {
	return s.refresh(token)
}

type stubSections struct {
	sections map[string]*models.Section
	limitHit bool
}

func (s *stubSections) List(_ context.Context, userID string) (*services.SectionList, error) {
	var out []*models.Section
	for _, sec := range s.sections {
		if sec.UserID == userID {
			out = append(out, sec)
		}
	}
	return &services.SectionList{Sections: out, Count: len(out), Limit: policy.FreeSectionLimit, CanCreate: !s.limitHit}, nil
}

func (s *stubSections) Get(_ context.Context, userID, id string) (*models.Section, error) {
	sec, ok := s.sections[id]
	if !ok || sec.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return sec, nil
}

func (s *stubSections) Create(_ context.Context, userID, title, content string) (*models.Section, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", common.ErrValidation)
	}
	if s.limitHit {
		return nil, common.ErrSectionLimit
	}
	sec := &models.Section{ID: fmt.Sprintf("sec-%d", len(s.sections)+1), UserID: userID, Title: title, Content: content}
	s.sections[sec.ID] = sec
	return sec, nil
}

func (s *stubSections) Update(ctx context.Context, userID, id, title, content string) (*models.Section, error) {
	sec, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	sec.Title, sec.Content = title, content
	return sec, nil
}

func (s *stubSections) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	delete(s.sections, id)
	return nil
}

type stubSubscriptions struct {
	sub        *models.Subscription
	upgradeErr error
	receipts   []string
}

func (s *stubSubscriptions) Get(context.Context, string) (*models.Subscription, error) {
	return s.sub, nil
}

func (s *stubSubscriptions) Upgrade(_ context.Context, userID, receipt string) (*models.Subscription, error) {
	if s.upgradeErr != nil {
		return nil, s.upgradeErr
	}
	s.receipts = append(s.receipts, receipt)
	s.sub = &models.Subscription{UserID: userID, PlanType: models.PlanPremium, Status: models.StatusActive}
	return s.sub, nil
}

func (s *stubSubscriptions) Voices(context.Context, string) ([]models.Voice, bool, error) {
	return policy.AvailableVoices(s.sub), policy.IsPremium(s.sub), nil
}

type stubSynthesis struct {
	res     *services.SynthesisResult
	err     error
	gotUser string
	gotReq  services.SynthesisRequest
}

func (s *stubSynthesis) SynthesizeFor(_ context.Context, userID string, req services.SynthesisRequest) (*services.SynthesisResult, error) {
	s.gotUser, s.gotReq = userID, req
	return s.res, s.err
}

type stubAdmin struct {
	admins map[string]bool
}

func (s stubAdmin) Dashboard(_ context.Context, userID string) (*services.Dashboard, error) {
	if !s.admins[userID] {
		return nil, common.ErrForbidden
	}
	return &services.Dashboard{
		TotalUsers:     2,
		PremiumUsers:   1,
		ConversionRate: "50.0",
		RecentSections: []services.RecentSection{{ID: "s1", Title: "t", Preview: "p"}},
		Users:          []services.UserSummary{{ID: userID, Email: "a@example.com", IsAdmin: true, PlanType: models.PlanFree, Status: models.StatusActive}},
	}, nil
}

type stubAudio map[string][]byte

func (s stubAudio) Open(_ context.Context, key string) (io.ReadCloser, error) {
	b, ok := s[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

// ---- helpers ----

func newTestServer(svc Services) *Server {
	return NewServer(":0", logging.Nop(), testSecret, svc)
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	tok, err := auth.GenerateToken(userID, []byte(testSecret), time.Minute)
	require.NoError(t, err)
	return "Bearer " + tok
}

func do(t *testing.T, s *Server, method, path string, body any, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authHeader != "" {
		req.Header.Set(common.AuthorizationHeaderName, authHeader)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	return decode[map[string]string](t, w)["error"]
}

// ---- tests ----

func TestHealthz(t *testing.T) {
	w := do(t, newTestServer(Services{}), http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAuthRequired(t *testing.T) {
	syn := &stubSynthesis{res: &services.SynthesisResult{AudioURL: "data:x", Cached: true}}
	s := newTestServer(Services{Synthesis: syn})
	body := ttsRequest{SectionID: "s1", VoiceID: "alloy", Content: "hi"}

	expired, err := auth.GenerateToken("u1", []byte(testSecret), -time.Minute)
	require.NoError(t, err)
	foreign, err := auth.GenerateToken("u1", []byte("other-secret"), time.Minute)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":      "",
		"wrong scheme": "Basic dXNlcjpwYXNz",
		"empty token":  "Bearer ",
		"garbage":      "Bearer not-a-jwt",
		"expired":      "Bearer " + expired,
		"wrong secret": "Bearer " + foreign,
	} {
		t.Run(name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/api/tts", body, header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "Unauthorized", errorOf(t, w))
		})
	}

	w := do(t, s, http.MethodPost, "/api/tts", body, bearer(t, "u1"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", syn.gotUser)
}

func TestSynthesize(t *testing.T) {
	syn := &stubSynthesis{res: &services.SynthesisResult{AudioURL: "data:audio/mpeg;base64,AAAA", Cached: false}}
	s := newTestServer(Services{Synthesis: syn})

	w := do(t, s, http.MethodPost, "/api/tts", ttsRequest{SectionID: "s1", VoiceID: "alloy", Content: "The quick brown fox"}, bearer(t, "u1"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"audioUrl":"data:audio/mpeg;base64,AAAA","cached":false}`, w.Body.String())
	assert.Equal(t, services.SynthesisRequest{SectionID: "s1", VoiceID: "alloy", Content: "The quick brown fox"}, syn.gotReq)

	w = do(t, s, http.MethodPost, "/api/tts", "{not json", bearer(t, "u1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSynthesize_ErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", fmt.Errorf("%w: sectionId is required", common.ErrValidation), http.StatusBadRequest, "sectionId is required"},
		{"voice gating", common.ErrVoiceNotAvailable, http.StatusForbidden, "voice not available"},
		{"configuration", fmt.Errorf("%w: OPENAI_API_KEY is not set", common.ErrConfiguration), http.StatusInternalServerError, "OPENAI_API_KEY"},
		{"upstream", &speech.Error{StatusCode: 429, Body: "rate limited"}, http.StatusInternalServerError, "429: rate limited"},
		{"other", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(Services{Synthesis: &stubSynthesis{err: tc.err}})
			w := do(t, s, http.MethodPost, "/api/tts", ttsRequest{SectionID: "s1", VoiceID: "alloy", Content: "x"}, bearer(t, "u1"))
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, errorOf(t, w), tc.message)
		})
	}
}

func TestSections(t *testing.T) {
	store := &stubSections{sections: map[string]*models.Section{}}
	s := newTestServer(Services{Sections: store})
	u1, u2 := bearer(t, "u1"), bearer(t, "u2")

	w := do(t, s, http.MethodGet, "/api/sections", nil, u1)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sections":[],"count":0,"limit":10,"canCreate":true}`, w.Body.String())

	w = do(t, s, http.MethodPost, "/api/sections", sectionRequest{Title: "Intro", Content: "Hello"}, u1)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[sectionResponse](t, w)
	assert.Equal(t, "Intro", created.Title)
	assert.Equal(t, "u1", created.UserID)

	w = do(t, s, http.MethodPost, "/api/sections", sectionRequest{Content: "no title"}, u1)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/api/sections/"+created.ID, nil, u2)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodPut, "/api/sections/"+created.ID, sectionRequest{Title: "Intro 2", Content: "Hello again"}, u1)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Intro 2", decode[sectionResponse](t, w).Title)

	w = do(t, s, http.MethodDelete, "/api/sections/"+created.ID, nil, u2)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, s, http.MethodDelete, "/api/sections/"+created.ID, nil, u1)
	assert.Equal(t, http.StatusNoContent, w.Code)

	store.limitHit = true
	w = do(t, s, http.MethodPost, "/api/sections", sectionRequest{Title: "Eleventh"}, u1)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, common.ErrSectionLimit.Error(), errorOf(t, w))
}

func TestAuthEndpoints(t *testing.T) {
	users := stubUsers{
		register: func(email, _ string, name *string) (*models.Profile, error) {
			if email == "taken@example.com" {
				return nil, common.ErrEmailAlreadyExists
			}
			return &models.Profile{ID: "u1", Email: email, DisplayName: name}, nil
		},
		login: func(email, password string) (*services.TokenPair, error) {
			if password != "secret1" {
				return nil, common.ErrorUnauthorized
			}
			return &services.TokenPair{AccessToken: "a", RefreshToken: "r"}, nil
		},
		refresh: func(token string) (*services.TokenPair, error) {
			switch token {
			case "expired":
				return nil, common.ErrRefreshTokenExpired
			case "unknown":
				return nil, fmt.Errorf("error searching refresh token: %w", common.ErrorNotFound)
			}
			return &services.TokenPair{AccessToken: "a2", RefreshToken: "r2"}, nil
		},
	}
	s := newTestServer(Services{Users: users})

	w := do(t, s, http.MethodPost, "/api/auth/register", registerRequest{Email: "ada@example.com", Password: "secret1"}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "ada@example.com", decode[profileResponse](t, w).Email)

	w = do(t, s, http.MethodPost, "/api/auth/register", registerRequest{Email: "taken@example.com", Password: "secret1"}, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, s, http.MethodPost, "/api/auth/login", loginRequest{Email: "ada@example.com", Password: "secret1"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"accessToken":"a","refreshToken":"r"}`, w.Body.String())

	w = do(t, s, http.MethodPost, "/api/auth/login", loginRequest{Email: "ada@example.com", Password: "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, s, http.MethodPost, "/api/auth/refresh", refreshRequest{RefreshToken: "good"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "r2", decode[tokenResponse](t, w).RefreshToken)

	for _, tok := range []string{"expired", "unknown"} {
		w = do(t, s, http.MethodPost, "/api/auth/refresh", refreshRequest{RefreshToken: tok}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, tok)
	}

	w = do(t, s, http.MethodPost, "/api/auth/refresh", refreshRequest{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscriptionEndpoints(t *testing.T) {
	subs := &stubSubscriptions{sub: &models.Subscription{UserID: "u1", PlanType: models.PlanFree, Status: models.StatusActive}}
	s := newTestServer(Services{Subscriptions: subs})
	u1 := bearer(t, "u1")

	w := do(t, s, http.MethodGet, "/api/voices", nil, u1)
	require.Equal(t, http.StatusOK, w.Code)
	v := decode[voicesResponse](t, w)
	assert.False(t, v.IsPremium)
	assert.Len(t, v.Voices, 4)

	w = do(t, s, http.MethodGet, "/api/subscription", nil, u1)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subscription":{"status":"active","planType":"free"},"isPremium":false}`, w.Body.String())

	w = do(t, s, http.MethodPost, "/api/subscription/upgrade", nil, u1)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"Upgraded to Premium successfully"}`, w.Body.String())

	w = do(t, s, http.MethodPost, "/api/subscription/upgrade", upgradeRequest{Receipt: "r-1"}, u1)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"", "r-1"}, subs.receipts)

	w = do(t, s, http.MethodGet, "/api/voices", nil, u1)
	assert.Len(t, decode[voicesResponse](t, w).Voices, 6)

	subs.upgradeErr = fmt.Errorf("%w: receipt rejected", common.ErrForbidden)
	w = do(t, s, http.MethodPost, "/api/subscription/upgrade", upgradeRequest{Receipt: "forged"}, u1)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDashboard(t *testing.T) {
	s := newTestServer(Services{Admin: stubAdmin{admins: map[string]bool{"boss": true}}})

	w := do(t, s, http.MethodGet, "/api/admin/dashboard", nil, bearer(t, "u1"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, s, http.MethodGet, "/api/admin/dashboard", nil, bearer(t, "boss"))
	require.Equal(t, http.StatusOK, w.Code)
	d := decode[dashboardResponse](t, w)
	assert.Equal(t, 2, d.TotalUsers)
	assert.Equal(t, "50.0", d.ConversionRate)
	require.Len(t, d.Users, 1)
	assert.Equal(t, models.PlanFree, d.Users[0].PlanType)
	require.Len(t, d.RecentSections, 1)
	assert.Equal(t, "p", d.RecentSections[0].Preview)
}

func TestAudio(t *testing.T) {
	w := do(t, newTestServer(Services{}), http.MethodGet, "/api/audio/audio/alloy/abc.mp3", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	s := newTestServer(Services{Audio: stubAudio{"audio/alloy/abc.mp3": []byte("ID3")}})

	w = do(t, s, http.MethodGet, "/api/audio/audio/alloy/abc.mp3", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, common.AudioContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, "ID3", w.Body.String())

	w = do(t, s, http.MethodGet, "/api/audio/audio/alloy/missing.mp3", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: x", common.ErrValidation), http.StatusBadRequest},
		{common.ErrorUnauthorized, http.StatusUnauthorized},
		{common.ErrInvalidToken, http.StatusUnauthorized},
		{common.ErrTokenExpired, http.StatusUnauthorized},
		{common.ErrForbidden, http.StatusForbidden},
		{common.ErrSectionLimit, http.StatusForbidden},
		{common.ErrVoiceNotAvailable, http.StatusForbidden},
		{common.ErrorNotFound, http.StatusNotFound},
		{common.ErrEmailAlreadyExists, http.StatusConflict},
		{common.ErrConfiguration, http.StatusInternalServerError},
		{common.ErrSynthesis, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status, _ := statusFor(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
	}
	_, msg := statusFor(errors.New("secret detail"))
	assert.Equal(t, "internal error", msg)
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := NewServer("127.0.0.1:0", logging.Nop(), testSecret, Services{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * shutdownTimeout):
		t.Fatal("server did not stop")
	}
}
