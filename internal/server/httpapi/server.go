// Package httpapi exposes the ReadBack services over HTTP with JSON bodies.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/readback/readback/internal/logging"
	"github.com/readback/readback/internal/server/models"
	"github.com/readback/readback/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

type UserService interface {
	Register(ctx context.Context, email, password string, displayName *string) (*models.Profile, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

type SectionService interface {
	List(ctx context.Context, userID string) (*services.SectionList, error)
	Get(ctx context.Context, userID, id string) (*models.Section, error)
	Create(ctx context.Context, userID, title, content string) (*models.Section, error)
	Update(ctx context.Context, userID, id, title, content string) (*models.Section, error)
	Delete(ctx context.Context, userID, id string) error
}

type SubscriptionService interface {
	Get(ctx context.Context, userID string) (*models.Subscription, error)
	Upgrade(ctx context.Context, userID, receipt string) (*models.Subscription, error)
	Voices(ctx context.Context, userID string) ([]models.Voice, bool, error)
}

type SynthesisService interface {
	SynthesizeFor(ctx context.Context, userID string, req services.SynthesisRequest) (*services.SynthesisResult, error)
}

type AdminService interface {
	Dashboard(ctx context.Context, userID string) (*services.Dashboard, error)
}

// AudioSource streams stored audio by object key. Only stores that cannot
// hand out their own URLs need one.
type AudioSource interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Services bundles what the handlers call. Audio may be nil, in which case
// the audio route is not mounted.
type Services struct {
	Users         UserService
	Sections      SectionService
	Subscriptions SubscriptionService
	Synthesis     SynthesisService
	Admin         AdminService
	Audio         AudioSource
}

type Server struct {
	address   string
	logger    logging.Logger
	jwtSecret []byte
	svc       Services
	engine    *gin.Engine
}

func NewServer(address string, l logging.Logger, secretKey string, svc Services) *Server {
	s := &Server{
		address:   address,
		logger:    l.With("module", "http_server"),
		jwtSecret: []byte(secretKey),
		svc:       svc,
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", s.register)
	authGroup.POST("/login", s.login)
	authGroup.POST("/refresh", s.refresh)

	if s.svc.Audio != nil {
		api.GET("/audio/*key", s.audio)
	}

	private := api.Group("", s.authRequired())
	private.GET("/sections", s.listSections)
	private.POST("/sections", s.createSection)
	private.GET("/sections/:id", s.getSection)
	private.PUT("/sections/:id", s.updateSection)
	private.DELETE("/sections/:id", s.deleteSection)
	private.POST("/tts", s.synthesize)
	private.GET("/voices", s.voices)
	private.GET("/subscription", s.subscription)
	private.POST("/subscription/upgrade", s.upgrade)
	private.GET("/admin/dashboard", s.dashboard)

	return r
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
