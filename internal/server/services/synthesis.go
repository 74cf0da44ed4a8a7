package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/readback/readback/internal/common"
	"github.com/readback/readback/internal/cryptox"
	"github.com/readback/readback/internal/logging"
	"github.com/readback/readback/internal/server/audiostore"
	"github.com/readback/readback/internal/server/models"
	"github.com/readback/readback/internal/server/policy"
	"github.com/readback/readback/internal/server/repositories/repomanager"
)

// Gateway renders text to audio.
type Gateway interface {
	Speak(ctx context.Context, voice, text string) ([]byte, error)
	Configured() bool
}

type SynthesisRequest struct {
	SectionID string
	VoiceID   string
	Content   string
}

type SynthesisResult struct {
	AudioURL string
	Cached   bool
}

// SynthesisOptions bounds the two outbound round trips.
type SynthesisOptions struct {
	StoreTimeout     time.Duration
	SynthesisTimeout time.Duration
}

// SynthesisService renders sections to speech through a content-addressed
// cache. Cache entries are keyed by (section, voice, fingerprint of the text),
// so a hit never reaches the gateway and an edit to the section text misses.
type SynthesisService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	gateway      Gateway
	store        audiostore.Store
	authz        AuthorizationProvider
	log          logging.Logger
	storeTimeout time.Duration
	synthTimeout time.Duration
}

func NewSynthesisService(db *sql.DB, m repomanager.RepositoryManager, gateway Gateway, store audiostore.Store,
	authz AuthorizationProvider, log logging.Logger, opts SynthesisOptions) *SynthesisService {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}
	if opts.SynthesisTimeout <= 0 {
		opts.SynthesisTimeout = 30 * time.Second
	}
	return &SynthesisService{
		db:           db,
		repomanager:  m,
		gateway:      gateway,
		store:        store,
		authz:        authz,
		log:          log.With("module", "synthesis"),
		storeTimeout: opts.StoreTimeout,
		synthTimeout: opts.SynthesisTimeout,
	}
}

func validateRequest(req SynthesisRequest) error {
	switch {
	case req.SectionID == "":
		return fmt.Errorf("%w: sectionId is required", common.ErrValidation)
	case req.VoiceID == "":
		return fmt.Errorf("%w: voiceId is required", common.ErrValidation)
	case req.Content == "":
		return fmt.Errorf("%w: content is required", common.ErrValidation)
	}
	return nil
}

// SynthesizeFor checks that userID may use the requested voice and then
// renders the request. Unknown voices are validation errors; premium voices on
// a free plan yield common.ErrVoiceNotAvailable.
func (s *SynthesisService) SynthesizeFor(ctx context.Context, userID string, req SynthesisRequest) (*SynthesisResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if _, ok := policy.LookupVoice(req.VoiceID); !ok {
		return nil, fmt.Errorf("%w: unknown voice %q", common.ErrValidation, req.VoiceID)
	}
	if !s.gateway.Configured() {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", common.ErrConfiguration)
	}

	sub, err := s.authz.GetSubscription(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error reading subscription: %w", err)
	}
	if !policy.VoiceAllowed(sub, req.VoiceID) {
		return nil, common.ErrVoiceNotAvailable
	}

	return s.Synthesize(ctx, req)
}

// Synthesize returns audio for req, from the cache when possible.
//
// Validation and configuration failures happen before any I/O. A failed cache
// read counts as a miss. Gateway failures abort without persisting anything.
// A failed cache write is logged and the fresh audio is still returned.
func (s *SynthesisService) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if !s.gateway.Configured() {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", common.ErrConfiguration)
	}

	fingerprint := cryptox.Fingerprint(req.Content)
	log := s.log.With("section_id", req.SectionID, "voice", req.VoiceID, "hash", fingerprint)

	if entry := s.lookup(ctx, log, req, fingerprint); entry != nil {
		url, err := s.store.URL(ctx, entry.AudioURL)
		if err != nil {
			return nil, fmt.Errorf("resolve cached audio reference: %w", err)
		}
		log.Debug(ctx, "audio cache hit")
		return &SynthesisResult{AudioURL: url, Cached: true}, nil
	}

	audio, err := s.speak(ctx, req)
	if err != nil {
		log.Error(ctx, "speech synthesis failed", "error", err)
		return nil, err
	}

	ref := s.save(ctx, log, audiostore.Key(req.VoiceID, fingerprint), audio)
	s.insert(ctx, log, &models.AudioCacheEntry{
		SectionID:   req.SectionID,
		VoiceID:     req.VoiceID,
		ContentHash: fingerprint,
		AudioURL:    ref,
	})

	url, err := s.store.URL(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("resolve audio reference: %w", err)
	}
	log.Info(ctx, "audio synthesized", "bytes", len(audio))
	return &SynthesisResult{AudioURL: url, Cached: false}, nil
}

func (s *SynthesisService) lookup(ctx context.Context, log logging.Logger, req SynthesisRequest, fingerprint string) *models.AudioCacheEntry {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	entry, err := s.repomanager.AudioCache(s.db).Find(ctx, req.SectionID, req.VoiceID, fingerprint)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			log.Warn(ctx, "audio cache read failed, treating as miss", "error", err)
		}
		return nil
	}
	return entry
}

func (s *SynthesisService) speak(ctx context.Context, req SynthesisRequest) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.synthTimeout)
	defer cancel()

	audio, err := s.gateway.Speak(ctx, req.VoiceID, req.Content)
	if err != nil {
		if errors.Is(err, common.ErrSynthesis) || errors.Is(err, common.ErrConfiguration) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", common.ErrSynthesis, err)
	}
	return audio, nil
}

// save stores audio in the configured store, falling back to an inline
// data URI when the store is unavailable.
func (s *SynthesisService) save(ctx context.Context, log logging.Logger, key string, audio []byte) string {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	ref, err := s.store.Save(ctx, key, audio)
	if err == nil {
		return ref
	}

	log.Warn(ctx, "audio store failed, falling back to inline audio", "error", err)
	ref, _ = audiostore.Inline{}.Save(ctx, key, audio)
	return ref
}

func (s *SynthesisService) insert(ctx context.Context, log logging.Logger, entry *models.AudioCacheEntry) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if _, err := s.repomanager.AudioCache(s.db).Insert(ctx, entry); err != nil {
		log.Error(ctx, "audio cache write failed", "error", err)
	}
}
