package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"interviewsched/internal/models"
	"interviewsched/internal/slots"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Store is the persistent directory of interviewers and candidates.
type Store interface {
	CreateInterviewer(ctx context.Context, iv *models.Interviewer) error
	GetInterviewer(ctx context.Context, id int64) (*models.Interviewer, error)
	ListInterviewers(ctx context.Context) ([]models.Interviewer, error)
	UpdateMaxInterviewsPerWeek(ctx context.Context, id int64, maxPerWeek int) error
	ReplaceAvailabilities(ctx context.Context, interviewerID int64, windows []models.Availability) error
	CreateCandidate(ctx context.Context, c *models.Candidate) error
	GetCandidate(ctx context.Context, id int64) (*models.Candidate, error)
	CandidateExists(ctx context.Context, id int64) (bool, error)
}

// Cached validates directory writes and serves interviewer and candidate
// lookups through an optional Redis read-through cache.
type Cached struct {
	store    Store
	redis    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// New wraps store. A nil client or non-positive ttl disables caching.
func New(store Store, rdb *redis.Client, ttl time.Duration, logger *zerolog.Logger) *Cached {
	return &Cached{
		store:    store,
		redis:    rdb,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "directory").Logger(),
	}
}

func interviewerKey(id int64) string { return fmt.Sprintf("interviewer:%d", id) }
func candidateKey(id int64) string   { return fmt.Sprintf("candidate:%d", id) }

// CreateInterviewer validates and stores a new interviewer with its weekly windows.
func (c *Cached) CreateInterviewer(ctx context.Context, iv *models.Interviewer) error {
	iv.Name = strings.TrimSpace(iv.Name)
	iv.Email = strings.TrimSpace(iv.Email)
	switch {
	case iv.Name == "":
		return fmt.Errorf("%w: name is required", models.ErrInvalid)
	case !strings.Contains(iv.Email, "@"):
		return fmt.Errorf("%w: a valid email is required", models.ErrInvalid)
	case iv.MaxInterviewsPerWeek < 1:
		return fmt.Errorf("%w: max interviews per week must be at least 1", models.ErrInvalid)
	case iv.SlotDurationMinutes < 0 || iv.SlotDurationMinutes > 24*60:
		return fmt.Errorf("%w: slot duration must not exceed 1440 minutes", models.ErrInvalid)
	}
	for i := range iv.Availabilities {
		iv.Availabilities[i].Active = true
	}
	if err := slots.ValidateWindows(iv.Availabilities); err != nil {
		return err
	}
	return c.store.CreateInterviewer(ctx, iv)
}

// GetInterviewer returns the interviewer with its active availability.
func (c *Cached) GetInterviewer(ctx context.Context, id int64) (*models.Interviewer, error) {
	var iv models.Interviewer
	if c.readCache(ctx, interviewerKey(id), &iv) {
		return &iv, nil
	}

	found, err := c.store.GetInterviewer(ctx, id)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, interviewerKey(id), found)
	return found, nil
}

func (c *Cached) ListInterviewers(ctx context.Context) ([]models.Interviewer, error) {
	return c.store.ListInterviewers(ctx)
}

// UpdateMaxInterviewsPerWeek changes the weekly cap and drops the cached interviewer.
func (c *Cached) UpdateMaxInterviewsPerWeek(ctx context.Context, id int64, maxPerWeek int) error {
	if maxPerWeek < 1 {
		return fmt.Errorf("%w: max interviews per week must be at least 1", models.ErrInvalid)
	}
	if err := c.store.UpdateMaxInterviewsPerWeek(ctx, id, maxPerWeek); err != nil {
		return err
	}
	c.invalidate(ctx, interviewerKey(id))
	return nil
}

// ReplaceAvailabilities deactivates the interviewer's current windows and stores new ones.
func (c *Cached) ReplaceAvailabilities(ctx context.Context, interviewerID int64, windows []models.Availability) error {
	for i := range windows {
		windows[i].InterviewerID = interviewerID
		windows[i].Active = true
	}
	if err := slots.ValidateWindows(windows); err != nil {
		return err
	}
	if err := c.store.ReplaceAvailabilities(ctx, interviewerID, windows); err != nil {
		return err
	}
	c.invalidate(ctx, interviewerKey(interviewerID))
	return nil
}

func (c *Cached) CreateCandidate(ctx context.Context, cand *models.Candidate) error {
	cand.Name = strings.TrimSpace(cand.Name)
	cand.Email = strings.TrimSpace(cand.Email)
	if cand.Name == "" {
		return fmt.Errorf("%w: name is required", models.ErrInvalid)
	}
	if !strings.Contains(cand.Email, "@") {
		return fmt.Errorf("%w: a valid email is required", models.ErrInvalid)
	}
	return c.store.CreateCandidate(ctx, cand)
}

// GetCandidate returns a candidate by id.
func (c *Cached) GetCandidate(ctx context.Context, id int64) (*models.Candidate, error) {
	var cand models.Candidate
	if c.readCache(ctx, candidateKey(id), &cand) {
		return &cand, nil
	}

	found, err := c.store.GetCandidate(ctx, id)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, candidateKey(id), found)
	return found, nil
}

// CandidateExists reports whether the candidate exists. Only hits are cached;
// candidates are never deleted.
func (c *Cached) CandidateExists(ctx context.Context, id int64) (bool, error) {
	var cand models.Candidate
	if c.readCache(ctx, candidateKey(id), &cand) {
		return true, nil
	}
	return c.store.CandidateExists(ctx, id)
}

func (c *Cached) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Cached) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Cached) invalidate(ctx context.Context, key string) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, key).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache invalidation failed")
	}
}
