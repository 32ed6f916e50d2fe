package directory

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"interviewsched/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu               sync.Mutex
	interviewers     map[int64]*models.Interviewer
	candidates       map[int64]*models.Candidate
	interviewerReads int
	candidateReads   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		interviewers: make(map[int64]*models.Interviewer),
		candidates:   make(map[int64]*models.Candidate),
	}
}

func (m *memoryStore) CreateInterviewer(ctx context.Context, iv *models.Interviewer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	iv.ID = int64(len(m.interviewers) + 1)
	cp := *iv
	m.interviewers[iv.ID] = &cp
	return nil
}

func (m *memoryStore) GetInterviewer(ctx context.Context, id int64) (*models.Interviewer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interviewerReads++
	iv, ok := m.interviewers[id]
	if !ok {
		return nil, fmt.Errorf("%w: interviewer %d", models.ErrNotFound, id)
	}
	cp := *iv
	return &cp, nil
}

func (m *memoryStore) ListInterviewers(ctx context.Context) ([]models.Interviewer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Interviewer
	for _, iv := range m.interviewers {
		out = append(out, *iv)
	}
	return out, nil
}

func (m *memoryStore) UpdateMaxInterviewsPerWeek(ctx context.Context, id int64, maxPerWeek int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	iv, ok := m.interviewers[id]
	if !ok {
		return models.ErrNotFound
	}
	iv.MaxInterviewsPerWeek = maxPerWeek
	return nil
}

func (m *memoryStore) ReplaceAvailabilities(ctx context.Context, interviewerID int64, windows []models.Availability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	iv, ok := m.interviewers[interviewerID]
	if !ok {
		return models.ErrNotFound
	}
	iv.Availabilities = append([]models.Availability(nil), windows...)
	return nil
}

func (m *memoryStore) CreateCandidate(ctx context.Context, c *models.Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = int64(len(m.candidates) + 1)
	cp := *c
	m.candidates[c.ID] = &cp
	return nil
}

func (m *memoryStore) GetCandidate(ctx context.Context, id int64) (*models.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidateReads++
	c, ok := m.candidates[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memoryStore) CandidateExists(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidateReads++
	_, ok := m.candidates[id]
	return ok, nil
}

func newCached(t *testing.T) (*Cached, *memoryStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := zerolog.New(io.Discard)
	store := newMemoryStore()
	return New(store, rdb, time.Minute, &logger), store, mr
}

func seedInterviewer(t *testing.T, c *Cached) *models.Interviewer {
	t.Helper()
	iv := &models.Interviewer{
		Name:                 "Grace",
		Email:                "grace@example.com",
		MaxInterviewsPerWeek: 3,
		Availabilities: []models.Availability{
			{DayOfWeek: time.Monday, StartTime: "09:00", EndTime: "12:00"},
		},
	}
	require.NoError(t, c.CreateInterviewer(context.Background(), iv))
	return iv
}

func TestCached_InterviewerReadThrough(t *testing.T) {
	ctx := context.Background()
	c, store, mr := newCached(t)
	iv := seedInterviewer(t, c)

	first, err := c.GetInterviewer(ctx, iv.ID)
	require.NoError(t, err)
	second, err := c.GetInterviewer(ctx, iv.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, store.interviewerReads, "second read should hit the cache")
	assert.Equal(t, first.MaxInterviewsPerWeek, second.MaxInterviewsPerWeek)
	require.Len(t, second.Availabilities, 1)
	assert.Equal(t, time.Monday, second.Availabilities[0].DayOfWeek)
	assert.True(t, mr.Exists(interviewerKey(iv.ID)))

	t.Run("ttl expiry", func(t *testing.T) {
		mr.FastForward(2 * time.Minute)
		_, err := c.GetInterviewer(ctx, iv.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, store.interviewerReads)
	})
}

func TestCached_Invalidation(t *testing.T) {
	ctx := context.Background()
	c, store, mr := newCached(t)
	iv := seedInterviewer(t, c)

	_, err := c.GetInterviewer(ctx, iv.ID)
	require.NoError(t, err)

	require.NoError(t, c.UpdateMaxInterviewsPerWeek(ctx, iv.ID, 7))
	assert.False(t, mr.Exists(interviewerKey(iv.ID)))

	got, err := c.GetInterviewer(ctx, iv.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.MaxInterviewsPerWeek)
	assert.Equal(t, 2, store.interviewerReads)

	err = c.ReplaceAvailabilities(ctx, iv.ID, []models.Availability{
		{DayOfWeek: time.Friday, StartTime: "13:00", EndTime: "15:00"},
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(interviewerKey(iv.ID)))

	got, err = c.GetInterviewer(ctx, iv.ID)
	require.NoError(t, err)
	require.Len(t, got.Availabilities, 1)
	assert.Equal(t, time.Friday, got.Availabilities[0].DayOfWeek)
}

func TestCached_CandidateExists(t *testing.T) {
	ctx := context.Background()
	c, store, _ := newCached(t)

	cand := &models.Candidate{Name: "Linus", Email: "linus@example.com"}
	require.NoError(t, c.CreateCandidate(ctx, cand))

	ok, err := c.CandidateExists(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.GetCandidate(ctx, cand.ID)
	require.NoError(t, err)
	reads := store.candidateReads

	ok, err = c.CandidateExists(ctx, cand.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, reads, store.candidateReads, "cached candidate should not reach the store")
}

func TestCached_Validation(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newCached(t)
	iv := seedInterviewer(t, c)

	tests := []struct {
		name string
		run  func() error
	}{
		{"empty name", func() error {
			return c.CreateInterviewer(ctx, &models.Interviewer{Email: "x@example.com", MaxInterviewsPerWeek: 1})
		}},
		{"bad email", func() error {
			return c.CreateInterviewer(ctx, &models.Interviewer{Name: "X", Email: "nope", MaxInterviewsPerWeek: 1})
		}},
		{"zero max", func() error {
			return c.CreateInterviewer(ctx, &models.Interviewer{Name: "X", Email: "x@example.com"})
		}},
		{"overlapping windows", func() error {
			return c.ReplaceAvailabilities(ctx, iv.ID, []models.Availability{
				{DayOfWeek: time.Monday, StartTime: "09:00", EndTime: "12:00"},
				{DayOfWeek: time.Monday, StartTime: "11:00", EndTime: "13:00"},
			})
		}},
		{"max below one", func() error { return c.UpdateMaxInterviewsPerWeek(ctx, iv.ID, 0) }},
		{"candidate without email", func() error { return c.CreateCandidate(ctx, &models.Candidate{Name: "C"}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), models.ErrInvalid)
		})
	}
}

func TestCached_WithoutRedis(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)
	store := newMemoryStore()
	c := New(store, nil, time.Minute, &logger)
	iv := seedInterviewer(t, c)

	for i := 0; i < 3; i++ {
		_, err := c.GetInterviewer(ctx, iv.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, store.interviewerReads)

	_, err := c.GetInterviewer(ctx, 99)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
