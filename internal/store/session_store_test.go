package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-tutorchat-be/internal/apperror"
	"ai-tutorchat-be/internal/entity"
	"ai-tutorchat-be/internal/pkg/logger"
	"ai-tutorchat-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessionRepo struct {
	sessions map[uuid.UUID]*entity.LearningSession
	err      error

	createCalls int
	updateCalls int
	findCalls   int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]*entity.LearningSession)}
}

func (f *fakeSessionRepo) Create(ctx context.Context, s *entity.LearningSession) error {
	f.createCalls++
	if f.err != nil {
		return f.err
	}
	f.sessions[s.Id] = s.Clone()
	return nil
}

func (f *fakeSessionRepo) Update(ctx context.Context, s *entity.LearningSession) error {
	f.updateCalls++
	if f.err != nil {
		return f.err
	}
	f.sessions[s.Id] = s.Clone()
	return nil
}

func (f *fakeSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.LearningSession, error) {
	f.findCalls++
	if f.err != nil {
		return nil, f.err
	}
	for _, spec := range specs {
		if byId, ok := spec.(specification.ByID); ok {
			if s, found := f.sessions[byId.ID]; found {
				return s.Clone(), nil
			}
		}
	}
	return nil, nil
}

func (f *fakeSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.LearningSession, error) {
	return nil, nil
}

func (f *fakeSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(f.sessions)), nil
}

type fakeCache struct {
	entries map[uuid.UUID]*entity.LearningSession
	err     error

	setCalls int
	getCalls int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[uuid.UUID]*entity.LearningSession)}
}

func (f *fakeCache) Get(ctx context.Context, id uuid.UUID) (*entity.LearningSession, bool) {
	f.getCalls++
	if f.err != nil {
		return nil, false
	}
	s, ok := f.entries[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

func (f *fakeCache) Set(ctx context.Context, s *entity.LearningSession) error {
	f.setCalls++
	if f.err != nil {
		return f.err
	}
	f.entries[s.Id] = s.Clone()
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, id uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	delete(f.entries, id)
	return nil
}

func newTestSession(t *testing.T) *entity.LearningSession {
	t.Helper()
	session, err := entity.NewLearningSession(uuid.New(), uuid.New(), []uuid.UUID{uuid.New(), uuid.New()}, time.Now())
	require.NoError(t, err)
	return session
}

func TestSessionStore_GetHitsCacheFirst(t *testing.T) {
	repo := newFakeSessionRepo()
	cache := newFakeCache()
	store := NewSessionStore(repo, cache, logger.NoopLogger{})

	session := newTestSession(t)
	require.NoError(t, cache.Set(context.Background(), session))

	got, err := store.Get(context.Background(), session.Id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, session.Id, got.Id)
	assert.Zero(t, repo.findCalls, "durable tier should not be touched on a cache hit")
}

func TestSessionStore_GetMissFallsBackAndRepopulates(t *testing.T) {
	repo := newFakeSessionRepo()
	cache := newFakeCache()
	store := NewSessionStore(repo, cache, logger.NoopLogger{})

	session := newTestSession(t)
	require.NoError(t, repo.Create(context.Background(), session))

	got, err := store.Get(context.Background(), session.Id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, session.Id, got.Id)
	assert.Equal(t, 1, repo.findCalls)

	_, ok := cache.entries[session.Id]
	assert.True(t, ok, "cache should be repopulated after a durable read")
}

func TestSessionStore_GetSelectsRequestedSession(t *testing.T) {
	repo := newFakeSessionRepo()
	store := NewSessionStore(repo, newFakeCache(), logger.NoopLogger{})

	first := newTestSession(t)
	second := newTestSession(t)
	require.NoError(t, repo.Create(context.Background(), first))
	require.NoError(t, repo.Create(context.Background(), second))

	got, err := store.Get(context.Background(), second.Id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, second.Id, got.Id)
	assert.Equal(t, second.UserId, got.UserId)
}

func TestSessionStore_GetUnknownReturnsNilNil(t *testing.T) {
	store := NewSessionStore(newFakeSessionRepo(), newFakeCache(), logger.NoopLogger{})

	got, err := store.Get(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionStore_GetDurableFailureIsPersistenceError(t *testing.T) {
	repo := newFakeSessionRepo()
	repo.err = errors.New("connection refused")
	store := NewSessionStore(repo, newFakeCache(), logger.NoopLogger{})

	_, err := store.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrPersistence))
}

func TestSessionStore_CacheFailureDoesNotFailWrites(t *testing.T) {
	repo := newFakeSessionRepo()
	cache := newFakeCache()
	cache.err = errors.New("cache down")
	store := NewSessionStore(repo, cache, logger.NoopLogger{})

	session := newTestSession(t)
	require.NoError(t, store.Create(context.Background(), session))
	require.NoError(t, store.Save(context.Background(), session))
	assert.Equal(t, 1, repo.createCalls)
	assert.Equal(t, 1, repo.updateCalls)
}

func TestSessionStore_DurableFailureFailsWrites(t *testing.T) {
	repo := newFakeSessionRepo()
	repo.err = errors.New("disk full")
	store := NewSessionStore(repo, newFakeCache(), logger.NoopLogger{})

	err := store.Create(context.Background(), newTestSession(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrPersistence))

	err = store.Save(context.Background(), newTestSession(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrPersistence))
}

func TestSessionStore_GetReturnsIndependentCopies(t *testing.T) {
	repo := newFakeSessionRepo()
	cache := newFakeCache()
	store := NewSessionStore(repo, cache, logger.NoopLogger{})

	session := newTestSession(t)
	require.NoError(t, store.Create(context.Background(), session))

	first, err := store.Get(context.Background(), session.Id)
	require.NoError(t, err)
	questionId := first.QuestionIds[0]
	require.NoError(t, first.RecordScore(questionId, 5))

	second, err := store.Get(context.Background(), session.Id)
	require.NoError(t, err)
	assert.Empty(t, second.Scores, "mutating one read must not leak into the next")
}
