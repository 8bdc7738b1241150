package service

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"ai-tutorchat-be/internal/apperror"
	"ai-tutorchat-be/internal/dto"
	"ai-tutorchat-be/internal/entity"
	"ai-tutorchat-be/internal/pkg/logger"
	"ai-tutorchat-be/internal/repository/contract"
	"ai-tutorchat-be/internal/repository/specification"
	"ai-tutorchat-be/internal/repository/unitofwork"
	"ai-tutorchat-be/internal/store"
	"ai-tutorchat-be/pkg/llm"
	"ai-tutorchat-be/pkg/retention"
	"ai-tutorchat-be/pkg/tutor"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- scripted LLM provider ---

type scriptedProvider struct {
	responses []string
	err       error
	calls     int
}

func (p *scriptedProvider) pop() string {
	if len(p.responses) == 0 {
		return ""
	}
	out := p.responses[0]
	p.responses = p.responses[1:]
	return out
}

func (p *scriptedProvider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.pop(), nil
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.pop(), nil
}

// --- in-memory repositories behind the unit of work ---

type memSessionRepo struct {
	byId        map[uuid.UUID]*entity.LearningSession
	err         error
	updateCalls int
}

func (r *memSessionRepo) Create(ctx context.Context, s *entity.LearningSession) error {
	if r.err != nil {
		return r.err
	}
	r.byId[s.Id] = s.Clone()
	return nil
}

func (r *memSessionRepo) Update(ctx context.Context, s *entity.LearningSession) error {
	r.updateCalls++
	if r.err != nil {
		return r.err
	}
	r.byId[s.Id] = s.Clone()
	return nil
}

func (r *memSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.LearningSession, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, spec := range specs {
		if byId, ok := spec.(specification.ByID); ok {
			if s, found := r.byId[byId.ID]; found {
				return s.Clone(), nil
			}
		}
	}
	return nil, nil
}

func (r *memSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.LearningSession, error) {
	return nil, nil
}

func (r *memSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.byId)), nil
}

type memTopicRepo struct {
	byId map[uuid.UUID]*entity.Topic
}

func (r *memTopicRepo) Create(ctx context.Context, t *entity.Topic) error {
	r.byId[t.Id] = t
	return nil
}

func (r *memTopicRepo) Update(ctx context.Context, t *entity.Topic) error {
	r.byId[t.Id] = t
	return nil
}

func (r *memTopicRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Topic, error) {
	for _, spec := range specs {
		if byId, ok := spec.(specification.ByID); ok {
			return r.byId[byId.ID], nil
		}
	}
	return nil, nil
}

func (r *memTopicRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Topic, error) {
	out := make([]*entity.Topic, 0, len(r.byId))
	for _, t := range r.byId {
		out = append(out, t)
	}
	return out, nil
}

type memQuestionRepo struct {
	byId map[uuid.UUID]*entity.Question
}

func (r *memQuestionRepo) Create(ctx context.Context, q *entity.Question) error {
	r.byId[q.Id] = q
	return nil
}

func (r *memQuestionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Question, error) {
	for _, spec := range specs {
		if byId, ok := spec.(specification.ByID); ok {
			return r.byId[byId.ID], nil
		}
	}
	return nil, nil
}

func (r *memQuestionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Question, error) {
	out := make([]*entity.Question, 0, len(r.byId))
	for _, q := range r.byId {
		out = append(out, q)
	}
	return out, nil
}

type memUow struct {
	sessions  *memSessionRepo
	topics    *memTopicRepo
	questions *memQuestionRepo
}

func (u *memUow) Begin(ctx context.Context) error { return nil }
func (u *memUow) Commit() error                   { return nil }
func (u *memUow) Rollback() error                 { return nil }

func (u *memUow) SessionRepository() contract.SessionRepository   { return u.sessions }
func (u *memUow) TopicRepository() contract.TopicRepository       { return u.topics }
func (u *memUow) QuestionRepository() contract.QuestionRepository { return u.questions }

type memFactory struct {
	uow *memUow
}

func (f *memFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork { return f.uow }

type memCache struct {
	byId map[uuid.UUID]*entity.LearningSession
}

func (c *memCache) Get(ctx context.Context, id uuid.UUID) (*entity.LearningSession, bool) {
	s, ok := c.byId[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

func (c *memCache) Set(ctx context.Context, s *entity.LearningSession) error {
	c.byId[s.Id] = s.Clone()
	return nil
}

func (c *memCache) Delete(ctx context.Context, id uuid.UUID) error {
	delete(c.byId, id)
	return nil
}

type capturingPublisher struct {
	payloads [][]byte
}

func (p *capturingPublisher) Publish(ctx context.Context, payload []byte) error {
	p.payloads = append(p.payloads, payload)
	return nil
}

// --- fixture ---

type fixture struct {
	svc      IConversationService
	sessions ISessionService

	userId   uuid.UUID
	topic    *entity.Topic
	q1, q2   *entity.Question
	durable  *memSessionRepo
	topics   *memTopicRepo
	cache    *memCache
	store    *store.SessionStore
	events   *capturingPublisher

	scoreP   *scriptedProvider
	replyP   *scriptedProvider
	intentP  *scriptedProvider
	clarifyP *scriptedProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	userId := uuid.New()
	topicId := uuid.New()
	q1 := &entity.Question{Id: uuid.New(), TopicId: topicId, Text: "What is a goroutine?", Type: entity.QuestionTypeShortAnswer, Difficulty: 1, CreatedAt: time.Now()}
	q2 := &entity.Question{Id: uuid.New(), TopicId: topicId, Text: "Explain channel direction.", Type: entity.QuestionTypeExplanation, Difficulty: 2, CreatedAt: time.Now()}
	topic := &entity.Topic{
		Id:          topicId,
		UserId:      userId,
		Name:        "Go concurrency",
		QuestionIds: []uuid.UUID{q1.Id, q2.Id},
		Retention:   entity.DefaultRetentionParams(),
		CreatedAt:   time.Now(),
	}

	durable := &memSessionRepo{byId: make(map[uuid.UUID]*entity.LearningSession)}
	topics := &memTopicRepo{byId: map[uuid.UUID]*entity.Topic{topic.Id: topic}}
	questions := &memQuestionRepo{byId: map[uuid.UUID]*entity.Question{q1.Id: q1, q2.Id: q2}}
	factory := &memFactory{uow: &memUow{sessions: durable, topics: topics, questions: questions}}

	cache := &memCache{byId: make(map[uuid.UUID]*entity.LearningSession)}
	sessionStore := store.NewSessionStore(durable, cache, logger.NoopLogger{})

	quiet := log.New(io.Discard, "", 0)
	scoreP := &scriptedProvider{}
	replyP := &scriptedProvider{}
	intentP := &scriptedProvider{}
	clarifyP := &scriptedProvider{}

	events := &capturingPublisher{}
	sessions := NewSessionService(factory, sessionStore, retention.NewScheduler(), events, logger.NoopLogger{})

	svc := NewConversationService(
		sessionStore,
		factory,
		sessions,
		tutor.NewScoringGateway(scoreP, time.Second, quiet),
		tutor.NewFeedbackGenerator(replyP, time.Second, quiet),
		tutor.NewIntentRouter(intentP, time.Second, quiet),
		tutor.NewClarificationHandler(clarifyP, time.Second, quiet),
		logger.NoopLogger{},
	)

	return &fixture{
		svc:      svc,
		sessions: sessions,
		userId:   userId,
		topic:    topic,
		q1:       q1,
		q2:       q2,
		durable:  durable,
		topics:   topics,
		cache:    cache,
		store:    sessionStore,
		events:   events,
		scoreP:   scoreP,
		replyP:   replyP,
		intentP:  intentP,
		clarifyP: clarifyP,
	}
}

func (f *fixture) startSession(t *testing.T) *entity.LearningSession {
	t.Helper()
	session, err := entity.NewLearningSession(f.userId, f.topic.Id, f.topic.QuestionIds, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, f.store.Create(context.Background(), session))
	return session
}

func (f *fixture) turn(t *testing.T, sessionId uuid.UUID, message string) (*dto.TurnResponse, error) {
	t.Helper()
	return f.svc.ProcessTurn(context.Background(), f.userId, sessionId, &dto.TurnRequest{Message: message})
}

// --- tests ---

func TestProcessTurn_StrongFirstAnswerSkipsFollowUp(t *testing.T) {
	f := newFixture(t)
	session := f.startSession(t)

	f.scoreP.responses = []string{`{"score": 5, "reasoning": "complete"}`}
	f.replyP.responses = []string{"Exactly right. Goroutines are multiplexed onto OS threads by the runtime."}

	resp, err := f.turn(t, session.Id, "A lightweight thread managed by the Go runtime.")
	require.NoError(t, err)

	assert.Equal(t, string(entity.StateAwaitingNextAction), resp.TurnState)
	require.NotNil(t, resp.Score)
	assert.Equal(t, 5, *resp.Score)

	stored := f.durable.byId[session.Id]
	require.NotNil(t, stored)
	assert.Equal(t, entity.StateAwaitingNextAction, stored.TurnState)
	assert.Equal(t, 5, stored.Scores[f.q1.Id])
	assert.Nil(t, stored.InitialScore)
}

func TestProcessTurn_WeakAnswerGetsHintThenFollowUpAverages(t *testing.T) {
	f := newFixture(t)
	session := f.startSession(t)

	// First attempt: score 2, hint back, no score recorded yet.
	f.scoreP.responses = []string{`{"score": 2, "reasoning": "mostly wrong"}`}
	f.replyP.responses = []string{"Not quite. Think about who schedules them. Try again!"}

	resp, err := f.turn(t, session.Id, "It is an OS thread.")
	require.NoError(t, err)
	assert.Equal(t, string(entity.StateAwaitingFollowUp), resp.TurnState)
	assert.Nil(t, resp.Score)

	stored := f.durable.byId[session.Id]
	require.NotNil(t, stored.InitialScore)
	assert.Equal(t, 2, *stored.InitialScore)
	assert.Empty(t, stored.Scores)

	// Second attempt: score 4, final = round((2+4)/2) = 3.
	f.scoreP.responses = []string{`{"score": 4, "reasoning": "much better"}`}
	f.replyP.responses = []string{"Good recovery, that captures the runtime scheduling part."}

	resp, err = f.turn(t, session.Id, "A function scheduled by the Go runtime, cheaper than a thread.")
	require.NoError(t, err)
	assert.Equal(t, string(entity.StateAwaitingNextAction), resp.TurnState)
	require.NotNil(t, resp.Score)
	assert.Equal(t, 3, *resp.Score)

	stored = f.durable.byId[session.Id]
	assert.Equal(t, 3, stored.Scores[f.q1.Id])
	assert.Nil(t, stored.InitialScore)
}

func TestProcessTurn_GatewayFailureLeavesSessionUntouched(t *testing.T) {
	f := newFixture(t)
	session := f.startSession(t)

	f.scoreP.err = errors.New("upstream 503")

	_, err := f.turn(t, session.Id, "Some answer.")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrGateway))

	stored := f.durable.byId[session.Id]
	assert.Equal(t, entity.StateAwaitingInitialAnswer, stored.TurnState)
	assert.Empty(t, stored.Scores)
	assert.Zero(t, f.durable.updateCalls)

	// Same turn retried after the gateway recovers.
	f.scoreP.err = nil
	f.scoreP.responses = []string{`{"score": 5, "reasoning": "complete"}`}
	f.replyP.responses = []string{"Exactly right, well put together."}

	resp, err := f.turn(t, session.Id, "Some answer.")
	require.NoError(t, err)
	assert.Equal(t, string(entity.StateAwaitingNextAction), resp.TurnState)
}

func TestProcessTurn_AdvancePresentsNextQuestion(t *testing.T) {
	f := newFixture(t)
	session := f.startSession(t)
	require.NoError(t, session.RecordScore(f.q1.Id, 4))
	session.AwaitNextAction()
	require.NoError(t, f.store.Save(context.Background(), session))

	f.intentP.responses = []string{`{"intent": "ADVANCE", "reasoning": "asked for the next question"}`}

	resp, err := f.turn(t, session.Id, "next question please")
	require.NoError(t, err)
	assert.Equal(t, string(entity.StateAwaitingInitialAnswer), resp.TurnState)
	assert.Equal(t, f.q2.Text, resp.NextQuestion)

	stored := f.durable.byId[session.Id]
	assert.Equal(t, 1, stored.QuestionIndex)
}

func TestProcessTurn_AdvanceOnLastQuestionKeepsSessionOpen(t *testing.T) {
	f := newFixture(t)
	session := f.startSession(t)
	require.NoError(t, session.RecordScore(f.q1.Id, 4))
	session.AwaitNextAction()
	require.NoError(t, session.Advance())
	require.NoError(t, session.RecordScore(f.q2.Id, 5))
	session.AwaitNextAction()
	require.NoError(t, f.store.Save(context.Background(), session))
	savedUpdates := f.durable.updateCalls

	f.intentP.responses = []string{`{"intent": "ADVANCE", "reasoning": "asked for the next question"}`}

	resp, err := f.turn(t, session.Id, "next")
	require.NoError(t, err)
	assert.Equal(t, string(entity.StateAwaitingNextAction), resp.TurnState)
	assert.False(t, resp.Ended)
	assert.Contains(t, resp.Reply, "last question")
	assert.Equal(t, savedUpdates, f.durable.updateCalls, "a no-op turn must not persist")
}

func TestProcessTurn_EndArchivesSessionAndReschedulesTopic(t *testing.T) {
	f := newFixture(t)
	session := f.startSession(t)
	require.NoError(t, session.RecordScore(f.q1.Id, 4))
	session.AwaitNextAction()
	require.NoError(t, f.store.Save(context.Background(), session))

	f.intentP.responses = []string{`{"intent": "END", "reasoning": "wants to stop"}`}

	resp, err := f.turn(t, session.Id, "I'm done for today")
	require.NoError(t, err)
	assert.True(t, resp.Ended)
	assert.Equal(t, string(entity.StateEnded), resp.TurnState)

	stored := f.durable.byId[session.Id]
	assert.Equal(t, entity.StateEnded, stored.TurnState)
	require.NotNil(t, stored.EndedAt)

	topic := f.topics.byId[f.topic.Id]
	require.NotNil(t, topic.NextReviewAt)
	require.NotNil(t, topic.LastReviewedAt)
	assert.Equal(t, 1, topic.Retention.Repetition)
	assert.True(t, topic.NextReviewAt.After(time.Now()))

	_, cached := f.cache.byId[session.Id]
	assert.False(t, cached, "ended session must be evicted from the fast tier")

	require.NotEmpty(t, f.events.payloads, "ending a session must emit an event")

	// Further turns on the archived session are rejected.
	_, err = f.turn(t, session.Id, "hello?")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrState))
}

func TestSessionService_EndSessionEndpointArchivesWithoutIntentRouting(t *testing.T) {
	f := newFixture(t)
	session := f.startSession(t)
	require.NoError(t, session.RecordScore(f.q1.Id, 4))
	require.NoError(t, session.Advance())
	require.NoError(t, session.RecordScore(f.q2.Id, 2))
	session.AwaitNextAction()
	require.NoError(t, f.store.Save(context.Background(), session))

	res, err := f.sessions.EndSession(context.Background(), f.userId, session.Id)
	require.NoError(t, err)

	assert.Equal(t, session.Id, res.SessionId)
	assert.Equal(t, 2, res.QuestionsAnswered)
	assert.InDelta(t, 3.0, res.AverageScore, 1e-9)
	assert.True(t, res.NextReviewAt.After(time.Now()))
	assert.Contains(t, res.Message, "Session complete")

	stored := f.durable.byId[session.Id]
	assert.Equal(t, entity.StateEnded, stored.TurnState)
	require.NotNil(t, stored.EndedAt)

	topic := f.topics.byId[f.topic.Id]
	require.NotNil(t, topic.NextReviewAt)
	assert.Equal(t, 1, topic.Retention.Repetition)

	_, cached := f.cache.byId[session.Id]
	assert.False(t, cached, "ended session must be evicted from the fast tier")

	// No LLM call is involved: the intent router script stays empty.
	assert.Empty(t, f.intentP.responses)
}

func TestSessionService_EndSessionRejectsForeignUser(t *testing.T) {
	f := newFixture(t)
	session := f.startSession(t)

	_, err := f.sessions.EndSession(context.Background(), uuid.New(), session.Id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrState))

	stored := f.durable.byId[session.Id]
	assert.Equal(t, entity.StateAwaitingInitialAnswer, stored.TurnState)
}

func TestSessionService_EndSessionAlreadyEndedRejected(t *testing.T) {
	f := newFixture(t)
	session := f.startSession(t)
	require.NoError(t, session.RecordScore(f.q1.Id, 4))
	session.AwaitNextAction()
	require.NoError(t, f.store.Save(context.Background(), session))

	_, err := f.sessions.EndSession(context.Background(), f.userId, session.Id)
	require.NoError(t, err)

	_, err = f.sessions.EndSession(context.Background(), f.userId, session.Id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrState))
}

func TestProcessTurn_ClarificationGiveAwayCapsScore(t *testing.T) {
	f := newFixture(t)
	session := f.startSession(t)
	require.NoError(t, session.RecordScore(f.q1.Id, 4))
	session.AwaitNextAction()
	require.NoError(t, f.store.Save(context.Background(), session))

	f.intentP.responses = []string{`{"intent": "CLARIFY", "reasoning": "asking about the material"}`}
	f.clarifyP.responses = []string{`{"answer": "A goroutine is a lightweight runtime-scheduled thread.", "adjusted_score": 1, "reasoning": "stated the answer outright"}`}

	resp, err := f.turn(t, session.Id, "wait, what actually is a goroutine?")
	require.NoError(t, err)
	assert.Equal(t, string(entity.StateAwaitingNextAction), resp.TurnState)
	require.NotNil(t, resp.Score)
	assert.Equal(t, 1, *resp.Score)

	stored := f.durable.byId[session.Id]
	assert.Equal(t, 1, stored.Scores[f.q1.Id], "give-away clarification overwrites the recorded score")
}

func TestProcessTurn_ClarificationHintLeavesScoreAlone(t *testing.T) {
	f := newFixture(t)
	session := f.startSession(t)
	require.NoError(t, session.RecordScore(f.q1.Id, 4))
	session.AwaitNextAction()
	require.NoError(t, f.store.Save(context.Background(), session))
	savedUpdates := f.durable.updateCalls

	f.intentP.responses = []string{`{"intent": "CLARIFY", "reasoning": "asking about the material"}`}
	f.clarifyP.responses = []string{`{"answer": "Think of it as something the runtime, not the OS, schedules.", "adjusted_score": 3, "reasoning": "partial hint"}`}

	resp, err := f.turn(t, session.Id, "can you give me a nudge?")
	require.NoError(t, err)
	assert.Nil(t, resp.Score)

	stored := f.durable.byId[session.Id]
	assert.Equal(t, 4, stored.Scores[f.q1.Id])
	assert.Equal(t, savedUpdates, f.durable.updateCalls)
}

func TestProcessTurn_EmptyMessageRejected(t *testing.T) {
	f := newFixture(t)
	session := f.startSession(t)

	_, err := f.turn(t, session.Id, "   ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestProcessTurn_UnknownSessionRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.turn(t, uuid.New(), "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrState))
}

func TestSessionService_StartCreatesSessionOnFirstQuestion(t *testing.T) {
	f := newFixture(t)

	resp, err := f.sessions.Start(context.Background(), f.userId, &dto.StartSessionRequest{TopicId: f.topic.Id})
	require.NoError(t, err)
	assert.Equal(t, string(entity.StateAwaitingInitialAnswer), resp.TurnState)
	assert.Equal(t, 2, resp.QuestionCount)
	assert.Equal(t, f.q1.Text, resp.FirstQuestion)

	stored := f.durable.byId[resp.SessionId]
	require.NotNil(t, stored)
	assert.Equal(t, 0, stored.QuestionIndex)
	require.NotEmpty(t, f.events.payloads)
}

func TestSessionService_StartUnknownTopicRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.sessions.Start(context.Background(), f.userId, &dto.StartSessionRequest{TopicId: uuid.New()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}
