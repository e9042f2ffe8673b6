package conversation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/reno-server/internal/utils/platformerrors"
)

// memStore is an in-memory Repository, MessageRepository and SummaryRepository.
type memStore struct {
	mu            sync.Mutex
	conversations map[uint]*Conversation
	messages      map[uint][]*Message
	summaries     map[uint][]*Summary
	nextID        uint
	summaryErr    error
}

func newMemStore() *memStore {
	return &memStore{
		conversations: map[uint]*Conversation{},
		messages:      map[uint][]*Message{},
		summaries:     map[uint][]*Summary{},
	}
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

func (m *memStore) Create(ctx context.Context, c *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	c.CreatedAt = time.Now()
	cp := *c
	m.conversations[c.ID] = &cp
	return nil
}

func (m *memStore) FindByPublicID(ctx context.Context, publicID string) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conversations {
		if c.PublicID == publicID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "not found", nil, "")
}

func (m *memStore) List(ctx context.Context, f Filter, p Pagination) ([]*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Conversation
	for _, c := range m.conversations {
		if f.UserID != nil {
			owner := ""
			if c.UserID != nil {
				owner = *c.UserID
			}
			if owner != *f.UserID {
				continue
			}
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) Count(ctx context.Context, f Filter) (int64, error) {
	items, _ := m.List(ctx, f, Pagination{})
	return int64(len(items)), nil
}

func (m *memStore) Update(ctx context.Context, c *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.conversations[c.ID] = &cp
	return nil
}

func (m *memStore) Delete(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conversations, id)
	delete(m.messages, id)
	delete(m.summaries, id)
	return nil
}

func (m *memStore) ActiveSince(ctx context.Context, since time.Time, limit int) ([]*Conversation, error) {
	return nil, nil
}

func (m *memStore) Append(ctx context.Context, c *Conversation, msgs []*Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range msgs {
		msg.ID = m.id()
		msg.Sequence = len(m.messages[c.ID]) + 1
		cp := *msg
		m.messages[c.ID] = append(m.messages[c.ID], &cp)
	}
	c.MessageCount = len(m.messages[c.ID])
	return nil
}

func (m *memStore) Recent(ctx context.Context, conversationID uint, limit int) ([]*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.messages[conversationID]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]*Message(nil), all...), nil
}

func (m *memStore) ListMessages(conversationID uint) []*Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Message(nil), m.messages[conversationID]...)
}

func (m *memStore) ListAfter(ctx context.Context, conversationID uint, afterID uint) ([]*Message, error) {
	var out []*Message
	for _, msg := range m.ListMessages(conversationID) {
		if msg.ID > afterID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memStore) MessageCount(ctx context.Context, conversationID uint) (int64, error) {
	return int64(len(m.ListMessages(conversationID))), nil
}

// summaryRepo adapts memStore to SummaryRepository.
type summaryRepo struct{ *memStore }

func (r summaryRepo) Create(ctx context.Context, s *Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = r.id()
	s.CreatedAt = time.Now()
	r.summaries[s.ConversationID] = append(r.summaries[s.ConversationID], s)
	return nil
}

func (r summaryRepo) Recent(ctx context.Context, conversationID uint, limit int) ([]*Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.summaryErr != nil {
		return nil, r.summaryErr
	}
	all := append([]*Summary(nil), r.summaries[conversationID]...)
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r summaryRepo) Latest(ctx context.Context, conversationID uint) (*Summary, error) {
	recent, err := r.Recent(ctx, conversationID, 1)
	if err != nil || len(recent) == 0 {
		return nil, err
	}
	return recent[0], nil
}

// messageRepo adapts memStore to MessageRepository.
type messageRepo struct{ *memStore }

func (r messageRepo) List(ctx context.Context, conversationID uint, p Pagination) ([]*Message, error) {
	return r.ListMessages(conversationID), nil
}

func (r messageRepo) Count(ctx context.Context, conversationID uint) (int64, error) {
	return r.MessageCount(ctx, conversationID)
}

type stubGenerator struct {
	calls int
	err   error
}

func (g *stubGenerator) Summarize(ctx context.Context, messages []*Message) (string, []string, error) {
	g.calls++
	if g.err != nil {
		return "", nil, g.err
	}
	return fmt.Sprintf("summary of %d messages", len(messages)), []string{"paint"}, nil
}

func newTestService(store *memStore, gen SummaryGenerator) Service {
	return NewService(store, messageRepo{store}, summaryRepo{store}, gen, nil, zerolog.Nop())
}

func appendN(t *testing.T, svc Service, conv *Conversation, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		require.NoError(t, svc.AppendTurn(context.Background(), conv, &Message{Role: role, Content: fmt.Sprintf("m%d", conv.MessageCount+1)}))
	}
}

func TestBuildContextWindowOrdersSummariesBeforeMessages(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(store, nil)

	conv, err := svc.Create(ctx, CreateParams{FirstMessage: "hello"})
	require.NoError(t, err)
	appendN(t, svc, conv, 6)

	sums := summaryRepo{store}
	require.NoError(t, sums.Create(ctx, &Summary{ConversationID: conv.ID, SummaryText: "S1"}))
	require.NoError(t, sums.Create(ctx, &Summary{ConversationID: conv.ID, SummaryText: "S2"}))

	window := svc.BuildContextWindow(ctx, conv.ID, WindowOptions{MaxMessages: 3, IncludeSummaries: true, MaxSummaries: 2})

	got := make([]string, 0, len(window))
	for _, e := range window {
		got = append(got, e.Content)
	}
	if diff := cmp.Diff([]string{"S1", "S2", "m4", "m5", "m6"}, got); diff != "" {
		t.Fatalf("window mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, window[0].IsSummary())
	assert.Equal(t, RoleSystem, window[1].Role)
	assert.False(t, window[2].IsSummary())
}

func TestBuildContextWindowFallsBackWithoutSummaries(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(store, nil)

	conv, err := svc.Create(ctx, CreateParams{})
	require.NoError(t, err)
	appendN(t, svc, conv, 4)
	store.summaryErr = errors.New("relation \"conversation_summaries\" does not exist")

	window := svc.BuildContextWindow(ctx, conv.ID, WindowOptions{MaxMessages: 10, IncludeSummaries: true, MaxSummaries: 3})

	require.Len(t, window, 4)
	assert.Equal(t, "m1", window[0].Content)
}

func TestMaybeGenerateSummaryIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	gen := &stubGenerator{}
	svc := newTestService(store, gen)

	conv, err := svc.Create(ctx, CreateParams{})
	require.NoError(t, err)
	appendN(t, svc, conv, 20)

	first, err := svc.MaybeGenerateSummary(ctx, conv.ID, 20)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, 20, first.MessageCount)

	for i := 0; i < 3; i++ {
		again, err := svc.MaybeGenerateSummary(ctx, conv.ID, 20)
		require.NoError(t, err)
		assert.Nil(t, again)
	}
	assert.Equal(t, 1, gen.calls)

	appendN(t, svc, conv, 19)
	none, err := svc.MaybeGenerateSummary(ctx, conv.ID, 20)
	require.NoError(t, err)
	assert.Nil(t, none, "19 uncovered messages are below threshold")

	appendN(t, svc, conv, 1)
	second, err := svc.MaybeGenerateSummary(ctx, conv.ID, 20)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Greater(t, second.StartMessageID, first.EndMessageID, "summaries never overlap")
	assert.Equal(t, 20, second.MessageCount)
}

func TestMaybeGenerateSummaryRespectsMinimum(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	gen := &stubGenerator{}
	svc := newTestService(store, gen)

	conv, err := svc.Create(ctx, CreateParams{})
	require.NoError(t, err)
	appendN(t, svc, conv, 4)

	got, err := svc.MaybeGenerateSummary(ctx, conv.ID, 2)
	require.NoError(t, err)
	assert.Nil(t, got, "fewer than five messages are never summarized")
	assert.Zero(t, gen.calls)

	appendN(t, svc, conv, 1)
	got, err = svc.MaybeGenerateSummary(ctx, conv.ID, 2)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 5, got.MessageCount)
}

func TestGetEnforcesOwnership(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(store, nil)

	owner := "user-1"
	conv, err := svc.Create(ctx, CreateParams{UserID: &owner})
	require.NoError(t, err)

	_, err = svc.Get(ctx, conv.PublicID, "user-2")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden))

	got, err := svc.Get(ctx, conv.PublicID, owner)
	require.NoError(t, err)
	assert.Equal(t, conv.PublicID, got.PublicID)

	_, err = svc.Get(ctx, "not-a-uuid", owner)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestResolveCreatesWithDefaultTitle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemStore(), nil)

	conv, created, err := svc.Resolve(ctx, "", "", CreateParams{FirstMessage: "  Paint   my kitchen  ", Persona: PersonaDIYWorker})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Paint my kitchen", conv.Title)
	assert.Equal(t, PersonaDIYWorker, conv.Persona)

	_, _, err = svc.Resolve(ctx, "", "", CreateParams{Persona: "wizard"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestAppendTurnAssignsIdentifiersAndValidates(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(store, nil)
	conv, err := svc.Create(ctx, CreateParams{})
	require.NoError(t, err)

	user := &Message{Role: RoleUser, Content: "hi"}
	assistant := &Message{Role: RoleAssistant, Content: "hello"}
	require.NoError(t, svc.AppendTurn(ctx, conv, user, assistant))

	assert.NotEmpty(t, user.PublicID)
	assert.NotEqual(t, user.PublicID, assistant.PublicID)
	assert.Equal(t, 2, conv.MessageCount)

	bad := &Message{Role: RoleAssistant, Content: "x", Metadata: Metadata{AgentResult: &AgentResult{Kind: "mystery", Payload: []byte(`{}`)}}}
	err = svc.AppendTurn(ctx, conv, bad)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
	assert.Equal(t, 2, conv.MessageCount)
}
