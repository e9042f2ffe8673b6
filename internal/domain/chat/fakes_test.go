package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/janhq/reno-server/internal/domain/conversation"
	"github.com/janhq/reno-server/internal/domain/workflow"
	"github.com/janhq/reno-server/internal/utils/platformerrors"
)

// fakeConversations is an in-memory conversation.Service.
type fakeConversations struct {
	mu        sync.Mutex
	convs     map[string]*conversation.Conversation
	messages  map[uint][]*conversation.Message
	nextConv  uint
	nextMsg   uint
	appendErr error
	summaries int
}

func newFakeConversations() *fakeConversations {
	return &fakeConversations{
		convs:    map[string]*conversation.Conversation{},
		messages: map[uint][]*conversation.Message{},
	}
}

func (f *fakeConversations) Create(ctx context.Context, params conversation.CreateParams) (*conversation.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextConv++
	conv := &conversation.Conversation{
		ID:       f.nextConv,
		PublicID: fmt.Sprintf("conv_%d", f.nextConv),
		UserID:   params.UserID,
		HomeID:   params.HomeID,
		Title:    conversation.TitleFromMessage(params.FirstMessage),
		Persona:  params.Persona,
		Scenario: params.Scenario,
		IsActive: true,
	}
	f.convs[conv.PublicID] = conv
	return conv, nil
}

func (f *fakeConversations) Resolve(ctx context.Context, publicID, userID string, params conversation.CreateParams) (*conversation.Conversation, bool, error) {
	if publicID == "" {
		if userID != "" {
			params.UserID = &userID
		}
		conv, err := f.Create(ctx, params)
		return conv, true, err
	}
	conv, err := f.Get(ctx, publicID, userID)
	if err != nil {
		return nil, false, err
	}
	if params.HomeID != nil {
		conv.HomeID = params.HomeID
	}
	if params.Persona != "" {
		conv.Persona = params.Persona
	}
	return conv, false, nil
}

func (f *fakeConversations) Get(ctx context.Context, publicID, userID string) (*conversation.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[publicID]
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
			"conversation not found", nil, "")
	}
	if !conv.AccessibleBy(userID) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden,
			"not your conversation", nil, "")
	}
	return conv, nil
}

func (f *fakeConversations) List(ctx context.Context, userID string, pagination conversation.Pagination) ([]*conversation.Conversation, int64, error) {
	return nil, 0, errors.New("not used")
}

func (f *fakeConversations) Update(ctx context.Context, publicID, userID string, params conversation.UpdateParams) (*conversation.Conversation, error) {
	return nil, errors.New("not used")
}

func (f *fakeConversations) Delete(ctx context.Context, publicID, userID string) error {
	return errors.New("not used")
}

func (f *fakeConversations) Messages(ctx context.Context, publicID, userID string, pagination conversation.Pagination) ([]*conversation.Message, error) {
	conv, err := f.Get(ctx, publicID, userID)
	if err != nil {
		return nil, err
	}
	return f.stored(conv.ID), nil
}

func (f *fakeConversations) AppendTurn(ctx context.Context, conv *conversation.Conversation, messages ...*conversation.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	for _, m := range messages {
		f.nextMsg++
		m.ID = f.nextMsg
		m.PublicID = fmt.Sprintf("msg_%d", f.nextMsg)
		m.ConversationID = conv.ID
		m.Sequence = len(f.messages[conv.ID]) + 1
		f.messages[conv.ID] = append(f.messages[conv.ID], m)
	}
	conv.MessageCount += len(messages)
	return nil
}

func (f *fakeConversations) RecentMessages(ctx context.Context, conversationID uint, limit int) ([]*conversation.Message, error) {
	all := f.stored(conversationID)
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (f *fakeConversations) BuildContextWindow(ctx context.Context, conversationID uint, opts conversation.WindowOptions) []conversation.WindowEntry {
	recent, _ := f.RecentMessages(ctx, conversationID, opts.MaxMessages)
	entries := make([]conversation.WindowEntry, 0, len(recent))
	for _, m := range recent {
		meta := m.Metadata
		entries = append(entries, conversation.WindowEntry{Role: m.Role, Content: m.Content, Metadata: &meta, CreatedAt: m.CreatedAt})
	}
	return entries
}

func (f *fakeConversations) MaybeGenerateSummary(ctx context.Context, conversationID uint, threshold int) (*conversation.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries++
	return nil, nil
}

func (f *fakeConversations) stored(conversationID uint) []*conversation.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*conversation.Message(nil), f.messages[conversationID]...)
}

// mutexLocker serializes by key within the process.
type mutexLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *mutexLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = map[string]*sync.Mutex{}
	}
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock, nil
}

type fakeImages struct {
	urls []string
	err  error
}

func (f *fakeImages) Generate(ctx context.Context, prompt string, n int) ([]string, error) {
	return f.urls, f.err
}

func (f *fakeImages) Transform(ctx context.Context, imageURL, prompt string) ([]string, error) {
	return f.urls, f.err
}

type fakeFiles struct {
	mu    sync.Mutex
	saved map[string][]byte
	err   error
}

func (f *fakeFiles) Save(ctx context.Context, filename, contentType string, data []byte) (*StoredFile, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = map[string][]byte{}
	}
	f.saved[filename] = data
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &StoredFile{
		URL:         "/uploads/" + filename,
		Path:        "/tmp/uploads/" + filename,
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

type memWorkflowRepo struct {
	mu     sync.Mutex
	states map[uint]*workflow.State
}

func (m *memWorkflowRepo) Get(ctx context.Context, id uint) (*workflow.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[id]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (m *memWorkflowRepo) Upsert(ctx context.Context, st *workflow.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *st
	m.states[st.ConversationID] = &cp
	return nil
}

func (m *memWorkflowRepo) Delete(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, id)
	return nil
}
