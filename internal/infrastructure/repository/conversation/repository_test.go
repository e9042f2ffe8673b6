package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "github.com/janhq/reno-server/internal/domain/conversation"
	"github.com/janhq/reno-server/internal/domain/workflow"
	"github.com/janhq/reno-server/internal/infrastructure/database"
	"github.com/janhq/reno-server/internal/infrastructure/database/entities"
	"github.com/janhq/reno-server/internal/utils/platformerrors"
)

func openTestDB(t *testing.T, migrate bool) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if migrate {
		require.NoError(t, database.AutoMigrate(context.Background(), db, zerolog.Nop()))
	}
	return db
}

func strPtr(s string) *string { return &s }

func newConversation(t *testing.T, repo *Repository, publicID string, userID *string) *domain.Conversation {
	t.Helper()
	conv := &domain.Conversation{PublicID: publicID, UserID: userID, Title: "t-" + publicID, IsActive: true}
	require.NoError(t, repo.Create(context.Background(), conv))
	require.NotZero(t, conv.ID)
	return conv
}

func TestConversationCreateAndFind(t *testing.T) {
	db := openTestDB(t, true)
	repo := NewRepository(db)
	ctx := context.Background()

	conv := newConversation(t, repo, "c-1", strPtr("alice"))
	got, err := repo.FindByPublicID(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)
	assert.Equal(t, "alice", *got.UserID)
	assert.True(t, got.IsActive)

	_, err = repo.FindByPublicID(ctx, "missing")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestConversationListFilters(t *testing.T) {
	db := openTestDB(t, true)
	repo := NewRepository(db)
	ctx := context.Background()

	newConversation(t, repo, "anon-1", nil)
	newConversation(t, repo, "alice-1", strPtr("alice"))
	newConversation(t, repo, "alice-2", strPtr("alice"))
	newConversation(t, repo, "bob-1", strPtr("bob"))

	alice := "alice"
	items, err := repo.List(ctx, domain.Filter{UserID: &alice}, domain.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "alice-2", items[0].PublicID, "newest first")

	anonymous := ""
	items, err = repo.List(ctx, domain.Filter{UserID: &anonymous}, domain.Pagination{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "anon-1", items[0].PublicID)

	total, err := repo.Count(ctx, domain.Filter{UserID: &alice})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	page, err := repo.List(ctx, domain.Filter{}, domain.Pagination{Page: 2, PageSize: 3})
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestConversationUpdate(t *testing.T) {
	db := openTestDB(t, true)
	repo := NewRepository(db)
	ctx := context.Background()

	conv := newConversation(t, repo, "c-1", nil)
	conv.Title = "Kitchen remodel"
	conv.IsActive = false
	conv.Persona = domain.PersonaContractor
	require.NoError(t, repo.Update(ctx, conv))

	got, err := repo.FindByPublicID(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "Kitchen remodel", got.Title)
	assert.False(t, got.IsActive)
	assert.Equal(t, domain.PersonaContractor, got.Persona)

	err = repo.Update(ctx, &domain.Conversation{ID: 999, PublicID: "ghost"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestAppendAssignsSequenceAndCounters(t *testing.T) {
	db := openTestDB(t, true)
	convs := NewRepository(db)
	messages := NewMessageRepository(db, zerolog.Nop())
	ctx := context.Background()

	conv := newConversation(t, convs, "c-1", nil)
	first := []*domain.Message{
		{PublicID: "m-1", Role: domain.RoleUser, Content: "paint the bedroom", Intent: "cost_estimate"},
		{PublicID: "m-2", Role: domain.RoleAssistant, Content: "about $540", Metadata: domain.Metadata{Intent: "cost_estimate", Partial: true}},
	}
	require.NoError(t, messages.Append(ctx, conv, first))
	require.NoError(t, messages.Append(ctx, conv, []*domain.Message{{PublicID: "m-3", Role: domain.RoleUser, Content: "thanks"}}))

	assert.Equal(t, 3, conv.MessageCount)
	require.NotNil(t, conv.LastMessageAt)
	assert.Equal(t, 2, first[1].Sequence)

	stored, err := convs.FindByPublicID(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, 3, stored.MessageCount)
	assert.NotNil(t, stored.LastMessageAt)

	recent, err := messages.Recent(ctx, conv.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "m-2", recent[0].PublicID, "chronological order")
	assert.Equal(t, "m-3", recent[1].PublicID)
	assert.Equal(t, 3, recent[1].Sequence)
	assert.True(t, recent[0].Metadata.Partial)
	assert.Equal(t, "cost_estimate", recent[0].Metadata.Intent)

	after, err := messages.ListAfter(ctx, conv.ID, first[0].ID)
	require.NoError(t, err)
	assert.Len(t, after, 2)

	total, err := messages.Count(ctx, conv.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	page, err := messages.List(ctx, conv.ID, domain.Pagination{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "m-1", page[0].PublicID)
}

func TestAppendFallsBackToBaseColumns(t *testing.T) {
	db := openTestDB(t, false)
	require.NoError(t, db.AutoMigrate(&entities.Conversation{}))
	require.NoError(t, db.Exec(`CREATE TABLE messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		public_id TEXT NOT NULL,
		conversation_id INTEGER NOT NULL,
		sequence INTEGER,
		role TEXT NOT NULL,
		content TEXT,
		created_at DATETIME
	)`).Error)

	convs := NewRepository(db)
	messages := NewMessageRepository(db, zerolog.Nop())
	ctx := context.Background()
	conv := newConversation(t, convs, "c-1", nil)

	turn := []*domain.Message{
		{PublicID: "m-1", Role: domain.RoleUser, Content: "hi", Intent: "question"},
		{PublicID: "m-2", Role: domain.RoleAssistant, Content: "hello", Metadata: domain.Metadata{Intent: "question"}},
	}
	require.NoError(t, messages.Append(ctx, conv, turn))
	require.NoError(t, messages.Append(ctx, conv, []*domain.Message{{PublicID: "m-3", Role: domain.RoleUser, Content: "again"}}))

	recent, err := messages.Recent(ctx, conv.ID, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "hello", recent[1].Content)
	assert.Equal(t, domain.RoleAssistant, recent[1].Role)
	assert.Empty(t, recent[1].Metadata.Intent)
	assert.Equal(t, 3, conv.MessageCount)
}

func TestIsMissingColumn(t *testing.T) {
	cases := map[string]bool{
		`ERROR: column "intent" of relation "messages" does not exist (SQLSTATE 42703)`: true,
		"table messages has no column named metadata":                                   true,
		`relation "messages" does not exist`:                                            false,
		"duplicate key value violates unique constraint":                                false,
	}
	for msg, want := range cases {
		assert.Equal(t, want, IsMissingColumn(errString(msg)), msg)
	}
	assert.False(t, IsMissingColumn(nil))
}

type errString string

func (e errString) Error() string { return string(e) }

func TestDeleteCascades(t *testing.T) {
	db := openTestDB(t, true)
	convs := NewRepository(db)
	messages := NewMessageRepository(db, zerolog.Nop())
	summaries := NewSummaryRepository(db)
	workflows := NewWorkflowRepository(db)
	ctx := context.Background()

	conv := newConversation(t, convs, "c-1", nil)
	keep := newConversation(t, convs, "c-2", nil)
	require.NoError(t, messages.Append(ctx, conv, []*domain.Message{{PublicID: "m-1", Role: domain.RoleUser, Content: "x"}}))
	require.NoError(t, messages.Append(ctx, keep, []*domain.Message{{PublicID: "m-2", Role: domain.RoleUser, Content: "y"}}))
	require.NoError(t, summaries.Create(ctx, &domain.Summary{ConversationID: conv.ID, StartMessageID: 1, EndMessageID: 1, MessageCount: 1, SummaryText: "s"}))
	require.NoError(t, workflows.Upsert(ctx, &workflow.State{ConversationID: conv.ID, Stage: "planning", StageNumber: 2, TotalStages: 7}))

	require.NoError(t, convs.Delete(ctx, conv.ID))

	n, err := messages.Count(ctx, conv.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	latest, err := summaries.Latest(ctx, conv.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)
	state, err := workflows.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Nil(t, state)

	n, err = messages.Count(ctx, keep.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	err = convs.Delete(ctx, conv.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestActiveSince(t *testing.T) {
	db := openTestDB(t, true)
	convs := NewRepository(db)
	messages := NewMessageRepository(db, zerolog.Nop())
	ctx := context.Background()

	newConversation(t, convs, "quiet", nil)
	busy := newConversation(t, convs, "busy", nil)
	closed := newConversation(t, convs, "closed", nil)
	for _, c := range []*domain.Conversation{busy, closed} {
		require.NoError(t, messages.Append(ctx, c, []*domain.Message{{PublicID: "m-" + c.PublicID, Role: domain.RoleUser, Content: "x"}}))
	}
	closed.IsActive = false
	require.NoError(t, convs.Update(ctx, closed))

	got, err := convs.ActiveSince(ctx, time.Now().UTC().Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "busy", got[0].PublicID)

	got, err = convs.ActiveSince(ctx, time.Now().UTC().Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSummaries(t *testing.T) {
	db := openTestDB(t, true)
	summaries := NewSummaryRepository(db)
	ctx := context.Background()

	latest, err := summaries.Latest(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, summaries.Create(ctx, &domain.Summary{ConversationID: 1, StartMessageID: 1, EndMessageID: 20, MessageCount: 20, SummaryText: "first", KeyTopics: []string{"paint"}}))
	require.NoError(t, summaries.Create(ctx, &domain.Summary{ConversationID: 1, StartMessageID: 21, EndMessageID: 40, MessageCount: 20, SummaryText: "second"}))

	latest, err = summaries.Latest(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, uint(40), latest.EndMessageID)
	assert.Equal(t, []string{}, latest.KeyTopics)

	recent, err := summaries.Recent(ctx, 1, 5)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "second", recent[0].SummaryText, "newest first")
	assert.Equal(t, []string{"paint"}, recent[1].KeyTopics)
}

func TestWorkflowUpsert(t *testing.T) {
	db := openTestDB(t, true)
	repo := NewWorkflowRepository(db)
	svc := workflow.NewService(repo, zerolog.Nop())
	ctx := context.Background()

	state, err := repo.Get(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, state)

	_, err = svc.Advance(ctx, 7, "what should our budget be?")
	require.NoError(t, err)
	_, err = svc.Advance(ctx, 7, "we need a permit for this")
	require.NoError(t, err)
	_, err = svc.Advance(ctx, 7, "let's plan it")
	require.NoError(t, err)

	state, err = repo.Get(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "permits", state.Stage)
	assert.Equal(t, 5, state.StageNumber)
	assert.NotEmpty(t, state.NextSteps)

	var rows int64
	require.NoError(t, db.Model(&entities.WorkflowState{}).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
}
