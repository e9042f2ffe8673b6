package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/janhq/reno-server/internal/utils/idgen"
	"github.com/janhq/reno-server/internal/utils/platformerrors"
)

// Summary thresholds.
const (
	DefaultSummaryThreshold = 20
	MinSummaryMessages      = 5
)

// Service defines conversation lifecycle, history and summary operations.
type Service interface {
	Create(ctx context.Context, params CreateParams) (*Conversation, error)
	// Resolve loads the conversation named by publicID, or creates a new one
	// when publicID is empty. Non-empty params fields update the conversation.
	Resolve(ctx context.Context, publicID, userID string, params CreateParams) (*Conversation, bool, error)
	Get(ctx context.Context, publicID, userID string) (*Conversation, error)
	List(ctx context.Context, userID string, pagination Pagination) ([]*Conversation, int64, error)
	Update(ctx context.Context, publicID, userID string, params UpdateParams) (*Conversation, error)
	Delete(ctx context.Context, publicID, userID string) error
	Messages(ctx context.Context, publicID, userID string, pagination Pagination) ([]*Message, error)

	// AppendTurn persists messages in order. Callers hold the conversation lock.
	AppendTurn(ctx context.Context, conversation *Conversation, messages ...*Message) error
	RecentMessages(ctx context.Context, conversationID uint, limit int) ([]*Message, error)
	BuildContextWindow(ctx context.Context, conversationID uint, opts WindowOptions) []WindowEntry
	MaybeGenerateSummary(ctx context.Context, conversationID uint, threshold int) (*Summary, error)
}

// CreateParams describes a new conversation or the per-turn overrides sent
// with a message.
type CreateParams struct {
	UserID       *string
	HomeID       *string
	Persona      Persona
	Scenario     Scenario
	Title        string
	FirstMessage string
}

// UpdateParams holds the mutable conversation fields. Nil means unchanged.
type UpdateParams struct {
	Title    *string
	HomeID   *string
	Persona  *Persona
	Scenario *Scenario
	IsActive *bool
}

// WindowOptions tune BuildContextWindow.
type WindowOptions struct {
	MaxMessages      int
	IncludeSummaries bool
	MaxSummaries     int
}

// LockKey names the per-conversation write lock.
func LockKey(publicID string) string {
	return "conversation:" + publicID
}

func summaryLockKey(conversationID uint) string {
	return fmt.Sprintf("conversation-summary:%d", conversationID)
}

type service struct {
	conversations Repository
	messages      MessageRepository
	summaries     SummaryRepository
	generator     SummaryGenerator
	locker        Locker
	log           zerolog.Logger
}

// NewService wires the conversation service. locker may be nil.
func NewService(
	conversations Repository,
	messages MessageRepository,
	summaries SummaryRepository,
	generator SummaryGenerator,
	locker Locker,
	log zerolog.Logger,
) Service {
	return &service{
		conversations: conversations,
		messages:      messages,
		summaries:     summaries,
		generator:     generator,
		locker:        locker,
		log:           log.With().Str("component", "conversation-service").Logger(),
	}
}

func (s *service) Create(ctx context.Context, params CreateParams) (*Conversation, error) {
	if err := validatePersonaScenario(ctx, params.Persona, params.Scenario); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		title = TitleFromMessage(params.FirstMessage)
	}
	conv := &Conversation{
		PublicID: uuid.NewString(),
		UserID:   nonEmpty(params.UserID),
		HomeID:   nonEmpty(params.HomeID),
		Title:    title,
		Persona:  params.Persona,
		Scenario: params.Scenario,
		IsActive: true,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}
	s.log.Debug().Str("conversation_id", conv.PublicID).Msg("conversation created")
	return conv, nil
}

func (s *service) Resolve(ctx context.Context, publicID, userID string, params CreateParams) (*Conversation, bool, error) {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		if userID != "" && params.UserID == nil {
			params.UserID = &userID
		}
		conv, err := s.Create(ctx, params)
		return conv, true, err
	}

	conv, err := s.Get(ctx, publicID, userID)
	if err != nil {
		return nil, false, err
	}
	if err := validatePersonaScenario(ctx, params.Persona, params.Scenario); err != nil {
		return nil, false, err
	}

	changed := false
	if h := nonEmpty(params.HomeID); h != nil && (conv.HomeID == nil || *conv.HomeID != *h) {
		conv.HomeID = h
		changed = true
	}
	if params.Persona != "" && params.Persona != conv.Persona {
		conv.Persona = params.Persona
		changed = true
	}
	if params.Scenario != "" && params.Scenario != conv.Scenario {
		conv.Scenario = params.Scenario
		changed = true
	}
	if changed {
		if err := s.conversations.Update(ctx, conv); err != nil {
			return nil, false, err
		}
	}
	return conv, false, nil
}

func (s *service) Get(ctx context.Context, publicID, userID string) (*Conversation, error) {
	if _, err := uuid.Parse(publicID); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			fmt.Sprintf("malformed conversation id: %s", publicID), nil, "6f0b5b0e-8f7a-4a43-9f0e-2d6f0f3b1a01")
	}
	conv, err := s.conversations.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if !conv.AccessibleBy(userID) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden,
			"conversation belongs to another user", nil, "0d7c3b61-2e4b-4c55-8a0b-7f4e9c2d3b02")
	}
	return conv, nil
}

func (s *service) List(ctx context.Context, userID string, pagination Pagination) ([]*Conversation, int64, error) {
	pagination.Normalize()
	filter := Filter{}
	if userID != "" {
		filter.UserID = &userID
	} else {
		anonymous := ""
		filter.UserID = &anonymous
	}
	items, err := s.conversations.List(ctx, filter, pagination)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.conversations.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *service) Update(ctx context.Context, publicID, userID string, params UpdateParams) (*Conversation, error) {
	conv, err := s.Get(ctx, publicID, userID)
	if err != nil {
		return nil, err
	}
	if params.Title != nil {
		title := strings.TrimSpace(*params.Title)
		if title == "" {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
				"title cannot be empty", nil, "9a3e6c1f-4b7d-4e0a-b5c2-1d8f7e6a5b03")
		}
		conv.Title = title
	}
	if params.HomeID != nil {
		conv.HomeID = nonEmpty(params.HomeID)
	}
	if params.Persona != nil {
		if !params.Persona.IsValid() {
			return nil, invalidPersona(ctx, *params.Persona)
		}
		conv.Persona = *params.Persona
	}
	if params.Scenario != nil {
		if !params.Scenario.IsValid() {
			return nil, invalidScenario(ctx, *params.Scenario)
		}
		conv.Scenario = *params.Scenario
	}
	if params.IsActive != nil {
		conv.IsActive = *params.IsActive
	}
	if err := s.conversations.Update(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *service) Delete(ctx context.Context, publicID, userID string) error {
	conv, err := s.Get(ctx, publicID, userID)
	if err != nil {
		return err
	}
	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, LockKey(conv.PublicID))
		if err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to lock conversation for deletion")
		}
		defer unlock()
	}
	return s.conversations.Delete(ctx, conv.ID)
}

func (s *service) Messages(ctx context.Context, publicID, userID string, pagination Pagination) ([]*Message, error) {
	conv, err := s.Get(ctx, publicID, userID)
	if err != nil {
		return nil, err
	}
	pagination.Normalize()
	return s.messages.List(ctx, conv.ID, pagination)
}

func (s *service) AppendTurn(ctx context.Context, conv *Conversation, messages ...*Message) error {
	if len(messages) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, m := range messages {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
				fmt.Sprintf("unsupported message role %q", m.Role), nil, "1c6f2e8d-7a4b-4f9e-8c3d-5b2a1e0f9c04")
		}
		if err := m.Metadata.Validate(); err != nil {
			return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
				"invalid message metadata", err, "4e8b1a7c-2d5f-4c3b-9a6e-0f7d8c9b2a05")
		}
		if m.PublicID == "" {
			m.PublicID = idgen.New(idgen.PrefixMessage)
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		m.ConversationID = conv.ID
	}
	return s.messages.Append(ctx, conv, messages)
}

func (s *service) RecentMessages(ctx context.Context, conversationID uint, limit int) ([]*Message, error) {
	if limit <= 0 {
		return []*Message{}, nil
	}
	return s.messages.Recent(ctx, conversationID, limit)
}

// BuildContextWindow returns summaries (oldest first) followed by the most
// recent messages in chronological order. A summary lookup failure degrades
// to messages only, and a message lookup failure to an empty window.
func (s *service) BuildContextWindow(ctx context.Context, conversationID uint, opts WindowOptions) []WindowEntry {
	window := make([]WindowEntry, 0, opts.MaxMessages+opts.MaxSummaries)

	if opts.IncludeSummaries && opts.MaxSummaries > 0 {
		summaries, err := s.summaries.Recent(ctx, conversationID, opts.MaxSummaries)
		if err != nil {
			s.log.Warn().Err(err).Uint("conversation_id", conversationID).Msg("summary lookup failed, building window from messages only")
		} else {
			for i := len(summaries) - 1; i >= 0; i-- {
				sm := summaries[i]
				window = append(window, WindowEntry{
					Role:      RoleSystem,
					Type:      EntryTypeSummary,
					Content:   sm.SummaryText,
					KeyTopics: sm.KeyTopics,
					CreatedAt: sm.CreatedAt,
				})
			}
		}
	}

	if opts.MaxMessages <= 0 {
		return window
	}
	recent, err := s.messages.Recent(ctx, conversationID, opts.MaxMessages)
	if err != nil {
		s.log.Warn().Err(err).Uint("conversation_id", conversationID).Msg("message lookup failed, using empty window")
		return window
	}
	for _, m := range recent {
		md := m.Metadata
		window = append(window, WindowEntry{
			Role:      m.Role,
			Content:   m.Content,
			Metadata:  &md,
			CreatedAt: m.CreatedAt,
		})
	}
	return window
}

// MaybeGenerateSummary creates one summary over every message not covered by
// an earlier summary, once at least threshold such messages exist. It returns
// nil when nothing was created.
func (s *service) MaybeGenerateSummary(ctx context.Context, conversationID uint, threshold int) (*Summary, error) {
	if threshold <= 0 {
		threshold = DefaultSummaryThreshold
	}
	if s.generator == nil {
		return nil, nil
	}

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, summaryLockKey(conversationID))
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	total, err := s.messages.Count(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if total < int64(max(MinSummaryMessages, threshold)) {
		return nil, nil
	}

	latest, err := s.summaries.Latest(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	var coveredThrough uint
	if latest != nil {
		coveredThrough = latest.EndMessageID
	}

	uncovered, err := s.messages.ListAfter(ctx, conversationID, coveredThrough)
	if err != nil {
		return nil, err
	}
	if len(uncovered) < threshold {
		return nil, nil
	}

	text, topics, err := s.generator.Summarize(ctx, uncovered)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		ConversationID: conversationID,
		StartMessageID: uncovered[0].ID,
		EndMessageID:   uncovered[len(uncovered)-1].ID,
		MessageCount:   len(uncovered),
		SummaryText:    text,
		KeyTopics:      topics,
	}
	if err := s.summaries.Create(ctx, summary); err != nil {
		return nil, err
	}
	s.log.Info().
		Uint("conversation_id", conversationID).
		Uint("start_message_id", summary.StartMessageID).
		Uint("end_message_id", summary.EndMessageID).
		Int("message_count", summary.MessageCount).
		Msg("conversation summary created")
	return summary, nil
}

func validatePersonaScenario(ctx context.Context, persona Persona, scenario Scenario) error {
	if !persona.IsValid() {
		return invalidPersona(ctx, persona)
	}
	if !scenario.IsValid() {
		return invalidScenario(ctx, scenario)
	}
	return nil
}

func invalidPersona(ctx context.Context, p Persona) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
		fmt.Sprintf("unknown persona %q", p), nil, "7b2d9e4a-1c6f-4a8b-b3e5-2f9c0d1e8a06")
}

func invalidScenario(ctx context.Context, sc Scenario) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
		fmt.Sprintf("unknown scenario %q", sc), nil, "3f9a0c2b-6d8e-4b1f-a7c4-9e5d2b3f1c07")
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
