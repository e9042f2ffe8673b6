// Package chat runs conversation turns: it classifies the message, gathers
// context, dispatches to a specialized agent, generates the reply and stores
// the turn.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/janhq/reno-server/internal/domain/action"
	"github.com/janhq/reno-server/internal/domain/agent"
	"github.com/janhq/reno-server/internal/domain/conversation"
	"github.com/janhq/reno-server/internal/domain/document"
	domainerrors "github.com/janhq/reno-server/internal/domain/errors"
	"github.com/janhq/reno-server/internal/domain/generation"
	"github.com/janhq/reno-server/internal/domain/homecontext"
	"github.com/janhq/reno-server/internal/domain/intent"
	"github.com/janhq/reno-server/internal/domain/memory"
	"github.com/janhq/reno-server/internal/domain/reference"
	"github.com/janhq/reno-server/internal/domain/skill"
	"github.com/janhq/reno-server/internal/domain/workflow"
	"github.com/janhq/reno-server/internal/utils/platformerrors"
)

const tracerName = "reno-api/chat"

// Config tunes the turn pipeline.
type Config struct {
	WindowMaxMessages  int
	WindowMaxSummaries int
	SummaryThreshold   int
	ContextTopK        int
	DefaultRegion      string
	PersistTimeout     time.Duration
	MemoryLimit        int
}

func (c Config) withDefaults() Config {
	if c.WindowMaxMessages <= 0 {
		c.WindowMaxMessages = 10
	}
	if c.WindowMaxSummaries <= 0 {
		c.WindowMaxSummaries = 3
	}
	if c.SummaryThreshold <= 0 {
		c.SummaryThreshold = conversation.DefaultSummaryThreshold
	}
	if c.ContextTopK <= 0 {
		c.ContextTopK = 8
	}
	if c.DefaultRegion == "" {
		c.DefaultRegion = "national"
	}
	if c.PersistTimeout <= 0 {
		c.PersistTimeout = 10 * time.Second
	}
	if c.MemoryLimit <= 0 {
		c.MemoryLimit = 10
	}
	return c
}

// Deps are the collaborators of the chat service. Locker, Homes, Memory,
// Workflow, Documents, Files and Metrics may be nil.
type Deps struct {
	Conversations conversation.Service
	Locker        conversation.Locker
	Classifier    IntentClassifier
	Assembler     ContextAssembler
	Homes         homecontext.Store
	Skills        *skill.Selector
	Memory        *memory.Service
	Workflow      *workflow.Service
	Agents        *agent.Registry
	Generator     *generation.Generator
	Suggester     *action.Suggester
	Documents     *document.Parser
	Files         FileStore
	Metrics       Metrics
}

// Service runs message and action turns.
type Service struct {
	deps   Deps
	cfg    Config
	tracer trace.Tracer
	log    zerolog.Logger
}

// NewService builds the chat service.
func NewService(deps Deps, cfg Config, log zerolog.Logger) *Service {
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}
	if deps.Suggester == nil {
		deps.Suggester = action.NewSuggester(action.DefaultDedupeWindow)
	}
	if deps.Agents == nil {
		deps.Agents = agent.NewRegistry()
	}
	return &Service{
		deps:   deps,
		cfg:    cfg.withDefaults(),
		tracer: otel.Tracer(tracerName),
		log:    log.With().Str("component", "chat-service").Logger(),
	}
}

// intentAgents maps an intent to the agent that handles it.
var intentAgents = map[intent.Intent]string{
	intent.CostEstimate:          agent.NameCost,
	intent.ProductRecommendation: agent.NameProduct,
	intent.DIYGuide:              agent.NameDIY,
	intent.DesignIdea:            agent.NameDesign,
	intent.DesignTransformation:  agent.NameDesign,
}

// turn carries the state of one request through the pipeline.
type turn struct {
	req      SendRequest
	mode     string
	conv     *conversation.Conversation
	original string
	// resolved is original with a pronoun rewritten; it only guides the reply.
	resolved string

	window      []conversation.WindowEntry
	intent      intent.Result
	bundle      homecontext.Bundle
	skills      string
	memory      string
	attachments []conversation.Attachment
	summaries   []homecontext.AttachmentSummary

	agent    *agent.Result
	images   []string
	workflow *workflow.State

	text    string
	partial bool

	mu       sync.Mutex
	degraded []string
}

func (t *turn) degrade(stage domainerrors.Stage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.degraded {
		if s == string(stage) {
			return
		}
	}
	t.degraded = append(t.degraded, string(stage))
}

func (t *turn) needsInput() bool {
	return t.agent != nil && t.agent.Status == agent.StatusNeedsInput
}

// SendMessage runs a full turn and returns the stored reply.
func (s *Service) SendMessage(ctx context.Context, req SendRequest) (*TurnResult, error) {
	return s.run(ctx, req, nil)
}

// StreamMessage runs a full turn, passing reply chunks to emit as they are
// produced and a complete event once the turn is stored. If emit fails the
// generation stops and whatever text was produced is stored as a partial
// turn.
func (s *Service) StreamMessage(ctx context.Context, req SendRequest, emit func(Event) error) (*TurnResult, error) {
	if emit == nil {
		return nil, errors.New("stream requires an emit callback")
	}
	return s.run(ctx, req, emit)
}

func (s *Service) run(ctx context.Context, req SendRequest, emit func(Event) error) (*TurnResult, error) {
	ctx, span := s.tracer.Start(ctx, "chat.turn", trace.WithAttributes(
		attribute.Bool("chat.stream", emit != nil),
		attribute.Int("chat.uploads", len(req.Uploads)),
	))
	defer span.End()

	t, err := s.validate(ctx, req)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	conv, created, err := s.deps.Conversations.Resolve(ctx, req.ConversationID, req.UserID, conversation.CreateParams{
		HomeID:       req.HomeID,
		Persona:      req.Persona,
		Scenario:     req.Scenario,
		FirstMessage: t.original,
	})
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	t.conv = conv
	span.SetAttributes(attribute.String("conversation.id", conv.PublicID), attribute.Bool("conversation.created", created))

	unlock, err := s.lock(ctx, conv.PublicID)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	defer unlock()

	s.prepare(ctx, t)
	if t.mode != ModeQuick {
		s.dispatch(ctx, t)
	}

	// The turn is stored even when the caller has gone away.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.PersistTimeout)
	defer cancel()

	if t.needsInput() {
		t.text = Clarification(*t.agent)
		if emit != nil {
			_ = emit(Event{Type: EventToken, Content: t.text})
		}
	} else {
		s.generate(ctx, t, emit)
	}

	suggestions := s.suggest(storeCtx, t)
	result, err := s.persist(storeCtx, t, suggestions)
	if err != nil {
		recordError(span, err)
		if emit != nil {
			_ = emit(Event{Type: EventError, Error: "failed to save the conversation turn"})
		}
		return nil, err
	}
	s.afterPersist(storeCtx, t, result)

	span.SetAttributes(
		attribute.String("chat.intent", string(t.intent.Intent)),
		attribute.String("chat.status", result.Status),
		attribute.StringSlice("chat.degraded_stages", result.Metadata.DegradedStages),
	)
	s.deps.Metrics.TurnCompleted(t.mode, result.Status)
	s.log.Info().
		Str("conversation_id", conv.PublicID).
		Str("intent", string(t.intent.Intent)).
		Str("intent_source", string(t.intent.Source)).
		Str("status", result.Status).
		Strs("degraded_stages", result.Metadata.DegradedStages).
		Bool("partial", t.partial).
		Msg("turn completed")

	if emit != nil {
		_ = emit(Event{Type: EventComplete, Message: result})
	}
	return result, nil
}

func (s *Service) validate(ctx context.Context, req SendRequest) (*turn, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" && len(req.Uploads) == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"message is required", nil, "6a1d3c9e-4b7f-4e2a-8d5c-0f9b2e7a1c31")
	}
	if message == "" {
		message = "Please take a look at the attached file."
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeChat
	}
	if mode != ModeChat && mode != ModeQuick {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			fmt.Sprintf("unsupported mode %q", req.Mode), nil, "b8e2f4a1-7c3d-4f6e-9a0b-2d5c8e1f4a32")
	}
	if !req.Persona.IsValid() || !req.Scenario.IsValid() {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"unsupported persona or scenario", nil, "3f7c1e9a-2b6d-4a8e-8c4f-1e0d9b7a2c33")
	}
	return &turn{req: req, mode: mode, original: message}, nil
}

func (s *Service) lock(ctx context.Context, publicID string) (func(), error) {
	if s.deps.Locker == nil {
		return func() {}, nil
	}
	unlock, err := s.deps.Locker.Lock(ctx, conversation.LockKey(publicID))
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict,
			"conversation is busy, try again shortly", err, "9d4b2e7f-1a8c-4c3e-b6f0-5e2a7d9c1b34")
	}
	return unlock, nil
}

// stage times fn as one pipeline stage.
func (s *Service) stage(ctx context.Context, stage domainerrors.Stage, fn func(ctx context.Context)) {
	ctx, span := s.tracer.Start(ctx, "chat."+string(stage))
	start := time.Now()
	fn(ctx)
	s.deps.Metrics.ObserveStage(string(stage), time.Since(start))
	span.End()
}

func (s *Service) degrade(t *turn, err *domainerrors.StageError) {
	t.degrade(err.Stage)
	s.deps.Metrics.StageDegraded(string(err.Stage))
	s.log.Warn().
		Err(err.Cause).
		Str("stage", string(err.Stage)).
		Str("severity", string(err.Severity)).
		Str("code", err.Code).
		Str("conversation_id", t.conv.PublicID).
		Msg(err.Message)
}

func (s *Service) prepare(ctx context.Context, t *turn) {
	t.window = s.deps.Conversations.BuildContextWindow(ctx, t.conv.ID, conversation.WindowOptions{
		MaxMessages:      s.cfg.WindowMaxMessages,
		IncludeSummaries: true,
		MaxSummaries:     s.cfg.WindowMaxSummaries,
	})

	s.stage(ctx, domainerrors.StageClassify, func(ctx context.Context) {
		t.intent = s.classify(ctx, t)
	})
	s.deps.Metrics.IntentClassified(t.intent.Intent, string(t.intent.Source))

	ref := reference.Resolve(t.original, referenceTurns(t.window))
	if ref.Changed {
		t.resolved = ref.Resolved
	}

	g, gctx := errgroup.WithContext(ctx)
	if s.deps.Assembler != nil {
		g.Go(func() error {
			s.stage(gctx, domainerrors.StageContext, func(ctx context.Context) {
				t.bundle = s.deps.Assembler.Assemble(ctx, t.conv.HomeID, t.original, s.cfg.ContextTopK, true)
			})
			return nil
		})
	}
	if s.deps.Skills != nil {
		g.Go(func() error {
			t.skills = s.deps.Skills.GetContext(t.intent.Intent, string(t.conv.Persona), string(t.conv.Scenario), t.original)
			return nil
		})
	}
	if s.deps.Memory != nil {
		g.Go(func() error {
			s.stage(gctx, domainerrors.StageMemory, func(ctx context.Context) {
				t.memory = s.deps.Memory.PromptBlock(ctx, memoryScope(t.conv), s.cfg.MemoryLimit)
			})
			return nil
		})
	}
	if t.intent.Intent == intent.RenovationWorkflow && s.deps.Workflow != nil {
		g.Go(func() error {
			s.stage(gctx, domainerrors.StageWorkflow, func(ctx context.Context) {
				s.loadWorkflow(ctx, t)
			})
			return nil
		})
	}
	if len(t.req.Uploads) > 0 {
		g.Go(func() error {
			s.stage(gctx, domainerrors.StageAttachment, func(ctx context.Context) {
				s.processUploads(ctx, t)
			})
			return nil
		})
	}
	_ = g.Wait()

	if len(t.summaries) > 0 {
		t.bundle = homecontext.MergeAttachments(t.bundle, t.summaries)
	}
}

// loadWorkflow reads the stored plan position and applies this message to it.
// The advanced state is written only after the turn is stored.
func (s *Service) loadWorkflow(ctx context.Context, t *turn) {
	current, err := s.deps.Workflow.Get(ctx, t.conv.ID)
	if err != nil {
		s.degrade(t, domainerrors.WrapSkippable(err, domainerrors.StageWorkflow, "workflow state unavailable"))
		return
	}
	t.workflow, _ = workflow.Next(t.conv.ID, current, t.original)
}

func (s *Service) classify(ctx context.Context, t *turn) intent.Result {
	if s.deps.Classifier == nil {
		return intent.Result{Intent: intent.Default, Source: intent.SourceDefault}
	}
	history := make([]intent.Turn, 0, len(t.window))
	for _, e := range t.window {
		if e.IsSummary() {
			continue
		}
		history = append(history, intent.Turn{Role: string(e.Role), Content: e.Content})
	}
	return s.deps.Classifier.Classify(ctx, t.original, history)
}

func (s *Service) processUploads(ctx context.Context, t *turn) {
	if s.deps.Files == nil {
		s.degrade(t, domainerrors.WrapSkippable(errNoFileStore, domainerrors.StageAttachment, "uploads dropped"))
		return
	}
	for _, u := range t.req.Uploads {
		stored, err := s.deps.Files.Save(ctx, u.Filename, u.ContentType, u.Data)
		if err != nil {
			s.degrade(t, domainerrors.WrapSkippable(err, domainerrors.StageAttachment, "failed to store upload"))
			continue
		}
		isImage := document.IsImage(stored.ContentType)
		att := conversation.Attachment{
			URL:         stored.URL,
			Filename:    stored.Filename,
			ContentType: stored.ContentType,
			Type:        attachmentType(isImage),
		}
		if s.deps.Documents != nil {
			analysis, err := s.deps.Documents.Analyze(ctx, u.Data, stored.ContentType, stored.Filename)
			if err != nil {
				s.degrade(t, domainerrors.WrapSkippable(err, domainerrors.StageAttachment, "failed to analyze upload"))
			} else {
				att.Summary = analysis.Summary
			}
		}
		t.attachments = append(t.attachments, att)
		t.summaries = append(t.summaries, homecontext.AttachmentSummary{
			URL:      att.URL,
			Filename: att.Filename,
			Summary:  att.Summary,
			IsImage:  isImage,
		})
	}
}

func attachmentType(isImage bool) string {
	if isImage {
		return "image"
	}
	return "document"
}

func (s *Service) dispatch(ctx context.Context, t *turn) {
	name, ok := intentAgents[t.intent.Intent]
	if !ok {
		return
	}
	a, ok := s.deps.Agents.Get(name)
	if !ok {
		return
	}
	req := s.agentRequest(ctx, t)

	var res agent.Result
	s.stage(ctx, domainerrors.StageAgent, func(ctx context.Context) {
		res = a.Process(ctx, req)
	})
	s.deps.Metrics.AgentOutcome(name, string(res.Status))
	t.agent = &res

	switch res.Status {
	case agent.StatusSuccess:
		if res.Kind == conversation.AgentResultDesign {
			t.images = imagesOf(res)
		}
	case agent.StatusError:
		stage := domainerrors.StageAgent
		if name == agent.NameDesign {
			stage = domainerrors.StageImages
		}
		s.degrade(t, domainerrors.WrapFallback(errors.New(res.Error), stage, name+" failed, answering without it"))
	}
}

func (s *Service) agentRequest(ctx context.Context, t *turn) agent.Request {
	fields := map[string]any{
		"project_scope": t.original,
		"prompt":        t.original,
	}
	if t.intent.Intent == intent.DesignTransformation {
		fields["mode"] = "transformation"
	}
	for _, att := range t.attachments {
		if att.Type == "image" {
			fields["image_url"] = att.URL
			break
		}
	}
	if t.intent.Intent == intent.ProductRecommendation {
		if category := DetectCategory(t.original); category != "" {
			fields["category"] = category
		}
		if roomID := s.inferRoom(ctx, t.conv.HomeID, t.original); roomID != "" {
			fields["room_id"] = roomID
		}
	}
	return agent.Request{
		ConversationID: t.conv.PublicID,
		UserID:         t.conv.UserID,
		HomeID:         t.conv.HomeID,
		Message:        t.original,
		Region:         s.region(ctx, t.conv.HomeID),
		ContextText:    t.bundle.ContextText,
		Fields:         fields,
	}
}

func (s *Service) region(ctx context.Context, homeID *string) string {
	if s.deps.Homes != nil && homeID != nil && *homeID != "" {
		if snap, err := s.deps.Homes.Snapshot(ctx, *homeID); err == nil && snap.Home.Region != "" {
			return snap.Home.Region
		}
	}
	return s.cfg.DefaultRegion
}

func (s *Service) inferRoom(ctx context.Context, homeID *string, message string) string {
	if s.deps.Homes == nil || homeID == nil || *homeID == "" {
		return ""
	}
	snap, err := s.deps.Homes.Snapshot(ctx, *homeID)
	if err != nil {
		s.log.Debug().Err(err).Str("home_id", *homeID).Msg("home lookup failed during room inference")
		return ""
	}
	return MatchRoom(snap.Rooms, message)
}

func (s *Service) generate(ctx context.Context, t *turn, emit func(Event) error) {
	in := generation.Input{
		Message:         t.original,
		Intent:          t.intent.Intent,
		Persona:         t.conv.Persona,
		Scenario:        t.conv.Scenario,
		Context:         t.bundle,
		SkillContext:    t.skills,
		MemoryBlock:     t.memory,
		Window:          t.window,
		ImagesShown:     len(t.images),
		ResolvedMessage: t.resolved,
	}
	if t.agent != nil && t.agent.OK() {
		in.AgentResult = t.agent
	}
	if t.workflow != nil {
		in.WorkflowStage = t.workflow.Stage
		in.NextSteps = t.workflow.NextSteps
	}

	var out generation.Output
	s.stage(ctx, domainerrors.StageGenerate, func(ctx context.Context) {
		if s.deps.Generator == nil {
			out = generation.Output{Text: generation.FallbackResponse, Degraded: true, Err: errors.New("no generator configured")}
			if emit != nil {
				_ = emit(Event{Type: EventToken, Content: out.Text})
			}
			return
		}
		if emit == nil {
			out = s.deps.Generator.Generate(ctx, in)
			return
		}
		out = s.deps.Generator.Stream(ctx, in, func(chunk string) error {
			if err := emit(Event{Type: EventToken, Content: chunk}); err != nil {
				return fmt.Errorf("%w: %v", generation.ErrStopped, err)
			}
			return nil
		})
	})

	t.text = out.Text
	t.partial = out.Partial
	if out.Degraded {
		s.degrade(t, domainerrors.WrapFallback(out.Err, domainerrors.StageGenerate, "reply generation degraded"))
	}
}

func (s *Service) suggest(ctx context.Context, t *turn) action.Suggestions {
	return s.deps.Suggester.Suggest(action.Input{
		Intent:      t.intent.Intent,
		Persona:     t.conv.Persona,
		AgentResult: t.agent,
		Recent:      s.recentAssistantMetadata(ctx, t),
	})
}

// recentAssistantMetadata returns the metadata of recent assistant turns,
// oldest first. The window already holds them unless the store lookup is
// needed for a window narrower than the dedupe window.
func (s *Service) recentAssistantMetadata(ctx context.Context, t *turn) []conversation.Metadata {
	var out []conversation.Metadata
	msgs, err := s.deps.Conversations.RecentMessages(ctx, t.conv.ID, s.deps.Suggester.Window()*2)
	if err != nil {
		s.log.Debug().Err(err).Msg("recent messages unavailable, using context window for suggestion dedupe")
		for _, e := range t.window {
			if e.Role == conversation.RoleAssistant && e.Metadata != nil {
				out = append(out, *e.Metadata)
			}
		}
		return out
	}
	for _, m := range msgs {
		if m.Role == conversation.RoleAssistant {
			out = append(out, m.Metadata)
		}
	}
	return out
}

func (s *Service) persist(ctx context.Context, t *turn, suggestions action.Suggestions) (*TurnResult, error) {
	now := time.Now().UTC()
	userMsg := &conversation.Message{
		Role:    conversation.RoleUser,
		Content: t.original,
		Intent:  t.intent.Intent,
		Metadata: conversation.Metadata{
			Intent:          string(t.intent.Intent),
			Attachments:     t.attachments,
			ResolvedMessage: t.resolved,
		},
	}

	status := StatusOK
	meta := conversation.Metadata{
		Intent:             string(t.intent.Intent),
		SuggestedActions:   suggestions.Actions,
		SuggestedQuestions: suggestions.Questions,
		Persona:            string(t.conv.Persona),
		Scenario:           string(t.conv.Scenario),
		GeneratedAt:        &now,
		ContextSources:     t.bundle.Metadata.Sources,
		Images:             t.images,
		Partial:            t.partial,
		ResolvedMessage:    t.resolved,
	}
	if s.deps.Generator != nil {
		meta.Model = s.deps.Generator.Model()
	}
	if t.needsInput() {
		status = StatusNeedsInput
		meta.MissingFields = t.agent.MissingFields
	}
	if t.agent != nil && t.agent.OK() {
		stored, err := t.agent.AgentResult()
		if err != nil {
			s.log.Warn().Err(err).Str("agent", t.agent.Agent).Msg("agent result not stored")
		} else {
			meta.AgentResult = stored
		}
	}
	if t.workflow != nil {
		meta.Workflow = &conversation.WorkflowProgress{
			Stage:       t.workflow.Stage,
			StageNumber: t.workflow.StageNumber,
			TotalStages: t.workflow.TotalStages,
			Progress:    t.workflow.Progress,
			NextSteps:   t.workflow.NextSteps,
		}
	}
	meta.DegradedStages = t.degradedStages()

	assistant := &conversation.Message{
		Role:     conversation.RoleAssistant,
		Content:  t.text,
		Intent:   t.intent.Intent,
		Metadata: meta,
	}

	var err error
	s.stage(ctx, domainerrors.StagePersist, func(ctx context.Context) {
		err = s.deps.Conversations.AppendTurn(ctx, t.conv, userMsg, assistant)
	})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to save the conversation turn")
	}

	return &TurnResult{
		ConversationID:     t.conv.PublicID,
		MessageID:          assistant.PublicID,
		UserMessageID:      userMsg.PublicID,
		Status:             status,
		Response:           t.text,
		Intent:             t.intent.Intent,
		SuggestedActions:   suggestions.Actions,
		SuggestedQuestions: suggestions.Questions,
		Images:             t.images,
		Metadata:           meta,
	}, nil
}

func (t *turn) degradedStages() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.degraded) == 0 {
		return nil
	}
	return append([]string(nil), t.degraded...)
}

// afterPersist runs the follow-up writes of a stored turn. Their failures are
// reported on the result but the stored turn stands.
func (s *Service) afterPersist(ctx context.Context, t *turn, result *TurnResult) {
	if t.workflow != nil {
		s.stage(ctx, domainerrors.StageWorkflow, func(ctx context.Context) {
			if _, err := s.deps.Workflow.Advance(ctx, t.conv.ID, t.original); err != nil {
				s.degrade(t, domainerrors.WrapSkippable(err, domainerrors.StageWorkflow, "workflow state not updated"))
			}
		})
	}

	if s.deps.Memory != nil && t.agent != nil && t.agent.OK() && t.agent.Kind == conversation.AgentResultCostEstimate {
		s.rememberEstimate(ctx, t, result.Metadata.AgentResult)
	}

	s.stage(ctx, domainerrors.StageSummary, func(ctx context.Context) {
		summary, err := s.deps.Conversations.MaybeGenerateSummary(ctx, t.conv.ID, s.cfg.SummaryThreshold)
		if err != nil {
			s.degrade(t, domainerrors.WrapSkippable(err, domainerrors.StageSummary, "summary not generated"))
			return
		}
		if summary != nil {
			s.deps.Metrics.SummaryCreated()
		}
	})

	result.Metadata.DegradedStages = t.degradedStages()
}

type estimateFact struct {
	ProjectType string `json:"project_type"`
	Region      string `json:"region"`
	TotalCost   string `json:"total_cost"`
	Range       struct {
		Low  string `json:"low"`
		High string `json:"high"`
	} `json:"range"`
	Confidence float64 `json:"confidence"`
}

func (s *Service) rememberEstimate(ctx context.Context, t *turn, stored *conversation.AgentResult) {
	if stored == nil {
		return
	}
	var est estimateFact
	if err := stored.Decode(&est); err != nil {
		s.log.Debug().Err(err).Msg("estimate payload not decodable for memory")
		return
	}
	err := s.deps.Memory.Remember(ctx, memoryScope(t.conv), memory.TopicEstimates, memory.KeyLastEstimate, est,
		agent.NameCost, est.Confidence)
	if err != nil {
		s.degrade(t, domainerrors.WrapSkippable(err, domainerrors.StageMemory, "estimate not remembered"))
	}
}

func memoryScope(conv *conversation.Conversation) memory.Scope {
	id := conv.ID
	return memory.Scope{UserID: conv.UserID, HomeID: conv.HomeID, ConversationID: &id}
}

func referenceTurns(window []conversation.WindowEntry) []reference.Turn {
	turns := make([]reference.Turn, 0, len(window))
	for _, e := range window {
		if e.IsSummary() {
			continue
		}
		turns = append(turns, reference.Turn{Role: string(e.Role), Content: e.Content})
	}
	return turns
}

func imagesOf(res agent.Result) []string {
	stored, err := res.AgentResult()
	if err != nil {
		return nil
	}
	var payload struct {
		Images []string `json:"images"`
	}
	if err := stored.Decode(&payload); err != nil {
		return nil
	}
	return payload.Images
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
