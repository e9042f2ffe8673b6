// Package workflow tracks progress through a multi-stage renovation plan.
package workflow

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// State is the persisted workflow record for one conversation.
type State struct {
	ConversationID uint      `json:"-"`
	Stage          string    `json:"stage"`
	StageNumber    int       `json:"stage_number"`
	TotalStages    int       `json:"total_stages"`
	Progress       float64   `json:"progress"`
	NextSteps      []string  `json:"next_steps"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Stage is one step of the renovation plan.
type Stage struct {
	Name      string
	Keywords  []string
	NextSteps []string
}

// Stages is the ordered renovation plan.
var Stages = []Stage{
	{
		Name:      "assessment",
		Keywords:  []string{"assess", "inspect", "evaluate", "condition", "where do i start", "where should i start"},
		NextSteps: []string{"Walk through each room and note problem areas", "Measure the rooms you want to change", "List must-haves versus nice-to-haves"},
	},
	{
		Name:      "planning",
		Keywords:  []string{"plan", "scope", "timeline", "phase", "schedule"},
		NextSteps: []string{"Write down the project scope per room", "Decide which work is DIY and which needs a pro", "Sketch a rough timeline"},
	},
	{
		Name:      "budgeting",
		Keywords:  []string{"budget", "cost", "financ", "quote", "afford"},
		NextSteps: []string{"Get a detailed estimate for each room", "Add a 10-20% contingency", "Collect at least three contractor quotes"},
	},
	{
		Name:      "design",
		Keywords:  []string{"design", "layout", "style", "color", "colour", "material"},
		NextSteps: []string{"Pick a style direction", "Choose finishes and fixtures", "Confirm products fit the room dimensions"},
	},
	{
		Name:      "permits",
		Keywords:  []string{"permit", "building code", "hoa", "approval"},
		NextSteps: []string{"Check which work needs a permit locally", "Submit permit applications", "Schedule required inspections"},
	},
	{
		Name:      "execution",
		Keywords:  []string{"demo", "demolition", "install", "construction", "start work", "hire"},
		NextSteps: []string{"Order materials with lead times in mind", "Protect floors and adjacent rooms", "Track progress against the timeline"},
	},
	{
		Name:      "finishing",
		Keywords:  []string{"finish", "trim", "touch up", "punch list", "final walkthrough", "clean up"},
		NextSteps: []string{"Walk the punch list with your contractor", "Keep receipts and warranties", "Schedule the final inspection"},
	},
}

// Repository persists workflow state.
type Repository interface {
	// Get returns nil without error when no state exists.
	Get(ctx context.Context, conversationID uint) (*State, error)
	Upsert(ctx context.Context, state *State) error
	Delete(ctx context.Context, conversationID uint) error
}

// Service advances workflow state. Progress never decreases and applying the
// same message twice leaves the state unchanged.
type Service struct {
	repo Repository
	log  zerolog.Logger
}

// NewService builds the workflow service.
func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log.With().Str("component", "workflow").Logger()}
}

// Get returns the current state or nil.
func (s *Service) Get(ctx context.Context, conversationID uint) (*State, error) {
	return s.repo.Get(ctx, conversationID)
}

// Advance applies message to the conversation's workflow and returns the
// resulting state. It writes only when the state changes.
func (s *Service) Advance(ctx context.Context, conversationID uint, message string) (*State, error) {
	current, err := s.repo.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	next, changed := Next(conversationID, current, message)
	if !changed {
		return current, nil
	}
	if err := s.repo.Upsert(ctx, next); err != nil {
		return nil, err
	}
	s.log.Debug().
		Uint("conversation_id", conversationID).
		Str("stage", next.Stage).
		Float64("progress", next.Progress).
		Msg("workflow advanced")
	return next, nil
}

// Next returns the state message moves current to without storing it. The
// boolean is false when current is returned unchanged.
func Next(conversationID uint, current *State, message string) (*State, bool) {
	detected := DetectStage(message)
	if current != nil && detected <= current.StageNumber {
		return current, false
	}
	if detected < 1 {
		detected = 1
	}
	return stateFor(conversationID, detected), true
}

// DetectStage returns the highest 1-based stage whose keywords appear in
// message, or 0 when none do.
func DetectStage(message string) int {
	lower := strings.ToLower(message)
	for i := len(Stages) - 1; i >= 0; i-- {
		for _, kw := range Stages[i].Keywords {
			if strings.Contains(lower, kw) {
				return i + 1
			}
		}
	}
	return 0
}

func stateFor(conversationID uint, number int) *State {
	if number > len(Stages) {
		number = len(Stages)
	}
	stage := Stages[number-1]
	steps := make([]string, len(stage.NextSteps))
	copy(steps, stage.NextSteps)
	return &State{
		ConversationID: conversationID,
		Stage:          stage.Name,
		StageNumber:    number,
		TotalStages:    len(Stages),
		Progress:       float64(number) / float64(len(Stages)),
		NextSteps:      steps,
		UpdatedAt:      time.Now().UTC(),
	}
}
