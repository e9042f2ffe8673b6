// Package errors defines error types and classification for turn stages.
package errors

import (
	"context"
	"errors"
	"fmt"

	"github.com/janhq/reno-server/internal/utils/jsonextract"
)

// Severity indicates how a stage failure should be handled.
type Severity string

const (
	SeverityRetryable Severity = "retryable" // Retry with backoff
	SeverityFallback  Severity = "fallback"  // Substitute the stage's fallback value
	SeveritySkippable Severity = "skippable" // Skip the stage, continue the turn
	SeverityFatal     Severity = "fatal"     // Abort the turn
)

// IsRetryable returns true if the error can be retried.
func (s Severity) IsRetryable() bool {
	return s == SeverityRetryable
}

// IsFatal returns true if the error should abort the turn.
func (s Severity) IsFatal() bool {
	return s == SeverityFatal
}

// Stage names a step of a conversation turn.
type Stage string

const (
	StageValidate   Stage = "validate_input"
	StageClassify   Stage = "classify_intent"
	StageContext    Stage = "retrieve_context"
	StageAgent      Stage = "dispatch_agent"
	StageGenerate   Stage = "generate_response"
	StageSuggest    Stage = "suggest_actions"
	StagePersist    Stage = "persist_turn"
	StageWorkflow   Stage = "update_workflow_state"
	StageSummary    Stage = "summarize"
	StageReference  Stage = "resolve_reference"
	StageAttachment Stage = "analyze_attachments"
	StageImages     Stage = "generate_images"
	StageMemory     Stage = "load_memory"
)

// StageError represents an error that occurred while running a turn stage.
type StageError struct {
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Stage    Stage          `json:"stage"`
	Severity Severity       `json:"severity"`
	Cause    error          `json:"-"`
	Details  map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s[%s]: %s (caused by: %v)", e.Code, e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s[%s]: %s", e.Code, e.Stage, e.Message)
}

// Unwrap returns the underlying cause.
func (e *StageError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns true if the error can be retried.
func (e *StageError) IsRetryable() bool {
	return e.Severity.IsRetryable()
}

// IsFatal returns true if the error should abort the turn.
func (e *StageError) IsFatal() bool {
	return e.Severity.IsFatal()
}

// WithDetails adds additional details to the error.
func (e *StageError) WithDetails(details map[string]any) *StageError {
	e.Details = details
	return e
}

// Common error codes.
const (
	ErrCodeTimeout       = "TIMEOUT"
	ErrCodeRateLimit     = "RATE_LIMIT"
	ErrCodeProviderError = "PROVIDER_ERROR"
	ErrCodeParseFailed   = "PARSE_FAILED"
	ErrCodeNonCritical   = "NON_CRITICAL"
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeSchemaDrift   = "SCHEMA_DRIFT"
	ErrCodeSystemError   = "SYSTEM_ERROR"
)

// Wrap wraps an error with stage context.
func Wrap(err error, stage Stage, code, message string, severity Severity) *StageError {
	return &StageError{
		Code:     code,
		Message:  message,
		Stage:    stage,
		Severity: severity,
		Cause:    err,
	}
}

// WrapFallback wraps an error whose stage has a fallback value.
func WrapFallback(err error, stage Stage, message string) *StageError {
	return Wrap(err, stage, ErrCodeProviderError, message, SeverityFallback)
}

// WrapSkippable wraps an error for an optional stage.
func WrapSkippable(err error, stage Stage, message string) *StageError {
	return Wrap(err, stage, ErrCodeNonCritical, message, SeveritySkippable)
}

// WrapFatal wraps an error that must abort the turn.
func WrapFatal(err error, stage Stage, message string) *StageError {
	return Wrap(err, stage, ErrCodeSystemError, message, SeverityFatal)
}

// Classifier classifies errors into severity levels.
type Classifier struct {
	rules []ClassificationRule
}

// ClassificationRule defines a rule for classifying errors.
type ClassificationRule struct {
	Match    func(error) bool
	Severity Severity
}

// NewClassifier creates a new error classifier with default rules.
func NewClassifier() *Classifier {
	c := &Classifier{}
	c.addDefaultRules()
	return c
}

func (c *Classifier) addDefaultRules() {
	// A cancelled caller cannot be served by retrying.
	c.rules = append(c.rules, ClassificationRule{
		Match:    func(err error) bool { return errors.Is(err, context.Canceled) },
		Severity: SeverityFatal,
	})

	c.rules = append(c.rules, ClassificationRule{
		Match:    func(err error) bool { return errors.Is(err, context.DeadlineExceeded) },
		Severity: SeverityRetryable,
	})

	// Malformed model output is not fixed by asking again with the same prompt
	// often enough to justify the latency; use the fallback value instead.
	c.rules = append(c.rules, ClassificationRule{
		Match: func(err error) bool {
			var pe *jsonextract.ParseError
			return errors.As(err, &pe)
		},
		Severity: SeverityFallback,
	})
}

// AddRule adds a classification rule.
func (c *Classifier) AddRule(rule ClassificationRule) {
	c.rules = append(c.rules, rule)
}

// Classify determines the severity of an error.
func (c *Classifier) Classify(err error) Severity {
	if err == nil {
		return ""
	}

	var se *StageError
	if errors.As(err, &se) {
		return se.Severity
	}

	for _, rule := range c.rules {
		if rule.Match(err) {
			return rule.Severity
		}
	}

	return SeverityRetryable
}
