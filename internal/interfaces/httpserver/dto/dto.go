// Package dto provides data transfer objects for HTTP requests.
package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/janhq/reno-server/internal/domain/chat"
	"github.com/janhq/reno-server/internal/domain/conversation"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	})
	return validate
}

// Validate checks the validate tags on v and returns a readable message for
// the first failing field.
func Validate(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "oneof":
		return fmt.Errorf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "max":
		return fmt.Errorf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Errorf("%s is invalid", field)
	}
}

// SendMessageRequest is the body of /chat/message and /chat/stream.
type SendMessageRequest struct {
	Message        string  `json:"message" form:"message" validate:"required,max=8000"`
	ConversationID string  `json:"conversation_id,omitempty" form:"conversation_id" validate:"max=64"`
	UserID         string  `json:"user_id,omitempty" form:"user_id" validate:"max=128"`
	HomeID         *string `json:"home_id,omitempty" form:"home_id" validate:"omitempty,max=64"`
	Persona        string  `json:"persona,omitempty" form:"persona" validate:"omitempty,oneof=homeowner diy_worker contractor"`
	Scenario       string  `json:"scenario,omitempty" form:"scenario" validate:"omitempty,oneof=contractor_quotes diy_project_plan"`
	Mode           string  `json:"mode,omitempty" form:"mode" validate:"omitempty,oneof=chat quick"`
}

// MultipartMessageRequest is the form of /chat/stream-multipart. The message
// may be empty when files are attached.
type MultipartMessageRequest struct {
	Message        string  `form:"message" validate:"max=8000"`
	ConversationID string  `form:"conversation_id" validate:"max=64"`
	UserID         string  `form:"user_id" validate:"max=128"`
	HomeID         *string `form:"home_id" validate:"omitempty,max=64"`
	Persona        string  `form:"persona" validate:"omitempty,oneof=homeowner diy_worker contractor"`
	Scenario       string  `form:"scenario" validate:"omitempty,oneof=contractor_quotes diy_project_plan"`
	Mode           string  `form:"mode" validate:"omitempty,oneof=chat quick"`
}

// ToDomain converts the request for the chat service.
func (r SendMessageRequest) ToDomain(userID string) chat.SendRequest {
	return chat.SendRequest{
		Message:        r.Message,
		ConversationID: strings.TrimSpace(r.ConversationID),
		UserID:         userID,
		HomeID:         r.HomeID,
		Persona:        conversation.Persona(r.Persona),
		Scenario:       conversation.Scenario(r.Scenario),
		Mode:           r.Mode,
	}
}

// ToDomain converts the form for the chat service.
func (r MultipartMessageRequest) ToDomain(userID string, uploads []chat.Upload) chat.SendRequest {
	req := SendMessageRequest{
		Message:        r.Message,
		ConversationID: r.ConversationID,
		HomeID:         r.HomeID,
		Persona:        r.Persona,
		Scenario:       r.Scenario,
		Mode:           r.Mode,
	}.ToDomain(userID)
	req.Uploads = uploads
	return req
}

// ExecuteActionRequest is the body of /chat/execute-action.
type ExecuteActionRequest struct {
	ConversationID string         `json:"conversation_id" validate:"required,max=64"`
	Action         string         `json:"action" validate:"required,max=64"`
	UserID         string         `json:"user_id,omitempty" validate:"max=128"`
	Context        map[string]any `json:"context,omitempty"`
}

// ToDomain converts the request for the chat service.
func (r ExecuteActionRequest) ToDomain(userID string) chat.ActionRequest {
	return chat.ActionRequest{
		ConversationID: strings.TrimSpace(r.ConversationID),
		UserID:         userID,
		Action:         strings.TrimSpace(r.Action),
		Context:        r.Context,
	}
}

// ListQuery holds page parameters shared by list endpoints.
type ListQuery struct {
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"page_size" validate:"omitempty,min=1,max=100"`
	UserID   string `form:"user_id" validate:"max=128"`
}

// Pagination converts the query for the conversation service.
func (q ListQuery) Pagination() conversation.Pagination {
	p := conversation.Pagination{Page: q.Page, PageSize: q.PageSize}
	p.Normalize()
	return p
}

// UpdateConversationRequest is the body of PUT /chat/conversations/:id.
// Omitted fields are left unchanged.
type UpdateConversationRequest struct {
	Title    *string `json:"title,omitempty" validate:"omitempty,max=200"`
	HomeID   *string `json:"home_id,omitempty" validate:"omitempty,max=64"`
	Persona  *string `json:"persona,omitempty" validate:"omitempty,oneof=homeowner diy_worker contractor"`
	Scenario *string `json:"scenario,omitempty" validate:"omitempty,oneof=contractor_quotes diy_project_plan"`
	IsActive *bool   `json:"is_active,omitempty"`
	UserID   string  `json:"user_id,omitempty" validate:"max=128"`
}

// ToDomain converts the request for the conversation service.
func (r UpdateConversationRequest) ToDomain() conversation.UpdateParams {
	params := conversation.UpdateParams{
		Title:    r.Title,
		HomeID:   r.HomeID,
		IsActive: r.IsActive,
	}
	if r.Persona != nil {
		p := conversation.Persona(*r.Persona)
		params.Persona = &p
	}
	if r.Scenario != nil {
		s := conversation.Scenario(*r.Scenario)
		params.Scenario = &s
	}
	return params
}
