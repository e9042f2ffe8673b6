// Package responses shapes domain objects for HTTP replies.
package responses

import (
	"time"

	"github.com/janhq/reno-server/internal/domain/conversation"
	"github.com/janhq/reno-server/internal/utils/platformerrors"
)

// ErrorResponse documents the error envelope.
type ErrorResponse = platformerrors.HTTPErrorResponse

// ConversationResponse is one conversation.
type ConversationResponse struct {
	ID            string     `json:"id"`
	UserID        *string    `json:"user_id,omitempty"`
	HomeID        *string    `json:"home_id,omitempty"`
	Title         string     `json:"title"`
	Persona       string     `json:"persona,omitempty"`
	Scenario      string     `json:"scenario,omitempty"`
	MessageCount  int        `json:"message_count"`
	IsActive      bool       `json:"is_active"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ConversationListResponse is a page of conversations.
type ConversationListResponse struct {
	Data     []ConversationResponse `json:"data"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"page_size"`
	Total    int64                  `json:"total"`
}

// MessageResponse is one stored turn.
type MessageResponse struct {
	ID        string                `json:"id"`
	Sequence  int                   `json:"sequence"`
	Role      string                `json:"role"`
	Content   string                `json:"content"`
	Intent    string                `json:"intent,omitempty"`
	Metadata  conversation.Metadata `json:"metadata"`
	CreatedAt time.Time             `json:"created_at"`
}

// MessageListResponse is a page of turns in replay order.
type MessageListResponse struct {
	ConversationID string            `json:"conversation_id"`
	Data           []MessageResponse `json:"data"`
	Page           int               `json:"page"`
	PageSize       int               `json:"page_size"`
}

// DeletedResponse confirms a delete.
type DeletedResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func NewConversationResponse(c *conversation.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:            c.PublicID,
		UserID:        c.UserID,
		HomeID:        c.HomeID,
		Title:         c.Title,
		Persona:       string(c.Persona),
		Scenario:      string(c.Scenario),
		MessageCount:  c.MessageCount,
		IsActive:      c.IsActive,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func NewConversationListResponse(convs []*conversation.Conversation, total int64, p conversation.Pagination) ConversationListResponse {
	data := make([]ConversationResponse, 0, len(convs))
	for _, c := range convs {
		data = append(data, NewConversationResponse(c))
	}
	return ConversationListResponse{Data: data, Page: p.Page, PageSize: p.PageSize, Total: total}
}

func NewMessageResponse(m *conversation.Message) MessageResponse {
	return MessageResponse{
		ID:        m.PublicID,
		Sequence:  m.Sequence,
		Role:      string(m.Role),
		Content:   m.Content,
		Intent:    string(m.Intent),
		Metadata:  m.Metadata,
		CreatedAt: m.CreatedAt,
	}
}

func NewMessageListResponse(conversationID string, msgs []*conversation.Message, p conversation.Pagination) MessageListResponse {
	data := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		data = append(data, NewMessageResponse(m))
	}
	return MessageListResponse{ConversationID: conversationID, Data: data, Page: p.Page, PageSize: p.PageSize}
}
