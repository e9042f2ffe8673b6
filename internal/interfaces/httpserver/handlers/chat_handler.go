// Package handlers implements the HTTP endpoints of the reno API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/reno-server/internal/config"
	"github.com/janhq/reno-server/internal/domain/chat"
	"github.com/janhq/reno-server/internal/infrastructure/auth"
	"github.com/janhq/reno-server/internal/interfaces/httpserver/dto"
	"github.com/janhq/reno-server/internal/interfaces/httpserver/middleware"
	"github.com/janhq/reno-server/internal/utils/platformerrors"
)

// ChatService runs conversation turns.
type ChatService interface {
	SendMessage(ctx context.Context, req chat.SendRequest) (*chat.TurnResult, error)
	StreamMessage(ctx context.Context, req chat.SendRequest, emit func(chat.Event) error) (*chat.TurnResult, error)
	ExecuteAction(ctx context.Context, req chat.ActionRequest) (*chat.TurnResult, error)
}

// StreamGauge tracks open streams.
type StreamGauge interface {
	StreamOpened()
	StreamClosed()
}

type noopGauge struct{}

func (noopGauge) StreamOpened() {}
func (noopGauge) StreamClosed() {}

// multipartOverhead covers form fields and part headers.
const multipartOverhead = 1 << 20

// ChatHandler serves the chat endpoints.
type ChatHandler struct {
	chat     ChatService
	streams  StreamGauge
	maxFiles int
	maxBytes int64
	log      zerolog.Logger
}

func NewChatHandler(svc ChatService, streams StreamGauge, cfg *config.Config, log zerolog.Logger) *ChatHandler {
	if streams == nil {
		streams = noopGauge{}
	}
	maxFiles, maxBytes := cfg.MaxUploadFiles, cfg.MaxUploadBytes
	if maxFiles <= 0 {
		maxFiles = 5
	}
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &ChatHandler{
		chat:     svc,
		streams:  streams,
		maxFiles: maxFiles,
		maxBytes: maxBytes,
		log:      log.With().Str("handler", "chat").Logger(),
	}
}

// PostMessage
// @Summary Send a chat message
// @Description Runs one conversation turn and returns the stored assistant reply. A new conversation is created when conversation_id is omitted. Model failures degrade the reply instead of failing the request.
// @Tags Chat API
// @Accept json
// @Produce json
// @Param request body dto.SendMessageRequest true "Message"
// @Success 200 {object} chat.TurnResult
// @Failure 400 {object} responses.ErrorResponse "Invalid request"
// @Failure 403 {object} responses.ErrorResponse "Conversation belongs to another user"
// @Failure 404 {object} responses.ErrorResponse "Conversation not found"
// @Failure 409 {object} responses.ErrorResponse "Conversation busy"
// @Router /v1/chat/message [post]
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var body dto.SendMessageRequest
	if !bindJSON(c, &body) {
		return
	}
	result, err := h.chat.SendMessage(c.Request.Context(), body.ToDomain(callerID(c, body.UserID)))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, result)
}

// PostStream
// @Summary Stream a chat message
// @Description Runs one conversation turn as Server Sent Events. Each event is `data: {json}`: `token` events carry reply chunks, a `complete` event carries the stored turn, an `error` event reports a failure. The stream ends with `data: [DONE]`. If the client disconnects the partial reply is stored.
// @Tags Chat API
// @Accept json
// @Produce text/event-stream
// @Param request body dto.SendMessageRequest true "Message"
// @Success 200 {string} string "SSE stream"
// @Failure 400 {object} responses.ErrorResponse "Invalid request"
// @Failure 404 {object} responses.ErrorResponse "Conversation not found"
// @Router /v1/chat/stream [post]
func (h *ChatHandler) PostStream(c *gin.Context) {
	var body dto.SendMessageRequest
	if !bindJSON(c, &body) {
		return
	}
	h.stream(c, body.ToDomain(callerID(c, body.UserID)))
}

// PostStreamMultipart
// @Summary Stream a chat message with attachments
// @Description Same as /v1/chat/stream but accepts a multipart form. Files in `files` are stored under the uploads directory and analysed before the reply is generated. The message may be empty when files are attached.
// @Tags Chat API
// @Accept multipart/form-data
// @Produce text/event-stream
// @Param message formData string false "Message"
// @Param conversation_id formData string false "Conversation id"
// @Param home_id formData string false "Home id"
// @Param persona formData string false "homeowner, diy_worker or contractor"
// @Param scenario formData string false "contractor_quotes or diy_project_plan"
// @Param mode formData string false "chat or quick"
// @Param files formData file false "Attachments (images, PDF, documents)"
// @Success 200 {string} string "SSE stream"
// @Failure 400 {object} responses.ErrorResponse "Invalid request or attachment"
// @Router /v1/chat/stream-multipart [post]
func (h *ChatHandler) PostStreamMultipart(c *gin.Context) {
	limit := int64(h.maxFiles)*h.maxBytes + multipartOverhead
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	var form dto.MultipartMessageRequest
	if err := c.ShouldBind(&form); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			platformerrors.WriteValidationError(c, "request body too large")
			return
		}
		platformerrors.WriteValidationError(c, "invalid form data")
		return
	}
	if err := dto.Validate(form); err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return
	}

	uploads, err := h.readUploads(c)
	if err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return
	}
	h.stream(c, form.ToDomain(callerID(c, form.UserID), uploads))
}

// PostExecuteAction
// @Summary Execute a suggested action
// @Description Runs a suggested action against a conversation and stores the result as an assistant turn. Unknown actions return status `unknown_action` rather than an HTTP error. Missing inputs return status `needs_input` with the missing field names.
// @Tags Chat API
// @Accept json
// @Produce json
// @Param request body dto.ExecuteActionRequest true "Action"
// @Success 200 {object} chat.TurnResult
// @Failure 400 {object} responses.ErrorResponse "Invalid request"
// @Failure 404 {object} responses.ErrorResponse "Conversation not found"
// @Router /v1/chat/execute-action [post]
func (h *ChatHandler) PostExecuteAction(c *gin.Context) {
	var body dto.ExecuteActionRequest
	if !bindJSON(c, &body) {
		return
	}
	result, err := h.chat.ExecuteAction(c.Request.Context(), body.ToDomain(callerID(c, body.UserID)))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ChatHandler) stream(c *gin.Context, req chat.SendRequest) {
	h.streams.StreamOpened()
	defer h.streams.StreamClosed()

	w := &sseWriter{c: c}
	_, err := h.chat.StreamMessage(c.Request.Context(), req, w.event)
	if err != nil {
		if !w.started {
			platformerrors.WriteError(c, err, h.log)
			return
		}
		if !w.failed {
			_ = w.write(chat.Event{Type: chat.EventError, Error: errorMessage(err)})
		}
		h.log.Warn().Err(err).Str("conversation_id", req.ConversationID).Msg("stream ended with error")
	}
	w.done()
}

func (h *ChatHandler) readUploads(c *gin.Context) ([]chat.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil
	}
	files := form.File["files"]
	if len(files) > h.maxFiles {
		return nil, fmt.Errorf("at most %d files may be attached", h.maxFiles)
	}
	uploads := make([]chat.Upload, 0, len(files))
	for _, fh := range files {
		data, err := h.readFile(fh)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, chat.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return uploads, nil
}

func (h *ChatHandler) readFile(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > h.maxBytes {
		return nil, fmt.Errorf("%s exceeds the %d byte upload limit", fh.Filename, h.maxBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	if int64(len(data)) > h.maxBytes {
		return nil, fmt.Errorf("%s exceeds the %d byte upload limit", fh.Filename, h.maxBytes)
	}
	return data, nil
}

// sseWriter frames chat events as Server Sent Events. Headers are sent with
// the first event so errors before any output can still use a status code.
type sseWriter struct {
	c       *gin.Context
	flusher http.Flusher
	started bool
	failed  bool
}

func (w *sseWriter) event(ev chat.Event) error {
	if err := w.c.Request.Context().Err(); err != nil {
		return err
	}
	return w.write(ev)
}

func (w *sseWriter) write(ev chat.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if ev.Type == chat.EventError {
		w.failed = true
	}
	return w.data(payload)
}

func (w *sseWriter) done() {
	_ = w.data([]byte("[DONE]"))
}

func (w *sseWriter) data(payload []byte) error {
	if !w.started {
		w.flusher, _ = middleware.PrepareSSE(w.c)
		w.c.Status(http.StatusOK)
		w.started = true
	}
	if _, err := w.c.Writer.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := w.c.Writer.Write(payload); err != nil {
		return err
	}
	if _, err := w.c.Writer.Write([]byte("\n\n")); err != nil {
		return err
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}

// callerID prefers the authenticated subject over a user id in the body.
func callerID(c *gin.Context, claimed string) string {
	if id := auth.UserID(c); id != "" {
		return id
	}
	return strings.TrimSpace(claimed)
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		platformerrors.WriteValidationError(c, "invalid request body")
		return false
	}
	if err := dto.Validate(v); err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return false
	}
	return true
}

func errorMessage(err error) string {
	if pe := platformerrors.GetPlatformError(err); pe != nil {
		return pe.Message
	}
	return "the reply could not be completed"
}
