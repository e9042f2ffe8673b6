package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/reno-server/internal/config"
	"github.com/janhq/reno-server/internal/domain/chat"
	"github.com/janhq/reno-server/internal/domain/conversation"
	"github.com/janhq/reno-server/internal/utils/platformerrors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type chatServiceMock struct {
	SendMessageFunc   func(ctx context.Context, req chat.SendRequest) (*chat.TurnResult, error)
	StreamMessageFunc func(ctx context.Context, req chat.SendRequest, emit func(chat.Event) error) (*chat.TurnResult, error)
	ExecuteActionFunc func(ctx context.Context, req chat.ActionRequest) (*chat.TurnResult, error)
}

func (m *chatServiceMock) SendMessage(ctx context.Context, req chat.SendRequest) (*chat.TurnResult, error) {
	return m.SendMessageFunc(ctx, req)
}

func (m *chatServiceMock) StreamMessage(ctx context.Context, req chat.SendRequest, emit func(chat.Event) error) (*chat.TurnResult, error) {
	return m.StreamMessageFunc(ctx, req, emit)
}

func (m *chatServiceMock) ExecuteAction(ctx context.Context, req chat.ActionRequest) (*chat.TurnResult, error) {
	return m.ExecuteActionFunc(ctx, req)
}

type conversationServiceMock struct {
	GetFunc      func(ctx context.Context, publicID, userID string) (*conversation.Conversation, error)
	ListFunc     func(ctx context.Context, userID string, p conversation.Pagination) ([]*conversation.Conversation, int64, error)
	UpdateFunc   func(ctx context.Context, publicID, userID string, params conversation.UpdateParams) (*conversation.Conversation, error)
	DeleteFunc   func(ctx context.Context, publicID, userID string) error
	MessagesFunc func(ctx context.Context, publicID, userID string, p conversation.Pagination) ([]*conversation.Message, error)
}

func (m *conversationServiceMock) Get(ctx context.Context, publicID, userID string) (*conversation.Conversation, error) {
	return m.GetFunc(ctx, publicID, userID)
}

func (m *conversationServiceMock) List(ctx context.Context, userID string, p conversation.Pagination) ([]*conversation.Conversation, int64, error) {
	return m.ListFunc(ctx, userID, p)
}

func (m *conversationServiceMock) Update(ctx context.Context, publicID, userID string, params conversation.UpdateParams) (*conversation.Conversation, error) {
	return m.UpdateFunc(ctx, publicID, userID, params)
}

func (m *conversationServiceMock) Delete(ctx context.Context, publicID, userID string) error {
	return m.DeleteFunc(ctx, publicID, userID)
}

func (m *conversationServiceMock) Messages(ctx context.Context, publicID, userID string, p conversation.Pagination) ([]*conversation.Message, error) {
	return m.MessagesFunc(ctx, publicID, userID, p)
}

type gaugeMock struct{ open, closed int }

func (g *gaugeMock) StreamOpened() { g.open++ }
func (g *gaugeMock) StreamClosed() { g.closed++ }

func newChatRouter(svc ChatService, cfg *config.Config, gauge StreamGauge) *gin.Engine {
	h := NewChatHandler(svc, gauge, cfg, zerolog.Nop())
	r := gin.New()
	r.POST("/v1/chat/message", h.PostMessage)
	r.POST("/v1/chat/stream", h.PostStream)
	r.POST("/v1/chat/stream-multipart", h.PostStreamMultipart)
	r.POST("/v1/chat/execute-action", h.PostExecuteAction)
	return r
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func notFound(ctx context.Context) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "conversation not found", nil, "")
}

func TestPostMessage(t *testing.T) {
	var got chat.SendRequest
	svc := &chatServiceMock{SendMessageFunc: func(ctx context.Context, req chat.SendRequest) (*chat.TurnResult, error) {
		got = req
		return &chat.TurnResult{ConversationID: "c-1", MessageID: "msg_2", Status: chat.StatusOK, Response: "About $540."}, nil
	}}
	r := newChatRouter(svc, &config.Config{}, nil)

	w := postJSON(r, "/v1/chat/message", `{"message":"How much to paint?","user_id":"alice","persona":"homeowner","home_id":"h1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var res chat.TurnResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.ConversationID != "c-1" || res.Response != "About $540." {
		t.Fatalf("unexpected result %+v", res)
	}
	if got.UserID != "alice" || got.Persona != conversation.PersonaHomeowner || got.HomeID == nil || *got.HomeID != "h1" {
		t.Fatalf("request not passed through: %+v", got)
	}
}

func TestPostMessageValidation(t *testing.T) {
	svc := &chatServiceMock{SendMessageFunc: func(ctx context.Context, req chat.SendRequest) (*chat.TurnResult, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}
	r := newChatRouter(svc, &config.Config{}, nil)

	cases := map[string]string{
		"empty message": `{"message":""}`,
		"bad persona":   `{"message":"hi","persona":"landlord"}`,
		"bad json":      `{"message":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := postJSON(r, "/v1/chat/message", body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestPostMessageNotFound(t *testing.T) {
	svc := &chatServiceMock{SendMessageFunc: func(ctx context.Context, req chat.SendRequest) (*chat.TurnResult, error) {
		return nil, notFound(ctx)
	}}
	w := postJSON(newChatRouter(svc, &config.Config{}, nil), "/v1/chat/message", `{"message":"hi","conversation_id":"nope"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var res platformerrors.HTTPErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil || res.Error == nil || res.Error.Type != "not_found_error" {
		t.Fatalf("unexpected error body %s", w.Body.String())
	}
}

func TestPostStream(t *testing.T) {
	svc := &chatServiceMock{StreamMessageFunc: func(ctx context.Context, req chat.SendRequest, emit func(chat.Event) error) (*chat.TurnResult, error) {
		result := &chat.TurnResult{ConversationID: "c-1", MessageID: "msg_2", Status: chat.StatusOK, Response: "Hello"}
		_ = emit(chat.Event{Type: chat.EventToken, Content: "Hel"})
		_ = emit(chat.Event{Type: chat.EventToken, Content: "lo"})
		_ = emit(chat.Event{Type: chat.EventComplete, Message: result})
		return result, nil
	}}
	gauge := &gaugeMock{}
	w := postJSON(newChatRouter(svc, &config.Config{}, gauge), "/v1/chat/stream", `{"message":"hi"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	events := strings.Split(strings.TrimSuffix(w.Body.String(), "\n\n"), "\n\n")
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %q", events)
	}
	if events[0] != `data: {"type":"token","content":"Hel"}` {
		t.Fatalf("first event = %q", events[0])
	}
	if !strings.HasPrefix(events[2], `data: {"type":"complete","message":{"conversation_id":"c-1"`) {
		t.Fatalf("complete event = %q", events[2])
	}
	if events[3] != "data: [DONE]" {
		t.Fatalf("last event = %q", events[3])
	}
	if gauge.open != 1 || gauge.closed != 1 {
		t.Fatalf("gauge = %+v", gauge)
	}
}

func TestPostStreamErrorBeforeOutput(t *testing.T) {
	svc := &chatServiceMock{StreamMessageFunc: func(ctx context.Context, req chat.SendRequest, emit func(chat.Event) error) (*chat.TurnResult, error) {
		return nil, notFound(ctx)
	}}
	w := postJSON(newChatRouter(svc, &config.Config{}, nil), "/v1/chat/stream", `{"message":"hi","conversation_id":"x"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if strings.Contains(w.Body.String(), "[DONE]") {
		t.Fatal("no stream should be started")
	}
}

func TestPostStreamErrorAfterOutput(t *testing.T) {
	svc := &chatServiceMock{StreamMessageFunc: func(ctx context.Context, req chat.SendRequest, emit func(chat.Event) error) (*chat.TurnResult, error) {
		_ = emit(chat.Event{Type: chat.EventToken, Content: "partial"})
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeDatabaseError, "failed to save the conversation turn", nil, "")
	}}
	w := postJSON(newChatRouter(svc, &config.Config{}, nil), "/v1/chat/stream", `{"message":"hi"}`)

	body := w.Body.String()
	if !strings.Contains(body, `data: {"type":"error","error":"failed to save the conversation turn"}`) {
		t.Fatalf("missing error event: %q", body)
	}
	if !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Fatalf("missing sentinel: %q", body)
	}
}

func TestPostStreamDoesNotDuplicateErrorEvent(t *testing.T) {
	svc := &chatServiceMock{StreamMessageFunc: func(ctx context.Context, req chat.SendRequest, emit func(chat.Event) error) (*chat.TurnResult, error) {
		_ = emit(chat.Event{Type: chat.EventError, Error: "boom"})
		return nil, context.DeadlineExceeded
	}}
	w := postJSON(newChatRouter(svc, &config.Config{}, nil), "/v1/chat/stream", `{"message":"hi"}`)
	if n := strings.Count(w.Body.String(), `"type":"error"`); n != 1 {
		t.Fatalf("expected one error event, got %d: %q", n, w.Body.String())
	}
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for name, data := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestPostStreamMultipart(t *testing.T) {
	var got chat.SendRequest
	svc := &chatServiceMock{StreamMessageFunc: func(ctx context.Context, req chat.SendRequest, emit func(chat.Event) error) (*chat.TurnResult, error) {
		got = req
		_ = emit(chat.Event{Type: chat.EventToken, Content: "Nice kitchen."})
		return &chat.TurnResult{}, nil
	}}
	r := newChatRouter(svc, &config.Config{MaxUploadFiles: 2, MaxUploadBytes: 1024}, nil)

	body, contentType := multipartBody(t, map[string]string{"home_id": "h1", "mode": "quick"},
		map[string][]byte{"kitchen.png": []byte("\x89PNG\r\n\x1a\nrest")})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/stream-multipart", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if len(got.Uploads) != 1 || got.Uploads[0].Filename != "kitchen.png" || !bytes.HasPrefix(got.Uploads[0].Data, []byte("\x89PNG")) {
		t.Fatalf("uploads not passed through: %+v", got.Uploads)
	}
	if got.Mode != chat.ModeQuick || got.HomeID == nil || *got.HomeID != "h1" {
		t.Fatalf("form fields not passed through: %+v", got)
	}
}

func TestPostStreamMultipartLimits(t *testing.T) {
	svc := &chatServiceMock{StreamMessageFunc: func(ctx context.Context, req chat.SendRequest, emit func(chat.Event) error) (*chat.TurnResult, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}
	r := newChatRouter(svc, &config.Config{MaxUploadFiles: 1, MaxUploadBytes: 8}, nil)

	cases := map[string]map[string][]byte{
		"too many files": {"a.txt": []byte("a"), "b.txt": []byte("b")},
		"file too large": {"big.txt": []byte("0123456789")},
	}
	for name, files := range cases {
		t.Run(name, func(t *testing.T) {
			body, contentType := multipartBody(t, map[string]string{"message": "look"}, files)
			req := httptest.NewRequest(http.MethodPost, "/v1/chat/stream-multipart", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestPostExecuteAction(t *testing.T) {
	var got chat.ActionRequest
	svc := &chatServiceMock{ExecuteActionFunc: func(ctx context.Context, req chat.ActionRequest) (*chat.TurnResult, error) {
		got = req
		return &chat.TurnResult{ConversationID: req.ConversationID, Status: chat.StatusUnknownAction}, nil
	}}
	r := newChatRouter(svc, &config.Config{}, nil)

	w := postJSON(r, "/v1/chat/execute-action", `{"conversation_id":"c-1","action":"launch_rocket","context":{"room_id":"r1"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("unknown actions are not HTTP errors, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"unknown_action"`) {
		t.Fatalf("body = %s", w.Body.String())
	}
	if got.Action != "launch_rocket" || got.Context["room_id"] != "r1" {
		t.Fatalf("request not passed through: %+v", got)
	}

	w = postJSON(r, "/v1/chat/execute-action", `{"action":"export_pdf"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing conversation id: status = %d", w.Code)
	}
}

func newConversationRouter(svc ConversationService) *gin.Engine {
	h := NewConversationHandler(svc, zerolog.Nop())
	r := gin.New()
	g := r.Group("/v1/chat/conversations")
	g.GET("", h.ListConversations)
	g.GET("/:id", h.GetConversation)
	g.PUT("/:id", h.UpdateConversation)
	g.DELETE("/:id", h.DeleteConversation)
	g.GET("/:id/messages", h.ListMessages)
	return r
}

func TestListConversations(t *testing.T) {
	var gotUser string
	var gotPage conversation.Pagination
	svc := &conversationServiceMock{ListFunc: func(ctx context.Context, userID string, p conversation.Pagination) ([]*conversation.Conversation, int64, error) {
		gotUser, gotPage = userID, p
		return []*conversation.Conversation{{PublicID: "c-2", Title: "Kitchen refresh", IsActive: true}}, 7, nil
	}}
	w := httptest.NewRecorder()
	newConversationRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/chat/conversations?user_id=alice&page=2&page_size=5", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if gotUser != "alice" || gotPage.Page != 2 || gotPage.PageSize != 5 {
		t.Fatalf("got user %q page %+v", gotUser, gotPage)
	}
	var res struct {
		Data  []map[string]any `json:"data"`
		Total int64            `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Total != 7 || len(res.Data) != 1 || res.Data[0]["id"] != "c-2" {
		t.Fatalf("unexpected body %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	newConversationRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/chat/conversations?page_size=1000", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("oversized page: status = %d", w.Code)
	}
}

func TestListMessages(t *testing.T) {
	svc := &conversationServiceMock{MessagesFunc: func(ctx context.Context, publicID, userID string, p conversation.Pagination) ([]*conversation.Message, error) {
		if publicID != "c-1" {
			return nil, notFound(ctx)
		}
		return []*conversation.Message{
			{PublicID: "msg_1", Sequence: 1, Role: conversation.RoleUser, Content: "hi"},
			{PublicID: "msg_2", Sequence: 2, Role: conversation.RoleAssistant, Content: "hello"},
		}, nil
	}}
	r := newConversationRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/chat/conversations/c-1/messages", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var res struct {
		ConversationID string `json:"conversation_id"`
		Data           []struct {
			ID   string `json:"id"`
			Role string `json:"role"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.ConversationID != "c-1" || len(res.Data) != 2 || res.Data[1].Role != "assistant" {
		t.Fatalf("unexpected body %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/chat/conversations/other/messages", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestUpdateAndDeleteConversation(t *testing.T) {
	var gotParams conversation.UpdateParams
	var deleted string
	svc := &conversationServiceMock{
		UpdateFunc: func(ctx context.Context, publicID, userID string, params conversation.UpdateParams) (*conversation.Conversation, error) {
			gotParams = params
			return &conversation.Conversation{PublicID: publicID, Title: *params.Title}, nil
		},
		DeleteFunc: func(ctx context.Context, publicID, userID string) error {
			if userID != "bob" {
				return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "not your conversation", nil, "")
			}
			deleted = publicID
			return nil
		},
	}
	r := newConversationRouter(svc)

	req := httptest.NewRequest(http.MethodPut, "/v1/chat/conversations/c-1", strings.NewReader(`{"title":"Bathroom","scenario":"diy_project_plan"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d body=%s", w.Code, w.Body.String())
	}
	if gotParams.Scenario == nil || *gotParams.Scenario != conversation.ScenarioDIYProjectPlan || gotParams.Persona != nil {
		t.Fatalf("params = %+v", gotParams)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/v1/chat/conversations/c-1?user_id=eve", nil))
	if w.Code != http.StatusForbidden {
		t.Fatalf("delete by other user: status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/v1/chat/conversations/c-1?user_id=bob", nil))
	if w.Code != http.StatusOK || deleted != "c-1" {
		t.Fatalf("delete: status = %d deleted = %q", w.Code, deleted)
	}
}
