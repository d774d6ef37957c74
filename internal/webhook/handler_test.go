package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yuchenlin/chatgate-go/internal/bot"
	cgerrors "github.com/yuchenlin/chatgate-go/internal/errors"
	"github.com/yuchenlin/chatgate-go/internal/event"
	"github.com/yuchenlin/chatgate-go/internal/logger"
	"github.com/yuchenlin/chatgate-go/internal/metrics"
	"github.com/yuchenlin/chatgate-go/internal/outbound"
	"github.com/yuchenlin/chatgate-go/internal/signature"
)

var testSecret = []byte("test-channel-secret")

type fakeSender struct {
	mu       sync.Mutex
	requests []outbound.SendRequest
}

func (f *fakeSender) Send(_ context.Context, req outbound.SendRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return nil
}

func (f *fakeSender) sent() []outbound.SendRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]outbound.SendRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

type helpStub struct{}

func (helpStub) Keyword() string     { return "help" }
func (helpStub) Aliases() []string   { return nil }
func (helpStub) Description() string { return "List available commands" }
func (helpStub) Handle(context.Context, *event.Event, string) ([]outbound.Message, error) {
	return []outbound.Message{outbound.NewText("commands: /help")}, nil
}

type multiStub struct {
	count int
}

func (m multiStub) Keyword() string     { return "digest" }
func (m multiStub) Aliases() []string   { return nil }
func (m multiStub) Description() string { return "Send several messages" }
func (m multiStub) Handle(context.Context, *event.Event, string) ([]outbound.Message, error) {
	msgs := make([]outbound.Message, m.count)
	for i := range msgs {
		msgs[i] = outbound.NewText(fmt.Sprintf("part %d", i+1))
	}
	return msgs, nil
}

func newTestHandler(t *testing.T, sender Sender, handlers ...bot.Handler) *Handler {
	t.Helper()

	log := logger.NewWithWriter("error", io.Discard)
	m := metrics.New(prometheus.NewRegistry())

	registry := bot.NewRegistry()
	for _, h := range handlers {
		if err := registry.Register(h); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}
	processor := bot.NewProcessor(bot.ProcessorConfig{
		Registry: registry,
		Logger:   log,
		Metrics:  m,
	})

	return NewHandler(HandlerConfig{
		Secret:              testSecret,
		Processor:           processor,
		Sender:              sender,
		MaxEvents:           100,
		MaxMessagesPerReply: 5,
		EventTimeout:        5 * time.Second,
		Logger:              log,
		Metrics:             m,
	})
}

func post(t *testing.T, h *Handler, body, sig string) *httptest.ResponseRecorder {
	t.Helper()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/webhook", h.Handle)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	if sig != "" {
		req.Header.Set(SignatureHeader, sig)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func drain(t *testing.T, h *Handler) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func textEventBody(replyToken, text string) string {
	return fmt.Sprintf(`{"destination":"chan-1","events":[
		{"type":"message","webhookEventId":"evt-1","replyToken":%q,"timestamp":1700000000000,
		 "source":{"type":"user","userId":"user-1"},
		 "message":{"id":"msg-1","type":"text","text":%q}}]}`, replyToken, text)
}

func TestWebhookEndToEnd(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	h := newTestHandler(t, sender, helpStub{})

	body := textEventBody("reply-token-abc123", "/help")
	w := post(t, h, body, signature.Sign([]byte(body), testSecret))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	drain(t, h)

	sent := sender.sent()
	if len(sent) != 1 {
		t.Fatalf("sends = %d, want 1", len(sent))
	}
	if sent[0].ReplyToken != "reply-token-abc123" {
		t.Errorf("reply token = %q", sent[0].ReplyToken)
	}
	text, ok := sent[0].Messages[0].(outbound.Text)
	if !ok || text.Body != "commands: /help" {
		t.Errorf("reply = %#v", sent[0].Messages)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	h := newTestHandler(t, sender, helpStub{})

	body := textEventBody("reply-token-abc123", "/help")
	w := post(t, h, body, signature.Sign([]byte(body), []byte("wrong-secret")))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	drain(t, h)

	if len(sender.sent()) != 0 {
		t.Error("nothing must be decoded or routed on a bad signature")
	}
}

func TestVerifyReturnsSignatureSentinel(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, &fakeSender{}, helpStub{})
	body := []byte(textEventBody("reply-token-abc123", "/help"))

	if err := h.verify(body, signature.Sign(body, testSecret)); err != nil {
		t.Fatalf("verify() = %v for a valid signature, want nil", err)
	}

	err := h.verify(body, signature.Sign(body, []byte("wrong-secret")))
	if !errors.Is(err, cgerrors.ErrSignatureInvalid) {
		t.Errorf("verify() = %v, want ErrSignatureInvalid", err)
	}
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	h := newTestHandler(t, sender, helpStub{})

	body := textEventBody("reply-token-abc123", "/help")
	w := post(t, h, body, "")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestWebhookRejectsUnparseableBody(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	h := newTestHandler(t, sender, helpStub{})

	body := `{"events":`
	w := post(t, h, body, signature.Sign([]byte(body), testSecret))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestWebhookPartialFailure(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	h := newTestHandler(t, sender, helpStub{})

	// Second element has no type and cannot decode; the first still runs.
	body := `{"destination":"chan-1","events":[
		{"type":"message","webhookEventId":"evt-1","replyToken":"reply-token-abc123","timestamp":1700000000000,
		 "source":{"type":"user","userId":"user-1"},
		 "message":{"id":"msg-1","type":"text","text":"/help"}},
		{"webhookEventId":"evt-2"}]}`
	w := post(t, h, body, signature.Sign([]byte(body), testSecret))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	drain(t, h)

	if got := len(sender.sent()); got != 1 {
		t.Errorf("sends = %d, want 1 (good event processed despite bad sibling)", got)
	}
}

func TestWebhookBatchCap(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	log := logger.NewWithWriter("error", io.Discard)
	m := metrics.New(prometheus.NewRegistry())
	registry := bot.NewRegistry()
	if err := registry.Register(helpStub{}); err != nil {
		t.Fatal(err)
	}
	h := NewHandler(HandlerConfig{
		Secret: testSecret,
		Processor: bot.NewProcessor(bot.ProcessorConfig{
			Registry: registry,
			Logger:   log,
			Metrics:  m,
		}),
		Sender:              sender,
		MaxEvents:           1,
		MaxMessagesPerReply: 5,
		EventTimeout:        5 * time.Second,
		Logger:              log,
		Metrics:             m,
	})

	events := make([]string, 3)
	for i := range events {
		events[i] = fmt.Sprintf(`{"type":"message","webhookEventId":"evt-%d","replyToken":"reply-token-abc%03d","timestamp":1700000000000,
			"source":{"type":"user","userId":"user-%d"},
			"message":{"id":"msg-%d","type":"text","text":"/help"}}`, i, i, i, i)
	}
	body := `{"destination":"chan-1","events":[` + strings.Join(events, ",") + `]}`
	w := post(t, h, body, signature.Sign([]byte(body), testSecret))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	drain(t, h)

	if got := len(sender.sent()); got != 1 {
		t.Errorf("sends = %d, want 1 (excess events dropped)", got)
	}
}

func TestWebhookNoReplyTokenNoSend(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	h := newTestHandler(t, sender, helpStub{})

	body := `{"destination":"chan-1","events":[
		{"type":"unfollow","webhookEventId":"evt-1","timestamp":1700000000000,
		 "source":{"type":"user","userId":"user-1"}}]}`
	w := post(t, h, body, signature.Sign([]byte(body), testSecret))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	drain(t, h)

	if len(sender.sent()) != 0 {
		t.Error("unfollow must not produce a send")
	}
}

func TestWebhookCapsMessagesPerReply(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	h := newTestHandler(t, sender, multiStub{count: 8})

	body := textEventBody("reply-token-abc123", "/digest")
	w := post(t, h, body, signature.Sign([]byte(body), testSecret))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	drain(t, h)

	sent := sender.sent()
	if len(sent) != 1 {
		t.Fatalf("sends = %d, want 1", len(sent))
	}
	if got := len(sent[0].Messages); got != 5 {
		t.Errorf("messages = %d, want 5", got)
	}
}
