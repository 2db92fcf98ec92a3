package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"dining-concierge/internal/domain"
	"dining-concierge/internal/integrations/lexruntime"
	"dining-concierge/internal/usecase"
)

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

// ---- Lex code hook ----

type stubDialog struct {
	out domain.LexResponse
	err error
	in  domain.LexEvent
}

func (s *stubDialog) HandleTurn(_ context.Context, ev domain.LexEvent) (domain.LexResponse, error) {
	s.in = ev
	return s.out, s.err
}

func TestNewLexHandler_ValidatesDependency(t *testing.T) {
	_, err := NewLexHandler(nil)
	require.Error(t, err)
}

func TestLexHandle_PassesResponseThrough(t *testing.T) {
	want := domain.LexResponse{SessionState: domain.LexSessionState{
		DialogAction: &domain.LexDialogAction{Type: domain.DialogActionDelegate},
		Intent:       domain.LexIntent{Name: "DiningSuggestionsIntent"},
	}}
	uc := &stubDialog{out: want}
	h, err := NewLexHandler(uc)
	require.NoError(t, err)

	ev := domain.LexEvent{SessionID: "s-1", InvocationSource: domain.InvocationDialogCodeHook}
	got, err := h.Handle(context.Background(), ev)
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.Equal(t, "s-1", uc.in.SessionID)
}

func TestLexHandle_ReturnsErrors(t *testing.T) {
	ucErr := &usecase.Error{Code: usecase.ErrorUnsupportedIntent, Reason: "intent_OrderFlowers"}
	h, err := NewLexHandler(&stubDialog{err: ucErr})
	require.NoError(t, err)

	_, err = h.Handle(context.Background(), domain.LexEvent{})
	require.ErrorIs(t, err, ucErr)

	h, err = NewLexHandler(&stubDialog{err: errors.New("boom")})
	require.NoError(t, err)
	_, err = h.Handle(context.Background(), domain.LexEvent{})
	require.EqualError(t, err, "boom")
}

// ---- SQS worker ----

type stubRecommend struct {
	fail  map[string]error
	dup   map[string]bool
	calls []string
}

func (s *stubRecommend) Process(_ context.Context, body string) (usecase.RecommendOutput, error) {
	s.calls = append(s.calls, body)
	if err := s.fail[body]; err != nil {
		return usecase.RecommendOutput{RequestID: body}, err
	}
	return usecase.RecommendOutput{RequestID: body, NotificationID: "ses-" + body, Duplicate: s.dup[body]}, nil
}

func sqsEvent(bodies ...string) events.SQSEvent {
	var ev events.SQSEvent
	for i, b := range bodies {
		ev.Records = append(ev.Records, events.SQSMessage{MessageId: "m" + string(rune('0'+i)), Body: b})
	}
	return ev
}

func TestNewQueueHandler_ValidatesDependency(t *testing.T) {
	_, err := NewQueueHandler(nil)
	require.Error(t, err)
}

func TestQueueHandle_AllSucceed(t *testing.T) {
	uc := &stubRecommend{}
	h, err := NewQueueHandler(uc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), sqsEvent("a", "b", "c"))
	require.NoError(t, err)
	require.Empty(t, resp.BatchItemFailures)
	require.Equal(t, []string{"a", "b", "c"}, uc.calls)
}

func TestQueueHandle_IsolatesFailures(t *testing.T) {
	uc := &stubRecommend{fail: map[string]error{
		"b": &usecase.Error{Code: usecase.ErrorLookup, Reason: "restaurant_not_found"},
		"d": errors.New("boom"),
	}}
	h, err := NewQueueHandler(uc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), sqsEvent("a", "b", "c", "d", "e"))
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c", "d", "e"}, uc.calls)
	require.Equal(t, []events.SQSBatchItemFailure{{ItemIdentifier: "m1"}, {ItemIdentifier: "m3"}}, resp.BatchItemFailures)
}

func TestQueueHandle_DuplicateIsNotAFailure(t *testing.T) {
	uc := &stubRecommend{dup: map[string]bool{"a": true}}
	h, err := NewQueueHandler(uc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), sqsEvent("a"))
	require.NoError(t, err)
	require.Empty(t, resp.BatchItemFailures)
}

func TestQueueHandle_EmptyBatch(t *testing.T) {
	h, err := NewQueueHandler(&stubRecommend{})
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), events.SQSEvent{})
	require.NoError(t, err)
	require.NotNil(t, resp.BatchItemFailures)
	require.Empty(t, resp.BatchItemFailures)
}

// ---- chat relay ----

type stubBot struct {
	replies map[string][]string
	intent  string
	state   string
	err     error
	session []string
	texts   []string
}

func (s *stubBot) RecognizeText(_ context.Context, sessionID, text string) (lexruntime.Reply, error) {
	s.session = append(s.session, sessionID)
	s.texts = append(s.texts, text)
	if s.err != nil {
		return lexruntime.Reply{}, s.err
	}
	return lexruntime.Reply{Messages: s.replies[text], IntentName: s.intent, IntentState: s.state}, nil
}

func makeChatEvent(body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/chat",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func TestNewRelayHandler_ValidatesDependency(t *testing.T) {
	_, err := NewRelayHandler(nil)
	require.Error(t, err)
}

func TestRelayHandle_HappyPath(t *testing.T) {
	bot := &stubBot{replies: map[string][]string{
		"hello":       {"Hi there, how can I help?"},
		"I need food": {"What city are you looking to dine in?"},
	}}
	h, err := NewRelayHandler(bot)
	require.NoError(t, err)

	body := `{"sessionId":"sess-1","messages":[
		{"type":"unstructured","unstructured":{"text":"hello"}},
		{"type":"unstructured","unstructured":{"text":"I need food"}}]}`
	resp, err := h.Handle(context.Background(), makeChatEvent(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])

	require.Equal(t, []string{"hello", "I need food"}, bot.texts)
	require.Equal(t, []string{"sess-1", "sess-1"}, bot.session)

	out := parseBody[chatResponse](t, resp.Body)
	require.Equal(t, "sess-1", out.SessionID)
	require.Len(t, out.Messages, 2)
	require.Equal(t, "unstructured", out.Messages[0].Type)
	require.Equal(t, "Hi there, how can I help?", out.Messages[0].Unstructured.Text)
	require.Equal(t, "What city are you looking to dine in?", out.Messages[1].Unstructured.Text)
}

func TestRelayHandle_GeneratesSessionID(t *testing.T) {
	bot := &stubBot{}
	h, err := NewRelayHandler(bot)
	require.NoError(t, err)
	h.newSessionID = func() string { return "generated-1" }

	resp, err := h.Handle(context.Background(), makeChatEvent(`{"messages":[{"type":"unstructured","unstructured":{"text":"hi"}}]}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"generated-1"}, bot.session)

	out := parseBody[chatResponse](t, resp.Body)
	require.Equal(t, "generated-1", out.SessionID)
	require.Empty(t, out.Messages)
}

func TestRelayHandle_InvalidBodies(t *testing.T) {
	cases := map[string]string{
		"not json":     `not-json`,
		"no messages":  `{"messages":[]}`,
		"wrong type":   `{"messages":[{"type":"structured","unstructured":{"text":"hi"}}]}`,
		"blank text":   `{"messages":[{"type":"unstructured","unstructured":{"text":"  "}}]}`,
		"missing body": ``,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			bot := &stubBot{}
			h, err := NewRelayHandler(bot)
			require.NoError(t, err)

			resp, err := h.Handle(context.Background(), makeChatEvent(body))
			require.NoError(t, err)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.Empty(t, bot.texts)

			out := parseBody[errorResponse](t, resp.Body)
			require.Equal(t, "INVALID_INPUT", out.Error)
		})
	}
}

func TestRelayHandle_BotFailure(t *testing.T) {
	h, err := NewRelayHandler(&stubBot{err: errors.New("throttled")})
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeChatEvent(`{"messages":[{"type":"unstructured","unstructured":{"text":"hi"}}]}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	require.Equal(t, "UPSTREAM_ERROR", parseBody[errorResponse](t, resp.Body).Error)
}

func TestRelayHandle_LogsIntentState(t *testing.T) {
	var buf bytes.Buffer
	orig := slog.Default()
	t.Cleanup(func() { slog.SetDefault(orig) })
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	bot := &stubBot{
		replies: map[string][]string{"hi": {"What city?"}},
		intent:  "DiningSuggestionsIntent",
		state:   "InProgress",
	}
	h, err := NewRelayHandler(bot)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeChatEvent(`{"sessionId":"sess-1","messages":[{"type":"unstructured","unstructured":{"text":"hi"}}]}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotContains(t, resp.Body, "InProgress")

	var found bool
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["msg"] != "dialog engine replied" {
			continue
		}
		found = true
		require.Equal(t, "DiningSuggestionsIntent", entry["intent"])
		require.Equal(t, "InProgress", entry["intent_state"])
		require.Equal(t, "sess-1", entry["session_id"])
	}
	require.True(t, found)
}

func TestRelayHandle_Preflight(t *testing.T) {
	bot := &stubBot{}
	h, err := NewRelayHandler(bot)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodOptions})
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "OPTIONS,POST", resp.Headers["Access-Control-Allow-Methods"])
	require.Empty(t, bot.texts)
}

func TestRelayHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	h, err := NewRelayHandler(&stubBot{})
	require.NoError(t, err)

	event := makeChatEvent(`{"messages":[{"type":"unstructured","unstructured":{"text":"hi"}}]}`)
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
}

func TestCorrelationID_Generated(t *testing.T) {
	orig := newCorrelationID
	t.Cleanup(func() { newCorrelationID = orig })
	newCorrelationID = func() string { return "corr-new" }

	require.Equal(t, "corr-new", correlationID(map[string]string{"X-Correlation-Id": "  "}))
	require.Equal(t, "corr-new", correlationID(nil))
}
