package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"dining-concierge/internal/integrations/lexruntime"
)

const messageTypeUnstructured = "unstructured"

// BotClient forwards user text to the dialog engine.
type BotClient interface {
	RecognizeText(ctx context.Context, sessionID, text string) (lexruntime.Reply, error)
}

type chatMessage struct {
	Type         string           `json:"type"`
	Unstructured unstructuredText `json:"unstructured"`
}

type unstructuredText struct {
	ID        string `json:"id,omitempty"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
}

type chatRequest struct {
	SessionID string        `json:"sessionId"`
	Messages  []chatMessage `json:"messages"`
}

type chatResponse struct {
	SessionID string        `json:"sessionId"`
	Messages  []chatMessage `json:"messages"`
}

// RelayHandler is the API Gateway entry point for the chat front end.
type RelayHandler struct {
	bot          BotClient
	newSessionID func() string
}

// NewRelayHandler creates a RelayHandler. Requests without a session id get
// a fresh one.
func NewRelayHandler(bot BotClient) (*RelayHandler, error) {
	if bot == nil {
		return nil, errors.New("handler: bot client must not be nil")
	}
	return &RelayHandler{bot: bot, newSessionID: uuid.NewString}, nil
}

func (h *RelayHandler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(req.Headers)
	logger := slog.With("correlation_id", corrID)

	if req.HTTPMethod == http.MethodOptions {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent, Headers: responseHeaders(corrID)}, nil
	}

	var in chatRequest
	if err := json.Unmarshal([]byte(req.Body), &in); err != nil {
		logger.WarnContext(ctx, "invalid chat request body", "err", err)
		return errorJSON(http.StatusBadRequest, corrID, "INVALID_INPUT", "request body must be JSON"), nil
	}
	texts, msg := extractTexts(in.Messages)
	if msg != "" {
		return errorJSON(http.StatusBadRequest, corrID, "INVALID_INPUT", msg), nil
	}

	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		sessionID = h.newSessionID()
	}
	logger = logger.With("session_id", sessionID)

	out := chatResponse{SessionID: sessionID, Messages: []chatMessage{}}
	for _, text := range texts {
		reply, err := h.bot.RecognizeText(ctx, sessionID, text)
		if err != nil {
			logger.ErrorContext(ctx, "dialog engine request failed", "err", err)
			return errorJSON(http.StatusBadGateway, corrID, "UPSTREAM_ERROR", "the assistant is unavailable, please try again"), nil
		}
		logger.DebugContext(ctx, "dialog engine replied",
			"intent", reply.IntentName,
			"intent_state", reply.IntentState,
			"messages", len(reply.Messages),
		)
		for _, m := range reply.Messages {
			out.Messages = append(out.Messages, chatMessage{
				Type:         messageTypeUnstructured,
				Unstructured: unstructuredText{Text: m},
			})
		}
	}

	logger.DebugContext(ctx, "relayed chat messages", "sent", len(texts), "received", len(out.Messages))
	return jsonResponse(http.StatusOK, corrID, out), nil
}

// extractTexts returns the unstructured texts in order, or a client-facing
// message describing why the batch is unusable.
func extractTexts(msgs []chatMessage) ([]string, string) {
	if len(msgs) == 0 {
		return nil, "messages must not be empty"
	}
	texts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Type != messageTypeUnstructured {
			return nil, "unsupported message type " + m.Type
		}
		if strings.TrimSpace(m.Unstructured.Text) == "" {
			return nil, "message text must not be empty"
		}
		texts = append(texts, m.Unstructured.Text)
	}
	return texts, ""
}
