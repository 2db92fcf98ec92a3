package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"dining-concierge/internal/domain"
)

// QueueSender delivers one message body and returns the queue's message id.
type QueueSender interface {
	SendMessage(ctx context.Context, body string) (string, error)
}

// Dispatcher hands completed dining requests to the fulfillment queue.
type Dispatcher struct {
	queue QueueSender
}

// NewDispatcher creates a Dispatcher over q.
func NewDispatcher(q QueueSender) (*Dispatcher, error) {
	if q == nil {
		return nil, errors.New("usecase: queue sender must not be nil")
	}
	return &Dispatcher{queue: q}, nil
}

// Dispatch serializes req as the canonical message body and submits it once.
// Failures are returned as-is to the caller; there is no local retry.
func (d *Dispatcher) Dispatch(ctx context.Context, req domain.DiningRequest) (string, error) {
	if missing := req.MissingSlot(); missing != "" {
		return "", newError(ErrorInvalidInput, "incomplete_request_"+missing, nil)
	}
	req.RequestType = domain.RequestTypeDiningSuggestion

	body, err := json.Marshal(req)
	if err != nil {
		return "", newError(ErrorInternal, "encode_request", err)
	}
	msgID, err := d.queue.SendMessage(ctx, string(body))
	if err != nil {
		return "", newError(ErrorDispatch, "sqs_send_error", err)
	}
	slog.DebugContext(ctx, "dining request dispatched", "request_id", req.RequestID, "queue_message_id", msgID)
	return msgID, nil
}
