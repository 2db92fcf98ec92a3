package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"dining-concierge/internal/usecase"
)

// RecommendUseCase processes a single queued dining request body.
type RecommendUseCase interface {
	Process(ctx context.Context, body string) (usecase.RecommendOutput, error)
}

// QueueHandler consumes SQS batches. Each record is processed on its own and
// only the failed ones are reported back, so one bad message never blocks or
// replays the rest of the batch.
type QueueHandler struct {
	recommend RecommendUseCase
}

func NewQueueHandler(r RecommendUseCase) (*QueueHandler, error) {
	if r == nil {
		return nil, errors.New("handler: recommend use case must not be nil")
	}
	return &QueueHandler{recommend: r}, nil
}

func (h *QueueHandler) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	resp := events.SQSEventResponse{BatchItemFailures: []events.SQSBatchItemFailure{}}

	for _, rec := range ev.Records {
		logger := slog.With("queue_message_id", rec.MessageId)

		out, err := h.recommend.Process(ctx, rec.Body)
		if err != nil {
			args := []any{"request_id", out.RequestID, "err", err}
			var ue *usecase.Error
			if errors.As(err, &ue) {
				args = append(args, "code", ue.Code, "reason", ue.Reason)
			}
			logger.ErrorContext(ctx, "failed to process dining request", args...)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
			continue
		}

		if out.Duplicate {
			logger.InfoContext(ctx, "skipping already delivered request", "request_id", out.RequestID)
			continue
		}
		logger.DebugContext(ctx, "dining request processed",
			"request_id", out.RequestID,
			"message_id", out.NotificationID,
			"restaurants", len(out.Restaurants),
		)
	}
	return resp, nil
}
