package handler

import (
	"context"
	"errors"
	"log/slog"

	"dining-concierge/internal/domain"
	"dining-concierge/internal/usecase"
)

// DialogUseCase decides the next dialog action for one code hook event.
type DialogUseCase interface {
	HandleTurn(ctx context.Context, ev domain.LexEvent) (domain.LexResponse, error)
}

// LexHandler is the Lambda entry point for the bot's dialog and fulfillment
// code hooks.
type LexHandler struct {
	dialog DialogUseCase
}

func NewLexHandler(d DialogUseCase) (*LexHandler, error) {
	if d == nil {
		return nil, errors.New("handler: dialog use case must not be nil")
	}
	return &LexHandler{dialog: d}, nil
}

// Handle returns the engine's next action. Errors are returned to the
// runtime unchanged so the bot reports a failed turn.
func (h *LexHandler) Handle(ctx context.Context, ev domain.LexEvent) (domain.LexResponse, error) {
	logger := slog.With(
		"session_id", ev.SessionID,
		"intent", ev.SessionState.Intent.Name,
		"invocation_source", ev.InvocationSource,
	)

	resp, err := h.dialog.HandleTurn(ctx, ev)
	if err != nil {
		var ue *usecase.Error
		if errors.As(err, &ue) {
			logger.ErrorContext(ctx, "dialog turn failed", "code", ue.Code, "reason", ue.Reason, "err", ue.Err)
		} else {
			logger.ErrorContext(ctx, "dialog turn failed", "err", err)
		}
		return domain.LexResponse{}, err
	}

	attrs := []any{"action", ""}
	if resp.SessionState.DialogAction != nil {
		attrs = []any{"action", resp.SessionState.DialogAction.Type, "slot", resp.SessionState.DialogAction.SlotToElicit}
	}
	logger.DebugContext(ctx, "dialog turn handled", attrs...)
	return resp, nil
}
