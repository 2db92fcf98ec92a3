package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"dining-concierge/internal/domain"
)

const (
	DefaultIntentName = "DiningSuggestionsIntent"

	confirmationMessage = "Thanks, I have submitted your dining request.   Please let me know if you would like to submit another request."
	cancelledMessage    = "Okay, I have cancelled your dining request."
)

var slotPrompts = map[string]string{
	domain.SlotCity:     "What city or city area are you looking to dine in?",
	domain.SlotCuisine:  "What cuisine would you like to try?",
	domain.SlotPartyNum: "How many people are in your party?",
	domain.SlotDate:     "What date?",
	domain.SlotTime:     "What time?",
	domain.SlotEmail:    "I need your email address so I can send you my findings?",
}

type RequestDispatcher interface {
	Dispatch(ctx context.Context, req domain.DiningRequest) (string, error)
}

// DialogService drives the dining suggestion intent one turn at a time. It
// holds no per-session state; everything it needs arrives with the event.
type DialogService struct {
	dispatcher RequestDispatcher
	intentName string
	loc        *time.Location
	now        func() time.Time
}

// NewDialogService creates a DialogService that sends fulfilled requests to d.
// An empty intentName falls back to DefaultIntentName and a nil loc to UTC;
// loc is the zone relative dates such as "tomorrow" are resolved in.
func NewDialogService(d RequestDispatcher, intentName string, loc *time.Location) (*DialogService, error) {
	if d == nil {
		return nil, errors.New("usecase: dispatcher must not be nil")
	}
	intentName = strings.TrimSpace(intentName)
	if intentName == "" {
		intentName = DefaultIntentName
	}
	if loc == nil {
		loc = time.UTC
	}
	return &DialogService{
		dispatcher: d,
		intentName: intentName,
		loc:        loc,
		now:        time.Now,
	}, nil
}

// HandleTurn decides the next dialog action for one code hook invocation.
func (s *DialogService) HandleTurn(ctx context.Context, ev domain.LexEvent) (domain.LexResponse, error) {
	intent := ev.SessionState.Intent
	if intent.Name != s.intentName {
		return domain.LexResponse{}, newError(ErrorUnsupportedIntent, "intent_"+intent.Name, nil)
	}

	session := domain.SessionFromAttributes(ev.SessionState.SessionAttributes)
	slotValues := domain.SlotsFromLex(intent.Slots)
	current := requestFromSlots(slotValues)
	// A request keeps its id across turns (and engine retries) as long as the
	// user has not changed any detail.
	if prev := session.CurrentRequest; prev != nil && prev.RequestID != "" && prev.Complete() && prev.SameDetails(current) {
		current.RequestID = prev.RequestID
	}
	session.CurrentRequest = &current
	slots := copySlots(intent.Slots)

	switch ev.InvocationSource {
	case domain.InvocationDialogCodeHook:
		if intent.ConfirmationState == domain.ConfirmationStateDenied {
			session.CurrentRequest = nil
			return s.respond(session, func(attrs map[string]string) domain.LexResponse {
				return Close(attrs, domain.IntentStateFailed, domain.PlainText(cancelledMessage), intent.Name)
			})
		}
		return s.validateOrElicit(session, intent.Name, slots, slotValues, current)
	case domain.InvocationFulfillmentCodeHook:
		return s.fulfill(ctx, session, intent.Name, slots, current)
	default:
		return domain.LexResponse{}, newError(ErrorInvalidInput, "invocation_source_"+ev.InvocationSource, nil)
	}
}

func (s *DialogService) validateOrElicit(session domain.SessionContext, intentName string, slots map[string]*domain.LexSlot, values domain.DiningSlots, req domain.DiningRequest) (domain.LexResponse, error) {
	result := validateDiningRequestAt(values, s.now().In(s.loc))
	if !result.Valid {
		slots[result.ViolatedSlot] = nil
		return s.respond(session, func(attrs map[string]string) domain.LexResponse {
			return ElicitSlot(attrs, intentName, slots, result.ViolatedSlot, domain.PlainText(result.Message))
		})
	}

	if missing := req.MissingSlot(); missing != "" {
		return s.respond(session, func(attrs map[string]string) domain.LexResponse {
			return ElicitSlot(attrs, intentName, slots, missing, domain.PlainText(slotPrompts[missing]))
		})
	}

	if req.RequestID == "" {
		req.RequestID = newUUID()
	}
	session.CurrentRequest = &req
	return s.respond(session, func(attrs map[string]string) domain.LexResponse {
		return Delegate(attrs, slots, intentName)
	})
}

func (s *DialogService) fulfill(ctx context.Context, session domain.SessionContext, intentName string, slots map[string]*domain.LexSlot, req domain.DiningRequest) (domain.LexResponse, error) {
	// The engine should never confirm an incomplete request, but if it does
	// the user is asked for the gap instead of a partial request being queued.
	if missing := req.MissingSlot(); missing != "" {
		return s.respond(session, func(attrs map[string]string) domain.LexResponse {
			return ElicitSlot(attrs, intentName, slots, missing, domain.PlainText(slotPrompts[missing]))
		})
	}

	req.RequestType = domain.RequestTypeDiningSuggestion
	if req.RequestID == "" {
		req.RequestID = newUUID()
	}
	if _, err := s.dispatcher.Dispatch(ctx, req); err != nil {
		var ucErr *Error
		if errors.As(err, &ucErr) {
			return domain.LexResponse{}, ucErr
		}
		return domain.LexResponse{}, newError(ErrorDispatch, "dispatch_error", err)
	}

	session.CurrentRequest = nil
	session.LastConfirmedRequest = &req
	return s.respond(session, func(attrs map[string]string) domain.LexResponse {
		return Close(attrs, domain.IntentStateFulfilled, domain.PlainText(confirmationMessage), intentName)
	})
}

func (s *DialogService) respond(session domain.SessionContext, build func(attrs map[string]string) domain.LexResponse) (domain.LexResponse, error) {
	attrs, err := session.Attributes()
	if err != nil {
		return domain.LexResponse{}, newError(ErrorInternal, "encode_session", err)
	}
	return build(attrs), nil
}

func requestFromSlots(v domain.DiningSlots) domain.DiningRequest {
	req := domain.DiningRequest{
		RequestType: domain.RequestTypeDiningSuggestion,
		City:        v.City,
		Cuisine:     v.Cuisine,
		Date:        v.Date,
		Time:        v.Time,
		Email:       v.Email,
	}
	if v.PartyNum != nil {
		if n, ok := parsePartyNum(*v.PartyNum); ok {
			req.PartyNum = &n
		}
	}
	return req
}

func copySlots(in map[string]*domain.LexSlot) map[string]*domain.LexSlot {
	out := make(map[string]*domain.LexSlot, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var newUUID = func() string {
	return uuid.NewString()
}
