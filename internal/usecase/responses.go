package usecase

import "dining-concierge/internal/domain"

// The builders below only reshape their arguments into the engine's response
// format. The caller owns the slot map; builders do not copy it.

func ElicitSlot(attrs map[string]string, intentName string, slots map[string]*domain.LexSlot, slotToElicit string, message domain.LexMessage) domain.LexResponse {
	return domain.LexResponse{
		SessionState: domain.LexSessionState{
			SessionAttributes: attrs,
			DialogAction: &domain.LexDialogAction{
				Type:         domain.DialogActionElicitSlot,
				SlotToElicit: slotToElicit,
			},
			Intent: domain.LexIntent{
				Name:  intentName,
				Slots: slots,
				State: domain.IntentStateInProgress,
			},
		},
		Messages: []domain.LexMessage{message},
	}
}

func ConfirmIntent(attrs map[string]string, intentName string, slots map[string]*domain.LexSlot, message domain.LexMessage) domain.LexResponse {
	return domain.LexResponse{
		SessionState: domain.LexSessionState{
			SessionAttributes: attrs,
			DialogAction:      &domain.LexDialogAction{Type: domain.DialogActionConfirmIntent},
			Intent: domain.LexIntent{
				Name:  intentName,
				Slots: slots,
				State: domain.IntentStateInProgress,
			},
		},
		Messages: []domain.LexMessage{message},
	}
}

func Delegate(attrs map[string]string, slots map[string]*domain.LexSlot, intentName string) domain.LexResponse {
	return domain.LexResponse{
		SessionState: domain.LexSessionState{
			SessionAttributes: attrs,
			DialogAction:      &domain.LexDialogAction{Type: domain.DialogActionDelegate},
			Intent: domain.LexIntent{
				Name:  intentName,
				Slots: slots,
				State: domain.IntentStateReadyForFulfillment,
			},
		},
	}
}

// Close ends the intent. fulfillmentState is Fulfilled or Failed.
func Close(attrs map[string]string, fulfillmentState string, message domain.LexMessage, intentName string) domain.LexResponse {
	return domain.LexResponse{
		SessionState: domain.LexSessionState{
			SessionAttributes: attrs,
			DialogAction:      &domain.LexDialogAction{Type: domain.DialogActionClose},
			Intent: domain.LexIntent{
				Name:  intentName,
				State: fulfillmentState,
			},
		},
		Messages: []domain.LexMessage{message},
	}
}
