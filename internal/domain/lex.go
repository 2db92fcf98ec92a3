package domain

// Invocation sources sent by the dialog engine.
const (
	InvocationDialogCodeHook      = "DialogCodeHook"
	InvocationFulfillmentCodeHook = "FulfillmentCodeHook"
)

// Dialog action types.
const (
	DialogActionElicitSlot    = "ElicitSlot"
	DialogActionConfirmIntent = "ConfirmIntent"
	DialogActionDelegate      = "Delegate"
	DialogActionClose         = "Close"
)

// Intent states.
const (
	IntentStateInProgress          = "InProgress"
	IntentStateReadyForFulfillment = "ReadyForFulfillment"
	IntentStateFulfilled           = "Fulfilled"
	IntentStateFailed              = "Failed"
)

const (
	ConfirmationStateNone      = "None"
	ConfirmationStateConfirmed = "Confirmed"
	ConfirmationStateDenied    = "Denied"
)

const ContentTypePlainText = "PlainText"

// LexEvent is the code hook input sent by Amazon Lex V2.
type LexEvent struct {
	MessageVersion      string          `json:"messageVersion"`
	InvocationSource    string          `json:"invocationSource"`
	InputMode           string          `json:"inputMode,omitempty"`
	ResponseContentType string          `json:"responseContentType,omitempty"`
	SessionID           string          `json:"sessionId"`
	InputTranscript     string          `json:"inputTranscript,omitempty"`
	Bot                 LexBot          `json:"bot"`
	SessionState        LexSessionState `json:"sessionState"`
}

type LexBot struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AliasID   string `json:"aliasId,omitempty"`
	AliasName string `json:"aliasName,omitempty"`
	LocaleID  string `json:"localeId"`
	Version   string `json:"version,omitempty"`
}

type LexSessionState struct {
	SessionAttributes map[string]string `json:"sessionAttributes"`
	DialogAction      *LexDialogAction  `json:"dialogAction,omitempty"`
	Intent            LexIntent         `json:"intent"`
}

type LexDialogAction struct {
	Type         string `json:"type"`
	SlotToElicit string `json:"slotToElicit,omitempty"`
}

// LexIntent carries the slot map. A nil *LexSlot serializes as JSON null,
// which is how the engine is told a slot has been cleared.
type LexIntent struct {
	Name              string              `json:"name"`
	Slots             map[string]*LexSlot `json:"slots,omitempty"`
	State             string              `json:"state,omitempty"`
	ConfirmationState string              `json:"confirmationState,omitempty"`
}

type LexSlot struct {
	Shape string        `json:"shape,omitempty"`
	Value *LexSlotValue `json:"value"`
}

type LexSlotValue struct {
	OriginalValue    string   `json:"originalValue,omitempty"`
	InterpretedValue string   `json:"interpretedValue"`
	ResolvedValues   []string `json:"resolvedValues,omitempty"`
}

type LexMessage struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// LexResponse is the code hook output returned to Amazon Lex V2.
type LexResponse struct {
	SessionState LexSessionState `json:"sessionState"`
	Messages     []LexMessage    `json:"messages,omitempty"`
}

// PlainText wraps content as a plain text message.
func PlainText(content string) LexMessage {
	return LexMessage{ContentType: ContentTypePlainText, Content: content}
}

// SlotsFromLex converts the engine's slot map into DiningSlots, taking the
// interpreted value of each filled slot. An empty interpretation counts as absent.
func SlotsFromLex(slots map[string]*LexSlot) DiningSlots {
	get := func(name string) *string {
		s, ok := slots[name]
		if !ok || s == nil || s.Value == nil || s.Value.InterpretedValue == "" {
			return nil
		}
		v := s.Value.InterpretedValue
		return &v
	}
	return DiningSlots{
		City:     get(SlotCity),
		Cuisine:  get(SlotCuisine),
		PartyNum: get(SlotPartyNum),
		Date:     get(SlotDate),
		Time:     get(SlotTime),
		Email:    get(SlotEmail),
	}
}
