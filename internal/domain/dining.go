package domain

const RequestTypeDiningSuggestion = "DiningSuggestion"

// Slot names of the dining suggestion intent, in elicitation order.
const (
	SlotCity     = "City"
	SlotCuisine  = "Cuisine"
	SlotPartyNum = "PartyNum"
	SlotDate     = "Date"
	SlotTime     = "Time"
	SlotEmail    = "Email"
)

// SlotOrder is the fixed order in which slots are validated and elicited.
var SlotOrder = []string{SlotCity, SlotCuisine, SlotPartyNum, SlotDate, SlotTime, SlotEmail}

// DiningSlots holds the raw interpreted value of each slot. A nil field means
// the user has not supplied that slot yet.
type DiningSlots struct {
	City     *string
	Cuisine  *string
	PartyNum *string
	Date     *string
	Time     *string
	Email    *string
}

// Get returns the raw value for a slot name, or nil when it is absent or unknown.
func (s DiningSlots) Get(slot string) *string {
	switch slot {
	case SlotCity:
		return s.City
	case SlotCuisine:
		return s.Cuisine
	case SlotPartyNum:
		return s.PartyNum
	case SlotDate:
		return s.Date
	case SlotTime:
		return s.Time
	case SlotEmail:
		return s.Email
	}
	return nil
}

// DiningRequest is the request threaded from the dialog to the worker. It is
// also the canonical queue message body, so the JSON keys are fixed.
type DiningRequest struct {
	RequestType string  `json:"RequestType"`
	RequestID   string  `json:"RequestId,omitempty"`
	City        *string `json:"City"`
	Cuisine     *string `json:"Cuisine"`
	PartyNum    *int    `json:"PartyNum"`
	Date        *string `json:"Date"`
	Time        *string `json:"Time"`
	Email       *string `json:"Email"`
}

// MissingSlot returns the first slot, in elicitation order, that has no value.
// It returns "" when the request is complete.
func (r DiningRequest) MissingSlot() string {
	switch {
	case empty(r.City):
		return SlotCity
	case empty(r.Cuisine):
		return SlotCuisine
	case r.PartyNum == nil:
		return SlotPartyNum
	case empty(r.Date):
		return SlotDate
	case empty(r.Time):
		return SlotTime
	case empty(r.Email):
		return SlotEmail
	}
	return ""
}

// Complete reports whether every field carries a value.
func (r DiningRequest) Complete() bool {
	return r.MissingSlot() == ""
}

// SameDetails reports whether r and o carry the same slot values. RequestType
// and RequestID are ignored.
func (r DiningRequest) SameDetails(o DiningRequest) bool {
	samePartyNum := (r.PartyNum == nil) == (o.PartyNum == nil) && (r.PartyNum == nil || *r.PartyNum == *o.PartyNum)
	return samePartyNum &&
		Deref(r.City) == Deref(o.City) &&
		Deref(r.Cuisine) == Deref(o.Cuisine) &&
		Deref(r.Date) == Deref(o.Date) &&
		Deref(r.Time) == Deref(o.Time) &&
		Deref(r.Email) == Deref(o.Email)
}

func empty(s *string) bool {
	return s == nil || *s == ""
}

// Str is a small helper for building optional string fields.
func Str(s string) *string { return &s }

// Int is a small helper for building optional integer fields.
func Int(n int) *int { return &n }

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
