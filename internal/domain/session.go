package domain

import (
	"encoding/json"
	"fmt"
)

// Session attribute keys used to cache dining requests across turns.
const (
	AttrCurrentRequest       = "currentDiningRequest"
	AttrLastConfirmedRequest = "lastConfirmedDiningRequest"
)

// SessionContext is the typed view of the session attributes carried by the
// dialog engine. Attributes this service does not own are kept in Extra and
// written back untouched.
type SessionContext struct {
	CurrentRequest       *DiningRequest
	LastConfirmedRequest *DiningRequest
	Extra                map[string]string
}

// SessionFromAttributes decodes the engine's attribute map. A nil map is an
// empty session. Cached requests that fail to decode are dropped, since they
// are rebuilt from the slots on every turn.
func SessionFromAttributes(attrs map[string]string) SessionContext {
	sc := SessionContext{Extra: map[string]string{}}
	for k, v := range attrs {
		switch k {
		case AttrCurrentRequest:
			sc.CurrentRequest = decodeRequest(v)
		case AttrLastConfirmedRequest:
			sc.LastConfirmedRequest = decodeRequest(v)
		default:
			sc.Extra[k] = v
		}
	}
	return sc
}

// Attributes encodes the session back into the engine's attribute map.
func (sc SessionContext) Attributes() (map[string]string, error) {
	out := make(map[string]string, len(sc.Extra)+2)
	for k, v := range sc.Extra {
		out[k] = v
	}
	if sc.CurrentRequest != nil {
		raw, err := json.Marshal(sc.CurrentRequest)
		if err != nil {
			return nil, fmt.Errorf("domain: encode current request: %w", err)
		}
		out[AttrCurrentRequest] = string(raw)
	}
	if sc.LastConfirmedRequest != nil {
		raw, err := json.Marshal(sc.LastConfirmedRequest)
		if err != nil {
			return nil, fmt.Errorf("domain: encode last confirmed request: %w", err)
		}
		out[AttrLastConfirmedRequest] = string(raw)
	}
	return out, nil
}

func decodeRequest(raw string) *DiningRequest {
	var req DiningRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return nil
	}
	return &req
}
