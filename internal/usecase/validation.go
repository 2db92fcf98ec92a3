package usecase

import (
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"dining-concierge/internal/domain"
)

const (
	minPartyNum = 1
	maxPartyNum = 10
)

var validCities = map[string]struct{}{
	"new york":      {},
	"nyc":           {},
	"new york city": {},
}

var validCuisines = map[string]struct{}{
	"chinese":  {},
	"japanese": {},
	"french":   {},
	"mexican":  {},
	"korean":   {},
	"american": {},
}

var timeLayouts = []string{"15:04", "15:04:05", "3:04PM", "3:04 PM", "3PM", "3 PM"}

// ValidationResult is either a success marker (Valid) or the first violation.
type ValidationResult struct {
	Valid        bool
	ViolatedSlot string
	Message      string
}

// IsValidCity reports whether city names the one supported destination,
// ignoring case and surrounding space.
func IsValidCity(city string) bool {
	_, ok := validCities[strings.ToLower(strings.TrimSpace(city))]
	return ok
}

// IsValidCuisine reports whether cuisine is in the supported set.
func IsValidCuisine(cuisine string) bool {
	_, ok := validCuisines[strings.ToLower(strings.TrimSpace(cuisine))]
	return ok
}

// IsValidPartyNum accepts only integer kinds in [1, 10]. Strings and floats
// are rejected even when they hold an integral value.
func IsValidPartyNum(v any) bool {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int8:
		n = int64(x)
	case int16:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case uint8:
		n = int64(x)
	case uint16:
		n = int64(x)
	case uint32:
		n = int64(x)
	default:
		return false
	}
	return n >= minPartyNum && n <= maxPartyNum
}

// IsValidDate reports whether s parses as a calendar date. A missing year is
// taken from the current date.
func IsValidDate(s string) bool {
	return isValidDateAt(s, time.Now())
}

func isValidDateAt(s string, now time.Time) bool {
	_, ok := parseDiningDate(s, now)
	return ok
}

func parseDiningDate(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := dateparse.ParseIn(s, now.Location()); err == nil {
		return t, true
	}
	// "May 1" has no year; retry anchored on the current one.
	if t, err := dateparse.ParseIn(fmt.Sprintf("%s, %d", s, now.Year()), now.Location()); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// IsValidTime accepts a clock time in 24-hour or 12-hour notation.
func IsValidTime(s string) bool {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return false
	}
	for _, layout := range timeLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// IsValidEmail accepts a bare addr-spec whose domain has at least one dot.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Name != "" || addr.Address != s {
		return false
	}
	at := strings.LastIndex(addr.Address, "@")
	if at <= 0 {
		return false
	}
	domainPart := addr.Address[at+1:]
	return strings.Contains(domainPart, ".") && !strings.HasPrefix(domainPart, ".") && !strings.HasSuffix(domainPart, ".")
}

// ValidateDiningRequest checks the supplied slots in elicitation order and
// returns the first violation. Absent slots are skipped.
func ValidateDiningRequest(slots domain.DiningSlots) ValidationResult {
	return validateDiningRequestAt(slots, time.Now())
}

func validateDiningRequestAt(slots domain.DiningSlots, now time.Time) ValidationResult {
	for _, slot := range domain.SlotOrder {
		v := slots.Get(slot)
		if v == nil {
			continue
		}
		if msg := checkSlot(slot, *v, now); msg != "" {
			return violation(slot, msg)
		}
	}
	return ValidationResult{Valid: true}
}

// checkSlot returns the remediation prompt for an invalid value, or "".
func checkSlot(slot, v string, now time.Time) string {
	switch slot {
	case domain.SlotCity:
		if !IsValidCity(v) {
			return fmt.Sprintf("We currently do not support %s as a valid destination.  Can you try a different city?", v)
		}
	case domain.SlotCuisine:
		if !IsValidCuisine(v) {
			return fmt.Sprintf("We currently do not support %s as a valid cuisine selection.  Can you try a different cuisine?", v)
		}
	case domain.SlotPartyNum:
		if n, ok := parsePartyNum(v); !ok || !IsValidPartyNum(n) {
			return fmt.Sprintf("You can only reserve for party size between %d and %d, your party number size %s is not in this range", minPartyNum, maxPartyNum, v)
		}
	case domain.SlotDate:
		if !isValidDateAt(v, now) {
			return fmt.Sprintf("Selected dining date %s is not valid, please try a different date", v)
		}
	case domain.SlotTime:
		if !IsValidTime(v) {
			return fmt.Sprintf("Selected dining time %s is not valid, please try a different time", v)
		}
	case domain.SlotEmail:
		if !IsValidEmail(v) {
			return fmt.Sprintf("The email address %s provided is not valid, please provide a different one", v)
		}
	}
	return ""
}

func violation(slot, message string) ValidationResult {
	return ValidationResult{Valid: false, ViolatedSlot: slot, Message: message}
}

func parsePartyNum(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return n, true
}
