package domain

// LedgerStatus tracks a queued request's delivery in the dedup ledger.
type LedgerStatus string

const (
	LedgerStatusProcessing LedgerStatus = "processing"
	LedgerStatusDelivered  LedgerStatus = "delivered"
)

// LedgerEntry is one request's row in the dedup ledger.
type LedgerEntry struct {
	PK             string
	SK             string
	RequestID      string
	Status         LedgerStatus
	NotificationID string
	UpdatedAt      string
	LeaseUntil     int64
	TTL            int64
}
