package domain

// DisputeStatus represents the states a dispute moves through while the
// marketplace admins work on it.
type DisputeStatus string

const (
	DisputeInitiated      DisputeStatus = "initiated"
	DisputeInProgress     DisputeStatus = "in-progress"
	DisputeSellerRefunded DisputeStatus = "seller-refunded"
	DisputeSettled        DisputeStatus = "settled"
	DisputeReleased       DisputeStatus = "released"
)

// ParseDisputeStatus returns the status matching the given string, or false
// when the value is unknown.
func ParseDisputeStatus(s string) (DisputeStatus, bool) {
	switch DisputeStatus(s) {
	case DisputeInitiated, DisputeInProgress, DisputeSellerRefunded,
		DisputeSettled, DisputeReleased:
		return DisputeStatus(s), true
	}
	return "", false
}

// Dispute is the read-only view of a dispute record. Disputes follow the
// same latest-wins reconciliation as orders but are only displayed, never
// mutated locally.
type Dispute struct {
	ID        string        `json:"id"`
	Status    DisputeStatus `json:"status"`
	CreatedAt int64         `json:"created_at"`
}
