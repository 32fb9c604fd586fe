package enums

import "fmt"

// HistoryAction labels an entry in a user's subscription audit trail.
type HistoryAction string

const (
	HistoryActionCreated       HistoryAction = "created"
	HistoryActionRenewed       HistoryAction = "renewed"
	HistoryActionUpgraded      HistoryAction = "upgraded"
	HistoryActionDowngraded    HistoryAction = "downgraded"
	HistoryActionCancelled     HistoryAction = "cancelled"
	HistoryActionTrialStarted  HistoryAction = "trial_started"
	HistoryActionTrialEnded    HistoryAction = "trial_ended"
	HistoryActionPaymentFailed HistoryAction = "payment_failed"
)

var validHistoryActions = []HistoryAction{
	HistoryActionCreated,
	HistoryActionRenewed,
	HistoryActionUpgraded,
	HistoryActionDowngraded,
	HistoryActionCancelled,
	HistoryActionTrialStarted,
	HistoryActionTrialEnded,
	HistoryActionPaymentFailed,
}

// String implements fmt.Stringer.
func (h HistoryAction) String() string {
	return string(h)
}

// IsValid reports whether the value is a known HistoryAction.
func (h HistoryAction) IsValid() bool {
	for _, candidate := range validHistoryActions {
		if candidate == h {
			return true
		}
	}
	return false
}

// ParseHistoryAction converts raw input into a HistoryAction.
func ParseHistoryAction(value string) (HistoryAction, error) {
	for _, candidate := range validHistoryActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid history action %q", value)
}
