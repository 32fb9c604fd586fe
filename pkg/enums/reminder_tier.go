package enums

import "fmt"

// ReminderTier names the windows before trial expiry that warrant a
// reminder notification.
type ReminderTier string

const (
	ReminderTierThreeDay   ReminderTier = "three_day"
	ReminderTierOneDay     ReminderTier = "one_day"
	ReminderTierTwelveHour ReminderTier = "twelve_hour"
)

var validReminderTiers = []ReminderTier{
	ReminderTierThreeDay,
	ReminderTierOneDay,
	ReminderTierTwelveHour,
}

// String implements fmt.Stringer.
func (r ReminderTier) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReminderTier.
func (r ReminderTier) IsValid() bool {
	for _, candidate := range validReminderTiers {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReminderTier converts raw input into a ReminderTier.
func ParseReminderTier(value string) (ReminderTier, error) {
	for _, candidate := range validReminderTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reminder tier %q", value)
}
