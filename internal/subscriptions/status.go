package subscriptions

import (
	"fmt"
	"time"

	"github.com/awesome-pro/subtrack/pkg/db/models"
)

const (
	notOnTrialMessage       = "You are not currently on a trial."
	trialExpiredMessage     = "Your trial has expired. Please subscribe to continue using our services."
	trialIncompleteMessage  = "Trial information is incomplete."
	trialUrgencyThreshold   = 3
	trialUrgencyMessageFmt  = "Your trial will expire in %d days. Please subscribe to continue using our services."
	trialInformationFmt     = "You have %d days left in your trial."
	hoursPerDay             = 24
)

// TrialStatus derives the trial snapshot for a user at the given instant.
// It never mutates state: an expired-but-unswept trial still reports
// is_on_trial until the sweeper runs.
func TrialStatus(user *models.User, now time.Time) TrialStatusDTO {
	if user == nil || !user.IsOnTrial {
		return TrialStatusDTO{
			IsOnTrial: false,
			Message:   notOnTrialMessage,
		}
	}

	status := TrialStatusDTO{
		IsOnTrial:      true,
		TrialStartDate: user.TrialStartDate,
		TrialEndDate:   user.TrialEndDate,
	}

	if user.TrialEndDate == nil {
		status.Message = trialIncompleteMessage
		return status
	}

	end := *user.TrialEndDate
	if !end.After(now) {
		status.DaysLeft = 0
		status.Message = trialExpiredMessage
		return status
	}

	daysLeft := int(end.Sub(now) / (hoursPerDay * time.Hour))
	status.DaysLeft = daysLeft
	if daysLeft <= trialUrgencyThreshold {
		status.Message = fmt.Sprintf(trialUrgencyMessageFmt, daysLeft)
	} else {
		status.Message = fmt.Sprintf(trialInformationFmt, daysLeft)
	}
	return status
}
