package enums

import "fmt"

// Plan identifies the subscription tier a user pays for.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanBasic      Plan = "basic"
	PlanPremium    Plan = "premium"
	PlanEnterprise Plan = "enterprise"
)

var validPlans = []Plan{
	PlanFree,
	PlanBasic,
	PlanPremium,
	PlanEnterprise,
}

// planRanks orders tiers so plan changes can be classified as
// upgrades or downgrades.
var planRanks = map[Plan]int{
	PlanFree:       0,
	PlanBasic:      1,
	PlanPremium:    2,
	PlanEnterprise: 3,
}

// String implements fmt.Stringer.
func (p Plan) String() string {
	return string(p)
}

// IsValid reports whether the value is a known Plan.
func (p Plan) IsValid() bool {
	for _, candidate := range validPlans {
		if candidate == p {
			return true
		}
	}
	return false
}

// Rank returns the tier ordering for the plan. Unknown plans rank lowest.
func (p Plan) Rank() int {
	return planRanks[p]
}

// IsPaid reports whether the plan requires payment.
func (p Plan) IsPaid() bool {
	return p.IsValid() && p != PlanFree
}

// ParsePlan converts raw input into a Plan.
func ParsePlan(value string) (Plan, error) {
	for _, candidate := range validPlans {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan %q", value)
}
