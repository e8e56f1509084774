package domain

// PlanID identifies a subscription tier.
type PlanID string

const (
	PlanFree      PlanID = "free"
	PlanPro       PlanID = "pro"
	PlanUnlimited PlanID = "unlimited"
)

// Unbounded is the sentinel for plan limits with no cap. Quota stores also
// report it as the remaining count for uncapped plans.
const Unbounded = -1

// Plan describes the entitlements of a subscription tier.
type Plan struct {
	ID            PlanID `yaml:"id" json:"id"`
	Name          string `yaml:"name" json:"name"`
	RepliesPerDay int    `yaml:"replies_per_day" json:"replies_per_day"` // Unbounded for no cap
	MaxIdeas      int    `yaml:"max_ideas" json:"max_ideas"`             // Unbounded for no cap
	StreamingChat bool   `yaml:"streaming_chat" json:"streaming_chat"`
}

// Unlimited reports whether the plan has no reply cap.
func (p Plan) Unlimited() bool {
	return p.RepliesPerDay == Unbounded
}

// UnlimitedIdeas reports whether the plan has no idea cap.
func (p Plan) UnlimitedIdeas() bool {
	return p.MaxIdeas == Unbounded
}
