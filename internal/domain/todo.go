package domain

import "time"

// DefaultRewardPoints is credited to the score when a todo is completed.
const DefaultRewardPoints = 100

type Todo struct {
	ID           int64
	Title        string
	Description  *string
	IsCompleted  bool
	TargetDate   time.Time
	RewardPoints int
	CreatedAt    time.Time
}

func (t *Todo) StatusEmoji() string {
	if t.IsCompleted {
		return "✅"
	}
	return "⬜"
}

// DescriptionText returns the description or "" when unset.
func (t *Todo) DescriptionText() string {
	if t.Description == nil {
		return ""
	}
	return *t.Description
}
