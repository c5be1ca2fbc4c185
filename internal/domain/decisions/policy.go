package decisions

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/xai-decision-backend/internal/domain/aggregates"
)

// PolicyEntry is reviewer-supplied text injected into every prompt of its
// domain. Entries in the global domain apply everywhere.
type PolicyEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Domain    Domain    `gorm:"column:domain;not null;index" json:"domain"`
	Text      string    `gorm:"column:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index" json:"created_at"`
}

func (PolicyEntry) TableName() string { return "policy_entry" }

const MaxPolicyTextLen = 2000

func NewPolicyEntry(domain Domain, text string, now time.Time) (*PolicyEntry, error) {
	const op = "decisions.NewPolicyEntry"
	d, ok := ParsePolicyDomain(string(domain))
	if !ok {
		return nil, aggregates.NewError(aggregates.CodeValidation, op, "invalid domain: "+string(domain), ErrValidation)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, aggregates.NewError(aggregates.CodeValidation, op, "policy text is empty", ErrValidation)
	}
	if len(text) > MaxPolicyTextLen {
		return nil, aggregates.NewError(aggregates.CodeValidation, op, "policy text exceeds 2000 characters", ErrValidation)
	}
	return &PolicyEntry{ID: uuid.New(), Domain: d, Text: text, CreatedAt: now.UTC()}, nil
}
