package decisions

import (
	"time"

	"github.com/google/uuid"
)

const (
	CallTypeDecision = "decision"
	CallTypeOverride = "override"
	CallTypeHealth   = "health"
)

// ModelCallLog records one model round trip. It is the audit trail for
// parse failures: the raw text the parser rejected is kept here.
type ModelCallLog struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ApplicationID *uuid.UUID `gorm:"type:uuid;column:application_id;index" json:"application_id,omitempty"`
	Domain        Domain     `gorm:"column:domain;index" json:"domain,omitempty"`
	CallType      string     `gorm:"column:call_type;not null;index" json:"call_type"`
	Engine        string     `gorm:"column:engine;not null" json:"engine"`
	Model         string     `gorm:"column:model" json:"model,omitempty"`
	Prompt        string     `gorm:"column:prompt" json:"prompt"`
	Response      string     `gorm:"column:response" json:"response"`
	Success       bool       `gorm:"column:success;not null;index" json:"success"`
	Error         string     `gorm:"column:error" json:"error,omitempty"`
	DurationMS    int64      `gorm:"column:duration_ms" json:"duration_ms"`
	TraceID       string     `gorm:"column:trace_id;index" json:"trace_id,omitempty"`
	CreatedAt     time.Time  `gorm:"column:created_at;not null;index" json:"created_at"`
}

func (ModelCallLog) TableName() string { return "model_call_log" }
