package domain

import (
	"context"
	"time"
)

// FactStore handles persistent storage of remembered facts and the
// audit trail of executed commands. It is the "memory" handle in the
// shared skill context.
type FactStore interface {
	SaveFact(ctx context.Context, fact Fact) error
	SearchFacts(ctx context.Context, query string, limit int) ([]Fact, error)
	RecentFacts(ctx context.Context, limit int) ([]Fact, error)

	LogAudit(ctx context.Context, entry AuditEntry) error
	RecentAudit(ctx context.Context, limit int) ([]AuditEntry, error)

	Close() error
}

// Fact is one remembered piece of information.
type Fact struct {
	ID         int64      `json:"id"`
	Category   string     `json:"category"`
	Content    string     `json:"content"`
	Source     string     `json:"source"`
	Importance int        `json:"importance"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// AuditEntry records one executed command or side effect.
type AuditEntry struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Skill     string    `json:"skill,omitempty"`
	Command   string    `json:"command,omitempty"`
	Result    string    `json:"result,omitempty"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
