// Package health provides system health monitoring and status reporting.
package health

import "github.com/vietddude/remedy/internal/core/domain"

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// SessionHealth contains health metrics for the watched session.
type SessionHealth struct {
	SessionID       string                     `json:"session_id"`
	Status          SystemStatus               `json:"status"`
	Connected       bool                       `json:"connected"`
	Fixing          bool                       `json:"fixing"`
	FixAttempts     int                        `json:"fix_attempts"`
	BudgetExhausted bool                       `json:"budget_exhausted"`
	PendingErrors   int                        `json:"pending_errors"`
	Unresolved      map[domain.ErrorSource]int `json:"unresolved"`
}
