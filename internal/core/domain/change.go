package domain

import "time"

// ChangeAction is the kind of filesystem modification observed on the project tree.
type ChangeAction string

const (
	ActionCreated ChangeAction = "created"
	ActionUpdated ChangeAction = "updated"
	ActionDeleted ChangeAction = "deleted"
)

// FileChange records one modification to a project file.
type FileChange struct {
	Path      string       `json:"path"`
	Action    ChangeAction `json:"action"`
	Timestamp time.Time    `json:"timestamp"`
}
