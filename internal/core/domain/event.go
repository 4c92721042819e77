package domain

// FixEventType identifies a remediation lifecycle notification.
type FixEventType string

const (
	FixStarted       FixEventType = "fix_started"
	FixCompleted     FixEventType = "fix_completed"
	FixFailed        FixEventType = "fix_failed"
	RebuildCompleted FixEventType = "rebuild_completed"
)

// FixEvent is the inbound message envelope on the remediation connection.
// The coordinator never writes on this channel.
type FixEvent struct {
	Type           FixEventType `json:"type"`
	Reason         string       `json:"reason,omitempty"`
	PatchesApplied int          `json:"patches_applied,omitempty"`
	FilesModified  []string     `json:"files_modified,omitempty"`
	Error          string       `json:"error,omitempty"`
}
