package domain

// ReportedError is one entry of an outbound batch report.
type ReportedError struct {
	Source    ErrorSource `json:"source"`
	Type      string      `json:"type"` // always "auto_detected" for classifier output
	Message   string      `json:"message"`
	Severity  Severity    `json:"severity"`
	Timestamp int64       `json:"timestamp"` // epoch milliseconds
}

// ModifiedFile is the wire form of a FileChange.
type ModifiedFile struct {
	Path      string       `json:"path"`
	Action    ChangeAction `json:"action"`
	Timestamp int64        `json:"timestamp"`
}

// ErrorReport is the request body of POST /errors/report/{sessionId}.
type ErrorReport struct {
	Errors           []ReportedError `json:"errors"`
	Context          string          `json:"context"`
	Command          string          `json:"command"`
	Timestamp        int64           `json:"timestamp"`
	FileTree         []string        `json:"file_tree"`
	RecentlyModified []ModifiedFile  `json:"recently_modified"`
}

// FixResponse is returned by the manual fix-all path.
type FixResponse struct {
	Success        bool     `json:"success"`
	PatchesApplied int      `json:"patches_applied,omitempty"`
	FilesModified  []string `json:"files_modified,omitempty"`
	Message        string   `json:"message,omitempty"`
}
