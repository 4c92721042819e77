package domain

import "time"

// ErrorSource identifies which layer of the execution environment produced an error.
type ErrorSource string

const (
	SourceBrowser   ErrorSource = "browser"
	SourceBuild     ErrorSource = "build"
	SourceDocker    ErrorSource = "docker"
	SourceNetwork   ErrorSource = "network"
	SourceBackend   ErrorSource = "backend"
	SourceTerminal  ErrorSource = "terminal"
	SourceFramework ErrorSource = "framework"
	SourceHotReload ErrorSource = "hot-reload"
	SourceResource  ErrorSource = "resource"
	SourcePolicy    ErrorSource = "policy"
)

// Severity grades a classified error.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ClassifiedError is a single detected failure, retained until resolved or pruned.
type ClassifiedError struct {
	ID        string      `json:"id"`
	Source    ErrorSource `json:"source"`
	Severity  Severity    `json:"severity"`
	Message   string      `json:"message"`
	File      string      `json:"file,omitempty"`
	Line      int         `json:"line,omitempty"`
	Column    int         `json:"column,omitempty"`
	Stack     string      `json:"stack,omitempty"`
	URL       string      `json:"url,omitempty"`
	Status    int         `json:"status,omitempty"`
	Method    string      `json:"method,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Resolved  bool        `json:"resolved"`
}

// ErrorDetails carries the optional location and request context supplied by
// explicit report calls. Classifier output leaves all of these empty.
type ErrorDetails struct {
	File   string
	Line   int
	Column int
	Stack  string
	URL    string
	Status int
	Method string
}

// PendingError is a buffered entry awaiting the next batch report.
type PendingError struct {
	Source    ErrorSource
	Severity  Severity
	Message   string
	Timestamp time.Time
}
