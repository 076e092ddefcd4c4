package status

import "time"

// FetchPhase represents the current phase of a source fetch
type FetchPhase string

const (
	// FetchPhaseFetching means the fetch is currently in progress
	FetchPhaseFetching FetchPhase = "Fetching"

	// FetchPhaseComplete means the fetch completed and the CSV was written
	FetchPhaseComplete FetchPhase = "Complete"

	// FetchPhaseFailed means the fetch failed
	FetchPhaseFailed FetchPhase = "Failed"
)

// FetchStatus represents the last known state of one source
type FetchStatus struct {
	// Phase represents the current fetch phase
	Phase FetchPhase `json:"phase"`

	// Message provides additional information about the fetch status
	Message string `json:"message,omitempty"`

	// ErrorKind is the kind of the last failure (FetchError, FormatError, ...)
	ErrorKind string `json:"errorKind,omitempty"`

	// RunID identifies the run that last touched this status
	RunID string `json:"runId,omitempty"`

	// LastAttempt is the timestamp of the last fetch attempt
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`

	// AttemptCount is the number of failed attempts since the last success
	AttemptCount int `json:"attemptCount,omitempty"`

	// LastSuccessTime is the timestamp of the last successful fetch
	LastSuccessTime *time.Time `json:"lastSuccessTime,omitempty"`

	// LastHash is the SHA256 hash of the last written CSV
	// Used to detect changes in source data between runs
	LastHash string `json:"lastHash,omitempty"`

	// RowCount is the number of rows in the last written CSV
	RowCount int `json:"rowCount,omitempty"`

	// ResolvedURL is the URL the data was last downloaded from
	ResolvedURL string `json:"resolvedUrl,omitempty"`

	// OutputFile is the path of the written CSV
	OutputFile string `json:"outputFile,omitempty"`
}

// IsSuccessful reports whether the last fetch completed
func (s *FetchStatus) IsSuccessful() bool {
	return s != nil && s.Phase == FetchPhaseComplete
}
