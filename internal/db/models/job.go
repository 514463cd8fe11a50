package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// JobState represents the current state of a posting job in the system.
// States advance monotonically through the pipeline; a state is only
// re-entered via an explicit retry of the same stage.
type JobState int

// Job state constants
const (
	// StateIdle indicates the job has been accepted but not started
	StateIdle JobState = iota
	// StateCollectingTrend indicates trending keywords are being collected
	StateCollectingTrend
	// StateSelectingTopic indicates a posting topic is being selected
	StateSelectingTopic
	// StateGeneratingContent indicates the blog body is being generated
	StateGeneratingContent
	// StateGeneratingImage indicates the header image is being generated
	StateGeneratingImage
	// StateLoggingIn indicates the browser session is authenticating
	StateLoggingIn
	// StatePublishing indicates the post is being submitted
	StatePublishing
	// StateSucceeded indicates the job finished and the post is live
	StateSucceeded
	// StateFailed indicates the job failed to complete
	StateFailed
	// StateCancelled indicates the job was cancelled by the user
	StateCancelled
)

var jobStateNames = []string{
	"idle",
	"collecting_trend",
	"selecting_topic",
	"generating_content",
	"generating_image",
	"logging_in",
	"publishing",
	"succeeded",
	"failed",
	"cancelled",
}

// ParseJobState converts a string representation of a job state to JobState
func ParseJobState(str string) (JobState, error) {
	for i, name := range jobStateNames {
		if name == str {
			return JobState(i), nil
		}
	}
	return JobState(0), fmt.Errorf("invalid job state: %s", str)
}

func (s JobState) String() string {
	if int(s) < 0 || int(s) >= len(jobStateNames) {
		return "unknown"
	}
	return jobStateNames[s]
}

// Terminal reports whether the state is a terminal state
func (s JobState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

// MarshalJSON implements the json.Marshaler interface for JobState
func (s JobState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for JobState
func (s *JobState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	state, err := ParseJobState(str)
	if err != nil {
		return err
	}
	*s = state
	return nil
}

// FailureKind classifies why a job failed. It is empty while a job is
// healthy and exactly one kind is recorded when the job reaches failed.
type FailureKind string

// Failure kind constants
const (
	// FailureNone indicates no failure has been recorded
	FailureNone FailureKind = ""
	// FailureTransient indicates a retryable service fault exhausted its retries
	FailureTransient FailureKind = "transient_service"
	// FailureAuthentication indicates rejected credentials or a CAPTCHA/2FA challenge
	FailureAuthentication FailureKind = "authentication"
	// FailureContentPolicy indicates the platform rejected the content itself
	FailureContentPolicy FailureKind = "content_policy"
	// FailureConfiguration indicates missing API keys or credentials
	FailureConfiguration FailureKind = "configuration"
)

// Job represents one run of the posting pipeline
type Job struct {
	gorm.Model
	JobID        string      `json:"job_id" gorm:"uniqueIndex;not null"`
	Category     string      `json:"category" gorm:"index"`
	Keyword      string      `json:"keyword"`
	IncludeImage bool        `json:"include_image"`
	IncludeEmoji bool        `json:"include_emoji"`
	State        JobState    `json:"state" gorm:"index"`
	FailureKind  FailureKind `json:"failure_kind,omitempty"`
	Error        string      `json:"error,omitempty" gorm:"type:text"`
	PostURL      string      `json:"post_url,omitempty"`
	PostTitle    string      `json:"post_title,omitempty"`
	StartedAt    time.Time   `json:"started_at"`
	FinishedAt   *time.Time  `json:"finished_at,omitempty"`
}
