// Package browser drives a controlled Chrome session through the Naver
// blog login, compose and publish flow as an explicit state machine.
package browser

import "fmt"

// SessionState represents the state of the browser automation session
type SessionState int

// Session state constants
const (
	// StateUnauthenticated is the initial state before login
	StateUnauthenticated SessionState = iota
	// StateLoggingIn indicates credentials are being submitted
	StateLoggingIn
	// StateAuthenticated indicates the session holds valid login cookies
	StateAuthenticated
	// StateComposing indicates the editor holds the draft content
	StateComposing
	// StateSubmitting indicates the publish action has been triggered
	StateSubmitting
	// StatePublished indicates the post is live
	StatePublished
	// StateLoginFailed is the terminal state after a failed login
	StateLoginFailed
	// StateSubmitFailed is the terminal state after a failed publish
	StateSubmitFailed
)

var sessionStateNames = []string{
	"unauthenticated",
	"logging_in",
	"authenticated",
	"composing",
	"submitting",
	"published",
	"login_failed",
	"submit_failed",
}

func (s SessionState) String() string {
	if int(s) < 0 || int(s) >= len(sessionStateNames) {
		return "unknown"
	}
	return sessionStateNames[s]
}

// Terminal reports whether the session can take no further transitions
func (s SessionState) Terminal() bool {
	return s == StatePublished || s == StateLoginFailed || s == StateSubmitFailed
}

// transitionError reports an operation attempted from the wrong state
func transitionError(op string, from SessionState) error {
	return fmt.Errorf("cannot %s from session state %s", op, from)
}
