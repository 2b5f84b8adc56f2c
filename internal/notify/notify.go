// Package notify turns failures into user-facing notices.
package notify

import (
	"sync"

	"github.com/senyabanana/surplus-market/internal/apiclient"
)

// Level of a notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

// Remedy tells the caller where to route the user.
type Remedy string

const (
	RemedyNone         Remedy = ""
	RemedyLogin        Remedy = "login"
	RemedyRegister     Remedy = "register_company"
	RemedyVerification Remedy = "verification"
	RemedyRetry        Remedy = "retry"
	RemedyRefresh      Remedy = "refresh"
	RemedyFixInput     Remedy = "fix_input"
)

type Notice struct {
	Level  Level
	Text   string
	Remedy Remedy
}

// Notifier receives every notice raised by flows and dashboards.
type Notifier interface {
	Notify(Notice)
}

// FromError builds a notice for err, choosing the remedy from its kind.
func FromError(err error) Notice {
	kind := apiclient.KindOf(err)
	switch kind {
	case apiclient.KindAuth:
		return Notice{Level: LevelWarning, Text: "Please sign in to continue.", Remedy: RemedyLogin}
	case apiclient.KindForbidden:
		return Notice{Level: LevelWarning, Text: err.Error(), Remedy: RemedyRegister}
	case apiclient.KindVerificationRequired:
		return Notice{Level: LevelWarning, Text: "Your company must be verified first.", Remedy: RemedyVerification}
	case apiclient.KindConflict:
		return Notice{Level: LevelWarning, Text: err.Error(), Remedy: RemedyRefresh}
	case apiclient.KindValidation:
		return Notice{Level: LevelError, Text: err.Error(), Remedy: RemedyFixInput}
	case apiclient.KindNotFound:
		return Notice{Level: LevelError, Text: err.Error(), Remedy: RemedyRefresh}
	case apiclient.KindTransient:
		return Notice{Level: LevelError, Text: "Something went wrong. Please try again.", Remedy: RemedyRetry}
	default:
		return Notice{Level: LevelError, Text: err.Error(), Remedy: RemedyRetry}
	}
}

// Recorder keeps notices in order.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns a copy of everything recorded so far.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Last returns the most recent notice.
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}
