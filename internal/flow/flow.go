// Package flow implements the buyer side of contacting a seller: the caller is
// checked for a session, shown the NDA, and only then allowed to send a
// message that becomes a pending contact request.
package flow

import (
	"context"
	"strings"
	"sync"

	"github.com/senyabanana/surplus-market/internal/apiclient"
	"github.com/senyabanana/surplus-market/internal/models"
	"github.com/senyabanana/surplus-market/internal/notify"
)

// NDAText is shown in full before a buyer may write to a seller.
const NDAText = `NON-DISCLOSURE UNDERTAKING

1. Any information received from the seller in connection with this listing,
   including prices, quantities, stock locations and contact details, is
   confidential.
2. You will use that information only to evaluate and complete a purchase of
   the listed goods.
3. You will not share it with third parties, other than your employees and
   advisers who need it for that purpose and are bound by equivalent terms.
4. You will not contact the seller's customers or suppliers using information
   obtained through this platform.
5. These obligations survive for two years after the last exchange between
   the parties.

By accepting you confirm that you are authorised to bind your company to
these terms.`

// Creator sends a contact request. apiclient.Client implements it.
type Creator interface {
	CreateContactRequest(ctx context.Context, req models.NewContactRequest) (*models.ContactRequest, error)
}

// Authenticator reports whether the caller is signed in. session.Session implements it.
type Authenticator interface {
	Authenticated() bool
}

// Draft is what the buyer has typed so far.
type Draft struct {
	Message string
	Phone   string
}

// Flow is one attempt to contact the seller of one product.
type Flow struct {
	productID int64
	api       Creator
	session   Authenticator
	notifier  notify.Notifier

	mu          sync.Mutex
	state       State
	ndaAccepted bool
	draft       Draft
	result      *models.ContactRequest
	inflight    chan struct{}
}

func New(productID int64, api Creator, session Authenticator, notifier notify.Notifier) *Flow {
	return &Flow{productID: productID, api: api, session: session, notifier: notifier}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

func (f *Flow) NDAAccepted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ndaAccepted
}

// Result is the created request once the flow reached Submitted.
func (f *Flow) Result() *models.ContactRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

func (f *Flow) NDA() string { return NDAText }

// Start checks the session. A signed-out caller is sent back to Idle with a
// sign-in prompt and may call Start again after signing in.
func (f *Flow) Start() (State, error) {
	f.mu.Lock()
	next, err := Next(f.state, EventStart)
	if err != nil {
		f.mu.Unlock()
		return f.state, err
	}
	f.state = next

	if f.session != nil && f.session.Authenticated() {
		f.state, _ = Next(f.state, EventAuthenticated)
		state := f.state
		f.mu.Unlock()
		return state, nil
	}

	f.state, _ = Next(f.state, EventUnauthenticated)
	state := f.state
	f.mu.Unlock()
	f.notify(notify.Notice{Level: notify.LevelInfo, Text: "Sign in or register your company to contact the seller.", Remedy: notify.RemedyLogin})
	return state, nil
}

func (f *Flow) AcceptNDA() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	next, err := Next(f.state, EventAcceptNDA)
	if err != nil {
		return err
	}
	f.state = next
	f.ndaAccepted = true
	return nil
}

// DeclineNDA returns to Idle and discards everything collected so far.
func (f *Flow) DeclineNDA() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	next, err := Next(f.state, EventDeclineNDA)
	if err != nil {
		return err
	}
	f.state = next
	f.clear()
	return nil
}

// Submit sends the message. At most one call is outstanding at a time; a
// second Submit meanwhile returns ErrSubmissionInFlight. On failure the flow
// stays in MessageComposition with the draft kept.
func (f *Flow) Submit(ctx context.Context, message, phone string) (*models.ContactRequest, error) {
	f.mu.Lock()
	next, err := Next(f.state, EventSubmit)
	if err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.draft = Draft{Message: message, Phone: phone}

	req := f.request()
	if problems := req.Validate(); len(problems) > 0 {
		f.mu.Unlock()
		verr := apiclient.ValidationError(problems)
		f.notify(notify.FromError(verr))
		return nil, verr
	}

	f.state = next
	done := make(chan struct{})
	f.inflight = done
	f.mu.Unlock()

	created, err := f.api.CreateContactRequest(ctx, req)

	f.mu.Lock()
	f.inflight = nil
	if err != nil {
		f.state, _ = Next(f.state, EventSubmitFailed)
	} else {
		f.state, _ = Next(f.state, EventSubmitSucceeded)
		f.result = created
	}
	close(done)
	f.mu.Unlock()

	if err != nil {
		f.notify(notify.FromError(err))
		return nil, err
	}
	f.notify(notify.Notice{Level: notify.LevelSuccess, Text: "Your request was sent to the seller."})
	return created, nil
}

// Cancel abandons the flow, clearing the draft and the NDA acceptance. If a
// submission is in flight Cancel waits for it to resolve; it never aborts it.
// When that submission succeeded the flow stays Submitted. ctx bounds only
// the wait.
func (f *Flow) Cancel(ctx context.Context) (State, error) {
	f.mu.Lock()
	for f.state == Submitting {
		done := f.inflight
		f.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return Submitting, ctx.Err()
		}
		f.mu.Lock()
	}
	defer f.mu.Unlock()

	switch f.state {
	case Idle:
		f.clear()
		return Idle, nil
	case Submitted:
		return Submitted, nil
	}
	next, err := Next(f.state, EventCancel)
	if err != nil {
		return f.state, err
	}
	f.state = next
	f.clear()
	return f.state, nil
}

// request is the only place a NewContactRequest is built.
func (f *Flow) request() models.NewContactRequest {
	req := models.NewContactRequest{
		ProductID:   f.productID,
		Message:     strings.TrimSpace(f.draft.Message),
		NDAAccepted: f.ndaAccepted,
	}
	if phone := strings.TrimSpace(f.draft.Phone); phone != "" {
		req.ContactPhone = &phone
	}
	return req
}

func (f *Flow) clear() {
	f.draft = Draft{}
	f.ndaAccepted = false
}

func (f *Flow) notify(n notify.Notice) {
	if f.notifier != nil {
		f.notifier.Notify(n)
	}
}
