package port_authorization

import "context"

type Verdict string

const (
	VerdictApproved    Verdict = "APPROVED"
	VerdictRejected    Verdict = "REJECTED"
	VerdictUnavailable Verdict = "UNAVAILABLE"
)

// Authorizer asks the external authorization service whether a transfer may
// proceed. A non-nil error always comes with VerdictUnavailable.
type Authorizer interface {
	Authorize(ctx context.Context) (Verdict, error)
}
