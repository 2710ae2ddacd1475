package review

import "errors"

// Recoverable errors abort only the current session; the outer loop
// reports them and prompts for the next ticket. Anything else is logged
// and the loop continues as well, but without the friendly message.
var (
	// ErrInvalidReference means the operator input is neither a ticket
	// URL nor a bare issue key.
	ErrInvalidReference = errors.New("unknown jira ticket or jira issue key")

	// ErrEmptyAssignee means the ticket has no assignee, so the PR
	// author cannot be identified.
	ErrEmptyAssignee = errors.New("assignee is empty")

	// ErrUnexpectedState means the ticket is not in a reviewable status.
	ErrUnexpectedState = errors.New("unknown ticket state")

	// ErrAlreadyReviewed means the peer-reviewer field holds a
	// different identity. The session never overwrites it.
	ErrAlreadyReviewed = errors.New("ticket is already assigned")

	// ErrInvalidPRURL means the "Code Review Ticket URL" field does not
	// hold a pull request address.
	ErrInvalidPRURL = errors.New("invalid PR url")

	// ErrAmbiguousFolder means more than one destination folder matches
	// the repository name; the session refuses to guess.
	ErrAmbiguousFolder = errors.New("found multiple folders with the same name")

	// ErrInconsistentRejection means the operator chose reject while
	// the QB verdict reads "Passed".
	ErrInconsistentRejection = errors.New("ticket should be rejected, but QB checks passed; please check QB file")
)

var recoverableErrors = []error{
	ErrInvalidReference,
	ErrEmptyAssignee,
	ErrUnexpectedState,
	ErrAlreadyReviewed,
	ErrInvalidPRURL,
	ErrAmbiguousFolder,
	ErrInconsistentRejection,
}

// IsRecoverable reports whether err aborts only the current review
// session rather than indicating an infrastructure failure.
func IsRecoverable(err error) bool {
	for _, sentinel := range recoverableErrors {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
