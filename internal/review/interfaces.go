// Package review implements the review-session state machine that takes
// a ticket from "ready for review" to a terminal outcome, coordinating
// the issue tracker, the document store, and the code-host review API.
package review

import (
	"context"

	"github.com/devfactory/reviewmaker/pkg/models"
)

// TicketGateway is a thin façade over the issue tracker.
type TicketGateway interface {
	// GetTicket fetches a ticket by key.
	GetTicket(ctx context.Context, key string) (*models.Ticket, error)

	// AssignPeerReviewer writes the "Peer reviewer" custom field.
	AssignPeerReviewer(ctx context.Context, key, username string) error

	// SetReportLink writes the "QB Checklist Report" custom field.
	SetReportLink(ctx context.Context, key, link string) error

	// Transition executes a named workflow transition. The names are a
	// contract with the tracker's workflow configuration.
	Transition(ctx context.Context, key, name string) error
}

// DocumentStore abstracts the Drive folder and Sheets cell operations
// the session needs.
type DocumentStore interface {
	// FindFolders returns the ids of folders with the given name under
	// the given parent.
	FindFolders(ctx context.Context, name, parentID string) ([]string, error)

	// CreateFolder creates a folder and returns its id.
	CreateFolder(ctx context.Context, name, parentID string) (string, error)

	// CopySpreadsheet copies the template into folderID under the given
	// name and returns the new document id.
	CopySpreadsheet(ctx context.Context, templateID, name, folderID string) (string, error)

	// ReadRange reads cell values from an A1-notation range.
	ReadRange(ctx context.Context, spreadsheetID, readRange string) ([][]string, error)

	// WriteRange writes cell values into an A1-notation range.
	WriteRange(ctx context.Context, spreadsheetID, writeRange string, values [][]string) error
}

// ReviewAPI submits pull request reviews. Implementations compose the
// review body from the QB link and the failed items according to the
// configured approval action.
type ReviewAPI interface {
	// ReviewPullRequest returns false when the review was not accepted;
	// the caller treats that as a warning, never as a session failure,
	// because the ticket-side outcome is already recorded.
	ReviewPullRequest(ctx context.Context, pr models.PrReference, approve bool, qbLink string, failedItems []string) (bool, error)
}

// Prompter reads operator commands at the session's single suspension
// point.
type Prompter interface {
	ReadCommand(prompt string) (string, error)
}
