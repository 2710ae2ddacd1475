// Package models defines data structures shared across the application.
package models

// Ticket represents a JIRA ticket under review with the fields the
// review workflow reads and writes.
type Ticket struct {
	// Key is the full JIRA ticket identifier (e.g., "CC-123")
	Key string

	// Summary is the ticket's summary field
	Summary string

	// Status is the current workflow status name (e.g., "Ready For Review")
	Status string

	// Type is the JIRA issue type (e.g., "Dead Code", "BRP Issues")
	Type string

	// Assignee is the username of the ticket assignee (the PR author)
	Assignee string

	// AssigneeDisplay is the assignee's human-readable name
	AssigneeDisplay string

	// PeerReviewer is the username stored in the "Peer reviewer" custom
	// field, empty when nobody has claimed the review yet
	PeerReviewer string

	// PrURL is the value of the "Code Review Ticket URL" custom field
	PrURL string
}

// User identifies a JIRA account.
type User struct {
	// Username is the account name used for assignment and comparison
	Username string

	// DisplayName is the human-readable name written into documents
	DisplayName string
}

// PrReference is a parsed pull request address.
type PrReference struct {
	// Owner is the repository owner (user or organization)
	Owner string

	// Repo is the repository name
	Repo string

	// Number is the pull request number
	Number int
}

// QbDocument is the per-review checklist spreadsheet created from the
// QB template. It is owned by exactly one review session.
type QbDocument struct {
	// ID is the spreadsheet's document id
	ID string

	// Name is the document name ("<ticket key> <timestamp>")
	Name string
}

// SheetPage is the static schema for one checklist category of the QB
// document. Loaded from configuration, read-only.
type SheetPage struct {
	// Name is the sheet name inside the QB document (e.g., "1. Basic checks")
	Name string `mapstructure:"name"`

	// RulesCount is the number of rule rows on the sheet
	RulesCount int `mapstructure:"rules_count"`

	// TicketTypeCondition restricts the page to one ticket type when
	// non-empty
	TicketTypeCondition string `mapstructure:"ticket_type_condition"`
}

// HistoryRecord is one rejection audit row appended to the history
// sheet. Written once, never mutated.
type HistoryRecord struct {
	// Date is the session timestamp ("2006-01-02 15:04")
	Date string

	// TicketKey is the rejected ticket's key
	TicketKey string

	// Author is the PR author's display name
	Author string

	// Reviewer is the acting reviewer's display name
	Reviewer string

	// TicketType is the ticket's issue type name
	TicketType string

	// FailedRules holds one "<number>. <text>" entry per failing rule,
	// in checklist page order then row order
	FailedRules []string
}
