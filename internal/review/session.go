package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/devfactory/reviewmaker/internal/config"
	"github.com/devfactory/reviewmaker/internal/logging"
	"github.com/devfactory/reviewmaker/internal/output"
	"github.com/devfactory/reviewmaker/pkg/models"
)

// Ticket statuses the session accepts and the workflow transitions it
// executes. The names are a contract with the tracker's workflow
// configuration.
const (
	StatusReadyForReview = "Ready For Review"
	StatusCodeReview     = "Code Review"

	TransitionStartReview = "Start Review"
	TransitionApproved    = "Code review approved"
	TransitionRejected    = "Review rejected"
)

// State identifies the session's position in the review workflow.
type State int

const (
	StateIdle State = iota
	StateTicketLoaded
	StateValidated
	StateReviewerAssigned
	StateTransitionedToReview
	StateQbCreated
	StateQbFilled
	StateAwaitingDecision
	StateApproved
	StateRejected
	StateSkipped
	StateAborted
)

var stateNames = map[State]string{
	StateIdle:                 "Idle",
	StateTicketLoaded:         "TicketLoaded",
	StateValidated:            "Validated",
	StateReviewerAssigned:     "ReviewerAssigned",
	StateTransitionedToReview: "TransitionedToReview",
	StateQbCreated:            "QbCreated",
	StateQbFilled:             "QbFilled",
	StateAwaitingDecision:     "AwaitingDecision",
	StateApproved:             "Approved",
	StateRejected:             "Rejected",
	StateSkipped:              "Skipped",
	StateAborted:              "Aborted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether the session has reached an outcome.
func (s State) Terminal() bool {
	switch s {
	case StateApproved, StateRejected, StateSkipped, StateAborted:
		return true
	}
	return false
}

// Deps bundles the collaborators a session needs. The folder cache is
// owned by the outer loop and shared across sessions within one
// process run.
type Deps struct {
	Config   *config.Config
	Tickets  TicketGateway
	Docs     DocumentStore
	Reviews  ReviewAPI
	Prompter Prompter
	UI       *output.UI
	Qb       *QbService
	History  *HistoryRecorder

	// Reviewer is the acting reviewer's identity.
	Reviewer models.User

	// Folders maps repository name to destination folder id.
	Folders map[string]string

	// OpenLink opens a URL in the operator's browser. Optional; the
	// open command warns when unset.
	OpenLink func(url string) error
}

// Session is the state machine for one ticket review. It is used for a
// single ticket and discarded; a crash mid-session is recovered by
// re-running, which the idempotency rules make safe.
type Session struct {
	deps  Deps
	state State
	date  string

	ticket    *models.Ticket
	ticketURL string
	author    models.User
	pr        models.PrReference
	doc       models.QbDocument
	qbLink    string
}

// NewSession creates an idle session.
func NewSession(deps Deps) *Session {
	return &Session{deps: deps, state: StateIdle}
}

// State returns the session's current state.
func (s *Session) State() State {
	return s.state
}

// QbLink returns the QB document's viewer link, available after Start.
func (s *Session) QbLink() string {
	return s.qbLink
}

func (s *Session) abort(err error) error {
	s.state = StateAborted
	return err
}

// Start takes the ticket through validation, reviewer assignment, the
// forward workflow transition, and QB document provisioning, and
// returns the QB viewer link. date stamps the document name and any
// history record of this session.
func (s *Session) Start(ctx context.Context, ticketRef, date string) (string, error) {
	s.date = date
	ui := s.deps.UI

	key, browseURL, err := ParseTicketRef(s.deps.Config.Jira.URL, ticketRef)
	if err != nil {
		return "", s.abort(err)
	}
	s.ticketURL = browseURL

	ui.Step("Get ticket")
	ticket, err := s.deps.Tickets.GetTicket(ctx, key)
	if err != nil {
		return "", s.abort(fmt.Errorf("failed to get ticket %s: %w", key, err))
	}
	ui.Done()
	s.ticket = ticket
	s.state = StateTicketLoaded

	if strings.TrimSpace(ticket.Assignee) == "" {
		return "", s.abort(fmt.Errorf("%w: ticket %s", ErrEmptyAssignee, key))
	}
	s.author = models.User{Username: ticket.Assignee, DisplayName: ticket.AssigneeDisplay}
	if s.author.DisplayName == "" {
		s.author.DisplayName = s.author.Username
	}

	// Status is captured before the reviewer-assignment reload; the
	// forward transition decision below uses the status as loaded.
	status := ticket.Status
	if status != StatusReadyForReview && status != StatusCodeReview {
		return "", s.abort(fmt.Errorf("%w: %s", ErrUnexpectedState, status))
	}
	s.state = StateValidated

	ui.Step("Make checks")
	failedChecks := AdditionalChecks(ticket)
	ui.Done()
	if len(failedChecks) > 0 {
		ui.Warning("Failed checks:")
		for _, check := range failedChecks {
			ui.Warning(" * %s", check)
		}
	}

	if err := s.assignReviewer(ctx, key); err != nil {
		return "", s.abort(err)
	}
	s.state = StateReviewerAssigned

	if status == StatusReadyForReview {
		ui.Step("Start review")
		if err := s.deps.Tickets.Transition(ctx, key, TransitionStartReview); err != nil {
			return "", s.abort(fmt.Errorf("failed to start review on %s: %w", key, err))
		}
		ui.Done()
	}
	s.state = StateTransitionedToReview

	pr, err := ParsePrURL(s.deps.Config.GitHub.Domain, s.ticket.PrURL)
	if err != nil {
		return "", s.abort(err)
	}
	s.pr = pr

	folderID, err := s.resolveFolder(ctx, pr.Repo)
	if err != nil {
		return "", s.abort(err)
	}

	ui.Step("Create QB file")
	doc, err := s.deps.Qb.Create(ctx, folderID, fmt.Sprintf("%s %s", s.ticket.Key, date))
	if err != nil {
		return "", s.abort(err)
	}
	ui.Done()
	s.doc = doc
	s.state = StateQbCreated

	ui.Step("Fill QB file")
	err = s.deps.Qb.FillSummary(ctx, doc, s.ticketURL, s.ticket.PrURL, s.deps.Reviewer.DisplayName, s.author.DisplayName)
	if err != nil {
		return "", s.abort(err)
	}
	if err := s.deps.Qb.FillChecklist(ctx, doc, s.ticket.Type); err != nil {
		return "", s.abort(err)
	}
	ui.Done()
	s.state = StateQbFilled

	s.qbLink = s.deps.Qb.Link(doc)
	return s.qbLink, nil
}

// assignReviewer writes the peer-reviewer field idempotently. A fresh
// assignment requires a ticket reload: reads after a custom-field write
// are not guaranteed fresh, and the tracker refuses the forward
// transition on a stale ticket.
func (s *Session) assignReviewer(ctx context.Context, key string) error {
	ui := s.deps.UI
	me := s.deps.Reviewer.Username

	ui.Step("Set peer reviewer")
	if s.ticket.PeerReviewer == "" {
		if err := s.deps.Tickets.AssignPeerReviewer(ctx, key, me); err != nil {
			return fmt.Errorf("failed to set peer reviewer on %s: %w", key, err)
		}

		ticket, err := s.deps.Tickets.GetTicket(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to reload ticket %s: %w", key, err)
		}
		s.ticket = ticket
		ui.Done()
		return nil
	}

	ui.Print("already set to %s", s.ticket.PeerReviewer)
	if s.ticket.PeerReviewer != me {
		return fmt.Errorf("%w to %s", ErrAlreadyReviewed, s.ticket.PeerReviewer)
	}
	return nil
}

// resolveFolder finds the destination folder for the PR's repository,
// creating it on first use. The result is cached for the process
// lifetime; external renames are not observed until restart.
func (s *Session) resolveFolder(ctx context.Context, repo string) (string, error) {
	if id, ok := s.deps.Folders[repo]; ok {
		return id, nil
	}

	ui := s.deps.UI
	ui.Step("Get QB folder id")

	parent := s.deps.Qb.ParentFolderID()
	ids, err := s.deps.Docs.FindFolders(ctx, repo, parent)
	if err != nil {
		return "", fmt.Errorf("failed to look up QB folder %q: %w", repo, err)
	}

	var folderID string
	switch {
	case len(ids) > 1:
		return "", fmt.Errorf("%w: %s (ids: %s)", ErrAmbiguousFolder, repo, strings.Join(ids, ", "))
	case len(ids) == 1:
		folderID = ids[0]
	default:
		folderID, err = s.deps.Docs.CreateFolder(ctx, repo, parent)
		if err != nil {
			return "", fmt.Errorf("failed to create QB folder %q: %w", repo, err)
		}
	}

	s.deps.Folders[repo] = folderID
	ui.Done()
	return folderID, nil
}

// Finish runs the interactive decision loop until the session reaches a
// terminal outcome. This is the session's single suspension point.
// Recoverable failures inside approve or reject are reported and the
// operator is prompted again.
func (s *Session) Finish(ctx context.Context) (State, error) {
	s.state = StateAwaitingDecision

	for {
		input, err := s.deps.Prompter.ReadCommand(
			"Please enter command to finish review [open qb (o), approve (a), reject (r) or skip this PR (s)]: ")
		if err != nil {
			return StateAborted, s.abort(fmt.Errorf("failed to read command: %w", err))
		}
		if strings.TrimSpace(input) == "" {
			continue
		}

		switch ParseCommand(input) {
		case CommandOpen:
			s.openQbLink()

		case CommandApprove:
			if err := s.approve(ctx); err != nil {
				if IsRecoverable(err) {
					s.deps.UI.Error("%v", err)
					continue
				}
				return StateAborted, s.abort(err)
			}
			s.state = StateApproved
			return s.state, nil

		case CommandReject:
			if err := s.reject(ctx); err != nil {
				if IsRecoverable(err) {
					s.deps.UI.Error("%v", err)
					continue
				}
				return StateAborted, s.abort(err)
			}
			s.state = StateRejected
			return s.state, nil

		case CommandSkip:
			// Reviewer assignment and the QB document persist as an
			// audit trail even for skipped tickets.
			s.state = StateSkipped
			return s.state, nil

		default:
			s.deps.UI.Print("Unknown command: %s", input)
		}
	}
}

func (s *Session) openQbLink() {
	if s.deps.OpenLink == nil {
		s.deps.UI.Warning("Cannot open browser; QB url: %s", s.qbLink)
		return
	}
	if err := s.deps.OpenLink(s.qbLink); err != nil {
		s.deps.UI.Warning("Failed to open QB url: %v", err)
	}
}

// approve records the approval on the ticket and, when configured,
// on the PR. A non-passing verdict is surfaced but does not block: the
// operator, not the checklist, is the authority.
func (s *Session) approve(ctx context.Context) error {
	ui := s.deps.UI

	ui.Step("Check QB file")
	verdict, err := s.deps.Qb.Verdict(ctx, s.doc)
	if err != nil {
		return err
	}
	if strings.EqualFold(verdict, VerdictPassed) {
		ui.Success("passed")
	} else {
		ui.Error("%s", verdict)
	}

	ui.Step("Move ticket to %q", "Code merge")
	if err := s.deps.Tickets.SetReportLink(ctx, s.ticket.Key, s.qbLink); err != nil {
		return fmt.Errorf("failed to set QB report link on %s: %w", s.ticket.Key, err)
	}
	if err := s.deps.Tickets.Transition(ctx, s.ticket.Key, TransitionApproved); err != nil {
		return fmt.Errorf("failed to approve %s: %w", s.ticket.Key, err)
	}
	ui.Done()

	switch action := s.deps.Config.Review.ApprovePrAction; action {
	case "approve", "comment":
		if action == "approve" {
			ui.Step("Approve PR")
		} else {
			ui.Step("Leave a comment")
		}
		s.reviewPr(ctx, true, nil)
	default:
		ui.Warning("Unknown PR approve action: %q. PR wasn't approved. Please do it manually", action)
	}

	return nil
}

// reject records the rejection on the ticket, optionally requests
// changes on the PR, and appends a history record. A "Passed" verdict
// makes the rejection inconsistent and nothing is mutated.
func (s *Session) reject(ctx context.Context) error {
	ui := s.deps.UI

	ui.Step("Check QB file")
	verdict, err := s.deps.Qb.Verdict(ctx, s.doc)
	if err != nil {
		return err
	}
	if strings.EqualFold(verdict, VerdictPassed) {
		return fmt.Errorf("%w (ticket %s)", ErrInconsistentRejection, s.ticket.Key)
	}
	ui.Done()

	ui.Step("Get failed rules")
	failedItems, err := s.deps.Qb.FailedRules(ctx, s.doc)
	if err != nil {
		return err
	}
	ui.Done()

	if s.deps.Config.Review.RejectPr {
		ui.Step("Reject PR")
		s.reviewPr(ctx, false, failedItems)
	}

	ui.Step("Reject ticket")
	if err := s.deps.Tickets.SetReportLink(ctx, s.ticket.Key, s.qbLink); err != nil {
		return fmt.Errorf("failed to set QB report link on %s: %w", s.ticket.Key, err)
	}
	if err := s.deps.Tickets.Transition(ctx, s.ticket.Key, TransitionRejected); err != nil {
		return fmt.Errorf("failed to reject %s: %w", s.ticket.Key, err)
	}
	ui.Done()

	ui.Step("Add record to the history sheet")
	err = s.deps.History.Append(ctx, models.HistoryRecord{
		Date:        s.date,
		TicketKey:   s.ticket.Key,
		Author:      s.author.DisplayName,
		Reviewer:    s.deps.Reviewer.DisplayName,
		TicketType:  s.ticket.Type,
		FailedRules: failedItems,
	})
	if err != nil {
		return err
	}
	ui.Done()

	return nil
}

// reviewPr submits the PR-side review. Failures are warnings only: the
// ticket transition already happened and remains authoritative.
func (s *Session) reviewPr(ctx context.Context, approve bool, failedItems []string) {
	ok, err := s.deps.Reviews.ReviewPullRequest(ctx, s.pr, approve, s.qbLink, failedItems)
	if err != nil || !ok {
		s.deps.UI.Error("error")
		logging.Warn("pr review submission failed",
			"ticket", s.ticket.Key,
			"pr", fmt.Sprintf("%s/%s#%d", s.pr.Owner, s.pr.Repo, s.pr.Number),
			"error", err)
		return
	}
	s.deps.UI.Done()
}
