package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartRejectsInvalidReference(t *testing.T) {
	tickets := newFakeTickets(reviewableTicket())
	fx := newFixture(testConfig(), tickets)

	testCases := []string{
		"",
		"not a ticket",
		"cc-123",
		"CC-123x",
		"https://jira.devfactory.com/browse/",
		"https://other.example.com/browse/CC-123",
	}

	for _, ref := range testCases {
		_, err := fx.session.Start(context.Background(), ref, "2024-05-01 10:00")
		assert.ErrorIs(t, err, ErrInvalidReference, "ref %q", ref)
	}

	// Rejected before any network call
	assert.Equal(t, 0, tickets.getCalls)
	assert.Equal(t, StateAborted, fx.session.State())
}

func TestStartAcceptsUrlAndBareKey(t *testing.T) {
	for _, ref := range []string{"CC-123", "https://jira.devfactory.com/browse/CC-123"} {
		tickets := newFakeTickets(reviewableTicket())
		fx := newFixture(testConfig(), tickets)

		qbLink, err := fx.session.Start(context.Background(), ref, "2024-05-01 10:00")
		require.NoError(t, err, "ref %q", ref)
		assert.Equal(t, "https://docs.google.com/spreadsheets/d/doc-1/edit#gid=1247094356", qbLink)
	}
}

func TestStartFailsOnEmptyAssignee(t *testing.T) {
	ticket := reviewableTicket()
	ticket.Assignee = ""
	tickets := newFakeTickets(ticket)
	fx := newFixture(testConfig(), tickets)

	_, err := fx.session.Start(context.Background(), "CC-123", "2024-05-01 10:00")
	assert.ErrorIs(t, err, ErrEmptyAssignee)
	assert.Empty(t, tickets.assigned)
	assert.Empty(t, fx.store.copies)
}

func TestStartFailsOnUnexpectedStatus(t *testing.T) {
	for _, status := range []string{"Open", "In Progress", "Code merge", "Done", ""} {
		ticket := reviewableTicket()
		ticket.Status = status
		tickets := newFakeTickets(ticket)
		fx := newFixture(testConfig(), tickets)

		_, err := fx.session.Start(context.Background(), "CC-123", "2024-05-01 10:00")
		assert.ErrorIs(t, err, ErrUnexpectedState, "status %q", status)
		assert.Empty(t, tickets.assigned, "status %q", status)
		assert.Empty(t, tickets.transitions, "status %q", status)
		assert.Empty(t, fx.store.copies, "status %q", status)
	}
}

func TestStartAssignsReviewerAndTransitions(t *testing.T) {
	tickets := newFakeTickets(reviewableTicket())
	fx := newFixture(testConfig(), tickets)

	qbLink, err := fx.session.Start(context.Background(), "CC-123", "2024-05-01 10:00")
	require.NoError(t, err)

	// Scenario A: reviewer claimed, ticket moved forward, QB link returned
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/doc-1/edit#gid=1247094356", qbLink)
	assert.Equal(t, []string{"rev"}, tickets.assigned)
	assert.Equal(t, "rev", tickets.tickets["CC-123"].PeerReviewer)
	assert.Equal(t, []string{TransitionStartReview}, tickets.transitions)
	assert.Equal(t, StatusCodeReview, tickets.tickets["CC-123"].Status)
	assert.Equal(t, StateQbFilled, fx.session.State())

	// Assignment reloads the ticket before the forward transition
	assert.Equal(t, 2, tickets.getCalls)

	require.Len(t, fx.store.copies, 1)
	assert.Equal(t, docCopy{template: "template-1", name: "CC-123 2024-05-01 10:00", folder: "folder-widget"}, fx.store.copies[0])
	assert.Equal(t, []string{"widget"}, fx.store.createdFolders)
}

func TestStartFillsQbDocument(t *testing.T) {
	tickets := newFakeTickets(reviewableTicket())
	fx := newFixture(testConfig(), tickets)

	_, err := fx.session.Start(context.Background(), "CC-123", "2024-05-01 10:00")
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"https://jira.devfactory.com/browse/CC-123"},
		{"https://github.com/acme/widget/pull/42"},
		{"Rev Iewer"},
	}, fx.store.written("doc-1", "Summary!B7:B9"))
	assert.Equal(t, [][]string{{"John Doe"}}, fx.store.written("doc-1", "Summary!B11"))

	// Every applicable page is seeded with PASS markers
	assert.Equal(t, [][]string{{"PASS"}, {"PASS"}, {"PASS"}}, fx.store.written("doc-1", "1. Basic checks!A3:A5"))
	assert.Equal(t, [][]string{{"PASS"}, {"PASS"}}, fx.store.written("doc-1", "4. C#!A3:A4"))
}

func TestStartSkipsChecklistPageForOtherTicketType(t *testing.T) {
	ticket := reviewableTicket()
	ticket.Type = "BRP Issues"
	ticket.Summary = "BRP Formatting::cleanup"
	tickets := newFakeTickets(ticket)
	fx := newFixture(testConfig(), tickets)

	_, err := fx.session.Start(context.Background(), "CC-123", "2024-05-01 10:00")
	require.NoError(t, err)

	assert.NotNil(t, fx.store.written("doc-1", "1. Basic checks!A3:A5"))
	assert.Nil(t, fx.store.written("doc-1", "4. C#!A3:A4"))
}

func TestStartIsIdempotentForSameReviewer(t *testing.T) {
	ticket := reviewableTicket()
	ticket.PeerReviewer = "rev"
	ticket.Status = StatusCodeReview
	tickets := newFakeTickets(ticket)
	fx := newFixture(testConfig(), tickets)

	_, err := fx.session.Start(context.Background(), "CC-123", "2024-05-01 10:00")
	require.NoError(t, err)

	// No second assignment, no second forward transition
	assert.Empty(t, tickets.assigned)
	assert.Empty(t, tickets.transitions)
	assert.Equal(t, 1, tickets.getCalls)
	assert.Len(t, fx.store.copies, 1)
}

func TestStartFailsWhenAssignedToOtherReviewer(t *testing.T) {
	ticket := reviewableTicket()
	ticket.PeerReviewer = "someone-else"
	tickets := newFakeTickets(ticket)
	fx := newFixture(testConfig(), tickets)

	_, err := fx.session.Start(context.Background(), "CC-123", "2024-05-01 10:00")
	assert.ErrorIs(t, err, ErrAlreadyReviewed)

	// Tracker state untouched beyond the initial read
	assert.Empty(t, tickets.assigned)
	assert.Empty(t, tickets.transitions)
	assert.Equal(t, "someone-else", tickets.tickets["CC-123"].PeerReviewer)
	assert.Empty(t, fx.store.copies)
}

func TestStartFailsOnMalformedPrUrl(t *testing.T) {
	testCases := []string{
		"",
		"https://github.com/acme/widget",
		"https://github.com/acme/widget/pull/",
		"https://github.com/acme/widget/pull/abc",
		"https://github.com/acme/widget/pull/42/checks",
		"http://github.com/acme/widget/pull/42",
	}

	for _, prURL := range testCases {
		ticket := reviewableTicket()
		ticket.PrURL = prURL
		tickets := newFakeTickets(ticket)
		fx := newFixture(testConfig(), tickets)

		_, err := fx.session.Start(context.Background(), "CC-123", "2024-05-01 10:00")
		assert.ErrorIs(t, err, ErrInvalidPRURL, "pr url %q", prURL)

		// Fails before any document-store call
		assert.Equal(t, 0, fx.store.findCalls, "pr url %q", prURL)
		assert.Empty(t, fx.store.copies, "pr url %q", prURL)
	}
}

func TestStartAcceptsPrUrlWithFilesSuffix(t *testing.T) {
	ticket := reviewableTicket()
	ticket.PrURL = "https://github.com/acme/widget/pull/42/files"
	tickets := newFakeTickets(ticket)
	fx := newFixture(testConfig(), tickets)

	_, err := fx.session.Start(context.Background(), "CC-123", "2024-05-01 10:00")
	require.NoError(t, err)
}

func TestStartFailsOnAmbiguousFolder(t *testing.T) {
	tickets := newFakeTickets(reviewableTicket())
	fx := newFixture(testConfig(), tickets)
	fx.store.foldersByName["widget"] = []string{"id-1", "id-2"}

	_, err := fx.session.Start(context.Background(), "CC-123", "2024-05-01 10:00")
	assert.ErrorIs(t, err, ErrAmbiguousFolder)
	assert.Empty(t, fx.store.copies)
}

func TestStartUsesExistingFolder(t *testing.T) {
	tickets := newFakeTickets(reviewableTicket())
	fx := newFixture(testConfig(), tickets)
	fx.store.foldersByName["widget"] = []string{"id-1"}

	_, err := fx.session.Start(context.Background(), "CC-123", "2024-05-01 10:00")
	require.NoError(t, err)

	assert.Empty(t, fx.store.createdFolders)
	assert.Equal(t, "id-1", fx.store.copies[0].folder)
	assert.Equal(t, "id-1", fx.folders["widget"])
}

func TestStartReusesCachedFolder(t *testing.T) {
	tickets := newFakeTickets(reviewableTicket())
	fx := newFixture(testConfig(), tickets)
	fx.folders["widget"] = "cached-id"

	_, err := fx.session.Start(context.Background(), "CC-123", "2024-05-01 10:00")
	require.NoError(t, err)

	assert.Equal(t, 0, fx.store.findCalls)
	assert.Equal(t, "cached-id", fx.store.copies[0].folder)
}

func TestFinishApprove(t *testing.T) {
	tickets := newFakeTickets(reviewableTicket())
	fx := newFixture(testConfig(), tickets, "a")

	qbLink, err := fx.session.Start(context.Background(), "CC-123", "2024-05-01 10:00")
	require.NoError(t, err)
	fx.store.setCells("doc-1", "Summary!B15", [][]string{{"Passed"}})

	outcome, err := fx.session.Finish(context.Background())
	require.NoError(t, err)

	// Scenario B: report link, approved transition, PR approval
	assert.Equal(t, StateApproved, outcome)
	assert.Equal(t, qbLink, tickets.reportLinks["CC-123"])
	assert.Contains(t, tickets.transitions, TransitionApproved)
	require.Len(t, fx.reviews.calls, 1)
	assert.True(t, fx.reviews.calls[0].approve)
	assert.Equal(t, qbLink, fx.reviews.calls[0].qbLink)
	assert.Equal(t, "acme", fx.reviews.calls[0].pr.Owner)
	assert.Equal(t, "widget", fx.reviews.calls[0].pr.Repo)
	assert.Equal(t, 42, fx.reviews.calls[0].pr.Number)
}

func TestFinishApproveProceedsOnFailingVerdict(t *testing.T) {
	// The operator, not the checklist, is the authority: a non-passing
	// verdict is surfaced but approval proceeds.
	tickets := newFakeTickets(reviewableTicket())
	fx := newFixture(testConfig(), tickets, "approve")

	_, err := fx.session.Start(context.Background(), "CC-123", "2024-05-01 10:00")
	require.NoError(t, err)
	fx.store.setCells("doc-1", "Summary!B15", [][]string{{"Failed: 1 rule"}})

	outcome, err := fx.session.Finish(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateApproved, outcome)
	assert.Contains(t, tickets.transitions, TransitionApproved)
}

func TestFinishApproveWithUnknownActionLeavesPrToHuman(t *testing.T) {
	cfg := testConfig()
	cfg.Review.ApprovePrAction = "ask-bob"
	tickets := newFakeTickets(reviewableTicket())
	fx := newFixture(cfg, tickets, "a")

	_, err := fx.session.Start(context.Background(), "CC-123", "2024-05-01 10:00")
	require.NoError(t, err)
	fx.store.setCells("doc-1", "Summary!B15", [][]string{{"Passed"}})

	outcome, err := fx.session.Finish(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateApproved, outcome)
	assert.Empty(t, fx.reviews.calls)
	assert.Contains(t, tickets.transitions, TransitionApproved)
}

func TestFinishApproveSurvivesPrReviewFailure(t *testing.T) {
	tickets := newFakeTickets(reviewableTicket())
	fx := newFixture(testConfig(), tickets, "a")
	fx.reviews.ok = false

	_, err := fx.session.Start(context.Background(), "CC-123", "2024-05-01 10:00")
	require.NoError(t, err)
	fx.store.setCells("doc-1", "Summary!B15", [][]string{{"Passed"}})

	outcome, err := fx.session.Finish(context.Background())
	require.NoError(t, err)

	// Ticket-side outcome is authoritative; PR-side failure is a warning
	assert.Equal(t, StateApproved, outcome)
	assert.Contains(t, tickets.transitions, TransitionApproved)
}

func TestFinishRejectRecordsHistory(t *testing.T) {
	tickets := newFakeTickets(reviewableTicket())
	fx := newFixture(testConfig(), tickets, "r")

	qbLink, err := fx.session.Start(context.Background(), "CC-123", "2024-05-01 10:00")
	require.NoError(t, err)

	fx.store.setCells("doc-1", "Summary!B15", [][]string{{"Failed: 2 rules"}})
	fx.store.setCells("doc-1", "1. Basic checks!A3:H5", [][]string{
		{"PASS"},
		{"fail", "", "", "", "", "", "1.1", "desc1"},
		{"PASS"},
	})
	fx.store.setCells("doc-1", "4. C#!A3:H4", [][]string{
		{"fail", "", "", "", "", "", "2.5", "desc2"},
		{"PASS"},
	})
	fx.store.setCells("history-doc", "Sys!B1:B1", [][]string{{"12"}})

	outcome, err := fx.session.Finish(context.Background())
	require.NoError(t, err)

	// Scenario C: rejected transition, change request, history row
	assert.Equal(t, StateRejected, outcome)
	assert.Equal(t, qbLink, tickets.reportLinks["CC-123"])
	assert.Contains(t, tickets.transitions, TransitionRejected)

	require.Len(t, fx.reviews.calls, 1)
	assert.False(t, fx.reviews.calls[0].approve)
	assert.Equal(t, []string{"1.1. desc1", "2.5. desc2"}, fx.reviews.calls[0].failed)

	assert.Equal(t, [][]string{{"13"}}, fx.store.written("history-doc", "Sys!B1:B1"))
	assert.Equal(t, [][]string{{
		"2024-05-01 10:00", "CC-123", "John Doe", "Rev Iewer", "Dead Code", "1.1. desc1", "2.5. desc2",
	}}, fx.store.written("history-doc", "History!A12:G12"))
}

func TestFinishRejectWithoutPrReviewWhenDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Review.RejectPr = false
	tickets := newFakeTickets(reviewableTicket())
	fx := newFixture(cfg, tickets, "reject")

	_, err := fx.session.Start(context.Background(), "CC-123", "2024-05-01 10:00")
	require.NoError(t, err)

	fx.store.setCells("doc-1", "Summary!B15", [][]string{{"Failed: 1 rule"}})
	fx.store.setCells("doc-1", "1. Basic checks!A3:H5", [][]string{
		{"fail", "", "", "", "", "", "1.1", "desc1"},
	})
	fx.store.setCells("doc-1", "4. C#!A3:H4", nil)
	fx.store.setCells("history-doc", "Sys!B1:B1", [][]string{{"2"}})

	outcome, err := fx.session.Finish(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateRejected, outcome)
	assert.Empty(t, fx.reviews.calls)
}

func TestFinishRejectInconsistentWithPassingVerdict(t *testing.T) {
	tickets := newFakeTickets(reviewableTicket())
	fx := newFixture(testConfig(), tickets, "r", "s")

	_, err := fx.session.Start(context.Background(), "CC-123", "2024-05-01 10:00")
	require.NoError(t, err)
	fx.store.setCells("doc-1", "Summary!B15", [][]string{{"Passed"}})

	outcome, err := fx.session.Finish(context.Background())
	require.NoError(t, err)

	// Rejection refused, operator re-prompted, session then skipped
	assert.Equal(t, StateSkipped, outcome)
	assert.NotContains(t, tickets.transitions, TransitionRejected)
	assert.Empty(t, tickets.reportLinks)
	assert.Nil(t, fx.store.written("history-doc", "Sys!B1:B1"))
}

func TestFinishSkipLeavesArtifacts(t *testing.T) {
	tickets := newFakeTickets(reviewableTicket())
	fx := newFixture(testConfig(), tickets, "s")

	_, err := fx.session.Start(context.Background(), "CC-123", "2024-05-01 10:00")
	require.NoError(t, err)

	outcome, err := fx.session.Finish(context.Background())
	require.NoError(t, err)

	// Reviewer assignment and QB document persist as an audit trail
	assert.Equal(t, StateSkipped, outcome)
	assert.Equal(t, "rev", tickets.tickets["CC-123"].PeerReviewer)
	assert.Len(t, fx.store.copies, 1)
	assert.Empty(t, tickets.reportLinks)
	assert.Equal(t, []string{TransitionStartReview}, tickets.transitions)
}

func TestFinishOpenAndUnrecognizedReprompt(t *testing.T) {
	tickets := newFakeTickets(reviewableTicket())
	fx := newFixture(testConfig(), tickets, "bogus", "", "o", "open qb", "s")

	_, err := fx.session.Start(context.Background(), "CC-123", "2024-05-01 10:00")
	require.NoError(t, err)

	outcome, err := fx.session.Finish(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateSkipped, outcome)
	assert.Equal(t, 2, fx.opened)
}
