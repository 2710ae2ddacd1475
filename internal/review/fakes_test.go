package review

import (
	"context"
	"fmt"
	"io"

	"github.com/devfactory/reviewmaker/internal/config"
	"github.com/devfactory/reviewmaker/internal/output"
	"github.com/devfactory/reviewmaker/pkg/models"
)

// fakeTickets is an in-memory TicketGateway.
type fakeTickets struct {
	tickets     map[string]*models.Ticket
	getCalls    int
	assigned    []string
	reportLinks map[string]string
	transitions []string
}

func newFakeTickets(tickets ...*models.Ticket) *fakeTickets {
	byKey := make(map[string]*models.Ticket)
	for _, t := range tickets {
		byKey[t.Key] = t
	}
	return &fakeTickets{tickets: byKey, reportLinks: make(map[string]string)}
}

func (f *fakeTickets) GetTicket(ctx context.Context, key string) (*models.Ticket, error) {
	f.getCalls++
	ticket, ok := f.tickets[key]
	if !ok {
		return nil, fmt.Errorf("ticket %s not found", key)
	}
	copied := *ticket
	return &copied, nil
}

func (f *fakeTickets) AssignPeerReviewer(ctx context.Context, key, username string) error {
	f.assigned = append(f.assigned, username)
	f.tickets[key].PeerReviewer = username
	return nil
}

func (f *fakeTickets) SetReportLink(ctx context.Context, key, link string) error {
	f.reportLinks[key] = link
	return nil
}

func (f *fakeTickets) Transition(ctx context.Context, key, name string) error {
	f.transitions = append(f.transitions, name)
	switch name {
	case TransitionStartReview:
		f.tickets[key].Status = StatusCodeReview
	}
	return nil
}

type docCopy struct {
	template string
	name     string
	folder   string
}

type docWrite struct {
	doc    string
	rng    string
	values [][]string
}

// fakeStore is an in-memory DocumentStore. Cell contents are keyed by
// the exact A1 range string used to read or write them.
type fakeStore struct {
	foldersByName  map[string][]string
	createdFolders []string
	findCalls      int
	copies         []docCopy
	cells          map[string]map[string][][]string
	writes         []docWrite
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		foldersByName: make(map[string][]string),
		cells:         make(map[string]map[string][][]string),
	}
}

func (f *fakeStore) setCells(doc, rng string, values [][]string) {
	if f.cells[doc] == nil {
		f.cells[doc] = make(map[string][][]string)
	}
	f.cells[doc][rng] = values
}

func (f *fakeStore) FindFolders(ctx context.Context, name, parentID string) ([]string, error) {
	f.findCalls++
	return f.foldersByName[name], nil
}

func (f *fakeStore) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	id := "folder-" + name
	f.createdFolders = append(f.createdFolders, name)
	return id, nil
}

func (f *fakeStore) CopySpreadsheet(ctx context.Context, templateID, name, folderID string) (string, error) {
	f.copies = append(f.copies, docCopy{template: templateID, name: name, folder: folderID})
	return fmt.Sprintf("doc-%d", len(f.copies)), nil
}

func (f *fakeStore) ReadRange(ctx context.Context, spreadsheetID, readRange string) ([][]string, error) {
	return f.cells[spreadsheetID][readRange], nil
}

func (f *fakeStore) WriteRange(ctx context.Context, spreadsheetID, writeRange string, values [][]string) error {
	f.writes = append(f.writes, docWrite{doc: spreadsheetID, rng: writeRange, values: values})
	f.setCells(spreadsheetID, writeRange, values)
	return nil
}

func (f *fakeStore) written(doc, rng string) [][]string {
	for _, w := range f.writes {
		if w.doc == doc && w.rng == rng {
			return w.values
		}
	}
	return nil
}

type prReviewCall struct {
	pr      models.PrReference
	approve bool
	qbLink  string
	failed  []string
}

// fakeReviews is an in-memory ReviewAPI.
type fakeReviews struct {
	calls []prReviewCall
	ok    bool
	err   error
}

func (f *fakeReviews) ReviewPullRequest(ctx context.Context, pr models.PrReference, approve bool, qbLink string, failedItems []string) (bool, error) {
	f.calls = append(f.calls, prReviewCall{pr: pr, approve: approve, qbLink: qbLink, failed: failedItems})
	return f.ok, f.err
}

// scriptPrompter replays a fixed list of operator commands.
type scriptPrompter struct {
	commands []string
	next     int
}

func (p *scriptPrompter) ReadCommand(prompt string) (string, error) {
	if p.next >= len(p.commands) {
		return "", io.EOF
	}
	cmd := p.commands[p.next]
	p.next++
	return cmd, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Jira: config.JiraConfig{
			URL:      "https://jira.devfactory.com",
			Username: "rev",
			Token:    "secret",
		},
		GitHub: config.GitHubConfig{
			Token:  "gh-secret",
			Domain: "github.com",
		},
		Google: config.GoogleConfig{
			CredentialsFile:  "credentials.json",
			QbTemplateID:     "template-1",
			QbParentFolderID: "parent-1",
		},
		Review: config.ReviewConfig{
			ApprovePrAction: "approve",
			RejectPr:        true,
			SheetPages: []models.SheetPage{
				{Name: "1. Basic checks", RulesCount: 3},
				{Name: "4. C#", RulesCount: 2, TicketTypeCondition: "Dead Code"},
			},
		},
		History: config.HistoryConfig{
			DocumentID:  "history-doc",
			SheetName:   "History",
			SystemSheet: "Sys",
		},
	}
}

type sessionFixture struct {
	cfg      *config.Config
	tickets  *fakeTickets
	store    *fakeStore
	reviews  *fakeReviews
	prompter *scriptPrompter
	folders  map[string]string
	opened   int
	session  *Session
}

func newFixture(cfg *config.Config, tickets *fakeTickets, commands ...string) *sessionFixture {
	fx := &sessionFixture{
		cfg:      cfg,
		tickets:  tickets,
		store:    newFakeStore(),
		reviews:  &fakeReviews{ok: true},
		prompter: &scriptPrompter{commands: commands},
		folders:  make(map[string]string),
	}
	fx.buildSession()
	return fx
}

func (fx *sessionFixture) buildSession() {
	qb := NewQbService(fx.store, fx.cfg.Google.QbTemplateID, fx.cfg.Google.QbParentFolderID, fx.cfg.Review.SheetPages)
	history := NewHistoryRecorder(fx.store, fx.cfg.History.DocumentID, fx.cfg.History.SheetName, fx.cfg.History.SystemSheet)

	fx.session = NewSession(Deps{
		Config:   fx.cfg,
		Tickets:  fx.tickets,
		Docs:     fx.store,
		Reviews:  fx.reviews,
		Prompter: fx.prompter,
		UI:       &output.UI{Out: io.Discard},
		Qb:       qb,
		History:  history,
		Reviewer: models.User{Username: "rev", DisplayName: "Rev Iewer"},
		Folders:  fx.folders,
		OpenLink: func(url string) error {
			fx.opened++
			return nil
		},
	})
}

func reviewableTicket() *models.Ticket {
	return &models.Ticket{
		Key:             "CC-123",
		Summary:         "Dead Code::remove unused helpers",
		Status:          StatusReadyForReview,
		Type:            "Dead Code",
		Assignee:        "jdoe",
		AssigneeDisplay: "John Doe",
		PrURL:           "https://github.com/acme/widget/pull/42",
	}
}
