package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/devfactory/reviewmaker/pkg/models"
)

// Fixed QB template layout. The cell addresses are a contract with the
// template document and change only together with it.
const (
	qbSummaryRange = "Summary!B7:B9"
	qbAuthorCell   = "Summary!B11"
	qbVerdictCell  = "Summary!B15"

	// qbSummaryGid is the sheet id of the Summary tab, used in the
	// viewer link fragment.
	qbSummaryGid = 1247094356

	// Rule rows start at row 3 on every checklist page. The result
	// marker lives in column A, the rule number and text in columns G
	// and H.
	qbFirstRuleRow   = 3
	qbRuleNumberCol  = 6
	qbRuleTextCol    = 7
	qbChecklistWidth = "H"
	qbPassMarker     = "PASS"
	qbFailMarker     = "fail"

	// VerdictPassed is the aggregate verdict string a fully passing
	// checklist computes.
	VerdictPassed = "Passed"
)

// QbService creates, fills, and reads back QB checklist documents.
type QbService struct {
	docs           DocumentStore
	templateID     string
	parentFolderID string
	pages          []models.SheetPage
}

// NewQbService returns a QbService using the given document store,
// template document, and checklist page schema.
func NewQbService(docs DocumentStore, templateID, parentFolderID string, pages []models.SheetPage) *QbService {
	return &QbService{
		docs:           docs,
		templateID:     templateID,
		parentFolderID: parentFolderID,
		pages:          pages,
	}
}

// ParentFolderID returns the Drive folder under which per-repository QB
// folders live.
func (s *QbService) ParentFolderID() string {
	return s.parentFolderID
}

// Create copies the QB template into folderID under the given name.
func (s *QbService) Create(ctx context.Context, folderID, name string) (models.QbDocument, error) {
	id, err := s.docs.CopySpreadsheet(ctx, s.templateID, name, folderID)
	if err != nil {
		return models.QbDocument{}, fmt.Errorf("failed to create QB document: %w", err)
	}
	return models.QbDocument{ID: id, Name: name}, nil
}

// Link builds the deterministic viewer URL for a QB document.
func (s *QbService) Link(doc models.QbDocument) string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit#gid=%d", doc.ID, qbSummaryGid)
}

// FillSummary writes the issue URL, PR URL, reviewer, and author into
// the fixed summary cells.
func (s *QbService) FillSummary(ctx context.Context, doc models.QbDocument, issueURL, prURL, reviewer, author string) error {
	err := s.docs.WriteRange(ctx, doc.ID, qbSummaryRange, [][]string{
		{issueURL},
		{prURL},
		{reviewer},
	})
	if err != nil {
		return fmt.Errorf("failed to fill QB summary: %w", err)
	}

	if err := s.docs.WriteRange(ctx, doc.ID, qbAuthorCell, [][]string{{author}}); err != nil {
		return fmt.Errorf("failed to fill QB summary: %w", err)
	}
	return nil
}

// FillChecklist seeds every applicable checklist page with default
// "PASS" markers for manual editing. A page applies when its rule count
// is positive and its ticket-type condition is empty or matches.
func (s *QbService) FillChecklist(ctx context.Context, doc models.QbDocument, ticketType string) error {
	for _, page := range s.pages {
		if page.RulesCount <= 0 {
			continue
		}
		if page.TicketTypeCondition != "" && page.TicketTypeCondition != ticketType {
			continue
		}

		values := make([][]string, page.RulesCount)
		for i := range values {
			values[i] = []string{qbPassMarker}
		}

		writeRange := fmt.Sprintf("%s!A%d:A%d", page.Name, qbFirstRuleRow, page.RulesCount+qbFirstRuleRow-1)
		if err := s.docs.WriteRange(ctx, doc.ID, writeRange, values); err != nil {
			return fmt.Errorf("failed to fill checklist page %q: %w", page.Name, err)
		}
	}
	return nil
}

// Verdict reads the aggregate pass/fail string from the fixed summary
// cell and returns it verbatim.
func (s *QbService) Verdict(ctx context.Context, doc models.QbDocument) (string, error) {
	values, err := s.docs.ReadRange(ctx, doc.ID, qbVerdictCell)
	if err != nil {
		return "", fmt.Errorf("failed to read QB verdict: %w", err)
	}
	if len(values) == 0 || len(values[0]) == 0 {
		return "", fmt.Errorf("QB verdict cell %s is empty", qbVerdictCell)
	}
	return values[0][0], nil
}

// FailedRules collects every failing rule across all checklist pages as
// "<number>. <text>" entries. The order follows page configuration
// order, then row order within a page; the history row layout depends
// on it.
func (s *QbService) FailedRules(ctx context.Context, doc models.QbDocument) ([]string, error) {
	var failed []string
	for _, page := range s.pages {
		if page.RulesCount <= 0 {
			continue
		}

		readRange := fmt.Sprintf("%s!A%d:%s%d", page.Name, qbFirstRuleRow, qbChecklistWidth, page.RulesCount+qbFirstRuleRow-1)
		rows, err := s.docs.ReadRange(ctx, doc.ID, readRange)
		if err != nil {
			return nil, fmt.Errorf("failed to read checklist page %q: %w", page.Name, err)
		}

		for _, row := range rows {
			if len(row) == 0 || !strings.EqualFold(row[0], qbFailMarker) {
				continue
			}
			if len(row) <= qbRuleTextCol {
				return nil, fmt.Errorf("malformed checklist row on page %q: %v", page.Name, row)
			}
			failed = append(failed, fmt.Sprintf("%s. %s", row[qbRuleNumberCol], row[qbRuleTextCol]))
		}
	}
	return failed, nil
}
