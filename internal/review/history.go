package review

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/devfactory/reviewmaker/pkg/models"
)

// historyFirstRuleCol is the first column of the variable-width
// failed-rule block in a history row; the five fixed columns A..E hold
// date, ticket key, author, reviewer, and ticket type.
const historyFirstRuleCol = 'F'

// HistoryRecorder appends one row per rejection to the shared,
// row-counted history spreadsheet.
//
// The counter read-increment-write has no mutual exclusion across
// processes: two concurrent rejections can claim the same row. Single
// operator, single process is the assumed mode of operation.
type HistoryRecorder struct {
	docs        DocumentStore
	documentID  string
	sheetName   string
	systemSheet string
}

// NewHistoryRecorder returns a recorder writing to the given history
// document. sheetName holds the data rows, systemSheet the row counter.
func NewHistoryRecorder(docs DocumentStore, documentID, sheetName, systemSheet string) *HistoryRecorder {
	return &HistoryRecorder{
		docs:        docs,
		documentID:  documentID,
		sheetName:   sheetName,
		systemSheet: systemSheet,
	}
}

// Append claims the next free row from the counter cell, advances the
// counter, and writes the record. The failed-rule descriptions occupy a
// trailing column range sized exactly to their count.
func (h *HistoryRecorder) Append(ctx context.Context, record models.HistoryRecord) error {
	counterRange := fmt.Sprintf("%s!B1:B1", h.systemSheet)

	values, err := h.docs.ReadRange(ctx, h.documentID, counterRange)
	if err != nil {
		return fmt.Errorf("failed to read history row counter: %w", err)
	}
	if len(values) == 0 || len(values[0]) == 0 {
		return fmt.Errorf("history row counter cell %s is empty", counterRange)
	}

	row, err := strconv.Atoi(strings.TrimSpace(values[0][0]))
	if err != nil {
		return fmt.Errorf("invalid history row counter %q: %w", values[0][0], err)
	}

	err = h.docs.WriteRange(ctx, h.documentID, counterRange, [][]string{{strconv.Itoa(row + 1)}})
	if err != nil {
		return fmt.Errorf("failed to advance history row counter: %w", err)
	}

	rowValues := append([]string{
		record.Date,
		record.TicketKey,
		record.Author,
		record.Reviewer,
		record.TicketType,
	}, record.FailedRules...)

	endCol := rune(historyFirstRuleCol + len(record.FailedRules) - 1)
	rowRange := fmt.Sprintf("%s!A%d:%c%d", h.sheetName, row, endCol, row)

	if err := h.docs.WriteRange(ctx, h.documentID, rowRange, [][]string{rowValues}); err != nil {
		return fmt.Errorf("failed to append history record: %w", err)
	}
	return nil
}
