package review

import (
	"fmt"
	"strings"

	"github.com/devfactory/reviewmaker/pkg/models"
)

// brpSummaryTypes is the accepted set of summary prefixes for the
// "BRP Issues" umbrella type, compared with spaces and hyphens
// stripped. Fixed allow-list, treated as data.
var brpSummaryTypes = []string{
	"BrpFormatting",
	"BrpMagicStrings",
	"BrpIssuesFormatting",
	"BrpIssuesMagicStrings",
}

// AdditionalChecks runs advisory validations over a ticket and returns
// human-readable mismatch descriptions. Failures are reported to the
// operator but never block the session.
func AdditionalChecks(ticket *models.Ticket) []string {
	var failed []string

	if msg, ok := checkTicketType(ticket); !ok {
		failed = append(failed, msg)
	}

	return failed
}

// checkTicketType verifies that the free-text type prefix in the ticket
// summary (before the "::" separator) matches the declared issue type,
// allowing the historical synonyms.
func checkTicketType(ticket *models.Ticket) (string, bool) {
	parts := strings.Split(ticket.Summary, "::")
	summaryType := strings.TrimSpace(parts[0])

	if strings.EqualFold(summaryType, ticket.Type) {
		return "", true
	}

	switch ticket.Type {
	case "Dead Code":
		if strings.EqualFold(summaryType, "DeadCode") {
			return "", true
		}
	case "Symbolic Execution - Memory Leaks":
		if strings.EqualFold(summaryType, "Memory Leaks") || strings.EqualFold(summaryType, "Memory Leak") {
			return "", true
		}
	case "BRP Issues":
		if isBrpSummaryType(summaryType) {
			return "", true
		}
		// Some tickets split the BRP subtype across the first two
		// summary segments.
		if len(parts) > 1 && isBrpSummaryType(summaryType+strings.TrimSpace(parts[1])) {
			return "", true
		}
	}

	return fmt.Sprintf("Ticket has type %q, but there is %q in ticket summary", ticket.Type, summaryType), false
}

func isBrpSummaryType(summaryType string) bool {
	simplified := strings.NewReplacer(" ", "", "-", "").Replace(summaryType)
	for _, allowed := range brpSummaryTypes {
		if strings.EqualFold(simplified, allowed) {
			return true
		}
	}
	return false
}
