package review

import "strings"

// Command is one of the operator decisions at the end of a session.
type Command int

const (
	// CommandUnrecognized re-prompts without advancing the session.
	CommandUnrecognized Command = iota
	// CommandOpen opens the QB document in the browser and re-prompts.
	CommandOpen
	// CommandApprove approves the review.
	CommandApprove
	// CommandReject rejects the review.
	CommandReject
	// CommandSkip terminates the session with no further mutation.
	CommandSkip
)

// ParseCommand maps operator input to a Command. Matching is
// case-insensitive and accepts both full words and single-letter
// aliases.
func ParseCommand(input string) Command {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "open qb", "open", "o":
		return CommandOpen
	case "approve", "a":
		return CommandApprove
	case "reject", "r":
		return CommandReject
	case "skip", "s":
		return CommandSkip
	default:
		return CommandUnrecognized
	}
}
