// Package messaging handles inbound SMS commands and outbound SMS delivery.
package messaging

import (
	"errors"
	"strings"

	"github.com/mamasafe/go-mamasafe/internal/risk"
)

// MaxSMSLength is the single-segment SMS limit replies are cut to
const MaxSMSLength = 160

// Usage is the grammar reminder sent back with parse errors
const Usage = "CHECK <DrugName> <PatientID>"

var (
	// ErrInvalidCommand is returned for unknown verbs
	ErrInvalidCommand = errors.New("invalid command")
	// ErrMissingArguments is returned when CHECK lacks a drug or patient
	ErrMissingArguments = errors.New("missing arguments")
)

// ErrorReply is the SMS sent back for a parse error
func ErrorReply(err error) string {
	switch {
	case errors.Is(err, ErrMissingArguments):
		return "Missing arguments. Use " + Usage
	case errors.Is(err, ErrInvalidCommand):
		return "Invalid command. Use " + Usage
	}
	return "Unable to process your request. Use " + Usage
}

// Command is a parsed inbound command
type Command struct {
	Verb string
	Args []string
}

// CheckCommand is a parsed CHECK request
type CheckCommand struct {
	DrugName  string
	PatientID string
}

// Parse splits text into an uppercase verb and positional arguments
func Parse(text string) (Command, error) {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return Command{}, ErrInvalidCommand
	}
	return Command{Verb: strings.ToUpper(parts[0]), Args: parts[1:]}, nil
}

// ParseCheck parses "CHECK <drug words...> <patient id>". Every word between
// the verb and the last argument belongs to the drug name.
func ParseCheck(text string) (CheckCommand, error) {
	cmd, err := Parse(text)
	if err != nil {
		return CheckCommand{}, err
	}
	if cmd.Verb != "CHECK" {
		return CheckCommand{}, ErrInvalidCommand
	}
	if len(cmd.Args) < 2 {
		return CheckCommand{}, ErrMissingArguments
	}
	last := len(cmd.Args) - 1
	return CheckCommand{
		DrugName:  strings.Join(cmd.Args[:last], " "),
		PatientID: cmd.Args[last],
	}, nil
}

// FormatReply renders an assessment as a single SMS
func FormatReply(a risk.Assessment) string {
	var b strings.Builder
	b.WriteString("RISK: ")
	b.WriteString(a.Category.String())
	b.WriteString(". ")
	b.WriteString(strings.TrimSpace(a.Message))
	if len(a.Alternatives) > 0 {
		b.WriteString(" Alt: ")
		b.WriteString(strings.Join(a.Alternatives, ", "))
	}
	return Truncate(b.String(), MaxSMSLength)
}

// Truncate cuts s to at most limit characters, ending with "..." when cut
func Truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 3 {
		return string(r[:limit])
	}
	return string(r[:limit-3]) + "..."
}
