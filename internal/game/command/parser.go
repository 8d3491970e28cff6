package command

import (
	"strings"
)

// ParseResult holds the parsed command name and arguments from a text line.
type ParseResult struct {
	// Command is the first word of the input, lowercased, without a leading slash.
	Command string
	// Args are the positional words after the command.
	Args []string
	// Options are key=value words after the command; keys are lowercased.
	Options map[string]string
	// RawArgs is the raw text after the command.
	RawArgs string
}

// Parse splits a text line into a command, positional arguments and
// key=value options.
//
// Precondition: line should be trimmed of leading/trailing whitespace.
// Postcondition: Returns a ParseResult. If line is empty, Command is empty.
func Parse(line string) ParseResult {
	line = strings.TrimSpace(line)
	if line == "" {
		return ParseResult{}
	}

	// Split at first space for the command word
	spaceIdx := strings.IndexByte(line, ' ')
	if spaceIdx < 0 {
		return ParseResult{
			Command: normalizeCommand(line),
		}
	}

	cmd := normalizeCommand(line[:spaceIdx])
	rest := strings.TrimSpace(line[spaceIdx+1:])

	args, opts := SplitArgs(strings.Fields(rest))
	return ParseResult{
		Command: cmd,
		Args:    args,
		Options: opts,
		RawArgs: rest,
	}
}

// SplitArgs separates key=value words from positional words, preserving the
// order of the positional ones.
//
// Postcondition: Options is nil when no word contains '='.
func SplitArgs(words []string) (args []string, opts map[string]string) {
	for _, w := range words {
		key, value, found := strings.Cut(w, "=")
		if !found || key == "" {
			args = append(args, w)
			continue
		}
		if opts == nil {
			opts = make(map[string]string)
		}
		opts[strings.ToLower(key)] = value
	}
	return args, opts
}

func normalizeCommand(word string) string {
	return strings.ToLower(strings.TrimPrefix(word, "/"))
}
