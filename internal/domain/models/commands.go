package models

import "strings"

// CommandType enumerates the operator commands accepted over WhatsApp.
type CommandType string

const (
	CommandRecord  CommandType = "record"
	CommandDay     CommandType = "day"
	CommandWeek    CommandType = "week"
	CommandMonth   CommandType = "month"
	CommandHelp    CommandType = "help"
	CommandUnknown CommandType = "unknown"
)

// Command represents a parsed operator instruction extracted from message text.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command instance from free-form text messages.
func ParseCommand(message string) Command {
	tokens := strings.Fields(strings.TrimSpace(message))
	cmd := Command{Raw: message, Type: CommandUnknown}
	if len(tokens) == 0 {
		return cmd
	}

	switch head := strings.ToLower(strings.TrimPrefix(tokens[0], "/")); CommandType(head) {
	case CommandRecord, CommandDay, CommandWeek, CommandMonth, CommandHelp:
		cmd.Type = CommandType(head)
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}

	return cmd
}
