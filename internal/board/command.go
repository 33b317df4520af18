package board

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// handler - executes command for active session, args do not include the verb.
type handler func(s *Session, args []string) error

type command struct {
	minArgs, maxArgs int
	usage            string
	run              handler
}

// errQuit - returns by exit command to terminate the session.
var errQuit = errors.New("board: quit")

// newCommandTable - builds the table of the only verbs reachable by clients.
func newCommandTable() map[string]command {
	return map[string]command{
		"join":    {0, 1, "join [group]", onGroup((*Session).join)},
		"leave":   {0, 1, "leave [group]", onGroup((*Session).leave)},
		"post":    {0, 1, "post [group]", onGroup((*Session).post)},
		"users":   {0, 1, "users [group]", onGroup((*Session).users)},
		"message": {1, 2, "message [group] <index>", readMessage},
		"groups":  {0, 0, "groups", func(s *Session, _ []string) error { return s.groups() }},
		"help":    {0, 0, "help", func(s *Session, _ []string) error { return s.help() }},
		"exit":    {0, 0, "exit", func(s *Session, _ []string) error { return s.exit() }},

		"groupjoin":    {1, 1, "groupjoin <group>", onGroup((*Session).join)},
		"groupleave":   {1, 1, "groupleave <group>", onGroup((*Session).leave)},
		"grouppost":    {1, 1, "grouppost <group>", onGroup((*Session).post)},
		"groupusers":   {1, 1, "groupusers <group>", onGroup((*Session).users)},
		"groupmessage": {2, 2, "groupmessage <group> <index>", readMessage},
	}
}

// requiredVerbs - verbs the protocol guarantees to clients.
var requiredVerbs = []string{"join", "leave", "post", "message", "users", "groups", "exit"}

// validateCommands - checks the table is complete and every entry is usable.
func validateCommands(table map[string]command) error {
	for _, verb := range requiredVerbs {
		if _, ok := table[verb]; !ok {
			return fmt.Errorf("board: command %q is not defined", verb)
		}
	}
	for verb, cmd := range table {
		switch {
		case verb == "" || verb != strings.ToLower(verb) || strings.ContainsAny(verb, " \t"):
			return fmt.Errorf("board: invalid verb %q", verb)
		case cmd.run == nil:
			return fmt.Errorf("board: command %q has no handler", verb)
		case cmd.minArgs < 0 || cmd.minArgs > cmd.maxArgs:
			return fmt.Errorf("board: command %q has invalid argument range [%d, %d]", verb, cmd.minArgs, cmd.maxArgs)
		case !strings.HasPrefix(cmd.usage, verb):
			return fmt.Errorf("board: command %q has invalid usage %q", verb, cmd.usage)
		}
	}
	return nil
}

// onGroup - adapts group handler, the group is taken from the first argument
// or the default group is used when there are no arguments.
func onGroup(f func(s *Session, g *Group) error) handler {
	return func(s *Session, args []string) error {
		g := s.server.registry.Default()
		if len(args) > 0 {
			var err error
			if g, err = s.server.registry.Resolve(args[0]); err != nil {
				return err
			}
		}
		return f(s, g)
	}
}

// readMessage - handles "message [group] <index>", the index is always the last argument.
func readMessage(s *Session, args []string) error {
	g := s.server.registry.Default()
	if len(args) == 2 {
		var err error
		if g, err = s.server.registry.Resolve(args[0]); err != nil {
			return err
		}
	}
	index, err := strconv.Atoi(args[len(args)-1])
	if err != nil {
		return &ArgumentsError{Verb: s.verb}
	}
	return s.message(g, index)
}

// usage - returns sorted list of command usages.
func usage(table map[string]command) string {
	lines := make([]string, 0, len(table))
	for _, cmd := range table {
		lines = append(lines, cmd.usage)
	}
	sort.Strings(lines)
	return "Commands:\n" + strings.Join(lines, "\n")
}

// dispatch - parses line and runs command.
// Panic inside command is recovered and returned as error.
func (s *Session) dispatch(line string) (err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	s.verb = strings.ToLower(fields[0])
	args := fields[1:]
	cmd, ok := s.server.commands[s.verb]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, fields[0])
	}
	if len(args) < cmd.minArgs || len(args) > cmd.maxArgs {
		return &ArgumentsError{Verb: s.verb}
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("board: command %q panicked: %v", s.verb, r)
		}
	}()
	return cmd.run(s, args)
}
