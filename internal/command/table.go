package command

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// CommandFunc runs a registered command. params holds the whitespace
// separated words after the command name.
type CommandFunc func(w io.Writer, params []string)

// variable is a named value that can be read and optionally set.
type variable struct {
	get func() string
	set func(value string) error
}

// Table is a Dispatcher that maps names to commands and variables.
//
// Command text forms:
//
//	Name [params...]   run a command, or print a variable
//	Name?              print a variable
//	Name=Value         set a variable
//
// Names are case-sensitive. Unknown names reply "Unknown command: Name".
//
// Thread Safety:
//   - Registration and dispatch are safe for concurrent use.
type Table struct {
	mu        sync.RWMutex
	commands  map[string]CommandFunc
	variables map[string]variable
}

// NewTable creates an empty Table.
func NewTable() *Table {
	return &Table{
		commands:  make(map[string]CommandFunc),
		variables: make(map[string]variable),
	}
}

// AddCommand registers fn under name.
func (t *Table) AddCommand(name string, fn CommandFunc) error {
	if fn == nil {
		return ErrNilHandler
	}
	return t.register(name, func() { t.commands[name] = fn })
}

// AddVariable registers a variable. set may be nil for a read-only
// variable.
func (t *Table) AddVariable(name string, get func() string, set func(value string) error) error {
	if get == nil {
		return ErrNilHandler
	}
	return t.register(name, func() { t.variables[name] = variable{get: get, set: set} })
}

func (t *Table) register(name string, add func()) error {
	if err := validateName(name); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.commands[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	if _, exists := t.variables[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	add()
	return nil
}

// Names returns all registered names in sorted order.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.commands)+len(t.variables))
	for name := range t.commands {
		names = append(names, name)
	}
	for name := range t.variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DispatchCommand implements Dispatcher. Empty commands produce no reply.
func (t *Table) DispatchCommand(command string, w io.Writer) {
	command = strings.TrimSpace(command)
	if command == "" {
		return
	}

	name, rest := splitName(command)

	if value, isSet := strings.CutPrefix(rest, "="); isSet {
		t.setVariable(w, name, strings.TrimSpace(value))
		return
	}

	query := strings.HasSuffix(name, "?")
	name = strings.TrimSuffix(name, "?")

	t.mu.RLock()
	fn, isCommand := t.commands[name]
	v, isVariable := t.variables[name]
	t.mu.RUnlock()

	switch {
	case isCommand && !query:
		fn(w, strings.Fields(rest))
	case isVariable:
		fmt.Fprintf(w, "%s=%s\r\n", name, v.get())
	default:
		fmt.Fprintf(w, "Unknown command: %s\r\n", name)
	}
}

func (t *Table) setVariable(w io.Writer, name, value string) {
	t.mu.RLock()
	v, ok := t.variables[name]
	t.mu.RUnlock()

	switch {
	case !ok:
		fmt.Fprintf(w, "Unknown command: %s\r\n", name)
	case v.set == nil:
		fmt.Fprintf(w, "%s is read-only\r\n", name)
	default:
		if err := v.set(value); err != nil {
			fmt.Fprintf(w, "Invalid value for %s: %v\r\n", name, err)
			return
		}
		fmt.Fprintf(w, "%s=%s\r\n", name, v.get())
	}
}

// splitName splits "Name rest" or "Name=rest" at the first space or '='.
// The separator is kept at the start of rest when it is '='.
func splitName(command string) (name, rest string) {
	i := strings.IndexFunc(command, func(r rune) bool {
		return r == '=' || unicode.IsSpace(r)
	})
	if i < 0 {
		return command, ""
	}
	if command[i] == '=' {
		return command[:i], command[i:]
	}
	return command[:i], strings.TrimSpace(command[i:])
}

func validateName(name string) error {
	if name == "" || strings.ContainsAny(name, "=? \t\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
