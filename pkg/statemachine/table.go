package statemachine

import (
	"errors"
	"fmt"
)

// Guard decides at evaluation time whether a rule may fire.
type Guard[S, E comparable] func(from S, event E) bool

// Transition is a single rule of a Table.
type Transition[S, E comparable] struct {
	From   S
	Event  E
	To     S
	Guards []Guard[S, E]
}

type ruleKey[S, E comparable] struct {
	from  S
	event E
}

// Table is an immutable transition table. It is safe for concurrent use.
type Table[S, E comparable] struct {
	rules    map[ruleKey[S, E]][]Transition[S, E]
	terminal map[S]struct{}
}

// NewTable builds a table from rules and terminal states. Rules for the same
// (from, event) pair are tried in order; the first whose guards pass wins.
// Terminal states may not have outgoing rules.
func NewTable[S, E comparable](transitions []Transition[S, E], terminal ...S) (*Table[S, E], error) {
	t := &Table[S, E]{
		rules:    make(map[ruleKey[S, E]][]Transition[S, E], len(transitions)),
		terminal: make(map[S]struct{}, len(terminal)),
	}
	for _, s := range terminal {
		t.terminal[s] = struct{}{}
	}
	for _, tr := range transitions {
		if _, ok := t.terminal[tr.From]; ok {
			return nil, errors.Join(ErrInvalidTransition,
				fmt.Errorf("terminal state %v has an outgoing rule for %v", tr.From, tr.Event))
		}
		k := ruleKey[S, E]{tr.From, tr.Event}
		t.rules[k] = append(t.rules[k], tr)
	}
	return t, nil
}

// Next returns the state reached from `from` on `event`.
func (t *Table[S, E]) Next(from S, event E) (S, error) {
	if t.IsTerminal(from) {
		return from, fmt.Errorf("%w: %v", ErrTerminalState, from)
	}

	rules, ok := t.rules[ruleKey[S, E]{from, event}]
	if !ok {
		return from, &ErrNoTransitionAvailable{State: fmt.Sprint(from), Event: fmt.Sprint(event)}
	}

	for _, r := range rules {
		if guardsPass(r.Guards, from, event) {
			return r.To, nil
		}
	}
	return from, &ErrTransitionRejected{State: fmt.Sprint(from), Event: fmt.Sprint(event)}
}

// Can reports whether Next would succeed.
func (t *Table[S, E]) Can(from S, event E) bool {
	_, err := t.Next(from, event)
	return err == nil
}

func (t *Table[S, E]) IsTerminal(s S) bool {
	_, ok := t.terminal[s]
	return ok
}

// Events lists the events that have at least one rule from state s,
// in no particular order.
func (t *Table[S, E]) Events(s S) []E {
	var out []E
	for k := range t.rules {
		if k.from == s {
			out = append(out, k.event)
		}
	}
	return out
}

func guardsPass[S, E comparable](guards []Guard[S, E], from S, event E) bool {
	for _, g := range guards {
		if g != nil && !g(from, event) {
			return false
		}
	}
	return true
}
