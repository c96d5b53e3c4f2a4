package statemachine

// Builder assembles a Table with a fluent API.
type Builder[S, E comparable] struct {
	transitions []Transition[S, E]
	terminal    []S
}

// RuleBuilder collects the source states, events and guards of one rule set
// until To is called.
type RuleBuilder[S, E comparable] struct {
	b      *Builder[S, E]
	from   []S
	events []E
	guards []Guard[S, E]
}

func NewBuilder[S, E comparable]() *Builder[S, E] {
	return &Builder[S, E]{}
}

// From starts a rule that applies to every given source state.
func (b *Builder[S, E]) From(states ...S) *RuleBuilder[S, E] {
	return &RuleBuilder[S, E]{b: b, from: states}
}

// Terminal marks states that accept no further events.
func (b *Builder[S, E]) Terminal(states ...S) *Builder[S, E] {
	b.terminal = append(b.terminal, states...)
	return b
}

func (b *Builder[S, E]) Build() (*Table[S, E], error) {
	return NewTable(b.transitions, b.terminal...)
}

// MustBuild is Build for package level tables; it panics on an invalid
// definition.
func (b *Builder[S, E]) MustBuild() *Table[S, E] {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}

// On sets the events the rule reacts to.
func (r *RuleBuilder[S, E]) On(events ...E) *RuleBuilder[S, E] {
	r.events = append(r.events, events...)
	return r
}

// When adds guards to the rule.
func (r *RuleBuilder[S, E]) When(guards ...Guard[S, E]) *RuleBuilder[S, E] {
	r.guards = append(r.guards, guards...)
	return r
}

// To closes the rule with its target state and returns the parent builder.
func (r *RuleBuilder[S, E]) To(state S) *Builder[S, E] {
	for _, from := range r.from {
		for _, ev := range r.events {
			r.b.transitions = append(r.b.transitions, Transition[S, E]{
				From:   from,
				Event:  ev,
				To:     state,
				Guards: r.guards,
			})
		}
	}
	return r.b
}
