// Package statemachine implements immutable finite state transition tables.
//
// A Table maps (state, event) pairs to a target state, optionally behind
// guards. It holds no current state: callers pass the state they loaded and
// receive the next one, so a single Table is shared by all goroutines and
// persistence stays with the caller.
//
//	table := statemachine.NewBuilder[Status, Event]().
//	    From(Draft).On(Submit).To(Review).
//	    From(Review).On(Approve).When(hasApprover).To(Published).
//	    Terminal(Published).
//	    MustBuild()
//
//	next, err := table.Next(Review, Approve)
package statemachine
