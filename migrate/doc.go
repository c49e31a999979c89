// Package migrate orchestrates one migration run: it discovers the legacy
// entity graph below a root, plans a leaves-first order, dispatches each
// entity to the strategy registered for its type and aggregates the outcome
// into a report.
//
// A run is a single sequential pass. The Context is the only shared state
// and is passed explicitly to every strategy call.
package migrate
