// Package pipeline runs the analysis stages in order: assemble, filter,
// fit, test, shrink and report.
//
// Each stage consumes the full output of the previous one and returns a new
// value; nothing is mutated in place. Stages log one structured line each and
// stop early when the context is cancelled.
package pipeline
