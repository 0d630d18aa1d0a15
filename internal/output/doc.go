// Package output serializes result tables and normalized counts.
//
// Table writers are looked up by format name in a registry, so callers never
// switch on format strings. File exports are atomic: a reader never sees a
// partially written file.
package output
