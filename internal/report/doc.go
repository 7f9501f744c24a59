// Package report renders a harness.RunReport for humans and machines.
//
// WriteText prints one line per probe in registry order with fixed field
// order (outcome, name, category, detail), indented context lines for
// failures, and a final summary line. WriteJSON emits the same content as
// canonical JSON. Neither output depends on completion order, and the
// text form only includes timings when asked to, so two runs against the
// same engine produce identical reports.
package report
