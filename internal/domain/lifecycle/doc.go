// Package lifecycle holds the status-transition primitives shared by every
// transaction kind. Each kind owns its own status type and Table; the
// functions here only check membership in that table and never mutate state.
package lifecycle
