// Package cli implements the eqsat command line.
//
// Commands:
//   - simplify: saturate one expression and print its cheapest form
//   - check: compile and validate a CUE rule file
//   - test: run YAML scenarios, optionally against golden reports
//   - history: list runs recorded with --db
//   - repl: simplify expressions interactively
//
// Every command accepts --format text|json. JSON output is a CLIResponse
// envelope; logs go to stderr.
//
// Exit codes are 0 on success, 1 when a check fails (an invalid rule file,
// a failing scenario, an unproven goal) and 2 when the command itself
// could not run.
package cli
