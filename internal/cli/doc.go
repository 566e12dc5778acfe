// Package cli holds the pieces shared by scm-cicd commands: flag bundles,
// output rendering, progress spinners, the delete confirmation prompt,
// commit message templates and the typed errors that map to exit codes.
//
// # Output Formats
//
//   - table: kubectl-style plain columns, easy to grep
//   - wide: table with every column
//   - json, yaml: the full records or report, for scripts
//
// Run reports are rendered as one status line per record followed by a
// summary table and the commit outcome. Colors are used only when writing to
// a terminal.
package cli
