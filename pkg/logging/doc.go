// Package logging provides subsystem-tagged structured logging for scm-cicd.
//
// The package wraps Go's standard slog package behind a small set of
// printf-style helpers so call sites stay short while output stays structured.
//
// # Log Levels
//   - **Debug**: per-request detail (HTTP retries, plan decisions)
//   - **Info**: run progress (records loaded, operations executed, commits)
//   - **Warn**: conditions that skip work (commit skipped, deprecated commands)
//   - **Error**: record-level or fatal failures
//
// # Usage
//
//	logging.Init(logging.LevelInfo, logging.FormatText, os.Stderr)
//
//	logging.Info("Reconciler", "Planned %d operations for %s", len(plan.Operations), scope)
//	logging.Error("SCMClient", err, "Failed to create security rule %s", name)
//
// Level names come from settings (`log_level`) and are parsed with ParseLevel.
// FormatJSON emits one JSON object per line, which CI log collectors ingest
// without extra parsing.
//
// # Subsystems
//
//   - **Config**: settings loading and validation
//   - **Policy**: input file loading and schema validation
//   - **Reconciler**: planning, execution and commit gating
//   - **SCMClient**: remote store calls, retries and job polling
//   - **CLI**: command-level progress
//
// All helpers are safe for concurrent use.
package logging
