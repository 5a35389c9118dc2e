// Package cli provides the daybook device command-line client.
//
// Every edit goes to the local SQLite store first and is pushed by the next
// sync cycle, so all record commands work offline. Sync runs on demand
// ("sync") or periodically ("daemon").
//
//	daybook journal add "Monday" --body "..."
//	daybook todo add "buy milk" --project <id>
//	daybook list todos
//	daybook delete todos <id>
//	daybook sync
package cli
