// Package audit records redacted session lifecycle events.
//
// The journal stores metadata only — session ids, sides, close reasons,
// utterance byte counts, timestamps — never utterance content. Events are
// recorded asynchronously through a bounded buffer (overflow drops and
// counts) and persisted to a memory ring or a SQLite database. The admin
// surface reads recent events back for operators.
package audit
