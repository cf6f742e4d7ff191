// Package persistence provides storage for identities, job postings and applications.
// Every store exposes the same Repo operations against a connection, and InTx runs a group
// of them against a single transaction scope. Backends are SQLite (sqlx, WAL mode, single
// connection) and PostgreSQL (gorm). Uniqueness of emails and of (job, seeker) applications
// is enforced by the schema; violations surface as ErrDuplicateEmail and ErrDuplicateApplication.
package persistence
