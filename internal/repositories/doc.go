// Package repositories implements SQLite persistence for enrollment history.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// Repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [EnrollmentRepository] : Outcome of every tag enrollment request
//   - [Recorder] : Adapts the repository to the enrollment timer's recorder interface
//
// Sequence numbers provide stable, human-readable ordering (enrollment #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
