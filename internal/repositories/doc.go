// Package repositories implements SQLite persistence for domain entities.
//
// The Token Store contract lives here: [CredentialRepository] maps Spotify
// user ids to stored OAuth token sets, with an upsert that overwrites token
// fields in place for an existing user and inserts otherwise. Calls are rare
// (one per login or refresh) and keyed by user id, so last-writer-wins per
// key is sufficient.
//
// Sequence numbers provide stable, human-readable ordering (e.g., credential #42)
// independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
