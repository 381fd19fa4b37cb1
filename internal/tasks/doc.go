// Package tasks orchestrates the two multi-step operations the service exposes.
//
// # Auth flow
//
// [AuthFlow] coordinates the OAuth2 authorization-code dance:
//
//  1. [AuthFlow.StartLogin] : generate a single-use CSRF state token, bind it
//     to the caller's session, and build the vendor authorization URL
//  2. [AuthFlow.HandleCallback] : consume the stored state (deleted whether or
//     not it matches), exchange the code for tokens, resolve the vendor user
//     id from the profile endpoint, and upsert the stored credential
//  3. [AuthFlow.Refresh] : refresh grant with client authentication
//
// # Queue pipeline
//
// [QueuePipeline.EnrichAndQueue] runs the tempo-filtered enrichment chain:
// look up the user's credential (refreshing an expired token first), page
// through saved tracks, fetch audio features in batches, filter to the
// configured tempo band inclusive of both boundaries, and queue the filtered
// tracks up to a cumulative duration budget.
//
// An empty library is a valid outcome, not a failure: the returned
// [QueueReport] carries NoSavedTracks so callers don't conflate "no liked
// songs" with "vendor unreachable".
//
// All vendor calls within an operation are sequential; a failure anywhere
// (except per-track queue failures, handled inside the client) is terminal
// for the operation and surfaces unwrapped to the HTTP boundary.
package tasks
