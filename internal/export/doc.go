// Package export drives a PlayFab segment export to completion.
//
// The Coordinator either starts a new export for a segment or attaches to
// an export id started earlier, then polls the export status until the
// manifest (index file) URL is available:
//   - Pending: wait PollInterval (10s by default) and ask again, unbounded
//   - Complete: return the manifest URL
//   - any error from the service: return *RemoteServiceError immediately
//
// Waiting goes through wait.Waiter so tests never sleep.
package export
