// Package model defines the types shared between the export coordinator,
// the shard merger and the run history.
//
// Conventions:
//   - Export and segment ids are opaque strings issued by PlayFab
//   - Manifest and shard locations are absolute URLs, kept in manifest order
//   - Run ids are uuid.UUID generated locally
package model
