// Package download fetches an artifact's content to disk.
//
// [Get] drives one download: it honours [WithSkipExisting] before any
// request, resolves the item's digests when [Artifact.Verify] is set,
// then streams the body through [Artifact.Fetch] into a temporary file
// that is renamed over the destination once length and digest checks
// pass.
//
//	err := download.Get(ctx, download.Artifact{
//		Dest:      "app.jar",
//		Verify:    true,
//		Checksums: lookup,
//		Fetch:     fetch,
//	}, logger, download.WithProgress())
//
// Most callers should use [github.com/adamwoolhether/artifactory/client.Client.Download].
package download
