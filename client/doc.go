// Package client is a client for the Artifactory REST API.
//
// # Building a Client
//
// Use [Build] with the API root and exactly one credential option:
//
//	c, err := client.Build("https://host:8081/artifactory",
//		client.WithAPIKey(key),
//		client.WithTimeout(30*time.Second),
//	)
//	if err != nil { ... }
//	defer c.Close()
//
// A Client owns one connection pool that every call shares, so it is
// meant to be built once and used from many goroutines.
//
// # Responses
//
// Every operation goes through a single request primitive. Bodies are
// decoded by Content-Type: JSON, text, or opaque bytes ([Body]). Non-2xx
// responses become typed errors:
//
//   - [*ItemNotFoundError] when the repo or path does not exist
//   - [*APIError] for any other failure, carrying method, path,
//     status and the server's message
//
// Match them with [errors.Is] against [ErrItemNotFound], [ErrAPI] or
// [ErrAuthFailure], or with [errors.As] for the details. Malformed
// payloads match [ErrMalformedResponse]; rejected arguments match
// [ErrInvalidInput] and never reach the network.
//
// # Items and Properties
//
//	info, err := c.GetItemInfo(ctx, "libs-release", "org/acme/app")
//	if info.IsDir() { ... info.FileChildren ... }
//
//	d, err := c.DeployFile(ctx, "libs-release", "org/acme/app/1.0/app.jar", f)
//
//	err = c.SetProperties(ctx, "libs-release", "org/acme/app", props.Properties{
//		"build.number": "42",
//		"tags":         []string{"stable", "lts"},
//	}, false)
//
// [Client.GetProperties] returns an empty map for an item without
// properties.
//
// # Downloads
//
// [Client.Download] streams content to disk, optionally verifying it
// against the checksums the server reports. See
// [github.com/adamwoolhether/artifactory/client/download].
package client
