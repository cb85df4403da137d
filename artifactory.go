// Package artifactory exposes the client builder.
package artifactory

import (
	"github.com/adamwoolhether/artifactory/client"
)

// NewClient instantiates a new *client.Client for the API rooted at
// baseURL. Exactly one credential option must be provided.
func NewClient(baseURL string, opts ...client.Option) (*client.Client, error) {
	return client.Build(baseURL, opts...)
}
