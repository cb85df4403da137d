package client

import (
	"encoding/json"
	"net/http"
	"time"
)

const (
	headerAPIKey    = "X-JFrog-Art-Api"
	headerRequestID = "X-Request-Id"

	dialTimeout                = 5 * time.Second
	defaultMaxIdleConnsPerHost = 16
)

// Operation paths, relative to the API root.
const (
	pathPing    = "api/system/ping"
	pathSystem  = "api/system"
	pathVersion = "api/system/version"
	pathStorage = "api/storage"
)

// execFn represents a func to operate on a response.
type execFn func(response *http.Response) error

// Deployment is the metadata returned after deploying a file.
type Deployment struct {
	Repo              string            `json:"repo"`
	Path              string            `json:"path"`
	Created           string            `json:"created"`
	CreatedBy         string            `json:"createdBy"`
	DownloadURI       string            `json:"downloadUri"`
	MimeType          string            `json:"mimeType"`
	Size              json.Number       `json:"size"`
	Checksums         map[string]string `json:"checksums"`
	OriginalChecksums map[string]string `json:"originalChecksums"`
	URI               string            `json:"uri"`
}

// VersionInfo describes the server's version and license.
type VersionInfo struct {
	Version  string   `json:"version"`
	Revision string   `json:"revision"`
	Addons   []string `json:"addons"`
	License  string   `json:"license"`
}
