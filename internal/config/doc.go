// Package config loads afctl's connection settings.
//
// # Resolution Order
//
// Later sources override earlier ones:
//
//  1. Built-in defaults (timeout 30s, user agent "afctl")
//  2. The TOML file, ~/.config/afctl/config.toml unless a path is given
//  3. AFCTL_* environment variables
//  4. Command line flags, applied by the caller
//
// A missing config file is not an error. Credentials are replaced as a
// whole: setting AFCTL_API_KEY discards a user and password from the
// file, and vice versa.
//
// # TOML Format
//
//	url = "https://artifactory.example.com/artifactory"
//	api_key = "..."
//	timeout = "30s"
//	rps = 10
//	burst = 5
//
// # Environment
//
//   - AFCTL_URL
//   - AFCTL_USER, AFCTL_PASSWORD
//   - AFCTL_API_KEY
//   - AFCTL_TIMEOUT (a Go duration, e.g. 45s)
//   - AFCTL_RPS, AFCTL_BURST
package config
