package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/adamwoolhether/artifactory/client/download"
)

// DownloadOption configures [Client.Download].
type DownloadOption = download.Option

var (
	// ErrContentLengthMismatch indicates the byte count did not match Content-Length.
	ErrContentLengthMismatch = download.ErrContentLengthMismatch
	// ErrChecksumMismatch indicates the content did not match the expected digest.
	ErrChecksumMismatch = download.ErrChecksumMismatch
)

// Download streams repo/path into destPath. With verify set, the item's
// checksums are fetched first and the strongest one is checked before
// destPath is written. Folders cannot be verified.
func (c *Client) Download(ctx context.Context, repo, path, destPath string, verify bool, optFns ...DownloadOption) error {
	if err := Validate(itemArgs{Repo: repo, Path: strings.Trim(path, "/")}); err != nil {
		return err
	}
	if destPath == "" {
		return fmt.Errorf("%w: destPath must not be empty", ErrInvalidInput)
	}

	artifact := download.Artifact{
		Dest:   destPath,
		Verify: verify,
		Checksums: func(ctx context.Context) (map[string]string, error) {
			info, err := c.GetItemInfo(ctx, repo, path)
			if err != nil {
				return nil, err
			}
			if info.IsDir() {
				return nil, fmt.Errorf("%w: %s/%s is a folder", ErrInvalidInput, repo, info.Path)
			}
			return info.Checksums, nil
		},
		Fetch: func(ctx context.Context, store download.Store) error {
			return c.fetch(ctx, itemPath(repo, path), store)
		},
	}

	if err := download.Get(ctx, artifact, c.logger, optFns...); err != nil {
		return fmt.Errorf("download: %w", err)
	}

	return nil
}

// fetch GETs opPath and passes a successful body to store. Content
// downloads answer a missing path with a bare 404, reported as
// ItemNotFoundError.
func (c *Client) fetch(ctx context.Context, opPath string, store download.Store) error {
	req, err := c.newRequest(ctx, http.MethodGet, opPath, requestOpts{})
	if err != nil {
		return err
	}

	fetchFn := func(resp *http.Response) error {
		if !success(resp.StatusCode) {
			raw, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("reading error body: %w", err)
			}
			body, err := decode(resp.Header.Get("Content-Type"), raw, false)
			if err != nil {
				return err
			}
			return classify(http.MethodGet, opPath, resp.StatusCode, body)
		}

		return store(resp.Body, resp.ContentLength)
	}

	err = c.exec(req, fetchFn)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return &ItemNotFoundError{Path: opPath}
	}

	return err
}
