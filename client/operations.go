package client

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/adamwoolhether/artifactory/client/props"
)

// Ping checks the server's health. A healthy server answers "OK".
func (c *Client) Ping(ctx context.Context) (string, error) {
	_, body, err := c.request(ctx, http.MethodGet, pathPing)
	if err != nil {
		return "", fmt.Errorf("ping: %w", err)
	}

	return body.String(), nil
}

// SystemInfo returns the server's plain-text system information.
func (c *Client) SystemInfo(ctx context.Context) (string, error) {
	_, body, err := c.request(ctx, http.MethodGet, pathSystem)
	if err != nil {
		return "", fmt.Errorf("system info: %w", err)
	}

	return body.String(), nil
}

// Version returns the server's version and license information.
func (c *Client) Version(ctx context.Context) (VersionInfo, error) {
	_, body, err := c.request(ctx, http.MethodGet, pathVersion)
	if err != nil {
		return VersionInfo{}, fmt.Errorf("version: %w", err)
	}

	var v VersionInfo
	if err := body.Decode(&v); err != nil {
		return VersionInfo{}, fmt.Errorf("version: %w", err)
	}
	if v.Version == "" {
		return VersionInfo{}, fmt.Errorf("version: %w", malformed("missing version"))
	}

	return v, nil
}

// GetItemInfo returns the storage info of a repo, or of a path within it
// when path is non-empty. A missing repo or path yields an
// [*ItemNotFoundError].
func (c *Client) GetItemInfo(ctx context.Context, repo, path string) (ItemInfo, error) {
	if err := Validate(repoArgs{Repo: repo}); err != nil {
		return ItemInfo{}, err
	}

	rpath := storagePath(repo, path)
	_, body, err := c.request(ctx, http.MethodGet, rpath)
	if err != nil {
		return ItemInfo{}, fmt.Errorf("get item info: %w", err)
	}
	if body.Kind() != KindJSON {
		return ItemInfo{}, fmt.Errorf("get item info: %w", malformed("expected json body, got %s", body.Kind()))
	}

	info, err := parseItemInfo(body.Bytes())
	if err != nil {
		return ItemInfo{}, fmt.Errorf("get item info: %w", err)
	}

	return info, nil
}

// DeleteItem removes repo/path. On success the returned body is empty;
// check its length rather than its kind.
func (c *Client) DeleteItem(ctx context.Context, repo, path string) (Body, error) {
	if err := Validate(itemArgs{Repo: repo, Path: strings.Trim(path, "/")}); err != nil {
		return Body{}, err
	}

	_, body, err := c.request(ctx, http.MethodDelete, itemPath(repo, path))
	if err != nil {
		return Body{}, fmt.Errorf("delete item: %w", err)
	}

	return body, nil
}

// DeployFile uploads content to repo/path. content may be a []byte, a
// string (sent as UTF-8) or a non-nil [io.Reader], which is read fully
// before the upload starts. Any other type, or a nil *bytes.Reader,
// *bytes.Buffer, *strings.Reader or *os.File, fails with [ErrInvalidInput].
func (c *Client) DeployFile(ctx context.Context, repo, path string, content any) (Deployment, error) {
	if err := Validate(itemArgs{Repo: repo, Path: strings.Trim(path, "/")}); err != nil {
		return Deployment{}, err
	}

	payload, err := contentBytes(content)
	if err != nil {
		return Deployment{}, err
	}

	md5Sum := md5.Sum(payload)
	sha1Sum := sha1.Sum(payload)
	sha256Sum := sha256.Sum256(payload)

	_, body, err := c.request(ctx, http.MethodPut, itemPath(repo, path),
		withBody(payload, "application/octet-stream"),
		withHeader("X-Checksum-Md5", hex.EncodeToString(md5Sum[:])),
		withHeader("X-Checksum-Sha1", hex.EncodeToString(sha1Sum[:])),
		withHeader("X-Checksum-Sha256", hex.EncodeToString(sha256Sum[:])),
	)
	if err != nil {
		return Deployment{}, fmt.Errorf("deploy file: %w", err)
	}

	var d Deployment
	if err := body.Decode(&d); err != nil {
		return Deployment{}, fmt.Errorf("deploy file: %w", err)
	}

	return d, nil
}

// GetProperties returns the properties set on repo/path. An item without
// properties yields an empty map, not an error. Values are always lists;
// a scalar returned by the server becomes a one-element list.
func (c *Client) GetProperties(ctx context.Context, repo, path string) (map[string][]string, error) {
	if err := Validate(itemArgs{Repo: repo, Path: strings.Trim(path, "/")}); err != nil {
		return nil, err
	}

	lookup, err := c.lookupProperties(ctx, repo, path)
	if err != nil {
		return nil, fmt.Errorf("get properties: %w", err)
	}
	if !lookup.found {
		return map[string][]string{}, nil
	}

	return lookup.props, nil
}

// propertyLookup is either a set of properties or the empty marker.
type propertyLookup struct {
	props map[string][]string
	found bool
}

func (c *Client) lookupProperties(ctx context.Context, repo, path string) (propertyLookup, error) {
	_, body, err := c.request(ctx, http.MethodGet, storagePath(repo, path), withQuery("properties"))
	if err != nil {
		if errors.Is(err, errNoProperties) {
			return propertyLookup{}, nil
		}
		return propertyLookup{}, err
	}

	var payload struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := body.Decode(&payload); err != nil {
		return propertyLookup{}, err
	}
	if payload.Properties == nil {
		return propertyLookup{}, malformed("missing properties key")
	}

	out := make(map[string][]string, len(payload.Properties))
	for name, raw := range payload.Properties {
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil {
			out[name] = list
			continue
		}

		var scalar string
		if err := json.Unmarshal(raw, &scalar); err != nil {
			return propertyLookup{}, malformed("property %q: %v", name, err)
		}
		out[name] = []string{scalar}
	}

	return propertyLookup{props: out, found: true}, nil
}

// SetProperties attaches p to repo/path. When recursive is false the
// request carries recursive=0; otherwise the server default (recursive)
// applies to folders.
//
// The request targets the item itself, PUT api/storage/{repo}/{path}.
// A PUT to api/storage/{repo} alone would set the properties on the
// repository root instead, so path is required.
func (c *Client) SetProperties(ctx context.Context, repo, path string, p props.Properties, recursive bool) error {
	if err := Validate(itemArgs{Repo: repo, Path: strings.Trim(path, "/")}); err != nil {
		return err
	}

	encoded, err := props.Encode(p)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	query := url.Values{"properties": {encoded}}
	if !recursive {
		query.Set("recursive", "0")
	}

	if _, _, err := c.request(ctx, http.MethodPut, storagePath(repo, path), withQuery(query.Encode())); err != nil {
		return fmt.Errorf("set properties: %w", err)
	}

	return nil
}

// contentBytes resolves deploy content into the bytes to send.
func contentBytes(content any) ([]byte, error) {
	switch v := content.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case io.Reader:
		if nilReader(v) {
			return nil, fmt.Errorf("%w: nil %T content", ErrInvalidInput, content)
		}
		b, err := io.ReadAll(v)
		if err != nil {
			return nil, fmt.Errorf("reading content: %w", err)
		}
		return b, nil
	}

	return nil, fmt.Errorf("%w: unsupported content type %T", ErrInvalidInput, content)
}

// nilReader reports whether r is a nil pointer of a common reader type.
func nilReader(r io.Reader) bool {
	switch v := r.(type) {
	case *bytes.Reader:
		return v == nil
	case *bytes.Buffer:
		return v == nil
	case *strings.Reader:
		return v == nil
	case *os.File:
		return v == nil
	}
	return false
}

func storagePath(repo, path string) string {
	rpath := pathStorage + "/" + repo
	if p := strings.Trim(path, "/"); p != "" {
		rpath += "/" + p
	}
	return rpath
}

func itemPath(repo, path string) string {
	return repo + "/" + strings.Trim(path, "/")
}
