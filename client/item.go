package client

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ItemInfo describes a file or a folder in a repository.
// Folder items carry children; file items carry size, mime type and checksums.
type ItemInfo struct {
	Repo     string
	Path     string
	Created  time.Time
	Modified time.Time
	Updated  time.Time

	DirChildren  []string
	FileChildren []string

	Size      int64
	MimeType  string
	Checksums map[string]string

	isDir bool
}

// IsDir reports whether the item is a folder.
func (i ItemInfo) IsDir() bool { return i.isDir }

// IsFile reports whether the item is a file.
func (i ItemInfo) IsFile() bool { return !i.isDir }

type itemChild struct {
	URI    string `json:"uri"`
	Folder bool   `json:"folder"`
}

type itemPayload struct {
	Repo         *string           `json:"repo"`
	Path         *string           `json:"path"`
	Created      string            `json:"created"`
	LastModified string            `json:"lastModified"`
	LastUpdated  string            `json:"lastUpdated"`
	Children     *[]itemChild      `json:"children"`
	Size         *json.RawMessage  `json:"size"`
	MimeType     *string           `json:"mimeType"`
	Checksums    map[string]string `json:"checksums"`
}

// parseItemInfo builds an ItemInfo from a storage-info payload.
func parseItemInfo(raw []byte) (ItemInfo, error) {
	var p itemPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return ItemInfo{}, malformed("decoding item info: %v", err)
	}

	if p.Repo == nil || *p.Repo == "" {
		return ItemInfo{}, malformed("item info: missing repo")
	}
	if p.Path == nil {
		return ItemInfo{}, malformed("item info: missing path")
	}

	info := ItemInfo{
		Repo: *p.Repo,
		Path: strings.Trim(*p.Path, "/"),
	}

	for _, ts := range []struct {
		dst *time.Time
		key string
		val string
	}{
		{&info.Created, "created", p.Created},
		{&info.Modified, "lastModified", p.LastModified},
		{&info.Updated, "lastUpdated", p.LastUpdated},
	} {
		t, err := parseTimestamp(ts.val)
		if err != nil {
			return ItemInfo{}, malformed("item info: %s: %v", ts.key, err)
		}
		*ts.dst = t
	}

	if p.Children != nil {
		info.isDir = true
		info.DirChildren = []string{}
		info.FileChildren = []string{}
		for _, c := range *p.Children {
			name := strings.Trim(c.URI, "/")
			if c.Folder {
				info.DirChildren = append(info.DirChildren, name)
			} else {
				info.FileChildren = append(info.FileChildren, name)
			}
		}

		return info, nil
	}

	size, err := parseSize(p.Size)
	if err != nil {
		return ItemInfo{}, err
	}
	info.Size = size

	if p.MimeType == nil {
		return ItemInfo{}, malformed("item info: missing mimeType")
	}
	info.MimeType = *p.MimeType

	info.Checksums = make(map[string]string, len(p.Checksums))
	for algo, digest := range p.Checksums {
		info.Checksums[algo] = digest
	}

	return info, nil
}

// parseSize accepts the size as a numeric string ("11") or a bare number.
func parseSize(raw *json.RawMessage) (int64, error) {
	if raw == nil {
		return 0, malformed("item info: missing size")
	}

	s := string(*raw)
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}

	size, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || size < 0 {
		return 0, malformed("item info: invalid size %s", *raw)
	}

	return size, nil
}

// Layouts tried after the trailing "Z" is removed.
var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTimestamp reads an ISO-8601 timestamp such as
// "2021-12-05T03:48:29.706Z" as UTC. The wall clock is kept as-is: an
// explicit offset is relabeled to UTC, not converted. An empty string
// yields the zero time.
func parseTimestamp(ts string) (time.Time, error) {
	if ts == "" {
		return time.Time{}, nil
	}

	local := strings.TrimSuffix(ts, "Z")

	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, local, time.UTC)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	if t, err := time.Parse(time.RFC3339Nano, local); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
	}

	return time.Time{}, firstErr
}
