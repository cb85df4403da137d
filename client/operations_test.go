package client_test

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/artifactory/client"
	"github.com/adamwoolhether/artifactory/client/download"
	"github.com/adamwoolhether/artifactory/client/props"
	"github.com/adamwoolhether/artifactory/internal/aftest"
)

func newClient(t *testing.T, srv *aftest.Server, opts ...client.Option) *client.Client {
	t.Helper()

	if len(opts) == 0 {
		opts = []client.Option{client.WithAPIKey(aftest.APIKey)}
	}

	c, err := client.Build(srv.URL(), opts...)
	if err != nil {
		t.Fatalf("building client: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	return c
}

func TestPing(t *testing.T) {
	srv := aftest.New(t)
	c := newClient(t, srv)

	got, err := c.Ping(t.Context())
	if err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}
	if got != "OK" {
		t.Errorf("exp %q, got %q", "OK", got)
	}
}

func TestSystemInfoAndVersion(t *testing.T) {
	srv := aftest.New(t)
	c := newClient(t, srv)

	info, err := c.SystemInfo(t.Context())
	if err != nil {
		t.Fatalf("system info: %v", err)
	}
	if !strings.Contains(info, aftest.Version) {
		t.Errorf("system info missing version %q:\n%s", aftest.Version, info)
	}

	v, err := c.Version(t.Context())
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v.Version != aftest.Version {
		t.Errorf("exp version %q, got %q", aftest.Version, v.Version)
	}
	if len(v.Addons) == 0 {
		t.Error("exp addons")
	}
}

func TestAuthFailure(t *testing.T) {
	srv := aftest.New(t)

	testCases := map[string]client.Option{
		"wrong api key":    client.WithAPIKey("nope"),
		"wrong basic auth": client.WithBasicAuth("admin", "nope"),
	}

	for name, opt := range testCases {
		t.Run(name, func(t *testing.T) {
			c := newClient(t, srv, opt)

			_, err := c.Ping(t.Context())
			if !errors.Is(err, client.ErrAuthFailure) {
				t.Fatalf("exp ErrAuthFailure, got: %v", err)
			}
			var apiErr *client.APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
				t.Errorf("exp 401 APIError, got: %v", err)
			}
		})
	}
}

func TestBasicAuth(t *testing.T) {
	srv := aftest.New(t, aftest.WithBasicAuth("admin", "password"))
	c := newClient(t, srv, client.WithBasicAuth("admin", "password"))

	if _, err := c.Ping(t.Context()); err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}
}

func TestGetItemInfo(t *testing.T) {
	srv := aftest.New(t)
	srv.Put(aftest.Repo, "deploy-test/a.txt", []byte("a"))
	srv.Put(aftest.Repo, "deploy-test/nested/b.dat", []byte("bb"))
	c := newClient(t, srv)

	t.Run("repo root", func(t *testing.T) {
		info, err := c.GetItemInfo(t.Context(), aftest.Repo, "")
		if err != nil {
			t.Fatalf("exp nil err, got: %v", err)
		}
		if !info.IsDir() || info.Repo != aftest.Repo || info.Path != "" {
			t.Errorf("unexpected repo info %+v", info)
		}
		if diff := cmp.Diff([]string{"deploy-test"}, info.DirChildren); diff != "" {
			t.Errorf("dir children (-want +got):\n%s", diff)
		}
	})

	t.Run("folder", func(t *testing.T) {
		info, err := c.GetItemInfo(t.Context(), aftest.Repo, "deploy-test")
		if err != nil {
			t.Fatalf("exp nil err, got: %v", err)
		}
		if !info.IsDir() {
			t.Fatalf("exp folder, got %+v", info)
		}
		if diff := cmp.Diff([]string{"nested"}, info.DirChildren); diff != "" {
			t.Errorf("dir children (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"a.txt"}, info.FileChildren); diff != "" {
			t.Errorf("file children (-want +got):\n%s", diff)
		}
		if info.Created.IsZero() || info.Created.Location() != time.UTC {
			t.Errorf("exp UTC created time, got %v", info.Created)
		}
	})

	t.Run("file", func(t *testing.T) {
		info, err := c.GetItemInfo(t.Context(), aftest.Repo, "/deploy-test/nested/b.dat")
		if err != nil {
			t.Fatalf("exp nil err, got: %v", err)
		}
		if !info.IsFile() || info.Path != "deploy-test/nested/b.dat" || info.Size != 2 {
			t.Errorf("unexpected file info %+v", info)
		}
		if info.MimeType == "" {
			t.Error("exp mime type")
		}
		sum := sha256.Sum256([]byte("bb"))
		if info.Checksums["sha256"] != hex.EncodeToString(sum[:]) {
			t.Errorf("unexpected sha256 %q", info.Checksums["sha256"])
		}
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := c.GetItemInfo(t.Context(), aftest.Repo, "nope")
		var nf *client.ItemNotFoundError
		if !errors.As(err, &nf) {
			t.Fatalf("exp *ItemNotFoundError, got: %v", err)
		}
		if nf.Path != "api/storage/"+aftest.Repo+"/nope" {
			t.Errorf("unexpected path %q", nf.Path)
		}
	})

	t.Run("missing repo", func(t *testing.T) {
		_, err := c.GetItemInfo(t.Context(), "no-such-repo", "")
		if !errors.Is(err, client.ErrItemNotFound) {
			t.Fatalf("exp ErrItemNotFound, got: %v", err)
		}
	})

	t.Run("empty repo rejected", func(t *testing.T) {
		before := len(srv.Requests())
		_, err := c.GetItemInfo(t.Context(), "", "x")
		if !errors.Is(err, client.ErrInvalidInput) {
			t.Fatalf("exp ErrInvalidInput, got: %v", err)
		}
		if after := len(srv.Requests()); after != before {
			t.Errorf("invalid input reached the server")
		}
	})
}

func TestDeployAndDelete(t *testing.T) {
	srv := aftest.New(t)
	c := newClient(t, srv)

	d, err := c.DeployFile(t.Context(), aftest.Repo, "deploy-test/bytes.dat", []byte("HELLO,WORLD"))
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}

	md5Sum := md5.Sum([]byte("HELLO,WORLD"))
	if d.Size.String() != "11" {
		t.Errorf("exp size 11, got %q", d.Size)
	}
	if d.Checksums["md5"] != hex.EncodeToString(md5Sum[:]) {
		t.Errorf("unexpected md5 %q", d.Checksums["md5"])
	}
	if d.Repo != aftest.Repo || d.Path != "/deploy-test/bytes.dat" {
		t.Errorf("unexpected deployment %+v", d)
	}

	got, ok := srv.Content(aftest.Repo, "deploy-test/bytes.dat")
	if !ok || string(got) != "HELLO,WORLD" {
		t.Fatalf("server content %q, ok=%v", got, ok)
	}

	reqs := srv.Requests()
	last := reqs[len(reqs)-1]
	if last.Header.Get("X-Checksum-Sha256") == "" || last.Header.Get("X-Checksum-Sha1") == "" {
		t.Errorf("exp checksum headers, got %v", last.Header)
	}

	body, err := c.DeleteItem(t.Context(), aftest.Repo, "deploy-test/bytes.dat")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if body.Len() != 0 {
		t.Errorf("exp empty delete body, got %q", body.String())
	}

	if _, err := c.GetItemInfo(t.Context(), aftest.Repo, "deploy-test/bytes.dat"); !errors.Is(err, client.ErrItemNotFound) {
		t.Errorf("exp deleted item to be gone, got: %v", err)
	}

	if _, err := c.DeleteItem(t.Context(), aftest.Repo, "deploy-test/bytes.dat"); !errors.Is(err, client.ErrAPI) {
		t.Errorf("exp APIError deleting a missing item, got: %v", err)
	}
}

func TestDeployFile_Content(t *testing.T) {
	srv := aftest.New(t)
	c := newClient(t, srv)

	testCases := map[string]struct {
		content any
		exp     string
		expErr  error
	}{
		"bytes":        {content: []byte{0x00, 0xff}, exp: "\x00\xff"},
		"string":       {content: "héllo", exp: "héllo"},
		"reader":       {content: strings.NewReader("from a reader"), exp: "from a reader"},
		"empty":        {content: "", exp: ""},
		"unsupported":  {content: 42, expErr: client.ErrInvalidInput},
		"nil":          {content: nil, expErr: client.ErrInvalidInput},
		"missing repo": {content: "x", expErr: client.ErrAPI},

		"nil bytes reader":   {content: (*bytes.Reader)(nil), expErr: client.ErrInvalidInput},
		"nil bytes buffer":   {content: (*bytes.Buffer)(nil), expErr: client.ErrInvalidInput},
		"nil strings reader": {content: (*strings.Reader)(nil), expErr: client.ErrInvalidInput},
		"nil file":           {content: (*os.File)(nil), expErr: client.ErrInvalidInput},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			repo := aftest.Repo
			if name == "missing repo" {
				repo = "no-such-repo"
			}
			itemPath := "content/" + strings.ReplaceAll(name, " ", "-")

			_, err := c.DeployFile(t.Context(), repo, itemPath, tc.content)
			if tc.expErr != nil {
				if !errors.Is(err, tc.expErr) {
					t.Fatalf("exp err %v; got: %v", tc.expErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("exp nil err, got: %v", err)
			}

			got, _ := srv.Content(repo, itemPath)
			if string(got) != tc.exp {
				t.Errorf("exp %q, got %q", tc.exp, got)
			}
		})
	}
}

func TestDeployFile_InvalidArgs(t *testing.T) {
	srv := aftest.New(t)
	c := newClient(t, srv)

	testCases := map[string]struct {
		repo, path string
		field      string
	}{
		"empty repo": {repo: "", path: "a.txt", field: "repo"},
		"empty path": {repo: aftest.Repo, path: "", field: "path"},
		"only slash": {repo: aftest.Repo, path: "/", field: "path"},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := c.DeployFile(t.Context(), tc.repo, tc.path, "x")

			var inErr client.InputError
			if !errors.As(err, &inErr) {
				t.Fatalf("exp InputError, got: %v", err)
			}
			if _, ok := inErr.Fields()[tc.field]; !ok {
				t.Errorf("exp field %q in %v", tc.field, inErr.Fields())
			}
		})
	}

	if n := len(srv.Requests()); n != 0 {
		t.Errorf("exp no requests, got %d", n)
	}
}

func TestProperties(t *testing.T) {
	srv := aftest.New(t)
	srv.Put(aftest.Repo, "props/file.txt", []byte("x"))
	c := newClient(t, srv)

	got, err := c.GetProperties(t.Context(), aftest.Repo, "props/file.txt")
	if err != nil {
		t.Fatalf("exp nil err for an item without properties, got: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("exp empty non-nil map, got %#v", got)
	}

	err = c.SetProperties(t.Context(), aftest.Repo, "props/file.txt", props.Properties{
		"color": "red",
		"tags":  []string{"a", "b"},
	}, false)
	if err != nil {
		t.Fatalf("set properties: %v", err)
	}

	reqs := srv.Requests()
	last := reqs[len(reqs)-1]
	if last.Method != http.MethodPut || last.Path != "/artifactory/api/storage/"+aftest.Repo+"/props/file.txt" {
		t.Errorf("unexpected request %s %s", last.Method, last.Path)
	}
	query, err := url.ParseQuery(last.RawQuery)
	if err != nil {
		t.Fatalf("parsing query: %v", err)
	}
	if q := query.Get("properties"); q != "color=red;tags=a,b" {
		t.Errorf("exp properties %q, got %q", "color=red;tags=a,b", q)
	}
	if q := query.Get("recursive"); q != "0" {
		t.Errorf("exp recursive=0, got %q", q)
	}

	got, err = c.GetProperties(t.Context(), aftest.Repo, "props/file.txt")
	if err != nil {
		t.Fatalf("get properties: %v", err)
	}
	exp := map[string][]string{"color": {"red"}, "tags": {"a", "b"}}
	if diff := cmp.Diff(exp, got); diff != "" {
		t.Errorf("properties (-want +got):\n%s", diff)
	}
}

func TestSetProperties_Escaping(t *testing.T) {
	srv := aftest.New(t)
	srv.Put(aftest.Repo, "esc.txt", []byte("x"))
	c := newClient(t, srv)

	in := props.Properties{"expr": "a=b|c,d", "list": []string{"x,y", "z"}}
	if err := c.SetProperties(t.Context(), aftest.Repo, "esc.txt", in, false); err != nil {
		t.Fatalf("set properties: %v", err)
	}

	got, err := c.GetProperties(t.Context(), aftest.Repo, "esc.txt")
	if err != nil {
		t.Fatalf("get properties: %v", err)
	}
	exp := map[string][]string{"expr": {"a=b|c,d"}, "list": {"x,y", "z"}}
	if diff := cmp.Diff(exp, got); diff != "" {
		t.Errorf("properties (-want +got):\n%s", diff)
	}
}

func TestSetProperties_Recursive(t *testing.T) {
	srv := aftest.New(t)
	srv.Put(aftest.Repo, "dir/one.txt", []byte("1"))
	srv.Put(aftest.Repo, "dir/sub/two.txt", []byte("2"))
	c := newClient(t, srv)

	if err := c.SetProperties(t.Context(), aftest.Repo, "dir", props.Properties{"release": "1.0"}, true); err != nil {
		t.Fatalf("set properties: %v", err)
	}

	reqs := srv.Requests()
	if q := reqs[len(reqs)-1].RawQuery; strings.Contains(q, "recursive") {
		t.Errorf("recursive set should use the server default, got query %q", q)
	}

	for _, p := range []string{"dir", "dir/one.txt", "dir/sub/two.txt"} {
		got, err := c.GetProperties(t.Context(), aftest.Repo, p)
		if err != nil {
			t.Fatalf("get properties %s: %v", p, err)
		}
		if diff := cmp.Diff(map[string][]string{"release": {"1.0"}}, got); diff != "" {
			t.Errorf("%s properties (-want +got):\n%s", p, diff)
		}
	}
}

func TestProperties_Errors(t *testing.T) {
	srv := aftest.New(t)
	c := newClient(t, srv)

	if _, err := c.GetProperties(t.Context(), aftest.Repo, "missing.txt"); !errors.Is(err, client.ErrItemNotFound) {
		t.Errorf("exp ErrItemNotFound, got: %v", err)
	}

	err := c.SetProperties(t.Context(), aftest.Repo, "missing.txt", props.Properties{"k": "v"}, false)
	if !errors.Is(err, client.ErrItemNotFound) {
		t.Errorf("exp ErrItemNotFound, got: %v", err)
	}

	err = c.SetProperties(t.Context(), aftest.Repo, "x", props.Properties{"k": 1}, false)
	if !errors.Is(err, client.ErrInvalidInput) || !errors.Is(err, props.ErrInvalidPropertyValue) {
		t.Errorf("exp ErrInvalidInput wrapping ErrInvalidPropertyValue, got: %v", err)
	}

	before := len(srv.Requests())
	err = c.SetProperties(t.Context(), aftest.Repo, "/", props.Properties{"k": "v"}, false)
	if !errors.Is(err, client.ErrInvalidInput) {
		t.Errorf("repo root: exp ErrInvalidInput, got: %v", err)
	}
	if n := len(srv.Requests()) - before; n != 0 {
		t.Errorf("repo root: exp no request, got %d", n)
	}
}

func TestConcurrentDeploys(t *testing.T) {
	srv := aftest.New(t)
	c := newClient(t, srv, client.WithAPIKey(aftest.APIKey), client.WithMaxConnsPerHost(4))

	const n = 24
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Go(func() {
			p := fmt.Sprintf("concurrent/file-%02d.txt", i)
			if _, err := c.DeployFile(t.Context(), aftest.Repo, p, fmt.Sprintf("payload %d", i)); err != nil {
				errs <- fmt.Errorf("%s: %w", p, err)
			}
		})
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	info, err := c.GetItemInfo(t.Context(), aftest.Repo, "concurrent")
	if err != nil {
		t.Fatal(err)
	}
	if len(info.FileChildren) != n {
		t.Errorf("exp %d files, got %d", n, len(info.FileChildren))
	}
	for i := range n {
		got, _ := srv.Content(aftest.Repo, fmt.Sprintf("concurrent/file-%02d.txt", i))
		if exp := fmt.Sprintf("payload %d", i); string(got) != exp {
			t.Errorf("file %d: exp %q, got %q", i, exp, got)
		}
	}
}

func TestDownload(t *testing.T) {
	content := []byte(strings.Repeat("artifact bytes ", 1024))

	srv := aftest.New(t)
	srv.Put(aftest.Repo, "dl/app.bin", content)
	srv.Put(aftest.Repo, "dl/dir/child.txt", []byte("c"))
	c := newClient(t, srv)

	testCases := map[string]struct {
		path   string
		verify bool
		opts   []client.DownloadOption
		expErr error
	}{
		"plain":              {path: "dl/app.bin"},
		"verified":           {path: "dl/app.bin", verify: true},
		"with progress":      {path: "dl/app.bin", opts: []client.DownloadOption{download.WithProgress()}},
		"checksum mismatch":  {path: "dl/app.bin", opts: []client.DownloadOption{download.WithChecksum(sha256.New(), "deadbeef")}, expErr: client.ErrChecksumMismatch},
		"verify folder":      {path: "dl/dir", verify: true, expErr: client.ErrInvalidInput},
		"missing":            {path: "dl/missing.bin", expErr: client.ErrItemNotFound},
		"missing and verify": {path: "dl/missing.bin", verify: true, expErr: client.ErrItemNotFound},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "out.bin")

			err := c.Download(t.Context(), aftest.Repo, tc.path, dest, tc.verify, tc.opts...)
			if tc.expErr != nil {
				if !errors.Is(err, tc.expErr) {
					t.Fatalf("exp err %v; got: %v", tc.expErr, err)
				}
				if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
					t.Errorf("exp no file at dest after failure, stat err: %v", statErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("exp nil err, got: %v", err)
			}

			got, err := os.ReadFile(dest)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != string(content) {
				t.Errorf("downloaded %d bytes, exp %d", len(got), len(content))
			}
		})
	}
}

func TestDownload_SkipExisting(t *testing.T) {
	srv := aftest.New(t)
	srv.Put(aftest.Repo, "dl/app.bin", []byte("new"))
	c := newClient(t, srv)

	dest := filepath.Join(t.TempDir(), "out.bin")
	if err := os.WriteFile(dest, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := c.Download(t.Context(), aftest.Repo, "dl/app.bin", dest, true, download.WithSkipExisting()); err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}

	got, _ := os.ReadFile(dest)
	if string(got) != "old" {
		t.Errorf("existing file was overwritten: %q", got)
	}
	if n := len(srv.Requests()); n != 0 {
		t.Errorf("exp no requests, got %d", n)
	}
}
