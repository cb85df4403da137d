// Package aftest runs an in-memory Artifactory for tests. It implements
// the subset of the REST API the client speaks: system ping/info/version,
// storage info, deploy, download, delete and item properties.
package aftest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"path"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/adamwoolhether/artifactory/client/props"
)

const (
	// APIKey is accepted when no credentials are configured via options.
	APIKey = "test-api-key"
	// Repo is created when no repos are configured via options.
	Repo = "test-repo"
	// Version is reported by api/system/version.
	Version = "7.77.3"

	basePath = "/artifactory"
)

// Request is a recorded call.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
}

type file struct {
	data      []byte
	mimeType  string
	createdBy string
	created   time.Time
	modified  time.Time
}

// Server is an in-memory Artifactory instance.
type Server struct {
	*httptest.Server

	apiKey   string
	username string
	password string
	now      func() time.Time

	mu       sync.Mutex
	repos    map[string]map[string]*file
	props    map[string]map[string][]string
	created  map[string]time.Time
	requests []Request
}

// Option configures a [Server].
type Option func(*Server)

// WithAPIKey sets the accepted API key.
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = key }
}

// WithBasicAuth accepts the given username and password.
func WithBasicAuth(username, password string) Option {
	return func(s *Server) {
		s.username = username
		s.password = password
	}
}

// WithRepos creates the named, empty repositories.
func WithRepos(names ...string) Option {
	return func(s *Server) {
		for _, name := range names {
			s.repos[name] = make(map[string]*file)
		}
	}
}

// WithClock overrides the time source for created/modified timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New starts a server and registers its shutdown with t.Cleanup.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()

	s := &Server{
		now:     time.Now,
		repos:   make(map[string]map[string]*file),
		props:   make(map[string]map[string][]string),
		created: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.apiKey == "" && s.username == "" {
		s.apiKey = APIKey
	}
	if len(s.repos) == 0 {
		s.repos[Repo] = make(map[string]*file)
	}
	for name := range s.repos {
		s.created[name] = s.now().UTC()
	}

	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)

	return s
}

// URL returns the API root, e.g. http://127.0.0.1:1234/artifactory.
func (s *Server) URL() string {
	return s.Server.URL + basePath
}

// Requests returns a copy of every call received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.requests)
}

// Put stores content at repo/path directly, bypassing the API.
func (s *Server) Put(repo, itemPath string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store(repo, strings.Trim(itemPath, "/"), content, "aftest")
}

// Content returns what is stored at repo/path.
func (s *Server) Content(repo, itemPath string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.repos[repo][strings.Trim(itemPath, "/")]
	if !ok {
		return nil, false
	}
	return slices.Clone(f.data), true
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)
	r.Use(s.authenticate)

	r.Route(basePath, func(r chi.Router) {
		r.Get("/api/system/ping", s.ping)
		r.Get("/api/system", s.systemInfo)
		r.Get("/api/system/version", s.version)

		r.Get("/api/storage/{repo}", s.storageGet)
		r.Get("/api/storage/{repo}/*", s.storageGet)
		r.Put("/api/storage/{repo}", s.storagePut)
		r.Put("/api/storage/{repo}/*", s.storagePut)

		r.Get("/{repo}/*", s.content)
		r.Put("/{repo}/*", s.deploy)
		r.Delete("/{repo}/*", s.delete)
	})

	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:   r.Method,
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get("X-JFrog-Art-Api"); key != "" && key == s.apiKey {
			next.ServeHTTP(w, r)
			return
		}
		if user, pass, ok := r.BasicAuth(); ok && s.username != "" && user == s.username && pass == s.password {
			next.ServeHTTP(w, r)
			return
		}

		writeErrors(w, http.StatusUnauthorized, "Bad credentials")
	})
}

func (s *Server) ping(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "OK")
}

func (s *Server) systemInfo(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, fmt.Sprintf("SYSTEM INFORMATION DUMP\n=======================\nArtifactory Info:\n artifactory.version | %s\n", Version))
}

func (s *Server) version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":  Version,
		"revision": "77703900",
		"addons":   []string{"build", "docker", "rest"},
		"license":  "aftest",
	})
}

func (s *Server) storageGet(w http.ResponseWriter, r *http.Request) {
	repo, itemPath := chi.URLParam(r, "repo"), strings.Trim(chi.URLParam(r, "*"), "/")

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.exists(repo, itemPath) {
		writeErrors(w, http.StatusNotFound, "Unable to find item")
		return
	}

	if _, ok := r.URL.Query()["properties"]; ok {
		p := s.props[repo+"/"+itemPath]
		if len(p) == 0 {
			writeErrors(w, http.StatusNotFound, "No properties could be found.")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"properties": p,
			"uri":        s.apiURI(r, repo, itemPath),
		})
		return
	}

	if f, ok := s.repos[repo][itemPath]; ok {
		writeJSON(w, http.StatusOK, s.fileInfo(r, repo, itemPath, f))
		return
	}

	writeJSON(w, http.StatusOK, s.folderInfo(r, repo, itemPath))
}

func (s *Server) storagePut(w http.ResponseWriter, r *http.Request) {
	repo, itemPath := chi.URLParam(r, "repo"), strings.Trim(chi.URLParam(r, "*"), "/")

	raw := r.URL.Query().Get("properties")
	if raw == "" {
		writeErrors(w, http.StatusBadRequest, "Missing properties parameter")
		return
	}
	parsed, err := props.Parse(raw)
	if err != nil {
		writeErrors(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.exists(repo, itemPath) {
		writeErrors(w, http.StatusNotFound, "Unable to find item")
		return
	}

	targets := []string{itemPath}
	if r.URL.Query().Get("recursive") != "0" {
		for p := range s.repos[repo] {
			if itemPath == "" || strings.HasPrefix(p, itemPath+"/") {
				targets = append(targets, p)
			}
		}
	}
	for _, target := range targets {
		key := repo + "/" + target
		if s.props[key] == nil {
			s.props[key] = make(map[string][]string)
		}
		for k, v := range parsed {
			s.props[key][k] = v
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) content(w http.ResponseWriter, r *http.Request) {
	repo, itemPath := chi.URLParam(r, "repo"), strings.Trim(chi.URLParam(r, "*"), "/")

	s.mu.Lock()
	f, ok := s.repos[repo][itemPath]
	s.mu.Unlock()
	if !ok {
		writeErrors(w, http.StatusNotFound, "Could not find resource")
		return
	}

	w.Header().Set("Content-Type", f.mimeType)
	w.Header().Set("Content-Length", fmt.Sprint(len(f.data)))
	w.WriteHeader(http.StatusOK)
	w.Write(f.data)
}

func (s *Server) deploy(w http.ResponseWriter, r *http.Request) {
	repo, itemPath := chi.URLParam(r, "repo"), strings.Trim(chi.URLParam(r, "*"), "/")

	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeErrors(w, http.StatusBadRequest, err.Error())
		return
	}

	sums := checksums(data)
	for header, algo := range map[string]string{"X-Checksum-Md5": "md5", "X-Checksum-Sha1": "sha1", "X-Checksum-Sha256": "sha256"} {
		if v := r.Header.Get(header); v != "" && !strings.EqualFold(v, sums[algo]) {
			writeErrors(w, http.StatusConflict, fmt.Sprintf("Checksum policy violation: %s mismatch", algo))
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.repos[repo]; !ok {
		writeErrors(w, http.StatusBadRequest, fmt.Sprintf("Repository %s not found", repo))
		return
	}
	f := s.store(repo, itemPath, data, "aftest-user")

	info := s.fileInfo(r, repo, itemPath, f)
	info["uri"] = s.baseURL(r) + "/" + repo + "/" + itemPath
	delete(info, "lastModified")
	delete(info, "lastUpdated")
	delete(info, "modifiedBy")
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	repo, itemPath := chi.URLParam(r, "repo"), strings.Trim(chi.URLParam(r, "*"), "/")

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.exists(repo, itemPath) || itemPath == "" {
		writeErrors(w, http.StatusNotFound, "Could not locate artifact '"+repo+":"+itemPath+"'.")
		return
	}

	for p := range s.repos[repo] {
		if p == itemPath || strings.HasPrefix(p, itemPath+"/") {
			delete(s.repos[repo], p)
			delete(s.props, repo+"/"+p)
		}
	}
	delete(s.props, repo+"/"+itemPath)

	w.WriteHeader(http.StatusNoContent)
}

// store must be called with s.mu held.
func (s *Server) store(repo, itemPath string, data []byte, user string) *file {
	if s.repos[repo] == nil {
		s.repos[repo] = make(map[string]*file)
		s.created[repo] = s.now().UTC()
	}

	now := s.now().UTC()
	mimeType := mime.TypeByExtension(path.Ext(itemPath))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}

	f := &file{data: slices.Clone(data), mimeType: mimeType, createdBy: user, created: now, modified: now}
	if old, ok := s.repos[repo][itemPath]; ok {
		f.created = old.created
	}
	s.repos[repo][itemPath] = f

	return f
}

// exists must be called with s.mu held.
func (s *Server) exists(repo, itemPath string) bool {
	files, ok := s.repos[repo]
	if !ok {
		return false
	}
	if itemPath == "" {
		return true
	}
	if _, ok := files[itemPath]; ok {
		return true
	}
	for p := range files {
		if strings.HasPrefix(p, itemPath+"/") {
			return true
		}
	}
	return false
}

func (s *Server) fileInfo(r *http.Request, repo, itemPath string, f *file) map[string]any {
	sums := checksums(f.data)
	return map[string]any{
		"repo":              repo,
		"path":              "/" + itemPath,
		"created":           timestamp(f.created),
		"createdBy":         f.createdBy,
		"lastModified":      timestamp(f.modified),
		"modifiedBy":        f.createdBy,
		"lastUpdated":       timestamp(f.modified),
		"downloadUri":       s.baseURL(r) + "/" + repo + "/" + itemPath,
		"mimeType":          f.mimeType,
		"size":              fmt.Sprint(len(f.data)),
		"checksums":         sums,
		"originalChecksums": map[string]string{"sha1": sums["sha1"], "md5": sums["md5"], "sha256": sums["sha256"]},
		"uri":               s.apiURI(r, repo, itemPath),
	}
}

func (s *Server) folderInfo(r *http.Request, repo, itemPath string) map[string]any {
	prefix := ""
	if itemPath != "" {
		prefix = itemPath + "/"
	}

	seen := make(map[string]bool)
	children := []map[string]any{}
	oldest := s.created[repo]
	names := make([]string, 0, len(s.repos[repo]))
	for p := range s.repos[repo] {
		names = append(names, p)
	}
	slices.Sort(names)

	for _, p := range names {
		rest, ok := strings.CutPrefix(p, prefix)
		if !ok {
			continue
		}
		name, _, nested := strings.Cut(rest, "/")
		if seen[name] {
			continue
		}
		seen[name] = true
		children = append(children, map[string]any{"uri": "/" + name, "folder": nested})
	}

	return map[string]any{
		"repo":         repo,
		"path":         "/" + itemPath,
		"created":      timestamp(oldest),
		"lastModified": timestamp(oldest),
		"lastUpdated":  timestamp(oldest),
		"children":     children,
		"uri":          s.apiURI(r, repo, itemPath),
	}
}

func (s *Server) baseURL(r *http.Request) string {
	return "http://" + r.Host + basePath
}

func (s *Server) apiURI(r *http.Request, repo, itemPath string) string {
	uri := s.baseURL(r) + "/api/storage/" + repo
	if itemPath != "" {
		uri += "/" + itemPath
	}
	return uri
}

func checksums(data []byte) map[string]string {
	md5Sum := md5.Sum(data)
	sha1Sum := sha1.Sum(data)
	sha256Sum := sha256.Sum256(data)

	return map[string]string{
		"md5":    hex.EncodeToString(md5Sum[:]),
		"sha1":   hex.EncodeToString(sha1Sum[:]),
		"sha256": hex.EncodeToString(sha256Sum[:]),
	}
}

func timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrors(w http.ResponseWriter, status int, messages ...string) {
	errs := make([]map[string]any, len(messages))
	for i, msg := range messages {
		errs[i] = map[string]any{"status": status, "message": msg}
	}
	writeJSON(w, status, map[string]any{"errors": errs})
}
