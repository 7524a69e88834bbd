// Package webhdfstest provides an in-memory WebHDFS namenode for tests and
// local development. It implements the subset of operations the replication
// client uses: GETFILESTATUS, MKDIRS, CREATE (two-step), LISTSTATUS and
// DELETE. The server acts as its own datanode: CREATE redirects back to
// itself with data=true.
package webhdfstest

import (
	"encoding/json"
	"io"
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
)

const prefix = "/webhdfs/v1"

// File is a stored upload.
type File struct {
	Data        []byte
	Replication int
	User        string
}

// Server is an http.Handler holding a namespace in memory.
type Server struct {
	mu    sync.RWMutex
	dirs  map[string]bool
	files map[string]File
	ops   []string
	fail  map[string]int

	// JSONLocation makes CREATE answer 200 with a JSON Location body
	// instead of a 307 redirect, as some gateways do.
	JSONLocation bool
}

// New returns an empty namespace containing only "/".
func New() *Server {
	return &Server{
		dirs:  map[string]bool{"/": true},
		files: map[string]File{},
		fail:  map[string]int{},
	}
}

// FailOp makes every request for op answer with status and a
// RemoteException body. A status of 0 clears the failure.
func (s *Server) FailOp(op string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.fail, op)
		return
	}
	s.fail[op] = status
}

// File returns the upload stored at p.
func (s *Server) File(p string) (File, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[path.Clean(p)]
	return f, ok
}

// Paths lists every stored file, sorted.
func (s *Server) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.files))
	for p := range s.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Ops returns the op of every request received, in order. A CREATE shows
// up twice: once for the namenode step and once as "CREATE:data".
func (s *Server) Ops() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.ops...)
}

// PutFile seeds a file directly.
func (s *Server) PutFile(p string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p = path.Clean(p)
	s.mkdirAll(path.Dir(p))
	s.files[p] = File{Data: append([]byte(nil), data...), Replication: 1}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, prefix) {
		remoteError(w, http.StatusNotFound, "IllegalArgumentException", "not a webhdfs path")
		return
	}
	p := path.Clean("/" + strings.TrimPrefix(r.URL.Path, prefix))
	q := r.URL.Query()
	op := strings.ToUpper(q.Get("op"))
	data := q.Get("data") == "true"

	s.mu.Lock()
	if data {
		s.ops = append(s.ops, op+":data")
	} else {
		s.ops = append(s.ops, op)
	}
	status, failing := s.fail[op]
	s.mu.Unlock()
	if failing && !data {
		remoteError(w, status, "IOException", "injected failure")
		return
	}

	switch {
	case op == "GETFILESTATUS" && r.Method == http.MethodGet:
		s.getFileStatus(w, p)
	case op == "LISTSTATUS" && r.Method == http.MethodGet:
		s.listStatus(w, p)
	case op == "MKDIRS" && r.Method == http.MethodPut:
		s.mu.Lock()
		s.mkdirAll(p)
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]bool{"boolean": true})
	case op == "CREATE" && r.Method == http.MethodPut && !data:
		s.redirectCreate(w, r)
	case op == "CREATE" && r.Method == http.MethodPut:
		s.create(w, r, p)
	case op == "DELETE" && r.Method == http.MethodDelete:
		s.delete(w, p, q.Get("recursive") == "true")
	default:
		remoteError(w, http.StatusBadRequest, "IllegalArgumentException", "unsupported op "+op+" for "+r.Method)
	}
}

func (s *Server) getFileStatus(w http.ResponseWriter, p string) {
	s.mu.RLock()
	st, ok := s.status(p)
	s.mu.RUnlock()
	if !ok {
		remoteError(w, http.StatusNotFound, "FileNotFoundException", "File does not exist: "+p)
		return
	}
	st.PathSuffix = ""
	writeJSON(w, http.StatusOK, map[string]any{"FileStatus": st})
}

func (s *Server) listStatus(w http.ResponseWriter, p string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if f, ok := s.files[p]; ok {
		st := fileStatus{Type: "FILE", Length: len(f.Data), Replication: f.Replication}
		writeStatuses(w, []fileStatus{st})
		return
	}
	if !s.dirs[p] {
		remoteError(w, http.StatusNotFound, "FileNotFoundException", "File "+p+" does not exist.")
		return
	}

	var out []fileStatus
	for name := range s.children(p) {
		st, _ := s.status(path.Join(p, name))
		st.PathSuffix = name
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PathSuffix < out[j].PathSuffix })
	writeStatuses(w, out)
}

func (s *Server) redirectCreate(w http.ResponseWriter, r *http.Request) {
	loc := *r.URL
	q := loc.Query()
	q.Set("data", "true")
	loc.RawQuery = q.Encode()
	target := loc.RequestURI()

	if s.JSONLocation {
		writeJSON(w, http.StatusOK, map[string]string{"Location": target})
		return
	}
	w.Header().Set("Location", target)
	w.WriteHeader(http.StatusTemporaryRedirect)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request, p string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		remoteError(w, http.StatusBadRequest, "IOException", err.Error())
		return
	}
	q := r.URL.Query()
	repl, _ := strconv.Atoi(q.Get("replication"))
	if repl <= 0 {
		repl = 3
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirs[p] {
		remoteError(w, http.StatusForbidden, "FileAlreadyExistsException", p+" is a directory")
		return
	}
	if _, exists := s.files[p]; exists && q.Get("overwrite") != "true" {
		remoteError(w, http.StatusForbidden, "FileAlreadyExistsException", p+" already exists")
		return
	}
	s.mkdirAll(path.Dir(p))
	s.files[p] = File{Data: body, Replication: repl, User: q.Get("user.name")}
	w.Header().Set("Location", "hdfs://"+r.Host+p)
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) delete(w http.ResponseWriter, p string, recursive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[p]; ok {
		delete(s.files, p)
		writeJSON(w, http.StatusOK, map[string]bool{"boolean": true})
		return
	}
	if !s.dirs[p] || p == "/" {
		writeJSON(w, http.StatusOK, map[string]bool{"boolean": false})
		return
	}
	if len(s.children(p)) > 0 && !recursive {
		remoteError(w, http.StatusForbidden, "PathIsNotEmptyDirectoryException", p+" is non empty")
		return
	}
	under := p + "/"
	for f := range s.files {
		if strings.HasPrefix(f, under) {
			delete(s.files, f)
		}
	}
	for d := range s.dirs {
		if d == p || strings.HasPrefix(d, under) {
			delete(s.dirs, d)
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"boolean": true})
}

type fileStatus struct {
	PathSuffix  string `json:"pathSuffix"`
	Type        string `json:"type"`
	Length      int    `json:"length"`
	Replication int    `json:"replication"`
}

// status must be called with mu held.
func (s *Server) status(p string) (fileStatus, bool) {
	if f, ok := s.files[p]; ok {
		return fileStatus{PathSuffix: path.Base(p), Type: "FILE", Length: len(f.Data), Replication: f.Replication}, true
	}
	if s.dirs[p] {
		return fileStatus{PathSuffix: path.Base(p), Type: "DIRECTORY"}, true
	}
	return fileStatus{}, false
}

// children must be called with mu held.
func (s *Server) children(dir string) map[string]bool {
	out := map[string]bool{}
	for f := range s.files {
		if path.Dir(f) == dir {
			out[path.Base(f)] = true
		}
	}
	for d := range s.dirs {
		if d != dir && path.Dir(d) == dir {
			out[path.Base(d)] = true
		}
	}
	return out
}

// mkdirAll must be called with mu held.
func (s *Server) mkdirAll(p string) {
	for p != "/" && p != "." {
		s.dirs[p] = true
		p = path.Dir(p)
	}
}

func writeStatuses(w http.ResponseWriter, sts []fileStatus) {
	if sts == nil {
		sts = []fileStatus{}
	}
	var body struct {
		FileStatuses struct {
			FileStatus []fileStatus `json:"FileStatus"`
		} `json:"FileStatuses"`
	}
	body.FileStatuses.FileStatus = sts
	writeJSON(w, http.StatusOK, body)
}

func remoteError(w http.ResponseWriter, status int, exception, msg string) {
	writeJSON(w, status, map[string]any{
		"RemoteException": map[string]string{
			"exception":     exception,
			"javaClassName": "org.apache.hadoop." + exception,
			"message":       msg,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
