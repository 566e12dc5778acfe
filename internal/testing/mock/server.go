package mock

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"scmcicd/internal/config"
	"scmcicd/internal/policy"
)

// ServerConfig configures a Server.
type ServerConfig struct {
	ClientID     string
	ClientSecret string
	TSGID        string

	// RejectToken makes the token endpoint refuse every request.
	RejectToken bool
	// JobPolls is the number of job polls answered with ACT before FIN.
	JobPolls int
	// JobResult is the result_str of finished jobs; defaults to OK.
	JobResult string
	// Containers lists the snippets and devices that exist. While it is
	// empty every folder exists; once set, only listed containers (and
	// containers holding records) do.
	Containers []policy.Container
}

// Server is an httptest server speaking the remote store's REST dialect,
// backed by in-memory stores.
type Server struct {
	config    ServerConfig
	http      *httptest.Server
	Rules     *Store[policy.SecurityRule]
	Addresses *Store[policy.Address]

	mu       sync.Mutex
	requests []string
	commits  []commitCall
	jobs     map[string]int
}

type commitCall struct {
	Folders     []string `json:"folders"`
	Description string   `json:"description"`
}

const accessToken = "mock-access-token"

// NewServer starts a server. Call Close when done.
func NewServer(cfg ServerConfig) *Server {
	if cfg.ClientID == "" {
		cfg.ClientID = "client"
	}
	if cfg.ClientSecret == "" {
		cfg.ClientSecret = "secret"
	}
	if cfg.TSGID == "" {
		cfg.TSGID = "1234567890"
	}
	if cfg.JobResult == "" {
		cfg.JobResult = "OK"
	}

	s := &Server{
		config:    cfg,
		Rules:     NewStore[policy.SecurityRule](),
		Addresses: NewStore[policy.Address](),
		jobs:      make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth2/access_token", s.handleToken)
	mux.Handle("GET /config/security/v1/security-rules", s.authorized(listHandler(s, s.Rules, true)))
	mux.Handle("POST /config/security/v1/security-rules", s.authorized(createHandler(s.Rules, true)))
	mux.Handle("PUT /config/security/v1/security-rules/{id}", s.authorized(updateHandler(s.Rules)))
	mux.Handle("DELETE /config/security/v1/security-rules/{id}", s.authorized(deleteHandler(s.Rules)))
	mux.Handle("GET /config/objects/v1/addresses", s.authorized(listHandler(s, s.Addresses, false)))
	mux.Handle("POST /config/objects/v1/addresses", s.authorized(createHandler(s.Addresses, false)))
	mux.Handle("PUT /config/objects/v1/addresses/{id}", s.authorized(updateHandler(s.Addresses)))
	mux.Handle("DELETE /config/objects/v1/addresses/{id}", s.authorized(deleteHandler(s.Addresses)))
	mux.Handle("POST /config/operations/v1/config-versions/candidate:push", s.authorized(http.HandlerFunc(s.handleCommit)))
	mux.Handle("GET /config/operations/v1/jobs/{id}", s.authorized(http.HandlerFunc(s.handleJob)))

	s.http = httptest.NewServer(mux)
	return s
}

// URL returns the base URL of the server.
func (s *Server) URL() string { return s.http.URL }

// Close shuts the server down.
func (s *Server) Close() { s.http.Close() }

// Settings returns settings pointing a client at the server.
func (s *Server) Settings() config.Settings {
	settings := config.DefaultSettings()
	settings.ClientID = s.config.ClientID
	settings.ClientSecret = s.config.ClientSecret
	settings.TSGID = s.config.TSGID
	settings.APIBaseURL = s.http.URL
	settings.TokenURL = s.http.URL + "/oauth2/access_token"
	settings.RequestsPerSecond = 0
	settings.MaxRetries = 0
	settings.CommitTimeout = 5
	return settings
}

// Requests returns every API request as "METHOD /path", token requests excluded.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Commits returns the folders of every commit request.
func (s *Server) Commits() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var folders [][]string
	for _, c := range s.commits {
		folders = append(folders, c.Folders)
	}
	return folders
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	id, secret, ok := r.BasicAuth()
	if s.config.RejectToken || !ok || id != s.config.ClientID || secret != s.config.ClientSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error":             "invalid_client",
			"error_description": "client authentication failed",
		})
		return
	}
	if err := r.ParseForm(); err != nil || r.Form.Get("scope") != "tsg_id:"+s.config.TSGID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_scope"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": accessToken,
		"token_type":   "bearer",
		"expires_in":   900,
	})
}

func (s *Server) authorized(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+accessToken {
			writeError(w, http.StatusUnauthorized, "Not Authenticated")
			return
		}
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	var call commitCall
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	s.commits = append(s.commits, call)
	jobID := strconv.Itoa(len(s.commits))
	s.jobs[jobID] = 0
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "job_id": jobID, "message": "CommitAndPush job enqueued"})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	polls, ok := s.jobs[id]
	if ok {
		s.jobs[id] = polls + 1
	}
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{"data": []interface{}{}})
		return
	}
	job := map[string]string{"id": id, "status_str": "ACT", "result_str": "PEND"}
	if polls >= s.config.JobPolls {
		job["status_str"] = "FIN"
		job["result_str"] = s.config.JobResult
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": []interface{}{job}})
}

// scopeFromRequest reads the container from the query (list) or the decoded
// location (create) and the rulebase from the position parameter.
func scopeFromRequest(r *http.Request, loc policy.Location, positioned bool) (policy.Scope, error) {
	q := r.URL.Query()
	if loc == (policy.Location{}) {
		loc = policy.Location{Folder: q.Get("folder"), Snippet: q.Get("snippet"), Device: q.Get("device")}
	}
	container, err := loc.Container()
	if err != nil {
		return policy.Scope{}, err
	}
	scope := policy.Scope{Container: container}
	if positioned {
		rulebase, err := policy.ParseRulebase(q.Get("position"))
		if err != nil {
			return policy.Scope{}, err
		}
		scope.Rulebase = rulebase
	}
	return scope, nil
}

func listHandler[T policy.Record[T]](s *Server, store *Store[T], positioned bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope, err := scopeFromRequest(r, policy.Location{}, positioned)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		records, err := store.List(r.Context(), scope)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		// The address list doubles as the container type check: unknown containers 404.
		if len(records) == 0 && !s.knownContainer(scope.Container) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("%s %q does not exist", scope.Container.Type, scope.Container.Name))
			return
		}

		limit, offset := queryInt(r, "limit", len(records)), queryInt(r, "offset", 0)
		page := []T{}
		if offset < len(records) {
			end := offset + limit
			if end > len(records) {
				end = len(records)
			}
			page = records[offset:end]
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data":   page,
			"limit":  limit,
			"offset": offset,
			"total":  len(records),
		})
	})
}

func createHandler[T policy.Record[T]](store *Store[T], positioned bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		record, loc, err := decodeRecord[T](r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		scope, err := scopeFromRequest(r, loc, positioned)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		id, err := store.Create(r.Context(), scope, record)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, record.WithID(id).InScope(scope))
	})
}

func updateHandler[T policy.Record[T]](store *Store[T]) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		scope, _, ok := store.FindByID(id)
		if !ok {
			writeError(w, http.StatusNotFound, "object not found")
			return
		}
		record, _, err := decodeRecord[T](r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := store.Update(r.Context(), scope, id, record); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, record.WithID(id).InScope(scope))
	})
}

func deleteHandler[T policy.Record[T]](store *Store[T]) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		scope, _, ok := store.FindByID(id)
		if !ok {
			writeError(w, http.StatusNotFound, "object not found")
			return
		}
		if err := store.Delete(r.Context(), scope, id); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id})
	})
}

func decodeRecord[T any](r *http.Request) (T, policy.Location, error) {
	var record T
	var loc policy.Location
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return record, loc, err
	}
	if err := json.Unmarshal(raw, &record); err != nil {
		return record, loc, err
	}
	if err := json.Unmarshal(raw, &loc); err != nil {
		return record, loc, err
	}
	return record, loc, nil
}

func (s *Server) knownContainer(c policy.Container) bool {
	scope := policy.Scope{Container: c}
	if len(s.Addresses.Records(scope)) > 0 {
		return true
	}
	for _, rb := range []policy.Rulebase{policy.RulebasePre, policy.RulebasePost} {
		scope.Rulebase = rb
		if len(s.Rules.Records(scope)) > 0 {
			return true
		}
	}
	if len(s.config.Containers) == 0 {
		return c.Type == policy.ContainerFolder
	}
	for _, known := range s.config.Containers {
		if known == c {
			return true
		}
	}
	return false
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func writeStoreError(w http.ResponseWriter, err error) {
	var mockErr *Error
	if errors.As(err, &mockErr) && mockErr.NotFound {
		writeError(w, http.StatusNotFound, mockErr.Message)
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"_errors":     []map[string]string{{"code": "E" + strconv.Itoa(status), "message": message}},
		"_request_id": "mock-request",
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
