package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"scriptum/api/internal/auth"
	"scriptum/api/internal/authpw"
	"scriptum/api/internal/export"
	"scriptum/api/internal/store"
)

type HTTPServer struct {
	service    *Service
	authpw     *authpw.Service
	exporter   *export.Service
	corsOrigin string
}

func NewHTTPServer(service *Service, authSvc *authpw.Service, exporter *export.Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{
		service:    service,
		authpw:     authSvc,
		exporter:   exporter,
		corsOrigin: corsOrigin,
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}
		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{"status": "error", "error": err.Error()}
		}
		writeJSON(w, statusCode, map[string]any{"ok": status == "ready", "status": status, "checks": checks})
		return
	}

	// Auth routes (no session required)
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signup" {
		s.handleAuthSignUp(w, r)
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signin" {
		s.handleAuthSignIn(w, r)
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/refresh" {
		s.handleAuthRefresh(w, r)
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signout" {
		s.handleAuthSignOut(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		session, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "userName": session.UserName, "userId": session.UserID})
		return
	}

	// Transcript routes
	if strings.HasPrefix(r.URL.Path, "/api/transcripts/") {
		s.handleTranscripts(w, r)
		return
	}

	writeError(w, http.StatusNotFound, CodeNotFound, "Not found", nil)
}

func (s *HTTPServer) handleTranscripts(w http.ResponseWriter, r *http.Request) {
	op := strings.TrimPrefix(r.URL.Path, "/api/transcripts/")
	switch {
	case r.Method == http.MethodGet && op == "load":
		s.handleLoad(w, r)
	case r.Method == http.MethodGet && op == "latest":
		s.handleLatest(w, r)
	case r.Method == http.MethodGet && op == "get":
		s.handleGet(w, r)
	case r.Method == http.MethodGet && op == "words":
		s.handleWords(w, r)
	case r.Method == http.MethodGet && op == "history":
		s.handleHistory(w, r)
	case r.Method == http.MethodGet && op == "edits":
		s.handleEdits(w, r)
	case r.Method == http.MethodGet && op == "verify":
		s.handleVerify(w, r)
	case r.Method == http.MethodPost && op == "save":
		s.handleSave(w, r)
	case r.Method == http.MethodPost && op == "merge":
		s.handleMerge(w, r)
	case r.Method == http.MethodGet && op == "confirmations":
		s.handleConfirmationsList(w, r)
	case r.Method == http.MethodPost && op == "confirmations/save":
		s.handleConfirmationsSave(w, r)
	case r.Method == http.MethodGet && op == "export":
		s.handleExport(w, r)
	case r.Method == http.MethodGet && op == "audio":
		s.handleAudio(w, r)
	default:
		writeError(w, http.StatusNotFound, CodeNotFound, "Not found", nil)
	}
}

// sessionOrFail authenticates the request for mutating endpoints.
func (s *HTTPServer) sessionOrFail(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "Missing bearer token", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) handleLoad(w http.ResponseWriter, r *http.Request) {
	doc := strings.TrimSpace(r.URL.Query().Get("doc"))
	if doc == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidBody, "missing ?doc=", nil)
		return
	}
	out, err := s.service.Load(r.Context(), doc)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *HTTPServer) handleLatest(w http.ResponseWriter, r *http.Request) {
	doc := strings.TrimSpace(r.URL.Query().Get("doc"))
	if doc == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidBody, "missing ?doc=", nil)
		return
	}
	row, err := s.service.Latest(r.Context(), doc)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	if row == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *HTTPServer) handleGet(w http.ResponseWriter, r *http.Request) {
	doc := strings.TrimSpace(r.URL.Query().Get("doc"))
	version, ok := intParam(r, "version")
	if doc == "" || !ok {
		writeError(w, http.StatusBadRequest, CodeInvalidBody, "missing ?doc= and/or ?version=", nil)
		return
	}
	row, err := s.service.GetVersion(r.Context(), doc, version)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *HTTPServer) handleWords(w http.ResponseWriter, r *http.Request) {
	doc := strings.TrimSpace(r.URL.Query().Get("doc"))
	version, ok := intParam(r, "version")
	if doc == "" || !ok {
		writeError(w, http.StatusBadRequest, CodeInvalidBody, "missing ?doc= and/or ?version=", nil)
		return
	}
	segment := -1
	count := 0
	if v, ok := intParam(r, "segment"); ok {
		segment = v
	}
	if v, ok := intParam(r, "count"); ok {
		count = v
	}
	words, err := s.service.Words(r.Context(), doc, version, segment, count)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, words)
}

func (s *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	doc := strings.TrimSpace(r.URL.Query().Get("doc"))
	if doc == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidBody, "missing ?doc=", nil)
		return
	}
	items, err := s.service.History(r.Context(), doc)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *HTTPServer) handleEdits(w http.ResponseWriter, r *http.Request) {
	doc := strings.TrimSpace(r.URL.Query().Get("doc"))
	if doc == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidBody, "missing ?doc=", nil)
		return
	}
	items, err := s.service.Edits(r.Context(), doc)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *HTTPServer) handleVerify(w http.ResponseWriter, r *http.Request) {
	doc := strings.TrimSpace(r.URL.Query().Get("doc"))
	if doc == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidBody, "missing ?doc=", nil)
		return
	}
	res, err := s.service.VerifyChain(r.Context(), doc)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleSave(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessionOrFail(w, r)
	if !ok {
		return
	}
	var body struct {
		Doc                string       `json:"doc"`
		ParentVersion      *int         `json:"parentVersion"`
		ExpectedBaseSHA256 string       `json:"expected_base_sha256"`
		Text               string       `json:"text"`
		Words              []store.Word `json:"words"`
		Segment            *int         `json:"segment"`
		Neighbors          *int         `json:"neighbors"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidBody, err.Error(), nil)
		return
	}
	if strings.TrimSpace(body.Doc) == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidBody, "missing doc", nil)
		return
	}

	neighbors := s.service.cfg.AlignNeighbors
	if body.Neighbors != nil {
		neighbors = *body.Neighbors
	}
	result, err := s.service.Save(r.Context(), SaveRequest{
		Doc:                strings.TrimSpace(body.Doc),
		Text:               body.Text,
		ParentVersion:      body.ParentVersion,
		ExpectedBaseSHA256: strings.TrimSpace(body.ExpectedBaseSHA256),
		Words:              body.Words,
		Segment:            body.Segment,
		Neighbors:          neighbors,
		CreatedBy:          session.UserName,
	})
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}

	switch result.Status {
	case SaveConflict:
		writeJSON(w, http.StatusConflict, result.Conflict)
	case SaveNoChange:
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      string(SaveNoChange),
			"version":     result.Version,
			"base_sha256": result.BaseSHA256,
		})
	default:
		payload := map[string]any{
			"status":      string(SaveOK),
			"version":     result.Version,
			"base_sha256": result.BaseSHA256,
			"verify":      result.Verify,
		}
		if result.TimingWarning != "" {
			payload["timing"] = result.TimingWarning
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

func (s *HTTPServer) handleMerge(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessionOrFail(w, r); !ok {
		return
	}
	var body struct {
		Doc           string `json:"doc"`
		ParentVersion int    `json:"parentVersion"`
		Text          string `json:"text"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidBody, err.Error(), nil)
		return
	}
	if strings.TrimSpace(body.Doc) == "" || body.ParentVersion < 1 {
		writeError(w, http.StatusBadRequest, CodeInvalidBody, "missing doc/parentVersion", nil)
		return
	}
	merged, err := s.service.Merge(r.Context(), strings.TrimSpace(body.Doc), body.ParentVersion, body.Text)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"merged_text": merged})
}

func (s *HTTPServer) handleConfirmationsList(w http.ResponseWriter, r *http.Request) {
	doc := strings.TrimSpace(r.URL.Query().Get("doc"))
	version, ok := intParam(r, "version")
	if doc == "" || !ok {
		writeError(w, http.StatusBadRequest, CodeInvalidBody, "missing ?doc= and/or ?version=", nil)
		return
	}
	items, err := s.service.Confirmations(r.Context(), doc, version)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *HTTPServer) handleConfirmationsSave(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessionOrFail(w, r); !ok {
		return
	}
	var body struct {
		Doc        string              `json:"doc"`
		Version    int                 `json:"version"`
		BaseSHA256 string              `json:"base_sha256"`
		FullText   string              `json:"full_text"`
		Ranges     []ConfirmationRange `json:"ranges"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidBody, err.Error(), nil)
		return
	}
	if strings.TrimSpace(body.Doc) == "" || body.Version < 1 {
		writeError(w, http.StatusBadRequest, CodeInvalidBody, "missing doc/version", nil)
		return
	}
	count, err := s.service.SaveConfirmations(r.Context(), strings.TrimSpace(body.Doc), body.Version,
		strings.TrimSpace(body.BaseSHA256), body.FullText, body.Ranges)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": count})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	doc := strings.TrimSpace(r.URL.Query().Get("doc"))
	version, ok := intParam(r, "version")
	if doc == "" || !ok {
		writeError(w, http.StatusBadRequest, CodeInvalidBody, "missing ?doc= and/or ?version=", nil)
		return
	}
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "csv"
	}
	row, err := s.service.GetVersion(r.Context(), doc, version)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	result, err := s.exporter.Export(row, format)
	if err != nil {
		if errors.Is(err, export.ErrPDFDependencyMissing) {
			writeError(w, http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF renderer not available", nil)
			return
		}
		writeError(w, http.StatusBadRequest, CodeInvalidBody, err.Error(), nil)
		return
	}
	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (s *HTTPServer) handleAudio(w http.ResponseWriter, r *http.Request) {
	doc := strings.TrimSpace(r.URL.Query().Get("doc"))
	if doc == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidBody, "missing ?doc=", nil)
		return
	}
	handle, err := s.service.AudioHandle(r.Context(), doc)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"audio_handle": handle})
}

// Auth handlers

func (s *HTTPServer) handleAuthSignUp(w http.ResponseWriter, r *http.Request) {
	if s.authpw == nil {
		writeError(w, http.StatusServiceUnavailable, "AUTH_UNAVAILABLE", "Authentication not configured", nil)
		return
	}
	var body struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidBody, err.Error(), nil)
		return
	}
	user, err := s.authpw.SignUp(r.Context(), body.Email, body.Password, body.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, authpw.ErrEmailTaken):
			writeError(w, http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil)
		case errors.Is(err, authpw.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, "WEAK_PASSWORD", "Password too short", nil)
		default:
			writeError(w, http.StatusBadRequest, "SIGNUP_FAILED", "Sign-up failed", nil)
		}
		return
	}
	session, err := s.service.IssueSession(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SIGNUP_FAILED", "Session issue failed", nil)
		return
	}
	writeSession(w, session)
}

func (s *HTTPServer) handleAuthSignIn(w http.ResponseWriter, r *http.Request) {
	if s.authpw == nil {
		writeError(w, http.StatusServiceUnavailable, "AUTH_UNAVAILABLE", "Authentication not configured", nil)
		return
	}
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidBody, err.Error(), nil)
		return
	}
	user, err := s.authpw.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "Invalid credentials", nil)
		return
	}
	session, err := s.service.IssueSession(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SIGNIN_FAILED", "Session issue failed", nil)
		return
	}
	writeSession(w, session)
}

func (s *HTTPServer) handleAuthRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidBody, err.Error(), nil)
		return
	}
	session, err := s.service.RefreshSession(r.Context(), strings.TrimSpace(body.RefreshToken))
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeSession(w, session)
}

func (s *HTTPServer) handleAuthSignOut(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidBody, err.Error(), nil)
		return
	}
	if err := s.service.SignOut(r.Context(), strings.TrimSpace(body.RefreshToken)); err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func writeSession(w http.ResponseWriter, session Session) {
	writeJSON(w, http.StatusOK, map[string]any{
		"token":        session.Token,
		"refreshToken": session.RefreshToken,
		"userName":     session.UserName,
		"userId":       session.UserID,
		"expiresAt":    session.ExpiresAt.Unix(),
	})
}

// Middleware and helpers

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func intParam(r *http.Request, name string) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, CodeUnauthorized, "Unauthorized", nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound, CodeNotFound, "Not found", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
