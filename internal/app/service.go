package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"scriptum/api/internal/align"
	"scriptum/api/internal/auth"
	"scriptum/api/internal/canon"
	"scriptum/api/internal/config"
	"scriptum/api/internal/diff"
	"scriptum/api/internal/store"
	"scriptum/api/internal/util"
	"scriptum/api/internal/verify"
)

// dataStore is the slice of the version store the service depends on.
type dataStore interface {
	Ping(ctx context.Context) error
	Latest(ctx context.Context, doc string) (*store.Version, error)
	Get(ctx context.Context, doc string, version int) (*store.Version, error)
	Words(ctx context.Context, doc string, version, segment, count int) ([]store.Word, error)
	History(ctx context.Context, doc string) ([]store.VersionMeta, error)
	Edits(ctx context.Context, doc string) ([]store.EditRecord, error)
	Insert(ctx context.Context, p store.InsertParams) (store.InsertResult, error)
	UpdateWordTimings(ctx context.Context, doc string, version int, words []store.Word) error
	AppendTimingOps(ctx context.Context, doc string, version int, blocks []store.TimingBlock) error
	Confirmations(ctx context.Context, doc string, version int) ([]store.Confirmation, error)
	ReplaceConfirmations(ctx context.Context, doc string, version int, baseSHA256 string, items []store.Confirmation) error
	ListDocs(ctx context.Context) ([]string, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByID(ctx context.Context, id string) (store.User, error)
	CreateUser(ctx context.Context, u store.User) error
}

// versionMirror is the archival git mirror each committed version is
// appended to.
type versionMirror interface {
	CommitVersion(doc string, version int, text, author string) (string, error)
	CommitHashes(doc string) (map[int]string, error)
}

// SessionStore holds refresh tokens.
type SessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

// CorrectionsCache is the advisory "doc has corrections" set.
type CorrectionsCache interface {
	Mark(ctx context.Context, doc string) error
	Has(ctx context.Context, doc string) (bool, error)
	Repopulate(ctx context.Context, docs []string) error
}

// AudioResolver turns a document path into a playable audio handle.
type AudioResolver interface {
	ResolveHandle(ctx context.Context, doc string) (string, error)
}

// Session is an authenticated caller.
type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	JTI          string
	ExpiresAt    time.Time
}

// docState tracks the per-document save machine.
type docState int

const (
	stateIdle docState = iota
	statePending
	stateSaving
	stateAligning
)

type docCoordinator struct {
	mu    sync.Mutex
	state docState
}

// Service orchestrates saves: conflict check, store insert, timing
// re-alignment, chain verification, and event publication.
type Service struct {
	cfg      config.Config
	store    dataStore
	mirror   versionMirror
	sessions SessionStore
	cache    CorrectionsCache
	audio    AudioResolver
	bus      *EventBus

	coordMu sync.Mutex
	coords  map[string]*docCoordinator

	// alignWG lets tests wait for background alignment to settle.
	alignWG sync.WaitGroup
}

func New(cfg config.Config, st dataStore, mirror versionMirror, sessions SessionStore, cache CorrectionsCache, audio AudioResolver) *Service {
	return &Service{
		cfg:      cfg,
		store:    st,
		mirror:   mirror,
		sessions: sessions,
		cache:    cache,
		audio:    audio,
		bus:      NewEventBus(),
		coords:   make(map[string]*docCoordinator),
	}
}

// Bus exposes the change-notification bus for observers.
func (s *Service) Bus() *EventBus { return s.bus }

func (s *Service) Ping(ctx context.Context) error { return s.store.Ping(ctx) }

// Bootstrap repopulates advisory caches from the store.
func (s *Service) Bootstrap(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	docs, err := s.store.ListDocs(ctx)
	if err != nil {
		return err
	}
	return s.cache.Repopulate(ctx, docs)
}

// WaitForAlignment blocks until in-flight background alignment is done.
func (s *Service) WaitForAlignment() { s.alignWG.Wait() }

func (s *Service) coordinator(doc string) *docCoordinator {
	s.coordMu.Lock()
	defer s.coordMu.Unlock()
	c, ok := s.coords[doc]
	if !ok {
		c = &docCoordinator{}
		s.coords[doc] = c
	}
	return c
}

var drivePathPattern = regexp.MustCompile(`^[A-Za-z]:[\\/]`)

// validateDocPath rejects unsafe document identifiers.
func validateDocPath(doc string) *DomainError {
	cleaned := strings.TrimSpace(doc)
	if cleaned == "" || strings.ContainsRune(cleaned, 0) {
		return domainError(http.StatusBadRequest, CodeInvalidDocPath, "invalid doc", nil)
	}
	if strings.HasPrefix(cleaned, "/") || strings.HasPrefix(cleaned, `\`) || drivePathPattern.MatchString(cleaned) {
		return domainError(http.StatusBadRequest, CodeInvalidDocPath, "invalid doc", nil)
	}
	for _, part := range strings.FieldsFunc(cleaned, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return domainError(http.StatusBadRequest, CodeInvalidDocPath, "invalid doc", nil)
		}
	}
	return nil
}

// clampNeighbors keeps the alignment neighbor window in [0, 3].
func clampNeighbors(n int) int {
	if n < 0 {
		return 0
	}
	if n > 3 {
		return 3
	}
	return n
}

// --- save ---

// SaveRequest is one save submission from the editor.
type SaveRequest struct {
	Doc                string
	Text               string
	ParentVersion      *int
	ExpectedBaseSHA256 string
	Words              []store.Word
	Segment            *int
	Neighbors          int
	CreatedBy          string
}

// ConflictPayload carries everything the editor's merge dialog needs.
type ConflictPayload struct {
	Reason             string         `json:"reason"`
	Latest             *store.Version `json:"latest,omitempty"`
	Parent             *store.Version `json:"parent,omitempty"`
	DiffParentToLatest []diff.Op      `json:"diff_parent_to_latest,omitempty"`
	DiffParentToClient []diff.Op      `json:"diff_parent_to_client,omitempty"`
}

// SaveStatus tags a save outcome.
type SaveStatus string

const (
	SaveOK       SaveStatus = "ok"
	SaveNoChange SaveStatus = "no_change"
	SaveConflict SaveStatus = "conflict"
)

// SaveResult is the tagged outcome of a save.
type SaveResult struct {
	Status        SaveStatus
	Version       int
	BaseSHA256    string
	TimingWarning string
	Verify        *verify.Result
	Conflict      *ConflictPayload
}

// Save runs the full save pipeline for one document. Saves against the
// same document serialize; alignment runs as a follow-up task that
// does not block the next save.
func (s *Service) Save(ctx context.Context, req SaveRequest) (SaveResult, error) {
	if derr := validateDocPath(req.Doc); derr != nil {
		return SaveResult{}, derr
	}
	coord := s.coordinator(req.Doc)
	coord.mu.Lock()
	coord.state = stateSaving
	defer func() {
		coord.mu.Unlock()
	}()

	text := canon.Canonicalize(req.Text)
	textHash := canon.SHA256Hex(text)

	words := align.Sanitize(req.Words)
	words = align.EnsureWordsMatchText(text, words)

	timingWarning := ""
	if align.HasFake(words) {
		// The textual save proceeds; the poisoned timings do not.
		words = align.StripTimings(words)
		timingWarning = CodeFakeTiming
	}

	var latest *store.Version
	err := store.Retry(ctx, func() error {
		var e error
		latest, e = s.store.Latest(ctx, req.Doc)
		return e
	})
	if err != nil {
		return SaveResult{}, domainError(http.StatusInternalServerError, CodeTransient, "store unavailable", nil)
	}

	// No-op short-circuit: the client re-saved identical content.
	if req.ParentVersion != nil && *req.ParentVersion > 0 && latest != nil &&
		latest.Version == *req.ParentVersion && latest.BaseSHA256 == textHash {
		coord.state = stateIdle
		return SaveResult{Status: SaveNoChange, Version: latest.Version, BaseSHA256: latest.BaseSHA256}, nil
	}

	// Early conflict probe before any write.
	if req.ParentVersion != nil && *req.ParentVersion > 0 && latest != nil && latest.Version != *req.ParentVersion {
		payload := s.conflictPayload(ctx, req.Doc, &store.Conflict{
			Reason: "version_conflict",
			Latest: latest,
		}, *req.ParentVersion, text)
		coord.state = stateIdle
		return SaveResult{Status: SaveConflict, Conflict: payload}, nil
	}

	if latest != nil {
		words = align.CarryOver(latest.Words, words)
	}

	var res store.InsertResult
	err = store.Retry(ctx, func() error {
		var e error
		res, e = s.store.Insert(ctx, store.InsertParams{
			Doc:                req.Doc,
			ParentVersion:      req.ParentVersion,
			ExpectedBaseSHA256: req.ExpectedBaseSHA256,
			Text:               text,
			Words:              words,
			CreatedBy:          req.CreatedBy,
		})
		return e
	})
	if err != nil {
		var conflict *store.Conflict
		if errors.As(err, &conflict) {
			parentVersion := 0
			if req.ParentVersion != nil {
				parentVersion = *req.ParentVersion
			}
			payload := s.conflictPayload(ctx, req.Doc, conflict, parentVersion, text)
			coord.state = stateIdle
			return SaveResult{Status: SaveConflict, Conflict: payload}, nil
		}
		coord.state = stateIdle
		return SaveResult{}, domainError(http.StatusInternalServerError, CodeTransient, "save failed", nil)
	}

	if s.mirror != nil {
		if _, err := s.mirror.CommitVersion(req.Doc, res.Version, text, req.CreatedBy); err != nil {
			log.Printf("[SAVE] mirror commit failed for %s v%d: %v", req.Doc, res.Version, err)
		}
	}
	if s.cache != nil {
		if err := s.cache.Mark(ctx, req.Doc); err != nil {
			log.Printf("[SAVE] corrections cache mark failed for %s: %v", req.Doc, err)
		}
	}
	s.bus.Publish(Event{Kind: VersionChanged, Doc: req.Doc, Version: res.Version})
	log.Printf("[SAVE] %s v%d committed (%d words)", req.Doc, res.Version, len(words))

	// Alignment is a follow-up task; further saves queue behind the
	// coordinator lock, not behind alignment.
	if req.Segment != nil {
		coord.state = stateAligning
		s.spawnAlignment(req.Doc, res.Version, *req.Segment, clampNeighbors(req.Neighbors), words, text)
	} else {
		coord.state = stateIdle
	}

	chain := s.verifyChain(ctx, req.Doc)
	return SaveResult{
		Status:        SaveOK,
		Version:       res.Version,
		BaseSHA256:    res.BaseSHA256,
		TimingWarning: timingWarning,
		Verify:        &chain,
	}, nil
}

// conflictPayload enriches a store conflict with the diffs the merge
// dialog shows: parent→latest and parent→client.
func (s *Service) conflictPayload(ctx context.Context, doc string, c *store.Conflict, parentVersion int, clientText string) *ConflictPayload {
	payload := &ConflictPayload{Reason: c.Reason, Latest: c.Latest, Parent: c.Parent}
	if payload.Parent == nil && parentVersion > 0 {
		if parent, err := s.store.Get(ctx, doc, parentVersion); err == nil {
			payload.Parent = parent
		}
	}
	parentText := ""
	if payload.Parent != nil {
		parentText = canon.Canonicalize(payload.Parent.Text)
	}
	budget := s.diffBudget()
	if payload.Latest != nil {
		payload.DiffParentToLatest = diff.DiffWithBudget(parentText, canon.Canonicalize(payload.Latest.Text), budget)
	}
	payload.DiffParentToClient = diff.DiffWithBudget(parentText, clientText, budget)
	return payload
}

// diffBudget converts the configured soft diff budget, falling back to
// the engine default when unset.
func (s *Service) diffBudget() time.Duration {
	if s.cfg.DiffBudgetMS <= 0 {
		return diff.DefaultBudget
	}
	return time.Duration(s.cfg.DiffBudgetMS) * time.Millisecond
}

// spawnAlignment re-derives timings for the segment window around the
// caret and persists them. Failures keep the pre-alignment timings.
func (s *Service) spawnAlignment(doc string, version, segment, neighbors int, words []store.Word, text string) {
	s.alignWG.Add(1)
	go func() {
		defer s.alignWG.Done()
		defer func() {
			coord := s.coordinator(doc)
			coord.mu.Lock()
			if coord.state == stateAligning {
				coord.state = stateIdle
			}
			coord.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		startSeg := segment - neighbors
		if startSeg < 0 {
			startSeg = 0
		}
		endSeg := segment + neighbors

		before, window, after := align.SegmentWindow(words, startSeg, endSeg)
		if len(window) == 0 {
			return
		}
		res := align.Realign(window, align.ComposeText(window))
		merged := make([]store.Word, 0, len(words))
		merged = append(merged, before...)
		merged = append(merged, res.Words...)
		merged = append(merged, after...)

		if err := align.Validate(merged); err != nil {
			log.Printf("[ALIGN] %s v%d rejected: %v", doc, version, err)
			return
		}
		if align.ComposeText(merged) != text {
			log.Printf("[ALIGN] %s v%d window recomposition mismatch, keeping prior timings", doc, version)
			return
		}
		if err := s.store.UpdateWordTimings(ctx, doc, version, merged); err != nil {
			log.Printf("[ALIGN] %s v%d persist failed: %v", doc, version, err)
			return
		}
		for i := range res.Blocks {
			res.Blocks[i].SegmentStart += startSeg
			res.Blocks[i].SegmentEnd += startSeg
		}
		if err := s.store.AppendTimingOps(ctx, doc, version, res.Blocks); err != nil {
			log.Printf("[ALIGN] %s v%d timing ops append failed: %v", doc, version, err)
		}
		s.bus.Publish(Event{Kind: TokensUpdated, Doc: doc, Version: version})
		s.bus.Publish(Event{Kind: AlignmentFinished, Doc: doc, Version: version})
		log.Printf("[ALIGN] %s v%d window [%d,%d] realigned (%d blocks)", doc, version, startSeg, endSeg, len(res.Blocks))
	}()
}

func (s *Service) verifyChain(ctx context.Context, doc string) verify.Result {
	latest, err := s.store.Latest(ctx, doc)
	if err != nil {
		return verify.Result{Ok: false, Reason: "store-error"}
	}
	if latest == nil {
		return verify.Result{Ok: true, Reason: verify.ReasonNoVersion}
	}
	v1, err := s.store.Get(ctx, doc, 1)
	if err != nil {
		return verify.Result{Ok: false, Reason: "store-error"}
	}
	edits, err := s.store.Edits(ctx, doc)
	if err != nil {
		return verify.Result{Ok: false, Reason: "store-error"}
	}
	return verify.Chain(v1, latest, edits)
}

// VerifyChain replays the document's edit chain and reports the result.
func (s *Service) VerifyChain(ctx context.Context, doc string) (verify.Result, error) {
	if derr := validateDocPath(doc); derr != nil {
		return verify.Result{}, derr
	}
	return s.verifyChain(ctx, doc), nil
}

// --- load / reads ---

// LoadResult is the editor bootstrap payload for one document.
type LoadResult struct {
	Doc           string       `json:"doc"`
	Version       int          `json:"version"`
	BaseSHA256    string       `json:"base_sha256"`
	Text          string       `json:"text"`
	CurrentWords  []store.Word `json:"current_words"`
	BaselineWords []store.Word `json:"baseline_words,omitempty"`
	AudioHandle   string       `json:"audio_handle,omitempty"`
	HasCorrected  bool         `json:"has_corrections"`
}

// Load returns the latest version, its words, the v1 baseline words,
// and a playable audio handle.
func (s *Service) Load(ctx context.Context, doc string) (*LoadResult, error) {
	if derr := validateDocPath(doc); derr != nil {
		return nil, derr
	}
	latest, err := s.store.Latest(ctx, doc)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, domainError(http.StatusNotFound, CodeNotFound, "no transcript", nil)
	}
	out := &LoadResult{
		Doc:          doc,
		Version:      latest.Version,
		BaseSHA256:   latest.BaseSHA256,
		Text:         latest.Text,
		CurrentWords: latest.Words,
	}
	if latest.Version > 1 {
		if v1, err := s.store.Get(ctx, doc, 1); err == nil && v1 != nil {
			out.BaselineWords = v1.Words
		}
	}
	if s.audio != nil {
		if handle, err := s.audio.ResolveHandle(ctx, doc); err == nil {
			out.AudioHandle = handle
		}
	}
	if s.cache != nil {
		if has, err := s.cache.Has(ctx, doc); err == nil {
			out.HasCorrected = has
		}
	}
	return out, nil
}

func (s *Service) Latest(ctx context.Context, doc string) (*store.Version, error) {
	if derr := validateDocPath(doc); derr != nil {
		return nil, derr
	}
	return s.store.Latest(ctx, doc)
}

func (s *Service) GetVersion(ctx context.Context, doc string, version int) (*store.Version, error) {
	if derr := validateDocPath(doc); derr != nil {
		return nil, derr
	}
	v, err := s.store.Get(ctx, doc, version)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, domainError(http.StatusNotFound, CodeNotFound, "version not found", nil)
	}
	return v, nil
}

func (s *Service) Words(ctx context.Context, doc string, version, segment, count int) ([]store.Word, error) {
	if derr := validateDocPath(doc); derr != nil {
		return nil, derr
	}
	words, err := s.store.Words(ctx, doc, version, segment, count)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainError(http.StatusNotFound, CodeNotFound, "version not found", nil)
	}
	return words, err
}

// History lists version lineage, enriched with mirror commit hashes
// when the mirror has them.
func (s *Service) History(ctx context.Context, doc string) ([]store.VersionMeta, error) {
	if derr := validateDocPath(doc); derr != nil {
		return nil, derr
	}
	items, err := s.store.History(ctx, doc)
	if err != nil {
		return nil, err
	}
	if s.mirror != nil && len(items) > 0 {
		if hashes, err := s.mirror.CommitHashes(doc); err == nil {
			for i := range items {
				items[i].CommitHash = hashes[items[i].Version]
			}
		}
	}
	return items, nil
}

func (s *Service) Edits(ctx context.Context, doc string) ([]store.EditRecord, error) {
	if derr := validateDocPath(doc); derr != nil {
		return nil, derr
	}
	return s.store.Edits(ctx, doc)
}

// --- merge ---

// Merge composes the latest writer's edits with the client's edits
// over their common parent. Overlapping edits surface as unmergeable.
func (s *Service) Merge(ctx context.Context, doc string, parentVersion int, clientText string) (string, error) {
	if derr := validateDocPath(doc); derr != nil {
		return "", derr
	}
	parent, err := s.store.Get(ctx, doc, parentVersion)
	if err != nil {
		return "", err
	}
	if parent == nil {
		return "", domainError(http.StatusNotFound, CodeNotFound, "parent version not found", nil)
	}
	latest, err := s.store.Latest(ctx, doc)
	if err != nil {
		return "", err
	}
	if latest == nil {
		return "", domainError(http.StatusNotFound, CodeNotFound, "no transcript", nil)
	}
	merged, err := diff.Merge(
		canon.Canonicalize(parent.Text),
		canon.Canonicalize(latest.Text),
		canon.Canonicalize(clientText),
	)
	if errors.Is(err, diff.ErrUnmergeable) {
		return "", domainError(http.StatusConflict, CodeUnmergeable, "edits overlap", nil)
	}
	if err != nil {
		return "", err
	}
	return merged, nil
}

// --- confirmations ---

// contextRunes is how much anchoring context is kept on each side of a
// confirmed range.
const contextRunes = 16

// ConfirmationRange is one reviewer-asserted character range.
type ConfirmationRange struct {
	Start int `json:"start_offset"`
	End   int `json:"end_offset"`
}

// SaveConfirmations anchors ranges to (doc, version, hash). The client
// must prove it is on the stored version by sending its hash.
func (s *Service) SaveConfirmations(ctx context.Context, doc string, version int, baseSHA256, fullText string, ranges []ConfirmationRange) (int, error) {
	if derr := validateDocPath(doc); derr != nil {
		return 0, derr
	}
	if baseSHA256 == "" {
		return 0, domainError(http.StatusBadRequest, CodeInvalidBody, "missing base_sha256", nil)
	}
	row, err := s.store.Get(ctx, doc, version)
	if err != nil {
		return 0, err
	}
	if row == nil {
		return 0, domainError(http.StatusNotFound, CodeNotFound, "version not found", nil)
	}
	if row.BaseSHA256 != baseSHA256 {
		return 0, domainError(http.StatusConflict, CodeHashMismatch, "confirmations base_sha256 mismatch", map[string]string{
			"expected": row.BaseSHA256,
			"got":      baseSHA256,
		})
	}

	text := []rune(canon.Canonicalize(fullText))
	items := make([]store.Confirmation, 0, len(ranges))
	for _, r := range ranges {
		start, end := r.Start, r.End
		if start < 0 {
			start = 0
		}
		if end < start {
			end = start
		}
		if end > len(text) {
			end = len(text)
		}
		if start > len(text) {
			start = len(text)
		}
		prefixFrom := start - contextRunes
		if prefixFrom < 0 {
			prefixFrom = 0
		}
		suffixTo := end + contextRunes
		if suffixTo > len(text) {
			suffixTo = len(text)
		}
		items = append(items, store.Confirmation{
			StartOffset: r.Start,
			EndOffset:   r.End,
			Prefix:      string(text[prefixFrom:start]),
			Exact:       string(text[start:end]),
			Suffix:      string(text[end:suffixTo]),
		})
	}
	if err := s.store.ReplaceConfirmations(ctx, doc, version, row.BaseSHA256, items); err != nil {
		return 0, err
	}
	s.bus.Publish(Event{Kind: ConfirmationsChanged, Doc: doc, Version: version})
	return len(items), nil
}

func (s *Service) Confirmations(ctx context.Context, doc string, version int) ([]store.Confirmation, error) {
	if derr := validateDocPath(doc); derr != nil {
		return nil, derr
	}
	return s.store.Confirmations(ctx, doc, version)
}

// --- audio ---

func (s *Service) AudioHandle(ctx context.Context, doc string) (string, error) {
	if derr := validateDocPath(doc); derr != nil {
		return "", derr
	}
	if s.audio == nil {
		return "", domainError(http.StatusNotFound, CodeNotFound, "audio store not configured", nil)
	}
	return s.audio.ResolveHandle(ctx, doc)
}

// --- sessions ---

// SessionFromToken authenticates a bearer token.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, CodeUnauthorized, "invalid session", nil)
	}
	return Session{
		Token:     token,
		UserID:    claims.Sub,
		UserName:  claims.Name,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

// IssueSession mints an access token plus a refresh token for user.
func (s *Service) IssueSession(ctx context.Context, user store.User) (Session, error) {
	exp := time.Now().Add(s.cfg.AccessTTL)
	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		JTI:  util.NewID("jti"),
		Exp:  exp.Unix(),
	})
	if err != nil {
		return Session{}, err
	}
	sess := Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		ExpiresAt: exp,
	}
	if s.sessions != nil {
		refresh := util.NewID("")
		if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, time.Now().Add(s.cfg.RefreshTTL)); err != nil {
			return Session{}, err
		}
		sess.RefreshToken = refresh
	}
	return sess, nil
}

// RefreshSession rotates an access token from a refresh token.
func (s *Service) RefreshSession(ctx context.Context, refreshToken string) (Session, error) {
	if s.sessions == nil {
		return Session{}, domainError(http.StatusUnauthorized, CodeUnauthorized, "refresh disabled", nil)
	}
	user, err := s.sessions.LookupRefreshSession(ctx, auth.HashToken(refreshToken))
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, CodeUnauthorized, "invalid refresh token", nil)
	}
	full, err := s.store.GetUserByID(ctx, user.ID)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, CodeUnauthorized, "unknown user", nil)
	}
	return s.IssueSession(ctx, full)
}

// SignOut revokes a refresh token.
func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	if s.sessions == nil || refreshToken == "" {
		return nil
	}
	return s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
}
