package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"scriptum/api/internal/canon"
	"scriptum/api/internal/diff"
)

// DefaultSegmentChunk is how many segments a paged words read returns
// when the caller gives a segment but no count.
const DefaultSegmentChunk = 50

// minReadDuration is the floor applied when repairing zero or missing
// end times on read.
const minReadDuration = 0.20

var (
	// ErrNotFound is returned when a document or version does not exist.
	ErrNotFound = errors.New("not found")
)

// Conflict rejects an insert whose parent expectation no longer holds.
// Latest is populated whenever the document has a version (it is nil
// for invalid_parent_for_first); Parent is the version the client
// edited from, when it still exists.
type Conflict struct {
	Reason string
	Latest *Version
	Parent *Version
}

func (c *Conflict) Error() string {
	return fmt.Sprintf("save conflict: %s", c.Reason)
}

// InsertParams carries one prospective version into Insert.
type InsertParams struct {
	Doc                string
	ParentVersion      *int
	ExpectedBaseSHA256 string
	Text               string
	Words              []Word
	TimingOps          []TimingBlock
	CreatedBy          string
}

// InsertResult reports the committed child version.
type InsertResult struct {
	Version    int    `json:"version"`
	BaseSHA256 string `json:"base_sha256"`
}

// PostgresStore owns all persistent transcript state.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB { return s.db }

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Latest returns the newest version of doc, or nil when none exists.
func (s *PostgresStore) Latest(ctx context.Context, doc string) (*Version, error) {
	return s.scanVersion(s.db.QueryRowContext(ctx, `
		SELECT file_path, version, base_sha256, text, words, created_by, created_at
		FROM transcripts
		WHERE file_path=$1
		ORDER BY version DESC
		LIMIT 1
	`, doc))
}

// Get returns one version of doc, or nil when it does not exist.
func (s *PostgresStore) Get(ctx context.Context, doc string, version int) (*Version, error) {
	return s.scanVersion(s.db.QueryRowContext(ctx, `
		SELECT file_path, version, base_sha256, text, words, created_by, created_at
		FROM transcripts
		WHERE file_path=$1 AND version=$2
	`, doc, version))
}

func (s *PostgresStore) scanVersion(row *sql.Row) (*Version, error) {
	var v Version
	var wordsJSON []byte
	err := row.Scan(&v.Doc, &v.Version, &v.BaseSHA256, &v.Text, &wordsJSON, &v.CreatedBy, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan version: %w", err)
	}
	if len(wordsJSON) > 0 {
		if err := json.Unmarshal(wordsJSON, &v.Words); err != nil {
			return nil, fmt.Errorf("decode words: %w", err)
		}
	}
	return &v, nil
}

// Insert commits one new version together with its edit record, under
// a per-document advisory lock. The parent expectation is checked
// inside the transaction, so exactly one of two concurrent inserts
// against the same parent succeeds.
func (s *PostgresStore) Insert(ctx context.Context, p InsertParams) (InsertResult, error) {
	text := canon.Canonicalize(p.Text)
	hash := canon.SHA256Hex(text)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return InsertResult{}, fmt.Errorf("begin insert tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, p.Doc); err != nil {
		return InsertResult{}, fmt.Errorf("acquire doc lock: %w", err)
	}

	latest, err := s.latestTx(ctx, tx, p.Doc)
	if err != nil {
		return InsertResult{}, err
	}

	if conflict := s.checkParent(ctx, p, latest); conflict != nil {
		return InsertResult{}, conflict
	}

	child := 1
	if latest != nil {
		child = latest.Version + 1
	}

	wordsJSON, err := json.Marshal(p.Words)
	if err != nil {
		return InsertResult{}, fmt.Errorf("encode words: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transcripts (file_path, version, base_sha256, text, words, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.Doc, child, hash, text, wordsJSON, p.CreatedBy); err != nil {
		return InsertResult{}, fmt.Errorf("insert version: %w", err)
	}

	if err := s.insertEdits(ctx, tx, p, latest, child, text); err != nil {
		return InsertResult{}, err
	}

	if err := s.populateWords(ctx, tx, p.Doc, child, p.Words); err != nil {
		return InsertResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return InsertResult{}, fmt.Errorf("commit insert: %w", err)
	}
	return InsertResult{Version: child, BaseSHA256: hash}, nil
}

// checkParent gates concurrent saves: first saves need no parent, all
// later saves must name the current latest and its hash.
func (s *PostgresStore) checkParent(ctx context.Context, p InsertParams, latest *Version) *Conflict {
	if latest == nil {
		if p.ParentVersion != nil && *p.ParentVersion != 0 {
			return &Conflict{Reason: "invalid_parent_for_first"}
		}
		return nil
	}
	if p.ParentVersion == nil {
		return &Conflict{Reason: "missing_parent", Latest: latest}
	}
	parent, err := s.Get(ctx, p.Doc, *p.ParentVersion)
	if err != nil {
		parent = nil
	}
	if p.ExpectedBaseSHA256 == "" {
		return &Conflict{Reason: "hash_missing", Latest: latest, Parent: parent}
	}
	if *p.ParentVersion != latest.Version {
		return &Conflict{Reason: "version_conflict", Latest: latest, Parent: parent}
	}
	if p.ExpectedBaseSHA256 != canon.SHA256Hex(canon.Canonicalize(latest.Text)) {
		return &Conflict{Reason: "hash_conflict", Latest: latest, Parent: parent}
	}
	return nil
}

// insertEdits writes the parent→child edit record and, past v1, the
// origin 1→child record kept for fast replay.
func (s *PostgresStore) insertEdits(ctx context.Context, tx *sql.Tx, p InsertParams, latest *Version, child int, text string) error {
	if latest == nil {
		return nil
	}

	parentOps, err := json.Marshal(diff.Diff(canon.Canonicalize(latest.Text), text))
	if err != nil {
		return fmt.Errorf("encode text ops: %w", err)
	}
	var timingJSON any
	if len(p.TimingOps) > 0 {
		raw, err := json.Marshal(p.TimingOps)
		if err != nil {
			return fmt.Errorf("encode timing ops: %w", err)
		}
		timingJSON = raw
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transcript_edits (file_path, parent_version, child_version, text_ops, timing_ops)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (file_path, parent_version, child_version)
		DO UPDATE SET text_ops=EXCLUDED.text_ops, timing_ops=EXCLUDED.timing_ops
	`, p.Doc, latest.Version, child, string(parentOps), timingJSON); err != nil {
		return fmt.Errorf("insert edit record: %w", err)
	}

	if latest.Version >= 1 {
		v1, err := s.Get(ctx, p.Doc, 1)
		if err != nil || v1 == nil {
			return err
		}
		originOps, err := json.Marshal(diff.Diff(canon.Canonicalize(v1.Text), text))
		if err != nil {
			return fmt.Errorf("encode origin ops: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transcript_edits (file_path, parent_version, child_version, text_ops, timing_ops)
			VALUES ($1, 1, $2, $3, NULL)
			ON CONFLICT (file_path, parent_version, child_version)
			DO UPDATE SET text_ops=EXCLUDED.text_ops
		`, p.Doc, child, string(originOps)); err != nil {
			return fmt.Errorf("insert origin record: %w", err)
		}
	}
	return nil
}

// populateWords writes the per-word rows used for segment-paged reads.
// Newline tokens advance the segment counter and are not stored.
func (s *PostgresStore) populateWords(ctx context.Context, tx *sql.Tx, doc string, version int, words []Word) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM transcript_words WHERE file_path=$1 AND version=$2`, doc, version); err != nil {
		return fmt.Errorf("clear word rows: %w", err)
	}
	seg := 0
	for wi, w := range words {
		if w.IsNewline() {
			seg++
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transcript_words
				(file_path, version, segment_index, word_index, word, start_time, end_time, probability)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, doc, version, seg, wi, w.Word, w.Start, w.End, w.Probability); err != nil {
			return fmt.Errorf("insert word row %d: %w", wi, err)
		}
	}
	return nil
}

func (s *PostgresStore) latestTx(ctx context.Context, tx *sql.Tx, doc string) (*Version, error) {
	var v Version
	var wordsJSON []byte
	err := tx.QueryRowContext(ctx, `
		SELECT file_path, version, base_sha256, text, words, created_by, created_at
		FROM transcripts
		WHERE file_path=$1
		ORDER BY version DESC
		LIMIT 1
	`, doc).Scan(&v.Doc, &v.Version, &v.BaseSHA256, &v.Text, &wordsJSON, &v.CreatedBy, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read latest: %w", err)
	}
	if len(wordsJSON) > 0 {
		if err := json.Unmarshal(wordsJSON, &v.Words); err != nil {
			return nil, fmt.Errorf("decode words: %w", err)
		}
	}
	return &v, nil
}

// UpdateWordTimings applies alignment results to the word rows of one
// version and refreshes the stored words JSON to match.
func (s *PostgresStore) UpdateWordTimings(ctx context.Context, doc string, version int, words []Word) error {
	wordsJSON, err := json.Marshal(words)
	if err != nil {
		return fmt.Errorf("encode words: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin timing tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, doc); err != nil {
		return fmt.Errorf("acquire doc lock: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE transcripts SET words=$3 WHERE file_path=$1 AND version=$2`, doc, version, wordsJSON)
	if err != nil {
		return fmt.Errorf("update words json: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if err := s.populateWords(ctx, tx, doc, version, words); err != nil {
		return err
	}
	return tx.Commit()
}

// AppendTimingOps merges alignment blocks into the parent→child edit
// record for version.
func (s *PostgresStore) AppendTimingOps(ctx context.Context, doc string, version int, blocks []TimingBlock) error {
	if len(blocks) == 0 {
		return nil
	}
	parent := version - 1
	if parent < 0 {
		parent = 0
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin timing ops tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing []byte
	err = tx.QueryRowContext(ctx, `
		SELECT timing_ops FROM transcript_edits
		WHERE file_path=$1 AND parent_version=$2 AND child_version=$3
	`, doc, parent, version).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		return tx.Commit()
	}
	if err != nil {
		return fmt.Errorf("read timing ops: %w", err)
	}

	var merged []TimingBlock
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &merged); err != nil {
			merged = nil
		}
	}
	merged = append(merged, blocks...)
	raw, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode timing ops: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE transcript_edits SET timing_ops=$4
		WHERE file_path=$1 AND parent_version=$2 AND child_version=$3
	`, doc, parent, version, raw); err != nil {
		return fmt.Errorf("append timing ops: %w", err)
	}
	return tx.Commit()
}

// History lists version lineage ascending. Parent edges come from edit
// records where present, with a v-1 fallback.
func (s *PostgresStore) History(ctx context.Context, doc string) ([]VersionMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT version, base_sha256, created_by, created_at
		FROM transcripts
		WHERE file_path=$1
		ORDER BY version ASC
	`, doc)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	items := make([]VersionMeta, 0)
	for rows.Next() {
		var m VersionMeta
		if err := rows.Scan(&m.Version, &m.Hash, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	parentOf := map[int]int{}
	edgeRows, err := s.db.QueryContext(ctx, `
		SELECT parent_version, child_version FROM transcript_edits
		WHERE file_path=$1 AND parent_version = child_version - 1
	`, doc)
	if err != nil {
		return nil, fmt.Errorf("list parent edges: %w", err)
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var pv, cv int
		if err := edgeRows.Scan(&pv, &cv); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		parentOf[cv] = pv
	}
	if err := edgeRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}

	for i := range items {
		if pv, ok := parentOf[items[i].Version]; ok {
			items[i].ParentVersion = pv
		} else if items[i].Version > 1 {
			items[i].ParentVersion = items[i].Version - 1
		}
	}
	return items, nil
}

// Edits lists all edit records for doc ordered by child version.
func (s *PostgresStore) Edits(ctx context.Context, doc string) ([]EditRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file_path, parent_version, child_version, text_ops, timing_ops, created_at
		FROM transcript_edits
		WHERE file_path=$1
		ORDER BY child_version ASC, parent_version ASC
	`, doc)
	if err != nil {
		return nil, fmt.Errorf("list edits: %w", err)
	}
	defer rows.Close()

	items := make([]EditRecord, 0)
	for rows.Next() {
		var e EditRecord
		var timing []byte
		if err := rows.Scan(&e.Doc, &e.ParentVersion, &e.ChildVersion, &e.TextOps, &timing, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan edit: %w", err)
		}
		if len(timing) > 0 {
			if err := json.Unmarshal(timing, &e.TimingOps); err != nil {
				return nil, fmt.Errorf("decode timing ops: %w", err)
			}
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edits: %w", err)
	}
	return items, nil
}

// Words returns the word tokens of one version. With segment >= 0 the
// read is paged to [segment, segment+count) segments, count defaulting
// to DefaultSegmentChunk. Normalized rows win; the stored JSON words
// are the fallback for versions saved before row population existed.
func (s *PostgresStore) Words(ctx context.Context, doc string, version, segment, count int) ([]Word, error) {
	query := `
		SELECT segment_index, word, start_time, end_time, probability
		FROM transcript_words
		WHERE file_path=$1 AND version=$2`
	args := []any{doc, version}
	endSeg := -1
	if segment >= 0 {
		if count <= 0 {
			count = DefaultSegmentChunk
		}
		endSeg = segment + count - 1
		query += ` AND segment_index >= $3 AND segment_index <= $4`
		args = append(args, segment, endSeg)
	}
	query += ` ORDER BY word_index ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list words: %w", err)
	}
	defer rows.Close()

	type wordRow struct {
		seg  int
		word Word
	}
	var raw []wordRow
	for rows.Next() {
		var r wordRow
		if err := rows.Scan(&r.seg, &r.word.Word, &r.word.Start, &r.word.End, &r.word.Probability); err != nil {
			return nil, fmt.Errorf("scan word row: %w", err)
		}
		raw = append(raw, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate words: %w", err)
	}

	if len(raw) > 0 {
		segs := make([]int, len(raw))
		words := make([]Word, len(raw))
		for i, r := range raw {
			segs[i] = r.seg
			words[i] = r.word
		}
		return normalizeWordRows(segs, words), nil
	}

	v, err := s.Get(ctx, doc, version)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrNotFound
	}
	if segment >= 0 {
		return sliceWordsBySegment(v.Words, segment, endSeg), nil
	}
	return v.Words, nil
}

// normalizeWordRows turns stored rows back into the words JSON shape:
// newline tokens between segments, numeric defaults, and a lookahead
// end-time repair so every token has a positive duration.
func normalizeWordRows(segs []int, words []Word) []Word {
	out := make([]Word, 0, len(words)+8)
	flush := func(buf []Word) {
		n := len(buf)
		for i := 0; i < n; i++ {
			s := 0.0
			if buf[i].Start != nil {
				s = *buf[i].Start
			}
			e := s
			if buf[i].End != nil {
				e = *buf[i].End
			}
			if e <= s {
				var next *float64
				for j := i + 1; j < n; j++ {
					if buf[j].Start != nil && *buf[j].Start > s {
						next = buf[j].Start
						break
					}
				}
				if next != nil {
					e = *next
				} else {
					e = s + minReadDuration
				}
			}
			buf[i].Start = &s
			end := e
			buf[i].End = &end
		}
		out = append(out, buf...)
	}

	var buf []Word
	curSeg := -1
	for i := range words {
		if curSeg >= 0 && segs[i] != curSeg {
			flush(buf)
			buf = nil
			prevEnd := 0.0
			if len(out) > 0 && out[len(out)-1].End != nil {
				prevEnd = *out[len(out)-1].End
			}
			pe := prevEnd
			out = append(out, Word{Word: "\n", Start: &pe, End: &pe})
		}
		buf = append(buf, words[i])
		curSeg = segs[i]
	}
	flush(buf)
	return out
}

// sliceWordsBySegment windows stored JSON words by counting newline
// separators, keeping interior newline tokens.
func sliceWordsBySegment(words []Word, seg, endSeg int) []Word {
	out := make([]Word, 0)
	curSeg := 0
	started := false
	for _, w := range words {
		if w.IsNewline() {
			if started && curSeg >= endSeg {
				break
			}
			curSeg++
			if started && curSeg <= endSeg {
				s := 0.0
				if w.Start != nil {
					s = *w.Start
				}
				sv := s
				ev := s
				out = append(out, Word{Word: "\n", Start: &sv, End: &ev})
			}
			continue
		}
		if curSeg < seg {
			continue
		}
		started = true
		out = append(out, w)
	}
	return out
}

// Confirmations lists the anchored ranges for (doc, version).
func (s *PostgresStore) Confirmations(ctx context.Context, doc string, version int) ([]Confirmation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_path, version, base_sha256, start_offset, end_offset, prefix, exact, suffix
		FROM transcript_confirmations
		WHERE file_path=$1 AND version=$2
		ORDER BY start_offset ASC
	`, doc, version)
	if err != nil {
		return nil, fmt.Errorf("list confirmations: %w", err)
	}
	defer rows.Close()

	items := make([]Confirmation, 0)
	for rows.Next() {
		var c Confirmation
		if err := rows.Scan(&c.ID, &c.Doc, &c.Version, &c.BaseSHA256, &c.StartOffset, &c.EndOffset, &c.Prefix, &c.Exact, &c.Suffix); err != nil {
			return nil, fmt.Errorf("scan confirmation: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate confirmations: %w", err)
	}
	return items, nil
}

// ReplaceConfirmations swaps the confirmation set for (doc, version)
// under the document lock, so readers never observe a partial set.
func (s *PostgresStore) ReplaceConfirmations(ctx context.Context, doc string, version int, baseSHA256 string, items []Confirmation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin confirmations tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, doc); err != nil {
		return fmt.Errorf("acquire doc lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM transcript_confirmations WHERE file_path=$1 AND version=$2`, doc, version); err != nil {
		return fmt.Errorf("clear confirmations: %w", err)
	}
	for _, it := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transcript_confirmations
				(file_path, version, base_sha256, start_offset, end_offset, prefix, exact, suffix)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, doc, version, baseSHA256, it.StartOffset, it.EndOffset, it.Prefix, it.Exact, it.Suffix); err != nil {
			return fmt.Errorf("insert confirmation: %w", err)
		}
	}
	return tx.Commit()
}

// ListDocs returns every document path with at least one version, for
// repopulating the advisory corrections cache on startup.
func (s *PostgresStore) ListDocs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT file_path FROM transcripts ORDER BY file_path`)
	if err != nil {
		return nil, fmt.Errorf("list docs: %w", err)
	}
	defer rows.Close()
	var docs []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan doc: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate docs: %w", err)
	}
	return docs, nil
}

// --- users ---

// GetUserByEmail returns the account for email, or ErrNotFound.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, created_at
		FROM users WHERE email=$1
	`, strings.ToLower(email)).Scan(&u.ID, &u.DisplayName, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	return u, nil
}

// GetUserByID returns the account for id, or ErrNotFound.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, created_at
		FROM users WHERE id=$1
	`, id).Scan(&u.ID, &u.DisplayName, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	return u, nil
}

// CreateUser inserts a new account.
func (s *PostgresStore) CreateUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email, password_hash)
		VALUES ($1, $2, $3, $4)
	`, u.ID, u.DisplayName, strings.ToLower(u.Email), u.PasswordHash)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}
