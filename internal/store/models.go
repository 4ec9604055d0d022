package store

import "time"

// Word is one token of a version's word sequence: a lexical word, a
// whitespace run, or the segment separator "\n". Timings are seconds
// from the start of the episode audio; nil means unknown.
type Word struct {
	Word        string   `json:"word"`
	Start       *float64 `json:"start"`
	End         *float64 `json:"end"`
	Probability *float64 `json:"probability"`
}

// IsNewline reports whether the token is a segment separator.
func (w Word) IsNewline() bool { return w.Word == "\n" }

// Version is an immutable snapshot of a document's canonical text and
// aligned words at a monotonic integer index.
type Version struct {
	Doc        string    `json:"doc"`
	Version    int       `json:"version"`
	BaseSHA256 string    `json:"base_sha256"`
	Text       string    `json:"text"`
	Words      []Word    `json:"words"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// VersionMeta is one history row: lineage without the text payload.
type VersionMeta struct {
	Version       int       `json:"version"`
	ParentVersion int       `json:"parent_version"`
	Hash          string    `json:"hash"`
	CommitHash    string    `json:"commit_hash,omitempty"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// EditRecord carries the edit script (and optional timing deltas) that
// takes ParentVersion to ChildVersion. TextOps is the JSON-encoded op
// array; it is stored verbatim so chain verification sees exactly what
// was written.
type EditRecord struct {
	Doc           string        `json:"doc"`
	ParentVersion int           `json:"parent_version"`
	ChildVersion  int           `json:"child_version"`
	TextOps       string        `json:"text_ops"`
	TimingOps     []TimingBlock `json:"timing_ops,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// TimingBlock describes per-word time changes for a segment
// neighbourhood produced by re-alignment.
type TimingBlock struct {
	SegmentStart int          `json:"segment_start"`
	SegmentEnd   int          `json:"segment_end"`
	Items        []TimingItem `json:"items"`
}

// TimingItem records the before/after times of one word token.
type TimingItem struct {
	Word       string  `json:"word"`
	OldStart   float64 `json:"old_start"`
	NewStart   float64 `json:"new_start"`
	OldEnd     float64 `json:"old_end"`
	NewEnd     float64 `json:"new_end"`
	DeltaStart float64 `json:"delta_start"`
	DeltaEnd   float64 `json:"delta_end"`
}

// Confirmation is a reviewer-asserted character range anchored to a
// specific (version, hash) pair with 16-character context on each side.
type Confirmation struct {
	ID          int64  `json:"id"`
	Doc         string `json:"doc"`
	Version     int    `json:"version"`
	BaseSHA256  string `json:"base_sha256"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
	Prefix      string `json:"prefix"`
	Exact       string `json:"exact"`
	Suffix      string `json:"suffix"`
}

// User is an account row. PasswordHash is bcrypt.
type User struct {
	ID           string
	DisplayName  string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
