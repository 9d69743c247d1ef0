package exchange

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Snapshot is the full glossary state in interchange form, used for remote
// sync. Terms are keyed by canonical form, links by (canonical, label) pair,
// so snapshots from different machines can be merged.
type Snapshot struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Terms       []SnapshotTerm   `json:"terms"`
	Sources     []SnapshotSource `json:"sources"`
	Links       []SnapshotLink   `json:"links"`
}

type SnapshotTerm struct {
	Term       string    `json:"term"`
	Canonical  string    `json:"canonical"`
	Definition string    `json:"definition,omitempty"`
	Example    string    `json:"example,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type SnapshotSource struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Website     string `json:"website,omitempty"`
	URL         string `json:"url,omitempty"`
}

type SnapshotLink struct {
	TermCanonical string `json:"term"`
	SourceLabel   string `json:"source"`
}

// EncodeSnapshot writes s to w as JSON.
func EncodeSnapshot(w io.Writer, s *Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// DecodeSnapshot reads a snapshot from r.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &s, nil
}
