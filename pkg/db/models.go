package db

import "time"

// Term is a single glossary record. Canonical is the normalized form of Term
// and is the collection's uniqueness key.
type Term struct {
	ID         int64
	Term       string
	Canonical  string
	Definition string
	Example    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SearchTerm satisfies match.Searchable.
func (t Term) SearchTerm() string { return t.Term }

// Source is a citation record that term entries may reference by label.
type Source struct {
	ID          int64
	Label       string
	Description string
	Website     string
	URL         string
	AddedAt     time.Time
}

// TermSource links a Term with a Source. Link order (by ID) is the order the
// associations were made in.
type TermSource struct {
	ID       int64
	TermID   int64
	SourceID int64
}
