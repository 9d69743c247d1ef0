package remote

import (
	"sort"
	"time"

	"github.com/glossarkit/glossar/pkg/exchange"
)

// Merge combines two snapshots. Terms are keyed by canonical form and the
// newer UpdatedAt wins; on a tie the local side wins. Sources merge by label
// (local wins on conflict) and links by (term, source) pair. Either argument
// may be nil. The result is sorted by canonical term / label so merges are
// deterministic.
func Merge(local, remote *exchange.Snapshot) *exchange.Snapshot {
	out := &exchange.Snapshot{GeneratedAt: time.Now()}
	if local == nil && remote == nil {
		return out
	}

	terms := make(map[string]exchange.SnapshotTerm)
	if remote != nil {
		for _, t := range remote.Terms {
			terms[t.Canonical] = t
		}
	}
	if local != nil {
		for _, t := range local.Terms {
			if prev, ok := terms[t.Canonical]; !ok || !t.UpdatedAt.Before(prev.UpdatedAt) {
				terms[t.Canonical] = t
			}
		}
	}

	sources := make(map[string]exchange.SnapshotSource)
	if remote != nil {
		for _, s := range remote.Sources {
			sources[s.Label] = s
		}
	}
	if local != nil {
		for _, s := range local.Sources {
			sources[s.Label] = s
		}
	}

	type linkKey struct{ term, source string }
	links := make(map[linkKey]exchange.SnapshotLink)
	for _, snap := range []*exchange.Snapshot{remote, local} {
		if snap == nil {
			continue
		}
		for _, l := range snap.Links {
			// Keep links only while both ends survive the merge; a dangling
			// reference inside a term record is tolerated, a dangling link
			// row is just noise.
			if _, ok := terms[l.TermCanonical]; !ok {
				continue
			}
			if _, ok := sources[l.SourceLabel]; !ok {
				continue
			}
			links[linkKey{l.TermCanonical, l.SourceLabel}] = l
		}
	}

	for _, t := range terms {
		out.Terms = append(out.Terms, t)
	}
	sort.Slice(out.Terms, func(i, j int) bool { return out.Terms[i].Canonical < out.Terms[j].Canonical })

	for _, s := range sources {
		out.Sources = append(out.Sources, s)
	}
	sort.Slice(out.Sources, func(i, j int) bool { return out.Sources[i].Label < out.Sources[j].Label })

	for _, l := range links {
		out.Links = append(out.Links, l)
	}
	sort.Slice(out.Links, func(i, j int) bool {
		if out.Links[i].TermCanonical != out.Links[j].TermCanonical {
			return out.Links[i].TermCanonical < out.Links[j].TermCanonical
		}
		return out.Links[i].SourceLabel < out.Links[j].SourceLabel
	})

	return out
}
