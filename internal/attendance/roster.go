package attendance

import (
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Roster is the local projection of the backend roster. It is owned by the
// console loop and is not safe for concurrent use.
type Roster struct {
	entries []Entry
	index   map[string]int
	folder  cases.Caser
}

// NewRoster returns a roster holding a sorted copy of entries.
func NewRoster(entries []Entry) *Roster {
	r := &Roster{folder: cases.Fold()}
	r.Replace(entries)
	return r
}

// Replace swaps the whole roster for a fresh snapshot.
func (r *Roster) Replace(entries []Entry) {
	sorted := make([]Entry, 0, len(entries))
	for _, e := range entries {
		sorted = append(sorted, e.Normalize())
	}
	SortEntries(sorted)
	r.entries = sorted
	r.index = make(map[string]int, len(sorted))
	for i, e := range sorted {
		r.index[e.MemberID] = i
	}
}

// Len returns the number of entries.
func (r *Roster) Len() int {
	return len(r.entries)
}

// Entries returns a copy of all entries in sort order.
func (r *Roster) Entries() []Entry {
	return slices.Clone(r.entries)
}

// Get returns the entry for memberID.
func (r *Roster) Get(memberID string) (Entry, bool) {
	i, ok := r.index[strings.TrimSpace(memberID)]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Apply patches the existing row for e.MemberID with e. Rows are never added
// by this path; an unknown member reports false and leaves the roster unchanged.
func (r *Roster) Apply(e Entry) bool {
	i, ok := r.index[strings.TrimSpace(e.MemberID)]
	if !ok {
		return false
	}
	current := r.entries[i]
	e.MemberID = current.MemberID
	if e.Name == "" {
		e.Name = current.Name
	}
	if e.LastName == "" {
		e.LastName = current.LastName
	}
	r.entries[i] = e.Normalize()
	return true
}

// Search returns entries whose id, name, and last name concatenated contain
// query, compared after Unicode case folding. An empty query returns everything.
func (r *Roster) Search(query string) []Entry {
	q := r.folder.String(strings.TrimSpace(query))
	if q == "" {
		return r.Entries()
	}
	var out []Entry
	for _, e := range r.entries {
		if strings.Contains(r.folder.String(e.MemberID+e.Name+e.LastName), q) {
			out = append(out, e)
		}
	}
	return out
}

// Counts tallies entries per status.
func (r *Roster) Counts() map[Status]int {
	counts := make(map[Status]int, 4)
	for _, s := range Statuses() {
		counts[s] = 0
	}
	for _, e := range r.entries {
		counts[e.Status]++
	}
	return counts
}

// SortEntries orders entries by ascending numeric member id. Ids that are not
// numbers sort after all numeric ids, lexicographically. The sort is stable.
func SortEntries(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return compareIDs(a.MemberID, b.MemberID)
	})
}

func compareIDs(a, b string) int {
	an, aErr := strconv.ParseInt(strings.TrimSpace(a), 10, 64)
	bn, bErr := strconv.ParseInt(strings.TrimSpace(b), 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}
