package downhours

import "sort"

// HistorySet is an immutable snapshot of the down-hours sheet in row order.
// Lookback only ever considers rows positioned before the row being classified.
type HistorySet struct {
	rows []MemberRecord
}

// NewHistorySet copies rows into a snapshot ordered by RowIndex.
func NewHistorySet(rows []MemberRecord) HistorySet {
	cp := make([]MemberRecord, len(rows))
	copy(cp, rows)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].RowIndex < cp[j].RowIndex })
	return HistorySet{rows: cp}
}

// Len is the number of rows in the snapshot.
func (h HistorySet) Len() int { return len(h.rows) }

// Rows returns a copy of the snapshot rows.
func (h HistorySet) Rows() []MemberRecord {
	cp := make([]MemberRecord, len(h.rows))
	copy(cp, h.rows)
	return cp
}

// Before returns the rows strictly above rowIndex.
func (h HistorySet) Before(rowIndex int) HistorySet {
	n := sort.Search(len(h.rows), func(i int) bool { return h.rows[i].RowIndex >= rowIndex })
	return HistorySet{rows: h.rows[:n:n]}
}

// With returns a new snapshot where r replaces the row sharing its RowIndex,
// or is inserted in order when no such row exists. The receiver is unchanged.
func (h HistorySet) With(r MemberRecord) HistorySet {
	out := make([]MemberRecord, 0, len(h.rows)+1)
	placed := false
	for _, existing := range h.rows {
		switch {
		case existing.RowIndex == r.RowIndex:
			out = append(out, r)
			placed = true
			continue
		case !placed && existing.RowIndex > r.RowIndex:
			out = append(out, r)
			placed = true
		}
		out = append(out, existing)
	}
	if !placed {
		out = append(out, r)
	}
	return HistorySet{rows: out}
}

// Unprocessed returns the rows that do not carry an action yet, in order.
func Unprocessed(rows []MemberRecord) []MemberRecord {
	var out []MemberRecord
	for _, r := range rows {
		if !r.Processed() {
			out = append(out, r)
		}
	}
	return out
}
