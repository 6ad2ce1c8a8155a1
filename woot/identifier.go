// Package woot implements the WOOT (WithOut Operational Transform) CRDT:
// a replicated character sequence that converges across sites regardless
// of the order in which insert/delete operations are delivered.
package woot

import "math"

// ID names a character for all time. It is a pair of the originating
// site's identifier and that site's logical clock value at the moment the
// character was generated.
type ID struct {
	NS int64 `json:"ns"` // originating site
	NG int64 `json:"ng"` // logical clock at generation time
}

// Equal reports componentwise equality.
func (a ID) Equal(b ID) bool {
	return a.NS == b.NS && a.NG == b.NG
}

// Less reports whether a strictly precedes b in the lexicographic total
// order on (NS, NG): sites are compared first, and only identifiers from
// the same site are ordered by generation clock.
func (a ID) Less(b ID) bool {
	if a.NS != b.NS {
		return a.NS < b.NS
	}
	return a.NG < b.NG
}

// LessOrEqual is the weak form of Less.
func (a ID) LessOrEqual(b ID) bool {
	if a.NS != b.NS {
		return a.NS < b.NS
	}
	return a.NG <= b.NG
}

// Sentinel identifiers. CBID/CEID bound every sequence and are never
// produced by Site.GenerateIns. CEID.NG is fixed at 0: every comparison
// against CE depends only on NS == MaxInt64, so NG is a don't-care and
// takes the zero value rather than an arbitrary nonzero constant.
var (
	CBID = ID{NS: math.MinInt64, NG: 0}
	CEID = ID{NS: math.MaxInt64, NG: 0}
)
