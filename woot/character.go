package woot

// Character is the atomic, identifier-tagged unit of a Sequence. Once
// created it is never mutated except for Visible, which only ever
// transitions true -> false (a deletion is a tombstone, not a removal).
type Character struct {
	ID      ID     `json:"id"`
	Glyph   string `json:"c"`
	Visible bool   `json:"visible"`

	// PrevID and NextID name the neighbors this character was originally
	// inserted between, at its origin site, at the moment of generation.
	// They are nil only for the sentinels; every generated character
	// carries both.
	PrevID *ID `json:"prev_id"`
	NextID *ID `json:"next_id"`
}

// Equal compares characters by identifier only: two characters are the
// same character regardless of visibility or glyph bookkeeping.
func (c Character) Equal(other Character) bool {
	return c.ID.Equal(other.ID)
}

// CB and CE are the immutable boundary characters every Sequence starts
// and ends with. They are invisible and carry no origin interval.
var (
	CB = Character{ID: CBID, Glyph: "", Visible: false}
	CE = Character{ID: CEID, Glyph: "", Visible: false}
)

func idPtr(id ID) *ID {
	return &id
}
