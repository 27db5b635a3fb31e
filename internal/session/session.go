// Package session holds the per-visitor cart state that survives between
// requests, plus the stores and middleware that persist it.
package session

// CartSession is the visitor's durable cart bookkeeping: the remote cart id
// (0 = no cart yet) and the last known number of lines in that cart.
//
// It is not safe for concurrent use; one request owns it at a time.
type CartSession struct {
	cartID    int
	itemCount int
	dirty     bool
}

// New returns an uninitialized session.
func New() *CartSession {
	return &CartSession{}
}

// CartID returns the remote cart id, 0 when no cart is known.
func (s *CartSession) CartID() int {
	return s.cartID
}

// SetCartID records the remote cart id.
func (s *CartSession) SetCartID(id int) {
	if s.cartID != id {
		s.dirty = true
	}
	s.cartID = id
}

// ItemCount returns the cached number of cart lines.
func (s *CartSession) ItemCount() int {
	return s.itemCount
}

// SetItemCount records the cached number of cart lines.
func (s *CartSession) SetItemCount(n int) {
	if s.itemCount != n {
		s.dirty = true
	}
	s.itemCount = n
}

// IsInitialized reports whether a remote cart id has been recorded.
func (s *CartSession) IsInitialized() bool {
	return s.cartID != 0
}

// Dirty reports whether any field changed since load.
func (s *CartSession) Dirty() bool {
	return s.dirty
}

// record is the persisted form of a CartSession.
type record struct {
	CartID    int `json:"cart_id"`
	ItemCount int `json:"item_count"`
}

func (s *CartSession) toRecord() record {
	return record{CartID: s.cartID, ItemCount: s.itemCount}
}

func fromRecord(r record) *CartSession {
	return &CartSession{cartID: r.CartID, itemCount: r.ItemCount}
}
