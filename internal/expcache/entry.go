package expcache

// Entry is one cached result. ValidUntil is Unix seconds; 0 means always stale.
type Entry[T any] struct {
	Key        string
	Item       *T
	ValidUntil int64
}

// ValidAt reports whether the entry can be served at Unix time now.
func (e Entry[T]) ValidAt(now int64) bool {
	return e.Item != nil && now < e.ValidUntil
}
