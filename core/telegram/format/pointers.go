package format

// Deref returns *p, or def when p is nil. Backend payloads use pointers for optional fields.
func Deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
