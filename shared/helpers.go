package shared

// PointerTo returns a pointer to the given value.
func PointerTo[T any](value T) *T {
	return &value
}

// ValueOr dereferences the pointer or returns the fallback when nil.
func ValueOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
