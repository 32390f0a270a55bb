package pointers

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}

// Deref safely dereferences a pointer, returning the zero value if nil
func Deref[T any](ptr *T) T {
	var zero T
	return DerefOr(ptr, zero)
}

// DerefOr dereferences ptr, returning fallback when it is nil.
func DerefOr[T any](ptr *T, fallback T) T {
	if ptr == nil {
		return fallback
	}
	return *ptr
}
