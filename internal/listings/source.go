package listings

import "context"

// Source supplies the full listing collection an engine is loaded with.
type Source interface {
	Fetch(ctx context.Context) ([]Listing, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Listing, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context) ([]Listing, error) {
	return f(ctx)
}
