// Package dom holds the browser-independent DOM logic: computed-style
// inspection, relative XPath synthesis and scroll-container discovery.
//
// Everything here works against the Node capability interface so the
// algorithms can run against a live Rod element or an in-memory fake.
package dom

import (
	"context"
	"log/slog"
)

// Node is a handle to a live DOM element. Implementations are owned by a
// browser session and become invalid once it closes or the node detaches.
type Node interface {
	// TagName returns the lower-case tag name.
	TagName(ctx context.Context) (string, error)

	// RawAttributes returns the declared attributes of the element.
	RawAttributes(ctx context.Context) (map[string]string, error)

	// ComputedStyle returns the resolved style properties of the element.
	ComputedStyle(ctx context.Context) (map[string]string, error)

	// ContentExtent returns the content and visible heights of the element.
	ContentExtent(ctx context.Context) (Extent, error)

	// Parent returns the parent element, or nil without error at the root.
	Parent(ctx context.Context) (Node, error)
}

// Extent compares the content height of an element with its visible height.
type Extent struct {
	ScrollHeight float64
	ClientHeight float64
}

// Overflowing reports whether the content is taller than the visible area.
func (e Extent) Overflowing() bool {
	return e.ScrollHeight > e.ClientHeight
}

func logger() *slog.Logger {
	return slog.Default().With("component", "dom")
}
