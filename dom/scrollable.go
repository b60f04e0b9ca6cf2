package dom

import (
	"context"
	"errors"
	"fmt"
)

// DefaultMaxDepth bounds the ancestor walk when FindOptions leaves it unset.
const DefaultMaxDepth = 256

var (
	// ErrNoScrollableAncestor is returned when the walk reaches the document
	// root without a qualifying element. It is a definitive answer.
	ErrNoScrollableAncestor = errors.New("dom: no scrollable ancestor")

	// ErrDepthExceeded is returned when the walk exceeds FindOptions.MaxDepth.
	ErrDepthExceeded = errors.New("dom: ancestor walk exceeded max depth")
)

// FindOptions tunes FindScrollableParent.
type FindOptions struct {
	// MaxDepth is the maximum number of elements inspected, starting with
	// the input element. Zero means DefaultMaxDepth.
	MaxDepth int
}

// Scrollable is a scroll container found by FindScrollableParent.
type Scrollable struct {
	Node Node

	// Locator is the synthesized relative XPath. It is empty when the
	// locator could not be built; the node is still valid.
	Locator string

	// Depth is the distance from the input element (0 = the element itself).
	Depth int
}

// IsScrollable reports whether an element with the given computed style and
// extent is a scroll container: overflow or overflow-y must be auto or
// scroll, and the content must be taller than the visible area.
func IsScrollable(style map[string]string, ext Extent) bool {
	return overflowScrollable(style) && ext.Overflowing()
}

func overflowScrollable(style map[string]string) bool {
	return scrollValue(styleOr(style, "overflow", "visible")) ||
		scrollValue(styleOr(style, "overflow-y", "visible"))
}

func scrollValue(v string) bool {
	return v == "auto" || v == "scroll"
}

func styleOr(style map[string]string, key, fallback string) string {
	if v, ok := style[key]; ok && v != "" {
		return v
	}
	return fallback
}

// FindScrollableParent walks from n up the ancestor chain and returns the
// nearest element (n included) that is a scroll container.
//
// Reaching the root yields ErrNoScrollableAncestor and a warning log. Any
// failure while inspecting an element aborts the whole walk; the walk is not
// resumed from the failure point.
func FindScrollableParent(ctx context.Context, n Node, opts FindOptions) (*Scrollable, error) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	current := n
	for depth := 0; current != nil; depth++ {
		if depth >= maxDepth {
			logger().Error("scrollable search aborted", "maxDepth", maxDepth)
			return nil, fmt.Errorf("%w (%d)", ErrDepthExceeded, maxDepth)
		}
		if err := ctx.Err(); err != nil {
			logger().Error("scrollable search canceled", "depth", depth, "error", err)
			return nil, err
		}

		style, err := Inspect(ctx, current)
		if err != nil {
			logger().Error("scrollable search failed", "depth", depth, "error", err)
			return nil, err
		}

		ext, err := current.ContentExtent(ctx)
		if err != nil {
			logger().Error("scrollable search failed", "depth", depth, "error", err)
			return nil, fmt.Errorf("read content extent: %w", err)
		}
		if IsScrollable(style, ext) {
			loc, _ := BuildLocator(ctx, current)
			logger().Info("scrollable element found", "xpath", loc, "depth", depth)
			return &Scrollable{Node: current, Locator: loc, Depth: depth}, nil
		}

		parent, err := current.Parent(ctx)
		if err != nil {
			logger().Error("scrollable search failed", "depth", depth, "error", err)
			return nil, fmt.Errorf("read parent: %w", err)
		}
		current = parent
	}

	logger().Warn("no scrollable parent element found")
	return nil, ErrNoScrollableAncestor
}
