package dom

import (
	"context"
	"errors"
)

var errDetached = errors.New("node is detached")

// fakeNode is an in-memory Node. A nil parent marks the document root.
type fakeNode struct {
	tag    string
	attrs  map[string]string
	style  map[string]string
	extent Extent
	parent *fakeNode

	styleErr  error
	attrErr   error
	extentErr error
	parentErr error

	styleCalls int
}

func (f *fakeNode) TagName(context.Context) (string, error) { return f.tag, nil }

func (f *fakeNode) RawAttributes(context.Context) (map[string]string, error) {
	if f.attrErr != nil {
		return nil, f.attrErr
	}
	return f.attrs, nil
}

func (f *fakeNode) ComputedStyle(context.Context) (map[string]string, error) {
	f.styleCalls++
	if f.styleErr != nil {
		return nil, f.styleErr
	}
	return f.style, nil
}

func (f *fakeNode) ContentExtent(context.Context) (Extent, error) {
	if f.extentErr != nil {
		return Extent{}, f.extentErr
	}
	return f.extent, nil
}

func (f *fakeNode) Parent(context.Context) (Node, error) {
	if f.parentErr != nil {
		return nil, f.parentErr
	}
	if f.parent == nil {
		return nil, nil
	}
	return f.parent, nil
}

// chain links nodes so that each one is the parent of the previous one and
// returns the first (innermost) node.
func chain(nodes ...*fakeNode) *fakeNode {
	for i := 0; i < len(nodes)-1; i++ {
		nodes[i].parent = nodes[i+1]
	}
	return nodes[0]
}

func plain(tag string) *fakeNode {
	return &fakeNode{tag: tag, style: map[string]string{"overflow": "visible"}}
}

func scroller(tag string, attrs map[string]string) *fakeNode {
	return &fakeNode{
		tag:    tag,
		attrs:  attrs,
		style:  map[string]string{"overflow-y": "scroll"},
		extent: Extent{ScrollHeight: 500, ClientHeight: 200},
	}
}
