package scraper

import (
	"context"
	"errors"

	"github.com/go-rod/rod"
	"github.com/use-agent/pbiscrape/dom"
	"github.com/ysmood/gson"
)

// JS snippets evaluated with `this` bound to the element. Reads that depend
// on layout throw on detached nodes so a stale handle surfaces as an error
// instead of an empty style.
const (
	jsTagName = `() => this.tagName.toLowerCase()`

	jsAttributes = `() => {
		const items = {};
		for (const a of this.attributes) items[a.name] = a.value;
		return items;
	}`

	jsComputedStyle = `() => {
		if (!this.isConnected) throw new Error('element is detached');
		const items = {};
		const cs = window.getComputedStyle(this);
		for (let i = 0; i < cs.length; i++) {
			const prop = cs[i];
			items[prop] = cs.getPropertyValue(prop);
		}
		return items;
	}`

	jsExtent = `() => {
		if (!this.isConnected) throw new Error('element is detached');
		return { scrollHeight: this.scrollHeight, clientHeight: this.clientHeight };
	}`

	jsScrollBy = `(dy) => {
		if (!this.isConnected) throw new Error('element is detached');
		const before = this.scrollTop;
		this.scrollTop = before + (dy > 0 ? dy : this.clientHeight);
		return { before: before, after: this.scrollTop };
	}`
)

// rodNode adapts a Rod element to dom.Node.
type rodNode struct {
	el *rod.Element
}

var _ dom.Node = (*rodNode)(nil)

func newRodNode(el *rod.Element) *rodNode { return &rodNode{el: el} }

func (n *rodNode) eval(ctx context.Context, js string, params ...interface{}) (gson.JSON, error) {
	res, err := n.el.Context(ctx).Eval(js, params...)
	if err != nil {
		return gson.New(nil), staleError(err, "element evaluation failed")
	}
	return res.Value, nil
}

func (n *rodNode) TagName(ctx context.Context) (string, error) {
	v, err := n.eval(ctx, jsTagName)
	if err != nil {
		return "", err
	}
	return v.Str(), nil
}

func (n *rodNode) RawAttributes(ctx context.Context) (map[string]string, error) {
	v, err := n.eval(ctx, jsAttributes)
	if err != nil {
		return nil, err
	}
	return toStringMap(v.Map()), nil
}

func (n *rodNode) ComputedStyle(ctx context.Context) (map[string]string, error) {
	v, err := n.eval(ctx, jsComputedStyle)
	if err != nil {
		return nil, err
	}
	return toStringMap(v.Map()), nil
}

func (n *rodNode) ContentExtent(ctx context.Context) (dom.Extent, error) {
	v, err := n.eval(ctx, jsExtent)
	if err != nil {
		return dom.Extent{}, err
	}
	return dom.Extent{
		ScrollHeight: v.Get("scrollHeight").Num(),
		ClientHeight: v.Get("clientHeight").Num(),
	}, nil
}

func (n *rodNode) Parent(ctx context.Context) (dom.Node, error) {
	parent, err := n.el.Context(ctx).Parent()
	if err != nil {
		var notFound *rod.ElementNotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, staleError(err, "failed to read parent element")
	}
	return newRodNode(parent), nil
}

// scrollPosition is the scrollTop of a container before and after a step.
type scrollPosition struct {
	Before float64
	After  float64
}

func (p scrollPosition) moved() bool { return p.After != p.Before }

// ScrollBy scrolls the element down by dy pixels, or by its client height
// when dy is not positive.
func (n *rodNode) ScrollBy(ctx context.Context, dy int) (scrollPosition, error) {
	v, err := n.eval(ctx, jsScrollBy, dy)
	if err != nil {
		return scrollPosition{}, err
	}
	return scrollPosition{
		Before: v.Get("before").Num(),
		After:  v.Get("after").Num(),
	}, nil
}

// innerHTML reads the current inner markup of the element.
func (n *rodNode) innerHTML(ctx context.Context) (string, error) {
	v, err := n.el.Context(ctx).Property("innerHTML")
	if err != nil {
		return "", staleError(err, "failed to read table markup")
	}
	return v.Str(), nil
}

// toStringMap converts the JSON object returned by the page into plain
// strings. Non-string values keep their JSON rendering.
func toStringMap(m map[string]gson.JSON) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.Val().(string); ok {
			out[k] = s
			continue
		}
		out[k] = v.JSON("", "")
	}
	return out
}
