package dom

import (
	"context"
	"errors"
	"strings"

	"github.com/antchfx/xpath"
	"github.com/use-agent/pbiscrape/models"
)

// locatorAttrs are consulted in this order; nothing else is.
var locatorAttrs = []string{"id", "name", "class", "role", "aria-label"}

// BuildLocator synthesizes a best-effort relative XPath for n from its tag
// name and a fixed subset of its declared attributes.
//
// On failure the locator is empty, the error is logged and returned.
func BuildLocator(ctx context.Context, n Node) (string, error) {
	tag, err := n.TagName(ctx)
	if err != nil {
		logger().Error("locator: failed to read tag name", "error", err)
		return "", models.NewScrapeError(models.ErrCodeElementStale, "failed to read tag name", err)
	}
	attrs, err := n.RawAttributes(ctx)
	if err != nil {
		logger().Error("locator: failed to read attributes", "error", err)
		return "", models.NewScrapeError(models.ErrCodeElementStale, "failed to read attributes", err)
	}

	loc, err := Locator(tag, attrs)
	if err != nil {
		logger().Error("locator: invalid expression", "tag", tag, "error", err)
		return "", err
	}
	return loc, nil
}

// Locator builds the relative XPath for an element with the given tag and
// attributes. It is deterministic for identical input.
//
// The result is //tag followed by one predicate per present attribute in the
// order id, name, class, role, aria-label. Only the first class token is
// used, with a contains() predicate; other attributes match exactly.
func Locator(tag string, attrs map[string]string) (string, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return "", errors.New("locator: empty tag name")
	}

	var b strings.Builder
	b.WriteString("//")
	b.WriteString(tag)

	for _, name := range locatorAttrs {
		value, ok := attrs[name]
		if !ok {
			continue
		}
		if name == "class" {
			classes := strings.Fields(value)
			if len(classes) == 0 {
				continue
			}
			b.WriteString("[contains(@class, ")
			b.WriteString(quote(classes[0]))
			b.WriteString(")]")
			continue
		}
		b.WriteString("[@")
		b.WriteString(name)
		b.WriteString("=")
		b.WriteString(quote(value))
		b.WriteString("]")
	}

	loc := b.String()
	if _, err := xpath.Compile(loc); err != nil {
		return "", err
	}
	return loc, nil
}

// quote renders s as an XPath 1.0 string literal. XPath has no escape
// sequences, so a value holding both quote kinds is split with concat().
func quote(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	parts := strings.Split(s, "'")
	var b strings.Builder
	b.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(`, "'", `)
		}
		b.WriteString("'")
		b.WriteString(p)
		b.WriteString("'")
	}
	b.WriteString(")")
	return b.String()
}
