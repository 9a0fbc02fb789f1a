// Package locator builds XPath queries. Caller-supplied values (names, dates,
// time labels) are always embedded as quoted XPath literals, never spliced
// into the expression as raw text.
package locator

import (
	"fmt"
	"strconv"
	"strings"
)

// Locator is an immutable XPath expression.
type Locator struct {
	expr string
}

// Of wraps a static expression that embeds no caller data.
func Of(expr string) Locator {
	return Locator{expr: expr}
}

// Format builds a Locator from a template using %s placeholders. String
// arguments become quoted XPath literals; integers become numbers. Any other
// argument type panics, as that is a programming error in a fixed template.
func Format(template string, args ...any) Locator {
	parts := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case string:
			parts[i] = Literal(v)
		case int:
			parts[i] = strconv.Itoa(v)
		default:
			panic(fmt.Sprintf("locator: unsupported argument %T", a))
		}
	}
	return Locator{expr: fmt.Sprintf(template, parts...)}
}

// String returns the XPath expression.
func (l Locator) String() string {
	return l.expr
}

// Literal quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so a value containing both quote kinds is assembled with concat().
func Literal(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}

	var parts []string
	for i, chunk := range strings.Split(s, `"`) {
		if i > 0 {
			parts = append(parts, `'"'`)
		}
		if chunk != "" {
			parts = append(parts, `"`+chunk+`"`)
		}
	}
	return "concat(" + strings.Join(parts, ", ") + ")"
}
