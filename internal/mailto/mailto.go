// Package mailto builds mailto: URLs from a recipient and query parameters.
package mailto

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/shineum/supermail/internal/email"
)

// Param is a single query parameter. Value may be nil, a scalar or a
// slice/array.
type Param struct {
	Name  string
	Value any
}

// Href returns "mailto:<to>" followed by the query of params, if any. The
// recipient is not escaped.
func Href(to string, params ...Param) string {
	q := Query(params...)
	if q == "" {
		return "mailto:" + to
	}
	return "mailto:" + to + "?" + q
}

// Query encodes params in the given order, dropping nil values and empty
// sequences.
func Query(params ...Param) string {
	pairs := make([]string, 0, len(params))
	for _, p := range params {
		if absent(p.Value) {
			continue
		}
		pairs = append(pairs, p.Name+"="+escape(p.Value))
	}
	return strings.Join(pairs, "&")
}

// FromFields builds an href from a field set. The first To address is the
// primary recipient; the rest go to a "to" parameter. Parameters follow
// the order to, from, cc, bcc, subject, body. Empty strings are absent.
//
// A from, cc or bcc list with one address is passed as a plain string, so
// it renders as cc=x rather than cc=["x"]. Longer lists use the sequence
// form. The extra "to" parameter always uses the sequence form.
func FromFields(m email.Mailer) string {
	f := m.Fields()

	var primary string
	var extraTo []string
	if len(f.To) > 0 {
		primary, extraTo = f.To[0], f.To[1:]
	}

	return Href(primary,
		Param{"to", extraTo},
		Param{"from", single(f.From)},
		Param{"cc", single(f.Cc)},
		Param{"bcc", single(f.Bcc)},
		Param{"subject", optional(f.Subject)},
		Param{"body", optional(f.TextBody)},
	)
}

// escape renders v as a string and percent-encodes it for a query
// component. Encoded spaces are "%20", never "+"; a literal plus sign is
// "%2B".
func escape(v any) string {
	return strings.ReplaceAll(url.QueryEscape(render(v)), "+", "%20")
}

// render converts a value to its string form. Sequences use their literal
// form, e.g. ["a@example.com", "b@example.com"].
func render(v any) string {
	if v == nil {
		return "nil"
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "nil"
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 && rv.Kind() == reflect.Slice {
			return string(rv.Bytes())
		}
		items := make([]string, rv.Len())
		for i := range items {
			items[i] = renderElem(rv.Index(i))
		}
		return "[" + strings.Join(items, ", ") + "]"
	case reflect.String:
		return rv.String()
	}
	return fmt.Sprint(rv.Interface())
}

func renderElem(rv reflect.Value) string {
	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "nil"
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.String {
		return strconv.Quote(rv.String())
	}
	return render(rv.Interface())
}

// absent reports whether a parameter value is dropped from the query.
func absent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map:
		return rv.IsNil()
	case reflect.Slice, reflect.Array:
		return rv.Len() == 0
	}
	return false
}

// single unwraps one-element lists so they encode as plain addresses.
func single(addrs []string) any {
	switch len(addrs) {
	case 0:
		return nil
	case 1:
		return addrs[0]
	}
	return addrs
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}
