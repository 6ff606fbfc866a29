package compose

import "strings"

// Field is a single header field.
type Field struct {
	Name  string
	Value string
}

// Header is an ordered header block holding at most one field per name.
// Names compare case-insensitively.
type Header struct {
	fields []Field
}

// Set replaces the value of the named field, keeping its position, or
// appends a new field.
func (h *Header) Set(name, value string) {
	for i := range h.fields {
		if strings.EqualFold(h.fields[i].Name, name) {
			h.fields[i] = Field{Name: name, Value: value}
			return
		}
	}
	h.fields = append(h.fields, Field{Name: name, Value: value})
}

// Get returns the value of the named field or "".
func (h *Header) Get(name string) string {
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Has reports whether the named field is present.
func (h *Header) Has(name string) bool {
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

// Fields returns a copy of the fields in order.
func (h *Header) Fields() []Field {
	return append([]Field(nil), h.fields...)
}
