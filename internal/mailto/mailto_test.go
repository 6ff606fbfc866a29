package mailto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shineum/supermail/internal/email"
)

func TestHref(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		to     string
		params []Param
		want   string
	}{
		{
			name: "minimal",
			to:   "test@example.com",
			want: "mailto:test@example.com",
		},
		{
			name: "all parameters",
			to:   "recipient@example.com",
			params: []Param{
				{"from", "sender@example.com"},
				{"cc", "cc@example.com"},
				{"bcc", "bcc@example.com"},
				{"subject", "Test Subject"},
				{"body", "Test body content"},
			},
			want: "mailto:recipient@example.com?from=sender%40example.com&cc=cc%40example.com" +
				"&bcc=bcc%40example.com&subject=Test%20Subject&body=Test%20body%20content",
		},
		{
			name: "nil parameters",
			to:   "test@example.com",
			params: []Param{
				{"from", nil},
				{"subject", "Hello"},
				{"cc", nil},
			},
			want: "mailto:test@example.com?subject=Hello",
		},
		{
			name:   "empty array",
			to:     "test@example.com",
			params: []Param{{"cc", []string{}}},
			want:   "mailto:test@example.com",
		},
		{
			name: "recipient not escaped",
			to:   "test+tag@example.com",
			params: []Param{
				{"subject", "Hello & Welcome!"},
				{"body", "Line 1\nLine 2"},
			},
			want: "mailto:test+tag@example.com?subject=Hello%20%26%20Welcome%21&body=Line%201%0ALine%202",
		},
		{
			name:   "multiple cc",
			to:     "test@example.com",
			params: []Param{{"cc", []string{"cc1@example.com", "cc2@example.com"}}},
			want:   "mailto:test@example.com?cc=%5B%22cc1%40example.com%22%2C%20%22cc2%40example.com%22%5D",
		},
		{
			name:   "multiple bcc",
			to:     "test@example.com",
			params: []Param{{"bcc", []string{"bcc1@example.com", "bcc2@example.com"}}},
			want:   "mailto:test@example.com?bcc=%5B%22bcc1%40example.com%22%2C%20%22bcc2%40example.com%22%5D",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Href(tt.to, tt.params...))
		})
	}
}

func TestHref_Unicode(t *testing.T) {
	t.Parallel()

	got := Href("test@example.com", Param{"subject", "Héllo Wørld! 🎉"})

	assert.True(t, strings.HasPrefix(got, "mailto:test@example.com?subject="))
	assert.Contains(t, got, "H%C3%A9llo")
	assert.Contains(t, got, "W%C3%B8rld")
	assert.Contains(t, got, "%F0%9F%8E%89")
}

func TestQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		params []Param
		want   string
	}{
		{"no parameters", nil, ""},
		{"all nil", []Param{{"subject", nil}, {"body", nil}}, ""},
		{"simple", []Param{{"subject", "Hello"}, {"body", "World"}}, "subject=Hello&body=World"},
		{
			"nil dropped",
			[]Param{{"subject", "Hello"}, {"from", nil}, {"body", "World"}},
			"subject=Hello&body=World",
		},
		{
			"special characters",
			[]Param{{"subject", "Hello & Goodbye"}, {"body", "Line 1\nLine 2"}},
			"subject=Hello%20%26%20Goodbye&body=Line%201%0ALine%202",
		},
		{
			"empty arrays dropped",
			[]Param{{"subject", "Test"}, {"cc", []string{}}, {"bcc", []string{}}, {"from", "test@example.com"}},
			"subject=Test&from=test%40example.com",
		},
		{
			"empty arrays, nils and empty string",
			[]Param{{"subject", "Test"}, {"cc", []string{}}, {"bcc", nil}, {"from", "test@example.com"}, {"body", ""}},
			"subject=Test&from=test%40example.com&body=",
		},
		{
			"order preserved",
			[]Param{{"subject", "S"}, {"cc", "c@example.com"}, {"bcc", "b@example.com"}},
			"subject=S&cc=c%40example.com&bcc=b%40example.com",
		},
		{
			"nil slice dropped",
			[]Param{{"cc", []string(nil)}, {"subject", "S"}},
			"subject=S",
		},
		{
			"nil pointer dropped",
			[]Param{{"subject", (*string)(nil)}, {"body", "B"}},
			"body=B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Query(tt.params...))
		})
	}
}

func TestQuery_MixedTypes(t *testing.T) {
	t.Parallel()

	got := Query(
		Param{"subject", "Test"},
		Param{"cc", []string{"test1@example.com", "test2@example.com"}},
		Param{"from", nil},
		Param{"body", ""},
	)

	assert.Contains(t, got, "subject=Test")
	assert.Contains(t, got, "cc=%5B%22test1%40example.com%22%2C%20%22test2%40example.com%22%5D")
	assert.Contains(t, got, "body=")
	assert.NotContains(t, got, "from=")
}

func TestEscape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"space", "Hello World", "Hello%20World"},
		{"plus sign", "test+tag@example.com", "test%2Btag%40example.com"},
		{"special email characters", "user+tag@example.com", "user%2Btag%40example.com"},
		{"newline", "Line 1\nLine 2", "Line%201%0ALine%202"},
		{"crlf", "Line 1\r\nLine 2", "Line%201%0D%0ALine%202"},
		{"ampersand", "Hello & Goodbye", "Hello%20%26%20Goodbye"},
		{"exclamation", "Hi!", "Hi%21"},
		{"percent", "50% off", "50%25%20off"},
		{"integer", 123, "123"},
		{"boolean", true, "true"},
		{"empty", "", ""},
		{"unreserved kept", "a-b_c.d~e", "a-b_c.d~e"},
		{"integer slice", []int{1, 2}, "%5B1%2C%202%5D"},
		{"nested slice", []any{"a", []string{"b"}, nil}, "%5B%22a%22%2C%20%5B%22b%22%5D%2C%20nil%5D"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, escape(tt.in))
		})
	}
}

func TestEscape_Unicode(t *testing.T) {
	t.Parallel()

	assert.Contains(t, escape("Héllo 🎉"), "H%C3%A9llo")
}

func TestFromFields(t *testing.T) {
	t.Parallel()

	f := email.New(
		email.To("a@example.com"),
		email.From("sender@example.com"),
		email.Cc("cc1@example.com", "cc2@example.com"),
		email.Subject("Hi there"),
		email.Text("Body"),
	)

	got := FromFields(f)

	assert.Equal(t,
		"mailto:a@example.com?from=sender%40example.com"+
			"&cc=%5B%22cc1%40example.com%22%2C%20%22cc2%40example.com%22%5D"+
			"&subject=Hi%20there&body=Body",
		got)
}

func TestFromFields_ExtraRecipientsAndDefaults(t *testing.T) {
	t.Parallel()

	f := email.New(email.To("a@example.com", "b@example.com"))

	assert.Equal(t, "mailto:a@example.com?to=%5B%22b%40example.com%22%5D", FromFields(f))
	assert.Equal(t, "mailto:only@example.com", FromFields(email.New(email.To("only@example.com"))))
}

func TestFromFields_SingleAddressListsAreScalars(t *testing.T) {
	t.Parallel()

	f := email.New(
		email.To("a@example.com", "b@example.com"),
		email.Cc("cc@example.com"),
		email.Bcc("bcc@example.com"),
	)

	assert.Equal(t,
		"mailto:a@example.com?to=%5B%22b%40example.com%22%5D"+
			"&cc=cc%40example.com&bcc=bcc%40example.com",
		FromFields(f))
}
