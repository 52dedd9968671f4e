package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeSubject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "Your sign-in code", "Your sign-in code"},
		{"base64 utf-8", "=?UTF-8?B?TmV0ZmxpeDogY8OzZGlnbw==?=", "Netflix: código"},
		{"adjacent words in mixed charsets", "=?ISO-8859-1?Q?Caf=E9?= =?UTF-8?Q?_code?=", "Café code"},
		{"koi8-r", "=?KOI8-R?B?68/EINfIz8TB?=", "Код входа"},
		{"broken word left as is", "=?UTF-8?B?###?=", "=?UTF-8?B?###?="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeSubject(tt.raw))
		})
	}
}

func TestMatchSubject(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		pattern string
		want    bool
	}{
		{"containment ignores case", "Your NETFLIX Temporary Access Code", "temporary access code", true},
		{"fuzzy three of three", "Netflix: your temporary-access code", "netflix temporary access", true},
		{"fuzzy two of three", "Netflix: your temporary sign-in code", "netflix temporary access", false},
		{"short tokens are ignored", "Netflix code", "a new netflix code for you", true},
		{"only short tokens", "anything", "a b c", false},
		{"empty subject", "", "code", false},
		{"empty pattern", "code", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchSubject(tt.subject, tt.pattern))
		})
	}
}
