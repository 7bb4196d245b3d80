package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses whitespace", "  hello \n\n\t world  ", "hello world"},
		{"strips controls", "a\x00b\x07c\x1bd", "abcd"},
		{"drops replacement char", "bro\ufffdken", "broken"},
		{"keeps arabic", "بسم  الله\nالرحمن", "بسم الله الرحمن"},
		{"keeps bidi marks", "abc\u200fdef", "abc\u200fdef"},
		{"normalizes to NFC", "cafe\u0301", "caf\u00e9"},
		{"empty", "", ""},
		{"only whitespace", " \n\t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}
