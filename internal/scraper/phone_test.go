package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	ch := locales["CH"]
	de := locales["DE"]
	us := locales["US"]

	tests := []struct {
		name string
		raw  string
		loc  Locale
		want string
	}{
		{"swiss national", "044 224 46 46", ch, "+41 44 224 46 46"},
		{"swiss international", "+41 44 224 46 46", ch, "+41 44 224 46 46"},
		{"swiss 00 prefix", "0041 44 224 46 46", ch, "+41 44 224 46 46"},
		{"swiss with punctuation", "044/224.46.46", ch, "+41 44 224 46 46"},
		{"german national", "030 12345678", de, "+49 301 2345 678"},
		{"nbsp separators", "+41 44 224 46 46", ch, "+41 44 224 46 46"},
		{"empty", "", ch, ""},
		{"us default", "2125551234", us, "+1 212 555 1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.raw, tt.loc))
		})
	}
}
