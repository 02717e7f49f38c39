package charset

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/charmap"
)

// Canonical encoding labels. The detector's verdict is mapped onto this
// closed set; anything unknown or low-confidence is treated as UTF-8.
const (
	EncodingUTF8        = "utf-8"
	EncodingISO88591    = "iso-8859-1"
	EncodingWindows1252 = "windows-1252"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode turns raw CSV bytes into Unicode text. It strips a UTF-8 BOM when
// present, detects the byte encoding, and decodes without folding or case
// changes. Original characters are preserved verbatim.
func Decode(b []byte) (text string, encoding string, bomRemoved bool, err error) {
	if bytes.HasPrefix(b, utf8BOM) {
		b = b[len(utf8BOM):]
		bomRemoved = true
	}

	encoding = detect(b)

	switch encoding {
	case EncodingISO88591:
		text, err = decodeCharmap(b, charmap.ISO8859_1)
	case EncodingWindows1252:
		text, err = decodeCharmap(b, charmap.Windows1252)
	default:
		text, err = decodeUTF8(b)
	}
	if err != nil {
		// Last resort: strict UTF-8. A second failure is fatal to the upload.
		text, err = decodeUTF8(b)
		if err != nil {
			return "", encoding, bomRemoved, fmt.Errorf("encoding_error: %w", err)
		}
		encoding = EncodingUTF8
	}

	return text, encoding, bomRemoved, nil
}

// detect runs the byte-level detector and maps its verdict to a canonical
// label. Valid UTF-8 input short-circuits: the statistical detector can
// misread short UTF-8 samples as a legacy charset.
func detect(b []byte) string {
	if len(b) == 0 || utf8.Valid(b) {
		return EncodingUTF8
	}

	result, err := chardet.NewTextDetector().DetectBest(b)
	if err != nil || result == nil || result.Confidence < 30 {
		return EncodingUTF8
	}

	switch strings.ToLower(result.Charset) {
	case "iso-8859-1", "iso-8859-15":
		return EncodingISO88591
	case "windows-1252":
		return EncodingWindows1252
	case "utf-8":
		return EncodingUTF8
	default:
		// Non-UTF-8 bytes with an out-of-set verdict: ISO-8859-1 decodes any
		// byte sequence, which matches the upstream sources (Excel exports).
		return EncodingISO88591
	}
}

func decodeCharmap(b []byte, cm *charmap.Charmap) (string, error) {
	decoded, err := cm.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func decodeUTF8(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", fmt.Errorf("invalid UTF-8 byte sequence")
	}
	return string(b), nil
}
