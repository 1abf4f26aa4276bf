package ingest

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Candidate encoding names, in the fixed fallback order used when the
// preferred encoding does not decode. The legacy single-byte candidates are
// ordered strict-to-lenient: windows-1252 rejects its five undefined bytes,
// iso-8859-1 rejects the C1 control range, and iso-8859-15 accepts any byte
// so the retry list always terminates with a decodable candidate.
const (
	EncodingUTF8        = "utf-8"
	EncodingWindows1252 = "windows-1252"
	EncodingISO88591    = "iso-8859-1"
	EncodingISO885915   = "iso-8859-15"
)

var fallbackEncodings = []string{
	EncodingUTF8,
	EncodingWindows1252,
	EncodingISO88591,
	EncodingISO885915,
}

// encodingCandidates returns the ordered encoding trial list: the preferred
// name first, then the fixed fallbacks, de-duplicated.
func encodingCandidates(preferred string) []string {
	out := make([]string, 0, len(fallbackEncodings)+1)
	seen := make(map[string]struct{}, len(fallbackEncodings)+1)

	add := func(name string) {
		name = canonicalEncodingName(name)
		if name == "" {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	add(preferred)
	for _, name := range fallbackEncodings {
		add(name)
	}
	return out
}

// canonicalEncodingName folds common aliases onto the candidate constants.
// Unknown names are returned trimmed and lowered; decode rejects them later
// so the attempt list shows what the caller asked for.
func canonicalEncodingName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return ""
	case "utf-8", "utf8":
		return EncodingUTF8
	case "windows-1252", "cp1252", "cp-1252":
		return EncodingWindows1252
	case "iso-8859-1", "iso8859-1", "latin-1", "latin1":
		return EncodingISO88591
	case "iso-8859-15", "iso8859-15", "latin-9", "latin9":
		return EncodingISO885915
	default:
		return strings.ToLower(strings.TrimSpace(name))
	}
}

// cp1252Undefined are the Windows-1252 byte values with no assigned
// character. Their presence means the file is not really cp1252 text.
var cp1252Undefined = [...]byte{0x81, 0x8d, 0x8f, 0x90, 0x9d}

// decode converts raw file bytes to UTF-8 text using the named encoding.
//
// Strictness rules (per candidate) keep the fallback order meaningful;
// x/text charmap decoders never error on single-byte input, so without these
// checks the first legacy candidate would swallow everything:
//   - utf-8: the byte stream must already be valid UTF-8.
//   - windows-1252: rejects the five undefined byte values.
//   - iso-8859-1: rejects the C1 control range 0x80..0x9f, which never
//     occurs in legitimate Latin-1 text.
//   - iso-8859-15: accepts any input (terminal fallback).
func decode(data []byte, name string) ([]byte, error) {
	switch name {
	case EncodingUTF8:
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("not valid utf-8")
		}
		// Strip a leading BOM; the csv layer only strips it from the first
		// header cell and the HTML path should not see it at all.
		return bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), nil

	case EncodingWindows1252:
		for _, b := range cp1252Undefined {
			if i := bytes.IndexByte(data, b); i >= 0 {
				return nil, fmt.Errorf("undefined cp1252 byte 0x%02x at offset %d", b, i)
			}
		}
		return charmap.Windows1252.NewDecoder().Bytes(data)

	case EncodingISO88591:
		for i, b := range data {
			if b >= 0x80 && b <= 0x9f {
				return nil, fmt.Errorf("C1 control byte 0x%02x at offset %d", b, i)
			}
		}
		return charmap.ISO8859_1.NewDecoder().Bytes(data)

	case EncodingISO885915:
		return charmap.ISO8859_15.NewDecoder().Bytes(data)

	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}
