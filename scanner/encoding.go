package scanner

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"sasaudit/scanerr"

	"github.com/h2non/filetype"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

const sniffLen = 261

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func fallbackDecoder(name string) *encoding.Decoder {
	switch name {
	case "latin1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder()
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder()
	default:
		return nil
	}
}

// decodeText turns raw file content into text. Binary content is always an
// encoding error; invalid UTF-8 is decoded with the fallback charset when one
// is configured.
func decodeText(content []byte, fallback string) (string, error) {
	if len(content) == 0 {
		return "", nil
	}
	sample := content
	if len(sample) > sniffLen {
		sample = sample[:sniffLen]
	}
	if kind, err := filetype.Match(sample); err == nil && kind != filetype.Unknown {
		return "", fmt.Errorf("binary content (%s): %w", kind.MIME.Value, scanerr.ErrEncoding)
	}
	if bytes.IndexByte(content, 0) >= 0 {
		return "", fmt.Errorf("binary content (NUL byte): %w", scanerr.ErrEncoding)
	}

	content = bytes.TrimPrefix(content, utf8BOM)
	if utf8.Valid(content) {
		return string(content), nil
	}
	if dec := fallbackDecoder(fallback); dec != nil {
		decoded, err := dec.Bytes(content)
		if err != nil {
			return "", fmt.Errorf("decode %s: %v: %w", fallback, err, scanerr.ErrEncoding)
		}
		return string(decoded), nil
	}
	return "", fmt.Errorf("invalid UTF-8 at byte offset %d: %w", invalidUTF8Offset(content), scanerr.ErrEncoding)
}

func invalidUTF8Offset(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return -1
}
