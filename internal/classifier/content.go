package classifier

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding names reported by Decode
const (
	EncodingUTF8        = "utf-8"
	EncodingUTF16LE     = "utf-16le"
	EncodingUTF16BE     = "utf-16be"
	EncodingWindows1252 = "windows-1252"
	EncodingLatin1      = "iso-8859-1"
)

const (
	binarySniffSize     = 8192
	binaryNonPrintLimit = 0.30
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// IsBinaryContent reports whether the first 8 KiB hold a NUL byte or more
// than 30% non-printable control bytes. BOM-marked UTF-16 is text. Bytes
// >= 0x80 count as printable so UTF-8 and legacy 8-bit text pass.
func IsBinaryContent(content []byte) bool {
	sample := content
	if len(sample) > binarySniffSize {
		sample = sample[:binarySniffSize]
	}
	if len(sample) == 0 {
		return false
	}
	if bytes.HasPrefix(sample, bomUTF16LE) || bytes.HasPrefix(sample, bomUTF16BE) {
		return false
	}
	if bytes.IndexByte(sample, 0) >= 0 {
		return true
	}

	nonPrintable := 0
	for _, b := range sample {
		if b == '\t' || b == '\n' || b == '\r' || b == '\f' {
			continue
		}
		if b < 0x20 || b == 0x7f {
			nonPrintable++
		}
	}
	return float64(nonPrintable)/float64(len(sample)) > binaryNonPrintLimit
}

// Decode converts raw file bytes to text and names the detected encoding.
// UTF-8 (with or without BOM) and BOM-marked UTF-16 are recognized; any other
// byte sequence is decoded as windows-1252, falling back to ISO-8859-1.
func Decode(content []byte) (string, string, error) {
	switch {
	case bytes.HasPrefix(content, bomUTF8):
		return string(content[len(bomUTF8):]), EncodingUTF8, nil
	case bytes.HasPrefix(content, bomUTF16LE):
		text, err := decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), content)
		return text, EncodingUTF16LE, err
	case bytes.HasPrefix(content, bomUTF16BE):
		text, err := decodeWith(unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), content)
		return text, EncodingUTF16BE, err
	case utf8.Valid(content):
		return string(content), EncodingUTF8, nil
	}

	if text, err := decodeWith(charmap.Windows1252, content); err == nil {
		return text, EncodingWindows1252, nil
	}
	text, err := decodeWith(charmap.ISO8859_1, content)
	if err != nil {
		return "", "", fmt.Errorf("undecodable content: %w", err)
	}
	return text, EncodingLatin1, nil
}

func decodeWith(enc encoding.Encoding, content []byte) (string, error) {
	out, err := enc.NewDecoder().Bytes(content)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// CountLines returns 0 for empty text, otherwise the number of lines.
// A trailing newline does not start an extra line.
func CountLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}

// Checksum returns the hex SHA-256 of content
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
