package caption

import (
	"bytes"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding names recorded in the catalog for each decoded caption.
const (
	EncodingUTF8    = "utf-8"
	EncodingUTF8BOM = "utf-8-sig"
	EncodingLatin1  = "latin-1"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeCaption decodes caption bytes, trying UTF-8 with BOM, strict UTF-8,
// and finally Latin-1. Latin-1 maps every byte, so the chain always yields
// text; the returned name identifies which decoder succeeded.
func DecodeCaption(data []byte) (string, string, error) {
	if bytes.HasPrefix(data, utf8BOM) && utf8.Valid(data[len(utf8BOM):]) {
		decoded, err := unicode.UTF8BOM.NewDecoder().Bytes(data)
		if err == nil {
			return string(decoded), EncodingUTF8BOM, nil
		}
	}

	if utf8.Valid(data) {
		return string(data), EncodingUTF8, nil
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", fmt.Errorf("failed to decode caption text: %w", err)
	}
	return string(decoded), EncodingLatin1, nil
}

// ReadFile reads a caption file and decodes it through the encoding chain.
func ReadFile(path string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read caption file: %w", err)
	}
	return DecodeCaption(data)
}

// ReadFileUTF8 reads a caption file and requires strict UTF-8 content.
// Used by the strict pipeline, where files in other encodings are skipped.
func ReadFileUTF8(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read caption file: %w", err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("caption file %s is not valid UTF-8", path)
	}
	return string(data), nil
}
