package scan

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// QRPrefix marks QR payloads in raw decoder output, one payload per line.
const QRPrefix = "QR-Code:"

// ParseRawOutput parses newline-delimited decoder output into results.
// A line starting with QRPrefix is a QR code with the prefix stripped;
// any other non-empty line is a barcode payload kept verbatim.
// Line order is preserved. Empty output yields an empty slice.
func ParseRawOutput(raw string) []Result {
	lines := strings.Split(raw, "\n")
	results := make([]Result, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		line = ensureUTF8(line)
		if rest, ok := strings.CutPrefix(line, QRPrefix); ok {
			results = append(results, Result{Symbol: SymbolQRCode, Data: rest})
		} else {
			results = append(results, Result{Symbol: SymbolBarcode, Data: line})
		}
	}
	return results
}

// ensureUTF8 reinterprets non-UTF-8 payloads as Latin-1. Subprocess decoders
// emit raw bytes; EAN/Code 128 payloads occasionally carry high-bit characters.
func ensureUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return decoded
}
