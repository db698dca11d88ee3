package ingest

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// windowsDeviceNames are reserved on Windows regardless of extension.
var windowsDeviceNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// SanitizeFilename reduces an uploaded file name to a safe flat name made of
// ASCII letters, digits, '_', '.' and '-'. Accented letters are decomposed and
// their base letter kept, path separators and whitespace runs become a single
// '_', and leading or trailing dots and underscores are removed. The result
// may be empty.
func SanitizeFilename(name string) string {
	var ascii strings.Builder
	for _, r := range norm.NFKD.String(name) {
		switch {
		case r == '/' || r == '\\':
			ascii.WriteByte(' ')
		case r <= unicode.MaxASCII:
			ascii.WriteRune(r)
		}
	}

	joined := strings.Join(strings.Fields(ascii.String()), "_")

	var b strings.Builder
	for _, r := range joined {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}

	cleaned := strings.Trim(b.String(), "._")
	if cleaned != "" {
		base, _, _ := strings.Cut(cleaned, ".")
		if windowsDeviceNames[strings.ToUpper(base)] {
			cleaned = "_" + cleaned
		}
	}
	return cleaned
}

// extension returns the lowercased text after the last '.', or "" when the
// name has none.
func extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}
