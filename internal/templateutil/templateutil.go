// Package templateutil provides shared template helper functions for use across
// different template loading contexts (handlers, middleware, etc.).
package templateutil

import (
	"fmt"
	"html/template"
	"time"
)

// FormatBytes formats a byte count into human-readable units (B, KB, MB, etc.).
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatTime renders t as a short local timestamp, or "" for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

// SanitizeID converts a string into a safe HTML element ID.
// It replaces spaces and non-alphanumeric characters (except hyphen and underscore)
// with underscores, and prefixes with "id-" to ensure the ID starts with a letter.
func SanitizeID(s string) string {
	var result []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}
	return "id-" + string(result)
}

// Language is an option in the chat language picker.
type Language struct {
	Code string
	Name string
}

var languages = []Language{
	{"en", "English"},
	{"fr", "Français"},
	{"es", "Español"},
	{"de", "Deutsch"},
	{"it", "Italiano"},
	{"pt", "Português"},
	{"nl", "Nederlands"},
	{"hi", "हिन्दी"},
	{"ja", "日本語"},
	{"zh", "中文"},
}

// Languages returns the languages offered in the chat UI.
func Languages() []Language {
	return append([]Language(nil), languages...)
}

// LangName returns the display name for code, or code itself when unknown.
func LangName(code string) string {
	for _, l := range languages {
		if l.Code == code {
			return l.Name
		}
	}
	return code
}

// FuncMap returns a template.FuncMap with all the standard template helpers.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"formatBytes": FormatBytes,
		"formatTime":  FormatTime,
		"sanitizeID":  SanitizeID,
		"languages":   Languages,
		"langName":    LangName,
	}
}
