package common

import "strings"

// ProjectSlug lowers a destination project name and replaces spaces with
// hyphens so "Widget Factory" compares equal to the repository "widget-factory".
func ProjectSlug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}

// SameName reports whether two destination names match case-insensitively.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
