package utils

import "strings"

// textXPath selects elements owning a text node that contains text
func textXPath(text string) string {
	return "//*[contains(text(), " + xpathLiteral(text) + ")]"
}

// xpathLiteral quotes s as an XPath 1.0 string literal. XPath has no
// escapes, so a value with both quote kinds is built with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	parts := strings.Split(s, "'")
	quoted := make([]string, len(parts))
	for i, part := range parts {
		quoted[i] = "'" + part + "'"
	}
	return "concat(" + strings.Join(quoted, `, "'", `) + ")"
}
