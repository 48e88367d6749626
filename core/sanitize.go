package core

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// SanitizeText reduces value to a single line of plain text: markup is
// stripped, control characters dropped and whitespace runs collapsed.
func SanitizeText(value string) string {
	if value == "" {
		return ""
	}
	if !utf8.ValidString(value) {
		value = strings.ToValidUTF8(value, "")
	}
	text := value
	if strings.ContainsAny(value, "<>") {
		text = stripMarkup(value)
	}
	var b strings.Builder
	space := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsControl(r):
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

func stripMarkup(value string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(value))
	var b strings.Builder
	skip := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skip++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(tokenizer.Raw())
			}
		}
	}
}

// SanitizeURL returns value only when it is an absolute http(s) URL.
func SanitizeURL(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	parsed, err := url.Parse(value)
	if err != nil || parsed.Host == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		return parsed.String()
	default:
		return ""
	}
}

func readAnyString(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return fmt.Sprintf("%.0f", typed)
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

// sanitizeTokenPayload maps a decoded token response into a TokenSet.
func sanitizeTokenPayload(payload map[string]any) TokenSet {
	return TokenSet{
		AccessToken:  SanitizeText(readAnyString(payload["access_token"])),
		RefreshToken: SanitizeText(readAnyString(payload["refresh_token"])),
		Signature:    SanitizeText(readAnyString(payload["signature"])),
		ID:           SanitizeText(readAnyString(payload["id"])),
		IssuedAt:     SanitizeText(readAnyString(payload["issued_at"])),
		InstanceURL:  SanitizeURL(readAnyString(payload["instance_url"])),
	}
}
