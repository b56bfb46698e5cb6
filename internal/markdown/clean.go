// Package markdown repairs and escapes chat markdown before rendering.
//
// Telegram's Markdown parser rejects the whole message on a single bad
// entity, so content authored by hand is normalized here: well-formed
// links are preserved verbatim, common malformed link shapes are
// repaired, and stray formatting characters are escaped.
package markdown

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	linkRe        = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	spacedLinkRe  = regexp.MustCompile(`\[([^\]]+)\s+\(([^)]+)\)\]`)
	bracketTailRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\]`)
	capsLinkRe    = regexp.MustCompile(`([A-Z][A-Z ]*)\s+\((https?://[^\s)]+)\)`)
	tokenRe       = regexp.MustCompile(`__LINK_\d+__`)
)

// Clean normalizes text for markdown rendering. It is pure and
// idempotent: cleaning already-clean text changes nothing. Any internal
// failure returns the input unmodified.
func Clean(text string) (out string) {
	out = text
	defer func() {
		if r := recover(); r != nil {
			out = text
		}
	}()
	return clean(text)
}

func clean(text string) string {
	var links []string
	extract := func(s string) string {
		return linkRe.ReplaceAllStringFunc(s, func(m string) string {
			links = append(links, m)
			return fmt.Sprintf("__LINK_%d__", len(links)-1)
		})
	}

	// Pull well-formed links out of harm's way first.
	text = extract(text)

	// Repair the two malformed shapes: "[label (url)]" and "[label](url]".
	text = spacedLinkRe.ReplaceAllString(text, "[$1]($2)")
	text = bracketTailRe.ReplaceAllString(text, "[$1]($2)")

	// Upgrade bare ALLCAPS references to a URL into proper links. The
	// label stops at a newline and sheds any trailing spaces.
	text = capsLinkRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := capsLinkRe.FindStringSubmatch(m)
		return "[" + strings.TrimRight(sub[1], " ") + "](" + sub[2] + ")"
	})

	// Repaired and upgraded spans are links now too; protect them before
	// the escape pass.
	text = extract(text)

	text = escapeOutsideTokens(text)

	// Restore every placeholder to its original link text.
	for i, link := range links {
		text = strings.ReplaceAll(text, fmt.Sprintf("__LINK_%d__", i), link)
	}
	return text
}

// escapeOutsideTokens escapes "_" and "*" everywhere except inside link
// placeholder tokens. Characters that already carry a backslash are left
// alone, which is what makes Clean idempotent.
func escapeOutsideTokens(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/8)

	last := 0
	for _, span := range tokenRe.FindAllStringIndex(text, -1) {
		escapeInto(&b, text[last:span[0]])
		b.WriteString(text[span[0]:span[1]])
		last = span[1]
	}
	escapeInto(&b, text[last:])
	return b.String()
}

func escapeInto(b *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c == '_' || c == '*') && (i == 0 || s[i-1] != '\\') {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
}
