// Package keys builds result cache keys.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// Prefix is shared by every result key so a Redis instance can be shared.
const Prefix = "h3c:v1"

// Key identifies the result of running op with canonical params over body.
// The readable params part is normalised and truncated; the hash covers the
// exact params so keys stay distinct.
func Key(op, params string, body []byte) string {
	opNorm := sanitizeForKey(strings.TrimSpace(op))
	paramText := collapseASCIIWhitespace(params)
	paramSafe := sanitizeForKey(paramText)

	const maxParamTextLen = 160
	if len(paramSafe) > maxParamTextLen {
		paramSafe = paramSafe[:maxParamTextLen]
	}

	return fmt.Sprintf("%s:%s:p=%s:ph=%016x:b=%016x:n=%d",
		Prefix, opNorm, paramSafe, xxhash.Sum64String(params), xxhash.Sum64(body), len(body))
}

func sanitizeForKey(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-' || r == '=' || r == '.' || r == ',':
			out = r
		default:
			// Any other rune (including ':' and non-ASCII) becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

// converts any run of ASCII whitespace to a single space.
func collapseASCIIWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	wasWS := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f' {
			if !wasWS {
				b.WriteByte(' ')
				wasWS = true
			}
			continue
		}
		b.WriteRune(r)
		wasWS = false
	}
	return strings.TrimSpace(b.String())
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}
