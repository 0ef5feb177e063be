package probe

import "strings"

const upperhex = "0123456789ABCDEF"

// requote percent-encodes bytes that cannot appear raw in a request
// target, leaving valid escapes and URL delimiters alone. A '%' not
// followed by two hex digits becomes "%25". Payloads such as "' OR '1'='1"
// carry spaces and LIKE payloads carry bare '%' that would otherwise break
// the request.
func requote(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if keepRaw(c) || (c == '%' && isEscape(s[i:])) {
			if b.Len() > 0 {
				b.WriteByte(c)
			}
			continue
		}
		if b.Len() == 0 {
			b.Grow(len(s) + 8)
			b.WriteString(s[:i])
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	if b.Len() == 0 {
		return s
	}
	return b.String()
}

// isEscape reports whether s starts with a well-formed "%XX" escape.
func isEscape(s string) bool {
	return len(s) >= 3 && s[0] == '%' && isHex(s[1]) && isHex(s[2])
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func keepRaw(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-._~!#$&'()*+,/:;=?@[]", c) >= 0
}
