package settings

import (
	"fmt"
	"strings"
)

// expandPlaceholders substitutes {name} fields from vars. Doubled braces
// produce literal braces. Unknown names and unbalanced braces are errors.
func expandPlaceholders(s string, vars map[string]string) (string, error) {
	if !strings.ContainsAny(s, "{}") {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '{':
			if i+1 < len(s) && s[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(s[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("unmatched '{' in %q", s)
			}
			name := s[i+1 : i+1+end]
			val, ok := vars[name]
			if !ok {
				return "", fmt.Errorf("unknown placeholder {%s} in %q", name, s)
			}
			b.WriteString(val)
			i += end + 1
		case '}':
			if i+1 < len(s) && s[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("single '}' in %q", s)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}
