package repair

import (
	"regexp"
	"sort"
	"strings"

	"github.com/jordan/capsule-engine/internal/llm"
)

// latexCommands lists the math commands whose backslashes models most often
// emit unescaped inside JSON strings. `\frac` is an invalid JSON escape and
// breaks parsing; the fix doubles the backslash so the parsed string still
// contains the literal command.
var latexCommands = []string{
	"frac", "sqrt", "sum", "prod", "int", "lim", "infty",
	"alpha", "beta", "gamma", "delta", "epsilon", "theta", "lambda",
	"mu", "pi", "sigma", "omega", "phi", "psi", "rho", "tau",
	"cdot", "times", "div", "pm", "mp",
	"leq", "geq", "neq", "approx", "equiv",
	"rightarrow", "leftarrow", "Rightarrow", "Leftarrow",
	"partial", "nabla", "vec", "hat", "bar", "overline", "underline",
	"text", "mathbb", "mathcal",
	"log", "ln", "sin", "cos", "tan", "binom",
}

var latexRe = buildLatexRe()

func buildLatexRe() *regexp.Regexp {
	cmds := make([]string, len(latexCommands))
	copy(cmds, latexCommands)
	// Longer commands first so `\int` is not matched as `\in` + `t`.
	sort.Slice(cmds, func(i, j int) bool { return len(cmds[i]) > len(cmds[j]) })
	return regexp.MustCompile(`\\{1,2}(` + strings.Join(cmds, "|") + `)`)
}

// FixLaTeXEscapes doubles single backslashes before known LaTeX commands so
// the surrounding JSON parses. Already-escaped commands are left alone, which
// makes the fix idempotent. Backslash sequences that are not known commands
// are untouched.
//
// The command must not be followed by another letter (`\pivot` is not `\pi`),
// but subscripts, digits and braces are valid continuations (`\int_0^1`,
// `\frac{1}{2}`). RE2 has no lookahead, so the boundary is checked against
// the byte after each match instead of with `\b`, which would also treat
// `_` and digits as word characters.
func FixLaTeXEscapes(text string) string {
	matches := latexRe.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + len(matches))
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		b.WriteString(text[last:start])
		match := text[start:end]
		switch {
		case end < len(text) && isASCIILetter(text[end]):
			// Prefix of a longer, unknown command.
			b.WriteString(match)
		case strings.HasPrefix(match, `\\`):
			b.WriteString(match)
		default:
			b.WriteString(`\`)
			b.WriteString(match)
		}
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// StripFences removes markdown code fences around a JSON document and, when
// the model wrapped the document in prose, extracts the first balanced JSON
// object or array.
func StripFences(text string) string {
	s := llm.CleanJSONBlock(text)
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		return s
	}
	if extracted, ok := extractBalanced(s); ok {
		return extracted
	}
	return s
}

// extractBalanced scans for the first '{' or '[' and returns the substring up
// to its matching close bracket, tracking string literals and escapes so
// braces inside strings do not miscount.
func extractBalanced(s string) (string, bool) {
	start := -1
	for i, r := range s {
		if r == '{' || r == '[' {
			start = i
			break
		}
	}
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// StripEmptyArrays removes object keys whose value is an empty array,
// recursing through nested objects and arrays. Models frequently emit
// `"codeExamples": []` for optional fields where the schema expects the key
// to be absent.
func StripEmptyArrays(doc any) any {
	switch v := doc.(type) {
	case map[string]any:
		for key, val := range v {
			if arr, ok := val.([]any); ok && len(arr) == 0 {
				delete(v, key)
				continue
			}
			v[key] = StripEmptyArrays(val)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = StripEmptyArrays(item)
		}
		return v
	default:
		return doc
	}
}
