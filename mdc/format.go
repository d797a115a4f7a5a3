package mdc

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Format renders values according to format. Each outermost brace pair in
// format whose contents are not blank is a key: "{key}" is replaced with
// "key=value", where value is empty if the key is missing from values.
// Unbalanced braces are left as they are. If format contains no keys, Format
// returns "".
//
//	Format("{key1} {key3}", map[string]any{"key1": "value1"})
//	// key1=value1 key3=
func Format(format string, values map[string]any) string {
	tokens := keys(format)
	if len(tokens) == 0 {
		return ""
	}

	pairs := make([]string, 0, 2*len(tokens))
	for _, tok := range tokens {
		name := strings.TrimSpace(tok[1 : len(tok)-1])
		pairs = append(pairs, tok, name+"="+stringify(values[name]))
	}

	return strings.NewReplacer(pairs...).Replace(format)
}

// Pairs renders every value as "key=value", sorted by key and separated by a
// space.
func Pairs(values map[string]any) string {
	parts := make([]string, 0, len(values))
	for _, k := range slices.Sorted(maps.Keys(values)) {
		parts = append(parts, k+"="+stringify(values[k]))
	}

	return strings.Join(parts, " ")
}

// keys returns the distinct outermost "{...}" tokens in format, in order of
// appearance. A closing brace with no open brace is ignored, and a closing
// brace that matches a nested opening brace only pops the stack.
func keys(format string) []string {
	var (
		stack  []int
		tokens []string
	)

	for i, r := range format {
		switch r {
		case '{':
			stack = append(stack, i)

		case '}':
			switch len(stack) {
			case 0:
				continue
			case 1:
				tok := format[stack[0] : i+1]
				stack = stack[:0]

				if strings.Trim(tok[1:len(tok)-1], "\n \t") == "" {
					continue
				}

				if !slices.Contains(tokens, tok) {
					tokens = append(tokens, tok)
				}
			default:
				stack = stack[:len(stack)-1]
			}
		}
	}

	return tokens
}

func stringify(v any) string {
	if v == nil {
		return ""
	}

	if s, ok := v.(string); ok {
		return s
	}

	return fmt.Sprint(v)
}
