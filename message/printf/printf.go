// Package printf parses C, Java, and Python printf format strings into
// message patterns, turning each conversion specifier into an expression
// placeholder.
package printf

import (
	"regexp"

	"github.com/l10n-tools/l10nres/model"
)

// Groups: 1 positional argument number, 2 python named argument,
// 3 java date/time conversion, 4 conversion type.
var pattern = regexp.MustCompile(
	`%(?:([1-9])\$|\(([\w.]+)\))?[-#+ 0,]?[0-9.]*(?:([Tt][A-Za-z]+)|(?:(?:hh?|ll?|[Lzjq])?([@%A-Za-z])))`,
)

// Parse splits src into literal text and expression placeholders, one per
// printf conversion. The %% escape becomes a literal "%" expression, and
// every placeholder records its exact source text in a "source" attribute.
func Parse(src string) model.Pattern {
	var out model.Pattern
	pos := 0
	for _, m := range pattern.FindAllStringSubmatchIndex(src, -1) {
		if m[0] > pos {
			out = append(out, model.Text(src[pos:m[0]]))
		}
		source := src[m[0]:m[1]]
		pos = m[1]
		argnum := group(src, m, 1)
		argname := group(src, m, 2)
		datetime := group(src, m, 3)
		conv := group(src, m, 4)

		if conv == "%" {
			out = append(out, &model.Expression{
				Arg:        model.Literal("%"),
				Attributes: model.Attributes{}.String("source", source),
			})
			continue
		}

		var fn string
		switch {
		case datetime != "":
			fn = "datetime"
		case conv == "c" || conv == "C" || conv == "s" || conv == "S":
			fn = "string"
		case integerConv(conv):
			fn = "integer"
		case numberConv(conv):
			fn = "number"
		default:
			fn = "printf"
		}
		name := argname
		if name == "" {
			name = "arg" + argnum
		}
		out = append(out, &model.Expression{
			Arg:        &model.VariableRef{Name: name},
			Function:   fn,
			Attributes: model.Attributes{}.String("source", source),
		})
	}
	if pos < len(src) {
		out = append(out, model.Text(src[pos:]))
	}
	return out
}

func group(src string, m []int, n int) string {
	if m[2*n] < 0 {
		return ""
	}
	return src[m[2*n]:m[2*n+1]]
}

func integerConv(conv string) bool {
	switch conv {
	case "d", "D", "o", "O", "p", "u", "U", "x", "X":
		return true
	}
	return false
}

func numberConv(conv string) bool {
	switch conv {
	case "a", "A", "e", "E", "f", "F", "g", "G":
		return true
	}
	return false
}
