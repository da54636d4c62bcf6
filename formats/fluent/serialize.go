package fluent

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/l10n-tools/l10nres/model"
)

var (
	attrNameRe  = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)
	referenceRe = regexp.MustCompile(`^-?[a-zA-Z][a-zA-Z0-9_-]*(?:\.[a-zA-Z][a-zA-Z0-9_-]*)?$`)
)

// Serialize writes a message resource as FTL source.
//
// Sections after the first are separated by group comments, which may
// be empty. Metadata has no FTL representation and is an error, except
// for "info" resource metadata, which is written as a leading comment.
func Serialize(resource *model.Resource, trimComments bool) ([]byte, error) {
	var buf bytes.Buffer
	blankBefore := func() {
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
	}
	if !trimComments {
		for _, m := range resource.Meta {
			if m.Key != "info" {
				return nil, fmt.Errorf("unsupported resource metadata %q", m.Key)
			}
			writeCommentBlock(&buf, "#", m.Value)
			buf.WriteByte('\n')
		}
		if resource.Comment != "" {
			blankBefore()
			writeCommentBlock(&buf, "###", resource.Comment)
			buf.WriteByte('\n')
		}
	}
	for i, section := range resource.Sections {
		if len(section.ID) > 0 {
			return nil, fmt.Errorf("unsupported section id %v", section.ID)
		}
		if !trimComments {
			if len(section.Meta) > 0 {
				return nil, fmt.Errorf("unsupported metadata on section")
			}
			if i > 0 || section.Comment != "" {
				blankBefore()
				writeCommentBlock(&buf, "##", section.Comment)
				buf.WriteByte('\n')
			}
		}
		for _, se := range section.Entries {
			switch e := se.(type) {
			case model.Comment:
				if trimComments {
					continue
				}
				blankBefore()
				writeCommentBlock(&buf, "#", e.Comment)
				buf.WriteByte('\n')
			case *model.Entry:
				if err := writeEntry(&buf, e, trimComments); err != nil {
					return nil, err
				}
			}
		}
	}
	return buf.Bytes(), nil
}

func writeCommentBlock(buf *bytes.Buffer, sigil, content string) {
	for _, line := range strings.Split(content, "\n") {
		if line == "" {
			buf.WriteString(sigil + "\n")
		} else {
			buf.WriteString(sigil + " " + line + "\n")
		}
	}
}

func writeEntry(buf *bytes.Buffer, entry *model.Entry, trimComments bool) error {
	if len(entry.ID) != 1 {
		return fmt.Errorf("unsupported entry id %v", entry.ID)
	}
	name := entry.ID[0]
	if !identifierRe.MatchString(name) {
		return fmt.Errorf("invalid message identifier %q", name)
	}
	if !trimComments {
		if len(entry.Meta) > 0 {
			return fmt.Errorf("unsupported metadata on entry %s", name)
		}
		if entry.Comment != "" {
			writeCommentBlock(buf, "#", entry.Comment)
		}
	}
	inline, block, err := messageParts(entry.Value, 4)
	if err != nil {
		return fmt.Errorf("serializing %s: %w", name, err)
	}
	isTerm := strings.HasPrefix(name, "-")
	if inline == "" && block == "" && (isTerm || len(entry.Properties) == 0) {
		inline = `{ "" }`
	}
	switch {
	case inline != "":
		buf.WriteString(name + " = " + inline + "\n")
	case block != "":
		buf.WriteString(name + " =\n" + block)
	default:
		buf.WriteString(name + " =\n")
	}
	for _, prop := range entry.Properties {
		if !attrNameRe.MatchString(prop.Name) {
			return fmt.Errorf("invalid attribute name %q on %s", prop.Name, name)
		}
		inline, block, err := messageParts(prop.Value, 8)
		if err != nil {
			return fmt.Errorf("serializing %s.%s: %w", name, prop.Name, err)
		}
		if inline == "" && block == "" {
			inline = `{ "" }`
		}
		if inline != "" {
			buf.WriteString("    ." + prop.Name + " = " + inline + "\n")
		} else {
			buf.WriteString("    ." + prop.Name + " =\n" + block)
		}
	}
	return nil
}

// messageParts renders a message either as an inline value or as an
// indented block of newline-terminated lines.
func messageParts(msg model.Message, indent int) (string, string, error) {
	switch m := msg.(type) {
	case *model.PatternMessage:
		if len(m.Declarations) > 0 {
			return "", "", fmt.Errorf("declarations are not supported in pattern messages")
		}
		s, err := patternString(m.Pattern)
		if err != nil {
			return "", "", err
		}
		if !strings.Contains(s, "\n") {
			return s, "", nil
		}
		var block strings.Builder
		pad := strings.Repeat(" ", indent)
		for _, line := range strings.Split(s, "\n") {
			block.WriteString(pad + guardLineStart(line) + "\n")
		}
		return "", block.String(), nil
	case *model.SelectMessage:
		block, err := selectBlock(m, indent)
		if err != nil {
			return "", "", err
		}
		return "", block, nil
	}
	return "", "", fmt.Errorf("unsupported message type %T", msg)
}

// guardLineStart protects characters that have syntactic meaning at
// the start of an indented pattern line.
func guardLineStart(line string) string {
	if line != "" && strings.ContainsRune(".*[", rune(line[0])) {
		return `{ "` + line[:1] + `" }` + line[1:]
	}
	return line
}

func patternString(pattern model.Pattern) (string, error) {
	var sb strings.Builder
	for _, part := range pattern {
		switch pt := part.(type) {
		case model.Text:
			writeText(&sb, string(pt))
		case *model.Expression:
			inner, err := exprString(pt)
			if err != nil {
				return "", err
			}
			sb.WriteString("{ " + inner + " }")
		default:
			return "", fmt.Errorf("unsupported pattern part %T", part)
		}
	}
	s := sb.String()
	if s == "" {
		return "", nil
	}
	lead := s[:len(s)-len(strings.TrimLeft(s, " \t\n\r"))]
	s = s[len(lead):]
	trail := ""
	if s != "" {
		trail = s[len(strings.TrimRight(s, " \t\n\r")):]
		s = s[:len(s)-len(trail)]
	}
	if lead != "" {
		s = "{ " + quoteString(lead) + " }" + s
	}
	if trail != "" {
		s += "{ " + quoteString(trail) + " }"
	}
	return s, nil
}

// writeText copies text, wrapping literal braces in placeables.
func writeText(sb *strings.Builder, s string) {
	for _, r := range s {
		switch r {
		case '{':
			sb.WriteString(`{ "{" }`)
		case '}':
			sb.WriteString(`{ "}" }`)
		default:
			sb.WriteRune(r)
		}
	}
}

func selectBlock(msg *model.SelectMessage, indent int) (string, error) {
	if len(msg.Selectors) != 1 || len(msg.Declarations) != 1 {
		return "", fmt.Errorf("only a single selector is supported")
	}
	selName := msg.Selectors[0].Name
	decl, ok := msg.Declarations.Get(selName)
	if !ok {
		return "", fmt.Errorf("missing declaration for selector $%s", selName)
	}
	selector, err := selectorString(decl)
	if err != nil {
		return "", err
	}
	variants := make([]model.Variant, len(msg.Variants))
	copy(variants, msg.Variants)
	sort.SliceStable(variants, func(i, j int) bool {
		a, b := variants[i].Keys[0], variants[j].Keys[0]
		if a.Catchall != b.Catchall {
			return b.Catchall
		}
		an, aok := keyNumber(a.Value)
		bn, bok := keyNumber(b.Value)
		if aok && bok {
			return an < bn
		}
		return aok && !bok
	})

	pad := strings.Repeat(" ", indent)
	var sb strings.Builder
	sb.WriteString(pad + "{ " + selector + " ->\n")
	for _, variant := range variants {
		if len(variant.Keys) != 1 {
			return "", fmt.Errorf("variant key count mismatch")
		}
		key := variant.Keys[0]
		label := key.Value
		if key.Catchall && label == "" {
			label = "other"
		}
		if !identifierRe.MatchString(label) && !numberValRe.MatchString(label) {
			return "", fmt.Errorf("invalid variant key %q", label)
		}
		prefix := pad + "    [" + label + "]"
		if key.Catchall {
			prefix = pad + "   *[" + label + "]"
		}
		ps, err := patternString(variant.Pattern)
		if err != nil {
			return "", err
		}
		if ps == "" {
			ps = `{ "" }`
		}
		if strings.Contains(ps, "\n") {
			sb.WriteString(prefix + "\n")
			inner := strings.Repeat(" ", indent+8)
			for _, line := range strings.Split(ps, "\n") {
				sb.WriteString(inner + guardLineStart(line) + "\n")
			}
		} else {
			sb.WriteString(prefix + " " + ps + "\n")
		}
	}
	sb.WriteString(pad + "}\n")
	return sb.String(), nil
}

func keyNumber(s string) (float64, bool) {
	if !numberValRe.MatchString(s) {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	return n, err == nil
}

// selectorString collapses a plain number or string annotation on a
// variable back to a bare variable reference.
func selectorString(expr *model.Expression) (string, error) {
	if v, ok := expr.Arg.(*model.VariableRef); ok && len(expr.Options) == 0 &&
		(expr.Function == "number" || expr.Function == "string") {
		return "$" + v.Name, nil
	}
	return exprString(expr)
}

func exprString(expr *model.Expression) (string, error) {
	switch expr.Function {
	case "":
		switch arg := expr.Arg.(type) {
		case model.Literal:
			return quoteString(string(arg)), nil
		case *model.VariableRef:
			return "$" + arg.Name, nil
		}
		return "", fmt.Errorf("expression with no operand and no function")
	case "message":
		ref, ok := expr.Arg.(model.Literal)
		if !ok || !referenceRe.MatchString(string(ref)) {
			return "", fmt.Errorf("invalid message reference %v", expr.Arg)
		}
		args, err := callArguments(nil, expr.Options)
		if err != nil {
			return "", err
		}
		return string(ref) + args, nil
	case "number":
		if lit, ok := expr.Arg.(model.Literal); ok &&
			len(expr.Options) == 0 && numberValRe.MatchString(string(lit)) {
			return string(lit), nil
		}
	}
	if !attrNameRe.MatchString(expr.Function) {
		return "", fmt.Errorf("invalid function name %q", expr.Function)
	}
	args, err := callArguments(expr.Arg, expr.Options)
	if err != nil {
		return "", err
	}
	if args == "" {
		args = "()"
	}
	return strings.ToUpper(expr.Function) + args, nil
}

func callArguments(arg model.Operand, options model.Options) (string, error) {
	var parts []string
	if arg != nil {
		s, err := operandString(arg)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	for _, opt := range options {
		if !attrNameRe.MatchString(opt.Name) {
			return "", fmt.Errorf("invalid option name %q", opt.Name)
		}
		s, err := operandString(opt.Value)
		if err != nil {
			return "", err
		}
		parts = append(parts, opt.Name+": "+s)
	}
	if len(parts) == 0 {
		return "", nil
	}
	return "(" + strings.Join(parts, ", ") + ")", nil
}

func operandString(value model.Operand) (string, error) {
	switch v := value.(type) {
	case model.Literal:
		if numberValRe.MatchString(string(v)) {
			return string(v), nil
		}
		return quoteString(string(v)), nil
	case *model.VariableRef:
		return "$" + v.Name, nil
	}
	return "", fmt.Errorf("unsupported operand %T", value)
}

// quoteString writes a string literal, escaping backslashes, quotes,
// and control characters.
func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '\\':
			sb.WriteString(`\\`)
		case r == '"':
			sb.WriteString(`\"`)
		case r < 0x20 || r == 0x7f:
			sb.WriteString(fmt.Sprintf(`\u%04X`, r))
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
