package android

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/l10n-tools/l10nres/model"
)

// SerializeOptions configures Serialize.
type SerializeOptions struct {
	// TrimComments drops all comments from the output.
	TrimComments bool
}

// Serialize writes a resource as an Android strings.xml file.
//
// Section comments and metadata are not supported. Resource and entry
// metadata become XML attributes. Messages in an "!ENTITY" section are
// emitted in a DOCTYPE declaration; other sections must be anonymous.
//
// Multi-part message identifiers are only supported for <string-array>
// values, for which the second part must be an ordered integer index.
func Serialize(resource *model.Resource, opts SerializeOptions) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	if resource.Comment != "" && !opts.TrimComments {
		buf.WriteString("\n<!--" + commentBody(resource.Comment, 0) + "-->\n\n")
	}

	var entities strings.Builder
	var body bytes.Buffer

	inArray := ""
	closeArray := func() {
		if inArray != "" {
			body.WriteString("\n  </string-array>")
			inArray = ""
		}
	}

	for _, section := range resource.Sections {
		if len(section.Meta) > 0 {
			return nil, fmt.Errorf("section metadata is not supported")
		}
		if len(section.ID) > 0 {
			if len(section.ID) == 1 && section.ID[0] == "!ENTITY" {
				for _, se := range section.Entries {
					entry, ok := se.(*model.Entry)
					if !ok {
						continue
					}
					decl, err := entityDefinition(entry)
					if err != nil {
						return nil, err
					}
					entities.WriteString("\n  " + decl)
				}
				continue
			}
			return nil, fmt.Errorf("unsupported section id: %v", section.ID)
		}
		if section.Comment != "" && !opts.TrimComments {
			closeArray()
			body.WriteString("\n  <!--" + commentBody(section.Comment, 2) + "-->\n")
		}

		for _, se := range section.Entries {
			entry, ok := se.(*model.Entry)
			if !ok {
				if !opts.TrimComments {
					indent := 2
					if inArray != "" {
						indent = 4
					}
					pad := strings.Repeat(" ", indent)
					body.WriteString("\n" + pad + "<!--" + commentBody(se.(model.Comment).Comment, indent) + "-->\n")
				}
				continue
			}
			if len(entry.ID) < 1 || len(entry.ID) > 2 {
				return nil, fmt.Errorf("unsupported entry id: %v", entry.ID)
			}
			name := entry.ID[0]
			if !xmlNamePattern.MatchString(name) {
				return nil, fmt.Errorf("invalid entry name: %q", name)
			}
			if len(entry.ID) == 1 {
				closeArray()
				if entry.Comment != "" && !opts.TrimComments {
					body.WriteString("\n  <!--" + commentBody(entry.Comment, 2) + "-->")
				}
				if sel, ok := entry.Value.(*model.SelectMessage); ok {
					body.WriteString("\n  <plurals" + attribString(name, entry.Meta) + ">")
					if err := writePlurals(&body, sel); err != nil {
						return nil, fmt.Errorf("serializing %s: %w", name, err)
					}
					body.WriteString("\n  </plurals>")
				} else {
					content, err := patternContent(entry.Value)
					if err != nil {
						return nil, fmt.Errorf("serializing %s: %w", name, err)
					}
					body.WriteString("\n  <string" + attribString(name, entry.Meta) + ">" + content + "</string>")
				}
			} else {
				idx, err := strconv.Atoi(entry.ID[1])
				if err != nil {
					return nil, fmt.Errorf("unsupported entry id: %v", entry.ID)
				}
				if inArray != name {
					closeArray()
					if idx != 0 {
						return nil, fmt.Errorf("string-array keys must be ordered: %v", entry.ID)
					}
					body.WriteString("\n  <string-array" + attribString(name, entry.Meta) + ">")
					inArray = name
				}
				if entry.Comment != "" && !opts.TrimComments {
					body.WriteString("\n    <!--" + commentBody(entry.Comment, 4) + "-->")
				}
				content, err := patternContent(entry.Value)
				if err != nil {
					return nil, fmt.Errorf("serializing %s: %w", name, err)
				}
				body.WriteString("\n    <item>" + content + "</item>")
			}
		}
	}
	closeArray()

	if entities.Len() > 0 {
		buf.WriteString("<!DOCTYPE resources [" + entities.String() + "\n]>\n")
	}
	buf.WriteString("<resources")
	for _, m := range resource.Meta {
		buf.WriteString(" " + m.Key + "=\"" + escapeAttr(m.Value) + "\"")
	}
	if body.Len() == 0 {
		buf.WriteString(">\n</resources>\n")
	} else {
		buf.WriteString(">")
		buf.Write(body.Bytes())
		buf.WriteString("\n</resources>\n")
	}
	return buf.Bytes(), nil
}

// SerializeMessage writes a single message in its strings.xml
// representation.
func SerializeMessage(msg model.Message) (string, error) {
	return patternContent(msg)
}

func attribString(name string, meta model.Meta) string {
	var out strings.Builder
	out.WriteString(" name=\"" + escapeAttr(name) + "\"")
	for _, m := range meta {
		if m.Key == "name" {
			continue
		}
		out.WriteString(" " + m.Key + "=\"" + escapeAttr(m.Value) + "\"")
	}
	return out.String()
}

// commentBody writes comment text, padding multi-line content to the
// given indent. Double dashes are split with zero width spaces, as "--"
// is not valid inside an XML comment.
func commentBody(content string, indent int) string {
	cc := strings.TrimSpace(content)
	cc = strings.ReplaceAll(cc, "--", "-\u200b-\u200b")
	if !strings.Contains(cc, "\n") {
		return " " + cc + " "
	}
	sp := strings.Repeat(" ", indent+2)
	var lines []string
	for _, line := range strings.Split(cc, "\n") {
		if line == "" {
			lines = append(lines, "")
		} else {
			lines = append(lines, sp+line)
		}
	}
	return "\n" + strings.Join(lines, "\n") + "\n" + strings.Repeat(" ", indent)
}

func entityDefinition(entry *model.Entry) (string, error) {
	if len(entry.ID) != 1 || !xmlNamePattern.MatchString(entry.ID[0]) {
		return "", fmt.Errorf("invalid entity identifier: %v", entry.ID)
	}
	pm, ok := entry.Value.(*model.PatternMessage)
	if !ok || len(pm.Declarations) > 0 {
		return "", fmt.Errorf("unsupported entity value: %v", entry.Value)
	}
	var value strings.Builder
	for _, part := range pm.Pattern {
		switch p := part.(type) {
		case model.Text:
			value.WriteString(escapeEntityValue(string(p)))
		case *model.Expression:
			ref, ok := entityRefName(p)
			if !ok || !xmlNamePattern.MatchString(ref) {
				return "", fmt.Errorf("unsupported entity part: %v", part)
			}
			value.WriteString("&" + ref + ";")
		default:
			return "", fmt.Errorf("unsupported entity part: %v", part)
		}
	}
	return "<!ENTITY " + entry.ID[0] + " \"" + value.String() + "\">", nil
}

// escapeEntityValue escapes characters not allowed in XML EntityValue text.
func escapeEntityValue(s string) string {
	return strings.NewReplacer("&", "&amp;", "%", "&#37;", `"`, "&quot;").Replace(s)
}

func entityRefName(expr *model.Expression) (string, bool) {
	if expr.Function != "entity" {
		return "", false
	}
	if ref, ok := expr.Arg.(*model.VariableRef); ok && ref.Name != "" {
		return ref.Name, true
	}
	return "", false
}

func writePlurals(buf *bytes.Buffer, msg *model.SelectMessage) error {
	if len(msg.Selectors) != 1 || len(msg.Declarations) != 1 {
		return fmt.Errorf("unsupported plural selectors")
	}
	sels, err := msg.SelectorExpressions()
	if err != nil {
		return err
	}
	if sels[0].Function != "number" {
		return fmt.Errorf("unsupported plural selector annotation")
	}
	for _, v := range msg.Variants {
		if len(v.Keys) != 1 {
			return fmt.Errorf("unsupported plural variant keys: %v", v.Keys)
		}
		key := v.Keys[0].Value
		if v.Keys[0].Catchall && key == "" {
			key = "other"
		}
		if !isPluralCategory(key) {
			return fmt.Errorf("unsupported plural variant key: %q", key)
		}
		content, err := serializePattern(v.Pattern)
		if err != nil {
			return err
		}
		buf.WriteString("\n    <item quantity=\"" + key + "\">" + content + "</item>")
	}
	return nil
}

func patternContent(msg model.Message) (string, error) {
	pm, ok := msg.(*model.PatternMessage)
	if !ok || len(pm.Declarations) > 0 {
		return "", fmt.Errorf("unsupported message: %v", msg)
	}
	return serializePattern(pm.Pattern)
}

// serializePattern writes pattern contents as XML text. Patterns with
// markup are emitted as nested elements without Android escaping; plain
// patterns are Android-escaped as a single string, with entity
// references spliced in.
func serializePattern(pattern model.Pattern) (string, error) {
	hasMarkup := false
	for _, part := range pattern {
		if _, ok := part.(*model.Markup); ok {
			hasMarkup = true
			break
		}
	}
	if hasMarkup {
		return serializeMarkupPattern(pattern)
	}

	// A resource reference is emitted raw, as escaping its leading
	// @ or ? would change its meaning.
	if len(pattern) == 1 {
		if exp, ok := pattern[0].(*model.Expression); ok && exp.Function == "reference" {
			if lit, ok := exp.Arg.(model.Literal); ok && resourceRef.MatchString(string(lit)) {
				return string(lit), nil
			}
		}
	}

	// Build the string with NUL as a sentinel for entities, so that
	// escaping and quote detection see the whole string at once.
	var src strings.Builder
	var entities []string
	for _, part := range pattern {
		switch p := part.(type) {
		case model.Text:
			text := string(p)
			for i := strings.Count(text, "\x00"); i > 0; i-- {
				entities = append(entities, `\u0000`)
			}
			src.WriteString(text)
		case *model.Expression:
			if ref, ok := entityRefName(p); ok {
				entities = append(entities, "&"+ref+";")
				src.WriteString("\x00")
				continue
			}
			// The source attribute keeps the exact placeholder spelling
			// from parse time.
			if source, ok := p.Attributes.Source(); ok {
				src.WriteString(source)
				continue
			}
			switch arg := p.Arg.(type) {
			case model.Literal:
				src.WriteString(string(arg))
			case *model.VariableRef:
				src.WriteString(arg.Name)
			default:
				return "", fmt.Errorf("unsupported expression: %v", part)
			}
		default:
			return "", fmt.Errorf("unsupported pattern part: %v", part)
		}
	}
	res := escapeString(src.String())
	if len(entities) > 0 {
		parts := strings.Split(res, "\x00")
		var out strings.Builder
		out.WriteString(escapeText(parts[0]))
		for i, ent := range entities {
			out.WriteString(ent)
			out.WriteString(escapeText(parts[i+1]))
		}
		return out.String(), nil
	}
	return escapeText(res), nil
}

func serializeMarkupPattern(pattern model.Pattern) (string, error) {
	var out strings.Builder
	var stack []string
	for _, part := range pattern {
		switch p := part.(type) {
		case model.Text:
			out.WriteString(escapeText(string(p)))
		case *model.Expression:
			ref, ok := entityRefName(p)
			if !ok {
				return "", fmt.Errorf("unsupported expression with markup: %v", part)
			}
			out.WriteString("&" + ref + ";")
		case *model.Markup:
			switch p.Kind {
			case model.MarkupOpen, model.MarkupStandalone:
				out.WriteString("<" + p.Name)
				for _, opt := range p.Options {
					lit, ok := opt.Value.(model.Literal)
					if !ok {
						return "", fmt.Errorf("unsupported markup with variable option: %v", part)
					}
					out.WriteString(" " + opt.Name + "=\"" + escapeAttr(string(lit)) + "\"")
				}
				if p.Kind == model.MarkupStandalone {
					out.WriteString("/>")
				} else {
					out.WriteString(">")
					stack = append(stack, p.Name)
				}
			case model.MarkupClose:
				if len(stack) == 0 || stack[len(stack)-1] != p.Name {
					return "", fmt.Errorf("improper element nesting for %s", p.Name)
				}
				stack = stack[:len(stack)-1]
				out.WriteString("</" + p.Name + ">")
			}
		}
	}
	if len(stack) > 0 {
		return "", fmt.Errorf("unclosed element <%s>", stack[len(stack)-1])
	}
	return out.String(), nil
}

// escapeString applies Android escaping to a plain string value,
// wrapping it in double quotes when it contains repeated spaces or
// apostrophes.
func escapeString(src string) string {
	var out strings.Builder
	for _, r := range src {
		switch r {
		case '\\':
			out.WriteString(`\u0092`)
		case '@':
			out.WriteString(`\@`)
		case '?':
			out.WriteString(`\?`)
		case '\n':
			out.WriteString(`\n`)
		case '\t':
			out.WriteString(`\t`)
		case '"':
			out.WriteString(`\"`)
		case 0:
			out.WriteRune(r)
		default:
			if (r >= 0x01 && r <= 0x19) || (r >= 0x7f && r <= 0x9f) || isOddSpace(r) {
				out.WriteString(fmt.Sprintf(`\u%04d`, r))
			} else {
				out.WriteRune(r)
			}
		}
	}
	res := out.String()
	if strings.Contains(res, "  ") || strings.Contains(res, "'") {
		return "\"" + res + "\""
	}
	return res
}

// isOddSpace reports non-space whitespace, which is escaped as it is
// hard to see in XML.
func isOddSpace(r rune) bool {
	switch r {
	case '\v', '\f', 0x85, 0xa0, 0x1680, 0x2028, 0x2029, 0x202f, 0x205f, 0x3000:
		return true
	}
	return r >= 0x2000 && r <= 0x200a
}

func escapeText(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;").Replace(s)
}

func escapeAttr(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", `"`, "&quot;").Replace(s)
}
