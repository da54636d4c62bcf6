// Package android reads and writes Android strings.xml resource files.
//
// Android string resources contain several kinds of localizable values:
// entity declarations inserted into other strings during XML parsing,
// strings with printf-style variables and "quote" escaping, and strings
// with inline HTML contents that cannot include variables. Messages are
// found in <string>, <string-array>, and <plurals> elements, each of
// which needs different parsing.
//
// For more information, see:
// https://developer.android.com/guide/topics/resources/string-resource
package android

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/l10n-tools/l10nres/formats"
	"github.com/l10n-tools/l10nres/model"
)

var pluralCategories = []string{"zero", "one", "two", "few", "many", "other"}

func isPluralCategory(s string) bool {
	for _, c := range pluralCategories {
		if s == c {
			return true
		}
	}
	return false
}

var (
	xmlNamePattern = regexp.MustCompile(`^[:A-Z_a-z][-.0-9:A-Z_a-z]*$`)
	entityPattern  = regexp.MustCompile(`&([A-Za-z_][-.0-9A-Za-z_]*);`)
	entityDecl     = regexp.MustCompile(`<!ENTITY\s+([^\s"]+)\s+"([^"]*)"\s*>`)
	resourceRef    = regexp.MustCompile(`^(?:@(?:\w+:)?\w+/\w+|\?(?:\w+:)?(?:\w+/)?\w+)$`)
	quotedPattern  = regexp.MustCompile(`(?s)"(.*?)"`)
	asciiSpaces    = regexp.MustCompile(`[\t\n\f\r ]+`)
	unicodeSpaces  = regexp.MustCompile(`[\s\x{0085}\x{00a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}]+`)
	inlinePattern  = regexp.MustCompile(
		"(\x00)|" +
			`\\([@?nt'"])|` +
			`\\u([0-9]{4})|` +
			`(<[^%>]+>)|` +
			`(%(?:([1-9])\$)?[-#+ 0,(]?[0-9.]*([a-su-zA-SU-Z%]|[tT][a-zA-Z]))`,
	)
)

// ParseOptions configures Parse.
type ParseOptions struct {
	// AsciiSpaces limits whitespace collapsing to ASCII spaces,
	// leaving non-breaking and other Unicode spaces intact.
	AsciiSpaces bool
}

type attribute struct {
	name  string
	value string
}

type element struct {
	name     string
	attrs    []attribute
	children []child
}

type childKind int

const (
	childText childKind = iota
	childElement
	childComment
)

type child struct {
	kind childKind
	text string
	el   *element
}

// Parse parses an Android strings.xml file into a message resource.
//
// Internal DOCTYPE entity declarations are included as messages in an
// "!ENTITY" section. Resource and entry XML attributes are parsed as
// metadata. All XML, Android, and printf escapes are unescaped except
// for %n, which has a platform-dependent meaning.
func Parse(source []byte, opts ParseOptions) (*model.Resource, error) {
	root, preComments, doctype, err := parseDocument(source)
	if err != nil {
		return nil, err
	}
	if root == nil || root.name != "resources" {
		return nil, fmt.Errorf("unsupported root node")
	}

	res := &model.Resource{Format: formats.Android}
	if len(preComments) > 0 {
		res.Comment = commentStr(preComments)
	}
	for _, a := range root.attrs {
		res.Meta = append(res.Meta, model.Metadata{Key: a.name, Value: a.value})
	}

	if doctype != "" {
		entities := &model.Section{ID: model.ID{"!ENTITY"}}
		for _, m := range entityDecl.FindAllStringSubmatch(doctype, -1) {
			value := &model.PatternMessage{}
			value.Pattern = parseEntityValue(xmlUnescape(m[2]))
			entities.Entries = append(entities.Entries, &model.Entry{
				ID: model.ID{m[1]}, Value: value,
			})
		}
		if len(entities.Entries) > 0 {
			res.Sections = append(res.Sections, entities)
		}
	}

	section := &model.Section{}
	res.Sections = append(res.Sections, section)

	var comment []string
	for i, c := range root.children {
		switch c.kind {
		case childText:
			if strings.TrimSpace(c.text) != "" {
				return nil, fmt.Errorf("unexpected text in resource: %q", c.text)
			}
			// A blank line after comments separates them from the
			// following entry, making them standalone.
			if strings.Count(c.text, "\n") > 1 && len(comment) > 0 && followsComment(root.children, i) {
				section.Entries = append(section.Entries, model.Comment{Comment: commentStr(comment)})
				comment = nil
			}
		case childComment:
			comment = append(comment, c.text)
		case childElement:
			el := c.el
			name := attrValue(el.attrs, "name")
			if name == "" {
				return nil, fmt.Errorf("unnamed %s entry", el.name)
			}
			var meta model.Meta
			for _, a := range el.attrs {
				if a.name != "name" {
					meta = append(meta, model.Metadata{Key: a.name, Value: a.value})
				}
			}
			switch el.name {
			case "string":
				pattern, err := parsePattern(el, opts)
				if err != nil {
					return nil, err
				}
				section.Entries = append(section.Entries, &model.Entry{
					ID:      model.ID{name},
					Value:   &model.PatternMessage{Pattern: pattern},
					Comment: commentStr(comment),
					Meta:    meta,
				})
			case "plurals":
				value, extra, err := parsePlurals(name, el, opts)
				if err != nil {
					return nil, err
				}
				comment = append(comment, extra...)
				section.Entries = append(section.Entries, &model.Entry{
					ID:      model.ID{name},
					Value:   value,
					Comment: commentStr(comment),
					Meta:    meta,
				})
			case "string-array":
				idx := 0
				var itemComment []string
				for _, ic := range el.children {
					switch ic.kind {
					case childText:
						if strings.TrimSpace(ic.text) != "" {
							return nil, fmt.Errorf("unexpected text in %s string-array: %q", name, ic.text)
						}
					case childComment:
						itemComment = append(itemComment, ic.text)
					case childElement:
						if ic.el.name != "item" {
							return nil, fmt.Errorf("unsupported %s string-array child: <%s>", name, ic.el.name)
						}
						pattern, err := parsePattern(ic.el, opts)
						if err != nil {
							return nil, err
						}
						fullComment := comment
						fullComment = append(fullComment, itemComment...)
						section.Entries = append(section.Entries, &model.Entry{
							ID:      model.ID{name, strconv.Itoa(idx)},
							Value:   &model.PatternMessage{Pattern: pattern},
							Comment: commentStr(fullComment),
							Meta:    append(model.Meta{}, meta...),
						})
						comment = nil
						itemComment = nil
						idx++
					}
				}
			default:
				return nil, fmt.Errorf("unsupported entry: <%s>", el.name)
			}
			comment = nil
		}
	}
	return res, nil
}

func followsComment(children []child, i int) bool {
	return i > 0 && children[i-1].kind == childComment
}

// ParseMessage parses a single string value in its strings.xml
// representation.
func ParseMessage(source string, opts ParseOptions) (*model.PatternMessage, error) {
	wrapped := "<string>" + source + "</string>"
	root, _, _, err := parseDocument([]byte(wrapped))
	if err != nil {
		return nil, err
	}
	pattern, err := parsePattern(root, opts)
	if err != nil {
		return nil, err
	}
	return &model.PatternMessage{Pattern: pattern}, nil
}

func parseDocument(source []byte) (*element, []string, string, error) {
	d := xml.NewDecoder(bytes.NewReader(source))
	d.Strict = false
	var preComments []string
	var doctype string
	nsPrefix := map[string]string{}
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return nil, preComments, doctype, nil
		}
		if err != nil {
			return nil, nil, "", err
		}
		switch t := tok.(type) {
		case xml.Comment:
			preComments = append(preComments, string(t))
		case xml.Directive:
			doctype = string(t)
		case xml.StartElement:
			root, err := parseElement(d, t, nsPrefix)
			if err != nil {
				return nil, nil, "", err
			}
			return root, preComments, doctype, nil
		}
	}
}

func parseElement(d *xml.Decoder, start xml.StartElement, nsPrefix map[string]string) (*element, error) {
	el := &element{name: start.Name.Local}
	for _, a := range start.Attr {
		if a.Name.Space == "xmlns" {
			nsPrefix[a.Value] = a.Name.Local
		}
	}
	for _, a := range start.Attr {
		el.attrs = append(el.attrs, attribute{name: attrName(a.Name, nsPrefix), value: a.Value})
	}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return el, nil
		case xml.CharData:
			text := string(t)
			if n := len(el.children); n > 0 && el.children[n-1].kind == childText {
				el.children[n-1].text += text
			} else {
				el.children = append(el.children, child{kind: childText, text: text})
			}
		case xml.Comment:
			el.children = append(el.children, child{kind: childComment, text: string(t)})
		case xml.StartElement:
			sub, err := parseElement(d, t, nsPrefix)
			if err != nil {
				return nil, err
			}
			el.children = append(el.children, child{kind: childElement, el: sub})
		}
	}
}

func attrName(name xml.Name, nsPrefix map[string]string) string {
	switch {
	case name.Space == "":
		return name.Local
	case name.Space == "xmlns":
		return "xmlns:" + name.Local
	default:
		if prefix, ok := nsPrefix[name.Space]; ok {
			return prefix + ":" + name.Local
		}
		return name.Space + ":" + name.Local
	}
}

func attrValue(attrs []attribute, name string) string {
	for _, a := range attrs {
		if a.name == name {
			return a.value
		}
	}
	return ""
}

var alignedComment = regexp.MustCompile(`^ .+(\n   - .*)+ $`)

// commentStr joins XML comment bodies into comment text, stripping the
// per-line indentation that aligns continuation dashes under the
// opening "<!--".
func commentStr(body []string) string {
	var lines []string
	for _, comment := range body {
		if comment == "" {
			continue
		}
		if alignedComment.MatchString(comment) {
			lines = append(lines, strings.Trim(strings.ReplaceAll(comment, "\n   - ", "\n"), " "))
		} else {
			var trimmed []string
			for _, line := range strings.Split(comment, "\n") {
				trimmed = append(trimmed, strings.TrimSpace(line))
			}
			lines = append(lines, strings.Trim(strings.Join(trimmed, "\n"), "\n"))
		}
	}
	return strings.Trim(strings.Join(lines, "\n\n"), "\n")
}

func parseEntityValue(src string) model.Pattern {
	var out model.Pattern
	pos := 0
	for _, m := range entityPattern.FindAllStringSubmatchIndex(src, -1) {
		if m[0] > pos {
			out = out.AppendText(src[pos:m[0]])
		}
		out = append(out, entityExpression(src[m[2]:m[3]]))
		pos = m[1]
	}
	if pos < len(src) {
		out = out.AppendText(src[pos:])
	}
	return out
}

func entityExpression(name string) *model.Expression {
	return &model.Expression{Arg: &model.VariableRef{Name: name}, Function: "entity"}
}

func parsePlurals(name string, el *element, opts ParseOptions) (*model.SelectMessage, []string, error) {
	msg := &model.SelectMessage{
		Declarations: model.Declarations{
			{Name: "quantity", Value: &model.Expression{
				Arg: &model.VariableRef{Name: "quantity"}, Function: "number",
			}},
		},
		Selectors: []model.VariableRef{{Name: "quantity"}},
	}
	var comment []string
	var varComment []string
	for _, c := range el.children {
		switch c.kind {
		case childText:
			if strings.TrimSpace(c.text) != "" {
				return nil, nil, fmt.Errorf("unexpected text in %s plurals: %q", name, c.text)
			}
		case childComment:
			varComment = append(varComment, c.text)
		case childElement:
			if c.el.name != "item" {
				return nil, nil, fmt.Errorf("unsupported %s plurals child: <%s>", name, c.el.name)
			}
			quantity := attrValue(c.el.attrs, "quantity")
			if !isPluralCategory(quantity) {
				return nil, nil, fmt.Errorf("invalid quantity for %s plurals item: %q", name, quantity)
			}
			if len(varComment) > 0 {
				// Comments on non-initial variants are prefixed with
				// their plural category.
				for _, vc := range varComment {
					if len(msg.Variants) > 0 {
						if vc != "" {
							comment = append(comment, fmt.Sprintf("%s: %s", quantity, vc))
						}
					} else {
						comment = append(comment, vc)
					}
				}
				varComment = nil
			}
			pattern, err := parsePattern(c.el, opts)
			if err != nil {
				return nil, nil, err
			}
			key := model.Key{Value: quantity}
			if quantity == "other" {
				key = model.Catchall(quantity)
			}
			msg.Variants = append(msg.Variants, model.Variant{
				Keys: []model.Key{key}, Pattern: pattern,
			})
		}
	}
	return msg, comment, nil
}

// parsePattern parses the contents of a <string> or <item> element.
// Elements with markup children are passed through without Android
// escape processing; plain contents are unquoted, space-collapsed, and
// scanned for escapes, entity references, and printf placeholders.
func parsePattern(el *element, opts ParseOptions) (model.Pattern, error) {
	hasMarkup := false
	for _, c := range el.children {
		if c.kind == childElement {
			hasMarkup = true
			break
		}
	}
	if hasMarkup {
		var out model.Pattern
		for _, c := range el.children {
			var err error
			if out, err = appendElementContent(out, c); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	var text strings.Builder
	for _, c := range el.children {
		if c.kind == childText {
			text.WriteString(c.text)
		}
	}
	src := text.String()
	if resourceRef.MatchString(src) {
		return model.Pattern{&model.Expression{
			Arg: model.Literal(src), Function: "reference",
		}}, nil
	}

	// Entity references are replaced with a NUL sentinel before space
	// collapsing, as NUL is unrepresentable in XML.
	var entities []*model.Expression
	src = entityPattern.ReplaceAllStringFunc(src, func(ref string) string {
		entities = append(entities, entityExpression(ref[1:len(ref)-1]))
		return "\x00"
	})
	if src == "" {
		return nil, nil
	}
	src = collapseSpaces(src, opts.AsciiSpaces)
	return parseInline(src, entities)
}

func appendElementContent(out model.Pattern, c child) (model.Pattern, error) {
	switch c.kind {
	case childText:
		pos := 0
		for _, m := range entityPattern.FindAllStringSubmatchIndex(c.text, -1) {
			if m[0] > pos {
				out = out.AppendText(c.text[pos:m[0]])
			}
			out = append(out, entityExpression(c.text[m[2]:m[3]]))
			pos = m[1]
		}
		if pos < len(c.text) {
			out = out.AppendText(c.text[pos:])
		}
	case childElement:
		markup := &model.Markup{Kind: model.MarkupOpen, Name: c.el.name}
		for _, a := range c.el.attrs {
			markup.Options = append(markup.Options, model.Option{
				Name: a.name, Value: model.Literal(a.value),
			})
		}
		out = append(out, markup)
		for _, sub := range c.el.children {
			var err error
			if out, err = appendElementContent(out, sub); err != nil {
				return nil, err
			}
		}
		out = append(out, &model.Markup{Kind: model.MarkupClose, Name: c.el.name})
	}
	return out, nil
}

// collapseSpaces collapses whitespace runs to a single space outside
// "double quoted" parts, and drops the quotes.
func collapseSpaces(src string, ascii bool) string {
	spaces := unicodeSpaces
	if ascii {
		spaces = asciiSpaces
	}
	var out strings.Builder
	pos := 0
	for _, m := range findUnescapedQuotes(src) {
		out.WriteString(spaces.ReplaceAllString(src[pos:m[0]], " "))
		out.WriteString(src[m[2]:m[3]])
		pos = m[1]
	}
	if pos < len(src) {
		out.WriteString(spaces.ReplaceAllString(src[pos:], " "))
	}
	return out.String()
}

// findUnescapedQuotes matches "quoted" spans whose quotes are not
// preceded by a backslash.
func findUnescapedQuotes(src string) [][]int {
	var out [][]int
	for _, m := range quotedPattern.FindAllStringSubmatchIndex(src, -1) {
		if (m[0] > 0 && src[m[0]-1] == '\\') || (m[1] >= 2 && src[m[1]-2] == '\\') {
			continue
		}
		out = append(out, m)
	}
	return out
}

func parseInline(src string, entities []*model.Expression) (model.Pattern, error) {
	var out model.Pattern
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = out.AppendText(cur.String())
			cur.Reset()
		}
	}
	pos := 0
	for _, m := range inlinePattern.FindAllStringSubmatchIndex(src, -1) {
		cur.WriteString(src[pos:m[0]])
		pos = m[1]
		switch {
		case m[2] >= 0:
			// XML entity sentinel
			flush()
			out = append(out, entities[0])
			entities = entities[1:]
		case m[4] >= 0:
			// Special character
			switch src[m[4]:m[5]] {
			case "n":
				cur.WriteString("\n")
			case "t":
				cur.WriteString("\t")
			default:
				cur.WriteString(src[m[4]:m[5]])
			}
		case m[6] >= 0:
			// Decimal unicode escape
			n, _ := strconv.Atoi(src[m[6]:m[7]])
			cur.WriteRune(rune(n))
		case m[8] >= 0:
			// Escaped HTML element, e.g. &lt;b>
			flush()
			out = append(out, &model.Expression{
				Arg: model.Literal(src[m[8]:m[9]]), Function: "html",
			})
		default:
			source := src[m[10]:m[11]]
			conversion := src[m[14]:m[15]]
			flush()
			if conversion == "%" {
				out = append(out, &model.Expression{
					Arg:        model.Literal("%"),
					Attributes: model.Attributes{}.String("source", source),
				})
				continue
			}
			// Variables are named by their positional index; unnumbered
			// placeholders share the name "arg".
			name := "arg"
			if m[12] >= 0 {
				name += src[m[12]:m[13]]
			}
			exp := &model.Expression{
				Arg:        &model.VariableRef{Name: name},
				Attributes: model.Attributes{}.String("source", source),
			}
			switch {
			case conversion == "b" || conversion == "B":
				exp.Function = "boolean"
			case conversion == "c" || conversion == "C" || conversion == "s" || conversion == "S":
				exp.Function = "string"
			case strings.ContainsAny(conversion[:1], "dhHoxX"):
				exp.Function = "integer"
			case strings.ContainsAny(conversion[:1], "aAeEfgG"):
				exp.Function = "number"
			case conversion[0] == 't' || conversion[0] == 'T':
				exp.Function = "datetime"
			}
			out = append(out, exp)
		}
	}
	if cur.Len() > 0 || pos < len(src) {
		out = out.AppendText(cur.String() + src[pos:])
	}
	return out, nil
}

func xmlUnescape(s string) string {
	return strings.NewReplacer(
		"&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&#37;", "%", "&amp;", "&",
	).Replace(s)
}
