package xliff

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/l10n-tools/l10nres/model"
)

// SerializeOptions adjusts the behavior of Serialize.
type SerializeOptions struct {
	// TrimComments leaves out all comments.
	TrimComments bool
}

// xnode is a node of the output tree: xtext, xcomment, or *xelem.
type xnode interface {
	xliffNode()
}

type xtext string

type xcomment string

type xelem struct {
	name     string
	attrs    []attribute
	children []xnode
}

func (xtext) xliffNode()    {}
func (xcomment) xliffNode() {}
func (*xelem) xliffNode()   {}

func sub(parent *xelem, name string, attrs ...attribute) *xelem {
	el := &xelem{name: name, attrs: attrs}
	parent.children = append(parent.children, el)
	return el
}

func find(el *xelem, name string) *xelem {
	for _, c := range el.children {
		if sub, ok := c.(*xelem); ok && sub.name == name {
			return sub
		}
	}
	return nil
}

func insertAfter(parent *xelem, ref, node xnode) {
	for i, c := range parent.children {
		if c == ref {
			rest := append([]xnode{node}, parent.children[i+1:]...)
			parent.children = append(parent.children[:i+1:i+1], rest...)
			return
		}
	}
	parent.children = append(parent.children, node)
}

func insertBefore(parent *xelem, ref, node xnode) {
	for i, c := range parent.children {
		if c == ref {
			rest := append([]xnode{node}, parent.children[i:]...)
			parent.children = append(parent.children[:i:i], rest...)
			return
		}
	}
	parent.children = append(parent.children, node)
}

// setText replaces the leading text of an element, keeping its other
// children in place.
func (el *xelem) setText(text string) {
	if len(el.children) > 0 {
		if _, ok := el.children[0].(xtext); ok {
			el.children[0] = xtext(text)
			return
		}
	}
	el.children = append([]xnode{xtext(text)}, el.children...)
}

func (el *xelem) textContent() string {
	var out strings.Builder
	for _, c := range el.children {
		if text, ok := c.(xtext); ok {
			out.WriteString(string(text))
		}
	}
	return out.String()
}

// Serialize writes a resource as an XLIFF 1.2 file.
//
// Sections identify files and groups within them, with the first
// identifier part written as the <file> "original" attribute, and later
// parts as <group> "id" attributes. Metadata keys encode XML element
// data with the XPath-like keys documented for Parse.
//
// Select messages are only supported in .stringsdict files, and their
// structure must closely match that generated by Parse.
func Serialize(resource *model.Resource, opts SerializeOptions) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	if resource.Comment != "" && !opts.TrimComments {
		buf.WriteString("\n<!--" + commentBody(resource.Comment, 0) + "-->\n\n")
	}

	var nsAttrs, attrs []attribute
	for _, m := range resource.Meta {
		switch {
		case m.Key == "@xmlns" || strings.HasPrefix(m.Key, "@xmlns:"):
			nsAttrs = append(nsAttrs, attribute{name: m.Key[1:], value: m.Value})
		case strings.HasPrefix(m.Key, "@"):
			attrs = append(attrs, attribute{name: m.Key[1:], value: m.Value})
		default:
			return nil, fmt.Errorf("unsupported root metadata key: %s", m.Key)
		}
	}
	root := &xelem{name: "xliff", attrs: append(nsAttrs, attrs...)}

	prev := map[string]*xelem{}
	containers := map[*xelem]*xelem{}
	for _, section := range resource.Sections {
		if len(section.ID) == 0 {
			return nil, fmt.Errorf("anonymous sections are not supported")
		}
		if _, dup := prev[sectionKey(section.ID)]; dup {
			return nil, fmt.Errorf("duplicate section identifier: %v", section.ID)
		}
		parentKey := section.ID
		for len(parentKey) > 0 {
			if _, ok := prev[sectionKey(parentKey)]; ok {
				break
			}
			parentKey = parentKey[:len(parentKey)-1]
		}
		parent := root
		if len(parentKey) > 0 {
			parent = prev[sectionKey(parentKey)]
		}
		cur := append(model.ID{}, parentKey...)
		for _, part := range section.ID[len(parentKey):] {
			cur = append(cur, part)
			if parent == root {
				file := sub(root, "file", attribute{name: "original", value: part})
				if err := assignMetadata(file, section.Meta, opts.TrimComments, ""); err != nil {
					return nil, err
				}
				body := sub(file, "body")
				containers[body] = file
				parent = body
			} else {
				group := sub(parent, "group", attribute{name: "id", value: part})
				if err := assignMetadata(group, section.Meta, opts.TrimComments, ""); err != nil {
					return nil, err
				}
				containers[group] = parent
				parent = group
			}
			prev[sectionKey(cur)] = parent
		}

		indent := 2 * len(section.ID)
		if section.Comment != "" && !opts.TrimComments {
			insertBefore(containers[parent], parent, xcomment(commentBody(section.Comment, indent)))
		}

		indent += 2
		for _, se := range section.Entries {
			if c, ok := se.(model.Comment); ok {
				if !opts.TrimComments {
					parent.children = append(parent.children, xcomment(commentBody(c.Comment, indent)))
				}
				continue
			}
			entry := se.(*model.Entry)
			if len(entry.ID) != 1 {
				return nil, fmt.Errorf("unsupported entry id: %v", entry.ID)
			}
			id := entry.ID[0]

			if msg, ok := entry.Value.(*model.SelectMessage); ok {
				if strings.HasSuffix(section.ID[0], ".stringsdict") {
					if err := addStringsdictPlural(parent, entry, msg, opts.TrimComments); err != nil {
						return nil, err
					}
					continue
				}
				return nil, fmt.Errorf("unsupported select message %s in file %s", id, section.ID[0])
			}

			tag := "trans-unit"
			pm, _ := entry.Value.(*model.PatternMessage)
			if pm != nil && len(pm.Pattern) == 1 {
				if exp, ok := pm.Pattern[0].(*model.Expression); ok && exp.Attributes.Has("bin-unit") {
					tag = "bin-unit"
				}
			}
			unit := sub(parent, tag, attribute{name: "id", value: id})
			if err := assignMetadata(unit, entry.Meta, opts.TrimComments, ""); err != nil {
				return nil, err
			}

			var target *xelem
			if tag == "trans-unit" && pm != nil && len(pm.Pattern) > 0 {
				if len(pm.Declarations) > 0 {
					return nil, fmt.Errorf("unsupported declarations in message %s", id)
				}
				target = find(unit, "target")
				if target == nil {
					source := find(unit, "source")
					if source == nil {
						return nil, fmt.Errorf("invalid entry with no source: %s", id)
					}
					target = &xelem{name: "target"}
					insertAfter(unit, source, target)
				}
				if err := setPattern(target, pm.Pattern); err != nil {
					return nil, fmt.Errorf("serializing %s: %w", id, err)
				}
			}

			if strings.TrimSpace(entry.Comment) != "" && !opts.TrimComments {
				note := find(unit, "note")
				if note == nil {
					prevEl := target
					if prevEl == nil {
						prevEl = find(unit, "target")
					}
					if prevEl == nil {
						prevEl = find(unit, "source")
					}
					if prevEl == nil {
						return nil, fmt.Errorf("invalid entry with no source: %s", id)
					}
					note = &xelem{name: "note"}
					insertAfter(unit, prevEl, note)
				}
				// A note already holding text from the entry metadata
				// keeps it; the comment was parsed from that text.
				if note.textContent() == "" {
					note.setText(entry.Comment)
				}
			}
		}
	}

	writeElement(&buf, root, 0)
	return buf.Bytes(), nil
}

func sectionKey(id model.ID) string {
	return strings.Join(id, "\x1f")
}

// SerializeMessage writes a message value in its XLIFF representation,
// with markup as inline elements and expressions replaced by their
// source.
func SerializeMessage(msg model.Message) (string, error) {
	pm, ok := msg.(*model.PatternMessage)
	if !ok {
		return "", fmt.Errorf("unsupported message: %T", msg)
	}
	if len(pm.Declarations) > 0 {
		return "", fmt.Errorf("unsupported declarations in message")
	}
	el := &xelem{name: "pattern"}
	if err := setPattern(el, pm.Pattern); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	writeInlineChildren(&buf, el)
	return buf.String(), nil
}

// addStringsdictPlural flattens a plural select message into the
// per-variant trans-units of an Xcode .stringsdict export.
func addStringsdictPlural(parent *xelem, entry *model.Entry, msg *model.SelectMessage, trim bool) error {
	id := entry.ID[0]
	if entry.Comment != "" {
		return fmt.Errorf("unsupported comment on select message %s", id)
	}
	if len(msg.Selectors) != 1 {
		return fmt.Errorf("exactly one selector is required for %s", id)
	}
	sels, err := msg.SelectorExpressions()
	if err != nil {
		return err
	}
	sel := sels[0]
	ref, ok := sel.Arg.(*model.VariableRef)
	if !ok || sel.Function != "number" {
		return fmt.Errorf("unsupported selector for %s", id)
	}
	idBase := "/" + id + ":dict"
	varName := ref.Name

	selSource, hasSelSource := sel.Attributes.Source()
	formatMeta := metaWithPrefix(entry.Meta, "format/")
	if hasSelSource {
		unit := sub(parent, "trans-unit", attribute{
			name: "id", value: idBase + "/NSStringLocalizedFormatKey:dict/:string",
		})
		if err := assignMetadata(unit, formatMeta, trim, "format/"); err != nil {
			return err
		}
		source := find(unit, "source")
		if source == nil {
			source = &xelem{name: "source"}
			if len(unit.children) > 0 {
				insertBefore(unit, unit.children[0], source)
			} else {
				unit.children = append(unit.children, source)
			}
		}
		source.setText(selSource)
		target := find(unit, "target")
		if target == nil {
			target = &xelem{name: "target"}
			insertAfter(unit, source, target)
		}
		if target.textContent() == "" {
			target.setText(selSource)
		}
	} else if len(formatMeta) > 0 {
		return fmt.Errorf("format key source is required with format attributes for %s", id)
	}

	for _, v := range msg.Variants {
		if len(v.Keys) != 1 {
			return fmt.Errorf("unsupported variant keys for %s: %v", id, v.Keys)
		}
		key := v.Keys[0].Value
		if v.Keys[0].Catchall && key == "" {
			key = "other"
		}
		var text strings.Builder
		for _, part := range v.Pattern {
			switch p := part.(type) {
			case model.Text:
				text.WriteString(string(p))
			case *model.Expression:
				if src, ok := p.Attributes.Source(); ok {
					text.WriteString(src)
				} else if lit, ok := p.Arg.(model.Literal); ok {
					text.WriteString(string(lit))
				} else if ref, ok := p.Arg.(*model.VariableRef); ok {
					text.WriteString(ref.Name)
				} else {
					return fmt.Errorf("unsupported pattern part for %s", id)
				}
			default:
				return fmt.Errorf("unsupported pattern part for %s", id)
			}
		}
		unit := sub(parent, "trans-unit", attribute{
			name: "id", value: idBase + "/" + varName + ":dict/" + key + ":dict/:string",
		})
		metaBase := key + "/"
		if err := assignMetadata(unit, metaWithPrefix(entry.Meta, metaBase), trim, metaBase); err != nil {
			return err
		}
		source := find(unit, "source")
		if source == nil {
			return fmt.Errorf("missing %ssource metadata for %s", metaBase, id)
		}
		target := find(unit, "target")
		if target == nil {
			target = &xelem{name: "target"}
			insertAfter(unit, source, target)
		}
		target.setText(text.String())
	}
	return nil
}

func metaWithPrefix(meta model.Meta, prefix string) model.Meta {
	var out model.Meta
	for _, m := range meta {
		if strings.HasPrefix(m.Key, prefix) {
			out = append(out, m)
		}
	}
	return out
}

// assignMetadata reconstructs element contents from the XPath-like
// metadata keys produced by the parser. All keys must start with base.
func assignMetadata(el *xelem, meta model.Meta, trim bool, base string) error {
	var done []string
	for _, m := range meta {
		var key string
		if len(m.Key) > len(base) {
			key = m.Key[len(base):]
		}
		switch {
		case key == "":
			if m.Value != "" {
				el.children = append(el.children, xtext(m.Value))
			}
		case key == "comment()":
			el.children = append(el.children, xcomment(m.Value))
		case strings.HasPrefix(key, "@"):
			el.attrs = append(el.attrs, attribute{name: key[1:], value: m.Value})
		default:
			name := key
			if i := strings.Index(key, "/"); i >= 0 {
				name = key[:i]
			}
			childRoot := base + name
			childBase := childRoot + "/"
			skip := false
			for _, d := range done {
				if strings.HasPrefix(childBase, d) {
					skip = true
					break
				}
			}
			if skip {
				continue
			}
			elName := name
			if i := strings.Index(elName, "["); i >= 0 {
				elName = elName[:i]
			}
			var childMeta model.Meta
			for _, m2 := range meta {
				if m2.Key == childRoot || strings.HasPrefix(m2.Key, childBase) {
					childMeta = append(childMeta, m2)
				}
			}
			if !trim || elName != "note" {
				child := sub(el, elName)
				if err := assignMetadata(child, childMeta, trim, childBase); err != nil {
					return err
				}
			}
			done = append(done, childBase)
		}
	}
	return nil
}

// setPattern appends a message pattern to an element, with markup as
// nested elements and expressions replaced by their recorded source,
// literal argument, or variable name.
func setPattern(el *xelem, pattern model.Pattern) error {
	stack := []*xelem{el}
	top := func() *xelem { return stack[len(stack)-1] }
	for _, part := range pattern {
		switch p := part.(type) {
		case model.Text:
			if p != "" {
				top().children = append(top().children, xtext(p))
			}
		case *model.Markup:
			if p.Kind == model.MarkupClose {
				if len(p.Options) > 0 {
					return fmt.Errorf("options on closing markup are not supported: %s", p.Name)
				}
				if len(stack) == 1 || top().name != p.Name {
					return fmt.Errorf("improper element nesting for </%s>", p.Name)
				}
				stack = stack[:len(stack)-1]
				continue
			}
			node := sub(top(), p.Name)
			for _, opt := range p.Options {
				lit, ok := opt.Value.(model.Literal)
				if !ok {
					return fmt.Errorf("unsupported markup with variable option: %s", p.Name)
				}
				node.attrs = append(node.attrs, attribute{name: opt.Name, value: string(lit)})
			}
			if p.Kind == model.MarkupOpen {
				stack = append(stack, node)
			}
		case *model.Expression:
			var text string
			if src, ok := p.Attributes.Source(); ok {
				text = src
			} else if lit, ok := p.Arg.(model.Literal); ok {
				text = string(lit)
			} else if ref, ok := p.Arg.(*model.VariableRef); ok {
				text = ref.Name
			} else {
				return fmt.Errorf("unsupported expression")
			}
			if text != "" {
				top().children = append(top().children, xtext(text))
			}
		}
	}
	if len(stack) > 1 {
		return fmt.Errorf("unclosed element <%s>", top().name)
	}
	return nil
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

// writeElement pretty-prints an element: elements with text content are
// written inline, others with each child indented on its own line.
func writeElement(buf *bytes.Buffer, el *xelem, depth int) {
	pad := strings.Repeat("  ", depth)
	buf.WriteString(pad + "<" + el.name)
	writeAttrs(buf, el)
	if len(el.children) == 0 {
		buf.WriteString("/>\n")
		return
	}
	inline := false
	for _, c := range el.children {
		if _, ok := c.(xtext); ok {
			inline = true
			break
		}
	}
	if inline {
		buf.WriteString(">")
		writeInlineChildren(buf, el)
		buf.WriteString("</" + el.name + ">\n")
		return
	}
	buf.WriteString(">\n")
	for _, c := range el.children {
		switch t := c.(type) {
		case *xelem:
			writeElement(buf, t, depth+1)
		case xcomment:
			buf.WriteString(strings.Repeat("  ", depth+1) + "<!--" + string(t) + "-->\n")
		}
	}
	buf.WriteString(pad + "</" + el.name + ">\n")
}

func writeInlineChildren(buf *bytes.Buffer, el *xelem) {
	for _, c := range el.children {
		switch t := c.(type) {
		case xtext:
			buf.WriteString(escapeText(string(t)))
		case xcomment:
			buf.WriteString("<!--" + string(t) + "-->")
		case *xelem:
			buf.WriteString("<" + t.name)
			writeAttrs(buf, t)
			if len(t.children) == 0 {
				buf.WriteString("/>")
			} else {
				buf.WriteString(">")
				writeInlineChildren(buf, t)
				buf.WriteString("</" + t.name + ">")
			}
		}
	}
}

func writeAttrs(buf *bytes.Buffer, el *xelem) {
	for _, a := range el.attrs {
		buf.WriteString(" " + a.name + "=\"" + escapeAttr(a.value) + "\"")
	}
}

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\r", "&#13;",
)

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	"\"", "&quot;",
	"\n", "&#10;",
	"\t", "&#9;",
	"\r", "&#13;",
)

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

func escapeAttr(s string) string {
	return attrEscaper.Replace(s)
}
