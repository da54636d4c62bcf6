// Package xliff reads and writes XLIFF 1.2 files, including the Xcode
// dialects exported for .strings, .stringsdict, and .xcstrings sources.
//
// Sections identify files and groups within them, with the first
// identifier part parsed as the <file> "original" attribute, and later
// parts as <group> "id" attributes.
//
// An entry's value represents the <target> of a <trans-unit>, and its
// comment the <note> contents. Other elements and attributes are
// represented by metadata, with XPath-like keys: "@attr" for an
// attribute value, "name" for the text contents of a child element,
// "name[2]" for a repeated element, "comment()" for an XML comment,
// and "/"-joined paths for nested elements.
//
// For namespaced attribute and element names of the form "ns:foo",
// the resource has an "@xmlns:ns" metadata entry with its URI value.
package xliff

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/l10n-tools/l10nres/formats"
	"github.com/l10n-tools/l10nres/model"
)

var xliffNamespaces = []string{
	"",
	"urn:oasis:names:tc:xliff:document:1.0",
	"urn:oasis:names:tc:xliff:document:1.1",
	"urn:oasis:names:tc:xliff:document:1.2",
}

const (
	xmlNamespace = "http://www.w3.org/XML/1998/namespace"
	xcodeToolID  = "com.apple.dt.xcode"
)

func isXliffNamespace(ns string) bool {
	for _, x := range xliffNamespaces {
		if ns == x {
			return true
		}
	}
	return false
}

type attribute struct {
	name  string
	value string
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

type element struct {
	space    string
	name     string
	attrs    []attribute
	children []child
}

func (el *element) attr(name string) (string, bool) {
	for _, a := range el.attrs {
		if a.name == name {
			return a.value, true
		}
	}
	return "", false
}

func (el *element) text() string {
	var out strings.Builder
	for _, c := range el.children {
		if c.kind == childText {
			out.WriteString(c.text)
		}
	}
	return out.String()
}

// IsXcode reports whether the resource was generated by Xcode,
// based on the tool identifier in its <file> headers.
func IsXcode(resource *model.Resource) bool {
	for _, section := range resource.Sections {
		if section.Meta.Has("header/tool/@tool-id", ptr(xcodeToolID)) {
			return true
		}
	}
	return false
}

func ptr(s string) *string { return &s }

// Parse parses an XLIFF 1.2 file into a message resource.
//
// Files generated by Xcode get additional processing: printf
// placeholders in their messages are parsed as expressions, and the
// flattened per-variant units of .stringsdict and .xcstrings files are
// reassembled into select messages.
func Parse(source []byte) (*model.Resource, error) {
	root, preComments, err := parseDocument(source, false)
	if err != nil {
		return nil, err
	}
	if root == nil || root.name != "xliff" || !isXliffNamespace(root.space) {
		return nil, fmt.Errorf("unsupported root node")
	}
	version, _ := root.attr("version")
	if version != "1.0" && version != "1.1" && version != "1.2" {
		return nil, fmt.Errorf("unsupported <xliff> version: %q", version)
	}

	res := &model.Resource{Format: formats.XLIFF}
	if len(preComments) > 0 {
		res.Comment = commentStr(preComments)
	}
	var xmlns model.Meta
	for _, a := range root.attrs {
		if a.name == "xmlns" || strings.HasPrefix(a.name, "xmlns:") {
			xmlns = append(xmlns, model.Metadata{Key: "@" + a.name, Value: a.value})
		} else {
			res.Meta = append(res.Meta, model.Metadata{Key: "@" + a.name, Value: a.value})
		}
	}
	res.Meta = append(res.Meta, xmlns...)

	var comment []string
	for _, c := range root.children {
		switch c.kind {
		case childText:
			if strings.TrimSpace(c.text) != "" {
				return nil, fmt.Errorf("unexpected text in <xliff>: %q", c.text)
			}
		case childComment:
			comment = append(comment, c.text)
		case childElement:
			if c.el.name != "file" {
				return nil, fmt.Errorf("unsupported <%s> element in <xliff>", c.el.name)
			}
			sections, err := parseFile(c.el, comment)
			if err != nil {
				return nil, err
			}
			comment = nil
			res.Sections = append(res.Sections, sections...)
		}
	}
	return res, nil
}

func parseFile(file *element, comment []string) ([]*model.Section, error) {
	fileName, ok := file.attr("original")
	if !ok {
		return nil, fmt.Errorf(`missing "original" attribute for <file>`)
	}
	meta := attribMetadata(file, "", "original")
	var body *element
	var headComments []child
	for _, c := range file.children {
		switch c.kind {
		case childText:
			if strings.TrimSpace(c.text) != "" {
				return nil, fmt.Errorf("unexpected text in <file>: %q", c.text)
			}
		case childComment:
			headComments = append(headComments, c)
		case childElement:
			switch c.el.name {
			case "header":
				hm, err := elementMetadata(c.el, "header", true)
				if err != nil {
					return nil, err
				}
				meta = append(meta, hm...)
			case "body":
				if body != nil {
					return nil, fmt.Errorf("duplicate <body> in <file> %s", fileName)
				}
				body = c.el
			default:
				return nil, fmt.Errorf("unsupported <%s> element in <file> %s", c.el.name, fileName)
			}
		}
	}
	if body == nil {
		return nil, fmt.Errorf("missing <body> in <file> %s", fileName)
	}

	section := &model.Section{ID: model.ID{fileName}, Meta: meta}
	if len(comment) > 0 {
		section.Comment = commentStr(comment)
	}
	for _, c := range headComments {
		section.Entries = append(section.Entries, model.Comment{Comment: commentStr([]string{c.text})})
	}
	sections := []*model.Section{section}

	toolID, _ := meta.Get("header/tool/@tool-id")
	xcode := toolID == xcodeToolID
	fromSource := !meta.Has("@target-language", nil)

	if xcode && strings.HasSuffix(fileName, ".stringsdict") {
		entries, err := parseStringsdict(body, fromSource)
		if err != nil {
			return nil, err
		}
		if entries != nil {
			section.Entries = append(section.Entries, entries...)
			return sections, nil
		}
	}
	if xcode && strings.HasSuffix(fileName, ".xcstrings") {
		entries, err := parseXcstrings(body, fromSource)
		if err != nil {
			return nil, err
		}
		section.Entries = append(section.Entries, entries...)
		return sections, nil
	}

	for _, c := range body.children {
		switch c.kind {
		case childText:
			if strings.TrimSpace(c.text) != "" {
				return nil, fmt.Errorf("unexpected text in <body>: %q", c.text)
			}
		case childComment:
			section.Entries = append(section.Entries, model.Comment{Comment: commentStr([]string{c.text})})
		case childElement:
			switch c.el.name {
			case "trans-unit":
				entry, err := parseTransUnit(c.el, xcode)
				if err != nil {
					return nil, err
				}
				section.Entries = append(section.Entries, entry)
			case "bin-unit":
				entry, err := parseBinUnit(c.el)
				if err != nil {
					return nil, err
				}
				section.Entries = append(section.Entries, entry)
			case "group":
				gs, err := parseGroup(section.ID, c.el, xcode)
				if err != nil {
					return nil, err
				}
				sections = append(sections, gs...)
			default:
				return nil, fmt.Errorf("unsupported <%s> element in <body>", c.el.name)
			}
		}
	}
	return sections, nil
}

func parseGroup(parent model.ID, group *element, xcode bool) ([]*model.Section, error) {
	id, _ := group.attr("id")
	path := append(append(model.ID{}, parent...), id)
	section := &model.Section{ID: path, Meta: attribMetadata(group, "", "id")}
	sections := []*model.Section{section}
	seen := map[string]int{}
	for _, c := range group.children {
		switch c.kind {
		case childText:
			if strings.TrimSpace(c.text) != "" {
				return nil, fmt.Errorf("unexpected text in <group>: %q", c.text)
			}
		case childComment:
			section.Entries = append(section.Entries, model.Comment{Comment: commentStr([]string{c.text})})
		case childElement:
			switch c.el.name {
			case "trans-unit":
				entry, err := parseTransUnit(c.el, xcode)
				if err != nil {
					return nil, err
				}
				section.Entries = append(section.Entries, entry)
			case "bin-unit":
				entry, err := parseBinUnit(c.el)
				if err != nil {
					return nil, err
				}
				section.Entries = append(section.Entries, entry)
			case "group":
				gs, err := parseGroup(path, c.el, xcode)
				if err != nil {
					return nil, err
				}
				sections = append(sections, gs...)
			default:
				em, err := elementMetadata(c.el, childKey("", c.el.name, seen), true)
				if err != nil {
					return nil, err
				}
				section.Meta = append(section.Meta, em...)
			}
		}
	}
	return sections, nil
}

func parseBinUnit(unit *element) (*model.Entry, error) {
	id, ok := unit.attr("id")
	if !ok {
		return nil, fmt.Errorf(`missing "id" attribute for <bin-unit>`)
	}
	meta := attribMetadata(unit, "", "id")
	em, err := elementMetadata(unit, "", false)
	if err != nil {
		return nil, err
	}
	meta = append(meta, em...)
	msg := &model.PatternMessage{Pattern: model.Pattern{
		&model.Expression{Attributes: model.Attributes{}.Flag("bin-unit")},
	}}
	return &model.Entry{ID: model.ID{id}, Value: msg, Meta: meta}, nil
}

func parseTransUnit(unit *element, xcode bool) (*model.Entry, error) {
	id, ok := unit.attr("id")
	if !ok {
		return nil, fmt.Errorf(`missing "id" attribute for <trans-unit>`)
	}
	meta := attribMetadata(unit, "", "id")

	var target *element
	var notes []string
	seen := map[string]int{}
	for _, c := range unit.children {
		switch c.kind {
		case childText:
			if strings.TrimSpace(c.text) != "" {
				return nil, fmt.Errorf("unexpected text in <trans-unit> %s: %q", id, c.text)
			}
		case childComment:
			meta = append(meta, model.Metadata{Key: "comment()", Value: c.text})
		case childElement:
			if c.el.name == "target" {
				if target != nil {
					return nil, fmt.Errorf("duplicate <target> in <trans-unit> %s", id)
				}
				target = c.el
				meta = append(meta, attribMetadata(c.el, "target")...)
				continue
			}
			em, err := elementMetadata(c.el, childKey("", c.el.name, seen), true)
			if err != nil {
				return nil, err
			}
			meta = append(meta, em...)
			if c.el.name == "note" {
				if text := c.el.text(); text != "" {
					note := strings.TrimSpace(text)
					if author, ok := c.el.attr("from"); ok && author != "" {
						note = author + ": " + note
					}
					notes = append(notes, note)
				}
			}
		}
	}

	msg := &model.PatternMessage{}
	if target != nil {
		pattern, err := parsePattern(target, xcode)
		if err != nil {
			return nil, err
		}
		msg.Pattern = pattern
	}
	return &model.Entry{
		ID:      model.ID{id},
		Value:   msg,
		Comment: strings.Join(notes, "\n\n"),
		Meta:    meta,
	}, nil
}

// ParseMessage parses a single message value in its XLIFF
// representation, with inline elements as markup. With xcode set,
// printf placeholders are parsed as expressions.
func ParseMessage(source string, xcode bool) (*model.PatternMessage, error) {
	root, _, err := parseDocument([]byte("<pattern>"+source+"</pattern>"), true)
	if err != nil {
		return nil, err
	}
	pattern, err := parsePattern(root, xcode)
	if err != nil {
		return nil, err
	}
	return &model.PatternMessage{Pattern: pattern}, nil
}

func parsePattern(el *element, xcode bool) (model.Pattern, error) {
	var out model.Pattern
	for _, c := range el.children {
		switch c.kind {
		case childText:
			if xcode {
				out = appendXcodePattern(out, c.text)
			} else {
				out = out.AppendText(c.text)
			}
		case childElement:
			markup := &model.Markup{Kind: model.MarkupOpen, Name: c.el.name}
			for _, a := range c.el.attrs {
				markup.Options = append(markup.Options, model.Option{
					Name: a.name, Value: model.Literal(a.value),
				})
			}
			switch c.el.name {
			case "x", "bx", "ex":
				markup.Kind = model.MarkupStandalone
				out = append(out, markup)
			default:
				out = append(out, markup)
				sub, err := parsePattern(c.el, xcode)
				if err != nil {
					return nil, err
				}
				out = append(out, sub...)
				out = append(out, &model.Markup{Kind: model.MarkupClose, Name: c.el.name})
			}
		}
	}
	return out, nil
}

// childKey returns the metadata key part for a child element, with a
// one-based index suffix differentiating repeated names.
func childKey(base, name string, seen map[string]int) string {
	seen[name]++
	if n := seen[name]; n > 1 {
		name = fmt.Sprintf("%s[%d]", name, n)
	}
	return joinKey(base, name)
}

func joinKey(base, part string) string {
	if base == "" {
		return part
	}
	return base + "/" + part
}

func attribMetadata(el *element, base string, exclude ...string) model.Meta {
	var out model.Meta
next:
	for _, a := range el.attrs {
		for _, x := range exclude {
			if a.name == x {
				continue next
			}
		}
		out = append(out, model.Metadata{Key: joinKey(base, "@"+a.name), Value: a.value})
	}
	return out
}

// elementMetadata encodes an element subtree as metadata. Attribute
// values, text contents, and comments become separate entries; an
// element contributing nothing else is recorded as an empty text entry.
func elementMetadata(el *element, base string, withAttrib bool) (model.Meta, error) {
	var out model.Meta
	empty := true
	if withAttrib {
		if am := attribMetadata(el, base); len(am) > 0 {
			out = append(out, am...)
			empty = false
		}
	}
	seen := map[string]int{}
	for _, c := range el.children {
		switch c.kind {
		case childText:
			if strings.TrimSpace(c.text) != "" {
				out = append(out, model.Metadata{Key: base, Value: c.text})
				empty = false
			}
		case childComment:
			out = append(out, model.Metadata{Key: joinKey(base, "comment()"), Value: c.text})
			empty = false
		case childElement:
			em, err := elementMetadata(c.el, childKey(base, c.el.name, seen), true)
			if err != nil {
				return nil, err
			}
			out = append(out, em...)
			empty = false
		}
	}
	if empty && withAttrib {
		out = append(out, model.Metadata{Key: base, Value: ""})
	}
	return out, nil
}

var dashIndent = regexp.MustCompile(`^ .+(\n   - .*)+ $`)

// commentStr joins XML comment bodies into comment text. A dash is
// considered part of the indent when aligned with the last dash of a
// top-level "<!--".
func commentStr(body []string) string {
	var lines []string
	for _, comment := range body {
		if comment == "" {
			continue
		}
		if dashIndent.MatchString(comment) {
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

// parseDocument reads an XML document into a tree. Whole files are
// read leniently to tolerate the informal markup some tools emit;
// message fragments are read strictly, so an unclosed inline element
// is an error rather than being silently closed.
func parseDocument(source []byte, strict bool) (*element, []string, error) {
	d := xml.NewDecoder(bytes.NewReader(source))
	d.Strict = strict
	var preComments []string
	nsPrefix := map[string]string{}
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return nil, preComments, nil
		}
		if err != nil {
			return nil, nil, err
		}
		switch t := tok.(type) {
		case xml.Comment:
			preComments = append(preComments, string(t))
		case xml.StartElement:
			root, err := parseElement(d, t, nsPrefix)
			if err != nil {
				return nil, nil, err
			}
			return root, preComments, nil
		}
	}
}

func parseElement(d *xml.Decoder, start xml.StartElement, nsPrefix map[string]string) (*element, error) {
	for _, a := range start.Attr {
		if a.Name.Space == "xmlns" {
			nsPrefix[a.Value] = a.Name.Local
		} else if a.Name.Space == "" && a.Name.Local == "xmlns" {
			nsPrefix[a.Value] = ""
		}
	}
	el := &element{space: start.Name.Space}
	name, err := prettyName(start.Name, nsPrefix)
	if err != nil {
		return nil, err
	}
	el.name = name
	for _, a := range start.Attr {
		an, err := prettyName(a.Name, nsPrefix)
		if err != nil {
			return nil, err
		}
		el.attrs = append(el.attrs, attribute{name: an, value: a.Value})
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

func prettyName(name xml.Name, nsPrefix map[string]string) (string, error) {
	switch {
	case name.Space == "":
		return name.Local, nil
	case isXliffNamespace(name.Space):
		return name.Local, nil
	case name.Space == xmlNamespace, name.Space == "xml":
		return "xml:" + name.Local, nil
	case name.Space == "xmlns":
		return "xmlns:" + name.Local, nil
	}
	if prefix, ok := nsPrefix[name.Space]; ok {
		if prefix == "" {
			return name.Local, nil
		}
		return prefix + ":" + name.Local, nil
	}
	return "", fmt.Errorf("name with unknown namespace: {%s}%s", name.Space, name.Local)
}
