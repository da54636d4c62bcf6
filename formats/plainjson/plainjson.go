// Package plainjson reads and writes nested plain JSON files with
// string values at leaf nodes.
package plainjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/l10n-tools/l10nres/formats"
	"github.com/l10n-tools/l10nres/model"
)

// Parse parses a nested JSON object into a message resource. Leaf
// values must be strings; their object paths become entry identifiers.
//
// By default all values become plain pattern messages; a non-nil
// parseMessage overrides the message parsing.
func Parse(source []byte, parseMessage func(string) (model.Message, error)) (*model.Resource, error) {
	if !gjson.ValidBytes(source) {
		return nil, fmt.Errorf("invalid JSON contents")
	}
	root := gjson.ParseBytes(source)
	if !root.IsObject() {
		return nil, fmt.Errorf("unexpected root value: %s", root.Raw)
	}
	section := &model.Section{}
	if err := parseObject(nil, root, section, parseMessage); err != nil {
		return nil, err
	}
	return &model.Resource{
		Format:   formats.PlainJSON,
		Sections: []*model.Section{section},
	}, nil
}

func parseObject(
	path model.ID,
	obj gjson.Result,
	section *model.Section,
	parseMessage func(string) (model.Message, error),
) error {
	var err error
	obj.ForEach(func(key, value gjson.Result) bool {
		id := append(append(model.ID{}, path...), key.String())
		switch {
		case value.Type == gjson.String:
			var msg model.Message
			if parseMessage != nil {
				if msg, err = parseMessage(value.String()); err != nil {
					err = fmt.Errorf("parsing %s: %w", strings.Join(id, "."), err)
					return false
				}
			} else {
				pm := &model.PatternMessage{}
				pm.Pattern = pm.Pattern.AppendText(value.String())
				msg = pm
			}
			section.Entries = append(section.Entries, &model.Entry{ID: id, Value: msg})
		case value.IsObject():
			err = parseObject(id, value, section, parseMessage)
		default:
			err = fmt.Errorf("unexpected value at %s: %s", strings.Join(id, "."), value.Raw)
		}
		return err == nil
	})
	return err
}

type node struct {
	keys     []string
	children map[string]*node
	value    string
	leaf     bool
}

func (n *node) child(key string) *node {
	c, ok := n.children[key]
	if !ok {
		c = &node{children: map[string]*node{}}
		n.children[key] = c
		n.keys = append(n.keys, key)
	}
	return c
}

// Serialize writes a resource as a nested JSON object.
// Section identifiers become outer nesting levels.
// Comments and metadata are not supported.
func Serialize(resource *model.Resource, trimComments bool) ([]byte, error) {
	check := func(comment string, meta model.Meta) error {
		if comment != "" && !trimComments {
			return fmt.Errorf("resource and section comments are not supported")
		}
		if len(meta) > 0 {
			return fmt.Errorf("metadata is not supported")
		}
		return nil
	}
	if err := check(resource.Comment, resource.Meta); err != nil {
		return nil, err
	}
	root := &node{children: map[string]*node{}}
	for _, section := range resource.Sections {
		if err := check(section.Comment, section.Meta); err != nil {
			return nil, err
		}
		parent := root
		for _, part := range section.ID {
			parent = parent.child(part)
		}
		for _, se := range section.Entries {
			entry, ok := se.(*model.Entry)
			if !ok {
				if err := check(se.(model.Comment).Comment, nil); err != nil {
					return nil, err
				}
				continue
			}
			if err := check(entry.Comment, entry.Meta); err != nil {
				return nil, err
			}
			if len(entry.ID) == 0 {
				return nil, fmt.Errorf("unsupported empty identifier in %v", section.ID)
			}
			value, err := messageText(entry.Value)
			if err != nil {
				return nil, fmt.Errorf("value for %v is not supported: %w", entry.ID, err)
			}
			target := parent
			for _, part := range entry.ID[:len(entry.ID)-1] {
				target = target.child(part)
			}
			leaf := target.child(entry.ID[len(entry.ID)-1])
			leaf.value = value
			leaf.leaf = true
		}
	}
	var buf bytes.Buffer
	writeNode(&buf, root, 0)
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

func messageText(msg model.Message) (string, error) {
	pm, ok := msg.(*model.PatternMessage)
	if !ok {
		return "", fmt.Errorf("unsupported message: %T", msg)
	}
	var out strings.Builder
	for _, part := range pm.Pattern {
		switch p := part.(type) {
		case model.Text:
			out.WriteString(string(p))
		case *model.Expression:
			source, ok := p.Attributes.Source()
			if !ok {
				return "", fmt.Errorf("unsupported pattern part: %v", part)
			}
			out.WriteString(source)
		default:
			return "", fmt.Errorf("unsupported pattern part: %v", part)
		}
	}
	return out.String(), nil
}

func writeNode(buf *bytes.Buffer, n *node, depth int) {
	if n.leaf {
		writeJSON(buf, n.value)
		return
	}
	if len(n.keys) == 0 {
		buf.WriteString("{}")
		return
	}
	indent := strings.Repeat("  ", depth)
	buf.WriteString("{")
	for i, key := range n.keys {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n" + indent + "  ")
		writeJSON(buf, key)
		buf.WriteString(": ")
		writeNode(buf, n.children[key], depth+1)
	}
	buf.WriteString("\n" + indent + "}")
}

func writeJSON(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	buf.Truncate(buf.Len() - 1)
}
