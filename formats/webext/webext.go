// Package webext reads and writes WebExtensions messages.json files.
//
// Named $placeholder$ references are represented as message declarations
// resolved through the per-message placeholders table, indexed $N
// references become argN variables, and runs of three or more dollar
// signs are unescaped by dropping one sigil.
package webext

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/l10n-tools/l10nres/formats"
	"github.com/l10n-tools/l10nres/model"
)

var (
	placeholderPattern = regexp.MustCompile(`\$([a-zA-Z0-9_@]+)\$|(\$[1-9])|\$(\$+)`)
	posArgPattern      = regexp.MustCompile(`^\$([1-9])$`)
	lineComment        = regexp.MustCompile(`(?m)^((?:[^"\n]|"(?:[^"\\\n]|\\.)*")*?)//.*`)
	dollarRun          = regexp.MustCompile(`\$+`)
)

// Placeholder is one entry of a message's placeholders table.
type Placeholder struct {
	Name    string
	Content string
	Example string
}

// Placeholders is the ordered placeholders table of a single message.
// Names are matched case-insensitively.
type Placeholders []Placeholder

// Get returns the placeholder case-insensitively matching name.
func (ps Placeholders) Get(name string) (Placeholder, bool) {
	for _, p := range ps {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Placeholder{}, false
}

// Parse parses a messages.json file into a message resource.
// JavaScript-style // line comments are tolerated.
//
// Named placeholders are represented as declarations, with an "example"
// attribute carried over when available.
func Parse(source []byte) (*model.Resource, error) {
	if !gjson.ValidBytes(source) {
		source = lineComment.ReplaceAll(source, []byte("$1"))
		if !gjson.ValidBytes(source) {
			return nil, fmt.Errorf("invalid messages.json contents")
		}
	}
	root := gjson.ParseBytes(source)
	if !root.IsObject() {
		return nil, fmt.Errorf("invalid messages.json contents: not an object")
	}
	section := &model.Section{}
	var err error
	root.ForEach(func(key, msg gjson.Result) bool {
		var placeholders Placeholders
		msg.Get("placeholders").ForEach(func(name, ph gjson.Result) bool {
			placeholders = append(placeholders, Placeholder{
				Name:    name.String(),
				Content: ph.Get("content").String(),
				Example: ph.Get("example").String(),
			})
			return true
		})
		var value *model.PatternMessage
		if value, err = ParseMessage(msg.Get("message").String(), placeholders); err != nil {
			err = fmt.Errorf("parsing %s: %w", key.String(), err)
			return false
		}
		section.Entries = append(section.Entries, &model.Entry{
			ID:      model.ID{key.String()},
			Value:   value,
			Comment: msg.Get("description").String(),
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	return &model.Resource{Format: formats.WebExt, Sections: []*model.Section{section}}, nil
}

// ParseMessage parses a single messages.json message string.
//
// A named placeholder requires a matching placeholders table entry and
// becomes a declaration named after its first spelling in the message;
// each reference keeps its original-case source text. A placeholder
// missing from the table is a validation error naming the lowercased key.
func ParseMessage(source string, placeholders Placeholders) (*model.PatternMessage, error) {
	// Declaration names for table entries already referenced, keyed by
	// the lowercased placeholder name.
	resolved := map[string]string{}
	msg := &model.PatternMessage{}
	pos := 0
	for _, m := range placeholderPattern.FindAllStringSubmatchIndex(source, -1) {
		if m[0] > pos {
			msg.Pattern = msg.Pattern.AppendText(source[pos:m[0]])
		}
		matched := source[m[0]:m[1]]
		pos = m[1]
		switch {
		case m[2] >= 0:
			// Named placeholder with content and optional example in
			// the placeholders table.
			name := source[m[2]:m[3]]
			key := strings.ToLower(name)
			declName, ok := resolved[key]
			if !ok {
				ph, found := placeholders.Get(name)
				if !found {
					return nil, fmt.Errorf("missing placeholders entry for %s", key)
				}
				value := &model.Expression{}
				if pm := posArgPattern.FindStringSubmatch(ph.Content); pm != nil {
					value.Arg = &model.VariableRef{Name: "arg" + pm[1]}
					value.Attributes = value.Attributes.String("source", ph.Content)
				} else {
					value.Arg = model.Literal(ph.Content)
				}
				if ph.Example != "" {
					value.Attributes = value.Attributes.String("example", ph.Example)
				}
				declName = strings.ReplaceAll(name, "@", "_")
				if declName[0] >= '0' && declName[0] <= '9' {
					declName = "_" + declName
				}
				msg.Declarations = append(msg.Declarations, model.Declaration{
					Name: declName, Value: value,
				})
				resolved[key] = declName
			}
			msg.Pattern = append(msg.Pattern, &model.Expression{
				Arg:        &model.VariableRef{Name: declName},
				Attributes: model.Attributes{}.String("source", matched),
			})
		case m[4] >= 0:
			// Indexed placeholder
			msg.Pattern = append(msg.Pattern, &model.Expression{
				Arg:        &model.VariableRef{Name: "arg" + matched[1:]},
				Attributes: model.Attributes{}.String("source", matched),
			})
		default:
			// Escaped literal dollar signs, reduced by one sigil
			msg.Pattern = msg.Pattern.AppendText(source[m[6]:m[7]])
		}
	}
	if pos < len(source) {
		msg.Pattern = msg.Pattern.AppendText(source[pos:])
	}
	return msg, nil
}

// Serialize writes a resource as the contents of a messages.json file.
//
// Section identifiers, multi-part entry identifiers, resource and section
// comments, and metadata are not supported. With trimComments set,
// comments and metadata are dropped instead of reported as errors.
func Serialize(resource *model.Resource, trimComments bool) ([]byte, error) {
	check := func(comment string, meta model.Meta) error {
		if trimComments {
			return nil
		}
		if comment != "" {
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

	var buf bytes.Buffer
	buf.WriteString("{")
	first := true
	for _, section := range resource.Sections {
		if len(section.ID) > 0 {
			return nil, fmt.Errorf("section identifiers not supported: %v", section.ID)
		}
		if err := check(section.Comment, section.Meta); err != nil {
			return nil, err
		}
		for _, se := range section.Entries {
			entry, ok := se.(*model.Entry)
			if !ok {
				if err := check(se.(model.Comment).Comment, nil); err != nil {
					return nil, err
				}
				continue
			}
			if err := check("", entry.Meta); err != nil {
				return nil, err
			}
			if len(entry.ID) != 1 {
				return nil, fmt.Errorf("unsupported entry identifier: %v", entry.ID)
			}
			name := entry.ID[0]
			msgstr, placeholders, err := SerializeMessage(entry.Value, trimComments)
			if err != nil {
				return nil, fmt.Errorf("error serializing %s: %w", name, err)
			}
			if !first {
				buf.WriteString(",")
			}
			first = false
			buf.WriteString("\n  ")
			writeJSON(&buf, name)
			buf.WriteString(": {\n    \"message\": ")
			writeJSON(&buf, msgstr)
			if !trimComments && entry.Comment != "" {
				buf.WriteString(",\n    \"description\": ")
				writeJSON(&buf, entry.Comment)
			}
			if len(placeholders) > 0 {
				buf.WriteString(",\n    \"placeholders\": {")
				for i, ph := range placeholders {
					if i > 0 {
						buf.WriteString(",")
					}
					buf.WriteString("\n      ")
					writeJSON(&buf, ph.Name)
					buf.WriteString(": {\n        \"content\": ")
					writeJSON(&buf, ph.Content)
					if ph.Example != "" {
						buf.WriteString(",\n        \"example\": ")
						writeJSON(&buf, ph.Example)
					}
					buf.WriteString("\n      }")
				}
				buf.WriteString("\n    }")
			}
			buf.WriteString("\n  }")
		}
	}
	if first {
		buf.WriteString("}\n")
	} else {
		buf.WriteString("\n}\n")
	}
	return buf.Bytes(), nil
}

// SerializeMessage writes a message in its messages.json representation,
// returning the "message" string and the "placeholders" table.
//
// Literal text has runs of dollar signs re-escaped with one extra sigil.
// Placeholder references prefer their recorded source spelling and fall
// back to a canonical $name$ form.
func SerializeMessage(msg model.Message, trimComments bool) (string, Placeholders, error) {
	pm, ok := msg.(*model.PatternMessage)
	if !ok {
		return "", nil, fmt.Errorf("unsupported message: %T", msg)
	}
	var msgstr strings.Builder
	var placeholders Placeholders
	for _, part := range pm.Pattern {
		switch p := part.(type) {
		case model.Text:
			msgstr.WriteString(dollarRun.ReplaceAllString(string(p), "$$$0"))
		case *model.Expression:
			ref, isRef := p.Arg.(*model.VariableRef)
			if !isRef || p.Function != "" {
				return "", nil, fmt.Errorf("unsupported message part: %v", part)
			}
			name := ref.Name
			source, hasSource := p.Attributes.Source()
			local, isLocal := pm.Declarations.Get(name)
			if !isLocal {
				argName := name
				if hasSource {
					argName = source
				}
				if !strings.HasPrefix(argName, "$") {
					argName = "$" + argName
				}
				msgstr.WriteString(argName)
				continue
			}
			if local.Function != "" {
				return "", nil, fmt.Errorf("unsupported annotation for %s: %v", name, local)
			}
			var content string
			if localSource, ok := local.Attributes.Source(); ok {
				content = localSource
			} else {
				switch arg := local.Arg.(type) {
				case *model.VariableRef:
					content = arg.Name
					if !strings.HasPrefix(content, "$") {
						content = "$" + content
					}
				case model.Literal:
					content = string(arg)
				default:
					return "", nil, fmt.Errorf("unsupported placeholder for %s: %v", name, local)
				}
			}
			if hasSource && len(source) >= 3 &&
				strings.HasPrefix(source, "$") && strings.HasSuffix(source, "$") {
				name = source[1 : len(source)-1]
			} else {
				hasSource = false
			}
			if _, exists := placeholders.Get(name); !exists {
				ph := Placeholder{Name: name, Content: content}
				if !trimComments {
					if example, ok := local.Attributes.Get("example"); ok {
						ph.Example = example
					}
				}
				placeholders = append(placeholders, ph)
			}
			if hasSource {
				msgstr.WriteString(source)
			} else {
				msgstr.WriteString("$" + name + "$")
			}
		default:
			return "", nil, fmt.Errorf("unsupported message part: %v", part)
		}
	}
	return msgstr.String(), placeholders, nil
}

func writeJSON(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	buf.Truncate(buf.Len() - 1)
}
