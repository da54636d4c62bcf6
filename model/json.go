package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// The JSON interchange form of messages and entries uses short keys:
//
//	"="    entry message body
//	"decl" declarations, "msg" pattern of a declared PatternMessage
//	"sel"  selectors, "alt" variants with "keys" and "pat"
//	"#"    comment, "@" metadata pairs, "+" properties
//	"_"    literal argument, "$" variable reference, "fn" function,
//	"opt"  options, "attr" attributes
//	"open"/"close"/"elem" markup
//
// A catch-all key serializes as {"*": label-or-empty}.

// MessageToJSON represents a message as its JSON interchange form.
func MessageToJSON(msg Message) json.RawMessage {
	var buf bytes.Buffer
	writeMessage(&buf, msg)
	return buf.Bytes()
}

// EntryToJSON represents an entry as its string identifier and JSON body.
// Identifier parts are joined with ".", escaping literal dots as "\.".
func EntryToJSON(entry *Entry) (string, json.RawMessage) {
	parts := make([]string, len(entry.ID))
	for i, part := range entry.ID {
		parts[i] = strings.ReplaceAll(part, ".", `\.`)
	}
	id := strings.Join(parts, ".")

	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	field := func(key string) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		writeString(&buf, key)
		buf.WriteByte(':')
	}
	if entry.Comment != "" {
		field("#")
		writeString(&buf, entry.Comment)
	}
	if len(entry.Meta) > 0 {
		field("@")
		buf.WriteByte('[')
		for i, m := range entry.Meta {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('[')
			writeString(&buf, m.Key)
			buf.WriteByte(',')
			writeString(&buf, m.Value)
			buf.WriteByte(']')
		}
		buf.WriteByte(']')
	}
	field("=")
	writeMessage(&buf, entry.Value)
	if len(entry.Properties) > 0 {
		field("+")
		buf.WriteByte('{')
		for i, prop := range entry.Properties {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(&buf, prop.Name)
			buf.WriteByte(':')
			writeMessage(&buf, prop.Value)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return id, buf.Bytes()
}

func writeMessage(buf *bytes.Buffer, msg Message) {
	switch m := msg.(type) {
	case *PatternMessage:
		if len(m.Declarations) == 0 {
			writePattern(buf, m.Pattern)
			return
		}
		buf.WriteString(`{"decl":`)
		writeDeclarations(buf, m.Declarations)
		buf.WriteString(`,"msg":`)
		writePattern(buf, m.Pattern)
		buf.WriteByte('}')
	case *SelectMessage:
		buf.WriteString(`{"decl":`)
		writeDeclarations(buf, m.Declarations)
		buf.WriteString(`,"sel":[`)
		for i, sel := range m.Selectors {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, sel.Name)
		}
		buf.WriteString(`],"alt":[`)
		for i, v := range m.Variants {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(`{"keys":[`)
			for j, key := range v.Keys {
				if j > 0 {
					buf.WriteByte(',')
				}
				if key.Catchall {
					buf.WriteString(`{"*":`)
					writeString(buf, key.Value)
					buf.WriteByte('}')
				} else {
					writeString(buf, key.Value)
				}
			}
			buf.WriteString(`],"pat":`)
			writePattern(buf, v.Pattern)
			buf.WriteString(`}`)
		}
		buf.WriteString(`]}`)
	default:
		// Nil message serializes as an empty pattern.
		buf.WriteString(`[]`)
	}
}

func writeDeclarations(buf *bytes.Buffer, decls Declarations) {
	buf.WriteByte('{')
	for i, decl := range decls {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, decl.Name)
		buf.WriteByte(':')
		writeExpression(buf, decl.Value)
	}
	buf.WriteByte('}')
}

func writePattern(buf *bytes.Buffer, pattern Pattern) {
	buf.WriteByte('[')
	for i, part := range pattern {
		if i > 0 {
			buf.WriteByte(',')
		}
		switch p := part.(type) {
		case Text:
			writeString(buf, string(p))
		case *Expression:
			writeExpression(buf, p)
		case *Markup:
			writeMarkup(buf, p)
		}
	}
	buf.WriteByte(']')
}

func writeExpression(buf *bytes.Buffer, expr *Expression) {
	buf.WriteByte('{')
	first := true
	field := func(key string) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		writeString(buf, key)
		buf.WriteByte(':')
	}
	switch arg := expr.Arg.(type) {
	case Literal:
		field("_")
		writeString(buf, string(arg))
	case *VariableRef:
		field("$")
		writeString(buf, arg.Name)
	}
	if expr.Function != "" {
		field("fn")
		writeString(buf, expr.Function)
		if len(expr.Options) > 0 {
			field("opt")
			writeOptions(buf, expr.Options)
		}
	}
	if len(expr.Attributes) > 0 {
		field("attr")
		writeAttributes(buf, expr.Attributes)
	}
	buf.WriteByte('}')
}

func writeMarkup(buf *bytes.Buffer, markup *Markup) {
	buf.WriteByte('{')
	switch markup.Kind {
	case MarkupOpen:
		buf.WriteString(`"open":`)
	case MarkupClose:
		buf.WriteString(`"close":`)
	default:
		buf.WriteString(`"elem":`)
	}
	writeString(buf, markup.Name)
	if len(markup.Options) > 0 {
		buf.WriteString(`,"opt":`)
		writeOptions(buf, markup.Options)
	}
	if len(markup.Attributes) > 0 {
		buf.WriteString(`,"attr":`)
		writeAttributes(buf, markup.Attributes)
	}
	buf.WriteByte('}')
}

func writeOptions(buf *bytes.Buffer, options Options) {
	buf.WriteByte('{')
	for i, opt := range options {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, opt.Name)
		buf.WriteByte(':')
		switch v := opt.Value.(type) {
		case Literal:
			writeString(buf, string(v))
		case *VariableRef:
			buf.WriteString(`{"$":`)
			writeString(buf, v.Name)
			buf.WriteByte('}')
		}
	}
	buf.WriteByte('}')
}

func writeAttributes(buf *bytes.Buffer, attrs Attributes) {
	buf.WriteByte('{')
	for i, attr := range attrs {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, attr.Name)
		buf.WriteByte(':')
		if attr.HasValue {
			writeString(buf, attr.Value)
		} else {
			buf.WriteString("true")
		}
	}
	buf.WriteByte('}')
}

func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	buf.Truncate(buf.Len() - 1)
}

// MessageFromJSON parses the output of MessageToJSON back into a Message.
func MessageFromJSON(data []byte) (Message, error) {
	value := gjson.ParseBytes(data)
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid message JSON: %s", data)
	}
	return messageFromJSON(value)
}

// EntryFromJSON parses the output of EntryToJSON back into an Entry.
func EntryFromJSON(id string, data []byte) (*Entry, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid entry JSON: %s", data)
	}
	entry := &Entry{ID: splitEntryID(id)}
	body := gjson.ParseBytes(data)
	if comment := body.Get("#"); comment.Exists() {
		entry.Comment = comment.String()
	}
	if meta := body.Get("@"); meta.Exists() {
		for _, pair := range meta.Array() {
			kv := pair.Array()
			if len(kv) != 2 {
				return nil, fmt.Errorf("invalid metadata pair: %s", pair.Raw)
			}
			entry.Meta = append(entry.Meta, Metadata{Key: kv[0].String(), Value: kv[1].String()})
		}
	}
	if value := body.Get("="); value.Exists() {
		msg, err := messageFromJSON(value)
		if err != nil {
			return nil, err
		}
		entry.Value = msg
	} else {
		entry.Value = &PatternMessage{}
	}
	if props := body.Get("+"); props.Exists() {
		var err error
		props.ForEach(func(key, value gjson.Result) bool {
			var msg Message
			if msg, err = messageFromJSON(value); err != nil {
				return false
			}
			entry.Properties = append(entry.Properties, Property{Name: key.String(), Value: msg})
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	return entry, nil
}

func splitEntryID(id string) ID {
	if !strings.Contains(id, `\.`) {
		return ID(strings.Split(id, "."))
	}
	var parts ID
	var cur strings.Builder
	for i := 0; i < len(id); i++ {
		switch {
		case id[i] == '\\' && i+1 < len(id) && id[i+1] == '.':
			cur.WriteByte('.')
			i++
		case id[i] == '.':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(id[i])
		}
	}
	return append(parts, cur.String())
}

func messageFromJSON(value gjson.Result) (Message, error) {
	if value.IsObject() && value.Get("sel").Exists() {
		msg := &SelectMessage{}
		var err error
		value.Get("decl").ForEach(func(key, v gjson.Result) bool {
			var expr *Expression
			if expr, err = expressionFromJSON(v); err != nil {
				return false
			}
			msg.Declarations = append(msg.Declarations, Declaration{Name: key.String(), Value: expr})
			return true
		})
		if err != nil {
			return nil, err
		}
		for _, sel := range value.Get("sel").Array() {
			msg.Selectors = append(msg.Selectors, VariableRef{Name: sel.String()})
		}
		for _, alt := range value.Get("alt").Array() {
			variant := Variant{}
			for _, key := range alt.Get("keys").Array() {
				if key.IsObject() {
					variant.Keys = append(variant.Keys, Catchall(key.Get("*").String()))
				} else {
					variant.Keys = append(variant.Keys, Key{Value: key.String()})
				}
			}
			pattern, err := patternFromJSON(alt.Get("pat"))
			if err != nil {
				return nil, err
			}
			variant.Pattern = pattern
			msg.Variants = append(msg.Variants, variant)
		}
		return msg, nil
	}

	msg := &PatternMessage{}
	patternValue := value
	if value.IsObject() {
		var err error
		value.Get("decl").ForEach(func(key, v gjson.Result) bool {
			var expr *Expression
			if expr, err = expressionFromJSON(v); err != nil {
				return false
			}
			msg.Declarations = append(msg.Declarations, Declaration{Name: key.String(), Value: expr})
			return true
		})
		if err != nil {
			return nil, err
		}
		patternValue = value.Get("msg")
	}
	pattern, err := patternFromJSON(patternValue)
	if err != nil {
		return nil, err
	}
	msg.Pattern = pattern
	return msg, nil
}

func patternFromJSON(value gjson.Result) (Pattern, error) {
	var pattern Pattern
	for _, part := range value.Array() {
		if !part.IsObject() {
			pattern = append(pattern, Text(part.String()))
			continue
		}
		if part.Get("_").Exists() || part.Get("$").Exists() || part.Get("fn").Exists() {
			expr, err := expressionFromJSON(part)
			if err != nil {
				return nil, err
			}
			pattern = append(pattern, expr)
		} else {
			markup, err := markupFromJSON(part)
			if err != nil {
				return nil, err
			}
			pattern = append(pattern, markup)
		}
	}
	return pattern, nil
}

func expressionFromJSON(value gjson.Result) (*Expression, error) {
	expr := &Expression{}
	if lit := value.Get("_"); lit.Exists() {
		expr.Arg = Literal(lit.String())
	} else if ref := value.Get("$"); ref.Exists() {
		expr.Arg = &VariableRef{Name: ref.String()}
	}
	expr.Function = value.Get("fn").String()
	if expr.Function != "" {
		expr.Options = optionsFromJSON(value.Get("opt"))
	}
	expr.Attributes = attributesFromJSON(value.Get("attr"))
	if expr.Arg == nil && expr.Function == "" {
		return nil, fmt.Errorf("invalid expression with no operand and no function: %s", value.Raw)
	}
	return expr, nil
}

func markupFromJSON(value gjson.Result) (*Markup, error) {
	markup := &Markup{}
	if name := value.Get("open"); name.Exists() {
		markup.Kind = MarkupOpen
		markup.Name = name.String()
	} else if name := value.Get("close"); name.Exists() {
		markup.Kind = MarkupClose
		markup.Name = name.String()
	} else if name := value.Get("elem"); name.Exists() {
		markup.Kind = MarkupStandalone
		markup.Name = name.String()
	} else {
		return nil, fmt.Errorf("invalid pattern part: %s", value.Raw)
	}
	markup.Options = optionsFromJSON(value.Get("opt"))
	markup.Attributes = attributesFromJSON(value.Get("attr"))
	return markup, nil
}

func optionsFromJSON(value gjson.Result) Options {
	var options Options
	value.ForEach(func(key, v gjson.Result) bool {
		var operand Operand
		if v.IsObject() {
			operand = &VariableRef{Name: v.Get("$").String()}
		} else {
			operand = Literal(v.String())
		}
		options = append(options, Option{Name: key.String(), Value: operand})
		return true
	})
	return options
}

func attributesFromJSON(value gjson.Result) Attributes {
	var attrs Attributes
	value.ForEach(func(key, v gjson.Result) bool {
		if v.Type == gjson.True {
			attrs = append(attrs, Attribute{Name: key.String()})
		} else {
			attrs = append(attrs, Attribute{Name: key.String(), Value: v.String(), HasValue: true})
		}
		return true
	})
	return attrs
}
