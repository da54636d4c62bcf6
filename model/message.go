// Package model defines the unified message data model shared by all
// localization formats: patterns of literal text, expressions and markup,
// single-pattern and select messages, and the Entry/Section/Resource
// containers that wrap them.
package model

import (
	"fmt"
)

// VariableRef identifies a bound variable by name.
type VariableRef struct {
	Name string
}

// Operand is the argument of an expression or the value of an option:
// either a Literal string or a *VariableRef. A nil Operand means absent.
type Operand interface {
	operand()
}

// Literal is a literal string operand.
type Literal string

func (Literal) operand()      {}
func (*VariableRef) operand() {}

// Option is a named argument of an expression function or markup element.
type Option struct {
	Name  string
	Value Operand
}

// Options is an ordered list of options. Order is preserved for
// serialization but is not significant for comparison.
type Options []Option

// Get returns the value of the named option.
func (o Options) Get(name string) (Operand, bool) {
	for _, opt := range o {
		if opt.Name == name {
			return opt.Value, true
		}
	}
	return nil, false
}

// Attribute carries round-trip metadata on an expression or markup,
// such as the original source text of a placeholder.
// An attribute either has a string value, or is a bare flag (HasValue
// false), matching the string-or-true values of the JSON schema.
type Attribute struct {
	Name     string
	Value    string
	HasValue bool
}

// Attributes is an ordered list of attributes.
type Attributes []Attribute

// Get returns the string value of the named attribute.
// The second return is false if the attribute is absent or a bare flag.
func (a Attributes) Get(name string) (string, bool) {
	for _, attr := range a {
		if attr.Name == name {
			return attr.Value, attr.HasValue
		}
	}
	return "", false
}

// Has reports whether the named attribute is present, with or without a value.
func (a Attributes) Has(name string) bool {
	for _, attr := range a {
		if attr.Name == name {
			return true
		}
	}
	return false
}

// String adds or replaces a string-valued attribute.
func (a Attributes) String(name, value string) Attributes {
	for i, attr := range a {
		if attr.Name == name {
			a[i] = Attribute{Name: name, Value: value, HasValue: true}
			return a
		}
	}
	return append(a, Attribute{Name: name, Value: value, HasValue: true})
}

// Flag adds or replaces a bare (true-valued) attribute.
func (a Attributes) Flag(name string) Attributes {
	for i, attr := range a {
		if attr.Name == name {
			a[i] = Attribute{Name: name}
			return a
		}
	}
	return append(a, Attribute{Name: name})
}

// Source is a shorthand for the "source" attribute, which parsers set to
// the exact matched substring of a placeholder so that serializers can
// reproduce the original spelling.
func (a Attributes) Source() (string, bool) {
	return a.Get("source")
}

// Expression is a placeholder: an argument (literal or variable reference)
// plus an optional formatting function with options.
//
// A valid Expression has a non-nil Arg, a non-empty Function, or both.
// Non-empty Options require a non-empty Function.
type Expression struct {
	Arg        Operand
	Function   string
	Options    Options
	Attributes Attributes
}

// Markup is an open, standalone, or close span marker for an inline
// element such as a bold span.
type Markup struct {
	Kind       MarkupKind
	Name       string
	Options    Options
	Attributes Attributes
}

// MarkupKind distinguishes open, standalone, and close markup.
type MarkupKind int8

const (
	MarkupOpen MarkupKind = iota
	MarkupStandalone
	MarkupClose
)

func (k MarkupKind) String() string {
	switch k {
	case MarkupOpen:
		return "open"
	case MarkupStandalone:
		return "standalone"
	case MarkupClose:
		return "close"
	}
	return fmt.Sprintf("MarkupKind(%d)", int8(k))
}

// PatternPart is one element of a pattern: Text, *Expression, or *Markup.
type PatternPart interface {
	patternPart()
}

// Text is literal message text with all escape sequences processed.
type Text string

func (Text) patternPart()        {}
func (*Expression) patternPart() {}
func (*Markup) patternPart()     {}

// Pattern is a linear sequence of text and placeholders corresponding to
// potential output of a message. Parsers coalesce adjacent Text parts.
type Pattern []PatternPart

// AppendText appends literal text to the pattern, merging it into the
// final part when that part is already text.
func (p Pattern) AppendText(s string) Pattern {
	if s == "" && len(p) > 0 {
		return p
	}
	if n := len(p); n > 0 {
		if prev, ok := p[n-1].(Text); ok {
			p[n-1] = prev + Text(s)
			return p
		}
	}
	return append(p, Text(s))
}

// Declaration is a named, pattern-external binding of an expression,
// referenced by variable name from within a pattern or selector.
type Declaration struct {
	Name  string
	Value *Expression
}

// Declarations is an ordered name-to-expression mapping.
type Declarations []Declaration

// Get returns the declared expression for name.
func (d Declarations) Get(name string) (*Expression, bool) {
	for _, decl := range d {
		if decl.Name == name {
			return decl.Value, true
		}
	}
	return nil, false
}

// Set adds or replaces the declaration for name.
func (d Declarations) Set(name string, value *Expression) Declarations {
	for i, decl := range d {
		if decl.Name == name {
			d[i].Value = value
			return d
		}
	}
	return append(d, Declaration{Name: name, Value: value})
}

// Message is either a *PatternMessage or a *SelectMessage.
type Message interface {
	isMessage()

	// IsEmpty reports whether every pattern of the message consists
	// only of empty text parts.
	IsEmpty() bool
}

// PatternMessage is a message without selectors, with a single pattern.
type PatternMessage struct {
	Pattern      Pattern
	Declarations Declarations
}

func (*PatternMessage) isMessage() {}

// IsEmpty reports whether the pattern is empty or consists only of empty
// strings. Expressions and markup count as non-empty.
func (m *PatternMessage) IsEmpty() bool {
	return patternIsEmpty(m.Pattern)
}

// Key is a variant key: a literal string value, or a catch-all.
// All catch-all keys belong to a single equivalence class: they compare
// equal regardless of their display label.
type Key struct {
	Value    string
	Catchall bool
}

// Catchall returns a catch-all key with an optional display label.
func Catchall(label string) Key {
	return Key{Value: label, Catchall: true}
}

// KeyEqual reports whether two keys match, treating any two catch-all
// keys as equal.
func KeyEqual(a, b Key) bool {
	if a.Catchall || b.Catchall {
		return a.Catchall == b.Catchall
	}
	return a.Value == b.Value
}

// KeysEqual reports whether two key tuples match position-wise.
func KeysEqual(a, b []Key) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !KeyEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Variant is one keyed pattern of a select message.
type Variant struct {
	Keys    []Key
	Pattern Pattern
}

// SelectMessage is a message with one or more selectors and a
// corresponding set of keyed variants.
//
// Every variant key tuple has the same length as the selector tuple, and
// format-specific serializers conventionally require an all-catch-all
// variant even though the model itself does not enforce one.
type SelectMessage struct {
	Declarations Declarations
	Selectors    []VariableRef
	Variants     []Variant
}

func (*SelectMessage) isMessage() {}

// IsEmpty reports whether all variant patterns are empty or consist only
// of empty strings.
func (m *SelectMessage) IsEmpty() bool {
	for _, v := range m.Variants {
		if !patternIsEmpty(v.Pattern) {
			return false
		}
	}
	return true
}

// SelectorExpressions maps each selector back to its declared expression.
// A selector name missing from the declarations is a caller contract
// violation and returns an error.
func (m *SelectMessage) SelectorExpressions() ([]*Expression, error) {
	exprs := make([]*Expression, len(m.Selectors))
	for i, sel := range m.Selectors {
		expr, ok := m.Declarations.Get(sel.Name)
		if !ok {
			return nil, fmt.Errorf("no declaration for selector $%s", sel.Name)
		}
		exprs[i] = expr
	}
	return exprs, nil
}

// Variant returns the pattern for the given key tuple, treating all
// catch-all keys as equal.
func (m *SelectMessage) Variant(keys []Key) (Pattern, bool) {
	for _, v := range m.Variants {
		if KeysEqual(v.Keys, keys) {
			return v.Pattern, true
		}
	}
	return nil, false
}

func patternIsEmpty(p Pattern) bool {
	for _, part := range p {
		if text, ok := part.(Text); !ok || text != "" {
			return false
		}
	}
	return true
}
