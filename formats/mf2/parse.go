// Package mf2 implements the MessageFormat 2 message syntax: parsing,
// serialization, and model-level validation.
package mf2

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/l10n-tools/l10nres/model"
)

// ParseError reports a message syntax error and its location.
type ParseError struct {
	Source  string
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	src := strings.ReplaceAll(e.Source, "\n", "¶")
	col := utf8.RuneCountInString(e.Source[:e.Pos])
	return fmt.Sprintf("%s\n%s\n%s^", e.Message, src, strings.Repeat(" ", col))
}

// ParseMessage parses MF2 message syntax into a message.
//
// Errors are of type *ParseError.
func ParseMessage(source string) (model.Message, error) {
	p := &parser{source: source}
	return p.parse()
}

type parser struct {
	source string
	pos    int
}

func (p *parser) errorf(format string, a ...interface{}) error {
	return &ParseError{Source: p.source, Pos: p.pos, Message: fmt.Sprintf(format, a...)}
}

func (p *parser) parse() (model.Message, error) {
	var msg model.Message
	var err error
	if ch := p.skipOptSpace(); ch == '.' {
		msg, err = p.complexMessage()
	} else if strings.HasPrefix(p.source[p.pos:], "{{") {
		var pattern model.Pattern
		pattern, err = p.quotedPattern()
		msg = &model.PatternMessage{Pattern: pattern}
	} else {
		p.pos = 0
		var pattern model.Pattern
		pattern, err = p.pattern()
		msg = &model.PatternMessage{Pattern: pattern}
	}
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.source) {
		return nil, p.errorf("Extra content at message end")
	}
	return msg, nil
}

func (p *parser) complexMessage() (model.Message, error) {
	var declarations model.Declarations
	declared := map[string]bool{}
	var keyword string
	for {
		end := p.pos + 6
		if end > len(p.source) {
			end = len(p.source)
		}
		keyword = p.source[p.pos:end]
		var name string
		var expr *model.Expression
		var err error
		switch keyword {
		case ".input":
			name, expr, err = p.inputDeclaration()
		case ".local":
			name, expr, err = p.localDeclaration()
			if err == nil {
				if v, ok := expr.Arg.(*model.VariableRef); ok {
					declared[v.Name] = true
				}
			}
		default:
			keyword = ""
		}
		if keyword == "" {
			break
		}
		if err != nil {
			return nil, err
		}
		if expr.Function != "" {
			for _, opt := range expr.Options {
				if v, ok := opt.Value.(*model.VariableRef); ok {
					declared[v.Name] = true
				}
			}
		}
		if declared[name] {
			return nil, p.errorf("Duplicate declaration for $%s", name)
		}
		declarations = declarations.Set(name, expr)
		declared[name] = true
		p.skipOptSpace()
	}

	if strings.HasPrefix(p.source[p.pos:], ".match") {
		selectors, err := p.matchStatement()
		if err != nil {
			return nil, err
		}
		for _, sel := range selectors {
			if err := checkSelectorAnnotation(declarations, sel.Name); err != nil {
				return nil, p.errorf("%s", err)
			}
		}
		var variants []model.Variant
		for p.pos < len(p.source) {
			keys, pattern, err := p.variant(len(selectors))
			if err != nil {
				return nil, err
			}
			for _, prev := range variants {
				if model.KeysEqual(prev.Keys, keys) {
					return nil, p.errorf("Duplicate variant key list")
				}
			}
			variants = append(variants, model.Variant{Keys: keys, Pattern: pattern})
		}
		msg := &model.SelectMessage{
			Declarations: declarations,
			Selectors:    selectors,
			Variants:     variants,
		}
		fallback := make([]model.Key, len(selectors))
		for i := range fallback {
			fallback[i] = model.Catchall("")
		}
		if _, ok := msg.Variant(fallback); !ok {
			return nil, p.errorf("Missing fallback variant")
		}
		return msg, nil
	}

	pattern, err := p.quotedPattern()
	if err != nil {
		return nil, err
	}
	return &model.PatternMessage{Pattern: pattern, Declarations: declarations}, nil
}

// checkSelectorAnnotation follows unannotated declaration chains until it
// finds a declaration with a function for the selector variable.
func checkSelectorAnnotation(declarations model.Declarations, name string) error {
	selName := name
	expr, ok := declarations.Get(selName)
	for ok && expr.Function == "" {
		if v, isVar := expr.Arg.(*model.VariableRef); isVar && v.Name != selName {
			selName = v.Name
			expr, ok = declarations.Get(selName)
		} else {
			ok = false
		}
	}
	if !ok {
		return fmt.Errorf("Missing selector annotation for $%s", name)
	}
	return nil
}

func (p *parser) inputDeclaration() (string, *model.Expression, error) {
	p.pos += 6
	p.skipOptSpace()
	if err := p.expect('{'); err != nil {
		return "", nil, err
	}
	part, err := p.expressionOrMarkup()
	if err != nil {
		return "", nil, err
	}
	expr, ok := part.(*model.Expression)
	if !ok {
		return "", nil, p.errorf("Variable argument required for .input")
	}
	v, ok := expr.Arg.(*model.VariableRef)
	if !ok {
		return "", nil, p.errorf("Variable argument required for .input")
	}
	return v.Name, expr, nil
}

func (p *parser) localDeclaration() (string, *model.Expression, error) {
	p.pos += 6
	if !p.reqSpace() || p.char() != '$' {
		return "", nil, p.errorf("Expected $ with leading space")
	}
	name, err := p.name(1)
	if err != nil {
		return "", nil, err
	}
	p.skipOptSpace()
	if err := p.expect('='); err != nil {
		return "", nil, err
	}
	p.skipOptSpace()
	if err := p.expect('{'); err != nil {
		return "", nil, err
	}
	part, err := p.expressionOrMarkup()
	if err != nil {
		return "", nil, err
	}
	expr, ok := part.(*model.Expression)
	if !ok {
		return "", nil, p.errorf("Markup is not a valid .local value")
	}
	if v, ok := expr.Arg.(*model.VariableRef); ok && v.Name == name {
		return "", nil, p.errorf("A .local declaration cannot be self-referential")
	}
	return name, expr, nil
}

func (p *parser) matchStatement() ([]model.VariableRef, error) {
	p.pos += 6
	var names []string
	hasSpace := p.reqSpace()
	for hasSpace && p.char() == '$' {
		name, err := p.name(1)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		hasSpace = p.reqSpace()
	}
	if len(names) == 0 {
		return nil, p.errorf("At least one variable reference is required for .match")
	}
	if !hasSpace {
		return nil, p.errorf("Expected space")
	}
	selectors := make([]model.VariableRef, len(names))
	for i, name := range names {
		selectors[i] = model.VariableRef{Name: name}
	}
	return selectors, nil
}

func (p *parser) variant(numSel int) ([]model.Key, model.Pattern, error) {
	var keys []model.Key
	ch := p.char()
	for ch != '{' && ch != 0 {
		if ch == '*' {
			keys = append(keys, model.Catchall(""))
			p.pos++
		} else {
			value, err := p.literal()
			if err != nil {
				return nil, nil, err
			}
			keys = append(keys, model.Key{Value: value})
		}
		if !p.reqSpace() {
			break
		}
		ch = p.char()
	}
	if len(keys) != numSel {
		return nil, nil, p.errorf(
			"Variant key mismatch, expected %d but found %d", numSel, len(keys))
	}
	pattern, err := p.quotedPattern()
	return keys, pattern, err
}

func (p *parser) quotedPattern() (model.Pattern, error) {
	if !strings.HasPrefix(p.source[p.pos:], "{{") {
		return nil, p.errorf("Expected {{")
	}
	p.pos += 2
	pattern, err := p.pattern()
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(p.source[p.pos:], "}}") {
		return nil, p.errorf("Expected }}")
	}
	p.pos += 2
	p.skipOptSpace()
	return pattern, nil
}

func (p *parser) pattern() (model.Pattern, error) {
	var pattern model.Pattern
	ch := p.char()
	for ch != 0 && ch != '}' {
		if ch == '{' {
			p.pos++
			part, err := p.expressionOrMarkup()
			if err != nil {
				return nil, err
			}
			pattern = append(pattern, part)
		} else {
			text, err := p.text()
			if err != nil {
				return nil, err
			}
			pattern = append(pattern, model.Text(text))
		}
		ch = p.char()
	}
	return pattern, nil
}

func (p *parser) text() (string, error) {
	var sb strings.Builder
	atEsc := false
	for _, ch := range p.source[p.pos:] {
		if atEsc {
			if !isEscChar(ch) {
				return "", p.errorf(`Invalid escape: \%c`, ch)
			}
			sb.WriteRune(ch)
			atEsc = false
		} else if ch == 0 {
			return "", p.errorf("NUL character is not allowed")
		} else if ch == '\\' {
			atEsc = true
		} else if ch == '{' || ch == '}' {
			break
		} else {
			sb.WriteRune(ch)
		}
		p.pos += utf8.RuneLen(ch)
	}
	return sb.String(), nil
}

// expressionOrMarkup parses placeholder contents, with the opening brace
// already consumed, through the closing brace.
func (p *parser) expressionOrMarkup() (model.PatternPart, error) {
	ch := p.skipOptSpace()
	var part model.PatternPart
	var err error
	if ch == '#' || ch == '/' {
		part, err = p.markupBody(ch)
	} else {
		part, err = p.expressionBody(ch)
	}
	if err != nil {
		return nil, err
	}
	if err := p.expect('}'); err != nil {
		return nil, err
	}
	return part, nil
}

func (p *parser) expressionBody(ch rune) (*model.Expression, error) {
	var arg model.Operand
	argEnd := p.pos
	if ch == '$' {
		v, err := p.variable()
		if err != nil {
			return nil, err
		}
		arg = v
		argEnd = p.pos
		ch = p.skipOptSpace()
	} else if ch != ':' {
		value, err := p.literal()
		if err != nil {
			return nil, err
		}
		arg = model.Literal(value)
		argEnd = p.pos
		ch = p.skipOptSpace()
	}
	var function string
	var options model.Options
	if ch == ':' {
		if arg != nil && arg != model.Literal("") && p.pos == argEnd {
			return nil, p.errorf("Expected space")
		}
		var err error
		function, err = p.identifier(1)
		if err != nil {
			return nil, err
		}
		options, err = p.options()
		if err != nil {
			return nil, err
		}
	} else {
		p.pos = argEnd
	}
	attributes, err := p.attributes()
	if err != nil {
		return nil, err
	}
	p.skipOptSpace()
	return &model.Expression{
		Arg:        arg,
		Function:   function,
		Options:    options,
		Attributes: attributes,
	}, nil
}

func (p *parser) markupBody(ch rune) (*model.Markup, error) {
	kind := model.MarkupOpen
	if ch == '/' {
		kind = model.MarkupClose
	}
	name, err := p.identifier(1)
	if err != nil {
		return nil, err
	}
	options, err := p.options()
	if err != nil {
		return nil, err
	}
	attributes, err := p.attributes()
	if err != nil {
		return nil, err
	}
	if p.skipOptSpace() == '/' {
		if kind != model.MarkupOpen {
			return nil, p.errorf("Expected }")
		}
		kind = model.MarkupStandalone
		p.pos++
	}
	return &model.Markup{
		Kind:       kind,
		Name:       name,
		Options:    options,
		Attributes: attributes,
	}, nil
}

func (p *parser) options() (model.Options, error) {
	var options model.Options
	optEnd := p.pos
	for p.reqSpace() {
		ch := p.char()
		if ch == 0 || ch == '@' || ch == '/' || ch == '}' {
			p.pos = optEnd
			break
		}
		name, err := p.identifier(0)
		if err != nil {
			return nil, err
		}
		if _, dup := options.Get(name); dup {
			return nil, p.errorf("Duplicate option name %s", name)
		}
		p.skipOptSpace()
		if err := p.expect('='); err != nil {
			return nil, err
		}
		var value model.Operand
		if p.skipOptSpace() == '$' {
			v, err := p.variable()
			if err != nil {
				return nil, err
			}
			value = v
		} else {
			lit, err := p.literal()
			if err != nil {
				return nil, err
			}
			value = model.Literal(lit)
		}
		options = append(options, model.Option{Name: name, Value: value})
		optEnd = p.pos
	}
	return options, nil
}

func (p *parser) attributes() (model.Attributes, error) {
	var attributes model.Attributes
	attrEnd := p.pos
	for p.reqSpace() {
		if p.char() != '@' {
			p.pos = attrEnd
			break
		}
		name, err := p.identifier(1)
		if err != nil {
			return nil, err
		}
		nameEnd := p.pos
		if attributes.Has(name) {
			return nil, p.errorf("Duplicate attribute name %s", name)
		}
		if p.skipOptSpace() == '=' {
			p.pos++
			p.skipOptSpace()
			value, err := p.literal()
			if err != nil {
				return nil, err
			}
			attributes = attributes.String(name, value)
		} else {
			p.pos = nameEnd
			attributes = attributes.Flag(name)
		}
		attrEnd = p.pos
	}
	return attributes, nil
}

func (p *parser) variable() (*model.VariableRef, error) {
	name, err := p.name(1)
	if err != nil {
		return nil, err
	}
	return &model.VariableRef{Name: name}, nil
}

func (p *parser) literal() (string, error) {
	if p.char() == '|' {
		return p.quotedLiteral()
	}
	return p.unquotedLiteral()
}

func (p *parser) quotedLiteral() (string, error) {
	p.pos++
	var sb strings.Builder
	atEsc := false
	for _, ch := range p.source[p.pos:] {
		p.pos += utf8.RuneLen(ch)
		if atEsc {
			if !isEscChar(ch) {
				return "", p.errorf(`Invalid escape: \%c`, ch)
			}
			sb.WriteRune(ch)
			atEsc = false
		} else if ch == 0 {
			return "", p.errorf("NUL character is not allowed")
		} else if ch == '\\' {
			atEsc = true
		} else if ch == '|' {
			return sb.String(), nil
		} else {
			sb.WriteRune(ch)
		}
	}
	return "", p.errorf("Expected |")
}

func (p *parser) unquotedLiteral() (string, error) {
	rest := p.source[p.pos:]
	m := numberRe.FindString(rest)
	if m == "" {
		m = nameRe.FindString(rest)
	}
	if m == "" {
		return "", p.errorf("Invalid name or number")
	}
	p.pos += len(m)
	return m, nil
}

// identifier parses a name with an optional namespace prefix.
func (p *parser) identifier(offset int) (string, error) {
	ns, err := p.name(offset)
	if err != nil {
		return "", err
	}
	if p.char() != ':' {
		return ns, nil
	}
	name, err := p.name(1)
	if err != nil {
		return "", err
	}
	return ns + ":" + name, nil
}

func (p *parser) name(offset int) (string, error) {
	p.pos += offset
	p.skipBidi()
	m := nameRe.FindString(p.source[p.pos:])
	if m == "" {
		return "", p.errorf("Invalid name")
	}
	p.pos += len(m)
	p.skipBidi()
	return m, nil
}

func (p *parser) reqSpace() bool {
	start := p.pos
	ch := p.skipBidi()
	if !isSpace(ch) {
		p.pos = start
		return false
	}
	for isSpace(ch) || isBidi(ch) {
		p.pos += utf8.RuneLen(ch)
		ch = p.char()
	}
	return true
}

func (p *parser) skipOptSpace() rune {
	ch := p.char()
	for isSpace(ch) || isBidi(ch) {
		p.pos += utf8.RuneLen(ch)
		ch = p.char()
	}
	return ch
}

// skipBidi skips bidirectional marks and isolates.
func (p *parser) skipBidi() rune {
	ch := p.char()
	for isBidi(ch) {
		p.pos += utf8.RuneLen(ch)
		ch = p.char()
	}
	return ch
}

func (p *parser) expect(exp rune) error {
	if p.char() != exp {
		return p.errorf("Expected %c", exp)
	}
	p.pos++
	return nil
}

func (p *parser) char() rune {
	if p.pos >= len(p.source) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(p.source[p.pos:])
	return r
}

func isEscChar(ch rune) bool {
	return ch == '\\' || ch == '{' || ch == '|' || ch == '}'
}

func isSpace(ch rune) bool {
	switch ch {
	case '\t', '\n', '\r', ' ', '\u3000':
		return true
	}
	return false
}

// isBidi matches the bidirectional marks and isolates that may surround
// names and whitespace.
func isBidi(ch rune) bool {
	switch ch {
	case '\u061c', '\u200e', '\u200f', '\u2066', '\u2067', '\u2068', '\u2069':
		return true
	}
	return false
}
