package mf2

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/l10n-tools/l10nres/model"
)

var (
	complexStartRe = regexp.MustCompile(`^[\t\n\r \x{3000}]*\.`)
	literalEscRe   = regexp.MustCompile(`[\\|]`)
	textEscRe      = regexp.MustCompile(`[\\{}]`)
)

// SerializeMessage writes a message using MF2 message syntax.
//
// A pattern message without declarations is written as a simple message
// unless its text starts like a complex message, in which case the
// pattern is quoted.
func SerializeMessage(msg model.Message) (string, error) {
	var sb strings.Builder
	switch m := msg.(type) {
	case *model.PatternMessage:
		if len(m.Declarations) == 0 && !startsComplex(m.Pattern) {
			return SerializePattern(m.Pattern)
		}
		if err := writeDeclarations(&sb, m.Declarations); err != nil {
			return "", err
		}
		if err := writeQuotedPattern(&sb, m.Pattern); err != nil {
			return "", err
		}
	case *model.SelectMessage:
		if err := writeDeclarations(&sb, m.Declarations); err != nil {
			return "", err
		}
		sb.WriteString(".match")
		for _, sel := range m.Selectors {
			v, err := variableString(sel.Name)
			if err != nil {
				return "", err
			}
			sb.WriteByte(' ')
			sb.WriteString(v)
		}
		for _, variant := range m.Variants {
			sb.WriteByte('\n')
			for _, key := range variant.Keys {
				if key.Catchall {
					sb.WriteString("* ")
				} else {
					sb.WriteString(literalString(key.Value) + " ")
				}
			}
			if err := writeQuotedPattern(&sb, variant.Pattern); err != nil {
				return "", err
			}
		}
	default:
		return "", fmt.Errorf("unsupported message type %T", msg)
	}
	return sb.String(), nil
}

// SerializePattern writes pattern parts using MF2 pattern syntax,
// escaping literal braces and backslashes in text.
func SerializePattern(pattern model.Pattern) (string, error) {
	var sb strings.Builder
	for _, part := range pattern {
		switch pt := part.(type) {
		case model.Text:
			sb.WriteString(textEscRe.ReplaceAllString(string(pt), `\$0`))
		case *model.Expression:
			if err := writeExpression(&sb, pt); err != nil {
				return "", err
			}
		case *model.Markup:
			if err := writeMarkup(&sb, pt); err != nil {
				return "", err
			}
		}
	}
	return sb.String(), nil
}

func startsComplex(pattern model.Pattern) bool {
	if len(pattern) == 0 {
		return false
	}
	text, ok := pattern[0].(model.Text)
	return ok && complexStartRe.MatchString(string(text))
}

func writeDeclarations(sb *strings.Builder, declarations model.Declarations) error {
	for _, decl := range declarations {
		if v, ok := decl.Value.Arg.(*model.VariableRef); ok && v.Name == decl.Name {
			sb.WriteString(".input ")
		} else {
			name, err := variableString(decl.Name)
			if err != nil {
				return err
			}
			sb.WriteString(".local " + name + " = ")
		}
		if err := writeExpression(sb, decl.Value); err != nil {
			return err
		}
		sb.WriteByte('\n')
	}
	return nil
}

func writeQuotedPattern(sb *strings.Builder, pattern model.Pattern) error {
	sb.WriteString("{{")
	body, err := SerializePattern(pattern)
	if err != nil {
		return err
	}
	sb.WriteString(body)
	sb.WriteString("}}")
	return nil
}

func writeExpression(sb *strings.Builder, expr *model.Expression) error {
	sb.WriteByte('{')
	hasArg := expr.Arg != nil && expr.Arg != model.Literal("")
	if hasArg {
		value, err := operandString(expr.Arg)
		if err != nil {
			return err
		}
		sb.WriteString(value)
	}
	if expr.Function != "" {
		if !identifierFullRe.MatchString(expr.Function) {
			return fmt.Errorf("invalid function name: %s", expr.Function)
		}
		if hasArg {
			sb.WriteByte(' ')
		}
		sb.WriteString(":" + expr.Function)
	} else if !hasArg {
		return fmt.Errorf("invalid expression with no operand and no function")
	} else if len(expr.Options) > 0 {
		return fmt.Errorf("invalid expression with options but no function")
	}
	if err := writeOptions(sb, expr.Options); err != nil {
		return err
	}
	if err := writeAttributes(sb, expr.Attributes); err != nil {
		return err
	}
	sb.WriteByte('}')
	return nil
}

func writeMarkup(sb *strings.Builder, markup *model.Markup) error {
	if markup.Kind == model.MarkupClose {
		sb.WriteString("{/")
	} else {
		sb.WriteString("{#")
	}
	if !identifierFullRe.MatchString(markup.Name) {
		return fmt.Errorf("invalid markup name: %s", markup.Name)
	}
	sb.WriteString(markup.Name)
	if err := writeOptions(sb, markup.Options); err != nil {
		return err
	}
	if err := writeAttributes(sb, markup.Attributes); err != nil {
		return err
	}
	if markup.Kind == model.MarkupStandalone {
		sb.WriteString("/}")
	} else {
		sb.WriteByte('}')
	}
	return nil
}

func writeOptions(sb *strings.Builder, options model.Options) error {
	for _, opt := range options {
		if !identifierFullRe.MatchString(opt.Name) {
			return fmt.Errorf("invalid option name: %s", opt.Name)
		}
		value, err := operandString(opt.Value)
		if err != nil {
			return err
		}
		sb.WriteString(" " + opt.Name + "=" + value)
	}
	return nil
}

func writeAttributes(sb *strings.Builder, attributes model.Attributes) error {
	for _, attr := range attributes {
		if !identifierFullRe.MatchString(attr.Name) {
			return fmt.Errorf("invalid attribute name: %s", attr.Name)
		}
		if attr.HasValue {
			sb.WriteString(" @" + attr.Name + "=" + literalString(attr.Value))
		} else {
			sb.WriteString(" @" + attr.Name)
		}
	}
	return nil
}

func operandString(value model.Operand) (string, error) {
	switch v := value.(type) {
	case model.Literal:
		return literalString(string(v)), nil
	case *model.VariableRef:
		return variableString(v.Name)
	}
	return "", fmt.Errorf("unsupported operand %T", value)
}

func variableString(name string) (string, error) {
	if !nameFullRe.MatchString(name) {
		return "", fmt.Errorf("invalid variable name: %s", name)
	}
	return "$" + name, nil
}

// literalString quotes a literal unless it is a valid name or number.
func literalString(literal string) string {
	if nameFullRe.MatchString(literal) || numberFullRe.MatchString(literal) {
		return literal
	}
	return "|" + literalEscRe.ReplaceAllString(literal, `\$0`) + "|"
}
