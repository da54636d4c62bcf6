// Package fluent reads and writes Fluent FTL files.
//
// Messages and terms become entries, with term identifiers carrying
// their - sigil and attributes carried as entry properties. A select
// expression is supported only as the entire value of a message or
// attribute; its selector is hoisted into a declaration whose function
// is number when all variant keys are numeric or plural categories,
// and string otherwise.
package fluent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lus/fluent.go/fluent/parser"
	"github.com/lus/fluent.go/fluent/parser/ast"

	"github.com/l10n-tools/l10nres/formats"
	"github.com/l10n-tools/l10nres/model"
)

var (
	identifierRe = regexp.MustCompile(`^-?[a-zA-Z][a-zA-Z0-9_-]*$`)
	numberValRe  = regexp.MustCompile(`^-?[0-9]+(?:\.[0-9]+)?$`)
	escapeRe     = regexp.MustCompile(`\\(?:([\\"])|u([0-9a-fA-F]{4})|U([0-9a-fA-F]{6}))`)
)

func isPluralCategory(s string) bool {
	switch s {
	case "zero", "one", "two", "few", "many", "other":
		return true
	}
	return false
}

// Parse parses FTL source into a message resource.
//
// Group comments start a new section, resource comments are collected
// into the resource comment, and a comment standing alone at the very
// start of the file becomes "info" metadata on the resource.
func Parse(source []byte) (*model.Resource, error) {
	root, errs := parser.New(string(source)).Parse()
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid Fluent source: %s", errs[0].Error())
	}
	res := &model.Resource{Format: formats.Fluent}
	var comments []string
	var cur *model.Section
	section := func() *model.Section {
		if cur == nil {
			cur = &model.Section{}
			res.Sections = append(res.Sections, cur)
		}
		return cur
	}
	for i, node := range root.Body {
		switch n := node.(type) {
		case *ast.ResourceComment:
			comments = append(comments, n.Content)
		case *ast.GroupComment:
			cur = &model.Section{Comment: n.Content}
			res.Sections = append(res.Sections, cur)
		case *ast.Comment:
			if i == 0 {
				res.Meta = res.Meta.Set("info", n.Content)
			} else {
				s := section()
				s.Entries = append(s.Entries, model.Comment{Comment: n.Content})
			}
		case *ast.Message:
			entry, err := messageEntry(n.ID.Name, n.Value, n.Attributes, n.Comment)
			if err != nil {
				return nil, err
			}
			s := section()
			s.Entries = append(s.Entries, entry)
		case *ast.Term:
			entry, err := messageEntry("-"+n.ID.Name, n.Value, n.Attributes, n.Comment)
			if err != nil {
				return nil, err
			}
			s := section()
			s.Entries = append(s.Entries, entry)
		case *ast.Junk:
			return nil, fmt.Errorf("invalid Fluent source: %s", strings.TrimSpace(n.Content))
		}
	}
	res.Comment = strings.Join(comments, "\n\n")
	if len(res.Sections) == 0 {
		res.Sections = []*model.Section{{}}
	}
	return res, nil
}

func messageEntry(name string, value *ast.Pattern, attributes []*ast.Attribute, comment *ast.Comment) (*model.Entry, error) {
	entry := &model.Entry{ID: model.ID{name}}
	if comment != nil {
		entry.Comment = comment.Content
	}
	if value == nil {
		entry.Value = &model.PatternMessage{}
	} else {
		msg, err := patternMessage(value)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		entry.Value = msg
	}
	for _, attr := range attributes {
		msg, err := patternMessage(attr.Value)
		if err != nil {
			return nil, fmt.Errorf("parsing %s.%s: %w", name, attr.ID.Name, err)
		}
		entry.Properties = append(entry.Properties, model.Property{Name: attr.ID.Name, Value: msg})
	}
	return entry, nil
}

func patternMessage(p *ast.Pattern) (model.Message, error) {
	if len(p.Elements) == 1 {
		if pl, ok := p.Elements[0].(*ast.Placeable); ok {
			if sel, ok := unwrapSelect(pl); ok {
				return selectMessage(sel)
			}
		}
	}
	pattern, err := convertPattern(p)
	if err != nil {
		return nil, err
	}
	return &model.PatternMessage{Pattern: pattern}, nil
}

// unwrapSelect digs through nested placeables for a select expression.
func unwrapSelect(pl *ast.Placeable) (*ast.SelectExpression, bool) {
	expr := pl.Expression
	for {
		switch e := expr.(type) {
		case *ast.SelectExpression:
			return e, true
		case *ast.Placeable:
			expr = e.Expression
		default:
			return nil, false
		}
	}
}

func convertPattern(p *ast.Pattern) (model.Pattern, error) {
	var pattern model.Pattern
	for _, el := range p.Elements {
		switch e := el.(type) {
		case *ast.Text:
			pattern = pattern.AppendText(e.Value)
		case *ast.Placeable:
			if _, ok := unwrapSelect(e); ok {
				return nil, fmt.Errorf("select expressions are only supported as the full value")
			}
			expr, err := expression(e.Expression)
			if err != nil {
				return nil, err
			}
			pattern = append(pattern, expr)
		default:
			return nil, fmt.Errorf("unsupported pattern element %T", el)
		}
	}
	return pattern, nil
}

func selectMessage(sel *ast.SelectExpression) (*model.SelectMessage, error) {
	msg := &model.SelectMessage{}
	numeric := true
	for _, v := range sel.Variants {
		var key string
		switch k := v.Key.(type) {
		case *ast.Identifier:
			key = k.Name
		case *ast.NumberLiteral:
			key = k.Value
		default:
			return nil, fmt.Errorf("unsupported variant key %T", v.Key)
		}
		if !numberValRe.MatchString(key) && !isPluralCategory(key) {
			numeric = false
		}
		pattern, err := convertPattern(v.Value)
		if err != nil {
			return nil, err
		}
		mk := model.Key{Value: key}
		if v.Default {
			mk = model.Catchall(key)
		}
		msg.Variants = append(msg.Variants, model.Variant{
			Keys:    []model.Key{mk},
			Pattern: pattern,
		})
	}
	expr, err := selectorExpression(sel.Selector, numeric)
	if err != nil {
		return nil, err
	}

	vars := map[string]bool{}
	for _, v := range msg.Variants {
		collectVariables(v.Pattern, vars)
	}
	stem := ""
	if v, ok := expr.Arg.(*model.VariableRef); ok {
		stem = v.Name
	}
	name := stem
	if name == "" || vars[name] {
		for i := 1; ; i++ {
			name = stem + "_" + strconv.Itoa(i)
			if !vars[name] {
				break
			}
		}
	}
	msg.Declarations = model.Declarations{{Name: name, Value: expr}}
	msg.Selectors = []model.VariableRef{{Name: name}}
	return msg, nil
}

func selectorExpression(node ast.Node, numeric bool) (*model.Expression, error) {
	switch e := node.(type) {
	case *ast.VariableReference:
		fn := "string"
		if numeric {
			fn = "number"
		}
		return &model.Expression{Arg: &model.VariableRef{Name: e.ID.Name}, Function: fn}, nil
	case *ast.StringLiteral:
		s, err := unescapeLiteral(e.Value)
		if err != nil {
			return nil, err
		}
		return &model.Expression{Arg: model.Literal(s), Function: "string"}, nil
	}
	return expression(node)
}

func expression(node ast.Node) (*model.Expression, error) {
	switch e := node.(type) {
	case *ast.Placeable:
		return expression(e.Expression)
	case *ast.StringLiteral:
		s, err := unescapeLiteral(e.Value)
		if err != nil {
			return nil, err
		}
		return &model.Expression{Arg: model.Literal(s)}, nil
	case *ast.NumberLiteral:
		return &model.Expression{Arg: model.Literal(e.Value), Function: "number"}, nil
	case *ast.VariableReference:
		return &model.Expression{Arg: &model.VariableRef{Name: e.ID.Name}}, nil
	case *ast.MessageReference:
		ref := e.ID.Name
		if e.Attribute != nil {
			ref += "." + e.Attribute.Name
		}
		return &model.Expression{Arg: model.Literal(ref), Function: "message"}, nil
	case *ast.TermReference:
		ref := "-" + e.ID.Name
		if e.Attribute != nil {
			ref += "." + e.Attribute.Name
		}
		expr := &model.Expression{Arg: model.Literal(ref), Function: "message"}
		if e.Arguments != nil {
			if len(e.Arguments.Positional) > 0 {
				return nil, fmt.Errorf("positional arguments are not supported for term %s", ref)
			}
			opts, err := namedOptions(e.Arguments.Named)
			if err != nil {
				return nil, err
			}
			expr.Options = opts
		}
		return expr, nil
	case *ast.FunctionReference:
		expr := &model.Expression{Function: strings.ToLower(e.ID.Name)}
		if e.Arguments != nil {
			if len(e.Arguments.Positional) > 1 {
				return nil, fmt.Errorf("%s() takes at most one positional argument", e.ID.Name)
			}
			if len(e.Arguments.Positional) == 1 {
				arg, err := operand(e.Arguments.Positional[0])
				if err != nil {
					return nil, err
				}
				expr.Arg = arg
			}
			opts, err := namedOptions(e.Arguments.Named)
			if err != nil {
				return nil, err
			}
			expr.Options = opts
		}
		return expr, nil
	}
	return nil, fmt.Errorf("unsupported expression %T", node)
}

func operand(node ast.Node) (model.Operand, error) {
	switch e := node.(type) {
	case *ast.StringLiteral:
		s, err := unescapeLiteral(e.Value)
		if err != nil {
			return nil, err
		}
		return model.Literal(s), nil
	case *ast.NumberLiteral:
		return model.Literal(e.Value), nil
	case *ast.VariableReference:
		return &model.VariableRef{Name: e.ID.Name}, nil
	}
	return nil, fmt.Errorf("unsupported argument %T", node)
}

func namedOptions(named []*ast.NamedArgument) (model.Options, error) {
	var opts model.Options
	for _, arg := range named {
		value, err := operand(arg.Value)
		if err != nil {
			return nil, err
		}
		opts = append(opts, model.Option{Name: arg.Name.Name, Value: value})
	}
	return opts, nil
}

func collectVariables(pattern model.Pattern, vars map[string]bool) {
	for _, part := range pattern {
		expr, ok := part.(*model.Expression)
		if !ok {
			continue
		}
		if v, ok := expr.Arg.(*model.VariableRef); ok {
			vars[v.Name] = true
		}
		for _, opt := range expr.Options {
			if v, ok := opt.Value.(*model.VariableRef); ok {
				vars[v.Name] = true
			}
		}
	}
}

// unescapeLiteral resolves \\, \" and \uXXXX \UXXXXXX escapes in a
// string literal, which the parser keeps verbatim. Escape syntax has
// already been validated by the parser; out-of-range code points become
// the replacement character.
func unescapeLiteral(raw string) (string, error) {
	out := escapeRe.ReplaceAllStringFunc(raw, func(m string) string {
		if len(m) == 2 {
			return m[1:]
		}
		code, err := strconv.ParseUint(m[2:], 16, 32)
		if err != nil || code > 0x10FFFF || (code >= 0xD800 && code <= 0xDFFF) {
			return "�"
		}
		return string(rune(code))
	})
	return out, nil
}
