package mf2

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/l10n-tools/l10nres/model"
)

// Name and number grammar shared by the parser, serializer, and validator.
const nameStart = `a-zA-Z_\x{C0}-\x{D6}\x{D8}-\x{F6}\x{F8}-\x{2FF}` +
	`\x{370}-\x{37D}\x{37F}-\x{61B}\x{61D}-\x{1FFF}\x{200C}-\x{200D}` +
	`\x{2070}-\x{218F}\x{2C00}-\x{2FEF}\x{3001}-\x{D7FF}\x{F900}-\x{FDCF}` +
	`\x{FDF0}-\x{FFFC}\x{10000}-\x{EFFFF}`

const nameBody = `[` + nameStart + `][` + nameStart + `0-9.\x{B7}\x{300}-\x{36F}\x{203F}-\x{2040}-]*`

const numberBody = `-?(?:0|(?:[1-9][0-9]*))(?:.[0-9]+)?(?:[eE][-+]?[0-9]+)?`

var (
	nameRe   = regexp.MustCompile(`^` + nameBody)
	numberRe = regexp.MustCompile(`^` + numberBody)

	nameFullRe       = regexp.MustCompile(`^(?:` + nameBody + `)$`)
	numberFullRe     = regexp.MustCompile(`^(?:` + numberBody + `)$`)
	identifierFullRe = regexp.MustCompile(`^(?:` + nameBody + `)(?::` + nameBody + `)?$`)
)

// ValidateMessage checks the MF2 validity constraints that the model
// types cannot enforce: name and identifier syntax, expression shape,
// selector annotations, variant key arity, the all-catch-all fallback
// variant, and declaration uniqueness including reference cycles.
//
// Declarations are reordered into a canonical dependency order.
func ValidateMessage(msg model.Message) error {
	switch m := msg.(type) {
	case *model.PatternMessage:
		decls, err := validateDeclarations(m.Declarations)
		if err != nil {
			return err
		}
		m.Declarations = decls
		return validatePattern(m.Pattern)
	case *model.SelectMessage:
		decls, err := validateDeclarations(m.Declarations)
		if err != nil {
			return err
		}
		m.Declarations = decls
		if len(m.Selectors) == 0 {
			return fmt.Errorf("select message without selectors")
		}
		for _, sel := range m.Selectors {
			if err := validateVariable(sel.Name); err != nil {
				return err
			}
			if err := checkSelectorAnnotation(m.Declarations, sel.Name); err != nil {
				return err
			}
		}
		for _, variant := range m.Variants {
			if len(variant.Keys) != len(m.Selectors) {
				return fmt.Errorf("variant key mismatch, expected %d but found %d",
					len(m.Selectors), len(variant.Keys))
			}
			if err := validatePattern(variant.Pattern); err != nil {
				return err
			}
		}
		fallback := make([]model.Key, len(m.Selectors))
		for i := range fallback {
			fallback[i] = model.Catchall("")
		}
		if _, ok := m.Variant(fallback); !ok {
			return fmt.Errorf("missing fallback variant")
		}
		return nil
	}
	return fmt.Errorf("unsupported message type %T", msg)
}

func validateDeclarations(declarations model.Declarations) (model.Declarations, error) {
	type declInfo struct {
		name    string
		isInput bool
	}
	seen := map[string]bool{}
	deps := map[string]map[string]bool{}
	var infos []declInfo
	for _, decl := range declarations {
		if !nameFullRe.MatchString(decl.Name) {
			return nil, fmt.Errorf("invalid declaration name: %s", decl.Name)
		}
		if decl.Value == nil {
			return nil, fmt.Errorf("missing declaration expression for $%s", decl.Name)
		}
		if seen[decl.Name] {
			return nil, fmt.Errorf("duplicate declaration for $%s", decl.Name)
		}
		seen[decl.Name] = true
		if err := validateExpression(decl.Value); err != nil {
			return nil, err
		}
		var varName string
		if v, ok := decl.Value.Arg.(*model.VariableRef); ok {
			varName = v.Name
		}
		isInput := varName != "" && varName == decl.Name
		infos = append(infos, declInfo{name: decl.Name, isInput: isInput})
		d := map[string]bool{}
		if varName != "" && !isInput {
			d[varName] = true
		}
		for _, opt := range decl.Value.Options {
			if v, ok := opt.Value.(*model.VariableRef); ok {
				d[v.Name] = true
			}
		}
		deps[decl.Name] = d
	}

	for name := range deps {
		closure := map[string]bool{}
		deepDependencies(deps, name, closure)
		if closure[name] {
			return nil, fmt.Errorf("duplicate declaration for $%s", name)
		}
		deps[name] = closure
	}

	if len(infos) > 1 {
		sort.SliceStable(infos, func(i, j int) bool {
			a, b := infos[i], infos[j]
			if deps[b.name][a.name] {
				return true
			}
			if deps[a.name][b.name] {
				return false
			}
			if a.isInput != b.isInput {
				return a.isInput
			}
			return a.name < b.name
		})
		sorted := make(model.Declarations, 0, len(declarations))
		for _, info := range infos {
			expr, _ := declarations.Get(info.name)
			sorted = append(sorted, model.Declaration{Name: info.name, Value: expr})
		}
		return sorted, nil
	}
	return declarations, nil
}

func deepDependencies(deps map[string]map[string]bool, name string, res map[string]bool) {
	for dep := range deps[name] {
		if !res[dep] {
			res[dep] = true
			deepDependencies(deps, dep, res)
		}
	}
}

func validatePattern(pattern model.Pattern) error {
	for _, part := range pattern {
		switch pt := part.(type) {
		case *model.Expression:
			if err := validateExpression(pt); err != nil {
				return err
			}
		case *model.Markup:
			if err := validateMarkup(pt); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateExpression(expr *model.Expression) error {
	if v, ok := expr.Arg.(*model.VariableRef); ok {
		if err := validateVariable(v.Name); err != nil {
			return err
		}
	}
	if expr.Function == "" {
		if expr.Arg == nil {
			return fmt.Errorf("invalid expression with no operand and no function")
		}
		if len(expr.Options) > 0 {
			return fmt.Errorf("invalid expression with options but no function")
		}
	} else if identifierFullRe.MatchString(expr.Function) {
		if err := validateOptions(expr.Options); err != nil {
			return err
		}
	} else {
		return fmt.Errorf("invalid function name: %s", expr.Function)
	}
	return validateAttributes(expr.Attributes)
}

func validateMarkup(markup *model.Markup) error {
	if !identifierFullRe.MatchString(markup.Name) {
		return fmt.Errorf("invalid markup name: %s", markup.Name)
	}
	if err := validateOptions(markup.Options); err != nil {
		return err
	}
	return validateAttributes(markup.Attributes)
}

func validateOptions(options model.Options) error {
	seen := map[string]bool{}
	for _, opt := range options {
		if !identifierFullRe.MatchString(opt.Name) {
			return fmt.Errorf("invalid option name: %s", opt.Name)
		}
		if seen[opt.Name] {
			return fmt.Errorf("duplicate option name %s", opt.Name)
		}
		seen[opt.Name] = true
		if v, ok := opt.Value.(*model.VariableRef); ok {
			if err := validateVariable(v.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateAttributes(attributes model.Attributes) error {
	seen := map[string]bool{}
	for _, attr := range attributes {
		if !identifierFullRe.MatchString(attr.Name) {
			return fmt.Errorf("invalid attribute name: %s", attr.Name)
		}
		if seen[attr.Name] {
			return fmt.Errorf("duplicate attribute name %s", attr.Name)
		}
		seen[attr.Name] = true
	}
	return nil
}

func validateVariable(name string) error {
	if !nameFullRe.MatchString(name) {
		return fmt.Errorf("invalid variable name: %s", name)
	}
	return nil
}
