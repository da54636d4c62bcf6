package xliff

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/l10n-tools/l10nres/model"
)

var pluralCategories = []string{"zero", "one", "two", "few", "many", "other"}

func isPluralCategory(s string) bool {
	for _, c := range pluralCategories {
		if s == c {
			return true
		}
	}
	return false
}

// https://developer.apple.com/library/archive/documentation/Cocoa/Conceptual/Strings/Articles/formatSpecifiers.html
var (
	xcodePrintf = regexp.MustCompile(
		`%([1-9]\$)?(?:#@([a-zA-Z_]\w*)@|[-#+ 0,]?[0-9.]*(?:(?:hh?|ll?|qztj)[douxX]|L[aAeEfFgG]|[@%aAcCdDeEfFgGoOspSuUxX]))`,
	)
	variantKey          = regexp.MustCompile(`%#@([a-zA-Z_]\w*)@`)
	notFirstPlaceholder = regexp.MustCompile(`^%[2-9]\$`)
)

func parseXcodePattern(src string) model.Pattern {
	return appendXcodePattern(nil, src)
}

// appendXcodePattern appends the contents of an Xcode format string to
// the pattern. Conversion specifiers map by category to canonical
// variable names and function annotations, with the positional index of
// a %1$s style specifier appended to the name. Plural selector tokens
// %#@key@ become substitution expressions.
func appendXcodePattern(out model.Pattern, src string) model.Pattern {
	pos := 0
	for _, m := range xcodePrintf.FindAllStringSubmatchIndex(src, -1) {
		if m[0] > pos {
			out = out.AppendText(src[pos:m[0]])
		}
		pos = m[1]
		source := src[m[0]:m[1]]
		attrs := model.Attributes{}.String("source", source)
		if m[4] >= 0 {
			if m[2] >= 0 {
				attrs = attrs.String("substitution", src[m[2]:m[2]+1])
			} else {
				attrs = attrs.Flag("substitution")
			}
			out = append(out, &model.Expression{
				Arg:        &model.VariableRef{Name: src[m[4]:m[5]]},
				Function:   "substitution",
				Attributes: attrs,
			})
			continue
		}
		format := source[len(source)-1]
		if format == '%' {
			out = append(out, &model.Expression{Arg: model.Literal("%"), Attributes: attrs})
			continue
		}
		var name, function string
		switch {
		case strings.ContainsRune("cCsS", rune(format)):
			name, function = "str", "string"
		case strings.ContainsRune("dDoOpuUxX", rune(format)):
			name, function = "int", "integer"
		case strings.ContainsRune("aAeEfgG", rune(format)):
			name, function = "num", "number"
		default:
			name = "arg"
		}
		if m[2] >= 0 {
			index := src[m[2] : m[2]+1]
			attrs = attrs.String("index", index)
			name += index
		}
		out = append(out, &model.Expression{
			Arg:        &model.VariableRef{Name: name},
			Function:   function,
			Attributes: attrs,
		})
	}
	if pos < len(src) {
		out = out.AppendText(src[pos:])
	}
	return out
}

// An xcodeUnit is the parsed payload of one flattened <trans-unit>.
type xcodeUnit struct {
	meta    model.Meta
	comment string
	pattern model.Pattern
}

type keyedUnit struct {
	key  string
	unit xcodeUnit
}

type subUnit struct {
	varName  string
	category string
	unit     xcodeUnit
}

// xcstringsData collects the per-variant units of one Xcode message.
type xcstringsData struct {
	base   *xcodeUnit
	plural []keyedUnit
	device []keyedUnit
	subs   []subUnit
}

// parseXcstrings reassembles the flattened trans-units of an Xcode
// .xcstrings export, whose identifiers encode a variant dimension and
// category after a "|==|" separator, into select messages.
func parseXcstrings(body *element, fromSource bool) ([]model.SectionEntry, error) {
	msgs := map[string]*xcstringsData{}
	var order []string
	for _, c := range body.children {
		switch c.kind {
		case childText:
			if strings.TrimSpace(c.text) != "" {
				return nil, fmt.Errorf("unexpected text in <body>: %q", c.text)
			}
		case childComment:
			return nil, fmt.Errorf("unsupported comment in Xcode <body>")
		case childElement:
			if c.el.name != "trans-unit" {
				return nil, fmt.Errorf("unsupported <%s> element in <body>", c.el.name)
			}
			id, ok := c.el.attr("id")
			if !ok {
				return nil, fmt.Errorf(`missing "id" attribute for <trans-unit>`)
			}
			msgID, err := parseXcstringsUnit(msgs, c.el, id, fromSource)
			if err != nil {
				return nil, err
			}
			found := false
			for _, o := range order {
				if o == msgID {
					found = true
					break
				}
			}
			if !found {
				order = append(order, msgID)
			}
		}
	}

	var entries []model.SectionEntry
	for _, msgID := range order {
		entry, err := assembleXcstrings(msgID, msgs[msgID])
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseXcstringsUnit(msgs map[string]*xcstringsData, unit *element, id string, fromSource bool) (string, error) {
	idParts := strings.Split(id, "|==|")
	msgID := idParts[0]

	ud, err := xcodeUnitData(unit, id)
	if err != nil {
		return "", err
	}
	meta := attribMetadata(unit, "", "id")
	var comments []string
	for _, note := range ud.notes {
		nm, err := elementMetadata(note, "note", true)
		if err != nil {
			return "", err
		}
		meta = append(meta, nm...)
		if text := note.text(); strings.TrimSpace(text) != "" {
			comments = append(comments, strings.TrimSpace(text))
		}
	}
	var patternSrc string
	if fromSource {
		meta = append(meta, attribMetadata(ud.source, "source")...)
		if ud.target != nil {
			tm, err := elementMetadata(ud.target, "target", true)
			if err != nil {
				return "", err
			}
			meta = append(meta, tm...)
		}
		patternSrc = ud.source.text()
	} else {
		meta = append(meta, model.Metadata{Key: "source", Value: ud.source.text()})
		if ud.target != nil {
			meta = append(meta, attribMetadata(ud.target, "target")...)
			patternSrc = ud.target.text()
		}
	}
	data := xcodeUnit{
		meta:    meta,
		comment: strings.Join(comments, "\n\n"),
		pattern: parseXcodePattern(patternSrc),
	}

	msg, ok := msgs[msgID]
	if !ok {
		msg = &xcstringsData{}
		msgs[msgID] = msg
	}
	if len(idParts) == 1 {
		msg.base = &data
		return msgID, nil
	}
	if len(idParts) == 2 {
		key := strings.Split(idParts[1], ".")
		switch key[0] {
		case "plural":
			if len(key) == 2 {
				msg.plural = append(msg.plural, keyedUnit{key: key[1], unit: data})
				return msgID, nil
			}
		case "substitutions":
			if len(key) == 4 && key[2] == "plural" {
				msg.subs = append(msg.subs, subUnit{varName: key[1], category: key[3], unit: data})
				return msgID, nil
			}
		case "device":
			if len(key) == 2 {
				msg.device = append(msg.device, keyedUnit{key: key[1], unit: data})
				return msgID, nil
			}
		}
	}
	return "", fmt.Errorf("unsupported Xcode id syntax in <trans-unit id=%q>", id)
}

func assembleXcstrings(msgID string, data *xcstringsData) (*model.Entry, error) {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%s for Xcode message %s", fmt.Sprintf(format, args...), msgID)
	}
	switch {
	case len(data.subs) > 0:
		if data.base == nil || len(data.plural) > 0 || len(data.device) > 0 {
			return nil, fail("unsupported variance")
		}
		return assembleSubstitutions(msgID, data, fail)
	case data.base != nil:
		if len(data.plural) > 0 || len(data.device) > 0 {
			return nil, fail("unsupported variance")
		}
		return &model.Entry{
			ID:      model.ID{msgID},
			Value:   &model.PatternMessage{Pattern: data.base.pattern},
			Comment: data.base.comment,
			Meta:    data.base.meta,
		}, nil
	case len(data.plural) > 0:
		if len(data.device) > 0 {
			return nil, fail("unsupported variance")
		}
		return assemblePlural(msgID, data.plural, fail)
	case len(data.device) > 0:
		return assembleDevice(msgID, data.device)
	}
	return nil, fail("unsupported variance")
}

// assemblePlural merges per-category plural units into one select
// message. A placeholder shared by all variant patterns that may be
// the selector variable itself has its function annotation hoisted
// into the single selector declaration.
func assemblePlural(msgID string, variants []keyedUnit, fail func(string, ...any) error) (*model.Entry, error) {
	msg := &model.SelectMessage{
		Declarations: model.Declarations{
			{Name: "plural", Value: &model.Expression{Function: "number"}},
		},
		Selectors: []model.VariableRef{{Name: "plural"}},
	}
	entry := &model.Entry{ID: model.ID{msgID}, Value: msg}
	var comments []keyedComment
	var selPh *model.Expression
	for _, v := range variants {
		if !isPluralCategory(v.key) {
			return nil, fail("invalid plural category")
		}
		if v.unit.comment != "" {
			comments = append(comments, keyedComment{v.key, v.unit.comment})
		}
		for _, m := range v.unit.meta {
			entry.Meta = append(entry.Meta, model.Metadata{Key: v.key + "/" + m.Key, Value: m.Value})
		}
		ph := selectorPlaceholder(v.unit.pattern)
		if ph != nil {
			if selPh == nil {
				selPh = cloneExpression(ph)
			} else if !reflect.DeepEqual(selPh, ph) {
				return nil, fail("placeholder mismatch")
			}
			for _, part := range v.unit.pattern {
				if exp, ok := part.(*model.Expression); ok && reflect.DeepEqual(exp, selPh) {
					exp.Function = ""
				}
			}
		}
		key := model.Key{Value: v.key}
		if v.key == "other" {
			key = model.Catchall(v.key)
		}
		msg.Variants = append(msg.Variants, model.Variant{Keys: []model.Key{key}, Pattern: v.unit.pattern})
	}
	if selPh != nil {
		selPh.Attributes = nil
		name := selPh.Arg.(*model.VariableRef).Name
		msg.Declarations = model.Declarations{{Name: name, Value: selPh}}
		msg.Selectors[0].Name = name
	}
	entry.Comment = combineComments(comments, len(comments) == len(variants))
	if _, ok := msg.Variant([]model.Key{model.Catchall("")}); !ok {
		return nil, fail(`missing "other" variant`)
	}
	return entry, nil
}

// selectorPlaceholder returns the first expression of the pattern that
// could be the plural selector: a variable with a recorded source that
// is not an explicitly non-initial positional specifier.
func selectorPlaceholder(pattern model.Pattern) *model.Expression {
	for _, part := range pattern {
		exp, ok := part.(*model.Expression)
		if !ok {
			continue
		}
		if _, ok := exp.Arg.(*model.VariableRef); !ok {
			continue
		}
		src, ok := exp.Attributes.Source()
		if ok && !notFirstPlaceholder.MatchString(src) {
			return exp
		}
	}
	return nil
}

func assembleDevice(msgID string, variants []keyedUnit) (*model.Entry, error) {
	msg := &model.SelectMessage{
		Declarations: model.Declarations{
			{Name: "device", Value: &model.Expression{Function: "device"}},
		},
		Selectors: []model.VariableRef{{Name: "device"}},
	}
	entry := &model.Entry{ID: model.ID{msgID}, Value: msg}
	var comments []keyedComment
	for _, v := range variants {
		if v.unit.comment != "" {
			comments = append(comments, keyedComment{v.key, v.unit.comment})
		}
		for _, m := range v.unit.meta {
			entry.Meta = append(entry.Meta, model.Metadata{Key: v.key + "/" + m.Key, Value: m.Value})
		}
		key := model.Key{Value: v.key}
		if v.key == "other" {
			key = model.Catchall(v.key)
		}
		msg.Variants = append(msg.Variants, model.Variant{Keys: []model.Key{key}, Pattern: v.unit.pattern})
	}
	entry.Comment = combineComments(comments, len(comments) == len(variants))
	if _, ok := msg.Variant([]model.Key{model.Catchall("")}); !ok {
		return nil, fmt.Errorf(`missing "other" variant for Xcode message %s`, msgID)
	}
	return entry, nil
}

func assembleSubstitutions(msgID string, data *xcstringsData, fail func(string, ...any) error) (*model.Entry, error) {
	meta := append(model.Meta{}, data.base.meta...)
	var comments []keyedComment
	if data.base.comment != "" {
		comments = append(comments, keyedComment{"", data.base.comment})
	}
	subPattern := data.base.pattern

	// Substitution declarations, in pattern order.
	var subVars model.Declarations
	for _, part := range subPattern {
		exp, ok := part.(*model.Expression)
		if !ok || !exp.Attributes.Has("substitution") {
			continue
		}
		if ref, ok := exp.Arg.(*model.VariableRef); ok {
			subVars = subVars.Set(ref.Name, exp)
		}
	}
	var varKeys [][]model.Key
	if len(subPattern) > 0 {
		for _, decl := range subVars {
			var keys [][]model.Key
			for _, sub := range data.subs {
				if sub.varName != decl.Name {
					continue
				}
				key := model.Key{Value: sub.category}
				if sub.category == "other" {
					key = model.Catchall(sub.category)
				}
				keys = append(keys, []model.Key{key})
			}
			if varKeys == nil {
				varKeys = keys
			} else {
				var crossed [][]model.Key
				for _, k0 := range varKeys {
					for _, k1 := range keys {
						crossed = append(crossed, append(append([]model.Key{}, k0...), k1...))
					}
				}
				varKeys = crossed
			}
		}
	} else {
		var varNames []string
		for _, sub := range data.subs {
			found := false
			for _, n := range varNames {
				if n == sub.varName {
					found = true
					break
				}
			}
			if !found {
				varNames = append(varNames, sub.varName)
			}
		}
		// With multiple substitutions, the source order of the
		// selectors cannot be known.
		if len(varNames) == 1 {
			name := varNames[0]
			subVars = model.Declarations{{Name: name, Value: &model.Expression{
				Arg:        &model.VariableRef{Name: name},
				Function:   "substitution",
				Attributes: model.Attributes{}.Flag("substitution"),
			}}}
			for _, sub := range data.subs {
				key := model.Key{Value: sub.category}
				if sub.category == "other" {
					key = model.Catchall(sub.category)
				}
				varKeys = append(varKeys, []model.Key{key})
			}
		}
	}

	msg := &model.SelectMessage{Declarations: subVars}
	for _, decl := range subVars {
		msg.Selectors = append(msg.Selectors, model.VariableRef{Name: decl.Name})
	}
	for _, keys := range varKeys {
		msg.Variants = append(msg.Variants, model.Variant{Keys: keys, Pattern: clonePattern(subPattern)})
	}
	entry := &model.Entry{ID: model.ID{msgID}, Value: msg, Meta: meta}

	for _, sub := range data.subs {
		if !isPluralCategory(sub.category) {
			return nil, fail("invalid plural category for %s substitution", sub.varName)
		}
		if sub.unit.comment != "" {
			comments = append(comments, keyedComment{sub.varName + "/" + sub.category, sub.unit.comment})
		}
		for _, m := range sub.unit.meta {
			entry.Meta = append(entry.Meta, model.Metadata{
				Key: sub.varName + "/" + sub.category + "/" + m.Key, Value: m.Value,
			})
		}
		if len(sub.unit.pattern) == 0 {
			continue
		}

		subDecl, ok := subVars.Get(sub.varName)
		if !ok {
			return nil, fail("unsupported variance")
		}
		subIdx := substitutionIndex(subDecl.Attributes, "substitution")
		varPattern := sub.unit.pattern
		if ph := placeholderByIndex(varPattern, subIdx); ph != nil {
			ph.Arg.(*model.VariableRef).Name = sub.varName
			if ph.Function != "" {
				subDecl.Function = ph.Function
				ph.Function = ""
			}
		}

		selIdx := -1
		for i, sel := range msg.Selectors {
			if sel.Name == sub.varName {
				selIdx = i
				break
			}
		}
		if selIdx < 0 {
			return nil, fail("unsupported variance")
		}
		for vi := range msg.Variants {
			if msg.Variants[vi].Keys[selIdx].Value != sub.category {
				continue
			}
			pattern := msg.Variants[vi].Pattern
			phIdx := -1
			for i, part := range pattern {
				if exp, ok := part.(*model.Expression); ok {
					if substitutionIndex(exp.Attributes, "substitution") == subIdx && exp.Attributes.Has("substitution") {
						phIdx = i
						break
					}
				}
			}
			if phIdx < 0 {
				return nil, fail("unsupported variance")
			}
			spliced := append(model.Pattern{}, pattern[:phIdx]...)
			spliced = append(spliced, clonePattern(varPattern)...)
			spliced = append(spliced, pattern[phIdx+1:]...)
			msg.Variants[vi].Pattern = spliced
		}
	}

	for vi := range msg.Variants {
		msg.Variants[vi].Pattern = coalesceText(msg.Variants[vi].Pattern)
	}
	entry.Comment = combineComments(comments, len(comments) > 1)
	return entry, nil
}

// substitutionIndex keys a string-or-flag attribute value for
// comparison: a positional digit, or the bare-flag form.
type attrIndex struct {
	value string
	has   bool
}

func substitutionIndex(attrs model.Attributes, name string) attrIndex {
	for _, a := range attrs {
		if a.Name == name {
			return attrIndex{value: a.Value, has: a.HasValue}
		}
	}
	return attrIndex{}
}

// placeholderByIndex finds the variable placeholder whose "index"
// attribute matches; a placeholder without one matches the bare flag.
func placeholderByIndex(pattern model.Pattern, idx attrIndex) *model.Expression {
	for _, part := range pattern {
		exp, ok := part.(*model.Expression)
		if !ok {
			continue
		}
		if _, ok := exp.Arg.(*model.VariableRef); !ok {
			continue
		}
		if substitutionIndex(exp.Attributes, "index") == idx {
			return exp
		}
	}
	return nil
}

type keyedComment struct {
	key     string
	comment string
}

// combineComments hoists a comment shared by all variants, and
// otherwise preserves each as a "{category}: {comment}" block.
func combineComments(comments []keyedComment, hoistShared bool) string {
	if len(comments) == 0 {
		return ""
	}
	shared := true
	for _, c := range comments[1:] {
		if c.comment != comments[0].comment {
			shared = false
			break
		}
	}
	if shared && hoistShared {
		return comments[0].comment
	}
	var blocks []string
	for _, c := range comments {
		if c.key == "" {
			blocks = append(blocks, c.comment)
		} else {
			blocks = append(blocks, c.key+": "+c.comment)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func coalesceText(pattern model.Pattern) model.Pattern {
	var out model.Pattern
	for _, part := range pattern {
		if text, ok := part.(model.Text); ok {
			out = out.AppendText(string(text))
		} else {
			out = append(out, part)
		}
	}
	return out
}

func clonePattern(p model.Pattern) model.Pattern {
	out := make(model.Pattern, 0, len(p))
	for _, part := range p {
		switch t := part.(type) {
		case model.Text:
			out = append(out, t)
		case *model.Expression:
			out = append(out, cloneExpression(t))
		case *model.Markup:
			cp := *t
			if t.Options != nil {
				cp.Options = append(model.Options(nil), t.Options...)
			}
			if t.Attributes != nil {
				cp.Attributes = append(model.Attributes(nil), t.Attributes...)
			}
			out = append(out, &cp)
		}
	}
	return out
}

func cloneExpression(e *model.Expression) *model.Expression {
	cp := *e
	if ref, ok := e.Arg.(*model.VariableRef); ok {
		r := *ref
		cp.Arg = &r
	}
	if e.Options != nil {
		cp.Options = append(model.Options(nil), e.Options...)
	}
	if e.Attributes != nil {
		cp.Attributes = append(model.Attributes(nil), e.Attributes...)
	}
	return &cp
}

// xcodeElems holds the relevant children of a flattened <trans-unit>.
type xcodeElems struct {
	unit   *element
	source *element
	target *element
	notes  []*element
}

func xcodeUnitData(unit *element, id string) (*xcodeElems, error) {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%s in Xcode <trans-unit id=%q>", fmt.Sprintf(format, args...), id)
	}
	out := &xcodeElems{unit: unit}
	for _, c := range unit.children {
		switch c.kind {
		case childText:
			if strings.TrimSpace(c.text) != "" {
				return nil, fmt.Errorf("unexpected text in <trans-unit>: %q", c.text)
			}
		case childElement:
			el := c.el
			for _, ec := range el.children {
				if ec.kind == childElement {
					return nil, fail("unexpected child elements of <%s>", el.name)
				}
			}
			switch el.name {
			case "source":
				if len(el.attrs) > 0 {
					return nil, fail("unexpected attributes of <source>")
				}
				if out.source != nil {
					return nil, fail("duplicate <source>")
				}
				out.source = el
			case "target":
				if out.target != nil {
					return nil, fail("duplicate <target>")
				}
				out.target = el
			case "note":
				if len(el.attrs) > 0 || el.text() != "" {
					out.notes = append(out.notes, el)
				}
			default:
				return nil, fail("unexpected <%s>", el.name)
			}
		}
	}
	if out.source == nil {
		return nil, fail("missing <source>")
	}
	return out, nil
}

// A stringsdictPlural collects the format-key and per-category variant
// units of one .stringsdict message.
type stringsdictPlural struct {
	varName   string
	formatKey *xcodeElems
	variants  []keyedElems
}

type keyedElems struct {
	key   string
	elems *xcodeElems
}

func (p *stringsdictPlural) variant(key string) *xcodeElems {
	for _, v := range p.variants {
		if v.key == key {
			return v.elems
		}
	}
	return nil
}

// parseStringsdict reassembles the flattened trans-units of an Xcode
// .stringsdict export into plural select messages. It returns nil
// entries without error when the body does not follow the
// "/key:dict/.../:string" identifier convention.
func parseStringsdict(body *element, fromSource bool) ([]model.SectionEntry, error) {
	plurals := map[string]*stringsdictPlural{}
	var order []string
	for _, c := range body.children {
		switch c.kind {
		case childText:
			if strings.TrimSpace(c.text) != "" {
				return nil, nil
			}
		case childComment:
			return nil, nil
		case childElement:
			if c.el.name != "trans-unit" {
				return nil, nil
			}
			id, ok := c.el.attr("id")
			if !ok || !strings.HasPrefix(id, "/") || !strings.HasSuffix(id, ":dict/:string") {
				return nil, nil
			}
			// This is clearly trying to be an Xcode plural, so treat
			// any further deviations as errors.
			msgID, err := parseStringsdictUnit(plurals, c.el, id)
			if err != nil {
				return nil, err
			}
			found := false
			for _, o := range order {
				if o == msgID {
					found = true
					break
				}
			}
			if !found {
				order = append(order, msgID)
			}
		}
	}

	var entries []model.SectionEntry
	for _, msgID := range order {
		plural := plurals[msgID]
		selector := &model.Expression{
			Arg:      &model.VariableRef{Name: plural.varName},
			Function: "number",
		}
		var meta model.Meta
		if plural.formatKey != nil {
			if text := plural.formatKey.source.text(); text != "" {
				selector.Attributes = model.Attributes{}.String("source", text)
			}
			meta = append(meta, attribMetadata(plural.formatKey.unit, "format", "id")...)
			if plural.formatKey.target != nil {
				meta = append(meta, attribMetadata(plural.formatKey.target, "format/target")...)
			}
		}
		msg := &model.SelectMessage{
			Declarations: model.Declarations{{Name: plural.varName, Value: selector}},
			Selectors:    []model.VariableRef{{Name: plural.varName}},
		}
		for _, v := range plural.variants {
			meta = append(meta, attribMetadata(v.elems.unit, v.key, "id")...)
			var patternSrc string
			if fromSource {
				meta = append(meta, attribMetadata(v.elems.source, v.key+"/source")...)
				if v.elems.target != nil {
					tm, err := elementMetadata(v.elems.target, v.key+"/target", true)
					if err != nil {
						return nil, err
					}
					meta = append(meta, tm...)
				}
				patternSrc = v.elems.source.text()
			} else {
				meta = append(meta, model.Metadata{Key: v.key + "/source", Value: v.elems.source.text()})
				if v.elems.target != nil {
					meta = append(meta, attribMetadata(v.elems.target, v.key+"/target")...)
					patternSrc = v.elems.target.text()
				}
			}
			key := model.Key{Value: v.key}
			if v.key == "other" {
				key = model.Catchall(v.key)
			}
			msg.Variants = append(msg.Variants, model.Variant{
				Keys: []model.Key{key}, Pattern: parseXcodePattern(patternSrc),
			})
		}
		entries = append(entries, &model.Entry{ID: model.ID{msgID}, Value: msg, Meta: meta})
	}
	return entries, nil
}

func parseStringsdictUnit(plurals map[string]*stringsdictPlural, unit *element, id string) (string, error) {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%s in Xcode plural definition %s", fmt.Sprintf(format, args...), id)
	}
	idParts := strings.Split(id, ":dict/")
	msgID := strings.TrimPrefix(idParts[0], "/")

	ud, err := xcodeUnitData(unit, id)
	if err != nil {
		return "", err
	}
	if len(idParts) > 1 && idParts[1] == "NSStringLocalizedFormatKey" {
		if len(idParts) != 3 {
			return "", fail("unexpected Xcode plurals id")
		}
		m := variantKey.FindStringSubmatch(ud.source.text())
		if m == nil {
			return "", fail("unexpected <source> value")
		}
		if prev, ok := plurals[msgID]; ok {
			if prev.formatKey != nil {
				return "", fail("duplicate NSStringLocalizedFormatKey")
			}
			prev.formatKey = ud
			if m[1] != prev.varName {
				return "", fail("mismatching key values")
			}
		} else {
			plurals[msgID] = &stringsdictPlural{varName: m[1], formatKey: ud}
		}
		return msgID, nil
	}
	if len(idParts) != 4 {
		return "", fail("unexpected Xcode plurals id")
	}
	varName := idParts[1]
	category := idParts[2]
	if !isPluralCategory(category) {
		return "", fail("invalid plural category")
	}
	if prev, ok := plurals[msgID]; ok {
		if varName != prev.varName {
			return "", fail("mismatching key values")
		}
		if prev.variant(category) != nil {
			return "", fail("duplicate %s", category)
		}
		prev.variants = append(prev.variants, keyedElems{key: category, elems: ud})
	} else {
		plurals[msgID] = &stringsdictPlural{
			varName:  varName,
			variants: []keyedElems{{key: category, elems: ud}},
		}
	}
	return msgID, nil
}
