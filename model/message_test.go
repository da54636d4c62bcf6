package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatchallKeysEqual(t *testing.T) {
	assert.True(t, KeyEqual(Catchall("other"), Catchall("many")))
	assert.True(t, KeyEqual(Catchall(""), Catchall("other")))
	assert.False(t, KeyEqual(Catchall("one"), Key{Value: "one"}))
	assert.False(t, KeyEqual(Key{Value: "one"}, Catchall("one")))
	assert.True(t, KeyEqual(Key{Value: "one"}, Key{Value: "one"}))
	assert.False(t, KeyEqual(Key{Value: "one"}, Key{Value: "two"}))

	assert.True(t, KeysEqual(
		[]Key{{Value: "one"}, Catchall("other")},
		[]Key{{Value: "one"}, Catchall("many")},
	))
	assert.False(t, KeysEqual(
		[]Key{{Value: "one"}},
		[]Key{{Value: "one"}, Catchall("")},
	))
}

func TestSelectMessageVariantLookup(t *testing.T) {
	msg := &SelectMessage{
		Declarations: Declarations{
			{Name: "n", Value: &Expression{Arg: &VariableRef{Name: "n"}, Function: "number"}},
		},
		Selectors: []VariableRef{{Name: "n"}},
		Variants: []Variant{
			{Keys: []Key{{Value: "one"}}, Pattern: Pattern{Text("one item")}},
			{Keys: []Key{Catchall("other")}, Pattern: Pattern{Text("many items")}},
		},
	}

	pattern, ok := msg.Variant([]Key{{Value: "one"}})
	assert.True(t, ok)
	assert.Equal(t, Pattern{Text("one item")}, pattern)

	// Any catch-all label selects the catch-all variant.
	pattern, ok = msg.Variant([]Key{Catchall("zillion")})
	assert.True(t, ok)
	assert.Equal(t, Pattern{Text("many items")}, pattern)

	_, ok = msg.Variant([]Key{{Value: "two"}})
	assert.False(t, ok)
}

func TestSelectorExpressions(t *testing.T) {
	msg := &SelectMessage{
		Declarations: Declarations{
			{Name: "n", Value: &Expression{Arg: &VariableRef{Name: "n"}, Function: "number"}},
		},
		Selectors: []VariableRef{{Name: "n"}},
	}
	exprs, err := msg.SelectorExpressions()
	assert.NoError(t, err)
	assert.Len(t, exprs, 1)
	assert.Equal(t, "number", exprs[0].Function)

	msg.Selectors = append(msg.Selectors, VariableRef{Name: "missing"})
	_, err = msg.SelectorExpressions()
	assert.ErrorContains(t, err, "no declaration for selector $missing")
}

func TestMessageIsEmpty(t *testing.T) {
	assert.True(t, (&PatternMessage{}).IsEmpty())
	assert.True(t, (&PatternMessage{Pattern: Pattern{Text("")}}).IsEmpty())
	assert.False(t, (&PatternMessage{Pattern: Pattern{Text("x")}}).IsEmpty())
	assert.False(t, (&PatternMessage{Pattern: Pattern{
		&Expression{Arg: &VariableRef{Name: "x"}},
	}}).IsEmpty())

	sel := &SelectMessage{
		Selectors: []VariableRef{{Name: "n"}},
		Variants: []Variant{
			{Keys: []Key{{Value: "one"}}, Pattern: Pattern{Text("")}},
			{Keys: []Key{Catchall("")}, Pattern: Pattern{}},
		},
	}
	assert.True(t, sel.IsEmpty())
	sel.Variants[0].Pattern = Pattern{Text("x")}
	assert.False(t, sel.IsEmpty())
}

func TestPatternAppendText(t *testing.T) {
	var p Pattern
	p = p.AppendText("")
	assert.Equal(t, Pattern{Text("")}, p)
	p = p.AppendText("foo")
	p = p.AppendText(" bar")
	assert.Equal(t, Pattern{Text("foo bar")}, p)
	p = append(p, &Markup{Kind: MarkupStandalone, Name: "br"})
	p = p.AppendText("baz")
	assert.Equal(t, Pattern{
		Text("foo bar"),
		&Markup{Kind: MarkupStandalone, Name: "br"},
		Text("baz"),
	}, p)
}

func TestMetaHelpers(t *testing.T) {
	var m Meta
	m = m.Set("flag", "fuzzy")
	m = append(m, Metadata{Key: "reference", Value: "a.c:1"})
	m = append(m, Metadata{Key: "reference", Value: "b.c:2"})

	v, ok := m.Get("flag")
	assert.True(t, ok)
	assert.Equal(t, "fuzzy", v)
	_, ok = m.Get("nope")
	assert.False(t, ok)

	want := "b.c:2"
	assert.True(t, m.Has("reference", nil))
	assert.True(t, m.Has("reference", &want))
	other := "c.c:3"
	assert.False(t, m.Has("reference", &other))

	m, removed := m.Del("reference")
	assert.Equal(t, 2, removed)
	assert.Equal(t, Meta{{Key: "flag", Value: "fuzzy"}}, m)
}
