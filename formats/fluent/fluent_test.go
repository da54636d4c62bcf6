package fluent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l10n-tools/l10nres/formats"
	"github.com/l10n-tools/l10nres/model"
)

func numberSelect(varName, declName string, one, other model.Pattern) *model.SelectMessage {
	return &model.SelectMessage{
		Declarations: model.Declarations{{Name: declName, Value: &model.Expression{
			Arg:      &model.VariableRef{Name: varName},
			Function: "number",
		}}},
		Selectors: []model.VariableRef{{Name: declName}},
		Variants: []model.Variant{
			{Keys: []model.Key{{Value: "one"}}, Pattern: one},
			{Keys: []model.Key{model.Catchall("other")}, Pattern: other},
		},
	}
}

func TestNumberSelector(t *testing.T) {
	src := "no-placeholder =\n" +
		"    { $num ->\n" +
		"        [one] One\n" +
		"       *[other] Other\n" +
		"    }\n" +
		"has-placeholder =\n" +
		"    { $num ->\n" +
		"        [one] One { $num }\n" +
		"       *[other] Other\n" +
		"    }\n"
	res, err := Parse([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, &model.Resource{
		Format: formats.Fluent,
		Sections: []*model.Section{{Entries: []model.SectionEntry{
			&model.Entry{
				ID: model.ID{"no-placeholder"},
				Value: numberSelect("num", "num",
					model.Pattern{model.Text("One")},
					model.Pattern{model.Text("Other")}),
			},
			&model.Entry{
				ID: model.ID{"has-placeholder"},
				Value: numberSelect("num", "num_1",
					model.Pattern{
						model.Text("One "),
						&model.Expression{Arg: &model.VariableRef{Name: "num"}},
					},
					model.Pattern{model.Text("Other")}),
			},
		}}},
	}, res)

	out, err := Serialize(res, false)
	require.NoError(t, err)
	assert.Equal(t, src, string(out))
}

const resourceSource = `### Resource Comment

## Group Comment

simple = A

# Standalone Comment

##

# Message Comment
# on two lines.
expressions = A {$arg} B {msg.foo} C {-term(x:42)}
functions = {NUMBER($arg)}{FOO("bar",opt:"val")}
has-attr = ABC
  .attr = Attr
# Attr Comment
has-only-attr =
  .attr = Attr
single-sel =
  { $num ->
      [one] One
     *[other] Other
  }
-term = Term
  .attr = foo
term-sel =
  { -term.attr ->
     [foo] Foo
    *[other] Other
  }
`

func TestParseResource(t *testing.T) {
	res, err := Parse([]byte(resourceSource))
	require.NoError(t, err)
	other := model.Catchall("other")
	entries := []model.SectionEntry{
		&model.Entry{
			ID: model.ID{"expressions"},
			Value: &model.PatternMessage{Pattern: model.Pattern{
				model.Text("A "),
				&model.Expression{Arg: &model.VariableRef{Name: "arg"}},
				model.Text(" B "),
				&model.Expression{Arg: model.Literal("msg.foo"), Function: "message"},
				model.Text(" C "),
				&model.Expression{
					Arg:      model.Literal("-term"),
					Function: "message",
					Options:  model.Options{{Name: "x", Value: model.Literal("42")}},
				},
			}},
			Comment: "Message Comment\non two lines.",
		},
		&model.Entry{
			ID: model.ID{"functions"},
			Value: &model.PatternMessage{Pattern: model.Pattern{
				&model.Expression{Arg: &model.VariableRef{Name: "arg"}, Function: "number"},
				&model.Expression{
					Arg:      model.Literal("bar"),
					Function: "foo",
					Options:  model.Options{{Name: "opt", Value: model.Literal("val")}},
				},
			}},
		},
		&model.Entry{
			ID:    model.ID{"has-attr"},
			Value: &model.PatternMessage{Pattern: model.Pattern{model.Text("ABC")}},
			Properties: []model.Property{{
				Name:  "attr",
				Value: &model.PatternMessage{Pattern: model.Pattern{model.Text("Attr")}},
			}},
		},
		&model.Entry{
			ID:    model.ID{"has-only-attr"},
			Value: &model.PatternMessage{},
			Properties: []model.Property{{
				Name:  "attr",
				Value: &model.PatternMessage{Pattern: model.Pattern{model.Text("Attr")}},
			}},
			Comment: "Attr Comment",
		},
		&model.Entry{
			ID: model.ID{"single-sel"},
			Value: numberSelect("num", "num",
				model.Pattern{model.Text("One")},
				model.Pattern{model.Text("Other")}),
		},
		&model.Entry{
			ID:    model.ID{"-term"},
			Value: &model.PatternMessage{Pattern: model.Pattern{model.Text("Term")}},
			Properties: []model.Property{{
				Name:  "attr",
				Value: &model.PatternMessage{Pattern: model.Pattern{model.Text("foo")}},
			}},
		},
		&model.Entry{
			ID: model.ID{"term-sel"},
			Value: &model.SelectMessage{
				Declarations: model.Declarations{{Name: "_1", Value: &model.Expression{
					Arg:      model.Literal("-term.attr"),
					Function: "message",
				}}},
				Selectors: []model.VariableRef{{Name: "_1"}},
				Variants: []model.Variant{
					{Keys: []model.Key{{Value: "foo"}}, Pattern: model.Pattern{model.Text("Foo")}},
					{Keys: []model.Key{other}, Pattern: model.Pattern{model.Text("Other")}},
				},
			},
		},
	}
	assert.Equal(t, &model.Resource{
		Format:  formats.Fluent,
		Comment: "Resource Comment",
		Sections: []*model.Section{
			{
				Comment: "Group Comment",
				Entries: []model.SectionEntry{
					&model.Entry{
						ID:    model.ID{"simple"},
						Value: &model.PatternMessage{Pattern: model.Pattern{model.Text("A")}},
					},
					model.Comment{Comment: "Standalone Comment"},
				},
			},
			{Entries: entries},
		},
	}, res)
}

func TestSerializeResource(t *testing.T) {
	res, err := Parse([]byte(resourceSource))
	require.NoError(t, err)

	out, err := Serialize(res, false)
	require.NoError(t, err)
	assert.Equal(t, `### Resource Comment


## Group Comment

simple = A

# Standalone Comment


##

# Message Comment
# on two lines.
expressions = A { $arg } B { msg.foo } C { -term(x: 42) }
functions = { NUMBER($arg) }{ FOO("bar", opt: "val") }
has-attr = ABC
    .attr = Attr
# Attr Comment
has-only-attr =
    .attr = Attr
single-sel =
    { $num ->
        [one] One
       *[other] Other
    }
-term = Term
    .attr = foo
term-sel =
    { -term.attr ->
        [foo] Foo
       *[other] Other
    }
`, string(out))

	trimmed, err := Serialize(res, true)
	require.NoError(t, err)
	assert.Equal(t, `simple = A
expressions = A { $arg } B { msg.foo } C { -term(x: 42) }
functions = { NUMBER($arg) }{ FOO("bar", opt: "val") }
has-attr = ABC
    .attr = Attr
has-only-attr =
    .attr = Attr
single-sel =
    { $num ->
        [one] One
       *[other] Other
    }
-term = Term
    .attr = foo
term-sel =
    { -term.attr ->
        [foo] Foo
       *[other] Other
    }
`, string(trimmed))
}

func TestUnsupportedSelects(t *testing.T) {
	_, err := Parse([]byte("two-sels =\n" +
		"    pre { $a ->\n" +
		"        [1] One\n" +
		"       *[2] Two\n" +
		"    } post\n"))
	assert.ErrorContains(t, err, "select expressions")

	_, err = Parse([]byte("deep-sels =\n" +
		"    { $a ->\n" +
		"        [one]\n" +
		"            { $b ->\n" +
		"                [one] 1,1\n" +
		"               *[other] 1,x\n" +
		"            }\n" +
		"       *[other] x,x\n" +
		"    }\n"))
	assert.ErrorContains(t, err, "select expressions")
}

func TestEmptyPatterns(t *testing.T) {
	empty := &model.PatternMessage{}
	text := func(s string) *model.PatternMessage {
		return &model.PatternMessage{Pattern: model.Pattern{model.Text(s)}}
	}
	res := &model.Resource{
		Format: formats.Fluent,
		Sections: []*model.Section{{Entries: []model.SectionEntry{
			&model.Entry{ID: model.ID{"a"}, Value: empty},
			&model.Entry{ID: model.ID{"b"}, Value: text("")},
			&model.Entry{ID: model.ID{"c"}, Value: empty,
				Properties: []model.Property{{Name: "x", Value: empty}}},
			&model.Entry{ID: model.ID{"-d"}, Value: empty,
				Properties: []model.Property{{Name: "x", Value: empty}}},
			&model.Entry{ID: model.ID{"e"}, Value: text(" ")},
			&model.Entry{ID: model.ID{"f"}, Value: text("\n \t")},
			&model.Entry{ID: model.ID{"g"}, Value: text(" x\n")},
			&model.Entry{ID: model.ID{"h"}, Value: &model.PatternMessage{
				Pattern: model.Pattern{model.Text("x"), model.Text(" y "), model.Text("z")},
			}},
		}}},
	}
	out, err := Serialize(res, false)
	require.NoError(t, err)
	assert.Equal(t, "a = { \"\" }\n"+
		"b = { \"\" }\n"+
		"c =\n"+
		"    .x = { \"\" }\n"+
		"-d = { \"\" }\n"+
		"    .x = { \"\" }\n"+
		"e = { \" \" }\n"+
		"f = { \"\\u000A \\u0009\" }\n"+
		"g = { \" \" }x{ \"\\u000A\" }\n"+
		"h = x y z\n", string(out))
}

func TestEscapes(t *testing.T) {
	res, err := Parse([]byte("key = { \"\" } { \"\t\" } { \"\\u000a\" }\n"))
	require.NoError(t, err)
	assert.Equal(t, &model.PatternMessage{Pattern: model.Pattern{
		&model.Expression{Arg: model.Literal("")},
		model.Text(" "),
		&model.Expression{Arg: model.Literal("\t")},
		model.Text(" "),
		&model.Expression{Arg: model.Literal("\n")},
	}}, res.AllEntries()[0].Value)

	out, err := Serialize(res, false)
	require.NoError(t, err)
	assert.Equal(t, "key = { \"\" } { \"\\u0009\" } { \"\\u000A\" }\n", string(out))
}

func TestMultilineValue(t *testing.T) {
	src := "feedbackUninstallCopy =\n" +
		"    Your participation in Firefox Test Pilot means\n" +
		"    a lot! Please check out our other experiments,\n" +
		"    and stay tuned for more to come.\n"
	res, err := Parse([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, &model.PatternMessage{Pattern: model.Pattern{model.Text(
		"Your participation in Firefox Test Pilot means\n" +
			"a lot! Please check out our other experiments,\n" +
			"and stay tuned for more to come.",
	)}}, res.AllEntries()[0].Value)

	out, err := Serialize(res, false)
	require.NoError(t, err)
	assert.Equal(t, src, string(out))
}

func TestInfoComment(t *testing.T) {
	src := "# Any copyright is dedicated to the Public Domain.\n" +
		"# http://creativecommons.org/publicdomain/zero/1.0/\n\n" +
		"### Resource Comment\n\n" +
		"title = About Localization\n"
	res, err := Parse([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, model.Meta{{
		Key: "info",
		Value: "Any copyright is dedicated to the Public Domain.\n" +
			"http://creativecommons.org/publicdomain/zero/1.0/",
	}}, res.Meta)
	assert.Equal(t, "Resource Comment", res.Comment)

	out, err := Serialize(res, false)
	require.NoError(t, err)
	assert.Equal(t, "# Any copyright is dedicated to the Public Domain.\n"+
		"# http://creativecommons.org/publicdomain/zero/1.0/\n\n\n"+
		"### Resource Comment\n\n"+
		"title = About Localization\n", string(out))
}

func TestBuiltinFunctions(t *testing.T) {
	src := `today-is = Today is { DATETIME($date, month: "long", year: "numeric", day: "numeric") }` + "\n"
	res, err := Parse([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, &model.PatternMessage{Pattern: model.Pattern{
		model.Text("Today is "),
		&model.Expression{
			Arg:      &model.VariableRef{Name: "date"},
			Function: "datetime",
			Options: model.Options{
				{Name: "month", Value: model.Literal("long")},
				{Name: "year", Value: model.Literal("numeric")},
				{Name: "day", Value: model.Literal("numeric")},
			},
		},
	}}, res.AllEntries()[0].Value)

	out, err := Serialize(res, false)
	require.NoError(t, err)
	assert.Equal(t, src, string(out))
}

func TestFunctionSelector(t *testing.T) {
	src := "platform =\n" +
		"    { PLATFORM() ->\n" +
		"        [win] Options\n" +
		"       *[other] Preferences\n" +
		"    }\n"
	res, err := Parse([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, &model.SelectMessage{
		Declarations: model.Declarations{{Name: "_1", Value: &model.Expression{
			Function: "platform",
		}}},
		Selectors: []model.VariableRef{{Name: "_1"}},
		Variants: []model.Variant{
			{Keys: []model.Key{{Value: "win"}}, Pattern: model.Pattern{model.Text("Options")}},
			{Keys: []model.Key{model.Catchall("other")}, Pattern: model.Pattern{model.Text("Preferences")}},
		},
	}, res.AllEntries()[0].Value)

	out, err := Serialize(res, false)
	require.NoError(t, err)
	assert.Equal(t, src, string(out))
}

func TestVariantOrder(t *testing.T) {
	res, err := Parse([]byte("msg =\n" +
		"    { $num ->\n" +
		"        [12] a dozen\n" +
		"        [2] a pair\n" +
		"        [1] just one\n" +
		"       *[other] many\n" +
		"    }\n"))
	require.NoError(t, err)
	out, err := Serialize(res, false)
	require.NoError(t, err)
	assert.Equal(t, "msg =\n"+
		"    { $num ->\n"+
		"        [1] just one\n"+
		"        [2] a pair\n"+
		"        [12] a dozen\n"+
		"       *[other] many\n"+
		"    }\n", string(out))
}

func TestComment(t *testing.T) {
	res, err := Parse([]byte("msg = body\n  .attr = value"))
	require.NoError(t, err)
	res.AllEntries()[0].Comment = "comment1"

	out, err := Serialize(res, false)
	require.NoError(t, err)
	assert.Equal(t, "# comment1\nmsg = body\n    .attr = value\n", string(out))

	trimmed, err := Serialize(res, true)
	require.NoError(t, err)
	assert.Equal(t, "msg = body\n    .attr = value\n", string(trimmed))
}

func TestMeta(t *testing.T) {
	res, err := Parse([]byte("one = foo\ntwo = bar"))
	require.NoError(t, err)
	res.AllEntries()[1].Meta = model.Meta{{Key: "a", Value: "42"}}

	_, err = Serialize(res, false)
	assert.ErrorContains(t, err, "metadata")

	trimmed, err := Serialize(res, true)
	require.NoError(t, err)
	assert.Equal(t, "one = foo\ntwo = bar\n", string(trimmed))
}

func TestJunk(t *testing.T) {
	_, err := Parse([]byte("msg = value\n# Comment\n\nLine of junk"))
	assert.Error(t, err)
}
