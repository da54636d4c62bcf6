package android

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l10n-tools/l10nres/model"
)

const sampleXML = `<?xml version="1.0" encoding="utf-8"?>
<resources>
  <!-- Application title -->
  <string name="app_name">Example</string>
  <string name="quoted">"Don't panic"</string>
  <string name="farewell">Goodbye %1$s, see you in %2$d days</string>
  <string name="ref">@string/app_name</string>
  <string name="html">Hello <b>world</b>!</string>
  <plurals name="apples">
    <item quantity="one">%d apple</item>
    <item quantity="other">%d apples</item>
  </plurals>
  <string-array name="planets">
    <item>Mercury</item>
    <item>Venus</item>
  </string-array>
</resources>
`

func TestParse(t *testing.T) {
	res, err := Parse([]byte(sampleXML), ParseOptions{})
	require.NoError(t, err)

	entries := res.AllEntries()
	require.Len(t, entries, 8)

	assert.Equal(t, model.ID{"app_name"}, entries[0].ID)
	assert.Equal(t, "Application title", entries[0].Comment)
	assert.Equal(t, &model.PatternMessage{Pattern: model.Pattern{model.Text("Example")}},
		entries[0].Value)

	assert.Equal(t, &model.PatternMessage{Pattern: model.Pattern{model.Text("Don't panic")}},
		entries[1].Value)

	assert.Equal(t, &model.PatternMessage{Pattern: model.Pattern{
		model.Text("Goodbye "),
		&model.Expression{
			Arg:        &model.VariableRef{Name: "arg1"},
			Function:   "string",
			Attributes: model.Attributes{}.String("source", "%1$s"),
		},
		model.Text(", see you in "),
		&model.Expression{
			Arg:        &model.VariableRef{Name: "arg2"},
			Function:   "integer",
			Attributes: model.Attributes{}.String("source", "%2$d"),
		},
		model.Text(" days"),
	}}, entries[2].Value)

	assert.Equal(t, &model.PatternMessage{Pattern: model.Pattern{
		&model.Expression{Arg: model.Literal("@string/app_name"), Function: "reference"},
	}}, entries[3].Value)

	assert.Equal(t, &model.PatternMessage{Pattern: model.Pattern{
		model.Text("Hello "),
		&model.Markup{Kind: model.MarkupOpen, Name: "b"},
		model.Text("world"),
		&model.Markup{Kind: model.MarkupClose, Name: "b"},
		model.Text("!"),
	}}, entries[4].Value)

	sel, ok := entries[5].Value.(*model.SelectMessage)
	require.True(t, ok)
	assert.Equal(t, []model.VariableRef{{Name: "quantity"}}, sel.Selectors)
	require.Len(t, sel.Variants, 2)
	assert.Equal(t, []model.Key{{Value: "one"}}, sel.Variants[0].Keys)
	assert.Equal(t, []model.Key{model.Catchall("other")}, sel.Variants[1].Keys)

	assert.Equal(t, model.ID{"planets", "0"}, entries[6].ID)
	assert.Equal(t, model.ID{"planets", "1"}, entries[7].ID)
}

func TestRoundTrip(t *testing.T) {
	res, err := Parse([]byte(sampleXML), ParseOptions{})
	require.NoError(t, err)
	out, err := Serialize(res, SerializeOptions{})
	require.NoError(t, err)
	assert.Equal(t, sampleXML, string(out))
}

func TestEntities(t *testing.T) {
	source := `<?xml version="1.0" encoding="utf-8"?>
<!DOCTYPE resources [
  <!ENTITY brand "MyApp">
]>
<resources>
  <string name="title">Welcome to &brand;!</string>
</resources>
`
	res, err := Parse([]byte(source), ParseOptions{})
	require.NoError(t, err)
	require.Len(t, res.Sections, 2)
	assert.Equal(t, model.ID{"!ENTITY"}, res.Sections[0].ID)
	entities := res.Sections[0].Entries
	require.Len(t, entities, 1)
	assert.Equal(t, model.ID{"brand"}, entities[0].(*model.Entry).ID)

	entries := res.Sections[1].Entries
	require.Len(t, entries, 1)
	assert.Equal(t, &model.PatternMessage{Pattern: model.Pattern{
		model.Text("Welcome to "),
		&model.Expression{Arg: &model.VariableRef{Name: "brand"}, Function: "entity"},
		model.Text("!"),
	}}, entries[0].(*model.Entry).Value)

	out, err := Serialize(res, SerializeOptions{})
	require.NoError(t, err)
	assert.Equal(t, source, string(out))
}

func TestEscapes(t *testing.T) {
	msg, err := ParseMessage(`Don\'t add \@ or \? or a\nnewline`, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, &model.PatternMessage{Pattern: model.Pattern{
		model.Text("Don't add @ or ? or a\nnewline"),
	}}, msg)

	out, err := SerializeMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, `"Don't add \@ or \? or a\nnewline"`, out)
}

func TestPlaceholders(t *testing.T) {
	src := "Hello, %1$s! You have %2$d new messages."
	msg, err := ParseMessage(src, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, &model.PatternMessage{Pattern: model.Pattern{
		model.Text("Hello, "),
		&model.Expression{
			Arg:        &model.VariableRef{Name: "arg1"},
			Function:   "string",
			Attributes: model.Attributes{}.String("source", "%1$s"),
		},
		model.Text("! You have "),
		&model.Expression{
			Arg:        &model.VariableRef{Name: "arg2"},
			Function:   "integer",
			Attributes: model.Attributes{}.String("source", "%2$d"),
		},
		model.Text(" new messages."),
	}}, msg)

	out, err := SerializeMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, src, out)

	// Unnumbered placeholders all share the "arg" name.
	msg, err = ParseMessage("%d songs", ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, &model.PatternMessage{Pattern: model.Pattern{
		&model.Expression{
			Arg:        &model.VariableRef{Name: "arg"},
			Function:   "integer",
			Attributes: model.Attributes{}.String("source", "%d"),
		},
		model.Text(" songs"),
	}}, msg)

	msg, err = ParseMessage("100%%", ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, &model.PatternMessage{Pattern: model.Pattern{
		model.Text("100"),
		&model.Expression{
			Arg:        model.Literal("%"),
			Attributes: model.Attributes{}.String("source", "%%"),
		},
	}}, msg)

	out, err = SerializeMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, "100%%", out)
}

func TestSpaceCollapsing(t *testing.T) {
	msg, err := ParseMessage("  one\n  two   \"  three  \"", ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, &model.PatternMessage{Pattern: model.Pattern{
		model.Text(" one two   three  "),
	}}, msg)
}

func TestEscapedHTML(t *testing.T) {
	msg, err := ParseMessage("&lt;b>bold&lt;/b>", ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, &model.PatternMessage{Pattern: model.Pattern{
		&model.Expression{Arg: model.Literal("<b>"), Function: "html"},
		model.Text("bold"),
		&model.Expression{Arg: model.Literal("</b>"), Function: "html"},
	}}, msg)

	out, err := SerializeMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, "&lt;b>bold&lt;/b>", out)
}

func TestStandaloneComments(t *testing.T) {
	source := `<?xml version="1.0" encoding="utf-8"?>
<resources>
  <!-- Block note -->

  <string name="a">A</string>
</resources>
`
	res, err := Parse([]byte(source), ParseOptions{})
	require.NoError(t, err)
	entries := res.Sections[0].Entries
	require.Len(t, entries, 2)
	assert.Equal(t, model.Comment{Comment: "Block note"}, entries[0])

	out, err := Serialize(res, SerializeOptions{})
	require.NoError(t, err)
	assert.Equal(t, source, string(out))
}

func TestSerializeRejectsBadNesting(t *testing.T) {
	_, err := SerializeMessage(&model.PatternMessage{Pattern: model.Pattern{
		&model.Markup{Kind: model.MarkupOpen, Name: "b"},
		&model.Markup{Kind: model.MarkupClose, Name: "i"},
	}})
	assert.ErrorContains(t, err, "nesting")

	_, err = SerializeMessage(&model.PatternMessage{Pattern: model.Pattern{
		&model.Markup{Kind: model.MarkupOpen, Name: "b"},
	}})
	assert.ErrorContains(t, err, "unclosed")
}

func TestSerializeRejectsBadPluralKey(t *testing.T) {
	msg := &model.SelectMessage{
		Declarations: model.Declarations{
			{Name: "quantity", Value: &model.Expression{
				Arg: &model.VariableRef{Name: "quantity"}, Function: "number",
			}},
		},
		Selectors: []model.VariableRef{{Name: "quantity"}},
		Variants: []model.Variant{
			{Keys: []model.Key{{Value: "1"}}, Pattern: model.Pattern{model.Text("x")}},
		},
	}
	res := &model.Resource{Sections: []*model.Section{{
		Entries: []model.SectionEntry{&model.Entry{ID: model.ID{"p"}, Value: msg}},
	}}}
	_, err := Serialize(res, SerializeOptions{})
	assert.ErrorContains(t, err, "plural variant key")
}
