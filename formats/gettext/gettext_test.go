package gettext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l10n-tools/l10nres/model"
)

const simplePo = `# Translators often leave notes here.
msgid ""
msgstr ""
"Project-Id-Version: test\n"
"Plural-Forms: nplurals=2; plural=(n != 1);\n"

#. extracted note
#: src/main.c:12 src/main.c:40
#, fuzzy, c-format
msgid "Hello"
msgstr "Hei"

msgctxt "menu"
msgid "Open"
msgstr "Avaa"

msgid "%d apple"
msgid_plural "%d apples"
msgstr[0] "%d omena"
msgstr[1] "%d omenaa"
`

func TestParse(t *testing.T) {
	res, err := Parse([]byte(simplePo), ParseOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Translators often leave notes here.", res.Comment)
	assert.Equal(t, model.Meta{
		{Key: "Project-Id-Version", Value: "test"},
		{Key: "Plural-Forms", Value: "nplurals=2; plural=(n != 1);"},
	}, res.Meta)

	entries := res.AllEntries()
	require.Len(t, entries, 3)

	assert.Equal(t, model.ID{"Hello"}, entries[0].ID)
	assert.Equal(t, model.Meta{
		{Key: "extracted-comments", Value: "extracted note"},
		{Key: "reference", Value: "src/main.c:12"},
		{Key: "reference", Value: "src/main.c:40"},
		{Key: "flag", Value: "fuzzy"},
		{Key: "flag", Value: "c-format"},
	}, entries[0].Meta)
	assert.Equal(t, &model.PatternMessage{Pattern: model.Pattern{model.Text("Hei")}},
		entries[0].Value)

	assert.Equal(t, model.ID{"Open", "menu"}, entries[1].ID)

	assert.Equal(t, model.ID{"%d apple"}, entries[2].ID)
	assert.Equal(t, model.Meta{{Key: "plural", Value: "%d apples"}}, entries[2].Meta)
	assert.Equal(t, &model.SelectMessage{
		Declarations: model.Declarations{
			{Name: "n", Value: &model.Expression{
				Arg: &model.VariableRef{Name: "n"}, Function: "number",
			}},
		},
		Selectors: []model.VariableRef{{Name: "n"}},
		Variants: []model.Variant{
			{Keys: []model.Key{{Value: "0"}}, Pattern: model.Pattern{model.Text("%d omena")}},
			{Keys: []model.Key{model.Catchall("1")}, Pattern: model.Pattern{model.Text("%d omenaa")}},
		},
	}, entries[2].Value)
}

func TestRoundTrip(t *testing.T) {
	res, err := Parse([]byte(simplePo), ParseOptions{})
	require.NoError(t, err)
	out, err := Serialize(res, SerializeOptions{})
	require.NoError(t, err)
	assert.Equal(t, simplePo, string(out))
}

func TestParsePluralLabels(t *testing.T) {
	res, err := Parse([]byte(simplePo), ParseOptions{Plurals: []string{"one", "other"}})
	require.NoError(t, err)
	sel := res.AllEntries()[2].Value.(*model.SelectMessage)
	assert.Equal(t, []model.Key{{Value: "one"}}, sel.Variants[0].Keys)
	assert.Equal(t, []model.Key{model.Catchall("other")}, sel.Variants[1].Keys)

	// Relabeled plurals round-trip when the serializer is given the
	// same category list.
	out, err := Serialize(res, SerializeOptions{Plurals: []string{"one", "other"}})
	require.NoError(t, err)
	assert.Equal(t, simplePo, string(out))
}

func TestSerializePluralsLengthMismatch(t *testing.T) {
	res, err := Parse([]byte(simplePo), ParseOptions{Plurals: []string{"one", "other"}})
	require.NoError(t, err)
	_, err = Serialize(res, SerializeOptions{Plurals: []string{"one", "few", "other"}})
	assert.ErrorContains(t, err, "Plural-Forms")
}

func TestMultilineValues(t *testing.T) {
	source := `msgid ""
msgstr ""
"Project-Id-Version: test\n"

msgid ""
"First line\n"
"Second line"
msgstr ""
"Eka rivi\n"
"Toka rivi"
`
	res, err := Parse([]byte(source), ParseOptions{})
	require.NoError(t, err)
	entries := res.AllEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, model.ID{"First line\nSecond line"}, entries[0].ID)
	assert.Equal(t,
		&model.PatternMessage{Pattern: model.Pattern{model.Text("Eka rivi\nToka rivi")}},
		entries[0].Value)

	out, err := Serialize(res, SerializeOptions{})
	require.NoError(t, err)
	assert.Equal(t, source, string(out))
}

func TestObsoleteEntries(t *testing.T) {
	source := `msgid ""
msgstr ""

#~ msgid "Old"
#~ msgstr "Vanha"
`
	res, err := Parse([]byte(source), ParseOptions{})
	require.NoError(t, err)
	entries := res.AllEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, model.Meta{{Key: "obsolete", Value: "true"}}, entries[0].Meta)

	out, err := Serialize(res, SerializeOptions{})
	require.NoError(t, err)
	assert.Equal(t, source, string(out))

	res, err = Parse([]byte(source), ParseOptions{SkipObsolete: true})
	require.NoError(t, err)
	assert.Empty(t, res.AllEntries())
}

func TestSerializeRejectsUnsupported(t *testing.T) {
	res := &model.Resource{Sections: []*model.Section{{
		ID: model.ID{"sec"},
		Entries: []model.SectionEntry{
			&model.Entry{ID: model.ID{"k"}, Value: &model.PatternMessage{}},
		},
	}}}
	_, err := Serialize(res, SerializeOptions{})
	assert.ErrorContains(t, err, "section identifiers")

	res = &model.Resource{Sections: []*model.Section{{
		Entries: []model.SectionEntry{
			&model.Entry{
				ID:    model.ID{"k"},
				Value: &model.PatternMessage{},
				Meta:  model.Meta{{Key: "nonsense", Value: "x"}},
			},
		},
	}}}
	_, err = Serialize(res, SerializeOptions{})
	assert.ErrorContains(t, err, `unsupported meta entry "nonsense"`)

	res = &model.Resource{Sections: []*model.Section{{
		Entries: []model.SectionEntry{
			&model.Entry{
				ID: model.ID{"k"},
				Value: &model.PatternMessage{Pattern: model.Pattern{
					&model.Expression{Arg: &model.VariableRef{Name: "x"}},
				}},
			},
		},
	}}}
	_, err = Serialize(res, SerializeOptions{})
	assert.ErrorContains(t, err, "not supported")
}
