package plainjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l10n-tools/l10nres/model"
)

func text(s string) *model.PatternMessage {
	return &model.PatternMessage{Pattern: model.Pattern{model.Text(s)}}
}

func TestParse(t *testing.T) {
	source := `{
  "title": "Shopping list",
  "menu": {
    "file": {
      "open": "Open",
      "save": "Save"
    },
    "quit": "Quit"
  }
}
`
	res, err := Parse([]byte(source), nil)
	require.NoError(t, err)
	entries := res.AllEntries()
	require.Len(t, entries, 4)
	assert.Equal(t, model.ID{"title"}, entries[0].ID)
	assert.Equal(t, model.ID{"menu", "file", "open"}, entries[1].ID)
	assert.Equal(t, model.ID{"menu", "file", "save"}, entries[2].ID)
	assert.Equal(t, model.ID{"menu", "quit"}, entries[3].ID)
	assert.Equal(t, text("Open"), entries[1].Value)

	out, err := Serialize(res, false)
	require.NoError(t, err)
	assert.Equal(t, source, string(out))
}

func TestParseRejectsNonStringLeaf(t *testing.T) {
	_, err := Parse([]byte(`{"a": 1}`), nil)
	assert.ErrorContains(t, err, "unexpected value at a")

	_, err = Parse([]byte(`["a"]`), nil)
	assert.ErrorContains(t, err, "unexpected root value")
}

func TestSerializeSectionNesting(t *testing.T) {
	res := &model.Resource{Sections: []*model.Section{
		{
			ID: model.ID{"menu"},
			Entries: []model.SectionEntry{
				&model.Entry{ID: model.ID{"open"}, Value: text("Open")},
			},
		},
		{
			Entries: []model.SectionEntry{
				&model.Entry{ID: model.ID{"title"}, Value: text("Hi")},
			},
		},
	}}
	out, err := Serialize(res, false)
	require.NoError(t, err)
	assert.Equal(t, `{
  "menu": {
    "open": "Open"
  },
  "title": "Hi"
}
`, string(out))
}

func TestSerializeRejectsComments(t *testing.T) {
	res := &model.Resource{
		Comment: "top",
		Sections: []*model.Section{{
			Entries: []model.SectionEntry{
				&model.Entry{ID: model.ID{"k"}, Value: text("v")},
			},
		}},
	}
	_, err := Serialize(res, false)
	assert.Error(t, err)

	out, err := Serialize(res, true)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"k\": \"v\"\n}\n", string(out))
}

func TestSerializeRejectsSelect(t *testing.T) {
	res := &model.Resource{Sections: []*model.Section{{
		Entries: []model.SectionEntry{
			&model.Entry{ID: model.ID{"k"}, Value: &model.SelectMessage{}},
		},
	}}}
	_, err := Serialize(res, false)
	assert.Error(t, err)
}
