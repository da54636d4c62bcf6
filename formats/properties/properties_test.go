package properties

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l10n-tools/l10nres/message/printf"
	"github.com/l10n-tools/l10nres/model"
)

func text(s string) *model.PatternMessage {
	return &model.PatternMessage{Pattern: model.Pattern{model.Text(s)}}
}

func TestParse(t *testing.T) {
	source := "# Resource header\n" +
		"\n" +
		"# First entry\n" +
		"one = value one\n" +
		"two: second \\\n" +
		"     value\n" +
		"three three\\tvalue\n" +
		"\n" +
		"# Standalone note\n" +
		"\n" +
		"unicode = snowman \\u2603\n" +
		"empty =\n"
	res, err := Parse([]byte(source), nil)
	require.NoError(t, err)
	assert.Equal(t, "Resource header", res.Comment)

	require.Len(t, res.Sections, 1)
	entries := res.Sections[0].Entries
	require.Len(t, entries, 6)
	assert.Equal(t, &model.Entry{
		ID: model.ID{"one"}, Value: text("value one"), Comment: "First entry",
	}, entries[0])
	assert.Equal(t, &model.Entry{ID: model.ID{"two"}, Value: text("second value")}, entries[1])
	assert.Equal(t, &model.Entry{ID: model.ID{"three"}, Value: text("three\tvalue")}, entries[2])
	assert.Equal(t, model.Comment{Comment: "Standalone note"}, entries[3])
	assert.Equal(t, &model.Entry{ID: model.ID{"unicode"}, Value: text("snowman ☃")}, entries[4])
	assert.Equal(t, &model.Entry{ID: model.ID{"empty"}, Value: text("")}, entries[5])
}

func TestParseEscapedKey(t *testing.T) {
	res, err := Parse([]byte("a\\ b\\:c = d\n"), nil)
	require.NoError(t, err)
	entries := res.AllEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, model.ID{"a b:c"}, entries[0].ID)
}

func TestParsePrintfValues(t *testing.T) {
	res, err := Parse([]byte("apples = %d apples\n"), func(src string) (model.Message, error) {
		return &model.PatternMessage{Pattern: printf.Parse(src)}, nil
	})
	require.NoError(t, err)
	entries := res.AllEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, &model.PatternMessage{Pattern: model.Pattern{
		&model.Expression{
			Arg:        &model.VariableRef{Name: "arg"},
			Function:   "integer",
			Attributes: model.Attributes{}.String("source", "%d"),
		},
		model.Text(" apples"),
	}}, entries[0].Value)
}

func TestSerialize(t *testing.T) {
	res := &model.Resource{
		Comment: "Resource header",
		Sections: []*model.Section{{
			Entries: []model.SectionEntry{
				&model.Entry{ID: model.ID{"one"}, Value: text("value one"), Comment: "First entry"},
				&model.Entry{ID: model.ID{"tab"}, Value: text("a\tb")},
				model.Comment{Comment: "Standalone note"},
				&model.Entry{ID: model.ID{"empty"}, Value: text("")},
			},
		}},
	}
	out, err := Serialize(res, SerializeOptions{})
	require.NoError(t, err)
	assert.Equal(t,
		"# Resource header\n"+
			"\n"+
			"# First entry\n"+
			"one = value one\n"+
			"tab = a\\tb\n"+
			"\n"+
			"# Standalone note\n"+
			"\n"+
			"empty =\n",
		string(out))
}

func TestSerializeSectionPrefixAndSpaces(t *testing.T) {
	res := &model.Resource{
		Sections: []*model.Section{{
			ID: model.ID{"menu"},
			Entries: []model.SectionEntry{
				&model.Entry{ID: model.ID{"file", "save"}, Value: text(" padded ")},
			},
		}},
	}
	out, err := Serialize(res, SerializeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "menu.file.save = \\ padded\\u0020\n", string(out))
}

func TestSerializeEnsureASCII(t *testing.T) {
	res := &model.Resource{
		Sections: []*model.Section{{
			Entries: []model.SectionEntry{
				&model.Entry{ID: model.ID{"snowman"}, Value: text("here: ☃")},
			},
		}},
	}
	out, err := Serialize(res, SerializeOptions{EnsureASCII: true})
	require.NoError(t, err)
	assert.Equal(t, "snowman = here: \\u2603\n", string(out))
}

func TestSerializePlaceholderSource(t *testing.T) {
	msg := &model.PatternMessage{Pattern: model.Pattern{
		&model.Expression{
			Arg:        &model.VariableRef{Name: "arg"},
			Function:   "integer",
			Attributes: model.Attributes{}.String("source", "%d"),
		},
		model.Text(" apples"),
	}}
	value, err := SerializeMessage(msg, false)
	require.NoError(t, err)
	assert.Equal(t, "%d apples", value)

	_, err = SerializeMessage(&model.PatternMessage{Pattern: model.Pattern{
		&model.Expression{Arg: &model.VariableRef{Name: "x"}},
	}}, false)
	assert.Error(t, err)
}

func TestSerializeRejectsMetadata(t *testing.T) {
	res := &model.Resource{
		Sections: []*model.Section{{
			Entries: []model.SectionEntry{
				&model.Entry{
					ID:    model.ID{"k"},
					Value: text("v"),
					Meta:  model.Meta{{Key: "flag", Value: "fuzzy"}},
				},
			},
		}},
	}
	_, err := Serialize(res, SerializeOptions{})
	assert.Error(t, err)
	_, err = Serialize(res, SerializeOptions{TrimComments: true})
	assert.NoError(t, err)
}
