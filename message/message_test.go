package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l10n-tools/l10nres/formats"
	"github.com/l10n-tools/l10nres/formats/webext"
	"github.com/l10n-tools/l10nres/model"
)

func TestParsePlain(t *testing.T) {
	msg, err := Parse(formats.PlainJSON, "hello %% world", Options{})
	require.NoError(t, err)
	assert.Equal(t, &model.PatternMessage{
		Pattern: model.Pattern{model.Text("hello %% world")},
	}, msg)
}

func TestParsePrintf(t *testing.T) {
	msg, err := Parse(formats.PlainJSON, "hello %% world", Options{PrintfPlaceholders: true})
	require.NoError(t, err)
	assert.Equal(t, &model.PatternMessage{Pattern: model.Pattern{
		model.Text("hello "),
		&model.Expression{
			Arg:        model.Literal("%"),
			Attributes: model.Attributes{}.String("source", "%%"),
		},
		model.Text(" world"),
	}}, msg)
}

func TestParseWebextNumeric(t *testing.T) {
	msg, err := Parse(formats.WebExt, "ph $1", Options{})
	require.NoError(t, err)
	assert.Equal(t, &model.PatternMessage{Pattern: model.Pattern{
		model.Text("ph "),
		&model.Expression{
			Arg:        &model.VariableRef{Name: "arg1"},
			Attributes: model.Attributes{}.String("source", "$1"),
		},
	}}, msg)
}

func TestParseWebextNamed(t *testing.T) {
	_, err := Parse(formats.WebExt, "ph $x$", Options{})
	assert.Error(t, err)

	msg, err := Parse(formats.WebExt, "ph $x$", Options{
		WebextPlaceholders: webext.Placeholders{{Name: "x", Content: "$2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, &model.PatternMessage{
		Declarations: model.Declarations{
			{Name: "x", Value: &model.Expression{
				Arg:        &model.VariableRef{Name: "arg2"},
				Attributes: model.Attributes{}.String("source", "$2"),
			}},
		},
		Pattern: model.Pattern{
			model.Text("ph "),
			&model.Expression{
				Arg:        &model.VariableRef{Name: "x"},
				Attributes: model.Attributes{}.String("source", "$x$"),
			},
		},
	}, msg)
}

func TestParseFluent(t *testing.T) {
	_, err := Parse(formats.Fluent, "key = hello\n", Options{})
	assert.ErrorIs(t, err, formats.ErrUnsupported)
}

func TestParseXliff(t *testing.T) {
	msg, err := Parse(formats.XLIFF, "Hello, <b>%s</b>", Options{})
	require.NoError(t, err)
	assert.Equal(t, &model.PatternMessage{Pattern: model.Pattern{
		model.Text("Hello, "),
		&model.Markup{Kind: model.MarkupOpen, Name: "b"},
		model.Text("%s"),
		&model.Markup{Kind: model.MarkupClose, Name: "b"},
	}}, msg)

	msg, err = Parse(formats.XLIFF, "Hello, <b>%s</b>", Options{XliffIsXcode: true})
	require.NoError(t, err)
	assert.Equal(t, &model.PatternMessage{Pattern: model.Pattern{
		model.Text("Hello, "),
		&model.Markup{Kind: model.MarkupOpen, Name: "b"},
		&model.Expression{
			Arg:        &model.VariableRef{Name: "str"},
			Function:   "string",
			Attributes: model.Attributes{}.String("source", "%s"),
		},
		&model.Markup{Kind: model.MarkupClose, Name: "b"},
	}}, msg)

	_, err = Parse(formats.XLIFF, "Hello, <b>%s", Options{})
	assert.Error(t, err)
}

func TestParseAndroid(t *testing.T) {
	msg, err := Parse(formats.Android, "Hello, %1$s! You have %2$d new messages.", Options{})
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
}

func TestSerializeDefault(t *testing.T) {
	out, err := Serialize(formats.Gettext, &model.PatternMessage{Pattern: model.Pattern{
		model.Text("hello "),
		&model.Expression{
			Arg:        &model.VariableRef{Name: "arg1"},
			Attributes: model.Attributes{}.String("source", "%s"),
		},
	}})
	require.NoError(t, err)
	assert.Equal(t, "hello %s", out)

	_, err = Serialize(formats.Gettext, &model.PatternMessage{Pattern: model.Pattern{
		&model.Expression{Arg: &model.VariableRef{Name: "x"}},
	}})
	assert.ErrorContains(t, err, "unsupported placeholder")

	_, err = Serialize(formats.Gettext, &model.SelectMessage{})
	assert.ErrorContains(t, err, "unsupported message")
}

func TestSerializeFluent(t *testing.T) {
	_, err := Serialize(formats.Fluent, &model.PatternMessage{})
	assert.ErrorIs(t, err, formats.ErrUnsupported)
}

func TestSerializeMF2(t *testing.T) {
	out, err := Serialize(formats.MF2, &model.PatternMessage{Pattern: model.Pattern{
		model.Text("hello "),
		&model.Expression{Arg: &model.VariableRef{Name: "user"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, "hello {$user}", out)
}
