package resource

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l10n-tools/l10nres/formats"
	"github.com/l10n-tools/l10nres/model"
)

const simplePo = `msgid ""
msgstr ""
"Project-Id-Version: test\n"
"Plural-Forms: nplurals=2; plural=(n != 1);\n"

msgid "Hello"
msgstr "Hei"
`

func TestPoAlias(t *testing.T) {
	res, err := Parse(formats.Format("po"), []byte(simplePo), Options{})
	require.NoError(t, err)
	assert.Equal(t, formats.Gettext, res.Format)
	require.Len(t, res.AllEntries(), 1)
	assert.Equal(t, model.ID{"Hello"}, res.AllEntries()[0].ID)

	var buf bytes.Buffer
	require.NoError(t, Serialize(&buf, res, formats.Format("po"), Options{}))
	assert.Equal(t, simplePo, buf.String())
}

func TestRoundTripGettext(t *testing.T) {
	res, err := Parse(formats.Gettext, []byte(simplePo), Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Serialize(&buf, res, "", Options{}))
	assert.Equal(t, simplePo, buf.String())
}

func TestConvertJSONToProperties(t *testing.T) {
	res, err := Parse(formats.PlainJSON, []byte(`{"a": {"b": "x"}, "c": "y"}`), Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Serialize(&buf, res, formats.Properties, Options{}))
	assert.Equal(t, "a.b = x\nc = y\n", buf.String())
}

func TestPrintfPlaceholders(t *testing.T) {
	res, err := Parse(formats.Properties, []byte("key = %d apples\n"), Options{
		PrintfPlaceholders: true,
	})
	require.NoError(t, err)
	msg := res.AllEntries()[0].Value.(*model.PatternMessage)
	require.Len(t, msg.Pattern, 3)
	expr := msg.Pattern[1].(*model.Expression)
	assert.Equal(t, "integer", expr.Function)
	source, _ := expr.Attributes.Source()
	assert.Equal(t, "%d", source)
}

func TestUnsupportedFormat(t *testing.T) {
	assert.False(t, CanParse(formats.MF2))
	assert.False(t, CanSerialize(formats.MF2))
	assert.True(t, CanParse(formats.Format("po")))
	assert.True(t, CanSerialize(formats.Fluent))

	_, err := Parse(formats.MF2, nil, Options{})
	assert.ErrorIs(t, err, formats.ErrUnsupported)

	err = Serialize(&bytes.Buffer{}, &model.Resource{Format: formats.MF2}, "", Options{})
	assert.ErrorIs(t, err, formats.ErrUnsupported)
}

func TestTrimComments(t *testing.T) {
	res, err := Parse(formats.Properties, []byte("# note\nkey = value\n"), Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Serialize(&buf, res, "", Options{TrimComments: true}))
	assert.Equal(t, "key = value\n", buf.String())
}
