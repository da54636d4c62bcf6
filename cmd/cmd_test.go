package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helloPo = `msgid ""
msgstr ""
"Project-Id-Version: test\n"
"Plural-Forms: nplurals=2; plural=(n != 1);\n"

msgid "Hello"
msgstr "Hei"
`

func TestConvertPoToProperties(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "test.po")
	output := filepath.Join(dir, "test.properties")
	require.NoError(t, os.WriteFile(input, []byte(helloPo), 0o644))

	var cmd convertCommand
	cmd.O.To = "properties"
	cmd.O.Output = output
	// The PO header metadata has no properties form.
	cmd.O.TrimComments = true
	require.NoError(t, cmd.Execute([]string{input}))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "Hello = Hei\n", string(data))
}

func TestConvertBadUsage(t *testing.T) {
	var cmd convertCommand

	err := cmd.Execute([]string{"a", "b"})
	assert.True(t, IsErrorWithUsage(err))

	cmd.O.To = "no-such-format"
	input := filepath.Join(t.TempDir(), "test.po")
	require.NoError(t, os.WriteFile(input, []byte(helloPo), 0o644))
	err = cmd.Execute([]string{input})
	assert.True(t, IsErrorWithUsage(err))
	assert.ErrorContains(t, err, "cannot serialize")
}

func TestLint(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.po")
	bad := filepath.Join(dir, "bad.ftl")
	require.NoError(t, os.WriteFile(good, []byte(helloPo), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("== not fluent ==\n"), 0o644))

	var cmd lintCommand
	assert.NoError(t, cmd.Execute([]string{good}))

	err := cmd.Execute([]string{good, bad})
	require.Error(t, err)
	assert.ErrorContains(t, err, "1 of 2 files failed")
	assert.False(t, IsErrorWithUsage(err))

	err = cmd.Execute(nil)
	assert.True(t, IsErrorWithUsage(err))
}

func TestMessageBadUsage(t *testing.T) {
	var cmd messageCommand
	err := cmd.Execute([]string{"x", "y"})
	assert.True(t, IsErrorWithUsage(err))

	cmd.O.Format = "bogus"
	err = cmd.Execute([]string{"x"})
	assert.True(t, IsErrorWithUsage(err))
}
