// Package properties reads and writes Java-style .properties files.
package properties

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/l10n-tools/l10nres/formats"
	"github.com/l10n-tools/l10nres/model"
)

// ParseMessage wraps a single .properties value, already unescaped,
// as a pattern message.
func ParseMessage(source string) *model.PatternMessage {
	msg := &model.PatternMessage{}
	msg.Pattern = msg.Pattern.AppendText(source)
	return msg
}

// Parse parses a .properties file into a message resource.
//
// By default all values become plain pattern messages; a non-nil
// parseMessage overrides the message parsing, e.g. to detect printf
// specifiers in values.
//
// The parsed resource will not include any metadata.
func Parse(source []byte, parseMessage func(string) (model.Message, error)) (*model.Resource, error) {
	section := &model.Section{}
	res := &model.Resource{Format: formats.Properties, Sections: []*model.Section{section}}

	var comment []string
	flushComment := func() {
		if len(comment) == 0 {
			return
		}
		text := strings.Join(comment, "\n")
		comment = nil
		if res.Comment == "" && len(section.Entries) == 0 {
			res.Comment = text
		} else {
			section.Entries = append(section.Entries, model.Comment{Comment: text})
		}
	}

	lines := strings.Split(string(source), "\n")
	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], "\r")
		trimmed := strings.TrimLeft(line, " \t\f")
		if trimmed == "" {
			flushComment()
			continue
		}
		if trimmed[0] == '#' || trimmed[0] == '!' {
			comment = append(comment, strings.TrimPrefix(
				strings.TrimLeft(trimmed, "#!"), " "))
			continue
		}
		// Logical line: join continuation lines ending in an odd
		// number of backslashes.
		logical := trimmed
		for continuedLine(logical) && i+1 < len(lines) {
			i++
			next := strings.TrimRight(lines[i], "\r")
			logical = logical[:len(logical)-1] + strings.TrimLeft(next, " \t\f")
		}
		key, value, err := splitKeyValue(logical)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if key == "" && value == "" {
			flushComment()
			continue
		}
		entry := &model.Entry{ID: model.ID{key}, Comment: strings.Join(comment, "\n")}
		comment = nil
		if parseMessage != nil {
			if entry.Value, err = parseMessage(value); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", key, err)
			}
		} else {
			entry.Value = ParseMessage(value)
		}
		section.Entries = append(section.Entries, entry)
	}
	flushComment()
	return res, nil
}

func continuedLine(line string) bool {
	n := 0
	for n < len(line) && line[len(line)-1-n] == '\\' {
		n++
	}
	return n%2 == 1
}

func splitKeyValue(line string) (string, string, error) {
	i := 0
	for ; i < len(line); i++ {
		c := line[i]
		if c == '\\' {
			i++
			continue
		}
		if c == '=' || c == ':' || c == ' ' || c == '\t' || c == '\f' {
			break
		}
	}
	key, err := unescape(line[:min(i, len(line))])
	if err != nil {
		return "", "", err
	}
	rest := line[min(i, len(line)):]
	rest = strings.TrimLeft(rest, " \t\f")
	if rest != "" && (rest[0] == '=' || rest[0] == ':') {
		rest = strings.TrimLeft(rest[1:], " \t\f")
	}
	value, err := unescape(rest)
	if err != nil {
		return "", "", err
	}
	return key, value, nil
}

func unescape(s string) (string, error) {
	if !strings.Contains(s, "\\") {
		return s, nil
	}
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			out.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 't':
			out.WriteByte('\t')
		case 'n':
			out.WriteByte('\n')
		case 'f':
			out.WriteByte('\f')
		case 'r':
			out.WriteByte('\r')
		case 'u':
			if i+4 >= len(s) {
				return "", fmt.Errorf("truncated \\u escape in %q", s)
			}
			var r rune
			for _, c := range s[i+1 : i+5] {
				d, ok := hexDigit(c)
				if !ok {
					return "", fmt.Errorf("invalid \\u escape in %q", s)
				}
				r = r<<4 | d
			}
			out.WriteRune(r)
			i += 4
		default:
			out.WriteByte(s[i])
		}
	}
	return out.String(), nil
}

func hexDigit(c rune) (rune, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// SerializeOptions configures Serialize.
type SerializeOptions struct {
	// EnsureASCII escapes all non-ASCII characters, for the
	// iso-8859-1 encoding expected by older Java tooling.
	EnsureASCII bool

	// TrimComments drops all comments from the output.
	TrimComments bool

	// SerializeMessage overrides the message serialization.
	SerializeMessage func(model.Message) (string, error)
}

// Serialize writes a resource as the contents of a .properties file.
//
// Section identifiers are prepended to their constituent message
// identifiers, and multi-part identifiers are joined with a "." between
// each part. Metadata is not supported.
//
// Re-parsing the output is not guaranteed to result in the same
// resource, as sections are flattened away.
func Serialize(resource *model.Resource, opts SerializeOptions) ([]byte, error) {
	var buf bytes.Buffer
	atEmptyLine := true

	comment := func(comment string, meta model.Meta, standalone bool) error {
		if opts.TrimComments {
			return nil
		}
		if len(meta) > 0 {
			return fmt.Errorf("metadata is not supported")
		}
		if comment == "" {
			return nil
		}
		if standalone && !atEmptyLine {
			buf.WriteString("\n")
		}
		for _, line := range strings.Split(strings.Trim(comment, "\n"), "\n") {
			if strings.TrimSpace(line) == "" {
				buf.WriteString("#\n")
			} else if strings.HasPrefix(line, "#") {
				buf.WriteString(strings.TrimRight(line, " \t") + "\n")
			} else {
				buf.WriteString("# " + strings.TrimRight(line, " \t") + "\n")
			}
		}
		if standalone {
			buf.WriteString("\n")
			atEmptyLine = true
		}
		return nil
	}

	if err := comment(resource.Comment, resource.Meta, true); err != nil {
		return nil, err
	}
	for _, section := range resource.Sections {
		if err := comment(section.Comment, section.Meta, true); err != nil {
			return nil, err
		}
		idPrefix := ""
		if len(section.ID) > 0 {
			idPrefix = strings.Join(section.ID, ".") + "."
		}
		for _, se := range section.Entries {
			entry, ok := se.(*model.Entry)
			if !ok {
				if err := comment(se.(model.Comment).Comment, nil, true); err != nil {
					return nil, err
				}
				continue
			}
			if err := comment(entry.Comment, entry.Meta, false); err != nil {
				return nil, err
			}
			key := escapeKey(idPrefix+strings.Join(entry.ID, "."), opts.EnsureASCII)

			var value string
			var err error
			if opts.SerializeMessage != nil {
				if value, err = opts.SerializeMessage(entry.Value); err == nil {
					value = escapeChars(value, opts.EnsureASCII)
				}
			} else {
				value, err = SerializeMessage(entry.Value, opts.EnsureASCII)
			}
			if err != nil {
				return nil, fmt.Errorf("error serializing %s: %w", key, err)
			}
			if value == "" {
				buf.WriteString(key + " =\n")
			} else {
				buf.WriteString(key + " = " + fixOuterSpaces(value) + "\n")
			}
			atEmptyLine = false
		}
	}
	return buf.Bytes(), nil
}

// SerializeMessage writes a message value in its .properties
// representation. Non-text pattern parts must carry a source attribute.
func SerializeMessage(msg model.Message, ensureASCII bool) (string, error) {
	pm, ok := msg.(*model.PatternMessage)
	if !ok {
		return "", fmt.Errorf("unsupported message: %T", msg)
	}
	var msgstr strings.Builder
	for _, part := range pm.Pattern {
		switch p := part.(type) {
		case model.Text:
			msgstr.WriteString(string(p))
		case *model.Expression:
			source, ok := p.Attributes.Source()
			if !ok {
				return "", fmt.Errorf("unsupported message part: %v", part)
			}
			msgstr.WriteString(source)
		default:
			return "", fmt.Errorf("unsupported message part: %v", part)
		}
	}
	return fixOuterSpaces(escapeChars(msgstr.String(), ensureASCII)), nil
}

func escapeChars(value string, ensureASCII bool) string {
	var out strings.Builder
	for _, r := range value {
		escape := false
		if ensureASCII {
			escape = r < 0x20 || r == '\\' || r > 0x7e
		} else {
			escape = r <= 0x19 || r == '\\' || (r >= 0x7f && r <= 0x9f)
		}
		if !escape {
			out.WriteRune(r)
			continue
		}
		switch r {
		case '\\':
			out.WriteString(`\\`)
		case '\t':
			out.WriteString(`\t`)
		case '\n':
			out.WriteString(`\n`)
		case '\f':
			out.WriteString(`\f`)
		case '\r':
			out.WriteString(`\r`)
		default:
			out.WriteString(fmt.Sprintf(`\u%04x`, r))
		}
	}
	return out.String()
}

func escapeKey(key string, ensureASCII bool) string {
	key = escapeChars(key, ensureASCII)
	key = strings.NewReplacer(" ", `\ `, ":", `\:`, "=", `\=`).Replace(key)
	return key
}

func fixOuterSpaces(value string) string {
	if value == "" {
		return value
	}
	if value[0] == ' ' || value[0] == '\t' || value[0] == '\f' {
		value = "\\" + value
	}
	if strings.HasSuffix(value, " ") && !strings.HasSuffix(value, "\\ ") {
		value = value[:len(value)-1] + "\\u0020"
	}
	return value
}
