// Package gettext reads and writes gettext PO and POT files.
//
// Message identifiers have one or two parts, with the second part
// holding the optional msgctxt. Plural messages become select messages
// on a number-annotated "n" variable, with the highest msgstr index as
// the catch-all variant.
//
// Entries may carry the following metadata:
//   - translator-comments
//   - extracted-comments
//   - reference: "file:line", separately for each reference
//   - obsolete: "true"
//   - flag: separately for each flag
//   - plural: the msgid_plural value
package gettext

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/l10n-tools/l10nres/formats"
	"github.com/l10n-tools/l10nres/model"
)

// ParseOptions configures Parse.
type ParseOptions struct {
	// Plurals relabels numeric plural keys with category names, e.g.
	// ["one", "other"]. The last plural variant is always the
	// catch-all variant.
	Plurals []string

	// SkipObsolete leaves #~ commented entries out of the output.
	SkipObsolete bool
}

type poEntry struct {
	translatorComments []string
	extractedComments  []string
	references         []string
	flags              []string
	obsolete           bool
	msgctxt            string
	hasCtxt            bool
	msgid              string
	msgidPlural        string
	msgstr             string
	msgstrPlural       map[int]string
	maxPlural          int
	seen               map[string]bool
}

// Parse parses a .po or .pot file into a message resource.
func Parse(source []byte, opts ParseOptions) (*model.Resource, error) {
	section := &model.Section{}
	res := &model.Resource{Format: formats.Gettext, Sections: []*model.Section{section}}

	sawHeader := false
	finish := func(pe *poEntry) error {
		if pe == nil || len(pe.seen) == 0 {
			return nil
		}
		if pe.msgid == "" && !pe.hasCtxt && !sawHeader && !pe.obsolete {
			sawHeader = true
			res.Comment = strings.TrimRight(strings.Join(pe.translatorComments, "\n"), " \n")
			for _, line := range strings.Split(pe.msgstr, "\n") {
				if line == "" {
					continue
				}
				key, value, found := strings.Cut(line, ":")
				if !found {
					return fmt.Errorf("invalid header line: %q", line)
				}
				res.Meta = append(res.Meta, model.Metadata{
					Key: key, Value: strings.TrimSpace(value),
				})
			}
			return nil
		}
		if pe.obsolete && opts.SkipObsolete {
			return nil
		}
		var meta model.Meta
		if len(pe.translatorComments) > 0 {
			meta = append(meta, model.Metadata{
				Key: "translator-comments", Value: strings.Join(pe.translatorComments, "\n"),
			})
		}
		if len(pe.extractedComments) > 0 {
			meta = append(meta, model.Metadata{
				Key: "extracted-comments", Value: strings.Join(pe.extractedComments, "\n"),
			})
		}
		for _, ref := range pe.references {
			meta = append(meta, model.Metadata{Key: "reference", Value: ref})
		}
		if pe.obsolete {
			meta = append(meta, model.Metadata{Key: "obsolete", Value: "true"})
		}
		for _, flag := range pe.flags {
			meta = append(meta, model.Metadata{Key: "flag", Value: flag})
		}
		if pe.msgidPlural != "" {
			meta = append(meta, model.Metadata{Key: "plural", Value: pe.msgidPlural})
		}

		var value model.Message
		if pe.msgstrPlural != nil {
			value = pluralMessage(pe, opts.Plurals)
		} else {
			msg := &model.PatternMessage{}
			msg.Pattern = msg.Pattern.AppendText(pe.msgstr)
			value = msg
		}
		id := model.ID{pe.msgid}
		if pe.hasCtxt {
			id = append(id, pe.msgctxt)
		}
		section.Entries = append(section.Entries, &model.Entry{ID: id, Value: value, Meta: meta})
		return nil
	}

	var pe *poEntry
	var field *string
	pluralIndex := -1
	lines := strings.Split(string(source), "\n")
	for n, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			if err := finish(pe); err != nil {
				return nil, err
			}
			pe = nil
			field = nil
			pluralIndex = -1
			continue
		}
		if pe == nil {
			pe = &poEntry{seen: map[string]bool{}}
		}

		obsolete := false
		if strings.HasPrefix(line, "#~") {
			obsolete = true
			pe.obsolete = true
			line = strings.TrimSpace(line[2:])
		}

		switch {
		case !obsolete && strings.HasPrefix(line, "#"):
			marker := line[1:]
			switch {
			case strings.HasPrefix(marker, "."):
				pe.extractedComments = append(pe.extractedComments, strings.TrimPrefix(marker[1:], " "))
			case strings.HasPrefix(marker, ":"):
				pe.references = append(pe.references, strings.Fields(marker[1:])...)
			case strings.HasPrefix(marker, ","):
				for _, flag := range strings.Split(marker[1:], ",") {
					if flag = strings.TrimSpace(flag); flag != "" {
						pe.flags = append(pe.flags, flag)
					}
				}
			case strings.HasPrefix(marker, "|"):
				// Previous msgid, not retained.
			default:
				pe.translatorComments = append(pe.translatorComments, strings.TrimPrefix(marker, " "))
			}
		case strings.HasPrefix(line, "msgctxt "):
			value, err := unquote(line[len("msgctxt "):])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n+1, err)
			}
			pe.msgctxt = value
			pe.hasCtxt = true
			pe.seen["msgctxt"] = true
			field = &pe.msgctxt
			pluralIndex = -1
		case strings.HasPrefix(line, "msgid_plural "):
			value, err := unquote(line[len("msgid_plural "):])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n+1, err)
			}
			pe.msgidPlural = value
			pe.seen["msgid_plural"] = true
			field = &pe.msgidPlural
			pluralIndex = -1
		case strings.HasPrefix(line, "msgid "):
			if pe.seen["msgid"] {
				if err := finish(pe); err != nil {
					return nil, err
				}
				next := &poEntry{seen: map[string]bool{}}
				pe = next
			}
			value, err := unquote(line[len("msgid "):])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n+1, err)
			}
			pe.msgid = value
			pe.seen["msgid"] = true
			field = &pe.msgid
			pluralIndex = -1
		case strings.HasPrefix(line, "msgstr["):
			end := strings.IndexByte(line, ']')
			if end < 0 {
				return nil, fmt.Errorf("line %d: malformed msgstr index", n+1)
			}
			idx, err := strconv.Atoi(line[len("msgstr["):end])
			if err != nil {
				return nil, fmt.Errorf("line %d: malformed msgstr index", n+1)
			}
			value, err := unquote(strings.TrimSpace(line[end+1:]))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n+1, err)
			}
			if pe.msgstrPlural == nil {
				pe.msgstrPlural = map[int]string{}
			}
			pe.msgstrPlural[idx] = value
			if idx > pe.maxPlural {
				pe.maxPlural = idx
			}
			pe.seen["msgstr"] = true
			field = nil
			pluralIndex = idx
		case strings.HasPrefix(line, "msgstr "):
			value, err := unquote(line[len("msgstr "):])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n+1, err)
			}
			pe.msgstr = value
			pe.seen["msgstr"] = true
			field = &pe.msgstr
			pluralIndex = -1
		case strings.HasPrefix(line, `"`):
			value, err := unquote(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n+1, err)
			}
			if pluralIndex >= 0 {
				pe.msgstrPlural[pluralIndex] += value
			} else if field != nil {
				*field += value
			} else {
				return nil, fmt.Errorf("line %d: unexpected continuation line", n+1)
			}
		default:
			return nil, fmt.Errorf("line %d: unexpected input: %q", n+1, line)
		}
	}
	if err := finish(pe); err != nil {
		return nil, err
	}
	return res, nil
}

func pluralMessage(pe *poEntry, plurals []string) *model.SelectMessage {
	msg := &model.SelectMessage{
		Declarations: model.Declarations{
			{Name: "n", Value: &model.Expression{
				Arg: &model.VariableRef{Name: "n"}, Function: "number",
			}},
		},
		Selectors: []model.VariableRef{{Name: "n"}},
	}
	for idx := 0; idx <= pe.maxPlural; idx++ {
		label := strconv.Itoa(idx)
		if idx < len(plurals) {
			label = plurals[idx]
		}
		key := model.Key{Value: label}
		if idx == pe.maxPlural {
			key = model.Catchall(label)
		}
		var pattern model.Pattern
		if str, ok := pe.msgstrPlural[idx]; ok {
			pattern = pattern.AppendText(str)
		}
		msg.Variants = append(msg.Variants, model.Variant{Keys: []model.Key{key}, Pattern: pattern})
	}
	return msg
}

func unquote(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", fmt.Errorf("expected quoted string, got %q", s)
	}
	s = s[1 : len(s)-1]
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
		case 'n':
			out.WriteByte('\n')
		case 't':
			out.WriteByte('\t')
		case 'r':
			out.WriteByte('\r')
		case '"':
			out.WriteByte('"')
		case '\\':
			out.WriteByte('\\')
		default:
			out.WriteByte('\\')
			out.WriteByte(s[i])
		}
	}
	return out.String(), nil
}

var npluralsPattern = regexp.MustCompile(`^\s*nplurals=(\d+);`)

// SerializeOptions configures Serialize.
type SerializeOptions struct {
	// TrimComments drops comments from the output and leaves out
	// obsolete entries entirely.
	TrimComments bool

	// Plurals maps plural category labels back to msgstr indices.
	// Required when the resource was parsed with relabeled plurals;
	// its length must agree with nplurals from the Plural-Forms
	// header when that is present.
	Plurals []string
}

// Serialize writes a resource as the contents of a .po file.
//
// Section identifiers, comments, and metadata are not supported.
// Message identifiers may have one or two parts, with the second one
// holding the optional msgctxt.
func Serialize(resource *model.Resource, opts SerializeOptions) ([]byte, error) {
	var buf bytes.Buffer

	nplurals := 1
	if pf, ok := resource.Meta.Get("Plural-Forms"); ok {
		if m := npluralsPattern.FindStringSubmatch(pf); m != nil {
			nplurals, _ = strconv.Atoi(m[1])
		}
	}
	if opts.Plurals != nil && len(opts.Plurals) != nplurals {
		return nil, fmt.Errorf(
			"plurals list has %d categories, Plural-Forms header expects %d",
			len(opts.Plurals), nplurals)
	}

	if !opts.TrimComments && strings.TrimSpace(resource.Comment) != "" {
		writeComment(&buf, "", strings.TrimRight(resource.Comment, " \n"))
	}
	buf.WriteString("msgid \"\"\nmsgstr \"\"\n")
	for _, m := range resource.Meta {
		buf.WriteString(quote(m.Key+": "+m.Value+"\n") + "\n")
	}

	for _, section := range resource.Sections {
		if section.Comment != "" {
			return nil, fmt.Errorf("section comments are not supported")
		}
		if len(section.Meta) > 0 {
			return nil, fmt.Errorf("section metadata is not supported")
		}
		if len(section.ID) > 0 {
			return nil, fmt.Errorf("section identifiers are not supported: %v", section.ID)
		}
		for _, se := range section.Entries {
			entry, ok := se.(*model.Entry)
			if !ok {
				return nil, fmt.Errorf(
					"standalone comments are not supported: %q", se.(model.Comment).Comment)
			}
			if err := serializeEntry(&buf, entry, nplurals, opts); err != nil {
				return nil, err
			}
		}
	}
	return buf.Bytes(), nil
}

func serializeEntry(buf *bytes.Buffer, entry *model.Entry, nplurals int, opts SerializeOptions) error {
	if len(entry.ID) < 1 || len(entry.ID) > 2 {
		return fmt.Errorf("unsupported entry identifier: %v", entry.ID)
	}

	tcomment := strings.TrimRight(entry.Comment, " \n")
	var ecomment, msgidPlural string
	var references, flags []string
	obsolete := false
	for _, m := range entry.Meta {
		switch m.Key {
		case "obsolete":
			obsolete = m.Value != "false"
		case "plural":
			msgidPlural = m.Value
		case "translator-comments":
			cs := strings.TrimRight(strings.TrimLeft(m.Value, "\n"), " \n")
			if tcomment != "" {
				tcomment += "\n" + cs
			} else {
				tcomment = cs
			}
		case "extracted-comments":
			ecomment = strings.TrimRight(strings.TrimLeft(m.Value, "\n"), " \n")
		case "reference":
			references = append(references, m.Value)
		case "flag":
			flags = append(flags, m.Value)
		default:
			return fmt.Errorf("unsupported meta entry %q for %v: %s", m.Key, entry.ID, m.Value)
		}
	}
	if obsolete && opts.TrimComments {
		return nil
	}

	var msgstr string
	var msgstrPlural []string
	switch msg := entry.Value.(type) {
	case *model.PatternMessage:
		str, err := patternText(msg.Pattern)
		if err != nil || len(msg.Declarations) > 0 {
			return fmt.Errorf("value for %v is not supported: %v", entry.ID, entry.Value)
		}
		msgstr = str
	case *model.SelectMessage:
		var err error
		if msgstrPlural, err = pluralStrings(msg, nplurals, opts.Plurals); err != nil {
			return fmt.Errorf("value for %v is not supported: %w", entry.ID, err)
		}
	default:
		return fmt.Errorf("value for %v is not supported: %v", entry.ID, entry.Value)
	}

	buf.WriteString("\n")
	if !opts.TrimComments {
		if tcomment != "" {
			writeComment(buf, "", tcomment)
		}
		if ecomment != "" {
			writeComment(buf, ".", ecomment)
		}
		if len(references) > 0 {
			buf.WriteString("#: " + strings.Join(references, " ") + "\n")
		}
		if len(flags) > 0 {
			buf.WriteString("#, " + strings.Join(flags, ", ") + "\n")
		}
	}

	prefix := ""
	if obsolete {
		prefix = "#~ "
	}
	if len(entry.ID) == 2 {
		writeField(buf, prefix, "msgctxt", entry.ID[1])
	}
	writeField(buf, prefix, "msgid", entry.ID[0])
	if msgstrPlural != nil {
		if msgidPlural != "" {
			writeField(buf, prefix, "msgid_plural", msgidPlural)
		}
		for i, str := range msgstrPlural {
			writeField(buf, prefix, fmt.Sprintf("msgstr[%d]", i), str)
		}
	} else {
		writeField(buf, prefix, "msgstr", msgstr)
	}
	return nil
}

// pluralStrings flattens a plural select message into per-index msgstr
// values. The message must select on a single number-annotated variable
// with single-key, text-only variants.
func pluralStrings(msg *model.SelectMessage, nplurals int, plurals []string) ([]string, error) {
	if len(msg.Declarations) != 1 || len(msg.Selectors) != 1 {
		return nil, fmt.Errorf("unsupported selectors")
	}
	sels, err := msg.SelectorExpressions()
	if err != nil {
		return nil, err
	}
	if sels[0].Function != "number" || len(sels[0].Options) > 0 {
		return nil, fmt.Errorf("unsupported selector annotation")
	}
	if plurals != nil && len(msg.Variants) > len(plurals) {
		return nil, fmt.Errorf(
			"%d variants with only %d plural categories", len(msg.Variants), len(plurals))
	}
	out := make([]string, nplurals)
	for _, v := range msg.Variants {
		if len(v.Keys) != 1 {
			return nil, fmt.Errorf("unsupported variant keys: %v", v.Keys)
		}
		label := v.Keys[0].Value
		idx := -1
		if plurals != nil {
			for i, p := range plurals {
				if p == label {
					idx = i
					break
				}
			}
			if idx < 0 {
				return nil, fmt.Errorf("plural category %q not in plurals list", label)
			}
		} else {
			if idx, err = strconv.Atoi(label); err != nil {
				return nil, fmt.Errorf("non-numeric plural key %q", label)
			}
		}
		if idx >= nplurals {
			continue
		}
		if out[idx], err = patternText(v.Pattern); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func patternText(pattern model.Pattern) (string, error) {
	var out strings.Builder
	for _, part := range pattern {
		text, ok := part.(model.Text)
		if !ok {
			return "", fmt.Errorf("unsupported pattern part: %v", part)
		}
		out.WriteString(string(text))
	}
	return out.String(), nil
}

func writeComment(buf *bytes.Buffer, marker, comment string) {
	for _, line := range strings.Split(comment, "\n") {
		if line == "" {
			buf.WriteString("#" + marker + "\n")
		} else {
			buf.WriteString("#" + marker + " " + line + "\n")
		}
	}
}

// writeField writes a keyword with its quoted value, splitting
// multi-line values into one continuation line per line of text.
func writeField(buf *bytes.Buffer, prefix, keyword, value string) {
	segments := splitLines(value)
	if len(segments) <= 1 {
		buf.WriteString(prefix + keyword + " " + quote(value) + "\n")
		return
	}
	buf.WriteString(prefix + keyword + " \"\"\n")
	for _, segment := range segments {
		buf.WriteString(prefix + quote(segment) + "\n")
	}
}

// splitLines splits after each newline, keeping the newline with the
// preceding segment.
func splitLines(s string) []string {
	var out []string
	for {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			if s != "" {
				out = append(out, s)
			}
			return out
		}
		out = append(out, s[:i+1])
		s = s[i+1:]
	}
}

func quote(s string) string {
	var out strings.Builder
	out.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			out.WriteString(`\"`)
		case '\\':
			out.WriteString(`\\`)
		case '\n':
			out.WriteString(`\n`)
		case '\t':
			out.WriteString(`\t`)
		case '\r':
			out.WriteString(`\r`)
		default:
			out.WriteByte(s[i])
		}
	}
	out.WriteByte('"')
	return out.String()
}
