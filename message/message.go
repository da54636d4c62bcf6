// Package message parses and serializes single messages in their
// per-format string representations.
package message

import (
	"fmt"

	"github.com/l10n-tools/l10nres/formats"
	"github.com/l10n-tools/l10nres/formats/android"
	"github.com/l10n-tools/l10nres/formats/mf2"
	"github.com/l10n-tools/l10nres/formats/properties"
	"github.com/l10n-tools/l10nres/formats/webext"
	"github.com/l10n-tools/l10nres/formats/xliff"
	"github.com/l10n-tools/l10nres/message/printf"
	"github.com/l10n-tools/l10nres/model"
)

// Options adjusts message parsing for format-specific behavior.
type Options struct {
	// AndroidASCIISpaces limits Android whitespace collapsing to
	// ASCII spaces.
	AndroidASCIISpaces bool

	// PrintfPlaceholders parses printf conversion specifiers as
	// placeholders in formats without their own placeholder syntax.
	PrintfPlaceholders bool

	// WebextPlaceholders is the placeholders table of a webext
	// message, required to resolve its named placeholders.
	WebextPlaceholders webext.Placeholders

	// XliffIsXcode enables Xcode printf placeholder parsing in
	// XLIFF messages.
	XliffIsXcode bool
}

// Parse parses a message from its string representation in the given
// format.
//
// Custom parsers are used for the android, mf2, properties, webext,
// and xliff formats. Other formats yield the source as a single-part
// pattern, or a printf pattern when PrintfPlaceholders is set.
// Fluent messages cannot be parsed on their own, as a Fluent entry
// may produce multiple values.
func Parse(format formats.Format, source string, opts Options) (model.Message, error) {
	switch format {
	case formats.Properties:
		if opts.PrintfPlaceholders {
			return &model.PatternMessage{Pattern: printf.Parse(source)}, nil
		}
		return properties.ParseMessage(source), nil
	case formats.WebExt:
		return webext.ParseMessage(source, opts.WebextPlaceholders)
	case formats.Android:
		return android.ParseMessage(source, android.ParseOptions{
			AsciiSpaces: opts.AndroidASCIISpaces,
		})
	case formats.XLIFF:
		return xliff.ParseMessage(source, opts.XliffIsXcode)
	case formats.MF2:
		return mf2.ParseMessage(source)
	case formats.Fluent:
		return nil, formats.Unsupportedf("parsing Fluent message patterns is not supported")
	}
	if opts.PrintfPlaceholders {
		return &model.PatternMessage{Pattern: printf.Parse(source)}, nil
	}
	msg := &model.PatternMessage{}
	if source != "" {
		msg.Pattern = model.Pattern{model.Text(source)}
	}
	return msg, nil
}

// Serialize writes a message in its string representation for the
// given format.
//
// Custom serializers are used for the android, mf2, properties,
// webext, and xliff formats; most rely on placeholders carrying an
// appropriate source attribute. Select messages are only supported
// by mf2. For other formats, text parts and placeholder source
// attributes are concatenated.
func Serialize(format formats.Format, msg model.Message) (string, error) {
	switch format {
	case formats.Properties:
		return properties.SerializeMessage(msg, false)
	case formats.WebExt:
		// The reconstructed placeholders table is discarded.
		s, _, err := webext.SerializeMessage(msg, false)
		return s, err
	case formats.Android:
		return android.SerializeMessage(msg)
	case formats.XLIFF:
		return xliff.SerializeMessage(msg)
	case formats.MF2:
		return mf2.SerializeMessage(msg)
	case formats.Fluent:
		return "", formats.Unsupportedf("serializing Fluent message patterns is not supported")
	}
	pm, ok := msg.(*model.PatternMessage)
	if !ok || len(pm.Declarations) > 0 {
		return "", fmt.Errorf("unsupported message: %v", msg)
	}
	res := ""
	for _, part := range pm.Pattern {
		var attributes model.Attributes
		switch pt := part.(type) {
		case model.Text:
			res += string(pt)
			continue
		case *model.Expression:
			attributes = pt.Attributes
		case *model.Markup:
			attributes = pt.Attributes
		}
		source, ok := attributes.Source()
		if !ok {
			return "", fmt.Errorf("unsupported placeholder: %v", part)
		}
		res += source
	}
	return res, nil
}
