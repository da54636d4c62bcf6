// Package resource parses and serializes whole localization resources,
// dispatching on their format.
package resource

import (
	"io"

	"github.com/l10n-tools/l10nres/formats"
	"github.com/l10n-tools/l10nres/formats/android"
	"github.com/l10n-tools/l10nres/formats/fluent"
	"github.com/l10n-tools/l10nres/formats/gettext"
	"github.com/l10n-tools/l10nres/formats/plainjson"
	"github.com/l10n-tools/l10nres/formats/properties"
	"github.com/l10n-tools/l10nres/formats/webext"
	"github.com/l10n-tools/l10nres/formats/xliff"
	"github.com/l10n-tools/l10nres/message/printf"
	"github.com/l10n-tools/l10nres/model"
)

// Options adjusts resource parsing and serialization.
type Options struct {
	// AndroidASCIISpaces limits Android whitespace collapsing to
	// ASCII spaces.
	AndroidASCIISpaces bool

	// PrintfPlaceholders parses printf conversion specifiers as
	// placeholders in formats without their own placeholder syntax.
	PrintfPlaceholders bool

	// TrimComments leaves all comments out of the serialization.
	TrimComments bool

	// Plurals lists the plural category labels of the target
	// language, e.g. ["one", "other"]. Gettext plural variants are
	// relabeled with them on parse, and mapped back to msgstr
	// indices on serialization.
	Plurals []string

	// Encoding is the expected file encoding. The "iso-8859-1"
	// value makes the properties serializer escape all non-ASCII
	// characters.
	Encoding string
}

type handler struct {
	parse     func([]byte, Options) (*model.Resource, error)
	serialize func(*model.Resource, Options) ([]byte, error)
}

var handlers = map[formats.Format]handler{
	formats.Android: {
		parse: func(source []byte, opts Options) (*model.Resource, error) {
			return android.Parse(source, android.ParseOptions{
				AsciiSpaces: opts.AndroidASCIISpaces,
			})
		},
		serialize: func(res *model.Resource, opts Options) ([]byte, error) {
			return android.Serialize(res, android.SerializeOptions{
				TrimComments: opts.TrimComments,
			})
		},
	},
	formats.Fluent: {
		parse: func(source []byte, opts Options) (*model.Resource, error) {
			return fluent.Parse(source)
		},
		serialize: func(res *model.Resource, opts Options) ([]byte, error) {
			return fluent.Serialize(res, opts.TrimComments)
		},
	},
	formats.Gettext: {
		parse: func(source []byte, opts Options) (*model.Resource, error) {
			return gettext.Parse(source, gettext.ParseOptions{
				Plurals: opts.Plurals,
			})
		},
		serialize: func(res *model.Resource, opts Options) ([]byte, error) {
			return gettext.Serialize(res, gettext.SerializeOptions{
				TrimComments: opts.TrimComments,
				Plurals:      opts.Plurals,
			})
		},
	},
	formats.PlainJSON: {
		parse: func(source []byte, opts Options) (*model.Resource, error) {
			return plainjson.Parse(source, patternParser(opts))
		},
		serialize: func(res *model.Resource, opts Options) ([]byte, error) {
			return plainjson.Serialize(res, opts.TrimComments)
		},
	},
	formats.Properties: {
		parse: func(source []byte, opts Options) (*model.Resource, error) {
			return properties.Parse(source, patternParser(opts))
		},
		serialize: func(res *model.Resource, opts Options) ([]byte, error) {
			return properties.Serialize(res, properties.SerializeOptions{
				EnsureASCII:  opts.Encoding == "iso-8859-1",
				TrimComments: opts.TrimComments,
			})
		},
	},
	formats.WebExt: {
		parse: func(source []byte, opts Options) (*model.Resource, error) {
			return webext.Parse(source)
		},
		serialize: func(res *model.Resource, opts Options) ([]byte, error) {
			return webext.Serialize(res, opts.TrimComments)
		},
	},
	formats.XLIFF: {
		parse: func(source []byte, opts Options) (*model.Resource, error) {
			return xliff.Parse(source)
		},
		serialize: func(res *model.Resource, opts Options) ([]byte, error) {
			return xliff.Serialize(res, xliff.SerializeOptions{
				TrimComments: opts.TrimComments,
			})
		},
	},
}

// patternParser returns the message parser hook for formats whose
// values are plain patterns.
func patternParser(opts Options) func(string) (model.Message, error) {
	if !opts.PrintfPlaceholders {
		return nil
	}
	return func(src string) (model.Message, error) {
		return &model.PatternMessage{Pattern: printf.Parse(src)}, nil
	}
}

// normalize resolves format aliases.
func normalize(format formats.Format) formats.Format {
	if format == "po" {
		return formats.Gettext
	}
	return format
}

// CanParse reports whether format has a resource parser.
func CanParse(format formats.Format) bool {
	h, ok := handlers[normalize(format)]
	return ok && h.parse != nil
}

// CanSerialize reports whether format has a resource serializer.
func CanSerialize(format formats.Format) bool {
	h, ok := handlers[normalize(format)]
	return ok && h.serialize != nil
}

// Parse parses source in the given format into a message resource.
func Parse(format formats.Format, source []byte, opts Options) (*model.Resource, error) {
	h, ok := handlers[normalize(format)]
	if !ok || h.parse == nil {
		return nil, formats.Unsupportedf("no resource parser for format %q", format)
	}
	return h.parse(source, opts)
}

// Serialize writes the resource to w in the given format. An empty
// format falls back to the format the resource was parsed from.
func Serialize(w io.Writer, res *model.Resource, format formats.Format, opts Options) error {
	if format == "" {
		format = res.Format
	}
	h, ok := handlers[normalize(format)]
	if !ok || h.serialize == nil {
		return formats.Unsupportedf("no resource serializer for format %q", format)
	}
	out, err := h.serialize(res, opts)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
