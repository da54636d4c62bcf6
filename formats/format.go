// Package formats declares the supported localization format tags and
// format detection from file names and contents.
package formats

import (
	"errors"
	"fmt"
	"strings"
)

// Format identifies a supported localization resource syntax.
type Format string

const (
	Android    Format = "android"
	Fluent     Format = "fluent"
	Gettext    Format = "gettext"
	MF2        Format = "mf2"
	PlainJSON  Format = "plain_json"
	Properties Format = "properties"
	WebExt     Format = "webext"
	XLIFF      Format = "xliff"
)

// ErrUnsupported marks a format/operation combination that this build
// cannot express, as opposed to invalid input.
var ErrUnsupported = errors.New("unsupported format operation")

// Unsupportedf wraps ErrUnsupported with a description.
func Unsupportedf(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, fmt.Sprintf(format, a...))
}

// All lists every known format tag.
func All() []Format {
	return []Format{
		Android, Fluent, Gettext, MF2, PlainJSON, Properties, WebExt, XLIFF,
	}
}

// Valid reports whether f is a known format tag.
func (f Format) Valid() bool {
	for _, known := range All() {
		if f == known {
			return true
		}
	}
	return false
}

// Detect guesses the format of a resource from its file name and,
// when the name is ambiguous, its contents.
func Detect(path string, source []byte) (Format, error) {
	name := strings.ToLower(path)
	switch {
	case strings.HasSuffix(name, ".po"), strings.HasSuffix(name, ".pot"):
		return Gettext, nil
	case strings.HasSuffix(name, ".ftl"):
		return Fluent, nil
	case strings.HasSuffix(name, ".properties"):
		return Properties, nil
	case strings.HasSuffix(name, ".xlf"), strings.HasSuffix(name, ".xliff"):
		return XLIFF, nil
	case strings.HasSuffix(name, ".mf2"):
		return MF2, nil
	case strings.HasSuffix(name, "strings.xml"):
		return Android, nil
	case strings.HasSuffix(name, ".xml"):
		if strings.Contains(string(source), "<resources") {
			return Android, nil
		}
		return XLIFF, nil
	case strings.HasSuffix(name, "messages.json"):
		return WebExt, nil
	case strings.HasSuffix(name, ".json"):
		src := string(source)
		if strings.Contains(src, `"message"`) && strings.Contains(src, `{`) {
			return WebExt, nil
		}
		return PlainJSON, nil
	}
	return "", fmt.Errorf("cannot detect resource format for %q", path)
}
