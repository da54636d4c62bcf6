package cmd

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/l10n-tools/l10nres/config"
	"github.com/l10n-tools/l10nres/flag"
	"github.com/l10n-tools/l10nres/formats"
	"github.com/l10n-tools/l10nres/resource"
)

type convertCommand struct {
	cmd *cobra.Command
	O   struct {
		From         string
		To           string
		Output       string
		Lang         string
		Plurals      []string
		Encoding     string
		TrimComments bool
		Printf       bool
		AsciiSpaces  bool
	}
}

func (v *convertCommand) Command() *cobra.Command {
	if v.cmd != nil {
		return v.cmd
	}

	v.cmd = &cobra.Command{
		Use:   "convert --to <format> [--from <format>] [-o <output>] [inputfile]",
		Short: "Convert a localization resource to another format",
		Long: `Parse a localization resource and serialize it in another format.

The input is read from the given file, or from stdin when no file is given.
The input format is auto-detected from the file name and contents; use --from
to override it, which is required when reading from stdin. Formats: ` + formatList() + `.

Gettext plural variants are labeled with the plural categories of the target
language. Use --lang to look the categories up from the built-in tables (or
the --config file), or list them directly with --plurals.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return v.Execute(args)
		},
	}

	fs := v.cmd.Flags()
	fs.SortFlags = false
	fs.StringVar(&v.O.From, "from", "",
		"input format; auto-detected from the file name when omitted")
	fs.StringVar(&v.O.To, "to", "",
		"output format")
	fs.StringVarP(&v.O.Output, "output", "o", "",
		"write output to file (use - for stdout); default is stdout")
	fs.StringVar(&v.O.Lang, "lang", "",
		"target language code, for plural category lookup")
	fs.StringSliceVar(&v.O.Plurals, "plurals", nil,
		"plural category labels in msgstr index order (overrides --lang)")
	fs.StringVar(&v.O.Encoding, "encoding", "",
		"input file encoding (iso-8859-1 escapes non-ASCII properties output)")
	fs.BoolVar(&v.O.TrimComments, "trim-comments", false,
		"leave comments out of the output")
	fs.BoolVar(&v.O.Printf, "printf", false,
		"parse printf conversion specifiers as placeholders")
	fs.BoolVar(&v.O.AsciiSpaces, "ascii-spaces", false,
		"collapse only ASCII spaces in Android resources")

	return v.cmd
}

func (v convertCommand) Execute(args []string) error {
	if len(args) > 1 {
		return NewErrorWithUsage("convert takes at most one input file")
	}
	if v.O.To == "" {
		return NewErrorWithUsage("convert requires --to <format>")
	}

	path, source, err := readInput(args)
	if err != nil {
		return err
	}

	from := formats.Format(v.O.From)
	if from == "" {
		if path == "" {
			return NewErrorWithUsage("--from is required when reading from stdin")
		}
		from, err = formats.Detect(path, source)
		if err != nil {
			return NewStandardErrorF("%v", err)
		}
		log.Debugf("detected %s format for %s", from, path)
	}
	to := formats.Format(v.O.To)
	if !resource.CanParse(from) {
		return NewErrorWithUsageF("cannot parse %q resources", from)
	}
	if !resource.CanSerialize(to) {
		return NewErrorWithUsageF("cannot serialize %q resources", to)
	}

	plurals := v.O.Plurals
	if plurals == nil && v.O.Lang != "" {
		cfg, err := config.Load(flag.ConfigFile())
		if err != nil {
			return NewStandardErrorF("%v", err)
		}
		plurals, err = cfg.Categories(v.O.Lang)
		if err != nil {
			return NewStandardErrorF("%v", err)
		}
		log.Debugf("using plural categories %v for %s", plurals, v.O.Lang)
	}

	opts := resource.Options{
		AndroidASCIISpaces: v.O.AsciiSpaces,
		PrintfPlaceholders: v.O.Printf,
		TrimComments:       v.O.TrimComments,
		Plurals:            plurals,
		Encoding:           v.O.Encoding,
	}
	res, err := resource.Parse(from, source, opts)
	if err != nil {
		return NewStandardErrorF("failed to parse %s: %v", inputName(path), err)
	}

	var w io.Writer = os.Stdout
	if v.O.Output != "" && v.O.Output != "-" {
		f, err := os.Create(v.O.Output)
		if err != nil {
			return NewStandardErrorF("failed to create output file %s: %v", v.O.Output, err)
		}
		defer f.Close()
		w = f
	}
	if err := resource.Serialize(w, res, to, opts); err != nil {
		return NewStandardErrorF("failed to serialize as %s: %v", to, err)
	}
	return nil
}

// readInput reads the resource from the named file, or from stdin when
// no file is given.
func readInput(args []string) (path string, source []byte, err error) {
	if len(args) == 0 {
		source, err = io.ReadAll(os.Stdin)
		if err != nil {
			err = NewStandardErrorF("failed to read stdin: %v", err)
		}
		return "", source, err
	}
	path = args[0]
	source, err = os.ReadFile(path)
	if err != nil {
		err = NewStandardErrorF("failed to read %s: %v", path, err)
	}
	return path, source, err
}

func inputName(path string) string {
	if path == "" {
		return "stdin"
	}
	return path
}

func formatList() string {
	s := ""
	for i, f := range formats.All() {
		if i > 0 {
			s += ", "
		}
		s += string(f)
	}
	return s
}

var convertCmd = convertCommand{}

func init() {
	rootCmd.AddCommand(convertCmd.Command())
}
