package cmd

import (
	"os"

	"github.com/leonelquinteros/gotext"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/l10n-tools/l10nres/formats"
	"github.com/l10n-tools/l10nres/resource"
)

type lintCommand struct {
	cmd *cobra.Command
	O   struct {
		From   string
		Printf bool
	}
}

func (v *lintCommand) Command() *cobra.Command {
	if v.cmd != nil {
		return v.cmd
	}

	v.cmd = &cobra.Command{
		Use:   "lint <file>...",
		Short: "Check syntax of localization resource files",
		Long: `Parse each file and report syntax errors. The format of each file is
auto-detected from its name and contents; use --from to force one format
for all files. Gettext files are additionally loaded with a gettext
runtime to cross-check the catalog.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return v.Execute(args)
		},
	}

	fs := v.cmd.Flags()
	fs.StringVar(&v.O.From, "from", "",
		"format of the input files; auto-detected when omitted")
	fs.BoolVar(&v.O.Printf, "printf", false,
		"parse printf conversion specifiers as placeholders")

	return v.cmd
}

func (v lintCommand) Execute(args []string) error {
	if len(args) == 0 {
		return NewErrorWithUsage("lint requires at least one input file")
	}

	errCount := 0
	for _, path := range args {
		if err := v.lintFile(path); err != nil {
			log.Errorf("%s: %s", path, err)
			errCount++
		}
	}
	if errCount > 0 {
		return NewStandardErrorF("%d of %d files failed", errCount, len(args))
	}
	log.Infof("%d files OK", len(args))
	return nil
}

func (v lintCommand) lintFile(path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	format := formats.Format(v.O.From)
	if format == "" {
		format, err = formats.Detect(path, source)
		if err != nil {
			return err
		}
	}
	res, err := resource.Parse(format, source, resource.Options{
		PrintfPlaceholders: v.O.Printf,
	})
	if err != nil {
		return err
	}
	entries := len(res.AllEntries())
	log.Debugf("%s: parsed %d entries as %s", path, entries, format)

	if format == formats.Gettext || format == "po" {
		po := gotext.NewPo()
		po.Parse(source)
		loaded := len(po.GetDomain().GetTranslations())
		log.Debugf("%s: gettext runtime loaded %d translations", path, loaded)
		if loaded == 0 && entries > 0 {
			return NewStandardError("gettext runtime loaded no translations")
		}
		if loaded != entries {
			// Counts may legitimately differ for obsolete entries.
			log.Warnf("%s: gettext runtime loaded %d translations, parser found %d entries",
				path, loaded, entries)
		}
	}
	return nil
}

var lintCmd = lintCommand{}

func init() {
	rootCmd.AddCommand(lintCmd.Command())
}
