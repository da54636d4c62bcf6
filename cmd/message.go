package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/l10n-tools/l10nres/formats"
	"github.com/l10n-tools/l10nres/message"
	"github.com/l10n-tools/l10nres/model"
)

type messageCommand struct {
	cmd *cobra.Command
	O   struct {
		Format      string
		JSON        bool
		Printf      bool
		Xcode       bool
		AsciiSpaces bool
	}
}

func (v *messageCommand) Command() *cobra.Command {
	if v.cmd != nil {
		return v.cmd
	}

	v.cmd = &cobra.Command{
		Use:   "message --format <format> [--json] [pattern]",
		Short: "Parse a single message pattern",
		Long: `Parse one message pattern in the syntax of the given format.

The pattern is taken from the command line, or read from stdin when no
argument is given. By default the parsed message is printed back in its
normalized form; use --json to print its JSON representation instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return v.Execute(args)
		},
	}

	fs := v.cmd.Flags()
	fs.SortFlags = false
	fs.StringVar(&v.O.Format, "format", "",
		"format of the message pattern")
	fs.BoolVar(&v.O.JSON, "json", false,
		"print the message as JSON")
	fs.BoolVar(&v.O.Printf, "printf", false,
		"parse printf conversion specifiers as placeholders")
	fs.BoolVar(&v.O.Xcode, "xcode", false,
		"parse Xcode placeholders in xliff patterns")
	fs.BoolVar(&v.O.AsciiSpaces, "ascii-spaces", false,
		"collapse only ASCII spaces in android patterns")

	return v.cmd
}

func (v messageCommand) Execute(args []string) error {
	if len(args) > 1 {
		return NewErrorWithUsage("message takes at most one pattern argument")
	}
	format := formats.Format(v.O.Format)
	if format == "" {
		return NewErrorWithUsage("message requires --format <format>")
	}
	if !format.Valid() {
		return NewErrorWithUsageF("unknown format %q", format)
	}

	var source string
	if len(args) == 1 {
		source = args[0]
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return NewStandardErrorF("failed to read stdin: %v", err)
		}
		source = strings.TrimSuffix(string(data), "\n")
	}

	msg, err := message.Parse(format, source, message.Options{
		AndroidASCIISpaces: v.O.AsciiSpaces,
		PrintfPlaceholders: v.O.Printf,
		XliffIsXcode:       v.O.Xcode,
	})
	if err != nil {
		return NewStandardErrorF("%v", err)
	}

	if v.O.JSON {
		fmt.Println(string(model.MessageToJSON(msg)))
		return nil
	}
	out, err := message.Serialize(format, msg)
	if err != nil {
		return NewStandardErrorF("%v", err)
	}
	fmt.Println(out)
	return nil
}

var messageCmd = messageCommand{}

func init() {
	rootCmd.AddCommand(messageCmd.Command())
}
