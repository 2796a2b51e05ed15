// Package cli parses the listen command line into a dispatchable command.
package cli

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gquinteros/listen/internal/version"
)

type Command string

const (
	CommandTranscribe  Command = "transcribe"
	CommandStop        Command = "stop"
	CommandStatus      Command = "status"
	CommandDevices     Command = "devices"
	CommandDoctor      Command = "doctor"
	CommandVersion     Command = "version"
	CommandConfigShow  Command = "config show"
	CommandConfigPath  Command = "config path"
	CommandConfigInit  Command = "config init"
	CommandConfigReset Command = "config reset"
	CommandConfigSet   Command = "config set"
	CommandHelp        Command = "help"
)

// Parsed is the result of one command line.
type Parsed struct {
	Command    Command
	ConfigPath string
	// InputFile selects file mode when set.
	InputFile string
	Overrides Overrides

	// ConfigKey and ConfigValue are the `config set` arguments.
	ConfigKey   string
	ConfigValue string
	// Force lets `config init` overwrite an existing file.
	Force bool

	// Help is the rendered help text when Command is CommandHelp.
	Help string
}

type flagValues struct {
	configPath string
	file       string
	language   string
	model      string
	signalMode bool
	vad        float64
	codevoice  bool
	fastMode   bool
	verbose    bool
	quiet      bool
	json       bool
	output     string
	statusFile string
	clipboard  string
	backend    string
	device     string
	force      bool
}

// Parse runs args through the command tree without side effects.
func Parse(args []string) (Parsed, error) {
	var (
		parsed Parsed
		flags  flagValues
		help   bytes.Buffer
	)

	record := func(command Command) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			parsed.Command = command
			parsed.ConfigPath = flags.configPath
			parsed.Overrides = collectOverrides(cmd, flags)
			if command == CommandTranscribe {
				parsed.InputFile = flags.file
			}
			if command == CommandConfigSet {
				parsed.ConfigKey, parsed.ConfigValue = args[0], args[1]
			}
			parsed.Force = flags.force
			return nil
		}
	}

	root := newRootCommand(&flags, record)
	root.SetArgs(args)
	root.SetOut(&help)
	root.SetErr(&help)

	if err := root.Execute(); err != nil {
		return Parsed{}, err
	}
	if parsed.Command == "" {
		return Parsed{Command: CommandHelp, Help: help.String()}, nil
	}
	return parsed, nil
}

func newRootCommand(flags *flagValues, record func(Command) func(*cobra.Command, []string) error) *cobra.Command {
	root := &cobra.Command{
		Use:   "listen",
		Short: "Minimal audio transcription tool, fully on-premise",
		Long: strings.TrimSpace(`
Record from the microphone (or read a WAV file) and print the transcription.

Recording stops on SPACE, on SIGUSR1 / "listen stop" with --signal-mode,
or after a stretch of silence with --vad.`),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          record(CommandTranscribe),
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Version = version.String()
	root.SetVersionTemplate("{{.Version}}\n")

	persistent := root.PersistentFlags()
	persistent.StringVar(&flags.configPath, "config", "", "config file path (default $XDG_CONFIG_HOME/listen/config.jsonc)")
	persistent.BoolVarP(&flags.verbose, "verbose", "v", false, "verbose output")
	persistent.BoolVarP(&flags.quiet, "quiet", "q", false, "suppress UI, output only the transcription")
	persistent.BoolVarP(&flags.json, "json", "j", false, "output in JSON format")

	local := root.Flags()
	local.StringVarP(&flags.file, "file", "f", "", "transcribe audio from a WAV `FILE`")
	local.StringVarP(&flags.language, "language", "l", "es", "language code (e.g. es, en, fr)")
	local.StringVarP(&flags.model, "model", "m", "base", "whisper model (tiny, base, small, medium, large)")
	local.BoolVar(&flags.signalMode, "signal-mode", false, "stop on SIGUSR1 or `listen stop` instead of SPACE")
	local.Float64Var(&flags.vad, "vad", 0, "auto-stop after `SECONDS` of silence")
	local.BoolVar(&flags.codevoice, "codevoice", false, "full-width visual mode with a live level meter")
	local.BoolVar(&flags.fastMode, "fast-mode", false, "decode with every CPU core")
	local.StringVarP(&flags.output, "output", "o", "", "write the transcription to `FILE`")
	local.StringVar(&flags.statusFile, "status-file", "", "write real-time status JSON to `FILE`")
	local.StringVar(&flags.clipboard, "clipboard", "", "pipe the transcription into `CMD` (e.g. wl-copy)")
	local.StringVar(&flags.backend, "backend", "", "capture backend: pulse or portaudio")
	local.StringVar(&flags.device, "device", "", "input device id or name substring")

	root.AddCommand(
		&cobra.Command{
			Use:   "stop",
			Short: "Stop the active --signal-mode recording",
			Args:  cobra.NoArgs,
			RunE:  record(CommandStop),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the state of the active recording",
			Args:  cobra.NoArgs,
			RunE:  record(CommandStatus),
		},
		&cobra.Command{
			Use:   "devices",
			Short: "List available input devices",
			Args:  cobra.NoArgs,
			RunE:  record(CommandDevices),
		},
		&cobra.Command{
			Use:   "doctor",
			Short: "Run configuration and environment checks",
			Args:  cobra.NoArgs,
			RunE:  record(CommandDoctor),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			RunE:  record(CommandVersion),
		},
		newConfigCommand(flags, record),
	)
	return root
}

func newConfigCommand(flags *flagValues, record func(Command) func(*cobra.Command, []string) error) *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect or edit the config file",
		Args:  cobra.NoArgs,
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		Args:  cobra.NoArgs,
		RunE:  record(CommandConfigInit),
	}
	initCmd.Flags().BoolVar(&flags.force, "force", false, "overwrite an existing file")

	cfg.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE:  record(CommandConfigShow),
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			RunE:  record(CommandConfigPath),
		},
		initCmd,
		&cobra.Command{
			Use:   "reset",
			Short: "Delete the config file",
			Args:  cobra.NoArgs,
			RunE:  record(CommandConfigReset),
		},
		&cobra.Command{
			Use:   "set KEY VALUE",
			Short: "Set one key, e.g. `listen config set vad.enabled true`",
			Args:  cobra.ExactArgs(2),
			RunE:  record(CommandConfigSet),
		},
	)
	return cfg
}

// HelpText renders the root help.
func HelpText() string {
	parsed, err := Parse([]string{"--help"})
	if err != nil {
		return fmt.Sprintf("listen: %v\n", err)
	}
	return parsed.Help
}
