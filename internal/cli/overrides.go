package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/gquinteros/listen/internal/config"
	"github.com/gquinteros/listen/internal/failure"
)

// Overrides holds only the flags that were set explicitly.
type Overrides struct {
	Language   *string
	Model      *string
	SignalMode *bool
	VADSeconds *float64
	Visual     *bool
	FastMode   *bool
	Verbose    *bool
	Quiet      *bool
	JSON       *bool
	Output     *string
	StatusFile *string
	Clipboard  *string
	Backend    *string
	Device     *string
}

func collectOverrides(cmd *cobra.Command, flags flagValues) Overrides {
	set := cmd.Flags().Changed
	var o Overrides
	if set("language") {
		o.Language = &flags.language
	}
	if set("model") {
		o.Model = &flags.model
	}
	if set("signal-mode") {
		o.SignalMode = &flags.signalMode
	}
	if set("vad") {
		o.VADSeconds = &flags.vad
	}
	if set("codevoice") {
		o.Visual = &flags.codevoice
	}
	if set("fast-mode") {
		o.FastMode = &flags.fastMode
	}
	if set("verbose") {
		o.Verbose = &flags.verbose
	}
	if set("quiet") {
		o.Quiet = &flags.quiet
	}
	if set("json") {
		o.JSON = &flags.json
	}
	if set("output") {
		o.Output = &flags.output
	}
	if set("status-file") {
		o.StatusFile = &flags.statusFile
	}
	if set("clipboard") {
		o.Clipboard = &flags.clipboard
	}
	if set("backend") {
		o.Backend = &flags.backend
	}
	if set("device") {
		o.Device = &flags.device
	}
	return o
}

// Apply overlays o on cfg and validates the result.
func (o Overrides) Apply(cfg config.Config) (config.Config, error) {
	if o.Language != nil {
		cfg.Language = *o.Language
	}
	if o.Model != nil {
		cfg.Model = *o.Model
	}
	if o.SignalMode != nil {
		cfg.Capture.InterruptMode = *o.SignalMode
	}
	if o.VADSeconds != nil {
		cfg.VAD.Enabled = true
		cfg.VAD.SilenceDuration = time.Duration(*o.VADSeconds * float64(time.Second))
	}
	if o.Visual != nil {
		cfg.Output.Visual = *o.Visual
	}
	if o.FastMode != nil {
		cfg.Decode.FastMode = *o.FastMode
	}
	if o.Verbose != nil {
		cfg.Output.Verbose = *o.Verbose
	}
	if o.Quiet != nil {
		cfg.Output.Quiet = *o.Quiet
	}
	if o.JSON != nil {
		cfg.Output.JSON = *o.JSON
	}
	if o.Output != nil {
		cfg.Output.File = *o.Output
	}
	if o.StatusFile != nil {
		cfg.Output.StatusFile = *o.StatusFile
	}
	if o.Clipboard != nil {
		clipboard, err := config.ParseCommand(*o.Clipboard)
		if err != nil {
			return config.Config{}, failure.Config("invalid --clipboard: %w", err)
		}
		cfg.Output.Clipboard = clipboard
	}
	if o.Backend != nil {
		cfg.Audio.Backend = *o.Backend
	}
	if o.Device != nil {
		cfg.Audio.Input = *o.Device
	}

	if _, err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
