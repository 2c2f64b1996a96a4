// SPDX-License-Identifier: MIT
// Package cmd implements the voicefx command line.
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"voicefx/internal/chain"
	"voicefx/internal/config"
	"voicefx/internal/log"
	"voicefx/internal/preset"
	"voicefx/pkg/build"
)

var logger = log.Named("cmd")

// app carries the persistent flags and the loaded configuration to every
// subcommand.
type app struct {
	configPath string
	logLevel   string
	verbose    bool

	cfg *config.Config
}

// Execute parses args and runs the selected command.
func Execute(args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(&app{})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}

func newRootCmd(a *app) *cobra.Command {
	buildInfo := build.GetBuildFlags()

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "",
		"Path to the YAML configuration file (default: search ./"+config.DefaultConfigFile+")")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides the configuration)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false,
		"Shorthand for --log-level debug")

	rootCmd.AddCommand(
		newRenderCmd(a),
		newPlayCmd(a),
		newDevicesCmd(a),
		newPresetsCmd(a),
		newResponseCmd(a),
		newServeCmd(a),
		newVersionCmd(a),
	)
	return rootCmd
}

func (a *app) load() error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}
	level, ok := log.ParseLevel(cfg.LogLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	log.SetLevel(level)
	a.cfg = cfg
	return nil
}

func (a *app) store() (*preset.Store, error) {
	return preset.NewStore(a.cfg.Chain.PresetDir)
}

// loadPreset resolves ref as a file path when it looks like one, as a
// stored preset name otherwise, and falls back to the built-in preset when
// ref is empty.
func (a *app) loadPreset(ref string) (preset.Preset, error) {
	switch {
	case ref == "":
		return preset.Default(), nil
	case strings.HasSuffix(ref, ".json") || strings.ContainsRune(ref, filepath.Separator):
		return preset.LoadFile(ref)
	}
	store, err := a.store()
	if err != nil {
		return preset.Preset{}, err
	}
	return store.Load(ref)
}

// newChain builds the chain from the configured preset, or override when
// it is set.
func (a *app) newChain(override string) (*chain.Chain, error) {
	ref := a.cfg.Chain.Preset
	if override != "" {
		ref = override
	}
	p, err := a.loadPreset(ref)
	if err != nil {
		return nil, err
	}
	logger.Debugf("using preset %q", p.Name)
	return chain.New(chain.WithPreset(p), chain.WithBypass(a.cfg.Chain.Bypass))
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), build.GetBuildFlags())
			return err
		},
	}
}

// Main runs the command line with the process arguments.
func Main() int {
	if err := Execute(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
