// SPDX-License-Identifier: MIT
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"voicefx/internal/preset"
	"voicefx/internal/tui"
)

func newPresetsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "Manage the preset library",
	}
	cmd.AddCommand(
		newPresetsListCmd(a),
		newPresetsShowCmd(a),
		newPresetsValidateCmd(),
		newPresetsImportCmd(a),
		newPresetsExportCmd(a),
		newPresetsDeleteCmd(a),
		newPresetsInitCmd(a),
		newPresetsBrowseCmd(a),
	)
	return cmd
}

func newPresetsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			names, err := store.List()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No presets in %s\n", store.Dir())
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newPresetsShowCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show [NAME|FILE.json]",
		Short: "Show a preset and its designed frequency response",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := a.cfg.Chain.Preset
			if len(args) == 1 {
				ref = args[0]
			}
			p, err := a.loadPreset(ref)
			if err != nil {
				return err
			}
			if asJSON {
				return preset.Write(cmd.OutOrStdout(), p)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s", p.Name, tui.RenderPreset(p, a.cfg.Audio.SampleRate))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the preset document instead of a summary")
	return cmd
}

func newPresetsValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE.json...",
		Short: "Check preset files without loading them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var errs []error
			for _, path := range args {
				p, err := preset.LoadFile(path)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%q, version %d)\n", path, p.Name, p.Version)
			}
			return errors.Join(errs...)
		},
	}
}

func newPresetsImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE.json...",
		Short: "Copy preset files into the library",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				p, err := store.Import(f)
				f.Close()
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %q\n", p.Name)
			}
			return nil
		},
	}
}

func newPresetsExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export NAME [FILE.json]",
		Short: "Write a stored preset to a file or stdout",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				return store.Export(args[0], cmd.OutOrStdout())
			}
			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			if err := store.Export(args[0], f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
}

func newPresetsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Remove a stored preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			return store.Delete(args[0])
		},
	}
}

func newPresetsInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Save the built-in preset into the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			p := preset.Default()
			if err := store.Save(p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %q to %s\n", p.Name, store.Dir())
			return nil
		},
	}
}

func newPresetsBrowseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse the library interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			name, err := tui.RunPresetBrowser(store, a.cfg.Audio.SampleRate)
			if err != nil {
				return err
			}
			if name != "" {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
