// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"voicefx/internal/audio"
)

func newPlayCmd(a *app) *cobra.Command {
	var (
		presetRef string
		device    int
		record    string
	)

	cmd := &cobra.Command{
		Use:   "play FILE.wav",
		Short: "Play a WAV file through the effects chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("device") {
				a.cfg.Audio.OutputDevice = device
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			src, err := audio.LoadWAV(args[0])
			if err != nil {
				return err
			}
			c, err := a.newChain(presetRef)
			if err != nil {
				return err
			}

			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()

			engine, err := audio.NewEngine(a.cfg, c, src)
			if err != nil {
				return err
			}
			defer func() {
				if err := engine.Close(); err != nil {
					logger.Errorf("closing audio engine: %v", err)
				}
			}()

			mon, err := a.startMonitor(c, false)
			if err != nil {
				return err
			}
			defer mon.Close()

			if err := engine.StartOutputStream(); err != nil {
				return err
			}

			if record == "" && a.cfg.Recording.Enabled {
				record = recordingPath(a.cfg.Recording.OutputDir, time.Now())
			}
			if record != "" {
				if err := os.MkdirAll(filepath.Dir(record), 0o755); err != nil {
					return err
				}
				if err := engine.StartRecording(record); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			engine.Play()
			fmt.Fprintf(cmd.OutOrStdout(), "Playing %s (%s). Ctrl+C to stop.\n",
				filepath.Base(args[0]), engine.Duration().Round(time.Millisecond))

			select {
			case <-ctx.Done():
			case <-engine.Finished():
			}
			engine.Pause()

			if record != "" {
				if err := engine.StopRecording(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recording saved to: %s\n", record)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&presetRef, "preset", "p", "", "Preset name or .json path (default: configured preset)")
	cmd.Flags().IntVarP(&device, "device", "d", -1, "Output device ID, -1 for the system default")
	cmd.Flags().StringVarP(&record, "record", "r", "", "Record the processed output to this WAV file")
	return cmd
}

func recordingPath(dir string, t time.Time) string {
	return filepath.Join(dir, "voicefx-"+t.Format("20060102-150405")+".wav")
}
