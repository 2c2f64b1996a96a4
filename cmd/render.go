// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"voicefx/internal/audio"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		presetRef string
		blockSize int
		bitDepth  int
		bypass    bool
	)

	cmd := &cobra.Command{
		Use:   "render INPUT.wav OUTPUT.wav",
		Short: "Process a WAV file offline and write the mono result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("block-size") {
				a.cfg.Render.BlockSize = blockSize
			}
			if cmd.Flags().Changed("bit-depth") {
				a.cfg.Render.BitDepth = bitDepth
			}
			if bypass {
				a.cfg.Chain.Bypass = true
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			c, err := a.newChain(presetRef)
			if err != nil {
				return err
			}
			stats, err := audio.RenderFile(cmd.Context(), args[0], args[1], c, audio.RenderOptions{
				BlockSize: a.cfg.Render.BlockSize,
				BitDepth:  a.cfg.Render.BitDepth,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d frames at %d Hz, %d-bit\n",
				args[1], stats.Frames, stats.SampleRate, stats.BitDepth)
			fmt.Fprintf(cmd.OutOrStdout(), "peak in %.2f dBFS, peak out %.2f dBFS, latency %d samples\n",
				stats.PeakInDBFS, stats.PeakOutDBFS, stats.Latency)
			return nil
		},
	}

	cmd.Flags().StringVarP(&presetRef, "preset", "p", "", "Preset name or .json path (default: configured preset)")
	cmd.Flags().IntVarP(&blockSize, "block-size", "b", 0, "Frames per processing block")
	cmd.Flags().IntVar(&bitDepth, "bit-depth", 0, "Output bit depth: 16, 24 or 32 (0 keeps the source depth)")
	cmd.Flags().BoolVar(&bypass, "bypass", false, "Copy audio through unprocessed")
	return cmd
}
