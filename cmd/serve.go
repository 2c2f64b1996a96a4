// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"voicefx/internal/audio"
	"voicefx/internal/chain"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		presetRef string
		addr      string
	)

	cmd := &cobra.Command{
		Use:   "serve [FILE.wav]",
		Short: "Expose the chain for remote control, optionally playing a file in a loop",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Transport.WebSocketAddress = addr
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			c, err := a.newChain(presetRef)
			if err != nil {
				return err
			}
			if err := c.Configure(a.cfg.Audio.SampleRate); err != nil {
				return err
			}

			mon, err := a.startMonitor(c, true)
			if err != nil {
				return err
			}
			defer mon.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if len(args) == 1 {
				engine, err := startLoop(a, c, args[0])
				if err != nil {
					return err
				}
				defer audio.Terminate()
				defer engine.Close()
				go func() {
					for {
						select {
						case <-ctx.Done():
							return
						case <-engine.Finished():
							engine.Play()
						}
					}
				}()
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Control at ws://%s/ws. Ctrl+C to stop.\n", mon.ws.Addr())
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVarP(&presetRef, "preset", "p", "", "Preset name or .json path (default: configured preset)")
	cmd.Flags().StringVar(&addr, "addr", "", "WebSocket listen address (overrides the configuration)")
	return cmd
}

// startLoop opens the output device and plays path through c. The caller
// terminates PortAudio and closes the engine.
func startLoop(a *app, c *chain.Chain, path string) (*audio.Engine, error) {
	src, err := audio.LoadWAV(path)
	if err != nil {
		return nil, err
	}
	if err := audio.Initialize(); err != nil {
		return nil, err
	}
	engine, err := audio.NewEngine(a.cfg, c, src)
	if err != nil {
		audio.Terminate()
		return nil, err
	}
	if err := engine.StartOutputStream(); err != nil {
		engine.Close()
		audio.Terminate()
		return nil, err
	}
	engine.Play()
	return engine, nil
}
