package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gewe-lab/webhook"
)

func (a *app) serveWebhookCommand() *cobra.Command {
	var (
		listen     string
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "serve-webhook",
		Short: "Receive Gewe callbacks and print every event as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := io.Writer(cmd.OutOrStdout())
			if outputFile != "" {
				f, err := os.OpenFile(outputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("open output file: %w", err)
				}
				defer f.Close()
				out = io.MultiWriter(out, f)
			}

			listener, err := net.Listen("tcp", listen)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", listen, err)
			}

			server := webhook.NewServer(a.log, webhook.Options{
				Secret:  a.cfg.WebhookSecret,
				EmitRaw: true,
			})

			enc := json.NewEncoder(out)
			go func() {
				for event := range server.RawEvents() {
					if err := enc.Encode(event); err != nil {
						a.log.Error("Failed to write event", "error", err)
					}
				}
			}()

			a.log.Info("Serving webhook callbacks", "address", listener.Addr().String())
			return server.Serve(ctx, listener)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&listen, "listen", ":3000", "address to bind for webhook callbacks")
	flags.StringVar(&outputFile, "output-file", "", "also append events to this file, one JSON object per line")

	return cmd
}
