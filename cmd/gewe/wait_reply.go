package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gewe-lab/client"
	"gewe-lab/domain"
	"gewe-lab/runtime"
	"gewe-lab/services"
	"gewe-lab/webhook"
)

func (a *app) waitReplyCommand() *cobra.Command {
	var (
		toWxid     string
		listen     string
		groupWxid  string
		filterWxid string
		match      string
		timeout    int
		output     string
		messages   []string
	)

	cmd := &cobra.Command{
		Use:   "wait-reply",
		Short: "Send messages, then block until a matching reply arrives",
		Long: `Optionally sends an ordered list of messages, then waits for an inbound
reply whose sender, group and content satisfy the session filters.

Concurrent invocations sharing one --listen address coordinate among
themselves: one process binds the port and receives callbacks, the
others subscribe to its local fan-out and take over if it exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			outbound, err := domain.ParseOutboundMessages(messages)
			if err != nil {
				return a.fail(services.ExitAcquireFailed, err)
			}

			format, err := domain.ParseOutputFormat(output)
			if err != nil {
				return a.fail(services.ExitAcquireFailed, err)
			}

			session, err := domain.NewSession(domain.Session{
				ToWxid:     toWxid,
				Listen:     listen,
				GroupWxid:  groupWxid,
				FilterWxid: filterWxid,
				Match:      match,
				Timeout:    time.Duration(timeout) * time.Second,
				Output:     format,
				Messages:   outbound,
			})
			if err != nil {
				return a.fail(services.ExitAcquireFailed, err)
			}

			// Outbound sends need API credentials; a bare wait does not.
			if len(session.Messages) > 0 {
				token, appID, err := a.credentials()
				if err != nil {
					return a.fail(services.ExitAcquireFailed, err)
				}
				transport := client.New(a.log, a.cfg.BaseURL, token, appID)
				dispatcher := services.NewDispatcher(a.log, transport)
				if err := dispatcher.Dispatch(ctx, session); err != nil {
					return a.fail(services.ExitCode(runtime.Result{}, err), err)
				}
			}

			source := webhook.NewServer(a.log, webhook.Options{Secret: a.cfg.WebhookSecret})
			waiter, err := runtime.NewWaiter(a.log, session, source, runtime.Options{})
			if err != nil {
				return a.fail(services.ExitAcquireFailed, err)
			}

			res, err := waiter.Run(ctx)
			a.exitCode = services.ExitCode(res, err)
			if err != nil {
				return err
			}

			return services.Render(cmd.OutOrStdout(), session.Output, res)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&toWxid, "to-wxid", "", "wxid of the contact (or group member) to wait on")
	flags.StringVar(&listen, "listen", "", "address to bind for webhook callbacks, e.g. :4399")
	flags.StringVar(&groupWxid, "group-wxid", "", "group wxid when waiting on a group chat")
	flags.StringVar(&filterWxid, "filter-wxid", "", "only accept replies from this wxid (default --to-wxid)")
	flags.StringVarP(&match, "match", "m", "", "regular expression the reply content must match (default any)")
	flags.IntVarP(&timeout, "timeout", "t", 0, "seconds to wait before giving up (default unbounded)")
	flags.StringVarP(&output, "output-format", "o", "text", "output format: text or json")
	flags.StringArrayVarP(&messages, "message", "M", nil, "message to send first, TYPE:CONTENT (repeatable)")
	_ = cmd.MarkFlagRequired("to-wxid")
	_ = cmd.MarkFlagRequired("listen")

	return cmd
}
