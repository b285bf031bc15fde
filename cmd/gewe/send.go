package main

import (
	"github.com/spf13/cobra"

	"gewe-lab/client"
	"gewe-lab/domain"
	"gewe-lab/services"
)

func (a *app) sendCommand() *cobra.Command {
	var (
		toWxid    string
		groupWxid string
		messages  []string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one or more messages and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, appID, err := a.credentials()
			if err != nil {
				return a.fail(services.ExitAcquireFailed, err)
			}

			outbound, err := domain.ParseOutboundMessages(messages)
			if err != nil {
				return a.fail(services.ExitAcquireFailed, err)
			}

			session := domain.Session{
				ToWxid:    toWxid,
				GroupWxid: groupWxid,
				Messages:  outbound,
			}

			transport := client.New(a.log, a.cfg.BaseURL, token, appID)
			dispatcher := services.NewDispatcher(a.log, transport)
			if err := dispatcher.Dispatch(cmd.Context(), session); err != nil {
				return a.fail(services.ExitSendFailed, err)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&toWxid, "to-wxid", "", "wxid of the recipient contact")
	flags.StringVar(&groupWxid, "group-wxid", "", "group wxid to post into instead of a contact")
	flags.StringArrayVarP(&messages, "message", "M", nil, "message to send, TYPE:CONTENT (repeatable)")
	_ = cmd.MarkFlagRequired("to-wxid")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}
