package main

import (
	"encoding/json"
	"fmt"

	"github.com/privatepub/privatepub"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newSignCmd(v *viper.Viper) *cobra.Command {
	var action string

	cmd := &cobra.Command{
		Use:   "sign CHANNEL",
		Short: "Print a signed subscription for a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := privatepub.Action(action)
			if a != privatepub.ActionSubscribe && a != privatepub.ActionPublish {
				return fmt.Errorf("unsupported action %q, must be %q or %q", action, privatepub.ActionSubscribe, privatepub.ActionPublish)
			}

			c, err := currentConfig(v, cmd.Flags())
			if err != nil {
				return err
			}

			s, err := privatepub.NewSigner(c, privatepub.WithLogger(zap.NewNop()))
			if err != nil {
				return err
			}

			sub, err := s.Subscription(args[0], a)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(sub)
		},
	}

	cmd.Flags().StringVarP(&action, "action", "a", string(privatepub.ActionSubscribe), "action to sign, subscribe or publish")

	return cmd
}
