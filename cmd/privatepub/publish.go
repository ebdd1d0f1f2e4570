package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/privatepub/privatepub"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newPublishCmd(v *viper.Viper) *cobra.Command {
	var eval bool

	cmd := &cobra.Command{
		Use:   "publish CHANNEL DATA",
		Short: "Publish a message on a channel",
		Long: `Publish DATA on CHANNEL. DATA must be a JSON document, or JavaScript
to evaluate in the subscribers' browsers when --eval is set.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := parsePayload(args[1], eval)
			if err != nil {
				return err
			}

			c, err := currentConfig(v, cmd.Flags())
			if err != nil {
				return err
			}

			logger, err := newLogger(v)
			if err != nil {
				return err
			}
			defer logger.Sync()

			p, err := privatepub.NewPublisher(c, privatepub.WithLogger(logger))
			if err != nil {
				return err
			}

			resp, err := p.Publish(cmd.Context(), args[0], payload)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("unable to read the response: %w", err)
			}

			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				return fmt.Errorf("the Faye server answered %s: %s", resp.Status, body)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(body))

			return nil
		},
	}

	cmd.Flags().BoolVar(&eval, "eval", false, "DATA is JavaScript to evaluate")

	return cmd
}

func parsePayload(data string, eval bool) (privatepub.Payload, error) {
	if eval {
		return privatepub.Eval(data), nil
	}

	var v interface{}
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return privatepub.Payload{}, fmt.Errorf("DATA is not valid JSON, use --eval to publish JavaScript: %w", err)
	}

	return privatepub.Data(v), nil
}
