package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kidwatch/jwks-strategy/jwks"
	"github.com/kidwatch/jwks-strategy/telemetry"
	"github.com/kidwatch/jwks-strategy/validator"
)

func newVerifyCmd(root *rootOptions) *cobra.Command {
	var (
		jwksURL    string
		alg        string
		maxRetries int
		delay      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "verify TOKEN",
		Short: "Fetch a JWKS once and verify TOKEN against it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := root.logger(telemetry.LoggerConfig{Level: "warn", Output: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}

			opts := []jwks.Option{
				jwks.WithJWKSURL(jwksURL),
				jwks.WithFirstFetchSync(true),
				jwks.WithHTTPMaxRetries(maxRetries),
				jwks.WithHTTPDelayPerRetry(delay),
				jwks.WithLogger(logger),
			}
			if alg != "" {
				opts = append(opts, jwks.WithExplicitAlg(alg))
			}

			strategy, err := jwks.New("cli", opts...)
			if err != nil {
				return err
			}
			if err := strategy.Start(cmd.Context()); err != nil {
				return err
			}
			defer strategy.Stop()

			v, err := validator.New(strategy)
			if err != nil {
				return err
			}

			token, err := v.ValidateToken(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("token rejected (%s): %w", jwks.ErrorCode(err), err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"kid":    token.KeyID,
				"alg":    token.Algorithm,
				"claims": token.Claims,
			})
		},
	}

	cmd.Flags().StringVar(&jwksURL, "jwks-url", "", "JWKS endpoint (env JWKS_URL)")
	cmd.Flags().StringVar(&alg, "alg", "", "algorithm to apply to every key, overriding their alg")
	cmd.Flags().IntVar(&maxRetries, "retries", 2, "HTTP retries for the fetch")
	cmd.Flags().DurationVar(&delay, "retry-delay", 500*time.Millisecond, "delay between retries")
	return cmd
}
