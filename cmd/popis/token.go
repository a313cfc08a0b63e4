package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/erazemk/popis/internal/auth"
)

func newTokenCmd(a *app) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:         "token",
		Short:       "Mint an API bearer token for the scope",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"stdout": "data"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := openBackend(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer b.close()

			secret, err := b.jwtSecret(ctx, a.cfg)
			if err != nil {
				return err
			}
			token, err := auth.GenerateToken(secret, a.cfg.Scope, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", auth.TokenExpiry, "token lifetime")
	return cmd
}
