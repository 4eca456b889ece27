package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/txn2/helix/pkg/auth"
	"github.com/txn2/helix/pkg/config"
)

func newAPIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage service API keys",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "hash <key>",
		Short: "Print the bcrypt hash to configure for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashKey(args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	})
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		configPath string
		p          auth.Principal
		ttl        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed user token from the server's JWT settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if !cfg.Auth.JWT.Enabled() {
				return errors.New("auth.jwt is not configured")
			}
			a, err := auth.NewJWTAuthenticator(auth.JWTConfig{
				Issuer:        cfg.Auth.JWT.Issuer,
				SigningKey:    []byte(cfg.Auth.JWT.SigningKey),
				RoleClaimPath: cfg.Auth.JWT.RoleClaimPath,
			})
			if err != nil {
				return err
			}
			token, err := a.Issue(p, ttl)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", os.Getenv("HELIX_CONFIG"), "Server configuration file ($HELIX_CONFIG)")
	f.StringVar(&p.Subject, "sub", "", "Subject (user ID)")
	f.StringVar(&p.TenantID, "tenant", "", "Tenant ID")
	f.StringVar(&p.Name, "name", "", "Display name")
	f.StringVar(&p.Email, "email", "", "Email address")
	f.StringSliceVar(&p.Roles, "role", nil, "Role (repeatable)")
	f.DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}
