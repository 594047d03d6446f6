package main

import (
	"fmt"
	"time"

	goConsole "github.com/MrEthical07/goConsole"
	"github.com/MrEthical07/goConsole/session"
	"github.com/spf13/cobra"
)

func newTokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Session token utilities",
	}
	cmd.AddCommand(newTokenIssueCmd(a))
	return cmd
}

func newTokenIssueCmd(a *app) *cobra.Command {
	var (
		subject string
		name    string
		role    string
		perms   []string
		ttl     time.Duration
		format  string
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a development session token",
		Long: `Issues a token in the format the shell decodes. The default format
follows session.token_format from config.

Example:
  goconsole token issue --sub dana@erp.local --role Manager --perm hr.view --perm crm.view`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format == "" {
				format = a.cfg.Session.TokenFormat
			}
			claims := session.Claims{
				Subject:     subject,
				Name:        name,
				Role:        role,
				Permissions: perms,
				ExpiresAt:   time.Now().Add(ttl).UnixMilli(),
			}
			if _, err := session.FromClaims(claims); err != nil {
				return err
			}

			var (
				token string
				err   error
			)
			switch format {
			case goConsole.TokenFormatBase64JSON:
				token, err = session.Base64JSONCodec{}.Encode(claims)
			case goConsole.TokenFormatJWT:
				jwtCfg := a.cfg.JWT
				jwtCfg.TTL = ttl
				mgr, mErr := goConsole.NewJWTManager(jwtCfg)
				if mErr != nil {
					return mErr
				}
				token, err = mgr.Issue(subject, name, role, perms)
			default:
				return fmt.Errorf("unknown token format %q", format)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "sub", "", "subject (user id or e-mail)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", "", "role label")
	cmd.Flags().StringSliceVar(&perms, "perm", nil, "granted capability (repeatable)")
	cmd.Flags().DurationVar(&ttl, "ttl", 8*time.Hour, "token lifetime")
	cmd.Flags().StringVar(&format, "format", "", `token format, "base64json" or "jwt"`)
	_ = cmd.MarkFlagRequired("sub")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}
