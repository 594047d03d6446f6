package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	goConsole "github.com/MrEthical07/goConsole"
	"github.com/MrEthical07/goConsole/render"
	"github.com/MrEthical07/goConsole/router"
	"github.com/spf13/cobra"
)

func newNavigateCmd(a *app) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "navigate <module>",
		Short: "Open a module and print the resulting surface",
		Long: `Runs the page-load sequence, then navigates to module and prints the
router state, the content text, the navigation affordances and any notices.

Example:
  goconsole navigate finance --token "$(goconsole token issue --sub dana --role Manager --perm finance.view)"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			storage, cleanup, err := a.openStorage()
			if err != nil {
				return err
			}
			defer cleanup()

			view := render.New(a.logger)
			shell, err := a.buildShell(storage, view, goConsole.Hooks{
				RedirectToLogin: func() { fmt.Fprintln(out, "-> redirect to login") },
			})
			if err != nil {
				return err
			}
			defer shell.Close()

			if token != "" {
				if _, err := shell.Login(ctx, token); err != nil {
					return fmt.Errorf("login: %w", err)
				}
			}
			if err := shell.Start(ctx); err != nil {
				return err
			}
			if err := waitSettled(ctx, shell, a.cfg.Router.FetchTimeout+time.Second); err != nil {
				return err
			}

			navErr := shell.Navigate(ctx, args[0])
			if navErr == nil {
				if err := waitSettled(ctx, shell, a.cfg.Router.FetchTimeout+time.Second); err != nil {
					return err
				}
			}

			if err := printSurface(ctx, out, shell, view); err != nil {
				return err
			}
			if navErr != nil && !errors.Is(navErr, goConsole.ErrAccessDenied) {
				return navErr
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "session token to log in with")
	return cmd
}

// waitSettled polls until the router leaves the Loading state.
func waitSettled(ctx context.Context, shell *goConsole.Shell, limit time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		st, err := shell.Status(ctx)
		if err != nil {
			return err
		}
		if st.State != router.Loading {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("module %s did not settle: %w", st.Module, ctx.Err())
		case <-ticker.C:
		}
	}
}

func printSurface(ctx context.Context, out io.Writer, shell *goConsole.Shell, view *render.HTML) error {
	st, err := shell.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "state:   %s\n", st.State)
	fmt.Fprintf(out, "module:  %s\n", st.Module)

	content, err := render.Text(view.Content())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "content: %s\n", content)

	affs, err := shell.Affordances(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "navigation:")
	for _, aff := range affs {
		marker := " "
		switch {
		case aff.Active:
			marker = "*"
		case aff.Locked:
			marker = "x"
		}
		fmt.Fprintf(out, "  %s %-8s %-16s %s\n", marker, aff.Placement, aff.ID, aff.Module)
	}

	for _, n := range view.Notices() {
		fmt.Fprintf(out, "notice:  %s\n", n)
	}
	return nil
}
