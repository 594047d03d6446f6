package main

import (
	"fmt"

	"github.com/MrEthical07/goConsole/audit"
	"github.com/MrEthical07/goConsole/session"
	"github.com/spf13/cobra"
)

func newAuditCmd(a *app) *cobra.Command {
	var action string

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Dump the persisted audit log as JSON lines",
		Long: `Reads the audit list from persisted state. Only the redis backend
outlives a single process, so point --redis or storage.redis_addr at it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			storage, cleanup, err := a.openStorage()
			if err != nil {
				return err
			}
			defer cleanup()

			keys := session.NewKeys(a.cfg.Session.KeyPrefix)
			entries, err := audit.ReadLog(cmd.Context(), storage, keys.AuditLog)
			if err != nil {
				return fmt.Errorf("read audit log: %w", err)
			}

			sink := audit.NewJSONWriterSink(cmd.OutOrStdout())
			for _, e := range entries {
				if action != "" && string(e.Action) != action {
					continue
				}
				sink.Emit(cmd.Context(), e)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&action, "action", "", "only print entries with this action, e.g. LOGOUT")
	return cmd
}
