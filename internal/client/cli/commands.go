package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/daybook/internal/client/client"
	"github.com/dmitrijs2005/daybook/internal/client/services"
	"github.com/dmitrijs2005/daybook/internal/models"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

const timeLayout = "2006-01-02 15:04:05"

func newListCommand(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "list <kind>",
		Short: "List live records of a kind (journal, projects, todos)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := s.app.kind(args[0])
			if err != nil {
				return err
			}
			rows, err := k.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintf(out, "no %s\n", k.Name())
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tUPDATED\tSUMMARY")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Status, r.UpdatedAt.Local().Format(timeLayout), r.Summary)
			}
			return tw.Flush()
		},
	}
}

func newShowCommand(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "show <kind> <id>",
		Short: "Print one record as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := s.app.kind(args[0])
			if err != nil {
				return err
			}
			rec, err := k.Show(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
}

func newDeleteCommand(s *state) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "delete <kind> <id>",
		Short: "Delete a record",
		Long: `Delete a record. The deletion is kept as a tombstone and removed on other
devices after the next sync.

With --remote the server tombstones the record right away and the tombstone
is pulled back. This needs the server to be reachable.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := s.app.kind(args[0])
			if err != nil {
				return err
			}
			if remote {
				err = k.DeleteRemote(cmd.Context(), args[1])
			} else {
				err = k.Delete(cmd.Context(), args[1])
			}
			var rejected *client.RejectedError
			if errors.As(err, &rejected) {
				return fmt.Errorf("%w; run sync and retry", err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[1])
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "delete on the server directly")
	return cmd
}

func newPurgeCommand(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "purge <kind> <id>...",
		Short: "Permanently remove synced tombstones from this device",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := s.app.kind(args[0])
			if err != nil {
				return err
			}
			n, err := k.Purge(cmd.Context(), args[1:]...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d\n", n)
			return nil
		},
	}
}

func printResult(out io.Writer, res *services.SyncResult) {
	for _, k := range res.Kinds {
		fmt.Fprintf(out, "%s: pushed %d, conflicts %d, pulled %d (applied %d, kept local %d)\n",
			k.Kind, k.Push.Pushed, len(k.Push.Conflicts), k.Pull.Received, k.Pull.Applied, k.Pull.KeptLocal)
		for _, c := range k.Push.Conflicts {
			fmt.Fprintf(out, "  conflict %s: server copy from %s wins over local %s\n",
				c.ID, c.ServerUpdatedAt.Local().Format(timeLayout), c.LocalUpdatedAt.Local().Format(timeLayout))
		}
	}
}

func newSyncCommand(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle: push local edits, then pull remote changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if s.app.engine == nil {
				return errSyncDisabled
			}
			res, err := s.app.engine.SyncNow(cmd.Context())
			if res != nil {
				printResult(cmd.OutOrStdout(), res)
			}
			if err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}
			return nil
		},
	}
}

func newDaemonCommand(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Sync periodically until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if s.app.engine == nil {
				return errSyncDisabled
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s.app.logger.Info(ctx, "sync daemon started", "interval", s.app.config.SyncInterval.String(), "server", s.app.config.ServerURL)
			err := s.app.engine.Run(ctx)
			s.app.logger.Info(ctx, "sync daemon stopped")
			return err
		},
	}
}

func newStatusCommand(s *state) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show device identity, last sync times and pending edits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			a := s.app

			deviceID, err := a.devices.DeviceID(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "device:  %s\n", deviceID)
			fmt.Fprintf(out, "user:    %s\n", valueOr(a.config.UserID, "(not set)"))
			if a.config.CanSync() {
				server := a.config.ServerURL
				if check {
					if err := a.remote.Ping(ctx); err != nil {
						server += " (unreachable: " + err.Error() + ")"
					} else {
						server += " (ok)"
					}
				}
				fmt.Fprintf(out, "server:  %s\n", server)
			} else {
				fmt.Fprintln(out, "server:  sync disabled")
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tLAST SYNC\tSYNCED\tPENDING\tCONFLICT")
			for _, name := range models.KindNames {
				k := a.kinds[name]
				last, err := k.LastSync(ctx)
				if err != nil {
					return err
				}
				counts, err := k.Counts(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", name, formatTime(last),
					counts[models.StatusSynced], counts[models.StatusPending], counts[models.StatusConflict])
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "check that the server is reachable")
	return cmd
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format(timeLayout)
}
