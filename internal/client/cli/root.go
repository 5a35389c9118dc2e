package cli

import (
	"time"

	"github.com/dmitrijs2005/daybook/internal/client/config"
	"github.com/spf13/cobra"
)

type flagValues struct {
	configPath string
	server     string
	dbPath     string
	user       string
	interval   time.Duration
	batch      int
	logLevel   string
}

type state struct {
	flags flagValues
	app   *App
}

// loadConfig applies the layers in order: defaults, file, environment and
// finally the flags the user actually set.
func (s *state) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(s.flags.configPath)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("server") {
		cfg.ServerURL = s.flags.server
	}
	if f.Changed("db") {
		cfg.DBPath = s.flags.dbPath
	}
	if f.Changed("user") {
		cfg.UserID = s.flags.user
	}
	if f.Changed("interval") {
		cfg.SyncInterval = s.flags.interval
	}
	if f.Changed("batch") {
		cfg.PushBatchSize = s.flags.batch
	}
	if f.Changed("log-level") {
		cfg.LogLevel = s.flags.logLevel
	}
	return cfg, nil
}

// NewRootCommand builds the daybook command tree.
func NewRootCommand() *cobra.Command {
	s := &state{}

	root := &cobra.Command{
		Use:   "daybook",
		Short: "Offline-first journal, projects and todos",
		Long: `daybook keeps journal entries, projects and todos in a local database
and synchronizes them with a daybook server when one is configured.

Edits never need the network. Run "daybook sync" or "daybook daemon" to
exchange changes with the server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := s.loadConfig(cmd)
			if err != nil {
				return err
			}
			app, err := NewApp(cmd.Context(), cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			s.app = app
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if s.app == nil {
				return nil
			}
			err := s.app.Close()
			s.app = nil
			return err
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&s.flags.configPath, "config", "c", "", "path to JSON config file")
	pf.StringVar(&s.flags.server, "server", "", "sync server base URL (empty disables sync)")
	pf.StringVar(&s.flags.dbPath, "db", "", "local database file")
	pf.StringVarP(&s.flags.user, "user", "u", "", "user id sent with sync requests")
	pf.DurationVar(&s.flags.interval, "interval", 0, "daemon sync interval")
	pf.IntVar(&s.flags.batch, "batch", 0, "max records per push request")
	pf.StringVar(&s.flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newJournalCommand(s),
		newProjectCommand(s),
		newTodoCommand(s),
		newListCommand(s),
		newShowCommand(s),
		newDeleteCommand(s),
		newPurgeCommand(s),
		newSyncCommand(s),
		newDaemonCommand(s),
		newStatusCommand(s),
	)
	return root
}
