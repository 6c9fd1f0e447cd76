package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/term"

	"library-lending/config"
	"library-lending/library"
	"library-lending/logger"
)

// app carries what every command needs once configuration is loaded.
type app struct {
	v       *viper.Viper
	cfgFile string
	in      io.Reader

	cfg *config.Config
	log *zap.Logger
	lib *library.Library
}

func main() {
	if err := newRootCmd(os.Stdin).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader) *cobra.Command {
	a := &app{v: viper.New(), in: in}

	root := &cobra.Command{
		Use:               "library",
		Short:             "Library lending ledger",
		Long:              `Keeps the book catalog, the registered readers and the full lending history. Run without a subcommand for the interactive menu.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.teardown()
		},
		RunE: a.runMenu,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default ./library.yaml)")
	flags.String("backend", "", "storage backend: file or sqlite")
	flags.String("dir", "", "directory holding the books, users and loans files")
	flags.String("db", "", "SQLite database path")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	_ = a.v.BindPFlag("storage.backend", flags.Lookup("backend"))
	_ = a.v.BindPFlag("storage.dir", flags.Lookup("dir"))
	_ = a.v.BindPFlag("storage.sqlite_path", flags.Lookup("db"))
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))

	root.AddCommand(
		a.booksCmd(),
		a.usersCmd(),
		a.loansCmd(),
		a.historyCmd(),
		a.borrowCmd(),
		a.returnCmd(),
		a.migrateCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.NewLogger(cfg.Log, "lending")

	store, err := openStore(cfg.Storage, cfg.Storage.Backend)
	if err != nil {
		return err
	}
	lib, err := library.New(store, library.WithLogger(a.log))
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("load library: %w", err)
	}
	a.lib = lib
	a.log.Debug("library opened", zap.String("backend", cfg.Storage.Backend))
	return nil
}

func (a *app) teardown() error {
	if a.log != nil {
		defer func() { _ = a.log.Sync() }()
	}
	if a.lib == nil {
		return nil
	}
	return a.lib.Close()
}

// openStore opens the backend named by backend using the locations in s.
func openStore(s config.Storage, backend string) (library.Store, error) {
	switch backend {
	case config.BackendFile:
		return library.NewFileStore(library.FilePaths{
			Books: s.BooksPath(),
			Users: s.UsersPath(),
			Loans: s.LoansPath(),
		})
	case config.BackendSQLite:
		return library.NewDatabase(s.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

func (a *app) runMenu(cmd *cobra.Command, _ []string) error {
	c := newConsole(a.lib, a.in, cmd.OutOrStdout(), isTerminal(a.in))
	c.run()
	return nil
}

// isTerminal reports whether r is an interactive terminal. Prompts and
// pauses are skipped when input is piped in.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
