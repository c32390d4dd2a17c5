// Package cli implements the kvdb command line tool.
package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vinicius-lino-figueiredo/kvdb"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Storage    string
	Path       string
	Database   string
	Group      string
	Format     string
	Verbose    bool

	// Config is loaded from ConfigPath, with explicit flags taking
	// precedence.
	Config Config
}

// NewRootCommand creates the root command of the kvdb CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "kvdb",
		Short: "Inspect and edit kvdb collections",
		Long: `Inspect and edit the collections persisted by kvdb.

Documents and matchers are given as YAML or JSON mappings, for example
'{name: ana}' or '{"name": "ana"}'. Collection options (limits, groups and
expiration) are read from the file given with --config.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Storage, "storage", StorageMemory, fmt.Sprintf("storage kind %v", ValidStorages))
	cmd.PersistentFlags().StringVar(&opts.Path, "path", "", "storage file or directory")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "default", "database name")
	cmd.PersistentFlags().StringVar(&opts.Group, "group", "", "database group")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", FormatJSON, fmt.Sprintf("output format %v", ValidFormats))
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log debug messages to stderr")

	cmd.AddCommand(NewFindCommand(opts))
	cmd.AddCommand(NewInsertCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewSettingsCommand(opts))
	cmd.AddCommand(NewDropCommand(opts))

	return cmd
}

// resolve loads the config file and merges it with the flags.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	if o.ConfigPath != "" {
		cfg, err := LoadConfig(o.ConfigPath)
		if err != nil {
			return err
		}
		o.Config = cfg
	}
	flags := cmd.Flags()
	merge := func(flag string, dst *string, src string) {
		if !flags.Changed(flag) && src != "" {
			*dst = src
		}
	}
	merge("storage", &o.Storage, o.Config.Storage)
	merge("path", &o.Path, o.Config.Path)
	merge("db", &o.Database, o.Config.Database)
	merge("group", &o.Group, o.Config.Group)

	if !isValidStorage(o.Storage) {
		return fmt.Errorf("invalid storage %q: must be one of %v", o.Storage, ValidStorages)
	}
	if !slices.Contains(ValidFormats, o.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", o.Format, ValidFormats)
	}
	return nil
}

// session is one open database and the storage behind it.
type session struct {
	kv      kvdb.KVDB
	db      kvdb.Database
	storage kvdb.Storage
	opts    *RootOptions
	printer *Printer
}

func (o *RootOptions) open(ctx context.Context, cmd *cobra.Command) (*session, error) {
	level := zerolog.WarnLevel
	if o.Verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: true}).
		Level(level).With().Timestamp().Logger()

	st, err := openStorage(o.Storage, o.Path)
	if err != nil {
		return nil, err
	}
	kv := kvdb.New(kvdb.WithLogger(logger))
	db, err := kv.Database(ctx, o.Database,
		kvdb.WithBackends(kvdb.NewBackend(kvdb.WithStorage(st), kvdb.WithBackendLogger(logger))),
		kvdb.WithDatabaseGroup(o.Group),
	)
	if err != nil {
		return nil, errors.Join(err, kv.Close(), st.Close())
	}
	logger.Debug().Str("storage", o.Storage).Str("path", o.Path).Str("database", db.FullName()).Msg("database open")
	return &session{
		kv:      kv,
		db:      db,
		storage: st,
		opts:    o,
		printer: &Printer{Format: o.Format, Writer: cmd.OutOrStdout()},
	}, nil
}

// collection opens name with the options of its config entry.
func (s *session) collection(ctx context.Context, name string) (kvdb.Collection, error) {
	return s.db.Collection(ctx, name, s.opts.Config.Collections[name].Options()...)
}

func (s *session) Close() error {
	return errors.Join(s.kv.Close(), s.storage.Close())
}

// withSession runs fn with an open session, closing it afterwards.
func (o *RootOptions) withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := o.open(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.Close())
	}()
	return fn(ctx, s)
}
