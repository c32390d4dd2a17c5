package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vinicius-lino-figueiredo/kvdb"
)

// NewFindCommand creates the find command.
func NewFindCommand(opts *RootOptions) *cobra.Command {
	var one bool
	cmd := &cobra.Command{
		Use:   "find <collection> [matcher]",
		Short: "Print the documents matching a partial document",
		Long: `Print the documents of a collection, in insertion order, that contain
every field of the matcher. Without matcher every document is printed.

Examples:
  kvdb find users
  kvdb find users '{name: ana}' --one`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			match, err := parseDocument(argAt(args, 1))
			if err != nil {
				return err
			}
			return opts.withSession(cmd, func(ctx context.Context, s *session) error {
				c, err := s.collection(ctx, args[0])
				if err != nil {
					return err
				}
				if one {
					h, err := c.FindOne(ctx, target(match))
					if err != nil {
						return err
					}
					return s.printer.Document(h)
				}
				rs, err := c.FindMany(ctx, target(match))
				if err != nil {
					return err
				}
				return s.printer.Documents(rs)
			})
		},
	}
	cmd.Flags().BoolVar(&one, "one", false, "print only the first match")
	return cmd
}

// NewInsertCommand creates the insert command.
func NewInsertCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "insert <collection> <document>...",
		Short: "Insert documents and print them with their identifiers",
		Long: `Insert documents into a collection. Identifiers are allocated by the
collection, so documents must not carry an _id field. Documents rejected or
evicted by the retention limits are not printed.

Examples:
  kvdb insert users '{name: ana}' '{name: bob}'`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs := make([]any, 0, len(args)-1)
			for _, arg := range args[1:] {
				doc, err := parseDocument(arg)
				if err != nil {
					return err
				}
				docs = append(docs, doc)
			}
			return opts.withSession(cmd, func(ctx context.Context, s *session) error {
				c, err := s.collection(ctx, args[0])
				if err != nil {
					return err
				}
				rs, err := c.InsertMany(ctx, docs...)
				if err != nil {
					return err
				}
				return s.printer.Documents(rs)
			})
		},
	}
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <collection> <matcher> <patch>",
		Short: "Merge a patch into the documents matching a partial document",
		Long: `Deep-merge a patch into every document matching the matcher and print
the updated documents. Arrays are replaced and _id is never changed.

Examples:
  kvdb update users '{name: ana}' '{address: {city: Recife}}'`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			match, err := parseDocument(args[1])
			if err != nil {
				return err
			}
			patch, err := parseDocument(args[2])
			if err != nil {
				return err
			}
			if patch == nil {
				return fmt.Errorf("empty patch")
			}
			return opts.withSession(cmd, func(ctx context.Context, s *session) error {
				c, err := s.collection(ctx, args[0])
				if err != nil {
					return err
				}
				found, err := c.FindMany(ctx, target(match))
				if err != nil {
					return err
				}
				patches := make([]any, 0, found.Len())
				for _, id := range found.IDs() {
					p := make(kvdb.M, len(patch)+1)
					for k, v := range patch {
						p[k] = v
					}
					p["_id"] = id
					patches = append(patches, p)
				}
				if len(patches) == 0 {
					return s.printer.Documents(nil)
				}
				rs, err := c.UpdateMany(ctx, patches)
				if err != nil {
					return err
				}
				return s.printer.Documents(rs)
			})
		},
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection> [matcher]",
		Short: "Delete the documents matching a partial document",
		Long: `Delete the documents matching the matcher and print them. Without
matcher every document is deleted.

Examples:
  kvdb delete sessions '{expired: true}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			match, err := parseDocument(argAt(args, 1))
			if err != nil {
				return err
			}
			return opts.withSession(cmd, func(ctx context.Context, s *session) error {
				c, err := s.collection(ctx, args[0])
				if err != nil {
					return err
				}
				rs, err := c.DeleteMany(ctx, target(match))
				if err != nil {
					return err
				}
				return s.printer.Documents(rs)
			})
		},
	}
}

// NewSettingsCommand creates the settings command.
func NewSettingsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "settings [collection]",
		Short: "Print the persisted metadata of the database or of one collection",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(ctx context.Context, s *session) error {
				if len(args) == 0 {
					st, err := s.db.Settings(ctx)
					if err != nil {
						return err
					}
					return s.printer.Value(st)
				}
				c, err := s.collection(ctx, args[0])
				if err != nil {
					return err
				}
				meta, err := c.Settings(ctx)
				if err != nil {
					return err
				}
				return s.printer.Value(meta)
			})
		},
	}
}

// NewDropCommand creates the drop command.
func NewDropCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drop [collection]",
		Short: "Delete a collection, or every collection named in the config",
		Long: `Delete the documents and the metadata of a collection. Without argument
every collection listed in the config file is dropped, followed by the
database record.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(ctx context.Context, s *session) error {
				names := args
				if len(names) == 0 {
					for name := range s.opts.Config.Collections {
						names = append(names, name)
					}
				}
				for _, name := range names {
					if _, err := s.collection(ctx, name); err != nil {
						return err
					}
				}
				if len(args) == 0 {
					return s.db.Drop(ctx)
				}
				c, err := s.collection(ctx, args[0])
				if err != nil {
					return err
				}
				return c.Drop(ctx)
			})
		},
	}
}

func argAt(args []string, n int) string {
	if n < len(args) {
		return args[n]
	}
	return ""
}

// target converts a parsed matcher into a collection target. A nil map
// matches every document.
func target(match map[string]any) any {
	if match == nil {
		return nil
	}
	return match
}
