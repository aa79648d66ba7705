package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/contactstore/internal/backend"
	"github.com/roach88/contactstore/internal/contacts"
)

// RemoveOptions holds flags for the remove command.
type RemoveOptions struct {
	*RootOptions
	Flush bool
}

type removeResult struct {
	UID     string `json:"uid"`
	Removed bool   `json:"removed"`
}

type removeList []removeResult

func (l removeList) String() string {
	lines := make([]string, len(l))
	for i, r := range l {
		if r.Removed {
			lines[i] = "removed " + r.UID
		} else {
			lines[i] = r.UID + ": nothing stored"
		}
	}
	return strings.Join(lines, "\n")
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RemoveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "remove <uid>...",
		Short: "Remove contact records",
		Long: `Remove records by uid.

Removals only change the in-memory index. With --flush (the default) the index
is written once, after the last removal; with --flush=false it is not written
at all and the stored index still names the removed records.

Example:
  contactstore remove --db contacts.db u1 u2 u3`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(s *session) error {
				results := make(removeList, 0, len(args))
				for i, uid := range args {
					last := i == len(args)-1
					removed, err := s.store.Remove(uid, opts.Flush && last).Wait(s.ctx)
					if err != nil {
						return s.out.Failure("remove", err)
					}
					results = append(results, removeResult{UID: uid, Removed: removed})
				}
				return s.out.Success(results)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Flush, "flush", true, "write the index after the last removal")

	return cmd
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <uid>",
		Short:         "Show the record with a uid",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(s *session) error {
				rec, err := s.store.Get(args[0]).Wait(s.ctx)
				if err != nil {
					return s.out.Failure("get", err)
				}
				return s.out.Success(recordView(rec))
			})
		},
	}
}

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "find <number>",
		Short: "Show the record owning a phone number",
		Long: `Look a record up by phone number. Full numbers are matched before
short numbers.

Example:
  contactstore find --db contacts.db +15551234567`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(s *session) error {
				rec, err := s.store.GetByPhone(args[0]).Wait(s.ctx)
				if err != nil {
					return s.out.Failure("find", err)
				}
				return s.out.Success(recordView(rec))
			})
		},
	}
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "count",
		Short:         "Print the number of stored records",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(s *session) error {
				n, err := s.store.Length().Wait(s.ctx)
				if err != nil {
					return s.out.Failure("count", err)
				}
				return s.out.Success(n)
			})
		},
	}
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "clear",
		Short:         "Remove every record and reset the index",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(s *session) error {
				if _, err := s.store.Clear().Wait(s.ctx); err != nil {
					return s.out.Failure("clear", err)
				}
				return s.out.Success("cleared")
			})
		},
	}
}

// NewFlushCommand creates the flush command.
func NewFlushCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Write the index if it has unsaved changes",
		Long: `Load the index and write it back if it has unsaved changes.

A freshly loaded index is clean, so this only writes when loading itself
changed something (for example, creating the index on an empty backend).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(s *session) error {
				if _, err := s.store.Initialize().Wait(s.ctx); err != nil {
					return s.out.Failure("flush", err)
				}
				dirty, err := s.store.Dirty().Wait(s.ctx)
				if err != nil {
					return s.out.Failure("flush", err)
				}
				if _, err := s.store.Flush().Wait(s.ctx); err != nil {
					return s.out.Failure("flush", err)
				}
				s.out.VerboseLog("index dirty before flush: %t", dirty)
				return s.out.Success("flushed")
			})
		},
	}
}

// indexView renders the index sorted by uid, then by phone.
type indexView contacts.Index

func (v indexView) String() string {
	var b strings.Builder
	writeSection(&b, "uid", v.ByUID)
	writeSection(&b, "tel", v.ByTel)
	writeSection(&b, "short", v.ByShortTel)
	return strings.TrimRight(b.String(), "\n")
}

func writeSection(b *strings.Builder, label string, m map[string]backend.Key) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s\t%s\t%d\n", label, k, m[k])
	}
}

// NewIndexCommand creates the index command.
func NewIndexCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "index",
		Short:         "Print the lookup index",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(s *session) error {
				ix, err := s.store.Snapshot().Wait(s.ctx)
				if err != nil {
					return s.out.Failure("index", err)
				}
				return s.out.Success(indexView(ix))
			})
		},
	}
}
