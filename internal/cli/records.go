package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/contactstore/internal/backend"
	"github.com/roach88/contactstore/internal/contact"
)

// recordView renders a record as indented text, or as the record itself in JSON.
type recordView contact.Record

func (r recordView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "uid: %s", r.UID)
	if len(r.Name) > 0 {
		fmt.Fprintf(&b, "\nname: %s", strings.Join(r.Name, ", "))
	}
	for _, tel := range r.Tel {
		fmt.Fprintf(&b, "\ntel: %s", tel.Value)
		if len(tel.Type) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(tel.Type, ", "))
		}
	}
	if len(r.ShortTelephone) > 0 {
		fmt.Fprintf(&b, "\nshort: %s", strings.Join(r.ShortTelephone, ", "))
	}
	if len(r.Email) > 0 {
		fmt.Fprintf(&b, "\nemail: %s", strings.Join(r.Email, ", "))
	}
	return b.String()
}

// savedRecord is the result line for one saved record.
type savedRecord struct {
	UID string      `json:"uid"`
	Key backend.Key `json:"key"`
}

func (s savedRecord) String() string {
	return fmt.Sprintf("saved %s (key %d)", s.UID, s.Key)
}

// readRecords decodes the records in file, or stdin when file is "-".
func readRecords(cmd *cobra.Command, file string) ([]contact.Record, error) {
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read input", err)
	}

	records, err := contact.DecodeYAML(data)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to decode input", err)
	}
	return records, nil
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "save <file|->",
		Short: "Save new contact records",
		Long: `Save every record in a YAML or JSON file (or stdin with "-").

Each record needs a uid. Records are saved in file order and the command stops
at the first failure.

Example:
  contactstore save --db contacts.db alice.yaml
  cat people.json | contactstore save --backend bolt --db contacts.bolt -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readRecords(cmd, args[0])
			if err != nil {
				return err
			}
			return withSession(rootOpts, cmd, func(s *session) error {
				saved := make([]savedRecord, 0, len(records))
				for _, r := range records {
					key, err := s.store.Save(r).Wait(s.ctx)
					if err != nil {
						return s.out.Failure("save", err)
					}
					saved = append(saved, savedRecord{UID: r.UID, Key: key})
				}
				return s.out.Success(savedList(saved))
			})
		},
	}
}

type savedList []savedRecord

func (l savedList) String() string {
	lines := make([]string, len(l))
	for i, s := range l {
		lines[i] = s.String()
	}
	return strings.Join(lines, "\n")
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <file|->",
		Short: "Replace stored contact records",
		Long: `Replace stored records with those in a YAML or JSON file (or stdin).

Records are matched by uid; an unknown uid fails with NOT_FOUND.

Example:
  contactstore update --db contacts.db alice.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readRecords(cmd, args[0])
			if err != nil {
				return err
			}
			return withSession(rootOpts, cmd, func(s *session) error {
				for _, r := range records {
					if _, err := s.store.Update(r).Wait(s.ctx); err != nil {
						return s.out.Failure("update", err)
					}
				}
				return s.out.Success(fmt.Sprintf("updated %d records", len(records)))
			})
		},
	}
}

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	AssignUIDs bool
}

// importResult summarises an import.
type importResult struct {
	Imported int64 `json:"imported"`
	Assigned int   `json:"assigned_uids"`
}

func (r importResult) String() string {
	return fmt.Sprintf("imported %d records (%d uids assigned)", r.Imported, r.Assigned)
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Bulk-load contact records",
		Long: `Bulk-load records from a YAML or JSON file (or stdin).

All records are submitted at once and the command waits for every result.
Records without a uid are given a fresh one unless --assign-uids=false.

Example:
  contactstore import --db contacts.db export.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readRecords(cmd, args[0])
			if err != nil {
				return err
			}
			return withSession(rootOpts, cmd, func(s *session) error {
				return importRecords(s, opts, records)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.AssignUIDs, "assign-uids", true, "give records without a uid a new UUID")

	return cmd
}

func importRecords(s *session, opts *ImportOptions, records []contact.Record) error {
	assigned := 0
	if opts.AssignUIDs {
		for i := range records {
			if records[i].UID == "" {
				records[i].UID = uuid.NewString()
				assigned++
			}
		}
	}

	var imported atomic.Int64
	g, ctx := errgroup.WithContext(s.ctx)
	for _, r := range records {
		req := s.store.Save(r)
		uid := r.UID
		g.Go(func() error {
			if _, err := req.Wait(ctx); err != nil {
				return fmt.Errorf("%s: %w", uid, err)
			}
			imported.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return s.out.Failure("import", err)
	}

	s.out.VerboseLog("imported %d records", imported.Load())
	return s.out.Success(importResult{Imported: imported.Load(), Assigned: assigned})
}
