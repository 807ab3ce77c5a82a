package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/seedbank/pkg/config"
	"github.com/entrhq/seedbank/pkg/render"
	"github.com/entrhq/seedbank/pkg/seed"
	"github.com/entrhq/seedbank/pkg/storeerr"
	"github.com/entrhq/seedbank/pkg/workspace"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "seedbank",
		Short: "Record and review seeds: observations worth coming back to",
		Long: `Seedbank keeps short observations ("seeds") recorded during an
assistant session, each anchored to source locations. Seeds age through
fresh, growing and stale tiers against their TTL and can be archived,
concluded or pruned.

State lives in ` + workspace.DefaultDirName + ` under the working directory, or in
$` + workspace.EnvDir + ` when set.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return storeerr.Invalid("flags", "%v", err)
	})
	root.PersistentFlags().StringVar(&a.dir, "dir", "", "store directory (default $"+workspace.EnvDir+" or ./"+workspace.DefaultDirName+")")
	root.PersistentFlags().StringVarP(&a.format, "format", "o", string(render.FormatText), "output format: text, json or yaml")

	root.AddCommand(
		newWriteCmd(a),
		newGetCmd(a),
		newListCmd(a),
		newDeleteCmd(a),
		newStatusCmd(a, "archive", "Archive a seed", a.archive),
		newStatusCmd(a, "unarchive", "Return an archived seed to active", a.unarchive),
		newConcludeCmd(a),
		newBatchCmd(a, "archive-all", "Archive every active seed", a.archiveAll),
		newBatchCmd(a, "archive-outdated", "Archive every active seed past its TTL", a.archiveOutdated),
		newBatchCmd(a, "delete-archived", "Delete every archived seed", a.deleteArchived),
		newBatchCmd(a, "cleanup", "Delete long-stale archived seeds and leftover temp files", a.cleanup),
		newSettingsCmd(a),
		newSessionStartCmd(a),
	)
	return root
}

func newWriteCmd(a *app) *cobra.Command {
	var (
		title     string
		rationale string
		input     string
		anchors   []string
		force     bool
	)
	cmd := &cobra.Command{
		Use:   "write",
		Short: "Record a new seed",
		Long: `Record a new seed. The draft comes from flags, from a YAML or JSON
file given with --input ("-" reads stdin), or both: flags override the
file's title and rationale and add anchors to its list.

Anchors are written as path[::context start[::context end]].`,
		Example: `  seedbank write --title "Extract retry helper" --anchor pkg/client.go::func retry( --rationale "three copies"
  seedbank write --input draft.yaml`,
		Args: exactIDs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := a.readDraft(input)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("title") {
				d.Title = title
			}
			if cmd.Flags().Changed("rationale") {
				d.Rationale = rationale
			}
			for _, raw := range anchors {
				d.Anchors = append(d.Anchors, parseAnchor(raw))
			}
			s, err := a.store.Write(cmd.Context(), d, seed.WriteOptions{Force: force})
			if err != nil {
				return err
			}
			return a.out.Seed(s)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "one-line title")
	cmd.Flags().StringVar(&rationale, "rationale", "", "why this is worth coming back to")
	cmd.Flags().StringArrayVar(&anchors, "anchor", nil, "source anchor path[::start[::end]] (repeatable)")
	cmd.Flags().StringVar(&input, "input", "", "read the draft from a YAML or JSON file, - for stdin")
	cmd.Flags().BoolVar(&force, "force", false, "store even if an active seed has the same title and anchor")
	return cmd
}

// readDraft decodes a draft file. JSON is accepted as a subset of YAML.
func (a *app) readDraft(input string) (seed.Draft, error) {
	var d seed.Draft
	if input == "" {
		return d, nil
	}
	var (
		b   []byte
		err error
	)
	if input == "-" {
		b, err = io.ReadAll(a.stdin)
	} else {
		b, err = os.ReadFile(input)
	}
	if err != nil {
		return d, storeerr.Invalid("input", "%v", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return d, storeerr.Invalid("input", "empty draft")
		}
		return d, storeerr.Invalid("input", "%v", err)
	}
	return d, nil
}

func parseAnchor(raw string) seed.Anchor {
	parts := strings.SplitN(raw, "::", 3)
	a := seed.Anchor{Path: parts[0]}
	if len(parts) > 1 {
		a.ContextStart = parts[1]
	}
	if len(parts) > 2 {
		a.ContextEnd = parts[2]
	}
	return a
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one seed",
		Args:  exactIDs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.out.Seed(s)
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var filter, session, anchor string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List seeds, newest first",
		Long: `List seeds, newest first.

Filters:
  active    active seeds that are fresh or growing
  outdated  active seeds past their TTL
  archived  archived seeds
  all       everything

Without --filter the filter from settings is used.`,
		Args: exactIDs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := seed.Query{AnchorGlob: anchor}
			if cmd.Flags().Changed("filter") {
				f, err := config.ParseFilter(filter)
				if err != nil {
					return err
				}
				q.Filter = f
			} else {
				settings, err := a.settings.Load()
				if err != nil {
					return err
				}
				q.Filter = settings.Filter
			}
			if session != "" {
				id, err := a.currentSession(session)
				if err != nil {
					return err
				}
				q.SessionID = id
			}
			listing, err := a.store.Query(cmd.Context(), q)
			if err != nil {
				return err
			}
			return a.out.Listing(listing)
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "active, outdated, archived or all")
	cmd.Flags().StringVar(&session, "session", "", `only seeds written in this session ("current" for $`+workspace.EnvSession+`)`)
	cmd.Flags().StringVar(&anchor, "anchor", "", `only seeds with an anchor path matching this glob ("**" spans directories)`)
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a seed permanently",
		Args:  exactIDs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.out.Value("deleted", args[0])
		},
	}
}

type seedOp func(cmd *cobra.Command, id string) (*seed.Seed, error)

func (a *app) archive(cmd *cobra.Command, id string) (*seed.Seed, error) {
	return a.store.Archive(cmd.Context(), id)
}

func (a *app) unarchive(cmd *cobra.Command, id string) (*seed.Seed, error) {
	return a.store.Unarchive(cmd.Context(), id)
}

func newStatusCmd(a *app, use, short string, op seedOp) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  exactIDs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := op(cmd, args[0])
			if err != nil {
				return err
			}
			return a.out.Seed(s)
		},
	}
}

func newConcludeCmd(a *app) *cobra.Command {
	var summary, resultPath string
	cmd := &cobra.Command{
		Use:   "conclude <id>",
		Short: "Attach the outcome of investigating a seed",
		Long:  "Attach the outcome of investigating a seed. Concluding again replaces the previous conclusion.",
		Args:  exactIDs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.store.Conclude(cmd.Context(), args[0], summary, resultPath)
			if err != nil {
				return err
			}
			return a.out.Seed(s)
		},
	}
	cmd.Flags().StringVar(&summary, "summary", "", "what was found")
	cmd.Flags().StringVar(&resultPath, "result-path", "", "where the full result was written")
	return cmd
}

type batchOp func(cmd *cobra.Command) (*seed.BatchResult, error)

func (a *app) archiveAll(cmd *cobra.Command) (*seed.BatchResult, error) {
	return a.store.ArchiveAll(cmd.Context())
}

func (a *app) archiveOutdated(cmd *cobra.Command) (*seed.BatchResult, error) {
	return a.store.ArchiveOutdated(cmd.Context())
}

func (a *app) deleteArchived(cmd *cobra.Command) (*seed.BatchResult, error) {
	return a.store.DeleteArchived(cmd.Context())
}

func (a *app) cleanup(cmd *cobra.Command) (*seed.BatchResult, error) {
	return a.store.Cleanup(cmd.Context())
}

// newBatchCmd wires a bulk operation. On failure the partial result is
// still printed before the error is reported.
func newBatchCmd(a *app, use, short string, op batchOp) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  exactIDs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := op(cmd)
			if err != nil {
				if res != nil && len(res.Applied) > 0 {
					_ = a.out.Batch(use, res)
				}
				return err
			}
			return a.out.Batch(use, res)
		},
	}
}

func newSessionStartCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "session-start",
		Short: "Print a new session id for the shell to export",
		Long: `Print a new session id. In text mode the output is a shell line:

  eval "$(seedbank session-start)"

Seeds written afterwards record the session, and list --session current
shows only them.`,
		Args: exactIDs(0),
		// Replaces the root hook: the session hook never opens the store.
		PersistentPreRunE: func(*cobra.Command, []string) error {
			a.started = true
			format, err := render.ParseFormat(a.format)
			if err != nil {
				return err
			}
			a.out = render.New(a.stdout, format, nil)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := uuid.NewString()
			if a.out.Format() == render.FormatText {
				_, err := fmt.Fprintf(a.stdout, "export %s=%s\n", workspace.EnvSession, id)
				return err
			}
			return a.out.Value("session_id", id)
		},
	}
}
