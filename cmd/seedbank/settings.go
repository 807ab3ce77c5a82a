package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/entrhq/seedbank/pkg/config"
)

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change settings",
		Long: `Show or change settings. Fields: ` + strings.Join(config.Fields, ", ") + `.

Cycling steps through the menu values:
  filter            active, outdated, archived, all
  model             opus, sonnet, haiku
  context_turns     0, 3, 5, 10
  ttl_hours         24, 72, 168
  skip_permissions  false, true`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print every setting",
			Args:  exactIDs(0),
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, err := a.settings.Load()
				if err != nil {
					return err
				}
				return a.out.Settings(s)
			},
		},
		&cobra.Command{
			Use:   "get <field>",
			Short: "Print one setting",
			Args:  exactIDs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := a.settings.Get(args[0])
				if err != nil {
					return err
				}
				return a.out.Value(args[0], v)
			},
		},
		&cobra.Command{
			Use:   "set <field> <value>",
			Short: "Change one setting",
			Args:  exactIDs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.settings.Set(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return a.out.Settings(s)
			},
		},
		&cobra.Command{
			Use:   "cycle <field>",
			Short: "Advance one setting to its next value",
			Args:  exactIDs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.settings.Cycle(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				v, err := s.Get(args[0])
				if err != nil {
					return err
				}
				return a.out.Value(args[0], v)
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Restore the defaults",
			Args:  exactIDs(0),
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, err := a.settings.Reset(cmd.Context())
				if err != nil {
					return err
				}
				return a.out.Settings(s)
			},
		},
	)
	return cmd
}
