package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the registry and attendance tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			printf(cmd.OutOrStdout(), "migrated %s database\n", s.db.Dialect)
			return nil
		},
	}
}

func newEnrollCmd(e *env) *cobra.Command {
	var name, major string
	cmd := &cobra.Command{
		Use:   "enroll CODE",
		Short: "Enroll a subject under a 6-character code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			sub, err := s.registry.Enroll(cmd.Context(), name, major, args[0])
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "enrolled %s (%s, %s)\n", sub.Code, sub.Name, sub.Major)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "subject name")
	cmd.Flags().StringVar(&major, "major", "", "subject major")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("major")
	return cmd
}

func newSubjectsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "subjects",
		Short: "List enrolled subjects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			subjects, err := s.registry.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tNAME\tMAJOR")
			for _, sub := range subjects {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", sub.Code, sub.Name, sub.Major)
			}
			return tw.Flush()
		},
	}
}
