package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/synapse/internal/graph"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#D11575"))

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("Synapse"))
			fmt.Fprintf(out, "  Version: %s\n", version)
			fmt.Fprintf(out, "  Commit:  %s\n", commit)
			fmt.Fprintf(out, "  Built:   %s\n", date)
			fmt.Fprintf(out, "  Schema:  %s\n", graph.SchemaVersion)
			return nil
		},
	}
}
