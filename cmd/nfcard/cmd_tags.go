package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"nfcard/internal/tag"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List supported tag types and their capacities",
	Args:  cobra.NoArgs,
	RunE:  runTags,
}

var tagsHeaderStyle = lipgloss.NewStyle().Bold(true)

func runTags(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, tagsHeaderStyle.Render("NAME      PAGES      CAPACITY"))
	for _, tg := range tag.Known() {
		marker := " "
		if tg.Name == cfg.Reader.Tag {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %-8s %3d-%-5d %5d bytes\n",
			marker, tg.Name, tg.UserPageStart, tg.UserPageLimit-1, tg.Capacity())
	}
	fmt.Fprintln(out, "\n* configured tag type")
	return nil
}
