package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/legaltts/legaltts/internal/synth"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the narrator voices",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		fmt.Println(voiceTable(cfg.Voice, term.IsTerminal(int(os.Stdout.Fd()))))
		return nil
	},
}

// voiceTable lists the voices and marks the selected one. Borders are
// drawn only on terminals.
func voiceTable(selected string, styled bool) string {
	t := table.New().Headers("", "VOICE", "DESCRIPTION")
	for _, v := range synth.Voices {
		mark := ""
		if v.Name == selected {
			mark = "*"
		}
		t.Row(mark, v.Name, v.Description)
	}

	if !styled {
		return t.Border(lipgloss.HiddenBorder()).BorderHeader(false).String()
	}
	return t.
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))).
		StyleFunc(func(row, _ int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true)
			}
			if row >= 0 && row < len(synth.Voices) && synth.Voices[row].Name == selected {
				return s.Foreground(lipgloss.Color("#04B575"))
			}
			return s
		}).
		String()
}
