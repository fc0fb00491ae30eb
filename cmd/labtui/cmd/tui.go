package cmd

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hackline/labtui/internal/tui"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive machine browser",
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("stdout is not a terminal; use 'labtui machines' for scripted output")
	}

	client, err := newCatalogClient()
	if err != nil {
		return err
	}

	var refresh time.Duration
	if secs := cfg.UI.RefreshIntervalSeconds; secs > 0 {
		refresh = time.Duration(secs) * time.Second
	}

	model := tui.New(client, tui.Options{
		Version:         Version,
		RefreshInterval: refresh,
		Logger:          logger,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
