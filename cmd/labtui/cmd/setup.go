package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactively write the config file",
	Long: `Prompt for the API endpoint and token and write them to the
config file. Existing values are offered as defaults.`,
	RunE: runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	url := cfg.API.URL
	token := cfg.API.Token

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API base URL").
				Value(&url).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("URL is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("API token").
				Description("Stored in the config file with mode 0600. LABTUI_TOKEN overrides it.").
				EchoMode(huh.EchoModePassword).
				Value(&token),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("setup aborted: %w", err)
	}

	cfg.API.URL = strings.TrimSpace(url)
	cfg.API.Token = strings.TrimSpace(token)

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("Configuration written to %s\n", cfg.ConfigFilePath())
	return nil
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
