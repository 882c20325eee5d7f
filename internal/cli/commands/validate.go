package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/chatwrap/pkg/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a chatwrap profile without analyzing anything.

Checks:
  - YAML syntax
  - Timezone name
  - Output format and author count
  - Server limits
  - Webhook URLs and triggers`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := commandContext(cmd)
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Validating %s...\n", configPath)

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(w, "\nConfiguration valid!\n")
	fmt.Fprintf(w, "  Timezone:    %s\n", cfg.Location())
	fmt.Fprintf(w, "  Output:      %s\n", cfg.Output)
	fmt.Fprintf(w, "  Top authors: %d\n", cfg.TopAuthors)
	fmt.Fprintf(w, "  Server:      %s (max upload %d bytes)\n", cfg.Server.Addr, cfg.Server.MaxUploadBytes)
	fmt.Fprintf(w, "  Webhooks:    %d\n", len(cfg.Webhooks))

	if len(cfg.Webhooks) > 0 {
		fmt.Fprintf(w, "\nWebhooks:\n")
		for i, wh := range cfg.Webhooks {
			name := wh.Name
			if name == "" {
				name = wh.URL
			}
			fmt.Fprintf(w, "  %d. [%s] %s\n", i+1, wh.Trigger, name)
		}
	}

	return nil
}
