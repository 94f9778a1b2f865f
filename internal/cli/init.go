package cli

import (
	"fmt"
	"strings"

	"github.com/harun/neuron/internal/config"
	"github.com/harun/neuron/pkg/coretools"
	"github.com/spf13/cobra"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter agent file",
		Long: `Write a starter agent file with default persona, goal and model settings.
The file is written to --config, or ./neuron.yaml when no path is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	return cmd
}

func runInit(cmd *cobra.Command, opts *rootOptions, force bool) error {
	path := opts.cfgFile
	if path == "" {
		path = config.DefaultFileName
	}

	cfg := config.DefaultConfig()
	cfg.Tools = []string{coretools.ClockToolName}

	loader := config.NewLoader(path)
	if err := loader.Save(cfg, force); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Agent file written to: %s\n", path)
	fmt.Fprintf(out, "Set %s, then try: neuron run \"What time is it?\"\n", cfg.ResolvedCredentialKey())
	fmt.Fprintf(out, "Built-in tools: %s\n", strings.Join(coretools.Names(), ", "))

	return nil
}
