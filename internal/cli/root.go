package cli

import (
	"github.com/spf13/cobra"
)

const version = "0.1.0"

// rootOptions carries the persistent flags shared by every subcommand
type rootOptions struct {
	cfgFile  string
	logLevel string
}

// NewRootCmd builds the command tree. Each call returns independent flag state.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "neuron",
		Short: "Neuron - minimal agent orchestration",
		Long: `Neuron runs a tool-using agent loop against OpenAI or Anthropic models.
An agent is described by a YAML file: persona, goal, model, built-in tools
and the secret names handed to those tools.`,
		Version:      version,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "agent file (default is ./neuron.yaml or $HOME/.neuron/neuron.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error, disabled)")

	cmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)

	cmd.AddCommand(
		newRunCmd(opts),
		newChatCmd(opts),
		newInitCmd(opts),
		newVersionCmd(),
	)

	return cmd
}

// Execute runs the CLI. This is called by main.main().
func Execute() error {
	return NewRootCmd().Execute()
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}
