package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/harun/neuron/pkg/agent"
	"github.com/spf13/cobra"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var background string

	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run the agent once and print its answer",
		Long: `Run the agent on a single prompt. The agent loops over model calls and
tool invocations until the model stops or the iteration budget runs out,
then the final output is printed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrompt(cmd, opts, strings.Join(args, " "), background)
		},
	}

	cmd.Flags().StringVar(&background, "background", "", "context seeded into the transcript before the prompt")

	return cmd
}

func runPrompt(cmd *cobra.Command, opts *rootOptions, prompt, background string) error {
	s, err := newSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var execOpts []agent.ExecuteOption
	if background != "" {
		execOpts = append(execOpts, agent.WithBackground(background))
	}

	output, err := s.agent.Execute(ctx, prompt, execOpts...)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}
