package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/harun/neuron/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// lineReader is the part of *readline.Instance the chat loop needs
type lineReader interface {
	Readline() (string, error)
}

// executeFunc runs one user turn
type executeFunc func(ctx context.Context, input string) (string, error)

func newChatCmd(opts *rootOptions) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session with the agent",
		Long: `Start an interactive session. The transcript persists across turns.
Type 'exit' or press Ctrl-D to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")

	return cmd
}

func runChat(cmd *cobra.Command, opts *rootOptions, metricsAddr string) error {
	s, err := newSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	zl := s.log.Zerolog()

	if metricsAddr == "" {
		metricsAddr = s.cfg.Metrics.Addr
	}
	if metricsAddr != "" {
		srv := serveMetrics(metricsAddr, s.metrics, zl)
		defer srv.Close()
	}

	rl, err := readline.New(s.cfg.Name + "> ")
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Chatting with %s (%s). Type 'exit' to quit.\n", s.cfg.Name, s.cfg.ResolvedModel())

	return chatLoop(ctx, rl, out, func(ctx context.Context, input string) (string, error) {
		return s.agent.Execute(ctx, input)
	})
}

// chatLoop reads lines until exit, EOF or interrupt. Turn errors are printed
// and the loop continues unless ctx is done.
func chatLoop(ctx context.Context, in lineReader, out io.Writer, execute executeFunc) error {
	for {
		line, err := in.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		output, err := execute(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, output)
	}
}

func metricsMux(m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}

func serveMetrics(addr string, m *metrics.Metrics, log zerolog.Logger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           metricsMux(m),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()

	log.Info().Str("addr", addr).Msg("serving metrics")
	return srv
}
