package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/incidentloop/incidentloop/internal/evidence"
	"github.com/incidentloop/incidentloop/internal/harness"
	"github.com/incidentloop/incidentloop/internal/reasoner"
	"github.com/incidentloop/incidentloop/internal/reasoner/provider/anthropic"
	"github.com/incidentloop/incidentloop/internal/reasoner/provider/openai"
)

type runOptions struct {
	iterations int
	provider   string
	model      string
	strategy   string
	verbose    bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run SUBJECT",
		Short: "Run one investigation and render it live",
		Long: `Run a single investigation against the given subject, streaming each
phase to the terminal as it happens.

The reasoner provider is picked automatically: Anthropic when
ANTHROPIC_API_KEY is set, OpenAI when OPENAI_API_KEY is set, otherwise the
built-in demo reasoner with realistic canned responses.

Examples:
  incidentloop run "API returning 502 errors for /api/users, ~25% of requests"
  incidentloop run --iterations 3 --provider openai "database timeouts on checkout"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvestigation(strings.Join(args, " "), opts)
		},
	}
	cmd.Flags().IntVar(&opts.iterations, "iterations", 5, "Maximum number of loop iterations")
	cmd.Flags().StringVar(&opts.provider, "provider", "auto", "Reasoner provider: auto, anthropic, openai, demo")
	cmd.Flags().StringVar(&opts.model, "model", "", "Override the provider's default model")
	cmd.Flags().StringVar(&opts.strategy, "strategy", "table", "Tool selection strategy: table or reasoner")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log harness internals to stderr")
	return cmd
}

func runInvestigation(subject string, opts *runOptions) error {
	client, err := resolveClient(opts)
	if err != nil {
		return err
	}

	tools, err := evidence.NewDemoRegistry(200 * time.Millisecond)
	if err != nil {
		return err
	}

	log := zap.NewNop()
	if opts.verbose {
		if log, err = zap.NewDevelopment(); err != nil {
			return err
		}
		defer log.Sync()
	}

	var selection harness.SelectionPolicy = harness.DefaultTablePolicy()
	if opts.strategy == "reasoner" {
		selection = harness.ReasonerPolicy{Fallback: harness.DefaultTablePolicy()}
	}

	orch, err := harness.New(harness.Config{
		Reasoner:  reasoner.NewAdapter(client, log),
		Tools:     tools,
		Selection: selection,
		Summarize: evidence.Summarize,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	printBanner(client.Provider(), subject)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := newRenderer(os.Stdout, harness.DefaultThresholds())
	sub := orch.Subscribe()
	renderDone := make(chan struct{})
	go func() {
		defer close(renderDone)
		for ev := range sub.Ch {
			r.render(ev)
		}
	}()

	rec, err := orch.Run(ctx, subject, opts.iterations)
	<-renderDone
	if err != nil {
		return err
	}

	r.printSummary(rec)
	return nil
}

// resolveClient picks a provider client. "auto" prefers whichever API key is
// present in the environment and falls back to the demo reasoner.
func resolveClient(opts *runOptions) (reasoner.Client, error) {
	provider := opts.provider
	if provider == "auto" {
		switch {
		case os.Getenv("ANTHROPIC_API_KEY") != "":
			provider = "anthropic"
		case os.Getenv("OPENAI_API_KEY") != "":
			provider = "openai"
		default:
			provider = "demo"
		}
	}

	switch provider {
	case "anthropic":
		return anthropic.NewClient("", opts.model)
	case "openai":
		return openai.NewClient("", opts.model)
	case "demo":
		return reasoner.DemoClient{}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want auto, anthropic, openai or demo)", opts.provider)
	}
}

func printBanner(provider, subject string) {
	fmt.Println()
	fmt.Println(styleTitle.Render("  incidentloop — confidence-gated investigation"))
	fmt.Println(rule(70, "═"))

	switch provider {
	case "anthropic":
		fmt.Println(styleSuccess.Render("  ✓ reasoner: Claude (Anthropic)"))
	case "openai":
		fmt.Println(styleSuccess.Render("  ✓ reasoner: GPT-4 (OpenAI)"))
	default:
		fmt.Println(styleWarning.Render("  ⚠ no API key found — using the built-in demo reasoner"))
		fmt.Println(styleMuted.Render("    set ANTHROPIC_API_KEY or OPENAI_API_KEY for a live provider"))
	}

	fmt.Println()
	fmt.Println(styleBold.Render("  subject:"))
	for _, line := range wrap(subject, 64) {
		fmt.Printf("     %s\n", line)
	}
}
