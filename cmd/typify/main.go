// Command typify polishes text through a locally hosted llama-server
// model: grammar correction, summarization, and tone rewriting, backed
// by per-operation response caches.
//
// Usage:
//
//	typify grammar "teh text to fix"
//	echo "a long document" | typify summarize
//	typify tone --to formal "hey, can you fix this asap"
//	typify health
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/typify/typify/internal/app"
	"github.com/typify/typify/internal/config"
	"github.com/typify/typify/internal/llm"
	"github.com/typify/typify/internal/processor"
)

func main() {
	// Pick up a local .env before anything reads the environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "warning: could not load .env:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// cli carries flag values and the objects built during setup.
type cli struct {
	cfgPath   string
	serverURL string
	logLevel  string
	timeout   time.Duration
	jsonOut   bool

	cfg *config.Config
	log *zap.Logger
	app *app.App
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "typify",
		Short: "Polish text with a locally hosted language model",
		Long: `typify sends text to a local llama-server instance and returns it
polished: grammar fixed, summarized, or rewritten in a formal tone.
Results are cached per operation, so repeating an input is instant.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.app != nil {
				c.app.Shutdown()
			}
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgPath, "config", "", "path to a YAML config file")
	pf.StringVar(&c.serverURL, "server-url", "", "llama-server base URL (overrides config)")
	pf.StringVar(&c.logLevel, "log-level", "", "log verbosity: debug, info, warn or error")
	pf.DurationVar(&c.timeout, "timeout", 0, "completion request timeout (overrides config)")
	pf.BoolVar(&c.jsonOut, "json", false, "emit the full result as JSON")

	root.AddCommand(
		newGrammarCmd(c),
		newSummarizeCmd(c),
		newToneCmd(c),
		newHealthCmd(c),
	)
	return root
}

// setup layers the configuration (defaults, file, environment, flags),
// builds the logger and assembles the application.
func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
	}
	flags := cmd.Flags()
	if flags.Changed("server-url") {
		cfg.Server.URL = c.serverURL
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = c.logLevel
	}
	if flags.Changed("timeout") {
		cfg.Server.RequestTimeout = c.timeout
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := buildLogger(cfg.Logging.Level)
	if err != nil {
		return err
	}

	c.cfg = cfg
	c.log = log
	c.app = app.New(cfg, app.Options{Logger: log})
	return nil
}

// buildLogger makes a console logger on stderr so stdout stays clean
// for the processed text.
func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}

// inputText joins the args, or reads stdin when none are given.
func inputText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	raw, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(raw), "\r\n"), nil
}

// emit prints a processing result. Successes go to stdout; failures
// become a non-zero exit with the message on stderr. With --json the
// full result is printed either way and the exit code is kept.
func (c *cli) emit(cmd *cobra.Command, r processor.Result) error {
	if c.jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return err
		}
		if !r.Success {
			cmd.SilenceErrors = true
			return errors.New(r.ErrorMessage)
		}
		return nil
	}
	if !r.Success {
		return errors.New(r.ErrorMessage)
	}
	fmt.Fprintln(cmd.OutOrStdout(), r.ProcessedText)
	return nil
}

// process runs the blocking model load and then one operation.
func (c *cli) process(cmd *cobra.Command, args []string, run func(ctx context.Context, text string) processor.Result) error {
	text, err := inputText(cmd, args)
	if err != nil {
		return err
	}
	if err := c.app.Load(cmd.Context()); err != nil {
		return err
	}
	return c.emit(cmd, run(cmd.Context(), text))
}

func newGrammarCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "grammar [text]",
		Short: "Fix typos, grammar, and punctuation",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.process(cmd, args, func(ctx context.Context, text string) processor.Result {
				return c.app.Grammar().Fix(ctx, text)
			})
		},
	}
}

func newSummarizeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize [text]",
		Short: "Condense text to its main points",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.process(cmd, args, func(ctx context.Context, text string) processor.Result {
				return c.app.Summarizer().Summarize(ctx, text)
			})
		},
	}
}

func newToneCmd(c *cli) *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "tone [text]",
		Short: "Rewrite text in a different tone",
		Long:  "Rewrite text toward a target tone. Only the formal tone is supported today.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.process(cmd, args, func(ctx context.Context, text string) processor.Result {
				return c.app.Tone().Change(ctx, text, processor.Tone(to))
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", string(processor.ToneFormal), "target tone")
	return cmd
}

// healthReport is the health subcommand's JSON shape.
type healthReport struct {
	ServerURL string `json:"server_url"`
	Ready     bool   `json:"ready"`
	Error     string `json:"error,omitempty"`
}

func newHealthCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check whether the model server is ready",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Single probe; the generation commands own the patient
			// retry loop.
			probe := llm.NewClient(llm.ClientOptions{
				URL:           c.cfg.Server.URL,
				HealthTimeout: c.cfg.Server.HealthTimeout,
				LoadRetries:   1,
				Logger:        c.log.Named("health"),
			})
			err := probe.Load(cmd.Context())

			report := healthReport{ServerURL: c.cfg.Server.URL, Ready: err == nil}
			if err != nil {
				report.Error = err.Error()
			}

			if c.jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(report); encErr != nil {
					return encErr
				}
				if err != nil {
					cmd.SilenceErrors = true
				}
				return err
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "model server ready at %s\n", c.cfg.Server.URL)
			return nil
		},
	}
}
