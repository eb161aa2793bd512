package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rakta/hookload/internal/config"
	hhttp "github.com/rakta/hookload/internal/http"
	"github.com/rakta/hookload/internal/loadtest"
	"github.com/rakta/hookload/internal/output"
	"github.com/rakta/hookload/internal/payload"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the webhook volume test",
		Long: `Log in once, then send --requests webhook calls split evenly at random
between the Garmin and Apple endpoints, with at most --concurrency in flight.

Settings are resolved from defaults, then --config, then HOOKLOAD_*
environment variables, then flags.

  hookload run
  hookload run --base-url https://staging.example.com -n 50000 -c 200
  hookload run --config load.yaml --output report.json --strict`,
		Args: cobra.NoArgs,
		RunE: runLoadTest,
	}

	addConnectionFlags(cmd)
	cmd.Flags().IntP("requests", "n", config.DefaultRequests, "Total webhook requests to send")
	cmd.Flags().IntP("concurrency", "C", config.DefaultConcurrency, "Maximum requests in flight")
	cmd.Flags().Float64("rate", 0, "Pace request starts to this many per second (0 = unpaced)")
	cmd.Flags().Int("progress-every", config.DefaultProgressEvery, "Print progress after this many queued requests")
	cmd.Flags().Uint64("seed", 0, "Payload generator seed (0 = time based)")
	cmd.Flags().Int("pool-size", 0, "Connection pool size (default concurrency+10)")
	cmd.Flags().StringP("output", "o", "", "Write a JSON or YAML report to this file")
	cmd.Flags().Bool("strict", false, "Exit non-zero when the verdict is FAIL")
	cmd.Flags().Bool("validate", false, "Check generated payloads against their schemas before sending")
	cmd.Flags().BoolP("verbose", "v", false, "Enable verbose output")
	cmd.Flags().BoolP("quiet", "q", false, "Only print errors, the summary and the verdict")
	cmd.Flags().Bool("no-color", false, "Disable colored output")
	return cmd
}

// addConnectionFlags registers the flags shared by every command that talks
// to the backend.
func addConnectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "Configuration file (YAML or JSON)")
	cmd.Flags().String("base-url", config.DefaultBaseURL, "Backend base URL")
	cmd.Flags().String("email", config.DefaultEmail, "Login email")
	cmd.Flags().String("password", config.DefaultPassword, "Login password")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Per-request timeout")
}

func runLoadTest(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	quiet, _ := cmd.Flags().GetBool("quiet")
	noColor, _ := cmd.Flags().GetBool("no-color")
	outputPath, _ := cmd.Flags().GetString("output")
	strict, _ := cmd.Flags().GetBool("strict")
	preflight, _ := cmd.Flags().GetBool("validate")

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	console := output.NewConsole(cmd.OutOrStdout(), output.ConsoleOptions{
		NoColor: noColor,
		Verbose: verbose,
		Quiet:   quiet,
	})

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	gen := payload.NewGenerator(seed, time.Now)

	if preflight {
		if err := validatePayloads(gen); err != nil {
			return fmt.Errorf("payload self-check failed: %w", err)
		}
	}

	client := newClient(cfg)
	defer client.CloseIdleConnections()

	runner := loadtest.NewRunner(loadtest.Options{
		Credentials:   hhttp.Credentials{Email: cfg.Credentials.Email, Password: cfg.Credentials.Password},
		Requests:      cfg.Requests,
		Concurrency:   cfg.Concurrency,
		ProgressEvery: progressEvery(cfg.ProgressEvery),
		Rate:          cfg.Rate,
	}, client, gen, console)

	console.Header(cfg.BaseURL, cfg.Requests, cfg.Concurrency)
	console.Verbosef("seed: %d", seed)
	console.Verbosef("timeout: %s, pool size: %d", cfg.Timeout, cfg.ConnectionPoolSize())
	if cfg.Rate > 0 {
		console.Verbosef("pacing: %.2f req/s", cfg.Rate)
	}
	if preflight {
		console.Verbosef("payload schemas: ok")
	}
	console.Authenticating()

	result, err := runner.Run(context.Background())
	if err != nil {
		console.AuthFailed(err)
		return errReported
	}

	console.Summary(result)

	if outputPath != "" {
		report := output.NewReport(cfg.BaseURL, cfg.Requests, cfg.Concurrency, result)
		if err := report.WriteFile(outputPath); err != nil {
			return err
		}
		console.ReportWritten(outputPath)
	}

	if strict && result.Verdict == loadtest.VerdictFail {
		return errReported
	}
	return nil
}

// resolveConfig layers defaults, the config file, the environment and any
// flags the user set explicitly, then validates the result.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	applyFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Configuration validation errors:")
		fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
		return nil, errReported
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("base-url") {
		cfg.BaseURL, _ = flags.GetString("base-url")
	}
	if flags.Changed("email") {
		cfg.Credentials.Email, _ = flags.GetString("email")
	}
	if flags.Changed("password") {
		cfg.Credentials.Password, _ = flags.GetString("password")
	}
	if flags.Changed("timeout") {
		timeout, _ := flags.GetDuration("timeout")
		cfg.Timeout = config.Duration(timeout)
	}

	// The remaining flags only exist on the run command.
	if flags.Lookup("requests") == nil {
		return
	}
	if flags.Changed("requests") {
		cfg.Requests, _ = flags.GetInt("requests")
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("rate") {
		cfg.Rate, _ = flags.GetFloat64("rate")
	}
	if flags.Changed("progress-every") {
		cfg.ProgressEvery, _ = flags.GetInt("progress-every")
	}
	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("pool-size") {
		cfg.PoolSize, _ = flags.GetInt("pool-size")
	}
}

func newClient(cfg *config.Config) *hhttp.Client {
	return hhttp.NewClient(
		hhttp.WithBaseURL(cfg.BaseURL),
		hhttp.WithTimeout(cfg.Timeout.Std()),
		hhttp.WithPoolSize(cfg.ConnectionPoolSize()),
		hhttp.WithHeader("User-Agent", "hookload/"+version),
	)
}

// progressEvery maps the configured interval onto runner semantics, where
// zero means the default and a negative value disables progress.
func progressEvery(n int) int {
	if n == 0 {
		return -1
	}
	return n
}

// validatePayloads generates one payload per format and checks it against
// the embedded schema.
func validatePayloads(gen *payload.Generator) error {
	for _, f := range payload.Formats() {
		if err := payload.ValidatePayload(gen.Generate(f)); err != nil {
			return fmt.Errorf("%s: %w", f, err)
		}
	}
	return nil
}
