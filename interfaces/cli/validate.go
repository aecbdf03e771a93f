package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veritaslabs/cogito/infrastructure/config"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	configPath string
	strict     bool
}

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Validate a runtime configuration file for correctness.

This command checks:
  - File format (YAML)
  - Workflow bounds (max_ponder_rounds must be positive)
  - Storage backend selection and required paths
  - Circuit breaker settings per service class
  - Environment variable references (in strict mode)

Examples:
  # Validate a configuration file
  cogito validate -c config.yaml

  # Strict validation (fail on missing env vars)
  cogito validate -c config.yaml --strict`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.validateConfig(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (required)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Enable strict validation (fail on missing env vars)")

	_ = cmd.MarkFlagRequired("config")

	return cmd
}

// validateConfig validates the configuration file.
func (a *App) validateConfig(opts *validateOptions) error {
	loaderOpts := []config.LoaderOption{
		config.WithValidation(true),
	}
	if opts.strict {
		loaderOpts = append(loaderOpts, config.WithStrictEnv(true))
	}

	loader := config.NewLoaderWithOptions(loaderOpts...)
	cfg, err := loader.LoadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(a.stdout, "Configuration is valid\n")
	fmt.Fprintf(a.stdout, "  Storage backend: %s\n", cfg.Storage.Backend)
	if cfg.Storage.Path != "" {
		fmt.Fprintf(a.stdout, "  Storage path: %s\n", cfg.Storage.Path)
	}
	if cfg.Storage.Redis.Addr != "" {
		fmt.Fprintf(a.stdout, "  Redis memory: %s (db %d)\n", cfg.Storage.Redis.Addr, cfg.Storage.Redis.DB)
	}
	fmt.Fprintf(a.stdout, "  Max ponder rounds: %d\n", cfg.Workflow.MaxPonderRounds)
	fmt.Fprintf(a.stdout, "  Tool concurrency: %d\n", cfg.Tools.MaxConcurrent)

	if len(cfg.Breakers) > 0 {
		fmt.Fprintf(a.stdout, "  Circuit breakers:\n")
		for class, settings := range cfg.Breakers {
			fmt.Fprintf(a.stdout, "    - %s: %d failures to open, %.1fs recovery\n",
				class, settings.FailureThreshold, settings.RecoveryTimeoutSeconds)
		}
	}

	return nil
}
