package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veritaslabs/cogito/domain/service"
	"github.com/veritaslabs/cogito/infrastructure/registry"
	"github.com/veritaslabs/cogito/infrastructure/storage/memory"
)

// servicesOptions holds options for the services command.
type servicesOptions struct {
	configPath string
	jsonOutput bool
}

// newServicesCmd creates the services command.
func (a *App) newServicesCmd() *cobra.Command {
	opts := &servicesOptions{}

	cmd := &cobra.Command{
		Use:   "services",
		Short: "Show the service providers the run command would register",
		Long: `Show the service registry as the run command would compose it from the
given configuration: every provider with its kind, priority, capability
tags, and circuit breaker state.

Examples:
  # Show the default in-memory profile
  cogito services

  # Show the profile a config file produces
  cogito services -c config.yaml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.showServices(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// showServices composes the registry without touching external backends
// and prints its registrations.
func (a *App) showServices(opts *servicesOptions) error {
	cfg, err := a.loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	reg := registry.New()
	reg.SetBreakerDefaults(cfg.BreakerDefaults())
	reg.RegisterGlobal(service.TypeCommunication, newConsoleService(a.stdout), service.PriorityNormal,
		[]string{service.CapSendMessage, service.CapFetchMessages})
	reg.RegisterGlobal(service.TypeMemory, memory.NewMemoryService(), service.PriorityNormal,
		[]string{service.CapMemorize, service.CapRecall, service.CapForget})

	info := reg.Info()

	if opts.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Fprintf(a.stdout, "Registered providers: %d\n", len(info))
	for _, p := range info {
		fmt.Fprintf(a.stdout, "  %s (%s)\n", p.Name, p.Kind)
		fmt.Fprintf(a.stdout, "    Priority: %s, group %d, strategy %s\n", p.Priority, p.Group, p.Strategy)
		fmt.Fprintf(a.stdout, "    Capabilities: %s\n", strings.Join(p.Capabilities, ", "))
		fmt.Fprintf(a.stdout, "    Breaker: %s\n", p.BreakerState)
	}
	return nil
}
