// Command nexusctl is the one-shot CLI: each registry command becomes a
// subcommand (`nexusctl click-element --name Save`), executed against fresh stub
// providers and printed as JSON. Mirrors original_source/nexus's argparse
// CLI entrypoint, one subcommand per tool.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nexusdaemon/nexus/internal/common/config"
	"github.com/nexusdaemon/nexus/internal/common/logger"
	"github.com/nexusdaemon/nexus/internal/element"
	"github.com/nexusdaemon/nexus/internal/format"
	"github.com/nexusdaemon/nexus/internal/healing"
	"github.com/nexusdaemon/nexus/internal/providers"
	"github.com/nexusdaemon/nexus/internal/registry"
	"github.com/nexusdaemon/nexus/internal/watchdog"
)

func buildRegistry() *registry.Registry {
	ax := providers.NewStubAccessibility()
	screen := providers.NewStubScreen()
	browser := providers.NewStubBrowser()
	healer := healing.New(ax, screen)
	clicker := &element.Clicker{AX: ax, Screen: screen, Healer: healer}
	return registry.BuildRegistry(registry.Deps{AX: ax, Browser: browser, Screen: screen, Clicker: clicker})
}

// outputFormat is set by the persistent --format flag shared by every
// generated subcommand.
var outputFormat string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nexusctl",
		Short: "One-shot CLI for Nexus desktop-automation commands",
	}
	root.PersistentFlags().StringVar(&outputFormat, "format", "json", "output format: json, compact, minimal")

	reg := buildRegistry()
	for _, cmd := range reg.List() {
		root.AddCommand(newSubcommand(reg, cmd))
	}
	return root
}

func newSubcommand(reg *registry.Registry, cmd registry.Command) *cobra.Command {
	sub := &cobra.Command{
		Use:   cmd.Name,
		Short: cmd.Description,
		RunE: func(c *cobra.Command, args []string) error {
			kwargs := collectKwargs(c, cmd)
			result, err := reg.Execute(cmd.Name, kwargs)
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				os.Exit(1)
			}
			printResult(result)
			return nil
		},
	}

	for _, p := range cmd.Params {
		registerFlag(sub, p)
	}
	return sub
}

func registerFlag(sub *cobra.Command, p registry.Param) {
	switch p.Type {
	case "integer":
		def, _ := p.Default.(int)
		sub.Flags().Int(p.Name, def, p.Description)
	case "number":
		def, _ := p.Default.(float64)
		sub.Flags().Float64(p.Name, def, p.Description)
	case "boolean":
		def, _ := p.Default.(bool)
		sub.Flags().Bool(p.Name, def, p.Description)
	default:
		def, _ := p.Default.(string)
		sub.Flags().String(p.Name, def, p.Description)
	}
	if p.Required {
		_ = sub.MarkFlagRequired(p.Name)
	}
}

func collectKwargs(c *cobra.Command, cmd registry.Command) map[string]any {
	kwargs := make(map[string]any, len(cmd.Params))
	for _, p := range cmd.Params {
		if !c.Flags().Changed(p.Name) && !p.Required {
			continue
		}
		switch p.Type {
		case "integer":
			v, _ := c.Flags().GetInt(p.Name)
			kwargs[p.Name] = v
		case "number":
			v, _ := c.Flags().GetFloat64(p.Name)
			kwargs[p.Name] = v
		case "boolean":
			v, _ := c.Flags().GetBool(p.Name)
			kwargs[p.Name] = v
		default:
			v, _ := c.Flags().GetString(p.Name)
			kwargs[p.Name] = v
		}
	}
	return kwargs
}

func printResult(result map[string]any) {
	switch outputFormat {
	case "compact":
		fmt.Println(format.FormatCompact(result))
	case "minimal":
		fmt.Println(format.FormatMinimal(result))
	default:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, "error encoding result:", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
	}
}

func main() {
	logger.SetDefault(logger.Default())

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopWatchdog := watchdog.Start(ctx, cfg.Watchdog.Timeout())
	defer stopWatchdog()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
