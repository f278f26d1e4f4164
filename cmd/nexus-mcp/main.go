// Command nexus-mcp exposes every Nexus registry command as an MCP tool
// over stdio, so an MCP-compatible client (Claude Desktop, Cursor, an agent
// SDK) can drive Nexus the same way nexusctl or the daemon would.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/nexusdaemon/nexus/internal/common/logger"
	"github.com/nexusdaemon/nexus/internal/element"
	"github.com/nexusdaemon/nexus/internal/healing"
	"github.com/nexusdaemon/nexus/internal/providers"
	"github.com/nexusdaemon/nexus/internal/registry"
	"github.com/nexusdaemon/nexus/internal/toolschema"
)

func main() {
	log, err := logger.NewLogger(logger.LoggingConfig{Level: "info", Format: "console", OutputPath: "stderr"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ax := providers.NewStubAccessibility()
	screen := providers.NewStubScreen()
	browser := providers.NewStubBrowser()
	healer := healing.New(ax, screen)
	clicker := &element.Clicker{AX: ax, Screen: screen, Healer: healer}
	reg := registry.BuildRegistry(registry.Deps{AX: ax, Browser: browser, Screen: screen, Clicker: clicker})

	mcpServer := toolschema.BuildMCPServer(reg, log)

	log.Info("starting nexus-mcp over stdio", zap.Int("tool_count", len(reg.List())))
	if err := server.ServeStdio(mcpServer); err != nil {
		log.Error("mcp stdio server stopped", zap.Error(err))
		os.Exit(1)
	}
}
