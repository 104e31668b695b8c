// CLAUDE:SUMMARY Registers the xdswitch MCP tools: apply_mode, status, reconcile, tabs, open_tab, activate_tab.
package control

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/xdswitch/kit"
)

// RegisterMCP registers the control tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	ep := NewEndpoints(s)

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "xdswitch_apply_mode",
		Description: "Switch the Xdebug mode of the site shown in a browser tab. Sets or clears the XDEBUG_SESSION / XDEBUG_PROFILE cookies, remembers the choice for the site, and reloads the tab.",
		InputSchema: inputSchema(map[string]any{
			"tab_id": map[string]any{"type": "string", "description": "Tab ID as returned by xdswitch_tabs"},
			"mode":   map[string]any{"type": "string", "enum": []any{"off", "debug", "profile"}, "description": "Mode to apply"},
		}, []string{"tab_id", "mode"}),
	}, ep.Apply, kit.DecodeArgs[applyRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "xdswitch_status",
		Description: "Report the remembered and the cookie-observed Xdebug mode for the site of a URL. Read-only.",
		InputSchema: inputSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "Any page URL of the site"},
		}, []string{"url"}),
	}, ep.Status, kit.DecodeArgs[statusRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "xdswitch_reconcile",
		Description: "Re-read the marker cookies for the site shown in a tab and correct the remembered mode if they disagree.",
		InputSchema: inputSchema(map[string]any{
			"tab_id": map[string]any{"type": "string", "description": "Tab ID as returned by xdswitch_tabs"},
		}, []string{"tab_id"}),
	}, ep.Reconcile, kit.DecodeArgs[reconcileRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "xdswitch_tabs",
		Description: "List open browser tabs with their site and remembered Xdebug mode.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}, ep.Tabs, kit.DecodeArgs[tabsRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "xdswitch_open_tab",
		Description: "Open an http(s) URL in a new browser tab. Returns the new tab with its site and remembered mode.",
		InputSchema: inputSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "Page URL to open"},
		}, []string{"url"}),
	}, ep.Open, kit.DecodeArgs[openRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "xdswitch_activate_tab",
		Description: "Bring a browser tab to the front. The indicator is refreshed for the tab's site.",
		InputSchema: inputSchema(map[string]any{
			"tab_id": map[string]any{"type": "string", "description": "Tab ID as returned by xdswitch_tabs"},
		}, []string{"tab_id"}),
	}, ep.Activate, kit.DecodeArgs[activateRequest]())
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}
