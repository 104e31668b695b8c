package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/xdswitch/control"
	"github.com/hazyhaar/xdswitch/indicator"
	"github.com/hazyhaar/xdswitch/journal"
	"github.com/hazyhaar/xdswitch/mode"
	"github.com/hazyhaar/xdswitch/shield"
)

// apiClient calls the control API of a running daemon.
type apiClient struct {
	base  string
	token string
	http  *http.Client
}

func newAPIClient(base, token string) *apiClient {
	return &apiClient{
		base:  strings.TrimRight(base, "/"),
		token: token,
		http:  &http.Client{Timeout: 30 * time.Second},
	}
}

// do sends a request and decodes a JSON response into out. Non-2xx
// responses become errors carrying the API's error message.
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("xdswitch: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return raw, fmt.Errorf("xdswitch: %s (HTTP %d)", e.Error, resp.StatusCode)
		}
		return raw, fmt.Errorf("xdswitch: HTTP %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return raw, fmt.Errorf("xdswitch: decode response: %w", err)
		}
	}
	return raw, nil
}

func client() *apiClient { return newAPIClient(apiAddr, apiToken) }

func printRaw(cmd *cobra.Command, raw []byte) {
	cmd.OutOrStdout().Write(bytes.TrimSpace(raw))
	fmt.Fprintln(cmd.OutOrStdout())
}

var applyCmd = &cobra.Command{
	Use:   "apply <tab-id> <off|debug|profile>",
	Short: "Switch the site shown in a tab to a mode and reload it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := mode.Parse(args[1]); err != nil {
			return err
		}
		var res control.ApplyResult
		raw, err := client().do(cmd.Context(), "POST",
			"/api/tabs/"+url.PathEscape(args[0])+"/mode", map[string]string{"mode": args[1]}, &res)
		if err != nil {
			return err
		}
		if jsonOutput {
			printRaw(cmd, raw)
			return nil
		}
		if !res.Applied {
			fmt.Fprintf(cmd.OutOrStdout(), "not applied: %s (%s)\n", res.Reason, res.URL)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", indicator.NewTerm(nil).Render(res.TabID, res.Mode), res.Site)
		printWarnings(cmd, res.Warnings)
		return nil
	},
}

func printWarnings(cmd *cobra.Command, warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", w)
	}
}

var statusCmd = &cobra.Command{
	Use:   "status <url>",
	Short: "Show the stored and the cookie-observed mode for a site",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var st control.StatusResult
		raw, err := client().do(cmd.Context(), "GET", "/api/status?url="+url.QueryEscape(args[0]), nil, &st)
		if err != nil {
			return err
		}
		if jsonOutput {
			printRaw(cmd, raw)
			return nil
		}
		w := cmd.OutOrStdout()
		if !st.Eligible {
			fmt.Fprintf(w, "%s: not an http(s) page\n", st.URL)
			return nil
		}
		fmt.Fprintf(w, "site:     %s\nstored:   %s\nobserved: %s\nin sync:  %v\n", st.Site, st.Stored, st.Observed, st.InSync)
		if st.Error != "" {
			fmt.Fprintf(w, "error:    %s\n", st.Error)
		}
		return nil
	},
}

var tabsCmd = &cobra.Command{
	Use:   "tabs",
	Short: "List open tabs with their site and mode",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var tabs []control.TabView
		raw, err := client().do(cmd.Context(), "GET", "/api/tabs", nil, &tabs)
		if err != nil {
			return err
		}
		if jsonOutput {
			printRaw(cmd, raw)
			return nil
		}
		term := indicator.NewTerm(nil)
		for _, t := range tabs {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", term.Render(t.ID, t.Mode), t.URL)
		}
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <tab-id>",
	Short: "Re-read the marker cookies of a tab's site and fix the stored mode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var res control.ReconcileResult
		raw, err := client().do(cmd.Context(), "POST", "/api/tabs/"+url.PathEscape(args[0])+"/reconcile", nil, &res)
		if err != nil {
			return err
		}
		if jsonOutput {
			printRaw(cmd, raw)
			return nil
		}
		switch {
		case res.Superseded:
			fmt.Fprintf(cmd.OutOrStdout(), "%s: a mode change is in flight, nothing written\n", args[0])
		case res.Corrected:
			fmt.Fprintf(cmd.OutOrStdout(), "%s: corrected %s -> %s\n", res.Site, res.Stored, res.Mode)
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "%s: in sync (%s)\n", res.Site, res.Mode)
		}
		printWarnings(cmd, res.Warnings)
		return nil
	},
}

func printTab(cmd *cobra.Command, raw []byte, v control.TabView) {
	if jsonOutput {
		printRaw(cmd, raw)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", indicator.NewTerm(nil).Render(v.ID, v.Mode), v.URL)
}

var activateCmd = &cobra.Command{
	Use:   "activate <tab-id>",
	Short: "Bring a tab to the front and refresh its indicator",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var v control.TabView
		raw, err := client().do(cmd.Context(), "POST", "/api/tabs/"+url.PathEscape(args[0])+"/activate", nil, &v)
		if err != nil {
			return err
		}
		printTab(cmd, raw, v)
		return nil
	},
}

var openCmd = &cobra.Command{
	Use:   "open <url>",
	Short: "Open a page in a new tab",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var v control.TabView
		raw, err := client().do(cmd.Context(), "POST", "/api/tabs", map[string]string{"url": args[0]}, &v)
		if err != nil {
			return err
		}
		printTab(cmd, raw, v)
		return nil
	},
}

var journalLimit int

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show recent mode changes and reconcile passes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var entries []journal.Entry
		raw, err := client().do(cmd.Context(), "GET", fmt.Sprintf("/api/journal?limit=%d", journalLimit), nil, &entries)
		if err != nil {
			return err
		}
		if jsonOutput {
			printRaw(cmd, raw)
			return nil
		}
		for _, e := range entries {
			line := fmt.Sprintf("%s  %-9s  %-7s  %s", e.At.Local().Format(time.DateTime), e.Kind, e.Mode, e.Site)
			if e.Corrected {
				line += "  (corrected from " + e.Stored + ")"
			}
			if e.Error != "" {
				line += "  error: " + e.Error
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

var hashTokenCmd = &cobra.Command{
	Use:   "hash-token <token>",
	Short: "Print the bcrypt hash to put in http.token_hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := shield.HashToken(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), h)
		return nil
	},
}

func init() {
	journalCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "number of entries")
}
