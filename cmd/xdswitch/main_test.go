package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazyhaar/xdswitch/control"
	"github.com/hazyhaar/xdswitch/indicator"
	"github.com/hazyhaar/xdswitch/internal/browser"
	"github.com/hazyhaar/xdswitch/internal/config"
	"github.com/hazyhaar/xdswitch/mode"
	"github.com/hazyhaar/xdswitch/prefstore"
)

func TestBuildSinks(t *testing.T) {
	cfg := config.Default()
	cfg.Indicator.Sinks = []config.SinkConfig{
		{Type: "stdout"},
		{Type: "term"},
		{Type: "webhook", URL: "http://127.0.0.1:1/paint", Retries: 1},
	}
	sinks := buildSinks(cfg, io.Discard, slog.Default())
	if len(sinks) != 3 {
		t.Fatalf("sinks: got %d", len(sinks))
	}
	if _, ok := sinks[0].(*indicator.Stdout); !ok {
		t.Errorf("sinks[0]: %T", sinks[0])
	}
	if _, ok := sinks[1].(*indicator.Term); !ok {
		t.Errorf("sinks[1]: %T", sinks[1])
	}
	if _, ok := sinks[2].(*indicator.Webhook); !ok {
		t.Errorf("sinks[2]: %T", sinks[2])
	}
}

func TestOpenStore_Ephemeral(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Ephemeral = true
	store, db, err := openStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if db != nil {
		t.Fatal("ephemeral store returned a database")
	}
	if _, ok := store.(*prefstore.Memory); !ok {
		t.Fatalf("store: %T", store)
	}
}

func TestOpenStore_SQLite(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Path = t.TempDir() + "/sub/prefs.db"
	store, db, err := openStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := store.Set(ctx, "https://app.test", mode.Profile); err != nil {
		t.Fatal(err)
	}
	if m, _ := store.Get(ctx, "https://app.test"); m != mode.Profile {
		t.Fatalf("got %s", m)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM mode_changes`).Scan(&n); err != nil {
		t.Fatalf("journal schema missing: %v", err)
	}
}

func TestAPIClient(t *testing.T) {
	var gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		switch r.URL.Path {
		case "/api/tabs/t1/mode":
			json.NewEncoder(w).Encode(control.ApplyResult{TabID: "t1", Site: "https://app.test", Mode: mode.Debug, Applied: true})
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"control: tab not found"}`))
		}
	}))
	defer srv.Close()

	c := newAPIClient(srv.URL+"/", "tok")
	var res control.ApplyResult
	if _, err := c.do(context.Background(), "POST", "/api/tabs/t1/mode", map[string]string{"mode": "debug"}, &res); err != nil {
		t.Fatal(err)
	}
	if !res.Applied || res.Mode != mode.Debug {
		t.Fatalf("result: %+v", res)
	}
	if gotAuth != "Bearer tok" || !strings.Contains(gotBody, `"debug"`) {
		t.Fatalf("request: auth=%q body=%q", gotAuth, gotBody)
	}

	_, err := c.do(context.Background(), "POST", "/api/tabs/zz/mode", map[string]string{"mode": "debug"}, nil)
	if err == nil || !strings.Contains(err.Error(), "tab not found") || !strings.Contains(err.Error(), "404") {
		t.Fatalf("error: %v", err)
	}
}

func TestApplyCmd_RejectsUnknownMode(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"apply", "t1", "trace", "--api", "http://127.0.0.1:1"})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestOpenAndActivateCmds(t *testing.T) {
	var paths []string
	var openBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/api/tabs":
			b, _ := io.ReadAll(r.Body)
			openBody = string(b)
			json.NewEncoder(w).Encode(control.TabView{TabInfo: browser.TabInfo{ID: "t7", URL: "https://app.test/"}, Site: "https://app.test", Mode: mode.Off})
		case "/api/tabs/t7/activate":
			json.NewEncoder(w).Encode(control.TabView{TabInfo: browser.TabInfo{ID: "t7", URL: "https://app.test/"}, Site: "https://app.test", Mode: mode.Debug})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"open", "https://app.test/", "--api", srv.URL})
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(openBody, `"url":"https://app.test/"`) || !strings.Contains(out.String(), "t7") {
		t.Fatalf("open: body=%q out=%q", openBody, out.String())
	}

	out.Reset()
	rootCmd.SetArgs([]string{"activate", "t7", "--api", srv.URL})
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "https://app.test/") {
		t.Fatalf("activate: %q", out.String())
	}
	want := []string{"POST /api/tabs", "POST /api/tabs/t7/activate"}
	if len(paths) != 2 || paths[0] != want[0] || paths[1] != want[1] {
		t.Fatalf("requests: %v", paths)
	}
}

func TestHashTokenCmd(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"hash-token", "s3cret"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "$2") {
		t.Fatalf("not a bcrypt hash: %q", out.String())
	}
}
