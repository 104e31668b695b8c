package control

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/hazyhaar/xdswitch/cookies"
	"github.com/hazyhaar/xdswitch/dbopen"
	"github.com/hazyhaar/xdswitch/indicator"
	"github.com/hazyhaar/xdswitch/internal/browser"
	"github.com/hazyhaar/xdswitch/journal"
	"github.com/hazyhaar/xdswitch/mode"
	"github.com/hazyhaar/xdswitch/modewriter"
	"github.com/hazyhaar/xdswitch/prefstore"
	"github.com/hazyhaar/xdswitch/reconcile"

	_ "modernc.org/sqlite"
)

const (
	shopURL    = "https://shop.example/cart"
	shopSite   = "https://shop.example"
	shopCookie = shopSite + "/"
)

type fakeTabs struct {
	mu      sync.Mutex
	urls    map[string]string
	reloads []string
}

func (f *fakeTabs) URL(_ context.Context, tabID string) (string, error) {
	u, ok := f.urls[tabID]
	if !ok {
		return "", fmt.Errorf("no target %s", tabID)
	}
	return u, nil
}

func (f *fakeTabs) List(_ context.Context) ([]browser.TabInfo, error) {
	var out []browser.TabInfo
	for _, id := range []string{"t1", "t2", "t3"} {
		if u, ok := f.urls[id]; ok {
			out = append(out, browser.TabInfo{ID: id, URL: u})
		}
	}
	return out, nil
}

func (f *fakeTabs) Open(_ context.Context, pageURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("t%d", len(f.urls)+1)
	f.urls[id] = pageURL
	return id, nil
}

type fakeActivator struct {
	activated []string
}

func (a *fakeActivator) Activate(_ context.Context, tabID string) error {
	a.activated = append(a.activated, tabID)
	return nil
}

type failingSetStore struct {
	prefstore.Store
	err error
}

func (s failingSetStore) Set(context.Context, string, mode.Mode) error { return s.err }

func (f *fakeTabs) Reload(_ context.Context, tabID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads = append(f.reloads, tabID)
	return nil
}

type fixture struct {
	svc   *Service
	tabs  *fakeTabs
	act   *fakeActivator
	jar   *cookies.MemJar
	store *prefstore.Memory
	sink  *indicator.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbopen.OpenMemory(t)
	if _, err := db.Exec(journal.Schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	j := journal.New(db, nil)

	f := &fixture{
		tabs: &fakeTabs{urls: map[string]string{
			"t1": shopURL,
			"t2": "chrome://settings",
			"t3": "https://blog.example/post/1",
		}},
		jar:   cookies.NewMemJar(),
		store: prefstore.NewMemory(),
		sink:  &indicator.Recorder{},
		act:   &fakeActivator{},
	}
	epochs := reconcile.NewEpochs()
	oracle := cookies.NewOracle(f.jar)
	f.svc = &Service{
		Tabs:       f.tabs,
		Activator:  f.act,
		Writer:     modewriter.New(f.jar, f.store, f.sink, f.tabs, modewriter.WithEpochs(epochs), modewriter.WithRecorder(j)),
		Reconciler: reconcile.New(f.store, oracle, reconcile.WithEpochs(epochs), reconcile.WithRecorder(j)),
		Detector:   oracle,
		Store:      f.store,
		Journal:    j,
		Sink:       f.sink,
	}
	return f
}

func TestApply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Apply(ctx, "t1", "debug")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Applied || res.Site != shopSite || res.Mode != mode.Debug {
		t.Fatalf("result: %+v", res)
	}
	if v, ok := f.jar.Value(shopCookie, mode.DebugCookie); !ok || v != "1" {
		t.Fatalf("debug cookie: %q %v", v, ok)
	}
	if m, _ := f.store.Get(ctx, shopSite); m != mode.Debug {
		t.Fatalf("stored: got %s", m)
	}
	if len(f.tabs.reloads) != 1 || f.tabs.reloads[0] != "t1" {
		t.Fatalf("reloads: %v", f.tabs.reloads)
	}
}

func TestApply_Ineligible(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Apply(context.Background(), "t2", "profile")
	if err != nil {
		t.Fatal(err)
	}
	if res.Applied || res.Reason == "" {
		t.Fatalf("result: %+v", res)
	}
	if f.jar.Mutations() != 0 || f.store.Sets() != 0 || len(f.tabs.reloads) != 0 {
		t.Fatal("ineligible page caused side effects")
	}
}

func TestApply_StepFailureStillApplied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.jar.Fail = map[string]error{mode.ProfileCookie: errors.New("devtools gone")}

	res, err := f.svc.Apply(ctx, "t1", "debug")
	if err != nil {
		t.Fatalf("best-effort failure surfaced as error: %v", err)
	}
	if !res.Applied || len(res.Warnings) != 1 {
		t.Fatalf("result: %+v", res)
	}
	if !strings.Contains(res.Warnings[0], mode.ProfileCookie) {
		t.Fatalf("warning: %q", res.Warnings[0])
	}
	if v, ok := f.jar.Value(shopCookie, mode.DebugCookie); !ok || v != "1" {
		t.Fatalf("debug cookie: %q %v", v, ok)
	}
	if m, _ := f.store.Get(ctx, shopSite); m != mode.Debug {
		t.Fatalf("stored: got %s", m)
	}
	if len(f.tabs.reloads) != 1 || f.tabs.reloads[0] != "t1" {
		t.Fatalf("reloads: %v", f.tabs.reloads)
	}
}

func TestApply_BadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Apply(ctx, "t1", "trace"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("unknown mode: got %v", err)
	}
	if _, err := f.svc.Apply(ctx, "", "debug"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("missing tab: got %v", err)
	}
	if _, err := f.svc.Apply(ctx, "t9", "debug"); !errors.Is(err, ErrTab) {
		t.Fatalf("unknown tab: got %v", err)
	}
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.Set(ctx, shopSite, mode.Debug)
	f.jar.Put(shopCookie, mode.ProfileCookie, "1")

	st, err := f.svc.Status(ctx, shopURL)
	if err != nil {
		t.Fatal(err)
	}
	if st.Stored != mode.Debug || st.Observed != mode.Profile || st.InSync {
		t.Fatalf("status: %+v", st)
	}
	// Status never writes.
	if m, _ := f.store.Get(ctx, shopSite); m != mode.Debug {
		t.Fatalf("stored changed to %s", m)
	}

	st, err = f.svc.Status(ctx, "file:///tmp/x.html")
	if err != nil {
		t.Fatal(err)
	}
	if st.Eligible || st.Site != "" {
		t.Fatalf("non-http status: %+v", st)
	}

	if _, err := f.svc.Status(ctx, ""); !errors.Is(err, ErrInvalid) {
		t.Fatalf("empty url: got %v", err)
	}
}

func TestReconcile_CorrectsAndPaints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.jar.Put(shopCookie, mode.DebugCookie, "1")

	res, err := f.svc.Reconcile(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Corrected || res.Mode != mode.Debug {
		t.Fatalf("result: %+v", res)
	}
	if m, _ := f.store.Get(ctx, shopSite); m != mode.Debug {
		t.Fatalf("stored: got %s", m)
	}
	if last, ok := f.sink.Last("t1"); !ok || last != mode.Debug {
		t.Fatalf("painted: %s %v", last, ok)
	}
}

func TestReconcile_LookupFailure(t *testing.T) {
	f := newFixture(t)
	f.jar.Fail = map[string]error{mode.ProfileCookie: errors.New("devtools gone")}

	_, err := f.svc.Reconcile(context.Background(), "t1")
	if !errors.Is(err, cookies.ErrLookup) {
		t.Fatalf("got %v, want ErrLookup", err)
	}
	if last, ok := f.sink.Last("t1"); !ok || last != mode.Off {
		t.Fatalf("painted: %s %v", last, ok)
	}
	if f.store.Sets() != 0 {
		t.Fatal("store mutated on lookup failure")
	}
}

func TestReconcile_PersistFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	f.jar.Put(shopCookie, mode.ProfileCookie, "1")
	f.svc.Reconciler = reconcile.New(failingSetStore{f.store, errors.New("disk full")}, cookies.NewOracle(f.jar))

	res, err := f.svc.Reconcile(context.Background(), "t1")
	if err != nil {
		t.Fatalf("persist failure surfaced as error: %v", err)
	}
	if !res.Corrected || res.Mode != mode.Profile || len(res.Warnings) != 1 {
		t.Fatalf("result: %+v", res)
	}
	if last, ok := f.sink.Last("t1"); !ok || last != mode.Profile {
		t.Fatalf("painted: %s %v", last, ok)
	}
}

func TestReconcile_Superseded(t *testing.T) {
	f := newFixture(t)
	f.svc.Reconciler = reconcilerFunc(func(context.Context, string) (reconcile.Result, error) {
		return reconcile.Result{}, reconcile.ErrSuperseded
	})

	res, err := f.svc.Reconcile(context.Background(), "t1")
	if err != nil || !res.Superseded {
		t.Fatalf("got %+v %v", res, err)
	}
	if _, ok := f.sink.Last("t1"); ok {
		t.Fatal("superseded pass painted")
	}
}

type reconcilerFunc func(context.Context, string) (reconcile.Result, error)

func (f reconcilerFunc) Reconcile(ctx context.Context, site string) (reconcile.Result, error) {
	return f(ctx, site)
}

func TestActivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Set(ctx, shopSite, mode.Debug)

	v, err := f.svc.Activate(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if v.ID != "t1" || v.Site != shopSite || v.Mode != mode.Debug {
		t.Fatalf("view: %+v", v)
	}
	if len(f.act.activated) != 1 || f.act.activated[0] != "t1" {
		t.Fatalf("activated: %v", f.act.activated)
	}

	if _, err := f.svc.Activate(ctx, "t9"); !errors.Is(err, ErrTab) {
		t.Fatalf("unknown tab: got %v", err)
	}
	f.svc.Activator = nil
	if _, err := f.svc.Activate(ctx, "t1"); err == nil {
		t.Fatal("expected error without activator")
	}
}

func TestOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Set(ctx, "https://blog.example", mode.Profile)

	v, err := f.svc.Open(ctx, "https://blog.example/new")
	if err != nil {
		t.Fatal(err)
	}
	if v.ID != "t4" || v.Site != "https://blog.example" || v.Mode != mode.Profile {
		t.Fatalf("view: %+v", v)
	}
	if u, _ := f.tabs.URL(ctx, "t4"); u != "https://blog.example/new" {
		t.Fatalf("opened url: %q", u)
	}

	if _, err := f.svc.Open(ctx, ""); !errors.Is(err, ErrInvalid) {
		t.Fatalf("empty url: got %v", err)
	}
	if _, err := f.svc.Open(ctx, "javascript:alert(1)"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("non-http url: got %v", err)
	}
}

func TestList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Set(ctx, shopSite, mode.Profile)

	tabs, err := f.svc.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tabs) != 3 {
		t.Fatalf("tabs: got %d", len(tabs))
	}
	if tabs[0].Site != shopSite || tabs[0].Mode != mode.Profile {
		t.Fatalf("t1: %+v", tabs[0])
	}
	if tabs[1].Site != "" || tabs[1].Mode != mode.Off {
		t.Fatalf("t2: %+v", tabs[1])
	}
	if tabs[2].Mode != mode.Off {
		t.Fatalf("t3: %+v", tabs[2])
	}
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Apply(ctx, "t1", "profile"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Reconcile(ctx, "t1"); err != nil {
		t.Fatal(err)
	}

	entries, err := f.svc.History(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries: got %d", len(entries))
	}
	kinds := map[string]bool{}
	for _, e := range entries {
		kinds[e.Kind] = true
	}
	if !kinds["apply"] || !kinds["reconcile"] {
		t.Fatalf("kinds: %v", kinds)
	}

	f.svc.Journal = nil
	entries, err = f.svc.History(ctx, 10)
	if err != nil || len(entries) != 0 {
		t.Fatalf("no journal: %v %v", entries, err)
	}
}
