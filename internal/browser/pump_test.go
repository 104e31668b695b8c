package browser

import (
	"testing"

	"github.com/go-rod/rod/lib/proto"
)

func TestIsTab(t *testing.T) {
	mgr := NewManager(Config{})
	p := NewPump(mgr, nil, nil)

	tests := []struct {
		info *proto.TargetTargetInfo
		want bool
	}{
		{nil, false},
		{&proto.TargetTargetInfo{TargetID: "a", Type: "page"}, true},
		{&proto.TargetTargetInfo{TargetID: "b", Type: "service_worker"}, false},
		{&proto.TargetTargetInfo{TargetID: "c", Type: "iframe"}, false},
	}
	for _, tt := range tests {
		if got := p.isTab(tt.info); got != tt.want {
			t.Errorf("isTab(%+v) = %v, want %v", tt.info, got, tt.want)
		}
	}
}

func TestNoBrowser(t *testing.T) {
	mgr := NewManager(Config{})
	if mgr.ControlTarget() != "" {
		t.Fatal("control target before Start")
	}
	if _, err := NewTabs(mgr).URL(t.Context(), "x"); err == nil {
		t.Fatal("URL without browser: expected error")
	}
	if _, err := NewJar(mgr).Get(t.Context(), "https://a.example/", "XDEBUG_SESSION"); err == nil {
		t.Fatal("Get without browser: expected error")
	}
	if err := NewPump(mgr, nil, nil).Run(t.Context()); err == nil {
		t.Fatal("Run without browser: expected error")
	}
}

func TestCloseBeforeStart(t *testing.T) {
	mgr := NewManager(Config{})
	if err := mgr.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Start(t.Context()); err == nil {
		t.Fatal("Start after Close: expected error")
	}
}
