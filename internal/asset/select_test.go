package asset

import (
	"testing"

	"github.com/shelfterm/shelfterm/internal/platform"
	"github.com/shelfterm/shelfterm/internal/release"
)

func linuxPair(t *testing.T) platform.Pair {
	t.Helper()
	p, err := platform.Current()
	_ = p
	_ = err
	return platform.Pair{OS: platform.Linux, Arch: platform.X86_64}
}

func TestSelectExactMatch(t *testing.T) {
	p := linuxPair(t)
	assets := []release.Asset{
		{Name: "widget-darwin-aarch64.tar.gz"},
		{Name: "widget-linux-x86_64.tar.gz"},
		{Name: "widget-windows-x86_64.zip"},
	}
	got, err := Select(p, assets)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got.Name != "widget-linux-x86_64.tar.gz" {
		t.Errorf("Select() = %q, want widget-linux-x86_64.tar.gz", got.Name)
	}
}

func TestSelectOSOnlyFallback(t *testing.T) {
	p := linuxPair(t)
	assets := []release.Asset{
		{Name: "widget-linux-generic.tar.gz"},
	}
	got, err := Select(p, assets)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got.Name != "widget-linux-generic.tar.gz" {
		t.Errorf("unexpected selection: %q", got.Name)
	}
}

func TestSelectTieBreaksToFirstListed(t *testing.T) {
	p := linuxPair(t)
	assets := []release.Asset{
		{Name: "widget-linux-x86_64-a.tar.gz"},
		{Name: "widget-linux-x86_64-b.tar.gz"},
	}
	got, err := Select(p, assets)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got.Name != "widget-linux-x86_64-a.tar.gz" {
		t.Errorf("tie should prefer first listed, got %q", got.Name)
	}
}

func TestSelectNoMatch(t *testing.T) {
	p := linuxPair(t)
	assets := []release.Asset{
		{Name: "widget-windows-x86_64.zip"},
		{Name: "widget-darwin-aarch64.tar.gz"},
	}
	if _, err := Select(p, assets); err == nil {
		t.Fatal("expected ErrNoAssetForPlatform")
	}
}

// P3: asset selection is deterministic.
func TestSelectDeterministic(t *testing.T) {
	p := linuxPair(t)
	assets := []release.Asset{
		{Name: "widget-linux-x86_64.tar.gz"},
		{Name: "widget-darwin-aarch64.tar.gz"},
	}
	first, err := Select(p, assets)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	for i := 0; i < 10; i++ {
		got, err := Select(p, assets)
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if got != first {
			t.Errorf("Select not deterministic on iteration %d", i)
		}
	}
}
