package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()
	if cfg.Users != 100 || cfg.Port != 64738 || !cfg.Autoregister {
		t.Fatalf("got %+v, want spec.md §6 defaults", cfg)
	}
}

func TestLoadRejectsOutOfRangeSolarFluxIndex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte("hf_propagation:\n  solar_flux_index: 1000\n"), 0666); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for solar_flux_index out of [60,300]")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	data := "users: 5\nport: 12345\nwelcometext: hello\n"
	if err := os.WriteFile(path, []byte(data), 0666); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Users != 5 || cfg.Port != 12345 || cfg.WelcomeText != "hello" {
		t.Fatalf("got %+v, want overridden fields", cfg)
	}
	if cfg.Bandwidth != 72000 {
		t.Fatalf("got bandwidth %d, want default 72000 preserved", cfg.Bandwidth)
	}
}

func TestParseACLLine(t *testing.T) {
	entries, err := ParseACL([]string{"0=@all:+enter,+traverse,-speak"})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.ChannelID != 0 || e.Principal != "@all" {
		t.Fatalf("got %+v, want channel 0 principal @all", e)
	}
	if len(e.Allow) != 2 || len(e.Deny) != 1 {
		t.Fatalf("got allow=%v deny=%v, want 2 allow 1 deny", e.Allow, e.Deny)
	}
}

func TestParseACLUserPrincipal(t *testing.T) {
	entries, err := ParseACL([]string{"3=#42:+speak"})
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].Principal != "#42" {
		t.Fatalf("got %q, want #42", entries[0].Principal)
	}
}

func TestParseACLRejectsUnknownPrincipal(t *testing.T) {
	if _, err := ParseACL([]string{"0=unknown:+speak"}); err == nil {
		t.Fatal("expected error for unrecognized principal")
	}
}

func TestParseACLRejectsMissingSign(t *testing.T) {
	if _, err := ParseACL([]string{"0=@all:speak"}); err == nil {
		t.Fatal("expected error for permission missing +/- sign")
	}
}

func TestParseMetadataFieldSelect(t *testing.T) {
	f := ParseMetadataField("select:a,b,c")
	if f.Type != MetadataSelect || len(f.Select) != 3 {
		t.Fatalf("got %+v, want select with 3 options", f)
	}
}
