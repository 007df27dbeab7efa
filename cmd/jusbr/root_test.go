package main

import (
	"testing"

	"github.com/spf13/cobra"
)

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "jusbr" {
			t.Errorf("expected use 'jusbr', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("has long description", func(t *testing.T) {
		t.Parallel()
		if cmd.Long == "" {
			t.Error("expected non-empty long description")
		}
	})

	t.Run("has version", func(t *testing.T) {
		t.Parallel()
		if cmd.Version == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("has verbose flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.PersistentFlags().Lookup("verbose")
		if flag == nil {
			t.Fatal("expected verbose flag")
		}
		if flag.Shorthand != "v" {
			t.Errorf("expected shorthand 'v', got %q", flag.Shorthand)
		}
		if flag.DefValue != "false" {
			t.Errorf("expected default 'false', got %q", flag.DefValue)
		}
	})

	t.Run("has config flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.PersistentFlags().Lookup("config")
		if flag == nil {
			t.Fatal("expected config flag")
		}
		if flag.Shorthand != "c" {
			t.Errorf("expected shorthand 'c', got %q", flag.Shorthand)
		}
	})

	t.Run("has data-dir flag", func(t *testing.T) {
		t.Parallel()
		if cmd.PersistentFlags().Lookup("data-dir") == nil {
			t.Fatal("expected data-dir flag")
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()
		want := map[string]bool{
			"search [term]":     false,
			"serve":             false,
			"worker":            false,
			"report [query-id]": false,
			"version":           false,
		}
		for _, sub := range cmd.Commands() {
			if _, ok := want[sub.Use]; ok {
				want[sub.Use] = true
			}
		}
		for use, found := range want {
			if !found {
				t.Errorf("expected %q subcommand", use)
			}
		}
	})
}

// TestBuildConfigExplicitConfigNotFound tests that a missing explicit
// config file is an error while the default search silently skips it.
func TestBuildConfigExplicitConfigNotFound(t *testing.T) {
	root := NewRootCmd()
	if err := root.PersistentFlags().Set("config", "/nonexistent/jusbr.yml"); err != nil {
		t.Fatal(err)
	}
	var cmd *cobra.Command
	for _, sub := range root.Commands() {
		if sub.Use == "search [term]" {
			cmd = sub
			break
		}
	}
	if cmd == nil {
		t.Fatal("search subcommand not found")
	}

	if _, err := buildConfig(cmd); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

// TestBuildConfigDefaults tests config assembly without flags or env.
func TestBuildConfigDefaults(t *testing.T) {
	t.Setenv("JUSBR_REDIS_ADDR", "")
	t.Setenv("JUSBR_DATA_DIR", "")

	cfg, err := buildConfig(NewSearchCmd())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.UseRedis {
		t.Error("expected in-memory queue by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}
