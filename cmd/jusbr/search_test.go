package main

import (
	"testing"
)

// TestNewSearchCmd tests the search command creation.
func TestNewSearchCmd(t *testing.T) {
	t.Parallel()

	cmd := NewSearchCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "search [term]" {
			t.Errorf("expected use 'search [term]', got %q", cmd.Use)
		}
	})

	t.Run("requires exactly one argument", func(t *testing.T) {
		t.Parallel()
		if cmd.Args == nil {
			t.Fatal("expected Args validator")
		}
		if err := cmd.Args(cmd, nil); err == nil {
			t.Error("expected error for missing term")
		}
		if err := cmd.Args(cmd, []string{"a", "b"}); err == nil {
			t.Error("expected error for two terms")
		}
	})

	t.Run("has force flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("force")
		if flag == nil {
			t.Fatal("expected force flag")
		}
		if flag.Shorthand != "f" {
			t.Errorf("expected shorthand 'f', got %q", flag.Shorthand)
		}
	})

	t.Run("has report flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"json", "markdown", "output"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
	})
}

// TestRunSearchCmdRejectsInvalidTerm tests that a malformed term fails
// before any crawling starts.
func TestRunSearchCmdRejectsInvalidTerm(t *testing.T) {
	t.Setenv("JUSBR_REDIS_ADDR", "")
	t.Setenv("JUSBR_DATA_DIR", t.TempDir())

	cmd := NewSearchCmd()
	cmd.SetArgs([]string{"not-a-document"})

	if err := cmd.Execute(); err == nil {
		t.Error("expected error for invalid search term")
	}
}

// TestNewServeCmd tests the serve command creation.
func TestNewServeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewServeCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "serve" {
			t.Errorf("expected use 'serve', got %q", cmd.Use)
		}
	})

	t.Run("has listen flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("listen")
		if flag == nil {
			t.Fatal("expected listen flag")
		}
		if flag.Shorthand != "l" {
			t.Errorf("expected shorthand 'l', got %q", flag.Shorthand)
		}
	})

	t.Run("has redis and no-worker flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"redis", "no-worker"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
	})
}

// TestRunServeCmdNoWorkerRequiresRedis tests that API-only mode is
// refused when tasks would pile up in an in-process queue.
func TestRunServeCmdNoWorkerRequiresRedis(t *testing.T) {
	t.Setenv("JUSBR_REDIS_ADDR", "")

	cmd := NewServeCmd()
	cmd.SetArgs([]string{"--no-worker"})

	if err := cmd.Execute(); err == nil {
		t.Error("expected error for --no-worker without Redis")
	}
}

// TestNewWorkerCmd tests the worker command creation.
func TestNewWorkerCmd(t *testing.T) {
	t.Parallel()

	cmd := NewWorkerCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "worker" {
			t.Errorf("expected use 'worker', got %q", cmd.Use)
		}
	})

	t.Run("has redis and tribunals flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"redis", "tribunals"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
	})
}

// TestRunWorkerCmdRequiresRedis tests that a standalone worker refuses
// to start without a Redis queue to consume from.
func TestRunWorkerCmdRequiresRedis(t *testing.T) {
	t.Setenv("JUSBR_REDIS_ADDR", "")

	cmd := NewWorkerCmd()
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err == nil {
		t.Error("expected error for worker without Redis")
	}
}

// TestRunWorkerCmdRejectsUnknownTribunal tests tribunal filter
// validation.
func TestRunWorkerCmdRejectsUnknownTribunal(t *testing.T) {
	t.Setenv("JUSBR_REDIS_ADDR", "")
	t.Setenv("JUSBR_DATA_DIR", t.TempDir())

	cmd := NewWorkerCmd()
	cmd.SetArgs([]string{"--redis", "127.0.0.1:6379", "--tribunals", "stf"})

	if err := cmd.Execute(); err == nil {
		t.Error("expected error for unknown tribunal")
	}
}
