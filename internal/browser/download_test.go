package browser

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScanDownloadDir(t *testing.T) {
	t.Parallel()

	t.Run("empty directory", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()

		done, pending, err := scanDownloadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if done != "" || pending {
			t.Errorf("done=%q pending=%v, want empty and not pending", done, pending)
		}
	})

	t.Run("completed file", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		want := filepath.Join(dir, "peticao.pdf")
		if err := os.WriteFile(want, []byte("%PDF-1.4"), 0o600); err != nil {
			t.Fatal(err)
		}

		done, pending, err := scanDownloadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if pending {
			t.Error("completed file reported as pending")
		}
		if done != want {
			t.Errorf("done = %q, want %q", done, want)
		}
	})

	t.Run("in-flight transfer wins over completed file", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		for _, name := range []string{"peticao.pdf", "anexo.pdf.crdownload"} {
			if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
				t.Fatal(err)
			}
		}

		_, pending, err := scanDownloadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if !pending {
			t.Error("expected pending while a .crdownload exists")
		}
	})

	t.Run("subdirectories ignored", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		if err := os.Mkdir(filepath.Join(dir, "nested"), 0o700); err != nil {
			t.Fatal(err)
		}

		done, pending, err := scanDownloadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if done != "" || pending {
			t.Errorf("done=%q pending=%v, want empty and not pending", done, pending)
		}
	})

	t.Run("missing directory errors", func(t *testing.T) {
		t.Parallel()
		if _, _, err := scanDownloadDir(filepath.Join(t.TempDir(), "gone")); err == nil {
			t.Error("expected error for missing directory")
		}
	})
}
