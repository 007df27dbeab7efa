package extract

import (
	"errors"
	"testing"
	"time"
)

// TestParseDateTime tests the two portal-native timestamp formats and the
// hard failure on anything else.
func TestParseDateTime(t *testing.T) {
	t.Parallel()

	t.Run("ISO form", func(t *testing.T) {
		t.Parallel()

		got, err := ParseDateTime("2023-04-17 10:30:00")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2023, 4, 17, 10, 30, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("Brazilian form", func(t *testing.T) {
		t.Parallel()

		got, err := ParseDateTime("17/04/2023 10:30:00")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2023, 4, 17, 10, 30, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("trailing decorations ignored", func(t *testing.T) {
		t.Parallel()

		if _, err := ParseDateTime("2023-04-17 10:30:00.123456"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("unrecognized format is a hard error", func(t *testing.T) {
		t.Parallel()

		for _, s := range []string{"", "17-04/2023 10:30:00", "April 17, 2023", "2023-04-17"} {
			if _, err := ParseDateTime(s); !errors.Is(err, ErrUnparsableDate) {
				t.Errorf("ParseDateTime(%q) error = %v, want ErrUnparsableDate", s, err)
			}
		}
	})
}

// TestParseDate tests the date-only variants.
func TestParseDate(t *testing.T) {
	t.Parallel()

	t.Run("both forms", func(t *testing.T) {
		t.Parallel()

		want := time.Date(2023, 4, 17, 0, 0, 0, 0, time.UTC)
		for _, s := range []string{"2023-04-17", "17/04/2023", "17/04/2023 10:30:00"} {
			got, err := ParseDate(s)
			if err != nil {
				t.Fatalf("ParseDate(%q) returned error: %v", s, err)
			}
			if !got.Equal(want) {
				t.Errorf("ParseDate(%q) = %v, want %v", s, got, want)
			}
		}
	})

	t.Run("unrecognized format", func(t *testing.T) {
		t.Parallel()

		if _, err := ParseDate("17.04.2023"); !errors.Is(err, ErrUnparsableDate) {
			t.Errorf("error = %v, want ErrUnparsableDate", err)
		}
	})
}
