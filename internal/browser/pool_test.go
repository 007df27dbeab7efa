package browser

import (
	"context"
	"errors"
	"testing"
)

func TestPoolAcquireReusesSession(t *testing.T) {
	t.Parallel()

	launches := 0
	pool := NewPool(func(_ context.Context, _ string) (*Session, error) {
		launches++
		return &Session{}, nil
	}, nil)
	defer pool.Close() //nolint:errcheck

	first, err := pool.Acquire(context.Background(), "trf1")
	if err != nil {
		t.Fatal(err)
	}
	pool.Release("trf1")

	second, err := pool.Acquire(context.Background(), "trf1")
	if err != nil {
		t.Fatal(err)
	}
	pool.Release("trf1")

	if first != second {
		t.Error("expected the same session across acquisitions")
	}
	if launches != 1 {
		t.Errorf("launches = %d, want 1", launches)
	}
}

func TestPoolEvictRecreates(t *testing.T) {
	t.Parallel()

	launches := 0
	pool := NewPool(func(_ context.Context, _ string) (*Session, error) {
		launches++
		return &Session{}, nil
	}, nil)
	defer pool.Close() //nolint:errcheck

	first, err := pool.Acquire(context.Background(), "trf4")
	if err != nil {
		t.Fatal(err)
	}
	pool.Evict("trf4")

	second, err := pool.Acquire(context.Background(), "trf4")
	if err != nil {
		t.Fatal(err)
	}
	pool.Release("trf4")

	if first == second {
		t.Error("expected a fresh session after eviction")
	}
	if launches != 2 {
		t.Errorf("launches = %d, want 2", launches)
	}
}

func TestPoolSeparateKeys(t *testing.T) {
	t.Parallel()

	pool := NewPool(func(_ context.Context, key string) (*Session, error) {
		return &Session{name: key}, nil
	}, nil)
	defer pool.Close() //nolint:errcheck

	a, err := pool.Acquire(context.Background(), "trf1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := pool.Acquire(context.Background(), "trf2")
	if err != nil {
		t.Fatal(err)
	}
	pool.Release("trf1")
	pool.Release("trf2")

	if a == b {
		t.Error("keys must not share a session")
	}
}

func TestPoolFactoryError(t *testing.T) {
	t.Parallel()

	boom := errors.New("no chrome")
	pool := NewPool(func(_ context.Context, _ string) (*Session, error) {
		return nil, boom
	}, nil)
	defer pool.Close() //nolint:errcheck

	if _, err := pool.Acquire(context.Background(), "trf6"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}

	// The slot must be usable again after a failed launch.
	if _, err := pool.Acquire(context.Background(), "trf6"); !errors.Is(err, boom) {
		t.Fatalf("second acquire err = %v, want %v", err, boom)
	}
}
