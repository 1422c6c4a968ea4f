package cache

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestGetSetDelete(t *testing.T) {
	c := New(time.Minute)
	if got := c.Get("k"); got != nil {
		t.Fatalf("empty cache returned %q", got)
	}
	c.Set("k", []byte("v"))
	if got := c.Get("k"); !bytes.Equal(got, []byte("v")) {
		t.Fatalf("Get = %q, want v", got)
	}
	c.Delete("k")
	if got := c.Get("k"); got != nil {
		t.Fatalf("Get after Delete = %q", got)
	}
}

func TestGetOrFetchCallsFetchOnce(t *testing.T) {
	c := New(time.Minute)
	calls := 0
	fetch := func() ([]byte, error) {
		calls++
		return []byte("payload"), nil
	}
	first, err := c.GetOrFetch("k", fetch)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.GetOrFetch("k", fetch)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("cached reads differ: %q vs %q", first, second)
	}
}

func TestGetOrFetchErrorNotCached(t *testing.T) {
	c := New(time.Minute)
	boom := errors.New("db down")
	if _, err := c.GetOrFetch("k", func() ([]byte, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	// The failed fetch must not leave anything behind.
	got, err := c.GetOrFetch("k", func() ([]byte, error) { return []byte("ok"), nil })
	if err != nil || !bytes.Equal(got, []byte("ok")) {
		t.Fatalf("recovery fetch = %q, %v", got, err)
	}
}

func TestDeletePrefix(t *testing.T) {
	c := New(time.Minute)
	c.Set("calendar:1:a", []byte("x"))
	c.Set("calendar:1:b", []byte("y"))
	c.Set("dashboard:1", []byte("z"))
	c.DeletePrefix("calendar:")
	if c.Get("calendar:1:a") != nil || c.Get("calendar:1:b") != nil {
		t.Error("calendar keys survived DeletePrefix")
	}
	if c.Get("dashboard:1") == nil {
		t.Error("unrelated key removed")
	}
}

func TestExpiry(t *testing.T) {
	c := New(10 * time.Millisecond)
	c.Set("k", []byte("v"))
	time.Sleep(25 * time.Millisecond)
	if got := c.Get("k"); got != nil {
		t.Fatalf("Get after expiry = %q", got)
	}
}
