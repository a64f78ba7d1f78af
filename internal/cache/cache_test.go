package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestCache_GetSet(t *testing.T) {
	c := New[[]string](5*time.Second, 100)

	c.Set("sales.csv", []string{"region", "amount"})

	got, ok := c.Get("sales.csv")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got) != 2 || got[0] != "region" {
		t.Errorf("unexpected value: %v", got)
	}
}

func TestCache_Miss(t *testing.T) {
	c := New[int](5*time.Second, 100)

	if v, ok := c.Get("nonexistent"); ok || v != 0 {
		t.Errorf("expected zero-value miss, got %v %v", v, ok)
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	c := New[string](50*time.Millisecond, 100)
	c.Set("k", "v")

	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected cache hit before expiry")
	}

	time.Sleep(80 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Error("expected cache miss after expiry")
	}
	if c.Len() != 0 {
		t.Errorf("expected expired entry to be removed, len=%d", c.Len())
	}
}

func TestCache_InvalidatePrefix(t *testing.T) {
	c := New[int](5*time.Second, 100)
	c.Set("/data/a.csv|1|10", 1)
	c.Set("/data/a.csv|2|12", 2)
	c.Set("/data/b.csv|1|10", 3)

	c.InvalidatePrefix("/data/a.csv|")

	if _, ok := c.Get("/data/a.csv|1|10"); ok {
		t.Error("expected a.csv entries to be invalidated")
	}
	if _, ok := c.Get("/data/b.csv|1|10"); !ok {
		t.Error("expected b.csv entry to survive")
	}
}

func TestCache_MaxEntries(t *testing.T) {
	c := New[int](5*time.Second, 3)
	for i := 0; i < 4; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}

	if c.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", c.Len())
	}
	if _, ok := c.Get("k0"); ok {
		t.Error("expected oldest entry to be evicted")
	}
	if _, ok := c.Get("k3"); !ok {
		t.Error("expected newest entry to be present")
	}
}

func TestCache_OverwriteExistingKey(t *testing.T) {
	c := New[int](5*time.Second, 2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)

	if v, _ := c.Get("a"); v != 10 {
		t.Errorf("expected overwritten value 10, got %d", v)
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("overwrite must not evict")
	}
}

func TestCache_ZeroMaxEntriesIsUnbounded(t *testing.T) {
	c := New[int](5*time.Second, 0)
	for i := 0; i < 50; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	if c.Len() != 50 {
		t.Errorf("expected 50 entries, got %d", c.Len())
	}
}

func TestCache_ThreadSafety(t *testing.T) {
	c := New[int](time.Second, 50)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*200+i)%80)
				c.Set(key, i)
				c.Get(key)
				if i%50 == 0 {
					c.InvalidatePrefix("k1")
				}
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("cache grew past max entries: %d", c.Len())
	}
}

func TestFileKey_ChangesWithContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte("a\n1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	k1, err := FileKey(path)
	if err != nil {
		t.Fatalf("FileKey: %v", err)
	}

	if err := os.WriteFile(path, []byte("a\n1\n2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	k2, _ := FileKey(path)

	if k1 == k2 {
		t.Errorf("expected key to change after rewrite, both %q", k1)
	}
}

func TestFileKey_MissingFile(t *testing.T) {
	if _, err := FileKey(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}
