package view

import (
	"fmt"
	"testing"
)

func TestRenderCacheEvictsOldest(t *testing.T) {
	c := newRenderCache(3)
	for i := 0; i < 5; i++ {
		c.put(fmt.Sprintf("k%d", i), rendered{content: "v", height: 1})
	}
	if c.size() != 3 {
		t.Fatalf("size = %d, want 3", c.size())
	}
	if _, ok := c.get("k0"); ok {
		t.Error("oldest entry survived eviction")
	}
	if _, ok := c.get("k4"); !ok {
		t.Error("newest entry evicted")
	}
}

func TestRenderCacheGetRefreshes(t *testing.T) {
	c := newRenderCache(2)
	c.put("a", rendered{height: 1})
	c.put("b", rendered{height: 2})
	c.get("a") // a becomes most recently used
	c.put("c", rendered{height: 3})
	if _, ok := c.get("a"); !ok {
		t.Error("recently used entry evicted")
	}
	if _, ok := c.get("b"); ok {
		t.Error("least recently used entry survived")
	}
}

func TestRenderCacheRemoveAndInvalidate(t *testing.T) {
	c := newRenderCache(10)
	c.put("a", rendered{height: 1})
	c.remove("a")
	if _, ok := c.get("a"); ok {
		t.Error("removed entry still present")
	}
	c.put("b", rendered{height: 1})
	c.invalidateAll()
	if c.size() != 0 {
		t.Errorf("size = %d after invalidateAll", c.size())
	}
}
