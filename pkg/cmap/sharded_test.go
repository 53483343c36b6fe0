package cmap

import (
	"fmt"
	"sync"
	"testing"
)

func TestNewWithShards(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{0, DefaultShardCount},
		{-1, DefaultShardCount},
		{3, DefaultShardCount},
		{1, 1},
		{8, 8},
		{32, 32},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("shards=%d", tt.input), func(t *testing.T) {
			m := NewWithShards[string, int](tt.input)
			if m.ShardCount() != tt.expected {
				t.Errorf("NewWithShards(%d) shard count = %d, want %d", tt.input, m.ShardCount(), tt.expected)
			}
		})
	}
}

func TestSetGetDelete(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)

	if v, ok := m.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = (%d, %v), want (1, true)", v, ok)
	}
	if _, ok := m.Get("missing"); ok {
		t.Error("Get(missing) should report absence")
	}

	m.Delete("a")
	m.Delete("a")
	if _, ok := m.Get("a"); ok {
		t.Error("a should not exist after Delete")
	}

	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}
}

func TestRange(t *testing.T) {
	m := New[int, int]()
	for i := 0; i < 100; i++ {
		m.Set(i, i*i)
	}

	sum := 0
	m.Range(func(k, v int) bool {
		if v != k*k {
			t.Errorf("value for %d = %d", k, v)
		}
		sum++
		return true
	})
	if sum != 100 {
		t.Errorf("Range visited %d items, want 100", sum)
	}

	visited := 0
	m.Range(func(int, int) bool {
		visited++
		return visited < 5
	})
	if visited != 5 {
		t.Errorf("Range with early stop visited %d, want 5", visited)
	}
}

func TestDeleteFunc(t *testing.T) {
	m := New[string, int]()
	for i := 0; i < 50; i++ {
		m.Set(fmt.Sprintf("k%02d", i), i)
	}

	n := m.DeleteFunc(func(_ string, v int) bool { return v%2 == 0 })
	if n != 25 {
		t.Errorf("DeleteFunc() = %d, want 25", n)
	}
	if m.Count() != 25 {
		t.Errorf("Count() = %d, want 25", m.Count())
	}
	m.Range(func(k string, v int) bool {
		if v%2 == 0 {
			t.Errorf("%s survived DeleteFunc", k)
		}
		return true
	})

	if n := m.DeleteFunc(func(string, int) bool { return false }); n != 0 {
		t.Errorf("no-op DeleteFunc() = %d", n)
	}
}

func TestConcurrentAccess(t *testing.T) {
	m := New[int, int]()
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				key := g*1000 + i
				m.Set(key, i)
				m.Get(key)
				if i%3 == 0 {
					m.Delete(key)
				}
			}
		}(g)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			m.DeleteFunc(func(_ int, v int) bool { return v > 990 })
		}
	}()
	wg.Wait()

	m.Range(func(k, v int) bool {
		if v%3 == 0 {
			t.Errorf("key %d should have been deleted", k)
		}
		return true
	})
}
