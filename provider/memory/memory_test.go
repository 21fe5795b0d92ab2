package memory

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestMemoryGetSetDel(t *testing.T) {
	ctx := context.Background()
	p := New()

	if _, ok, err := p.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}
	if ok, err := p.Set(ctx, "k", []byte("v"), 0); err != nil || !ok {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	got, ok, err := p.Get(ctx, "k")
	if err != nil || !ok || !bytes.Equal(got, []byte("v")) {
		t.Fatalf("Get: got=%q ok=%v err=%v", got, ok, err)
	}
	if has, _ := p.Has(ctx, "k"); !has {
		t.Fatalf("Has should be true after Set")
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("Del of missing key: %v", err)
	}
	if has, _ := p.Has(ctx, "k"); has {
		t.Fatalf("Has should be false after Del")
	}
}

func TestMemorySetCopiesValue(t *testing.T) {
	ctx := context.Background()
	p := New()
	v := []byte("abc")
	_, _ = p.Set(ctx, "k", v, 0)
	v[0] = 'X'
	got, _, _ := p.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("stored value aliased caller slice: %q", got)
	}
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	p := New()
	_, _ = p.Set(ctx, "a", []byte("abc"), 0)
	_, _ = p.Set(ctx, "b", []byte("def"), 0)

	got, _, _ := p.Get(ctx, "a")
	got[0] = 'X'
	if again, _, _ := p.Get(ctx, "a"); string(again) != "abc" {
		t.Fatalf("Get after editing fetched slice = %q", again)
	}

	multi, _ := p.GetMulti(ctx, []string{"a", "b"})
	multi["a"][0] = 'Y'
	multi["b"][0] = 'Z'
	again, _ := p.GetMulti(ctx, []string{"a", "b"})
	if string(again["a"]) != "abc" || string(again["b"]) != "def" {
		t.Fatalf("GetMulti after editing fetched slices = %q %q", again["a"], again["b"])
	}
}

func TestMemoryTTL(t *testing.T) {
	ctx := context.Background()
	p := New()
	now := time.Now()
	p.now = func() time.Time { return now }

	_, _ = p.Set(ctx, "k", []byte("v"), time.Second)
	if _, ok, _ := p.Get(ctx, "k"); !ok {
		t.Fatalf("expected hit before expiry")
	}
	now = now.Add(2 * time.Second)
	if has, _ := p.Has(ctx, "k"); has {
		t.Fatalf("Has should be false after expiry")
	}
	if _, ok, _ := p.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after expiry")
	}
	if p.Len() != 0 {
		t.Fatalf("expired entry should be dropped on Get, len=%d", p.Len())
	}
}

func TestMemoryMultiAndStats(t *testing.T) {
	ctx := context.Background()
	p := New()

	ok, err := p.SetMulti(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("22")}, 0)
	if err != nil || !ok {
		t.Fatalf("SetMulti: ok=%v err=%v", ok, err)
	}
	got, err := p.GetMulti(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("GetMulti: %v", err)
	}
	if len(got) != 2 || string(got["a"]) != "1" || string(got["b"]) != "22" {
		t.Fatalf("GetMulti = %v", got)
	}
	if _, present := got["c"]; present {
		t.Fatalf("missing key must be omitted")
	}

	st, err := p.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Hits != 2 || st.Misses != 1 || st.MemoryUsage != 3 {
		t.Fatalf("Stats = %+v", st)
	}

	if err := p.FlushAll(ctx); err != nil {
		t.Fatalf("FlushAll: %v", err)
	}
	if p.Len() != 0 {
		t.Fatalf("FlushAll left %d entries", p.Len())
	}
	if st, _ := p.Stats(ctx); st.MemoryUsage != 0 {
		t.Fatalf("MemoryUsage after flush = %d", st.MemoryUsage)
	}
}
