package tierindex

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/mohammed-shakir/weather-dashboard/internal/cache/keys"
	"github.com/mohammed-shakir/weather-dashboard/internal/cache/redisstore"
)

func newIndex(t *testing.T) (*Index, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)
	cli, err := redisstore.New(ctx, mr.Addr())
	if err != nil {
		t.Fatalf("redisstore.New: %v", err)
	}
	t.Cleanup(func() { _ = cli.Close() })
	return New(cli, time.Second), mr
}

func TestLoadAndLookup(t *testing.T) {
	ix, _ := newIndex(t)
	ctx := context.Background()

	tier := map[string][]int64{
		"boston, m": {4930956, 4931972, 4932007, 4931378, 4930505},
		"b":         {4930956, 4930956, 1},
		"empty":     {},
	}
	n, err := ix.Load(ctx, tier)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n != 2 {
		t.Fatalf("written=%d want 2", n)
	}

	ids, ok, err := ix.Lookup(ctx, "boston, m")
	if err != nil || !ok {
		t.Fatalf("Lookup ok=%v err=%v", ok, err)
	}
	if len(ids) != 5 || ids[0] != 4930956 || ids[4] != 4930505 {
		t.Fatalf("ids=%v", ids)
	}

	ids, _, _ = ix.Lookup(ctx, "b")
	if len(ids) != 2 {
		t.Fatalf("duplicates not collapsed: %v", ids)
	}

	if _, ok, err := ix.Lookup(ctx, "empty"); ok || err != nil {
		t.Fatalf("empty entry ok=%v err=%v", ok, err)
	}
	if _, ok, err := ix.Lookup(ctx, "nothing here"); ok || err != nil {
		t.Fatalf("missing entry ok=%v err=%v", ok, err)
	}
}

func TestLoad_BatchesLargeTier(t *testing.T) {
	ix, mr := newIndex(t)
	tier := make(map[string][]int64, 2500)
	for i := 0; i < 2500; i++ {
		tier[fmt.Sprintf("q%d", i)] = []int64{int64(i + 1)}
	}
	n, err := ix.Load(context.Background(), tier)
	if err != nil || n != 2500 {
		t.Fatalf("Load n=%d err=%v", n, err)
	}
	if !mr.Exists(keys.Tier("q2499")) {
		t.Fatal("last batch not flushed")
	}
}

func TestLookup_BadPayload(t *testing.T) {
	ix, mr := newIndex(t)
	_ = mr.Set(keys.Tier("x"), "[1,")
	if _, _, err := ix.Lookup(context.Background(), "x"); err == nil {
		t.Fatal("want decode error")
	}
}
