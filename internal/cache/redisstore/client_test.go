package redisstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/mohammed-shakir/weather-dashboard/internal/core/observability"
	"github.com/mohammed-shakir/weather-dashboard/internal/metrics"
)

// creates new client connected to miniredis for testing
func newMini(t *testing.T) *Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	rc, err := New(ctx, mr.Addr())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return rc
}

func TestSetMGetDel_HappyPath_AndMGetFiltersMissing(t *testing.T) {
	rc := newMini(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := rc.Set(ctx, "k1", []byte("v1"), 5*time.Minute)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	err = rc.Set(ctx, "k2", []byte("v2"), time.Minute)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := rc.MGet(ctx, []string{"k1", "k2", "missing"})
	if err != nil {
		t.Fatalf("MGet: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("MGet size=%d want 2", len(got))
	}
	if string(got["k1"]) != "v1" || string(got["k2"]) != "v2" {
		t.Fatalf("unexpected values: %+v", got)
	}

	if err := rc.Del(ctx, "k1", "k2"); err != nil {
		t.Fatalf("Del: %v", err)
	}
}

func TestContextDeadline_IsRespected(t *testing.T) {
	rc := newMini(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := rc.Set(ctx, "k", []byte("v"), time.Second); err == nil {
		t.Fatalf("expected error on Set with canceled context")
	}
	if _, err := rc.MGet(ctx, []string{"k"}); err == nil {
		t.Fatalf("expected error on MGet with canceled context")
	}
	if err := rc.Del(ctx, "k"); err == nil {
		t.Fatalf("expected error on Del with canceled context")
	}
}

func TestMetrics_Incremented(t *testing.T) {
	p := metrics.Init(metrics.Config{})
	observability.Init(p.Registerer(), true)

	rc := newMini(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_ = rc.Set(ctx, "m1", []byte("x"), time.Minute)
	_, _ = rc.MGet(ctx, []string{"m1"})
	_, _, _ = rc.Get(ctx, "m1")
	_ = rc.SAdd(ctx, "s", "a")
	_, _ = rc.SMembers(ctx, "s")
	_ = rc.Del(ctx, "m1")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `cache_op_total{op="set"`) ||
		!strings.Contains(body, `cache_op_total{op="mget"`) ||
		!strings.Contains(body, `cache_op_total{op="del"`) ||
		!strings.Contains(body, `cache_op_total{op="get",result="ok"}`) ||
		!strings.Contains(body, `cache_op_total{op="sadd"`) ||
		!strings.Contains(body, `cache_op_total{op="smembers"`) {
		t.Fatalf("missing cache_op_total metrics; got:\n%s", body)
	}
	if !strings.Contains(body, `redis_operation_duration_seconds_bucket{op="set"`) {
		t.Fatalf("missing redis_operation_duration_seconds histogram; got:\n%s", body)
	}
}

func TestGet_MissingIsNotAnError(t *testing.T) {
	rc := newMini(t)
	ctx := context.Background()

	v, ok, err := rc.Get(ctx, "absent")
	if err != nil || ok || v != nil {
		t.Fatalf("Get absent: v=%q ok=%v err=%v", v, ok, err)
	}
	if err := rc.Set(ctx, "present", []byte("x"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err = rc.Get(ctx, "present")
	if err != nil || !ok || string(v) != "x" {
		t.Fatalf("Get present: v=%q ok=%v err=%v", v, ok, err)
	}
}

func TestSets_AddMembersRemove(t *testing.T) {
	rc := newMini(t)
	ctx := context.Background()

	if err := rc.SAdd(ctx, "ids", "1", "2", "3", "2"); err != nil {
		t.Fatalf("SAdd: %v", err)
	}
	got, err := rc.SMembers(ctx, "ids")
	if err != nil {
		t.Fatalf("SMembers: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("members=%v want 3 unique", got)
	}
	if err := rc.SRem(ctx, "ids", "1", "3"); err != nil {
		t.Fatalf("SRem: %v", err)
	}
	got, _ = rc.SMembers(ctx, "ids")
	if len(got) != 1 || got[0] != "2" {
		t.Fatalf("members=%v want [2]", got)
	}
	if err := rc.SAdd(ctx, "ids"); err != nil {
		t.Fatalf("empty SAdd should be a no-op: %v", err)
	}
	empty, err := rc.SMembers(ctx, "nothing")
	if err != nil || len(empty) != 0 {
		t.Fatalf("SMembers missing=%v err=%v", empty, err)
	}
}

func TestMSetWithTTL_Pipelines(t *testing.T) {
	rc := newMini(t)
	ctx := context.Background()

	kv := map[string][]byte{"a": []byte("1"), "b": []byte("2")}
	if err := rc.MSetWithTTL(ctx, kv, 0); err != nil {
		t.Fatalf("MSetWithTTL: %v", err)
	}
	got, err := rc.MGet(ctx, []string{"a", "b"})
	if err != nil || string(got["a"]) != "1" || string(got["b"]) != "2" {
		t.Fatalf("got=%v err=%v", got, err)
	}
	if err := rc.MSetWithTTL(ctx, nil, 0); err != nil {
		t.Fatalf("empty MSetWithTTL: %v", err)
	}
}
