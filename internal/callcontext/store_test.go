package callcontext

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewStore(rdb, time.Hour, nil), rdb
}

func TestStoreInitLoadRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created := store.Init(ctx, "call-1", "co-1", "hvac", "v3")
	if created.Schema != SchemaVersion {
		t.Fatalf("schema = %d, want %d", created.Schema, SchemaVersion)
	}

	loaded := store.Load(ctx, "call-1")
	if loaded == nil {
		t.Fatal("expected context after Init")
	}
	if loaded.CompanyID != "co-1" || loaded.Trade != "hvac" || loaded.ConfigVersion != "v3" {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestStoreLoadMissingReturnsNil(t *testing.T) {
	store, _ := newTestStore(t)
	if cc := store.Load(context.Background(), "nope"); cc != nil {
		t.Fatalf("expected nil for missing context, got %+v", cc)
	}
}

func TestStoreLoadDiscardsSchemaMismatch(t *testing.T) {
	store, rdb := newTestStore(t)
	ctx := context.Background()

	stale := &Context{Schema: SchemaVersion + 1, CallID: "call-2"}
	data, _ := json.Marshal(stale)
	if err := rdb.Set(ctx, "call:context:call-2", data, time.Hour).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if cc := store.Load(ctx, "call-2"); cc != nil {
		t.Fatalf("expected nil for schema mismatch, got %+v", cc)
	}
}

func TestStoreSaveIncrementsVersion(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	cc := store.Init(ctx, "call-3", "co-1", "plumbing", "v1")
	v := cc.Version

	cc.CurrentIntent = "book_service"
	store.Save(ctx, cc)

	if cc.Version != v+1 {
		t.Errorf("version = %d, want %d", cc.Version, v+1)
	}
	loaded := store.Load(ctx, "call-3")
	if loaded.CurrentIntent != "book_service" {
		t.Errorf("intent not persisted: %+v", loaded)
	}
}

func TestStoreFailSoftOnRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, time.Hour, nil)
	mr.Close()

	ctx := context.Background()

	// None of these may panic or error out; the call keeps going on
	// in-memory state.
	cc := store.Init(ctx, "call-4", "co-1", "hvac", "v1")
	if cc == nil {
		t.Fatal("Init must return a usable context even when redis is down")
	}
	store.Save(ctx, cc)
	if got := store.Load(ctx, "call-4"); got != nil {
		t.Fatalf("Load should return nil when redis is down, got %+v", got)
	}
	store.Delete(ctx, "call-4")
}

func TestStoreDumpAndDelete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	store.Init(ctx, "call-6", "co-1", "electrical", "v1")

	raw, err := store.Dump(ctx, "call-6")
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	var cc Context
	if err := json.Unmarshal(raw, &cc); err != nil {
		t.Fatalf("dump not valid JSON: %v", err)
	}
	if cc.CallID != "call-6" {
		t.Errorf("dumped call id = %q", cc.CallID)
	}

	store.Delete(ctx, "call-6")
	if got := store.Load(ctx, "call-6"); got != nil {
		t.Fatalf("context survived delete: %+v", got)
	}
	raw, err = store.Dump(ctx, "call-6")
	if err != nil || raw != nil {
		t.Fatalf("Dump after delete = (%v, %v), want (nil, nil)", raw, err)
	}
}

func TestBookingReadyChecklist(t *testing.T) {
	full := Extracted{
		Contact:    ContactInfo{Name: "Ray", Phone: "3035550142"},
		Location:   LocationInfo{AddressLine1: "12 Oak St", PostalCode: "80014"},
		Problem:    ProblemInfo{Summary: "water heater leaking"},
		Scheduling: SchedulingInfo{PreferredWindow: "morning"},
	}

	cc := &Context{Extracted: full}
	if !cc.BookingReady() {
		t.Fatal("all five fields present, expected ready")
	}

	drop := []func(*Extracted){
		func(e *Extracted) { e.Contact.Name = "" },
		func(e *Extracted) { e.Contact.Phone = "" },
		func(e *Extracted) { e.Location.AddressLine1 = "" },
		func(e *Extracted) { e.Location.PostalCode = "" },
		func(e *Extracted) { e.Problem.Summary = "" },
		func(e *Extracted) { e.Scheduling.PreferredDate = ""; e.Scheduling.PreferredWindow = "" },
	}
	for i, mutate := range drop {
		e := full
		mutate(&e)
		cc := &Context{Extracted: e}
		if cc.BookingReady() {
			t.Errorf("case %d: missing field but BookingReady() = true", i)
		}
	}

	// A date can stand in for a window and vice versa.
	e := full
	e.Scheduling = SchedulingInfo{PreferredDate: "2026-09-03"}
	cc = &Context{Extracted: e}
	if !cc.BookingReady() {
		t.Error("date without window should satisfy the checklist")
	}
}
