package rules

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRuleStoreInterfaceExists(t *testing.T) {
	var _ RuleStore = (*InMemoryRuleStore)(nil)
	var _ RuleStore = (*PostgresRuleStore)(nil)
}

func TestInMemoryRuleStoreAdd(t *testing.T) {
	store := NewInMemoryRuleStore()
	ctx := context.Background()

	rule := &Rule{
		ID:         "esta-visa-waiver",
		Name:       "ESTA requires visa waiver nationality",
		Expression: `visa.code == "ESTA" && profile.nationality == "IN"`,
		Active:     true,
	}

	if err := store.Add(ctx, rule); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	retrieved, err := store.Get(ctx, "esta-visa-waiver")
	if err != nil {
		t.Fatalf("Get() failed after Add(): %v", err)
	}

	if retrieved.Name != rule.Name {
		t.Errorf("Retrieved rule Name = %s, want %s", retrieved.Name, rule.Name)
	}
	if retrieved.CreatedAt.IsZero() || retrieved.UpdatedAt.IsZero() {
		t.Error("Add() should set CreatedAt and UpdatedAt")
	}
}

func TestInMemoryRuleStoreAddDuplicate(t *testing.T) {
	store := NewInMemoryRuleStore()
	ctx := context.Background()

	rule := &Rule{ID: "dup", Name: "Dup", Expression: `true`, Active: true}
	if err := store.Add(ctx, rule); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	err := store.Add(ctx, &Rule{ID: "dup", Name: "Dup 2", Expression: `false`})
	if !errors.Is(err, ErrRuleExists) {
		t.Errorf("Add() duplicate error = %v, want ErrRuleExists", err)
	}
}

func TestInMemoryRuleStoreGetNotFound(t *testing.T) {
	store := NewInMemoryRuleStore()

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("Get() error = %v, want ErrRuleNotFound", err)
	}
}

func TestInMemoryRuleStoreListActive(t *testing.T) {
	store := NewInMemoryRuleStore()
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	for _, r := range []*Rule{
		{ID: "b", Name: "B", Expression: `true`, Active: true},
		{ID: "a", Name: "A", Expression: `true`, Active: false},
		{ID: "c", Name: "C", Expression: `true`, Active: true},
	} {
		if err := store.Add(ctx, r); err != nil {
			t.Fatalf("Add(%s) failed: %v", r.ID, err)
		}
	}

	active, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive() failed: %v", err)
	}
	if len(active) != 2 || active[0].ID != "b" || active[1].ID != "c" {
		t.Errorf("ListActive() = %v, want [b c] in creation order", ids(active))
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("List() returned %d rules, want 3", len(all))
	}
}

func TestInMemoryRuleStoreUpdatePreservesCreatedAt(t *testing.T) {
	store := NewInMemoryRuleStore()
	ctx := context.Background()

	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return created }
	if err := store.Add(ctx, &Rule{ID: "r1", Name: "R1", Expression: `true`, Active: true}); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	updated := created.Add(time.Hour)
	store.now = func() time.Time { return updated }
	if err := store.Update(ctx, &Rule{ID: "r1", Name: "R1 v2", Expression: `false`, Active: true}); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	got, _ := store.Get(ctx, "r1")
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}
	if !got.UpdatedAt.Equal(updated) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, updated)
	}
	if got.Name != "R1 v2" {
		t.Errorf("Name = %s, want R1 v2", got.Name)
	}
}

func TestInMemoryRuleStoreUpdateAndDeleteMissing(t *testing.T) {
	store := NewInMemoryRuleStore()
	ctx := context.Background()

	if err := store.Update(ctx, &Rule{ID: "nope"}); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("Update() error = %v, want ErrRuleNotFound", err)
	}
	if err := store.Delete(ctx, "nope"); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("Delete() error = %v, want ErrRuleNotFound", err)
	}
}

func TestInMemoryRuleStoreReturnsCopies(t *testing.T) {
	store := NewInMemoryRuleStore()
	ctx := context.Background()

	rule := &Rule{ID: "r1", Name: "Original", Expression: `true`, Active: true}
	if err := store.Add(ctx, rule); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	rule.Name = "Mutated after add"

	got, _ := store.Get(ctx, "r1")
	got.Name = "Mutated after get"

	again, _ := store.Get(ctx, "r1")
	if again.Name != "Original" {
		t.Errorf("stored rule was mutated through a caller's pointer: %s", again.Name)
	}
}

func TestInMemoryRuleStoreConcurrentAccess(t *testing.T) {
	store := NewInMemoryRuleStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a'+i%26)) + string(rune('0'+i/26))
			_ = store.Add(ctx, &Rule{ID: id, Name: id, Expression: `true`, Active: true})
			_, _ = store.ListActive(ctx)
		}(i)
	}
	wg.Wait()

	all, _ := store.List(ctx)
	if len(all) != 50 {
		t.Errorf("List() returned %d rules, want 50", len(all))
	}
}

func ids(rules []*Rule) []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.ID
	}
	return out
}
