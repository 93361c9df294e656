//go:build integration

package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/liamcoop/visaintake/catalog"
	"github.com/liamcoop/visaintake/internal/testdb"
)

func TestSQLCatalog_Postgres(t *testing.T) {
	db := testdb.Postgres(t)
	ctx := context.Background()
	sc := catalog.NewSQLCatalog(db, "postgres")

	seed := catalog.DefaultVisaTypes()
	if err := sc.Seed(ctx, seed); err != nil {
		t.Fatalf("Failed to seed: %v", err)
	}
	// Seeding twice upserts by code.
	if err := sc.Seed(ctx, seed); err != nil {
		t.Fatalf("Failed to reseed: %v", err)
	}

	visas, err := sc.ListActive(ctx)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(visas) != len(seed) {
		t.Fatalf("Expected %d visa types, got %d", len(seed), len(visas))
	}
	for i := 1; i < len(visas); i++ {
		if visas[i-1].ID >= visas[i].ID {
			t.Fatalf("visa types not ordered by id at %d", i)
		}
	}

	if err := sc.SetActive(ctx, "ESTA", false); err != nil {
		t.Fatalf("Failed to deactivate: %v", err)
	}
	if _, err := catalog.GetByCode(ctx, sc, "ESTA"); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Expected inactive ESTA to be hidden, got %v", err)
	}
	if err := sc.SetActive(ctx, "NOPE", true); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
