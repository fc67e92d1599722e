package memory

import (
	"context"
	"testing"

	"expensetracker/internal/core"
)

func TestMemoryStoreInsertAndList(t *testing.T) {
	ctx := context.Background()
	s := New()

	got, err := s.List(ctx)
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %v err=%v", got, err)
	}

	for _, e := range []core.Expense{
		{ID: "1", Description: "old", Amount: 1, Category: "A", Date: "2024-01-01"},
		{ID: "2", Description: "new", Amount: 2, Category: "B", Date: "2024-03-01"},
		{ID: "3", Description: "mid", Amount: 3, Category: "A", Date: "2024-02-01"},
	} {
		if err := s.Insert(ctx, e); err != nil {
			t.Fatalf("insert %s: %v", e.ID, err)
		}
	}

	got, _ = s.List(ctx)
	order := []string{"2", "3", "1"}
	for i, id := range order {
		if got[i].ID != id {
			t.Fatalf("position %d: got %s, want %s (%v)", i, got[i].ID, id, got)
		}
	}

	if err := s.Insert(ctx, core.Expense{Description: "no id"}); err == nil {
		t.Fatalf("expected error for missing id")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.Insert(ctx, core.Expense{ID: "a", Description: "Lunch", Amount: 10, Category: "Food", Date: "2024-01-01"})
	_ = s.Insert(ctx, core.Expense{ID: "b", Description: "Lunch", Amount: 12, Category: "Food", Date: "2024-01-02"})

	ok, err := s.DeleteByDescription(ctx, "Dinner")
	if err != nil || ok {
		t.Fatalf("no match should report false, got %v err=%v", ok, err)
	}

	ok, _ = s.DeleteByDescription(ctx, "Lunch")
	if !ok {
		t.Fatalf("expected a deletion")
	}
	items, _ := s.List(ctx)
	if len(items) != 1 {
		t.Fatalf("expected exactly one removed, %d left", len(items))
	}

	ok, _ = s.DeleteByID(ctx, items[0].ID)
	if !ok {
		t.Fatalf("expected delete by id")
	}
	ok, _ = s.DeleteByID(ctx, items[0].ID)
	if ok {
		t.Fatalf("second delete by id should report false")
	}
}

func TestMemoryStoreCategoryTotals(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.Insert(ctx, core.Expense{ID: "1", Description: "Bus ticket", Amount: 2.75, Category: "Transport", Date: "2024-01-01"})
	_ = s.Insert(ctx, core.Expense{ID: "2", Description: "Lunch", Amount: 12, Category: "Food", Date: "2024-01-01"})
	_ = s.Insert(ctx, core.Expense{ID: "3", Description: "Train", Amount: 5.25, Category: "Transport", Date: "2024-01-02"})

	totals, err := s.CategoryTotals(ctx)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	byCat := map[string]float64{}
	for _, ct := range totals {
		byCat[ct.Category] = ct.Total
	}
	if len(byCat) != 2 || byCat["Transport"] != 8 || byCat["Food"] != 12 {
		t.Fatalf("unexpected totals %v", totals)
	}
}
