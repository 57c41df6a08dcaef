package domain

import "testing"

func TestGroupByCategory(t *testing.T) {
	t.Parallel()

	games := []Game{
		{ID: 1, Name: "game a", Category: "Soccer"},
		{ID: 2, Name: "game b", Category: "Basketball"},
		{ID: 3, Name: "game c", Category: "Soccer"},
	}

	grouped := GroupByCategory(games)
	if len(grouped) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(grouped))
	}
	if grouped[0].Category != "Basketball" || grouped[1].Category != "Soccer" {
		t.Fatalf("categories not sorted: %s, %s", grouped[0].Category, grouped[1].Category)
	}
	if len(grouped[1].Games) != 2 || grouped[1].Games[0].ID != 1 || grouped[1].Games[1].ID != 3 {
		t.Fatalf("soccer games out of order: %+v", grouped[1].Games)
	}
}

func TestGroupByCategoryEmpty(t *testing.T) {
	t.Parallel()

	if got := GroupByCategory(nil); len(got) != 0 {
		t.Fatalf("expected no categories, got %d", len(got))
	}
}
