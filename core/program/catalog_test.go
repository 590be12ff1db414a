package program

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/Kingsman71/Binary-Learning/core"
)

func TestDefaultCatalog(t *testing.T) {
	cat, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog() error = %v", err)
	}
	if got := len(cat.All()); got != 4 {
		t.Fatalf("len(All()) = %d, want 4", got)
	}
	for _, id := range []string{"full-stack-odyssey", "data-driven-decisions", "pixel-perfect-interfaces", "digital-fortress"} {
		if !cat.Exists(id) {
			t.Errorf("Exists(%q) = false, want true", id)
		}
	}
	p, err := cat.Get("data-driven-decisions")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Title != "Data-Driven Decisions" || p.Category != CategoryDataScience {
		t.Errorf("Get() = %q (%s), want Data-Driven Decisions (Data Science)", p.Title, p.Category)
	}
	if p.StartDate.IsZero() {
		t.Error("Get().StartDate is zero")
	}
}

func TestCatalog_Get(t *testing.T) {
	cat, _ := DefaultCatalog()

	if _, err := cat.Get("  FULL-STACK-ODYSSEY "); err != nil {
		t.Errorf("Get() is not case/space insensitive, error = %v", err)
	}
	_, err := cat.Get("lol")
	if err != ErrNotFound {
		t.Errorf("Get(unknown) error = %v, want %v", err, ErrNotFound)
	}
	if !errors.Is(err, core.ErrNotFound) {
		t.Error("ErrNotFound does not match core.ErrNotFound")
	}
}

func TestCatalog_Filter(t *testing.T) {
	cat, _ := DefaultCatalog()

	tests := []struct {
		name   string
		filter QueryFilter
		want   []string
	}{
		{name: "no filter", want: []string{"full-stack-odyssey", "data-driven-decisions", "pixel-perfect-interfaces", "digital-fortress"}},
		{name: "search title", filter: QueryFilter{Search: "FORTRESS"}, want: []string{"digital-fortress"}},
		{name: "search description", filter: QueryFilter{Search: "machine learning"}, want: []string{"data-driven-decisions"}},
		{name: "category", filter: QueryFilter{Category: CategoryUIUXDesign}, want: []string{"pixel-perfect-interfaces"}},
		{name: "duration", filter: QueryFilter{Duration: "12 Weeks"}, want: []string{"full-stack-odyssey", "digital-fortress"}},
		{name: "duration and category", filter: QueryFilter{Duration: "12 Weeks", Category: CategoryCybersecurity}, want: []string{"digital-fortress"}},
		{name: "no match", filter: QueryFilter{Search: "lol"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cat.Filter(tt.filter)
			if len(got) != len(tt.want) {
				t.Fatalf("Filter() returned %d programs, want %d", len(got), len(tt.want))
			}
			for i, p := range got {
				if p.ID != tt.want[i] {
					t.Errorf("Filter()[%d] = %s, want %s", i, p.ID, tt.want[i])
				}
			}
		})
	}
}

func TestCatalog_CategoriesAndDurations(t *testing.T) {
	cat, _ := DefaultCatalog()

	if got := cat.Categories(); len(got) != 4 || got[0] != CategoryWebDevelopment {
		t.Errorf("Categories() = %v", got)
	}
	if got := cat.Durations(); len(got) != 3 {
		t.Errorf("Durations() = %v, want 3 distinct durations", got)
	}
}

func TestNewCatalog_invalid(t *testing.T) {
	tests := []struct {
		name     string
		programs []Program
	}{
		{name: "missing id", programs: []Program{{Title: "A", Category: CategoryDataScience}}},
		{name: "duplicated id", programs: []Program{
			{ID: "a", Title: "A", Category: CategoryDataScience},
			{ID: "A", Title: "B", Category: CategoryDataScience},
		}},
		{name: "unknown category", programs: []Program{{ID: "a", Title: "A", Category: "Cooking"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCatalog(tt.programs); err == nil {
				t.Error("NewCatalog() error = nil, want error")
			}
		})
	}
}

func TestLoadCatalog_sortsCurriculum(t *testing.T) {
	fsys := fstest.MapFS{
		"programs.yaml": {Data: []byte(`
- id: x
  title: X
  category: Cybersecurity
  curriculum:
    - {module: 2, title: second}
    - {module: 1, title: first}
`)},
	}
	cat, err := LoadCatalog(fsys, "programs.yaml")
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	p, _ := cat.Get("x")
	if p.Curriculum[0].Title != "first" || p.Curriculum[1].Title != "second" {
		t.Errorf("Curriculum = %+v, want ordered by module", p.Curriculum)
	}
}
