package toolset

import (
	"testing"
)

func TestCatalog_SearchAndNamespaces(t *testing.T) {
	set, _ := newTestSet(t, Options{})

	sqlite := set.Batch("sqlite:default", "sqlite")
	_ = sqlite.AddTool(Tool{Name: "sqlite_read_query", Description: "Run a read-only SQL query.", Tags: []string{"sql", "read"}, Handler: echoTool("").Handler})
	_ = sqlite.AddTool(Tool{Name: "sqlite_list_tables", Description: "List tables in the database.", Tags: []string{"sql", "schema"}, Handler: echoTool("").Handler})
	_ = sqlite.Commit()

	redis := set.Batch("redis:default", "redis")
	_ = redis.AddTool(Tool{Name: "redis_get", Description: "Get the value of a key.", Tags: []string{"kv"}, Handler: echoTool("").Handler})
	_ = redis.Commit()

	all, err := set.Catalog().Search("", 0)
	if err != nil {
		t.Fatalf("Search(\"\") error = %v", err)
	}
	wantIDs := []string{"redis:redis_get", "sqlite:sqlite_list_tables", "sqlite:sqlite_read_query"}
	if len(all) != len(wantIDs) {
		t.Fatalf("Search(\"\") returned %d, want %d", len(all), len(wantIDs))
	}
	for i, s := range all {
		if s.ID != wantIDs[i] {
			t.Errorf("Search(\"\")[%d].ID = %q, want %q", i, s.ID, wantIDs[i])
		}
	}
	if all[2].ShortDescription != "Run a read-only SQL query" {
		t.Errorf("ShortDescription = %q", all[2].ShortDescription)
	}

	limited, _ := set.Catalog().Search("", 1)
	if len(limited) != 1 {
		t.Errorf("Search(\"\", 1) returned %d, want 1", len(limited))
	}

	hits, err := set.Catalog().Search("tables", 5)
	if err != nil {
		t.Fatalf("Search(tables) error = %v", err)
	}
	if len(hits) == 0 || hits[0].Name != "sqlite_list_tables" {
		t.Errorf("Search(tables) = %+v, want sqlite_list_tables first", hits)
	}

	ns, err := set.Catalog().Namespaces()
	if err != nil {
		t.Fatalf("Namespaces() error = %v", err)
	}
	if len(ns) != 2 || ns[0] != "redis" || ns[1] != "sqlite" {
		t.Errorf("Namespaces() = %v, want [redis sqlite]", ns)
	}
}

func TestShortDescription(t *testing.T) {
	tests := []struct{ in, want string }{
		{"One. Two.", "One"},
		{"  first line\nsecond", "first line"},
		{"no period", "no period"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := shortDescription(tt.in); got != tt.want {
			t.Errorf("shortDescription(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
