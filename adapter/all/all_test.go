package all

import (
	"testing"

	"github.com/jonwraymond/dbmcp/adapter"
)

func TestFamilies(t *testing.T) {
	f := Families()
	want := []string{"clickhouse", "mongodb", "mysql", "postgresql", "redis", "sqlite", "sqlserver"}
	got := f.Types()
	if len(got) != len(want) {
		t.Fatalf("Types() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Types()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	for _, typ := range want {
		a, err := f.New(typ)
		if err != nil {
			t.Fatalf("New(%q) error = %v", typ, err)
		}
		if a.Type() != typ {
			t.Errorf("New(%q).Type() = %q", typ, a.Type())
		}
		if a.State() != adapter.StateDisconnected {
			t.Errorf("New(%q).State() = %q, want disconnected", typ, a.State())
		}
		if len(a.Tools(adapter.Config{})) == 0 {
			t.Errorf("New(%q) exposes no tools", typ)
		}
	}
}
