package all

import (
	"slices"
	"testing"

	"sqlview/internal/engine"
)

func TestAllKindsRegistered(t *testing.T) {
	t.Parallel()

	got := engine.ListKinds()
	for _, want := range []string{"mssql", "mysql", "postgres", "sqlite"} {
		if !slices.Contains(got, want) {
			t.Errorf("ListKinds() = %v, missing %q", got, want)
		}
	}
}
