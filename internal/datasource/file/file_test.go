package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

func TestLocalOpen(t *testing.T) {
	t.Parallel()

	p := writeFile(t, "a.csv", "n\n1\n")
	l := NewLocal(p)
	rc, err := l.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "n\n1\n" {
		t.Fatalf("content = %q", b)
	}
	if l.Size() != 4 {
		t.Fatalf("Size = %d, want 4", l.Size())
	}

	missing := NewLocal(filepath.Join(t.TempDir(), "missing.csv"))
	_, err = missing.Open(context.Background())
	if !errors.Is(err, os.ErrNotExist) || !strings.Contains(err.Error(), "missing.csv") {
		t.Fatalf("err = %v, want wrapped ErrNotExist with the path", err)
	}
	if missing.Size() != -1 {
		t.Fatalf("Size of missing file = %d", missing.Size())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Open(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestReadList(t *testing.T) {
	t.Parallel()
	p := writeFile(t, "binds.txt", `
# bindings
people=people.csv
   # indented comment
towns=towns.csv

   cars=https://example.com/cars.csv
`)
	got, err := ReadList(p)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"people=people.csv", "towns=towns.csv", "cars=https://example.com/cars.csv"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ReadList = %v, want %v", got, want)
	}

	if _, err := ReadList(filepath.Join(t.TempDir(), "none")); err == nil {
		t.Fatal("ReadList of missing file succeeded")
	}
}
