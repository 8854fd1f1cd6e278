package datasource

import (
	"context"
	"io"
	"strings"
	"testing"

	"sqlview/internal/datasource/file"
	"sqlview/internal/datasource/httpds"
)

func TestResolve(t *testing.T) {
	t.Parallel()
	if _, ok := Resolve("-", nil).(Stdin); !ok {
		t.Error(`Resolve("-") is not Stdin`)
	}
	if _, ok := Resolve("HTTPS://example.com/a.csv", nil).(*httpds.URL); !ok {
		t.Error("Resolve(url) is not an httpds.URL")
	}
	if _, ok := Resolve("data/a.csv", nil).(*file.Local); !ok {
		t.Error("Resolve(path) is not a file.Local")
	}
}

func TestBaseName(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"people.csv":                         "people",
		"/data/2024/Sales Report.csv":        "Sales Report",
		`C:\data\towns.tsv`:                  "towns",
		"https://example.com/x/cars.csv?v=2": "cars",
		"https://example.com/export#frag":    "export",
		"noext":                              "noext",
		".hidden":                            ".hidden",
		"-":                                  "stdin",
	}
	for in, want := range tests {
		if got := BaseName(in); got != want {
			t.Errorf("BaseName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStdin(t *testing.T) {
	t.Parallel()
	src := Resolver{Stdin: strings.NewReader("a\n1\n")}.Resolve("-")
	rc, err := src.Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "a\n1\n" {
		t.Fatalf("read %q", b)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (Stdin{}).Open(ctx); err == nil {
		t.Fatal("Open with canceled context succeeded")
	}
}
