package csvsrc

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestNormalizeName(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"Name":             "name",
		"  Příjmení ":      "prijmeni",
		"Date of Birth":    "date_of_birth",
		"a--b..c":          "a_b_c",
		"__x__":            "x",
		"2nd place":        "_2nd_place",
		"€$%":              "col",
		"Ünïcödé-Çolumn.1": "unicode_column_1",
	}
	for in, want := range tests {
		if got := NormalizeName(in); got != want {
			t.Errorf("NormalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCoerce(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want any
	}{
		{"", nil},
		{"42", int64(42)},
		{"-7", int64(-7)},
		{"3.5", 3.5},
		{"1e3", 1000.0},
		{"TRUE", true},
		{"false", false},
		{"NaN", "NaN"},
		{"inf", "inf"},
		{"0x10", "0x10"},
		{"hello", "hello"},
		{"99999999999999999999", 1e20},
	}
	for _, tt := range tests {
		if got := Coerce(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Coerce(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestParseComma(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]rune{"": ',', ",": ',', ";": ';', `\t`: '\t', "|": '|'} {
		got, err := ParseComma(in)
		if err != nil || got != want {
			t.Errorf("ParseComma(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, in := range []string{";;", `"`, "\n"} {
		if _, err := ParseComma(in); err == nil {
			t.Errorf("ParseComma(%q) succeeded", in)
		}
	}
}

func TestSource_ReadAll(t *testing.T) {
	t.Parallel()
	in := "\uFEFFId;Full Name;Score;Active\n1; Ada ;9.5;true\n2;Bob;;false\n"
	src, err := NewSource(strings.NewReader(in), Options{Comma: ';', NormalizeHeaders: true})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := src.Columns(), []string{"id", "full_name", "score", "active"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Columns = %v, want %v", got, want)
	}
	rows, err := src.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := [][]any{
		{int64(1), "Ada", 9.5, true},
		{int64(2), "Bob", nil, false},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %#v, want %#v", rows, want)
	}
}

func TestSource_RawAndDuplicateHeaders(t *testing.T) {
	t.Parallel()
	src, err := NewSource(strings.NewReader("a,a,,b\n1,2,3,4\n"), Options{Raw: true})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := src.Columns(), []string{"a", "a_2", "col_2", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Columns = %v, want %v", got, want)
	}
	rows, err := src.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if want := [][]any{{"1", "2", "3", "4"}}; !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
}

func TestSource_WidthMismatch(t *testing.T) {
	t.Parallel()
	data := "a,b\n1,2\n3\n4,5\n"

	src, err := NewSource(strings.NewReader(data), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := src.ReadAll(); err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("err = %v, want a line 3 width error", err)
	}

	var bad []int
	src, err = NewSource(strings.NewReader(data), Options{OnError: func(line int, _ error) { bad = append(bad, line) }})
	if err != nil {
		t.Fatal(err)
	}
	rows, err := src.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || !reflect.DeepEqual(bad, []int{3}) {
		t.Fatalf("rows = %v, bad lines = %v", rows, bad)
	}
}

func TestNewSource_Empty(t *testing.T) {
	t.Parallel()
	if _, err := NewSource(strings.NewReader(""), Options{}); !errors.Is(err, ErrNoHeader) {
		t.Fatalf("err = %v, want ErrNoHeader", err)
	}
}

func TestSource_Stream(t *testing.T) {
	t.Parallel()
	src, err := NewSource(strings.NewReader("n\n1\n2\n3\n"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	out := make(chan []any, 8)
	if err := src.Stream(context.Background(), out); err != nil {
		t.Fatal(err)
	}
	close(out)
	var got []any
	for row := range out {
		got = append(got, row[0])
	}
	if want := []any{int64(1), int64(2), int64(3)}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSource_StreamCanceled(t *testing.T) {
	t.Parallel()
	src, err := NewSource(strings.NewReader("n\n1\n2\n"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := src.Stream(ctx, make(chan []any)); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
