package tags

import (
	"reflect"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Car", "car"},
		{"  series:Cars ", "series:cars"},
		{"maker :  ford", "maker:ford"},
		{"big   red  car", "big red car"},
		{":smile", "smile"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := Clean(tt.raw); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSplitCombine(t *testing.T) {
	tests := []struct {
		tag, namespace, subtag string
	}{
		{"car", "", "car"},
		{"series:cars", "series", "cars"},
		{"title:a:b", "title", "a:b"},
	}

	for _, tt := range tests {
		ns, sub := Split(tt.tag)
		if ns != tt.namespace || sub != tt.subtag {
			t.Errorf("Split(%q) = (%q, %q), want (%q, %q)", tt.tag, ns, sub, tt.namespace, tt.subtag)
		}
		if got := Combine(ns, sub); got != tt.tag {
			t.Errorf("Combine(%q, %q) = %q, want %q", ns, sub, got, tt.tag)
		}
	}
}

func TestRender(t *testing.T) {
	if got := Render("series:cars", true); got != "series:cars" {
		t.Errorf("Render() = %q, want series:cars", got)
	}
	if got := Render("series:cars", false); got != "cars" {
		t.Errorf("Render() = %q, want cars", got)
	}
	if got := RenderNamespace(""); got != "unnamespaced" {
		t.Errorf("RenderNamespace() = %q, want unnamespaced", got)
	}
}

func TestSort(t *testing.T) {
	tests := []struct {
		name  string
		order SortOrder
		want  []string
	}{
		{"lexicographic asc", SortLexicographicAsc, []string{"car", "maker:ford", "series:cars", "truck"}},
		{"lexicographic desc", SortLexicographicDesc, []string{"truck", "series:cars", "maker:ford", "car"}},
		{"namespace asc", SortNamespaceAsc, []string{"maker:ford", "series:cars", "car", "truck"}},
		{"namespace desc", SortNamespaceDesc, []string{"truck", "car", "series:cars", "maker:ford"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list := []string{"series:cars", "truck", "car", "maker:ford"}
			Sort(list, tt.order)
			if !reflect.DeepEqual(list, tt.want) {
				t.Errorf("Sort() = %v, want %v", list, tt.want)
			}
		})
	}
}

func TestAsPrefix(t *testing.T) {
	p := ParsePattern("c").AsPrefix()
	if p.Raw != "c*" || p.Subtag != "c*" {
		t.Errorf("AsPrefix() = %+v, want raw and subtag c*", p)
	}
	p = ParsePattern("series:c*").AsPrefix()
	if p.Raw != "series:c*" {
		t.Errorf("AsPrefix() on a wildcard changed it to %q", p.Raw)
	}
}

func TestLikePattern(t *testing.T) {
	tests := []struct{ in, want string }{
		{"c*", "c%"},
		{"100%*", `100\%%`},
		{"a_b", `a\_b`},
	}
	for _, tt := range tests {
		if got := LikePattern(tt.in); got != tt.want {
			t.Errorf("LikePattern(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseSortOrder(t *testing.T) {
	tests := []struct {
		name    string
		want    SortOrder
		grouped SortOrder
		wantErr bool
	}{
		{"lex-asc", SortLexicographicAsc, SortNamespaceAsc, false},
		{"lex-desc", SortLexicographicDesc, SortNamespaceDesc, false},
		{"ns-asc", SortNamespaceAsc, SortNamespaceAsc, false},
		{"ns-desc", SortNamespaceDesc, SortNamespaceDesc, false},
		{"sideways", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSortOrder(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSortOrder() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("ParseSortOrder() = %v, want %v", got, tt.want)
			}
			if got.Grouped() != tt.grouped {
				t.Errorf("Grouped() = %v, want %v", got.Grouped(), tt.grouped)
			}
		})
	}
}
