package database

import (
	"reflect"
	"testing"
)

func TestAllowedOriginsSlice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty", raw: "", want: nil},
		{name: "single", raw: "http://localhost:3000", want: []string{"http://localhost:3000"}},
		{
			name: "multiple with spaces",
			raw:  "http://a.example, http://b.example",
			want: []string{"http://a.example", "http://b.example"},
		},
		{
			name: "duplicates removed",
			raw:  "http://a.example,http://a.example",
			want: []string{"http://a.example"},
		},
		{name: "blank entries skipped", raw: ",,http://a.example,", want: []string{"http://a.example"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := AllowedOriginsSlice(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AllowedOriginsSlice(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
