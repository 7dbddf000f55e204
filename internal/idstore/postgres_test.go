package idstore

import "testing"

func TestPageQuery(t *testing.T) {
	tests := []struct {
		table string
		want  string
	}{
		{"", `SELECT id, name FROM "collection_ids" WHERE page = $1 ORDER BY position`},
		{"ids_2024", `SELECT id, name FROM "ids_2024" WHERE page = $1 ORDER BY position`},
		{`bad"name`, `SELECT id, name FROM "bad""name" WHERE page = $1 ORDER BY position`},
	}

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			if got := pageQuery(tt.table); got != tt.want {
				t.Errorf("pageQuery(%q) = %q, want %q", tt.table, got, tt.want)
			}
		})
	}
}
