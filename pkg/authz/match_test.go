package authz

import "testing"

// TestMatches_Literals tests exact literal path matching
func TestMatches_Literals(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		want    bool
	}{
		{
			name:    "identical paths",
			pattern: "/admin/users",
			path:    "/admin/users",
			want:    true,
		},
		{
			name:    "different last segment",
			pattern: "/admin/users",
			path:    "/admin/groups",
			want:    false,
		},
		{
			name:    "path longer than pattern",
			pattern: "/admin",
			path:    "/admin/users",
			want:    false,
		},
		{
			name:    "pattern longer than path",
			pattern: "/admin/users",
			path:    "/admin",
			want:    false,
		},
		{
			name:    "case sensitive literals",
			pattern: "/Admin/users",
			path:    "/admin/users",
			want:    false,
		},
		{
			name:    "root matches root",
			pattern: "/",
			path:    "/",
			want:    true,
		},
		{
			name:    "relative pattern rejects absolute path",
			pattern: "admin/users",
			path:    "/admin/users",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.pattern, tt.path); got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
			}
		})
	}
}

// TestMatches_SingleSegmentWildcards tests "*" and "?" within a segment
func TestMatches_SingleSegmentWildcards(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		want    bool
	}{
		{
			name:    "star matches whole segment",
			pattern: "/admin/*",
			path:    "/admin/users",
			want:    true,
		},
		{
			name:    "star does not cross segment boundary",
			pattern: "/admin/*",
			path:    "/admin/users/42",
			want:    false,
		},
		{
			name:    "star as prefix within segment",
			pattern: "/files/*.json",
			path:    "/files/report.json",
			want:    true,
		},
		{
			name:    "star prefix rejects other extension",
			pattern: "/files/*.json",
			path:    "/files/report.yaml",
			want:    false,
		},
		{
			name:    "star matches empty remainder",
			pattern: "/files/report*",
			path:    "/files/report",
			want:    true,
		},
		{
			name:    "embedded star",
			pattern: "/nodes/node-*-status",
			path:    "/nodes/node-17-status",
			want:    true,
		},
		{
			name:    "question mark matches one char",
			pattern: "/v?/data",
			path:    "/v1/data",
			want:    true,
		},
		{
			name:    "question mark requires exactly one char",
			pattern: "/v?/data",
			path:    "/v12/data",
			want:    false,
		},
		{
			name:    "multiple stars in segment",
			pattern: "/a/*b*",
			path:    "/a/xxbyy",
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.pattern, tt.path); got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
			}
		})
	}
}

// TestMatches_MultiSegmentWildcards tests "**" across segments
func TestMatches_MultiSegmentWildcards(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		want    bool
	}{
		{
			name:    "double star matches one segment",
			pattern: "/admin/**",
			path:    "/admin/users",
			want:    true,
		},
		{
			name:    "double star matches many segments",
			pattern: "/admin/**",
			path:    "/admin/users/42/roles",
			want:    true,
		},
		{
			name:    "trailing double star matches bare prefix",
			pattern: "/admin/**",
			path:    "/admin",
			want:    true,
		},
		{
			name:    "double star does not match sibling",
			pattern: "/admin/**",
			path:    "/api/users",
			want:    false,
		},
		{
			name:    "root double star matches everything",
			pattern: "/**",
			path:    "/any/path/at/all",
			want:    true,
		},
		{
			name:    "root double star matches root",
			pattern: "/**",
			path:    "/",
			want:    true,
		},
		{
			name:    "double star in the middle",
			pattern: "/api/**/status",
			path:    "/api/v1/nodes/17/status",
			want:    true,
		},
		{
			name:    "middle double star matches zero segments",
			pattern: "/api/**/status",
			path:    "/api/status",
			want:    true,
		},
		{
			name:    "middle double star requires suffix",
			pattern: "/api/**/status",
			path:    "/api/v1/nodes",
			want:    false,
		},
		{
			name:    "double star then single star segment",
			pattern: "/**/users/*",
			path:    "/a/b/users/42",
			want:    true,
		},
		{
			name:    "consecutive double stars",
			pattern: "/a/**/**/b",
			path:    "/a/x/y/b",
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.pattern, tt.path); got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
			}
		})
	}
}

// TestMatches_Determinism verifies repeated evaluation yields stable results
func TestMatches_Determinism(t *testing.T) {
	pattern, path := "/api/**/items/*.json", "/api/v2/a/b/items/x.json"
	first := Matches(pattern, path)
	for i := 0; i < 100; i++ {
		if got := Matches(pattern, path); got != first {
			t.Fatalf("Matches(%q, %q) unstable: got %v then %v", pattern, path, first, got)
		}
	}
}
