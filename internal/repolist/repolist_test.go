package repolist

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParseText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "newline separated",
			input: "acme/widget\nacme/api",
			want:  []string{"acme/widget", "acme/api"},
		},
		{
			name:  "comma separated",
			input: "acme/widget, acme/api",
			want:  []string{"acme/widget", "acme/api"},
		},
		{
			name:  "mixed with blanks and comments",
			input: "acme/widget\n\n# skip me\nacme/api, acme/web\n   ",
			want:  []string{"acme/widget", "acme/api", "acme/web"},
		},
		{
			name:  "windows line endings",
			input: "acme/widget\r\nacme/api",
			want:  []string{"acme/widget", "acme/api"},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
		{
			name:  "only comments",
			input: "# one\n# two",
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseText(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseText(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	content := `# repos to onboard
repo,notes
acme/widget,main service
acme/api
acme/web,  frontend

# done
`
	path := filepath.Join(t.TempDir(), "repos.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() = %v", err)
	}
	want := []string{"acme/widget", "acme/api", "acme/web"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseFile() = %v, want %v", got, want)
	}
}

func TestParseFileMissing(t *testing.T) {
	if _, err := ParseFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("ParseFile() = nil, want error for missing file")
	}
}
