package attributes

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestStyledCaption(t *testing.T) {
	tests := []struct {
		name  string
		attrs []string
		want  string
	}{
		{
			name:  "no attributes",
			attrs: nil,
			want:  "A female suspect with short hair, no beard, and a neutral expression.",
		},
		{
			name:  "male with blond hair and smile",
			attrs: []string{"Male", "Blond_Hair", "Smiling"},
			want:  "A male suspect with blond hair, no beard, and a smiling expression.",
		},
		{
			name:  "bald beats hair color",
			attrs: []string{"Male", "Bald", "Black_Hair"},
			want:  "A male suspect with bald head, no beard, and a neutral expression.",
		},
		{
			name:  "goatee counts as facial hair",
			attrs: []string{"Male", "Brown_Hair", "Goatee"},
			want:  "A male suspect with brown hair, with facial hair, and a neutral expression.",
		},
		{
			name:  "later emotion flags win",
			attrs: []string{"Smiling", "Sad"},
			want:  "A female suspect with short hair, no beard, and a sad face.",
		},
		{
			name:  "surprised beats everything",
			attrs: []string{"Smiling", "Angry", "Sad", "Surprised"},
			want:  "A female suspect with short hair, no beard, and a surprised expression.",
		},
		{
			name:  "gray hair",
			attrs: []string{"Gray_Hair", "Beard"},
			want:  "A female suspect with gray hair, with facial hair, and a neutral expression.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := StyledCaption(tc.attrs)
			if got != tc.want {
				t.Errorf("StyledCaption(%v) = %q, want %q", tc.attrs, got, tc.want)
			}
		})
	}
}

func TestBuildProfileHairPrecedence(t *testing.T) {
	p := BuildProfile([]string{"Black_Hair", "Blond_Hair", "Brown_Hair", "Gray_Hair"})
	if p.Hair != "black hair" {
		t.Errorf("Hair = %q, want black hair", p.Hair)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "list_attr_celeba.csv")

	content := "image_id,Male,Smiling,Black_Hair,Goatee\n" +
		"000001.jpg,1,1,-1,-1\n" +
		"000002.jpg,-1,-1,1,1\n" +
		"000003.jpg,-1,-1,-1,-1\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	table, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if table.Len() != 3 {
		t.Errorf("Len = %d, want 3", table.Len())
	}
	if cols := table.Columns(); !reflect.DeepEqual(cols, []string{"Male", "Smiling", "Black_Hair", "Goatee"}) {
		t.Errorf("Columns = %v", cols)
	}

	attrs, ok := table.Positive("000001.jpg")
	if !ok {
		t.Fatal("expected row for 000001.jpg")
	}
	if !reflect.DeepEqual(attrs, []string{"Male", "Smiling"}) {
		t.Errorf("Positive(000001.jpg) = %v", attrs)
	}

	attrs, ok = table.Positive("000003.jpg")
	if !ok {
		t.Fatal("expected row for 000003.jpg")
	}
	if len(attrs) != 0 {
		t.Errorf("Positive(000003.jpg) = %v, want empty", attrs)
	}

	if _, ok := table.Positive("missing.jpg"); ok {
		t.Error("expected no row for missing image")
	}
}

func TestLoadMissingIDColumn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(path, []byte("name,Male\nx,1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing image_id column")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
