package imageset

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cexll/architect-go/pkg/model"
)

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadSortedBlocks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b_screen.png", []byte("png-bytes"))
	writeFile(t, dir, "a_screen.jpg", []byte("jpg-bytes"))
	writeFile(t, dir, "c_screen.webp", []byte("webp-bytes"))
	writeFile(t, dir, "notes.txt", []byte("ignored"))
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, dir, filepath.Join("nested", "d.png"), []byte("ignored"))

	blocks, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}

	wantTypes := []string{"image/jpeg", "image/png", "image/webp"}
	wantData := []string{"jpg-bytes", "png-bytes", "webp-bytes"}
	for i, block := range blocks {
		if block.Type != model.BlockImage {
			t.Errorf("blocks[%d].Type = %q, want image", i, block.Type)
		}
		if block.MediaType != wantTypes[i] {
			t.Errorf("blocks[%d].MediaType = %q, want %q", i, block.MediaType, wantTypes[i])
		}
		decoded, err := base64.StdEncoding.DecodeString(block.Data)
		if err != nil {
			t.Fatalf("blocks[%d] not base64: %v", i, err)
		}
		if string(decoded) != wantData[i] {
			t.Errorf("blocks[%d] data = %q, want %q", i, decoded, wantData[i])
		}
	}
}

func TestLoadMediaTypes(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"shot.png", "image/png"},
		{"shot.jpg", "image/jpeg"},
		{"shot.jpeg", "image/jpeg"},
		{"shot.webp", "image/webp"},
		{"shot.bmp", "image/bmp"},
		{"SHOT.PNG", "image/png"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, tc.name, []byte("x"))
			blocks, err := Load(dir)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if blocks[0].MediaType != tc.want {
				t.Fatalf("media type = %q, want %q", blocks[0].MediaType, tc.want)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing folder", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope"))
		if !errors.Is(err, ErrFolderNotFound) {
			t.Fatalf("expected ErrFolderNotFound, got %v", err)
		}
	})
	t.Run("folder is a file", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "file", []byte("x"))
		_, err := Load(filepath.Join(dir, "file"))
		if !errors.Is(err, ErrFolderNotFound) {
			t.Fatalf("expected ErrFolderNotFound, got %v", err)
		}
	})
	t.Run("no images", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "notes.txt", []byte("x"))
		_, err := Load(dir)
		if !errors.Is(err, ErrNoImages) {
			t.Fatalf("expected ErrNoImages, got %v", err)
		}
	})
}

func TestDataURI(t *testing.T) {
	block := model.ImageBlock("image/png", base64.StdEncoding.EncodeToString([]byte("x")))
	want := "data:image/png;base64,eA=="
	if got := block.DataURI(); got != want {
		t.Fatalf("DataURI = %q, want %q", got, want)
	}
}
