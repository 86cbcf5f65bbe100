// Package imageset turns a folder of annotated UI screenshots into inline
// image content blocks ready to be attached to a model message.
package imageset

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cexll/architect-go/pkg/model"
)

var (
	// ErrFolderNotFound reports a missing or non-directory image folder.
	ErrFolderNotFound = errors.New("imageset: folder not found")
	// ErrNoImages reports a folder without a single supported image file.
	ErrNoImages = errors.New("imageset: no image files found")
	// ErrUnsupportedType reports a file whose MIME type cannot be guessed.
	ErrUnsupportedType = errors.New("imageset: unsupported image type")
)

// Extension allow-list with the media type each one maps to. The table beats
// mime.TypeByExtension here because the OS mime database may not know .bmp.
var supportedExts = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".bmp":  "image/bmp",
}

// Load gathers every supported image under dir (non-recursive), sorted by
// filename ascending, and returns one base64 image block per file. The bytes
// are encoded as-is: no resizing, transcoding, or content validation.
func Load(dir string) ([]model.ContentBlock, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrFolderNotFound, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("imageset: read folder %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := supportedExts[ext]; ok {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoImages, dir)
	}
	sort.Strings(names)

	blocks := make([]model.ContentBlock, 0, len(names))
	for _, name := range names {
		block, err := encode(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

func encode(path string) (model.ContentBlock, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mediaType, ok := supportedExts[ext]
	if !ok {
		mediaType = mime.TypeByExtension(ext)
	}
	if mediaType == "" {
		return model.ContentBlock{}, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ContentBlock{}, fmt.Errorf("imageset: read %s: %w", path, err)
	}
	return model.ImageBlock(mediaType, base64.StdEncoding.EncodeToString(data)), nil
}
