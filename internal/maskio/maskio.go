// Package maskio lists, reads and decodes mask image files.
package maskio

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Mask is a mask file read into memory.
type Mask struct {
	Path string
	Data []byte
}

// Read loads the file at path without decoding it.
func Read(path string) (*Mask, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mask: %w", err)
	}
	return &Mask{Path: path, Data: data}, nil
}

// Digest returns the hex MD5 of the file contents.
func (m *Mask) Digest() string {
	sum := md5.Sum(m.Data)
	return hex.EncodeToString(sum[:])
}

// Decode decodes the file contents with whichever registered format matches.
func (m *Mask) Decode() (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(m.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(m.Path), err)
	}
	return img, nil
}

// Load reads and decodes the file at path.
func Load(path string) (image.Image, error) {
	m, err := Read(path)
	if err != nil {
		return nil, err
	}
	return m.Decode()
}

// List returns the base names of the regular files in dir, sorted. Dotfiles
// and sub-directories are skipped; every other file is listed whether or
// not it decodes.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list masks: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Paths joins dir with each name.
func Paths(dir string, names []string) []string {
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths
}

// SupportedFormats returns the list of decodable extensions.
func SupportedFormats() []string {
	return []string{".png", ".bmp", ".gif", ".tiff", ".tif", ".webp", ".jpg", ".jpeg"}
}

// IsSupportedFormat checks if the given path has a supported image format.
// Lossy formats are accepted but rarely survive exact color matching.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
