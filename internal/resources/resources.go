// Package resources loads fonts, stickers and LUTs referenced by filter
// specs from a directory tree:
//
//	<dir>/fonts/<name>.ttf|.otf
//	<dir>/stickers/<name>.png
//	<dir>/luts/<name>.png
//
// Loaded payloads are cached for the life of the Loader.
package resources

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"thirdcoast.systems/camerakit/pkg/filters"
)

var ErrNotFound = errors.New("resource not found")

var fontExts = []string{".ttf", ".otf"}

// Loader implements filters.Resources over a directory.
type Loader struct {
	dir string

	mu       sync.Mutex
	fonts    map[string]*opentype.Font
	stickers map[string]image.Image
	luts     map[string]*filters.LUT
	fallback *opentype.Font
}

var _ filters.Resources = (*Loader)(nil)

// New returns a Loader rooted at dir. An empty dir serves only the
// built-in fallback font.
func New(dir string) *Loader {
	return &Loader{
		dir:      dir,
		fonts:    make(map[string]*opentype.Font),
		stickers: make(map[string]image.Image),
		luts:     make(map[string]*filters.LUT),
	}
}

// Font returns the named font. Unknown fonts fall back to Go Regular so a
// missing file never drops the text overlay.
func (l *Loader) Font(name string) (*opentype.Font, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if f, ok := l.fonts[name]; ok {
		return f, nil
	}

	if path, ok := l.find("fonts", name, fontExts); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read font %s: %w", name, err)
		}
		f, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse font %s: %w", name, err)
		}
		l.fonts[name] = f
		return f, nil
	}

	if l.fallback == nil {
		f, err := opentype.Parse(goregular.TTF)
		if err != nil {
			return nil, fmt.Errorf("parse fallback font: %w", err)
		}
		l.fallback = f
	}
	slog.Warn("font not found, using Go Regular", "font", name)
	l.fonts[name] = l.fallback
	return l.fallback, nil
}

func (l *Loader) Sticker(name string) (image.Image, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if img, ok := l.stickers[name]; ok {
		return img, nil
	}
	path, ok := l.find("stickers", name, []string{".png"})
	if !ok {
		return nil, fmt.Errorf("sticker %q: %w", name, ErrNotFound)
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sticker %s: %w", name, err)
	}
	l.stickers[name] = img
	return img, nil
}

func (l *Loader) LUT(name string) (*filters.LUT, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lut, ok := l.luts[name]; ok {
		return lut, nil
	}
	path, ok := l.find("luts", name, []string{".png"})
	if !ok {
		return nil, fmt.Errorf("lut %q: %w", name, ErrNotFound)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lut %s: %w", name, err)
	}
	defer f.Close()

	lut, err := filters.DecodeLUT(name, f)
	if err != nil {
		return nil, err
	}
	l.luts[name] = lut
	return lut, nil
}

// Stickers lists the sticker names available on disk.
func (l *Loader) Stickers() []string { return l.list("stickers", []string{".png"}) }

// LUTs lists the LUT names available on disk.
func (l *Loader) LUTs() []string { return l.list("luts", []string{".png"}) }

// Fonts lists the font names available on disk.
func (l *Loader) Fonts() []string { return l.list("fonts", fontExts) }

// find resolves name inside dir/sub. Names containing path separators are
// rejected.
func (l *Loader) find(sub, name string, exts []string) (string, bool) {
	if l.dir == "" || name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", false
	}
	for _, ext := range exts {
		path := filepath.Join(l.dir, sub, name+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

func (l *Loader) list(sub string, exts []string) []string {
	if l.dir == "" {
		return nil
	}
	entries, err := os.ReadDir(filepath.Join(l.dir, sub))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to list resources", "dir", sub, "error", err)
		}
		return nil
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, want := range exts {
			if ext == want {
				names = append(names, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
				break
			}
		}
	}
	sort.Strings(names)
	return names
}
