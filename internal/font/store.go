package font

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/image/font/gofont/gomono"
)

// ErrFontNotFound is returned when no glyph set matches a name
var ErrFontNotFound = errors.New("font not found")

// DefaultFont is the built-in glyph set used when none is configured
const DefaultFont = "dot_5x7"

// rasterPrefix selects Go Mono rasterized at the pixel size after the prefix
const rasterPrefix = "gomono_"

//go:embed fonts/*.yaml
var builtinFonts embed.FS

// Store resolves fonts by name and keeps them in memory after the first load.
// Lookup order: loaded cache, built-in glyph sets, YAML files in the font
// directory, then rasterized gomono_<px> fonts.
type Store struct {
	mu       sync.Mutex
	dir      string
	fallback string
	fonts    map[string]*Font
	logger   *zap.Logger
}

// NewStore creates a font store. dir may be empty.
func NewStore(dir string, logger *zap.Logger) *Store {
	return &Store{
		dir:      dir,
		fallback: DefaultFont,
		fonts:    make(map[string]*Font),
		logger:   logger,
	}
}

// SetDefault changes the font used when a request names none
func (s *Store) SetDefault(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name != "" {
		s.fallback = name
	}
}

// Default returns the name of the fallback font
func (s *Store) Default() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fallback
}

// Get returns the named font, loading it on first use
func (s *Store) Get(name string) (*Font, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		name = s.fallback
	}

	if f, ok := s.fonts[name]; ok {
		return f, nil
	}

	f, err := s.load(name)
	if err != nil {
		return nil, err
	}
	s.fonts[name] = f

	s.logger.Debug("Loaded font",
		zap.String("font", name),
		zap.Int("height", f.Height),
		zap.Int("glyphs", f.GlyphCount()))

	return f, nil
}

func (s *Store) load(name string) (*Font, error) {
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return nil, fmt.Errorf("%w: invalid font name %q", ErrFontNotFound, name)
	}

	if data, err := builtinFonts.ReadFile("fonts/" + name + ".yaml"); err == nil {
		return ParseGlyphSet(data)
	}

	if s.dir != "" {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(s.dir, name+ext)
			if _, err := os.Stat(path); err == nil {
				f, err := LoadGlyphSet(path)
				if err != nil {
					return nil, err
				}
				if f.Name != name {
					return nil, fmt.Errorf("font file %s declares name %q", path, f.Name)
				}
				return f, nil
			}
		}
	}

	if strings.HasPrefix(name, rasterPrefix) {
		px, err := strconv.Atoi(strings.TrimPrefix(name, rasterPrefix))
		if err != nil {
			return nil, fmt.Errorf("%w: bad pixel size in %q", ErrFontNotFound, name)
		}
		return Rasterize(name, gomono.TTF, px)
	}

	return nil, fmt.Errorf("%w: %q (available: %s)", ErrFontNotFound, name, strings.Join(s.namesLocked(), ", "))
}

// Names lists the fonts that can be loaded by name. Rasterized fonts are
// listed only once loaded.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.namesLocked()
}

func (s *Store) namesLocked() []string {
	seen := make(map[string]bool)
	for name := range s.fonts {
		seen[name] = true
	}

	if entries, err := builtinFonts.ReadDir("fonts"); err == nil {
		for _, e := range entries {
			seen[strings.TrimSuffix(e.Name(), ".yaml")] = true
		}
	}

	if s.dir != "" {
		entries, err := os.ReadDir(s.dir)
		if err != nil {
			s.logger.Warn("Failed to read font directory", zap.String("dir", s.dir), zap.Error(err))
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ext := filepath.Ext(e.Name())
			if ext == ".yaml" || ext == ".yml" {
				seen[strings.TrimSuffix(e.Name(), ext)] = true
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadDir eagerly loads every glyph set in the font directory so that broken
// files are reported at startup. Files that fail to parse are logged and
// skipped.
func (s *Store) LoadDir() (int, error) {
	if s.dir == "" {
		return 0, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read font directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ext)
		if _, err := s.Get(name); err != nil {
			s.logger.Warn("Failed to load font", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		loaded++
	}
	return loaded, nil
}
