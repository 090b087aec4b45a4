package workspace

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/logfields"
)

// ManifestName is the file, relative to the pages root, listing generated pages.
const ManifestName = ".docsite-manifest"

// Layout names the directories a build regenerates.
type Layout struct {
	PagesDir        string // pages root; never removed
	CookbookDir     string // example pages and navigation metadata
	PublicAssetsDir string // relocated assets
}

// Manager handles workspace reset and the generated-file manifest.
type Manager struct {
	layout Layout
	logger *slog.Logger
}

// NewManager creates a workspace manager for layout.
func NewManager(layout Layout, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{layout: layout, logger: logger}
}

// Layout returns the managed directories.
func (m *Manager) Layout() Layout { return m.layout }

// Reset removes everything the previous run generated: the cookbook
// directory, the public assets directory and every page listed in the
// manifest. It then recreates the empty directories. Any failure is fatal.
func (m *Manager) Reset() error {
	for _, dir := range []string{m.layout.CookbookDir, m.layout.PublicAssetsDir} {
		if err := os.RemoveAll(dir); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to clear output directory").Fatal().WithContext("path", dir).Build()
		}
	}

	generated, err := m.ReadManifest()
	if err != nil {
		return err
	}
	removed := 0
	for _, rel := range generated {
		path := filepath.Join(m.layout.PagesDir, filepath.FromSlash(rel))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to remove generated page").Fatal().WithContext("path", path).Build()
		}
		removed++
	}
	if len(generated) > 0 {
		m.pruneEmptyDirs(generated)
	}

	for _, dir := range []string{m.layout.PagesDir, m.layout.CookbookDir, m.layout.PublicAssetsDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to create output directory").Fatal().WithContext("path", dir).Build()
		}
	}

	m.logger.Debug("Workspace reset", logfields.Path(m.layout.PagesDir), logfields.Count(removed))
	return nil
}

// pruneEmptyDirs removes directories left empty by manifest cleanup, deepest first.
func (m *Manager) pruneEmptyDirs(generated []string) {
	seen := map[string]struct{}{}
	var dirs []string
	for _, rel := range generated {
		for dir := filepath.Dir(filepath.FromSlash(rel)); dir != "." && dir != string(filepath.Separator); dir = filepath.Dir(dir) {
			if _, ok := seen[dir]; ok {
				break
			}
			seen[dir] = struct{}{}
			dirs = append(dirs, dir)
		}
	}
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		// Remove fails on non-empty directories, which is what we want.
		_ = os.Remove(filepath.Join(m.layout.PagesDir, dir))
	}
}

// ReadManifest returns the slash-separated page paths recorded by the last run.
// A missing manifest yields an empty list.
func (m *Manager) ReadManifest() ([]string, error) {
	path := m.manifestPath()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read manifest").Fatal().WithContext("path", path).Build()
	}

	var entries []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !safeRelative(line) {
			m.logger.Warn("Ignoring unsafe manifest entry", logfields.Path(line))
			continue
		}
		entries = append(entries, line)
	}
	return entries, nil
}

// WriteManifest records the pages generated by this run, relative to the pages root.
func (m *Manager) WriteManifest(generated []string) error {
	entries := append([]string(nil), generated...)
	sort.Strings(entries)

	var buf bytes.Buffer
	buf.WriteString("# Generated by docsite. Listed pages are removed on the next build.\n")
	prev := ""
	for _, e := range entries {
		if e == prev {
			continue
		}
		prev = e
		buf.WriteString(e)
		buf.WriteByte('\n')
	}

	if err := os.WriteFile(m.manifestPath(), buf.Bytes(), 0o644); err != nil { //nolint:gosec // not sensitive
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write manifest").WithContext("path", m.manifestPath()).Build()
	}
	return nil
}

// Relative converts an absolute page path to its manifest form.
func (m *Manager) Relative(path string) (string, error) {
	rel, err := filepath.Rel(m.layout.PagesDir, path)
	if err != nil {
		return "", fmt.Errorf("page %s outside pages root: %w", path, err)
	}
	return filepath.ToSlash(rel), nil
}

func (m *Manager) manifestPath() string {
	return filepath.Join(m.layout.PagesDir, ManifestName)
}

func safeRelative(p string) bool {
	if filepath.IsAbs(p) || strings.HasPrefix(p, "/") {
		return false
	}
	clean := filepath.ToSlash(filepath.Clean(filepath.FromSlash(p)))
	return clean != ".." && !strings.HasPrefix(clean, "../")
}
