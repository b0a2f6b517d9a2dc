package modules

import (
	"os"
	"path/filepath"
	"strings"
)

// Fs backs the `fs` module, sandboxed to the CWD and the QuicPulse config
// directories (spec §4.5: "sandboxed to CWD and ~/.config/quicpulse/
// ~/.quicpulse/~/quicpulse with canonicalization").
type Fs struct {
	Roots []string
}

func NewFs(roots []string) Fs {
	clean := make([]string, 0, len(roots))
	for _, r := range roots {
		if abs, err := filepath.Abs(r); err == nil {
			clean = append(clean, abs)
		}
	}
	return Fs{Roots: clean}
}

func (fsys Fs) resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// Path may not exist yet; fall back to the lexical form for the
		// sandbox check (Exists/IsFile/etc. handle nonexistence themselves).
		real = abs
	}
	for _, root := range fsys.Roots {
		if real == root || strings.HasPrefix(real, root+string(filepath.Separator)) {
			return real, nil
		}
	}
	return "", &fsSandboxError{path}
}

type fsSandboxError struct{ path string }

func (e *fsSandboxError) Error() string {
	return "fs: " + e.path + " is outside the sandboxed roots"
}

func (fsys Fs) Read(path string) (string, error) {
	real, err := fsys.resolve(path)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(real)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (fsys Fs) Exists(path string) bool {
	real, err := fsys.resolve(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(real)
	return err == nil
}

func (fsys Fs) IsFile(path string) bool {
	real, err := fsys.resolve(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(real)
	return err == nil && info.Mode().IsRegular()
}

func (fsys Fs) IsDir(path string) bool {
	real, err := fsys.resolve(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(real)
	return err == nil && info.IsDir()
}

func (fsys Fs) Size(path string) (int64, error) {
	real, err := fsys.resolve(path)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(real)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (fsys Fs) List(path string) ([]string, error) {
	real, err := fsys.resolve(path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(real)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

func (Fs) Join(parts ...string) string { return filepath.Join(parts...) }
func (Fs) Dir(path string) string      { return filepath.Dir(path) }
func (Fs) Base(path string) string     { return filepath.Base(path) }
func (Fs) Ext(path string) string      { return filepath.Ext(path) }

func (fsys Fs) Object() map[string]any {
	return map[string]any{
		"read":    fsys.Read,
		"exists":  fsys.Exists,
		"is_file": fsys.IsFile,
		"is_dir":  fsys.IsDir,
		"size":    fsys.Size,
		"list":    fsys.List,
		"join":    fsys.Join,
		"dir":     fsys.Dir,
		"base":    fsys.Base,
		"ext":     fsys.Ext,
	}
}
