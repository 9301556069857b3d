// Package sink writes rendered segments into the output directory.
package sink

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathInvalid is returned for file names that are empty, absolute or escape
// the output directory.
var ErrPathInvalid = errors.New("path invalid")

// Options configures a Dir sink.
type Options struct {
	// Dir is the output directory. Required.
	Dir string
	// Clean removes existing *.sql files from Dir before the first write, so a
	// rerun never leaves stale parts behind.
	Clean bool
	// Keep lists files that are never removed by Clean nor overwritten by
	// Write, such as the source dump when it lives in Dir.
	Keep []string
	// PermFile and PermDir default to 0644 and 0755.
	PermFile os.FileMode
	PermDir  os.FileMode
}

// Dir writes files below one directory using temp file + rename.
type Dir struct {
	root     string
	clean    bool
	keep     []string
	permFile os.FileMode
	permDir  os.FileMode
	prepared bool
}

// New creates a directory sink.
func New(opts Options) (*Dir, error) {
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, fmt.Errorf("output directory is required: %w", ErrPathInvalid)
	}
	pf := opts.PermFile
	if pf == 0 {
		pf = 0o644
	}
	pd := opts.PermDir
	if pd == 0 {
		pd = 0o755
	}
	return &Dir{root: opts.Dir, clean: opts.Clean, keep: opts.Keep, permFile: pf, permDir: pd}, nil
}

// Root returns the output directory.
func (d *Dir) Root() string { return d.root }

// Prepare creates the output directory and, with Clean set, removes old SQL
// files other than those in Keep. It runs once; Write calls it implicitly.
func (d *Dir) Prepare() error {
	if d.prepared {
		return nil
	}
	if err := os.MkdirAll(d.root, d.permDir); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if d.clean {
		stale, err := filepath.Glob(filepath.Join(d.root, "*.sql"))
		if err != nil {
			return err
		}
		kept := d.keptFiles()
		for _, f := range stale {
			if isKept(f, kept) {
				continue
			}
			if err := os.Remove(f); err != nil {
				return fmt.Errorf("failed to remove %s: %w", f, err)
			}
		}
	}
	d.prepared = true
	return nil
}

// keptFiles stats the Keep list; missing files need no protection and are
// dropped.
func (d *Dir) keptFiles() []os.FileInfo {
	var kept []os.FileInfo
	for _, k := range d.keep {
		if k == "" {
			continue
		}
		if fi, err := os.Stat(k); err == nil {
			kept = append(kept, fi)
		}
	}
	return kept
}

// isKept matches by file identity, not by path spelling.
func isKept(path string, kept []os.FileInfo) bool {
	if len(kept) == 0 {
		return false
	}
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	for _, k := range kept {
		if os.SameFile(fi, k) {
			return true
		}
	}
	return false
}

// Write stores text under name and returns the destination path.
func (d *Dir) Write(ctx context.Context, name, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dest, err := d.mapPath(name)
	if err != nil {
		return "", err
	}
	if err := d.Prepare(); err != nil {
		return "", err
	}
	if isKept(dest, d.keptFiles()) {
		return "", fmt.Errorf("%q would overwrite a protected file: %w", name, ErrPathInvalid)
	}
	if err := os.MkdirAll(filepath.Dir(dest), d.permDir); err != nil {
		return "", err
	}
	if err := d.writeAtomic(dest, text); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return dest, nil
}

// mapPath joins name below the root, rejecting absolute and escaping names.
func (d *Dir) mapPath(name string) (string, error) {
	rel := filepath.Clean(name)
	switch {
	case name == "" || rel == "." || rel == "..":
		return "", fmt.Errorf("%q: %w", name, ErrPathInvalid)
	case filepath.IsAbs(rel) || filepath.VolumeName(rel) != "":
		return "", fmt.Errorf("%q: %w", name, ErrPathInvalid)
	case strings.HasPrefix(rel, ".."+string(filepath.Separator)):
		return "", fmt.Errorf("%q: %w", name, ErrPathInvalid)
	}
	return filepath.Join(d.root, rel), nil
}

func (d *Dir) writeAtomic(dest, text string) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Chmod(tmpPath, d.permFile); err != nil {
		return fail(err)
	}
	bw := bufio.NewWriter(tmp)
	if _, err := bw.WriteString(text); err != nil {
		return fail(err)
	}
	if err := bw.Flush(); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
