// Package source turns command-line arguments into ordered fragment sources.
//
// Arguments are files, directories or "-" for standard input. Files are
// taken as given and in argument order. Directories are walked in lexical
// order and contribute files matching the include globs and none of the
// exclude globs. A file reached twice is loaded once, at its first position.
package source

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dshills/gradlerec/internal/fragment"
	"github.com/dshills/gradlerec/internal/pathglob"
)

// StdinLabel labels a fragment read from standard input.
const StdinLabel = "<stdin>"

// DefaultInclude matches Groovy and Kotlin build scripts.
var DefaultInclude = []string{"*.gradle", "*.gradle.kts"}

// DefaultExclude skips build outputs and Gradle's own caches.
var DefaultExclude = []string{"**/build/**", "**/.gradle/**", "**/.git/**"}

// ErrNoSources is returned when the arguments yield no fragments.
var ErrNoSources = errors.New("no build fragments found")

// Options controls Collect.
type Options struct {
	Include []string
	Exclude []string
	// Stdin is read for the "-" argument; nil means os.Stdin.
	Stdin io.Reader
}

// Collect expands args into file paths in reconciliation order. The "-"
// argument is returned as is.
func Collect(args []string, opts Options) ([]string, error) {
	include := opts.Include
	if len(include) == 0 {
		include = DefaultInclude
	}
	exclude := opts.Exclude
	if exclude == nil {
		exclude = DefaultExclude
	}

	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, arg := range args {
		if arg == "-" {
			add(arg)
			continue
		}
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", arg, err)
		}
		if !info.IsDir() {
			add(filepath.ToSlash(filepath.Clean(arg)))
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			r, relErr := filepath.Rel(arg, path)
			if relErr != nil {
				return relErr
			}
			// Globs are matched relative to the scanned directory.
			rel := filepath.ToSlash(r)
			if d.IsDir() {
				if path != arg && pathglob.MatchAny(rel+"/x", exclude, '/') {
					return filepath.SkipDir
				}
				return nil
			}
			if !pathglob.MatchAny(rel, include, '/') || pathglob.MatchAny(rel, exclude, '/') {
				return nil
			}
			add(filepath.ToSlash(filepath.Clean(path)))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", arg, err)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoSources
	}
	return out, nil
}

// Load reads the collected paths into fragment sources labelled by path.
func Load(paths []string, stdin io.Reader) ([]fragment.Source, error) {
	if stdin == nil {
		stdin = os.Stdin
	}
	sources := make([]fragment.Source, 0, len(paths))
	for _, p := range paths {
		var (
			data  []byte
			err   error
			label = p
		)
		if p == "-" {
			label = StdinLabel
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(p)
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", label, err)
		}
		sources = append(sources, fragment.Source{Label: label, Content: data})
	}
	return sources, nil
}

// Gather is Collect followed by Load.
func Gather(args []string, opts Options) ([]fragment.Source, error) {
	paths, err := Collect(args, opts)
	if err != nil {
		return nil, err
	}
	return Load(paths, opts.Stdin)
}
