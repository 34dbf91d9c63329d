package native

import (
	"debug/elf"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/localstack/lambda-native-bridge/internal/utils"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const (
	optLibDir    = "/opt/lib"
	taskRootDir  = "/var/task"
	taskRootEnv  = "LAMBDA_TASK_ROOT"
	DefaultEntry = "Lambda"
)

var (
	ErrLibraryNotFound = errors.New("native library not found")
	ErrCgoRequired     = errors.New("loading a native library requires a cgo enabled build")
)

// LoadError wraps every failure of the bootstrap loader. It is fatal for the process.
type LoadError struct {
	Path   string
	Symbol string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load entry point %s from %q: %s", e.Symbol, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

type LoadOptions struct {
	// Path of the library, skips the lookup when set.
	Path string
	// Name is the file name searched for in SearchDirs.
	Name string
	// Symbol is the exported entry point, DefaultEntry when empty.
	Symbol string
	// SearchDirs defaults to DefaultSearchDirs.
	SearchDirs []string
}

// DefaultSearchDirs returns the task root followed by the layer library directory.
func DefaultSearchDirs() []string {
	dirs := []string{utils.GetEnvWithDefault(taskRootEnv, taskRootDir), optLibDir, taskRootDir}
	seen := map[string]bool{}
	unique := dirs[:0]
	for _, dir := range dirs {
		if !seen[dir] {
			seen[dir] = true
			unique = append(unique, dir)
		}
	}
	return unique
}

func isReadableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return unix.Access(path, unix.R_OK) == nil
}

// Locate resolves the library path from opts.
func Locate(opts LoadOptions) (string, error) {
	if opts.Path != "" {
		if !isReadableFile(opts.Path) {
			return "", fmt.Errorf("%w: %s is not a readable file", ErrLibraryNotFound, opts.Path)
		}
		return opts.Path, nil
	}
	if opts.Name == "" {
		return "", fmt.Errorf("%w: neither a path nor a library name is configured", ErrLibraryNotFound)
	}

	searchDirs := opts.SearchDirs
	if searchDirs == nil {
		searchDirs = DefaultSearchDirs()
	}
	for _, dir := range searchDirs {
		candidate := filepath.Join(dir, opts.Name)
		if isReadableFile(candidate) {
			return candidate, nil
		}
		log.WithField("candidate", candidate).Debug("Native library candidate not usable")
	}
	return "", fmt.Errorf("%w: %s in %v", ErrLibraryNotFound, opts.Name, searchDirs)
}

// ValidateExport checks that the ELF dynamic symbol table of path defines symbol as a
// function. C symbols carry no parameter types, so this is as far as the declared
// signature can be verified before calling it.
func ValidateExport(path string, symbol string) error {
	f, err := elf.Open(path)
	if err != nil {
		return fmt.Errorf("not a loadable ELF object: %w", err)
	}
	defer f.Close()

	if f.Type != elf.ET_DYN {
		return fmt.Errorf("not a shared object: %s", f.Type)
	}

	symbols, err := f.DynamicSymbols()
	if err != nil {
		return fmt.Errorf("reading dynamic symbols: %w", err)
	}
	for _, s := range symbols {
		if s.Name != symbol || s.Section == elf.SHN_UNDEF {
			continue
		}
		if elf.ST_TYPE(s.Info) != elf.STT_FUNC {
			return fmt.Errorf("symbol %s is a %s, not a function", symbol, elf.ST_TYPE(s.Info))
		}
		return nil
	}
	return fmt.Errorf("symbol %s is not exported", symbol)
}

// Load locates the library, validates the export and resolves the entry point.
// It is meant to be called exactly once at process start.
func Load(opts LoadOptions) (*Library, error) {
	symbol := opts.Symbol
	if symbol == "" {
		symbol = DefaultEntry
	}

	path, err := Locate(opts)
	if err != nil {
		return nil, &LoadError{Path: opts.Path, Symbol: symbol, Err: err}
	}
	if err := ValidateExport(path, symbol); err != nil {
		return nil, &LoadError{Path: path, Symbol: symbol, Err: err}
	}

	lib, err := openLibrary(path, symbol)
	if err != nil {
		return nil, &LoadError{Path: path, Symbol: symbol, Err: err}
	}
	log.WithFields(log.Fields{
		"path":   path,
		"symbol": symbol,
	}).Info("Native library loaded")
	return lib, nil
}
