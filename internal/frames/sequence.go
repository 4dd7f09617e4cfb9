package frames

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

const (
	// ExtractedPattern is the printf pattern handed to the decoder.
	ExtractedPattern = "frame_%04d"
	// ExtractedPrefix prefixes every decoded frame name.
	ExtractedPrefix = "frame_"
	// ExportPrefix prefixes every exported 360 frame name.
	ExportPrefix = "360_"
)

// Sequence is an ordered set of frame files in a single directory.
type Sequence struct {
	Dir   string
	Names []string
}

// Len returns the number of frames.
func (s Sequence) Len() int {
	return len(s.Names)
}

// Path returns the absolute path of frame i.
func (s Sequence) Path(i int) string {
	return filepath.Join(s.Dir, s.Names[i])
}

// List returns the raster files in dir whose names start with prefix, in
// ordinal order. An empty prefix accepts every supported raster.
func List(dir, prefix string) (Sequence, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Sequence{}, fmt.Errorf("list frames in %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || !strings.HasPrefix(name, prefix) {
			continue
		}
		if !Supported(name) {
			continue
		}
		names = append(names, name)
	}
	sortByOrdinal(names, prefix)
	return Sequence{Dir: dir, Names: names}, nil
}

// ordinal parses the number between prefix and the extension. ffmpeg widens
// the field past its pad width, so frame_10000 follows frame_9999.
func ordinal(name, prefix string) (int, bool) {
	stem := strings.TrimSuffix(strings.TrimPrefix(name, prefix), filepath.Ext(name))
	n, err := strconv.Atoi(stem)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// sortByOrdinal puts numbered names first by value, then the rest by name.
func sortByOrdinal(names []string, prefix string) {
	slices.SortFunc(names, func(a, b string) int {
		na, okA := ordinal(a, prefix)
		nb, okB := ordinal(b, prefix)
		switch {
		case okA && okB:
			if c := cmp.Compare(na, nb); c != 0 {
				return c
			}
		case okA:
			return -1
		case okB:
			return 1
		}
		return strings.Compare(a, b)
	})
}

// ExtractedName returns the decoder's name for the 1-based ordinal.
func ExtractedName(ordinal int, ext string) string {
	return fmt.Sprintf(ExtractedPattern, ordinal) + "." + strings.TrimPrefix(ext, ".")
}

// ExportName returns the canonical name of output slot k.
func ExportName(k int, ext string) string {
	return fmt.Sprintf("%s%03d.%s", ExportPrefix, k, strings.TrimPrefix(ext, "."))
}

// Ext returns the lower-case extension of name without the leading dot.
func Ext(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}
