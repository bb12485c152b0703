// Package citydata reads and writes the dataset and query tier files.
package citydata

import (
	"compress/bzip2"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/weather-dashboard/internal/city"
)

// Open opens path, decompressing .bz2 and .gz files. When path itself does
// not exist, path.bz2 and then path.gz are tried.
func Open(path string) (io.Reader, func() error, error) {
	candidates := []string{path}
	if !strings.HasSuffix(path, ".bz2") && !strings.HasSuffix(path, ".gz") {
		candidates = append(candidates, path+".bz2", path+".gz")
	}
	for _, p := range candidates {
		fh, err := os.Open(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, nil, fmt.Errorf("opening %s: %w", p, err)
		}
		switch {
		case strings.HasSuffix(p, ".bz2"):
			return bzip2.NewReader(fh), fh.Close, nil
		case strings.HasSuffix(p, ".gz"):
			zr, err := gzip.NewReader(fh)
			if err != nil {
				_ = fh.Close()
				return nil, nil, fmt.Errorf("creating gzip reader: %w", err)
			}
			return zr, func() error {
				_ = zr.Close()
				return fh.Close()
			}, nil
		default:
			return fh, fh.Close, nil
		}
	}
	return nil, nil, fmt.Errorf("opening %s: %w", path, fs.ErrNotExist)
}

// DecodeCities decodes a JSON array of city records. Records that fail to
// decode or validate are logged and skipped; their count is returned.
func DecodeCities(r io.Reader, log *slog.Logger) ([]city.City, int, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, 0, fmt.Errorf("decode dataset: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	out := make([]city.City, 0, len(raw))
	rejected := 0
	for i, msg := range raw {
		var c city.City
		if err := json.Unmarshal(msg, &c); err != nil {
			rejected++
			log.Warn("skipping city record", "index", i, "err", err)
			continue
		}
		if err := c.Validate(); err != nil {
			rejected++
			log.Warn("skipping city record", "index", i, "err", err)
			continue
		}
		out = append(out, c)
	}
	return out, rejected, nil
}

func LoadCities(path string, log *slog.Logger) ([]city.City, int, error) {
	r, closeFn, err := Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = closeFn() }()
	return DecodeCities(r, log)
}

// Tier maps a lower-cased query to ranked geonameids.
type Tier map[string][]int64

func LoadTier(path string) (Tier, error) {
	r, closeFn, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closeFn() }()
	var t Tier
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("decode tier %s: %w", path, err)
	}
	if t == nil {
		t = Tier{}
	}
	return t, nil
}

// WriteJSONAtomic writes v to path through a temp file and a rename, so a
// reader never sees a partial file.
func WriteJSONAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	name := tmp.Name()
	defer func() { _ = os.Remove(name) }()

	enc := json.NewEncoder(tmp)
	if err := enc.Encode(v); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(name, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// TierFileName is the file name of the tier covering the top n cities.
func TierFileName(n int) string { return fmt.Sprintf("query-cache-top%d.json", n) }

var tierFileRE = regexp.MustCompile(`^query-cache-top(\d+)\.json(\.bz2|\.gz)?$`)

// TierSize extracts N from a tier file name.
func TierSize(name string) (int, bool) {
	m := tierFileRE.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// HighestTier returns the path of the largest tier file in dir.
func HighestTier(dir string) (string, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", 0, fmt.Errorf("read dir %s: %w", dir, err)
	}
	type found struct {
		name string
		n    int
	}
	var files []found
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if n, ok := TierSize(e.Name()); ok {
			files = append(files, found{e.Name(), n})
		}
	}
	if len(files) == 0 {
		return "", 0, fmt.Errorf("no tier files in %s", dir)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].n > files[j].n })
	return filepath.Join(dir, files[0].name), files[0].n, nil
}
