package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ReadCriteria parses "ability:weight" lines. Blank lines and lines
// starting with # are skipped. Weights are returned raw; normalisation
// happens in scoring.NewCriteria.
func ReadCriteria(r io.Reader) (map[string]float64, error) {
	out := make(map[string]float64)
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		name, value, ok := strings.Cut(text, ":")
		name = strings.ToLower(strings.TrimSpace(name))
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: criteria line %d: want ability:weight", ErrMalformed, line)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: criteria line %d: %w", ErrMalformed, line, err)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("%w: criteria line %d: duplicate ability %q", ErrMalformed, line, name)
		}
		out[name] = w
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return out, nil
}

// ReadCriteriaYAML parses a mapping of ability to weight.
func ReadCriteriaYAML(r io.Reader) (map[string]float64, error) {
	var raw map[string]float64
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return map[string]float64{}, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out, nil
}

// LoadCriteria reads a criteria file, choosing the format by extension.
func LoadCriteria(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ReadCriteriaYAML(f)
	default:
		return ReadCriteria(f)
	}
}

// WriteCriteria writes weights as ability:weight lines sorted by ability.
func WriteCriteria(w io.Writer, criteria map[string]float64) error {
	names := make([]string, 0, len(criteria))
	for name := range criteria {
		names = append(names, name)
	}
	sort.Strings(names)
	bw := bufio.NewWriter(w)
	for _, name := range names {
		if _, err := fmt.Fprintf(bw, "%s:%s\n", name, strconv.FormatFloat(criteria[name], 'f', -1, 64)); err != nil {
			return err
		}
	}
	return bw.Flush()
}
