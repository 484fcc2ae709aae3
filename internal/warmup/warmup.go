// Package warmup implements the startup loader described in spec.md §4.9.
// It accepts the keys file shape the original Python loader supports — a
// JSON/YAML object mapping key to value, or a list of {key, value}
// objects — skipping malformed entries and keys already present at the
// destination, rather than failing the whole load.
package warmup

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Entry is one warmup record.
type Entry struct {
	Key   string
	Value any
}

// Load reads path and returns the decoded warmup entries. Malformed list
// entries are skipped and logged; a file that is neither a map nor a list
// of {key,value} objects is an error.
func Load(path string, logger *slog.Logger) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("warmup: read %s: %w", path, err)
	}

	var asMap map[string]any
	if err := yaml.Unmarshal(raw, &asMap); err == nil && len(asMap) > 0 {
		entries := make([]Entry, 0, len(asMap))
		for k, v := range asMap {
			entries = append(entries, Entry{Key: k, Value: v})
		}
		return entries, nil
	}

	var asList []map[string]any
	if err := yaml.Unmarshal(raw, &asList); err != nil {
		return nil, fmt.Errorf("warmup: %s is neither a key-value map nor a list of entries: %w", path, err)
	}

	entries := make([]Entry, 0, len(asList))
	for i, item := range asList {
		key, ok := item["key"].(string)
		if !ok {
			logger.Warn("warmup: skipping malformed entry", "index", i)
			continue
		}
		value, hasValue := item["value"]
		if !hasValue {
			logger.Warn("warmup: skipping entry with no value", "index", i, "key", key)
			continue
		}
		entries = append(entries, Entry{Key: key, Value: value})
	}
	return entries, nil
}

// Destination is the subset of the engine's write surface warmup needs:
// a presence check and a bulk set, per spec.md §4.9's "issues set_many"
// and the original loader's skip-if-present rule.
type Destination interface {
	Has(key string) bool
	SetMany(entries map[string]any) error
}

// Apply loads path and writes every entry not already present in dst,
// matching the original cache_warmup.py behavior of never overwriting an
// existing key. Errors during load are returned; nothing here is fatal to
// the caller's startup sequence by convention — the caller decides whether
// to treat a returned error as fatal.
func Apply(path string, dst Destination, logger *slog.Logger) error {
	entries, err := Load(path, logger)
	if err != nil {
		return err
	}

	toSet := make(map[string]any, len(entries))
	for _, e := range entries {
		if dst.Has(e.Key) {
			continue
		}
		toSet[e.Key] = e.Value
	}
	if len(toSet) == 0 {
		return nil
	}
	return dst.SetMany(toSet)
}
