// Package refdb loads the reference phrase database that cipher values are
// matched against. Only phrase keys are used; metadata is carried for display.
package refdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmptyDatabase is returned when a reference source yields no phrases
var ErrEmptyDatabase = errors.New("reference database is empty")

// ErrUnsupportedFormat is returned for unknown file extensions
var ErrUnsupportedFormat = errors.New("unsupported reference database format")

// Load reads the phrase set from path, choosing the reader by extension:
// .json and .yaml/.yml hold a {phrase: metadata} mapping, .db/.sqlite/.sqlite3
// a SQLite phrases table. Phrases are returned sorted.
func Load(ctx context.Context, path string) ([]string, error) {
	var (
		phrases []string
		err     error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		phrases, err = loadMapping(path, json.Unmarshal)
	case ".yaml", ".yml":
		phrases, err = loadMapping(path, yaml.Unmarshal)
	case ".db", ".sqlite", ".sqlite3":
		phrases, err = loadSQLite(ctx, path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, err
	}

	if len(phrases) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyDatabase)
	}
	return phrases, nil
}

func loadMapping(path string, unmarshal func([]byte, interface{}) error) ([]string, error) {
	entries, err := readMapping(path, unmarshal)
	if err != nil {
		return nil, err
	}
	return Keys(entries), nil
}

// ReadMapping reads a .json or .yaml/.yml {phrase: metadata} file whole
func ReadMapping(path string) (map[string]interface{}, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return readMapping(path, json.Unmarshal)
	case ".yaml", ".yml":
		return readMapping(path, yaml.Unmarshal)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func readMapping(path string, unmarshal func([]byte, interface{}) error) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference database: %w", err)
	}

	var entries map[string]interface{}
	if err := unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse reference database %s: %w", path, err)
	}
	return entries, nil
}

func loadSQLite(ctx context.Context, path string) ([]string, error) {
	// sql.Open would silently create an empty file
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open reference database: %w", err)
	}

	store, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return store.Phrases(ctx)
}

// Keys returns the sorted keys of a metadata mapping. Letterless keys are
// kept as phrases worth 0; only the empty key is dropped.
func Keys(entries map[string]interface{}) []string {
	phrases := make([]string, 0, len(entries))
	for p := range entries {
		if p == "" {
			continue
		}
		phrases = append(phrases, p)
	}
	sort.Strings(phrases)
	return phrases
}

// LoadEntries reads phrases together with their metadata from any
// supported source, keyed by phrase.
func LoadEntries(ctx context.Context, path string) (map[string]interface{}, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
	default:
		return ReadMapping(path)
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open reference database: %w", err)
	}
	store, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	phrases, err := store.Phrases(ctx)
	if err != nil {
		return nil, err
	}
	entries := make(map[string]interface{}, len(phrases))
	for _, p := range phrases {
		meta, err := store.Meta(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("metadata for %q: %w", p, err)
		}
		entries[p] = meta
	}
	return entries, nil
}
