// Package setstore holds named string sets consulted during scoring and
// sweeps: the emote vocabulary, suspicious TLD and URL-shortener lists, and
// per-channel sweep exclusion lists.
package setstore

import (
	"context"
	"encoding/json"
	"os"
)

type SetStore interface {
	InSet(ctx context.Context, name, val string) (bool, error)
	Add(ctx context.Context, name string, vals []string) error
}

// LoadFromFileJSON reads a {name: [values]} JSON document into any store,
// redis-backed included.
func LoadFromFileJSON(ctx context.Context, s SetStore, p string) error {
	raw, err := os.ReadFile(p)
	if err != nil {
		return err
	}
	var doc map[string][]string
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	for name, vals := range doc {
		if err := s.Add(ctx, name, vals); err != nil {
			return err
		}
	}
	return nil
}
