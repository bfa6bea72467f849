package flux

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Serialize encodes the state of every Serializable store into one JSON
// object keyed by store name.
func (f *Flux) Serialize() (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := "{}"
	for _, name := range f.storeOrder {
		s, ok := f.stores[name].store.(Serializable)
		if !ok {
			continue
		}

		data, err := s.MarshalState()
		if err != nil {
			return "", fmt.Errorf("flux: serialize store %s: %w", name, err)
		}

		out, err = sjson.SetRaw(out, escapePath(name), string(data))
		if err != nil {
			return "", fmt.Errorf("flux: serialize store %s: %w", name, err)
		}
	}

	return out, nil
}

// Deserialize restores store states from Serialize output.
// Stores missing from the snapshot are left untouched. Every store is
// attempted; the errors are joined.
func (f *Flux) Deserialize(snapshot string) error {
	if !gjson.Valid(snapshot) {
		return ErrInvalidSnapshot
	}

	f.mu.RLock()
	order := make([]string, len(f.storeOrder))
	copy(order, f.storeOrder)
	entries := make(map[string]storeEntry, len(f.stores))
	for k, v := range f.stores {
		entries[k] = v
	}
	f.mu.RUnlock()

	var errs []error
	for _, name := range order {
		s, ok := entries[name].store.(Serializable)
		if !ok {
			continue
		}

		res := gjson.Get(snapshot, escapePath(name))
		if !res.Exists() {
			continue
		}

		if err := s.UnmarshalState([]byte(res.Raw)); err != nil {
			errs = append(errs, fmt.Errorf("flux: deserialize store %s: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

// escapePath backslash-escapes every character that is not plain in a
// gjson/sjson path component, so store names are always read literally.
func escapePath(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		if !isPlainPathChar(r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isPlainPathChar(r rune) bool {
	return r >= 'a' && r <= 'z' ||
		r >= 'A' && r <= 'Z' ||
		r >= '0' && r <= '9' ||
		r == '_' || r == '-' || r == ':' ||
		r > 0x7f
}
