package contacts

import (
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/contactstore/internal/backend"
	"github.com/roach88/contactstore/internal/contact"
)

// Index is the derived lookup table persisted at backend.IndexKey.
//
// INVARIANTS (after every acknowledged mutation):
//   - every stored record has exactly one ByUID entry pointing at its key
//   - every phone and short phone on a stored record maps to some stored key
//
// Phone keys are NFC-normalised so visually identical numbers index together.
type Index struct {
	ByUID      map[string]backend.Key `json:"byUid"`
	ByTel      map[string]backend.Key `json:"byTel"`
	ByShortTel map[string]backend.Key `json:"byShortTel"`
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		ByUID:      make(map[string]backend.Key),
		ByTel:      make(map[string]backend.Key),
		ByShortTel: make(map[string]backend.Key),
	}
}

func phoneKey(value string) string {
	return norm.NFC.String(value)
}

// Len returns the number of indexed records.
func (ix *Index) Len() int {
	return len(ix.ByUID)
}

// indexPhones points every phone and short phone of r at key.
func (ix *Index) indexPhones(r contact.Record, key backend.Key) {
	for _, tel := range r.Tel {
		ix.ByTel[phoneKey(tel.Value)] = key
	}
	for _, short := range r.ShortTelephone {
		ix.ByShortTel[phoneKey(short)] = key
	}
}

// removePhones drops the phone entries of r that still point at key.
// Entries another record has since claimed are left alone.
func (ix *Index) removePhones(r contact.Record, key backend.Key) {
	for _, tel := range r.Tel {
		k := phoneKey(tel.Value)
		if ix.ByTel[k] == key {
			delete(ix.ByTel, k)
		}
	}
	for _, short := range r.ShortTelephone {
		k := phoneKey(short)
		if ix.ByShortTel[k] == key {
			delete(ix.ByShortTel, k)
		}
	}
}

// reindexPhones swaps the phone entries of old for those of updated.
func (ix *Index) reindexPhones(old, updated contact.Record, key backend.Key) {
	ix.removePhones(old, key)
	ix.indexPhones(updated, key)
}

// lookupPhone resolves a full number first, then a short number.
func (ix *Index) lookupPhone(number string) (backend.Key, bool) {
	k := phoneKey(number)
	if key, ok := ix.ByTel[k]; ok {
		return key, true
	}
	key, ok := ix.ByShortTel[k]
	return key, ok
}

// Clone returns a deep copy.
func (ix *Index) Clone() Index {
	return Index{
		ByUID:      cloneKeys(ix.ByUID),
		ByTel:      cloneKeys(ix.ByTel),
		ByShortTel: cloneKeys(ix.ByShortTel),
	}
}

func cloneKeys(m map[string]backend.Key) map[string]backend.Key {
	out := make(map[string]backend.Key, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// marshalIndex encodes the index for the reserved backend slot.
// encoding/json sorts map keys, so equal indexes encode identically.
func marshalIndex(ix *Index) ([]byte, error) {
	data, err := json.Marshal(ix)
	if err != nil {
		return nil, fmt.Errorf("marshal index: %w", err)
	}
	return data, nil
}

// unmarshalIndex decodes a persisted index. Missing maps come back empty.
func unmarshalIndex(data []byte) (*Index, error) {
	ix := NewIndex()
	if len(data) == 0 || string(data) == "null" {
		return ix, nil
	}
	if err := json.Unmarshal(data, ix); err != nil {
		return nil, fmt.Errorf("unmarshal index: %w", err)
	}
	if ix.ByUID == nil {
		ix.ByUID = make(map[string]backend.Key)
	}
	if ix.ByTel == nil {
		ix.ByTel = make(map[string]backend.Key)
	}
	if ix.ByShortTel == nil {
		ix.ByShortTel = make(map[string]backend.Key)
	}
	return ix, nil
}
