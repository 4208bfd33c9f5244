package document

import (
	"fmt"

	domainErrors "github.com/mdnair2344/greenbasket/internal/domain/errors"
)

// Key addresses a document.
type Key struct {
	Collection string
	ID         string
}

func (k Key) String() string {
	return k.Collection + "/" + k.ID
}

// Write is a buffered transactional mutation. Merge writes replace only the
// given top-level fields and require the document to exist.
type Write struct {
	Key
	Data  map[string]any
	Merge bool
}

// TxBuffer implements the write side of Tx and records the read set. Backends
// embed it and supply Get.
type TxBuffer struct {
	Reads  map[Key]int64
	Writes []Write
}

// NewTxBuffer creates an empty buffer.
func NewTxBuffer() *TxBuffer {
	return &TxBuffer{Reads: make(map[Key]int64)}
}

// RecordRead remembers the version observed for key; zero means absent.
func (b *TxBuffer) RecordRead(key Key, version int64) {
	if _, seen := b.Reads[key]; !seen {
		b.Reads[key] = version
	}
}

// Set buffers a full document replacement.
func (b *TxBuffer) Set(collection, id string, data map[string]any) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}
	b.Writes = append(b.Writes, Write{Key: Key{collection, id}, Data: CloneData(data)})
	return nil
}

// Update buffers a top-level field merge.
func (b *TxBuffer) Update(collection, id string, fields map[string]any) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}
	if len(fields) == 0 {
		return fmt.Errorf("update %s/%s: no fields", collection, id)
	}
	b.Writes = append(b.Writes, Write{Key: Key{collection, id}, Data: CloneData(fields), Merge: true})
	return nil
}

func validateKey(collection, id string) error {
	if collection == "" || id == "" {
		return fmt.Errorf("%w: empty collection or id", domainErrors.ErrUnsupportedDocument)
	}
	return nil
}

// CloneData deep-copies nested maps and slices so stored documents never alias
// caller-owned values.
func CloneData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneData(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneData(e)
		}
		return out
	}
	return v
}

// MergeData applies a top-level field merge to a copy of base.
func MergeData(base, fields map[string]any) map[string]any {
	out := CloneData(base)
	if out == nil {
		out = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		out[k] = cloneValue(v)
	}
	return out
}
