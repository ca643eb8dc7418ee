package entity

import (
	"bytes"
	"encoding/json"
)

// Nullable is a patch field for a nullable column. Set records whether the
// key was present at all; a present JSON null leaves Value nil and clears
// the column.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// Some sets the column to v.
func Some[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

// Null clears the column.
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

func (n Nullable[T]) IsZero() bool {
	return !n.Set
}

// IsNull reports an explicit clear.
func (n Nullable[T]) IsNull() bool {
	return n.Set && n.Value == nil
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}
