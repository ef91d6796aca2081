package labelfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"
)

// Field is one top-level key of a label file with its raw JSON value
type Field struct {
	Key   string
	Value json.RawMessage
}

// OtherData keeps top-level keys this package does not understand, in their
// original order. Values are never interpreted, only stored and re-emitted.
type OtherData struct {
	fields []Field
}

// Len returns the number of keys
func (o *OtherData) Len() int {
	return len(o.fields)
}

// Keys returns the keys in insertion order
func (o *OtherData) Keys() []string {
	keys := make([]string, len(o.fields))
	for i, f := range o.fields {
		keys[i] = f.Key
	}
	return keys
}

// Get returns the raw value stored under key
func (o *OtherData) Get(key string) (json.RawMessage, bool) {
	i := o.index(key)
	if i < 0 {
		return nil, false
	}
	return o.fields[i].Value, true
}

// Set stores value under key, keeping the position of an existing key
func (o *OtherData) Set(key string, value json.RawMessage) {
	value = slices.Clone(value)
	if i := o.index(key); i >= 0 {
		o.fields[i].Value = value
		return
	}
	o.fields = append(o.fields, Field{Key: key, Value: value})
}

// Delete removes key if present
func (o *OtherData) Delete(key string) {
	if i := o.index(key); i >= 0 {
		o.fields = slices.Delete(o.fields, i, i+1)
	}
}

// All iterates over the keys and values in order
func (o *OtherData) All() iter.Seq2[string, json.RawMessage] {
	return func(yield func(string, json.RawMessage) bool) {
		for _, f := range o.fields {
			if !yield(f.Key, f.Value) {
				return
			}
		}
	}
}

// Clone returns an independent copy
func (o *OtherData) Clone() OtherData {
	out := OtherData{fields: make([]Field, len(o.fields))}
	for i, f := range o.fields {
		out.fields[i] = Field{Key: f.Key, Value: slices.Clone(f.Value)}
	}
	return out
}

func (o *OtherData) index(key string) int {
	return slices.IndexFunc(o.fields, func(f Field) bool { return f.Key == key })
}

// readFields splits a JSON object into its top-level keys, keeping their order
func readFields(data []byte) ([]Field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("label file must contain a JSON object")
	}

	var fields []Field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("invalid value for %q: %w", key, err)
		}
		fields = append(fields, Field{Key: key, Value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level object")
	}
	return fields, nil
}
