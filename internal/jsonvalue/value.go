// Package jsonvalue implements a generic tagged-variant JSON value used to
// canonicalize arbitrary request/response bodies: recursively sort object
// keys and re-serialize, so that two JSON documents differing only in key
// order or insignificant whitespace hash identically.
package jsonvalue

import (
	"bytes"
	"encoding/json"
	"regexp"
	"sort"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is a tagged-variant JSON value: exactly one of the typed fields
// below is meaningful, selected by Kind.
type Value struct {
	Kind   Kind
	Bool   bool
	Number json.Number
	String string
	Array  []Value
	Object []Field // kept in canonical (sorted) key order after Canonicalize
}

// Field is a single object member.
type Field struct {
	Key   string
	Value Value
}

// Parse decodes raw JSON bytes into a Value tree. Numbers are preserved as
// json.Number so re-serialization never loses precision or reformats them.
func Parse(raw []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Value{}, err
	}
	return fromAny(v), nil
}

func fromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Value{Kind: KindNull}
	case bool:
		return Value{Kind: KindBool, Bool: t}
	case json.Number:
		return Value{Kind: KindNumber, Number: t}
	case string:
		return Value{Kind: KindString, String: t}
	case []any:
		arr := make([]Value, len(t))
		for i, e := range t {
			arr[i] = fromAny(e)
		}
		return Value{Kind: KindArray, Array: arr}
	case map[string]any:
		fields := make([]Field, 0, len(t))
		for k, e := range t {
			fields = append(fields, Field{Key: k, Value: fromAny(e)})
		}
		return Value{Kind: KindObject, Object: fields}
	default:
		return Value{Kind: KindNull}
	}
}

// Canonicalize recursively sorts object keys (arrays keep their order:
// position is semantically meaningful for message lists) and returns the
// sorted tree. Canonicalize is idempotent: canonicalizing an already
// canonical tree yields an identical tree (byte-for-byte once serialized).
func Canonicalize(v Value) Value {
	switch v.Kind {
	case KindArray:
		arr := make([]Value, len(v.Array))
		for i, e := range v.Array {
			arr[i] = Canonicalize(e)
		}
		return Value{Kind: KindArray, Array: arr}
	case KindObject:
		fields := make([]Field, len(v.Object))
		for i, f := range v.Object {
			fields[i] = Field{Key: f.Key, Value: Canonicalize(f.Value)}
		}
		sort.Slice(fields, func(i, j int) bool { return fields[i].Key < fields[j].Key })
		return Value{Kind: KindObject, Object: fields}
	default:
		return v
	}
}

// Serialize writes the canonical JSON encoding of v: object keys appear in
// v.Object's current order (call Canonicalize first for sorted output),
// with no extraneous whitespace.
func Serialize(v Value) []byte {
	var buf bytes.Buffer
	writeValue(&buf, v)
	return buf.Bytes()
}

func writeValue(buf *bytes.Buffer, v Value) {
	switch v.Kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.Bool {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		buf.WriteString(v.Number.String())
	case KindString:
		b, _ := json.Marshal(v.String)
		buf.Write(b)
	case KindArray:
		buf.WriteByte('[')
		for i, e := range v.Array {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeValue(buf, e)
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, f := range v.Object {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(f.Key)
			buf.Write(kb)
			buf.WriteByte(':')
			writeValue(buf, f.Value)
		}
		buf.WriteByte('}')
	}
}

// CanonicalBytes parses raw, canonicalizes, and re-serializes it in one
// step. If raw is not valid JSON, ok is false and callers should fall back
// to hashing the raw bytes directly.
func CanonicalBytes(raw []byte) (out []byte, ok bool) {
	v, err := Parse(raw)
	if err != nil {
		return nil, false
	}
	return Serialize(Canonicalize(v)), true
}

// contentTimestampPrefix matches a leading "[Www YYYY-MM-DD HH:MM TZ] "
// marker (spec.md §4.6 canonicalization step 2 / §4.7's cache-key form).
var contentTimestampPrefix = regexp.MustCompile(`^\[[A-Za-z]{3} \d{4}-\d{2}-\d{2} \d{2}:\d{2} [A-Za-z]+\] `)

// StripContentTimestamps returns a copy of v with any leading
// "[Www YYYY-MM-DD HH:MM TZ] " prefix removed from every string held in a
// "content" field, recursively.
func StripContentTimestamps(v Value) Value {
	switch v.Kind {
	case KindArray:
		arr := make([]Value, len(v.Array))
		for i, e := range v.Array {
			arr[i] = StripContentTimestamps(e)
		}
		return Value{Kind: KindArray, Array: arr}
	case KindObject:
		fields := make([]Field, len(v.Object))
		for i, f := range v.Object {
			val := StripContentTimestamps(f.Value)
			if f.Key == "content" && val.Kind == KindString {
				val.String = contentTimestampPrefix.ReplaceAllString(val.String, "")
			}
			fields[i] = Field{Key: f.Key, Value: val}
		}
		return Value{Kind: KindObject, Object: fields}
	default:
		return v
	}
}

// DedupCanonicalBytes implements spec.md §4.6's dedup-key canonicalization:
// parse, strip per-message timestamp prefixes, sort keys, re-serialize.
func DedupCanonicalBytes(raw []byte) (out []byte, ok bool) {
	v, err := Parse(raw)
	if err != nil {
		return nil, false
	}
	return Serialize(Canonicalize(StripContentTimestamps(v))), true
}

// CacheCanonicalBytes implements spec.md §4.7's cache-key canonicalization:
// parse, drop the non-semantic stream/user/request_id/x-request-id fields,
// strip per-message timestamp prefixes, sort keys, re-serialize.
func CacheCanonicalBytes(raw []byte) (out []byte, ok bool) {
	v, err := Parse(raw)
	if err != nil {
		return nil, false
	}
	v = v.Delete("stream", "user", "request_id", "x-request-id")
	return Serialize(Canonicalize(StripContentTimestamps(v))), true
}

// Get looks up a top-level field by key in an object Value. ok is false if
// v is not an object or the key is absent.
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != KindObject {
		return Value{}, false
	}
	for _, f := range v.Object {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Bool returns the value as a bool, defaulting to false for non-bool kinds.
func (v Value) AsBool() bool {
	return v.Kind == KindBool && v.Bool
}

// Delete returns a copy of v with the given top-level keys removed (object
// values only; other kinds are returned unchanged).
func (v Value) Delete(keys ...string) Value {
	if v.Kind != KindObject {
		return v
	}
	skip := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		skip[k] = struct{}{}
	}
	fields := make([]Field, 0, len(v.Object))
	for _, f := range v.Object {
		if _, drop := skip[f.Key]; drop {
			continue
		}
		fields = append(fields, f)
	}
	return Value{Kind: KindObject, Object: fields}
}
