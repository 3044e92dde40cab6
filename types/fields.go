package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"strings"
)

var errNotObject = errors.New("not a JSON object")

// decodeObject decodes data into dst and returns the object members that
// match none of the known keys. Matching is case-insensitive, as in
// encoding/json.
func decodeObject(data []byte, dst any, known ...string) (map[string]json.RawMessage, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, err
	}
	if members == nil {
		return nil, errNotObject
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return nil, err
	}

	var extra map[string]json.RawMessage
	for key, value := range members {
		if isKnownKey(key, known) {
			continue
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[key] = value
	}
	return extra, nil
}

func isKnownKey(key string, known []string) bool {
	for _, k := range known {
		if strings.EqualFold(key, k) {
			return true
		}
	}
	return false
}

// encodeObject encodes src and appends the extra members in key order.
func encodeObject(src any, extra map[string]json.RawMessage) ([]byte, error) {
	data, err := marshalUnescaped(src)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	keys := make([]string, 0, len(extra))
	for key := range extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(data[:len(data)-1])
	for i, key := range keys {
		if i > 0 || len(data) > 2 {
			buf.WriteByte(',')
		}
		name, err := marshalUnescaped(key)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(extra[key])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalUnescaped is json.Marshal without HTML escaping, so code such as
// "a < b && c" is stored as written.
func marshalUnescaped(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
