// Package protocol defines the typed payloads carried inside wire
// frame bodies, and the gob codec used to (de)serialize them — the
// same MarshalBinary/UnmarshalBinary-via-gob idiom the teacher repo
// uses throughout shared/state, just applied to the coordinator's own
// message set instead of a whole scene graph.
package protocol

import (
	"bytes"
	"encoding/gob"
)

// encode gob-encodes v into a standalone byte slice suitable for use
// as a frame body.
func encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decode gob-decodes data into v.
func decode(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
