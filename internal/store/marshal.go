package store

import (
	"fmt"

	"github.com/Makisuo/confect-plus/internal/wire"
)

// marshalFields converts a document's declared fields to canonical JSON
// TEXT for storage. RFC 8785 keeps the stored form byte-deterministic.
func marshalFields(fields wire.Object) (string, error) {
	data, err := wire.MarshalCanonical(fields)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	return string(data), nil
}

// unmarshalFields parses stored canonical JSON TEXT back into fields.
func unmarshalFields(data string) (wire.Object, error) {
	if data == "" || data == "{}" {
		return wire.Object{}, nil
	}
	v, err := wire.ParseJSON([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	obj, ok := v.(wire.Object)
	if !ok {
		return nil, fmt.Errorf("unmarshal fields: stored value is %T, not an object", v)
	}
	return obj, nil
}

// indexValue encodes one indexed field value as its canonical JSON
// text, the store's index key representation.
func indexValue(v wire.Value) (string, error) {
	data, err := wire.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("encode index value: %w", err)
	}
	return string(data), nil
}

// documentObject assembles the wire shape of a stored document: system
// fields first, declared fields alongside.
func documentObject(id string, creationTime int64, fieldsJSON string) (wire.Object, error) {
	fields, err := unmarshalFields(fieldsJSON)
	if err != nil {
		return nil, err
	}
	doc := make(wire.Object, len(fields)+2)
	for k, v := range fields {
		doc[k] = v
	}
	doc["_id"] = wire.String(id)
	doc["_creationTime"] = wire.Int(creationTime)
	return doc, nil
}
