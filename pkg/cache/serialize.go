package cache

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

// Cached payloads are stored as a tagged JSON envelope so values come
// back as the type that went in. time.Time and raw bytes need their
// own tags; everything JSON-marshalable (structs, maps, slices,
// primitives) rides the generic tag and is decoded straight into the
// caller's type.
type envelope struct {
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value,omitempty"`
}

const (
	kindNil   = "nil"
	kindTime  = "time"
	kindBytes = "bytes"
	kindJSON  = "json"
)

// UnsupportedPayloadError reports a payload that cannot round-trip
// through the cache. It is distinct from a cache miss: callers treat
// it as one, but it never masquerades as "absent" silently.
type UnsupportedPayloadError struct {
	Kind string
}

func (e *UnsupportedPayloadError) Error() string {
	return fmt.Sprintf("unsupported cache payload type: %s", e.Kind)
}

func Serialize(value any) (string, error) {
	var env envelope

	switch v := value.(type) {
	case nil:
		env.Kind = kindNil
	case time.Time:
		env.Kind = kindTime
		env.Value, _ = json.Marshal(v.Format(time.RFC3339Nano))
	case []byte:
		env.Kind = kindBytes
		env.Value, _ = json.Marshal(base64.StdEncoding.EncodeToString(v))
	default:
		switch reflect.ValueOf(value).Kind() {
		case reflect.Chan, reflect.Func, reflect.UnsafePointer:
			return "", &UnsupportedPayloadError{Kind: reflect.ValueOf(value).Kind().String()}
		}

		data, err := json.Marshal(value)
		if err != nil {
			return "", &UnsupportedPayloadError{Kind: reflect.TypeOf(value).String()}
		}

		env.Kind = kindJSON
		env.Value = data
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return "", err
	}

	return string(payload), nil
}

func Deserialize[T any](payload string) (T, error) {
	var zero T

	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return zero, fmt.Errorf("malformed cache payload: %w", err)
	}

	switch env.Kind {
	case kindNil:
		return zero, nil
	case kindTime:
		var formatted string
		if err := json.Unmarshal(env.Value, &formatted); err != nil {
			return zero, fmt.Errorf("malformed cache timestamp: %w", err)
		}

		parsed, err := time.Parse(time.RFC3339Nano, formatted)
		if err != nil {
			return zero, fmt.Errorf("malformed cache timestamp: %w", err)
		}

		if v, ok := any(parsed).(T); ok {
			return v, nil
		}

		return zero, &UnsupportedPayloadError{Kind: kindTime}
	case kindBytes:
		var encoded string
		if err := json.Unmarshal(env.Value, &encoded); err != nil {
			return zero, fmt.Errorf("malformed cache bytes: %w", err)
		}

		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return zero, fmt.Errorf("malformed cache bytes: %w", err)
		}

		if v, ok := any(decoded).(T); ok {
			return v, nil
		}

		return zero, &UnsupportedPayloadError{Kind: kindBytes}
	case kindJSON:
		var value T
		if err := json.Unmarshal(env.Value, &value); err != nil {
			return zero, fmt.Errorf("cache payload does not match requested type: %w", err)
		}

		return value, nil
	default:
		return zero, &UnsupportedPayloadError{Kind: env.Kind}
	}
}
