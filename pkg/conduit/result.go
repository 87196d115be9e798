package conduit

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"

	"github.com/ysmood/gson"
)

// Result is the "result" member of a successful response, kept as raw JSON.
type Result struct {
	raw json.RawMessage
}

// NewResult wraps raw JSON as a Result.
func NewResult(raw []byte) Result {
	return Result{raw: json.RawMessage(raw)}
}

// Raw returns the JSON text of the result.
func (r Result) Raw() json.RawMessage {
	return r.raw
}

// String returns the JSON text of the result.
func (r Result) String() string {
	return string(r.raw)
}

// IsNull reports whether the server returned a null result.
func (r Result) IsNull() bool {
	return isNull(r.raw)
}

// Decode unmarshals the result into v.
func (r Result) Decode(v any) error {
	if r.IsNull() {
		return nil
	}
	if err := json.Unmarshal(r.raw, v); err != nil {
		return NewDecodeError("", "cannot decode result", err)
	}
	return nil
}

// JSON returns the result for dynamic navigation.
func (r Result) JSON() gson.JSON {
	return gson.New([]byte(r.raw))
}

// Get returns the value at a dotted path such as "data.0.phid".
func (r Result) Get(path string) gson.JSON {
	return r.JSON().Get(path)
}

// Str returns the string at path, or "" when missing.
func (r Result) Str(path string) string {
	v := r.Get(path)
	if v.Nil() {
		return ""
	}
	return v.Str()
}

// Lookup returns the member named key of an object result. A result that is
// not valid JSON yields a decode error.
func (r Result) Lookup(key string) (Result, bool, error) {
	var found Result
	ok := false
	err := r.Each(func(k string, v Result) error {
		if k == key {
			found, ok = v, true
			return errStop
		}
		return nil
	})
	return found, ok, err
}

// Field is Lookup for callers that treat a malformed result as empty.
func (r Result) Field(key string) (Result, bool) {
	found, ok, err := r.Lookup(key)
	if err != nil {
		return Result{}, false
	}
	return found, ok
}

// Keys returns object keys in server order, or the indexes of an array.
// A malformed result has no keys; use Each to see the decode error.
func (r Result) Keys() []string {
	var keys []string
	if err := r.Each(func(k string, _ Result) error {
		keys = append(keys, k)
		return nil
	}); err != nil {
		return nil
	}
	return keys
}

// Len returns the number of members of an object or array result, or 0 for
// a malformed result.
func (r Result) Len() int {
	n := 0
	if err := r.Each(func(string, Result) error {
		n++
		return nil
	}); err != nil {
		return 0
	}
	return n
}

var errStop = errors.New("stop")

// Each calls fn for every member of an object or array result, in the order
// the server sent them. Array members get their index as key. The server
// encodes empty maps as [], so both shapes are accepted. Scalars have no
// members. Returning an error from fn stops the walk and returns it.
func (r Result) Each(fn func(key string, value Result) error) error {
	if r.IsNull() {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(r.raw))
	tok, err := dec.Token()
	if err != nil {
		return NewDecodeError("", "invalid result JSON", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil
	}

	for i := 0; dec.More(); i++ {
		key := strconv.Itoa(i)
		if delim == '{' {
			keyTok, err := dec.Token()
			if err != nil {
				return NewDecodeError("", "invalid result JSON", err)
			}
			key, _ = keyTok.(string)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return NewDecodeError("", "invalid result JSON", err)
		}
		if err := fn(key, Result{raw: value}); err != nil {
			if err == errStop {
				return nil
			}
			return err
		}
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return NewDecodeError("", "invalid result JSON", err)
	}
	return nil
}
