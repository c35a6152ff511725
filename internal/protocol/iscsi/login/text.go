package login

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/header"
)

// ErrMalformedText indicates a text segment entry without a '=' separator.
var ErrMalformedText = errors.New("malformed key=value text parameter")

// TextParam is one key=value pair of a login text segment.
type TextParam struct {
	Key   string `json:"key" yaml:"key" mapstructure:"key"`
	Value string `json:"value" yaml:"value" mapstructure:"value"`
}

// String returns the pair in wire notation (without the NUL terminator).
func (p TextParam) String() string {
	return p.Key + "=" + p.Value
}

// TextParams is an ordered list of text parameters. Order is preserved on
// the wire exactly as given.
type TextParams []TextParam

// Params builds TextParams from alternating key/value strings.
// A trailing key without a value is dropped.
func Params(kv ...string) TextParams {
	params := make(TextParams, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		params = append(params, TextParam{Key: kv[i], Value: kv[i+1]})
	}
	return params
}

// Get returns the value of the first parameter named key.
func (p TextParams) Get(key string) (string, bool) {
	for _, param := range p {
		if param.Key == key {
			return param.Value, true
		}
	}
	return "", false
}

// Has reports whether a parameter named key is present.
func (p TextParams) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Without returns a copy of p with every parameter named key removed.
func (p TextParams) Without(key string) TextParams {
	out := make(TextParams, 0, len(p))
	for _, param := range p {
		if param.Key != key {
			out = append(out, param)
		}
	}
	return out
}

// With returns a copy of p with key set to value. An existing entry keeps
// its position; a new one is appended.
func (p TextParams) With(key, value string) TextParams {
	out := make(TextParams, len(p), len(p)+1)
	copy(out, p)
	for i := range out {
		if out[i].Key == key {
			out[i].Value = value
			return out
		}
	}
	return append(out, TextParam{Key: key, Value: value})
}

// Map returns the parameters as a map. Later duplicates win.
func (p TextParams) Map() map[string]string {
	m := make(map[string]string, len(p))
	for _, param := range p {
		m[param.Key] = param.Value
	}
	return m
}

// String returns the parameters joined with spaces, for logging.
func (p TextParams) String() string {
	parts := make([]string, len(p))
	for i, param := range p {
		parts[i] = param.String()
	}
	return strings.Join(parts, " ")
}

// Encode serializes the parameters as NUL-terminated key=value strings and
// pads the result with NUL bytes to a multiple of 4.
//
// An empty list encodes to an empty (nil) segment.
func (p TextParams) Encode() []byte {
	if len(p) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, param := range p {
		buf.WriteString(param.Key)
		buf.WriteByte('=')
		buf.WriteString(param.Value)
		buf.WriteByte(0)
	}

	for pad := header.PadLength(buf.Len()) - buf.Len(); pad > 0; pad-- {
		buf.WriteByte(0)
	}

	return buf.Bytes()
}

// ParseText decodes a NUL-separated key=value text segment. Padding and
// empty entries are skipped. Values may themselves contain '='.
func ParseText(data []byte) (TextParams, error) {
	var params TextParams
	for _, entry := range bytes.Split(data, []byte{0}) {
		if len(entry) == 0 {
			continue
		}
		key, value, ok := strings.Cut(string(entry), "=")
		if !ok || key == "" {
			return params, fmt.Errorf("%w: %q", ErrMalformedText, entry)
		}
		params = append(params, TextParam{Key: key, Value: value})
	}
	return params, nil
}
