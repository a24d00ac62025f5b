package attr

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON for v.
//
// Differences from encoding/json:
//   - object keys sorted by UTF-16 code units
//   - no HTML escaping
//
// Strings are encoded exactly as given. Stored documents, partition keys and
// query bindings are derived from this encoding, so two values encode
// identically exactly when Equal reports them equal.
func MarshalCanonical(v Value) ([]byte, error) {
	return marshal(v, false)
}

// marshalNFC is MarshalCanonical with every string NFC normalized.
func marshalNFC(v Value) ([]byte, error) {
	return marshal(v, true)
}

func marshal(v Value, nfc bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v, nfc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v Value, nfc bool) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("cannot encode missing value")
	case Null:
		buf.WriteString("null")
	case String:
		b, err := canonicalString(string(val), nfc)
		if err != nil {
			return err
		}
		buf.Write(b)
	case Int:
		fmt.Fprintf(buf, "%d", int64(val))
	case Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case List:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem, nfc); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case Set:
		buf.WriteByte('{')
		for i, k := range val.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := canonicalString(k, nfc)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k], nfc); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported attribute type %T", v)
	}
	return nil
}

// canonicalString encodes s as a JSON string, NFC normalized when nfc is set.
func canonicalString(s string, nfc bool) ([]byte, error) {
	if nfc {
		s = norm.NFC.String(s)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	// Encoder appends a newline.
	out := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
	return unescapeLineSeparators(out), nil
}

// unescapeLineSeparators undoes encoding/json's escaping of U+2028 and
// U+2029, which RFC 8785 leaves literal. A sequence preceded by an odd
// number of backslashes is literal text and is kept.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if i+6 <= len(data) && bytes.HasPrefix(data[i:], []byte(`\u202`)) && (data[i+5] == '8' || data[i+5] == '9') {
			backslashes := 0
			for j := len(out) - 1; j >= 0 && out[j] == '\\'; j-- {
				backslashes++
			}
			if backslashes%2 == 0 {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 5
				continue
			}
		}
		out = append(out, data[i])
	}
	return out
}

// Key returns the canonical encoding of v as a string, suitable as a map key.
func Key(v Value) (string, error) {
	b, err := MarshalCanonical(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Format renders v for messages. It never fails.
func Format(v Value) string {
	b, err := MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("<%s>", Kind(v))
	}
	return string(b)
}
