package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/genesis/internal/attr"
)

// ReadRecords reads attribute sets from a YAML file. The document is either
// a single mapping or a sequence of mappings. A path of "-" reads stdin.
func ReadRecords(path string, stdin io.Reader) ([]attr.Set, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read records %s: %w", path, err)
	}
	return ParseRecords(data)
}

// ParseRecords decodes YAML records.
func ParseRecords(data []byte) ([]attr.Set, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("no records found")
		}
		return nil, fmt.Errorf("failed to parse records YAML: %w", err)
	}

	if len(doc.Content) == 0 {
		return nil, errors.New("no records found")
	}

	var raw []map[string]any
	root := doc.Content[0]
	switch root.Kind {
	case yaml.MappingNode:
		var one map[string]any
		if err := root.Decode(&one); err != nil {
			return nil, fmt.Errorf("failed to parse record: %w", err)
		}
		raw = append(raw, one)
	case yaml.SequenceNode:
		if err := root.Decode(&raw); err != nil {
			return nil, fmt.Errorf("records must be mappings: %w", err)
		}
	default:
		return nil, fmt.Errorf("line %d: records must be a mapping or a sequence of mappings", root.Line)
	}

	records := make([]attr.Set, 0, len(raw))
	for i, r := range raw {
		set, err := attr.SetFromMap(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		records = append(records, set)
	}
	if len(records) == 0 {
		return nil, errors.New("no records found")
	}
	return records, nil
}

// ParseWhere parses key=value pairs into a query. Values are YAML scalars
// or flow collections, so age=30 is an integer and name="30" a string.
func ParseWhere(pairs []string) (attr.Set, error) {
	where := attr.Set{}
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --where %q: expected key=value", pair)
		}
		if _, dup := where[key]; dup {
			return nil, fmt.Errorf("invalid --where %q: %s given twice", pair, key)
		}

		var native any
		if err := yaml.Unmarshal([]byte(raw), &native); err != nil {
			return nil, fmt.Errorf("invalid --where %q: %w", pair, err)
		}
		v, err := attr.FromNative(native)
		if err != nil {
			return nil, fmt.Errorf("invalid --where %q: %w", pair, err)
		}
		where[key] = v
	}
	return where, nil
}

// describeWhere renders a query for messages.
func describeWhere(where attr.Set) string {
	if len(where) == 0 {
		return "(all)"
	}
	keys := where.Keys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + attr.Format(where[k])
	}
	return strings.Join(parts, " ")
}
