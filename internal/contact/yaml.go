package contact

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// DecodeYAML reads one or more records from YAML. The input may be a single
// mapping, a sequence of mappings, or a stream of documents of either shape.
// JSON input is accepted too since it is valid YAML.
func DecodeYAML(data []byte) ([]Record, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var records []Record
	for {
		var node yaml.Node
		if err := dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode contacts: %w", err)
		}

		doc := &node
		if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
			doc = doc.Content[0]
		}

		switch doc.Kind {
		case yaml.SequenceNode:
			var batch []Record
			if err := doc.Decode(&batch); err != nil {
				return nil, fmt.Errorf("decode contacts: %w", err)
			}
			records = append(records, batch...)
		case yaml.MappingNode:
			var r Record
			if err := doc.Decode(&r); err != nil {
				return nil, fmt.Errorf("decode contact: %w", err)
			}
			records = append(records, r)
		default:
			return nil, fmt.Errorf("decode contacts: expected mapping or sequence at line %d", doc.Line)
		}
	}

	if records == nil {
		records = []Record{}
	}
	return records, nil
}
