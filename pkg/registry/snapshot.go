package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/panel/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// entry is the per-expert value of a roster snapshot document.
// Field names match the files exported by earlier versions of the tool.
type entry struct {
	Description string `json:"description" yaml:"description" mapstructure:"description"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Avatar      string `json:"avatar,omitempty" yaml:"avatar,omitempty" mapstructure:"avatar"`
}

type rawEntry struct {
	id    string
	value any
}

// ExportSnapshot serializes the roster as an indented JSON object keyed by
// expert id, in registration order.
func (r *Registry) ExportSnapshot() ([]byte, error) {
	return EncodeJSON(r.List())
}

// ImportSnapshot replaces the roster with the JSON document in data.
// On any structural violation it returns *domain.InvalidSnapshotError and the
// registry is unchanged.
func (r *Registry) ImportSnapshot(data []byte) error {
	experts, err := DecodeJSON(data)
	if err != nil {
		return err
	}
	return r.replaceFromSnapshot(experts)
}

// ExportYAML serializes the roster as a YAML mapping in registration order.
func (r *Registry) ExportYAML() ([]byte, error) {
	return EncodeYAML(r.List())
}

// ImportYAML is the YAML counterpart of ImportSnapshot.
func (r *Registry) ImportYAML(data []byte) error {
	experts, err := DecodeYAML(data)
	if err != nil {
		return err
	}
	return r.replaceFromSnapshot(experts)
}

func (r *Registry) replaceFromSnapshot(experts []domain.Expert) error {
	if err := r.Replace(experts); err != nil {
		return &domain.InvalidSnapshotError{Reason: "rejected roster", Err: err}
	}
	return nil
}

// EncodeJSON renders experts in the snapshot document format.
func EncodeJSON(experts []domain.Expert) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, e := range experts {
		if i > 0 {
			buf.WriteString(",")
		}
		key, err := marshalNoEscape(e.ID)
		if err != nil {
			return nil, err
		}
		val, err := marshalNoEscape(entry{Description: e.Description, Name: e.Name, Avatar: e.Avatar})
		if err != nil {
			return nil, err
		}
		buf.WriteString("\n  ")
		buf.Write(key)
		buf.WriteString(": ")
		var indented bytes.Buffer
		if err := json.Indent(&indented, val, "  ", "  "); err != nil {
			return nil, err
		}
		buf.Write(indented.Bytes())
	}
	if len(experts) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// DecodeJSON parses a snapshot document, keeping key order and rejecting
// duplicate keys (which encoding/json would otherwise silently collapse).
func DecodeJSON(data []byte) ([]domain.Expert, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, invalid("malformed JSON", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, invalid("document must be a JSON object keyed by expert id", nil)
	}

	var raws []rawEntry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, invalid("malformed JSON", err)
		}
		id, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, invalid(fmt.Sprintf("expert %q", id), err)
		}
		value, err := decodeJSONValue(raw)
		if err != nil {
			return nil, invalid(fmt.Sprintf("expert %q", id), err)
		}
		raws = append(raws, rawEntry{id: id, value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, invalid("malformed JSON", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, invalid("trailing data after snapshot object", err)
	}
	return decodeEntries(raws)
}

// decodeJSONValue decodes one entry value. Objects are walked token by token
// so a field repeated inside the entry is an error instead of last-wins.
func decodeJSONValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		var value any
		err := json.Unmarshal(raw, &value)
		return value, err
	}

	fields := make(map[string]any)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		if _, dup := fields[key]; dup {
			return nil, fmt.Errorf("duplicate field %q", key)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		fields[key] = value
	}
	return fields, nil
}

// EncodeYAML renders experts as an ordered YAML mapping.
func EncodeYAML(experts []domain.Expert) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range experts {
		var val yaml.Node
		if err := val.Encode(entry{Description: e.Description, Name: e.Name, Avatar: e.Avatar}); err != nil {
			return nil, fmt.Errorf("failed to encode expert %q: %w", e.ID, err)
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.ID},
			&val,
		)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("failed to encode roster: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeYAML parses a YAML snapshot with the same rules as DecodeJSON.
func DecodeYAML(data []byte) ([]domain.Expert, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, invalid("malformed YAML", err)
	}
	if doc.Kind == 0 {
		// Empty document.
		return []domain.Expert{}, nil
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, invalid("document must be a mapping keyed by expert id", nil)
	}

	mapping := doc.Content[0]
	raws := make([]rawEntry, 0, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyNode, valNode := mapping.Content[i], mapping.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return nil, invalid(fmt.Sprintf("line %d: expert id must be a scalar", keyNode.Line), nil)
		}
		if field, dup := repeatedKey(valNode); dup {
			return nil, invalid(fmt.Sprintf("expert %q: duplicate field %q", keyNode.Value, field), nil)
		}
		var value any
		if err := valNode.Decode(&value); err != nil {
			return nil, invalid(fmt.Sprintf("expert %q", keyNode.Value), err)
		}
		raws = append(raws, rawEntry{id: keyNode.Value, value: value})
	}
	return decodeEntries(raws)
}

func repeatedKey(n *yaml.Node) (string, bool) {
	if n.Kind != yaml.MappingNode {
		return "", false
	}
	seen := make(map[string]struct{}, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		if _, dup := seen[key]; dup {
			return key, true
		}
		seen[key] = struct{}{}
	}
	return "", false
}

func decodeEntries(raws []rawEntry) ([]domain.Expert, error) {
	experts := make([]domain.Expert, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	for _, raw := range raws {
		if strings.TrimSpace(raw.id) == "" {
			return nil, invalid("empty expert id", nil)
		}
		if _, dup := seen[raw.id]; dup {
			return nil, invalid(fmt.Sprintf("duplicate expert id %q", raw.id), nil)
		}
		seen[raw.id] = struct{}{}

		e, err := decodeEntry(raw)
		if err != nil {
			return nil, err
		}
		experts = append(experts, e)
	}
	return experts, nil
}

func decodeEntry(raw rawEntry) (domain.Expert, error) {
	fields, ok := raw.value.(map[string]any)
	if !ok {
		return domain.Expert{}, invalid(fmt.Sprintf("expert %q must be an object", raw.id), nil)
	}
	desc, present := fields["description"]
	if !present {
		return domain.Expert{}, invalid(fmt.Sprintf("expert %q is missing description", raw.id), nil)
	}
	if s, isString := desc.(string); isString && strings.TrimSpace(s) == "" {
		return domain.Expert{}, invalid(fmt.Sprintf("expert %q has an empty description", raw.id), nil)
	}

	var e entry
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &e,
		TagName:     "mapstructure",
		ErrorUnused: true,
	})
	if err != nil {
		return domain.Expert{}, err
	}
	if err := dec.Decode(fields); err != nil {
		return domain.Expert{}, invalid(fmt.Sprintf("expert %q", raw.id), err)
	}
	return domain.Expert{
		ID:          raw.id,
		Description: e.Description,
		Name:        e.Name,
		Avatar:      e.Avatar,
	}, nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func invalid(reason string, err error) error {
	return &domain.InvalidSnapshotError{Reason: reason, Err: err}
}
