package threadstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"chanvault/internal/models"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Codec encodes snapshots into a human-inspectable text form.
type Codec interface {
	Ext() string
	Encode(thread *models.Thread) ([]byte, error)
	Decode(data []byte) (*models.Thread, error)
}

// CodecFor returns the codec for a configured snapshot format.
func CodecFor(format string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatJSON:
		return jsonCodec{}, nil
	case FormatYAML, "yml":
		return yamlCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown snapshot format: %s", format)
	}
}

type jsonCodec struct{}

func (jsonCodec) Ext() string { return "json" }

func (jsonCodec) Encode(thread *models.Thread) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(thread); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (jsonCodec) Decode(data []byte) (*models.Thread, error) {
	var thread models.Thread
	if err := json.Unmarshal(data, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

type yamlCodec struct{}

func (yamlCodec) Ext() string { return "yaml" }

func (yamlCodec) Encode(thread *models.Thread) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(thread); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (yamlCodec) Decode(data []byte) (*models.Thread, error) {
	var thread models.Thread
	if err := yaml.Unmarshal(data, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}
