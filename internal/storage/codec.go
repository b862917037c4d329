package storage

import (
	"bytes"
	"fmt"

	"github.com/chrissnell/lakeice/pkg/energybalance"
	"github.com/chrissnell/lakeice/pkg/ice"
	"github.com/vmihailenco/msgpack/v5"
)

// layerRecord is the stored form of a layer. The material is kept by name so the blob stays
// readable if the enum order ever changes.
type layerRecord struct {
	Type         string         `json:"type"`
	Height       float64        `json:"height"`
	Density      float64        `json:"density"`
	Conductivity float64        `json:"conductivity"`
	HeatCapacity float64        `json:"heat_capacity"`
	Temperature  *float64       `json:"temperature,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := msgpack.NewEncoder(&buf)
	encoder.SetCustomStructTag("json")
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshal(data []byte, v any) error {
	decoder := msgpack.NewDecoder(bytes.NewReader(data))
	decoder.SetCustomStructTag("json")
	return decoder.Decode(v)
}

// EncodeLayers packs a layer stack into a MessagePack blob
func EncodeLayers(layers []ice.Layer) ([]byte, error) {
	records := make([]layerRecord, len(layers))
	for i, l := range layers {
		records[i] = layerRecord{
			Type:         l.Type.String(),
			Height:       l.Height,
			Density:      l.Density,
			Conductivity: l.Conductivity,
			HeatCapacity: l.HeatCapacity,
			Temperature:  l.Temperature,
			Metadata:     l.Metadata,
		}
	}
	data, err := marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode layers: %w", err)
	}
	return data, nil
}

// DecodeLayers unpacks a blob written by EncodeLayers
func DecodeLayers(data []byte) ([]ice.Layer, error) {
	var records []layerRecord
	if err := unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode layers: %w", err)
	}
	layers := make([]ice.Layer, len(records))
	for i, r := range records {
		layers[i] = ice.Layer{
			Type:         ice.ParseMaterial(r.Type),
			Height:       r.Height,
			Density:      r.Density,
			Conductivity: r.Conductivity,
			HeatCapacity: r.HeatCapacity,
			Temperature:  r.Temperature,
			Metadata:     r.Metadata,
		}
	}
	return layers, nil
}

// EncodeBalance packs energy-balance diagnostics. A nil result encodes to nil.
func EncodeBalance(b *energybalance.Result) ([]byte, error) {
	if b == nil {
		return nil, nil
	}
	data, err := marshal(b)
	if err != nil {
		return nil, fmt.Errorf("failed to encode energy balance: %w", err)
	}
	return data, nil
}

// DecodeBalance unpacks a blob written by EncodeBalance. Empty data decodes to nil.
func DecodeBalance(data []byte) (*energybalance.Result, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var b energybalance.Result
	if err := unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to decode energy balance: %w", err)
	}
	return &b, nil
}
