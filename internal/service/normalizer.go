package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fleveque/moex-picks/internal/model"
)

// RecommendationsField is the wrapper key models use when forced to answer
// with a JSON object (OpenAI's json_object mode) instead of a bare array.
const RecommendationsField = "recommendations"

// ShapeKind names the JSON layouts a model answer is accepted in.
type ShapeKind int

const (
	// ShapeArray is a bare list of records: [{...}, {...}].
	ShapeArray ShapeKind = iota
	// ShapeWrapped is an object holding the list: {"recommendations": [...]}.
	ShapeWrapped
	// ShapeSingleObject is one record on its own: {"ticker": ...}.
	ShapeSingleObject
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeArray:
		return "array"
	case ShapeWrapped:
		return "wrapped"
	case ShapeSingleObject:
		return "single_object"
	default:
		return fmt.Sprintf("ShapeKind(%d)", int(k))
	}
}

// Shape is a decoded answer tagged with the layout it arrived in.
type Shape struct {
	Kind    ShapeKind
	Records []model.Record
}

// Normalize parses raw model output into a list of untyped records.
// It does not look at field values; that is left to the typed decode step.
func Normalize(raw string) ([]model.Record, error) {
	shape, err := DecodeShape(raw)
	if err != nil {
		return nil, err
	}
	return shape.Records, nil
}

// DecodeShape parses raw as JSON and resolves its shape.
func DecodeShape(raw string) (Shape, error) {
	cleaned := stripCodeFence(raw)
	if cleaned == "" {
		return Shape{}, malformed("empty response", nil)
	}

	var parsed any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return Shape{}, malformed("invalid JSON", err)
	}
	return ResolveShape(parsed)
}

// ResolveShape applies the shape rules in priority order:
//  1. a list is used as is
//  2. an object with a "recommendations" list yields that list
//  3. any other object is a single record
//
// Everything else is malformed, including a "recommendations" key that is
// present but not a list and list items that are not objects.
func ResolveShape(parsed any) (Shape, error) {
	switch v := parsed.(type) {
	case []any:
		records, err := toRecords(v)
		if err != nil {
			return Shape{}, err
		}
		return Shape{Kind: ShapeArray, Records: records}, nil

	case map[string]any:
		nested, ok := v[RecommendationsField]
		if !ok {
			return Shape{Kind: ShapeSingleObject, Records: []model.Record{model.Record(v)}}, nil
		}
		list, ok := nested.([]any)
		if !ok {
			return Shape{}, malformed(fmt.Sprintf("%q is not a list", RecommendationsField), nil)
		}
		records, err := toRecords(list)
		if err != nil {
			return Shape{}, err
		}
		return Shape{Kind: ShapeWrapped, Records: records}, nil

	default:
		return Shape{}, malformed(fmt.Sprintf("expected a JSON list or object, got %T", parsed), nil)
	}
}

func toRecords(items []any) ([]model.Record, error) {
	records := make([]model.Record, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, malformed(fmt.Sprintf("item %d is not an object", i), nil)
		}
		records = append(records, model.Record(obj))
	}
	return records, nil
}

// stripCodeFence removes a Markdown ``` fence that local models like to wrap
// JSON in. Text without a fence is returned trimmed and otherwise untouched.
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return trimmed
	}
	lines = lines[1:] // drops the opening fence and its language tag
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
