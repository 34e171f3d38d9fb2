package service

import (
	"errors"
	"reflect"
	"testing"

	"github.com/fleveque/moex-picks/internal/model"
)

func TestNormalize_Array(t *testing.T) {
	raw := `[{"ticker":"SBER","name":"Sberbank"},{"ticker":"GAZP","name":"Gazprom","extra":[1,2]}]`

	got, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	want := []model.Record{
		{"ticker": "SBER", "name": "Sberbank"},
		{"ticker": "GAZP", "name": "Gazprom", "extra": []any{float64(1), float64(2)}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected array unchanged, got %#v", got)
	}
}

func TestNormalize_Wrapped(t *testing.T) {
	raw := `{"recommendations":[{"ticker":"A"},{"ticker":"B"},{"ticker":"C"}],"note":"ignored"}`

	shape, err := DecodeShape(raw)
	if err != nil {
		t.Fatalf("DecodeShape failed: %v", err)
	}
	if shape.Kind != ShapeWrapped {
		t.Errorf("expected wrapped shape, got %s", shape.Kind)
	}

	// Order must be preserved
	for i, want := range []string{"A", "B", "C"} {
		if got := shape.Records[i].String("ticker"); got != want {
			t.Errorf("record %d: expected %s, got %s", i, want, got)
		}
	}
}

func TestNormalize_SingleObject(t *testing.T) {
	raw := `{"ticker":"SBER","name":"Sberbank","sector":"Banking"}`

	shape, err := DecodeShape(raw)
	if err != nil {
		t.Fatalf("DecodeShape failed: %v", err)
	}
	if shape.Kind != ShapeSingleObject {
		t.Errorf("expected single object shape, got %s", shape.Kind)
	}
	if len(shape.Records) != 1 || shape.Records[0].String("sector") != "Banking" {
		t.Errorf("expected the object as the only record, got %#v", shape.Records)
	}
}

func TestNormalize_EmptyArray(t *testing.T) {
	got, err := Normalize(`[]`)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no records, got %d", len(got))
	}
}

func TestNormalize_CodeFence(t *testing.T) {
	raw := "```json\n[{\"ticker\":\"SBER\"}]\n```"

	got, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(got) != 1 || got[0].String("ticker") != "SBER" {
		t.Errorf("unexpected records %#v", got)
	}
}

func TestNormalize_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "Here are the top 10 stocks: SBER, GAZP"},
		{"truncated", `[{"ticker":"SBER"`},
		{"empty", "   "},
		{"scalar", `42`},
		{"string", `"SBER"`},
		{"null", `null`},
		{"wrapped not a list", `{"recommendations":"none today"}`},
		{"list of scalars", `["SBER","GAZP"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			if err == nil {
				t.Fatalf("expected error, got %#v", got)
			}
			if got != nil {
				t.Errorf("expected no partial value, got %#v", got)
			}
			var mErr *MalformedResponseError
			if !errors.As(err, &mErr) {
				t.Errorf("expected MalformedResponseError, got %T: %v", err, err)
			}
		})
	}
}
