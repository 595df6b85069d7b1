package remotegw

import (
	"encoding/json"
	"testing"
)

// TestFlexID_Tolerance covers the identifier representations the
// remote service is known to emit: numbers, numeric strings, null and
// outright junk.
func TestFlexID_Tolerance(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int64
		present bool
	}{
		{"number", `{"id": 42}`, 42, true},
		{"numeric string", `{"id": "42"}`, 42, true},
		{"null", `{"id": null}`, 0, false},
		{"non-numeric string", `{"id": "abc"}`, 0, false},
		{"empty string", `{"id": ""}`, 0, false},
		{"float", `{"id": 42.5}`, 0, false},
		{"negative", `{"id": -7}`, -7, true},
		{"negative string", `{"id": "-7"}`, -7, true},
		{"boolean", `{"id": true}`, 0, false},
		{"missing field", `{}`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dto struct {
				ID FlexID `json:"id"`
			}
			if err := json.Unmarshal([]byte(tt.payload), &dto); err != nil {
				t.Fatalf("field-level tolerance must never error, got %v", err)
			}
			got, ok := dto.ID.Int64()
			if ok != tt.present {
				t.Fatalf("present = %v, want %v", ok, tt.present)
			}
			if ok && got != tt.want {
				t.Errorf("value = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFlexID_Marshal(t *testing.T) {
	data, err := json.Marshal(struct {
		A FlexID `json:"a"`
		B FlexID `json:"b"`
	}{A: NewFlexID(42)})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"a":42,"b":null}` {
		t.Errorf("unexpected encoding: %s", data)
	}
}

func TestMerchantDTO_Decode(t *testing.T) {
	payload := `{"id": "501", "email": "a@x.com", "name": "Ana", "phone": "555"}`
	var dto MerchantDTO
	if err := json.Unmarshal([]byte(payload), &dto); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	id, ok := dto.ID.Int64()
	if !ok || id != 501 {
		t.Errorf("id = %v/%v, want 501/true", id, ok)
	}
	if dto.Email != "a@x.com" || dto.StoreName != "Ana" {
		t.Errorf("unexpected dto: %+v", dto)
	}
}
