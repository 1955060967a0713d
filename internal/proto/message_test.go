package proto

import (
	"encoding/json"
	"testing"
)

func TestOutboundFlattensPayload(t *testing.T) {
	tests := []struct {
		name string
		in   Outbound
		want string
	}{
		{
			name: "no payload",
			in:   Outbound{Type: OutboundTypePing},
			want: `{"type":"ping"}`,
		},
		{
			name: "slot busy",
			in:   Outbound{Type: OutboundTypeSlotBusy, Payload: SlotBusy{SlotNumber: 1}},
			want: `{"type":"slot_busy","slotNumber":1}`,
		},
		{
			name: "empty snapshot keeps field",
			in:   Outbound{Type: OutboundTypeSlotsUpdate, Payload: SlotsUpdate{Slots: []Slot{}}},
			want: `{"type":"slots_update","slots":[]}`,
		},
		{
			name: "empty struct",
			in:   Outbound{Type: "x", Payload: struct{}{}},
			want: `{"type":"x"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.in)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestOutboundRejectsNonObjectPayload(t *testing.T) {
	if _, err := json.Marshal(Outbound{Type: "x", Payload: 42}); err == nil {
		t.Fatalf("expected error for scalar payload")
	}
}

func TestFrameDecodesCameraUpdate(t *testing.T) {
	raw, err := json.Marshal(Outbound{Type: OutboundTypeCameraUpdate, Payload: CameraUpdate{UserID: "a", Enabled: true}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f.Type != OutboundTypeCameraUpdate || f.UserID != "a" || !f.Enabled {
		t.Fatalf("unexpected frame %+v", f)
	}
}
