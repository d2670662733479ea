package wire

import (
	"errors"
	"testing"
)

func TestRequestRoundTrip(t *testing.T) {
	req := &Request{MessageID: 7, Command: CmdForceOpen, DurationSecs: 300}

	data, err := EncodeRequest(req)
	if err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}
	got, err := DecodeRequest(data)
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if *got != *req {
		t.Errorf("got %+v, want %+v", got, req)
	}
}

func TestRequestIntegerKeys(t *testing.T) {
	// {1: 1, 2: 1} = GET_STATUS, messageId 1
	data := []byte{0xa2, 0x01, 0x01, 0x02, 0x01}
	req, err := DecodeRequest(data)
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if req.MessageID != 1 || req.Command != CmdGetStatus || req.DurationSecs != 0 {
		t.Errorf("decoded %+v", req)
	}

	enc, err := EncodeRequest(req)
	if err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}
	if string(enc) != string(data) {
		t.Errorf("encoding = %x, want %x", enc, data)
	}
}

func TestDecodeRequestErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"garbage", []byte{0xff, 0xff}},
		{"zero message id", []byte{0xa2, 0x01, 0x00, 0x02, 0x01}},
		{"not a map", []byte{0x01}},
		{"repeated key", []byte{0xa3, 0x01, 0x05, 0x01, 0x06, 0x02, 0x01}},
		{"indefinite map", []byte{0xbf, 0x01, 0x05, 0x02, 0x01, 0xff}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRequest(tt.data)
			if !errors.Is(err, ErrInvalidMessage) {
				t.Errorf("err = %v, want ErrInvalidMessage", err)
			}
		})
	}
}

func TestResponseRoundTrip(t *testing.T) {
	resp := &Response{
		MessageID: 9,
		Status:    StatusSuccess,
		Window: &WindowStatus{
			IsOpen:        true,
			NextChange:    1767301200,
			QueuedPackets: 4,
			Mode:          1,
			Override:      OverrideForcedOpen,
			Enabled:       true,
			Start:         21 * 60,
			End:           23 * 60,
		},
	}

	data, err := EncodeResponse(resp)
	if err != nil {
		t.Fatalf("EncodeResponse: %v", err)
	}
	got, err := DecodeResponse(data)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if got.Window == nil || *got.Window != *resp.Window {
		t.Errorf("Window = %+v, want %+v", got.Window, resp.Window)
	}
	if got.Stats != nil {
		t.Error("Stats should be absent")
	}
	if !got.IsSuccess() {
		t.Error("IsSuccess() = false")
	}
}

func TestPeekMessageID(t *testing.T) {
	// {1: 5, 2: 99}: unknown command but readable ID
	if got := PeekMessageID([]byte{0xa2, 0x01, 0x05, 0x02, 0x18, 0x63}); got != 5 {
		t.Errorf("PeekMessageID = %d, want 5", got)
	}
	if got := PeekMessageID([]byte{0xff}); got != 0 {
		t.Errorf("PeekMessageID(garbage) = %d, want 0", got)
	}
}

func TestCommandType(t *testing.T) {
	if !CmdClearQueue.IsValid() || CommandType(0).IsValid() || CommandType(7).IsValid() {
		t.Error("IsValid range wrong")
	}
	if !CmdForceClose.NeedsDuration() || CmdGetStatus.NeedsDuration() {
		t.Error("NeedsDuration wrong")
	}
	if CmdGetStatistics.String() != "GET_STATS" || CommandType(42).String() != "UNKNOWN" {
		t.Error("String wrong")
	}
	if StatusInvalidParameter.String() != "INVALID_PARAMETER" || Status(77).String() != "UNKNOWN" {
		t.Error("Status.String wrong")
	}
}
