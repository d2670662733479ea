package packet

import "testing"

func TestPriority(t *testing.T) {
	tests := []struct {
		name string
		pkt  *Packet
		want uint8
	}{
		{"Nil", nil, 0},
		{"Plain", &Packet{}, 1},
		{"WantAck", &Packet{WantAck: true}, 3},
		{"ReliabilityAck", &Packet{Reliability: ReliabilityAck}, 3},
		{"Reliable", &Packet{Reliability: ReliabilityReliable}, 4},
		{"Position", &Packet{Port: PortPosition}, 2},
		{"Emergency", &Packet{Port: PortEmergency}, 5},
		{"Text", &Packet{Port: PortTextMessage}, 1},
		{"Everything", &Packet{WantAck: true, Reliability: ReliabilityReliable, Port: PortEmergency}, 10},
		{"AckPosition", &Packet{WantAck: true, Reliability: ReliabilityAck, Port: PortPosition}, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Priority(tt.pkt); got != tt.want {
				t.Errorf("Priority() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSaturatingAdd(t *testing.T) {
	if got := saturatingAdd(250, 10); got != 255 {
		t.Errorf("saturatingAdd(250, 10) = %d, want 255", got)
	}
	if got := saturatingAdd(255, 255); got != 255 {
		t.Errorf("saturatingAdd(255, 255) = %d, want 255", got)
	}
	if got := saturatingAdd(1, 2); got != 3 {
		t.Errorf("saturatingAdd(1, 2) = %d, want 3", got)
	}
}

func TestIsHighPriority(t *testing.T) {
	if IsHighPriority(2) {
		t.Error("IsHighPriority(2) = true, want false")
	}
	if !IsHighPriority(3) {
		t.Error("IsHighPriority(3) = false, want true")
	}
}

func TestParsePort(t *testing.T) {
	if p, ok := ParsePort("emergency"); !ok || p != PortEmergency {
		t.Errorf("ParsePort(emergency) = %v, %v", p, ok)
	}
	if _, ok := ParsePort("bogus"); ok {
		t.Error("ParsePort(bogus) ok = true, want false")
	}
	if PortNum(99).String() != "PORT_99" {
		t.Errorf("PortNum(99).String() = %q", PortNum(99).String())
	}
}
