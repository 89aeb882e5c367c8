package stream

import "testing"

func TestParseAckPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    AckPolicy
		wantErr bool
	}{
		{in: "", want: AckPolicyAck},
		{in: "ack", want: AckPolicyAck},
		{in: "ignore", want: AckPolicyIgnore},
		{in: "drop", wantErr: true},
		{in: "ACK", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseAckPolicy(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseAckPolicy(%q): want error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseAckPolicy(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseAckPolicy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAckContextOverrideOnce(t *testing.T) {
	ack := NewAckContext("orders", "billing", AckPolicyAck)

	if ack.OnFailure() != AckPolicyAck {
		t.Fatalf("want default policy ack, got %q", ack.OnFailure())
	}

	if err := ack.SetOnFailure(AckPolicyIgnore); err != nil {
		t.Fatalf("first override: %v", err)
	}
	if ack.OnFailure() != AckPolicyIgnore {
		t.Fatalf("override did not take effect, got %q", ack.OnFailure())
	}

	if err := ack.SetOnFailure(AckPolicyAck); err == nil {
		t.Fatal("second override should be rejected")
	}
	if ack.OnFailure() != AckPolicyIgnore {
		t.Fatalf("rejected override mutated policy, got %q", ack.OnFailure())
	}
}
