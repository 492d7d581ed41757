package limits

import (
	"errors"
	"testing"
)

func TestFrameOverhead(t *testing.T) {
	if FrameOverhead != 74 {
		t.Errorf("FrameOverhead = %d, want 74", FrameOverhead)
	}
	if MinFrameLen != FrameOverhead {
		t.Errorf("MinFrameLen = %d, want %d", MinFrameLen, FrameOverhead)
	}
}

func TestValidatePayloadSize(t *testing.T) {
	cases := []struct {
		name    string
		size    int
		wantErr error
	}{
		{name: "empty payload is legal", size: 0, wantErr: nil},
		{name: "small payload", size: 128, wantErr: nil},
		{name: "at limit", size: MaxPayloadSize, wantErr: nil},
		{name: "over limit", size: MaxPayloadSize + 1, wantErr: ErrPayloadTooLarge},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePayloadSize(make([]byte, tc.size))
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidatePayloadSize() error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("ValidatePayloadSize() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateFrameSize(t *testing.T) {
	if err := ValidateFrameSize(make([]byte, MaxFrameLen)); err != nil {
		t.Errorf("ValidateFrameSize() at limit error: %v", err)
	}
	err := ValidateFrameSize(make([]byte, MaxFrameLen+1))
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("ValidateFrameSize() error = %v, want ErrFrameTooLarge", err)
	}
}
