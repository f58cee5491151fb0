package model

import "testing"

func TestIntParam(t *testing.T) {
	tests := []struct {
		in      interface{}
		want    int
		wantErr bool
	}{
		{300, 300, false},
		{int64(4), 4, false},
		{6.0, 6, false},
		{0.5, 0, true},
		{"8", 0, true},
	}
	for _, tt := range tests {
		got, err := IntParam("max_depth", tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("IntParam(%v) = %d, %v", tt.in, got, err)
		}
	}
}

func TestFloatParam(t *testing.T) {
	tests := []struct {
		in      interface{}
		want    float64
		wantErr bool
	}{
		{0.05, 0.05, false},
		{1, 1, false},
		{float32(0.5), 0.5, false},
		{true, 0, true},
	}
	for _, tt := range tests {
		got, err := FloatParam("learning_rate", tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("FloatParam(%v) = %v, %v", tt.in, got, err)
		}
	}
}
