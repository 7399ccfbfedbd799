package whisper

import (
	"encoding/binary"
	"math"
	"testing"
)

func encodeInt16s(values []int16) []byte {
	pcm := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return pcm
}

func almostEqual(a, b float32) bool {
	return math.Abs(float64(a-b)) <= 1e-6
}

func TestPcmToFloat32(t *testing.T) {
	t.Parallel()

	t.Run("empty input", func(t *testing.T) {
		if out := pcmToFloat32(nil); len(out) != 0 {
			t.Fatalf("expected 0 samples, got %d", len(out))
		}
	})

	t.Run("full scale", func(t *testing.T) {
		tests := []struct {
			name  string
			value int16
			want  float32
		}{
			{"max positive", 32767, 32767.0 / 32768.0},
			{"max negative", -32768, -1.0},
			{"zero", 0, 0.0},
			{"mid positive", 16384, 0.5},
			{"mid negative", -16384, -0.5},
		}
		for _, tt := range tests {
			out := pcmToFloat32(encodeInt16s([]int16{tt.value}))
			if !almostEqual(out[0], tt.want) {
				t.Errorf("%s: pcmToFloat32(%d) = %f; want %f", tt.name, tt.value, out[0], tt.want)
			}
		}
	})

	t.Run("multiple samples", func(t *testing.T) {
		values := []int16{0, 100, -100, 32767, -32768}
		out := pcmToFloat32(encodeInt16s(values))
		if len(out) != len(values) {
			t.Fatalf("expected %d samples, got %d", len(values), len(out))
		}
		for i, v := range values {
			if want := float32(v) / 32768.0; !almostEqual(out[i], want) {
				t.Errorf("sample[%d] = %f; want %f", i, out[i], want)
			}
		}
	})

	t.Run("trailing odd byte ignored", func(t *testing.T) {
		out := pcmToFloat32([]byte{0x00, 0x40, 0xFF})
		if len(out) != 1 {
			t.Fatalf("expected 1 sample from 3-byte input, got %d", len(out))
		}
	})
}

func TestPcmToFloat32Mono(t *testing.T) {
	t.Parallel()

	t.Run("single channel matches direct conversion", func(t *testing.T) {
		pcm := encodeInt16s([]int16{100, -200, 300})
		mono := pcmToFloat32Mono(pcm, 1)
		direct := pcmToFloat32(pcm)
		if len(mono) != len(direct) {
			t.Fatalf("length mismatch: mono=%d, direct=%d", len(mono), len(direct))
		}
		for i := range mono {
			if mono[i] != direct[i] {
				t.Errorf("sample[%d]: mono=%f, direct=%f", i, mono[i], direct[i])
			}
		}
	})

	t.Run("zero channels falls back to direct conversion", func(t *testing.T) {
		mono := pcmToFloat32Mono(encodeInt16s([]int16{1000, -1000}), 0)
		if len(mono) != 2 {
			t.Fatalf("expected 2 samples, got %d", len(mono))
		}
	})

	t.Run("stereo averages channel pairs", func(t *testing.T) {
		mono := pcmToFloat32Mono(encodeInt16s([]int16{1000, 3000, -2000, -4000}), 2)
		if len(mono) != 2 {
			t.Fatalf("expected 2 mono samples from 4-sample stereo, got %d", len(mono))
		}
		if want := float32(2000) / 32768.0; !almostEqual(mono[0], want) {
			t.Errorf("mono[0] = %f; want %f", mono[0], want)
		}
		if want := float32(-3000) / 32768.0; !almostEqual(mono[1], want) {
			t.Errorf("mono[1] = %f; want %f", mono[1], want)
		}
	})

	t.Run("three channels averaged per frame", func(t *testing.T) {
		mono := pcmToFloat32Mono(encodeInt16s([]int16{3000, 6000, 9000}), 3)
		if len(mono) != 1 {
			t.Fatalf("expected 1 mono sample from 3-channel frame, got %d", len(mono))
		}
		if want := float32(6000) / 32768.0; !almostEqual(mono[0], want) {
			t.Errorf("mono[0] = %f; want %f", mono[0], want)
		}
	})
}
