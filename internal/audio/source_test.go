// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const testSampleRate = 48000

// writeWAV encodes interleaved float samples as integer PCM.
func writeWAV(t *testing.T, path string, data []float64, rate, channels, bitDepth int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           make([]int, len(data)),
		SourceBitDepth: bitDepth,
	}
	floatToPCM(buf, data, bitDepth)
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
}

func tone(freq, amp float64, n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/testSampleRate)
	}
	return x
}

func TestDownmix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       []float64
		channels int
		want     []float64
	}{
		{"mono passthrough", []float64{0.1, 0.2}, 1, []float64{0.1, 0.2}},
		{"stereo", []float64{1, 0, 0.5, 0.5, -1, 1}, 2, []float64{0.5, 0.5, 0}},
		{"partial frame dropped", []float64{0.3, 0.3, 0.3, 0.9}, 3, []float64{0.3}},
		{"empty", nil, 2, []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Downmix(tt.in, tt.channels)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-12 {
					t.Errorf("[%d] = %g, want %g", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLoadWAV(t *testing.T) {
	t.Parallel()

	for _, depth := range []int{16, 24, 32} {
		t.Run(fmt.Sprintf("%dbit", depth), func(t *testing.T) {
			left := tone(440, 0.5, 4800)
			stereo := make([]float64, 2*len(left))
			for i, v := range left {
				stereo[2*i] = v
				stereo[2*i+1] = -v / 2
			}
			path := filepath.Join(t.TempDir(), "in.wav")
			writeWAV(t, path, stereo, testSampleRate, 2, depth)

			src, err := LoadWAV(path)
			if err != nil {
				t.Fatalf("LoadWAV: %v", err)
			}
			if src.SampleRate() != testSampleRate || src.Channels() != 2 || src.BitDepth() != depth {
				t.Errorf("format = %d Hz, %d ch, %d bit", src.SampleRate(), src.Channels(), src.BitDepth())
			}
			if src.Len() != len(left) {
				t.Fatalf("Len = %d, want %d", src.Len(), len(left))
			}
			tol := 2 / pcmScale(depth)
			for i, got := range src.Samples() {
				if want := left[i] / 4; math.Abs(got-want) > tol {
					t.Fatalf("sample %d = %g, want %g", i, got, want)
				}
			}
		})
	}
}

func TestDecodeWAV_Invalid(t *testing.T) {
	t.Parallel()

	_, err := DecodeWAV(bytes.NewReader([]byte("definitely not RIFF data")))
	if err == nil {
		t.Fatal("expected error for garbage input")
	}
	if _, err := LoadWAV(filepath.Join(t.TempDir(), "missing.wav")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadWAV(missing) = %v, want ErrNotExist", err)
	}
}

func TestSource_StreamAndSeek(t *testing.T) {
	t.Parallel()

	src := NewSource([]float64{0.1, 0.2, 0.3, 0.4, 0.5}, testSampleRate)
	frames := make([][2]float64, 3)

	n, ok := src.Stream(frames)
	if n != 3 || !ok || frames[2] != [2]float64{0.3, 0.3} {
		t.Fatalf("first Stream = %d, %v, %v", n, ok, frames)
	}
	if src.Position() != 3 {
		t.Errorf("Position = %d, want 3", src.Position())
	}

	n, ok = src.Stream(frames)
	if n != 2 || !ok {
		t.Errorf("second Stream = %d, %v; want 2, true", n, ok)
	}
	if n, ok = src.Stream(frames); n != 0 || ok {
		t.Errorf("drained Stream = %d, %v; want 0, false", n, ok)
	}

	if err := src.Seek(1); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if n, _ = src.Stream(frames[:1]); n != 1 || frames[0][0] != 0.2 {
		t.Errorf("after Seek(1) got %v", frames[0])
	}
	for _, p := range []int{-1, 6} {
		if err := src.Seek(p); err == nil {
			t.Errorf("Seek(%d) succeeded", p)
		}
	}
	if f := src.Format(); int(f.SampleRate) != testSampleRate || f.NumChannels != 1 || f.Precision != 2 {
		t.Errorf("Format = %+v", f)
	}
}

func TestFloatToPCM_Clips(t *testing.T) {
	t.Parallel()

	buf := &audio.IntBuffer{Data: make([]int, 4)}
	floatToPCM(buf, []float64{2, -2, 0.5, 0}, 16)
	want := []int{32767, -32768, 16384, 0}
	for i, v := range buf.Data {
		if v != want[i] {
			t.Errorf("[%d] = %d, want %d", i, v, want[i])
		}
	}
}
