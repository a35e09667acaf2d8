package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-board/internal/ai"
)

type fakeCapability struct {
	info       ai.ImageInfo
	imageErr   error
	transcript string
	audioErr   error

	imageDelay time.Duration
	audioDelay time.Duration
	gotImage   []byte
}

func (f *fakeCapability) ExtractImageInfo(ctx context.Context, image []byte) (ai.ImageInfo, error) {
	f.gotImage = image
	if f.imageDelay > 0 {
		select {
		case <-time.After(f.imageDelay):
		case <-ctx.Done():
		}
	}
	return f.info, f.imageErr
}

func (f *fakeCapability) TranscribeAudio(ctx context.Context, audio []byte) (string, error) {
	if f.audioDelay > 0 {
		select {
		case <-time.After(f.audioDelay):
		case <-ctx.Done():
		}
	}
	return f.transcript, f.audioErr
}

func (f *fakeCapability) Configured() bool { return true }

func newTestOrchestrator(t *testing.T, capability ai.Capability, deadline time.Duration) *Orchestrator {
	t.Helper()
	pool := NewPool(4, zap.NewNop())
	t.Cleanup(pool.Close)
	return NewOrchestrator(capability, pool, deadline, zap.NewNop(), nil)
}

func TestExtractBothModalities(t *testing.T) {
	capability := &fakeCapability{
		info:       ai.ImageInfo{OwnerName: "Maria", Phone: "+573001112233", HasCharger: true},
		transcript: "el equipo no enciende",
	}
	o := newTestOrchestrator(t, capability, time.Second)

	result := o.Extract(context.Background(), []byte("jpeg-bytes"), []byte("ogg-bytes"))
	if result.Image.Err != nil {
		t.Fatalf("image err = %v", result.Image.Err)
	}
	if result.Image.Info.OwnerName != "Maria" || !result.Image.Info.HasCharger {
		t.Fatalf("image info = %+v", result.Image.Info)
	}
	if result.Audio.Err != nil || result.Audio.Transcript != "el equipo no enciende" {
		t.Fatalf("audio outcome = %+v", result.Audio)
	}
}

func TestExtractWithoutAudio(t *testing.T) {
	capability := &fakeCapability{info: ai.ImageInfo{OwnerName: "Luis"}}
	o := newTestOrchestrator(t, capability, time.Second)

	result := o.Extract(context.Background(), []byte("jpeg-bytes"), nil)
	if result.Image.Err != nil {
		t.Fatalf("image err = %v", result.Image.Err)
	}
	if !errors.Is(result.Audio.Err, ErrAudioNotProvided) {
		t.Fatalf("audio err = %v, want ErrAudioNotProvided", result.Audio.Err)
	}
}

func TestExtractFailuresAreIsolated(t *testing.T) {
	capability := &fakeCapability{
		imageErr:   errors.New("model refused"),
		transcript: "todo bien",
	}
	o := newTestOrchestrator(t, capability, time.Second)

	result := o.Extract(context.Background(), []byte("jpeg-bytes"), []byte("ogg-bytes"))
	if result.Image.Err == nil {
		t.Fatalf("image failure swallowed")
	}
	if result.Audio.Err != nil || result.Audio.Transcript != "todo bien" {
		t.Fatalf("audio outcome disturbed by image failure: %+v", result.Audio)
	}
}

func TestExtractDeadline(t *testing.T) {
	capability := &fakeCapability{
		info:       ai.ImageInfo{OwnerName: "Maria"},
		audioDelay: 5 * time.Second, // hangs past the deadline
		transcript: "late",
	}
	o := newTestOrchestrator(t, capability, 100*time.Millisecond)

	start := time.Now()
	result := o.Extract(context.Background(), []byte("jpeg-bytes"), []byte("ogg-bytes"))
	elapsed := time.Since(start)

	if elapsed > time.Second {
		t.Fatalf("Extract took %v, deadline not enforced", elapsed)
	}
	if result.Image.Err != nil {
		t.Fatalf("fast modality lost to the slow one: %v", result.Image.Err)
	}
	if !errors.Is(result.Audio.Err, ErrTimeout) {
		t.Fatalf("audio err = %v, want ErrTimeout", result.Audio.Err)
	}
}

func TestExtractCapabilityUnavailable(t *testing.T) {
	capability := &fakeCapability{imageErr: ai.ErrNotConfigured, audioErr: ai.ErrNotConfigured}
	o := newTestOrchestrator(t, capability, time.Second)

	result := o.Extract(context.Background(), []byte("jpeg-bytes"), []byte("ogg-bytes"))
	if !errors.Is(result.Image.Err, ErrUnavailable) {
		t.Fatalf("image err = %v, want ErrUnavailable", result.Image.Err)
	}
	if !errors.Is(result.Audio.Err, ErrUnavailable) {
		t.Fatalf("audio err = %v, want ErrUnavailable", result.Audio.Err)
	}
}

func TestExtractNormalizesDataURL(t *testing.T) {
	raw := []byte{0xff, 0xd8, 0xff, 0x01}
	dataURL := []byte("data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw))

	capability := &fakeCapability{info: ai.ImageInfo{OwnerName: "Maria"}}
	o := newTestOrchestrator(t, capability, time.Second)

	result := o.Extract(context.Background(), dataURL, nil)
	if result.Image.Err != nil {
		t.Fatalf("image err = %v", result.Image.Err)
	}
	if !bytes.Equal(capability.gotImage, raw) {
		t.Fatalf("capability received %v, want decoded bytes %v", capability.gotImage, raw)
	}
}

func TestNormalizeImage(t *testing.T) {
	tests := []struct {
		name    string
		in      []byte
		wantErr bool
	}{
		{"raw bytes pass through", []byte{0x01, 0x02}, false},
		{"empty rejected", nil, true},
		{"data URL without separator", []byte("data:image/png;base64"), true},
		{"data URL with bad payload", []byte("data:image/png;base64,!!!"), true},
		{"data URL with empty payload", []byte("data:image/png;base64,"), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NormalizeImage(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tc.wantErr)
			}
		})
	}
}
