package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-board/internal/ai"
	"github.com/spec-kit/repair-board/internal/observability"
	apperrors "github.com/spec-kit/repair-board/pkg/util"
)

// Per-modality typed failures.
var (
	ErrAudioNotProvided = errors.New("audio not provided")
	ErrTimeout          = errors.New("extraction deadline exceeded")
	ErrUnavailable      = errors.New("extraction capability unavailable")
)

// ImageOutcome is the image modality result: Info is meaningful only
// when Err is nil.
type ImageOutcome struct {
	Info ai.ImageInfo
	Err  error
}

// AudioOutcome is the audio modality result.
type AudioOutcome struct {
	Transcript string
	Err        error
}

// Result combines both modality outcomes. Outcomes are independent: one
// modality timing out or failing never disturbs the other's result.
type Result struct {
	Image ImageOutcome
	Audio AudioOutcome
}

// Orchestrator runs image extraction and audio transcription as
// isolated concurrent tasks on the shared worker pool, joining them
// under one deadline.
type Orchestrator struct {
	capability ai.Capability
	pool       *Pool
	deadline   time.Duration
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewOrchestrator wires the orchestrator to the shared pool.
func NewOrchestrator(capability ai.Capability, pool *Pool, deadline time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Orchestrator {
	if deadline <= 0 {
		deadline = 30 * time.Second
	}
	return &Orchestrator{
		capability: capability,
		pool:       pool,
		deadline:   deadline,
		logger:     logger,
		metrics:    metrics,
	}
}

// Available reports whether the extraction backend is configured at
// all. Callers can refuse work upfront instead of submitting tasks
// that will only come back as unavailable.
func (o *Orchestrator) Available() bool {
	return o.capability.Configured()
}

// Extract runs the configured modalities. image is required (raw bytes
// or a data URL); audio may be nil, in which case only the image task
// runs and the audio outcome reports ErrAudioNotProvided. A modality
// still pending when the shared deadline expires is reported as
// ErrTimeout and its late result, if any, is discarded silently.
func (o *Orchestrator) Extract(ctx context.Context, image, audio []byte) Result {
	result := Result{
		Image: ImageOutcome{Err: ErrTimeout},
		Audio: AudioOutcome{Err: ErrAudioNotProvided},
	}

	normalized, err := NormalizeImage(image)
	if err != nil {
		result.Image = ImageOutcome{Err: apperrors.NewValidationError("invalid image payload", map[string]any{"imagen": err.Error()})}
		if audio == nil {
			return result
		}
		// the audio task still runs on its own
	}

	// 1-buffered so an abandoned task can park its late result and exit
	imageCh := make(chan ImageOutcome, 1)
	audioCh := make(chan AudioOutcome, 1)

	pending := 0
	if err == nil {
		pending++
		if submitErr := o.pool.Submit(func() {
			imageCh <- o.runImage(ctx, normalized)
		}); submitErr != nil {
			pending--
			result.Image = ImageOutcome{Err: ErrUnavailable}
		}
	}
	if audio != nil {
		pending++
		result.Audio = AudioOutcome{Err: ErrTimeout}
		if submitErr := o.pool.Submit(func() {
			audioCh <- o.runAudio(ctx, audio)
		}); submitErr != nil {
			pending--
			result.Audio = AudioOutcome{Err: ErrUnavailable}
		}
	}

	timer := time.NewTimer(o.deadline)
	defer timer.Stop()

	for pending > 0 {
		select {
		case outcome := <-imageCh:
			result.Image = outcome
			pending--
		case outcome := <-audioCh:
			result.Audio = outcome
			pending--
		case <-timer.C:
			// abandon whatever is still running; late results land in
			// the buffered channels and are never read
			o.logger.Warn("extraction deadline expired",
				zap.Int("pending", pending),
				zap.Duration("deadline", o.deadline))
			o.countTimeouts(&result)
			return result
		}
	}
	return result
}

func (o *Orchestrator) runImage(ctx context.Context, image []byte) ImageOutcome {
	info, err := o.capability.ExtractImageInfo(ctx, image)
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		o.countOutcome("image", "unavailable")
		return ImageOutcome{Err: ErrUnavailable}
	case err != nil:
		o.countOutcome("image", "error")
		o.logger.Warn("image extraction failed", zap.Error(err))
		return ImageOutcome{Err: fmt.Errorf("image extraction: %w", err)}
	}
	o.countOutcome("image", "ok")
	return ImageOutcome{Info: info}
}

func (o *Orchestrator) runAudio(ctx context.Context, audio []byte) AudioOutcome {
	transcript, err := o.capability.TranscribeAudio(ctx, audio)
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		o.countOutcome("audio", "unavailable")
		return AudioOutcome{Err: ErrUnavailable}
	case err != nil:
		o.countOutcome("audio", "error")
		o.logger.Warn("audio transcription failed", zap.Error(err))
		return AudioOutcome{Err: fmt.Errorf("audio transcription: %w", err)}
	}
	o.countOutcome("audio", "ok")
	return AudioOutcome{Transcript: transcript}
}

func (o *Orchestrator) countTimeouts(result *Result) {
	if errors.Is(result.Image.Err, ErrTimeout) {
		o.countOutcome("image", "timeout")
	}
	if errors.Is(result.Audio.Err, ErrTimeout) {
		o.countOutcome("audio", "timeout")
	}
}

func (o *Orchestrator) countOutcome(modality, outcome string) {
	if o.metrics != nil {
		o.metrics.ExtractionOutcomes.WithLabelValues(modality, outcome).Inc()
	}
}

var dataURLPrefix = []byte("data:image")

// NormalizeImage accepts raw image bytes or a data-URL-encoded string
// ("data:image/...;base64,<payload>") and returns raw bytes.
func NormalizeImage(image []byte) ([]byte, error) {
	if len(image) == 0 {
		return nil, errors.New("empty image")
	}
	if !bytes.HasPrefix(image, dataURLPrefix) {
		return image, nil
	}
	comma := bytes.IndexByte(image, ',')
	if comma < 0 {
		return nil, errors.New("malformed data URL: missing payload separator")
	}
	decoded, err := base64.StdEncoding.DecodeString(string(image[comma+1:]))
	if err != nil {
		return nil, fmt.Errorf("decode data URL payload: %w", err)
	}
	if len(decoded) == 0 {
		return nil, errors.New("empty data URL payload")
	}
	return decoded, nil
}
