package handlers

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-board/internal/ai"
	"github.com/spec-kit/repair-board/internal/api/dto"
	"github.com/spec-kit/repair-board/internal/extraction"
	apperrors "github.com/spec-kit/repair-board/pkg/util"
)

// ExtractionHandler exposes media extraction for pre-filling cards.
type ExtractionHandler struct {
	orchestrator *extraction.Orchestrator
}

// NewExtractionHandler constructs handler.
func NewExtractionHandler(orchestrator *extraction.Orchestrator) *ExtractionHandler {
	return &ExtractionHandler{orchestrator: orchestrator}
}

// Extract POST /extractions.
func (h *ExtractionHandler) Extract(c *fiber.Ctx) error {
	var req dto.ExtractionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Image) == "" {
		return apperrors.NewValidationError("invalid payload", map[string]any{"imagen": "required"})
	}
	if !h.orchestrator.Available() {
		return apperrors.NewCapabilityUnavailable("extraction is not configured")
	}

	image := mediaBytes(req.Image)
	audio, err := decodeAudio(req.Audio)
	if err != nil {
		return apperrors.NewValidationError("invalid payload", map[string]any{"audio": err.Error()})
	}

	result := h.orchestrator.Extract(c.UserContext(), image, audio)

	resp := dto.ExtractionResponse{
		OwnerName: ai.DefaultOwnerName,
	}
	switch {
	case result.Image.Err == nil:
		resp.OwnerName = result.Image.Info.OwnerName
		resp.Whatsapp = result.Image.Info.Phone
		resp.HasCharger = result.Image.Info.HasCharger
	default:
		resp.ImageError = outcomeError(result.Image.Err)
	}
	switch {
	case result.Audio.Err == nil:
		resp.Transcript = result.Audio.Transcript
	case !errors.Is(result.Audio.Err, extraction.ErrAudioNotProvided):
		resp.AudioError = outcomeError(result.Audio.Err)
	}
	return c.JSON(fiber.Map{"data": resp})
}

// mediaBytes passes data URLs through untouched and decodes bare base64
// payloads; undecodable input is handed over as-is.
func mediaBytes(payload string) []byte {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil
	}
	if strings.HasPrefix(payload, "data:") {
		return []byte(payload)
	}
	if decoded, err := base64.StdEncoding.DecodeString(payload); err == nil {
		return decoded
	}
	return []byte(payload)
}

func decodeAudio(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, nil
	}
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return nil, errors.New("malformed data URL: missing payload separator")
		}
		payload = payload[comma+1:]
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.New("must be base64 encoded")
	}
	return decoded, nil
}

func outcomeError(err error) *string {
	switch {
	case errors.Is(err, extraction.ErrTimeout):
		msg := "tiempo de espera agotado"
		return &msg
	case errors.Is(err, extraction.ErrUnavailable):
		msg := "servicio de extraccion no disponible"
		return &msg
	default:
		msg := err.Error()
		return &msg
	}
}
