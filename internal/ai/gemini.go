package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-board/internal/config"
)

// ErrNotConfigured signals that the AI capability has no API key and
// every call is rejected without leaving the process.
var ErrNotConfigured = errors.New("gemini capability not configured")

// ImageInfo is the structured guess extracted from a device photo.
type ImageInfo struct {
	OwnerName  string `json:"nombre"`
	Phone      string `json:"telefono"`
	HasCharger bool   `json:"tiene_cargador"`
}

// Capability is the external AI surface the orchestrator depends on.
// Both calls are fallible and slow; callers own deadlines.
type Capability interface {
	ExtractImageInfo(ctx context.Context, image []byte) (ImageInfo, error)
	TranscribeAudio(ctx context.Context, audio []byte) (string, error)
	Configured() bool
}

// NewCapability builds the Gemini client, or a rejecting variant when no
// API key is configured. Construction never fails; an unconfigured
// capability is a runtime CAPABILITY_UNAVAILABLE, not a startup error.
func NewCapability(cfg config.GeminiConfig, logger *zap.Logger) Capability {
	if strings.TrimSpace(cfg.APIKey) == "" {
		logger.Warn("GEMINI_API_KEY not provided; extraction endpoints will report the capability as unavailable")
		return unavailable{}
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	logger.Info("gemini capability configured", zap.String("model", cfg.Model))
	return &GeminiClient{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type unavailable struct{}

func (unavailable) ExtractImageInfo(context.Context, []byte) (ImageInfo, error) {
	return ImageInfo{}, ErrNotConfigured
}

func (unavailable) TranscribeAudio(context.Context, []byte) (string, error) {
	return "", ErrNotConfigured
}

func (unavailable) Configured() bool { return false }

// GeminiClient talks to the generateContent REST endpoint.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

const imagePrompt = `Analiza esta imagen de un equipo electrónico y extrae:
1. NOMBRE DEL CLIENTE: etiquetas, stickers o papeles con el nombre del propietario.
2. NÚMERO DE WHATSAPP/TELÉFONO: números visibles, incluyendo códigos de país como +57.
3. CARGADOR: si hay un cargador, adaptador o cable de alimentación visible marca true; si no hay ninguno marca false.
Si no encuentras nombre usa "Cliente"; si no encuentras teléfono deja "".
Responde ÚNICAMENTE con JSON válido:
{"nombre": "...", "telefono": "...", "tiene_cargador": true/false}`

const transcribePrompt = `Transcribe exactamente lo que dice la persona en este audio.
Solo devuelve el texto transcrito, sin explicaciones adicionales.`

// ExtractImageInfo sends the photo to Gemini and parses the response.
// The model is known to sometimes answer with free text instead of the
// requested JSON; ParseImageInfo degrades to defaults in that case, so
// only transport-level failures surface as errors.
func (g *GeminiClient) ExtractImageInfo(ctx context.Context, image []byte) (ImageInfo, error) {
	text, err := g.generate(ctx, imagePrompt, "image/jpeg", image)
	if err != nil {
		return ImageInfo{}, err
	}
	return ParseImageInfo(text), nil
}

// TranscribeAudio sends the clip to Gemini and returns the transcript.
func (g *GeminiClient) TranscribeAudio(ctx context.Context, audio []byte) (string, error) {
	text, err := g.generate(ctx, transcribePrompt, "audio/wav", audio)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "No se pudo transcribir el audio", nil
	}
	return text, nil
}

// Configured reports that an API key is present.
func (g *GeminiClient) Configured() bool { return true }

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (g *GeminiClient) generate(ctx context.Context, prompt, mimeType string, payload []byte) (string, error) {
	body := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: prompt},
				{InlineData: &inlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(payload),
				}},
			},
		}},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call gemini: %w", err)
	}
	defer resp.Body.Close()

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, decoded.Error.Message)
	}

	var sb strings.Builder
	for _, candidate := range decoded.Candidates {
		for _, p := range candidate.Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	return sb.String(), nil
}
