package dto

import (
	"github.com/spec-kit/repair-board/internal/domain"
	"github.com/spec-kit/repair-board/internal/events"
)

// CreateCardRequest is the payload for registering a repair.
type CreateCardRequest struct {
	OwnerName  string  `json:"nombre_propietario"`
	Whatsapp   string  `json:"whatsapp"`
	Problem    string  `json:"problema"`
	DueDate    string  `json:"fecha_limite"`
	ImageURL   *string `json:"imagen_url"`
	HasCharger *string `json:"tiene_cargador"`
	TechNotes  *string `json:"notas_tecnicas"`
}

// UpdateCardRequest carries a partial update. Absent fields are left
// untouched.
type UpdateCardRequest struct {
	OwnerName  *string `json:"nombre_propietario"`
	Whatsapp   *string `json:"whatsapp"`
	Problem    *string `json:"problema"`
	Status     *string `json:"columna"`
	DueDate    *string `json:"fecha_limite"`
	ImageURL   *string `json:"imagen_url"`
	HasCharger *string `json:"tiene_cargador"`
	TechNotes  *string `json:"notas_tecnicas"`
}

// CardResponse is the wire form of a repair card.
type CardResponse = events.CardPayload

// CardFromDomain converts a card to its wire form.
func CardFromDomain(card *domain.RepairCard) CardResponse {
	return events.CardPayloadFrom(card)
}

// HistoryEntryResponse is one recorded status change, newest first.
type HistoryEntryResponse struct {
	ID        int64  `json:"id"`
	CardID    int64  `json:"tarjeta_id"`
	OldStatus string `json:"estado_anterior"`
	NewStatus string `json:"estado_nuevo"`
	ChangedAt string `json:"fecha_cambio"`
}

// HistoryFromDomain converts history entries to their wire form.
func HistoryFromDomain(entries []domain.StatusHistoryEntry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, HistoryEntryResponse{
			ID:        entry.ID,
			CardID:    entry.CardID,
			OldStatus: string(entry.OldStatus),
			NewStatus: string(entry.NewStatus),
			ChangedAt: entry.ChangedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return out
}

// ExtractionRequest carries the media to analyze, each optional, as a
// raw base64 string or a data URL.
type ExtractionRequest struct {
	Image string `json:"imagen"`
	Audio string `json:"audio"`
}

// ExtractionResponse reports the per-modality outcome.
type ExtractionResponse struct {
	OwnerName  string  `json:"nombre_propietario"`
	Whatsapp   string  `json:"whatsapp"`
	HasCharger bool    `json:"tiene_cargador"`
	Transcript string  `json:"transcripcion"`
	ImageError *string `json:"error_imagen"`
	AudioError *string `json:"error_audio"`
}

