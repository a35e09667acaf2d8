package events

import (
	"time"

	"github.com/spec-kit/repair-board/internal/domain"
)

// CardPayload is the wire representation of a card carried by created
// and updated events. Field names follow the board's original API.
type CardPayload struct {
	ID                 int64   `json:"id"`
	NombrePropietario  string  `json:"nombre_propietario"`
	Problema           string  `json:"problema"`
	Whatsapp           string  `json:"whatsapp"`
	FechaInicio        string  `json:"fecha_inicio"`
	FechaLimite        string  `json:"fecha_limite"`
	Columna            string  `json:"columna"`
	ImagenURL          *string `json:"imagen_url"`
	TieneCargador      *string `json:"tiene_cargador"`
	NotasTecnicas      *string `json:"notas_tecnicas"`
	FechaIngresado     *string `json:"fecha_ingresado"`
	FechaDiagnosticada *string `json:"fecha_diagnosticada"`
	FechaParaEntregar  *string `json:"fecha_para_entregar"`
	FechaListos        *string `json:"fecha_listos"`
}

const (
	timestampLayout = "2006-01-02 15:04:05"
	dateLayout      = "2006-01-02"
)

// CardPayloadFrom converts a card into its event payload.
func CardPayloadFrom(card *domain.RepairCard) CardPayload {
	return CardPayload{
		ID:                 card.ID,
		NombrePropietario:  card.OwnerName,
		Problema:           card.Problem,
		Whatsapp:           card.Whatsapp,
		FechaInicio:        card.StartDate.Format(timestampLayout),
		FechaLimite:        card.DueDate.Format(dateLayout),
		Columna:            string(card.Status),
		ImagenURL:          card.ImageURL,
		TieneCargador:      card.HasCharger,
		NotasTecnicas:      card.TechNotes,
		FechaIngresado:     formatEntry(card.IngresadoAt),
		FechaDiagnosticada: formatEntry(card.DiagnosticadaAt),
		FechaParaEntregar:  formatEntry(card.ParaEntregarAt),
		FechaListos:        formatEntry(card.ListosAt),
	}
}

func formatEntry(ts *time.Time) *string {
	if ts == nil {
		return nil
	}
	formatted := ts.Format(timestampLayout)
	return &formatted
}
