package domain

import "time"

// CardStatus enumerates the workflow columns a repair card moves through.
type CardStatus string

const (
	StatusIngresado     CardStatus = "ingresado"
	StatusDiagnosticada CardStatus = "diagnosticada"
	StatusParaEntregar  CardStatus = "para_entregar"
	StatusListos        CardStatus = "listos"
)

// AllStatuses lists the valid workflow states in board order.
var AllStatuses = []CardStatus{
	StatusIngresado,
	StatusDiagnosticada,
	StatusParaEntregar,
	StatusListos,
}

// IsValid reports whether the status belongs to the workflow.
func (s CardStatus) IsValid() bool {
	for _, candidate := range AllStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// Charger flag values. An empty/nil flag means unknown.
const (
	ChargerIncluded = "si"
	ChargerMissing  = "no"
)

// RepairCard is the aggregate for a repair job tracked on the board.
type RepairCard struct {
	ID              int64
	OwnerName       string
	Whatsapp        string
	Problem         string
	Status          CardStatus
	StartDate       time.Time
	DueDate         time.Time
	ImageURL        *string
	HasCharger      *string
	TechNotes       *string
	IngresadoAt     *time.Time
	DiagnosticadaAt *time.Time
	ParaEntregarAt  *time.Time
	ListosAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EntryTime returns the first-entry timestamp recorded for the given state.
func (c *RepairCard) EntryTime(status CardStatus) *time.Time {
	switch status {
	case StatusIngresado:
		return c.IngresadoAt
	case StatusDiagnosticada:
		return c.DiagnosticadaAt
	case StatusParaEntregar:
		return c.ParaEntregarAt
	case StatusListos:
		return c.ListosAt
	}
	return nil
}

// MarkEntered records the first time the card reaches a state. The
// timestamp is set exactly once; re-entering a state later never
// overwrites it. Returns true when the timestamp was set.
func (c *RepairCard) MarkEntered(status CardStatus, now time.Time) bool {
	if c.EntryTime(status) != nil {
		return false
	}
	switch status {
	case StatusIngresado:
		c.IngresadoAt = &now
	case StatusDiagnosticada:
		c.DiagnosticadaAt = &now
	case StatusParaEntregar:
		c.ParaEntregarAt = &now
	case StatusListos:
		c.ListosAt = &now
	default:
		return false
	}
	return true
}
