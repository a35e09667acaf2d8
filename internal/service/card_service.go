package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/repair-board/internal/domain"
	"github.com/spec-kit/repair-board/internal/events"
	"github.com/spec-kit/repair-board/internal/repository"
	apperrors "github.com/spec-kit/repair-board/pkg/util"
)

// EventPublisher receives one event per accepted mutation.
type EventPublisher interface {
	Publish(event events.Event)
}

// MutationListener is signaled strictly after a store commit succeeds.
type MutationListener interface {
	OnMutationCommitted(kind string)
}

// CardService is the status transition engine. It holds no state across
// calls; all durable state lives in the repositories.
type CardService struct {
	cards    repository.CardRepository
	history  repository.HistoryRepository
	listener MutationListener
	events   EventPublisher
	now      func() time.Time
}

// CardDependencies bundles collaborators for the card service.
type CardDependencies struct {
	CardRepo    repository.CardRepository
	HistoryRepo repository.HistoryRepository
	Listener    MutationListener
	Events      EventPublisher
	Now         func() time.Time
}

// CreateCardInput describes card creation payload.
type CreateCardInput struct {
	OwnerName  string
	Problem    string
	Whatsapp   string
	DueDate    time.Time
	ImageURL   *string
	HasCharger *string
	TechNotes  *string
}

// CardPatch is a partial update: a nil field is absent, a non-nil field
// is applied. Status, when present, triggers a workflow transition.
type CardPatch struct {
	OwnerName  *string
	Problem    *string
	Whatsapp   *string
	DueDate    *time.Time
	ImageURL   *string
	HasCharger *string
	TechNotes  *string
	Status     *domain.CardStatus
}

// ListPage describes list pagination. PerPage is capped at MaxPerPage;
// a zero PerPage returns all cards.
type ListPage struct {
	Page    int
	PerPage int
}

// MaxPerPage caps the page size of card listings.
const MaxPerPage = 100

// NewCardService constructs the service.
func NewCardService(deps CardDependencies) *CardService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &CardService{
		cards:    deps.CardRepo,
		history:  deps.HistoryRepo,
		listener: deps.Listener,
		events:   deps.Events,
		now:      now,
	}
}

var phoneRe = regexp.MustCompile(`^\+?[0-9][0-9\s\-]{5,19}$`)

// Create validates the input and persists a new card in the initial
// state. No history entry is written at creation, the audit trail covers
// transitions only. On success the stats cache is invalidated and a
// created event is broadcast.
func (s *CardService) Create(ctx context.Context, input CreateCardInput) (*domain.RepairCard, error) {
	details := map[string]any{}
	if strings.TrimSpace(input.OwnerName) == "" {
		details["nombre_propietario"] = "required"
	}
	if strings.TrimSpace(input.Problem) == "" {
		details["problema"] = "required"
	}
	whatsapp := strings.TrimSpace(input.Whatsapp)
	if whatsapp == "" {
		details["whatsapp"] = "required"
	} else if !phoneRe.MatchString(whatsapp) {
		details["whatsapp"] = "must look like an international phone number"
	}
	if input.DueDate.IsZero() {
		details["fecha_limite"] = "required"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid card payload", details)
	}

	now := s.now().UTC()
	card := &domain.RepairCard{
		OwnerName:  strings.TrimSpace(input.OwnerName),
		Whatsapp:   whatsapp,
		Problem:    strings.TrimSpace(input.Problem),
		Status:     domain.StatusIngresado,
		StartDate:  now,
		DueDate:    input.DueDate,
		ImageURL:   normalizeOptional(input.ImageURL),
		TechNotes:  input.TechNotes,
		HasCharger: input.HasCharger,
	}
	if card.HasCharger == nil {
		// the intake flow historically assumes the charger came along
		included := domain.ChargerIncluded
		card.HasCharger = &included
	}
	card.MarkEntered(domain.StatusIngresado, now)

	if err := s.cards.Create(ctx, card); err != nil {
		return nil, fmt.Errorf("create card: %w", err)
	}

	s.committed("create")
	s.publish(events.EventCardCreated, card.ID, events.CardPayloadFrom(card))
	return card, nil
}

// ApplyUpdate applies a partial update and, when the patch carries a
// status, validates and performs the workflow transition. The card write
// and the conditional history append are one atomic store transaction.
// Returns the updated card and the history entries appended by this call.
func (s *CardService) ApplyUpdate(ctx context.Context, id int64, patch CardPatch) (*domain.RepairCard, []domain.StatusHistoryEntry, error) {
	card, err := s.cards.GetByID(ctx, id)
	if err != nil {
		return nil, nil, mapCardLookup(id, err)
	}

	if patch.Status != nil && !patch.Status.IsValid() {
		return nil, nil, apperrors.NewInvalidStatus(
			fmt.Sprintf("status %q is not allowed", *patch.Status),
			map[string]any{"allowed": domain.AllStatuses},
		)
	}
	if err := validatePatch(patch); err != nil {
		return nil, nil, err
	}

	applyFields(card, patch)

	var appended []domain.StatusHistoryEntry
	if patch.Status != nil && *patch.Status != card.Status {
		now := s.now().UTC()
		oldStatus := card.Status
		card.Status = *patch.Status
		card.MarkEntered(card.Status, now)

		entry := &domain.StatusHistoryEntry{
			CardID:    card.ID,
			OldStatus: oldStatus,
			NewStatus: card.Status,
			ChangedAt: now,
		}
		if err := s.cards.UpdateWithHistory(ctx, card, entry); err != nil {
			return nil, nil, mapCardLookup(id, err)
		}
		appended = append(appended, *entry)
	} else {
		if err := s.cards.Update(ctx, card); err != nil {
			return nil, nil, mapCardLookup(id, err)
		}
	}

	s.committed("update")
	s.publish(events.EventCardUpdated, card.ID, events.CardPayloadFrom(card))
	return card, appended, nil
}

// Delete removes the card; history entries cascade with it.
func (s *CardService) Delete(ctx context.Context, id int64) error {
	if err := s.cards.Delete(ctx, id); err != nil {
		return mapCardLookup(id, err)
	}
	s.committed("delete")
	s.publish(events.EventCardDeleted, id, events.DeletedPayload{ID: id})
	return nil
}

// Get fetches one card.
func (s *CardService) Get(ctx context.Context, id int64) (*domain.RepairCard, error) {
	card, err := s.cards.GetByID(ctx, id)
	if err != nil {
		return nil, mapCardLookup(id, err)
	}
	return card, nil
}

// List returns cards ordered by creation time descending.
func (s *CardService) List(ctx context.Context, page ListPage) ([]domain.RepairCard, error) {
	repoPage := repository.CardPage{}
	if page.PerPage > 0 {
		perPage := page.PerPage
		if perPage > MaxPerPage {
			perPage = MaxPerPage
		}
		pageNo := page.Page
		if pageNo < 1 {
			pageNo = 1
		}
		repoPage.Limit = perPage
		repoPage.Offset = (pageNo - 1) * perPage
	}
	cards, err := s.cards.List(ctx, repoPage)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return cards, nil
}

// History returns the card's status changes, newest first.
func (s *CardService) History(ctx context.Context, id int64) ([]domain.StatusHistoryEntry, error) {
	if _, err := s.cards.GetByID(ctx, id); err != nil {
		return nil, mapCardLookup(id, err)
	}
	entries, err := s.history.ListByCard(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

func validatePatch(patch CardPatch) error {
	details := map[string]any{}
	if patch.OwnerName != nil && strings.TrimSpace(*patch.OwnerName) == "" {
		details["nombre_propietario"] = "must not be empty"
	}
	if patch.Problem != nil && strings.TrimSpace(*patch.Problem) == "" {
		details["problema"] = "must not be empty"
	}
	if patch.Whatsapp != nil {
		whatsapp := strings.TrimSpace(*patch.Whatsapp)
		if whatsapp == "" {
			details["whatsapp"] = "must not be empty"
		} else if !phoneRe.MatchString(whatsapp) {
			details["whatsapp"] = "must look like an international phone number"
		}
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid card patch", details)
	}
	return nil
}

func applyFields(card *domain.RepairCard, patch CardPatch) {
	if patch.OwnerName != nil {
		card.OwnerName = strings.TrimSpace(*patch.OwnerName)
	}
	if patch.Problem != nil {
		card.Problem = strings.TrimSpace(*patch.Problem)
	}
	if patch.Whatsapp != nil {
		card.Whatsapp = strings.TrimSpace(*patch.Whatsapp)
	}
	if patch.DueDate != nil {
		card.DueDate = *patch.DueDate
	}
	if patch.ImageURL != nil {
		card.ImageURL = normalizeOptional(patch.ImageURL)
	}
	if patch.HasCharger != nil {
		card.HasCharger = normalizeOptional(patch.HasCharger)
	}
	if patch.TechNotes != nil {
		card.TechNotes = normalizeOptional(patch.TechNotes)
	}
}

// normalizeOptional maps an empty string to absent.
func normalizeOptional(value *string) *string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	return value
}

func mapCardLookup(id int64, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("card", map[string]any{"id": id})
	}
	return err
}

func (s *CardService) committed(kind string) {
	if s.listener != nil {
		s.listener.OnMutationCommitted(kind)
	}
}

func (s *CardService) publish(eventType events.EventType, cardID int64, payload any) {
	if s.events == nil {
		return
	}
	s.events.Publish(events.Event{
		Type:    eventType,
		CardID:  cardID,
		Payload: payload,
	})
}
