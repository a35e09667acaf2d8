package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-board/internal/api/dto"
	"github.com/spec-kit/repair-board/internal/domain"
	"github.com/spec-kit/repair-board/internal/service"
	apperrors "github.com/spec-kit/repair-board/pkg/util"
)

const dueDateLayout = "2006-01-02"

// CardsHandler manages repair card endpoints.
type CardsHandler struct {
	service *service.CardService
}

// NewCardsHandler constructs handler.
func NewCardsHandler(cardService *service.CardService) *CardsHandler {
	return &CardsHandler{service: cardService}
}

// CreateCard POST /tickets.
func (h *CardsHandler) CreateCard(c *fiber.Ctx) error {
	var req dto.CreateCardRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.CreateCardInput{
		OwnerName:  req.OwnerName,
		Whatsapp:   req.Whatsapp,
		Problem:    req.Problem,
		ImageURL:   req.ImageURL,
		HasCharger: req.HasCharger,
		TechNotes:  req.TechNotes,
	}
	if strings.TrimSpace(req.DueDate) != "" {
		due, err := time.Parse(dueDateLayout, req.DueDate)
		if err != nil {
			return apperrors.NewValidationError("invalid payload", map[string]any{"fecha_limite": "must be YYYY-MM-DD"})
		}
		input.DueDate = due
	}

	card, err := h.service.Create(c.Context(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.CardFromDomain(card)})
}

// ListCards GET /tickets.
func (h *CardsHandler) ListCards(c *fiber.Ctx) error {
	page := service.ListPage{
		Page:    c.QueryInt("page", 1),
		PerPage: c.QueryInt("per_page", 0),
	}
	cards, err := h.service.List(c.Context(), page)
	if err != nil {
		return err
	}
	items := make([]dto.CardResponse, 0, len(cards))
	for i := range cards {
		items = append(items, dto.CardFromDomain(&cards[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetCard GET /tickets/:id.
func (h *CardsHandler) GetCard(c *fiber.Ctx) error {
	id, err := cardID(c)
	if err != nil {
		return err
	}
	card, err := h.service.Get(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.CardFromDomain(card)})
}

// UpdateCard PUT /tickets/:id.
func (h *CardsHandler) UpdateCard(c *fiber.Ctx) error {
	id, err := cardID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateCardRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	patch := service.CardPatch{
		OwnerName:  req.OwnerName,
		Whatsapp:   req.Whatsapp,
		Problem:    req.Problem,
		ImageURL:   req.ImageURL,
		HasCharger: req.HasCharger,
		TechNotes:  req.TechNotes,
	}
	if req.Status != nil {
		status := domain.CardStatus(*req.Status)
		patch.Status = &status
	}
	if req.DueDate != nil {
		due, err := time.Parse(dueDateLayout, *req.DueDate)
		if err != nil {
			return apperrors.NewValidationError("invalid payload", map[string]any{"fecha_limite": "must be YYYY-MM-DD"})
		}
		patch.DueDate = &due
	}

	card, _, err := h.service.ApplyUpdate(c.Context(), id, patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.CardFromDomain(card)})
}

// DeleteCard DELETE /tickets/:id.
func (h *CardsHandler) DeleteCard(c *fiber.Ctx) error {
	id, err := cardID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetHistory GET /tickets/:id/history.
func (h *CardsHandler) GetHistory(c *fiber.Ctx) error {
	id, err := cardID(c)
	if err != nil {
		return err
	}
	entries, err := h.service.History(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.HistoryFromDomain(entries)})
}

func cardID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid card id", map[string]any{"id": c.Params("id")})
	}
	return id, nil
}
