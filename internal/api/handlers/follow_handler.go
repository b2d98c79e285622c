package handlers

import (
	"foodgram/domain"
	"foodgram/internal/api/presenters"
	"foodgram/pkg/follow"

	"github.com/gofiber/fiber/v2"
)

type (
	FollowHandler interface {
		Subscribe(c *fiber.Ctx) error
		Unsubscribe(c *fiber.Ctx) error
		GetSubscriptions(c *fiber.Ctx) error
	}

	followHandler struct {
		followService follow.FollowService
	}
)

func NewFollowHandler(followService follow.FollowService) FollowHandler {
	return &followHandler{followService: followService}
}

func (h *followHandler) Subscribe(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	res, err := h.followService.Follow(c.Context(), userID, c.Params("id"), c.Query("recipes_limit"))
	if err != nil {
		return presenters.DomainErrorResponse(c, domain.MessageFailedFollow, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessFollow)
}

func (h *followHandler) Unsubscribe(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	if err := h.followService.Unfollow(c.Context(), userID, c.Params("id")); err != nil {
		return presenters.DomainErrorResponse(c, domain.MessageFailedUnfollow, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *followHandler) GetSubscriptions(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	page, limit := pagination(c, domain.DefaultLimit)

	res, err := h.followService.ListSubscriptions(c.Context(), userID, c.Query("recipes_limit"), page, limit)
	if err != nil {
		return presenters.DomainErrorResponse(c, domain.MessageFailedGetSubscriptions, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetSubscriptions)
}
