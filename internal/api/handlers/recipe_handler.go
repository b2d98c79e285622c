package handlers

import (
	"fmt"

	"foodgram/domain"
	"foodgram/internal/api/presenters"
	"foodgram/pkg/recipe"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	RecipeHandler interface {
		GetRecipes(c *fiber.Ctx) error
		GetRecipeDetail(c *fiber.Ctx) error
		CreateRecipe(c *fiber.Ctx) error
		UpdateRecipe(c *fiber.Ctx) error
		DeleteRecipe(c *fiber.Ctx) error
		AddFavorite(c *fiber.Ctx) error
		RemoveFavorite(c *fiber.Ctx) error
		AddToShoppingCart(c *fiber.Ctx) error
		RemoveFromShoppingCart(c *fiber.Ctx) error
		DownloadShoppingCart(c *fiber.Ctx) error
		SendShoppingCart(c *fiber.Ctx) error
	}

	recipeHandler struct {
		recipeService recipe.RecipeService
		validator     *validator.Validate
	}
)

func NewRecipeHandler(recipeService recipe.RecipeService, validator *validator.Validate) RecipeHandler {
	return &recipeHandler{
		recipeService: recipeService,
		validator:     validator,
	}
}

func (h *recipeHandler) GetRecipes(c *fiber.Ctx) error {
	requesterID := c.Locals("user_id").(string)
	page, limit := pagination(c, domain.DefaultRecipePageLimit)

	// tags may repeat: ?tags=breakfast&tags=lunch
	var tags []string
	for _, v := range c.Context().QueryArgs().PeekMulti("tags") {
		tags = append(tags, string(v))
	}

	query := domain.RecipeQuery{
		Tags:             tags,
		Author:           c.Query("author"),
		IsFavorited:      c.Query("is_favorited"),
		IsInShoppingCart: c.Query("is_in_shopping_cart"),
		Page:             page,
		Limit:            limit,
	}

	res, err := h.recipeService.ListRecipes(c.Context(), requesterID, query)
	if err != nil {
		return presenters.DomainErrorResponse(c, domain.MessageFailedGetRecipes, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetRecipes)
}

func (h *recipeHandler) GetRecipeDetail(c *fiber.Ctx) error {
	requesterID := c.Locals("user_id").(string)

	res, err := h.recipeService.GetRecipe(c.Context(), c.Params("id"), requesterID)
	if err != nil {
		return presenters.DomainErrorResponse(c, domain.MessageFailedGetRecipeDetail, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetRecipeDetail)
}

func (h *recipeHandler) CreateRecipe(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	req := new(domain.CreateRecipeRequest)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.DomainErrorResponse(c, domain.MessageFailedCreateRecipe, err)
	}

	res, err := h.recipeService.CreateRecipe(c.Context(), userID, *req)
	if err != nil {
		return presenters.DomainErrorResponse(c, domain.MessageFailedCreateRecipe, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessCreateRecipe)
}

func (h *recipeHandler) UpdateRecipe(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	req := new(domain.UpdateRecipeRequest)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.DomainErrorResponse(c, domain.MessageFailedUpdateRecipe, err)
	}

	res, err := h.recipeService.UpdateRecipe(c.Context(), userID, c.Params("id"), *req)
	if err != nil {
		return presenters.DomainErrorResponse(c, domain.MessageFailedUpdateRecipe, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessUpdateRecipe)
}

func (h *recipeHandler) DeleteRecipe(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	if err := h.recipeService.DeleteRecipe(c.Context(), userID, c.Params("id")); err != nil {
		return presenters.DomainErrorResponse(c, domain.MessageFailedDeleteRecipe, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *recipeHandler) AddFavorite(c *fiber.Ctx) error {
	return h.addToCollection(c, domain.CollectionFavorite, domain.MessageSuccessAddFavorite, domain.MessageFailedAddFavorite)
}

func (h *recipeHandler) RemoveFavorite(c *fiber.Ctx) error {
	return h.removeFromCollection(c, domain.CollectionFavorite, domain.MessageFailedRemoveFavorite)
}

func (h *recipeHandler) AddToShoppingCart(c *fiber.Ctx) error {
	return h.addToCollection(c, domain.CollectionShoppingCart, domain.MessageSuccessAddShoppingCart, domain.MessageFailedAddShoppingCart)
}

func (h *recipeHandler) RemoveFromShoppingCart(c *fiber.Ctx) error {
	return h.removeFromCollection(c, domain.CollectionShoppingCart, domain.MessageFailedRemoveShoppingCart)
}

func (h *recipeHandler) addToCollection(c *fiber.Ctx, kind domain.CollectionKind, success string, failed string) error {
	userID := c.Locals("user_id").(string)

	res, err := h.recipeService.AddToCollection(c.Context(), kind, userID, c.Params("id"))
	if err != nil {
		return presenters.DomainErrorResponse(c, failed, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusCreated, success)
}

func (h *recipeHandler) removeFromCollection(c *fiber.Ctx, kind domain.CollectionKind, failed string) error {
	userID := c.Locals("user_id").(string)

	if err := h.recipeService.RemoveFromCollection(c.Context(), kind, userID, c.Params("id")); err != nil {
		return presenters.DomainErrorResponse(c, failed, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *recipeHandler) DownloadShoppingCart(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	fileName, content, err := h.recipeService.DownloadShoppingList(c.Context(), userID)
	if err != nil {
		return presenters.DomainErrorResponse(c, domain.MessageFailedGetShoppingList, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fileName))
	return c.Status(fiber.StatusOK).SendString(content)
}

func (h *recipeHandler) SendShoppingCart(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	if err := h.recipeService.SendShoppingList(c.Context(), userID); err != nil {
		return presenters.DomainErrorResponse(c, domain.MessageFailedSendShoppingList, err)
	}
	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessSendShoppingList)
}
