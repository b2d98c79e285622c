package recipe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"foodgram/domain"
	"foodgram/entities"
	"foodgram/internal/utils"
	"foodgram/internal/utils/images"
	"foodgram/internal/utils/logger"
	"foodgram/internal/utils/mailing"
	"foodgram/internal/utils/storage"
	"foodgram/pkg/catalog"
	"foodgram/pkg/user"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const imageFolder = "recipes"

type (
	RecipeService interface {
		CreateRecipe(ctx context.Context, userID string, req domain.CreateRecipeRequest) (domain.Recipe, error)
		UpdateRecipe(ctx context.Context, userID string, recipeID string, req domain.UpdateRecipeRequest) (domain.Recipe, error)
		DeleteRecipe(ctx context.Context, userID string, recipeID string) error
		GetRecipe(ctx context.Context, recipeID string, requesterID string) (domain.Recipe, error)
		ListRecipes(ctx context.Context, requesterID string, query domain.RecipeQuery) (domain.PaginatedResponse[domain.Recipe], error)
		ListFavorites(ctx context.Context, userID string, page, limit int) (domain.PaginatedResponse[domain.Recipe], error)

		AddToCollection(ctx context.Context, kind domain.CollectionKind, userID string, recipeID string) (domain.RecipeShort, error)
		RemoveFromCollection(ctx context.Context, kind domain.CollectionKind, userID string, recipeID string) error

		BuildShoppingList(ctx context.Context, userID string) ([]domain.ShoppingListItem, error)
		DownloadShoppingList(ctx context.Context, userID string) (string, string, error)
		SendShoppingList(ctx context.Context, userID string) error
	}

	// Rules are the tunable limits recipes are validated against.
	Rules struct {
		MinIngredientAmount int
		MinCookingTime      int
		ImageMaxWidth       int
	}

	recipeService struct {
		recipeRepository RecipeRepository
		userRepository   user.UserRepository
		s3               storage.AwsS3
		mailer           mailing.Mailer
		rules            Rules
	}
)

func RulesFromConfig() Rules {
	return Rules{
		MinIngredientAmount: utils.GetIntConfig("MIN_INGREDIENT_AMOUNT", domain.DefaultMinIngredientAmount),
		MinCookingTime:      utils.GetIntConfig("MIN_COOKING_TIME", domain.DefaultMinCookingTime),
		ImageMaxWidth:       utils.GetIntConfig("IMAGE_MAX_WIDTH", 1280),
	}
}

func NewRecipeService(
	recipeRepository RecipeRepository,
	userRepository user.UserRepository,
	s3 storage.AwsS3,
	mailer mailing.Mailer,
	rules Rules,
) RecipeService {
	return &recipeService{
		recipeRepository: recipeRepository,
		userRepository:   userRepository,
		s3:               s3,
		mailer:           mailer,
		rules:            rules,
	}
}

func (s *recipeService) CreateRecipe(ctx context.Context, userID string, req domain.CreateRecipeRequest) (domain.Recipe, error) {
	authorID, err := uuid.Parse(userID)
	if err != nil {
		return domain.Recipe{}, domain.ErrParseUUID
	}

	name, text, err := s.cleanText(req.Name, req.Text)
	if err != nil {
		return domain.Recipe{}, err
	}
	if err := s.validateCookingTime(req.CookingTime); err != nil {
		return domain.Recipe{}, err
	}
	tagIDs, lines, err := s.validateComposition(ctx, req.Tags, req.Ingredients)
	if err != nil {
		return domain.Recipe{}, err
	}

	imageURL, objectKey, err := s.uploadImage(ctx, req.Image)
	if err != nil {
		return domain.Recipe{}, err
	}

	now := time.Now()
	recipe := &entities.Recipe{
		ID:          uuid.New(),
		AuthorID:    authorID,
		Name:        name,
		Text:        text,
		ImageURL:    imageURL,
		CookingTime: req.CookingTime,
		PubDate:     now,
	}
	if err := s.recipeRepository.CreateRecipe(ctx, recipe, tagIDs, lines); err != nil {
		s.discardImage(ctx, objectKey)
		return domain.Recipe{}, err
	}

	logger.Info("recipe created",
		zap.String("user_id", userID),
		zap.String("recipe_id", recipe.ID.String()),
	)
	return s.GetRecipe(ctx, recipe.ID.String(), userID)
}

func (s *recipeService) UpdateRecipe(ctx context.Context, userID string, recipeID string, req domain.UpdateRecipeRequest) (domain.Recipe, error) {
	recipe, err := s.authorRecipe(ctx, userID, recipeID)
	if err != nil {
		return domain.Recipe{}, err
	}

	if req.Name != nil || req.Text != nil {
		name, text := recipe.Name, recipe.Text
		if req.Name != nil {
			name = *req.Name
		}
		if req.Text != nil {
			text = *req.Text
		}
		if recipe.Name, recipe.Text, err = s.cleanText(name, text); err != nil {
			return domain.Recipe{}, err
		}
	}
	if req.CookingTime != nil {
		if err := s.validateCookingTime(*req.CookingTime); err != nil {
			return domain.Recipe{}, err
		}
		recipe.CookingTime = *req.CookingTime
	}
	tagIDs, lines, err := s.validateComposition(ctx, req.Tags, req.Ingredients)
	if err != nil {
		return domain.Recipe{}, err
	}

	oldImageURL := recipe.ImageURL
	newObjectKey := ""
	if req.Image != nil {
		if recipe.ImageURL, newObjectKey, err = s.uploadImage(ctx, *req.Image); err != nil {
			return domain.Recipe{}, err
		}
	}

	if err := s.recipeRepository.UpdateRecipe(ctx, recipe, tagIDs, lines); err != nil {
		s.discardImage(ctx, newObjectKey)
		return domain.Recipe{}, err
	}
	if newObjectKey != "" {
		s.discardImage(ctx, s.s3.GetObjectKeyFromLink(oldImageURL))
	}

	return s.GetRecipe(ctx, recipeID, userID)
}

func (s *recipeService) DeleteRecipe(ctx context.Context, userID string, recipeID string) error {
	recipe, err := s.authorRecipe(ctx, userID, recipeID)
	if err != nil {
		return err
	}
	if err := s.recipeRepository.DeleteRecipe(ctx, recipe.ID); err != nil {
		return err
	}
	s.discardImage(ctx, s.s3.GetObjectKeyFromLink(recipe.ImageURL))
	return nil
}

// authorRecipe loads a recipe the requester is allowed to change.
func (s *recipeService) authorRecipe(ctx context.Context, userID string, recipeID string) (*entities.Recipe, error) {
	id, err := uuid.Parse(recipeID)
	if err != nil {
		return nil, domain.NewNotFoundError("recipe", recipeID)
	}
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if recipe.AuthorID.String() != userID {
		return nil, domain.ErrUnauthorizedRecipeAccess
	}
	return recipe, nil
}

func (s *recipeService) GetRecipe(ctx context.Context, recipeID string, requesterID string) (domain.Recipe, error) {
	id, err := uuid.Parse(recipeID)
	if err != nil {
		return domain.Recipe{}, domain.NewNotFoundError("recipe", recipeID)
	}
	recipe, err := s.recipeRepository.GetRecipeDetail(ctx, id)
	if err != nil {
		return domain.Recipe{}, err
	}

	res, err := s.toRecipes(ctx, []*entities.Recipe{recipe}, requesterID)
	if err != nil {
		return domain.Recipe{}, err
	}
	return res[0], nil
}

func (s *recipeService) ListRecipes(ctx context.Context, requesterID string, query domain.RecipeQuery) (domain.PaginatedResponse[domain.Recipe], error) {
	filter, err := NewRecipeFilter(query, requesterID)
	if err != nil {
		return domain.PaginatedResponse[domain.Recipe]{}, err
	}

	recipes, total, err := s.recipeRepository.GetRecipes(ctx, filter, query.Page, query.Limit)
	if err != nil {
		return domain.PaginatedResponse[domain.Recipe]{}, err
	}
	results, err := s.toRecipes(ctx, recipes, requesterID)
	if err != nil {
		return domain.PaginatedResponse[domain.Recipe]{}, err
	}

	return domain.PaginatedResponse[domain.Recipe]{
		Results:    results,
		Pagination: domain.NewPagination(query.Page, query.Limit, total),
	}, nil
}

func (s *recipeService) ListFavorites(ctx context.Context, userID string, page, limit int) (domain.PaginatedResponse[domain.Recipe], error) {
	return s.ListRecipes(ctx, userID, domain.RecipeQuery{
		IsFavorited: "1",
		Page:        page,
		Limit:       limit,
	})
}

func (s *recipeService) AddToCollection(ctx context.Context, kind domain.CollectionKind, userID string, recipeID string) (domain.RecipeShort, error) {
	uid, rid, err := parseEdge(userID, recipeID)
	if err != nil {
		return domain.RecipeShort{}, err
	}
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, rid)
	if err != nil {
		return domain.RecipeShort{}, err
	}
	if err := s.recipeRepository.AddToCollection(ctx, kind, uid, rid); err != nil {
		return domain.RecipeShort{}, err
	}
	return ToRecipeShort(recipe), nil
}

func (s *recipeService) RemoveFromCollection(ctx context.Context, kind domain.CollectionKind, userID string, recipeID string) error {
	uid, rid, err := parseEdge(userID, recipeID)
	if err != nil {
		return err
	}
	return s.recipeRepository.RemoveFromCollection(ctx, kind, uid, rid)
}

func parseEdge(userID string, recipeID string) (uuid.UUID, uuid.UUID, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, uuid.Nil, domain.ErrParseUUID
	}
	rid, err := uuid.Parse(recipeID)
	if err != nil {
		return uuid.Nil, uuid.Nil, domain.NewNotFoundError("recipe", recipeID)
	}
	return uid, rid, nil
}

func (s *recipeService) BuildShoppingList(ctx context.Context, userID string) ([]domain.ShoppingListItem, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, domain.ErrParseUUID
	}
	lines, err := s.recipeRepository.GetCartLines(ctx, uid)
	if err != nil {
		return nil, err
	}
	return AggregateShoppingList(lines), nil
}

// DownloadShoppingList returns the attachment file name and its text.
func (s *recipeService) DownloadShoppingList(ctx context.Context, userID string) (string, string, error) {
	owner, items, err := s.shoppingList(ctx, userID)
	if err != nil {
		return "", "", err
	}
	return ShoppingListFileName(owner.Username), RenderShoppingList(items), nil
}

func (s *recipeService) SendShoppingList(ctx context.Context, userID string) error {
	owner, items, err := s.shoppingList(ctx, userID)
	if err != nil {
		return err
	}

	content := RenderShoppingList(items)
	err = s.mailer.SendMail(owner.Email, domain.ShoppingListHeader, content, mailing.Attachment{
		FileName: ShoppingListFileName(owner.Username),
		Content:  []byte(content),
	})
	if err != nil {
		logger.Error("failed to send shopping list", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

func (s *recipeService) shoppingList(ctx context.Context, userID string) (*entities.User, []domain.ShoppingListItem, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, nil, domain.ErrParseUUID
	}
	owner, err := s.userRepository.GetUserByID(ctx, uid)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.BuildShoppingList(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return owner, items, nil
}

func (s *recipeService) cleanText(name string, text string) (string, string, error) {
	name = utils.SanitizeText(name)
	if name == "" {
		return "", "", domain.NewValidationError("name", "this field is required")
	}
	text = utils.SanitizeText(text)
	if text == "" {
		return "", "", domain.NewValidationError("text", "this field is required")
	}
	return name, text, nil
}

func (s *recipeService) validateCookingTime(minutes int) error {
	if minutes < s.rules.MinCookingTime {
		return domain.NewValidationError("cooking_time", fmt.Sprintf("must be at least %d", s.rules.MinCookingTime))
	}
	return nil
}

// validateComposition checks the tag set and ingredient lines and returns them
// ready to store. Every referenced tag and ingredient must exist.
func (s *recipeService) validateComposition(ctx context.Context, tags []string, ingredients []domain.IngredientAmountRequest) ([]uuid.UUID, []*entities.RecipeIngredient, error) {
	if len(tags) == 0 {
		return nil, nil, domain.NewValidationError("tags", "at least one tag is required")
	}
	tagIDs := make([]uuid.UUID, 0, len(tags))
	seenTags := make(map[uuid.UUID]bool, len(tags))
	for _, raw := range tags {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, nil, domain.NewValidationError("tags", fmt.Sprintf("invalid tag id %q", raw))
		}
		if seenTags[id] {
			return nil, nil, domain.NewValidationError("tags", "tags must not repeat")
		}
		seenTags[id] = true
		tagIDs = append(tagIDs, id)
	}

	if len(ingredients) == 0 {
		return nil, nil, domain.NewValidationError("ingredients", "at least one ingredient is required")
	}
	ingredientIDs := make([]uuid.UUID, 0, len(ingredients))
	lines := make([]*entities.RecipeIngredient, 0, len(ingredients))
	seenIngredients := make(map[uuid.UUID]bool, len(ingredients))
	for _, item := range ingredients {
		id, err := uuid.Parse(item.ID)
		if err != nil {
			return nil, nil, domain.NewValidationError("ingredients", fmt.Sprintf("invalid ingredient id %q", item.ID))
		}
		if seenIngredients[id] {
			return nil, nil, domain.NewValidationError("ingredients", "ingredients must not repeat")
		}
		if item.Amount < s.rules.MinIngredientAmount {
			return nil, nil, domain.NewValidationError("ingredients", fmt.Sprintf("amount must be at least %d", s.rules.MinIngredientAmount))
		}
		seenIngredients[id] = true
		ingredientIDs = append(ingredientIDs, id)
		lines = append(lines, &entities.RecipeIngredient{IngredientID: id, Amount: item.Amount})
	}

	foundTags, err := s.recipeRepository.FindTagIDs(ctx, tagIDs)
	if err != nil {
		return nil, nil, err
	}
	if missing := firstMissing(tagIDs, foundTags); missing != uuid.Nil {
		return nil, nil, domain.NewValidationError("tags", fmt.Sprintf("tag %s does not exist", missing))
	}

	foundIngredients, err := s.recipeRepository.FindIngredientIDs(ctx, ingredientIDs)
	if err != nil {
		return nil, nil, err
	}
	if missing := firstMissing(ingredientIDs, foundIngredients); missing != uuid.Nil {
		return nil, nil, domain.NewValidationError("ingredients", fmt.Sprintf("ingredient %s does not exist", missing))
	}

	return tagIDs, lines, nil
}

func firstMissing(want []uuid.UUID, found []uuid.UUID) uuid.UUID {
	present := make(map[uuid.UUID]bool, len(found))
	for _, id := range found {
		present[id] = true
	}
	for _, id := range want {
		if !present[id] {
			return id
		}
	}
	return uuid.Nil
}

// uploadImage returns the public URL and the object key of the stored image.
func (s *recipeService) uploadImage(ctx context.Context, encoded string) (string, string, error) {
	content, err := images.Prepare(encoded, s.rules.ImageMaxWidth)
	if err != nil {
		if errors.Is(err, images.ErrInvalidImage) {
			return "", "", domain.NewValidationError("image", err.Error())
		}
		return "", "", err
	}

	objectKey, err := s.s3.UploadFile(ctx, uuid.NewString(), content, imageFolder, storage.AllowImage...)
	if err != nil {
		return "", "", err
	}
	return s.s3.GetPublicLinkKey(objectKey), objectKey, nil
}

func (s *recipeService) discardImage(ctx context.Context, objectKey string) {
	if objectKey == "" {
		return
	}
	if err := s.s3.DeleteFile(ctx, objectKey); err != nil {
		logger.Warn("failed to delete recipe image", zap.String("object_key", objectKey), zap.Error(err))
	}
}

func (s *recipeService) toRecipes(ctx context.Context, recipes []*entities.Recipe, requesterID string) ([]domain.Recipe, error) {
	favorited := map[uuid.UUID]bool{}
	inCart := map[uuid.UUID]bool{}
	subscribed := map[uuid.UUID]bool{}

	if requester, err := uuid.Parse(requesterID); err == nil && len(recipes) > 0 {
		recipeIDs := make([]uuid.UUID, 0, len(recipes))
		authorIDs := make([]uuid.UUID, 0, len(recipes))
		for _, r := range recipes {
			recipeIDs = append(recipeIDs, r.ID)
			authorIDs = append(authorIDs, r.AuthorID)
		}
		if favorited, inCart, err = s.recipeRepository.CollectionFlags(ctx, requester, recipeIDs); err != nil {
			return nil, err
		}
		if subscribed, err = s.userRepository.SubscribedTo(ctx, requester, authorIDs); err != nil {
			return nil, err
		}
	}

	res := make([]domain.Recipe, 0, len(recipes))
	for _, r := range recipes {
		res = append(res, ToRecipe(r, favorited[r.ID], inCart[r.ID], subscribed[r.AuthorID]))
	}
	return res, nil
}

func ToRecipe(r *entities.Recipe, favorited bool, inCart bool, subscribed bool) domain.Recipe {
	tags := make([]domain.Tag, 0, len(r.Tags))
	for _, t := range r.Tags {
		tags = append(tags, catalog.ToTag(t))
	}

	lines := make([]domain.RecipeIngredient, 0, len(r.Ingredients))
	for _, line := range r.Ingredients {
		item := domain.RecipeIngredient{Amount: line.Amount, ID: line.IngredientID.String()}
		if line.Ingredient != nil {
			item.Name = line.Ingredient.Name
			item.MeasurementUnit = line.Ingredient.MeasurementUnit
		}
		lines = append(lines, item)
	}

	var author domain.UserResponse
	if r.Author != nil {
		author = user.ToUserResponse(r.Author, subscribed)
	}

	return domain.Recipe{
		ID:               r.ID.String(),
		Tags:             tags,
		Author:           author,
		Ingredients:      lines,
		IsFavorited:      favorited,
		IsInShoppingCart: inCart,
		Name:             r.Name,
		Image:            r.ImageURL,
		Text:             r.Text,
		CookingTime:      r.CookingTime,
		PubDate:          r.PubDate,
	}
}

func ToRecipeShort(r *entities.Recipe) domain.RecipeShort {
	return domain.RecipeShort{
		ID:          r.ID.String(),
		Name:        r.Name,
		Image:       r.ImageURL,
		CookingTime: r.CookingTime,
	}
}
