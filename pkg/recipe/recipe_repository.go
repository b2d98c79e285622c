package recipe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"foodgram/domain"
	"foodgram/entities"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type (
	RecipeRepository interface {
		CreateRecipe(ctx context.Context, recipe *entities.Recipe, tagIDs []uuid.UUID, lines []*entities.RecipeIngredient) error
		UpdateRecipe(ctx context.Context, recipe *entities.Recipe, tagIDs []uuid.UUID, lines []*entities.RecipeIngredient) error
		DeleteRecipe(ctx context.Context, id uuid.UUID) error
		GetRecipeByID(ctx context.Context, id uuid.UUID) (*entities.Recipe, error)
		GetRecipeDetail(ctx context.Context, id uuid.UUID) (*entities.Recipe, error)
		GetRecipes(ctx context.Context, filter domain.RecipeFilter, page, limit int) ([]*entities.Recipe, int64, error)
		GetRecipesByAuthor(ctx context.Context, authorID uuid.UUID, limit int) ([]*entities.Recipe, error)
		CountRecipesByAuthors(ctx context.Context, authorIDs []uuid.UUID) (map[uuid.UUID]int64, error)

		FindTagIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
		FindIngredientIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)

		AddToCollection(ctx context.Context, kind domain.CollectionKind, userID, recipeID uuid.UUID) error
		RemoveFromCollection(ctx context.Context, kind domain.CollectionKind, userID, recipeID uuid.UUID) error
		CollectionFlags(ctx context.Context, userID uuid.UUID, recipeIDs []uuid.UUID) (favorited map[uuid.UUID]bool, inCart map[uuid.UUID]bool, err error)
		GetCartLines(ctx context.Context, userID uuid.UUID) ([]domain.CartLine, error)
	}

	recipeRepository struct {
		db *gorm.DB
	}
)

func NewRecipeRepository(db *gorm.DB) RecipeRepository {
	return &recipeRepository{db: db}
}

func (r *recipeRepository) CreateRecipe(ctx context.Context, recipe *entities.Recipe, tagIDs []uuid.UUID, lines []*entities.RecipeIngredient) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(recipe).Error; err != nil {
			return err
		}
		return replaceComposition(tx, recipe.ID, tagIDs, lines)
	})
	return mapRecipeError(err)
}

// UpdateRecipe writes the scalar columns and then replaces the whole tag set
// and every ingredient line. Lines get new ids on each update.
func (r *recipeRepository) UpdateRecipe(ctx context.Context, recipe *entities.Recipe, tagIDs []uuid.UUID, lines []*entities.RecipeIngredient) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entities.Recipe{}).
			Where("id = ?", recipe.ID).
			Updates(map[string]any{
				"name":         recipe.Name,
				"text":         recipe.Text,
				"image_url":    recipe.ImageURL,
				"cooking_time": recipe.CookingTime,
				"updated_at":   time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NewNotFoundError("recipe", recipe.ID.String())
		}

		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&entities.RecipeTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&entities.RecipeIngredient{}).Error; err != nil {
			return err
		}
		return replaceComposition(tx, recipe.ID, tagIDs, lines)
	})
	return mapRecipeError(err)
}

func replaceComposition(tx *gorm.DB, recipeID uuid.UUID, tagIDs []uuid.UUID, lines []*entities.RecipeIngredient) error {
	if len(tagIDs) > 0 {
		links := make([]entities.RecipeTag, 0, len(tagIDs))
		for _, id := range tagIDs {
			links = append(links, entities.RecipeTag{RecipeID: recipeID, TagID: id})
		}
		if err := tx.Create(&links).Error; err != nil {
			return err
		}
	}

	if len(lines) > 0 {
		for _, line := range lines {
			line.ID = uuid.New()
			line.RecipeID = recipeID
		}
		if err := tx.Omit(clause.Associations).Create(&lines).Error; err != nil {
			return err
		}
	}
	return nil
}

func mapRecipeError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.NewConflictError("recipe", "you already have a recipe with this name")
	}
	return err
}

func (r *recipeRepository) DeleteRecipe(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entities.Recipe{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NewNotFoundError("recipe", id.String())
	}
	return nil
}

func (r *recipeRepository) GetRecipeByID(ctx context.Context, id uuid.UUID) (*entities.Recipe, error) {
	var recipe entities.Recipe
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&recipe).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("recipe", id.String())
		}
		return nil, err
	}
	return &recipe, nil
}

func (r *recipeRepository) GetRecipeDetail(ctx context.Context, id uuid.UUID) (*entities.Recipe, error) {
	var recipe entities.Recipe
	if err := withDetails(r.db.WithContext(ctx)).Where("recipes.id = ?", id).First(&recipe).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("recipe", id.String())
		}
		return nil, err
	}
	return &recipe, nil
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB {
			return db.Order("tags.name asc")
		}).
		Preload("Ingredients.Ingredient")
}

func (r *recipeRepository) GetRecipes(ctx context.Context, filter domain.RecipeFilter, page, limit int) ([]*entities.Recipe, int64, error) {
	var recipes []*entities.Recipe
	var count int64
	offset := (page - 1) * limit

	if err := r.filtered(ctx, filter).Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := withDetails(r.filtered(ctx, filter)).
		Order("recipes.pub_date desc").
		Offset(offset).
		Limit(limit).
		Find(&recipes).Error; err != nil {
		return nil, 0, err
	}

	return recipes, count, nil
}

// filtered ANDs every filter that is set. Tag slugs are ORed inside a
// subquery, so a recipe matching several tags is returned once.
func (r *recipeRepository) filtered(ctx context.Context, filter domain.RecipeFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&entities.Recipe{})

	if len(filter.TagSlugs) > 0 {
		tagged := r.db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", filter.TagSlugs)
		query = query.Where("recipes.id IN (?)", tagged)
	}

	if filter.AuthorID != "" {
		query = query.Where("recipes.author_id = ?", filter.AuthorID)
	}

	if filter.RequesterID == "" {
		return query
	}
	if filter.IsFavorited != nil {
		favorites := r.db.Model(&entities.Favorite{}).Select("recipe_id").Where("user_id = ?", filter.RequesterID)
		query = membership(query, favorites, *filter.IsFavorited)
	}
	if filter.IsInShoppingCart != nil {
		cart := r.db.Model(&entities.ShoppingCart{}).Select("recipe_id").Where("user_id = ?", filter.RequesterID)
		query = membership(query, cart, *filter.IsInShoppingCart)
	}
	return query
}

func membership(query *gorm.DB, subquery *gorm.DB, in bool) *gorm.DB {
	if in {
		return query.Where("recipes.id IN (?)", subquery)
	}
	return query.Where("recipes.id NOT IN (?)", subquery)
}

// GetRecipesByAuthor returns the newest recipes first. A negative limit returns all of them.
func (r *recipeRepository) GetRecipesByAuthor(ctx context.Context, authorID uuid.UUID, limit int) ([]*entities.Recipe, error) {
	var recipes []*entities.Recipe
	query := r.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("pub_date desc")
	if limit >= 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&recipes).Error; err != nil {
		return nil, err
	}
	return recipes, nil
}

func (r *recipeRepository) CountRecipesByAuthors(ctx context.Context, authorIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(authorIDs))
	if len(authorIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		AuthorID uuid.UUID
		Total    int64
	}
	if err := r.db.WithContext(ctx).
		Model(&entities.Recipe{}).
		Select("author_id, COUNT(*) AS total").
		Where("author_id IN ?", authorIDs).
		Group("author_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.AuthorID] = row.Total
	}
	return counts, nil
}

func (r *recipeRepository) FindTagIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	var found []uuid.UUID
	if len(ids) == 0 {
		return found, nil
	}
	if err := r.db.WithContext(ctx).Model(&entities.Tag{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	return found, nil
}

func (r *recipeRepository) FindIngredientIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	var found []uuid.UUID
	if len(ids) == 0 {
		return found, nil
	}
	if err := r.db.WithContext(ctx).Model(&entities.Ingredient{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	return found, nil
}

func (r *recipeRepository) AddToCollection(ctx context.Context, kind domain.CollectionKind, userID, recipeID uuid.UUID) error {
	var row any
	switch kind {
	case domain.CollectionFavorite:
		row = &entities.Favorite{ID: uuid.New(), UserID: userID, RecipeID: recipeID, CreatedAt: time.Now()}
	case domain.CollectionShoppingCart:
		row = &entities.ShoppingCart{ID: uuid.New(), UserID: userID, RecipeID: recipeID, CreatedAt: time.Now()}
	default:
		return fmt.Errorf("unknown collection %q", kind)
	}

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError(string(kind), "recipe is already in the collection")
		}
		return err
	}
	return nil
}

func (r *recipeRepository) RemoveFromCollection(ctx context.Context, kind domain.CollectionKind, userID, recipeID uuid.UUID) error {
	model, err := collectionModel(kind)
	if err != nil {
		return err
	}

	res := r.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NewNotFoundError(string(kind)+" entry", recipeID.String())
	}
	return nil
}

func collectionModel(kind domain.CollectionKind) (any, error) {
	switch kind {
	case domain.CollectionFavorite:
		return &entities.Favorite{}, nil
	case domain.CollectionShoppingCart:
		return &entities.ShoppingCart{}, nil
	default:
		return nil, fmt.Errorf("unknown collection %q", kind)
	}
}

func (r *recipeRepository) CollectionFlags(ctx context.Context, userID uuid.UUID, recipeIDs []uuid.UUID) (map[uuid.UUID]bool, map[uuid.UUID]bool, error) {
	favorited := make(map[uuid.UUID]bool, len(recipeIDs))
	inCart := make(map[uuid.UUID]bool, len(recipeIDs))
	if len(recipeIDs) == 0 {
		return favorited, inCart, nil
	}

	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&entities.Favorite{}).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &ids).Error; err != nil {
		return nil, nil, err
	}
	for _, id := range ids {
		favorited[id] = true
	}

	ids = nil
	if err := r.db.WithContext(ctx).
		Model(&entities.ShoppingCart{}).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &ids).Error; err != nil {
		return nil, nil, err
	}
	for _, id := range ids {
		inCart[id] = true
	}

	return favorited, inCart, nil
}

// GetCartLines returns one row per ingredient line of every recipe in the cart.
func (r *recipeRepository) GetCartLines(ctx context.Context, userID uuid.UUID) ([]domain.CartLine, error) {
	var lines []domain.CartLine
	if err := r.db.WithContext(ctx).
		Table("shopping_carts").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, recipe_ingredients.amount AS amount").
		Joins("JOIN recipe_ingredients ON recipe_ingredients.recipe_id = shopping_carts.recipe_id").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Where("shopping_carts.user_id = ?", userID).
		Scan(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}
