package recipe

import (
	"context"
	"errors"
	"testing"

	"foodgram/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRecipe(t *testing.T) {
	f := newFixture(t)

	res, err := f.service.CreateRecipe(context.Background(), f.author.ID.String(), f.createRequest(t, "Bread"))
	require.NoError(t, err)

	assert.Equal(t, "Bread", res.Name)
	assert.Equal(t, f.author.ID.String(), res.Author.ID)
	assert.Equal(t, 30, res.CookingTime)
	assert.False(t, res.PubDate.IsZero())
	require.Len(t, res.Tags, 1)
	assert.Equal(t, "breakfast", res.Tags[0].Slug)
	require.Len(t, res.Ingredients, 2)
	assert.Equal(t, "Salt", res.Ingredients[0].Name)
	assert.Equal(t, 5, res.Ingredients[0].Amount)

	require.Len(t, f.s3.uploaded, 1)
	assert.Equal(t, fakeS3Base+f.s3.uploaded[0], res.Image)
}

func TestCreateRecipe_Validation(t *testing.T) {
	f := newFixture(t)
	missing := uuid.NewString()

	tests := []struct {
		name   string
		mutate func(req *domain.CreateRecipeRequest)
		field  string
	}{
		{"no tags", func(r *domain.CreateRecipeRequest) { r.Tags = nil }, "tags"},
		{"duplicate tag", func(r *domain.CreateRecipeRequest) { r.Tags = []string{f.breakfast.ID.String(), f.breakfast.ID.String()} }, "tags"},
		{"unknown tag", func(r *domain.CreateRecipeRequest) { r.Tags = []string{missing} }, "tags"},
		{"malformed tag id", func(r *domain.CreateRecipeRequest) { r.Tags = []string{"breakfast"} }, "tags"},
		{"no ingredients", func(r *domain.CreateRecipeRequest) { r.Ingredients = nil }, "ingredients"},
		{"duplicate ingredient", func(r *domain.CreateRecipeRequest) {
			r.Ingredients = []domain.IngredientAmountRequest{{ID: f.salt.ID.String(), Amount: 1}, {ID: f.salt.ID.String(), Amount: 2}}
		}, "ingredients"},
		{"unknown ingredient", func(r *domain.CreateRecipeRequest) {
			r.Ingredients = []domain.IngredientAmountRequest{{ID: missing, Amount: 1}}
		}, "ingredients"},
		{"zero amount", func(r *domain.CreateRecipeRequest) { r.Ingredients[0].Amount = 0 }, "ingredients"},
		{"negative amount", func(r *domain.CreateRecipeRequest) { r.Ingredients[0].Amount = -3 }, "ingredients"},
		{"zero cooking time", func(r *domain.CreateRecipeRequest) { r.CookingTime = 0 }, "cooking_time"},
		{"not an image", func(r *domain.CreateRecipeRequest) { r.Image = "data:image/png;base64,aGVsbG8=" }, "image"},
		{"markup only name", func(r *domain.CreateRecipeRequest) { r.Name = "<b></b>" }, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.createRequest(t, "Soup")
			tt.mutate(&req)

			_, err := f.service.CreateRecipe(context.Background(), f.author.ID.String(), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)

			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	assert.Empty(t, f.store.recipes)
	assert.Empty(t, f.s3.uploaded)
}

func TestCreateRecipe_MinimumAmountIsConfigurable(t *testing.T) {
	f := newFixture(t)
	f.service = NewRecipeService(f.store, f.store, f.s3, f.mailer, Rules{MinIngredientAmount: 10, MinCookingTime: 1})

	req := f.createRequest(t, "Soup")
	req.Ingredients[0].Amount = 9
	_, err := f.service.CreateRecipe(context.Background(), f.author.ID.String(), req)
	assert.ErrorIs(t, err, domain.ErrValidation)

	req.Ingredients[0].Amount = 10
	_, err = f.service.CreateRecipe(context.Background(), f.author.ID.String(), req)
	assert.NoError(t, err)
}

func TestCreateRecipe_DuplicateNameDiscardsImage(t *testing.T) {
	f := newFixture(t)
	f.createRecipe(t, "Bread")

	_, err := f.service.CreateRecipe(context.Background(), f.author.ID.String(), f.createRequest(t, "Bread"))
	assert.ErrorIs(t, err, domain.ErrConflict)
	require.Len(t, f.s3.uploaded, 2)
	assert.Equal(t, []string{f.s3.uploaded[1]}, f.s3.deleted)
}

func TestUpdateRecipe_ReplacesComposition(t *testing.T) {
	f := newFixture(t)
	created := f.createRecipe(t, "Bread")
	recipeID := uuid.MustParse(created.ID)
	oldLineIDs := []uuid.UUID{f.store.lines[recipeID][0].ID, f.store.lines[recipeID][1].ID}

	newName := "Rye bread"
	res, err := f.service.UpdateRecipe(context.Background(), f.author.ID.String(), created.ID, domain.UpdateRecipeRequest{
		Tags:        []string{f.dinner.ID.String()},
		Ingredients: []domain.IngredientAmountRequest{{ID: f.salt.ID.String(), Amount: 7}},
		Name:        &newName,
	})
	require.NoError(t, err)

	assert.Equal(t, "Rye bread", res.Name)
	assert.Equal(t, "Mix and bake.", res.Text)
	assert.Equal(t, 30, res.CookingTime)
	assert.Equal(t, created.Image, res.Image)
	assert.Equal(t, created.PubDate, res.PubDate)
	require.Len(t, res.Tags, 1)
	assert.Equal(t, "dinner", res.Tags[0].Slug)
	require.Len(t, res.Ingredients, 1)
	assert.Equal(t, 7, res.Ingredients[0].Amount)

	lines := f.store.lines[recipeID]
	require.Len(t, lines, 1)
	assert.NotContains(t, oldLineIDs, lines[0].ID)
}

func TestUpdateRecipe_SameCompositionStillRecreatesLines(t *testing.T) {
	f := newFixture(t)
	created := f.createRecipe(t, "Bread")
	recipeID := uuid.MustParse(created.ID)
	before := f.store.lines[recipeID][0].ID

	req := f.createRequest(t, "Bread")
	_, err := f.service.UpdateRecipe(context.Background(), f.author.ID.String(), created.ID, domain.UpdateRecipeRequest{
		Tags:        req.Tags,
		Ingredients: req.Ingredients,
	})
	require.NoError(t, err)
	assert.NotEqual(t, before, f.store.lines[recipeID][0].ID)
}

func TestUpdateRecipe_NewImageDeletesOld(t *testing.T) {
	f := newFixture(t)
	created := f.createRecipe(t, "Bread")
	oldKey := f.s3.uploaded[0]

	image := pngDataURI(t, 8, 8)
	req := f.createRequest(t, "Bread")
	res, err := f.service.UpdateRecipe(context.Background(), f.author.ID.String(), created.ID, domain.UpdateRecipeRequest{
		Tags:        req.Tags,
		Ingredients: req.Ingredients,
		Image:       &image,
	})
	require.NoError(t, err)
	assert.NotEqual(t, created.Image, res.Image)
	assert.Equal(t, []string{oldKey}, f.s3.deleted)
}

func TestUpdateRecipe_RejectsInvalidComposition(t *testing.T) {
	f := newFixture(t)
	created := f.createRecipe(t, "Bread")
	recipeID := uuid.MustParse(created.ID)
	before := f.store.lines[recipeID]

	_, err := f.service.UpdateRecipe(context.Background(), f.author.ID.String(), created.ID, domain.UpdateRecipeRequest{
		Tags:        []string{f.breakfast.ID.String()},
		Ingredients: []domain.IngredientAmountRequest{{ID: f.salt.ID.String(), Amount: 0}},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, before, f.store.lines[recipeID])
}

func TestMutationsRequireAuthor(t *testing.T) {
	f := newFixture(t)
	created := f.createRecipe(t, "Bread")
	req := f.createRequest(t, "Bread")

	_, err := f.service.UpdateRecipe(context.Background(), f.reader.ID.String(), created.ID, domain.UpdateRecipeRequest{
		Tags:        req.Tags,
		Ingredients: req.Ingredients,
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	err = f.service.DeleteRecipe(context.Background(), f.reader.ID.String(), created.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Len(t, f.store.recipes, 1)
}

func TestDeleteRecipe(t *testing.T) {
	f := newFixture(t)
	created := f.createRecipe(t, "Bread")
	_, err := f.service.AddToCollection(context.Background(), domain.CollectionShoppingCart, f.reader.ID.String(), created.ID)
	require.NoError(t, err)

	require.NoError(t, f.service.DeleteRecipe(context.Background(), f.author.ID.String(), created.ID))
	assert.Empty(t, f.store.recipes)
	assert.Empty(t, f.store.cart)
	assert.Equal(t, f.s3.uploaded, f.s3.deleted)

	_, err = f.service.GetRecipe(context.Background(), created.ID, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetRecipe_FlagsFollowRequester(t *testing.T) {
	f := newFixture(t)
	created := f.createRecipe(t, "Bread")
	f.store.follows[edge{f.reader.ID, f.author.ID}] = true
	_, err := f.service.AddToCollection(context.Background(), domain.CollectionFavorite, f.reader.ID.String(), created.ID)
	require.NoError(t, err)

	res, err := f.service.GetRecipe(context.Background(), created.ID, f.reader.ID.String())
	require.NoError(t, err)
	assert.True(t, res.IsFavorited)
	assert.False(t, res.IsInShoppingCart)
	assert.True(t, res.Author.IsSubscribed)

	anon, err := f.service.GetRecipe(context.Background(), created.ID, "")
	require.NoError(t, err)
	assert.False(t, anon.IsFavorited)
	assert.False(t, anon.Author.IsSubscribed)
}

func TestGetRecipe_MalformedID(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.GetRecipe(context.Background(), "not-a-uuid", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListRecipes_Filters(t *testing.T) {
	f := newFixture(t)
	bread := f.createRecipe(t, "Bread")
	req := f.createRequest(t, "Pasta")
	req.Tags = []string{f.breakfast.ID.String(), f.dinner.ID.String()}
	pasta, err := f.service.CreateRecipe(context.Background(), f.author.ID.String(), req)
	require.NoError(t, err)

	_, err = f.service.AddToCollection(context.Background(), domain.CollectionFavorite, f.reader.ID.String(), bread.ID)
	require.NoError(t, err)

	ids := func(res domain.PaginatedResponse[domain.Recipe]) []string {
		var out []string
		for _, r := range res.Results {
			out = append(out, r.ID)
		}
		return out
	}

	all, err := f.service.ListRecipes(context.Background(), "", domain.RecipeQuery{Page: 1, Limit: 6})
	require.NoError(t, err)
	assert.Equal(t, []string{pasta.ID, bread.ID}, ids(all))
	assert.Equal(t, int64(2), all.Pagination.Total)

	tagged, err := f.service.ListRecipes(context.Background(), "", domain.RecipeQuery{Tags: []string{"breakfast", "dinner"}, Page: 1, Limit: 6})
	require.NoError(t, err)
	assert.Len(t, tagged.Results, 2)

	favorites, err := f.service.ListRecipes(context.Background(), f.reader.ID.String(), domain.RecipeQuery{IsFavorited: "1", Page: 1, Limit: 6})
	require.NoError(t, err)
	assert.Equal(t, []string{bread.ID}, ids(favorites))

	notFavorites, err := f.service.ListRecipes(context.Background(), f.reader.ID.String(), domain.RecipeQuery{IsFavorited: "false", Page: 1, Limit: 6})
	require.NoError(t, err)
	assert.Equal(t, []string{pasta.ID}, ids(notFavorites))

	anonymous, err := f.service.ListRecipes(context.Background(), "", domain.RecipeQuery{IsFavorited: "1", Page: 1, Limit: 6})
	require.NoError(t, err)
	assert.Len(t, anonymous.Results, 2)

	unrecognised, err := f.service.ListRecipes(context.Background(), f.reader.ID.String(), domain.RecipeQuery{IsFavorited: "yes", Page: 1, Limit: 6})
	require.NoError(t, err)
	assert.Len(t, unrecognised.Results, 2)

	paged, err := f.service.ListRecipes(context.Background(), "", domain.RecipeQuery{Page: 2, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{bread.ID}, ids(paged))
	assert.Equal(t, int64(2), paged.Pagination.TotalPages)
}

func TestListFavorites(t *testing.T) {
	f := newFixture(t)
	bread := f.createRecipe(t, "Bread")
	f.createRecipe(t, "Pasta")
	_, err := f.service.AddToCollection(context.Background(), domain.CollectionFavorite, f.reader.ID.String(), bread.ID)
	require.NoError(t, err)

	res, err := f.service.ListFavorites(context.Background(), f.reader.ID.String(), 1, 10)
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, bread.ID, res.Results[0].ID)
	assert.True(t, res.Results[0].IsFavorited)
}

func TestCollections(t *testing.T) {
	for _, kind := range []domain.CollectionKind{domain.CollectionFavorite, domain.CollectionShoppingCart} {
		t.Run(string(kind), func(t *testing.T) {
			f := newFixture(t)
			created := f.createRecipe(t, "Bread")
			ctx := context.Background()

			short, err := f.service.AddToCollection(ctx, kind, f.reader.ID.String(), created.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.RecipeShort{ID: created.ID, Name: "Bread", Image: created.Image, CookingTime: 30}, short)

			_, err = f.service.AddToCollection(ctx, kind, f.reader.ID.String(), created.ID)
			assert.ErrorIs(t, err, domain.ErrConflict)

			_, err = f.service.AddToCollection(ctx, kind, f.reader.ID.String(), uuid.NewString())
			assert.ErrorIs(t, err, domain.ErrNotFound)

			require.NoError(t, f.service.RemoveFromCollection(ctx, kind, f.reader.ID.String(), created.ID))
			err = f.service.RemoveFromCollection(ctx, kind, f.reader.ID.String(), created.ID)
			assert.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestShoppingList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bread := f.createRecipe(t, "Bread")

	req := f.createRequest(t, "Soup")
	req.Ingredients = []domain.IngredientAmountRequest{{ID: f.salt.ID.String(), Amount: 3}}
	soup, err := f.service.CreateRecipe(ctx, f.author.ID.String(), req)
	require.NoError(t, err)

	_, err = f.service.AddToCollection(ctx, domain.CollectionShoppingCart, f.reader.ID.String(), bread.ID)
	require.NoError(t, err)
	_, err = f.service.AddToCollection(ctx, domain.CollectionShoppingCart, f.reader.ID.String(), soup.ID)
	require.NoError(t, err)

	items, err := f.service.BuildShoppingList(ctx, f.reader.ID.String())
	require.NoError(t, err)
	assert.Equal(t, []domain.ShoppingListItem{
		{Name: "Salt", TotalAmount: 8, MeasurementUnit: "g"},
		{Name: "Flour", TotalAmount: 200, MeasurementUnit: "g"},
	}, items)

	fileName, content, err := f.service.DownloadShoppingList(ctx, f.reader.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "reader_shopping_list.txt", fileName)
	assert.Equal(t, "Список покупок:\nSalt - 8 g\nFlour - 200 g", content)
}

func TestShoppingList_EmptyCart(t *testing.T) {
	f := newFixture(t)

	items, err := f.service.BuildShoppingList(context.Background(), f.reader.ID.String())
	require.NoError(t, err)
	assert.Empty(t, items)

	_, content, err := f.service.DownloadShoppingList(context.Background(), f.reader.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Список покупок:", content)
}

func TestSendShoppingList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bread := f.createRecipe(t, "Bread")
	_, err := f.service.AddToCollection(ctx, domain.CollectionShoppingCart, f.reader.ID.String(), bread.ID)
	require.NoError(t, err)

	require.NoError(t, f.service.SendShoppingList(ctx, f.reader.ID.String()))
	require.Len(t, f.mailer.sent, 1)
	mail := f.mailer.sent[0]
	assert.Equal(t, "reader@example.com", mail.to)
	assert.Equal(t, "Список покупок:\nSalt - 5 g\nFlour - 200 g", mail.body)
	require.Len(t, mail.attachments, 1)
	assert.Equal(t, "reader_shopping_list.txt", mail.attachments[0].FileName)

	f.mailer.err = errors.New("smtp down")
	assert.Error(t, f.service.SendShoppingList(ctx, f.reader.ID.String()))
}
