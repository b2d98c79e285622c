package recipe

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/png"
	"sort"
	"strings"
	"testing"
	"time"

	"foodgram/domain"
	"foodgram/entities"
	"foodgram/internal/utils/mailing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type edge struct {
	user   uuid.UUID
	recipe uuid.UUID
}

// fakeStore is an in-memory RecipeRepository and user.UserRepository.
type fakeStore struct {
	users       map[uuid.UUID]*entities.User
	follows     map[edge]bool // user -> author
	tags        map[uuid.UUID]*entities.Tag
	ingredients map[uuid.UUID]*entities.Ingredient
	recipes     map[uuid.UUID]*entities.Recipe
	recipeTags  map[uuid.UUID][]uuid.UUID
	lines       map[uuid.UUID][]*entities.RecipeIngredient
	favorites   map[edge]bool
	cart        map[edge]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       map[uuid.UUID]*entities.User{},
		follows:     map[edge]bool{},
		tags:        map[uuid.UUID]*entities.Tag{},
		ingredients: map[uuid.UUID]*entities.Ingredient{},
		recipes:     map[uuid.UUID]*entities.Recipe{},
		recipeTags:  map[uuid.UUID][]uuid.UUID{},
		lines:       map[uuid.UUID][]*entities.RecipeIngredient{},
		favorites:   map[edge]bool{},
		cart:        map[edge]bool{},
	}
}

func (f *fakeStore) addUser(username string) *entities.User {
	u := &entities.User{ID: uuid.New(), Username: username, Email: username + "@example.com", Role: domain.RoleUser}
	f.users[u.ID] = u
	return u
}

func (f *fakeStore) addTag(name, slug string) *entities.Tag {
	t := &entities.Tag{ID: uuid.New(), Name: name, Color: "#49B64E", Slug: slug}
	f.tags[t.ID] = t
	return t
}

func (f *fakeStore) addIngredient(name, unit string) *entities.Ingredient {
	i := &entities.Ingredient{ID: uuid.New(), Name: name, MeasurementUnit: unit}
	f.ingredients[i.ID] = i
	return i
}

// RecipeRepository

func (f *fakeStore) CreateRecipe(_ context.Context, recipe *entities.Recipe, tagIDs []uuid.UUID, lines []*entities.RecipeIngredient) error {
	for _, r := range f.recipes {
		if r.AuthorID == recipe.AuthorID && r.Name == recipe.Name {
			return domain.NewConflictError("recipe", "you already have a recipe with this name")
		}
	}
	stored := *recipe
	f.recipes[recipe.ID] = &stored
	f.replace(recipe.ID, tagIDs, lines)
	return nil
}

func (f *fakeStore) UpdateRecipe(_ context.Context, recipe *entities.Recipe, tagIDs []uuid.UUID, lines []*entities.RecipeIngredient) error {
	if _, ok := f.recipes[recipe.ID]; !ok {
		return domain.NewNotFoundError("recipe", recipe.ID.String())
	}
	stored := *recipe
	f.recipes[recipe.ID] = &stored
	f.replace(recipe.ID, tagIDs, lines)
	return nil
}

func (f *fakeStore) replace(recipeID uuid.UUID, tagIDs []uuid.UUID, lines []*entities.RecipeIngredient) {
	f.recipeTags[recipeID] = append([]uuid.UUID(nil), tagIDs...)
	stored := make([]*entities.RecipeIngredient, 0, len(lines))
	for _, l := range lines {
		line := *l
		line.ID = uuid.New()
		line.RecipeID = recipeID
		stored = append(stored, &line)
	}
	f.lines[recipeID] = stored
}

func (f *fakeStore) DeleteRecipe(_ context.Context, id uuid.UUID) error {
	if _, ok := f.recipes[id]; !ok {
		return domain.NewNotFoundError("recipe", id.String())
	}
	delete(f.recipes, id)
	delete(f.recipeTags, id)
	delete(f.lines, id)
	for e := range f.favorites {
		if e.recipe == id {
			delete(f.favorites, e)
		}
	}
	for e := range f.cart {
		if e.recipe == id {
			delete(f.cart, e)
		}
	}
	return nil
}

func (f *fakeStore) GetRecipeByID(_ context.Context, id uuid.UUID) (*entities.Recipe, error) {
	r, ok := f.recipes[id]
	if !ok {
		return nil, domain.NewNotFoundError("recipe", id.String())
	}
	out := *r
	return &out, nil
}

func (f *fakeStore) GetRecipeDetail(ctx context.Context, id uuid.UUID) (*entities.Recipe, error) {
	r, err := f.GetRecipeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return f.detail(r), nil
}

func (f *fakeStore) detail(r *entities.Recipe) *entities.Recipe {
	out := *r
	out.Author = f.users[r.AuthorID]
	out.Tags = nil
	for _, id := range f.recipeTags[r.ID] {
		out.Tags = append(out.Tags, f.tags[id])
	}
	out.Ingredients = nil
	for _, l := range f.lines[r.ID] {
		line := *l
		line.Ingredient = f.ingredients[l.IngredientID]
		out.Ingredients = append(out.Ingredients, &line)
	}
	return &out
}

func (f *fakeStore) GetRecipes(_ context.Context, filter domain.RecipeFilter, page, limit int) ([]*entities.Recipe, int64, error) {
	var matched []*entities.Recipe
	for _, r := range f.recipes {
		if f.matches(r, filter) {
			matched = append(matched, f.detail(r))
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].PubDate.After(matched[j].PubDate) })

	total := int64(len(matched))
	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (f *fakeStore) matches(r *entities.Recipe, filter domain.RecipeFilter) bool {
	if len(filter.TagSlugs) > 0 {
		found := false
		for _, id := range f.recipeTags[r.ID] {
			for _, slug := range filter.TagSlugs {
				if f.tags[id].Slug == slug {
					found = true
				}
			}
		}
		if !found {
			return false
		}
	}
	if filter.AuthorID != "" && r.AuthorID.String() != filter.AuthorID {
		return false
	}
	if filter.RequesterID == "" {
		return true
	}
	requester := uuid.MustParse(filter.RequesterID)
	if filter.IsFavorited != nil && f.favorites[edge{requester, r.ID}] != *filter.IsFavorited {
		return false
	}
	if filter.IsInShoppingCart != nil && f.cart[edge{requester, r.ID}] != *filter.IsInShoppingCart {
		return false
	}
	return true
}

func (f *fakeStore) GetRecipesByAuthor(_ context.Context, authorID uuid.UUID, limit int) ([]*entities.Recipe, error) {
	var out []*entities.Recipe
	for _, r := range f.recipes {
		if r.AuthorID == authorID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PubDate.After(out[j].PubDate) })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) CountRecipesByAuthors(_ context.Context, authorIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := map[uuid.UUID]int64{}
	for _, r := range f.recipes {
		counts[r.AuthorID]++
	}
	return counts, nil
}

func (f *fakeStore) FindTagIDs(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	var found []uuid.UUID
	for _, id := range ids {
		if _, ok := f.tags[id]; ok {
			found = append(found, id)
		}
	}
	return found, nil
}

func (f *fakeStore) FindIngredientIDs(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	var found []uuid.UUID
	for _, id := range ids {
		if _, ok := f.ingredients[id]; ok {
			found = append(found, id)
		}
	}
	return found, nil
}

func (f *fakeStore) collection(kind domain.CollectionKind) map[edge]bool {
	if kind == domain.CollectionFavorite {
		return f.favorites
	}
	return f.cart
}

func (f *fakeStore) AddToCollection(_ context.Context, kind domain.CollectionKind, userID, recipeID uuid.UUID) error {
	c := f.collection(kind)
	if c[edge{userID, recipeID}] {
		return domain.NewConflictError(string(kind), "recipe is already in the collection")
	}
	c[edge{userID, recipeID}] = true
	return nil
}

func (f *fakeStore) RemoveFromCollection(_ context.Context, kind domain.CollectionKind, userID, recipeID uuid.UUID) error {
	c := f.collection(kind)
	if !c[edge{userID, recipeID}] {
		return domain.NewNotFoundError(string(kind)+" entry", recipeID.String())
	}
	delete(c, edge{userID, recipeID})
	return nil
}

func (f *fakeStore) CollectionFlags(_ context.Context, userID uuid.UUID, recipeIDs []uuid.UUID) (map[uuid.UUID]bool, map[uuid.UUID]bool, error) {
	favorited, inCart := map[uuid.UUID]bool{}, map[uuid.UUID]bool{}
	for _, id := range recipeIDs {
		favorited[id] = f.favorites[edge{userID, id}]
		inCart[id] = f.cart[edge{userID, id}]
	}
	return favorited, inCart, nil
}

func (f *fakeStore) GetCartLines(_ context.Context, userID uuid.UUID) ([]domain.CartLine, error) {
	var out []domain.CartLine
	for e := range f.cart {
		if e.user != userID {
			continue
		}
		for _, l := range f.lines[e.recipe] {
			ing := f.ingredients[l.IngredientID]
			out = append(out, domain.CartLine{Name: ing.Name, MeasurementUnit: ing.MeasurementUnit, Amount: l.Amount})
		}
	}
	return out, nil
}

// user.UserRepository

func (f *fakeStore) CreateUser(_ context.Context, u *entities.User) error {
	f.users[u.ID] = u
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id uuid.UUID) (*entities.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, domain.NewNotFoundError("user", id.String())
	}
	return u, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*entities.User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, domain.NewNotFoundError("user", email)
}

func (f *fakeStore) GetUsers(_ context.Context, page, limit int) ([]*entities.User, int64, error) {
	var out []*entities.User
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStore) UpdatePassword(_ context.Context, id uuid.UUID, hashed string) error {
	f.users[id].Password = hashed
	return nil
}

func (f *fakeStore) SubscribedTo(_ context.Context, followerID uuid.UUID, authorIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := map[uuid.UUID]bool{}
	for _, id := range authorIDs {
		if f.follows[edge{followerID, id}] {
			out[id] = true
		}
	}
	return out, nil
}

type fakeS3 struct {
	uploaded []string
	deleted  []string
}

const fakeS3Base = "https://cdn.example.com/foodgram/"

func (s *fakeS3) UploadFile(_ context.Context, fileName string, content []byte, folder string, _ ...string) (string, error) {
	key := folder + "/" + fileName + ".png"
	s.uploaded = append(s.uploaded, key)
	return key, nil
}

func (s *fakeS3) DeleteFile(_ context.Context, objectKey string) error {
	s.deleted = append(s.deleted, objectKey)
	return nil
}

func (s *fakeS3) GetPublicLinkKey(objectKey string) string {
	return fakeS3Base + objectKey
}

func (s *fakeS3) GetObjectKeyFromLink(link string) string {
	if !strings.HasPrefix(link, fakeS3Base) {
		return ""
	}
	return strings.TrimPrefix(link, fakeS3Base)
}

type sentMail struct {
	to          string
	subject     string
	body        string
	attachments []mailing.Attachment
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendMail(to string, subject string, body string, attachments ...mailing.Attachment) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body, attachments: attachments})
	return nil
}

func pngDataURI(t *testing.T, width, height int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

var testRules = Rules{MinIngredientAmount: 1, MinCookingTime: 1, ImageMaxWidth: 1280}

type fixture struct {
	store   *fakeStore
	s3      *fakeS3
	mailer  *fakeMailer
	service RecipeService

	author    *entities.User
	reader    *entities.User
	breakfast *entities.Tag
	dinner    *entities.Tag
	salt      *entities.Ingredient
	flour     *entities.Ingredient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newFakeStore()
	f := &fixture{
		store:  store,
		s3:     &fakeS3{},
		mailer: &fakeMailer{},
	}
	f.service = NewRecipeService(store, store, f.s3, f.mailer, testRules)

	f.author = store.addUser("chef")
	f.reader = store.addUser("reader")
	f.breakfast = store.addTag("Breakfast", "breakfast")
	f.dinner = store.addTag("Dinner", "dinner")
	f.salt = store.addIngredient("Salt", "g")
	f.flour = store.addIngredient("Flour", "g")
	return f
}

func (f *fixture) createRequest(t *testing.T, name string) domain.CreateRecipeRequest {
	return domain.CreateRecipeRequest{
		Tags: []string{f.breakfast.ID.String()},
		Ingredients: []domain.IngredientAmountRequest{
			{ID: f.salt.ID.String(), Amount: 5},
			{ID: f.flour.ID.String(), Amount: 200},
		},
		Name:        name,
		Text:        "Mix and bake.",
		Image:       pngDataURI(t, 4, 4),
		CookingTime: 30,
	}
}

func (f *fixture) createRecipe(t *testing.T, name string) domain.Recipe {
	t.Helper()
	res, err := f.service.CreateRecipe(context.Background(), f.author.ID.String(), f.createRequest(t, name))
	require.NoError(t, err)
	// keep pub_date ordering deterministic
	time.Sleep(time.Millisecond)
	return res
}
