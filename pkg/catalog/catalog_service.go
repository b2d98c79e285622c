package catalog

import (
	"context"
	"errors"
	"strings"

	"foodgram/domain"
	"foodgram/entities"

	"github.com/google/uuid"
)

type (
	CatalogService interface {
		ListTags(ctx context.Context) ([]domain.Tag, error)
		GetTag(ctx context.Context, id string) (domain.Tag, error)
		CreateTag(ctx context.Context, req domain.CreateTagRequest) (domain.Tag, error)
		SearchIngredients(ctx context.Context, name string) ([]domain.Ingredient, error)
		GetIngredient(ctx context.Context, id string) (domain.Ingredient, error)
		CreateIngredients(ctx context.Context, reqs []domain.CreateIngredientRequest) (int, error)
	}

	catalogService struct {
		catalogRepository CatalogRepository
	}
)

func NewCatalogService(catalogRepository CatalogRepository) CatalogService {
	return &catalogService{catalogRepository: catalogRepository}
}

func (s *catalogService) ListTags(ctx context.Context) ([]domain.Tag, error) {
	tags, err := s.catalogRepository.GetTags(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]domain.Tag, 0, len(tags))
	for _, t := range tags {
		res = append(res, ToTag(t))
	}
	return res, nil
}

func (s *catalogService) GetTag(ctx context.Context, id string) (domain.Tag, error) {
	tagID, err := uuid.Parse(id)
	if err != nil {
		return domain.Tag{}, domain.NewNotFoundError("tag", id)
	}
	tag, err := s.catalogRepository.GetTagByID(ctx, tagID)
	if err != nil {
		return domain.Tag{}, err
	}
	return ToTag(tag), nil
}

func (s *catalogService) CreateTag(ctx context.Context, req domain.CreateTagRequest) (domain.Tag, error) {
	tag := &entities.Tag{
		ID:    uuid.New(),
		Name:  strings.TrimSpace(req.Name),
		Color: strings.ToUpper(req.Color),
		Slug:  req.Slug,
	}
	if err := s.catalogRepository.CreateTag(ctx, tag); err != nil {
		return domain.Tag{}, err
	}
	return ToTag(tag), nil
}

func (s *catalogService) SearchIngredients(ctx context.Context, name string) ([]domain.Ingredient, error) {
	ingredients, err := s.catalogRepository.SearchIngredients(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	res := make([]domain.Ingredient, 0, len(ingredients))
	for _, i := range ingredients {
		res = append(res, ToIngredient(i))
	}
	return res, nil
}

func (s *catalogService) GetIngredient(ctx context.Context, id string) (domain.Ingredient, error) {
	ingredientID, err := uuid.Parse(id)
	if err != nil {
		return domain.Ingredient{}, domain.NewNotFoundError("ingredient", id)
	}
	ingredient, err := s.catalogRepository.GetIngredientByID(ctx, ingredientID)
	if err != nil {
		return domain.Ingredient{}, err
	}
	return ToIngredient(ingredient), nil
}

// CreateIngredients inserts each row and skips the ones that already exist.
// It returns how many rows were created.
func (s *catalogService) CreateIngredients(ctx context.Context, reqs []domain.CreateIngredientRequest) (int, error) {
	created := 0
	for _, req := range reqs {
		ingredient := &entities.Ingredient{
			ID:              uuid.New(),
			Name:            strings.TrimSpace(req.Name),
			MeasurementUnit: strings.TrimSpace(req.MeasurementUnit),
		}
		if err := s.catalogRepository.CreateIngredient(ctx, ingredient); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}

func ToTag(t *entities.Tag) domain.Tag {
	return domain.Tag{
		ID:    t.ID.String(),
		Name:  t.Name,
		Color: t.Color,
		Slug:  t.Slug,
	}
}

func ToIngredient(i *entities.Ingredient) domain.Ingredient {
	return domain.Ingredient{
		ID:              i.ID.String(),
		Name:            i.Name,
		MeasurementUnit: i.MeasurementUnit,
	}
}
