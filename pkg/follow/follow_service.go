package follow

import (
	"context"
	"strconv"

	"foodgram/domain"
	"foodgram/entities"
	"foodgram/pkg/recipe"
	"foodgram/pkg/user"

	"github.com/google/uuid"
)

// NoRecipesLimit keeps every recipe in a subscription preview.
const NoRecipesLimit = -1

type (
	FollowService interface {
		Follow(ctx context.Context, userID string, authorID string, recipesLimit string) (domain.Subscription, error)
		Unfollow(ctx context.Context, userID string, authorID string) error
		ListSubscriptions(ctx context.Context, userID string, recipesLimit string, page, limit int) (domain.PaginatedResponse[domain.Subscription], error)
	}

	followService struct {
		followRepository FollowRepository
		userRepository   user.UserRepository
		recipeRepository recipe.RecipeRepository
	}
)

func NewFollowService(
	followRepository FollowRepository,
	userRepository user.UserRepository,
	recipeRepository recipe.RecipeRepository,
) FollowService {
	return &followService{
		followRepository: followRepository,
		userRepository:   userRepository,
		recipeRepository: recipeRepository,
	}
}

// ParseRecipesLimit accepts an empty value or a non-negative integer.
func ParseRecipesLimit(raw string) (int, error) {
	if raw == "" {
		return NoRecipesLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError("recipes_limit", "must be a non-negative integer")
	}
	return n, nil
}

func (s *followService) Follow(ctx context.Context, userID string, authorID string, recipesLimit string) (domain.Subscription, error) {
	limit, err := ParseRecipesLimit(recipesLimit)
	if err != nil {
		return domain.Subscription{}, err
	}
	follower, err := uuid.Parse(userID)
	if err != nil {
		return domain.Subscription{}, domain.ErrParseUUID
	}
	aid, err := uuid.Parse(authorID)
	if err != nil {
		return domain.Subscription{}, domain.NewNotFoundError("user", authorID)
	}
	if follower == aid {
		return domain.Subscription{}, domain.NewValidationError("", "you cannot subscribe to yourself")
	}

	author, err := s.userRepository.GetUserByID(ctx, aid)
	if err != nil {
		return domain.Subscription{}, err
	}
	if err := s.followRepository.CreateFollow(ctx, follower, aid); err != nil {
		return domain.Subscription{}, err
	}

	subs, err := s.subscriptions(ctx, []*entities.User{author}, limit)
	if err != nil {
		return domain.Subscription{}, err
	}
	return subs[0], nil
}

func (s *followService) Unfollow(ctx context.Context, userID string, authorID string) error {
	follower, err := uuid.Parse(userID)
	if err != nil {
		return domain.ErrParseUUID
	}
	aid, err := uuid.Parse(authorID)
	if err != nil {
		return domain.NewNotFoundError("subscription", authorID)
	}
	return s.followRepository.DeleteFollow(ctx, follower, aid)
}

func (s *followService) ListSubscriptions(ctx context.Context, userID string, recipesLimit string, page, limit int) (domain.PaginatedResponse[domain.Subscription], error) {
	previewLimit, err := ParseRecipesLimit(recipesLimit)
	if err != nil {
		return domain.PaginatedResponse[domain.Subscription]{}, err
	}
	follower, err := uuid.Parse(userID)
	if err != nil {
		return domain.PaginatedResponse[domain.Subscription]{}, domain.ErrParseUUID
	}

	authors, total, err := s.followRepository.GetFollowedAuthors(ctx, follower, page, limit)
	if err != nil {
		return domain.PaginatedResponse[domain.Subscription]{}, err
	}
	results, err := s.subscriptions(ctx, authors, previewLimit)
	if err != nil {
		return domain.PaginatedResponse[domain.Subscription]{}, err
	}

	return domain.PaginatedResponse[domain.Subscription]{
		Results:    results,
		Pagination: domain.NewPagination(page, limit, total),
	}, nil
}

// subscriptions builds author cards for authors the requester follows.
func (s *followService) subscriptions(ctx context.Context, authors []*entities.User, recipesLimit int) ([]domain.Subscription, error) {
	ids := make([]uuid.UUID, 0, len(authors))
	for _, a := range authors {
		ids = append(ids, a.ID)
	}
	counts, err := s.recipeRepository.CountRecipesByAuthors(ctx, ids)
	if err != nil {
		return nil, err
	}

	res := make([]domain.Subscription, 0, len(authors))
	for _, a := range authors {
		recipes, err := s.recipeRepository.GetRecipesByAuthor(ctx, a.ID, recipesLimit)
		if err != nil {
			return nil, err
		}
		previews := make([]domain.RecipeShort, 0, len(recipes))
		for _, r := range recipes {
			previews = append(previews, recipe.ToRecipeShort(r))
		}

		res = append(res, domain.Subscription{
			UserResponse: user.ToUserResponse(a, true),
			Recipes:      previews,
			RecipesCount: counts[a.ID],
		})
	}
	return res, nil
}
