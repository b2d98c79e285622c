package user

import (
	"context"
	"errors"
	"strings"

	"foodgram/domain"
	"foodgram/entities"
	"foodgram/internal/utils"
	"foodgram/internal/utils/logger"
	"foodgram/pkg/jwt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type (
	UserService interface {
		Register(ctx context.Context, req domain.RegisterRequest) (domain.UserResponse, error)
		Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error)
		Me(ctx context.Context, userID string) (domain.UserResponse, error)
		GetUser(ctx context.Context, id string, requesterID string) (domain.UserResponse, error)
		ListUsers(ctx context.Context, requesterID string, page, limit int) (domain.PaginatedResponse[domain.UserResponse], error)
		SetPassword(ctx context.Context, userID string, req domain.SetPasswordRequest) error
	}

	userService struct {
		userRepository UserRepository
		jwtService     jwt.JWTService
	}
)

func NewUserService(userRepository UserRepository, jwtService jwt.JWTService) UserService {
	return &userService{
		userRepository: userRepository,
		jwtService:     jwtService,
	}
}

func (s *userService) Register(ctx context.Context, req domain.RegisterRequest) (domain.UserResponse, error) {
	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return domain.UserResponse{}, err
	}

	user := &entities.User{
		ID:        uuid.New(),
		Email:     strings.TrimSpace(req.Email),
		Username:  req.Username,
		FirstName: utils.SanitizeText(req.FirstName),
		LastName:  utils.SanitizeText(req.LastName),
		Password:  hashed,
		Role:      domain.RoleUser,
	}
	if err := s.userRepository.CreateUser(ctx, user); err != nil {
		return domain.UserResponse{}, err
	}

	logger.Info("user registered", zap.String("user_id", user.ID.String()))
	return ToUserResponse(user, false), nil
}

func (s *userService) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	invalid := domain.NewValidationError("", domain.ErrInvalidCredentials.Error())

	user, err := s.userRepository.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.LoginResponse{}, invalid
		}
		return domain.LoginResponse{}, err
	}
	if !utils.CheckPassword(user.Password, req.Password) {
		return domain.LoginResponse{}, invalid
	}

	token, err := s.jwtService.GenerateTokenUser(user.ID.String(), user.Role)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return domain.LoginResponse{AuthToken: token}, nil
}

func (s *userService) Me(ctx context.Context, userID string) (domain.UserResponse, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return domain.UserResponse{}, domain.ErrParseUUID
	}
	user, err := s.userRepository.GetUserByID(ctx, id)
	if err != nil {
		return domain.UserResponse{}, err
	}
	return ToUserResponse(user, false), nil
}

func (s *userService) GetUser(ctx context.Context, id string, requesterID string) (domain.UserResponse, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return domain.UserResponse{}, domain.NewNotFoundError("user", id)
	}
	user, err := s.userRepository.GetUserByID(ctx, uid)
	if err != nil {
		return domain.UserResponse{}, err
	}

	subscribed, err := s.subscribed(ctx, requesterID, []uuid.UUID{user.ID})
	if err != nil {
		return domain.UserResponse{}, err
	}
	return ToUserResponse(user, subscribed[user.ID]), nil
}

func (s *userService) ListUsers(ctx context.Context, requesterID string, page, limit int) (domain.PaginatedResponse[domain.UserResponse], error) {
	users, total, err := s.userRepository.GetUsers(ctx, page, limit)
	if err != nil {
		return domain.PaginatedResponse[domain.UserResponse]{}, err
	}

	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	subscribed, err := s.subscribed(ctx, requesterID, ids)
	if err != nil {
		return domain.PaginatedResponse[domain.UserResponse]{}, err
	}

	results := make([]domain.UserResponse, 0, len(users))
	for _, u := range users {
		results = append(results, ToUserResponse(u, subscribed[u.ID]))
	}
	return domain.PaginatedResponse[domain.UserResponse]{
		Results:    results,
		Pagination: domain.NewPagination(page, limit, total),
	}, nil
}

func (s *userService) SetPassword(ctx context.Context, userID string, req domain.SetPasswordRequest) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return domain.ErrParseUUID
	}
	user, err := s.userRepository.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(user.Password, req.CurrentPassword) {
		return domain.NewValidationError("current_password", domain.ErrWrongPassword.Error())
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return s.userRepository.UpdatePassword(ctx, id, hashed)
}

// subscribed is empty for anonymous requesters.
func (s *userService) subscribed(ctx context.Context, requesterID string, authorIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	if requesterID == "" {
		return map[uuid.UUID]bool{}, nil
	}
	followerID, err := uuid.Parse(requesterID)
	if err != nil {
		return map[uuid.UUID]bool{}, nil
	}
	return s.userRepository.SubscribedTo(ctx, followerID, authorIDs)
}

func ToUserResponse(u *entities.User, subscribed bool) domain.UserResponse {
	return domain.UserResponse{
		ID:           u.ID.String(),
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
}
