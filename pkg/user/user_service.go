package user

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"recipebook/domain"
	"recipebook/entities"
	"recipebook/internal/utils"
	"recipebook/internal/utils/mailing"
	"recipebook/internal/utils/storage"
	"recipebook/pkg/jwt"
)

type (
	UserService interface {
		Register(ctx context.Context, req domain.RegisterRequest) (domain.UserResponse, error)
		Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error)
		Me(ctx context.Context, userID uint) (domain.UserResponse, error)
		GetProfile(ctx context.Context, id uint, viewerID uint) (domain.UserResponse, error)
		GetUsers(ctx context.Context, page, limit int, viewerID uint) ([]domain.UserResponse, int64, error)
		UpdateAvatar(ctx context.Context, userID uint, req domain.UpdateAvatarRequest) (domain.UserResponse, error)
		DeleteAvatar(ctx context.Context, userID uint) error
		ForgotPassword(ctx context.Context, req domain.ForgotPasswordRequest) error
		ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error

		Subscribe(ctx context.Context, targetID, subscriberID uint, recipesLimit int) (domain.UserWithRecipesResponse, error)
		Unsubscribe(ctx context.Context, targetID, subscriberID uint) error
		GetSubscriptions(ctx context.Context, subscriberID uint, page, limit, recipesLimit int) ([]domain.UserWithRecipesResponse, int64, error)
	}

	userService struct {
		userRepository UserRepository
		jwtService     jwt.JWTService
		s3             storage.AwsS3
	}
)

func NewUserService(userRepository UserRepository, jwtService jwt.JWTService, s3 storage.AwsS3) UserService {
	return &userService{
		userRepository: userRepository,
		jwtService:     jwtService,
		s3:             s3,
	}
}

func (s *userService) Register(ctx context.Context, req domain.RegisterRequest) (domain.UserResponse, error) {
	if _, err := s.userRepository.GetUserByEmail(ctx, req.Email); err == nil {
		return domain.UserResponse{}, domain.ErrEmailAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.UserResponse{}, err
	}

	if _, err := s.userRepository.GetUserByUsername(ctx, req.Username); err == nil {
		return domain.UserResponse{}, domain.ErrUsernameAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.UserResponse{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.UserResponse{}, err
	}

	user := &entities.User{
		Email:        req.Email,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(hash),
	}

	if err := s.userRepository.CreateUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.UserResponse{}, domain.ErrEmailAlreadyExists
		}
		return domain.UserResponse{}, err
	}

	return buildUserResponse(user, false), nil
}

func (s *userService) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	user, err := s.userRepository.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.LoginResponse{}, domain.ErrCredentialsInvalid
		}
		return domain.LoginResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return domain.LoginResponse{}, domain.ErrCredentialsInvalid
	}

	token := s.jwtService.GenerateTokenUser(strconv.FormatUint(uint64(user.ID), 10), domain.RoleUser)
	return domain.LoginResponse{
		Token: token,
		User:  buildUserResponse(user, false),
	}, nil
}

func (s *userService) Me(ctx context.Context, userID uint) (domain.UserResponse, error) {
	user, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.UserResponse{}, domain.ErrUserNotFound
		}
		return domain.UserResponse{}, err
	}
	return buildUserResponse(user, false), nil
}

func (s *userService) GetProfile(ctx context.Context, id uint, viewerID uint) (domain.UserResponse, error) {
	user, err := s.userRepository.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.UserResponse{}, domain.ErrUserNotFound
		}
		return domain.UserResponse{}, err
	}

	isSubscribed := false
	if viewerID != 0 {
		if isSubscribed, err = s.userRepository.IsSubscribed(ctx, viewerID, user.ID); err != nil {
			return domain.UserResponse{}, err
		}
	}
	return buildUserResponse(user, isSubscribed), nil
}

func (s *userService) GetUsers(ctx context.Context, page, limit int, viewerID uint) ([]domain.UserResponse, int64, error) {
	users, count, err := s.userRepository.GetUsers(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]domain.UserResponse, 0, len(users))
	for _, user := range users {
		isSubscribed := false
		if viewerID != 0 {
			if isSubscribed, err = s.userRepository.IsSubscribed(ctx, viewerID, user.ID); err != nil {
				return nil, 0, err
			}
		}
		responses = append(responses, buildUserResponse(user, isSubscribed))
	}
	return responses, count, nil
}

func (s *userService) UpdateAvatar(ctx context.Context, userID uint, req domain.UpdateAvatarRequest) (domain.UserResponse, error) {
	if req.Avatar == "" {
		return domain.UserResponse{}, domain.ErrAvatarRequired
	}

	user, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.UserResponse{}, domain.ErrUserNotFound
		}
		return domain.UserResponse{}, err
	}

	avatarURL, err := s.s3.UploadBase64Image(ctx, req.Avatar, "avatars")
	if err != nil {
		return domain.UserResponse{}, err
	}

	user.Avatar = avatarURL
	if err := s.userRepository.UpdateUser(ctx, user); err != nil {
		return domain.UserResponse{}, err
	}
	return buildUserResponse(user, false), nil
}

func (s *userService) DeleteAvatar(ctx context.Context, userID uint) error {
	user, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	user.Avatar = ""
	return s.userRepository.UpdateUser(ctx, user)
}

func (s *userService) ForgotPassword(ctx context.Context, req domain.ForgotPasswordRequest) error {
	user, err := s.userRepository.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	token, err := s.jwtService.GenerateTokenForgetPassword(map[string]any{
		"user_id": strconv.FormatUint(uint64(user.ID), 10),
	}, 15*time.Minute)
	if err != nil {
		return err
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", utils.GetConfig("APP_URL"), token)
	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>Follow <a href=%q>this link</a> to reset your password. The link expires in 15 minutes.</p>",
		user.FirstName, resetLink,
	)
	return mailing.SendMail(user.Email, "Password reset", body)
}

func (s *userService) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	claims, err := s.jwtService.ValidateTokenForgetPassword(req.Token)
	if err != nil {
		return err
	}

	rawID, ok := claims["user_id"].(string)
	if !ok {
		return domain.ErrTokenInvalid
	}
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return domain.ErrTokenInvalid
	}

	user, err := s.userRepository.GetUserByID(ctx, uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	return s.userRepository.UpdateUser(ctx, user)
}

func (s *userService) Subscribe(ctx context.Context, targetID, subscriberID uint, recipesLimit int) (domain.UserWithRecipesResponse, error) {
	if targetID == subscriberID {
		return domain.UserWithRecipesResponse{}, domain.ErrSelfSubscription
	}

	target, err := s.userRepository.GetUserByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.UserWithRecipesResponse{}, domain.ErrUserNotFound
		}
		return domain.UserWithRecipesResponse{}, err
	}

	subscribed, err := s.userRepository.IsSubscribed(ctx, subscriberID, targetID)
	if err != nil {
		return domain.UserWithRecipesResponse{}, err
	}
	if subscribed {
		return domain.UserWithRecipesResponse{}, domain.ErrAlreadySubscribed
	}

	if err := s.userRepository.CreateSubscription(ctx, targetID, subscriberID); err != nil {
		// Concurrent duplicate follow loses at the unique constraint.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.UserWithRecipesResponse{}, domain.ErrAlreadySubscribed
		}
		return domain.UserWithRecipesResponse{}, err
	}

	return s.buildUserWithRecipes(ctx, target, true, recipesLimit)
}

func (s *userService) Unsubscribe(ctx context.Context, targetID, subscriberID uint) error {
	if _, err := s.userRepository.GetUserByID(ctx, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	subscribed, err := s.userRepository.IsSubscribed(ctx, subscriberID, targetID)
	if err != nil {
		return err
	}
	if !subscribed {
		return domain.ErrNotSubscribed
	}

	return s.userRepository.DeleteSubscription(ctx, targetID, subscriberID)
}

func (s *userService) GetSubscriptions(ctx context.Context, subscriberID uint, page, limit, recipesLimit int) ([]domain.UserWithRecipesResponse, int64, error) {
	users, count, err := s.userRepository.GetSubscribedUsers(ctx, subscriberID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]domain.UserWithRecipesResponse, 0, len(users))
	for _, user := range users {
		response, err := s.buildUserWithRecipes(ctx, user, true, recipesLimit)
		if err != nil {
			return nil, 0, err
		}
		responses = append(responses, response)
	}
	return responses, count, nil
}

// buildUserWithRecipes renders a profile with recipe previews truncated to
// recipesLimit and the untruncated total recipe count.
func (s *userService) buildUserWithRecipes(ctx context.Context, user *entities.User, isSubscribed bool, recipesLimit int) (domain.UserWithRecipesResponse, error) {
	recipes, err := s.userRepository.GetRecipePreviews(ctx, user.ID, recipesLimit)
	if err != nil {
		return domain.UserWithRecipesResponse{}, err
	}

	count, err := s.userRepository.CountRecipesByAuthor(ctx, user.ID)
	if err != nil {
		return domain.UserWithRecipesResponse{}, err
	}

	previews := make([]domain.RecipeShortResponse, 0, len(recipes))
	for _, recipe := range recipes {
		previews = append(previews, domain.RecipeShortResponse{
			ID:          recipe.ID,
			Name:        recipe.Name,
			Image:       recipe.Image,
			CookingTime: recipe.CookingTime,
		})
	}

	return domain.UserWithRecipesResponse{
		UserResponse: buildUserResponse(user, isSubscribed),
		Recipes:      previews,
		RecipesCount: count,
	}, nil
}

func buildUserResponse(user *entities.User, isSubscribed bool) domain.UserResponse {
	return domain.UserResponse{
		ID:           user.ID,
		Email:        user.Email,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Avatar:       user.Avatar,
		IsSubscribed: isSubscribed,
	}
}
