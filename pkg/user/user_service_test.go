package user

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"recipebook/domain"
	"recipebook/entities"
	"recipebook/pkg/jwt"
)

type fakeStorage struct{}

func (fakeStorage) UploadBase64Image(_ context.Context, _ string, folder string) (string, error) {
	return "https://cdn.test/" + folder + "/image.png", nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&entities.User{}, &entities.Subscription{},
		&entities.Tag{}, &entities.Ingredient{},
		&entities.Recipe{}, &entities.TagRecipe{}, &entities.IngredientRecipe{},
		&entities.Cart{}, &entities.Favorite{},
	))
	return db
}

func setupService(t *testing.T) (UserService, *gorm.DB) {
	db := setupTestDB(t)
	return NewUserService(NewUserRepository(db), jwt.NewJWTService(), fakeStorage{}), db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *entities.User {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &entities.User{
		Email:        username + "@example.com",
		Username:     username,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: string(hash),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestRecipe(t *testing.T, db *gorm.DB, authorID uint, name string) *entities.Recipe {
	recipe := &entities.Recipe{
		AuthorID:    authorID,
		Name:        name,
		Text:        "Mix and bake.",
		CookingTime: 10,
		ShortLink:   fmt.Sprintf("%s-%d", name, authorID),
	}
	require.NoError(t, db.Create(recipe).Error)
	return recipe
}

func TestRegisterAndLogin(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	registered, err := service.Register(ctx, domain.RegisterRequest{
		Email:     "anna@example.com",
		Username:  "anna",
		FirstName: "Anna",
		LastName:  "Smith",
		Password:  "strong-password",
	})
	require.NoError(t, err)
	assert.NotZero(t, registered.ID)
	assert.Equal(t, "anna", registered.Username)
	assert.False(t, registered.IsSubscribed)

	login, err := service.Login(ctx, domain.LoginRequest{
		Email:    "anna@example.com",
		Password: "strong-password",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, registered.ID, login.User.ID)

	_, err = service.Login(ctx, domain.LoginRequest{
		Email:    "anna@example.com",
		Password: "wrong-password",
	})
	assert.ErrorIs(t, err, domain.ErrCredentialsInvalid)
}

func TestRegister_DuplicateIdentity(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()

	existing := createTestUser(t, db, "anna")

	_, err := service.Register(ctx, domain.RegisterRequest{
		Email:     existing.Email,
		Username:  "other",
		FirstName: "Anna",
		LastName:  "Smith",
		Password:  "strong-password",
	})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)

	_, err = service.Register(ctx, domain.RegisterRequest{
		Email:     "fresh@example.com",
		Username:  existing.Username,
		FirstName: "Anna",
		LastName:  "Smith",
		Password:  "strong-password",
	})
	assert.ErrorIs(t, err, domain.ErrUsernameAlreadyExists)
}

func TestSubscribe_Self(t *testing.T) {
	service, db := setupService(t)

	user := createTestUser(t, db, "anna")
	_, err := service.Subscribe(context.Background(), user.ID, user.ID, 0)
	assert.ErrorIs(t, err, domain.ErrSelfSubscription)
}

func TestSubscribe_Twice(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()

	author := createTestUser(t, db, "chef")
	follower := createTestUser(t, db, "follower")

	response, err := service.Subscribe(ctx, author.ID, follower.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, author.ID, response.ID)
	assert.True(t, response.IsSubscribed)

	_, err = service.Subscribe(ctx, author.ID, follower.ID, 0)
	assert.ErrorIs(t, err, domain.ErrAlreadySubscribed)

	_, err = service.Subscribe(ctx, 999, follower.ID, 0)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUnsubscribe(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()

	author := createTestUser(t, db, "chef")
	follower := createTestUser(t, db, "follower")

	err := service.Unsubscribe(ctx, author.ID, follower.ID)
	assert.ErrorIs(t, err, domain.ErrNotSubscribed)

	_, err = service.Subscribe(ctx, author.ID, follower.ID, 0)
	require.NoError(t, err)
	require.NoError(t, service.Unsubscribe(ctx, author.ID, follower.ID))

	// The direction matters: the author never followed back.
	err = service.Unsubscribe(ctx, follower.ID, author.ID)
	assert.ErrorIs(t, err, domain.ErrNotSubscribed)
}

func TestGetSubscriptions_RecipePreviews(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()

	author := createTestUser(t, db, "chef")
	follower := createTestUser(t, db, "follower")
	for i := 0; i < 3; i++ {
		createTestRecipe(t, db, author.ID, fmt.Sprintf("recipe-%d", i))
	}

	_, err := service.Subscribe(ctx, author.ID, follower.ID, 0)
	require.NoError(t, err)

	subscriptions, count, err := service.GetSubscriptions(ctx, follower.ID, 1, 20, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	require.Len(t, subscriptions, 1)

	// Previews are truncated to the requested limit, the count is not.
	assert.Len(t, subscriptions[0].Recipes, 2)
	assert.EqualValues(t, 3, subscriptions[0].RecipesCount)
	assert.True(t, subscriptions[0].IsSubscribed)

	none, count, err := service.GetSubscriptions(ctx, author.ID, 1, 20, 0)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, none)
}

func TestGetProfile_SubscriptionFlag(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()

	author := createTestUser(t, db, "chef")
	follower := createTestUser(t, db, "follower")

	_, err := service.Subscribe(ctx, author.ID, follower.ID, 0)
	require.NoError(t, err)

	profile, err := service.GetProfile(ctx, author.ID, follower.ID)
	require.NoError(t, err)
	assert.True(t, profile.IsSubscribed)

	anonymous, err := service.GetProfile(ctx, author.ID, 0)
	require.NoError(t, err)
	assert.False(t, anonymous.IsSubscribed)

	_, err = service.GetProfile(ctx, 999, follower.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestAvatarLifecycle(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()

	user := createTestUser(t, db, "anna")

	_, err := service.UpdateAvatar(ctx, user.ID, domain.UpdateAvatarRequest{})
	assert.ErrorIs(t, err, domain.ErrAvatarRequired)

	updated, err := service.UpdateAvatar(ctx, user.ID, domain.UpdateAvatarRequest{
		Avatar: "data:image/png;base64,aGVsbG8=",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/avatars/image.png", updated.Avatar)

	require.NoError(t, service.DeleteAvatar(ctx, user.ID))
	me, err := service.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, me.Avatar)
}

func TestResetPassword(t *testing.T) {
	db := setupTestDB(t)
	jwtService := jwt.NewJWTService()
	service := NewUserService(NewUserRepository(db), jwtService, fakeStorage{})
	ctx := context.Background()

	user := createTestUser(t, db, "anna")

	token, err := jwtService.GenerateTokenForgetPassword(map[string]any{
		"user_id": fmt.Sprintf("%d", user.ID),
	}, 15*time.Minute)
	require.NoError(t, err)

	require.NoError(t, service.ResetPassword(ctx, domain.ResetPasswordRequest{
		Token:    token,
		Password: "brand-new-password",
	}))

	_, err = service.Login(ctx, domain.LoginRequest{
		Email:    user.Email,
		Password: "brand-new-password",
	})
	assert.NoError(t, err)

	err = service.ResetPassword(ctx, domain.ResetPasswordRequest{
		Token:    "not-a-token",
		Password: "whatever",
	})
	assert.Error(t, err)
}
