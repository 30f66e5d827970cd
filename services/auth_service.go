package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/yashrajoria/storefront/common/auth"
	apperrors "github.com/yashrajoria/storefront/common/errors"
	"github.com/yashrajoria/storefront/models"
	"github.com/yashrajoria/storefront/repository"
	"github.com/yashrajoria/storefront/utils"
)

type ITokenService interface {
	Generate(userID, email, role string) (string, error)
	ParseAndValidateToken(tokenStr string) (*auth.Claims, error)
}

// SignupFields are the fields a visitor may set on their own account.
var SignupFields = []string{"name", "email", "phone", "password", "confirmPassword"}

// ProfileFields are the fields a user may change on their own account.
var ProfileFields = []string{"name", "email", "phone"}

type AuthService struct {
	users     models.RecordType
	resources *ResourceService
	tokens    ITokenService
}

func NewAuthService(users models.RecordType, resources *ResourceService, tokens ITokenService) *AuthService {
	return &AuthService{users: users, resources: resources, tokens: tokens}
}

// Session is a signed token and the user it was issued for.
type Session struct {
	Token string `json:"token"`
	User  bson.M `json:"data"`
}

func (s *AuthService) Signup(ctx context.Context, body *utils.Body) (*Session, error) {
	password, _ := body.Get("password")
	confirm, _ := body.Get("confirmPassword")
	if password != confirm {
		return nil, apperrors.BadRequest("Password confirmation is incorrect")
	}
	if email, ok := body.Get("email"); ok {
		if str, isStr := email.(string); isStr {
			body.Set("email", strings.ToLower(strings.TrimSpace(str)))
		}
	}
	signup := models.NewRecordType(models.TagUser, SignupFields, s.users.Store())

	user, err := s.resources.Create(ctx, signup, body, nil)
	if err != nil {
		return nil, err
	}
	return s.session(user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	store := s.users.Store()
	user, err := repository.FindOne(ctx, store, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized("Incorrect email or password")
		}
		return nil, err
	}
	hash, _ := user["password"].(string)
	if !models.CheckPassword(hash, password) {
		return nil, apperrors.Unauthorized("Incorrect email or password")
	}
	if active, ok := user["active"].(bool); ok && !active {
		return nil, apperrors.Unauthorized("This account has been deactivated")
	}
	return s.session(store.Present(user)[0])
}

// Authenticate resolves a bearer token to its current, active user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (bson.M, error) {
	claims, err := s.tokens.ParseAndValidateToken(token)
	if err != nil {
		return nil, apperrors.New(http.StatusUnauthorized, "Invalid token, please login again", err)
	}
	user, err := s.users.Store().FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized("The user that belongs to this token no longer exists")
		}
		return nil, err
	}
	if active, ok := user["active"].(bool); ok && !active {
		return nil, apperrors.Unauthorized("This account has been deactivated")
	}
	if changed, ok := asTime(user["passwordChangedAt"]); ok && changed.Unix() > claims.IssuedAt.Unix() {
		return nil, apperrors.Unauthorized("User recently changed password, please login again")
	}
	return user, nil
}

// ChangePassword rotates the logged user's password and issues a fresh token.
func (s *AuthService) ChangePassword(ctx context.Context, user bson.M, current, password string) (*Session, error) {
	hash, _ := user["password"].(string)
	if !models.CheckPassword(hash, current) {
		return nil, apperrors.Unauthorized("Current password is incorrect")
	}
	updated, err := s.resources.ResetPassword(ctx, s.users, repository.ObjectIDHex(user["_id"]), password)
	if err != nil {
		return nil, err
	}
	return s.session(updated)
}

// UpdateProfile changes the logged user's own name, email or phone.
func (s *AuthService) UpdateProfile(ctx context.Context, user bson.M, body *utils.Body) (bson.M, error) {
	profile := models.NewRecordType(models.TagUser, ProfileFields, s.users.Store())
	return s.resources.Update(ctx, profile, repository.ObjectIDHex(user["_id"]), body)
}

// Deactivate marks the logged user inactive.
func (s *AuthService) Deactivate(ctx context.Context, user bson.M) error {
	id := repository.ObjectIDHex(user["_id"])
	_, err := s.users.Store().FindByIDAndUpdate(ctx, id, bson.M{"active": false})
	return notFound(err, s.users, id)
}

func (s *AuthService) session(user bson.M) (*Session, error) {
	email, _ := user["email"].(string)
	role, _ := user["role"].(string)
	token, err := s.tokens.Generate(repository.ObjectIDHex(user["_id"]), email, role)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &Session{Token: token, User: user}, nil
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case primitive.DateTime:
		return t.Time(), true
	}
	return time.Time{}, false
}
