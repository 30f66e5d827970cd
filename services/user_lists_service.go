package services

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "github.com/yashrajoria/storefront/common/errors"
	"github.com/yashrajoria/storefront/repository"
)

// MaxAddresses is how many shipping addresses one user can keep.
const MaxAddresses = 5

// UserDocStore is the raw document access the wishlist and address book need.
type UserDocStore interface {
	FindByID(ctx context.Context, id string) (bson.M, error)
	UpdateByID(ctx context.Context, id string, update bson.M) (bson.M, error)
	Populate(ctx context.Context, docs []bson.M, pops []repository.Population) error
}

// WishlistProducts expands wishlist ids to product summaries.
var WishlistProducts = []repository.Population{
	{Path: "wishlist", From: "products", Select: []string{"name", "price", "imageCover", "averageRating"}},
}

// UserListsService manages the wishlist and address book embedded in a user.
type UserListsService struct {
	users UserDocStore
}

func NewUserListsService(users UserDocStore) *UserListsService {
	return &UserListsService{users: users}
}

func (s *UserListsService) AddToWishlist(ctx context.Context, userID, productID string) (bson.A, error) {
	pid, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return nil, apperrors.BadRequest("Invalid ID format: %s", productID)
	}
	user, err := s.users.UpdateByID(ctx, userID, bson.M{"$addToSet": bson.M{"wishlist": pid}})
	if err != nil {
		return nil, userNotFound(err, userID)
	}
	return list(user["wishlist"]), nil
}

func (s *UserListsService) RemoveFromWishlist(ctx context.Context, userID, productID string) (bson.A, error) {
	pid, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return nil, apperrors.BadRequest("Invalid ID format: %s", productID)
	}
	user, err := s.users.UpdateByID(ctx, userID, bson.M{"$pull": bson.M{"wishlist": pid}})
	if err != nil {
		return nil, userNotFound(err, userID)
	}
	return list(user["wishlist"]), nil
}

func (s *UserListsService) Wishlist(ctx context.Context, userID string) (bson.A, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, userNotFound(err, userID)
	}
	if err := s.users.Populate(ctx, []bson.M{user}, WishlistProducts); err != nil {
		return nil, err
	}
	return list(user["wishlist"]), nil
}

// AddAddress appends an address with a generated id.
func (s *UserListsService) AddAddress(ctx context.Context, userID string, address map[string]any) (bson.A, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, userNotFound(err, userID)
	}
	if len(list(user["addresses"])) >= MaxAddresses {
		return nil, apperrors.BadRequest("You can save up to %d addresses", MaxAddresses)
	}

	entry := bson.M{"_id": uuid.NewString()}
	for k, v := range address {
		if k != "_id" {
			entry[k] = v
		}
	}
	user, err = s.users.UpdateByID(ctx, userID, bson.M{"$push": bson.M{"addresses": entry}})
	if err != nil {
		return nil, userNotFound(err, userID)
	}
	return list(user["addresses"]), nil
}

func (s *UserListsService) RemoveAddress(ctx context.Context, userID, addressID string) (bson.A, error) {
	user, err := s.users.UpdateByID(ctx, userID, bson.M{"$pull": bson.M{"addresses": bson.M{"_id": addressID}}})
	if err != nil {
		return nil, userNotFound(err, userID)
	}
	return list(user["addresses"]), nil
}

func (s *UserListsService) Addresses(ctx context.Context, userID string) (bson.A, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, userNotFound(err, userID)
	}
	return list(user["addresses"]), nil
}

func userNotFound(err error, id string) error {
	return notFoundLabel(err, "user", id)
}

func list(v any) bson.A {
	switch l := v.(type) {
	case bson.A:
		return l
	case []any:
		return bson.A(l)
	}
	return bson.A{}
}
