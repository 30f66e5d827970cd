package models

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"github.com/yashrajoria/storefront/repository"
)

const (
	RoleUser    = "user"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// PasswordCost is the bcrypt cost for stored passwords.
const PasswordCost = 12

var UserFields = []string{
	"name", "slug", "email", "phone", "profileImage", "password",
	"confirmPassword", "passwordChangedAt", "role", "active",
}

// HashPassword hashes a plain password for storage.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword reports whether plain matches the stored hash.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

func userSchema(opts Options) *repository.Schema {
	return &repository.Schema{
		Collection:  "users",
		Label:       TagUser.String(),
		DateFields:  []string{"passwordChangedAt"},
		Required:    []string{"name", "email", "password"},
		Defaults:    bson.M{"role": RoleUser, "active": true},
		SlugFrom:    "name",
		ImageFields: []string{"profileImage"},
		MediaURL:    opts.mediaURL("users"),
		Hidden:      []string{"password"},
		Indexes: []mongo.IndexModel{{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		BeforeCreate: hashOnCreate,
	}
}

func hashOnCreate(_ context.Context, doc bson.M) error {
	delete(doc, "confirmPassword")
	plain, ok := doc["password"].(string)
	if !ok || plain == "" {
		return nil
	}
	hash, err := HashPassword(plain)
	if err != nil {
		return err
	}
	doc["password"] = hash
	return nil
}
