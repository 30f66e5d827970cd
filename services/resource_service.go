package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/yashrajoria/storefront/apifeatures"
	apperrors "github.com/yashrajoria/storefront/common/errors"
	"github.com/yashrajoria/storefront/models"
	"github.com/yashrajoria/storefront/repository"
	"github.com/yashrajoria/storefront/utils"
)

// ResourceService implements the generic create, list, get, update and
// delete operations over any record type.
type ResourceService struct {
	categories models.RecordType
	now        func() time.Time
}

// NewResourceService takes the category record type used to verify
// parentCategory references.
func NewResourceService(categories models.RecordType) *ResourceService {
	return &ResourceService{
		categories: categories,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ListResult is one page of records plus its pagination summary.
type ListResult struct {
	Docs       []bson.M
	Pagination *apifeatures.Pagination
}

func (s *ResourceService) Create(ctx context.Context, rt models.RecordType, body *utils.Body, pops []repository.Population) (bson.M, error) {
	if body == nil {
		body = utils.NewBody(nil)
	}
	if parent, ok := body.Get("parentCategory"); ok && s.categories != nil {
		id := repository.ObjectIDHex(parent)
		if _, err := s.categories.Store().FindByID(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NotFound("No category found with ID: %s", id)
			}
			return nil, err
		}
	}

	allowed := rt.AllowedFields()
	if unknown := utils.FindUnknown(body, allowed); len(unknown) > 0 {
		return nil, apperrors.BadRequest("Unknown own fields: %s", strings.Join(unknown, ", "))
	}

	doc := bson.M(utils.Pick(body, allowed).Map())
	if rt.Tag() == models.TagUser {
		if _, ok := doc["role"]; !ok {
			doc["role"] = models.RoleUser
		}
	}

	store := rt.Store()
	created, err := store.Create(ctx, doc)
	if err != nil {
		return nil, err
	}
	if len(pops) > 0 {
		if err := store.Populate(ctx, []bson.M{created}, pops); err != nil {
			return nil, err
		}
	}
	return store.Present(created)[0], nil
}

// List runs the query features over params, ANDed with pre.
func (s *ResourceService) List(ctx context.Context, rt models.RecordType, pre bson.M, params map[string]any, pops []repository.Population) (*ListResult, error) {
	features := apifeatures.New(params).
		KeywordSearch().
		Filter().
		Sort().
		LimitFields().
		And(pre)

	store := rt.Store()
	total, err := store.Count(ctx, features.FilterObj())
	if err != nil {
		return nil, err
	}
	query := features.Paginate(total).Build()

	docs, err := store.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(pops) > 0 && len(docs) > 0 {
		if err := store.Populate(ctx, docs, pops); err != nil {
			return nil, err
		}
	}
	return &ListResult{Docs: store.Present(docs...), Pagination: features.Pagination()}, nil
}

func (s *ResourceService) Get(ctx context.Context, rt models.RecordType, id string, pops []repository.Population) (bson.M, error) {
	store := rt.Store()
	doc, err := store.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, rt, id)
	}
	if len(pops) > 0 {
		if err := store.Populate(ctx, []bson.M{doc}, pops); err != nil {
			return nil, err
		}
	}
	return store.Present(doc)[0], nil
}

// Update applies the allowed fields of body. For users the password is
// never writable here and is dropped from body without an error.
func (s *ResourceService) Update(ctx context.Context, rt models.RecordType, id string, body *utils.Body) (bson.M, error) {
	if body == nil {
		body = utils.NewBody(nil)
	}
	allowed := rt.AllowedFields()
	if rt.Tag() == models.TagUser {
		allowed = utils.Without(allowed, "password")
		body.Delete("password")
	}
	if unknown := utils.FindUnknown(body, allowed); len(unknown) > 0 {
		return nil, apperrors.BadRequest("Unknown fields: %s", strings.Join(unknown, ", "))
	}

	changes := bson.M(utils.Pick(body, allowed).Map())
	if name, ok := changes["name"].(string); ok && name != "" {
		changes["slug"] = slug.Make(name)
	}

	store := rt.Store()
	doc, err := store.FindByIDAndUpdate(ctx, id, changes)
	if err != nil {
		return nil, notFound(err, rt, id)
	}
	// the explicit save fires the hooks the update skips
	saved, err := store.Save(ctx, doc)
	if err != nil {
		return nil, notFound(err, rt, id)
	}
	return store.Present(saved)[0], nil
}

func (s *ResourceService) Delete(ctx context.Context, rt models.RecordType, id string) error {
	store := rt.Store()
	doc, err := store.FindByID(ctx, id)
	if err != nil {
		return notFound(err, rt, id)
	}
	if err := store.Delete(ctx, doc); err != nil {
		return notFound(err, rt, id)
	}
	return nil
}

// ResetPassword stores a new password hash and stamps passwordChangedAt.
func (s *ResourceService) ResetPassword(ctx context.Context, rt models.RecordType, id, password string) (bson.M, error) {
	if password == "" {
		return nil, apperrors.BadRequest("Password is required.")
	}
	hash, err := models.HashPassword(password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	store := rt.Store()
	doc, err := store.FindByIDAndUpdate(ctx, id, bson.M{
		"password":          hash,
		"passwordChangedAt": s.now(),
	})
	if err != nil {
		return nil, notFound(err, rt, id)
	}
	return store.Present(doc)[0], nil
}

func notFound(err error, rt models.RecordType, id string) error {
	return notFoundLabel(err, strings.ToLower(rt.Name()), id)
}

func notFoundLabel(err error, label, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("No %s found with ID: %s", label, id)
	}
	return err
}
