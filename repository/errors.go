package repository

import (
	"errors"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"

	apperrors "github.com/yashrajoria/storefront/common/errors"
)

// Server error codes that mean the request itself was malformed.
var badQueryCodes = []int{
	2,     // BadValue
	9,     // FailedToParse
	121,   // DocumentValidationFailure
	31249, // projection path collision
	31254, // mixed inclusion/exclusion projection
	51091, // invalid regex
}

// classify maps driver errors onto the application taxonomy. Unknown
// failures pass through and surface as internal.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.New(http.StatusBadRequest, "Duplicate field value entered", err)
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		for _, code := range badQueryCodes {
			if se.HasErrorCode(code) {
				return apperrors.New(http.StatusBadRequest, "Invalid query", err)
			}
		}
	}
	return err
}

func invalidID(id string) error {
	return apperrors.BadRequest("Invalid ID format: %s", id)
}
