package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/marketplace-auth/internal/domain"
	"github.com/marketplace-auth/internal/pkg/validate"
)

// decode reads a JSON body into dst and runs its validate tags.
func decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.Validation("Invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		var ve *validate.Errors
		if !errors.As(err, &ve) {
			return err
		}
		if ve.OnlyTag("email") {
			return domain.Validation("Invalid email format", ve.Fields)
		}
		if ve.OnlyTag("max") {
			return domain.Validation("Password must be at most 72 bytes", ve.Fields)
		}
		return domain.Validation("Missing required fields", ve.Fields)
	}
	return nil
}
