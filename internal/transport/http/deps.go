package http

import (
	"github.com/marketplace-auth/internal/application/otp"
	jwtinfra "github.com/marketplace-auth/internal/infrastructure/jwt"
	"github.com/marketplace-auth/internal/infrastructure/sqlstore"
)

// StateStore is the expiring key-value store behind OTP state.
// Implemented by dynamo.StateStore and memkv.Store.
type StateStore = otp.Store

// Mailer is the templated mail sender. Implemented by smtp.Mailer.
type Mailer = otp.Mailer

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	Users       *sqlstore.UserRepo
	Sellers     *sqlstore.SellerRepo
	State       StateStore
	Mailer      Mailer
	JWTProvider *jwtinfra.Provider
}
