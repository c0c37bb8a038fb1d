package authorization

import (
	"context"
	"errors"

	authdomain "github.com/smallbiznis/realtyledger/internal/auth/domain"
)

// Service decides whether an authenticated principal may perform action on object.
type Service interface {
	Authorize(ctx context.Context, principal authdomain.Principal, object string, action string) error
}

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)
