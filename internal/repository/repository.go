// Package repository declares the storage contracts the service layer
// depends on. internal/repository/sqldb implements all of them on top of
// database/sql, for both SQLite and PostgreSQL.
package repository

import (
	"context"

	"github.com/sakif/accessible-chennai/internal/model"
)

// UserRepository is the credential store.
//
// CreateUser fails with apperror.ErrDuplicateKey when the email or the
// external id is already taken. Lookups fail with apperror.ErrNotFound;
// GetUserByExternalID never matches the empty string.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
}

type AlertRepository interface {
	CreateAlert(ctx context.Context, alert *model.Alert) error
	ListAlerts(ctx context.Context) ([]model.Alert, error)
}

type CommunityRepository interface {
	CreateMessage(ctx context.Context, msg *model.CommunityMessage) error
	ListMessages(ctx context.Context) ([]model.CommunityMessage, error)
}

type RouteRepository interface {
	CreateRoute(ctx context.Context, route *model.Route) error
	ListRoutes(ctx context.Context) ([]model.Route, error)
}

// Resetter drops every table and recreates the schema.
type Resetter interface {
	Reset(ctx context.Context) error
}
