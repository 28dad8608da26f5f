package services

import (
	"context"
	"errors"

	"alumni-server/models"
)

// Store-level sentinels. Services translate them into API errors.
var (
	ErrUserNotFound     = errors.New("store: user not found")
	ErrEmailTaken       = errors.New("store: email already registered")
	ErrAlreadyRequested = errors.New("store: requester already pending or connected")
	ErrNotPending       = errors.New("store: no pending request from requester")
)

// UserStore is the persistence boundary for user records.
//
// AddPending and AcceptPending are conditional: they re-check the relationship
// state as part of the write, so concurrent callers cannot both succeed.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindByIDs returns the users that exist among ids, in the order of ids.
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
	// SearchByName matches a literal, case-insensitive substring of the name.
	SearchByName(ctx context.Context, query string) ([]models.User, error)
	List(ctx context.Context) ([]models.User, error)

	// AddPending adds requesterID to recipientID's pending set.
	// Returns ErrUserNotFound or ErrAlreadyRequested.
	AddPending(ctx context.Context, recipientID, requesterID string) error
	// AcceptPending moves requesterID from recipientID's pending set into its
	// connections and adds recipientID to requesterID's connections, clearing
	// any crossed request from recipientID still pending on requesterID.
	// Returns ErrUserNotFound or ErrNotPending.
	AcceptPending(ctx context.Context, recipientID, requesterID string) error

	Ping(ctx context.Context) error
}
