package services

import (
	"context"
	stderrors "errors"
	"log/slog"

	"alumni-server/utils/errors"
)

// ConnectionService drives the connection workflow between two users.
//
// For an ordered pair (A requests B) the states are none, pending(A→B) and
// connected(A,B). SendRequest moves none to pending and AcceptRequest moves
// pending to connected. There is no way back.
type ConnectionService struct {
	store  UserStore
	logger *slog.Logger
}

func NewConnectionService(store UserStore, logger *slog.Logger) *ConnectionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnectionService{store: store, logger: logger}
}

// SendRequest records that requesterID wants to connect with recipientID.
func (s *ConnectionService) SendRequest(ctx context.Context, requesterID, recipientID string) error {
	if requesterID == "" || recipientID == "" {
		return errors.ErrValidation.WithMessage("user id is required")
	}
	if requesterID == recipientID {
		return errors.ErrValidation.WithMessage("Cannot connect to yourself")
	}

	// The requester must exist too, or the recipient would hold a dangling id.
	if _, err := s.store.FindByID(ctx, requesterID); err != nil {
		return s.mapStoreError(err, "find requester")
	}

	if err := s.store.AddPending(ctx, recipientID, requesterID); err != nil {
		return s.mapStoreError(err, "add pending request")
	}

	s.logger.InfoContext(ctx, "connection request sent",
		slog.String("requester_id", requesterID),
		slog.String("recipient_id", recipientID),
	)
	return nil
}

// AcceptRequest confirms the pending request from requesterID to recipientID.
func (s *ConnectionService) AcceptRequest(ctx context.Context, recipientID, requesterID string) error {
	if requesterID == "" || recipientID == "" {
		return errors.ErrValidation.WithMessage("user id is required")
	}
	if requesterID == recipientID {
		return errors.ErrValidation.WithMessage("Cannot accept a request from yourself")
	}

	if err := s.store.AcceptPending(ctx, recipientID, requesterID); err != nil {
		return s.mapStoreError(err, "accept request")
	}

	s.logger.InfoContext(ctx, "connection request accepted",
		slog.String("requester_id", requesterID),
		slog.String("recipient_id", recipientID),
	)
	return nil
}

func (s *ConnectionService) mapStoreError(err error, op string) error {
	switch {
	case stderrors.Is(err, ErrUserNotFound):
		return errors.ErrNotFound.WithMessage("User not found")
	case stderrors.Is(err, ErrAlreadyRequested):
		return errors.ErrDuplicateRequest
	case stderrors.Is(err, ErrNotPending):
		return errors.ErrNoSuchRequest
	default:
		return errors.StoreFailure(err, op)
	}
}
