package session

import (
	"context"
	"time"

	"marketplace-backend/internal/domains/imports/model"
	"marketplace-backend/internal/shared"

	"github.com/google/uuid"
)

// Store holds parse sessions between the parse and commit calls.
// Implementations: in-memory map (single process) and Redis (multi-process).
type Store interface {
	Create(ctx context.Context, s *model.ImportSession) error
	// Get lazily expires: a session past its TTL is removed on read.
	Get(ctx context.Context, id string) (*model.ImportSession, error)
	Delete(ctx context.Context, id string) error
	// BeginCommit transitions pending -> committing. Exactly one of two
	// concurrent callers wins; the loser gets ErrSessionCommitting.
	BeginCommit(ctx context.Context, id string) error
	// Sweep evicts expired sessions and reports how many were removed.
	Sweep(ctx context.Context) int
}

// New builds a pending session for a successful parse.
func New(merchantID, userID string, parseResult *model.ParseResult, zipData []byte, ttl time.Duration) *model.ImportSession {
	now := time.Now()
	return &model.ImportSession{
		ID:          uuid.New().String(),
		MerchantID:  merchantID,
		UserID:      userID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
		Status:      model.SessionStatusPending,
		ParseResult: parseResult,
		ZipData:     zipData,
	}
}

// ValidateAccess enforces ownership at access time: admins may touch any
// session, everyone else only their own.
func ValidateAccess(s *model.ImportSession, userID, role string) error {
	if role == shared.RoleAdmin {
		return nil
	}
	if s.UserID != userID {
		return model.ErrSessionForbidden
	}
	return nil
}
