package interfaces

import (
	"context"

	"wecom-relay/internal/entities"
)

// CompletionClient generates a reply from an ordered list of turns.
type CompletionClient interface {
	Complete(ctx context.Context, turns []entities.ConversationTurn, userTag string) (string, error)
}

// PushClient delivers a text message to a user over the platform's REST API.
type PushClient interface {
	SendText(ctx context.Context, toUser, content string) error
}

// MembershipStore reads and writes sender tier assignments.
type MembershipStore interface {
	GetLevel(ctx context.Context, userID string) (string, error)
	Set(ctx context.Context, m entities.Membership) error
}

// QuotaStore tracks per-period send counters. IncrementIfBelow performs a
// single atomic increment-then-compare: it increments the counter for
// (userID, periodLabel) only while it is below limit, reporting whether the
// increment happened and the resulting count.
type QuotaStore interface {
	IncrementIfBelow(ctx context.Context, userID, periodLabel string, limit int) (count int, allowed bool, err error)
	Count(ctx context.Context, userID, periodLabel string) (int, error)
}

// HistoryStore keeps the bounded per-sender conversation history,
// most recent first.
type HistoryStore interface {
	Push(ctx context.Context, userID string, turn entities.ConversationTurn) error
	Recent(ctx context.Context, userID string, limit int) ([]entities.ConversationTurn, error)
	Trim(ctx context.Context, userID string, keep int) error
}

// TokenStore caches the platform access token with its own TTL.
type TokenStore interface {
	Get(ctx context.Context, name string) (string, error)
	SetWithTTL(ctx context.Context, name, token string, ttlSeconds int) error
}
