package usecases

import (
	"context"
	"sync"

	"wecom-relay/internal/entities"
)

type mockMemberships struct {
	levels map[string]string
	stored []entities.Membership
	err    error
}

func (m *mockMemberships) GetLevel(_ context.Context, userID string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.levels[userID], nil
}

func (m *mockMemberships) Set(_ context.Context, rec entities.Membership) error {
	if m.err != nil {
		return m.err
	}
	m.stored = append(m.stored, rec)
	return nil
}

// mockQuota mirrors the atomic increment-then-compare semantics of the real
// counter store.
type mockQuota struct {
	mu        sync.Mutex
	counts    map[string]int
	incrCalls int
	readCalls int
	err       error
}

func newMockQuota() *mockQuota {
	return &mockQuota{counts: map[string]int{}}
}

func quotaKey(userID, period string) string {
	return userID + "|" + period
}

func (m *mockQuota) IncrementIfBelow(_ context.Context, userID, period string, limit int) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incrCalls++
	if m.err != nil {
		return 0, false, m.err
	}
	k := quotaKey(userID, period)
	if m.counts[k] >= limit {
		return 0, false, nil
	}
	m.counts[k]++
	return m.counts[k], true, nil
}

func (m *mockQuota) Count(_ context.Context, userID, period string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readCalls++
	return m.counts[quotaKey(userID, period)], nil
}

// mockHistory stores turns most recent first, like the backing list store.
type mockHistory struct {
	mu        sync.Mutex
	turns     map[string][]entities.ConversationTurn
	trimCalls int
	pushErr   error
	recentErr error
	trimErr   error
}

func newMockHistory() *mockHistory {
	return &mockHistory{turns: map[string][]entities.ConversationTurn{}}
}

func (m *mockHistory) Push(_ context.Context, userID string, turn entities.ConversationTurn) error {
	if m.pushErr != nil {
		return m.pushErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns[userID] = append([]entities.ConversationTurn{turn}, m.turns[userID]...)
	return nil
}

func (m *mockHistory) Recent(_ context.Context, userID string, limit int) ([]entities.ConversationTurn, error) {
	if m.recentErr != nil {
		return nil, m.recentErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.turns[userID]
	if len(stored) > limit {
		stored = stored[:limit]
	}
	out := make([]entities.ConversationTurn, len(stored))
	copy(out, stored)
	return out, nil
}

func (m *mockHistory) Trim(_ context.Context, userID string, keep int) error {
	if m.trimErr != nil {
		return m.trimErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trimCalls++
	if len(m.turns[userID]) > keep {
		m.turns[userID] = m.turns[userID][:keep]
	}
	return nil
}

type mockCompletion struct {
	reply    string
	err      error
	gotTurns []entities.ConversationTurn
	gotTag   string
	calls    int
}

func (m *mockCompletion) Complete(_ context.Context, turns []entities.ConversationTurn, userTag string) (string, error) {
	m.calls++
	m.gotTurns = turns
	m.gotTag = userTag
	return m.reply, m.err
}

type sentMessage struct {
	To      string
	Content string
}

type mockPush struct {
	sent []sentMessage
	err  error
}

func (m *mockPush) SendText(_ context.Context, toUser, content string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMessage{To: toUser, Content: content})
	return nil
}
