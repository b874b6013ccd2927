package usecases

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log"

	"wecom-relay/internal/entities"
	"wecom-relay/internal/interfaces"
	"wecom-relay/internal/wecom"
)

// MessageContextLength bounds how many stored turns accompany a completion
// request.
const MessageContextLength = 20

const systemInstruction = "你叫NED，你是一个人工智能助手，尽量简要回复用户的问题"

// RelayService runs the verified-callback pipeline: decrypt, quota gate,
// context assembly, completion and delivery.
type RelayService struct {
	ledger     *QuotaLedger
	history    interfaces.HistoryStore
	completion interfaces.CompletionClient
	push       interfaces.PushClient

	callbackToken  string
	encodingAESKey string
}

func NewRelayService(ledger *QuotaLedger, history interfaces.HistoryStore, completion interfaces.CompletionClient, push interfaces.PushClient, callbackToken, encodingAESKey string) *RelayService {
	return &RelayService{
		ledger:         ledger,
		history:        history,
		completion:     completion,
		push:           push,
		callbackToken:  callbackToken,
		encodingAESKey: encodingAESKey,
	}
}

// ProcessCallback handles one inbound callback. The returned bytes are nil
// for an empty acknowledgment (reply delivered out-of-band, or a silently
// dropped unauthenticated callback) and a passive-reply envelope when the
// sender's quota is exhausted.
func (s *RelayService) ProcessCallback(ctx context.Context, timestamp, nonce, signature string, body []byte) ([]byte, error) {
	encrypted, err := wecom.ParseEnvelope(body)
	if err != nil {
		return nil, err
	}

	// Signature first; decryption is never attempted for an unverified
	// envelope.
	if !wecom.VerifySignature(s.callbackToken, timestamp, nonce, encrypted, signature) {
		log.Printf("callback signature mismatch, dropping")
		return nil, nil
	}

	plain, _, err := wecom.Decrypt(s.encodingAESKey, encrypted)
	if err != nil {
		return nil, err
	}
	msg, err := wecom.ParseMessage(plain)
	if err != nil {
		return nil, err
	}

	decision, err := s.ledger.CheckAndReserve(ctx, msg.FromUserName)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		// Addressing swaps relative to the inbound message: the reply goes
		// to the sender, from the platform account.
		return wecom.NewPassiveReply(s.callbackToken, s.encodingAESKey,
			msg.FromUserName, msg.ToUserName, decision.Message, msg.AgentID)
	}

	text, err := s.generateReply(ctx, msg.FromUserName, msg.Content)
	if err != nil {
		return nil, err
	}
	if err := s.push.SendText(ctx, msg.FromUserName, text); err != nil {
		return nil, fmt.Errorf("push reply: %w", err)
	}
	return nil, nil
}

// generateReply appends the user turn, assembles the bounded context window
// and asks the completion backend for a reply, which is itself recorded as
// the next assistant turn.
func (s *RelayService) generateReply(ctx context.Context, sender, content string) (string, error) {
	userTurn := entities.ConversationTurn{Role: entities.RoleUser, Content: content}
	if err := s.history.Push(ctx, sender, userTurn); err != nil {
		return "", fmt.Errorf("push user turn: %w", err)
	}

	turns, err := s.AppendedContext(ctx, sender)
	if err != nil {
		return "", err
	}

	text, err := s.completion.Complete(ctx, turns, userTag(sender))
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}

	if err := s.history.Push(ctx, sender, entities.ConversationTurn{Role: entities.RoleAssistant, Content: text}); err != nil {
		return "", fmt.Errorf("push assistant turn: %w", err)
	}
	return text, nil
}

// AppendedContext returns the sender's recent turns in chronological order
// with the fixed system instruction appended, ready for a completion call.
// Trimming the backing store is advisory clean-up; a trim failure is logged
// and does not fail the request.
func (s *RelayService) AppendedContext(ctx context.Context, sender string) ([]entities.ConversationTurn, error) {
	recent, err := s.history.Recent(ctx, sender, MessageContextLength)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	if err := s.history.Trim(ctx, sender, MessageContextLength); err != nil {
		log.Printf("trim history for %s: %v", sender, err)
	}

	// Recent is most-recent-first; the prompt wants oldest first.
	turns := make([]entities.ConversationTurn, 0, len(recent)+1)
	for i := len(recent) - 1; i >= 0; i-- {
		turns = append(turns, recent[i])
	}
	turns = append(turns, entities.ConversationTurn{Role: entities.RoleSystem, Content: systemInstruction})
	return turns, nil
}

// userTag anonymizes the sender id for the completion backend.
func userTag(sender string) string {
	sum := md5.Sum([]byte(sender))
	return hex.EncodeToString(sum[:])
}
