package wecom

import (
	"crypto/rand"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// NewPassiveReply builds the encrypted envelope returned synchronously in
// the HTTP response. The caller supplies the already-swapped addressing
// (toUser is the inbound sender) and the reply text; the envelope gets a
// fresh timestamp, fresh random material, a fresh nonce and a signature
// over the new ciphertext.
func NewPassiveReply(token, encodingAESKey, toUser, fromUser, content, receiveID string) ([]byte, error) {
	now := time.Now().Unix()
	plain, err := xml.Marshal(replyMessage{
		ToUserName:   cdata{toUser},
		FromUserName: cdata{fromUser},
		CreateTime:   now,
		MsgType:      cdata{"text"},
		Content:      cdata{content},
	})
	if err != nil {
		return nil, fmt.Errorf("wecom: marshal reply message: %w", err)
	}

	random := make([]byte, randomLen)
	if _, err := rand.Read(random); err != nil {
		return nil, fmt.Errorf("wecom: random material: %w", err)
	}

	encrypted, err := Encrypt(encodingAESKey, plain, receiveID, random)
	if err != nil {
		return nil, err
	}

	nonce := uuid.NewString()
	sig := Signature(token, strconv.FormatInt(now, 10), nonce, encrypted)

	out, err := xml.Marshal(replyEnvelope{
		Encrypt:      cdata{encrypted},
		MsgSignature: cdata{sig},
		TimeStamp:    now,
		Nonce:        cdata{nonce},
	})
	if err != nil {
		return nil, fmt.Errorf("wecom: marshal reply envelope: %w", err)
	}
	return out, nil
}
