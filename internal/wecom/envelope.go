package wecom

import (
	"encoding/xml"
	"fmt"

	"wecom-relay/internal/entities"
)

// callbackEnvelope is the outer XML body of an inbound callback; only the
// encrypted payload matters here.
type callbackEnvelope struct {
	XMLName xml.Name `xml:"xml"`
	Encrypt string   `xml:"Encrypt"`
}

// ParseEnvelope extracts the encrypted payload from the raw callback body.
func ParseEnvelope(body []byte) (string, error) {
	var env callbackEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("wecom: parse callback envelope: %w", err)
	}
	if env.Encrypt == "" {
		return "", fmt.Errorf("wecom: callback envelope has no Encrypt field")
	}
	return env.Encrypt, nil
}

type inboundMessage struct {
	XMLName      xml.Name `xml:"xml"`
	ToUserName   string   `xml:"ToUserName"`
	FromUserName string   `xml:"FromUserName"`
	CreateTime   int64    `xml:"CreateTime"`
	MsgType      string   `xml:"MsgType"`
	Content      string   `xml:"Content"`
	MsgID        string   `xml:"MsgId"`
	AgentID      string   `xml:"AgentID"`
}

// ParseMessage decodes the decrypted plaintext XML into a Message.
func ParseMessage(plain []byte) (entities.Message, error) {
	var m inboundMessage
	if err := xml.Unmarshal(plain, &m); err != nil {
		return entities.Message{}, fmt.Errorf("wecom: parse message: %w", err)
	}
	return entities.Message{
		ToUserName:   m.ToUserName,
		FromUserName: m.FromUserName,
		CreateTime:   m.CreateTime,
		MsgType:      m.MsgType,
		Content:      m.Content,
		MsgID:        m.MsgID,
		AgentID:      m.AgentID,
	}, nil
}

// cdata wraps a string so it marshals as a CDATA section, matching the
// platform's XML conventions.
type cdata struct {
	Value string `xml:",cdata"`
}

type replyMessage struct {
	XMLName      xml.Name `xml:"xml"`
	ToUserName   cdata    `xml:"ToUserName"`
	FromUserName cdata    `xml:"FromUserName"`
	CreateTime   int64    `xml:"CreateTime"`
	MsgType      cdata    `xml:"MsgType"`
	Content      cdata    `xml:"Content"`
}

type replyEnvelope struct {
	XMLName      xml.Name `xml:"xml"`
	Encrypt      cdata    `xml:"Encrypt"`
	MsgSignature cdata    `xml:"MsgSignature"`
	TimeStamp    int64    `xml:"TimeStamp"`
	Nonce        cdata    `xml:"Nonce"`
}

// ReplyEnvelope mirrors the outbound envelope for decoding; handler tests
// and the platform itself read these four fields.
type ReplyEnvelope struct {
	XMLName      xml.Name `xml:"xml"`
	Encrypt      string   `xml:"Encrypt"`
	MsgSignature string   `xml:"MsgSignature"`
	TimeStamp    int64    `xml:"TimeStamp"`
	Nonce        string   `xml:"Nonce"`
}

// ParseReplyEnvelope decodes an outbound passive-reply envelope.
func ParseReplyEnvelope(body []byte) (ReplyEnvelope, error) {
	var env ReplyEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return ReplyEnvelope{}, fmt.Errorf("wecom: parse reply envelope: %w", err)
	}
	return env, nil
}
