package entities

// Message is a decrypted inbound callback message from the platform.
// It lives only for the duration of the request that carried it.
type Message struct {
	ToUserName   string
	FromUserName string
	CreateTime   int64
	MsgType      string
	Content      string
	MsgID        string
	AgentID      string
}

// Turn roles used in conversation history and completion requests.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ConversationTurn is one role-tagged entry in a sender's history.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
