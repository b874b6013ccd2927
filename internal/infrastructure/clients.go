package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wecom-relay/internal/entities"
	"wecom-relay/internal/interfaces"
)

// OpenAIClient calls an OpenAI-compatible chat-completions endpoint.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewOpenAIClient(apiKey, baseURL string) interfaces.CompletionClient {
	return &OpenAIClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type chatRequest struct {
	Model       string                      `json:"model"`
	Messages    []entities.ConversationTurn `json:"messages"`
	MaxTokens   int                         `json:"max_tokens"`
	Temperature float64                     `json:"temperature"`
	User        string                      `json:"user,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message entities.ConversationTurn `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) Complete(ctx context.Context, turns []entities.ConversationTurn, userTag string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       "gpt-3.5-turbo",
		Messages:    turns,
		MaxTokens:   2000,
		Temperature: 0.5,
		User:        userTag,
	})
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("openai: unexpected status %d: %s", resp.StatusCode, string(buf))
	}

	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("openai: decode response: %w", err)
	}
	if len(payload.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices in response")
	}
	return strings.TrimSpace(payload.Choices[0].Message.Content), nil
}

const accessTokenKey = "access_token"

// WeComClient pushes text messages to users through the platform REST API,
// fetching and caching the bearer access token in the shared token store.
type WeComClient struct {
	corpID     string
	corpSecret string
	agentID    string
	baseURL    string
	tokens     interfaces.TokenStore
	httpClient *http.Client
}

func NewWeComClient(corpID, corpSecret, agentID string, tokens interfaces.TokenStore) *WeComClient {
	return &WeComClient{
		corpID:     corpID,
		corpSecret: corpSecret,
		agentID:    agentID,
		baseURL:    "https://qyapi.weixin.qq.com",
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type tokenResponse struct {
	ErrCode     int    `json:"errcode"`
	ErrMsg      string `json:"errmsg"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns the cached token or fetches a fresh one, caching it
// for the upstream's own TTL.
func (w *WeComClient) accessToken(ctx context.Context) (string, error) {
	cached, err := w.tokens.Get(ctx, accessTokenKey)
	if err != nil {
		return "", fmt.Errorf("wecom api: read token cache: %w", err)
	}
	if cached != "" {
		return cached, nil
	}

	u := fmt.Sprintf("%s/cgi-bin/gettoken?corpid=%s&corpsecret=%s",
		w.baseURL, url.QueryEscape(w.corpID), url.QueryEscape(w.corpSecret))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("wecom api: create token request: %w", err)
	}
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("wecom api: fetch token: %w", err)
	}
	defer resp.Body.Close()

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("wecom api: decode token response: %w", err)
	}
	if payload.ErrCode != 0 || payload.AccessToken == "" {
		return "", fmt.Errorf("wecom api: gettoken errcode %d: %s", payload.ErrCode, payload.ErrMsg)
	}

	if err := w.tokens.SetWithTTL(ctx, accessTokenKey, payload.AccessToken, payload.ExpiresIn); err != nil {
		return "", fmt.Errorf("wecom api: cache token: %w", err)
	}
	return payload.AccessToken, nil
}

type sendRequest struct {
	ToUser  string `json:"touser"`
	MsgType string `json:"msgtype"`
	AgentID string `json:"agentid"`
	Text    struct {
		Content string `json:"content"`
	} `json:"text"`
}

type sendResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// SendText delivers a text message to the given user.
func (w *WeComClient) SendText(ctx context.Context, toUser, content string) error {
	token, err := w.accessToken(ctx)
	if err != nil {
		return err
	}

	msg := sendRequest{ToUser: toUser, MsgType: "text", AgentID: w.agentID}
	msg.Text.Content = content
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("wecom api: marshal send request: %w", err)
	}

	u := fmt.Sprintf("%s/cgi-bin/message/send?access_token=%s", w.baseURL, url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("wecom api: create send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("wecom api: send message: %w", err)
	}
	defer resp.Body.Close()

	var payload sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("wecom api: decode send response: %w", err)
	}
	if payload.ErrCode != 0 {
		return fmt.Errorf("wecom api: send errcode %d: %s", payload.ErrCode, payload.ErrMsg)
	}
	return nil
}
