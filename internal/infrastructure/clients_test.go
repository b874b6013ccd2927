package infrastructure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"wecom-relay/internal/entities"
)

type memTokens struct {
	vals map[string]string
	sets int
}

func (m *memTokens) Get(_ context.Context, name string) (string, error) {
	return m.vals[name], nil
}

func (m *memTokens) SetWithTTL(_ context.Context, name, token string, _ int) error {
	m.sets++
	m.vals[name] = token
	return nil
}

func TestOpenAIComplete(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  hi there  "}}]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("sk-test", srv.URL)
	turns := []entities.ConversationTurn{
		{Role: entities.RoleUser, Content: "hello"},
		{Role: entities.RoleSystem, Content: "be brief"},
	}
	reply, err := client.Complete(context.Background(), turns, "anon-tag")
	require.NoError(t, err)
	require.Equal(t, "hi there", reply, "reply is trimmed")

	require.Equal(t, "Bearer sk-test", gotAuth)
	require.Equal(t, "gpt-3.5-turbo", gotReq.Model)
	require.Equal(t, 2000, gotReq.MaxTokens)
	require.InDelta(t, 0.5, gotReq.Temperature, 1e-9)
	require.Equal(t, "anon-tag", gotReq.User)
	require.Equal(t, turns, gotReq.Messages)
}

func TestOpenAICompleteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewOpenAIClient("sk-test", srv.URL)
	_, err := client.Complete(context.Background(), nil, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestOpenAICompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("sk-test", srv.URL)
	_, err := client.Complete(context.Background(), nil, "")
	require.Error(t, err)
}

func TestWeComSendTextFetchesAndCachesToken(t *testing.T) {
	tokenCalls := 0
	var sentBody sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cgi-bin/gettoken":
			tokenCalls++
			require.Equal(t, "corp1", r.URL.Query().Get("corpid"))
			require.Equal(t, "s3cret", r.URL.Query().Get("corpsecret"))
			_, _ = w.Write([]byte(`{"errcode":0,"access_token":"tok-123","expires_in":7200}`))
		case "/cgi-bin/message/send":
			require.Equal(t, "tok-123", r.URL.Query().Get("access_token"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&sentBody))
			_, _ = w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	tokens := &memTokens{vals: map[string]string{}}
	client := NewWeComClient("corp1", "s3cret", "1000002", tokens)
	client.baseURL = srv.URL

	require.NoError(t, client.SendText(context.Background(), "zhangsan", "你好"))
	require.Equal(t, "zhangsan", sentBody.ToUser)
	require.Equal(t, "text", sentBody.MsgType)
	require.Equal(t, "1000002", sentBody.AgentID)
	require.Equal(t, "你好", sentBody.Text.Content)

	// Second send reuses the cached token.
	require.NoError(t, client.SendText(context.Background(), "zhangsan", "again"))
	require.Equal(t, 1, tokenCalls)
	require.Equal(t, 1, tokens.sets)
}

func TestWeComSendTextUpstreamErrCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/cgi-bin/gettoken" {
			_, _ = w.Write([]byte(`{"errcode":0,"access_token":"tok","expires_in":60}`))
			return
		}
		_, _ = w.Write([]byte(`{"errcode":81013,"errmsg":"user not found"}`))
	}))
	defer srv.Close()

	tokens := &memTokens{vals: map[string]string{}}
	client := NewWeComClient("corp1", "s3cret", "1000002", tokens)
	client.baseURL = srv.URL

	err := client.SendText(context.Background(), "nobody", "hi")
	require.Error(t, err)
	require.Contains(t, err.Error(), "81013")
}

func TestWeComTokenFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"errcode":40013,"errmsg":"invalid corpid"}`))
	}))
	defer srv.Close()

	tokens := &memTokens{vals: map[string]string{}}
	client := NewWeComClient("bad", "bad", "1000002", tokens)
	client.baseURL = srv.URL

	err := client.SendText(context.Background(), "zhangsan", "hi")
	require.Error(t, err)
	require.Contains(t, err.Error(), "40013")
}
