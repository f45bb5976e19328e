package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"chat-duo/auth"
	"chat-duo/domain/event"
	"chat-duo/httpapi"
	"chat-duo/moderation"
	"chat-duo/realtime"
	"chat-duo/repositories"
	"chat-duo/search"
	"chat-duo/services"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	server   *httptest.Server
	registry *realtime.Registry
	users    repositories.UserRepository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	req := require.New(t)
	gin.SetMode(gin.TestMode)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Reduced to 16 Mo for testing (avoid 20 Go of storage)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	req.NoError(err)

	moderator, err := moderation.NewModerator([]string{"classified"}, '*')
	req.NoError(err)

	conversations := repositories.NewConversationRepository(db, log)
	messages := repositories.NewMessageRepository(db, log)
	users := repositories.NewUserRepository(db)
	index := search.NewMessageIndex(writer, log)
	registry := realtime.NewRegistry()
	notifier := realtime.NewNotifier(registry, log)

	messaging := services.NewMessagingService(conversations, messages, users, notifier, index, &moderator, log)
	userService := services.NewUserService(users)
	server := httpapi.NewServer(messaging, userService, registry, nil, log, 8)
	ts := httptest.NewServer(server.Routes())

	t.Cleanup(func() {
		ts.Close()
		req.NoError(writer.Close())
		req.NoError(db.Close())
	})
	return fixture{server: ts, registry: registry, users: users}
}

func (f fixture) provision(t *testing.T, handle string) (id, token string) {
	t.Helper()
	req := require.New(t)
	hash, err := auth.HashPassword(handle + "-password")
	req.NoError(err)
	user, err := f.users.CreateUser(handle, hash)
	req.NoError(err)
	token, err = auth.GenerateToken(user.ID, handle, time.Hour)
	req.NoError(err)
	return user.ID, token
}

func (f fixture) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	req := require.New(t)
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		req.NoError(err)
		reader = bytes.NewReader(data)
	}
	request, err := http.NewRequest(method, f.server.URL+path, reader)
	req.NoError(err)
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	response, err := f.server.Client().Do(request)
	req.NoError(err)
	data, err := io.ReadAll(response.Body)
	req.NoError(err)
	req.NoError(response.Body.Close())
	return response, data
}

func Test_Scenario_Send_Fetch_Viewed(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	aliceID, aliceToken := f.provision(t, "alice")
	bobID, bobToken := f.provision(t, "bob")

	// Unauthenticated requests never reach a handler
	response, _ := f.do(t, http.MethodGet, "/contacts", "", nil)
	req.Equal(http.StatusUnauthorized, response.StatusCode)

	// First contact creates the conversation implicitly
	response, data := f.do(t, http.MethodPost, "/conversations/"+bobID+"/messages", aliceToken,
		map[string]string{"text": "hello bob"})
	req.Equal(http.StatusCreated, response.StatusCode, string(data))
	var sent event.MessageBody
	req.NoError(json.Unmarshal(data, &sent))
	req.Equal(aliceID, sent.SenderID)
	req.Equal(bobID, sent.ReceiverID)
	req.Equal("hello bob", sent.Text)
	req.False(sent.Viewed)

	// Both orderings of the pair resolve to the same thread
	for _, view := range []struct{ token, peer string }{
		{aliceToken, bobID},
		{bobToken, aliceID},
	} {
		response, data = f.do(t, http.MethodGet, "/conversations/"+view.peer, view.token, nil)
		req.Equal(http.StatusOK, response.StatusCode)
		var thread []event.MessageBody
		req.NoError(json.Unmarshal(data, &thread))
		req.Len(thread, 1)
		req.Equal(sent.ID, thread[0].ID)
	}

	// Viewed flips once and stays flipped
	for i := 0; i < 2; i++ {
		response, data = f.do(t, http.MethodPost, "/messages/"+sent.ID.String()+"/viewed", bobToken, nil)
		req.Equal(http.StatusOK, response.StatusCode, string(data))
		var viewed event.MessageBody
		req.NoError(json.Unmarshal(data, &viewed))
		req.True(viewed.Viewed)
	}

	// Exchanging a message makes the pair contacts of each other
	response, data = f.do(t, http.MethodGet, "/contacts", aliceToken, nil)
	req.Equal(http.StatusOK, response.StatusCode)
	var contacts []map[string]any
	req.NoError(json.Unmarshal(data, &contacts))
	req.Len(contacts, 1)
	req.Equal("bob", contacts[0]["handle"])

	// Handles resolve to summaries without secrets
	response, data = f.do(t, http.MethodGet, "/users/alice", bobToken, nil)
	req.Equal(http.StatusOK, response.StatusCode)
	req.NotContains(string(data), "password")
}

func Test_Scenario_Rejected_Requests(t *testing.T) {
	f := newFixture(t)
	_, aliceToken := f.provision(t, "alice")
	bobID, _ := f.provision(t, "bob")

	tests := []struct {
		description string
		method      string
		path        string
		body        any
		want        int
	}{
		{
			"Should reject a payload with both text and file",
			http.MethodPost, "/conversations/" + bobID + "/messages",
			map[string]string{"text": "hi", "fileRef": "blob-1", "fileName": "a.jpg"},
			http.StatusBadRequest,
		},
		{
			"Should reject an empty payload",
			http.MethodPost, "/conversations/" + bobID + "/messages",
			map[string]string{},
			http.StatusBadRequest,
		},
		{
			"Should reject an unknown mime type",
			http.MethodPost, "/conversations/" + bobID + "/messages",
			map[string]string{"fileRef": "blob-1", "fileName": "a.xyz", "mimeType": "not/a-real-type"},
			http.StatusBadRequest,
		},
		{
			"Should reject sending to an unknown user",
			http.MethodPost, "/conversations/nobody/messages",
			map[string]string{"text": "hi"},
			http.StatusBadRequest,
		},
		{
			"Should reject a malformed message id",
			http.MethodPost, "/messages/not-a-uuid/viewed",
			nil,
			http.StatusBadRequest,
		},
		{
			"Should return not found for an unknown message id",
			http.MethodPost, "/messages/00000000-0000-0000-0000-000000000001/viewed",
			nil,
			http.StatusNotFound,
		},
		{
			"Should reject a search without terms",
			http.MethodGet, "/messages/search",
			nil,
			http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			response, data := f.do(t, tt.method, tt.path, aliceToken, tt.body)
			require.Equal(t, tt.want, response.StatusCode, string(data))
		})
	}
}

func Test_Scenario_Moderation_And_Search(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	_, aliceToken := f.provision(t, "alice")
	bobID, _ := f.provision(t, "bob")

	response, data := f.do(t, http.MethodPost, "/conversations/"+bobID+"/messages", aliceToken,
		map[string]string{"text": "this is classified material"})
	req.Equal(http.StatusCreated, response.StatusCode, string(data))
	var sent event.MessageBody
	req.NoError(json.Unmarshal(data, &sent))
	req.Equal("this is ********** material", sent.Text)

	response, data = f.do(t, http.MethodGet, "/messages/search?q=material", aliceToken, nil)
	req.Equal(http.StatusOK, response.StatusCode)
	var results []event.MessageBody
	req.NoError(json.Unmarshal(data, &results))
	req.Len(results, 1)
	req.Equal(sent.ID, results[0].ID)
}

func Test_Scenario_Push_Delivery(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	_, aliceToken := f.provision(t, "alice")
	bobID, bobToken := f.provision(t, "bob")

	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	header := http.Header{"Authorization": []string{"Bearer " + bobToken}}
	conn, response, err := websocket.DefaultDialer.Dial(wsURL, header)
	req.NoError(err)
	req.Equal(http.StatusSwitchingProtocols, response.StatusCode)
	t.Cleanup(func() { _ = conn.Close() })

	// Presence registration happens after the handshake completes
	req.Eventually(func() bool {
		_, ok := f.registry.Lookup(bobID)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	httpResponse, data := f.do(t, http.MethodPost, "/conversations/"+bobID+"/messages", aliceToken,
		map[string]string{"text": "are you there"})
	req.Equal(http.StatusCreated, httpResponse.StatusCode, string(data))

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, frame, err := conn.ReadMessage()
	req.NoError(err)
	var envelope event.Envelope
	req.NoError(json.Unmarshal(frame, &envelope))
	req.Equal(event.NewMessage, envelope.Kind)
	req.Equal("are you there", envelope.Message.Text)
	req.Equal(bobID, envelope.Message.ReceiverID)
}

// Concurrent first-contact sends in both directions must converge on one
// conversation carrying every message.
func Test_Scenario_Concurrent_First_Contact(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	aliceID, aliceToken := f.provision(t, "alice")
	bobID, bobToken := f.provision(t, "bob")

	const senders = 8
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			token, peer := aliceToken, bobID
			if n%2 == 1 {
				token, peer = bobToken, aliceID
			}
			response, data := f.do(t, http.MethodPost, "/conversations/"+peer+"/messages", token,
				map[string]string{"text": fmt.Sprintf("message %d", n)})
			require.Equal(t, http.StatusCreated, response.StatusCode, string(data))
		}(i)
	}
	wg.Wait()

	response, data := f.do(t, http.MethodGet, "/conversations/"+bobID, aliceToken, nil)
	req.Equal(http.StatusOK, response.StatusCode)
	var thread []event.MessageBody
	req.NoError(json.Unmarshal(data, &thread))
	req.Len(thread, senders)
}

func Test_Scenario_Health_Probe_Is_Open(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	response, data := f.do(t, http.MethodGet, "/healthz", "", nil)
	req.Equal(http.StatusOK, response.StatusCode)
	req.Contains(string(data), fmt.Sprintf("%q", "ok"))
}
