package handler

import (
	"SocialSync/apps/connect/internal/dispatch"
	"SocialSync/apps/connect/internal/manager"
	"SocialSync/apps/connect/internal/repository"
	"SocialSync/apps/connect/internal/service"
	"SocialSync/apps/connect/internal/svc"
	"SocialSync/consts"
	"SocialSync/model"
	"SocialSync/pkg/logger"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var handlerLoggerOnce sync.Once

type fakeVerifier struct {
	verifyFn func(context.Context, string) (*svc.Identity, error)
}

func (f *fakeVerifier) Verify(ctx context.Context, token string) (*svc.Identity, error) {
	return f.verifyFn(ctx, token)
}

type gateFixture struct {
	server  *httptest.Server
	manager *manager.ConnectionManager
	store   *repository.MemoryStore
	handled chan string
}

// acceptValidPrefix 接受 "valid-<uid>" 形式的凭证
func acceptValidPrefix(_ context.Context, token string) (*svc.Identity, error) {
	if strings.HasPrefix(token, "valid-") {
		return &svc.Identity{UserID: strings.TrimPrefix(token, "valid-")}, nil
	}
	return nil, errors.New("bad signature")
}

func newGateFixture(t *testing.T) *gateFixture {
	return newGateFixtureWithVerifier(t, acceptValidPrefix)
}

func newGateFixtureWithVerifier(t *testing.T, verifyFn func(context.Context, string) (*svc.Identity, error)) *gateFixture {
	t.Helper()
	handlerLoggerOnce.Do(func() {
		logger.ReplaceGlobal(zap.NewNop())
		gin.SetMode(gin.TestMode)
	})

	verifier := &fakeVerifier{verifyFn: verifyFn}
	connectSvc := svc.NewConnectService(verifier, time.Second)

	store := repository.NewMemoryStore()
	store.PutUser(model.User{ID: "u1", Name: "Ann", Friends: []string{"u2"}})
	store.PutUser(model.User{ID: "u2", Name: "Bob"})

	fx := &gateFixture{
		manager: manager.NewConnectionManager(),
		store:   store,
		handled: make(chan string, 16),
	}

	d := dispatch.NewDispatcher(connectSvc.MarshalEnvelope, time.Second)
	d.SetRunner(func(ctx context.Context, task func(ctx context.Context), _ time.Duration) {
		task(ctx)
	})
	dispatch.RegisterRoutes(d,
		service.NewRelationshipService(store.Users(), store.FriendRequests(), nil),
		service.NewChatService(store.Users(), store.Chats(), store.Messages(), 50, 2),
	)
	d.Handle("echo", "", func(_ context.Context, conn dispatch.Conn, _ json.RawMessage) (any, error) {
		fx.handled <- conn.UserID()
		return nil, nil
	})

	h := NewWSHandler(fx.manager, connectSvc, d, RateLimit{})
	r := gin.New()
	r.GET("/ws", h.ServeWS)
	fx.server = httptest.NewServer(r)
	t.Cleanup(func() {
		fx.manager.Shutdown()
		fx.server.Close()
	})
	return fx
}

func (fx *gateFixture) dial(t *testing.T, query string, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(fx.server.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) svc.Envelope {
	t.Helper()
	var env svc.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestServeWS_RefusesWithCloseCodes(t *testing.T) {
	fx := newGateFixture(t)

	cases := []struct {
		name  string
		query string
		code  int
	}{
		{name: "missing", query: "", code: consts.CloseMissingCredential},
		{name: "invalid", query: "?token=forged", code: consts.CloseInvalidCredential},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conn := fx.dial(t, tc.query, nil)

			_, _, err := conn.ReadMessage()
			var closeErr *websocket.CloseError
			require.ErrorAs(t, err, &closeErr)
			assert.Equal(t, tc.code, closeErr.Code)
		})
	}

	select {
	case who := <-fx.handled:
		t.Fatalf("handler invoked for refused connection: %q", who)
	case <-time.After(100 * time.Millisecond):
	}
	assert.Zero(t, fx.manager.Count())
}

func TestServeWS_AuthenticatedSession(t *testing.T) {
	fx := newGateFixture(t)
	header := http.Header{}
	header.Set("Authorization", "Bearer valid-u1")
	conn := fx.dial(t, "", header)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": consts.EventHeartbeat}))
	assert.Equal(t, consts.EventHeartbeatAck, readEnvelope(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{oops")))
	errEnv := readEnvelope(t, conn)
	assert.Equal(t, consts.EventError, errEnv.Type)
	assert.Contains(t, string(errEnv.Data), "10001")

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "echo"}))
	select {
	case who := <-fx.handled:
		assert.Equal(t, "u1", who)
	case <-time.After(2 * time.Second):
		t.Fatal("echo handler not invoked")
	}

	require.NoError(t, conn.WriteJSON(map[string]string{"type": consts.EventGetFriendList}))
	env := readEnvelope(t, conn)
	assert.Equal(t, consts.EventFriendList, env.Type)
	assert.JSONEq(t, `[{"id":"u2","name":"Bob","email":""}]`, string(env.Data))

	assert.Equal(t, 1, fx.manager.UserConnections("u1"))
}

func TestServeWS_SlowVerificationDoesNotBlockOtherHandshakes(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var releaseOnce sync.Once
	t.Cleanup(func() { releaseOnce.Do(func() { close(release) }) })

	fx := newGateFixtureWithVerifier(t, func(ctx context.Context, token string) (*svc.Identity, error) {
		if token == "slow-u2" {
			close(started)
			select {
			case <-release:
				return &svc.Identity{UserID: "u2"}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return acceptValidPrefix(ctx, token)
	})

	type dialResult struct {
		conn *websocket.Conn
		err  error
	}
	slowDone := make(chan dialResult, 1)
	go func() {
		url := "ws" + strings.TrimPrefix(fx.server.URL, "http") + "/ws?token=slow-u2"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		slowDone <- dialResult{conn: conn, err: err}
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("slow verification never started")
	}

	conn := fx.dial(t, "?token=valid-u1", nil)
	require.NoError(t, conn.WriteJSON(map[string]string{"type": consts.EventGetFriendList}))
	env := readEnvelope(t, conn)
	assert.Equal(t, consts.EventFriendList, env.Type)
	assert.JSONEq(t, `[{"id":"u2","name":"Bob","email":""}]`, string(env.Data))

	select {
	case <-slowDone:
		t.Fatal("slow handshake finished before its verification was released")
	default:
	}

	releaseOnce.Do(func() { close(release) })
	select {
	case res := <-slowDone:
		require.NoError(t, res.err)
		_ = res.conn.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("slow handshake did not complete after release")
	}
}

func TestExtractCredential(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		url, auth, want string
	}{
		{url: "/ws?token=abc", want: "abc"},
		{url: "/ws?token=abc", auth: "Bearer other", want: "abc"},
		{url: "/ws", auth: "bearer xyz", want: "xyz"},
		{url: "/ws", auth: "Basic xyz", want: ""},
		{url: "/ws", want: ""},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, tc.url, nil)
		if tc.auth != "" {
			c.Request.Header.Set("Authorization", tc.auth)
		}
		assert.Equal(t, tc.want, extractCredential(c), tc.url+" "+tc.auth)
	}
}
