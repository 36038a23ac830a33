package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sales-crm-workers/internal/common/config"
	apperrors "sales-crm-workers/internal/common/errors"
	commonhttp "sales-crm-workers/internal/common/http"
	"sales-crm-workers/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *commonhttp.Client {
	return commonhttp.NewClient(2*time.Second, 0, 1)
}

type recorded struct {
	mu     sync.Mutex
	path   string
	auth   string
	body   map[string]interface{}
	status int
	reply  string
}

func (r *recorded) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.path = req.URL.Path
		r.auth = req.Header.Get("Authorization")
		r.body = map[string]interface{}{}
		_ = json.NewDecoder(req.Body).Decode(&r.body)
		if r.status != 0 {
			w.WriteHeader(r.status)
		}
		_, _ = w.Write([]byte(r.reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// ==========================
// Bridge and Cloud API
// ==========================

func TestBridge_SendText(t *testing.T) {
	rec := &recorded{reply: `{"success":true}`}
	srv := rec.server(t)

	receipt, err := NewBridge(srv.URL+"/", testClient()).Send(context.Background(), Message{To: "+91 98200 12345", Body: "Namaste"})

	require.NoError(t, err)
	assert.Equal(t, "bridge", receipt.Transport)
	assert.Equal(t, "/send", rec.path)
	assert.Equal(t, "+91 98200 12345", rec.body["to"])
	assert.Equal(t, "Namaste", rec.body["message"])
	assert.NotContains(t, rec.body, "mediaUrl")
}

func TestBridge_SendMedia(t *testing.T) {
	rec := &recorded{reply: `{"success":true}`}
	srv := rec.server(t)

	_, err := NewBridge(srv.URL, testClient()).Send(context.Background(),
		Message{To: "919820012345", Body: "Catalogue", MediaURL: "https://cdn/catalogue.pdf"})

	require.NoError(t, err)
	assert.Equal(t, "https://cdn/catalogue.pdf", rec.body["mediaUrl"])
	assert.Equal(t, "Catalogue", rec.body["caption"])
}

func TestBridge_NotConnected(t *testing.T) {
	rec := &recorded{status: http.StatusServiceUnavailable, reply: `{"error":"WhatsApp client is not connected"}`}
	srv := rec.server(t)

	_, err := NewBridge(srv.URL, testClient()).Send(context.Background(), Message{To: "919820012345", Body: "hi"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "not connected")
}

func TestCloudAPI_SendText(t *testing.T) {
	rec := &recorded{reply: `{"messages":[{"id":"wamid.HBgM"}]}`}
	srv := rec.server(t)

	c := NewCloudAPI(srv.URL, "v21.0", "10987", "tok", testClient())
	receipt, err := c.Send(context.Background(), Message{To: "+91 98200-12345", Body: "Quotation attached"})

	require.NoError(t, err)
	assert.Equal(t, "cloud_api", receipt.Transport)
	assert.Equal(t, "wamid.HBgM", receipt.MessageID)
	assert.Equal(t, "/v21.0/10987/messages", rec.path)
	assert.Equal(t, "Bearer tok", rec.auth)
	assert.Equal(t, "whatsapp", rec.body["messaging_product"])
	assert.Equal(t, "919820012345", rec.body["to"])
	assert.Equal(t, "text", rec.body["type"])
	assert.Equal(t, map[string]interface{}{"body": "Quotation attached"}, rec.body["text"])
}

func TestCloudAPI_SendImage(t *testing.T) {
	rec := &recorded{reply: `{}`}
	srv := rec.server(t)

	_, err := NewCloudAPI(srv.URL, "v21.0", "10987", "tok", testClient()).Send(context.Background(),
		Message{To: "919820012345", Body: "Red wirecut", MediaURL: "https://cdn/red.jpg"})

	require.NoError(t, err)
	assert.Equal(t, "image", rec.body["type"])
	assert.Equal(t, map[string]interface{}{"link": "https://cdn/red.jpg", "caption": "Red wirecut"}, rec.body["image"])
}

func TestSend_RejectsEmpty(t *testing.T) {
	_, err := NewBridge("http://unused", testClient()).Send(context.Background(), Message{To: "919820012345"})
	assert.True(t, errors.Is(err, ErrEmptyMessage))

	_, err = NewCloudAPI("", "v21.0", "1", "t", testClient()).Send(context.Background(), Message{Body: "hi"})
	assert.Error(t, err)
}

// ==========================
// Failover
// ==========================

type fakeSender struct {
	name  string
	err   error
	calls int32
}

func (f *fakeSender) Name() string { return f.name }

func (f *fakeSender) Send(context.Context, Message) (Receipt, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return Receipt{}, f.err
	}
	return Receipt{Transport: f.name}, nil
}

func TestFailover(t *testing.T) {
	msg := Message{To: "919820012345", Body: "hi"}

	t.Run("first success wins", func(t *testing.T) {
		bridge := &fakeSender{name: "bridge"}
		cloud := &fakeSender{name: "cloud_api"}

		receipt, err := NewFailover(logger.NewTestLogger(t), bridge, cloud).Send(context.Background(), msg)

		require.NoError(t, err)
		assert.Equal(t, "bridge", receipt.Transport)
		assert.Zero(t, atomic.LoadInt32(&cloud.calls))
	})

	t.Run("falls back once", func(t *testing.T) {
		bridge := &fakeSender{name: "bridge", err: errors.New("connection refused")}
		cloud := &fakeSender{name: "cloud_api"}

		receipt, err := NewFailover(logger.NewTestLogger(t), bridge, cloud).Send(context.Background(), msg)

		require.NoError(t, err)
		assert.Equal(t, "cloud_api", receipt.Transport)
		assert.Equal(t, int32(1), atomic.LoadInt32(&bridge.calls))
	})

	t.Run("all fail", func(t *testing.T) {
		bridge := &fakeSender{name: "bridge", err: errors.New("connection refused")}
		cloud := &fakeSender{name: "cloud_api", err: errors.New("status 401")}

		_, err := NewFailover(logger.NewTestLogger(t), bridge, cloud).Send(context.Background(), msg)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "bridge: connection refused")
		assert.Contains(t, err.Error(), "cloud_api: status 401")
	})

	t.Run("nothing configured", func(t *testing.T) {
		_, err := NewFailover(logger.NewTestLogger(t)).Send(context.Background(), msg)
		assert.Error(t, err)
	})
}

func TestFromConfig(t *testing.T) {
	f := FromConfig(config.WhatsAppConfig{BridgeURL: "http://localhost:3002", Timeout: 5000}, logger.NewNoOpLogger())
	require.Len(t, f.senders, 1)
	assert.Equal(t, "bridge", f.senders[0].Name())

	f = FromConfig(config.WhatsAppConfig{
		BridgeURL:     "http://localhost:3002",
		APIVersion:    "v21.0",
		PhoneNumberID: "10987",
		AccessToken:   "tok",
	}, logger.NewNoOpLogger())
	require.Len(t, f.senders, 2)
	assert.Equal(t, "cloud_api", f.senders[1].Name())
}

// ==========================
// Dispatcher
// ==========================

func TestDispatcher_SendsAfterDelay(t *testing.T) {
	sender := &fakeSender{name: "bridge"}
	d := NewDispatcher(sender, logger.NewTestLogger(t))

	start := time.Now()
	receipt, err := d.Dispatch(context.Background(), Draft{LeadID: "lead-1", Message: Message{To: "91", Body: "hi"}, Delay: 30 * time.Millisecond})

	require.NoError(t, err)
	assert.Equal(t, "bridge", receipt.Transport)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.False(t, d.Pending("lead-1"))
}

func TestDispatcher_Supersede(t *testing.T) {
	sender := &fakeSender{name: "bridge"}
	d := NewDispatcher(sender, logger.NewTestLogger(t))

	done := make(chan error, 1)
	go func() {
		_, err := d.Dispatch(context.Background(), Draft{LeadID: "lead-1", Message: Message{To: "91", Body: "stale"}, Delay: 5 * time.Second})
		done <- err
	}()

	require.Eventually(t, func() bool { return d.Pending("lead-1") }, time.Second, 5*time.Millisecond)
	assert.True(t, d.Supersede("lead-1"))

	select {
	case err := <-done:
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDraftSuperseded))
	case <-time.After(time.Second):
		t.Fatal("dispatch did not return after supersede")
	}
	assert.Zero(t, atomic.LoadInt32(&sender.calls))
	assert.False(t, d.Supersede("lead-1"))
}

func TestDispatcher_NewerDraftReplacesOlder(t *testing.T) {
	sender := &fakeSender{name: "bridge"}
	d := NewDispatcher(sender, logger.NewTestLogger(t))

	first := make(chan error, 1)
	go func() {
		_, err := d.Dispatch(context.Background(), Draft{ID: "d-1", LeadID: "lead-1", Message: Message{To: "91", Body: "old"}, Delay: 5 * time.Second})
		first <- err
	}()
	require.Eventually(t, func() bool { return d.Pending("lead-1") }, time.Second, 5*time.Millisecond)

	_, err := d.Dispatch(context.Background(), Draft{ID: "d-2", LeadID: "lead-1", Message: Message{To: "91", Body: "new"}, Delay: 10 * time.Millisecond})
	require.NoError(t, err)

	assert.True(t, apperrors.HasCode(<-first, apperrors.ErrCodeDraftSuperseded))
	assert.Equal(t, int32(1), atomic.LoadInt32(&sender.calls))
}

func TestDispatcher_ContextCancelled(t *testing.T) {
	d := NewDispatcher(&fakeSender{name: "bridge"}, logger.NewTestLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := d.Dispatch(ctx, Draft{LeadID: "lead-1", Message: Message{To: "91", Body: "hi"}, Delay: time.Second})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, d.Pending("lead-1"))
}

func TestDispatcher_DeliveryFailure(t *testing.T) {
	d := NewDispatcher(&fakeSender{name: "bridge", err: errors.New("status 500")}, logger.NewTestLogger(t))

	_, err := d.Dispatch(context.Background(), Draft{LeadID: "lead-1", Message: Message{To: "919820012345", Body: "hi"}})

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDeliveryFailed))
}

func TestDispatcher_GuardCancelsSend(t *testing.T) {
	sender := &fakeSender{name: "bridge"}
	d := NewDispatcher(sender, logger.NewTestLogger(t))

	guarded := 0
	_, err := d.Dispatch(context.Background(), Draft{
		LeadID:  "lead-1",
		Message: Message{To: "91", Body: "stale"},
		Delay:   5 * time.Millisecond,
		Guard: func(context.Context) error {
			guarded++
			return apperrors.NewDraftSupersededError("lead-1")
		},
	})

	assert.Equal(t, 1, guarded)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDraftSuperseded))
	assert.Zero(t, atomic.LoadInt32(&sender.calls))
	assert.False(t, d.Pending("lead-1"))
}
