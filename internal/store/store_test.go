package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"sales-crm-workers/internal/agent"
	"sales-crm-workers/internal/common/config"
	"sales-crm-workers/internal/common/database"
	apperrors "sales-crm-workers/internal/common/errors"
	"sales-crm-workers/internal/common/logger"
	"sales-crm-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	received = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	active   = time.Date(2026, 3, 9, 18, 30, 0, 0, time.UTC)
)

var leadColumnNames = []string{
	"id", "name", "phone", "email", "source", "status", "product_interest", "city",
	"site_location", "project_type", "estimated_area", "start_date", "qualification_status",
	"last_active", "received_at", "deal_value", "tags", "sample_request", "client_profile",
}

func leadRow(rows *sqlmock.Rows, id string) *sqlmock.Rows {
	return rows.AddRow(
		id, "Priya Sharma", "+91 98200 12345", nil, "indiamart", "follow_up", "cladding", "Mumbai",
		"Alibaug", "villa", 2400.0, nil, "qualified",
		active, received, 0.0, "{indiamart,villa}",
		[]byte(`{"status":"delivered","items":["red wirecut"]}`), []byte(`{"responsiveness":"Fast"}`),
	)
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewPostgresStore(db)
	s.now = func() time.Time { return active }
	return s, mock
}

// ==========================
// Postgres
// ==========================

func TestGetLead(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM leads WHERE id").
		WithArgs("lead-1").
		WillReturnRows(leadRow(sqlmock.NewRows(leadColumnNames), "lead-1"))
	mock.ExpectQuery("SELECT (.+) FROM messages").
		WithArgs("lead-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "sender", "content", "type", "media_url", "sent_at"}).
			AddRow("m-1", "client", "Need cladding for villa", "text", nil, received).
			AddRow("m-2", "salesrep", "Sharing catalogue", "image", "https://cdn/catalogue.jpg", active))

	lead, err := s.GetLead(context.Background(), "lead-1")

	require.NoError(t, err)
	assert.Equal(t, models.StatusFollowUp, lead.Status)
	assert.Equal(t, models.ProjectVilla, lead.ProjectType)
	assert.Equal(t, models.QualificationQualified, lead.QualificationStatus)
	assert.Equal(t, []string{"indiamart", "villa"}, lead.Tags)
	assert.Empty(t, lead.Email)
	assert.Nil(t, lead.StartDate)
	require.NotNil(t, lead.LastActive)
	assert.Equal(t, active, *lead.LastActive)
	require.NotNil(t, lead.Sample)
	assert.Equal(t, models.SampleDelivered, lead.Sample.Status)
	assert.Equal(t, models.ResponsivenessFast, lead.Responsiveness())

	require.Len(t, lead.Messages, 2)
	assert.Equal(t, models.SenderClient, lead.Messages[0].Sender)
	assert.Equal(t, "https://cdn/catalogue.jpg", lead.Messages[1].MediaURL)
	assert.Equal(t, "lead-1", lead.Messages[1].LeadID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLead_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM leads WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(leadColumnNames))

	_, err := s.GetLead(context.Background(), "missing")

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLeadNotFound))
}

func TestGetLead_QueryFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM leads WHERE id").
		WillReturnError(fmt.Errorf("connection reset"))

	_, err := s.GetLead(context.Background(), "lead-1")

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeStoreQueryFailed))
}

func TestFindByPhoneKey(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id FROM leads WHERE phone_key").
		WithArgs("9820012345").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("lead-1"))
	mock.ExpectQuery("SELECT (.+) FROM leads WHERE id").
		WithArgs("lead-1").
		WillReturnRows(leadRow(sqlmock.NewRows(leadColumnNames), "lead-1"))
	mock.ExpectQuery("SELECT (.+) FROM messages").
		WithArgs("lead-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "sender", "content", "type", "media_url", "sent_at"}))

	lead, err := s.FindByPhoneKey(context.Background(), "9820012345")

	require.NoError(t, err)
	assert.Equal(t, "lead-1", lead.ID)
	assert.Empty(t, lead.Messages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByPhoneKey_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id FROM leads WHERE phone_key").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.FindByPhoneKey(context.Background(), "9820012345")

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLeadNotFound))
}

func TestCreateLead_AssignsDefaults(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO leads").
		WithArgs(sqlmock.AnyArg(), "Amit", "+91 98200 12345", "9820012345", nil,
			"whatsapp", "new", nil, nil, nil, nil, 0.0,
			nil, "pending", nil, active, 0.0, sqlmock.AnyArg(), nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	lead := &models.Lead{Name: "Amit", Phone: "+91 98200 12345", Source: "whatsapp"}
	err := s.CreateLead(context.Background(), lead)

	require.NoError(t, err)
	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, models.StatusNew, lead.Status)
	assert.Equal(t, models.QualificationPending, lead.QualificationStatus)
	assert.Equal(t, active, lead.ReceivedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendMessage(t *testing.T) {
	s, mock := newMockStore(t)
	sent := active.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE leads SET last_active = GREATEST").
		WithArgs("lead-1", sent).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO messages").
		WithArgs(sqlmock.AnyArg(), "lead-1", "client", "Is the red brick in stock?", "text", nil, sent).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	msg := &models.Message{Sender: models.SenderClient, Content: "Is the red brick in stock?", Timestamp: sent}
	err := s.AppendMessage(context.Background(), "lead-1", msg)

	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, models.MessageText, msg.Type)
	assert.Equal(t, "lead-1", msg.LeadID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendMessage_UnknownLead(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE leads SET last_active").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.AppendMessage(context.Background(), "ghost", &models.Message{Content: "hi"})

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLeadNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendMessage_InsertFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE leads SET last_active").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO messages").
		WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	err := s.AppendMessage(context.Background(), "lead-1", &models.Message{Content: "hi"})

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeStoreWriteFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLeadStatus(t *testing.T) {
	t.Run("applies valid status", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec("UPDATE leads SET status").
			WithArgs("lead-1", "closed").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.UpdateLeadStatus(context.Background(), "lead-1", models.StatusClosed))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		s, _ := newMockStore(t)
		err := s.UpdateLeadStatus(context.Background(), "lead-1", "won")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidStatus))
	})

	t.Run("unknown lead", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec("UPDATE leads SET status").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := s.UpdateLeadStatus(context.Background(), "ghost", models.StatusLost)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLeadNotFound))
	})
}

func TestListLeads(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows(leadColumnNames)
	leadRow(rows, "lead-1")
	leadRow(rows, "lead-2")

	mock.ExpectQuery(`FROM leads WHERE status = \$1 AND source = \$2 ORDER BY last_active DESC NULLS LAST, received_at DESC LIMIT \$3`).
		WithArgs("follow_up", "indiamart", 20).
		WillReturnRows(rows)

	leads, err := s.ListLeads(context.Background(), ListFilter{Status: models.StatusFollowUp, Source: "indiamart", Limit: 20})

	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "lead-2", leads[1].ID)
	assert.Nil(t, leads[0].Messages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListLeads_DefaultLimit(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM leads ORDER BY (.+) LIMIT \$1`).
		WithArgs(defaultListLimit).
		WillReturnRows(sqlmock.NewRows(leadColumnNames))

	leads, err := s.ListLeads(context.Background(), ListFilter{})

	require.NoError(t, err)
	assert.Empty(t, leads)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS leads").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProducts(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM products ORDER BY name`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "category", "cost", "selling_rate", "coverage", "tags"}).
			AddRow("p-1", "Red Wirecut Brick Tile", "cladding", 38.0, 55.0, 5.33, "{wirecut,red}").
			AddRow("p-2", "Terracotta Jali", "jali", 120.0, 180.0, 0.0, "{}"))

	products, err := s.ListProducts(context.Background())

	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, []string{"wirecut", "red"}, products[0].Tags)
	assert.Nil(t, products[1].Tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProducts_QueryFailure(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`FROM products`).WillReturnError(fmt.Errorf("relation does not exist"))

	_, err := s.ListProducts(context.Background())

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeStoreQueryFailed))
}

// ==========================
// Redis cache
// ==========================

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rc, err := database.NewRedis(config.RedisConfig{Address: mr.Addr(), LeadTTL: 60000, CatalogTTL: 600000})
	require.NoError(t, err)
	t.Cleanup(func() { rc.Close() })

	return NewCache(rc), mr
}

type countingLeads struct {
	Leads
	lead    *models.Lead
	gets    int32
	appends int32
}

func (c *countingLeads) GetLead(_ context.Context, id string) (*models.Lead, error) {
	atomic.AddInt32(&c.gets, 1)
	if c.lead == nil || c.lead.ID != id {
		return nil, apperrors.NewLeadNotFoundError(id)
	}
	copied := *c.lead
	return &copied, nil
}

func (c *countingLeads) AppendMessage(_ context.Context, _ string, msg *models.Message) error {
	atomic.AddInt32(&c.appends, 1)
	c.lead.Messages = append(c.lead.Messages, *msg)
	return nil
}

func (c *countingLeads) UpdateLeadStatus(_ context.Context, _ string, status models.LeadStatus) error {
	c.lead.Status = status
	return nil
}

func TestCache_LeadRoundTripAndTTL(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	_, ok, err := cache.GetLead(ctx, "lead-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.SetLead(ctx, &models.Lead{ID: "lead-1", Name: "Priya", Status: models.StatusNew}))
	assert.Equal(t, time.Minute, mr.TTL(leadKeyPrefix+"lead-1"))

	lead, ok, err := cache.GetLead(ctx, "lead-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Priya", lead.Name)

	mr.FastForward(2 * time.Minute)
	_, ok, _ = cache.GetLead(ctx, "lead-1")
	assert.False(t, ok)
}

func TestCache_Cursor(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	_, ok, err := cache.Cursor(ctx, "indiamart")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.SetCursor(ctx, "indiamart", active))
	got, ok, err := cache.Cursor(ctx, "indiamart")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(active))
}

func TestCache_CorruptEntry(t *testing.T) {
	cache, mr := newTestCache(t)
	require.NoError(t, mr.Set(leadKeyPrefix+"lead-1", "not-json"))

	_, ok, err := cache.GetLead(context.Background(), "lead-1")
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestCachedStore_ReadThroughAndInvalidate(t *testing.T) {
	cache, mr := newTestCache(t)
	inner := &countingLeads{lead: &models.Lead{ID: "lead-1", Name: "Priya", Status: models.StatusNew}}
	s := NewCachedStore(inner, cache, logger.NewTestLogger(t))
	ctx := context.Background()

	_, err := s.GetLead(ctx, "lead-1")
	require.NoError(t, err)
	_, err = s.GetLead(ctx, "lead-1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.gets))

	require.NoError(t, s.AppendMessage(ctx, "lead-1", &models.Message{Sender: models.SenderClient, Content: "hello"}))
	assert.False(t, mr.Exists(leadKeyPrefix+"lead-1"))

	lead, err := s.GetLead(ctx, "lead-1")
	require.NoError(t, err)
	assert.Len(t, lead.Messages, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&inner.gets))

	require.NoError(t, s.UpdateLeadStatus(ctx, "lead-1", models.StatusClosed))
	lead, err = s.GetLead(ctx, "lead-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, lead.Status)
}

func TestCachedStore_CacheDownFallsThrough(t *testing.T) {
	cache, mr := newTestCache(t)
	inner := &countingLeads{lead: &models.Lead{ID: "lead-1"}}
	s := NewCachedStore(inner, cache, logger.NewTestLogger(t))
	mr.Close()

	lead, err := s.GetLead(context.Background(), "lead-1")

	require.NoError(t, err)
	assert.Equal(t, "lead-1", lead.ID)
}

func TestCachedStore_NotFoundIsNotCached(t *testing.T) {
	cache, mr := newTestCache(t)
	s := NewCachedStore(&countingLeads{}, cache, logger.NewTestLogger(t))

	_, err := s.GetLead(context.Background(), "ghost")

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLeadNotFound))
	assert.False(t, mr.Exists(leadKeyPrefix+"ghost"))
}

// ==========================
// Elasticsearch products
// ==========================

func newSearchServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *ProductSearch {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	es, err := database.NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{srv.URL}, ProductIndex: "products"})
	require.NoError(t, err)
	return NewProductSearch(es)
}

func TestProductSearch_Resolve(t *testing.T) {
	var captured map[string]interface{}
	s := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/_search", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		_, _ = w.Write([]byte(`{"hits":{"hits":[{"_score":4.2,"_source":{"id":"p-clad","name":"Terracotta Cladding Tile","category":"cladding","cost":30,"selling_rate":42,"coverage":5.33}}]}}`))
	})

	p, err := s.Resolve(context.Background(), "cladding tiles for 800 sqft")

	require.NoError(t, err)
	assert.Equal(t, "p-clad", p.ID)
	assert.Equal(t, 42.0, p.SellingRate)
	assert.Equal(t, 5.33, p.Coverage)

	query := captured["query"].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, "cladding tiles for 800 sqft", query["query"])
}

func TestProductSearch_NoHits(t *testing.T) {
	s := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hits":{"hits":[]}}`))
	})

	_, err := s.Resolve(context.Background(), "marble")
	assert.True(t, errors.Is(err, agent.ErrNoProduct))

	_, err = s.Resolve(context.Background(), "   ")
	assert.True(t, errors.Is(err, agent.ErrNoProduct))
}

func TestProductSearch_ClusterError(t *testing.T) {
	s := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"unavailable"}`))
	})

	_, err := s.Resolve(context.Background(), "brick")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeProductSearchFailed))
}

func TestProductSearch_IndexProduct(t *testing.T) {
	var path, refresh string
	s := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		refresh = r.URL.Query().Get("refresh")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	err := s.IndexProduct(context.Background(), models.Product{ID: "p-brick", Name: "Wirecut Brick"})

	require.NoError(t, err)
	assert.Equal(t, "/products/_doc/p-brick", path)
	assert.Equal(t, "true", refresh)
}

type stubCatalog struct {
	calls int32
}

func (s *stubCatalog) Resolve(_ context.Context, query string) (*models.Product, error) {
	atomic.AddInt32(&s.calls, 1)
	if strings.Contains(query, "marble") {
		return nil, agent.ErrNoProduct
	}
	return &models.Product{ID: "p-brick", Name: "Wirecut Brick"}, nil
}

func TestCachedCatalog(t *testing.T) {
	cache, _ := newTestCache(t)
	inner := &stubCatalog{}
	c := NewCachedCatalog(inner, cache, logger.NewTestLogger(t))
	ctx := context.Background()

	for _, q := range []string{"Wirecut  brick", "wirecut brick"} {
		p, err := c.Resolve(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, "p-brick", p.ID)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.calls))

	_, err := c.Resolve(ctx, "marble")
	assert.True(t, errors.Is(err, agent.ErrNoProduct))
}

// ==========================
// Memory store
// ==========================

func TestMemoryStore_Contract(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.now = func() time.Time { return active }

	lead := &models.Lead{Name: "Amit", Phone: "+91 98200 12345"}
	require.NoError(t, s.CreateLead(ctx, lead))
	assert.Equal(t, models.StatusNew, lead.Status)

	found, err := s.FindByPhoneKey(ctx, "9820012345")
	require.NoError(t, err)
	assert.Equal(t, lead.ID, found.ID)

	later := active.Add(time.Hour)
	require.NoError(t, s.AppendMessage(ctx, lead.ID, &models.Message{Sender: models.SenderClient, Content: "second", Timestamp: later}))
	require.NoError(t, s.AppendMessage(ctx, lead.ID, &models.Message{Sender: models.SenderClient, Content: "first", Timestamp: active}))

	got, err := s.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "first", got.Messages[0].Content)
	assert.Equal(t, later, *got.LastActive)

	got.Messages[0].Content = "mutated"
	again, _ := s.GetLead(ctx, lead.ID)
	assert.Equal(t, "first", again.Messages[0].Content)

	assert.True(t, apperrors.HasCode(s.UpdateLeadStatus(ctx, lead.ID, "won"), apperrors.ErrCodeInvalidStatus))
	require.NoError(t, s.UpdateLeadStatus(ctx, lead.ID, models.StatusClosed))

	listed, err := s.ListLeads(ctx, ListFilter{Status: models.StatusClosed})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Nil(t, listed[0].Messages)

	_, err = s.GetLead(ctx, "ghost")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLeadNotFound))
	assert.True(t, apperrors.HasCode(s.AppendMessage(ctx, "ghost", &models.Message{}), apperrors.ErrCodeLeadNotFound))
}
