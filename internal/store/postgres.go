package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"sales-crm-workers/internal/common/database"
	apperrors "sales-crm-workers/internal/common/errors"
	"sales-crm-workers/internal/common/validation"
	"sales-crm-workers/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schema string

const defaultListLimit = 100

const leadColumns = `id, name, phone, email, source, status, product_interest, city,
	site_location, project_type, estimated_area, start_date, qualification_status,
	last_active, received_at, deal_value, tags, sample_request, client_profile`

// PostgresStore is the durable lead store.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// Migrate creates the tables when they are missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewLeadNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewStoreQueryFailedError("GetLead", err)
	}

	msgs, err := s.messages(ctx, id)
	if err != nil {
		return nil, apperrors.NewStoreQueryFailedError("GetLead", err)
	}
	lead.Messages = msgs
	return lead, nil
}

// FindByPhoneKey looks a lead up by the last ten digits of its phone.
func (s *PostgresStore) FindByPhoneKey(ctx context.Context, phoneKey string) (*models.Lead, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM leads WHERE phone_key = $1 ORDER BY received_at LIMIT 1`, phoneKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewLeadNotFoundError("phone:" + phoneKey)
	}
	if err != nil {
		return nil, apperrors.NewStoreQueryFailedError("FindByPhoneKey", err)
	}
	return s.GetLead(ctx, id)
}

// CreateLead inserts lead, assigning an id and received time when unset.
func (s *PostgresStore) CreateLead(ctx context.Context, lead *models.Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	if lead.ReceivedAt.IsZero() {
		lead.ReceivedAt = s.now().UTC()
	}
	if lead.Status == "" {
		lead.Status = models.StatusNew
	}
	if lead.QualificationStatus == "" {
		lead.QualificationStatus = models.QualificationPending
	}

	sample, err := marshalNullable(lead.Sample)
	if err != nil {
		return apperrors.NewStoreWriteFailedError("CreateLead", err)
	}
	profile, err := marshalNullable(lead.Profile)
	if err != nil {
		return apperrors.NewStoreWriteFailedError("CreateLead", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO leads (id, name, phone, phone_key, email, source, status, product_interest, city,
			site_location, project_type, estimated_area, start_date, qualification_status,
			last_active, received_at, deal_value, tags, sample_request, client_profile)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		lead.ID, lead.Name, lead.Phone, validation.PhoneKey(lead.Phone), nullString(lead.Email),
		lead.Source, string(lead.Status), nullString(lead.ProductInterest), nullString(lead.City),
		nullString(lead.SiteLocation), nullString(string(lead.ProjectType)), lead.EstimatedArea,
		lead.StartDate, string(lead.QualificationStatus), lead.LastActive, lead.ReceivedAt,
		lead.DealValue, pq.Array(lead.Tags), sample, profile,
	)
	if err != nil {
		return apperrors.NewStoreWriteFailedError("CreateLead", err)
	}
	return nil
}

// AppendMessage stores msg and moves the lead's lastActive forward to the
// message time. lastActive never moves backwards.
func (s *PostgresStore) AppendMessage(ctx context.Context, leadID string, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now().UTC()
	}
	if msg.Type == "" {
		msg.Type = models.MessageText
	}
	msg.LeadID = leadID

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE leads
			SET last_active = GREATEST(COALESCE(last_active, $2), $2)
			WHERE id = $1`, leadID, msg.Timestamp)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return apperrors.NewLeadNotFoundError(leadID)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO messages (id, lead_id, sender, content, type, media_url, sent_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			msg.ID, leadID, string(msg.Sender), msg.Content, string(msg.Type),
			nullString(msg.MediaURL), msg.Timestamp,
		)
		return err
	})
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeLeadNotFound) {
			return err
		}
		return apperrors.NewStoreWriteFailedError("AppendMessage", err)
	}
	return nil
}

func (s *PostgresStore) UpdateLeadStatus(ctx context.Context, id string, status models.LeadStatus) error {
	if !status.Valid() {
		return apperrors.NewInvalidStatusError(string(status))
	}

	res, err := s.db.ExecContext(ctx, `UPDATE leads SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return apperrors.NewStoreWriteFailedError("UpdateLeadStatus", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NewLeadNotFoundError(id)
	}
	return nil
}

// ListLeads returns leads without their messages, most recently active
// first.
func (s *PostgresStore) ListLeads(ctx context.Context, filter ListFilter) ([]models.Lead, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Source != "" {
		args = append(args, filter.Source)
		where = append(where, fmt.Sprintf("source = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit)

	query := `SELECT ` + leadColumns + ` FROM leads`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(` ORDER BY last_active DESC NULLS LAST, received_at DESC LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStoreQueryFailedError("ListLeads", err)
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, apperrors.NewStoreQueryFailedError("ListLeads", err)
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreQueryFailedError("ListLeads", err)
	}
	return leads, nil
}

func (s *PostgresStore) messages(ctx context.Context, leadID string) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender, content, type, media_url, sent_at
		FROM messages
		WHERE lead_id = $1
		ORDER BY sent_at, seq`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var (
			m     models.Message
			media sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.Sender, &m.Content, &m.Type, &media, &m.Timestamp); err != nil {
			return nil, err
		}
		m.LeadID = leadID
		m.MediaURL = media.String
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// ListProducts returns the whole catalog ordered by name.
func (s *PostgresStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, cost, selling_rate, coverage, tags
		FROM products
		ORDER BY name`)
	if err != nil {
		return nil, apperrors.NewStoreQueryFailedError("ListProducts", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var (
			p    models.Product
			tags pq.StringArray
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Cost, &p.SellingRate, &p.Coverage, &tags); err != nil {
			return nil, apperrors.NewStoreQueryFailedError("ListProducts", err)
		}
		if len(tags) > 0 {
			p.Tags = []string(tags)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreQueryFailedError("ListProducts", err)
	}
	return products, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanLead(row scanner) (*models.Lead, error) {
	var (
		l                                       models.Lead
		email, product, city, site, projectType sql.NullString
		startDate, lastActive                   sql.NullTime
		tags                                    pq.StringArray
		sample, profile                         []byte
	)

	err := row.Scan(
		&l.ID, &l.Name, &l.Phone, &email, &l.Source, &l.Status, &product, &city,
		&site, &projectType, &l.EstimatedArea, &startDate, &l.QualificationStatus,
		&lastActive, &l.ReceivedAt, &l.DealValue, &tags, &sample, &profile,
	)
	if err != nil {
		return nil, err
	}

	l.Email = email.String
	l.ProductInterest = product.String
	l.City = city.String
	l.SiteLocation = site.String
	l.ProjectType = models.ProjectType(projectType.String)
	if startDate.Valid {
		t := startDate.Time
		l.StartDate = &t
	}
	if lastActive.Valid {
		t := lastActive.Time
		l.LastActive = &t
	}
	if len(tags) > 0 {
		l.Tags = []string(tags)
	}
	if len(sample) > 0 {
		l.Sample = &models.SampleRequest{}
		if err := json.Unmarshal(sample, l.Sample); err != nil {
			return nil, fmt.Errorf("sample_request: %w", err)
		}
	}
	if len(profile) > 0 {
		l.Profile = &models.ClientProfile{}
		if err := json.Unmarshal(profile, l.Profile); err != nil {
			return nil, fmt.Errorf("client_profile: %w", err)
		}
	}
	return &l, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func marshalNullable(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case *models.SampleRequest:
		if x == nil {
			return nil, nil
		}
	case *models.ClientProfile:
		if x == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}
