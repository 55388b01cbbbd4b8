package budget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgxpool.Pool used by PGStore.
type DBTX interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Filter narrows budget listings.
type Filter struct {
	Status   Status
	ClientID *uuid.UUID
	Page     int
	Limit    int
}

// PGStore persists budgets and reads the collaborator tables from Postgres.
type PGStore struct {
	db DBTX
}

// NewPGStore constructs a PGStore.
func NewPGStore(db DBTX) *PGStore {
	return &PGStore{db: db}
}

const budgetColumns = `id, client_id, notes, discount_percentage, invoice_percentage,
	payment_method_id, payment_type_id, shipping_option_id, shipping_cost, local_delivery_info,
	installments, check_installments, check_due_dates, boleto_installments, boleto_due_dates,
	cep_destino, status, created_by, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanBudget(row scanner) (Budget, error) {
	var (
		b      Budget
		status string
		check  []int32
		boleto []int32
	)
	err := row.Scan(
		&b.ID, &b.ClientID, &b.Notes, &b.DiscountPct, &b.InvoicePct,
		&b.PaymentMethodID, &b.PaymentTypeID, &b.ShippingOptionID, &b.ShippingCost, &b.LocalDeliveryInfo,
		&b.Installments, &b.CheckInstallments, &check, &b.BoletoInstallments, &boleto,
		&b.DestinationCEP, &status, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return Budget{}, err
	}
	b.Status = Status(status)
	b.CheckDueDates = fromInt32(check)
	b.BoletoDueDates = fromInt32(boleto)
	return b, nil
}

// Get loads a budget and its items.
func (s *PGStore) Get(ctx context.Context, id uuid.UUID) (Budget, error) {
	b, err := scanBudget(s.db.QueryRow(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Budget{}, ErrNotFound
		}
		return Budget{}, fmt.Errorf("get budget: %w", err)
	}
	items, err := s.items(ctx, s.db, id)
	if err != nil {
		return Budget{}, err
	}
	b.Items = items
	return b, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *PGStore) items(ctx context.Context, q querier, budgetID uuid.UUID) ([]Item, error) {
	rows, err := q.Query(ctx, `SELECT id, product_id, quantity, unit_price, discount_percentage, COALESCE(product_code, '')
		FROM budget_items WHERE budget_id = $1 ORDER BY position`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list budget items: %w", err)
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.DiscountPct, &it.ProductCode); err != nil {
			return nil, fmt.Errorf("scan budget item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// List returns budget headers (without items) matching filter, newest first, plus the
// total number of matches.
func (s *PGStore) List(ctx context.Context, filter Filter) ([]Budget, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		where = append(where, fmt.Sprintf("client_id = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM budgets WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count budgets: %w", err)
	}

	limit := max(filter.Limit, 1)
	offset := (max(filter.Page, 1) - 1) * limit
	args = append(args, limit, offset)
	sql := fmt.Sprintf(`SELECT %s FROM budgets WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		budgetColumns, cond, len(args)-1, len(args))
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()
	out := []Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

// Create inserts the budget and its items in one transaction.
func (s *PGStore) Create(ctx context.Context, b Budget) (Budget, error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO budgets (
			id, client_id, notes, discount_percentage, invoice_percentage,
			payment_method_id, payment_type_id, shipping_option_id, shipping_cost, local_delivery_info,
			installments, check_installments, check_due_dates, boleto_installments, boleto_due_dates,
			cep_destino, status, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		RETURNING created_at, updated_at`,
			b.ID, b.ClientID, b.Notes, b.DiscountPct, b.InvoicePct,
			b.PaymentMethodID, b.PaymentTypeID, b.ShippingOptionID, b.ShippingCost, b.LocalDeliveryInfo,
			b.Installments, b.CheckInstallments, toInt32(b.CheckDueDates), b.BoletoInstallments, toInt32(b.BoletoDueDates),
			b.DestinationCEP, string(b.Status), b.CreatedBy,
		).Scan(&b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert budget: %w", err)
		}
		items, err := insertItems(ctx, tx, b.ID, b.Items)
		if err != nil {
			return err
		}
		b.Items = items
		return nil
	})
	if err != nil {
		return Budget{}, err
	}
	return b, nil
}

// Update rewrites the budget row and replaces its whole item list. Approved budgets are
// left untouched and yield ErrApproved.
func (s *PGStore) Update(ctx context.Context, b Budget) (Budget, error) {
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `UPDATE budgets SET
			client_id = $2, notes = $3, discount_percentage = $4, invoice_percentage = $5,
			payment_method_id = $6, payment_type_id = $7, shipping_option_id = $8, shipping_cost = $9,
			local_delivery_info = $10, installments = $11, check_installments = $12, check_due_dates = $13,
			boleto_installments = $14, boleto_due_dates = $15, cep_destino = $16, updated_at = now()
		WHERE id = $1 AND status <> $17
		RETURNING status, created_by, created_at, updated_at`,
			b.ID, b.ClientID, b.Notes, b.DiscountPct, b.InvoicePct,
			b.PaymentMethodID, b.PaymentTypeID, b.ShippingOptionID, b.ShippingCost,
			b.LocalDeliveryInfo, b.Installments, b.CheckInstallments, toInt32(b.CheckDueDates),
			b.BoletoInstallments, toInt32(b.BoletoDueDates), b.DestinationCEP, string(StatusApproved),
		).Scan((*string)(&b.Status), &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return missingOrApproved(ctx, tx, b.ID)
			}
			return fmt.Errorf("update budget: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM budget_items WHERE budget_id = $1`, b.ID); err != nil {
			return fmt.Errorf("clear budget items: %w", err)
		}
		items, err := insertItems(ctx, tx, b.ID, b.Items)
		if err != nil {
			return err
		}
		b.Items = items
		return nil
	})
	if err != nil {
		return Budget{}, err
	}
	return b, nil
}

func missingOrApproved(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM budgets WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check budget: %w", err)
	}
	if exists {
		return ErrApproved
	}
	return ErrNotFound
}

func insertItems(ctx context.Context, tx pgx.Tx, budgetID uuid.UUID, items []Item) ([]Item, error) {
	out := make([]Item, len(items))
	for i, it := range items {
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		var code *string
		if c := strings.TrimSpace(it.ProductCode); c != "" {
			code = &c
		}
		_, err := tx.Exec(ctx, `INSERT INTO budget_items
			(id, budget_id, position, product_id, quantity, unit_price, discount_percentage, product_code)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			it.ID, budgetID, i, it.ProductID, it.Quantity, it.UnitPrice, it.DiscountPct, code)
		if err != nil {
			return nil, fmt.Errorf("insert budget item %d: %w", i, err)
		}
		out[i] = it
	}
	return out, nil
}

// UpdateStatus moves a budget from one status to another. It fails with
// ErrInvalidTransition when the stored status no longer matches from.
func (s *PGStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (time.Time, error) {
	var updated time.Time
	err := s.db.QueryRow(ctx, `UPDATE budgets SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2 RETURNING updated_at`, id, string(from), string(to)).Scan(&updated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, fmt.Errorf("%w: status changed concurrently", ErrInvalidTransition)
		}
		return time.Time{}, fmt.Errorf("update budget status: %w", err)
	}
	return updated, nil
}

// FetchProducts returns the products with the given ids keyed by id.
func (s *PGStore) FetchProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Product, error) {
	out := make(map[uuid.UUID]Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.db.Query(ctx, `SELECT id, code, name, price FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Price); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// ListProducts returns active products whose name or code matches search.
func (s *PGStore) ListProducts(ctx context.Context, search string, limit int) ([]Product, error) {
	rows, err := s.db.Query(ctx, `SELECT id, code, name, price FROM products
		WHERE active AND ($1 = '' OR name ILIKE '%' || $1 || '%' OR code ILIKE '%' || $1 || '%')
		ORDER BY name LIMIT $2`, strings.TrimSpace(search), max(limit, 1))
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	out := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Price); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const clientColumns = `id, name, COALESCE(document, ''), COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, '')`

func scanClient(row scanner) (Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.Name, &c.Document, &c.Email, &c.Phone, &c.Address)
	return c, err
}

// FetchClients returns the clients with the given ids keyed by id.
func (s *PGStore) FetchClients(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Client, error) {
	out := make(map[uuid.UUID]Client, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.db.Query(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch clients: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}

// ListClients returns clients whose name matches search.
func (s *PGStore) ListClients(ctx context.Context, search string, limit int) ([]Client, error) {
	rows, err := s.db.Query(ctx, `SELECT `+clientColumns+` FROM clients
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%'
		ORDER BY name LIMIT $2`, strings.TrimSpace(search), max(limit, 1))
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()
	out := []Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FetchPaymentOptions returns every payment method, payment type and shipping option.
func (s *PGStore) FetchPaymentOptions(ctx context.Context) (PaymentOptions, error) {
	var (
		opts PaymentOptions
		err  error
	)
	if opts.Methods, err = s.options(ctx, "payment_methods"); err != nil {
		return PaymentOptions{}, err
	}
	if opts.Types, err = s.options(ctx, "payment_types"); err != nil {
		return PaymentOptions{}, err
	}
	if opts.Shipping, err = s.options(ctx, "shipping_options"); err != nil {
		return PaymentOptions{}, err
	}
	return opts, nil
}

func (s *PGStore) options(ctx context.Context, table string) ([]Option, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name FROM `+pgx.Identifier{table}.Sanitize()+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()
	out := []Option{}
	for rows.Next() {
		var o Option
		if err := rows.Scan(&o.ID, &o.Name); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Role returns the profile role of userID.
func (s *PGStore) Role(ctx context.Context, userID string) (string, error) {
	var role string
	err := s.db.QueryRow(ctx, `SELECT role FROM profiles WHERE user_id = $1`, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("fetch profile role: %w", err)
	}
	return role, nil
}

// Ping checks connectivity for readiness probes.
func (s *PGStore) Ping(ctx context.Context) error {
	var one int
	return s.db.QueryRow(ctx, `SELECT 1`).Scan(&one)
}

func toInt32(in []int) []int32 {
	out := make([]int32, len(in))
	for i, v := range in {
		out[i] = int32(v)
	}
	return out
}

func fromInt32(in []int32) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}
