package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/splax/cybervault/internal/domain"
	"github.com/splax/cybervault/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, now: time.Now}
}

// Connect opens a pool for dsn and verifies it answers.
func Connect(ctx context.Context, dsn string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(pool), nil
}

// ensure Repository satisfies interfaces.
var _ repository.Store = (*Repository)(nil)

// Ping checks the pool.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close releases pooled connections.
func (r *Repository) Close() {
	r.pool.Close()
}

const didColumns = `id, did, wallet_address, status, created_at, blockchain_tx_hash, binding_tx_hash, on_chain`

// CreateDID inserts a DID. An existing did value yields ErrConflict.
func (r *Repository) CreateDID(ctx context.Context, did *domain.DID) error {
	if did == nil {
		return repository.ErrInvalidArgument
	}
	const query = `INSERT INTO dids (did, wallet_address, status, created_at, blockchain_tx_hash, binding_tx_hash, on_chain)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (did) DO NOTHING
		RETURNING id`
	createdAt := r.now().UnixMilli()
	row := r.pool.QueryRow(ctx, query,
		did.DID,
		did.WalletAddress,
		did.Status,
		createdAt,
		nilIfEmpty(did.BlockchainTxHash),
		nilIfEmpty(did.BindingTxHash),
		did.OnChain,
	)
	if err := row.Scan(&did.ID); err != nil {
		return insertError(err)
	}
	did.CreatedAt = createdAt
	return nil
}

// GetDIDByID fetches a DID by identifier.
func (r *Repository) GetDIDByID(ctx context.Context, id int64) (*domain.DID, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+didColumns+` FROM dids WHERE id = $1`, id)
	return scanDID(row)
}

// GetDIDByValue fetches a DID by its exact did string.
func (r *Repository) GetDIDByValue(ctx context.Context, value string) (*domain.DID, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+didColumns+` FROM dids WHERE did = $1`, value)
	return scanDID(row)
}

// ListDIDs returns DIDs newest first.
func (r *Repository) ListDIDs(ctx context.Context) ([]domain.DID, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+didColumns+` FROM dids ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dids := make([]domain.DID, 0)
	for rows.Next() {
		did, err := scanDID(rows)
		if err != nil {
			return nil, err
		}
		dids = append(dids, *did)
	}
	return dids, rows.Err()
}

// UpdateDIDStatus replaces the status column only.
func (r *Repository) UpdateDIDStatus(ctx context.Context, id int64, status string) (*domain.DID, error) {
	row := r.pool.QueryRow(ctx, `UPDATE dids SET status = $2 WHERE id = $1 RETURNING `+didColumns, id, status)
	return scanDID(row)
}

// CountDIDs counts stored DIDs.
func (r *Repository) CountDIDs(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(1) FROM dids`)
}

const documentColumns = `id, hash, file_name, category, timestamp, created_at, blockchain_tx_hash, blockchain_timestamp, on_chain`

// CreateDocument inserts a document. An existing hash yields ErrConflict.
func (r *Repository) CreateDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil {
		return repository.ErrInvalidArgument
	}
	const query = `INSERT INTO documents (hash, file_name, category, timestamp, created_at, blockchain_tx_hash, blockchain_timestamp, on_chain)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (hash) DO NOTHING
		RETURNING id`
	createdAt := r.now().UnixMilli()
	row := r.pool.QueryRow(ctx, query,
		doc.Hash,
		doc.FileName,
		doc.Category,
		doc.Timestamp,
		createdAt,
		nilIfEmpty(doc.BlockchainTxHash),
		nilIfEmpty(doc.BlockchainTimestamp),
		doc.OnChain,
	)
	if err := row.Scan(&doc.ID); err != nil {
		return insertError(err)
	}
	doc.CreatedAt = createdAt
	return nil
}

// GetDocumentByID fetches a document by identifier.
func (r *Repository) GetDocumentByID(ctx context.Context, id int64) (*domain.Document, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	return scanDocument(row)
}

// GetDocumentByHash fetches a document by its exact hash.
func (r *Repository) GetDocumentByHash(ctx context.Context, hash string) (*domain.Document, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE hash = $1`, hash)
	return scanDocument(row)
}

// ListDocuments returns documents newest first.
func (r *Repository) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	return r.queryDocuments(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC, id DESC`)
}

// SearchDocuments performs a case-insensitive substring match on hash,
// file name and category.
func (r *Repository) SearchDocuments(ctx context.Context, query string) ([]domain.Document, error) {
	const stmt = `SELECT ` + documentColumns + ` FROM documents
		WHERE strpos(lower(hash), lower($1)) > 0
			OR strpos(lower(file_name), lower($1)) > 0
			OR strpos(lower(category), lower($1)) > 0
		ORDER BY created_at DESC, id DESC`
	return r.queryDocuments(ctx, stmt, query)
}

func (r *Repository) queryDocuments(ctx context.Context, query string, args ...any) ([]domain.Document, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// CountDocuments counts stored documents.
func (r *Repository) CountDocuments(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(1) FROM documents`)
}

// CreateUser inserts a user. A taken username yields ErrConflict.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	if user == nil {
		return repository.ErrInvalidArgument
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = r.now().UTC()
	}
	const query = `INSERT INTO users (username, password_hash, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO NOTHING
		RETURNING id`
	row := r.pool.QueryRow(ctx, query, user.Username, user.PasswordHash, user.CreatedAt)
	if err := row.Scan(&user.ID); err != nil {
		return insertError(err)
	}
	return nil
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `SELECT id, username, password_hash, created_at FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `SELECT id, username, password_hash, created_at FROM users WHERE username = $1`
	return scanUser(r.pool.QueryRow(ctx, query, username))
}

// CreateOperation stores a new saga trail.
func (r *Repository) CreateOperation(ctx context.Context, op *domain.Operation) error {
	if op == nil || op.ID == "" {
		return repository.ErrInvalidArgument
	}
	steps, err := json.Marshal(stepsOrEmpty(op.Steps))
	if err != nil {
		return fmt.Errorf("encode steps: %w", err)
	}
	const query = `INSERT INTO operations (id, kind, subject, status, steps, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = r.pool.Exec(ctx, query, op.ID, op.Kind, op.Subject, op.Status, steps, op.StartedAt.UTC(), timePtrToNil(op.CompletedAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrConflict
		}
		return err
	}
	return nil
}

// UpdateOperation replaces status, steps and completion time.
func (r *Repository) UpdateOperation(ctx context.Context, op *domain.Operation) error {
	if op == nil {
		return repository.ErrInvalidArgument
	}
	steps, err := json.Marshal(stepsOrEmpty(op.Steps))
	if err != nil {
		return fmt.Errorf("encode steps: %w", err)
	}
	const query = `UPDATE operations SET status = $2, steps = $3, completed_at = $4 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, op.ID, op.Status, steps, timePtrToNil(op.CompletedAt))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

const operationColumns = `id, kind, subject, status, steps, started_at, completed_at`

// GetOperation fetches one saga trail.
func (r *Repository) GetOperation(ctx context.Context, id string) (*domain.Operation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+operationColumns+` FROM operations WHERE id::text = $1`, id)
	return scanOperation(row)
}

// ListOperations returns up to limit saga trails, newest first.
func (r *Repository) ListOperations(ctx context.Context, limit int) ([]domain.Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM operations ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ops := make([]domain.Operation, 0)
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, *op)
	}
	return ops, rows.Err()
}

func (r *Repository) count(ctx context.Context, query string) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// insertError maps an empty RETURNING result from ON CONFLICT DO NOTHING,
// or a unique violation, to ErrConflict.
func insertError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrConflict
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return repository.ErrConflict
	}
	return err
}

func scanDID(row pgx.Row) (*domain.DID, error) {
	var (
		did       domain.DID
		regTx     sql.NullString
		bindingTx sql.NullString
	)
	if err := row.Scan(&did.ID, &did.DID, &did.WalletAddress, &did.Status, &did.CreatedAt, &regTx, &bindingTx, &did.OnChain); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	did.BlockchainTxHash = regTx.String
	did.BindingTxHash = bindingTx.String
	return &did, nil
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var (
		doc     domain.Document
		txHash  sql.NullString
		chainTs sql.NullString
	)
	if err := row.Scan(&doc.ID, &doc.Hash, &doc.FileName, &doc.Category, &doc.Timestamp, &doc.CreatedAt, &txHash, &chainTs, &doc.OnChain); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	doc.BlockchainTxHash = txHash.String
	doc.BlockchainTimestamp = chainTs.String
	return &doc, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func scanOperation(row pgx.Row) (*domain.Operation, error) {
	var (
		op          domain.Operation
		steps       []byte
		completedAt sql.NullTime
	)
	if err := row.Scan(&op.ID, &op.Kind, &op.Subject, &op.Status, &steps, &op.StartedAt, &completedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &op.Steps); err != nil {
			return nil, fmt.Errorf("decode steps: %w", err)
		}
	}
	op.StartedAt = op.StartedAt.UTC()
	if completedAt.Valid {
		value := completedAt.Time.UTC()
		op.CompletedAt = &value
	}
	return &op, nil
}

func stepsOrEmpty(steps []domain.OperationStep) []domain.OperationStep {
	if steps == nil {
		return []domain.OperationStep{}
	}
	return steps
}

func nilIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func timePtrToNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
