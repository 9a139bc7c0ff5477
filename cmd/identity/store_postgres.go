package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the directory needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresDirectory implements Directory over PostgreSQL.
//
// The pool is owned by the caller; the directory never closes it.
// Schema identifiers are validated and quoted.
type PostgresDirectory struct {
	db     DB
	schema string
}

// PostgresOption configures the directory.
type PostgresOption func(*PostgresDirectory) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema (default "finapp").
func WithSchema(schema string) PostgresOption {
	return func(d *PostgresDirectory) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		d.schema = schema
		return nil
	}
}

// NewPostgresDirectory constructs a PostgresDirectory.
func NewPostgresDirectory(db DB, opts ...PostgresOption) (*PostgresDirectory, error) {
	d := &PostgresDirectory{db: db, schema: "finapp"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	if d.db == nil {
		return nil, fmt.Errorf("identity: nil db")
	}
	return d, nil
}

const accountColumns = `id, name, email, password_hash, status, deletion_requested_at, created_at, updated_at`

// FindByEmail loads an account by normalized email.
func (d *PostgresDirectory) FindByEmail(ctx context.Context, email string) (Account, error) {
	const op = "identity.FindByEmail"

	norm := NormalizeEmail(email)
	if norm == "" {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing email"}
	}

	row := d.db.QueryRow(ctx,
		`SELECT `+accountColumns+`
		   FROM `+d.table()+`
		  WHERE email_norm = $1`,
		norm,
	)
	return scanAccount(op, row)
}

// FindByID loads an account by id.
func (d *PostgresDirectory) FindByID(ctx context.Context, id string) (Account, error) {
	const op = "identity.FindByID"

	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		// Not a uuid can never match a row.
		return Account{}, NotFoundError{Op: op, Resource: "account"}
	}

	row := d.db.QueryRow(ctx,
		`SELECT `+accountColumns+`
		   FROM `+d.table()+`
		  WHERE id = $1`,
		uid.String(),
	)
	return scanAccount(op, row)
}

// Create inserts a new ACTIVE account with a fresh uuid.
func (d *PostgresDirectory) Create(ctx context.Context, in NewAccount) (Account, error) {
	const op = "identity.Create"

	acc, err := buildAccount(op, in)
	if err != nil {
		return Account{}, err
	}

	_, err = d.db.Exec(ctx,
		`INSERT INTO `+d.table()+` (
		     id, name, email, email_norm, password_hash, status, created_at, updated_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		acc.ID,
		acc.Name,
		acc.Email,
		NormalizeEmail(acc.Email),
		acc.PasswordHash,
		string(acc.Status),
		acc.CreatedAt,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return Account{}, ConflictError{Op: op, Field: field}
		}
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}
	return acc, nil
}

// Reactivate moves a DEACTIVATION_REQUESTED account back to ACTIVE.
// Accounts in any other status are left untouched.
func (d *PostgresDirectory) Reactivate(ctx context.Context, id string, now time.Time) error {
	const op = "identity.Reactivate"

	ct, err := d.db.Exec(ctx,
		`UPDATE `+d.table()+`
		    SET status = $1,
		        deletion_requested_at = NULL,
		        updated_at = $2
		  WHERE id = $3
		    AND status = $4`,
		string(StatusActive), now, id, string(StatusDeactivationRequested),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if ct.RowsAffected() == 0 {
		return OpError{Op: op, Kind: ErrNotActive, Msg: "account is not pending deactivation"}
	}
	return nil
}

func (d *PostgresDirectory) table() string {
	return pgx.Identifier{d.schema, "accounts"}.Sanitize()
}

func scanAccount(op string, row pgx.Row) (Account, error) {
	var (
		acc       Account
		status    string
		deletedAt *time.Time
	)
	err := row.Scan(
		&acc.ID,
		&acc.Name,
		&acc.Email,
		&acc.PasswordHash,
		&status,
		&deletedAt,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, NotFoundError{Op: op, Resource: "account"}
		}
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}
	acc.Status = Status(status)
	if !acc.Status.Valid() {
		return Account{}, fmt.Errorf("%s: unknown account status %q", op, status)
	}
	acc.DeletionRequestedAt = deletedAt
	return acc, nil
}

// buildAccount validates input shared by both directory implementations.
func buildAccount(op string, in NewAccount) (Account, error) {
	name := NormalizeName(in.Name)
	email := strings.TrimSpace(in.Email)

	if name == "" {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing name"}
	}
	if ParseIdentifier(email).Kind != IdentifierByEmail {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "invalid email"}
	}
	if in.PasswordHash == "" {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing password hash"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	return Account{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: in.PasswordHash,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch {
	case c == "uq_accounts_email_norm", strings.Contains(c, "email"):
		return "email", true
	default:
		return "unique", true
	}
}
