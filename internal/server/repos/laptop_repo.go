package repos

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"laptopkita/internal/server/models"
)

var ErrNotFound = errors.New("not found")

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

type LaptopRepo struct {
	db      *sql.DB
	dialect string
}

func NewLaptopRepo(db *sql.DB, dialect string) *LaptopRepo {
	if dialect != DialectPostgres {
		dialect = DialectSQLite
	}
	return &LaptopRepo{db: db, dialect: dialect}
}

func (r *LaptopRepo) DB() *sql.DB {
	return r.db
}

func (r *LaptopRepo) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *LaptopRepo) Insert(ctx context.Context, l *models.Laptop) error {
	args := []any{l.Title, l.Brand, l.Price, l.UserEmail, l.CreatedAt.UTC(), l.ImageID}
	const insert = `
		INSERT INTO laptops (title, brand, price, user_email, created_at, image_id)
		VALUES (?, ?, ?, ?, ?, ?)`
	if r.dialect == DialectPostgres {
		return r.db.QueryRowContext(ctx, r.rebind(insert+` RETURNING id`), args...).Scan(&l.ID)
	}
	res, err := r.db.ExecContext(ctx, insert, args...)
	if err != nil {
		return err
	}
	l.ID, err = res.LastInsertId()
	return err
}

// ListByOwner returns the owner's laptops, newest first.
func (r *LaptopRepo) ListByOwner(ctx context.Context, email string) ([]models.Laptop, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(`
		SELECT id, title, brand, price, user_email, created_at, image_id
		FROM laptops
		WHERE user_email = ?
		ORDER BY created_at DESC, id DESC
	`), email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Laptop
	for rows.Next() {
		l, err := scanLaptop(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (r *LaptopRepo) GetTx(ctx context.Context, tx *sql.Tx, id int64, email string) (*models.Laptop, error) {
	row := tx.QueryRowContext(ctx, r.rebind(`
		SELECT id, title, brand, price, user_email, created_at, image_id
		FROM laptops WHERE id = ? AND user_email = ?
	`), id, email)
	return scanLaptop(row)
}

func (r *LaptopRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id int64, email string) error {
	res, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM laptops WHERE id = ? AND user_email = ?`), id, email)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ImageInUse reports whether any row still references imageID.
func (r *LaptopRepo) ImageInUse(ctx context.Context, imageID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT COUNT(1) FROM laptops WHERE image_id = ?`), imageID).Scan(&n)
	return n > 0, err
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (r *LaptopRepo) rebind(q string) string {
	if r.dialect != DialectPostgres {
		return q
	}
	var sb strings.Builder
	n := 0
	for _, ch := range q {
		if ch == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(ch)
	}
	return sb.String()
}

func scanLaptop(row interface{ Scan(dest ...any) error }) (*models.Laptop, error) {
	var l models.Laptop
	if err := row.Scan(&l.ID, &l.Title, &l.Brand, &l.Price, &l.UserEmail, &l.CreatedAt, &l.ImageID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}
