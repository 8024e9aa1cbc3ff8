package requests

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Repo struct{ DB *sql.DB }

type Row struct {
	ID         uuid.UUID
	ASIN       string
	Username   string
	Title      string
	Downloaded bool
	CreatedAt  time.Time
}

// Upsert records a user's request for a book; repeating a request is a
// no-op that returns the existing row id.
func (r *Repo) Upsert(ctx context.Context, asin, username, title string) (uuid.UUID, error) {
	id := uuid.New()
	err := r.DB.QueryRowContext(ctx, `
INSERT INTO book_request (id, asin, username, title, downloaded, created_at)
VALUES ($1,$2,$3,$4,false,now())
ON CONFLICT (asin, username) DO UPDATE SET title=EXCLUDED.title
RETURNING id`, id, asin, username, title).Scan(&id)
	return id, err
}

func (r *Repo) List(ctx context.Context) ([]Row, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT id, asin, username, title, downloaded, created_at
FROM book_request ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.ID, &row.ASIN, &row.Username, &row.Title, &row.Downloaded, &row.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Repo) MarkDownloaded(ctx context.Context, asin string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE book_request SET downloaded=true WHERE asin=$1`, asin)
	return err
}

func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM book_request WHERE id=$1`, id)
	return err
}
