package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"marketinsight/internal/model"
)

// SQLiteStore is the single-file catalog backend. Queued writes go through
// prepared statements inside one transaction.
type SQLiteStore struct {
	DB *sql.DB
	queue
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{DB: db}
}

func (s *SQLiteStore) LoadBrands(ctx context.Context) ([]*model.Brand, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT title FROM brands ORDER BY title`)
	if err != nil {
		return nil, eris.Wrap(err, "repository: load brands")
	}
	defer rows.Close()

	var brands []*model.Brand
	for rows.Next() {
		var b model.Brand
		if err := rows.Scan(&b.Title); err != nil {
			return nil, eris.Wrap(err, "repository: scan brand")
		}
		brands = append(brands, &b)
	}
	return brands, eris.Wrap(rows.Err(), "repository: load brands")
}

func (s *SQLiteStore) LoadPlatform(ctx context.Context, title, url string) (*model.Platform, error) {
	var p model.Platform
	err := s.DB.QueryRowContext(ctx,
		`SELECT title, url FROM platforms WHERE title = ? AND url = ?`, title, url,
	).Scan(&p.Title, &p.URL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "repository: load platform")
	}
	return &p, nil
}

func (s *SQLiteStore) LoadProductIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id FROM products`)
	if err != nil {
		return nil, eris.Wrap(err, "repository: load product ids")
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "repository: scan product id")
		}
		ids[id] = struct{}{}
	}
	return ids, eris.Wrap(rows.Err(), "repository: load product ids")
}

// statement is one prepared insert and the argument lists to run it with.
type statement struct {
	query string
	args  [][]any
}

func (s *SQLiteStore) Commit(ctx context.Context) error {
	b, err := s.take()
	if err != nil {
		return err
	}
	if b.empty() {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "repository: begin")
	}
	defer tx.Rollback()

	for _, st := range sqliteStatements(&b) {
		if len(st.args) == 0 {
			continue
		}
		if err := execPrepared(ctx, tx, st); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "repository: commit")
	}
	zap.L().Info("repository: committed",
		zap.Int("products", len(b.products)),
		zap.Int("brands", len(b.brands)),
		zap.Int("reviews", len(b.reviews)),
		zap.Int("questions", len(b.questions)))
	return nil
}

// sqliteStatements orders parents before children.
func sqliteStatements(b *batch) []statement {
	platforms := statement{query: `INSERT OR IGNORE INTO platforms (title, url) VALUES (?, ?)`}
	for _, p := range b.platforms {
		platforms.args = append(platforms.args, []any{p.Title, p.URL})
	}

	brands := statement{query: `INSERT OR IGNORE INTO brands (title) VALUES (?)`}
	for _, br := range b.brands {
		brands.args = append(brands.args, []any{br.Title})
	}

	products := statement{query: `INSERT OR IGNORE INTO products
		(id, title, category, subcategory1, subcategory2, price_regular, price, url, status, brand_id, platform_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT id FROM brands WHERE title = ?),
			(SELECT id FROM platforms WHERE title = ? AND url = ?))`}
	specs := statement{query: `INSERT INTO specs (product_id, key, value) VALUES (?, ?, ?)`}
	for _, p := range b.products {
		platTitle, platURL := platformOf(p)
		products.args = append(products.args, []any{
			p.ID, p.Title, p.Category, p.Subcategory1, p.Subcategory2,
			p.PriceRegular, p.Price, p.URL, int(p.Status),
			brandTitle(p), platTitle, platURL,
		})
		for _, sp := range p.Specifications {
			specs.args = append(specs.args, []any{p.ID, sp.Key, sp.Value})
		}
	}

	reviews := statement{query: `INSERT INTO reviews (product_id, rating, username, comment) VALUES (?, ?, ?, ?)`}
	for _, r := range b.reviews {
		reviews.args = append(reviews.args, []any{r.ProductID, r.Rating, r.Username, r.Comment})
	}

	questions := statement{query: `INSERT INTO questions (product_id, username, question, answer) VALUES (?, ?, ?, ?)`}
	for _, q := range b.questions {
		questions.args = append(questions.args, []any{q.ProductID, q.Username, q.Question, q.Answer})
	}

	runs := statement{query: `INSERT OR IGNORE INTO ingest_runs
		(id, platform, started_at, finished_at, accepted, dropped, unresolved, fatal)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`}
	for _, r := range b.runs {
		runs.args = append(runs.args, []any{
			r.ID, r.Platform, r.StartedAt, r.FinishedAt, r.Accepted, r.Dropped, r.Unresolved, r.Fatal,
		})
	}

	return []statement{platforms, brands, products, specs, reviews, questions, runs}
}

func execPrepared(ctx context.Context, tx *sql.Tx, st statement) error {
	stmt, err := tx.PrepareContext(ctx, st.query)
	if err != nil {
		return eris.Wrap(err, "repository: prepare")
	}
	defer stmt.Close()

	for _, args := range st.args {
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return eris.Wrapf(err, "repository: insert %v", args[0])
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	s.close()
	return eris.Wrap(s.DB.Close(), "repository: close sqlite")
}
