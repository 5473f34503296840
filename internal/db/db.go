package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"study-assistant/internal/config"
	"study-assistant/internal/models"
)

type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	ID            string    `bun:"id,pk"`
	Filename      string    `bun:"filename,notnull"`
	Chunks        int       `bun:"chunks,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

type MCQ struct {
	bun.BaseModel `bun:"table:mcqs,alias:m"`
	ID            int64    `bun:"id,pk,autoincrement"`
	DocumentID    string   `bun:"document_id,notnull"`
	Question      string   `bun:"question,notnull"`
	Options       []string `bun:"options,array"`
	Answer        string   `bun:"answer,notnull"`
}

// ConnectDB opens the configured Postgres driver. The connection is lazy.
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case "pq":
		return sql.Open("postgres", cfg.DSN)
	case "pgdriver", "":
		opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
		if cfg.Password != "" {
			opts = append(opts, pgdriver.WithPassword(cfg.Password))
		}
		return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
	default:
		return nil, fmt.Errorf("unknown database driver: %q", cfg.Driver)
	}
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().Model((*Document)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create documents: %w", err)
	}
	if _, err := db.NewCreateTable().Model((*MCQ)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create mcqs: %w", err)
	}
	return nil
}

// StoreDocument records an uploaded document, replacing any row with the same id.
func StoreDocument(ctx context.Context, db *bun.DB, id, filename string, chunks int) error {
	doc := &Document{ID: id, Filename: filename, Chunks: chunks, CreatedAt: time.Now()}
	_, err := db.NewInsert().Model(doc).On("CONFLICT (id) DO UPDATE").Set("filename = EXCLUDED.filename, chunks = EXCLUDED.chunks").Exec(ctx)
	return err
}

// StoreMCQs replaces the stored questions of a document.
func StoreMCQs(ctx context.Context, db *bun.DB, documentID string, mcqs []models.MCQ) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*MCQ)(nil)).Where("document_id = ?", documentID).Exec(ctx); err != nil {
			return err
		}
		if len(mcqs) == 0 {
			return nil
		}
		rows := toRows(documentID, mcqs)
		_, err := tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
}

func ListMCQs(ctx context.Context, db *bun.DB, documentID string) ([]models.MCQ, error) {
	var rows []MCQ
	if err := listQuery(db, documentID, &rows).Scan(ctx); err != nil {
		return nil, err
	}
	return fromRows(rows), nil
}

func DropAll(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewDropTable().Model((*MCQ)(nil)).IfExists().Exec(ctx); err != nil {
		return err
	}
	_, err := db.NewDropTable().Model((*Document)(nil)).IfExists().Exec(ctx)
	return err
}

func listQuery(db *bun.DB, documentID string, rows *[]MCQ) *bun.SelectQuery {
	return db.NewSelect().Model(rows).Where("document_id = ?", documentID).OrderExpr("id ASC")
}

func toRows(documentID string, mcqs []models.MCQ) []MCQ {
	rows := make([]MCQ, len(mcqs))
	for i, m := range mcqs {
		rows[i] = MCQ{DocumentID: documentID, Question: m.Question, Options: m.Options, Answer: m.Answer}
	}
	return rows
}

func fromRows(rows []MCQ) []models.MCQ {
	mcqs := make([]models.MCQ, len(rows))
	for i, r := range rows {
		mcqs[i] = models.MCQ{Question: r.Question, Options: r.Options, Answer: r.Answer}
	}
	return mcqs
}
