// Package store exports a finished dataset to PostgreSQL, one run per call,
// so that several conversions can be queried side by side.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mask2coco/internal/coco"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Open connects to PostgreSQL. The connection is not checked until first
// use.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	return db, nil
}

// EnsureSchema creates the export tables when they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS coco_runs (
            run_id UUID PRIMARY KEY,
            source TEXT NOT NULL,
            tracer TEXT NOT NULL,
            image_count INT NOT NULL,
            annotation_count INT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS coco_images (
            run_id UUID NOT NULL REFERENCES coco_runs(run_id) ON DELETE CASCADE,
            image_id INT NOT NULL,
            file_name TEXT NOT NULL,
            width INT NOT NULL,
            height INT NOT NULL,
            PRIMARY KEY (run_id, image_id)
        )`,
		`CREATE TABLE IF NOT EXISTS coco_categories (
            run_id UUID NOT NULL REFERENCES coco_runs(run_id) ON DELETE CASCADE,
            category_id INT NOT NULL,
            name TEXT NOT NULL,
            supercategory TEXT NOT NULL,
            PRIMARY KEY (run_id, category_id)
        )`,
		`CREATE TABLE IF NOT EXISTS coco_annotations (
            run_id UUID NOT NULL REFERENCES coco_runs(run_id) ON DELETE CASCADE,
            annotation_id INT NOT NULL,
            image_id INT NOT NULL,
            category_id INT NOT NULL,
            segmentation DOUBLE PRECISION[] NOT NULL,
            bbox_x DOUBLE PRECISION NOT NULL,
            bbox_y DOUBLE PRECISION NOT NULL,
            bbox_w DOUBLE PRECISION NOT NULL,
            bbox_h DOUBLE PRECISION NOT NULL,
            area DOUBLE PRECISION NOT NULL,
            PRIMARY KEY (run_id, annotation_id)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_coco_annotations_image ON coco_annotations(run_id, image_id)`,
		`CREATE INDEX IF NOT EXISTS idx_coco_annotations_category ON coco_annotations(run_id, category_id)`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Run describes one export.
type Run struct {
	ID        uuid.UUID
	Source    string
	Tracer    string
	CreatedAt time.Time
}

// Table is a COPY target: its name, columns and rows.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// Tables lays out ds as the rows of the three child tables, in load order.
func Tables(runID uuid.UUID, ds *coco.Dataset) []Table {
	id := runID.String()

	images := Table{
		Name:    "coco_images",
		Columns: []string{"run_id", "image_id", "file_name", "width", "height"},
	}
	for _, img := range ds.Images {
		images.Rows = append(images.Rows, []any{id, img.ID, img.FileName, img.Width, img.Height})
	}

	cats := Table{
		Name:    "coco_categories",
		Columns: []string{"run_id", "category_id", "name", "supercategory"},
	}
	for _, c := range ds.Categories {
		cats.Rows = append(cats.Rows, []any{id, c.ID, c.Name, c.Supercategory})
	}

	anns := Table{
		Name: "coco_annotations",
		Columns: []string{"run_id", "annotation_id", "image_id", "category_id",
			"segmentation", "bbox_x", "bbox_y", "bbox_w", "bbox_h", "area"},
	}
	for _, a := range ds.Annotations {
		seg := []float64{}
		if len(a.Segmentation) > 0 {
			seg = a.Segmentation[0]
		}
		bbox := make([]float64, 4)
		copy(bbox, a.BBox)
		anns.Rows = append(anns.Rows, []any{id, a.ID, a.ImageID, a.CategoryID,
			pq.Float64Array(seg), bbox[0], bbox[1], bbox[2], bbox[3], a.Area})
	}

	return []Table{images, cats, anns}
}

// Export writes ds under run in a single transaction, bulk loading the child
// tables with COPY.
func Export(ctx context.Context, db *sql.DB, run Run, ds *coco.Dataset, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin export: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO coco_runs(run_id, source, tracer, image_count, annotation_count, created_at) VALUES($1,$2,$3,$4,$5,$6)`,
		run.ID.String(), run.Source, run.Tracer, len(ds.Images), len(ds.Annotations), run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, t := range Tables(run.ID, ds) {
		if err := copyTable(ctx, tx, t); err != nil {
			return err
		}
		log.Debug("table exported", zap.String("table", t.Name), zap.Int("rows", len(t.Rows)))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit export: %w", err)
	}
	log.Info("dataset exported",
		zap.String("run_id", run.ID.String()),
		zap.Int("images", len(ds.Images)),
		zap.Int("annotations", len(ds.Annotations)))
	return nil
}

func copyTable(ctx context.Context, tx *sql.Tx, t Table) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(t.Name, t.Columns...))
	if err != nil {
		return fmt.Errorf("failed to prepare copy into %s: %w", t.Name, err)
	}
	defer stmt.Close()

	for _, row := range t.Rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("failed to copy row into %s: %w", t.Name, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to flush copy into %s: %w", t.Name, err)
	}
	return nil
}
