// Package qbank is the SQLite question bank: every extraction run and the
// questions it produced, so per-paper results can be merged later.
package qbank

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hazyhaar/exametl/dbopen"
	"github.com/hazyhaar/exametl/docpipe"
	"github.com/hazyhaar/exametl/idgen"
	"github.com/hazyhaar/exametl/tagger"
)

// Store is the question bank handle.
type Store struct {
	DB *sql.DB

	runID      idgen.Generator
	questionID idgen.Generator
}

// Open opens (or creates) the question bank at path and applies Schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

// New wraps an opened database; Schema must be applied.
func New(db *sql.DB) *Store {
	return &Store{
		DB:         db,
		runID:      idgen.Prefixed("run_", idgen.Default),
		questionID: idgen.Prefixed("q_", idgen.Default),
	}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Run is one processed source file.
type Run struct {
	ID              string `json:"id"`
	SourcePath      string `json:"source_path"`
	Subject         string `json:"subject"`
	SubjectName     string `json:"subject_name"`
	Pages           int    `json:"pages"`
	NativePages     int    `json:"native_pages"`
	RecognizedPages int    `json:"recognized_pages"`
	FallbackPages   int    `json:"fallback_pages"`
	Questions       int    `json:"questions"`
	CSVPath         string `json:"csv_path,omitempty"`
	StartedAt       int64  `json:"started_at"`
	FinishedAt      int64  `json:"finished_at"`
}

// SaveRun stores run and its questions in one transaction. An empty run.ID
// is generated; run.Questions is set to len(qs).
func (s *Store) SaveRun(ctx context.Context, run *Run, qs []tagger.Tagged) error {
	if run.SourcePath == "" {
		return errors.New("qbank: run without source path")
	}
	if run.ID == "" {
		run.ID = s.runID()
	}
	now := time.Now().UnixMilli()
	if run.StartedAt == 0 {
		run.StartedAt = now
	}
	if run.FinishedAt == 0 {
		run.FinishedAt = now
	}
	run.Questions = len(qs)

	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO runs
				(id, source_path, subject, subject_name, pages, native_pages,
				 recognized_pages, fallback_pages, questions, csv_path,
				 started_at, finished_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
			run.ID, run.SourcePath, run.Subject, run.SubjectName, run.Pages, run.NativePages,
			run.RecognizedPages, run.FallbackPages, run.Questions, run.CSVPath,
			run.StartedAt, run.FinishedAt,
		)
		if err != nil {
			return fmt.Errorf("qbank: insert run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO questions
				(id, run_id, seq, paper_id, question_type, number, content,
				 tags, difficulty, provenance, page_index)
			VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
		if err != nil {
			return fmt.Errorf("qbank: prepare: %w", err)
		}
		defer stmt.Close()

		for i, q := range qs {
			tags, err := json.Marshal(q.Tags)
			if err != nil {
				return err
			}
			_, err = stmt.ExecContext(ctx,
				s.questionID(), run.ID, i, q.PaperID, q.QuestionType, q.Number, q.Content,
				string(tags), q.Difficulty, string(q.Provenance), q.PageIndex,
			)
			if err != nil {
				return fmt.Errorf("qbank: insert question %d: %w", i, err)
			}
		}
		return nil
	})
}

const runColumns = `id, source_path, subject, subject_name, pages, native_pages,
	recognized_pages, fallback_pages, questions, csv_path, started_at, finished_at`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.SourcePath, &r.Subject, &r.SubjectName, &r.Pages, &r.NativePages,
		&r.RecognizedPages, &r.FallbackPages, &r.Questions, &r.CSVPath, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRun returns a run by id, or (nil, nil) when absent.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	r, err := scanRun(s.DB.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("qbank: get run: %w", err)
	}
	return r, nil
}

// LatestRuns returns the most recent run of every source path, ordered by
// source path.
func (s *Store) LatestRuns(ctx context.Context) ([]*Run, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+runColumns+` FROM runs r
		WHERE r.id = (
			SELECT id FROM runs
			WHERE source_path = r.source_path
			ORDER BY started_at DESC, id DESC LIMIT 1)
		ORDER BY r.source_path`)
	if err != nil {
		return nil, fmt.Errorf("qbank: latest runs: %w", err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// QuestionsForRun returns the questions of a run in extraction order.
func (s *Store) QuestionsForRun(ctx context.Context, runID string) ([]tagger.Tagged, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT paper_id, question_type, number, content, tags, difficulty, provenance, page_index
		FROM questions WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("qbank: questions: %w", err)
	}
	defer rows.Close()
	return scanQuestions(rows)
}

// MergedQuestions returns the questions of every source's latest run,
// ordered by source path then extraction order.
func (s *Store) MergedQuestions(ctx context.Context) ([]tagger.Tagged, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT q.paper_id, q.question_type, q.number, q.content, q.tags, q.difficulty,
		       q.provenance, q.page_index
		FROM questions q
		JOIN runs r ON r.id = q.run_id
		WHERE r.id = (
			SELECT id FROM runs
			WHERE source_path = r.source_path
			ORDER BY started_at DESC, id DESC LIMIT 1)
		ORDER BY r.source_path, q.seq`)
	if err != nil {
		return nil, fmt.Errorf("qbank: merged questions: %w", err)
	}
	defer rows.Close()
	return scanQuestions(rows)
}

func scanQuestions(rows *sql.Rows) ([]tagger.Tagged, error) {
	var out []tagger.Tagged
	for rows.Next() {
		var (
			q    tagger.Tagged
			tags string
			prov string
		)
		err := rows.Scan(&q.PaperID, &q.QuestionType, &q.Number, &q.Content, &tags,
			&q.Difficulty, &prov, &q.PageIndex)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tags), &q.Tags); err != nil {
			return nil, fmt.Errorf("qbank: tags of %s/%s: %w", q.PaperID, q.Number, err)
		}
		q.Provenance = docpipe.Provenance(prov)
		out = append(out, q)
	}
	return out, rows.Err()
}

// SubjectCount is the number of stored questions of one subject.
type SubjectCount struct {
	Subject   string `json:"subject"`
	Runs      int    `json:"runs"`
	Questions int    `json:"questions"`
}

// Stats summarizes the bank.
type Stats struct {
	Runs      int            `json:"runs"`
	Sources   int            `json:"sources"`
	Questions int            `json:"questions"`
	Subjects  []SubjectCount `json:"subjects"`
}

// Stats counts runs, distinct sources and questions, and the latest-run
// totals per subject.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT source_path) FROM runs`).Scan(&st.Runs, &st.Sources)
	if err != nil {
		return nil, fmt.Errorf("qbank: stats: %w", err)
	}
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&st.Questions); err != nil {
		return nil, fmt.Errorf("qbank: stats: %w", err)
	}

	latest, err := s.LatestRuns(ctx)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]int)
	for _, r := range latest {
		i, ok := idx[r.Subject]
		if !ok {
			i = len(st.Subjects)
			idx[r.Subject] = i
			st.Subjects = append(st.Subjects, SubjectCount{Subject: r.Subject})
		}
		st.Subjects[i].Runs++
		st.Subjects[i].Questions += r.Questions
	}
	sort.Slice(st.Subjects, func(i, j int) bool { return st.Subjects[i].Subject < st.Subjects[j].Subject })
	return &st, nil
}
