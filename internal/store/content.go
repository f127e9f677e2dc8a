package store

import (
	"context"
	"database/sql"
	"fmt"
)

// The content library is the structured-content collaborator: exact
// subject/chapter lookups and the exhaustive chapter enumeration the
// planner uses for "list all chapters" requests. Similarity search would
// truncate that listing; SQL does not.

// ChapterInfo is one chapter in an enumeration.
type ChapterInfo struct {
	Name          string `json:"name"`
	SubtopicCount int    `json:"subtopic_count"`
}

// ChapterList is the complete enumeration for one subject.
type ChapterList struct {
	Chapters      []ChapterInfo `json:"chapters"`
	TotalChapters int           `json:"total_chapters"`
}

// ContentRow is one structured-content record.
type ContentRow struct {
	Subject  string `json:"subject"`
	Chapter  string `json:"chapter"`
	Subtopic string `json:"subtopic"`
	Content  string `json:"content"`
}

// ListChapters returns every chapter of a subject with its subtopic
// count. Never truncated.
func (s *Store) ListChapters(ctx context.Context, subject, syllabus string) (ChapterList, error) {
	query := `SELECT chapter, COUNT(DISTINCT subtopic)
	          FROM textbook_content WHERE subject = ?`
	args := []any{subject}
	if syllabus != "" {
		query += ` AND syllabus = ?`
		args = append(args, syllabus)
	}
	query += ` GROUP BY chapter ORDER BY MIN(id)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return ChapterList{}, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	var list ChapterList
	for rows.Next() {
		var ch ChapterInfo
		if err := rows.Scan(&ch.Name, &ch.SubtopicCount); err != nil {
			return ChapterList{}, fmt.Errorf("scan chapter: %w", err)
		}
		list.Chapters = append(list.Chapters, ch)
	}
	if err := rows.Err(); err != nil {
		return ChapterList{}, err
	}
	list.TotalChapters = len(list.Chapters)
	return list, nil
}

// QueryContent returns structured content rows scoped by whichever of
// subject/chapter/subtopic are non-empty.
func (s *Store) QueryContent(ctx context.Context, subject, chapter, subtopic string, limit int) ([]ContentRow, error) {
	if limit <= 0 {
		limit = 3
	}
	query := `SELECT subject, chapter, subtopic, content FROM textbook_content WHERE 1=1`
	var args []any
	if subject != "" {
		query += ` AND subject = ?`
		args = append(args, subject)
	}
	if chapter != "" {
		query += ` AND chapter = ?`
		args = append(args, chapter)
	}
	if subtopic != "" {
		query += ` AND subtopic = ?`
		args = append(args, subtopic)
	}
	query += ` ORDER BY id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query content: %w", err)
	}
	defer rows.Close()
	return collectContent(rows)
}

// AddContent inserts one textbook content row. Used by seeding and tests.
func (s *Store) AddContent(ctx context.Context, row ContentRow, syllabus, difficulty string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO textbook_content (subject, chapter, subtopic, syllabus, difficulty, content)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		row.Subject, row.Chapter, row.Subtopic, syllabus, difficulty, row.Content)
	if err != nil {
		return fmt.Errorf("insert content: %w", err)
	}
	return nil
}

func collectContent(rows *sql.Rows) ([]ContentRow, error) {
	var out []ContentRow
	for rows.Next() {
		var row ContentRow
		if err := rows.Scan(&row.Subject, &row.Chapter, &row.Subtopic, &row.Content); err != nil {
			return nil, fmt.Errorf("scan content row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
