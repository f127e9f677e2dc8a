package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// UpdateMastery folds one graded attempt into the (student, topic) record
// and returns the new record. The read-modify-write runs under a
// record-level lock plus a transaction, so a duplicate submit for the
// same topic serializes instead of losing an attempts/streak update.
func (s *Store) UpdateMastery(ctx context.Context, studentID, topicKey, subject string, outcome GradeOutcome) (MasteryRecord, error) {
	key := studentID + "\x00" + topicKey
	mu := s.lockRecord(key)
	mu.Lock()
	defer mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return MasteryRecord{}, fmt.Errorf("begin mastery update: %w", err)
	}
	defer tx.Rollback()

	prev, err := scanMastery(tx.QueryRowContext(ctx,
		`SELECT student_id, topic_key, subject, mastery_score, confidence_level,
		        attempts_count, correct_count, streak_count, last_practiced_at, next_review_at
		 FROM mastery_records WHERE student_id = ? AND topic_key = ?`,
		studentID, topicKey))
	var prior *MasteryRecord
	switch {
	case err == nil:
		prior = &prev
	case errors.Is(err, sql.ErrNoRows):
		prior = nil
	default:
		return MasteryRecord{}, fmt.Errorf("load mastery record: %w", err)
	}

	rec := ApplyGrade(prior, outcome, time.Now().UTC())
	rec.StudentID = studentID
	rec.TopicKey = topicKey
	if subject != "" {
		rec.Subject = subject
	} else if prior != nil {
		rec.Subject = prior.Subject
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO mastery_records
		   (student_id, topic_key, subject, mastery_score, confidence_level,
		    attempts_count, correct_count, streak_count, last_practiced_at, next_review_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(student_id, topic_key) DO UPDATE SET
		   subject = excluded.subject,
		   mastery_score = excluded.mastery_score,
		   confidence_level = excluded.confidence_level,
		   attempts_count = excluded.attempts_count,
		   correct_count = excluded.correct_count,
		   streak_count = excluded.streak_count,
		   last_practiced_at = excluded.last_practiced_at,
		   next_review_at = excluded.next_review_at`,
		rec.StudentID, rec.TopicKey, rec.Subject, rec.MasteryScore, rec.ConfidenceLevel,
		rec.AttemptsCount, rec.CorrectCount, rec.StreakCount, rec.LastPracticedAt, rec.NextReviewAt)
	if err != nil {
		return MasteryRecord{}, fmt.Errorf("upsert mastery record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return MasteryRecord{}, fmt.Errorf("commit mastery update: %w", err)
	}

	s.log.Debug("mastery updated",
		zap.String("student", studentID),
		zap.String("topic", topicKey),
		zap.Float64("score", rec.MasteryScore),
		zap.Time("next_review", rec.NextReviewAt))
	return rec, nil
}

// GetMastery returns the student's mastery records, optionally filtered
// to one subject.
func (s *Store) GetMastery(ctx context.Context, studentID, subject string) ([]MasteryRecord, error) {
	query := `SELECT student_id, topic_key, subject, mastery_score, confidence_level,
	                 attempts_count, correct_count, streak_count, last_practiced_at, next_review_at
	          FROM mastery_records WHERE student_id = ?`
	args := []any{studentID}
	if subject != "" {
		query += ` AND subject = ?`
		args = append(args, subject)
	}
	query += ` ORDER BY topic_key`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mastery records: %w", err)
	}
	defer rows.Close()
	return collectMastery(rows)
}

// GetWeakTopics returns topic keys whose score sits below threshold,
// weakest first.
func (s *Store) GetWeakTopics(ctx context.Context, studentID string, threshold float64, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT topic_key FROM mastery_records
		 WHERE student_id = ? AND mastery_score < ?
		 ORDER BY mastery_score ASC LIMIT ?`,
		studentID, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("query weak topics: %w", err)
	}
	defer rows.Close()
	return collectKeys(rows)
}

// GetDueForReview returns topic keys whose next review time has passed,
// most overdue first.
func (s *Store) GetDueForReview(ctx context.Context, studentID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT topic_key FROM mastery_records
		 WHERE student_id = ? AND next_review_at <= ?
		 ORDER BY next_review_at ASC LIMIT ?`,
		studentID, time.Now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query due reviews: %w", err)
	}
	defer rows.Close()
	return collectKeys(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMastery(row rowScanner) (MasteryRecord, error) {
	var rec MasteryRecord
	err := row.Scan(&rec.StudentID, &rec.TopicKey, &rec.Subject,
		&rec.MasteryScore, &rec.ConfidenceLevel,
		&rec.AttemptsCount, &rec.CorrectCount, &rec.StreakCount,
		&rec.LastPracticedAt, &rec.NextReviewAt)
	return rec, err
}

func collectMastery(rows *sql.Rows) ([]MasteryRecord, error) {
	var out []MasteryRecord
	for rows.Next() {
		rec, err := scanMastery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mastery record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func collectKeys(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan topic key: %w", err)
		}
		out = append(out, key)
	}
	return out, rows.Err()
}
