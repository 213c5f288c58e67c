package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/rankmarg/mastery/store"
)

func (d *DB) ListSubjects(ctx context.Context, find *store.FindSubject) ([]*store.Subject, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "subject.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.ExamCode; v != nil {
		where, args = append(where, "subject.exam_code = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT id, name, exam_code FROM subject WHERE ` + strings.Join(where, " AND ") + ` ORDER BY subject.id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subjects: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Subject, 0)
	for rows.Next() {
		var subject store.Subject
		if err := rows.Scan(&subject.ID, &subject.Name, &subject.ExamCode); err != nil {
			return nil, fmt.Errorf("failed to scan subject: %w", err)
		}
		list = append(list, &subject)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subjects: %w", err)
	}

	return list, nil
}

func (d *DB) ListTopics(ctx context.Context, find *store.FindTopic) ([]*store.Topic, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "topic.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.SubjectID; v != nil {
		where, args = append(where, "topic.subject_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT id, subject_id, name, weightage FROM topic WHERE ` + strings.Join(where, " AND ") + ` ORDER BY topic.id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query topics: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Topic, 0)
	for rows.Next() {
		var topic store.Topic
		if err := rows.Scan(&topic.ID, &topic.SubjectID, &topic.Name, &topic.Weightage); err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		list = append(list, &topic)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate topics: %w", err)
	}

	return list, nil
}

func (d *DB) ListSubtopics(ctx context.Context, find *store.FindSubtopic) ([]*store.Subtopic, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "subtopic.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.TopicID; v != nil {
		where, args = append(where, "subtopic.topic_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT id, topic_id, name, weightage FROM subtopic WHERE ` + strings.Join(where, " AND ") + ` ORDER BY subtopic.id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subtopics: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Subtopic, 0)
	for rows.Next() {
		var subtopic store.Subtopic
		if err := rows.Scan(&subtopic.ID, &subtopic.TopicID, &subtopic.Name, &subtopic.Weightage); err != nil {
			return nil, fmt.Errorf("failed to scan subtopic: %w", err)
		}
		list = append(list, &subtopic)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subtopics: %w", err)
	}

	return list, nil
}
