package exam

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rccm-study/examcore/internal/bank"
)

// SQLStore persists sessions in the exam_sessions table (sqlite or postgres,
// see internal/db). The snapshot column holds the serialized wire form;
// reads run the full snapshot validation. The $n placeholders work under
// both supported drivers, so no per-driver SQL is needed.
type SQLStore struct {
	db   *sql.DB
	repo *bank.Repository
}

func NewSQLStore(db *sql.DB, repo *bank.Repository) *SQLStore {
	return &SQLStore{db: db, repo: repo}
}

func (s *SQLStore) Put(ctx context.Context, sess *Session) error {
	data, err := sess.Serialize()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO exam_sessions (id,department,state,snapshot_json,started_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET state=EXCLUDED.state, snapshot_json=EXCLUDED.snapshot_json, updated_at=EXCLUDED.updated_at`,
		sess.ID, sess.Department, string(sess.State), string(data), sess.StartedAt, time.Now().Unix())
	return err
}

func (s *SQLStore) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT snapshot_json FROM exam_sessions WHERE id=$1`, id)
	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return Deserialize([]byte(data), s.repo)
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM exam_sessions WHERE id=$1`, id)
	return err
}

// DeleteOlderThan removes sessions not touched since the cutoff. Abandoned
// sessions have no terminal state, so the hosting layer sweeps them by age.
func (s *SQLStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM exam_sessions WHERE updated_at < $1`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
