package repo

import (
	"context"
	"errors"
	"fmt"

	dom "github.com/tsukiblade/SimpleTaskManager/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ TaskRepo = (*PGTaskRepo)(nil)

const taskColumns = `id, title, description, due_by, completed`

// PGTaskRepo implements TaskRepo with Postgres. Ids come from a BIGSERIAL
// sequence, so listing by id is insertion order.
type PGTaskRepo struct {
	db *pgxpool.Pool
}

func NewPGTaskRepo(db *pgxpool.Pool) *PGTaskRepo {
	return &PGTaskRepo{db: db}
}

func (r *PGTaskRepo) Create(ctx context.Context, d dom.TaskDraft) (dom.Task, error) {
	query := `
		INSERT INTO tasks (title, description, due_by)
		VALUES ($1, $2, $3)
		RETURNING ` + taskColumns
	t, err := scanTask(r.db.QueryRow(ctx, query, d.Title, d.Description, d.DueBy))
	if err != nil {
		return dom.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

func (r *PGTaskRepo) GetByID(ctx context.Context, id int64) (dom.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return notFound(scanTask(r.db.QueryRow(ctx, query, id)))
}

func (r *PGTaskRepo) List(ctx context.Context) ([]dom.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY id ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	list := []dom.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *PGTaskRepo) Replace(ctx context.Context, id int64, p dom.TaskPatch) (dom.Task, error) {
	query := `
		UPDATE tasks SET title = $2, description = $3, due_by = $4, completed = $5
		WHERE id = $1
		RETURNING ` + taskColumns
	return notFound(scanTask(r.db.QueryRow(ctx, query, id, p.Title, p.Description, p.DueBy, p.Completed)))
}

func (r *PGTaskRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGTaskRepo) MarkDone(ctx context.Context, id int64) (dom.Task, error) {
	query := `
		UPDATE tasks SET completed = TRUE
		WHERE id = $1
		RETURNING ` + taskColumns
	return notFound(scanTask(r.db.QueryRow(ctx, query, id)))
}

func scanTask(row pgx.Row) (dom.Task, error) {
	var t dom.Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.DueBy, &t.Completed)
	return t, err
}

func notFound(t dom.Task, err error) (dom.Task, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return dom.Task{}, ErrNotFound
	}
	return t, err
}
