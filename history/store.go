package history

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/emile/errors"
)

// Publication status values
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Publication is one attempt at publishing a post.
type Publication struct {
	ID     string
	Slug   string
	Source string
	Dest   string
	Status string

	// Links is the rendered social links list ("[Mastodon](...), ...")
	Links string
	Error string

	StartedAt   time.Time
	CompletedAt *time.Time
}

// Duration returns how long the attempt took, or 0 while it is running.
func (p *Publication) Duration() time.Duration {
	if p.CompletedAt == nil {
		return 0
	}
	return p.CompletedAt.Sub(p.StartedAt)
}

// Store persists publications.
type Store struct {
	db *sql.DB
}

// NewStore creates a store on an already migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Start records a new running publication and returns it.
func (s *Store) Start(slug, source, dest string, at time.Time) (*Publication, error) {
	p := &Publication{
		ID:        uuid.NewString(),
		Slug:      slug,
		Source:    source,
		Dest:      dest,
		Status:    StatusRunning,
		StartedAt: at,
	}

	_, err := s.db.Exec(`
		INSERT INTO publications (id, slug, source, dest, status, links, started_at)
		VALUES (?, ?, ?, ?, ?, '', ?)
	`, p.ID, p.Slug, p.Source, p.Dest, p.Status, formatTime(at))
	if err != nil {
		return nil, errors.WrapIO(err, "record publication of %s", slug)
	}
	return p, nil
}

// Complete marks p as completed with the given social links.
func (s *Store) Complete(p *Publication, links string, at time.Time) error {
	p.Status = StatusCompleted
	p.Links = links
	p.CompletedAt = &at
	return s.finish(p)
}

// Fail marks p as failed. cause may be nil when the failure has no error
// value of its own.
func (s *Store) Fail(p *Publication, cause error, at time.Time) error {
	p.Status = StatusFailed
	if cause != nil {
		p.Error = cause.Error()
	}
	p.CompletedAt = &at
	return s.finish(p)
}

func (s *Store) finish(p *Publication) error {
	var errMsg interface{}
	if p.Error != "" {
		errMsg = p.Error
	}

	result, err := s.db.Exec(`
		UPDATE publications
		SET status = ?, links = ?, error_message = ?, completed_at = ?
		WHERE id = ?
	`, p.Status, p.Links, errMsg, formatTime(*p.CompletedAt), p.ID)
	if err != nil {
		return errors.WrapIO(err, "update publication %s", p.ID)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.WrapIO(err, "check rows affected")
	}
	if rows == 0 {
		return errors.Newf("publication not found: %s", p.ID)
	}
	return nil
}

// IsPublished reports whether slug has a completed publication.
func (s *Store) IsPublished(slug string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM publications WHERE slug = ? AND status = ?)",
		slug, StatusCompleted,
	).Scan(&exists)
	if err != nil {
		return false, errors.WrapIO(err, "look up publications of %s", slug)
	}
	return exists, nil
}

// Get returns one publication by id.
func (s *Store) Get(id string) (*Publication, error) {
	row := s.db.QueryRow(selectPublications+" WHERE id = ?", id)
	p, err := scanPublication(row)
	if err == sql.ErrNoRows {
		return nil, errors.Newf("publication not found: %s", id)
	}
	return p, err
}

// Recent returns up to limit publications, newest first.
func (s *Store) Recent(limit int) ([]Publication, error) {
	rows, err := s.db.Query(selectPublications+" ORDER BY started_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, errors.WrapIO(err, "list publications")
	}
	defer rows.Close()

	var out []Publication
	for rows.Next() {
		p, err := scanPublication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapIO(err, "list publications")
	}
	return out, nil
}

const selectPublications = `
	SELECT id, slug, source, dest, status, links, error_message, started_at, completed_at
	FROM publications`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPublication(row scanner) (*Publication, error) {
	var p Publication
	var errMsg, completedAt sql.NullString
	var startedAt string

	err := row.Scan(&p.ID, &p.Slug, &p.Source, &p.Dest, &p.Status, &p.Links,
		&errMsg, &startedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, errors.WrapIO(err, "scan publication")
	}

	if p.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return nil, errors.WrapParse(err, "started_at of %s", p.ID)
	}
	if completedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, completedAt.String)
		if err != nil {
			return nil, errors.WrapParse(err, "completed_at of %s", p.ID)
		}
		p.CompletedAt = &t
	}
	if errMsg.Valid {
		p.Error = errMsg.String
	}
	return &p, nil
}

// timeLayout sorts lexically in chronological order once times are in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
