package persistence

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/umputun/jobboard/app/web/enums"
)

// SQLiteStore implements persistence using SQLite
type SQLiteStore struct {
	*sqliteRepo
	db *sqlx.DB
}

// sqliteRepo runs queries against either the database or an open transaction
type sqliteRepo struct {
	ext sqlx.ExtContext
}

type userRow struct {
	ID           int64      `db:"id"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	Role         enums.Role `db:"role"`
	CreatedAt    int64      `db:"created_at"`
}

type jobRow struct {
	ID          int64          `db:"id"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	Location    sql.NullString `db:"location"`
	Salary      sql.NullString `db:"salary"`
	EmployerID  int64          `db:"employer_id"`
	CreatedAt   int64          `db:"created_at"`
	UpdatedAt   int64          `db:"updated_at"`
}

type applicationRow struct {
	ID          int64  `db:"id"`
	CoverLetter string `db:"cover_letter"`
	CreatedAt   int64  `db:"created_at"`
	JobID       int64  `db:"job_id"`
	SeekerID    int64  `db:"seeker_id"`
}

type applicationSummaryRow struct {
	applicationRow
	JobTitle    string `db:"job_title"`
	EmployerID  int64  `db:"employer_id"`
	SeekerEmail string `db:"seeker_email"`
}

// built-in lower() folds ASCII only
const unicodeLower = "unicode_lower"

func init() {
	if err := sqlite.RegisterDeterministicScalarFunction(unicodeLower, 1, foldLower); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", unicodeLower, err))
	}
}

// foldLower lower-cases text values with unicode rules, other values pass through
func foldLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

const jobColumns = `id, title, description, location, salary, employer_id, created_at, updated_at`

// NewSQLiteStore creates a new SQLite store and initializes its schema
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// single connection serializes writers, pragmas below apply to it
	db.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			if closeErr := db.Close(); closeErr != nil {
				return nil, fmt.Errorf("failed to set %q: %w (also failed to close db: %v)", p, err, closeErr)
			}
			return nil, fmt.Errorf("failed to set %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, sqliteRepo: &sqliteRepo{ext: db}}
	if err := s.initialize(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (also failed to close db: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// initialize creates the database schema
func (s *SQLiteStore) initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS jobs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			location TEXT,
			salary TEXT,
			employer_id INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			FOREIGN KEY (employer_id) REFERENCES users(id)
		)`,
		`CREATE TABLE IF NOT EXISTS applications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			cover_letter TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			job_id INTEGER NOT NULL,
			seeker_id INTEGER NOT NULL,
			UNIQUE (job_id, seeker_id),
			FOREIGN KEY (job_id) REFERENCES jobs(id),
			FOREIGN KEY (seeker_id) REFERENCES users(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_updated_at ON jobs(updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_employer_id ON jobs(employer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_applications_created_at ON applications(created_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// InTx runs fn against a single transaction, committed if fn returns nil
func (s *SQLiteStore) InTx(ctx context.Context, fn func(r Repo) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(&sqliteRepo{ext: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateUser inserts a new user, duplicate email rejected with ErrDuplicateEmail
func (r *sqliteRepo) CreateUser(ctx context.Context, u User) (User, error) {
	res, err := r.ext.ExecContext(ctx, `INSERT INTO users (email, password_hash, role, created_at) VALUES (?, ?, ?, ?)`,
		u.Email, u.PasswordHash, u.Role, u.CreatedAt.UnixMicro())
	if err != nil {
		if isSQLiteUnique(err) {
			return User{}, ErrDuplicateEmail
		}
		return User{}, fmt.Errorf("failed to insert user %s: %w", u.Email, err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return User{}, fmt.Errorf("failed to get user id: %w", err)
	}
	return u, nil
}

// GetUser returns user by id
func (r *sqliteRepo) GetUser(ctx context.Context, id int64) (User, error) {
	var row userRow
	err := sqlx.GetContext(ctx, r.ext, &row, `SELECT id, email, password_hash, role, created_at FROM users WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return row.toUser(), nil
}

// GetUserByEmail returns user by exact email
func (r *sqliteRepo) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var row userRow
	err := sqlx.GetContext(ctx, r.ext, &row, `SELECT id, email, password_hash, role, created_at FROM users WHERE email = ?`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("failed to get user by email: %w", err)
	}
	return row.toUser(), nil
}

// CreateJob inserts a new job posting
func (r *sqliteRepo) CreateJob(ctx context.Context, j Job) (Job, error) {
	res, err := r.ext.ExecContext(ctx, `
		INSERT INTO jobs (title, description, location, salary, employer_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		j.Title, j.Description, nullString(j.Location), nullString(j.Salary), j.EmployerID,
		j.CreatedAt.UnixMicro(), j.UpdatedAt.UnixMicro())
	if err != nil {
		return Job{}, fmt.Errorf("failed to insert job %q: %w", j.Title, err)
	}
	if j.ID, err = res.LastInsertId(); err != nil {
		return Job{}, fmt.Errorf("failed to get job id: %w", err)
	}
	return j, nil
}

// GetJob returns job by id
func (r *sqliteRepo) GetJob(ctx context.Context, id int64) (Job, error) {
	var row jobRow
	if err := sqlx.GetContext(ctx, r.ext, &row, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, fmt.Errorf("failed to get job %d: %w", id, err)
	}
	return row.toJob(), nil
}

// SearchJobs returns jobs matching the filter, most recently updated first, ties in insertion order
func (r *sqliteRepo) SearchJobs(ctx context.Context, f JobFilter) ([]Job, error) {
	f = f.normalized()
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	args := []any{}
	if f.Keyword != "" {
		query += ` AND instr(unicode_lower(title), unicode_lower(?)) > 0`
		args = append(args, f.Keyword)
	}
	if f.Location != "" {
		query += ` AND instr(unicode_lower(coalesce(location, '')), unicode_lower(?)) > 0`
		args = append(args, f.Location)
	}
	query += ` ORDER BY updated_at DESC, id ASC`

	rows := []jobRow{}
	if err := sqlx.SelectContext(ctx, r.ext, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search jobs: %w", err)
	}
	jobs := make([]Job, 0, len(rows))
	for _, row := range rows {
		jobs = append(jobs, row.toJob())
	}
	return jobs, nil
}

// FindApplication returns the application of the seeker to the job
func (r *sqliteRepo) FindApplication(ctx context.Context, jobID, seekerID int64) (Application, error) {
	var row applicationRow
	err := sqlx.GetContext(ctx, r.ext, &row, `
		SELECT id, cover_letter, created_at, job_id, seeker_id FROM applications
		WHERE job_id = ? AND seeker_id = ?`, jobID, seekerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Application{}, ErrNotFound
		}
		return Application{}, fmt.Errorf("failed to find application for job %d: %w", jobID, err)
	}
	return row.toApplication(), nil
}

// CreateApplication inserts a new application, second one for the same job and seeker
// rejected with ErrDuplicateApplication
func (r *sqliteRepo) CreateApplication(ctx context.Context, a Application) (Application, error) {
	res, err := r.ext.ExecContext(ctx, `
		INSERT INTO applications (cover_letter, created_at, job_id, seeker_id) VALUES (?, ?, ?, ?)`,
		a.CoverLetter, a.CreatedAt.UnixMicro(), a.JobID, a.SeekerID)
	if err != nil {
		if isSQLiteUnique(err) {
			return Application{}, ErrDuplicateApplication
		}
		return Application{}, fmt.Errorf("failed to insert application for job %d: %w", a.JobID, err)
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return Application{}, fmt.Errorf("failed to get application id: %w", err)
	}
	return a, nil
}

// ListEmployerApplications returns applications to jobs owned by the employer, oldest first
func (r *sqliteRepo) ListEmployerApplications(ctx context.Context, employerID int64) ([]ApplicationSummary, error) {
	rows := []applicationSummaryRow{}
	err := sqlx.SelectContext(ctx, r.ext, &rows, `
		SELECT a.id, a.cover_letter, a.created_at, a.job_id, a.seeker_id,
			j.title AS job_title, j.employer_id, u.email AS seeker_email
		FROM applications a
		JOIN jobs j ON j.id = a.job_id
		JOIN users u ON u.id = a.seeker_id
		WHERE j.employer_id = ?
		ORDER BY a.created_at ASC, a.id ASC`, employerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications for employer %d: %w", employerID, err)
	}

	res := make([]ApplicationSummary, 0, len(rows))
	for _, row := range rows {
		res = append(res, ApplicationSummary{
			Application: row.toApplication(),
			JobTitle:    row.JobTitle,
			EmployerID:  row.EmployerID,
			SeekerEmail: row.SeekerEmail,
		})
	}
	return res, nil
}

func (r userRow) toUser() User {
	return User{ID: r.ID, Email: r.Email, PasswordHash: r.PasswordHash, Role: r.Role, CreatedAt: fromMicro(r.CreatedAt)}
}

func (r jobRow) toJob() Job {
	return Job{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Location:    r.Location.String,
		Salary:      r.Salary.String,
		EmployerID:  r.EmployerID,
		CreatedAt:   fromMicro(r.CreatedAt),
		UpdatedAt:   fromMicro(r.UpdatedAt),
	}
}

func (r applicationRow) toApplication() Application {
	return Application{ID: r.ID, CoverLetter: r.CoverLetter, CreatedAt: fromMicro(r.CreatedAt), JobID: r.JobID, SeekerID: r.SeekerID}
}

func fromMicro(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.UnixMicro(v).UTC()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// isSQLiteUnique detects UNIQUE constraint failures reported by the sqlite driver
func isSQLiteUnique(err error) bool {
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		if coded.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
			return false
		}
		return strings.Contains(err.Error(), "UNIQUE")
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		log.Printf("[DEBUG] unique violation detected by message, %v", err)
		return true
	}
	return false
}
