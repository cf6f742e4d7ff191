package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/umputun/jobboard/app/web/enums"
)

const (
	pgUniqueViolation         = "23505"
	pgUsersEmailIndex         = "idx_users_email"
	pgApplicationsUniqueIndex = "idx_applications_job_seeker"
)

// PostgresStore implements persistence using PostgreSQL via gorm
type PostgresStore struct {
	*gormRepo
	db *gorm.DB
}

// gormRepo runs queries against either the pool or an open transaction
type gormRepo struct {
	db *gorm.DB
}

type userModel struct {
	ID           int64     `gorm:"primaryKey"`
	Email        string    `gorm:"size:191;not null;uniqueIndex:idx_users_email"`
	PasswordHash string    `gorm:"size:100;not null"`
	Role         string    `gorm:"size:16;not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (userModel) TableName() string { return "users" }

type jobModel struct {
	ID          int64     `gorm:"primaryKey"`
	Title       string    `gorm:"size:120;not null"`
	Description string    `gorm:"type:text;not null"`
	Location    *string   `gorm:"size:100"`
	Salary      *string   `gorm:"size:50"`
	EmployerID  int64     `gorm:"not null;index"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null;index"`
}

func (jobModel) TableName() string { return "jobs" }

type applicationModel struct {
	ID          int64     `gorm:"primaryKey"`
	CoverLetter string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"not null;index"`
	JobID       int64     `gorm:"not null;uniqueIndex:idx_applications_job_seeker"`
	SeekerID    int64     `gorm:"not null;uniqueIndex:idx_applications_job_seeker"`
}

func (applicationModel) TableName() string { return "applications" }

type applicationSummaryModel struct {
	ID          int64
	CoverLetter string
	CreatedAt   time.Time
	JobID       int64
	SeekerID    int64
	JobTitle    string
	EmployerID  int64
	SeekerEmail string
}

// gormLogWriter routes gorm logger output to lgr
type gormLogWriter struct{}

func (gormLogWriter) Printf(format string, args ...any) {
	log.Printf("[DEBUG] gorm: "+format, args...)
}

// NewPostgresStore connects to PostgreSQL and migrates the schema
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	gormLogger := logger.New(gormLogWriter{}, logger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.AutoMigrate(&userModel{}, &jobModel{}, &applicationModel{}); err != nil {
		if sqlDB, e := db.DB(); e == nil {
			_ = sqlDB.Close()
		}
		return nil, fmt.Errorf("failed to migrate postgres schema: %w", err)
	}
	log.Printf("[INFO] postgres schema ready")
	return &PostgresStore{db: db, gormRepo: &gormRepo{db: db}}, nil
}

// InTx runs fn against a single transaction, committed if fn returns nil
func (s *PostgresStore) InTx(ctx context.Context, fn func(r Repo) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepo{db: tx})
	})
}

// Close closes the underlying connection pool
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql db: %w", err)
	}
	return sqlDB.Close()
}

// CreateUser inserts a new user, duplicate email rejected with ErrDuplicateEmail
func (r *gormRepo) CreateUser(ctx context.Context, u User) (User, error) {
	row := userModel{Email: u.Email, PasswordHash: u.PasswordHash, Role: u.Role.String(), CreatedAt: u.CreatedAt}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isPgUnique(err, pgUsersEmailIndex) {
			return User{}, ErrDuplicateEmail
		}
		return User{}, fmt.Errorf("failed to insert user %s: %w", u.Email, err)
	}
	u.ID = row.ID
	return u, nil
}

// GetUser returns user by id
func (r *gormRepo) GetUser(ctx context.Context, id int64) (User, error) {
	var row userModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return row.toUser()
}

// GetUserByEmail returns user by exact email
func (r *gormRepo) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var row userModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("failed to get user by email: %w", err)
	}
	return row.toUser()
}

// CreateJob inserts a new job posting
func (r *gormRepo) CreateJob(ctx context.Context, j Job) (Job, error) {
	row := jobModel{
		Title:       j.Title,
		Description: j.Description,
		Location:    optString(j.Location),
		Salary:      optString(j.Salary),
		EmployerID:  j.EmployerID,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return Job{}, fmt.Errorf("failed to insert job %q: %w", j.Title, err)
	}
	j.ID = row.ID
	return j, nil
}

// GetJob returns job by id
func (r *gormRepo) GetJob(ctx context.Context, id int64) (Job, error) {
	var row jobModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Job{}, ErrNotFound
		}
		return Job{}, fmt.Errorf("failed to get job %d: %w", id, err)
	}
	return row.toJob(), nil
}

// SearchJobs returns jobs matching the filter, most recently updated first, ties in insertion order
func (r *gormRepo) SearchJobs(ctx context.Context, f JobFilter) ([]Job, error) {
	f = f.normalized()
	tx := r.db.WithContext(ctx).Model(&jobModel{})
	if f.Keyword != "" {
		tx = tx.Where("strpos(lower(title), lower(?)) > 0", f.Keyword)
	}
	if f.Location != "" {
		tx = tx.Where("strpos(lower(coalesce(location, '')), lower(?)) > 0", f.Location)
	}

	var rows []jobModel
	if err := tx.Order("updated_at DESC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to search jobs: %w", err)
	}
	jobs := make([]Job, 0, len(rows))
	for _, row := range rows {
		jobs = append(jobs, row.toJob())
	}
	return jobs, nil
}

// FindApplication returns the application of the seeker to the job
func (r *gormRepo) FindApplication(ctx context.Context, jobID, seekerID int64) (Application, error) {
	var row applicationModel
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Where("seeker_id = ?", seekerID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Application{}, ErrNotFound
		}
		return Application{}, fmt.Errorf("failed to find application for job %d: %w", jobID, err)
	}
	return row.toApplication(), nil
}

// CreateApplication inserts a new application, the unique index arbitrates concurrent duplicates
func (r *gormRepo) CreateApplication(ctx context.Context, a Application) (Application, error) {
	row := applicationModel{CoverLetter: a.CoverLetter, CreatedAt: a.CreatedAt, JobID: a.JobID, SeekerID: a.SeekerID}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isPgUnique(err, pgApplicationsUniqueIndex) {
			return Application{}, ErrDuplicateApplication
		}
		return Application{}, fmt.Errorf("failed to insert application for job %d: %w", a.JobID, err)
	}
	a.ID = row.ID
	return a, nil
}

// ListEmployerApplications returns applications to jobs owned by the employer, oldest first
func (r *gormRepo) ListEmployerApplications(ctx context.Context, employerID int64) ([]ApplicationSummary, error) {
	var rows []applicationSummaryModel
	err := r.db.WithContext(ctx).
		Table("applications AS a").
		Select("a.id, a.cover_letter, a.created_at, a.job_id, a.seeker_id, " +
			"j.title AS job_title, j.employer_id, u.email AS seeker_email").
		Joins("JOIN jobs AS j ON j.id = a.job_id").
		Joins("JOIN users AS u ON u.id = a.seeker_id").
		Where("j.employer_id = ?", employerID).
		Order("a.created_at ASC, a.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list applications for employer %d: %w", employerID, err)
	}

	res := make([]ApplicationSummary, 0, len(rows))
	for _, row := range rows {
		res = append(res, ApplicationSummary{
			Application: Application{ID: row.ID, CoverLetter: row.CoverLetter, CreatedAt: row.CreatedAt.UTC(),
				JobID: row.JobID, SeekerID: row.SeekerID},
			JobTitle:    row.JobTitle,
			EmployerID:  row.EmployerID,
			SeekerEmail: row.SeekerEmail,
		})
	}
	return res, nil
}

func (m userModel) toUser() (User, error) {
	role, err := enums.ParseRole(m.Role)
	if err != nil {
		return User{}, fmt.Errorf("user %d: %w", m.ID, err)
	}
	return User{ID: m.ID, Email: m.Email, PasswordHash: m.PasswordHash, Role: role, CreatedAt: m.CreatedAt.UTC()}, nil
}

func (m jobModel) toJob() Job {
	j := Job{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		EmployerID:  m.EmployerID,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
	if m.Location != nil {
		j.Location = *m.Location
	}
	if m.Salary != nil {
		j.Salary = *m.Salary
	}
	return j
}

func (m applicationModel) toApplication() Application {
	return Application{ID: m.ID, CoverLetter: m.CoverLetter, CreatedAt: m.CreatedAt.UTC(), JobID: m.JobID, SeekerID: m.SeekerID}
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// isPgUnique reports a unique violation on the given index, any index if name is empty
func isPgUnique(err error, index string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return index == "" || pgErr.ConstraintName == index
}
