// Package seed loads development fixtures from a yaml file and registers them through the service
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	log "github.com/go-pkgz/lgr"
	"github.com/invopop/jsonschema"
	pkgerrors "github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/umputun/jobboard/app/service"
	"github.com/umputun/jobboard/app/service/request"
	"github.com/umputun/jobboard/app/web/enums"
	"github.com/umputun/jobboard/app/web/persistence"
)

const draft07 = "http://json-schema.org/draft-07/schema#"

// Fixtures is the root of a seed file
type Fixtures struct {
	Users []User `yaml:"users" json:"users" jsonschema:"description=accounts to register"`
	Jobs  []Job  `yaml:"jobs,omitempty" json:"jobs,omitempty" jsonschema:"description=job postings created by employers listed in users"`
}

// User is an account fixture
type User struct {
	Email    string `yaml:"email" json:"email" jsonschema:"format=email"`
	Password string `yaml:"password" json:"password" jsonschema:"minLength=1,maxLength=72"`
	Role     string `yaml:"role" json:"role" jsonschema:"enum=employer,enum=seeker"`
}

// Job is a job posting fixture
type Job struct {
	Employer    string `yaml:"employer" json:"employer" jsonschema:"format=email,description=email of an employer from users"`
	Title       string `yaml:"title" json:"title" jsonschema:"minLength=1,maxLength=120"`
	Description string `yaml:"description" json:"description" jsonschema:"minLength=1"`
	Location    string `yaml:"location,omitempty" json:"location,omitempty" jsonschema:"maxLength=100"`
	Salary      string `yaml:"salary,omitempty" json:"salary,omitempty" jsonschema:"maxLength=50"`
}

// Service is the subset of service.JobBoard used for seeding
type Service interface {
	Register(ctx context.Context, req request.Register) (persistence.User, error)
	CreateJob(ctx context.Context, userID int64, req request.CreateJob) (persistence.Job, error)
}

// Result counts what Apply did
type Result struct {
	UsersCreated int
	UsersSkipped int
	JobsCreated  int
	JobsSkipped  int
}

// Schema returns json schema of the seed file
func Schema() *jsonschema.Schema {
	r := jsonschema.Reflector{DoNotReference: true}
	s := r.Reflect(&Fixtures{})
	s.Version = draft07
	s.Title = "Jobboard seed file"
	s.Description = "Users and job postings loaded on startup"
	return s
}

// Load reads the file, validates it against Schema and checks job employers refer to employer users
func Load(fname string) (*Fixtures, error) {
	data, err := os.ReadFile(fname) //nolint:gosec // seed file from the operator's config
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "can't read seed file %s", fname)
	}

	var doc any
	if err = yaml.Unmarshal(data, &doc); err != nil {
		return nil, pkgerrors.Wrapf(err, "can't parse seed file %s", fname)
	}
	if err = validate(doc); err != nil {
		return nil, pkgerrors.Wrapf(err, "invalid seed file %s", fname)
	}

	res := &Fixtures{}
	if err = yaml.Unmarshal(data, res); err != nil {
		return nil, pkgerrors.Wrapf(err, "can't decode seed file %s", fname)
	}
	if err = res.checkEmployers(); err != nil {
		return nil, pkgerrors.Wrapf(err, "invalid seed file %s", fname)
	}
	return res, nil
}

func validate(doc any) error {
	if doc == nil {
		return errors.New("empty document")
	}
	res, err := gojsonschema.Validate(gojsonschema.NewGoLoader(Schema()), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return pkgerrors.Wrap(err, "schema validation")
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; "))
}

func (f *Fixtures) checkEmployers() error {
	employers := map[string]bool{}
	for _, u := range f.Users {
		if u.Role == enums.RoleEmployer.String() {
			employers[request.NormalizeEmail(u.Email)] = true
		}
	}
	for i, j := range f.Jobs {
		if !employers[request.NormalizeEmail(j.Employer)] {
			return fmt.Errorf("job %d %q: employer %s is not an employer in users", i+1, j.Title, j.Employer)
		}
	}
	return nil
}

// Apply registers users and creates jobs. Users with already registered emails are skipped,
// and so are jobs of such employers, which makes repeated seeding of the same file a no-op.
func Apply(ctx context.Context, svc Service, f *Fixtures) (Result, error) {
	res := Result{}
	created := map[string]int64{}
	for _, u := range f.Users {
		user, err := svc.Register(ctx, request.Register{Email: u.Email, Password: u.Password, Role: u.Role})
		if err != nil {
			if service.KindOf(err) == enums.ErrorKindConflict {
				log.Printf("[DEBUG] seed user %s already registered", u.Email)
				res.UsersSkipped++
				continue
			}
			return res, pkgerrors.Wrapf(err, "can't register seed user %s", u.Email)
		}
		created[user.Email] = user.ID
		res.UsersCreated++
	}

	for _, j := range f.Jobs {
		employerID, ok := created[request.NormalizeEmail(j.Employer)]
		if !ok {
			res.JobsSkipped++
			continue
		}
		req := request.CreateJob{Title: j.Title, Description: j.Description, Location: j.Location, Salary: j.Salary}
		if _, err := svc.CreateJob(ctx, employerID, req); err != nil {
			return res, pkgerrors.Wrapf(err, "can't create seed job %q", j.Title)
		}
		res.JobsCreated++
	}
	log.Printf("[INFO] seeded %d users (%d skipped), %d jobs (%d skipped)",
		res.UsersCreated, res.UsersSkipped, res.JobsCreated, res.JobsSkipped)
	return res, nil
}
