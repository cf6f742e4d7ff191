// Package notify delivers new application notices to employers by email and to webhooks
package notify

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net/url"
	"os"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/notify"
	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
	"github.com/go-pkgz/syncs"
	"github.com/pkg/errors"
)

//go:generate moq -out mocks/sender.go -pkg mocks -skip-ensure -fmt goimports . Sender

//go:embed templates/application.html.tmpl
var templatesFS embed.FS

// Sender delivers text to a destination, implemented by go-pkgz/notify Email and Webhook
type Sender interface {
	Send(ctx context.Context, destination, text string) error
	String() string
}

// Params defines delivery behavior
type Params struct {
	Template      string        // custom html template file, embedded default used if empty or broken
	Concurrency   int           // max parallel deliveries
	Timeout       time.Duration // timeout of a single delivery including retries
	RetryAttempts int
	RetryDelay    time.Duration
}

// SendersParams defines where notices go
type SendersParams struct {
	SMTP           notify.SMTPParams
	FromEmail      string
	WebhookURLs    []string
	WebhookHeaders []string // "Key:Value" pairs
	WebhookTimeout time.Duration
}

// Application is a notice about a newly submitted application
type Application struct {
	ApplicationID int64     `json:"application_id"`
	JobID         int64     `json:"job_id"`
	JobTitle      string    `json:"job_title"`
	EmployerEmail string    `json:"-"`
	SeekerEmail   string    `json:"seeker_email"`
	CoverLetter   string    `json:"cover_letter"`
	CreatedAt     time.Time `json:"created_at"`
}

// Service sends notices asynchronously on a bounded group of goroutines
type Service struct {
	email       Sender
	webhook     Sender
	webhookURLs []string
	fromEmail   string
	tmpl        *template.Template
	repeater    *repeater.Repeater
	group       *syncs.SizedGroup
	timeout     time.Duration
}

// NewService makes notification service, returns nil if neither smtp nor webhooks configured
func NewService(p Params, sp SendersParams) *Service {
	if sp.SMTP.Host == "" && len(sp.WebhookURLs) == 0 {
		return nil
	}
	if p.Concurrency <= 0 {
		p.Concurrency = 4
	}
	if p.Timeout <= 0 {
		p.Timeout = time.Minute
	}
	if p.RetryAttempts <= 0 {
		p.RetryAttempts = 3
	}
	if p.RetryDelay <= 0 {
		p.RetryDelay = time.Second
	}

	res := &Service{
		fromEmail:   sp.FromEmail,
		webhookURLs: sp.WebhookURLs,
		tmpl:        loadTemplate(p.Template),
		repeater:    repeater.New(&strategy.Backoff{Repeats: p.RetryAttempts, Duration: p.RetryDelay, Factor: 2, Jitter: true}),
		group:       syncs.NewSizedGroup(p.Concurrency),
		timeout:     p.Timeout,
	}
	if sp.SMTP.Host != "" {
		res.email = notify.NewEmail(sp.SMTP)
		log.Printf("[INFO] email notifications enabled, %s:%d", sp.SMTP.Host, sp.SMTP.Port)
	}
	if len(sp.WebhookURLs) > 0 {
		res.webhook = notify.NewWebhook(notify.WebhookParams{Timeout: sp.WebhookTimeout, Headers: sp.WebhookHeaders})
		log.Printf("[INFO] webhook notifications enabled, %d urls", len(sp.WebhookURLs))
	}
	return res
}

// loadTemplate parses custom template file, falls back to embedded one on any problem
func loadTemplate(fname string) *template.Template {
	def := template.Must(template.ParseFS(templatesFS, "templates/application.html.tmpl"))
	if fname == "" {
		return def
	}
	data, err := os.ReadFile(fname) //nolint:gosec // file from the operator's config
	if err != nil {
		log.Printf("[WARN] can't read notification template %s, using default, %v", fname, err)
		return def
	}
	t, err := template.New("custom").Parse(string(data))
	if err != nil {
		log.Printf("[WARN] can't parse notification template %s, using default, %v", fname, err)
		return def
	}
	return t
}

// Submit schedules delivery of the notice and returns immediately
func (s *Service) Submit(a Application) {
	s.group.Go(func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		if err := s.Send(ctx, a); err != nil {
			log.Printf("[WARN] failed to notify about application %d, %v", a.ApplicationID, err)
		}
	})
}

// Close waits for all scheduled deliveries
func (s *Service) Close() {
	s.group.Wait()
}

// Send delivers the notice to the employer email and every webhook, retrying failed deliveries.
// All destinations are tried, the last error returned.
func (s *Service) Send(ctx context.Context, a Application) (err error) {
	if s.email != nil && a.EmployerEmail != "" {
		msg, e := s.MakeApplicationHTML(a)
		if e != nil {
			return e
		}
		dest := s.mailtoDestination(a.EmployerEmail, "New application: "+a.JobTitle)
		if e := s.repeater.Do(ctx, func() error { return s.email.Send(ctx, dest, msg) }); e != nil {
			err = errors.Wrapf(e, "failed to send email to %s", a.EmployerEmail)
		}
	}

	if s.webhook != nil {
		body, e := json.Marshal(a)
		if e != nil {
			return errors.Wrap(e, "can't marshal webhook payload")
		}
		for _, u := range s.webhookURLs {
			if e := s.repeater.Do(ctx, func() error { return s.webhook.Send(ctx, u, string(body)) }); e != nil {
				err = errors.Wrapf(e, "failed to send webhook to %s", u)
			}
		}
	}
	return err
}

// MakeApplicationHTML renders the email body
func (s *Service) MakeApplicationHTML(a Application) (string, error) {
	buf := bytes.Buffer{}
	if err := s.tmpl.Execute(&buf, a); err != nil {
		return "", errors.Wrap(err, "failed to apply template")
	}
	return buf.String(), nil
}

func (s *Service) mailtoDestination(to, subj string) string {
	v := url.Values{}
	v.Set("subject", subj)
	if s.fromEmail != "" {
		v.Set("from", s.fromEmail)
	}
	return "mailto:" + to + "?" + v.Encode()
}
