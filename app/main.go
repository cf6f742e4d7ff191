package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
	gonotify "github.com/go-pkgz/notify"
	"github.com/joho/godotenv"
	"github.com/umputun/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/umputun/jobboard/app/notify"
	"github.com/umputun/jobboard/app/seed"
	"github.com/umputun/jobboard/app/service"
	"github.com/umputun/jobboard/app/token"
	"github.com/umputun/jobboard/app/web"
	"github.com/umputun/jobboard/app/web/persistence"
)

var opts struct {
	Listen string   `long:"listen" env:"JOBBOARD_LISTEN" default:":8080" description:"listen address"`
	DB     string   `long:"db" env:"JOBBOARD_DB" default:"jobboard.db" description:"sqlite file or postgres:// dsn"`
	CORS   []string `long:"cors" env:"JOBBOARD_CORS" env-delim:"," default:"http://localhost:5173" description:"allowed CORS origins"`
	Seed   string   `long:"seed" env:"JOBBOARD_SEED" description:"yaml file with users and jobs to load on start"`
	Dbg    bool     `long:"dbg" env:"JOBBOARD_DEBUG" description:"debug mode"`

	Auth struct {
		Secret     string        `long:"secret" env:"SECRET" required:"true" description:"access token signing secret"`
		TTL        time.Duration `long:"ttl" env:"TTL" default:"24h" description:"access token lifetime"`
		BcryptCost int           `long:"bcrypt-cost" env:"BCRYPT_COST" default:"10" description:"bcrypt cost of password hashes"`
		RateLimit  float64       `long:"rate-limit" env:"RATE_LIMIT" default:"5" description:"max login and register requests per second per ip"`
	} `group:"auth" namespace:"auth" env-namespace:"JOBBOARD_AUTH"`

	Notify struct {
		SMTPHost       string        `long:"smtp-host" env:"SMTP_HOST" description:"SMTP host"`
		SMTPPort       int           `long:"smtp-port" env:"SMTP_PORT" default:"587" description:"SMTP port"`
		SMTPUsername   string        `long:"smtp-username" env:"SMTP_USERNAME" description:"SMTP user name"`
		SMTPPassword   string        `long:"smtp-password" env:"SMTP_PASSWORD" description:"SMTP password"`
		SMTPTLS        bool          `long:"smtp-tls" env:"SMTP_TLS" description:"enable SMTP TLS"`
		SMTPStartTLS   bool          `long:"smtp-starttls" env:"SMTP_STARTTLS" description:"enable SMTP StartTLS"`
		SMTPTimeOut    time.Duration `long:"smtp-timeout" env:"SMTP_TIMEOUT" default:"10s" description:"SMTP TCP connection timeout"`
		FromEmail      string        `long:"from" env:"FROM" description:"SMTP from email"`
		Webhooks       []string      `long:"webhook" env:"WEBHOOKS" env-delim:"," description:"webhook url(s) receiving new applications"`
		WebhookHeaders []string      `long:"webhook-header" env:"WEBHOOK_HEADERS" env-delim:"," description:"webhook header(s), Key:Value"`
		Template       string        `long:"template" env:"TEMPLATE" description:"custom email template file"`
		Concurrency    int           `long:"concurrency" env:"CONCURRENCY" default:"4" description:"max parallel deliveries"`
		Timeout        time.Duration `long:"timeout" env:"TIMEOUT" default:"1m" description:"delivery timeout including retries"`
		RetryAttempts  int           `long:"retry-attempts" env:"RETRY_ATTEMPTS" default:"3" description:"delivery attempts"`
		RetryDelay     time.Duration `long:"retry-delay" env:"RETRY_DELAY" default:"1s" description:"initial delay between attempts"`
		HostName       string        `long:"host" env:"HOSTNAME" description:"host name used in default from email"`
	} `group:"notify" namespace:"notify" env-namespace:"JOBBOARD_NOTIFY"`

	Log struct {
		Enabled         bool   `long:"enabled" env:"ENABLED" description:"enable logging to file"`
		Filename        string `long:"filename" env:"FILENAME" default:"jobboard.log" description:"log file name"`
		MaxSize         int    `long:"max-size" env:"MAX_SIZE" default:"100" description:"max log file size in megabytes"`
		MaxBackups      int    `long:"max-backups" env:"MAX_BACKUPS" default:"7" description:"max number of rotated files"`
		MaxAge          int    `long:"max-age" env:"MAX_AGE" default:"30" description:"max days to keep rotated files"`
		EnabledCompress bool   `long:"compress" env:"COMPRESS" description:"compress rotated files"`
	} `group:"log" namespace:"log" env-namespace:"JOBBOARD_LOG"`
}

var revision = "unknown"

func main() {
	fmt.Printf("jobboard %s\n", revision)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Printf("failed to load .env, %v\n", err)
	}
	if _, err := flags.Parse(&opts); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}
	setupLog(opts.Dbg, setupLogs())

	defer func() {
		if x := recover(); x != nil {
			log.Printf("[WARN] run time panic:\n%v", x)
			panic(x)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	signals(cancel) // handle SIGQUIT, SIGINT and SIGTERM

	if err := run(ctx); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

// run wires store, services and web server, blocks until ctx canceled
func run(ctx context.Context) error {
	store, err := persistence.Open(opts.DB)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("[WARN] failed to close store, %v", err)
		}
	}()

	tokens, err := token.New(token.Params{Secret: opts.Auth.Secret, TTL: opts.Auth.TTL})
	if err != nil {
		return fmt.Errorf("failed to make token service: %w", err)
	}

	svc := &service.JobBoard{Store: store, Tokens: tokens, BcryptCost: opts.Auth.BcryptCost}
	if notif := makeNotifier(); notif != nil {
		svc.Notifier = notif
		defer notif.Close()
	}

	if opts.Seed != "" {
		fixtures, err := seed.Load(opts.Seed)
		if err != nil {
			return fmt.Errorf("failed to load seed: %w", err)
		}
		if _, err = seed.Apply(ctx, svc, fixtures); err != nil {
			return fmt.Errorf("failed to apply seed: %w", err)
		}
	}

	srv, err := web.New(web.Config{
		Service:       svc,
		Tokens:        tokens,
		Version:       revision,
		CORSOrigins:   opts.CORS,
		AuthRateLimit: opts.Auth.RateLimit,
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx, opts.Listen)
}

// makeNotifier returns nil if neither smtp nor webhooks configured
func makeNotifier() *notify.Service {
	if opts.Notify.SMTPHost != "" && opts.Notify.FromEmail == "" {
		opts.Notify.FromEmail = "jobboard@" + makeHostName()
	}
	return notify.NewService(
		notify.Params{
			Template:      opts.Notify.Template,
			Concurrency:   opts.Notify.Concurrency,
			Timeout:       opts.Notify.Timeout,
			RetryAttempts: opts.Notify.RetryAttempts,
			RetryDelay:    opts.Notify.RetryDelay,
		},
		notify.SendersParams{
			SMTP: gonotify.SMTPParams{
				Host:        opts.Notify.SMTPHost,
				Port:        opts.Notify.SMTPPort,
				TLS:         opts.Notify.SMTPTLS,
				StartTLS:    opts.Notify.SMTPStartTLS,
				ContentType: "text/html",
				Charset:     "UTF-8",
				Username:    opts.Notify.SMTPUsername,
				Password:    opts.Notify.SMTPPassword,
				TimeOut:     opts.Notify.SMTPTimeOut,
			},
			FromEmail:      opts.Notify.FromEmail,
			WebhookURLs:    opts.Notify.Webhooks,
			WebhookHeaders: opts.Notify.WebhookHeaders,
			WebhookTimeout: opts.Notify.SMTPTimeOut,
		},
	)
}

func makeHostName() string {
	if opts.Notify.HostName != "" {
		return opts.Notify.HostName
	}
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}

// setupLogs returns log destination, rotated file if enabled, stdout otherwise
func setupLogs() io.Writer {
	if !opts.Log.Enabled {
		return os.Stdout
	}
	return &lumberjack.Logger{
		Filename:   opts.Log.Filename,
		MaxSize:    opts.Log.MaxSize,
		MaxBackups: opts.Log.MaxBackups,
		MaxAge:     opts.Log.MaxAge,
		Compress:   opts.Log.EnabledCompress,
	}
}

func setupLog(dbg bool, out io.Writer) {
	if dbg {
		log.Setup(log.Out(out), log.Err(out), log.Debug, log.Msec, log.CallerFunc, log.CallerPkg, log.CallerFile)
		return
	}
	log.Setup(log.Out(out), log.Err(out), log.Msec)
}

func signals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	go func() {
		stacktrace := make([]byte, 8192)
		for sig := range sigChan {
			if sig == syscall.SIGQUIT { // catch SIGQUIT and print stack traces
				length := runtime.Stack(stacktrace, true)
				fmt.Println(string(stacktrace[:length]))
				continue
			}
			log.Printf("[INFO] %s received, shutting down", sig)
			cancel()
		}
	}()
	signal.Notify(sigChan, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGTERM)
}
