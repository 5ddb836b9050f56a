// @title			Taskdesk API
// @version		1.0
// @description	Task assignment backend: managers create and assign tasks, employees progress them, a background mailer handles notifications and deadline reminders.
// @BasePath		/api/v1

// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/smtp"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/taskdesk/taskdesk/internal/config"
	"github.com/taskdesk/taskdesk/internal/database"
	"github.com/taskdesk/taskdesk/internal/domain"
	"github.com/taskdesk/taskdesk/internal/escalate"
	"github.com/taskdesk/taskdesk/internal/handler"
	"github.com/taskdesk/taskdesk/internal/logger"
	"github.com/taskdesk/taskdesk/internal/mailer"
	"github.com/taskdesk/taskdesk/internal/queue"
	"github.com/taskdesk/taskdesk/internal/repository"
	"github.com/taskdesk/taskdesk/internal/scheduler"
	"github.com/urfave/cli/v2"
)

// mailFlags are shared by every command that dispatches mail.
var mailFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "smtp-addr",
		Value:   "localhost:25",
		Usage:   "SMTP server address (host:port)",
		EnvVars: []string{"SMTP_ADDR"},
	},
	&cli.StringFlag{
		Name:    "smtp-user",
		Usage:   "SMTP username (plain auth, optional)",
		EnvVars: []string{"SMTP_USER"},
	},
	&cli.StringFlag{
		Name:    "smtp-password",
		Usage:   "SMTP password (plain auth, optional)",
		EnvVars: []string{"SMTP_PASSWORD"},
	},
	&cli.StringFlag{
		Name:    "mail-from",
		Value:   "taskdesk@localhost",
		Usage:   "Sender address for outbound mail",
		EnvVars: []string{"MAIL_FROM"},
	},
	&cli.StringFlag{
		Name:    "admin-email",
		Value:   "admin@localhost",
		Usage:   "Recipient of error escalation mail",
		EnvVars: []string{"ADMIN_EMAIL"},
	},
	&cli.IntFlag{
		Name:    "queue-size",
		Value:   config.DefaultQueueSize,
		Usage:   "Deferred job queue buffer size",
		EnvVars: []string{"QUEUE_SIZE"},
	},
	&cli.IntFlag{
		Name:    "mail-workers",
		Value:   config.DefaultMailWorkers,
		Usage:   "Number of mail dispatch workers",
		EnvVars: []string{"MAIL_WORKERS"},
	},
}

func main() {
	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "taskdesk",
		Usage: "Multi-tenant task assignment backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:     "database-url",
				Aliases:  []string{"d"},
				Value:    config.DefaultDatabaseURL,
				Usage:    "PostgreSQL database URL",
				EnvVars:  []string{"DATABASE_URL"},
				Required: true,
			},
		},
		Before: func(c *cli.Context) error {
			logger.Setup(logger.ParseLevel(c.String("log-level")))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the web server, mail workers, and reminder scheduler",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Value:   config.DefaultPort,
						Usage:   "HTTP server port",
						EnvVars: []string{"PORT"},
					},
					&cli.StringFlag{
						Name:     "jwt-secret",
						Usage:    "HMAC secret for bearer tokens",
						EnvVars:  []string{"JWT_SECRET"},
						Required: true,
					},
					&cli.DurationFlag{
						Name:    "reminder-interval",
						Value:   config.DefaultReminderInterval,
						Usage:   "How often the reminder sweep runs",
						EnvVars: []string{"REMINDER_INTERVAL"},
					},
					&cli.DurationFlag{
						Name:    "reminder-lookahead",
						Value:   config.DefaultReminderLookahead,
						Usage:   "How far ahead of a deadline reminders fire",
						EnvVars: []string{"REMINDER_LOOKAHEAD"},
					},
				}, mailFlags...),
				Action: runServe,
			},
			{
				Name:  "remind",
				Usage: "Run a single reminder sweep and dispatch the resulting mail",
				Flags: append([]cli.Flag{
					&cli.DurationFlag{
						Name:    "reminder-lookahead",
						Value:   config.DefaultReminderLookahead,
						Usage:   "How far ahead of a deadline reminders fire",
						EnvVars: []string{"REMINDER_LOOKAHEAD"},
					},
				}, mailFlags...),
				Action: runRemind,
			},
			{
				Name:  "useradd",
				Usage: "Create a user with a manager or employee profile",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "role", Required: true, Usage: "manager or employee"},
				},
				Action: runUserAdd,
			},
			{
				Name:  "token",
				Usage: "Issue a development bearer token for a user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user-id", Required: true},
					&cli.StringFlag{
						Name:     "jwt-secret",
						EnvVars:  []string{"JWT_SECRET"},
						Required: true,
					},
					&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
				},
				Action: runToken,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

// mailStack bundles the deferred-dispatch machinery shared by serve and
// remind.
type mailStack struct {
	jobs     *queue.Queue
	pool     *queue.WorkerPool
	notifier *mailer.Notifier
	reporter *escalate.Reporter
}

func newMailStack(c *cli.Context, db *database.DB) *mailStack {
	var auth smtp.Auth
	if user := c.String("smtp-user"); user != "" {
		host := c.String("smtp-addr")
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		auth = smtp.PlainAuth("", user, c.String("smtp-password"), host)
	}

	transport := mailer.NewSMTPTransport(c.String("smtp-addr"), auth, config.DefaultSMTPTimeout)

	taskRepo := repository.NewTaskRepository(db.Pool())
	profileRepo := repository.NewProfileRepository(db.Pool())
	notifier := mailer.NewNotifier(taskRepo, profileRepo, transport,
		c.String("mail-from"), c.String("admin-email"))

	jobs := queue.New(c.Int("queue-size"))
	reporter := escalate.NewReporter(notifier, jobs)

	pool := queue.NewWorkerPool(jobs, c.Int("mail-workers"))
	pool.SetErrorHandler(func(job queue.Job, err error) {
		// Escalating a failed admin alert would loop.
		if job.Type() == escalate.JobTypeAdminAlert {
			return
		}
		reporter.Report(escalate.Report{
			URL:     "job:" + job.Type(),
			Actor:   "System",
			Kind:    "MailDispatchError",
			Message: err.Error(),
		})
	})

	return &mailStack{
		jobs:     jobs,
		pool:     pool,
		notifier: notifier,
		reporter: reporter,
	}
}

func runServe(c *cli.Context) error {
	ctx := c.Context

	db, err := database.New(ctx, c.String("database-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db.Pool()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	stack := newMailStack(c, db)
	stack.pool.Start()

	schedCtx, stopScheduler := context.WithCancel(ctx)
	defer stopScheduler()

	taskRepo := repository.NewTaskRepository(db.Pool())
	sched := scheduler.NewReminderScheduler(
		taskRepo,
		stack.notifier,
		stack.jobs,
		c.Duration("reminder-interval"),
		c.Duration("reminder-lookahead"),
	)
	go sched.Run(schedCtx)

	h := handler.New(db.Pool(), stack.jobs, stack.notifier, stack.reporter,
		[]byte(c.String("jwt-secret")))

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	port := c.String("port")
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "server_addr", "http://localhost:"+port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-done:
		slog.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// Stop producing, then drain the mail already queued.
	stopScheduler()
	stack.jobs.Close()
	stack.pool.Drain()

	slog.Info("server stopped")
	return nil
}

func runRemind(c *cli.Context) error {
	ctx := c.Context

	db, err := database.New(ctx, c.String("database-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db.Pool()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	stack := newMailStack(c, db)
	stack.pool.Start()

	taskRepo := repository.NewTaskRepository(db.Pool())
	sched := scheduler.NewReminderScheduler(
		taskRepo,
		stack.notifier,
		stack.jobs,
		0, // one-shot, no ticker
		c.Duration("reminder-lookahead"),
	)

	enqueued, sweepErr := sched.SweepOnce(ctx)

	stack.jobs.Close()
	stack.pool.Drain()

	if sweepErr != nil {
		return fmt.Errorf("reminder sweep: %w", sweepErr)
	}

	slog.Info("reminder sweep finished", "enqueued", enqueued)
	return nil
}

func runUserAdd(c *cli.Context) error {
	ctx := c.Context

	role := domain.Role(c.String("role"))
	if !role.IsValid() {
		return fmt.Errorf("role must be %q or %q", domain.RoleManager, domain.RoleEmployee)
	}

	db, err := database.New(ctx, c.String("database-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db.Pool()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	profileRepo := repository.NewProfileRepository(db.Pool())
	user, err := profileRepo.CreateUser(ctx, c.String("username"), c.String("email"), role)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Printf("created %s %s (%s)\n", role, user.Username, user.ID)
	return nil
}

func runToken(c *cli.Context) error {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   c.String("user-id"),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.Duration("ttl"))),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(c.String("jwt-secret")))
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	fmt.Println(token)
	return nil
}
