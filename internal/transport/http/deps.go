package http

import (
	"time"

	"github.com/taskpulse-api/internal/application/auth"
	"github.com/taskpulse-api/internal/application/otp"
	"github.com/taskpulse-api/internal/application/report"
	"github.com/taskpulse-api/internal/application/session"
	"github.com/taskpulse-api/internal/application/user"
	"github.com/taskpulse-api/internal/config"
	"github.com/taskpulse-api/internal/infrastructure/dynamo"
	"github.com/taskpulse-api/internal/infrastructure/google"
	jwtinfra "github.com/taskpulse-api/internal/infrastructure/jwt"
	redisinfra "github.com/taskpulse-api/internal/infrastructure/redis"
	s3infra "github.com/taskpulse-api/internal/infrastructure/s3"
	"github.com/taskpulse-api/internal/infrastructure/smtp"
	"github.com/taskpulse-api/internal/infrastructure/sns"
	"github.com/taskpulse-api/internal/transport/http/handler"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo       *dynamo.UserRepo
	SessionRepo    *dynamo.SessionRepo
	OTPRepo        *dynamo.OTPRepo
	ReportRepo     *dynamo.ReportRepo
	ExportStore    *s3infra.Store
	Events         sns.EventPublisher
	Mailer         smtp.Mailer
	JWTProvider    *jwtinfra.Provider
	GoogleVerifier *google.Verifier
	OTPThrottle    *redisinfra.OTPThrottle // nil disables issuance throttling
	Cache          *redisinfra.Cache       // probed by the health check when set
	Now            func() time.Time
}

type services struct {
	sessions session.Service
	users    user.Service
	codes    auth.Service
	reports  report.Service
}

func newServices(cfg *config.Config, deps *Deps) services {
	otpDeps := otp.ServiceDeps{Store: deps.OTPRepo, MaxAttempts: cfg.OTPMaxAttempts, Now: deps.Now}
	if deps.OTPThrottle != nil {
		otpDeps.Throttle = deps.OTPThrottle
	}
	codes := otp.NewService(otpDeps)

	events := deps.Events
	if events == nil {
		events = sns.NopPublisher{}
	}

	sessions := session.NewService(session.ServiceDeps{
		UserRepo:        deps.UserRepo,
		SessionRepo:     deps.SessionRepo,
		JWTProvider:     deps.JWTProvider,
		GoogleVerifier:  deps.GoogleVerifier,
		RefreshTokenDur: cfg.RefreshTokenDur,
		Now:             deps.Now,
	})
	return services{
		sessions: sessions,
		users: user.NewService(user.ServiceDeps{
			UserRepo: deps.UserRepo,
			Sessions: sessions,
			Now:      deps.Now,
		}),
		codes: auth.NewService(auth.ServiceDeps{
			Codes:       codes,
			UserRepo:    deps.UserRepo,
			SessionRepo: deps.SessionRepo,
			Mailer:      deps.Mailer,
			FrontendURL: cfg.FrontendURL,
		}),
		reports: report.NewService(report.ServiceDeps{
			Reports:  deps.ReportRepo,
			Exports:  deps.ExportStore,
			Events:   events,
			Location: cfg.Location(),
			Now:      deps.Now,
		}),
	}
}

func healthChecks(deps *Deps) map[string]handler.Pinger {
	checks := map[string]handler.Pinger{}
	if deps.Cache != nil {
		checks["redis"] = deps.Cache
	}
	return checks
}
