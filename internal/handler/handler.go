package handler

import (
	"context"
	"fmt"
	"log/slog"

	polargo "github.com/polarsource/polar-go"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/strathlearn/api/internal/challenge"
	"github.com/strathlearn/api/internal/config"
	"github.com/strathlearn/api/internal/judge"
	"github.com/strathlearn/api/internal/metrics"
	"github.com/strathlearn/api/internal/services"
)

// SubscriptionChecker answers whether a user has an active subscription with
// the payments provider. Lookup failures are treated as "not subscribed" by
// the gate.
type SubscriptionChecker interface {
	HasActiveSubscription(ctx context.Context, userID string) (bool, error)
}

// Handler holds all dependencies for HTTP handlers
type Handler struct {
	svc           *services.Service
	challenges    *challenge.Store
	runner        judge.Runner
	polarClient   *polargo.Polar
	subscriptions SubscriptionChecker
	oauth2Config  *oauth2.Config
	jwtSecret     []byte
	config        *config.Config
	logger        *slog.Logger
	metrics       *metrics.Collector
	gatherer      prometheus.Gatherer
	submitLimits  *userRateLimiter
}

// New creates a new Handler instance
func New(cfg *config.Config, svc *services.Service, challenges *challenge.Store, runner judge.Runner, collector *metrics.Collector, gatherer prometheus.Gatherer, logger *slog.Logger) (*Handler, error) {
	// Initialize Polar client
	polarClient := polargo.New(
		polargo.WithServer(cfg.Polar.Server),
		polargo.WithSecurity(cfg.Polar.AccessToken),
	)

	// Initialize OAuth2 config
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.GitHub.ClientID,
		ClientSecret: cfg.GitHub.ClientSecret,
		RedirectURL:  cfg.GitHub.RedirectURL,
		Scopes:       []string{"read:user", "user:email"},
		Endpoint:     github.Endpoint,
	}

	return &Handler{
		svc:           svc,
		challenges:    challenges,
		runner:        runner,
		polarClient:   polarClient,
		subscriptions: &polarSubscriptionChecker{client: polarClient},
		oauth2Config:  oauth2Config,
		jwtSecret:     []byte(cfg.JWT.Secret),
		config:        cfg,
		logger:        logger,
		metrics:       collector,
		gatherer:      gatherer,
		submitLimits:  newUserRateLimiter(),
	}, nil
}

// polarSubscriptionChecker resolves customer state through Polar, keyed by
// our user id (the provider-side external id set at checkout).
type polarSubscriptionChecker struct {
	client *polargo.Polar
}

func (c *polarSubscriptionChecker) HasActiveSubscription(ctx context.Context, userID string) (bool, error) {
	res, err := c.client.Customers.GetStateExternal(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get customer state: %w", err)
	}
	if res.CustomerState == nil {
		return false, fmt.Errorf("customer state response is nil")
	}

	for _, sub := range res.CustomerState.ActiveSubscriptions {
		if string(sub.Status) == services.SubscriptionStatusActive {
			return true, nil
		}
	}
	return false, nil
}
