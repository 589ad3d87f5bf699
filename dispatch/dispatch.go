// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/danielhkuo/matchvote/middleware"
	"github.com/danielhkuo/matchvote/models"
)

// maxRecordedBody bounds the response text kept on an outcome
const maxRecordedBody = 500

const defaultRequestTimeout = 30 * time.Second

// DefaultAnswers is the quiz rubric submitted during onboarding
func DefaultAnswers() map[string]float64 {
	return map[string]float64{
		"1": 4.3, "2": 4.3, "3": 6.2, "4": 9,
		"5": 8.4, "6": 8.8, "7": 9.7, "8": 8.6,
		"9": 1.6, "10": 7.2, "11": 6.9, "12": 4.5,
	}
}

// Profile is what gets submitted for each member of the couple during onboarding
type Profile struct {
	Gender     string
	Preference string
	Answers    map[string]float64
}

type Config struct {
	VoteURL       string
	OnboardingURL string
	// OnboardingPhrase marks a 4xx vote response as "onboarding required"
	OnboardingPhrase string
	// RequestTimeout bounds every individual request
	RequestTimeout time.Duration
	// MaxInFlight bounds concurrent matchers; 0 means no bound
	MaxInFlight int
	// SingleFlightOnboarding collapses concurrent onboarding of the same couple
	SingleFlightOnboarding bool
	Profile                Profile
}

type Dispatcher struct {
	client *http.Client
	cfg    Config
	logger *slog.Logger

	onboarding singleflight.Group
}

func New(client *http.Client, cfg Config, logger *slog.Logger) *Dispatcher {
	if cfg.OnboardingPhrase == "" {
		cfg.OnboardingPhrase = models.OnboardingRequiredPhrase
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Profile.Gender == "" {
		cfg.Profile.Gender = models.DefaultGender
	}
	if cfg.Profile.Preference == "" {
		cfg.Profile.Preference = models.DefaultPreference
	}
	if cfg.Profile.Answers == nil {
		cfg.Profile.Answers = DefaultAnswers()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{client: client, cfg: cfg, logger: logger}
}

// Dispatch votes for pair once per matcher, concurrently, and returns one
// outcome per matcher in the same order as matchers.
//
// Cancelling ctx stops votes that have not been sent yet; votes already sent
// run to completion (retry included) so every issued vote is accounted for.
func (d *Dispatcher) Dispatch(ctx context.Context, pair models.VotePair, matchers []string) []models.VoteOutcome {
	outcomes := make([]models.VoteOutcome, len(matchers))

	// Tasks never return an error, so one matcher can't cancel its siblings
	var g errgroup.Group
	if d.cfg.MaxInFlight > 0 {
		g.SetLimit(d.cfg.MaxInFlight)
	}

	for i, matcher := range matchers {
		g.Go(func() error {
			outcomes[i] = d.vote(ctx, pair, matcher)
			return nil
		})
	}
	g.Wait()

	return outcomes
}

// vote runs the per-matcher protocol: send, onboard and retry once if
// required, done. At most two vote requests are sent.
func (d *Dispatcher) vote(ctx context.Context, pair models.VotePair, matcher string) models.VoteOutcome {
	outcome := models.VoteOutcome{Matcher: matcher}

	if err := ctx.Err(); err != nil {
		outcome.Response = err.Error()
		outcome.Err = fmt.Errorf("%w: %v", models.ErrNotSent, err)
		return outcome
	}

	// From here on the caller can no longer abandon this matcher
	ctx = context.WithoutCancel(ctx)
	req := pair.Request(matcher)

	resp, err := d.send(ctx, req)
	outcome.Attempts = 1

	if err == nil && d.onboardingRequired(resp) {
		d.logger.Info("onboarding required, submitting quiz",
			"matcher", matcher,
			"person1", pair.Person1,
			"person2", pair.Person2,
		)
		d.onboard(ctx, pair)

		resp, err = d.send(ctx, req)
		outcome.Attempts = 2
		outcome.Retried = true
	}

	if err != nil {
		outcome.Response = err.Error()
		outcome.Err = fmt.Errorf("%w: %v", models.ErrTransport, err)
		d.logger.Warn("vote failed", "matcher", matcher, "attempts", outcome.Attempts, "error", err)
		return outcome
	}

	outcome.Status = resp.StatusCode
	outcome.Response = truncate(resp.Body)

	switch {
	case resp.OK():
		outcome.Succeeded = true
		d.logger.Info("vote succeeded", "matcher", matcher, "status", resp.StatusCode, "attempts", outcome.Attempts)
		return outcome
	case d.onboardingRequired(resp):
		outcome.Err = fmt.Errorf("%w: status %d", models.ErrPreconditionFailure, resp.StatusCode)
	default:
		outcome.Err = fmt.Errorf("%w: status %d", models.ErrRemoteRejection, resp.StatusCode)
	}

	d.logger.Warn("vote rejected", "matcher", matcher, "status", resp.StatusCode, "attempts", outcome.Attempts)
	return outcome
}

func (d *Dispatcher) send(ctx context.Context, req models.VoteRequest) (middleware.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.RequestTimeout)
	defer cancel()
	return middleware.PostJSON(ctx, d.client, d.cfg.VoteURL, req)
}

func (d *Dispatcher) onboardingRequired(resp middleware.Response) bool {
	return resp.ClientError() && bytes.Contains(resp.Body, []byte(d.cfg.OnboardingPhrase))
}

// onboard submits the quiz for both members of the pair and returns once
// both submissions have been attempted. Their results are only logged.
func (d *Dispatcher) onboard(ctx context.Context, pair models.VotePair) {
	if !d.cfg.SingleFlightOnboarding {
		d.onboardPair(ctx, pair)
		return
	}

	key := pair.Person1 + "\x00" + pair.Person2
	_, _, shared := d.onboarding.Do(key, func() (interface{}, error) {
		d.onboardPair(ctx, pair)
		return nil, nil
	})
	if shared {
		d.logger.Debug("joined in-flight onboarding", "person1", pair.Person1, "person2", pair.Person2)
	}
}

func (d *Dispatcher) onboardPair(ctx context.Context, pair models.VotePair) {
	var wg sync.WaitGroup
	for _, email := range []string{pair.Person1, pair.Person2} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.submitOnboarding(ctx, email); err != nil {
				d.logger.Warn("onboarding failed", "email", email, "error", err)
				return
			}
			d.logger.Info("onboarding submitted", "email", email)
		}()
	}
	wg.Wait()
}

func (d *Dispatcher) submitOnboarding(ctx context.Context, email string) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.RequestTimeout)
	defer cancel()

	resp, err := middleware.PostJSON(ctx, d.client, d.cfg.OnboardingURL, models.OnboardingRequest{
		Email:      email,
		Answers:    d.cfg.Profile.Answers,
		Gender:     d.cfg.Profile.Gender,
		Preference: d.cfg.Profile.Preference,
	})
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(resp.Body))
	}
	return nil
}

func truncate(body []byte) string {
	if len(body) > maxRecordedBody {
		body = body[:maxRecordedBody]
	}
	return string(bytes.TrimSpace(body))
}
