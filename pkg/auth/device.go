package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/forgelabs/forgecred/pkg/metrics"
)

const (
	defaultPollInterval    = 5 * time.Second
	slowDownStep           = 5 * time.Second
	defaultMaxPollFailures = 3
)

// SessionStatus is the state of a device-authorization session.
type SessionStatus string

const (
	StatusRequested SessionStatus = "requested"
	StatusPolling   SessionStatus = "polling"
	StatusGranted   SessionStatus = "granted"
	StatusDeclined  SessionStatus = "declined"
	StatusTimedOut  SessionStatus = "timed_out"
	StatusCanceled  SessionStatus = "canceled"
	StatusError     SessionStatus = "error"
)

// Terminal reports whether the session has finished.
func (s SessionStatus) Terminal() bool {
	switch s {
	case StatusGranted, StatusDeclined, StatusTimedOut, StatusCanceled, StatusError:
		return true
	}
	return false
}

// DeviceFlowClient is the subset of EndpointClient a session needs.
type DeviceFlowClient interface {
	RequestDeviceCode(ctx context.Context, scopes []string) (*DeviceCode, error)
	PollForToken(ctx context.Context, deviceCode string) (*oauth2.Token, error)
}

// Callbacks let a UI render login instructions and react to completion.
// Both are optional and are invoked from the session's polling goroutine.
type Callbacks struct {
	OnUserCode func(userCode, verificationURI string)
	OnTerminal func(status SessionStatus)
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithScopes sets the scopes requested from the provider.
func WithScopes(scopes []string) SessionOption {
	return func(s *Session) { s.scopes = scopes }
}

// WithCallbacks registers UI callbacks.
func WithCallbacks(cb Callbacks) SessionOption {
	return func(s *Session) { s.callbacks = cb }
}

// WithClock replaces the wall clock used for expiry decisions.
func WithClock(clock Clock) SessionOption {
	return func(s *Session) { s.clock = clock }
}

// WithLogger attaches a logger to the session.
func WithLogger(log *zap.SugaredLogger) SessionOption {
	return func(s *Session) { s.log = log }
}

// WithPollInterval overrides the provider-suggested poll interval.
func WithPollInterval(interval time.Duration) SessionOption {
	return func(s *Session) { s.interval = interval }
}

// WithMaxPollFailures bounds consecutive transient poll failures before the
// session gives up.
func WithMaxPollFailures(n int) SessionOption {
	return func(s *Session) { s.maxFailures = n }
}

// Session drives one device-authorization attempt from code request to a
// terminal state. Polling runs on a background goroutine with exactly one
// poll in flight at a time; Cancel is idempotent and guarantees no state
// transition happens afterwards.
type Session struct {
	client      DeviceFlowClient
	clock       Clock
	log         *zap.SugaredLogger
	callbacks   Callbacks
	scopes      []string
	maxFailures int
	cancel      context.CancelFunc
	done        chan struct{}

	mu              sync.Mutex
	status          SessionStatus
	token           *oauth2.Token
	err             error
	interval        time.Duration
	expiresAt       time.Time
	userCode        string
	verificationURI string
	completeURI     string
}

// StartSession requests a device code and begins polling in the background.
func StartSession(ctx context.Context, client DeviceFlowClient, opts ...SessionOption) *Session {
	s := &Session{
		client:      client,
		clock:       SystemClock(),
		log:         zap.NewNop().Sugar(),
		maxFailures: defaultMaxPollFailures,
		done:        make(chan struct{}),
		status:      StatusRequested,
	}
	for _, opt := range opts {
		opt(s)
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.run(runCtx)
	return s
}

// Status returns the current session status.
func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Token returns the granted token set, or nil before StatusGranted.
func (s *Session) Token() *oauth2.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// UserCode returns the code the user must enter, with the verification URI.
// Empty until the provider has issued a device code.
func (s *Session) UserCode() (userCode, verificationURI string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userCode, s.verificationURI
}

// VerificationURIComplete returns the provider's one-click verification URI,
// if it advertised one.
func (s *Session) VerificationURIComplete() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completeURI
}

// Wait blocks until the session reaches a terminal state or ctx is done.
// The returned error is nil only for StatusGranted.
func (s *Session) Wait(ctx context.Context) (SessionStatus, error) {
	select {
	case <-ctx.Done():
		return s.Status(), ctx.Err()
	case <-s.done:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.err
}

// Cancel stops the session. Safe to call concurrently with an in-flight poll
// and a second call is a no-op.
func (s *Session) Cancel() {
	s.cancel()
	s.terminate(StatusCanceled, nil, ErrCanceled)
}

func (s *Session) run(ctx context.Context) {
	defer s.cancel()

	grant, err := s.client.RequestDeviceCode(ctx, s.scopes)
	if err != nil {
		if ctx.Err() != nil {
			s.terminate(StatusCanceled, nil, ErrCanceled)
			return
		}
		s.log.Errorw("device code request failed", "error", err)
		s.terminate(StatusError, nil, err)
		return
	}

	s.mu.Lock()
	if s.status.Terminal() {
		s.mu.Unlock()
		return
	}
	s.status = StatusPolling
	s.userCode = grant.UserCode
	s.verificationURI = grant.VerificationURI
	s.completeURI = grant.VerificationURIComplete
	if s.interval == 0 {
		s.interval = time.Duration(grant.Interval) * time.Second
	}
	if s.interval == 0 {
		s.interval = defaultPollInterval
	}
	// The provider's expires_in fixes the session deadline once; slow_down
	// never extends it.
	s.expiresAt = s.clock.Now().Add(time.Duration(grant.ExpiresIn) * time.Second)
	interval := s.interval
	s.mu.Unlock()

	s.log.Infow("device code issued", "user_code", grant.UserCode, "verification_uri", grant.VerificationURI, "interval", interval)
	if s.callbacks.OnUserCode != nil {
		s.callbacks.OnUserCode(grant.UserCode, grant.VerificationURI)
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()
	failures := 0

	for {
		select {
		case <-ctx.Done():
			s.terminate(StatusCanceled, nil, ErrCanceled)
			return
		case <-timer.C:
		}

		if !s.clock.Now().Before(s.deadline()) {
			s.terminate(StatusTimedOut, nil, ErrSessionExpired)
			return
		}

		token, err := s.client.PollForToken(ctx, grant.DeviceCode)
		switch {
		case err == nil:
			s.terminate(StatusGranted, token, nil)
			return
		case ctx.Err() != nil:
			s.terminate(StatusCanceled, nil, ErrCanceled)
			return
		}

		var pending *PendingError
		if errors.As(err, &pending) {
			failures = 0
			switch pending.Kind {
			case PendingAuthorization:
				// keep polling
			case PendingSlowDown:
				s.growInterval(slowDownStep)
			case PendingDeclined:
				s.terminate(StatusDeclined, nil, ErrDeclined)
				return
			case PendingExpired:
				s.terminate(StatusTimedOut, nil, ErrSessionExpired)
				return
			}
		} else {
			failures++
			s.log.Warnw("device token poll failed", "attempt", failures, "error", err)
			if failures >= s.maxFailures {
				s.terminate(StatusError, nil, err)
				return
			}
		}
		timer.Reset(s.pollInterval())
	}
}

func (s *Session) deadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

func (s *Session) pollInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

func (s *Session) growInterval(step time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval += step
}

// terminate records the first terminal transition; later calls are no-ops,
// which is what makes Cancel safe against an in-flight poll result.
func (s *Session) terminate(status SessionStatus, token *oauth2.Token, err error) {
	s.mu.Lock()
	if s.status.Terminal() {
		s.mu.Unlock()
		return
	}
	s.status = status
	s.token = token
	s.err = err
	s.mu.Unlock()

	metrics.DeviceLogins.WithLabelValues(string(status)).Inc()
	s.log.Infow("device authorization finished", "status", status)
	close(s.done)
	if s.callbacks.OnTerminal != nil {
		s.callbacks.OnTerminal(status)
	}
}
