package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"dining-concierge/internal/domain"
)

const (
	defaultResultSize       = 5
	defaultFetchConcurrency = 5
)

type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

type Searcher interface {
	SearchRestaurants(ctx context.Context, cuisine string, size int) ([]domain.SearchHit, error)
}

type RestaurantStore interface {
	GetRestaurant(ctx context.Context, hit domain.SearchHit) (domain.Restaurant, error)
}

type Mailer interface {
	SendEmail(ctx context.Context, from, to, subject, htmlBody string) (string, error)
}

// RequestLedger records which queued requests have been delivered so a
// redelivered message does not produce a second email.
type RequestLedger interface {
	Claim(ctx context.Context, requestID string) (claimed bool, existing domain.LedgerStatus, err error)
	MarkDelivered(ctx context.Context, requestID, notificationID string) error
	Release(ctx context.Context, requestID string) error
}

type RecommendService struct {
	params           ParamGetter
	search           Searcher
	store            RestaurantStore
	mailer           Mailer
	ledger           RequestLedger
	paramPrefix      string
	resultSize       int
	fetchConcurrency int

	cacheMu     sync.RWMutex
	cacheLoaded bool
	sender      string
}

type RecommendOutput struct {
	RequestID      string
	NotificationID string
	Restaurants    []domain.Restaurant
	Duplicate      bool
}

// NewRecommendService wires the worker's collaborators. Sender settings are
// read from Parameter Store under paramPrefix on first use. Non-positive
// resultSize and fetchConcurrency fall back to 5.
func NewRecommendService(p ParamGetter, s Searcher, st RestaurantStore, m Mailer, l RequestLedger, paramPrefix string, resultSize, fetchConcurrency int) (*RecommendService, error) {
	if p == nil {
		return nil, errors.New("usecase: param getter must not be nil")
	}
	if s == nil {
		return nil, errors.New("usecase: searcher must not be nil")
	}
	if st == nil {
		return nil, errors.New("usecase: restaurant store must not be nil")
	}
	if m == nil {
		return nil, errors.New("usecase: mailer must not be nil")
	}
	if l == nil {
		return nil, errors.New("usecase: request ledger must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("usecase: parameter prefix must not be empty")
	}
	if resultSize <= 0 {
		resultSize = defaultResultSize
	}
	if fetchConcurrency <= 0 {
		fetchConcurrency = defaultFetchConcurrency
	}
	return &RecommendService{
		params:           p,
		search:           s,
		store:            st,
		mailer:           m,
		ledger:           l,
		paramPrefix:      paramPrefix,
		resultSize:       resultSize,
		fetchConcurrency: fetchConcurrency,
	}, nil
}

// Process handles one queued message body end to end: search, record lookup,
// and email delivery. Nothing is retried here; a returned error leaves the
// message to the queue's redrive policy.
func (s *RecommendService) Process(ctx context.Context, body string) (RecommendOutput, error) {
	req, err := parseQueuedRequest(body)
	if err != nil {
		return RecommendOutput{}, err
	}
	out := RecommendOutput{RequestID: req.RequestID}

	if err := s.ensureConfig(ctx); err != nil {
		return out, newError(ErrorInternal, "ssm_load_error", err)
	}

	if req.RequestID != "" {
		claimed, existing, err := s.ledger.Claim(ctx, req.RequestID)
		if err != nil {
			return out, newError(ErrorInternal, "ledger_claim_error", err)
		}
		if !claimed {
			if existing == domain.LedgerStatusDelivered {
				out.Duplicate = true
				return out, nil
			}
			return out, newError(ErrorDuplicateInFlight, "request_in_flight", nil)
		}
	}

	restaurants, notificationID, err := s.recommend(ctx, req)
	if err != nil {
		s.release(ctx, req.RequestID)
		return out, err
	}
	out.Restaurants = restaurants
	out.NotificationID = notificationID

	if req.RequestID != "" {
		// The email is already out; failing here would only cause a resend.
		if err := s.ledger.MarkDelivered(ctx, req.RequestID, notificationID); err != nil {
			slog.WarnContext(ctx, "failed to mark request delivered", "request_id", req.RequestID, "err", err)
		}
	}
	return out, nil
}

func (s *RecommendService) recommend(ctx context.Context, req domain.DiningRequest) ([]domain.Restaurant, string, error) {
	hits, err := s.search.SearchRestaurants(ctx, domain.Deref(req.Cuisine), s.resultSize)
	if err != nil {
		return nil, "", newError(ErrorSearch, "opensearch_error", err)
	}
	if len(hits) > s.resultSize {
		hits = hits[:s.resultSize]
	}

	restaurants, err := s.fetchRestaurants(ctx, hits)
	if err != nil {
		return nil, "", newError(ErrorLookup, "dynamodb_lookup_error", err)
	}

	htmlBody, err := buildNotificationBody(req, restaurants)
	if err != nil {
		return nil, "", newError(ErrorInternal, "render_notification", err)
	}

	notificationID, err := s.mailer.SendEmail(ctx, s.sender, domain.Deref(req.Email), notificationSubject, htmlBody)
	if err != nil {
		return nil, "", newError(ErrorDelivery, "ses_send_error", err)
	}
	slog.InfoContext(ctx, "recommendations delivered",
		"request_id", req.RequestID,
		"message_id", notificationID,
		"restaurants", len(restaurants),
	)
	return restaurants, notificationID, nil
}

// fetchRestaurants resolves hits concurrently while keeping search rank order.
func (s *RecommendService) fetchRestaurants(ctx context.Context, hits []domain.SearchHit) ([]domain.Restaurant, error) {
	restaurants := make([]domain.Restaurant, len(hits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchConcurrency)
	for i, hit := range hits {
		i, hit := i, hit
		g.Go(func() error {
			r, err := s.store.GetRestaurant(gctx, hit)
			if err != nil {
				return fmt.Errorf("restaurant %s/%s: %w", hit.PK, hit.SK, err)
			}
			restaurants[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return restaurants, nil
}

func (s *RecommendService) release(ctx context.Context, requestID string) {
	if requestID == "" {
		return
	}
	if err := s.ledger.Release(ctx, requestID); err != nil {
		slog.WarnContext(ctx, "failed to release request claim", "request_id", requestID, "err", err)
	}
}

func (s *RecommendService) ensureConfig(ctx context.Context) error {
	s.cacheMu.RLock()
	if s.cacheLoaded {
		s.cacheMu.RUnlock()
		return nil
	}
	s.cacheMu.RUnlock()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheLoaded {
		return nil
	}

	sender, err := s.params.GetParameter(ctx, s.paramPrefix+"/config/sender_email")
	if err != nil {
		return fmt.Errorf("usecase: load sender email: %w", err)
	}
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return errors.New("usecase: sender email is empty")
	}

	s.sender = sender
	s.cacheLoaded = true
	return nil
}

func parseQueuedRequest(body string) (domain.DiningRequest, error) {
	var req domain.DiningRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return domain.DiningRequest{}, newError(ErrorInvalidInput, "malformed_message", err)
	}
	if req.RequestType != "" && req.RequestType != domain.RequestTypeDiningSuggestion {
		return domain.DiningRequest{}, newError(ErrorInvalidInput, "request_type_"+req.RequestType, nil)
	}
	if strings.TrimSpace(domain.Deref(req.Cuisine)) == "" {
		return domain.DiningRequest{}, newError(ErrorInvalidInput, "missing_cuisine", nil)
	}
	if strings.TrimSpace(domain.Deref(req.Email)) == "" {
		return domain.DiningRequest{}, newError(ErrorInvalidInput, "missing_email", nil)
	}
	return req, nil
}
