// Package azure discovers subscriptions through the Azure Resource Manager API.
package azure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/subscription/armsubscription"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/edvin/budget/internal/model"
	"github.com/edvin/budget/internal/platform"
)

const (
	readRequestsPerSecond = 5
	maxThrottleRetries    = 5
)

type listPager interface {
	More() bool
	NextPage(ctx context.Context) (armsubscription.SubscriptionsClientListResponse, error)
}

// Lister pages through every subscription the credential can see.
type Lister struct {
	newPager func() listPager
	limiter  *rate.Limiter
	logger   zerolog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewLister builds a lister authenticating as a service principal with a
// client secret.
func NewLister(tenantID, clientID, clientSecret string, logger zerolog.Logger) (*Lister, error) {
	cred, err := azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret, nil)
	if err != nil {
		return nil, fmt.Errorf("create azure credential: %w", err)
	}
	return NewListerWithCredential(cred, logger)
}

func NewListerWithCredential(cred azcore.TokenCredential, logger zerolog.Logger) (*Lister, error) {
	client, err := armsubscription.NewSubscriptionsClient(cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create subscriptions client: %w", err)
	}
	return newLister(func() listPager { return client.NewListPager(nil) }, logger), nil
}

func newLister(newPager func() listPager, logger zerolog.Logger) *Lister {
	return &Lister{
		newPager: newPager,
		limiter:  rate.NewLimiter(rate.Limit(readRequestsPerSecond), readRequestsPerSecond),
		logger:   logger.With().Str("component", "azure-lister").Logger(),
		sleep:    sleepCtx,
	}
}

// Statuses returns the current status of every visible subscription.
// Subscriptions with no id or state are skipped.
func (l *Lister) Statuses(ctx context.Context) ([]model.SubscriptionStatus, error) {
	pager := l.newPager()
	var out []model.SubscriptionStatus
	retries := 0

	for pager.More() {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		page, err := pager.NextPage(ctx)
		if err != nil {
			wait, throttled := retryAfter(err)
			if !throttled || retries >= maxThrottleRetries {
				return nil, fmt.Errorf("list subscriptions: %w", err)
			}
			retries++
			l.logger.Warn().Dur("retry_after", wait).Int("attempt", retries).Msg("throttled by azure")
			if err := l.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}
		retries = 0

		for _, sub := range page.Value {
			st, ok := toStatus(sub)
			if !ok {
				continue
			}
			out = append(out, st)
		}
	}
	return out, nil
}

func toStatus(sub *armsubscription.Subscription) (model.SubscriptionStatus, bool) {
	if sub == nil || sub.SubscriptionID == nil || sub.State == nil {
		return model.SubscriptionStatus{}, false
	}
	id, err := platform.ParseSubscriptionID(*sub.SubscriptionID)
	if err != nil {
		return model.SubscriptionStatus{}, false
	}
	st := model.SubscriptionStatus{
		SubscriptionID:  id,
		State:           model.SubscriptionState(*sub.State),
		RoleAssignments: []model.RoleAssignment{},
	}
	if sub.DisplayName != nil {
		st.DisplayName = *sub.DisplayName
	}
	return st, true
}

// retryAfter reports whether err is a 429 and how long ARM asked us to wait.
func retryAfter(err error) (time.Duration, bool) {
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) || respErr.StatusCode != http.StatusTooManyRequests {
		return 0, false
	}
	wait := time.Second
	if respErr.RawResponse != nil {
		if h := respErr.RawResponse.Header.Get("Retry-After"); h != "" {
			if seconds, err := strconv.Atoi(h); err == nil {
				wait = time.Duration(seconds) * time.Second
			} else if at, err := http.ParseTime(h); err == nil {
				wait = time.Until(at)
			}
		}
	}
	return wait, true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
