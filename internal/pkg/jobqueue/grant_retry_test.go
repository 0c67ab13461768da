package jobqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iiskills-cloud/appaccess/app/repository"
	"github.com/iiskills-cloud/appaccess/internal/pkg/access"
	"github.com/iiskills-cloud/appaccess/internal/pkg/catalog"
	"github.com/iiskills-cloud/appaccess/internal/pkg/entitlements"
)

// outageRepo fails writes for one app until healed.
type outageRepo struct {
	repository.AccessRepository
	mu       sync.Mutex
	failApp  string
	failures int
}

func (r *outageRepo) failureCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

func (r *outageRepo) heal() {
	r.mu.Lock()
	r.failApp = ""
	r.mu.Unlock()
}

func (r *outageRepo) Upsert(ctx context.Context, g entitlements.Grant) (entitlements.Grant, error) {
	r.mu.Lock()
	fail := g.AppID == r.failApp
	if fail {
		r.failures++
	}
	r.mu.Unlock()
	if fail {
		return entitlements.Grant{}, errors.New("deadlock found when trying to get lock")
	}
	return r.AccessRepository.Upsert(ctx, g)
}

type countingInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (c *countingInvalidator) Invalidate(context.Context) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
}

func (c *countingInvalidator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestGrantRetrier_ConvergesAfterOutage(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	repo := &outageRepo{AccessRepository: repository.NewMemoryRepositories().Access, failApp: "learn-ai"}
	store := access.NewStore(repo, entitlements.NewResolver(c))

	res, err := store.GrantBundle(context.Background(), "u1", "learn-developer", "pay_7")
	require.ErrorIs(t, err, access.ErrPartialBundleGrant)
	require.Equal(t, []string{"learn-ai"}, res.FailedAppIDs())

	q := NewQueue(NewMemoryBackend(), 1)
	q.SetRetryDelay(50 * time.Millisecond)
	inv := &countingInvalidator{}
	retrier := NewGrantRetrier(q, store, inv)

	require.NoError(t, retrier.RetryFailed(context.Background(), res))
	q.Start()
	defer q.Stop()

	assert.Eventually(t, func() bool { return repo.failureCount() >= 2 }, 2*time.Second, 5*time.Millisecond)
	repo.heal()

	assert.Eventually(t, func() bool {
		ok, err := store.CheckAccess(context.Background(), "u1", "learn-ai")
		return err == nil && ok
	}, 5*time.Second, 10*time.Millisecond)

	g, err := repo.Get(context.Background(), "u1", "learn-ai")
	require.NoError(t, err)
	assert.Equal(t, entitlements.ViaBundle, g.GrantedVia)
	assert.Equal(t, "pay_7", g.PaymentID)
	assert.Eventually(t, func() bool { return inv.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestGrantRetrier_InvalidGrantIsPermanent(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	store := access.NewStore(repository.NewMemoryRepositories().Access, entitlements.NewResolver(c))
	r := &GrantRetrier{store: store}

	err = r.process(context.Background(), &Job{Payload: GrantRetryPayload{UserID: "u1", AppID: "learn-unknown", GrantedVia: entitlements.ViaBundle}})
	assert.ErrorIs(t, err, ErrPermanent)
	assert.ErrorIs(t, err, catalog.ErrUnknownApp)
}
