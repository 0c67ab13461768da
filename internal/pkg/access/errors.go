package access

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iiskills-cloud/appaccess/internal/pkg/entitlements"
)

var (
	// ErrStorageUnavailable wraps any failure of the backing store. Paid-app
	// checks resolve to no access when it is returned.
	ErrStorageUnavailable = errors.New("access storage unavailable")
	ErrPartialBundleGrant = errors.New("partial bundle grant")
	ErrFreeApp            = errors.New("free apps are never granted")
	ErrInvalidInput       = errors.New("invalid input")
)

// FailedGrant names one app whose write failed inside GrantBundle.
type FailedGrant struct {
	AppID      string
	GrantedVia entitlements.GrantedVia
	Err        error
}

// PartialBundleError reports a bundle grant where at least one write
// succeeded and at least one failed. The failed subset is safe to retry.
type PartialBundleError struct {
	Result BundleResult
}

func (e *PartialBundleError) Error() string {
	ids := make([]string, 0, len(e.Result.Failed))
	for _, f := range e.Result.Failed {
		ids = append(ids, f.AppID)
	}
	return fmt.Sprintf("%s: payment %s granted %d of %d apps, failed: %s",
		ErrPartialBundleGrant, e.Result.PaymentID, len(e.Result.Granted), len(e.Result.BundledApps), strings.Join(ids, ","))
}

func (e *PartialBundleError) Is(target error) bool {
	return target == ErrPartialBundleGrant
}

func (e *PartialBundleError) Unwrap() []error {
	out := make([]error, 0, len(e.Result.Failed))
	for _, f := range e.Result.Failed {
		out = append(out, f.Err)
	}
	return out
}
