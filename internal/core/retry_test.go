package core_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pocketomega/repotutor/internal/core"
)

func TestRetry_ReturnsCallCount(t *testing.T) {
	calls := 0
	got, n, err := core.Retry(context.Background(), core.RetryPolicy{MaxAttempts: 4},
		func(_ context.Context, a core.Attempt) (int, error) {
			calls++
			if a.Number < 3 {
				return 0, core.Parsef("bad yaml on attempt %d", a.Number)
			}
			return a.Number, nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 3 || n != 3 || calls != 3 {
		t.Errorf("expected value 3 after 3 calls, got value=%d n=%d calls=%d", got, n, calls)
	}
}

func TestRetry_ExhaustedReturnsLastError(t *testing.T) {
	_, n, err := core.Retry(context.Background(), core.RetryPolicy{MaxAttempts: 2},
		func(_ context.Context, a core.Attempt) (string, error) {
			return "", core.Validationf("attempt %d invalid", a.Number)
		})
	if n != 2 {
		t.Errorf("expected 2 calls, got %d", n)
	}
	if err == nil || err.Error() != "attempt 2 invalid" {
		t.Errorf("expected last error, got %v", err)
	}
	if core.KindOf(err) != core.KindValidation {
		t.Errorf("expected validation kind, got %s", core.KindOf(err))
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("plain"), true},
		{core.ProviderError(errors.New("503")), true},
		{core.ParseError(errors.New("yaml")), true},
		{core.ValidationError(errors.New("range")), true},
		{core.Permanent(errors.New("stop")), false},
		{context.Canceled, false},
		{core.ProviderError(context.DeadlineExceeded), false},
	}
	for _, c := range cases {
		if got := core.IsRetryable(c.err); got != c.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestFatalError_Message(t *testing.T) {
	err := &core.FatalError{Node: "OrderChapters", Attempts: 5, Err: errors.New("missing index 2")}
	want := "OrderChapters failed after 5 attempt(s): missing index 2"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}
