package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"notary-service/internal/domain/license"

	"go.uber.org/zap"
)

var fixedNow = time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC)

type fakeResets struct{ cutoff time.Time }

func (f *fakeResets) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 3, nil
}

type fakeLicenses struct {
	from, to time.Time
	out      []license.Expiring
	err      error
}

func (f *fakeLicenses) ExpiringBetween(ctx context.Context, from, to time.Time) ([]license.Expiring, error) {
	f.from, f.to = from, to
	return f.out, f.err
}

type fakeNotifier struct{ calls int }

func (f *fakeNotifier) NotifyLicenseExpiring(ctx context.Context, expiring []license.Expiring) (int, error) {
	f.calls++
	return len(expiring), nil
}

type fakeSnapshot struct{}

func (fakeSnapshot) SnapshotPerformance(ctx context.Context) error { return nil }

type fakeObserver struct{ results map[string]error }

func (f *fakeObserver) ObserveJob(job string, err error) { f.results[job] = err }

func newScheduler(l *fakeLicenses, n *fakeNotifier, r *fakeResets, o *fakeObserver) *Scheduler {
	s := NewScheduler(time.UTC, r, l, n, fakeSnapshot{}, o, zap.NewNop())
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestPurgeResetsKeepsOneDay(t *testing.T) {
	resets := &fakeResets{}
	s := newScheduler(&fakeLicenses{}, &fakeNotifier{}, resets, &fakeObserver{results: map[string]error{}})

	if err := s.PurgeResets(context.Background()); err != nil {
		t.Fatalf("PurgeResets: %v", err)
	}
	if !resets.cutoff.Equal(fixedNow.Add(-24 * time.Hour)) {
		t.Fatalf("unexpected cutoff %v", resets.cutoff)
	}
}

func TestLicenseExpiryWindow(t *testing.T) {
	licenses := &fakeLicenses{out: []license.Expiring{{LicenseID: 1, UserID: 5}}}
	notifier := &fakeNotifier{}
	s := newScheduler(licenses, notifier, &fakeResets{}, &fakeObserver{results: map[string]error{}})

	if err := s.LicenseExpiry(context.Background()); err != nil {
		t.Fatalf("LicenseExpiry: %v", err)
	}
	if !licenses.from.Equal(fixedNow) || !licenses.to.Equal(fixedNow.AddDate(0, 0, 30)) {
		t.Fatalf("unexpected window %v..%v", licenses.from, licenses.to)
	}
	if notifier.calls != 1 {
		t.Fatalf("expected one notifier call, got %d", notifier.calls)
	}
}

func TestLicenseExpirySkipsNotifierWhenNothingExpires(t *testing.T) {
	notifier := &fakeNotifier{}
	s := newScheduler(&fakeLicenses{}, notifier, &fakeResets{}, &fakeObserver{results: map[string]error{}})

	if err := s.LicenseExpiry(context.Background()); err != nil {
		t.Fatalf("LicenseExpiry: %v", err)
	}
	if notifier.calls != 0 {
		t.Fatal("notifier should not be called")
	}
}

func TestRunReportsOutcome(t *testing.T) {
	observer := &fakeObserver{results: map[string]error{}}
	licenses := &fakeLicenses{err: errors.New("db down")}
	s := newScheduler(licenses, &fakeNotifier{}, &fakeResets{}, observer)

	s.run(JobLicenseExpiry, s.LicenseExpiry)
	s.run(JobPurgeResets, s.PurgeResets)

	if observer.results[JobLicenseExpiry] == nil {
		t.Fatal("failure should be observed")
	}
	if err, ok := observer.results[JobPurgeResets]; !ok || err != nil {
		t.Fatalf("success should be observed, got %v", err)
	}
}

func TestStartAndStop(t *testing.T) {
	s := newScheduler(&fakeLicenses{}, &fakeNotifier{}, &fakeResets{}, &fakeObserver{results: map[string]error{}})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if n := len(s.cron.Entries()); n != 3 {
		t.Fatalf("expected 3 entries, got %d", n)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
