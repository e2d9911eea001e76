package persist_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"manifeed/internal/domain/entity"
	"manifeed/internal/repository"
	"manifeed/internal/usecase/persist"
)

type stubResults struct {
	inserted []*entity.JobResult
	isNew    bool
}

func (s *stubResults) InsertIfNew(_ context.Context, result *entity.JobResult) (bool, error) {
	s.inserted = append(s.inserted, result)
	return s.isNew, nil
}

type stubStates struct{}

func (s *stubStates) Get(_ context.Context, _ int64) (*entity.FeedScrapingState, error) {
	return nil, nil
}

func (s *stubStates) Upsert(_ context.Context, _ *entity.FeedScrapingState, _ bool) error {
	return nil
}

type stubArticles struct{}

func (s *stubArticles) Get(_ context.Context, _ int64) (*entity.Article, error) { return nil, nil }
func (s *stubArticles) ListPaginated(_ context.Context, _ repository.ArticleSearchFilters, _, _ int) ([]repository.ArticleWithFeed, error) {
	return nil, nil
}
func (s *stubArticles) CountArticles(_ context.Context, _ repository.ArticleSearchFilters) (int64, error) {
	return 0, nil
}
func (s *stubArticles) UpsertForFeed(_ context.Context, _ int64, a *entity.Article) (int64, error) {
	return a.ID, nil
}

type stubJobs struct {
	status    *repository.JobStatusRead
	updatedTo []entity.JobStatus
}

func (s *stubJobs) CreateWithFeeds(_ context.Context, _ *entity.Job, _ []entity.JobFeed) error {
	return nil
}

func (s *stubJobs) UpdateStatus(_ context.Context, _ string, status entity.JobStatus) (bool, error) {
	s.updatedTo = append(s.updatedTo, status)
	return true, nil
}

func (s *stubJobs) GetStatus(_ context.Context, _ string) (*repository.JobStatusRead, error) {
	return s.status, nil
}

func (s *stubJobs) ListFeeds(_ context.Context, _ string) ([]repository.JobFeedRead, error) {
	return nil, nil
}

type countingNotifier struct {
	mu    sync.Mutex
	calls []entity.JobStatus
	done  chan struct{}
}

func newCountingNotifier() *countingNotifier {
	return &countingNotifier{done: make(chan struct{}, 10)}
}

func (n *countingNotifier) NotifyJobComplete(_ context.Context, job *entity.Job) error {
	n.mu.Lock()
	n.calls = append(n.calls, job.Status)
	n.mu.Unlock()
	n.done <- struct{}{}
	return nil
}

func (n *countingNotifier) waitForCall(t *testing.T) {
	t.Helper()
	select {
	case <-n.done:
	case <-time.After(time.Second):
		t.Fatal("notifier was not invoked within timeout")
	}
}

func (n *countingNotifier) assertNoCall(t *testing.T) {
	t.Helper()
	select {
	case <-n.done:
		t.Fatal("notifier was invoked but should not have been")
	case <-time.After(50 * time.Millisecond):
	}
}

func newResult(jobID string, feedID int64) repository.WorkerResult {
	return repository.WorkerResult{JobID: jobID, FeedID: feedID, Status: string(entity.ResultStatusSuccess)}
}

func TestHandleResult_NotifiesOnTerminalTransition(t *testing.T) {
	jobs := &stubJobs{status: &repository.JobStatusRead{
		Job:     &entity.Job{JobID: "job-1", FeedCount: 1, Status: entity.JobStatusProcessing},
		Success: 0, NotMod: 0, Error: 0,
	}}
	notif := newCountingNotifier()
	svc := persist.NewService(&stubResults{isNew: true}, &stubStates{}, &stubArticles{}, jobs).WithNotifier(notif)

	// After this result, processed == feedCount with no errors: derived status is "completed".
	jobs.status.Success = 1
	if _, err := svc.HandleResult(context.Background(), newResult("job-1", 1), "check"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	notif.waitForCall(t)
	if len(notif.calls) != 1 || notif.calls[0] != entity.JobStatusCompleted {
		t.Errorf("calls = %v, want exactly one JobStatusCompleted", notif.calls)
	}
}

func TestHandleResult_NoNotifyOnNonTerminalTransition(t *testing.T) {
	jobs := &stubJobs{status: &repository.JobStatusRead{
		Job:     &entity.Job{JobID: "job-2", FeedCount: 3, Status: entity.JobStatusQueued},
		Success: 0, NotMod: 0, Error: 0,
	}}
	notif := newCountingNotifier()
	svc := persist.NewService(&stubResults{isNew: true}, &stubStates{}, &stubArticles{}, jobs).WithNotifier(notif)

	jobs.status.Success = 1
	if _, err := svc.HandleResult(context.Background(), newResult("job-2", 1), "check"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	notif.assertNoCall(t)
}

func TestHandleResult_NoNotifyOnRepeatedTerminalRefresh(t *testing.T) {
	jobs := &stubJobs{status: &repository.JobStatusRead{
		Job:     &entity.Job{JobID: "job-3", FeedCount: 1, Status: entity.JobStatusCompleted},
		Success: 1, NotMod: 0, Error: 0,
	}}
	notif := newCountingNotifier()
	svc := persist.NewService(&stubResults{isNew: true}, &stubStates{}, &stubArticles{}, jobs).WithNotifier(notif)

	if _, err := svc.HandleResult(context.Background(), newResult("job-3", 1), "check"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	notif.assertNoCall(t)
}

func TestHandleResult_DuplicateResultSkipsNotify(t *testing.T) {
	jobs := &stubJobs{status: &repository.JobStatusRead{
		Job: &entity.Job{JobID: "job-4", FeedCount: 1, Status: entity.JobStatusProcessing},
	}}
	notif := newCountingNotifier()
	svc := persist.NewService(&stubResults{isNew: false}, &stubStates{}, &stubArticles{}, jobs).WithNotifier(notif)

	applied, err := svc.HandleResult(context.Background(), newResult("job-4", 1), "check")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied {
		t.Error("applied = true, want false for a redelivered (job_id, feed_id) pair")
	}
	notif.assertNoCall(t)
}
