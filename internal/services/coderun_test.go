package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/jjudge-oj/runlog/internal/store"
	"github.com/jjudge-oj/runlog/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []types.CodeRunEvent
	err    error
}

func (p *fakePublisher) PublishCodeRun(_ context.Context, event types.CodeRunEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func TestRegisteredUserHasEmptyHistory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Register(ctx, "u1", nil)
	require.NoError(t, err)

	runs, err := svc.ListCodeRuns(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, runs)
	require.Empty(t, runs)
}

func TestAppendCodeRunsListsMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	const n = 5
	for i := 0; i < n; i++ {
		_, err := svc.AppendCodeRun(ctx, "u1", "python", fmt.Sprintf("print(%d)", i))
		require.NoError(t, err)
	}

	runs, err := svc.ListCodeRuns(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, runs, n)
	for i, run := range runs {
		assert.Equal(t, fmt.Sprintf("print(%d)", n-1-i), run.Code)
		assert.Equal(t, fmt.Sprintf("run-%d", n-i), run.ID)
		assert.Equal(t, "python", run.Language)
	}
	for i := 1; i < len(runs); i++ {
		assert.Greater(t, runs[i-1].Time, runs[i].Time)
	}
}

func TestAppendCodeRunCreatesUnknownUser(t *testing.T) {
	ctx := context.Background()
	svc, docs := newTestService(t)

	run, err := svc.AppendCodeRun(ctx, "ghost", "go", "package main")
	require.NoError(t, err)

	doc, err := docs.Load(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Users, 1)
	user := doc.Users[0]
	assert.Equal(t, "ghost", user.UserID)
	assert.Equal(t, "", user.Email)
	assert.Equal(t, []types.CodeRun{run}, user.CodeRuns)
	assert.Equal(t, run.Time, user.UpdatedAt)
}

func TestAppendCodeRunKeepsEmail(t *testing.T) {
	ctx := context.Background()
	svc, docs := newTestService(t)

	registered, err := svc.Register(ctx, "u1", strPtr("u1@example.com"))
	require.NoError(t, err)
	_, err = svc.AppendCodeRun(ctx, "u1", "js", "console.log(1)")
	require.NoError(t, err)

	doc, err := docs.Load(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Users, 1)
	assert.Equal(t, "u1@example.com", doc.Users[0].Email)
	assert.Equal(t, registered.CreatedAt, doc.Users[0].CreatedAt)
	assert.NotEqual(t, registered.UpdatedAt, doc.Users[0].UpdatedAt)
}

func TestAppendCodeRunKeepsMalformedNeighbours(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemoryBackendWith([]byte(`{"users":[{"userID":5},{"userID":"u1","codeRuns":[]}]}`))
	svc := NewUserService(store.NewDocumentStore(backend))

	_, err := svc.AppendCodeRun(ctx, "u1", "go", "package main")
	require.NoError(t, err)

	runs, err := svc.ListCodeRuns(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, runs, 1)

	data, err := backend.Read(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"userID": 5`)
}

func TestAppendCodeRunValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AppendCodeRun(ctx, "", "", "")
	assert.ErrorIs(t, err, ErrUserIDRequired)

	_, err = svc.AppendCodeRun(ctx, "u1", "", "")
	assert.ErrorIs(t, err, ErrLanguageRequired)
	assert.EqualError(t, err, "language is required")

	_, err = svc.AppendCodeRun(ctx, "u1", "go", "")
	assert.ErrorIs(t, err, ErrCodeRequired)
	assert.EqualError(t, err, "code is required")
}

func TestListCodeRunsUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)

	runs, err := svc.ListCodeRuns(context.Background(), "nobody")
	require.NoError(t, err)
	require.NotNil(t, runs)
	require.Empty(t, runs)

	_, err = svc.ListCodeRuns(context.Background(), "")
	require.ErrorIs(t, err, ErrUserIDRequired)
}

func TestListCodeRunsDoesNotMutateStoredOrder(t *testing.T) {
	ctx := context.Background()
	svc, docs := newTestService(t)

	first, err := svc.AppendCodeRun(ctx, "u1", "go", "a")
	require.NoError(t, err)
	second, err := svc.AppendCodeRun(ctx, "u1", "go", "b")
	require.NoError(t, err)

	_, err = svc.ListCodeRuns(ctx, "u1")
	require.NoError(t, err)

	doc, err := docs.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, []types.CodeRun{first, second}, doc.Users[0].CodeRuns)
}

func TestAppendCodeRunPublishesEvent(t *testing.T) {
	publisher := &fakePublisher{}
	svc, _ := newTestService(t, WithPublisher(publisher))

	run, err := svc.AppendCodeRun(context.Background(), "u1", "rust", "fn main() {}")
	require.NoError(t, err)

	require.Equal(t, []types.CodeRunEvent{{UserID: "u1", CodeRun: run}}, publisher.events)
}

func TestAppendCodeRunIgnoresPublishFailure(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("broker down")}
	svc, _ := newTestService(t, WithPublisher(publisher))

	_, err := svc.AppendCodeRun(context.Background(), "u1", "rust", "fn main() {}")
	require.NoError(t, err)

	runs, err := svc.ListCodeRuns(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, runs, 1)
}

func TestAppendCodeRunSaveFailureSkipsPublish(t *testing.T) {
	publisher := &fakePublisher{}
	saveErr := errors.New("disk full")
	svc := NewUserService(&erroringRepo{saveErr: saveErr}, WithPublisher(publisher))

	_, err := svc.AppendCodeRun(context.Background(), "u1", "go", "x")
	require.ErrorIs(t, err, saveErr)
	require.Empty(t, publisher.events)
}

func TestConcurrentAppendsAreNotLost(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, WithIDGenerator(newCodeRunID))

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.AppendCodeRun(ctx, fmt.Sprintf("u%d", i%3), "go", "x")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	total := 0
	for i := 0; i < 3; i++ {
		runs, err := svc.ListCodeRuns(ctx, fmt.Sprintf("u%d", i))
		require.NoError(t, err)
		total += len(runs)
	}
	require.Equal(t, workers, total)
}

func TestNewCodeRunID(t *testing.T) {
	now := time.UnixMilli(1767323045678)

	id := newCodeRunID(now)
	require.Regexp(t, regexp.MustCompile(`^1767323045678-[0-9a-f]{6}$`), id)
	require.NotEqual(t, id, newCodeRunID(now))
}
