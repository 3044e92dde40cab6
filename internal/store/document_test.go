package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jjudge-oj/runlog/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedOp struct {
	backend string
	op      string
	failed  bool
}

type fakeRecorder struct {
	ops []recordedOp
}

func (r *fakeRecorder) ObserveStoreOp(backend, op string, err error) {
	r.ops = append(r.ops, recordedOp{backend: backend, op: op, failed: err != nil})
}

type failingBackend struct {
	MemoryBackend
	readErr  error
	writeErr error
}

func (b *failingBackend) Read(ctx context.Context) ([]byte, error) {
	if b.readErr != nil {
		return nil, b.readErr
	}
	return b.MemoryBackend.Read(ctx)
}

func (b *failingBackend) Write(ctx context.Context, data []byte) error {
	if b.writeErr != nil {
		return b.writeErr
	}
	return b.MemoryBackend.Write(ctx, data)
}

func TestEnsureCreatesEmptyDocument(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	s := NewDocumentStore(backend)

	require.NoError(t, s.Ensure(ctx))

	data, err := backend.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, "{\n  \"users\": []\n}", string(data))
}

func TestEnsureKeepsExistingDocument(t *testing.T) {
	ctx := context.Background()
	existing := []byte(`{"users":[{"userID":"u1","email":"","createdAt":"","updatedAt":"","codeRuns":[]}]}`)
	backend := NewMemoryBackendWith(existing)
	s := NewDocumentStore(backend)

	require.NoError(t, s.Ensure(ctx))
	require.NoError(t, s.Ensure(ctx))

	data, err := backend.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, string(existing), string(data))
}

func TestLoadFallsBackToEmptyDocument(t *testing.T) {
	cases := map[string]string{
		"empty":            "",
		"whitespace":       "   \n",
		"invalid json":     "{users: nope",
		"not an object":    "[1, 2, 3]",
		"missing users":    `{"people": []}`,
		"users is object":  `{"users": {"u1": {}}}`,
		"users is null":    `{"users": null}`,
		"users is string":  `{"users": "u1"}`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			s := NewDocumentStore(NewMemoryBackendWith([]byte(raw)))

			doc, err := s.Load(context.Background())
			require.NoError(t, err)
			require.NotNil(t, doc.Users)
			require.Empty(t, doc.Users)
		})
	}
}

func TestLoadNormalizesMissingCodeRuns(t *testing.T) {
	raw := `{"users":[{"userID":"u1","email":"a@b.c"},{"userID":"u2","codeRuns":null}]}`
	s := NewDocumentStore(NewMemoryBackendWith([]byte(raw)))

	doc, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.Users, 2)
	for _, user := range doc.Users {
		require.NotNil(t, user.CodeRuns, user.UserID)
		require.Empty(t, user.CodeRuns)
	}
	assert.Equal(t, "a@b.c", doc.Users[0].Email)
}

func TestLoadKeepsUndecodableUsers(t *testing.T) {
	ctx := context.Background()
	raw := `{"users":[` +
		`{"userID":"keep","email":"k@example.com","createdAt":"2026-01-02T03:04:05.678Z","updatedAt":"2026-01-02T03:04:05.678Z",` +
		`"codeRuns":[{"id":"1767323045678-a1b2c3","time":"2026-01-02T03:04:05.678Z","language":"go","code":"fmt.Println(1)"}]},` +
		`{"userID":5},` +
		`{"userID":"late","createdAt":12},` +
		`42` +
		`]}`
	backend := NewMemoryBackendWith([]byte(raw))
	s := NewDocumentStore(backend)

	doc, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Users, 4)
	require.Equal(t, 0, doc.FindUser("keep"))
	require.Equal(t, -1, doc.FindUser("late"))
	assert.False(t, doc.Users[0].Malformed())
	for _, user := range doc.Users[1:] {
		assert.True(t, user.Malformed())
	}

	require.NoError(t, s.Save(ctx, doc))

	data, err := backend.Read(ctx)
	require.NoError(t, err)
	persisted := string(data)
	assert.Contains(t, persisted, `"userID": "keep"`)
	assert.Contains(t, persisted, `"code": "fmt.Println(1)"`)
	assert.Contains(t, persisted, `"userID": 5`)
	assert.Contains(t, persisted, `"createdAt": 12`)
	assert.Contains(t, persisted, "    42\n")

	reloaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, reloaded.Users, 4)
	require.Len(t, reloaded.Users[0].CodeRuns, 1)
}

func TestLoadSaveKeepsUnknownMembers(t *testing.T) {
	ctx := context.Background()
	raw := `{"version":2,"users":[{"userID":"u1","email":"","createdAt":"","updatedAt":"","nickname":"ada",` +
		`"codeRuns":[{"id":"1","time":"","language":"go","code":"x","exitCode":0}]}]}`
	backend := NewMemoryBackendWith([]byte(raw))
	s := NewDocumentStore(backend)

	doc, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Users, 1)
	require.Equal(t, "u1", doc.Users[0].UserID)
	require.Len(t, doc.Users[0].CodeRuns, 1)
	require.Equal(t, "x", doc.Users[0].CodeRuns[0].Code)

	require.NoError(t, s.Save(ctx, doc))

	data, err := backend.Read(ctx)
	require.NoError(t, err)
	require.JSONEq(t, raw, string(data))
}

func TestSaveThenLoad(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	s := NewDocumentStore(backend)

	doc := types.NewDocument()
	doc.Users = append(doc.Users, types.User{
		UserID:    "u1",
		Email:     "u1@example.com",
		CreatedAt: "2026-01-02T03:04:05.678Z",
		UpdatedAt: "2026-01-02T03:04:05.678Z",
		CodeRuns: []types.CodeRun{{
			ID:       "1767323045678-a1b2c3",
			Time:     "2026-01-02T03:04:05.678Z",
			Language: "go",
			Code:     "if a < b && c > d {}",
		}},
	})
	require.NoError(t, s.Save(ctx, doc))

	data, err := backend.Read(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"users\": [\n    {\n      \"userID\": \"u1\"")
	assert.Contains(t, string(data), `"code": "if a < b && c > d {}"`)

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, doc, loaded)
}

func TestSaveWritesEmptyCodeRunsForNilSlice(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	s := NewDocumentStore(backend)

	require.NoError(t, s.Save(ctx, types.Document{Users: []types.User{{UserID: "u1"}}}))

	data, err := backend.Read(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"codeRuns": []`)
}

func TestLoadReturnsReadErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	backend := &failingBackend{readErr: boom}
	s := NewDocumentStore(backend)

	_, err := s.Load(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestEnsureReturnsWriteErrors(t *testing.T) {
	boom := errors.New("read-only file system")
	backend := &failingBackend{writeErr: boom}
	s := NewDocumentStore(backend)

	require.ErrorIs(t, s.Ensure(context.Background()), boom)
	require.ErrorIs(t, s.Save(context.Background(), types.NewDocument()), boom)
}

func TestRecorderObservesOperations(t *testing.T) {
	ctx := context.Background()
	recorder := &fakeRecorder{}
	s := NewDocumentStore(NewMemoryBackend(), WithRecorder(recorder))

	_, err := s.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, types.NewDocument()))

	require.Equal(t, []recordedOp{
		{backend: "memory", op: OpEnsure},
		{backend: "memory", op: OpLoad},
		{backend: "memory", op: OpSave},
	}, recorder.ops)
}
