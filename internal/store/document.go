package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jjudge-oj/runlog/types"
	"go.uber.org/zap"
)

var errUsersNotArray = errors.New("users is not an array")

// Store operation names reported to an OpRecorder.
const (
	OpEnsure = "ensure"
	OpLoad   = "load"
	OpSave   = "save"
)

// Backend holds the raw bytes of a single document.
type Backend interface {
	Exists(ctx context.Context) (bool, error)
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Name() string
}

// OpRecorder observes the outcome of store operations.
type OpRecorder interface {
	ObserveStoreOp(backend, op string, err error)
}

// DocumentStore loads and saves the user document through a Backend.
type DocumentStore struct {
	backend  Backend
	logger   *zap.Logger
	recorder OpRecorder
}

// Option configures a DocumentStore.
type Option func(*DocumentStore)

// WithLogger sets the logger used for fallback warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(s *DocumentStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the recorder notified after every operation.
func WithRecorder(recorder OpRecorder) Option {
	return func(s *DocumentStore) {
		s.recorder = recorder
	}
}

// NewDocumentStore constructs a DocumentStore over the provided backend.
func NewDocumentStore(backend Backend, opts ...Option) *DocumentStore {
	s := &DocumentStore{
		backend: backend,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the underlying backend.
func (s *DocumentStore) Backend() Backend {
	return s.backend
}

// Ensure writes an empty document when the backend holds none yet.
func (s *DocumentStore) Ensure(ctx context.Context) (err error) {
	defer func() { s.observe(OpEnsure, err) }()

	exists, err := s.backend.Exists(ctx)
	if err != nil {
		return fmt.Errorf("check store: %w", err)
	}
	if exists {
		return nil
	}

	data, err := encodeDocument(types.NewDocument())
	if err != nil {
		return err
	}
	if err := s.backend.Write(ctx, data); err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	s.logger.Info("created empty store", zap.String("backend", s.backend.Name()))
	return nil
}

// Load returns the stored document. A document that cannot be decoded, or
// whose users field is not an array, is replaced by an empty one. Individual
// users that cannot be decoded are kept as they are.
func (s *DocumentStore) Load(ctx context.Context) (types.Document, error) {
	if err := s.Ensure(ctx); err != nil {
		return types.Document{}, err
	}

	raw, err := s.backend.Read(ctx)
	s.observe(OpLoad, err)
	if err != nil {
		return types.Document{}, fmt.Errorf("read store: %w", err)
	}

	doc, err := decodeDocument(raw)
	if err != nil {
		s.logger.Warn("store document is malformed, using an empty document",
			zap.String("backend", s.backend.Name()),
			zap.Error(err),
		)
		return types.NewDocument(), nil
	}
	return doc, nil
}

// Save overwrites the stored document with doc.
func (s *DocumentStore) Save(ctx context.Context, doc types.Document) (err error) {
	defer func() { s.observe(OpSave, err) }()

	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	if err := s.backend.Write(ctx, data); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	return nil
}

func (s *DocumentStore) observe(op string, err error) {
	if s.recorder != nil {
		s.recorder.ObserveStoreOp(s.backend.Name(), op, err)
	}
}

func decodeDocument(raw []byte) (types.Document, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return types.Document{}, fmt.Errorf("decode document: %w", err)
	}

	users := bytes.TrimSpace(members["users"])
	if len(users) == 0 || users[0] != '[' {
		return types.Document{}, errUsersNotArray
	}

	// Entries that are not users stay in place as malformed users, so
	// saving the document never drops them.
	doc := types.NewDocument()
	if err := json.Unmarshal(users, &doc.Users); err != nil {
		return types.Document{}, fmt.Errorf("decode users: %w", err)
	}
	for i := range doc.Users {
		if doc.Users[i].CodeRuns == nil {
			doc.Users[i].CodeRuns = []types.CodeRun{}
		}
	}

	delete(members, "users")
	if len(members) > 0 {
		doc.Extra = members
	}
	return doc, nil
}

func encodeDocument(doc types.Document) ([]byte, error) {
	if doc.Users == nil {
		doc.Users = []types.User{}
	}
	for i := range doc.Users {
		if doc.Users[i].CodeRuns == nil {
			doc.Users[i].CodeRuns = []types.CodeRun{}
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
