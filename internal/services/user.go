package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jjudge-oj/runlog/types"
	"go.uber.org/zap"
)

var (
	ErrUserIDRequired   = errors.New("userID is required")
	ErrLanguageRequired = errors.New("language is required")
	ErrCodeRequired     = errors.New("code is required")
)

// DocumentRepository loads and saves the whole user document.
type DocumentRepository interface {
	Load(ctx context.Context) (types.Document, error)
	Save(ctx context.Context, doc types.Document) error
}

// UserService encapsulates user and code run use-cases.
//
// Every call is a load-modify-save cycle against the repository. Calls made
// through one UserService are serialized; separate processes sharing a
// backend can still overwrite each other's changes.
type UserService struct {
	mu        sync.Mutex
	repo      DocumentRepository
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
	newID     func(time.Time) string
}

// Option configures a UserService.
type Option func(*UserService)

// WithPublisher sets the publisher notified after a code run is stored.
func WithPublisher(publisher EventPublisher) Option {
	return func(s *UserService) {
		s.publisher = publisher
	}
}

// WithLogger sets the logger used for publish failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *UserService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *UserService) {
		s.now = now
	}
}

// WithIDGenerator overrides code run ID generation.
func WithIDGenerator(newID func(time.Time) string) Option {
	return func(s *UserService) {
		s.newID = newID
	}
}

// NewUserService constructs a UserService with the provided repository.
func NewUserService(repo DocumentRepository, opts ...Option) *UserService {
	s := &UserService{
		repo:   repo,
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  newCodeRunID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates the user or updates an existing one. A nil email leaves
// the stored email untouched; new users then get an empty email.
func (s *UserService) Register(ctx context.Context, userID string, email *string) (types.User, error) {
	if userID == "" {
		return types.User{}, ErrUserIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.repo.Load(ctx)
	if err != nil {
		return types.User{}, err
	}

	user := upsertUser(&doc, userID, email, types.FormatTimestamp(s.now()))
	registered := *user

	if err := s.repo.Save(ctx, doc); err != nil {
		return types.User{}, err
	}
	return registered, nil
}

// upsertUser returns the user with the given ID, creating it when absent.
// The returned pointer is only valid until doc.Users is appended to again.
func upsertUser(doc *types.Document, userID string, email *string, now string) *types.User {
	if i := doc.FindUser(userID); i >= 0 {
		user := &doc.Users[i]
		if email != nil {
			user.Email = *email
		}
		if user.CodeRuns == nil {
			user.CodeRuns = []types.CodeRun{}
		}
		user.UpdatedAt = now
		return user
	}

	user := types.User{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
		CodeRuns:  []types.CodeRun{},
	}
	if email != nil {
		user.Email = *email
	}
	doc.Users = append(doc.Users, user)
	return &doc.Users[len(doc.Users)-1]
}
