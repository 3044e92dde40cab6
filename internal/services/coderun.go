package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jjudge-oj/runlog/types"
	"go.uber.org/zap"
)

const codeRunIDSuffixLen = 6

// EventPublisher receives code runs once they are persisted.
type EventPublisher interface {
	PublishCodeRun(ctx context.Context, event types.CodeRunEvent) error
}

// AppendCodeRun stores a new code run at the end of the user's history,
// creating the user first when needed.
func (s *UserService) AppendCodeRun(ctx context.Context, userID, language, code string) (types.CodeRun, error) {
	switch {
	case userID == "":
		return types.CodeRun{}, ErrUserIDRequired
	case language == "":
		return types.CodeRun{}, ErrLanguageRequired
	case code == "":
		return types.CodeRun{}, ErrCodeRequired
	}

	run, err := s.appendCodeRun(ctx, userID, language, code)
	if err != nil {
		return types.CodeRun{}, err
	}

	if s.publisher != nil {
		event := types.CodeRunEvent{UserID: userID, CodeRun: run}
		if err := s.publisher.PublishCodeRun(ctx, event); err != nil {
			s.logger.Warn("failed to publish code run event",
				zap.String("user_id", userID),
				zap.String("code_run_id", run.ID),
				zap.Error(err),
			)
		}
	}
	return run, nil
}

func (s *UserService) appendCodeRun(ctx context.Context, userID, language, code string) (types.CodeRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.repo.Load(ctx)
	if err != nil {
		return types.CodeRun{}, err
	}

	now := s.now()
	timestamp := types.FormatTimestamp(now)
	user := upsertUser(&doc, userID, nil, timestamp)

	run := types.CodeRun{
		ID:       s.newID(now),
		Time:     timestamp,
		Language: language,
		Code:     code,
	}
	user.CodeRuns = append(user.CodeRuns, run)
	user.UpdatedAt = timestamp

	if err := s.repo.Save(ctx, doc); err != nil {
		return types.CodeRun{}, err
	}
	return run, nil
}

// ListCodeRuns returns the user's code runs, most recent first. Unknown users
// have an empty history.
func (s *UserService) ListCodeRuns(ctx context.Context, userID string) ([]types.CodeRun, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	i := doc.FindUser(userID)
	if i < 0 {
		return []types.CodeRun{}, nil
	}

	runs := doc.Users[i].CodeRuns
	reversed := make([]types.CodeRun, len(runs))
	for j, run := range runs {
		reversed[len(runs)-1-j] = run
	}
	return reversed, nil
}

// newCodeRunID returns "<unix millis>-<6 hex chars>".
func newCodeRunID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:codeRunIDSuffixLen]
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix
}
