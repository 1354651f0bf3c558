package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/tts-access-api/internal/model"
	q "github.com/iliyamo/tts-access-api/internal/queue"
	"github.com/iliyamo/tts-access-api/internal/repository"
)

// TTSService submits text to the external speech worker and reports task
// progress from the status store the worker writes to.
type TTSService struct {
	Store     StatusStore
	Publisher TaskPublisher
	Log       *zap.Logger

	newID func() string
}

func NewTTSService(status StatusStore, pub TaskPublisher, log *zap.Logger) *TTSService {
	return &TTSService{Store: status, Publisher: pub, Log: log, newID: uuid.NewString}
}

// Submit queues text and returns the task id.  The queued status is written
// before publishing so a fast worker's update is never overwritten.
func (s *TTSService) Submit(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", Validation(CodeValidation, "Text is required")
	}
	id := s.newID()
	if err := s.Store.Put(ctx, model.TTSStatus{TaskID: id, Status: model.TTSStatusQueued}); err != nil {
		return "", Internal("Failed to queue text-to-speech task", err)
	}
	if err := s.Publisher.PublishTask(ctx, q.TTSTaskEvent{TaskID: id, Text: text}); err != nil {
		if perr := s.Store.Put(ctx, model.TTSStatus{TaskID: id, Status: model.TTSStatusFailed}); perr != nil {
			s.Log.Warn("tts: mark failed", zap.String("task_id", id), zap.Error(perr))
		}
		return "", Internal("Failed to queue text-to-speech task", err)
	}
	return id, nil
}

// Status returns the current state of taskID.
func (s *TTSService) Status(ctx context.Context, taskID string) (model.TTSStatus, error) {
	st, err := s.Store.Get(ctx, strings.TrimSpace(taskID))
	if errors.Is(err, repository.ErrNotFound) {
		return model.TTSStatus{}, NotFound(CodeNotFound, "Task not found")
	}
	if err != nil {
		return model.TTSStatus{}, Internal("Failed to read task status", err)
	}
	return st, nil
}
