package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/tts-access-api/internal/model"
)

// statusKeyPrefix is shared with the external TTS worker, which writes the
// same hash as it progresses.
const statusKeyPrefix = "tts_status:"

// TTSStatusRepo is the keyed status store for TTS tasks, one Redis hash per
// task with fields `status` and, once rendered, `file`.
type TTSStatusRepo struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTTSStatusRepo builds a store whose hashes expire after ttl (0 keeps them).
func NewTTSStatusRepo(rdb *redis.Client, ttl time.Duration) *TTSStatusRepo {
	return &TTSStatusRepo{rdb: rdb, ttl: ttl}
}

func statusKey(taskID string) string { return statusKeyPrefix + taskID }

// Put writes st.Status (and st.File when non-empty) for st.TaskID.
func (r *TTSStatusRepo) Put(ctx context.Context, st model.TTSStatus) error {
	fields := map[string]any{"status": st.Status}
	if st.File != "" {
		fields["file"] = st.File
	}
	key := statusKey(st.TaskID)
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Get reads the status of taskID.  A hash without a status field is
// reported as ErrNotFound.
func (r *TTSStatusRepo) Get(ctx context.Context, taskID string) (model.TTSStatus, error) {
	vals, err := r.rdb.HGetAll(ctx, statusKey(taskID)).Result()
	if err != nil {
		return model.TTSStatus{}, err
	}
	status := vals["status"]
	if status == "" {
		return model.TTSStatus{}, ErrNotFound
	}
	return model.TTSStatus{TaskID: taskID, Status: status, File: vals["file"]}, nil
}
