package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/tts-access-api/internal/model"
)

func TestTTS_SubmitAndStatus(t *testing.T) {
	store, pub := &memStatus{}, &memPublisher{}
	svc := NewTTSService(store, pub, zap.NewNop())
	svc.newID = func() string { return "task-1" }
	ctx := context.Background()

	id, err := svc.Submit(ctx, "  hello world ")
	require.NoError(t, err)
	assert.Equal(t, "task-1", id)
	require.Len(t, pub.got, 1)
	assert.Equal(t, "hello world", pub.got[0].Text)

	st, err := svc.Status(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, model.TTSStatusQueued, st.Status)

	_, err = svc.Status(ctx, "missing")
	requireAppErr(t, err, 404, CodeNotFound)
}

func TestTTS_SubmitValidationAndPublishFailure(t *testing.T) {
	store := &memStatus{}
	svc := NewTTSService(store, &memPublisher{err: errors.New("broker down")}, zap.NewNop())
	svc.newID = func() string { return "task-2" }
	ctx := context.Background()

	_, err := svc.Submit(ctx, "   ")
	requireAppErr(t, err, 400, CodeValidation)

	_, err = svc.Submit(ctx, "hi")
	requireAppErr(t, err, 500, CodeInternal)
	assert.Equal(t, model.TTSStatusFailed, store.m["task-2"].Status)
}

func TestMailerSelection(t *testing.T) {
	_, isLog := NewMailer(SMTPConfig{}, zap.NewNop()).(LogMailer)
	assert.True(t, isLog)
	_, isSMTP := NewMailer(SMTPConfig{Host: "smtp.example.com", Port: 587}, zap.NewNop()).(*SMTPMailer)
	assert.True(t, isSMTP)
	assert.NoError(t, LogMailer{Log: zap.NewNop()}.Send(context.Background(), "a@x.com", "s", "b"))
}
