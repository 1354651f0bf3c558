// Package queue defines message payloads exchanged with the external TTS
// worker over the message broker, and the consumer for its status events.
package queue

// TTSTaskEvent is published when a client submits text for synthesis.  The
// worker renders the audio and reports progress through the status store.
type TTSTaskEvent struct {
	TaskID string `json:"taskId"`
	Text   string `json:"text"`
}

// TTSStatusEvent is emitted by the worker as a task progresses.  File is
// the server-relative path of the rendered audio and is only set once the
// task is done.
type TTSStatusEvent struct {
	TaskID string `json:"taskId"`
	Status string `json:"status"`
	File   string `json:"file,omitempty"`
}
