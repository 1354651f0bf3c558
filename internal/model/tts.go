package model

// TTS job states written to the status store.  The external worker moves
// a task from queued to processing and finally to done or failed.
const (
	TTSStatusQueued     = "queued"
	TTSStatusProcessing = "processing"
	TTSStatusDone       = "done"
	TTSStatusFailed     = "failed"
)

// TTSStatus is the view of a task held in the `tts_status:<taskId>` hash.
// File is the server-relative path of the rendered audio once done.
type TTSStatus struct {
	TaskID string
	Status string
	File   string
}
