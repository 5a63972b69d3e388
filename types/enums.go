package types

type JobStatus string

const (
	JobDownloading JobStatus = "downloading"
	JobProbing     JobStatus = "probing"
	JobTranscoding JobStatus = "transcoding"
	JobUploading   JobStatus = "uploading"
	JobDone        JobStatus = "done"
	JobFailed      JobStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s JobStatus) Terminal() bool {
	return s == JobDone || s == JobFailed
}

type FileKind string

const (
	KindVideo    FileKind = "video"
	KindAudio    FileKind = "audio"
	KindDocument FileKind = "document"
	KindPhoto    FileKind = "photo"
)
