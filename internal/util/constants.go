package util

const (
	DateFormat     = "2006-01-02"
	TimeFormat     = "2006-01-02 15:04:05"
	ClockFormat    = "15:04"
	DisplayFormat  = "Jan 2, 2006 15:04"
	LocalMinFormat = "2006-01-02T15:04"
	LocalSecFormat = "2006-01-02T15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 上传目录前缀
const (
	DirAvatars       = "avatars"
	DirDocuments     = "documents"
	DirMedia         = "media"
	DirQuiz          = "quiz"
	DirAnnouncements = "announcements"
	DirSubmissions   = "submissions"
)

// 文件上传相关常量
const (
	MimeVideo       = "video/"
	MimeAudio       = "audio/"
	MimeImage       = "image/"
	MimePDF         = "application/pdf"
	MimeOctetStream = "application/octet-stream"
)

// multipart 字段命名约定
const (
	QuestionFilesFieldPrefix = "files_q"
	AnswerFileFieldPrefix    = "answer_file_"
)

var (
	AllowedMediaExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".wmv", ".flv", ".webm", ".mp3", ".wav", ".m4a"}
	AvatarMimeTypes        = []string{MimeImage}
)
