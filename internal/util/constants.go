package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 文件上传相关常量
const (
	MimeVideo       = "video/"
	MimeImage       = "image/"
	MimePDF         = "application/pdf"
	MimeOctetStream = "application/octet-stream"
	MimeZip         = "application/zip"
	MimeText        = "text/plain"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var (
	AllowedVideoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".webm"}

	// 课程资料允许的 MIME 类型（前缀匹配）
	MaterialMimeTypes = []string{MimePDF, MimeImage, MimeVideo, MimeZip, MimeText}

	// 公告附件允许的 MIME 类型
	AnnouncementMimeTypes = []string{MimePDF, MimeImage, MimeZip, MimeText}

	AvatarMimeTypes = []string{MimeImage}
)
