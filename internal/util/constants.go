package util

const (
	DateFormat = "2006-01-02"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// 附件上传相关常量
const (
	MimeImage       = "image/"
	MimePDF         = "application/pdf"
	MimeText        = "text/"
	MimeOctetStream = "application/octet-stream"
)

var (
	AllowedAttachmentExtensions = []string{".pdf", ".png", ".jpg", ".jpeg", ".txt", ".md", ".zip"}
)
