package apperrors

type Code string

const (
	CodeUnknown          Code = "UNKNOWN"
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeNotFound         Code = "NOT_FOUND"
	CodeMediaNotFound    Code = "MEDIA_NOT_FOUND"
	CodeAlreadyExists    Code = "ALREADY_EXISTS"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodeInternal         Code = "INTERNAL"
)
