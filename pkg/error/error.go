package error

type GenericError interface {
	Error() string
	ErrCode() string
	StatusCode() int
}
