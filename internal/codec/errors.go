package codec

import "errors"

var (
	errShortSignature    = errors.New("codec: payload shorter than expected signature")
	errSignatureMismatch = errors.New("codec: signature mismatch")
	errEmptyFrame        = errors.New("codec: empty frame")
	errUnknownFlag       = errors.New("codec: unknown flag byte")
)
