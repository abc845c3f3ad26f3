package domain

import (
	"fmt"

	"github.com/cwrk-planet/comments-service/pkg/errs"
)

var (
	ErrEmptyContent   = fmt.Errorf("%w: message content is empty", errs.ErrValidation)
	ErrEmptySender    = fmt.Errorf("%w: sender is empty", errs.ErrValidation)
	ErrContentTooLong = fmt.Errorf("%w: message content is too long", errs.ErrValidation)
	ErrInvalidSubject = fmt.Errorf("%w: subject id must be positive", errs.ErrValidation)
)
