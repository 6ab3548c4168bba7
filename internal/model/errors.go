package model

import (
	"errors"
)

var (
	ErrInvalidPayload = errors.New("invalid payload")
)
