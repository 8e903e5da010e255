package service

import (
	"errors"

	"github.com/xuanlam2007/scholium/internal/access"
	"github.com/xuanlam2007/scholium/internal/repository/base"
	"github.com/xuanlam2007/scholium/internal/timeslot"
)

var (
	ErrPermissionDenied = access.ErrPermissionDenied
	ErrNotMember        = access.ErrNotMember

	ErrNotFound         = errors.New("not found")
	ErrHostCannotQuit   = errors.New("host cannot quit, transfer the host role or delete the scholium")
	ErrCannotModifyHost = errors.New("host member cannot be modified")
	ErrInvalidAccessID  = errors.New("invalid access id")
	ErrInvalidInput     = errors.New("invalid input")

	ErrInvalidSlotCount  = timeslot.ErrInvalidSlotCount
	ErrInvalidTimeFormat = timeslot.ErrInvalidTimeFormat
	ErrInvalidTimeRange  = timeslot.ErrInvalidTimeRange
	ErrInvalidOrdering   = timeslot.ErrInvalidOrdering
)

// storeErr переводит ошибку хранилища в доменную
func storeErr(err error) error {
	if errors.Is(err, base.ErrNotFound) || errors.Is(err, timeslot.ErrSlotNotFound) {
		return ErrNotFound
	}
	return err
}
