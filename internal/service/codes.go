package service

import "errors"

// Стабильные коды ошибок для API. Клиент переводит их обратно в те же ошибки.
const (
	CodePermissionDenied = "permission_denied"
	CodeNotMember        = "not_member"
	CodeNotFound         = "not_found"
	CodeHostCannotQuit   = "host_cannot_quit"
	CodeCannotModifyHost = "cannot_modify_host"
	CodeInvalidAccessID  = "invalid_access_id"
	CodeInvalidInput     = "invalid_input"
	CodeInvalidSlotCount = "invalid_slot_count"
	CodeInvalidFormat    = "invalid_time_format"
	CodeInvalidRange     = "invalid_time_range"
	CodeInvalidOrdering  = "invalid_ordering"
	CodeInternal         = "internal"
)

var codeTable = []struct {
	code string
	err  error
}{
	{CodePermissionDenied, ErrPermissionDenied},
	{CodeNotMember, ErrNotMember},
	{CodeNotFound, ErrNotFound},
	{CodeHostCannotQuit, ErrHostCannotQuit},
	{CodeCannotModifyHost, ErrCannotModifyHost},
	{CodeInvalidAccessID, ErrInvalidAccessID},
	{CodeInvalidInput, ErrInvalidInput},
	{CodeInvalidSlotCount, ErrInvalidSlotCount},
	{CodeInvalidFormat, ErrInvalidTimeFormat},
	{CodeInvalidRange, ErrInvalidTimeRange},
	{CodeInvalidOrdering, ErrInvalidOrdering},
}

// ErrorCode возвращает код для ошибки или CodeInternal
func ErrorCode(err error) string {
	for _, entry := range codeTable {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return CodeInternal
}

// ErrorFromCode обратное преобразование; неизвестный код даёт nil
func ErrorFromCode(code string) error {
	for _, entry := range codeTable {
		if entry.code == code {
			return entry.err
		}
	}
	return nil
}
