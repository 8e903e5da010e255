package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodeRoundTrip(t *testing.T) {
	for _, entry := range codeTable {
		wrapped := fmt.Errorf("edit slot: %w", entry.err)
		code := ErrorCode(wrapped)
		assert.Equal(t, entry.code, code)
		assert.ErrorIs(t, ErrorFromCode(code), entry.err)
	}
}

func TestErrorCodeUnknown(t *testing.T) {
	assert.Equal(t, CodeInternal, ErrorCode(errors.New("boom")))
	assert.Nil(t, ErrorFromCode("whatever"))
	assert.Nil(t, ErrorFromCode(CodeInternal))
}
