package errors

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "MOL_001", ErrCodeInvalidEncoding.String())
}

func TestHTTPStatusForCode(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrCodeInternal, 500},
		{ErrCodeBadRequest, 400},
		{ErrCodeInvalidEncoding, 422},
		{ErrCodeTransport, 502},
		{ErrCodeCorpusLoadFailure, 503},
		{ErrorCode("UNKNOWN"), 500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, HTTPStatusForCode(tt.code), tt.code)
	}
}

func TestDefaultMessageForCode(t *testing.T) {
	assert.Equal(t, "corpus load failed", DefaultMessageForCode(ErrCodeCorpusLoadFailure))
	assert.Equal(t, "unknown error", DefaultMessageForCode(ErrorCode("UNKNOWN")))
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(ErrCodeBadRequest))
	assert.True(t, IsClientError(ErrCodeInvalidEncoding))
	assert.False(t, IsClientError(ErrCodeInternal))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(ErrCodeCorpusLoadFailure))
	assert.True(t, IsFatal(ErrCodeCodecUnavailable))
	assert.False(t, IsFatal(ErrCodeInvalidEncoding))
	assert.False(t, IsFatal(ErrCodeAnnotationUnavailable))
	assert.False(t, IsFatal(ErrCodeTransport))
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, "COMMON", ModuleForCode(ErrCodeInternal))
	assert.Equal(t, "MOL", ModuleForCode(ErrCodeInvalidEncoding))
	assert.Equal(t, "ANN", ModuleForCode(ErrCodeTransport))
	assert.Equal(t, "COR", ModuleForCode(ErrCodeCorpusLoadFailure))
	assert.Equal(t, "UNKNOWN", ModuleForCode(ErrorCode("nounderscore")))
}

func TestAllCodesHaveStatusAndMessage(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z]+_\d{3}$`)
	for code := range ErrorCodeHTTPStatus {
		assert.Regexp(t, pattern, string(code))
		_, ok := ErrorCodeMessage[code]
		assert.True(t, ok, "missing message for %s", code)
	}
	assert.Len(t, ErrorCodeMessage, len(ErrorCodeHTTPStatus))
}

//Personal.AI order the ending
