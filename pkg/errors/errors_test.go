package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ligandscreen/pkg/errors"
)

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"invalid encoding", errors.ErrCodeInvalidEncoding, "unclosed ring bond"},
		{"transport", errors.ErrCodeTransport, "connection refused"},
		{"corpus", errors.ErrCodeCorpusLoadFailure, "no records"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ae := errors.New(tc.code, tc.message)
			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
			assert.NotEmpty(t, ae.Stack)
		})
	}
}

func TestError_Format(t *testing.T) {
	ae := errors.New(errors.ErrCodeCorpusLoadFailure, "open corpus").WithDetail("/data/pdb.csv")
	assert.Equal(t, "[COR_001] open corpus: /data/pdb.csv", ae.Error())

	wrapped := errors.Wrap(fmt.Errorf("no such file"), errors.ErrCodeCorpusLoadFailure, "open corpus")
	assert.Equal(t, "[COR_001] open corpus: no such file", wrapped.Error())
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "x"))
}

func TestWrap_UnknownPreservesInnerCode(t *testing.T) {
	inner := errors.New(errors.ErrCodeTransport, "timeout")
	outer := errors.Wrap(inner, errors.CodeUnknown, "primary batch")
	assert.Equal(t, errors.ErrCodeTransport, outer.Code)

	plain := errors.Wrap(stderrors.New("boom"), errors.CodeUnknown, "x")
	assert.Equal(t, errors.CodeInternal, plain.Code)
}

func TestIsCode_TraversesChain(t *testing.T) {
	inner := errors.New(errors.ErrCodeMalformedPayload, "bad json")
	outer := errors.Wrap(inner, errors.ErrCodeTransport, "primary batch failed")
	std := fmt.Errorf("resolver: %w", outer)

	assert.True(t, errors.IsCode(std, errors.ErrCodeTransport))
	assert.True(t, errors.IsCode(std, errors.ErrCodeMalformedPayload))
	assert.False(t, errors.IsCode(std, errors.ErrCodeCorpusLoadFailure))
	assert.False(t, errors.IsCode(nil, errors.ErrCodeTransport))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("x")))
	assert.Equal(t, errors.ErrCodeInvalidEncoding, errors.GetCode(errors.New(errors.ErrCodeInvalidEncoding, "x")))
}

func TestWithDetail_DoesNotMutateReceiver(t *testing.T) {
	base := errors.New(errors.ErrCodeInvalidEncoding, "bad")
	derived := base.WithDetail("C1CC")
	assert.Empty(t, base.Detail)
	assert.Equal(t, "C1CC", derived.Detail)

	var nilErr *errors.AppError
	assert.Nil(t, nilErr.WithDetail("x"))
	assert.Nil(t, nilErr.WithCause(stderrors.New("x")))
}

func TestErrorsIs_ThroughUnwrap(t *testing.T) {
	sentinel := stderrors.New("sentinel")
	ae := errors.New(errors.ErrCodeTransport, "x").WithCause(sentinel)
	assert.True(t, errors.Is(ae, sentinel))

	var target *errors.AppError
	assert.True(t, errors.As(fmt.Errorf("w: %w", ae), &target))
	assert.Equal(t, errors.ErrCodeTransport, target.Code)
}

//Personal.AI order the ending
