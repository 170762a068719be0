package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewError_Code(t *testing.T) {
	t.Parallel()

	err := NewError("something failed", errors.New("underlying"))
	assert.Equal(t, int(ExitError), err.Code)
	assert.Equal(t, 1, err.Code)
}

func TestTrackgridError_ErrorWithUnderlying(t *testing.T) {
	t.Parallel()

	underlying := errors.New("disk full")
	err := NewError("write failed", underlying)
	assert.Equal(t, "write failed: disk full", err.Error())
}

func TestTrackgridError_ErrorWithoutUnderlying(t *testing.T) {
	t.Parallel()

	err := NewError("config missing", nil)
	assert.Equal(t, "config missing", err.Error())
}

func TestTrackgridError_ErrorMessageFormatting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     *TrackgridError
		wantMsg string
	}{
		{
			name:    "error with underlying",
			err:     NewError("processing failed", errors.New("permission denied")),
			wantMsg: "processing failed: permission denied",
		},
		{
			name:    "error with nil underlying",
			err:     NewError("generic failure", nil),
			wantMsg: "generic failure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestTrackgridError_Unwrap(t *testing.T) {
	t.Parallel()

	underlying := errors.New("root cause")
	err := NewError("wrapper", underlying)

	unwrapped := err.Unwrap()
	assert.Equal(t, underlying, unwrapped)
}

func TestTrackgridError_UnwrapNil(t *testing.T) {
	t.Parallel()

	err := NewError("no underlying", nil)
	assert.Nil(t, err.Unwrap())
}

func TestTrackgridError_ErrorsIs(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("sentinel error")
	trackgridErr := NewError("wrapped sentinel", sentinel)

	assert.True(t, errors.Is(trackgridErr, sentinel),
		"errors.Is should find the sentinel through TrackgridError.Unwrap")
}

func TestTrackgridError_ErrorsIsChained(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("deep sentinel")
	wrapped := fmt.Errorf("mid-level: %w", sentinel)
	trackgridErr := NewError("top-level", wrapped)

	assert.True(t, errors.Is(trackgridErr, sentinel),
		"errors.Is should traverse the full chain")
}

func TestTrackgridError_ErrorsAs(t *testing.T) {
	t.Parallel()

	trackgridErr := NewError("partial", errors.New("some failed"))

	// Wrap the TrackgridError in a standard error chain.
	wrappedErr := fmt.Errorf("command failed: %w", trackgridErr)

	var target *TrackgridError
	require.True(t, errors.As(wrappedErr, &target),
		"errors.As should extract TrackgridError from wrapped chain")
	assert.Equal(t, int(ExitError), target.Code)
	assert.Equal(t, "partial", target.Message)
}

func TestTrackgridError_ErrorsAsDirectly(t *testing.T) {
	t.Parallel()

	trackgridErr := NewError("direct", errors.New("cause"))

	var target *TrackgridError
	require.True(t, errors.As(trackgridErr, &target))
	assert.Equal(t, int(ExitError), target.Code)
}

func TestTrackgridError_ImplementsErrorInterface(t *testing.T) {
	t.Parallel()

	// Compile-time check that *TrackgridError implements error.
	var _ error = (*TrackgridError)(nil)

	// Runtime check.
	var err error = NewError("test", nil)
	assert.NotNil(t, err)
	assert.Equal(t, "test", err.Error())
}

func TestTrackgridError_ErrorsIsWithStdlibErrors(t *testing.T) {
	t.Parallel()

	// Wrap a standard library error type (fs.ErrNotExist) in TrackgridError.
	trackgridErr := NewError("file not found", fs.ErrNotExist)

	assert.True(t, errors.Is(trackgridErr, fs.ErrNotExist),
		"errors.Is should find fs.ErrNotExist through TrackgridError")
}

func TestNewError_PreservesMessage(t *testing.T) {
	t.Parallel()

	err := NewError("custom message", errors.New("cause"))
	assert.Equal(t, "custom message", err.Message)
}

func TestTrackgridError_ErrorsIsNonMatching(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("expected sentinel")
	other := errors.New("different sentinel")
	trackgridErr := NewError("wrapped", sentinel)

	assert.False(t, errors.Is(trackgridErr, other),
		"errors.Is should return false when sentinel does not match")
}

func TestTrackgridError_ErrorsAsNonMatching(t *testing.T) {
	t.Parallel()

	// A plain error that is NOT a *TrackgridError should not match errors.As.
	plainErr := fmt.Errorf("plain: %w", errors.New("cause"))

	var target *TrackgridError
	assert.False(t, errors.As(plainErr, &target),
		"errors.As should return false when chain contains no TrackgridError")
}

func TestNewError_UnwrapNilUnderlying(t *testing.T) {
	t.Parallel()

	err := NewError("no cause", nil)
	assert.Nil(t, err.Unwrap())
}

func TestTrackgridError_EmptyMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     *TrackgridError
		wantMsg string
	}{
		{
			name:    "NewError empty message no underlying",
			err:     NewError("", nil),
			wantMsg: "",
		},
		{
			name:    "NewError empty message with underlying",
			err:     NewError("", errors.New("cause")),
			wantMsg: ": cause",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestTrackgridError_ErrorsIsNilTarget(t *testing.T) {
	t.Parallel()

	// TrackgridError with nil underlying should NOT match nil sentinel via errors.Is.
	// errors.Is(err, nil) returns true only when err is nil.
	trackgridErr := NewError("msg", nil)
	assert.False(t, errors.Is(trackgridErr, nil),
		"errors.Is(nonNilErr, nil) should return false")
}
