package protocol

import (
	"testing"
)

func TestErrorMessageEncodeDecode(t *testing.T) {
	tests := []struct {
		name string
		em   *ErrorMessage
	}{
		{"handler_not_found", NewError(ErrHandlerNotFound, "no click listener on node 4")},
		{"fatal", NewFatalError(ErrSessionLimit, "too many sessions")},
		{"empty_message", NewError(ErrUnknown, "")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			decoded, err := DecodeErrorMessage(EncodeErrorMessage(tc.em))
			if err != nil {
				t.Fatalf("DecodeErrorMessage() error = %v", err)
			}
			if *decoded != *tc.em {
				t.Errorf("DecodeErrorMessage() = %+v, want %+v", *decoded, *tc.em)
			}
		})
	}
}

func TestErrorMessageError(t *testing.T) {
	tests := []struct {
		em   *ErrorMessage
		want string
	}{
		{NewError(ErrInvalidEvent, "bad name"), "InvalidEvent: bad name"},
		{NewFatalError(ErrRenderFailed, "E002"), "fatal: RenderFailed: E002"},
		{NewError(ErrorCode(0x9999), "x"), "Unknown: x"},
	}
	for _, tc := range tests {
		if got := tc.em.Error(); got != tc.want {
			t.Errorf("Error() = %q, want %q", got, tc.want)
		}
	}
}
