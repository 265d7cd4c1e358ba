package decoder

import (
	"context"
	"fmt"
)

// Decoder is a pluggable barcode/QR decoder implementation.
//
// Decode runs one attempt against the image at imagePath using the given
// parameter profile and returns the raw newline-delimited output, one decoded
// payload per line, with scan.QRPrefix marking QR payloads. An empty string
// with a nil error means the decoder ran but found nothing; a non-nil error
// means the invocation itself failed (crash, timeout, malformed call) and the
// caller may retry with another profile.
type Decoder interface {
	Decode(ctx context.Context, imagePath string, profile Profile) (string, error)
}

// ProfileError wraps a failed decoder invocation for a single profile.
type ProfileError struct {
	Profile string
	Err     error
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("decode profile %q failed: %v", e.Profile, e.Err)
}

func (e *ProfileError) Unwrap() error { return e.Err }
