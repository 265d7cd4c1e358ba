package decoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// zbarimg exits with 4 when it processed the image but found no symbol.
const zbarExitNoSymbol = 4

// ZbarDecoder shells out to the zbar command line scanner.
type ZbarDecoder struct {
	binary string
}

// NewZbarDecoder creates a subprocess decoder. An empty binary falls back to
// "zbarimg" resolved from PATH.
func NewZbarDecoder(binary string) *ZbarDecoder {
	if binary == "" {
		binary = "zbarimg"
	}
	return &ZbarDecoder{binary: binary}
}

// Decode invokes zbarimg with the profile's arguments against imagePath.
// Output lines look like "QR-Code:payload" or "EAN-13:payload".
func (d *ZbarDecoder) Decode(ctx context.Context, imagePath string, profile Profile) (string, error) {
	args := make([]string, 0, len(profile.Args)+2)
	args = append(args, "-q")
	args = append(args, profile.Args...)
	args = append(args, imagePath)

	cmd := exec.CommandContext(ctx, d.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == zbarExitNoSymbol {
			// The scanner ran fine, the image just has no code.
			return "", nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", &ProfileError{Profile: profile.Name, Err: ctxErr}
		}
		return "", &ProfileError{
			Profile: profile.Name,
			Err:     fmt.Errorf("%s: %w (stderr: %s)", d.binary, err, stderr.String()),
		}
	}

	return stdout.String(), nil
}
