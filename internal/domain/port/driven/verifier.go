package driven

import (
	"context"
	"fmt"
)

// BuildVerifier checks the authenticity of a Travis webhook payload against
// the signature supplied in the request header. A nil return means the
// payload may be trusted; any failure is a *VerificationError.
type BuildVerifier interface {
	Verify(ctx context.Context, payload []byte, signature string) error
}

// VerificationError reports a failed or impossible signature check. Message
// and Status are surfaced verbatim to the caller.
type VerificationError struct {
	Status  int
	Message string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("signature verification failed (%d): %s", e.Status, e.Message)
}
