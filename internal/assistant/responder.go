package assistant

import (
	"context"

	"github.com/linnemanlabs/smilecare/internal/catalog"
)

// CannedReply is the doctor's reply when no model is configured.
const CannedReply = "Thank you for sharing this information. Let me give you some personalized recommendations."

// Responder produces the doctor's reply to the newest patient message in a
// thread.
type Responder interface {
	Reply(ctx context.Context, doctor catalog.Doctor, thread *Thread) (string, error)
}

// CannedResponder always answers with CannedReply.
type CannedResponder struct{}

func (CannedResponder) Reply(context.Context, catalog.Doctor, *Thread) (string, error) {
	return CannedReply, nil
}
