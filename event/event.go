package event

import (
	"time"

	"github.com/Thijssvd/SommOS-sub001/id"
)

// Event is a named signal published to the bus. Scheduler lifecycle
// transitions are published as events so external code can wait on them
// without polling job status.
type Event struct {
	ID        id.EventID `json:"id"`
	Name      string     `json:"name"`
	Payload   []byte     `json:"payload,omitempty"`
	Acked     bool       `json:"acked"`
	CreatedAt time.Time  `json:"created_at"`
}
