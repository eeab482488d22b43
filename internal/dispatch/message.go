package dispatch

import (
	"time"

	"github.com/google/uuid"

	"forgedeck/internal/forge"
)

// Outcome classifies a Message.
type Outcome int

const (
	// Success carries a payload (fetch) or confirms a mutation.
	Success Outcome = iota
	// Failure carries the typed error of a failed task.
	Failure
	// Notice is a pure UI-state event: side-effect confirmations and other
	// results with no resource payload.
	Notice
)

// Message is the result of exactly one task, stamped with the epoch the
// task was issued under. The reducer consumes messages in receipt order;
// the controller drops any whose epoch is no longer current.
type Message struct {
	TaskID  uuid.UUID
	Epoch   uint64
	Outcome Outcome

	// Key identifies the resource the task was about. Zero for pure
	// side-effect tasks.
	Key forge.ResourceKey
	// Page is set for FetchPage results (2+); page-one fetches leave it 0.
	Page int

	// Payload is the normalized record on fetch success.
	Payload any
	// FetchedAt is when the payload was obtained (cache timestamp for
	// cache-served results, completion time for network results).
	FetchedAt time.Time
	// FromCache marks the immediate cache-served message of a
	// stale-while-revalidate read.
	FromCache bool

	// Mutation echoes the operation for mutation results.
	Mutation *Mutation

	// Err is set on Failure.
	Err error
	// Note is a short human-readable status line for Notice messages.
	Note string
}

// Failed reports whether the message carries an error.
func (m Message) Failed() bool { return m.Outcome == Failure }

func (d *Dispatcher) success(epoch uint64, key forge.ResourceKey, payload any, fetchedAt time.Time, fromCache bool) Message {
	return Message{
		TaskID:    uuid.New(),
		Epoch:     epoch,
		Outcome:   Success,
		Key:       key,
		Payload:   payload,
		FetchedAt: fetchedAt,
		FromCache: fromCache,
	}
}

func (d *Dispatcher) failure(epoch uint64, key forge.ResourceKey, err error) Message {
	return Message{
		TaskID:  uuid.New(),
		Epoch:   epoch,
		Outcome: Failure,
		Key:     key,
		Err:     err,
	}
}

func (d *Dispatcher) notice(epoch uint64, note string) Message {
	return Message{
		TaskID:  uuid.New(),
		Epoch:   epoch,
		Outcome: Notice,
		Note:    note,
	}
}
