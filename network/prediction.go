package network

import (
	"github.com/automoto/frontline-mp/shared/messages"
	"github.com/go-gl/mathgl/mgl64"
)

const predictionBufferSize = 64

// InputRecord pairs a sent input with where the local motor ended up after it.
type InputRecord struct {
	Input     messages.PlayerInput
	Predicted mgl64.Vec3
}

type predictionSlot struct {
	InputRecord
	used bool
}

// PredictionBuffer remembers the last predictionBufferSize inputs sent to the
// server, indexed by sequence number. The zero value is ready to use.
type PredictionBuffer struct {
	slots   [predictionBufferSize]predictionSlot
	nextSeq uint32
}

func (pb *PredictionBuffer) slot(seq uint32) *predictionSlot {
	return &pb.slots[seq%predictionBufferSize]
}

// Store records input and the position predicted for it. Sequences are
// expected to increase; storing one advances NextSeq past it.
func (pb *PredictionBuffer) Store(input messages.PlayerInput, predicted mgl64.Vec3) {
	*pb.slot(input.Sequence) = predictionSlot{
		InputRecord: InputRecord{Input: input, Predicted: predicted},
		used:        true,
	}
	pb.nextSeq = input.Sequence + 1
}

// Get returns the record for seq, or false once its slot was reused.
func (pb *PredictionBuffer) Get(seq uint32) (InputRecord, bool) {
	s := pb.slot(seq)
	if !s.used || s.Input.Sequence != seq {
		return InputRecord{}, false
	}
	return s.InputRecord, true
}

func (pb *PredictionBuffer) NextSeq() uint32 {
	return pb.nextSeq
}

// GetUnacknowledged lists the records after lastAcked, oldest first.
func (pb *PredictionBuffer) GetUnacknowledged(lastAcked uint32) []InputRecord {
	var out []InputRecord
	for seq := lastAcked + 1; seq < pb.nextSeq; seq++ {
		if rec, ok := pb.Get(seq); ok {
			out = append(out, rec)
		}
	}
	return out
}

// PredictionError is the distance between the prediction for seq and where
// the server says the character was. Unknown sequences report zero.
func (pb *PredictionBuffer) PredictionError(seq uint32, server mgl64.Vec3) float64 {
	rec, ok := pb.Get(seq)
	if !ok {
		return 0
	}
	return rec.Predicted.Sub(server).Len()
}

// Shift moves every prediction after lastAcked by offset, after a correction
// of the local character.
func (pb *PredictionBuffer) Shift(lastAcked uint32, offset mgl64.Vec3) {
	for seq := lastAcked + 1; seq < pb.nextSeq; seq++ {
		if s := pb.slot(seq); s.used && s.Input.Sequence == seq {
			s.Predicted = s.Predicted.Add(offset)
		}
	}
}

// Reset forgets every record, e.g. after a respawn.
func (pb *PredictionBuffer) Reset() {
	*pb = PredictionBuffer{nextSeq: pb.nextSeq}
}
