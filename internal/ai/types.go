package ai

import (
	"context"

	"compliance-packet/backend/internal/packet"
)

// Outcome is the two-variant result of a provider evaluation: either a
// scored packet or nothing. Modelling this explicitly keeps the fallback
// decision local to the assembler instead of threading a nullable value
// through the request path.
type Outcome struct {
	Scored bool
	Packet packet.CompliancePacket
}

// NoResult reports a provider evaluation that produced nothing usable.
func NoResult() Outcome {
	return Outcome{}
}

// ScoredResult wraps a validated provider packet.
func ScoredResult(p packet.CompliancePacket) Outcome {
	return Outcome{Scored: true, Packet: p}
}

// Scorer exposes provider-backed scoring for content checks.
type Scorer interface {
	Enabled() bool
	Evaluate(ctx context.Context, content string) Outcome
}
