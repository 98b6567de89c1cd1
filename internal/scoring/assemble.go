package scoring

import (
	"time"

	"github.com/google/uuid"

	"compliance-packet/backend/internal/ai"
	"compliance-packet/backend/internal/packet"
)

// QuotaAdvisory is the fixed note appended when a check is admitted inside
// the soft-quota band.
const QuotaAdvisory = "approaching daily check quota; subsequent checks may be rejected"

// Assembler chooses between a provider result and the heuristic fallback and
// stamps server-side provenance on whichever packet wins.
type Assembler struct {
	heuristic *Heuristic
}

// NewAssembler wires the assembler to its fallback scorer.
func NewAssembler(h *Heuristic) *Assembler {
	return &Assembler{heuristic: h}
}

// Assemble returns the provider packet when the outcome carries one, else
// the heuristic packet. InputID and CheckedAt are always assigned here, so a
// provider can never spoof provenance.
func (a *Assembler) Assemble(content string, outcome ai.Outcome) packet.CompliancePacket {
	var p packet.CompliancePacket
	if outcome.Scored {
		p = outcome.Packet
	} else {
		p = a.heuristic.Score(content)
	}
	p.Meta.InputID = uuid.NewString()
	p.Meta.CheckedAt = time.Now().UTC()
	return p
}

// WithQuotaWarning returns a copy of the packet with the quota advisory
// appended to the overall notes. Scores are never altered.
func WithQuotaWarning(p packet.CompliancePacket) packet.CompliancePacket {
	notes := make([]string, 0, len(p.Overall.Notes)+1)
	notes = append(notes, p.Overall.Notes...)
	notes = append(notes, QuotaAdvisory)
	p.Overall.Notes = notes
	return p
}
