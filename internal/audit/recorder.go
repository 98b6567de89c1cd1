package audit

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"compliance-packet/backend/internal/auth"
	"compliance-packet/backend/internal/packet"
	"compliance-packet/backend/internal/store"
)

const defaultQueueSize = 256

// CheckSink persists audit rows.
type CheckSink interface {
	InsertCheckLog(row *store.CheckLog) error
}

// Entry is everything recorded about one completed check. Raw content never
// enters the recorder; only its hash and the scalar packet fields do.
type Entry struct {
	Identity         auth.Identity
	ContentHash      string
	Packet           packet.CompliancePacket
	ProcessingTimeMs int64
}

// Recorder writes one best-effort audit row per check, decoupled from the
// response path by a buffered queue and a single worker. A failed or
// dropped write is logged and forgotten; the client already has its answer.
type Recorder struct {
	sink    CheckSink
	queue   chan Entry
	done    chan struct{}
	wg      sync.WaitGroup
	dropped func(Entry)
}

// NewRecorder starts the worker. queueSize <= 0 selects the default.
func NewRecorder(sink CheckSink, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	r := &Recorder{
		sink:  sink,
		queue: make(chan Entry, queueSize),
		done:  make(chan struct{}),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Record enqueues one audit entry without blocking the caller. When the
// queue is full the entry is dropped and the loss is logged.
func (r *Recorder) Record(entry Entry) {
	select {
	case r.queue <- entry:
	default:
		logrus.WithFields(logrus.Fields{
			"api_key_id": entry.Identity.APIKeyID,
			"input_id":   entry.Packet.Meta.InputID,
		}).Warn("audit queue full, dropping check record")
		if r.dropped != nil {
			r.dropped(entry)
		}
	}
}

// Close drains pending entries and stops the worker.
func (r *Recorder) Close() {
	close(r.done)
	r.wg.Wait()
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for {
		select {
		case entry := <-r.queue:
			r.write(entry)
		case <-r.done:
			for {
				select {
				case entry := <-r.queue:
					r.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(entry Entry) {
	row := &store.CheckLog{
		ID:               uuid.NewString(),
		UserID:           entry.Identity.UserID,
		APIKeyID:         entry.Identity.APIKeyID,
		ContentHash:      entry.ContentHash,
		SafetyScore:      entry.Packet.Safety.Score,
		SafetyCategory:   entry.Packet.Safety.Category,
		CopyrightRisk:    entry.Packet.Copyright.Risk,
		PiiDetected:      entry.Packet.Privacy.PiiDetected,
		ComplianceScore:  entry.Packet.Overall.ComplianceScore,
		Recommendation:   entry.Packet.Overall.Recommendation,
		ModelVersion:     entry.Packet.Meta.ModelVersion,
		ProcessingTimeMs: entry.ProcessingTimeMs,
	}
	if err := r.sink.InsertCheckLog(row); err != nil {
		// Single attempt only: the response is already out, a lost row is
		// acceptable, a retry storm is not.
		logrus.WithError(err).WithFields(logrus.Fields{
			"api_key_id": entry.Identity.APIKeyID,
			"input_id":   entry.Packet.Meta.InputID,
		}).Error("write audit row")
	}
}
