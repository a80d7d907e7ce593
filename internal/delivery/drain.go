package delivery

import (
	"context"
	"time"

	"github.com/raoulx24/camrelay/internal/artifact"
	"github.com/raoulx24/camrelay/internal/errs"
	"github.com/raoulx24/camrelay/internal/fs"
	"github.com/raoulx24/camrelay/internal/ledger"
	"github.com/raoulx24/camrelay/internal/logging"
	"github.com/raoulx24/camrelay/internal/queue"
)

// Recorder stores drain outcomes. *ledger.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, e ledger.Entry) error
}

// RoundInfo tags ledger entries with the run and round they belong to.
type RoundInfo struct {
	RunID    string
	Deadline time.Time
}

// Stats counts drain outcomes.
type Stats struct {
	Delivered int
	Retained  int
}

func (s Stats) Total() int {
	return s.Delivered + s.Retained
}

// Drainer empties a round's queue. Files are deleted only after the uploader
// confirms them; anything else stays on disk for a later redelivery.
type Drainer struct {
	uploader Uploader
	fs       fs.FS
	ledger   Recorder
	log      logging.Logger
}

// NewDrainer creates a drainer. rec may be nil to skip the ledger.
func NewDrainer(u Uploader, filesystem fs.FS, rec Recorder, log logging.Logger) *Drainer {
	if filesystem == nil {
		filesystem = fs.New()
	}
	return &Drainer{
		uploader: u,
		fs:       filesystem,
		ledger:   rec,
		log:      log.With("component", "delivery"),
	}
}

// Drain pops descriptors until the queue reports empty. It never blocks
// waiting for more and never re-enqueues a failed artifact.
func (d *Drainer) Drain(ctx context.Context, q *queue.Queue, info RoundInfo) Stats {
	var stats Stats
	for {
		desc, ok := q.TryPop()
		if !ok {
			break
		}
		d.deliver(ctx, desc, info, &stats)
	}
	d.log.Info("queue drained", "deadline", info.Deadline, "delivered", stats.Delivered, "retained", stats.Retained)
	return stats
}

// Redeliver uploads artifacts left on disk by earlier runs.
func (d *Drainer) Redeliver(ctx context.Context, descs []artifact.Descriptor, runID string) Stats {
	q := queue.New()
	for _, desc := range descs {
		q.Push(desc)
	}
	return d.Drain(ctx, q, RoundInfo{RunID: runID})
}

func (d *Drainer) deliver(ctx context.Context, desc artifact.Descriptor, info RoundInfo, stats *Stats) {
	log := d.log.With("camera", desc.CameraID, "path", desc.FilePath)

	entry := ledger.Entry{
		RunID:    info.RunID,
		Deadline: info.Deadline,
		FilePath: desc.FilePath,
		CameraID: desc.CameraID,
		Region:   desc.Region,
	}
	if entry.Deadline.IsZero() {
		entry.Deadline = desc.Deadline
	}

	if err := d.uploader.Upload(ctx, desc); err != nil {
		log.Warn("upload failed, keeping file", "error", err, "kind", errs.Kind(err))
		stats.Retained++
		entry.Status = ledger.StatusRetained
		entry.Error = err.Error()
		d.record(ctx, entry, log)
		return
	}

	stats.Delivered++
	entry.Status = ledger.StatusDelivered
	if err := d.fs.Remove(ctx, desc.FilePath); err != nil {
		log.Warn("delivered file could not be deleted", "error", err)
		entry.Error = "delete: " + err.Error()
	} else {
		log.Debug("delivered")
	}
	d.record(ctx, entry, log)
}

func (d *Drainer) record(ctx context.Context, e ledger.Entry, log logging.Logger) {
	if d.ledger == nil {
		return
	}
	if err := d.ledger.Record(ctx, e); err != nil {
		log.Warn("ledger write failed", "error", err)
	}
}
