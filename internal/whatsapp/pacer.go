package whatsapp

import (
	"context"
	"log/slog"
	"time"

	"github.com/aylahq/ayla-agent/internal/events"
)

// Sender delivers one message. Satisfied by Client.
type Sender interface {
	SendText(ctx context.Context, number, text string) error
}

// DeliveryReport summarizes one paced delivery.
type DeliveryReport struct {
	Segments     int
	MessagesSent int
	Aborted      bool
	Err          error
}

// Pacer sends a response as sequential segments with a human-feeling
// delay between them. A failed segment aborts the rest of the turn.
type Pacer struct {
	sender Sender
	maxLen int
	delay  time.Duration
	logger *slog.Logger
	bus    *events.Bus

	// sleep is swappable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer builds a pacer. Zero maxLen and delay take the defaults
// (200 chars, 3.5s).
func NewPacer(sender Sender, maxLen int, delay time.Duration, logger *slog.Logger, bus *events.Bus) *Pacer {
	if maxLen <= 0 {
		maxLen = DefaultMaxSegment
	}
	if delay <= 0 {
		delay = 3500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pacer{
		sender: sender,
		maxLen: maxLen,
		delay:  delay,
		logger: logger,
		bus:    bus,
		sleep:  sleepCtx,
	}
}

// Deliver normalizes, segments and sends text to one recipient. The
// report carries the partial count when a send fails or the context is
// cancelled mid-delivery.
func (p *Pacer) Deliver(ctx context.Context, recipient, text string) DeliveryReport {
	segments := Segment(Normalize(text), p.maxLen)
	report := DeliveryReport{Segments: len(segments)}

	for i, segment := range segments {
		if err := p.sender.SendText(ctx, recipient, segment); err != nil {
			p.logger.Warn("segment delivery failed",
				"recipient", recipient, "segment", i+1, "of", len(segments), "error", err)
			report.Aborted = true
			report.Err = err
			break
		}
		report.MessagesSent++
		p.publish(events.KindSegmentSent, map[string]any{
			"recipient": recipient, "segment": i + 1, "of": len(segments),
		})

		if i < len(segments)-1 {
			if err := p.sleep(ctx, p.delay); err != nil {
				report.Aborted = true
				report.Err = err
				break
			}
		}
	}

	p.publish(events.KindDeliveryComplete, map[string]any{
		"recipient": recipient,
		"segments":  report.Segments,
		"sent":      report.MessagesSent,
		"aborted":   report.Aborted,
	})
	return report
}

func (p *Pacer) publish(kind string, data map[string]any) {
	p.bus.Publish(events.Event{
		Timestamp: time.Now(),
		Source:    events.SourceWhatsApp,
		Kind:      kind,
		Data:      data,
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
