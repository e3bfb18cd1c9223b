package experiment

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"

	"github.com/boristopalov/smbgym/pkg/messaging"
)

var statsHeader = []string{"Step", "MeanReward", "MinReward", "MaxReward", "Finished"}

// StatsRecorder writes one CSV row per step event it receives from a broker.
type StatsRecorder struct {
	id     string
	w      *csv.Writer
	events chan messaging.Event
	done   chan struct{}
	rows   int
	err    error
}

func NewStatsRecorder(id string, w io.Writer) *StatsRecorder {
	return &StatsRecorder{
		id:     id,
		w:      csv.NewWriter(w),
		events: make(chan messaging.Event, 1024),
		done:   make(chan struct{}),
	}
}

// Start writes the header and subscribes to broker.
func (r *StatsRecorder) Start(broker messaging.Broker) error {
	if err := r.w.Write(statsHeader); err != nil {
		return fmt.Errorf("write stats header: %w", err)
	}
	if err := broker.Subscribe(r.id, r.events); err != nil {
		return err
	}
	go r.loop()
	return nil
}

func (r *StatsRecorder) loop() {
	defer close(r.done)
	for ev := range r.events {
		if ev.Type != messaging.EventStep || r.err != nil {
			continue
		}
		if err := r.w.Write(statsRow(ev)); err != nil {
			r.err = err
			log.Printf("Warning: Failed to write to stats file: %v", err)
			continue
		}
		r.rows++
	}
}

// Stop unsubscribes, writes out the remaining events and reports the first
// write error. The file is flushed even if the broker no longer knows the
// recorder, for example after a Reset.
func (r *StatsRecorder) Stop(broker messaging.Broker) error {
	var unsubErr error
	if err := broker.Unsubscribe(r.id); err != nil {
		unsubErr = fmt.Errorf("unsubscribe stats recorder: %w", err)
	}
	close(r.events)
	<-r.done
	r.w.Flush()
	return errors.Join(unsubErr, r.err, r.w.Error())
}

// Rows is the number of data rows written. Only valid after Stop.
func (r *StatsRecorder) Rows() int {
	return r.rows
}

func statsRow(ev messaging.Event) []string {
	mean, lo, hi := 0.0, 0.0, 0.0
	if len(ev.Values) > 0 {
		lo, hi = math.Inf(1), math.Inf(-1)
		for _, v := range ev.Values {
			mean += v
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		mean /= float64(len(ev.Values))
	}
	return []string{
		strconv.Itoa(ev.Step),
		strconv.FormatFloat(mean, 'f', 2, 64),
		strconv.FormatFloat(lo, 'f', 2, 64),
		strconv.FormatFloat(hi, 'f', 2, 64),
		strconv.Itoa(int(ev.Value)),
	}
}
