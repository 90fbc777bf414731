package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/banshee-data/vitals.report/internal/httputil"
	"github.com/banshee-data/vitals.report/internal/monitoring"
	"github.com/banshee-data/vitals.report/internal/version"
)

// ErrStatus is wrapped by Submit when the aggregator answers with a non-2xx
// status.
var ErrStatus = errors.New("report: aggregator rejected submission")

// DefaultTimeout bounds one submission.
const DefaultTimeout = 3 * time.Second

// Reporter posts reports to the aggregator. It never retries.
type Reporter struct {
	Client   httputil.HTTPClient
	URL      string
	Timeout  time.Duration
	Identity Identity
	// Source tags each payload; empty uses version.Source().
	Source string
}

// NewReporter returns a Reporter with the default timeout and a standard
// HTTP client.
func NewReporter(url string, id Identity) *Reporter {
	return &Reporter{
		Client:   httputil.NewStandardClient(nil),
		URL:      url,
		Timeout:  DefaultTimeout,
		Identity: id,
	}
}

// Submit performs a single POST bounded by Timeout.
func (r *Reporter) Submit(ctx context.Context, rep Report) error {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	source := r.Source
	if source == "" {
		source = version.Source()
	}

	resp, err := httputil.PostJSON(ctx, r.Client, r.URL, NewPayload(r.Identity, rep, source))
	if err != nil {
		return fmt.Errorf("post %s: %w", r.URL, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}
	return nil
}

// Send submits synchronously and logs the outcome. It satisfies the cycle
// sink.
func (r *Reporter) Send(ctx context.Context, rep Report) {
	if err := r.Submit(ctx, rep); err != nil {
		monitoring.Warnf("failed to send report %s: %v", rep.ID, err)
		return
	}
	monitoring.Logf("sent | %s", rep.Summary())
}

// Dispatcher submits each report on its own goroutine so the next capture
// is not held up by the network.
type Dispatcher struct {
	Reporter *Reporter
	wg       sync.WaitGroup
}

// NewDispatcher wraps r.
func NewDispatcher(r *Reporter) *Dispatcher {
	return &Dispatcher{Reporter: r}
}

// Dispatch starts a submission and returns immediately. The submission is
// detached from ctx cancellation so a report finished just before shutdown
// still goes out; Reporter.Timeout bounds it.
func (d *Dispatcher) Dispatch(ctx context.Context, rep Report) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.Reporter.Send(context.WithoutCancel(ctx), rep)
	}()
}

// Send is Dispatch under the cycle sink name.
func (d *Dispatcher) Send(ctx context.Context, rep Report) {
	d.Dispatch(ctx, rep)
}

// Wait blocks until every dispatched submission has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
