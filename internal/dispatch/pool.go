// Package dispatch delivers story alerts through a worker pool so a
// slow Telegram call never stalls the monitoring loop.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storywatch/pkg/capture"
	"storywatch/pkg/logger"
	"storywatch/pkg/notify"
)

// Job is one alert delivery.
type Job struct {
	ChatID    string
	Account   string
	Caption   string
	Kind      capture.Kind
	Media     []byte
	RecordKey string
}

// Result reports the outcome of one delivery.
type Result struct {
	Job      Job
	Success  bool
	Error    error
	Duration time.Duration
}

// Pool runs delivery workers over a job queue. One worker preserves
// per-chat ordering; more workers trade ordering for throughput.
type Pool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	notifier    notify.Notifier
	logger      logger.Logger
}

// NewPool creates a delivery pool over the given notifier.
func NewPool(numWorkers int, notifier notify.Notifier, log logger.Logger) *Pool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers*2),
		ctx:         ctx,
		cancel:      cancel,
		notifier:    notifier,
		logger:      log,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	p.logger.InfoWithFields("starting delivery pool", map[string]interface{}{
		"num_workers": p.numWorkers,
	})

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop drains the queue, waits for in-flight deliveries, and shuts the
// pool down.
func (p *Pool) Stop() {
	p.logger.Info("stopping delivery pool")

	close(p.jobQueue)
	p.wg.Wait()
	close(p.resultQueue)
	p.cancel()

	p.logger.Info("delivery pool stopped")
}

// Submit enqueues a delivery.
func (p *Pool) Submit(job Job) error {
	select {
	case <-p.ctx.Done():
		return fmt.Errorf("delivery pool is shutting down")
	default:
	}

	select {
	case p.jobQueue <- job:
		p.logger.DebugWithFields("delivery queued", map[string]interface{}{
			"chat_id": job.ChatID,
			"account": job.Account,
		})
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("delivery pool is shutting down")
	}
}

// Results exposes the delivery outcomes.
func (p *Pool) Results() <-chan Result {
	return p.resultQueue
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobQueue {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		result := p.deliver(job, id)

		select {
		case p.resultQueue <- result:
		case <-p.ctx.Done():
			return
		}
	}
}

// deliver sends one alert: media with caption when bytes are present,
// a plain text alert otherwise.
func (p *Pool) deliver(job Job, workerID int) Result {
	start := time.Now()
	result := Result{Job: job}

	var err error
	switch {
	case len(job.Media) > 0 && job.Kind == capture.KindVideo:
		err = p.notifier.SendVideo(p.ctx, job.ChatID, job.Caption, job.Media)
	case len(job.Media) > 0:
		err = p.notifier.SendPhoto(p.ctx, job.ChatID, job.Caption, job.Media)
	default:
		err = p.notifier.SendText(p.ctx, job.ChatID, job.Caption)
	}

	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err
		p.logger.ErrorWithFields("delivery failed", map[string]interface{}{
			"worker_id": workerID,
			"chat_id":   job.ChatID,
			"account":   job.Account,
			"error":     err.Error(),
			"duration":  result.Duration,
		})
		return result
	}

	result.Success = true
	p.logger.DebugWithFields("delivery completed", map[string]interface{}{
		"worker_id": workerID,
		"chat_id":   job.ChatID,
		"account":   job.Account,
		"duration":  result.Duration,
	})
	return result
}

// QueueSize returns the number of queued deliveries.
func (p *Pool) QueueSize() int {
	return len(p.jobQueue)
}
