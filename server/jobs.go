package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/RyanBlaney/genesis-map/apperrors"
	"github.com/RyanBlaney/genesis-map/genesis"
	"github.com/RyanBlaney/genesis-map/logging"
)

// JobStatus is the lifecycle state of an analysis job
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether a job in this state will not change again
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Analyzer turns an audio file into a GenesisMap
type Analyzer interface {
	AnalyzeFile(ctx context.Context, path, filename string, opts genesis.Options) (*genesis.GenesisMap, error)
}

// Job is the externally visible state of an analysis job
type Job struct {
	ID          string     `json:"job_id"`
	Status      JobStatus  `json:"status"`
	Progress    float64    `json:"progress"`
	Message     string     `json:"message"`
	Filename    string     `json:"filename"`
	Stems       bool       `json:"extract_stems"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ResultURL   string     `json:"result_url,omitempty"`
}

// job is the manager's record of a Job
type job struct {
	Job
	inputPath string
	result    *genesis.GenesisMap
	cancel    context.CancelFunc
	done      chan struct{}
}

// JobManager runs analysis jobs in the background and keeps their state in
// memory. At most maxConcurrent jobs analyse at once; the rest stay pending.
type JobManager struct {
	mu       sync.RWMutex
	jobs     map[string]*job
	analyzer Analyzer
	slots    chan struct{}
	wg       sync.WaitGroup
	logger   logging.Logger
}

// NewJobManager creates a job manager
func NewJobManager(analyzer Analyzer, maxConcurrent int) *JobManager {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &JobManager{
		jobs:     make(map[string]*job),
		analyzer: analyzer,
		slots:    make(chan struct{}, maxConcurrent),
		logger: logging.WithFields(logging.Fields{
			"component": "job_manager",
		}),
	}
}

func newJobID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

// Submit registers a pending job for the file at inputPath and starts it in
// the background. The input file is removed when the job is deleted.
func (m *JobManager) Submit(inputPath, filename string, opts genesis.Options) Job {
	ctx, cancel := context.WithCancel(context.Background())
	j := &job{
		Job: Job{
			ID:        newJobID(),
			Status:    StatusPending,
			Message:   "Analysis queued",
			Filename:  filename,
			Stems:     opts.Stems,
			CreatedAt: time.Now().UTC(),
		},
		inputPath: inputPath,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	m.mu.Lock()
	m.jobs[j.ID] = j
	snapshot := j.Job
	m.mu.Unlock()

	m.wg.Add(1)
	go m.process(ctx, j, opts)
	return snapshot
}

// process waits for a slot and runs the analysis
func (m *JobManager) process(ctx context.Context, j *job, opts genesis.Options) {
	defer m.wg.Done()
	defer close(j.done)
	defer j.cancel()
	logger := m.logger.WithFields(logging.Fields{
		"function": "process",
		"job_id":   j.ID,
		"filename": j.Filename,
	})

	select {
	case m.slots <- struct{}{}:
		defer func() { <-m.slots }()
	case <-ctx.Done():
		m.fail(j, ctx.Err())
		return
	}

	m.update(j, func(j *job) {
		j.Status = StatusProcessing
		j.Message = "Starting analysis..."
	})

	opts.Progress = func(fraction float64, message string) {
		m.update(j, func(j *job) {
			j.Progress = fraction
			j.Message = message
		})
	}

	start := time.Now()
	result, err := m.analyzer.AnalyzeFile(logging.ContextWithFields(ctx, logging.Fields{"job_id": j.ID}), j.inputPath, j.Filename, opts)
	if err != nil {
		logger.Error(err, "Analysis failed")
		m.fail(j, err)
		return
	}

	m.update(j, func(j *job) {
		now := time.Now().UTC()
		j.Status = StatusCompleted
		j.Progress = 1
		j.Message = "Analysis complete"
		j.CompletedAt = &now
		j.ResultURL = "/result/" + j.ID
		j.result = result
	})
	logger.Info("Job completed", logging.Fields{
		"duration": time.Since(start).String(),
		"effects":  len(result.Composed),
	})
}

func (m *JobManager) fail(j *job, err error) {
	m.update(j, func(j *job) {
		now := time.Now().UTC()
		j.Status = StatusFailed
		j.Message = "Analysis failed"
		j.Error = err.Error()
		j.CompletedAt = &now
	})
}

func (m *JobManager) update(j *job, fn func(*job)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(j)
}

// Get returns a snapshot of the job
func (m *JobManager) Get(id string) (Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", apperrors.ErrJobNotFound, id)
	}
	return j.Job, nil
}

// Result returns the job snapshot and, once it completed, its GenesisMap
func (m *JobManager) Result(id string) (Job, *genesis.GenesisMap, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return Job{}, nil, fmt.Errorf("%w: %s", apperrors.ErrJobNotFound, id)
	}
	return j.Job, j.result, nil
}

// Wait blocks until the job reaches a terminal state or ctx ends
func (m *JobManager) Wait(ctx context.Context, id string) (Job, error) {
	m.mu.RLock()
	j, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", apperrors.ErrJobNotFound, id)
	}
	select {
	case <-j.done:
		return m.Get(id)
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// Delete cancels the job, forgets it and removes its input file once the
// analysis has stopped
func (m *JobManager) Delete(id string) error {
	m.mu.Lock()
	j, ok := m.jobs[id]
	if ok {
		delete(m.jobs, id)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", apperrors.ErrJobNotFound, id)
	}

	j.cancel()
	go func() {
		<-j.done
		if j.inputPath == "" {
			return
		}
		if err := os.Remove(j.inputPath); err != nil && !os.IsNotExist(err) {
			m.logger.Warn("Failed to remove upload", logging.Fields{
				"job_id": id,
				"path":   j.inputPath,
				"error":  err.Error(),
			})
		}
	}()
	return nil
}

// Len returns the number of known jobs
func (m *JobManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.jobs)
}

// Close cancels queued jobs and waits for running ones to finish
func (m *JobManager) Close() {
	m.mu.RLock()
	for _, j := range m.jobs {
		j.cancel()
	}
	m.mu.RUnlock()
	m.wg.Wait()
}
