package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	frames "github.com/cernatschool/frames_go/pkg"
)

type measureJob struct {
	Index   int
	Setting setting
}

type measurement struct {
	Index    int
	Setting  setting
	Duration time.Duration
	Size     int64
	Err      error
}

func worker(id int, records []*frames.FrameRecord, datasetID string, dir string,
	jobs <-chan measureJob, results chan<- measurement) {
	for job := range jobs {
		results <- measure(id, records, datasetID, dir, job)
	}
}

func measure(id int, records []*frames.FrameRecord, datasetID string, dir string, job measureJob) (m measurement) {
	m = measurement{Index: job.Index, Setting: job.Setting}
	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Sprintf("Worker %d recovered from panic: %v", id, r))
			m.Err = fmt.Errorf("panic: %v", r)
		}
	}()
	if configuration.Verbosity > 1 {
		logger.Info(fmt.Sprintf("Worker %d measuring %s", id, job.Setting), "workers")
	}

	fname := filepath.Join(dir, fmt.Sprintf("measure_%03d.h5", job.Index))
	opts := frames.UnitOptions{
		DatasetID:   datasetID,
		Compression: job.Setting.Compression,
		Level:       job.Setting.Level,
		ChunkSize:   configuration.ChunkSize,
	}
	start := time.Now()
	if err := frames.WriteUnit(fname, records, opts); err != nil {
		m.Err = err
		return m
	}
	m.Duration = time.Since(start)

	info, err := os.Stat(fname)
	if err != nil {
		m.Err = fmt.Errorf("error getting file info: %w", err)
		return m
	}
	m.Size = info.Size()
	os.Remove(fname)
	return m
}

// runMeasurements measures every setting with numWorkers workers and
// returns the results in setting order.
func runMeasurements(records []*frames.FrameRecord, datasetID string, dir string,
	settings []setting, numWorkers int) []measurement {
	if numWorkers < 1 {
		numWorkers = 1
	}
	jobs := make(chan measureJob, len(settings))
	results := make(chan measurement, len(settings))

	for w := 1; w <= numWorkers; w++ {
		go worker(w, records, datasetID, dir, jobs, results)
	}
	for i, s := range settings {
		jobs <- measureJob{Index: i, Setting: s}
	}
	close(jobs)

	measurements := make([]measurement, len(settings))
	for range settings {
		m := <-results
		measurements[m.Index] = m
	}
	return measurements
}
