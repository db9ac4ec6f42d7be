package frames

import (
	"fmt"
	"sync"
)

// FormatScan is the detected format of one pair's description file.
type FormatScan struct {
	Index  int
	Pair   FramePair
	Format FrameFormat
	Err    error
}

func scanWorker(id int, jobs <-chan FormatScan, results chan<- FormatScan, wg *sync.WaitGroup) {
	defer wg.Done()
	for job := range jobs {
		results <- scanOne(id, job)
	}
}

func scanOne(id int, job FormatScan) (result FormatScan) {
	result = job
	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Sprintf("Worker %d recovered from panic on %s: %v", id, job.Pair.Description, r))
			result.Err = fmt.Errorf("panic while scanning %s: %v", job.Pair.Description, r)
		}
	}()
	if configuration.Verbosity > 2 {
		logger.Info(fmt.Sprintf("Worker %d scanning %s", id, job.Pair.Description), "workers")
	}
	result.Format, result.Err = DetectFormatFile(job.Pair.Description)
	return result
}

// ScanDescriptions detects the format of every pair with numWorkers
// workers. Results are in pair order.
func ScanDescriptions(pairs []FramePair, numWorkers int) []FormatScan {
	if numWorkers < 1 {
		numWorkers = 1
	}
	jobs := make(chan FormatScan)
	results := make(chan FormatScan, len(pairs))

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go scanWorker(w, jobs, results, &wg)
	}
	go func() {
		for i, pair := range pairs {
			jobs <- FormatScan{Index: i, Pair: pair}
		}
		close(jobs)
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	scans := make([]FormatScan, len(pairs))
	for r := range results {
		scans[r.Index] = r
	}
	return scans
}
