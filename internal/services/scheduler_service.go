package services

import (
	"context"
	"log"
	"time"

	"github.com/sirupsen/logrus"
)

// SchedulerService drives the mint poll on a fixed interval.
type SchedulerService struct {
	mint     *MintService
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
	started  bool
}

// NewSchedulerService creates a scheduler that polls every interval seconds.
func NewSchedulerService(mint *MintService, intervalSeconds int) *SchedulerService {
	if intervalSeconds <= 0 {
		intervalSeconds = 60
	}
	return &SchedulerService{
		mint:     mint,
		interval: time.Duration(intervalSeconds) * time.Second,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the polling loop in a background goroutine. The first cycle
// runs immediately instead of waiting one full interval.
func (s *SchedulerService) Start() {
	if s.started {
		return
	}
	s.started = true
	log.Printf("🕐 Starting mint scheduler (interval: %s)", s.interval)
	go s.run()
}

// Stop signals the loop to exit and waits for the in-flight cycle to finish.
func (s *SchedulerService) Stop() {
	if !s.started {
		return
	}
	s.started = false
	close(s.stopChan)
	<-s.doneChan
	logrus.Info("mint scheduler stopped")
}

func (s *SchedulerService) run() {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.poll()
	for {
		select {
		case <-ticker.C:
			s.poll()
		case <-s.stopChan:
			return
		}
	}
}

func (s *SchedulerService) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()
	if err := s.mint.PollAndMint(ctx); err != nil {
		logrus.WithError(err).Error("scheduled mint cycle failed")
	}
}
