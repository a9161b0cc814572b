package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper removes expired records; the deal store has no native ttl.
type Sweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	sweeper Sweeper
	spec    string
}

// New builds a scheduler sweeping on the given cron spec (hourly by default).
func New(sweeper Sweeper, spec string) *Scheduler {
	if spec == "" {
		spec = "0 * * * *"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		ctx:     ctx,
		cancel:  cancel,
		sweeper: sweeper,
		spec:    spec,
	}
}

func (s *Scheduler) Start() error {
	if s.sweeper == nil {
		log.Println("no sweeper configured, expired deals will accumulate")
		return nil
	}
	_, err := s.cron.AddFunc(s.spec, func() {
		n, err := s.sweeper.DeleteExpired(s.ctx)
		if err != nil {
			log.Printf("deal sweep failed: %v", err)
			return
		}
		if n > 0 {
			log.Printf("swept %d expired deals", n)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("scheduler started, sweeping expired deals on %q", s.spec)
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	log.Println("scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
