package services

import (
	"context"

	"github.com/robfig/cron/v3"

	"auctionsite/internal/domain"
	"auctionsite/pkg/logger"
)

// MaintenanceJob periodically marks ended auctions and sweeps expired
// sessions. Leader-guarded so a fleet runs the sweep once; correctness
// never depends on it since every access re-validates.
type MaintenanceJob struct {
	cron       *cron.Cron
	store      domain.Store
	clock      domain.Clock
	leader     domain.LeaderElection
	sites      *SiteService
	instanceID string
	log        logger.Logger
}

func NewMaintenanceJob(
	store domain.Store,
	clock domain.Clock,
	leader domain.LeaderElection,
	sites *SiteService,
	instanceID string,
	log logger.Logger,
) *MaintenanceJob {
	return &MaintenanceJob{
		cron:       cron.New(cron.WithSeconds()),
		store:      store,
		clock:      clock,
		leader:     leader,
		sites:      sites,
		instanceID: instanceID,
		log:        log,
	}
}

func (j *MaintenanceJob) Start(ctx context.Context) error {
	j.log.Info("starting maintenance job")

	_, err := j.cron.AddFunc("@every 1m", func() {
		j.runGuarded(ctx)
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	return nil
}

func (j *MaintenanceJob) Stop() error {
	j.log.Info("stopping maintenance job")
	j.cron.Stop()
	return nil
}

func (j *MaintenanceJob) runGuarded(ctx context.Context) {
	isLeader, err := j.leader.IsLeader(ctx, j.instanceID)
	if err != nil {
		j.log.Error("leader check failed", "error", err)
		return
	}
	if !isLeader {
		return
	}
	if err := j.RunOnce(ctx); err != nil {
		j.log.Error("maintenance run failed", "error", err)
	}
}

// RunOnce executes one maintenance pass: close auctions past their end
// time, then drop expired sessions.
func (j *MaintenanceJob) RunOnce(ctx context.Context) error {
	var closed int64
	err := j.store.WithinTx(ctx, func(tx domain.Tx) error {
		var err error
		closed, err = tx.Auctions().CloseEnded(ctx, j.clock.Now())
		return err
	})
	if err != nil {
		return err
	}

	swept, err := j.sites.SweepExpiredSessions(ctx)
	if err != nil {
		return err
	}

	if closed > 0 || swept > 0 {
		j.log.Info("maintenance pass", "auctions_closed", closed, "sessions_swept", swept)
	}
	return nil
}
