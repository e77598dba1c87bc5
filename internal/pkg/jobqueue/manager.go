package jobqueue

import (
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/assettracer/assettracer/app/repository"
	"github.com/assettracer/assettracer/internal/pkg/cache"
	"github.com/assettracer/assettracer/internal/pkg/env"
)

const (
	reminderLockPrefix = "reminder:invoice:"
	reminderBatchSize  = 200
)

// Manager manages the global job queue and background tasks
type Manager struct {
	queue         *Queue
	overdueTicker *time.Ticker
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	running       bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = &Manager{
			queue:  NewQueue(env.GetEnvInt("JOBQUEUE_WORKERS", 5)),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	interval := time.Duration(env.GetEnvInt("REMINDER_SWEEP_MINUTES", 60)) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}
	m.overdueTicker = time.NewTicker(interval)
	m.wg.Add(1)
	go m.overdueWorker(interval)

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.overdueTicker != nil {
		m.overdueTicker.Stop()
	}

	close(m.stopCh)
	m.stopCh = nil
	m.running = false

	m.wg.Wait()
	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// overdueWorker periodically flags overdue invoices and queues reminders
func (m *Manager) overdueWorker(interval time.Duration) {
	defer m.wg.Done()
	log.Infof("[JobQueue Manager] Started overdue sweep (interval: %s)", interval)

	stopCh := m.stopCh
	for {
		select {
		case <-stopCh:
			log.Info("[JobQueue Manager] Overdue sweep stopping")
			return
		case <-m.overdueTicker.C:
			if n, err := m.RunOverdueSweep(time.Now()); err != nil {
				log.Errorf("[JobQueue Manager] Overdue sweep error: %v", err)
			} else if n > 0 {
				log.Infof("[JobQueue Manager] Queued %d invoice reminders", n)
			}
		}
	}
}

// RunOverdueSweep marks sent invoices past due as overdue and queues at most
// one reminder per invoice per repository.ReminderInterval. The Redis lock
// covers the window between queueing and the reminder being recorded.
func (m *Manager) RunOverdueSweep(now time.Time) (int, error) {
	repos := repository.GetGlobalRepositories()

	flagged, err := repos.Invoice.MarkOverdue(now)
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}
	if flagged > 0 {
		log.Infof("[JobQueue Manager] Marked %d invoices overdue", flagged)
	}

	due, err := repos.Invoice.ListDue(now, reminderBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list due invoices: %w", err)
	}

	queued := 0
	for i := range due {
		inv := &due[i]
		if inv.Balance() == 0 {
			continue
		}
		lockKey := fmt.Sprintf("%s%d", reminderLockPrefix, inv.ID)
		ok, err := cache.SetNX(lockKey, now.Unix(), repository.ReminderInterval)
		if err != nil {
			return queued, fmt.Errorf("reminder lock: %w", err)
		}
		if !ok {
			continue
		}
		payload := InvoiceReminderJobPayload{OrganizationID: inv.OrganizationID, InvoiceID: inv.ID}
		if _, err := m.queue.EnqueueJob(JobTypeInvoiceReminder, payload.ToMap()); err != nil {
			_ = cache.Delete(lockKey)
			return queued, err
		}
		queued++
	}
	return queued, nil
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
