package hrsync

import (
	"context"
	"time"
)

// EmployeeSink receives synchronized employee records.
type EmployeeSink interface {
	UpsertEmployees(ctx context.Context, organizationID string, employees []Employee) (int, error)
}

// Summary reports one sync run.
type Summary struct {
	Employees  int       `json:"employees_synced"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Service pulls records from the HR API into the local store. Runs are
// triggered manually or by an external timer; the service itself owns
// no scheduling.
type Service struct {
	client         *Client
	sink           EmployeeSink
	monitor        *Monitor
	organizationID string
	now            func() time.Time
}

// NewService wires the sync service.
func NewService(client *Client, sink EmployeeSink, monitor *Monitor, organizationID string) *Service {
	return &Service{
		client:         client,
		sink:           sink,
		monitor:        monitor,
		organizationID: organizationID,
		now:            time.Now,
	}
}

// Run executes one synchronization pass.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	summary := Summary{StartedAt: s.now().UTC()}

	employees, err := s.client.Employees(ctx)
	if err != nil {
		s.monitor.RecordFailure(err)
		return summary, err
	}
	count, err := s.sink.UpsertEmployees(ctx, s.organizationID, employees)
	if err != nil {
		s.monitor.RecordFailure(err)
		return summary, err
	}

	summary.Employees = count
	summary.FinishedAt = s.now().UTC()
	s.monitor.RecordSuccess()
	return summary, nil
}

// Status exposes the monitor snapshot.
func (s *Service) Status() Health {
	return s.monitor.Snapshot()
}
