package payroll

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory implements Store with in-process concurrency safety. The item
// mutation and the totals write share one mutex, so single-process
// deployments cannot observe a lost update between them.
type Memory struct {
	mu       sync.RWMutex
	runs     map[string]*PayRun
	items    map[string]*PayItem
	byRun    map[string]map[string]string // pay_run_id -> employee_id -> item id
	groupMap map[string]string            // org|group handle -> master id
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory payroll store.
func NewMemory() *Memory {
	return &Memory{
		runs:     make(map[string]*PayRun),
		items:    make(map[string]*PayItem),
		byRun:    make(map[string]map[string]string),
		groupMap: make(map[string]string),
	}
}

// MapPayGroup registers a loose group handle -> master id mapping.
func (m *Memory) MapPayGroup(organizationID, payGroupID, masterID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groupMap[organizationID+"|"+payGroupID] = masterID
}

func (m *Memory) CreatePayRun(ctx context.Context, run *PayRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *Memory) GetPayRun(ctx context.Context, id string) (*PayRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *run
	return &cp, nil
}

func (m *Memory) UpdatePayRun(ctx context.Context, run *PayRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.ID]; !ok {
		return ErrNotFound
	}
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *Memory) DeletePayRun(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[id]; !ok {
		return ErrNotFound
	}
	delete(m.runs, id)
	for _, itemID := range m.byRun[id] {
		delete(m.items, itemID)
	}
	delete(m.byRun, id)
	return nil
}

func (m *Memory) ListPayRuns(ctx context.Context, organizationID string) ([]*PayRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []*PayRun
	for _, run := range m.runs {
		if run.OrganizationID != organizationID {
			continue
		}
		cp := *run
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (m *Memory) CreatePayItem(ctx context.Context, item *PayItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[item.PayRunID]; !ok {
		return ErrNotFound
	}
	employees, ok := m.byRun[item.PayRunID]
	if !ok {
		employees = make(map[string]string)
		m.byRun[item.PayRunID] = employees
	}
	if _, exists := employees[item.EmployeeID]; exists {
		return ErrDuplicatePayItem
	}
	cp := *item
	m.items[item.ID] = &cp
	employees[item.EmployeeID] = item.ID
	return nil
}

func (m *Memory) GetPayItem(ctx context.Context, id string) (*PayItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (m *Memory) UpdatePayItem(ctx context.Context, item *PayItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; !ok {
		return ErrNotFound
	}
	cp := *item
	m.items[item.ID] = &cp
	return nil
}

func (m *Memory) DeletePayItem(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	if employees, ok := m.byRun[item.PayRunID]; ok {
		delete(employees, item.EmployeeID)
	}
	return nil
}

func (m *Memory) ListPayItems(ctx context.Context, payRunID string) ([]*PayItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []*PayItem
	for _, itemID := range m.byRun[payRunID] {
		if item, ok := m.items[itemID]; ok {
			cp := *item
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (m *Memory) UpdateTotals(ctx context.Context, payRunID string, totals Totals) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[payRunID]
	if !ok {
		return ErrNotFound
	}
	run.TotalGrossPay = totals.GrossPay
	run.TotalDeductions = totals.Deductions
	run.TotalNetPay = totals.NetPay
	run.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) ResolvePayGroupMaster(ctx context.Context, organizationID, payGroupID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	master, ok := m.groupMap[organizationID+"|"+payGroupID]
	if !ok {
		return "", ErrMissingPayGroup
	}
	return master, nil
}

// StaticMembers is an in-memory MemberSource keyed by pay group master id.
type StaticMembers struct {
	SourceName string
	Groups     map[string][]string // master id -> employee ids
}

var _ MemberSource = (*StaticMembers)(nil)

func (s *StaticMembers) Name() string { return s.SourceName }

func (s *StaticMembers) ActiveMembers(ctx context.Context, organizationID, payGroupMasterID string) ([]Member, error) {
	ids := s.Groups[payGroupMasterID]
	members := make([]Member, 0, len(ids))
	for _, id := range ids {
		members = append(members, Member{EmployeeID: id})
	}
	return members, nil
}
