package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"household_finance/internal/domain/mail"
	"household_finance/internal/domain/notification"
	"household_finance/internal/domain/transaction"
	idb "household_finance/internal/infra/database"

	"github.com/google/uuid"
)

type txRepoStub struct {
	mu          sync.Mutex
	series      map[uuid.UUID]*transaction.Series
	occurrences []*transaction.Occurrence
	getErr      error
	insertErr   error
	insertCalls int
	activeIDs   []uuid.UUID

	dueItems []*transaction.DueItem
	dueErr   error
	filters  []transaction.DueFilter
}

func newTxRepoStub() *txRepoStub {
	return &txRepoStub{series: make(map[uuid.UUID]*transaction.Series)}
}

func (s *txRepoStub) GetSeries(ctx context.Context, id uuid.UUID) (*transaction.Series, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	series, ok := s.series[id]
	if !ok {
		return nil, idb.ErrSeriesNotFound
	}
	return series, nil
}

func (s *txRepoStub) ListActiveSeriesIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.activeIDs, nil
}

func (s *txRepoStub) ListOccurrencesFrom(ctx context.Context, seriesID uuid.UUID, from time.Time) ([]*transaction.Occurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*transaction.Occurrence
	for _, o := range s.occurrences {
		if o.SeriesID == seriesID && !o.DueDate.Before(from) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (s *txRepoStub) BulkCreateOccurrences(ctx context.Context, occurrences []*transaction.Occurrence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertCalls++
	if s.insertErr != nil {
		return s.insertErr
	}
	for _, o := range occurrences {
		o.ID = uuid.New()
		s.occurrences = append(s.occurrences, o)
	}
	return nil
}

func (s *txRepoStub) ListUnpaidDue(ctx context.Context, filter transaction.DueFilter) ([]*transaction.DueItem, error) {
	s.filters = append(s.filters, filter)
	if s.dueErr != nil {
		return nil, s.dueErr
	}
	var out []*transaction.DueItem
	for _, item := range s.dueItems {
		if item.OrganizationID == filter.OrganizationID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *txRepoStub) occurrencesFor(seriesID uuid.UUID) []*transaction.Occurrence {
	out, _ := s.ListOccurrencesFrom(context.Background(), seriesID, time.Time{})
	return out
}

type stateKey struct {
	policyID   uuid.UUID
	resourceID uuid.UUID
}

type notifRepoStub struct {
	policies    []*notification.Policy
	policiesErr error
	states      map[stateKey]*notification.State
	runs        []*notification.Run
	nextStateID int64
}

func newNotifRepoStub(policies ...*notification.Policy) *notifRepoStub {
	return &notifRepoStub{policies: policies, states: make(map[stateKey]*notification.State)}
}

func (s *notifRepoStub) ListActivePolicies(ctx context.Context) ([]*notification.Policy, error) {
	if s.policiesErr != nil {
		return nil, s.policiesErr
	}
	return s.policies, nil
}

func (s *notifRepoStub) GetState(ctx context.Context, policyID uuid.UUID, resourceType notification.ResourceType, resourceID uuid.UUID) (*notification.State, error) {
	st, ok := s.states[stateKey{policyID, resourceID}]
	if !ok {
		return nil, idb.ErrStateNotFound
	}
	copied := *st
	return &copied, nil
}

func (s *notifRepoStub) CreateState(ctx context.Context, st *notification.State) error {
	key := stateKey{st.PolicyID, st.ResourceID}
	if _, ok := s.states[key]; ok {
		return idb.ErrDuplicateState
	}
	s.nextStateID++
	st.ID = s.nextStateID
	copied := *st
	s.states[key] = &copied
	return nil
}

func (s *notifRepoStub) UpdateState(ctx context.Context, st *notification.State) error {
	key := stateKey{st.PolicyID, st.ResourceID}
	if _, ok := s.states[key]; !ok {
		return idb.ErrStateNotFound
	}
	copied := *st
	s.states[key] = &copied
	return nil
}

func (s *notifRepoStub) CreateRun(ctx context.Context, run *notification.Run) error {
	run.ID = int64(len(s.runs) + 1)
	s.runs = append(s.runs, run)
	return nil
}

func (s *notifRepoStub) ListRecentRuns(ctx context.Context, limit int) ([]*notification.Run, error) {
	out := make([]*notification.Run, 0, limit)
	for i := len(s.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.runs[i])
	}
	return out, nil
}

func (s *notifRepoStub) runsWithStatus(status notification.RunStatus) int {
	n := 0
	for _, run := range s.runs {
		if run.Status == status {
			n++
		}
	}
	return n
}

type mailerStub struct {
	sent []mail.Message
	err  error
}

func (m *mailerStub) SendMail(ctx context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// blockingMailer holds every send until release is closed. entered is closed on the first send.
type blockingMailer struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once

	mu   sync.Mutex
	sent []mail.Message
}

func newBlockingMailer() *blockingMailer {
	return &blockingMailer{entered: make(chan struct{}), release: make(chan struct{})}
}

func (m *blockingMailer) SendMail(ctx context.Context, msg mail.Message) error {
	m.once.Do(func() { close(m.entered) })
	<-m.release
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *blockingMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
