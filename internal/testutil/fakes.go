// Package testutil holds in-memory implementations of the ports used by
// service, publisher and consumer tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"task-ledger/internal/core/ports"
	"task-ledger/internal/domain"

	"github.com/google/uuid"
)

type UserStore struct {
	mu    sync.Mutex
	users []domain.User
	Err   error
}

func NewUserStore(users ...domain.User) *UserStore {
	return &UserStore{users: users}
}

func NewUser(name string, roles ...string) domain.User {
	return domain.User{
		ID:       uuid.New(),
		PublicID: uuid.New(),
		Email:    name + "@example.com",
		Name:     name,
		Roles:    roles,
	}
}

func (s *UserStore) Add(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, u)
}

func (s *UserStore) FindByPublicID(_ context.Context, publicID uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.PublicID == publicID {
			out := u
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, publicID)
}

func (s *UserStore) ListAll(context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]domain.User(nil), s.users...), nil
}

// TaskStore mirrors the gorm repository: tasks and outbox rows are written
// together and conditional updates check status and version.
type TaskStore struct {
	mu     sync.Mutex
	tasks  map[uuid.UUID]domain.Task
	Outbox []domain.OutboxMessage
	// FailUpdateAfter makes the n-th and later UpdateTask calls fail; 0 disables.
	FailUpdateAfter int
	updates         int
}

func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[uuid.UUID]domain.Task)}
}

func (s *TaskStore) Put(t domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.PublicID] = t
}

func (s *TaskStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *TaskStore) OutboxMessages() []domain.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OutboxMessage(nil), s.Outbox...)
}

func (s *TaskStore) CreateTask(_ context.Context, task *domain.Task, msg *domain.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.PublicID]; ok {
		return fmt.Errorf("duplicate task %s", task.PublicID)
	}
	s.tasks[task.PublicID] = *task
	s.Outbox = append(s.Outbox, *msg)
	return nil
}

func (s *TaskStore) FindByPublicID(_ context.Context, publicID uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[publicID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, publicID)
	}
	return &t, nil
}

func (s *TaskStore) list(keep func(domain.Task) bool) []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Task
	for _, t := range s.tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *TaskStore) ListAll(context.Context) ([]domain.Task, error) {
	return s.list(func(domain.Task) bool { return true }), nil
}

func (s *TaskStore) ListByAssignee(_ context.Context, assignee uuid.UUID) ([]domain.Task, error) {
	return s.list(func(t domain.Task) bool { return t.IsAssignedTo(assignee) }), nil
}

func (s *TaskStore) ListByStatus(_ context.Context, status domain.TaskStatus) ([]domain.Task, error) {
	return s.list(func(t domain.Task) bool { return t.Status == status }), nil
}

func (s *TaskStore) UpdateTask(_ context.Context, task *domain.Task, expected domain.TaskStatus, expectedVersion int, msg *domain.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	if s.FailUpdateAfter > 0 && s.updates >= s.FailUpdateAfter {
		return fmt.Errorf("storage unavailable")
	}
	cur, ok := s.tasks[task.PublicID]
	if !ok || cur.Status != expected || cur.Version != expectedVersion {
		return fmt.Errorf("%w: task %s changed concurrently", domain.ErrInvalidState, task.PublicID)
	}
	task.Version = expectedVersion + 1
	s.tasks[task.PublicID] = *task
	s.Outbox = append(s.Outbox, *msg)
	return nil
}

// OutboxStore is an in-memory outbox with the relay's view of it.
type OutboxStore struct {
	mu   sync.Mutex
	Msgs []domain.OutboxMessage
}

func (s *OutboxStore) ClaimDue(_ context.Context, now time.Time, limit int, fn func([]domain.OutboxMessage, ports.OutboxMarker) error) error {
	s.mu.Lock()
	var due []domain.OutboxMessage
	for _, m := range s.Msgs {
		if m.Status == domain.OutboxPending && !m.NextAttempt.After(now) && len(due) < limit {
			due = append(due, m)
		}
	}
	s.mu.Unlock()
	if len(due) == 0 {
		return nil
	}
	return fn(due, s)
}

func (s *OutboxStore) update(id uint, fn func(*domain.OutboxMessage)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Msgs {
		if s.Msgs[i].ID == id {
			fn(&s.Msgs[i])
			return nil
		}
	}
	return fmt.Errorf("outbox message %d not found", id)
}

func (s *OutboxStore) MarkPublished(_ context.Context, id uint, at time.Time) error {
	return s.update(id, func(m *domain.OutboxMessage) {
		m.Status = domain.OutboxPublished
		m.PublishedAt = &at
		m.Attempts++
	})
}

func (s *OutboxStore) MarkRetry(_ context.Context, id uint, errMessage string, next time.Time) error {
	return s.update(id, func(m *domain.OutboxMessage) {
		m.Attempts++
		m.LastError = &errMessage
		m.NextAttempt = next
	})
}

func (s *OutboxStore) MarkDead(_ context.Context, id uint, errMessage string) error {
	return s.update(id, func(m *domain.OutboxMessage) {
		m.Status = domain.OutboxDead
		m.Attempts++
		m.LastError = &errMessage
	})
}

func (s *OutboxStore) Get(id uint) domain.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.Msgs {
		if m.ID == id {
			return m
		}
	}
	return domain.OutboxMessage{}
}

// Broker records published payloads per stream and can be told to fail.
type Broker struct {
	mu        sync.Mutex
	Published map[string][][]byte
	Keys      map[string][]string
	Err       error
}

func NewBroker() *Broker {
	return &Broker{Published: map[string][][]byte{}, Keys: map[string][]string{}}
}

func (b *Broker) Publish(_ context.Context, stream, partitionKey string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return b.Err
	}
	b.Published[stream] = append(b.Published[stream], append([]byte(nil), payload...))
	b.Keys[stream] = append(b.Keys[stream], partitionKey)
	return nil
}

func (b *Broker) Count(stream string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Published[stream])
}

// TransactionStore enforces the (task, event) uniqueness of the real table.
type TransactionStore struct {
	mu  sync.Mutex
	Txs []domain.Transaction
	Err error
}

func (s *TransactionStore) CreateIfAbsent(_ context.Context, tx *domain.Transaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	for _, existing := range s.Txs {
		if existing.TaskPublicID == tx.TaskPublicID && existing.EventName == tx.EventName {
			return false, nil
		}
	}
	s.Txs = append(s.Txs, *tx)
	return true, nil
}

func (s *TransactionStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Txs)
}

func (s *TransactionStore) FindByTask(_ context.Context, taskPublicID uuid.UUID) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Transaction
	for _, tx := range s.Txs {
		if tx.TaskPublicID == taskPublicID {
			out = append(out, tx)
		}
	}
	return out, nil
}

type ProjectionStore struct {
	mu    sync.Mutex
	Tasks map[uuid.UUID]domain.AccountingTask
	Err   error
}

func NewProjectionStore() *ProjectionStore {
	return &ProjectionStore{Tasks: map[uuid.UUID]domain.AccountingTask{}}
}

func (s *ProjectionStore) Merge(_ context.Context, publicID uuid.UUID, fn func(*domain.AccountingTask)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	cur := s.Tasks[publicID]
	cur.PublicID = publicID
	fn(&cur)
	s.Tasks[publicID] = cur
	return nil
}

func (s *ProjectionStore) FindByPublicID(_ context.Context, publicID uuid.UUID) (*domain.AccountingTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.Tasks[publicID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, publicID)
	}
	return &t, nil
}

// Subscriber is an in-memory consumer group over one or more streams.
// Delivered entries stay pending until acked; Reclaim hands them out again.
type Subscriber struct {
	mu      sync.Mutex
	queue   []ports.StreamEntry
	pending map[string]ports.StreamEntry
	seq     int
	Acked   []string
	ReadErr error
	AckErr  error
}

func NewSubscriber() *Subscriber {
	return &Subscriber{pending: map[string]ports.StreamEntry{}}
}

// Push appends a payload to stream and returns its entry id.
func (s *Subscriber) Push(stream, key string, payload []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := fmt.Sprintf("%013d-0", s.seq)
	s.queue = append(s.queue, ports.StreamEntry{Stream: stream, ID: id, Key: key, Payload: payload})
	return id
}

func (s *Subscriber) Read(context.Context) ([]ports.StreamEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	out := s.queue
	s.queue = nil
	for _, e := range out {
		s.pending[e.ID] = e
	}
	return out, nil
}

func (s *Subscriber) Reclaim(context.Context) ([]ports.StreamEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ports.StreamEntry, 0, len(s.pending))
	for _, e := range s.pending {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Subscriber) Ack(_ context.Context, entry ports.StreamEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AckErr != nil {
		return s.AckErr
	}
	delete(s.pending, entry.ID)
	s.Acked = append(s.Acked, entry.ID)
	return nil
}

func (s *Subscriber) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

var (
	_ ports.UserRepository        = (*UserStore)(nil)
	_ ports.TaskRepository        = (*TaskStore)(nil)
	_ ports.OutboxRepository      = (*OutboxStore)(nil)
	_ ports.StreamPublisher       = (*Broker)(nil)
	_ ports.TransactionRepository = (*TransactionStore)(nil)
	_ ports.ProjectionRepository  = (*ProjectionStore)(nil)
	_ ports.StreamSubscriber      = (*Subscriber)(nil)
)
