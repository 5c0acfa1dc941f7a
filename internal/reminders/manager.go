package reminders

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/cortexcore/cortex/internal/observability"
)

// cronParser accepts the same extended five/six-field grammar robfig/cron
// ships, including the @every/@daily descriptor shorthand, so a
// RepeatInterval can be authored either way.
var cronParser = cron.NewParser(
	cron.SecondOptional |
		cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

const fileName = "reminders.json"

// Manager owns the in-memory reminder set and its on-disk persistence
// (spec §3, §6). All mutating operations persist the whole set; reads take
// a snapshot copy under the lock.
type Manager struct {
	mu       sync.Mutex
	dir      string
	logger   *observability.Logger
	reminders map[string]*Reminder
}

// NewManager loads any persisted reminders from dir/reminders.json. A
// missing file is not an error (spec §7 style: absence means "none yet").
func NewManager(dir string, logger *observability.Logger) (*Manager, error) {
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{})
	}
	m := &Manager{dir: dir, logger: logger, reminders: make(map[string]*Reminder)}

	loaded, err := load(dir)
	if err != nil {
		return nil, fmt.Errorf("reminders: load: %w", err)
	}
	for i := range loaded.Reminders {
		r := loaded.Reminders[i]
		m.reminders[r.ID] = &r
	}
	return m, nil
}

// Add creates and persists a new reminder.
func (m *Manager) Add(description string, triggerTime time.Time, kind Type, repeatInterval string, isUrgent bool) (Reminder, error) {
	if repeatInterval != "" {
		if _, err := cronParser.Parse(repeatInterval); err != nil {
			return Reminder{}, fmt.Errorf("reminders: invalid repeat_interval: %w", err)
		}
	}
	r := Reminder{
		ID:             uuid.NewString(),
		Description:    description,
		TriggerTime:    triggerTime,
		CreatedAt:      time.Now(),
		Type:           kind,
		RepeatInterval: repeatInterval,
		IsUrgent:       isUrgent,
	}

	m.mu.Lock()
	m.reminders[r.ID] = &r
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	return r, m.persist(snapshot)
}

// Cancel removes a reminder by ID. Returns false if it was not found.
func (m *Manager) Cancel(id string) (bool, error) {
	m.mu.Lock()
	if _, ok := m.reminders[id]; !ok {
		m.mu.Unlock()
		return false, nil
	}
	delete(m.reminders, id)
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	return true, m.persist(snapshot)
}

// List returns all reminders ordered by trigger time ascending.
func (m *Manager) List() []Reminder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() []Reminder {
	out := make([]Reminder, 0, len(m.reminders))
	for _, r := range m.reminders {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TriggerTime.Before(out[j].TriggerTime) })
	return out
}

// CheckDue returns every reminder due at or before now, marks them
// Notified, reschedules the repeating ones via their cron expression, and
// persists the result. This is the only entry point the loop's background
// reminder-check step needs (spec §4.8 "check reminders").
func (m *Manager) CheckDue(now time.Time) ([]Reminder, error) {
	var due []Reminder

	m.mu.Lock()
	for _, r := range m.reminders {
		if !r.Due(now) {
			continue
		}
		fired := *r
		due = append(due, fired)

		if r.RepeatInterval != "" {
			sched, err := cronParser.Parse(r.RepeatInterval)
			if err == nil {
				r.TriggerTime = sched.Next(now)
				r.Notified = false
				continue
			}
			m.logger.Warn(context.Background(), "reminders: failed to reschedule repeating reminder", "id", r.ID, "repeat_interval", r.RepeatInterval, "error", err)
		}
		r.Notified = true
	}
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].TriggerTime.Before(due[j].TriggerTime) })

	if err := m.persist(snapshot); err != nil {
		return due, err
	}
	return due, nil
}

func (m *Manager) persist(reminders []Reminder) error {
	if m.dir == "" {
		return nil
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return err
	}
	if reminders == nil {
		reminders = []Reminder{}
	}
	f := file{Reminders: reminders, LastSaved: time.Now()}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(m.dir, fileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func load(dir string) (file, error) {
	if dir == "" {
		return file{}, nil
	}
	data, err := os.ReadFile(filepath.Join(dir, fileName))
	if os.IsNotExist(err) {
		return file{}, nil
	}
	if err != nil {
		return file{}, err
	}
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return file{}, err
	}
	return f, nil
}
