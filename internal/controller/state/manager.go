package state

import (
	"sync"
	"time"
)

// Manager keeps the dialog state of every operator in memory.
type Manager struct {
	mu     sync.RWMutex
	states map[int64]*UserData // telegramID -> UserData
	now    func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		states: make(map[int64]*UserData),
		now:    time.Now,
	}
}

// GetState returns the operator's current step.
func (sm *Manager) GetState(telegramID int64) UserState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if userData, exists := sm.states[telegramID]; exists {
		return userData.State
	}
	return StateNone
}

// SetState moves the operator to another step. StateNone drops the dialog.
func (sm *Manager) SetState(telegramID int64, state UserState) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if state == StateNone {
		delete(sm.states, telegramID)
		return
	}

	userData, exists := sm.states[telegramID]
	if !exists {
		userData = &UserData{}
		sm.states[telegramID] = userData
	}
	userData.State = state
	userData.UpdatedAt = sm.now()
}

// Draft returns a copy of the operator's draft.
func (sm *Manager) Draft(telegramID int64) (Draft, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if userData, exists := sm.states[telegramID]; exists {
		return userData.Draft, true
	}
	return Draft{}, false
}

// UpdateDraft applies fn to the operator's draft under the lock.
func (sm *Manager) UpdateDraft(telegramID int64, fn func(d *Draft)) Draft {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	userData, exists := sm.states[telegramID]
	if !exists {
		userData = &UserData{}
		sm.states[telegramID] = userData
	}
	fn(&userData.Draft)
	userData.UpdatedAt = sm.now()
	return userData.Draft
}

// ClearState drops the operator's dialog.
func (sm *Manager) ClearState(telegramID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.states, telegramID)
}

// ExpireIdle drops dialogs untouched for longer than maxIdle and returns
// how many were removed.
func (sm *Manager) ExpireIdle(maxIdle time.Duration) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	cutoff := sm.now().Add(-maxIdle)
	removed := 0
	for id, userData := range sm.states {
		if userData.UpdatedAt.Before(cutoff) {
			delete(sm.states, id)
			removed++
		}
	}
	return removed
}
