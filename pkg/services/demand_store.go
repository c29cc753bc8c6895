package services

import (
	"sort"
	"sync"

	"supply-planning-api/pkg/models"
)

// DemandStore 日次需要実績のインメモリストア
type DemandStore struct {
	byPeriod map[string]models.DemandObservation
	mu       sync.RWMutex
}

// NewDemandStore 新しいDemandStoreを生成します。
func NewDemandStore() *DemandStore {
	return &DemandStore{
		byPeriod: make(map[string]models.DemandObservation),
	}
}

// Replace 保存済みの実績をすべて置き換える
func (s *DemandStore) Replace(observations []models.DemandObservation) {
	next := make(map[string]models.DemandObservation, len(observations))
	for _, obs := range observations {
		next[obs.Period] = obs
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byPeriod = next
}

// Merge 期間単位で実績を追加する。同じ期間が既にあれば新しい値で上書きする
func (s *DemandStore) Merge(observations []models.DemandObservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, obs := range observations {
		s.byPeriod[obs.Period] = obs
	}
}

// Daily 期間の昇順に並べた実績のコピーを返す
func (s *DemandStore) Daily() []models.DemandObservation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	daily := make([]models.DemandObservation, 0, len(s.byPeriod))
	for _, obs := range s.byPeriod {
		daily = append(daily, obs)
	}
	sort.Slice(daily, func(i, j int) bool {
		return daily[i].Period < daily[j].Period
	})
	return daily
}

// Len 保存済みの期間数
func (s *DemandStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byPeriod)
}
