package countdown

import (
	"context"
	"sync"
	"time"
)

// Scheduler владеет единственным тикером и транслирует его тики всем
// активным подписчикам. Один общий тикер вместо таймера на каждую карточку.
type Scheduler struct {
	interval time.Duration

	mu     sync.Mutex
	nextID int
	subs   map[int]chan time.Time
}

// NewScheduler создаёт планировщик с указанным интервалом тика.
func NewScheduler(interval time.Duration) *Scheduler {
	return &Scheduler{
		interval: interval,
		subs:     make(map[int]chan time.Time),
	}
}

// Start запускает фоновую трансляцию тиков до отмены контекста.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.closeAll()
				return
			case now := <-ticker.C:
				s.broadcast(now)
			}
		}
	}()
}

// Subscribe регистрирует подписчика и возвращает канал тиков.
// Подписка снимается, а канал закрывается при отмене контекста,
// подвисших таймеров после ухода подписчика не остаётся.
func (s *Scheduler) Subscribe(ctx context.Context) <-chan time.Time {
	ch := make(chan time.Time, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
		s.mu.Unlock()
	}()

	return ch
}

func (s *Scheduler) broadcast(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.subs {
		// Медленный подписчик пропускает тик, трансляция не блокируется.
		select {
		case ch <- now:
		default:
		}
	}
}

func (s *Scheduler) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
