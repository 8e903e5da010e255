package client

import (
	"sync"
	"time"

	"github.com/xuanlam2007/scholium/internal/model"
	"github.com/xuanlam2007/scholium/internal/notifier"
)

const DefaultPollInterval = 3000 * time.Millisecond

// Poller запасной источник: раз в интервал отдаёт refresh.
// Пока клиент скрыт, опрос стоит; при возврате сразу refresh.
type Poller struct {
	interval time.Duration

	mu      sync.Mutex
	visible bool
	resumed chan struct{}
}

func NewPoller(interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		interval: interval,
		visible:  true,
		resumed:  make(chan struct{}),
	}
}

// SetVisible переключает видимость. Переход в видимое будит всех подписчиков.
func (p *Poller) SetVisible(visible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if visible == p.visible {
		return
	}
	p.visible = visible
	if visible {
		close(p.resumed)
		p.resumed = make(chan struct{})
	}
}

func (p *Poller) state() (bool, <-chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible, p.resumed
}

func (p *Poller) Subscribe(scholiumID int64, handler notifier.Handler) func() {
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			_, resumed := p.state()
			select {
			case <-done:
				return
			case <-ticker.C:
				if visible, _ := p.state(); visible {
					handler(model.NewChangeEvent(scholiumID, model.ChangeRefresh))
				}
			case <-resumed:
				handler(model.NewChangeEvent(scholiumID, model.ChangeRefresh))
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-stopped
		})
	}
}
