package events

import (
	"sync"

	"github.com/UkralStul/matjip-discussion/internal/domain"
	"github.com/google/uuid"
)

type EventType string

const (
	CommentCreated EventType = "created"
	CommentUpdated EventType = "updated"
	CommentDeleted EventType = "deleted"
)

// CommentEvent - изменение комментария, отправляемое подписчикам материала.
type CommentEvent struct {
	Type    EventType       `json:"type"`
	Comment *domain.Comment `json:"comment"`
}

const subscriberBuffer = 16

// CommentObserver хранит каналы для подписчиков на комментарии.
type CommentObserver struct {
	mu sync.RWMutex
	//          map[itemID] map[subscriberID] channel
	subs map[int64]map[string]chan CommentEvent
}

// NewCommentObserver - конструктор для нашего наблюдателя.
func NewCommentObserver() *CommentObserver {
	return &CommentObserver{
		subs: make(map[int64]map[string]chan CommentEvent),
	}
}

// Subscribe регистрирует подписчика на комментарии материала.
// cancel закрывает канал; вызывать его можно несколько раз.
func (o *CommentObserver) Subscribe(itemID int64) (<-chan CommentEvent, func()) {
	ch := make(chan CommentEvent, subscriberBuffer)
	subID := uuid.NewString()

	o.mu.Lock()
	if o.subs[itemID] == nil {
		o.subs[itemID] = make(map[string]chan CommentEvent)
	}
	o.subs[itemID][subID] = ch
	o.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			if itemSubs, ok := o.subs[itemID]; ok {
				delete(itemSubs, subID)
				if len(itemSubs) == 0 {
					delete(o.subs, itemID)
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Publish рассылает событие без блокировки: медленный подписчик событие пропускает.
func (o *CommentObserver) Publish(itemID int64, ev CommentEvent) {
	if o == nil {
		return
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, ch := range o.subs[itemID] {
		select {
		case ch <- ev:
		default:
			// Клиент не успевает читать
		}
	}
}

// Subscribers возвращает число подписчиков материала.
func (o *CommentObserver) Subscribers(itemID int64) int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subs[itemID])
}
