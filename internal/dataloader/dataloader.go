package dataloader

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/UkralStul/matjip-discussion/internal/domain"
	"github.com/UkralStul/matjip-discussion/internal/storage"
	"github.com/graph-gophers/dataloader"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders содержит все дата-лоадеры приложения.
type Loaders struct {
	RepliesByCommentID *dataloader.Loader
}

// NewLoaders создает лоадеры поверх хранилища. Лоадер живёт один запрос.
func NewLoaders(store storage.Storage) *Loaders {
	// Создаем батч-функцию для лоадера
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		parentIDs := make([]int64, len(keys))
		for i, k := range keys {
			id, err := strconv.ParseInt(k.String(), 10, 64)
			if err != nil {
				return failAll(len(keys), fmt.Errorf("bad comment key %q: %w", k.String(), err))
			}
			parentIDs[i] = id
		}

		// Вызываем метод хранилища, который делает ОДИН запрос к БД
		repliesMap, err := store.GetRepliesByParentIDs(ctx, parentIDs)
		if err != nil {
			return failAll(len(keys), err)
		}

		// Формируем результат в том же порядке, что и ключи
		results := make([]*dataloader.Result, len(keys))
		for i, parentID := range parentIDs {
			results[i] = &dataloader.Result{Data: repliesMap[parentID]}
		}
		return results
	}

	return &Loaders{
		RepliesByCommentID: dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(time.Millisecond*1)),
	}
}

func failAll(n int, err error) []*dataloader.Result {
	results := make([]*dataloader.Result, n)
	for i := range results {
		results[i] = &dataloader.Result{Error: err}
	}
	return results
}

// Replies загружает ответы для набора комментариев одним батчем.
func (l *Loaders) Replies(ctx context.Context, parentIDs []int64) (map[int64][]*domain.Comment, error) {
	keys := make(dataloader.Keys, len(parentIDs))
	for i, id := range parentIDs {
		keys[i] = dataloader.StringKey(strconv.FormatInt(id, 10))
	}

	data, errs := l.RepliesByCommentID.LoadMany(ctx, keys)()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	out := make(map[int64][]*domain.Comment, len(parentIDs))
	for i, id := range parentIDs {
		replies, _ := data[i].([]*domain.Comment)
		out[id] = replies
	}
	return out, nil
}

// Middleware для внедрения лоадеров в контекст запроса.
func Middleware(store storage.Storage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithLoaders(r.Context(), NewLoaders(store))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithLoaders(ctx context.Context, l *Loaders) context.Context {
	return context.WithValue(ctx, key, l)
}

// For извлекает лоадеры из контекста; nil, если middleware не подключен.
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(key).(*Loaders)
	return l
}
