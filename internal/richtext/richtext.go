// Package richtext извлекает текст и признак медиа из тела материала.
// Формат хранения тела для ядра непрозрачен, им владеет редактор.
package richtext

import (
	"encoding/json"
	"strings"
)

// Inspector - коллаборатор богатого контента.
type Inspector interface {
	PlainText(body string) string
	HasMedia(body string) bool
}

// DeltaInspector понимает Delta-документы ({"ops":[...]}) и откатывается к обычному тексту.
type DeltaInspector struct{}

type deltaDoc struct {
	Ops []struct {
		Insert json.RawMessage `json:"insert"`
	} `json:"ops"`
}

func parseDelta(body string) (*deltaDoc, bool) {
	trimmed := strings.TrimSpace(body)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var doc deltaDoc
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil || doc.Ops == nil {
		return nil, false
	}
	return &doc, true
}

func (DeltaInspector) PlainText(body string) string {
	doc, ok := parseDelta(body)
	if !ok {
		return strings.TrimSpace(body)
	}
	var b strings.Builder
	for _, op := range doc.Ops {
		var s string
		if err := json.Unmarshal(op.Insert, &s); err == nil {
			b.WriteString(s)
		}
	}
	return strings.TrimSpace(b.String())
}

// HasMedia считает медиа любую вставку-объект (image, video, ...).
func (DeltaInspector) HasMedia(body string) bool {
	doc, ok := parseDelta(body)
	if !ok {
		return false
	}
	for _, op := range doc.Ops {
		raw := strings.TrimSpace(string(op.Insert))
		if strings.HasPrefix(raw, "{") {
			return true
		}
	}
	return false
}
