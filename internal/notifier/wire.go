package notifier

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xuanlam2007/scholium/internal/model"
)

// FrameConnected первый кадр потока, не является поводом для обновления
const FrameConnected = "connected"

// Frame JSON-кадр потока событий
type Frame struct {
	Type       string `json:"type"`
	ScholiumID int64  `json:"scholiumId"`
	Timestamp  int64  `json:"timestamp,omitempty"` // epoch ms
}

// EncodeEvent кодирует событие в кадр
func EncodeEvent(ev model.ChangeEvent) ([]byte, error) {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	data, err := json.Marshal(Frame{
		Type:       string(ev.Kind),
		ScholiumID: ev.ScholiumID,
		Timestamp:  ts.UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode change event: %w", err)
	}
	return data, nil
}

// EncodeConnected кадр приветствия
func EncodeConnected(scholiumID int64) []byte {
	data, _ := json.Marshal(Frame{Type: FrameConnected, ScholiumID: scholiumID})
	return data
}

// DecodeFrame разбирает кадр. connected возвращается с ok=false.
func DecodeFrame(data []byte) (ev model.ChangeEvent, ok bool, err error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return model.ChangeEvent{}, false, fmt.Errorf("decode frame: %w", err)
	}
	if f.Type == FrameConnected {
		return model.ChangeEvent{ScholiumID: f.ScholiumID}, false, nil
	}
	kind := model.ChangeKind(f.Type)
	if !kind.Publishable() {
		return model.ChangeEvent{}, false, fmt.Errorf("unknown event type %q", f.Type)
	}
	ev = model.ChangeEvent{ScholiumID: f.ScholiumID, Kind: kind}
	if f.Timestamp > 0 {
		ev.Timestamp = time.UnixMilli(f.Timestamp)
	}
	return ev, true, nil
}
