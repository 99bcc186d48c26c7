// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestEmitterStampsEvents(t *testing.T) {
	buf := &Buffer{}
	em := NewEmitter(buf, 16667)
	em.Emit(0, Event{Kind: TileSpawned, TileID: 1})
	em.Emit(3, Event{Kind: TileLanded, TileID: 1})

	if len(buf.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(buf.Events))
	}
	e := buf.Events[1]
	if e.Seq != 2 || e.Tick != 3 || e.TimeMicros != 3*16667 {
		t.Fatalf("bad stamp: %+v", e)
	}
	f := em.Fork(Nop{})
	f.Emit(4, Event{Kind: TileMoved})
	if f.Seq() != 3 || em.Seq() != 2 {
		t.Fatalf("fork must continue numbering independently")
	}
}

func TestKindJSON(t *testing.T) {
	b, err := json.Marshal(Event{Kind: BombActivated})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"kind":"bomb_activated"`) {
		t.Fatalf("kind must marshal as text: %s", b)
	}
	var e Event
	if err := json.Unmarshal(b, &e); err != nil || e.Kind != BombActivated {
		t.Fatalf("unmarshal kind: %v %v", err, e.Kind)
	}
}

func TestLogSinkAndTee(t *testing.T) {
	var out bytes.Buffer
	lg := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	buf := &Buffer{}
	em := NewEmitter(Tee{LogSink{Log: lg}, buf, Nop{}}, 1000)
	em.Emit(1, Event{Kind: BoardShuffled, Other: 2})

	if !strings.Contains(out.String(), "board_shuffled") {
		t.Fatalf("log sink did not write: %q", out.String())
	}
	if got := buf.Drain(); len(got) != 1 || len(buf.Events) != 0 {
		t.Fatalf("drain")
	}
}
