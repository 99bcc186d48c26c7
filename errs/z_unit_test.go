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

package errs

import (
	"errors"
	"io"
	"testing"
)

func TestWrapKeepsLevel(t *testing.T) {
	w := Wrap(NewWarn("bad input"), "decode level")
	if w.ErrLv != Warn {
		t.Fatalf("expected warn level, got %s", ErrLv(w.ErrLv))
	}
	f := Wrap(io.EOF, "read")
	if f.ErrLv != Fatal {
		t.Fatalf("foreign cause must be fatal, got %s", ErrLv(f.ErrLv))
	}
	if !errors.Is(f, io.EOF) {
		t.Fatalf("errors.Is must see wrapped cause")
	}
}

func TestWithfSentinel(t *testing.T) {
	err := Withf(ErrOutOfBounds, "swap (%d,%d)", 9, 9)
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("sentinel lost")
	}
	if IsFatal(err) {
		t.Fatalf("out of bounds is a warn")
	}
	if !IsFatal(Wrap(ErrCascadeLimit, "resolve")) {
		t.Fatalf("cascade limit is fatal")
	}
	if IsFatal(nil) {
		t.Fatalf("nil is not fatal")
	}
}
