/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package console

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestXTermSequences verifies each operation emits its WindowOps sequence
// TestXTermSequences 验证每个操作发出对应的 WindowOps 序列
func TestXTermSequences(t *testing.T) {
	var buf bytes.Buffer
	x := NewXTerm(&buf)

	assert.NoError(t, x.Minimize())
	assert.Equal(t, "\x1b[2t", buf.String())
	buf.Reset()

	assert.NoError(t, x.Restore())
	assert.Equal(t, "\x1b[1t", buf.String())
	buf.Reset()

	assert.NoError(t, x.BringToForeground())
	assert.Equal(t, "\x1b[5t", buf.String())
}

// TestXTermWriteError verifies a failed terminal write surfaces
// TestXTermWriteError 验证终端写入失败会被上报
func TestXTermWriteError(t *testing.T) {
	x := NewXTerm(brokenWriter{})
	assert.Error(t, x.Minimize())
	assert.Error(t, x.Restore())
	assert.Error(t, x.BringToForeground())
}

// TestXTermConcurrentEmitsNeverTear verifies sequences stay atomic under
// concurrent callers.
// TestXTermConcurrentEmitsNeverTear 验证并发调用下序列保持原子。
func TestXTermConcurrentEmitsNeverTear(t *testing.T) {
	var buf lockedBuffer
	x := NewXTerm(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = x.Minimize()
			_ = x.Restore()
		}()
	}
	wg.Wait()

	out := buf.String()
	assert.Len(t, out, 32*2*len(seqMinimize))
	for len(out) > 0 {
		if out[:len(seqMinimize)] != seqMinimize && out[:len(seqRestore)] != seqRestore {
			t.Fatalf("torn sequence in output: %q", out[:len(seqMinimize)])
		}
		out = out[len(seqMinimize):]
	}
}

// TestNoopNeverFails covers the headless controller
// TestNoopNeverFails 覆盖无头控制器
func TestNoopNeverFails(t *testing.T) {
	n := Noop{}
	assert.NoError(t, n.Minimize())
	assert.NoError(t, n.Restore())
	assert.NoError(t, n.BringToForeground())
}

// TestDetectModes verifies mode selection. A plain buffer is never a
// terminal, so auto must fall back to the no-op controller.
// TestDetectModes 验证模式选择。普通缓冲区不是终端，
// 因此 auto 必须回退到空实现控制器。
func TestDetectModes(t *testing.T) {
	var buf bytes.Buffer

	assert.IsType(t, Noop{}, Detect(&buf, ModeOff))
	assert.IsType(t, &XTerm{}, Detect(&buf, ModeXTerm))
	assert.IsType(t, Noop{}, Detect(&buf, ModeAuto))
}

type brokenWriter struct{}

func (brokenWriter) Write(p []byte) (int, error) { return 0, fmt.Errorf("terminal detached") }

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
