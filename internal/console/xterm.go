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
	"io"
	"sync"
)

// XTERM window manipulation sequences (dtterm WindowOps).
// Emulators may ignore them; that degrades to a no-op, never an error.
// XTERM 窗口操作序列（dtterm WindowOps）。
// 模拟器可能忽略它们；那会退化为空操作，绝不会成为错误。
const (
	seqMinimize   = "\x1b[2t"
	seqRestore    = "\x1b[1t"
	seqForeground = "\x1b[5t"
)

// XTerm drives the terminal window through XTERM escape sequences written to
// the terminal itself. Writes are serialized so sequences never tear when the
// supervisor's shutdown path races the run loop.
// XTerm 通过写入终端本身的 XTERM 转义序列驱动终端窗口。
// 写入是串行化的，因此当主管的关闭路径与运行循环竞争时序列也不会撕裂。
type XTerm struct {
	mu sync.Mutex
	w  io.Writer
}

// NewXTerm creates a controller writing sequences to w
// NewXTerm 创建向 w 写入序列的控制器
func NewXTerm(w io.Writer) *XTerm {
	return &XTerm{w: w}
}

func (x *XTerm) emit(seq string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, err := io.WriteString(x.w, seq)
	return err
}

// Minimize iconifies the window
// Minimize 最小化窗口
func (x *XTerm) Minimize() error { return x.emit(seqMinimize) }

// Restore de-iconifies the window
// Restore 还原窗口
func (x *XTerm) Restore() error { return x.emit(seqRestore) }

// BringToForeground raises the window and requests focus
// BringToForeground 将窗口置前并请求焦点
func (x *XTerm) BringToForeground() error { return x.emit(seqForeground) }
