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

// Package console controls the visibility of the operator-facing terminal
// window. Window control is host-windowing-specific, so it sits behind a
// narrow capability interface with a no-op implementation for headless or
// non-interactive hosts; the supervisor core stays portable.
// console 包控制面向操作员的终端窗口的可见性。
// 窗口控制依赖宿主的窗口系统，因此被隔离在一个窄的能力接口之后，
// 并为无头或非交互式宿主提供空实现；主管核心保持可移植。
package console

import (
	"io"
	"os"

	"golang.org/x/term"
)

// Controller manipulates the operator terminal window
// Controller 操纵操作员终端窗口
type Controller interface {
	// Minimize iconifies the terminal window
	// Minimize 最小化终端窗口
	Minimize() error

	// Restore de-iconifies the terminal window so failure context is visible
	// Restore 还原终端窗口，使失败上下文可见
	Restore() error

	// BringToForeground raises the terminal window and requests focus
	// BringToForeground 将终端窗口置前并请求焦点
	BringToForeground() error
}

// Control mode names accepted in configuration
// 配置中接受的控制模式名称
const (
	ModeAuto  = "auto"
	ModeXTerm = "xterm"
	ModeOff   = "off"
)

// Detect selects a controller for the given terminal writer. "off" and
// non-terminal destinations get the no-op controller; "xterm" forces escape
// sequences; "auto" probes the writer and TERM.
// Detect 为给定的终端写入器选择控制器。"off" 和非终端目标获得空实现；
// "xterm" 强制使用转义序列；"auto" 探测写入器和 TERM。
func Detect(w io.Writer, mode string) Controller {
	switch mode {
	case ModeOff:
		return Noop{}
	case ModeXTerm:
		return NewXTerm(w)
	default:
		f, ok := w.(*os.File)
		if !ok || !term.IsTerminal(int(f.Fd())) {
			return Noop{}
		}
		if t := os.Getenv("TERM"); t == "" || t == "dumb" {
			return Noop{}
		}
		return NewXTerm(w)
	}
}

// Noop is the controller for headless or non-interactive hosts
// Noop 是用于无头或非交互式宿主的控制器
type Noop struct{}

func (Noop) Minimize() error          { return nil }
func (Noop) Restore() error           { return nil }
func (Noop) BringToForeground() error { return nil }
