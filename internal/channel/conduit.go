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

package channel

import (
	"os"
	"sync/atomic"
)

// Protocol tokens written on the command channel. Both are line-delimited
// text so the worker can consume them with a plain line reader.
// 写入命令通道的协议令牌。两者都是按行分隔的文本，
// worker 可以用普通的行读取器消费。
const (
	// TokenHeartbeat is the periodic liveness probe; the worker treats it as a no-op
	// TokenHeartbeat 是周期性的存活探测；worker 将其视为空操作
	TokenHeartbeat = "HEARTBEAT\n"

	// TokenShutdown asks the worker to begin graceful termination
	// TokenShutdown 要求 worker 开始优雅终止
	TokenShutdown = "shutdown\n"
)

// Conduit is the command-channel handle jointly owned by the run loop and the
// termination-signal handler. The handle is an atomically swapped optional
// pointer: exactly one owner performs the actual close (take-or-clear), the
// other observes "already closed" and no-ops. No locks, no double close.
// Conduit 是由运行循环和终止信号处理器共同持有的命令通道句柄。
// 句柄是一个原子交换的可选指针：恰好一个持有者执行真正的关闭
// （取出即清除），另一个观察到“已关闭”并不做任何事。无锁、无双重关闭。
type Conduit struct {
	file atomic.Pointer[os.File]
}

// NewConduit creates a conduit. f may be nil and bound later, once the
// handshake has attached the worker.
// NewConduit 创建一个 conduit。f 可以为 nil，待握手使 worker 连接后再绑定。
func NewConduit(f *os.File) *Conduit {
	c := &Conduit{}
	if f != nil {
		c.file.Store(f)
	}
	return c
}

// Bind attaches the opened command-channel handle
// Bind 绑定已打开的命令通道句柄
func (c *Conduit) Bind(f *os.File) {
	c.file.Store(f)
}

// Open reports whether the conduit currently holds a handle
// Open 报告 conduit 当前是否持有句柄
func (c *Conduit) Open() bool {
	return c.file.Load() != nil
}

// WriteToken writes a protocol token. Returns ErrConduitClosed once the
// handle has been taken by either owner. A write racing the close may instead
// surface the OS error of the closed descriptor; callers treat both as the
// same non-fatal condition.
// WriteToken 写入一个协议令牌。句柄被任一持有者取走后返回 ErrConduitClosed。
// 与关闭竞争的写入可能改为出现已关闭描述符的系统错误；
// 调用方将两者视为同一种非致命情况。
func (c *Conduit) WriteToken(token string) error {
	f := c.file.Load()
	if f == nil {
		return ErrConduitClosed
	}
	_, err := f.WriteString(token)
	return err
}

// Close takes the handle and closes it. Exactly one caller ever closes the
// underlying file; every other call is a no-op returning nil.
// Close 取出句柄并关闭。只有一个调用者会真正关闭底层文件；
// 其余调用都是返回 nil 的空操作。
func (c *Conduit) Close() error {
	f := c.file.Swap(nil)
	if f == nil {
		return nil
	}
	return f.Close()
}

// Shutdown takes the handle, writes the shutdown token, and closes the
// channel. The take-or-clear swap guarantees at most one shutdown token is
// ever written, even when a termination signal races a normal child exit.
// The returned bool reports whether this caller performed the handshake.
// Shutdown 取出句柄，写入关闭令牌并关闭通道。取出即清除的交换保证
// 最多只写入一个关闭令牌，即使终止信号与子进程正常退出竞争也是如此。
// 返回的 bool 报告是否由本调用者执行了握手。
func (c *Conduit) Shutdown() (bool, error) {
	f := c.file.Swap(nil)
	if f == nil {
		return false, nil
	}
	_, werr := f.WriteString(TokenShutdown)
	cerr := f.Close()
	if werr != nil {
		return true, werr
	}
	return true, cerr
}
