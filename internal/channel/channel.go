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

// Package channel provides the named byte-stream channels shared between the
// supervisor and the worker process.
// channel 包提供主管进程与 worker 进程之间共享的命名字节流通道。
//
// This package provides:
// 此包提供：
// - Uniquely named channel endpoint creation / 唯一命名的通道端点创建
// - Directional endpoints (inbound output, outbound command) / 方向性端点（入站输出、出站命令）
// - An atomically owned command-channel handle / 原子持有的命令通道句柄
package channel

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

// Common errors for channel management
// 通道管理的常见错误
var (
	// ErrCreation indicates the OS could not allocate the channel object
	// ErrCreation 表示操作系统无法分配通道对象
	ErrCreation = errors.New("channel creation failed")

	// ErrNotConnected indicates no peer has attached to the channel yet
	// ErrNotConnected 表示尚无对端连接到该通道
	ErrNotConnected = errors.New("channel peer not connected")

	// ErrConduitClosed indicates the command conduit has already been closed
	// ErrConduitClosed 表示命令通道已经关闭
	ErrConduitClosed = errors.New("command conduit is closed")

	// ErrUnsupportedPlatform indicates named channels are not available on this OS
	// ErrUnsupportedPlatform 表示当前操作系统不支持命名通道
	ErrUnsupportedPlatform = errors.New("named channels are not supported on this platform")
)

// Direction indicates the data flow of an endpoint as seen from the supervisor
// Direction 表示从主管进程视角看端点的数据流向
type Direction string

const (
	// Inbound carries bytes from the worker to the supervisor (worker output)
	// Inbound 承载从 worker 到主管进程的字节（worker 输出）
	Inbound Direction = "inbound"

	// Outbound carries bytes from the supervisor to the worker (command tokens)
	// Outbound 承载从主管进程到 worker 的字节（命令令牌）
	Outbound Direction = "outbound"
)

// suffix returns the name suffix used for this direction
// suffix 返回该方向使用的名称后缀
func (d Direction) suffix() string {
	if d == Inbound {
		return "out"
	}
	return "cmd"
}

// Endpoint represents one directional byte-stream channel scoped to a single
// supervisor run.
// Endpoint 表示作用于单次主管进程运行的一个方向性字节流通道。
type Endpoint struct {
	// Name is the unique channel name derived from (prefix, pid, salt)
	// Name 是由 (prefix, pid, salt) 派生的唯一通道名称
	Name string

	// Path is the filesystem path of the channel object
	// Path 是通道对象的文件系统路径
	Path string

	// Direction is the data flow direction of this endpoint
	// Direction 是此端点的数据流向
	Direction Direction

	// file is the supervisor-side handle, nil until opened
	// file 是主管进程侧的句柄，打开前为 nil
	file *os.File

	// connected indicates the supervisor-side handle is open
	// connected 表示主管进程侧句柄已打开
	connected bool

	// mu protects file and connected
	// mu 保护 file 和 connected
	mu sync.Mutex
}

// File returns the supervisor-side handle, or nil if not opened yet
// File 返回主管进程侧的句柄，尚未打开时为 nil
func (e *Endpoint) File() *os.File {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.file
}

// Connected reports whether the supervisor-side handle is open
// Connected 报告主管进程侧句柄是否已打开
func (e *Endpoint) Connected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connected
}

// setFile records an opened supervisor-side handle
// setFile 记录已打开的主管进程侧句柄
func (e *Endpoint) setFile(f *os.File) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.file = f
	e.connected = true
}

// Close closes the supervisor-side handle. A second close is a no-op.
// Close 关闭主管进程侧句柄。再次关闭是空操作。
func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.file == nil {
		return nil
	}
	f := e.file
	e.file = nil
	e.connected = false
	return f.Close()
}

// Remove unlinks the channel object from the filesystem. Removing an already
// removed channel is a no-op.
// Remove 从文件系统中删除通道对象。删除已移除的通道是空操作。
func (e *Endpoint) Remove() error {
	err := os.Remove(e.Path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Factory allocates channel endpoint pairs scoped to one supervisor run
// Factory 分配作用于单次主管进程运行的通道端点对
type Factory struct {
	// prefix is the name prefix shared by all channels of this launcher
	// prefix 是此启动器所有通道共享的名称前缀
	prefix string

	// dir is the directory holding channel objects (defaults to the OS temp dir)
	// dir 是存放通道对象的目录（默认为操作系统临时目录）
	dir string
}

// NewFactory creates a channel factory. An empty dir falls back to os.TempDir.
// NewFactory 创建一个通道工厂。dir 为空时回退到 os.TempDir。
func NewFactory(prefix, dir string) *Factory {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Factory{prefix: prefix, dir: dir}
}

// Name constructs the channel name scoped to (prefix, pid, salt, direction).
// Names are pairwise distinct across concurrently running supervisors on the
// same host for the lifetime of a run.
// Name 构造作用于 (prefix, pid, salt, direction) 的通道名称。
// 在同一主机上并发运行的主管进程之间，名称在运行期内两两不同。
func (f *Factory) Name(pid int, salt string, direction Direction) string {
	return fmt.Sprintf("%s-%d-%s-%s", f.prefix, pid, salt, direction.suffix())
}

// NewSalt returns a random salt fragment for channel naming
// NewSalt 返回用于通道命名的随机盐片段
func NewSalt() string {
	return uuid.NewString()[:8]
}

// CreatePair creates the inbound output endpoint and the outbound command
// endpoint for one run. On partial failure the already created endpoint is
// removed so no channel object leaks.
// CreatePair 为单次运行创建入站输出端点和出站命令端点。
// 部分失败时会移除已创建的端点，确保不泄漏通道对象。
func (f *Factory) CreatePair(pid int, salt string) (output, command *Endpoint, err error) {
	output, err = f.Create(pid, salt, Inbound)
	if err != nil {
		return nil, nil, err
	}
	command, err = f.Create(pid, salt, Outbound)
	if err != nil {
		_ = output.Remove()
		return nil, nil, err
	}
	return output, command, nil
}
