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

//go:build unix

package channel

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Create allocates a uniquely named FIFO endpoint with single-instance,
// byte-stream, blocking-capable semantics. A name collision or resource
// exhaustion is reported as ErrCreation; the caller must not proceed to spawn.
// Create 分配一个唯一命名的 FIFO 端点，具有单实例、字节流、可阻塞的语义。
// 名称冲突或资源耗尽报告为 ErrCreation；调用方不得继续执行 spawn。
func (f *Factory) Create(pid int, salt string, direction Direction) (*Endpoint, error) {
	name := f.Name(pid, salt, direction)
	path := filepath.Join(f.dir, name)

	// O_EXCL-like behavior: mkfifo fails with EEXIST on collision
	// 类似 O_EXCL 的行为：名称冲突时 mkfifo 以 EEXIST 失败
	if err := unix.Mkfifo(path, 0o600); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCreation, name, err)
	}

	return &Endpoint{Name: name, Path: path, Direction: direction}, nil
}

// OpenReader opens the supervisor-side read end of an inbound endpoint.
// The non-blocking open succeeds before any writer exists; once the handle
// is registered with the runtime poller, reads block only the goroutine.
// OpenReader 打开入站端点的主管进程侧读端。
// 非阻塞打开在写端出现之前即可成功；句柄注册到运行时 poller 后，
// 读取只阻塞 goroutine。
func (e *Endpoint) OpenReader() (*os.File, error) {
	f, err := os.OpenFile(e.Path, os.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s for reading: %w", e.Name, err)
	}
	e.setFile(f)
	return f, nil
}

// OpenWriter opens a write end of the endpoint. The open blocks until a
// reader exists, so callers open the read side first.
// OpenWriter 打开端点的写端。在读端出现之前打开会阻塞，
// 因此调用方应先打开读端。
func (e *Endpoint) OpenWriter() (*os.File, error) {
	f, err := os.OpenFile(e.Path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s for writing: %w", e.Name, err)
	}
	return f, nil
}

// ProbeWriter attempts a non-blocking write-side open of an outbound
// endpoint. It succeeds exactly when the worker has opened the read side,
// which makes it the handshake probe: ErrNotConnected means "no reader yet".
// ProbeWriter 尝试以非阻塞方式打开出站端点的写端。
// 只有当 worker 打开了读端时才会成功，因此它就是握手探测：
// ErrNotConnected 表示“尚无读端”。
func (e *Endpoint) ProbeWriter() (*os.File, error) {
	f, err := os.OpenFile(e.Path, os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		if errors.Is(err, unix.ENXIO) {
			return nil, ErrNotConnected
		}
		return nil, fmt.Errorf("probe %s for writing: %w", e.Name, err)
	}
	e.setFile(f)
	return f, nil
}
