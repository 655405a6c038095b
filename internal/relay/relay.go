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

// Package relay provides the steady-state data movers of a supervised run.
// relay 包提供受监管运行在稳态阶段的数据搬运组件。
//
// This package provides:
// 此包提供：
// - Verbatim, in-order forwarding of worker output / 逐字节、保序地转发 worker 输出
// - Periodic heartbeat emission on the command channel / 在命令通道上周期性发送心跳
// - Consecutive heartbeat-failure escalation / 心跳连续失败升级
package relay

import (
	"errors"
	"io"
	"os"

	"go.uber.org/zap"
)

// DefaultBufferSize is the fixed read buffer for output forwarding. It
// matches the channel object's own buffer so one read can drain a full pipe.
// DefaultBufferSize 是输出转发的固定读缓冲区大小。
// 它与通道对象自身的缓冲区一致，一次读取即可排空整个管道。
const DefaultBufferSize = 4096

// OutputRelay forwards worker output bytes to the operator terminal.
// Bytes arrive in the worker's write order and are never interleaved with
// anything else this relay writes, because the relay is the terminal's sole
// writer during a run.
// OutputRelay 将 worker 的输出字节转发到操作员终端。
// 字节按 worker 的写入顺序到达，并且不会与该 relay 写入的其他内容交错，
// 因为在运行期间 relay 是终端的唯一写入者。
type OutputRelay struct {
	src io.Reader
	dst io.Writer
	buf []byte
	log *zap.Logger
}

// NewOutputRelay creates a relay from the output channel to the terminal
// NewOutputRelay 创建从输出通道到终端的转发器
func NewOutputRelay(src io.Reader, dst io.Writer, log *zap.Logger) *OutputRelay {
	return &OutputRelay{
		src: src,
		dst: dst,
		buf: make([]byte, DefaultBufferSize),
		log: log,
	}
}

// Run drains the output channel until end of stream. The worker's exit
// closes the last write side, so the relay terminates through EOF after all
// buffered output has been delivered; a deadline set by the supervisor's
// cleanup path is treated the same way.
// Run 持续排空输出通道直到流结束。worker 退出会关闭最后一个写端，
// 因此 relay 在缓冲输出全部送达后通过 EOF 终止；
// 主管清理路径设置的截止时间按同样方式处理。
func (r *OutputRelay) Run() error {
	for {
		n, err := r.src.Read(r.buf)
		if n > 0 {
			if _, werr := r.dst.Write(r.buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrDeadlineExceeded) {
				r.log.Debug("output channel drained")
				return nil
			}
			return err
		}
	}
}
