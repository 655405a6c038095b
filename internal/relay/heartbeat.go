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

package relay

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/scriptdeck/launcherX/internal/channel"
)

// DefaultEscalateAfter is the number of consecutive heartbeat write failures
// before the heartbeater raises its log level. Failures never abort the run;
// the worker may be slow to connect or already gone.
// DefaultEscalateAfter 是心跳写入连续失败多少次后提升日志级别。
// 失败永远不会中止运行；worker 可能连接缓慢或已经退出。
const DefaultEscalateAfter = 5

// Heartbeater periodically writes the liveness token on the command channel
// so the worker can detect supervisor death independently of process
// monitoring. Heartbeats travel on a physically separate channel and never
// interleave with worker output bytes.
// Heartbeater 周期性地在命令通道上写入存活令牌，
// 使 worker 能够独立于进程监控检测主管进程的消亡。
// 心跳通过物理上独立的通道传输，永不与 worker 输出字节交错。
type Heartbeater struct {
	conduit       *channel.Conduit
	interval      time.Duration
	escalateAfter int
	log           *zap.Logger
}

// NewHeartbeater creates a heartbeater over the given conduit
// NewHeartbeater 基于给定的 conduit 创建心跳器
func NewHeartbeater(conduit *channel.Conduit, interval time.Duration, log *zap.Logger) *Heartbeater {
	if interval <= 0 {
		interval = time.Second
	}
	return &Heartbeater{
		conduit:       conduit,
		interval:      interval,
		escalateAfter: DefaultEscalateAfter,
		log:           log,
	}
}

// Run emits one heartbeat token per interval until the context is cancelled.
// A write failure is non-fatal: it is logged and the write is retried on the
// next tick, so a failed send never suppresses the following attempt.
// Consecutive failures escalate the log level once they cross the threshold;
// a success resets the count.
// Run 每个间隔发送一个心跳令牌，直到上下文被取消。
// 写入失败是非致命的：记录日志并在下一个周期重试，
// 因此失败的发送不会抑制后续尝试。
// 连续失败超过阈值后提升日志级别；一次成功即重置计数。
func (h *Heartbeater) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	consecutiveFails := 0

	for {
		select {
		case <-ctx.Done():
			h.log.Debug("heartbeat loop stopped")
			return
		case <-ticker.C:
			if err := h.conduit.WriteToken(channel.TokenHeartbeat); err != nil {
				consecutiveFails++
				if consecutiveFails >= h.escalateAfter {
					h.log.Warn("heartbeat write keeps failing",
						zap.Int("consecutive_fails", consecutiveFails),
						zap.Error(err))
				} else {
					h.log.Debug("heartbeat write failed",
						zap.Int("consecutive_fails", consecutiveFails),
						zap.Error(err))
				}
				continue
			}
			consecutiveFails = 0
		}
	}
}
