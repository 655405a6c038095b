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
	"bufio"
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/scriptdeck/launcherX/internal/channel"
)

// TestHeartbeaterEmitsAtInterval verifies at least one token is observed per
// interval plus slack while the run is live, and none after cancellation.
// TestHeartbeaterEmitsAtInterval 验证运行期间每个间隔（加容差）内
// 至少观察到一个令牌，取消后不再有令牌。
func TestHeartbeaterEmitsAtInterval(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)

	conduit := channel.NewConduit(w)
	hb := NewHeartbeater(conduit, 20*time.Millisecond, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		hb.Run(ctx)
	}()

	// Count tokens over ten intervals / 统计十个间隔内的令牌数
	reader := bufio.NewReader(r)
	tokens := 0
	deadline := time.After(200 * time.Millisecond)
	lines := make(chan string)
	go func() {
		for {
			line, rerr := reader.ReadString('\n')
			if rerr != nil {
				close(lines)
				return
			}
			lines <- line
		}
	}()

counting:
	for {
		select {
		case line := <-lines:
			assert.Equal(t, channel.TokenHeartbeat, line)
			tokens++
		case <-deadline:
			break counting
		}
	}

	// Ten intervals must carry well over one token; allow generous scheduling slack
	// 十个间隔内必须远多于一个令牌；为调度抖动留出充足容差
	assert.GreaterOrEqual(t, tokens, 5, "heartbeats should arrive at least once per interval+ε")

	cancel()
	wg.Wait()
	require.NoError(t, conduit.Close())

	// Closing the write side ends the stream. Tokens emitted just before
	// cancellation may still drain here; what matters is that the channel
	// closes instead of carrying fresh tokens forever.
	// 关闭写端使流结束。取消前刚发出的令牌可能仍在此处排空；
	// 关键是通道会关闭，而不是永远产生新令牌。
	for line := range lines {
		assert.Equal(t, channel.TokenHeartbeat, line)
	}
	r.Close()
}

// TestHeartbeaterFailureIsNonFatal verifies a dead command channel never
// stops the loop and that the write is retried every tick.
// TestHeartbeaterFailureIsNonFatal 验证命令通道失效不会停止循环，
// 并且每个周期都会重试写入。
func TestHeartbeaterFailureIsNonFatal(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core)

	// Closed conduit: every write fails / 已关闭的 conduit：每次写入都失败
	conduit := channel.NewConduit(nil)
	hb := NewHeartbeater(conduit, 5*time.Millisecond, log)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	hb.Run(ctx) // must return via ctx, not crash / 必须经由 ctx 返回而非崩溃

	failures := logs.FilterMessageSnippet("heartbeat write").Len()
	assert.Greater(t, failures, 1, "each tick retries the failed write")
}

// TestHeartbeaterEscalatesAfterConsecutiveFailures verifies the log level is
// raised to Warn once the consecutive-failure threshold is crossed.
// TestHeartbeaterEscalatesAfterConsecutiveFailures 验证连续失败
// 超过阈值后日志级别升为 Warn。
func TestHeartbeaterEscalatesAfterConsecutiveFailures(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core)

	conduit := channel.NewConduit(nil)
	hb := NewHeartbeater(conduit, 2*time.Millisecond, log)

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	hb.Run(ctx)

	warns := logs.FilterMessageSnippet("keeps failing").Len()
	assert.Greater(t, warns, 0, "expected warn-level escalation after %d failures", DefaultEscalateAfter)

	// The first failures stay at debug level / 最初几次失败保持 debug 级别
	debugs := logs.FilterMessageSnippet("heartbeat write failed").Len()
	assert.GreaterOrEqual(t, debugs, DefaultEscalateAfter-1)
}

// TestHeartbeaterSuccessResetsFailureCount verifies one success clears the
// consecutive-failure escalation.
// TestHeartbeaterSuccessResetsFailureCount 验证一次成功即清除连续失败升级。
func TestHeartbeaterSuccessResetsFailureCount(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core)

	conduit := channel.NewConduit(nil)
	hb := NewHeartbeater(conduit, 2*time.Millisecond, log)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		hb.Run(ctx)
	}()

	// Let failures accumulate past the threshold, then bind a live handle
	// 让失败累积超过阈值，然后绑定可用句柄
	time.Sleep(30 * time.Millisecond)
	conduit.Bind(w)

	// Drain so writes keep succeeding / 持续读出使写入保持成功
	go func() {
		buf := make([]byte, 256)
		for {
			if _, rerr := r.Read(buf); rerr != nil {
				return
			}
		}
	}()

	time.Sleep(30 * time.Millisecond)
	warnsBefore := logs.FilterMessageSnippet("keeps failing").Len()
	time.Sleep(30 * time.Millisecond)
	warnsAfter := logs.FilterMessageSnippet("keeps failing").Len()

	assert.Equal(t, warnsBefore, warnsAfter, "no further escalation once writes succeed")

	cancel()
	wg.Wait()
	conduit.Close()

	// The log should show heartbeats failing then recovering, never a fatal stop
	// 日志应显示心跳先失败后恢复，绝不出现致命停止
	assert.Greater(t, logs.FilterMessageSnippet("heartbeat write").Len(), 0)
}
