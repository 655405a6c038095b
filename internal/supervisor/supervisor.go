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

// Package supervisor runs exactly one worker process from spawn to exit.
// supervisor 包管理恰好一个 worker 进程从启动到退出的全过程。
//
// This package provides:
// 此包提供：
// - Channel-backed worker spawning / 基于通道的 worker 启动
// - Bounded worker attachment handshake / 有界的 worker 接入握手
// - Output relay, heartbeat, and exit capture as concurrent tasks / 输出转发、心跳与退出捕获并发运行
// - Cooperative shutdown with a bounded grace period / 带有界宽限期的协作式关闭
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/scriptdeck/launcherX/internal/channel"
	"github.com/scriptdeck/launcherX/internal/config"
	"github.com/scriptdeck/launcherX/internal/console"
	"github.com/scriptdeck/launcherX/internal/relay"
)

// Sentinel errors for fatal, non-retryable run failures
// 致命且不可重试的运行失败的哨兵错误
var (
	// ErrSpawn indicates the worker process could not be started
	// ErrSpawn 表示 worker 进程无法启动
	ErrSpawn = errors.New("worker spawn failed")

	// ErrHandshakeTimeout indicates the worker never attached to its channels
	// ErrHandshakeTimeout 表示 worker 始终未接入其通道
	ErrHandshakeTimeout = errors.New("worker handshake timed out")
)

// RunState is the supervisor lifecycle phase. Fatal failures are one-way
// exits; there are no retries and no state regressions.
// RunState 是主管进程的生命周期阶段。致命失败是单向出口；
// 不存在重试，也不存在状态回退。
type RunState string

const (
	StateIdle              RunState = "idle"
	StateChannelsCreated   RunState = "channels_created"
	StateChildSpawned      RunState = "child_spawned"
	StateAwaitingHandshake RunState = "awaiting_handshake"
	StateRunning           RunState = "running"
	StateChildExited       RunState = "child_exited"
	StateCleanup           RunState = "cleanup"
	StateDone              RunState = "done"
)

// FatalExitCode is the supervisor exit code for pre-run failures: channel
// creation, spawn, or handshake. The worker never ran, so there is no worker
// code to propagate.
// FatalExitCode 是运行前失败（通道创建、启动、握手）对应的主管退出码。
// worker 从未运行，因此没有可传播的 worker 退出码。
const FatalExitCode = -1

// handshakeProbeInterval is how often the attachment probe is retried
// handshakeProbeInterval 是接入探测的重试间隔
const handshakeProbeInterval = 50 * time.Millisecond

// Supervisor owns one worker process lifecycle. It is single-use: create one,
// call Run once, discard.
// Supervisor 持有一个 worker 进程的生命周期。它是一次性的：
// 创建一个，调用一次 Run，然后丢弃。
type Supervisor struct {
	cfg      *config.Config
	log      *zap.Logger
	window   console.Controller
	terminal io.Writer

	// conduit is shared with the shutdown path; see channel.Conduit
	// conduit 与关闭路径共享；参见 channel.Conduit
	conduit *channel.Conduit

	state    atomic.Value // RunState
	childPID atomic.Int64

	restoreOnce sync.Once
}

// New creates a supervisor. terminal receives relayed worker output and must
// not be shared with the logger.
// New 创建一个主管进程对象。terminal 接收转发的 worker 输出，
// 不得与日志器共享。
func New(cfg *config.Config, log *zap.Logger, window console.Controller, terminal io.Writer) *Supervisor {
	s := &Supervisor{
		cfg:      cfg,
		log:      log,
		window:   window,
		terminal: terminal,
		conduit:  channel.NewConduit(nil),
	}
	s.state.Store(StateIdle)
	return s
}

// State returns the current lifecycle phase
// State 返回当前生命周期阶段
func (s *Supervisor) State() RunState {
	return s.state.Load().(RunState)
}

func (s *Supervisor) setState(st RunState) {
	s.state.Store(st)
	s.log.Debug("state transition", zap.String("state", string(st)))
}

// ChildPID returns the worker PID, or 0 before spawn
// ChildPID 返回 worker 的 PID，启动前为 0
func (s *Supervisor) ChildPID() int {
	return int(s.childPID.Load())
}

// SignalShutdown writes the shutdown token on the command channel and closes
// it. At most one token is ever written, no matter how often this is called
// or how it races the normal exit path. The returned bool reports whether
// this call performed the handshake.
// SignalShutdown 在命令通道上写入关闭令牌并关闭通道。
// 无论被调用多少次、与正常退出路径如何竞争，最多只写入一个令牌。
// 返回的 bool 报告是否由本次调用执行了握手。
func (s *Supervisor) SignalShutdown() (bool, error) {
	performed, err := s.conduit.Shutdown()
	if performed {
		s.log.Info("shutdown token sent")
	}
	return performed, err
}

// ForceKill terminates the worker and anything in its process group
// ForceKill 终止 worker 及其进程组中的所有进程
func (s *Supervisor) ForceKill() error {
	pid := s.ChildPID()
	if pid == 0 {
		return nil
	}
	s.log.Warn("force killing worker", zap.Int("pid", pid))
	return killTree(pid)
}

// Run executes the full lifecycle for one worker script and returns the
// supervisor exit code. Fatal pre-run failures return FatalExitCode and a
// sentinel error; otherwise the worker's own exit code is returned with a
// nil error. All channel objects are released before Run returns.
// Run 为一个 worker 脚本执行完整的生命周期并返回主管退出码。
// 运行前的致命失败返回 FatalExitCode 和哨兵错误；
// 否则返回 worker 自身的退出码且错误为 nil。
// Run 返回前会释放所有通道对象。
func (s *Supervisor) Run(ctx context.Context, script string) (int, error) {
	// Phase 1: channel creation. Failure here is fatal and pre-spawn, so
	// there is no process to reap.
	// 阶段 1：通道创建。此处失败是致命的且发生在启动之前，无需回收进程。
	factory := channel.NewFactory(s.cfg.Channel.Prefix, s.cfg.Channel.Dir)
	salt := channel.NewSalt()

	output, command, err := factory.CreatePair(os.Getpid(), salt)
	if err != nil {
		s.log.Error("channel creation failed", zap.Error(err))
		return FatalExitCode, err
	}
	s.setState(StateChannelsCreated)
	s.log.Info("channels created",
		zap.String("output", output.Name),
		zap.String("command", command.Name))

	// The read side must exist before the worker (or we ourselves) open a
	// write side, and the non-blocking open hands the descriptor to the
	// runtime poller so reads only park the goroutine.
	// 读端必须先于 worker（或我们自己）打开写端存在，
	// 非阻塞打开将描述符交给运行时 poller，读取只挂起 goroutine。
	reader, err := output.OpenReader()
	if err != nil {
		s.releaseEndpoints(output, command)
		return FatalExitCode, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	// Phase 2: spawn with the output channel attached as stdout+stderr.
	// 阶段 2：启动 worker，并将输出通道挂接为 stdout+stderr。
	childOut, err := output.OpenWriter()
	if err != nil {
		s.releaseEndpoints(output, command)
		return FatalExitCode, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	cmd := s.buildCommand(ctx, script, output.Path, command.Path)
	cmd.Stdout = childOut
	cmd.Stderr = childOut

	if err := cmd.Start(); err != nil {
		childOut.Close()
		s.releaseEndpoints(output, command)
		s.log.Error("spawn failed", zap.String("script", script), zap.Error(err))
		return FatalExitCode, fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	s.childPID.Store(int64(cmd.Process.Pid))
	s.setState(StateChildSpawned)
	s.log.Info("worker spawned",
		zap.Int("pid", cmd.Process.Pid),
		zap.String("script", script))

	// Close our copy of the write side now that the worker holds its own.
	// The worker's exit then produces EOF on the relay.
	// worker 已持有自己的写端，此时关闭我们的副本。
	// 之后 worker 退出会使 relay 读到 EOF。
	childOut.Close()

	// Phase 3: bounded handshake. The probe succeeds exactly when the worker
	// has opened the command channel's read side.
	// 阶段 3：有界握手。只有当 worker 打开命令通道的读端时探测才会成功。
	s.setState(StateAwaitingHandshake)
	if err := s.awaitHandshake(ctx, command); err != nil {
		s.log.Error("handshake failed, killing worker", zap.Error(err))
		_ = killTree(cmd.Process.Pid)
		_ = cmd.Wait()
		s.cleanup(output, command)
		return FatalExitCode, err
	}
	s.log.Info("worker attached")

	// The worker owns the terminal from here; get the window out of the way
	// after a short moment in the foreground.
	// 从这里开始终端归 worker 使用；在前台短暂停留后将窗口移开。
	if err := s.window.BringToForeground(); err != nil {
		s.log.Debug("foreground request failed", zap.Error(err))
	}
	time.Sleep(300 * time.Millisecond)
	if err := s.window.Minimize(); err != nil {
		s.log.Debug("minimize request failed", zap.Error(err))
	}

	// Phase 4: steady state. Three concurrent tasks sharing one cancellation:
	// the output relay, the heartbeater, and the exit waiter.
	// 阶段 4：稳态。三个并发任务共享同一个取消机制：
	// 输出转发、心跳器和退出等待者。
	s.setState(StateRunning)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outputRelay := relay.NewOutputRelay(reader, s.terminal, s.log)
	heartbeater := relay.NewHeartbeater(s.conduit, s.cfg.Heartbeat.Interval, s.log)

	var wg sync.WaitGroup
	exitCode := 0

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := outputRelay.Run(); err != nil {
			s.log.Warn("output relay ended with error", zap.Error(err))
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		heartbeater.Run(runCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		err := cmd.Wait()
		exitCode = exitCodeOf(cmd, err)
		s.log.Info("worker exited", zap.Int("code", exitCode))
		cancel()

		// EOF normally ends the relay once every write side is closed. A
		// grandchild inheriting the descriptor would keep it open forever,
		// so bound the drain with a read deadline.
		// 所有写端关闭后 EOF 通常会结束 relay。继承了描述符的孙进程
		// 会使其永远保持打开，因此用读截止时间限定排空过程。
		_ = reader.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	}()

	wg.Wait()
	s.setState(StateChildExited)

	// Phase 5: cleanup. Conduit close is a no-op if the shutdown path
	// already took the handle.
	// 阶段 5：清理。若关闭路径已取走句柄，conduit 关闭即为空操作。
	s.cleanup(output, command)

	if exitCode != 0 {
		s.RestoreWindow()
	}

	s.setState(StateDone)
	return exitCode, nil
}

// RestoreWindow restores the terminal window at most once per run
// RestoreWindow 每次运行最多还原终端窗口一次
func (s *Supervisor) RestoreWindow() {
	s.restoreOnce.Do(func() {
		if err := s.window.Restore(); err != nil {
			s.log.Debug("restore request failed", zap.Error(err))
		}
	})
}

// buildCommand assembles the worker invocation. The channel paths travel as
// trailing flags appended to the user's own arguments, so workers parse them
// with an ordinary flag parser.
// buildCommand 组装 worker 的调用。通道路径作为追加在用户参数之后的
// 尾部标志传递，worker 可用普通的标志解析器解析。
func (s *Supervisor) buildCommand(ctx context.Context, script, outputPath, commandPath string) *exec.Cmd {
	args := make([]string, 0, len(s.cfg.Runtime.Args)+5)
	args = append(args, s.cfg.Runtime.Args...)
	args = append(args, script,
		"--output-pipe", outputPath,
		"--command-pipe", commandPath)

	cmd := exec.CommandContext(ctx, s.cfg.Runtime.Interpreter, args...)
	cmd.SysProcAttr = sysProcAttr()

	cmd.Env = os.Environ()
	if s.cfg.Runtime.LibDir != "" {
		pythonPath := s.cfg.Runtime.LibDir
		if existing := os.Getenv("PYTHONPATH"); existing != "" {
			pythonPath += string(os.PathListSeparator) + existing
		}
		cmd.Env = append(cmd.Env, "PYTHONPATH="+pythonPath)
	}
	return cmd
}

// awaitHandshake retries the non-blocking attachment probe until the worker
// opens the command channel's read side or the deadline expires. On success
// the opened handle is bound to the conduit.
// awaitHandshake 重试非阻塞接入探测，直到 worker 打开命令通道的读端
// 或超过截止时间。成功后将打开的句柄绑定到 conduit。
func (s *Supervisor) awaitHandshake(ctx context.Context, command *channel.Endpoint) error {
	deadline := time.After(s.cfg.Handshake.Timeout)
	ticker := time.NewTicker(handshakeProbeInterval)
	defer ticker.Stop()

	for {
		f, err := command.ProbeWriter()
		if err == nil {
			s.conduit.Bind(f)
			return nil
		}
		if !errors.Is(err, channel.ErrNotConnected) {
			return fmt.Errorf("%w: %v", ErrHandshakeTimeout, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrHandshakeTimeout, ctx.Err())
		case <-deadline:
			return ErrHandshakeTimeout
		case <-ticker.C:
		}
	}
}

// cleanup closes every supervisor-side handle and unlinks both channel
// objects. Every step is idempotent, so cleanup is safe on all exit paths.
// cleanup 关闭所有主管进程侧句柄并删除两个通道对象。
// 每一步都是幂等的，因此所有退出路径上的 cleanup 都是安全的。
func (s *Supervisor) cleanup(output, command *channel.Endpoint) {
	s.setState(StateCleanup)
	if err := s.conduit.Close(); err != nil {
		s.log.Debug("conduit close", zap.Error(err))
	}
	s.releaseEndpoints(output, command)
}

// releaseEndpoints closes and removes both endpoints
// releaseEndpoints 关闭并移除两个端点
func (s *Supervisor) releaseEndpoints(output, command *channel.Endpoint) {
	for _, ep := range []*channel.Endpoint{output, command} {
		if err := ep.Close(); err != nil {
			s.log.Debug("endpoint close", zap.String("name", ep.Name), zap.Error(err))
		}
		if err := ep.Remove(); err != nil {
			s.log.Warn("endpoint remove", zap.String("name", ep.Name), zap.Error(err))
		}
	}
}

// exitCodeOf extracts the worker exit code from a finished command
// exitCodeOf 从已结束的命令中提取 worker 退出码
func exitCodeOf(cmd *exec.Cmd, waitErr error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if waitErr != nil {
		return FatalExitCode
	}
	return 0
}
