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

// Package main is the entry point for the launcherX worker supervisor.
// main 包是 launcherX worker 主管进程的入口点。
//
// launcherX is a terminal-bound shim that:
// launcherX 是一个绑定终端的垫片程序，负责：
// - Spawns one worker script under a pre-provisioned interpreter / 在预置解释器下启动一个 worker 脚本
// - Relays the worker's output to this terminal / 将 worker 的输出转发到本终端
// - Emits heartbeats so the worker can detect launcher death / 发送心跳使 worker 能检测启动器消亡
// - Coordinates cooperative shutdown on termination signals / 在终止信号时协调协作式关闭
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/scriptdeck/launcherX/internal/config"
	"github.com/scriptdeck/launcherX/internal/console"
	"github.com/scriptdeck/launcherX/internal/logger"
	"github.com/scriptdeck/launcherX/internal/supervisor"
)

// Version information, set at build time
// 版本信息，在构建时设置
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// configFile is the path to the configuration file
// configFile 是配置文件的路径
var configFile string

// rootCmd is the root command for the launcher CLI
// rootCmd 是启动器 CLI 的根命令
var rootCmd = &cobra.Command{
	Use:   "launcherx <script>",
	Short: "launcherX - terminal shim that supervises one worker script",
	Long: `launcherX runs one worker script under a pre-provisioned interpreter.
launcherX 在预置解释器下运行一个 worker 脚本。

It owns the operator terminal for the duration of the run:
在运行期间它持有操作员终端：
- Worker output is relayed here, verbatim and in order / worker 输出逐字、按序转发到这里
- Heartbeats let the worker detect launcher death / 心跳使 worker 能检测启动器消亡
- Ctrl+C asks the worker to shut down cooperatively / Ctrl+C 请求 worker 协作式关闭`,
	Args: cobra.ExactArgs(1),
	RunE: runLauncher,
}

// versionCmd shows version information
// versionCmd 显示版本信息
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information / 打印版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "launcherX\n")
		fmt.Fprintf(out, "  Version:    %s\n", Version)
		fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
		fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
		fmt.Fprintf(out, "  Go Version: %s\n", runtime.Version())
		fmt.Fprintf(out, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	// Add flags to root command
	// 向根命令添加标志
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: /etc/launcherx/config.yaml)")

	// Add subcommands
	// 添加子命令
	rootCmd.AddCommand(versionCmd)
}

// runResult carries the supervisor outcome across the signal select
// runResult 在信号 select 之间传递主管进程的结果
type runResult struct {
	code int
	err  error
}

// runLauncher is the main entry point for a supervised run
// runLauncher 是一次受监管运行的主入口点
func runLauncher(cmd *cobra.Command, args []string) error {
	script := args[0]

	// Load configuration
	// 加载配置
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w / 加载配置失败：%w", err, err)
	}

	// Validate configuration
	// 验证配置
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w / 无效配置：%w", err, err)
	}

	// Diagnostics go to the rotated file only; this terminal belongs to the
	// worker's output.
	// 诊断信息只写入轮转文件；本终端属于 worker 的输出。
	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w / 构建日志器失败：%w", err, err)
	}
	defer log.Sync()

	fmt.Println("========================================")
	fmt.Println("  launcherX starting...")
	fmt.Println("  launcherX 正在启动...")
	fmt.Println("========================================")
	fmt.Printf("Version: %s, Commit: %s, Build: %s\n", Version, GitCommit, BuildTime)
	fmt.Printf("Script: %s\n", script)
	fmt.Println("Keep this window open; it carries the script's output.")
	fmt.Println("请保持此窗口打开；它承载脚本的输出。")

	window := console.Detect(os.Stdout, cfg.Terminal.Control)
	sup := supervisor.New(cfg, log, window, os.Stdout)

	// Setup signal handling for cooperative shutdown
	// 设置信号处理以实现协作式关闭
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	// Run supervisor in goroutine
	// 在 goroutine 中运行主管进程
	resChan := make(chan runResult, 1)
	go func() {
		code, runErr := sup.Run(context.Background(), script)
		resChan <- runResult{code: code, err: runErr}
	}()

	// Wait for completion or a termination signal
	// 等待运行结束或终止信号
	var res runResult
	select {
	case res = <-resChan:
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal: %v, asking script to stop... / 收到信号：%v，请求脚本停止...\n", sig, sig)
		if _, serr := sup.SignalShutdown(); serr != nil {
			log.Warn("shutdown token delivery failed: " + serr.Error())
		}

		// Grant the worker a bounded grace period; a second signal or its
		// expiry force-kills.
		// 给予 worker 有界的宽限期；第二次信号或宽限期届满则强制终止。
		select {
		case res = <-resChan:
		case <-time.After(cfg.Shutdown.Grace):
			fmt.Println("Grace period expired, force killing... / 宽限期已过，强制终止...")
			_ = sup.ForceKill()
			res = <-resChan
		case sig = <-sigChan:
			fmt.Printf("Received second signal: %v, force killing... / 收到第二个信号：%v，强制终止...\n", sig, sig)
			_ = sup.ForceKill()
			res = <-resChan
		}
	}

	// Fatal pre-run failures: the worker never ran. Surface the failure on
	// the restored window and hold it until the operator has seen it.
	// 运行前的致命失败：worker 从未运行。在还原的窗口上显示失败，
	// 并保持窗口直到操作员看到为止。
	if res.err != nil {
		fmt.Printf("\nLauncher failed: %v\n", res.err)
		fmt.Printf("启动失败：%v\n", res.err)
		sup.RestoreWindow()
		waitForKey(os.Stdout)
		log.Sync()
		os.Exit(supervisor.FatalExitCode)
	}

	if res.code == 0 {
		fmt.Println("\nScript finished successfully. / 脚本成功结束。")
	} else {
		fmt.Printf("\nScript exited with code %d. / 脚本以退出码 %d 结束。\n", res.code, res.code)
	}

	// Propagate the worker's exit code / 传播 worker 的退出码
	log.Sync()
	os.Exit(res.code)
	return nil
}

// waitForKey blocks until the operator presses a key, if stdin is an
// interactive terminal. Non-interactive hosts skip the gate.
// waitForKey 在 stdin 是交互式终端时阻塞，直到操作员按下任意键。
// 非交互式宿主跳过此步骤。
func waitForKey(w *os.File) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return
	}
	fmt.Fprint(w, "\nPress any key to exit... / 按任意键退出...")

	state, err := term.MakeRaw(fd)
	if err != nil {
		return
	}
	defer term.Restore(fd, state)

	buf := make([]byte, 1)
	_, _ = os.Stdin.Read(buf)
	fmt.Fprintln(w)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
