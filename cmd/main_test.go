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

package main

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestVersionCommand verifies the version subcommand prints build info
// TestVersionCommand 验证 version 子命令打印构建信息
func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"version"})

	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "launcherX")
	assert.Contains(t, out.String(), Version)
	assert.Contains(t, out.String(), GitCommit)
}

// TestRootCommandRequiresScript verifies the script argument is mandatory
// TestRootCommandRequiresScript 验证脚本参数是必需的
func TestRootCommandRequiresScript(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{})

	assert.Error(t, rootCmd.Execute())
}

// TestWaitForKeyNonInteractive verifies the gate is skipped without a TTY.
// Test processes never have a terminal on stdin, so this must return
// immediately instead of blocking.
// TestWaitForKeyNonInteractive 验证没有 TTY 时跳过等待。
// 测试进程的 stdin 从来不是终端，因此必须立即返回而不是阻塞。
func TestWaitForKeyNonInteractive(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		waitForKey(os.Stdout)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("waitForKey blocked without an interactive stdin")
	}
}
