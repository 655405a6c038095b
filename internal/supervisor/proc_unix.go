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

package supervisor

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// sysProcAttr puts the worker in its own process group so a force kill
// reaches interpreter-spawned descendants too.
// sysProcAttr 将 worker 放入独立的进程组，
// 使强制终止也能波及解释器派生的后代进程。
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// killTree kills the worker's whole process group
// killTree 终止 worker 的整个进程组
func killTree(pid int) error {
	pgid, err := unix.Getpgid(pid)
	if err != nil {
		// Process already gone; nothing to kill
		// 进程已消失；无可终止的目标
		return nil
	}
	return unix.Kill(-pgid, unix.SIGKILL)
}
