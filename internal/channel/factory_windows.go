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

//go:build windows

package channel

import "os"

// Windows named pipes are not wired up; every allocation reports
// ErrUnsupportedPlatform so the supervisor aborts before spawning.
// Windows 命名管道尚未接入；所有分配都报告 ErrUnsupportedPlatform，
// 使主管进程在 spawn 之前中止。

func (f *Factory) Create(pid int, salt string, direction Direction) (*Endpoint, error) {
	return nil, ErrUnsupportedPlatform
}

func (e *Endpoint) OpenReader() (*os.File, error) {
	return nil, ErrUnsupportedPlatform
}

func (e *Endpoint) OpenWriter() (*os.File, error) {
	return nil, ErrUnsupportedPlatform
}

func (e *Endpoint) ProbeWriter() (*os.File, error) {
	return nil, ErrUnsupportedPlatform
}
