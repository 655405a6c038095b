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
	"bytes"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// TestOutputRelayPreservesOrder verifies bytes arrive verbatim and in the
// worker's write order.
// TestOutputRelayPreservesOrder 验证字节按 worker 的写入顺序逐字到达。
func TestOutputRelayPreservesOrder(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)

	var dst bytes.Buffer
	relay := NewOutputRelay(r, &dst, zaptest.NewLogger(t))

	done := make(chan error, 1)
	go func() { done <- relay.Run() }()

	var want strings.Builder
	for i := 0; i < 500; i++ {
		chunk := fmt.Sprintf("line-%04d\n", i)
		want.WriteString(chunk)
		_, err := w.WriteString(chunk)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	require.NoError(t, <-done)
	assert.Equal(t, want.String(), dst.String())
	r.Close()
}

// TestOutputRelayForwardsPartialReads verifies chunks larger than the fixed
// buffer are still delivered completely and in order.
// TestOutputRelayForwardsPartialReads 验证大于固定缓冲区的块
// 仍然完整、按序送达。
func TestOutputRelayForwardsPartialReads(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)

	payload := bytes.Repeat([]byte("abcdefgh"), DefaultBufferSize) // 8x buffer
	var dst bytes.Buffer
	relay := NewOutputRelay(r, &dst, zaptest.NewLogger(t))

	done := make(chan error, 1)
	go func() { done <- relay.Run() }()

	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoError(t, <-done)
	assert.Equal(t, payload, dst.Bytes())
	r.Close()
}

// TestOutputRelayStopsOnEOF verifies the relay returns nil at end of stream
// TestOutputRelayStopsOnEOF 验证 relay 在流结束时返回 nil
func TestOutputRelayStopsOnEOF(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	require.NoError(t, w.Close())

	relay := NewOutputRelay(r, &bytes.Buffer{}, zaptest.NewLogger(t))
	assert.NoError(t, relay.Run())
	r.Close()
}

// TestOutputRelayDestinationError verifies a terminal write error surfaces
// TestOutputRelayDestinationError 验证终端写入错误会被上报
func TestOutputRelayDestinationError(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)

	relay := NewOutputRelay(r, failingWriter{}, zaptest.NewLogger(t))

	done := make(chan error, 1)
	go func() { done <- relay.Run() }()

	_, err = w.WriteString("boom\n")
	require.NoError(t, err)
	w.Close()

	assert.Error(t, <-done)
	r.Close()
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, fmt.Errorf("terminal gone")
}
