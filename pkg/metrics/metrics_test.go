// Copyright 2026 anomie project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0cole/anomie/pkg/analysis"
)

func TestListenAndServeExposesMetrics(t *testing.T) {
	s, err := Listen("127.0.0.1:0")
	require.NoError(t, err)

	addr := s.listener.Addr().String()
	go s.Serve()
	defer s.Shutdown(context.Background())

	s.Publish(analysis.Stats{Sigsegv: 3, Total: 3}, nil)

	var resp *http.Response
	for i := 0; i < 20; i++ {
		resp, err = http.Get(fmt.Sprintf("http://%s/metrics", addr))
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "anomie_sigsegv_total 3")
}

func TestListenRejectsOccupiedAddress(t *testing.T) {
	first, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer first.listener.Close()

	_, err = Listen(first.listener.Addr().String())
	assert.Error(t, err)
}
