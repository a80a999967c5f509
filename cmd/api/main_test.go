package main

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telivi-ai/knowledge-assistant/internal/handler"
	"github.com/telivi-ai/knowledge-assistant/internal/llm"
	"github.com/telivi-ai/knowledge-assistant/internal/service"
)

func TestShutdownEndsEventStreams(t *testing.T) {
	workspaces := service.NewWorkspaces(service.WorkspaceConfig{Responder: llm.NewKnowledgeBaseResponder()})
	srv := httptest.NewUnstartedServer(handler.NewRouter(handler.RouterConfig{
		Workspaces: workspaces,
		Directory:  service.NewDirectory(),
		Analytics:  service.NewAnalytics(),
		Heartbeat:  time.Hour,
	}))
	closed := closeOnShutdown(srv.Config, workspaces)
	srv.Start()
	t.Cleanup(srv.Close)

	resp, err := srv.Client().Get(srv.URL + "/api/v1/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	r := bufio.NewReader(resp.Body)
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "event: connected") {
			break
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	require.NoError(t, srv.Config.Shutdown(ctx))
	assert.Less(t, time.Since(start), 5*time.Second, "open streams must not hold shutdown")

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("workspaces were not closed")
	}
}
