package web

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"match-detail-service/models"
)

func getDetail(t *testing.T, baseURL, path string) models.MatchDetail {
	t.Helper()

	resp, err := http.Get(baseURL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var detail models.MatchDetail
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&detail))
	return detail
}

func readMessage(t *testing.T, conn *websocket.Conn) models.BroadcastMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg models.BroadcastMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestEndToEnd_PostEventReachesWebSocketSubscriber(t *testing.T) {
	server, _ := newTestServer(t)
	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/matches/M1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// 连接后先收到 connected 和 snapshot
	msg := readMessage(t, conn)
	assert.Equal(t, models.MessageConnected, msg.Type)
	msg = readMessage(t, conn)
	assert.Equal(t, models.MessageSnapshot, msg.Type)
	assert.Equal(t, "M1", msg.MatchID)

	// 写入一条事件
	body := bytes.NewReader([]byte(`{"minute":10,"type":"goal","teamId":"T1"}`))
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/match-details/M1/events", body)
	require.NoError(t, err)
	req.Header.Set("x-api-key", "test-key")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Event
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.True(t, strings.HasPrefix(created.ID, "EVT_"))
	assert.Equal(t, "M1", created.MatchID)

	// 订阅者收到 event.created
	msg = readMessage(t, conn)
	assert.Equal(t, models.MessageEventCreated, msg.Type)
	assert.Equal(t, "M1", msg.MatchID)

	payload, err := json.Marshal(msg.Payload)
	require.NoError(t, err)
	var broadcast models.Event
	require.NoError(t, json.Unmarshal(payload, &broadcast))
	assert.Equal(t, 10, broadcast.Minute)
	assert.Equal(t, created.ID, broadcast.ID)

	// 后续读取包含该事件
	detail := getDetail(t, ts.URL, "/api/v1/match-details/M1")
	require.Len(t, detail.Events, 1)
	assert.Equal(t, created.ID, detail.Events[0].ID)
}

func TestWebSocket_SnapshotPrecedesConcurrentBroadcasts(t *testing.T) {
	server, _ := newTestServer(t)
	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	// 连接期间持续广播，增量不得插到 connected/snapshot 前面
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				server.hub.Broadcast(models.BroadcastMessage{Type: models.MessageEventCreated, MatchID: "M1"})
				time.Sleep(time.Millisecond)
			}
		}
	}()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/matches/M1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readMessage(t, conn)
	second := readMessage(t, conn)
	close(stop)
	wg.Wait()

	assert.Equal(t, models.MessageConnected, first.Type)
	assert.Equal(t, models.MessageSnapshot, second.Type)
}

func TestWriteWithoutAuth_LeavesStoreUntouched(t *testing.T) {
	server, _ := newTestServer(t)
	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	resp := patchMeta(t, ts.URL, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// 状态保持基线，未被写入
	detail := getDetail(t, ts.URL, "/api/v1/match-details/M1")
	assert.Equal(t, models.StatusScheduled, detail.Match.Status)
}

func TestMetaMergeOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)
	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	resp := patchMeta(t, ts.URL, map[string]string{"x-api-key": "test-key"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// 第二次只更新 minute，status 必须保留
	req, err := http.NewRequest(http.MethodPatch, ts.URL+"/api/v1/match-details/M1/meta", strings.NewReader(`{"minute":5}`))
	require.NoError(t, err)
	req.Header.Set("x-api-key", "test-key")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	detail := getDetail(t, ts.URL, "/api/v1/match-details/M1")
	assert.Equal(t, models.StatusLive, detail.Match.Status)
	require.NotNil(t, detail.Match.Minute)
	assert.Equal(t, 5, *detail.Match.Minute)
}

func TestGetDetail_LegacyAlias(t *testing.T) {
	server, _ := newTestServer(t)
	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	detail := getDetail(t, ts.URL, "/api/v1/matches/M9/details")
	assert.Equal(t, "M9", detail.Match.ID)
	assert.Equal(t, models.StatusScheduled, detail.Match.Status)
}

func TestReplaceLineupsAndStatsOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)
	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	lineups := `{"home":[{"playerId":"P1","name":"Alice"}],"away":[]}`
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/v1/match-details/M1/lineups", strings.NewReader(lineups))
	require.NoError(t, err)
	req.Header.Set("x-api-key", "test-key")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stats := `{"home":{"score":2},"away":{"score":0}}`
	req, err = http.NewRequest(http.MethodPut, ts.URL+"/api/v1/match-details/M1/stats", strings.NewReader(stats))
	require.NoError(t, err)
	req.Header.Set("x-api-key", "test-key")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	detail := getDetail(t, ts.URL, "/api/v1/match-details/M1")
	require.Len(t, detail.Lineups.Home, 1)
	assert.Equal(t, "P1", detail.Lineups.Home[0].PlayerID)
	assert.Equal(t, 2, detail.Stats.Home.Score)
}

func TestInvalidEventRejectedBeforeMutation(t *testing.T) {
	server, _ := newTestServer(t)
	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/match-details/M1/events", strings.NewReader(`{"minute":-1,"type":"goal"}`))
	require.NoError(t, err)
	req.Header.Set("x-api-key", "test-key")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	detail := getDetail(t, ts.URL, "/api/v1/match-details/M1")
	assert.Empty(t, detail.Events)
}

func TestSSE_SnapshotSentFirst(t *testing.T) {
	server, _ := newTestServer(t)
	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/sse/matches/M1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "data: "))

	var msg models.BroadcastMessage
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &msg))
	assert.Equal(t, models.MessageSnapshot, msg.Type)
	assert.Equal(t, "M1", msg.MatchID)
}
