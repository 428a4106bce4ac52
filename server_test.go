package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"i4.energy/across/sbdgw/imt"
	"i4.energy/across/sbdgw/jspr"
	"i4.energy/across/sbdgw/modem"
)

const (
	frameAPIActive    = `200 apiVersion {"supported_versions":[{"major":1,"minor":2,"patch":0}],"active_version":{"major":1,"minor":2,"patch":0}}`
	frameSIMInternal  = `200 simConfig {"interface":"internal"}`
	frameActive       = `200 operationalState {"state":"active","reason":0}`
	frameProvisioning = `200 messageProvisioning {"provisioning":[{"topic_id":244,"topic_name":"RAW"}]}`
	frameAccepted4    = `200 messageOriginate {"topic_id":244,"request_reference":1,"message_id":4,"message_response":"message_accepted"}`
	frameMOAcked4     = `299 messageOriginateStatus {"topic_id":244,"message_id":4,"final_mo_status":"mo_ack_received"}`
	frameMTStart7     = `299 messageTerminate {"topic_id":244,"message_id":7,"message_length_max":100002}`
	frameMTSegment7   = `299 messageTerminateSegment {"topic_id":244,"message_id":7,"segment_length":7,"segment_start":0,"data":"aGVsbG/DYg=="}`
	frameMTDone7      = `299 messageTerminateStatus {"topic_id":244,"message_id":7,"final_mt_status":"complete"}`
)

type completion struct {
	id     uint8
	status modem.MessageStatus
}

// startServer opens a session on tt, runs the modem loop and returns a
// Server for it. A nil tt leaves the session closed.
func startServer(t *testing.T, tt *modem.TestTransport, cb modem.Callbacks) *Server {
	t.Helper()

	open := tt != nil
	if !open {
		tt = modem.NewTestTransport()
	}
	tt.Reply("GET apiVersion {}", frameAPIActive).
		Reply("GET simConfig {}", frameSIMInternal).
		Reply("GET operationalState {}", frameActive)

	config, err := modem.NewConfigBuilder().
		WithDialer(modem.TestDialer{Transport: tt}).
		WithPollInterval(time.Millisecond).
		WithCommandTimeout(100 * time.Millisecond).
		WithCallbacks(cb).
		Build()
	require.NoError(t, err)
	m, err := modem.New(config)
	require.NoError(t, err)

	if open {
		require.NoError(t, m.Begin(context.Background()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Loop(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = m.End()
	})

	return NewServer(slog.New(slog.DiscardHandler), m)
}

func serve(s *Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func originate(n int) string {
	cmd := jspr.PutMessageOriginate(modem.TopicRaw, n+imt.CRCSize, 1)
	return strings.TrimSuffix(cmd, "\r")
}

func TestServer_Send(t *testing.T) {
	results := make(chan completion, 1)
	tt := modem.NewTestTransport().
		Reply("GET messageProvisioning {}", frameProvisioning).
		Reply(originate(3), frameAccepted4)
	s := startServer(t, tt, modem.Callbacks{
		MOComplete: func(id uint8, status modem.MessageStatus) {
			results <- completion{id, status}
		},
	})

	rec := serve(s, http.MethodPost, "/messages", `{"message":"one"}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"queued":1}`, rec.Body.String())
	assert.True(t, slices.Contains(tt.Written(), originate(3)), "message was not started: %q", tt.Written())

	tt.Push(frameMOAcked4)
	select {
	case c := <-results:
		assert.Equal(t, completion{4, modem.StatusOK}, c)
	case <-time.After(time.Second):
		t.Fatal("no completion reported")
	}
}

func TestServer_SendBadRequest(t *testing.T) {
	tt := modem.NewTestTransport().
		Reply("GET messageProvisioning {}", frameProvisioning)
	s := startServer(t, tt, modem.Callbacks{})

	tests := []struct {
		name string
		body string
	}{
		{"InvalidJSON", `{"message":`},
		{"Empty", `{"topic":244}`},
		{"BadBase64", `{"data":"not base64!"}`},
		{"UnprovisionedTopic", `{"topic":300,"message":"x"}`},
		{"ReservedTopic", `{"topic":12,"message":"x"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(s, http.MethodPost, "/messages", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp struct {
				Message string `json:"message"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestServer_Receive(t *testing.T) {
	tt := modem.NewTestTransport()
	s := startServer(t, tt, modem.Callbacks{})

	rec := serve(s, http.MethodGet, "/messages", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	tt.Push(frameMTStart7, frameMTSegment7, frameMTDone7)

	var got *httptest.ResponseRecorder
	require.Eventually(t, func() bool {
		got = serve(s, http.MethodGet, "/messages", "")
		return got.Code == http.StatusOK
	}, time.Second, 5*time.Millisecond)
	assert.JSONEq(t, `{"id":7,"topic":244,"data":"aGVsbG8=","message":"hello"}`, got.Body.String())

	rec = serve(s, http.MethodGet, "/messages", "")
	assert.Equal(t, http.StatusNoContent, rec.Code, "message must be acknowledged on read")
}

func TestServer_Signal(t *testing.T) {
	tt := modem.NewTestTransport().
		Reply("GET constellationState {}", `200 constellationState {"constellation_visible":true,"signal_bars":4}`)
	s := startServer(t, tt, modem.Callbacks{})

	rec := serve(s, http.MethodGet, "/signal", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"bars":4}`, rec.Body.String())
}

func TestServer_SignalFromModemReport(t *testing.T) {
	reported := make(chan struct{}, 1)
	tt := modem.NewTestTransport()
	s := startServer(t, tt, modem.Callbacks{
		ConstellationState: func(jspr.ConstellationState) {
			reported <- struct{}{}
		},
	})

	tt.Push(`299 constellationState {"constellation_visible":true,"signal_bars":2}`)
	select {
	case <-reported:
	case <-time.After(time.Second):
		t.Fatal("signal report was not polled")
	}

	rec := serve(s, http.MethodGet, "/signal", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"bars":2}`, rec.Body.String())
	assert.Zero(t, count(tt.Written(), "GET constellationState {}"), "the modem must not be asked again")
}

func count(written []string, cmd string) int {
	n := 0
	for _, w := range written {
		if w == cmd {
			n++
		}
	}
	return n
}

func TestServer_Status(t *testing.T) {
	t.Run("Open", func(t *testing.T) {
		tt := modem.NewTestTransport().
			Reply("GET hwInfo {}",
				`200 hwInfo {"hw_version":"v1.0","serial_number":"R9704-0042","imei":"300434061234560","board_temp":27}`)
		s := startServer(t, tt, modem.Callbacks{})

		rec := serve(s, http.MethodGet, "/status", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{
			"state": "open",
			"queues": {"outgoing":0,"incoming":0,"outgoing_locked":false,"incoming_locked":false},
			"hardware": {"hw_version":"v1.0","serial_number":"R9704-0042","imei":"300434061234560","board_temp":27}
		}`, rec.Body.String())
	})

	t.Run("HardwareReadOnce", func(t *testing.T) {
		tt := modem.NewTestTransport().
			Reply("GET hwInfo {}",
				`200 hwInfo {"hw_version":"v1.0","serial_number":"R9704-0042","imei":"300434061234560","board_temp":27}`)
		s := startServer(t, tt, modem.Callbacks{})

		for range 3 {
			rec := serve(s, http.MethodGet, "/status", "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp StatusResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.NotNil(t, resp.Hardware)
			assert.Equal(t, "R9704-0042", resp.Hardware.SerialNumber)
		}
		assert.Equal(t, 1, count(tt.Written(), "GET hwInfo {}"))
	})

	t.Run("Closed", func(t *testing.T) {
		s := startServer(t, nil, modem.Callbacks{})

		rec := serve(s, http.MethodGet, "/status", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp StatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, modem.StateClosed, resp.State)
		assert.Nil(t, resp.Hardware)
	})
}

func TestServer_NotOpen(t *testing.T) {
	s := startServer(t, nil, modem.Callbacks{})

	rec := serve(s, http.MethodGet, "/signal", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(s, http.MethodPost, "/messages", `{"message":"x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
