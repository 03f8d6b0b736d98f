package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flutterctl/internal/domain"
	"flutterctl/internal/infra/snapshot"
)

type recordedCall struct {
	method string
	params map[string]any
}

type fakeConn struct {
	results map[string]json.RawMessage
	errs    map[string]error
	calls   []recordedCall
	closed  int
	ping    bool
	block   bool
}

func (c *fakeConn) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	p, _ := params.(map[string]any)
	c.calls = append(c.calls, recordedCall{method: method, params: p})
	if c.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err, ok := c.errs[method]; ok {
		return nil, err
	}
	if raw, ok := c.results[method]; ok {
		return raw, nil
	}
	return json.RawMessage(`{}`), nil
}

func (c *fakeConn) Notifications() <-chan domain.Notification { return nil }
func (c *fakeConn) Ping(context.Context) bool                 { return c.ping }
func (c *fakeConn) Close() error                              { c.closed++; return nil }

func (c *fakeConn) methodCalls(method string) []recordedCall {
	var out []recordedCall
	for _, call := range c.calls {
		if call.method == method {
			out = append(out, call)
		}
	}
	return out
}

type fakeConnector struct {
	conn       *fakeConn
	ensureErr  error
	record     *domain.ProcessRecord
	alive      bool
	machineErr error
	machine    []recordedCall
	stopped    []string
}

func (f *fakeConnector) EnsureConnection(_ context.Context, _, explicitURL string) (*domain.Session, error) {
	if f.ensureErr != nil {
		return nil, f.ensureErr
	}
	state := domain.StateConnectedManaged
	if explicitURL != "" {
		state = domain.StateConnectedExternal
	}
	return &domain.Session{Conn: f.conn, State: state, Record: f.record}, nil
}

func (f *fakeConnector) Stop(_ context.Context, projectDir string) (*domain.ProcessRecord, error) {
	f.stopped = append(f.stopped, projectDir)
	return f.record, nil
}

func (f *fakeConnector) SendMachineCommand(_, method string, params map[string]any) error {
	if f.machineErr != nil {
		return f.machineErr
	}
	f.machine = append(f.machine, recordedCall{method: method, params: params})
	return nil
}

func (f *fakeConnector) RecordFor(string) (*domain.ProcessRecord, bool) {
	return f.record, f.alive
}

type fakeFinder struct {
	iso domain.Isolate
	err error
}

func (f *fakeFinder) Find(context.Context, domain.Conn) (domain.Isolate, error) {
	return f.iso, f.err
}

func newTestService(conn *fakeConn, connector *fakeConnector, dial Dialer) *Service {
	if connector == nil {
		connector = &fakeConnector{conn: conn}
	}
	finder := &fakeFinder{iso: domain.Isolate{ID: "isolates/1", Name: "main", HasFlutterExtensions: true}}
	return NewService(connector, finder, dial, zap.NewNop())
}

func summaryTree(t *testing.T) json.RawMessage {
	t.Helper()
	tree := map[string]any{
		"description":       "MyApp",
		"widgetRuntimeType": "MyApp",
		"valueId":           "inspector-0",
		"children": []any{
			map[string]any{
				"description":       `Text "Hello"`,
				"widgetRuntimeType": "Text",
				"valueId":           "inspector-1",
			},
		},
	}
	raw, err := json.Marshal(tree)
	require.NoError(t, err)
	return raw
}

func TestSnapshotRendersAndDisposesGroup(t *testing.T) {
	conn := &fakeConn{results: map[string]json.RawMessage{
		"ext.flutter.inspector.getRootWidgetSummaryTree": summaryTree(t),
	}}
	svc := newTestService(conn, nil, nil)

	out, err := svc.Snapshot(context.Background(), "/proj", "", snapshot.Options{})
	require.NoError(t, err)
	require.Contains(t, out, "MyApp")
	require.Contains(t, out, `Text "Hello"`)

	fetches := conn.methodCalls("ext.flutter.inspector.getRootWidgetSummaryTree")
	require.Len(t, fetches, 1)
	group := fetches[0].params["objectGroup"].(string)
	require.Contains(t, group, "flutterctl-snapshot-")

	disposes := conn.methodCalls("ext.flutter.inspector.disposeGroup")
	require.Len(t, disposes, 1)
	require.Equal(t, group, disposes[0].params["objectGroup"])
	require.Equal(t, 1, conn.closed)
}

func TestSnapshotDisposeFailureIsNotFatal(t *testing.T) {
	conn := &fakeConn{
		results: map[string]json.RawMessage{
			"ext.flutter.inspector.getRootWidgetSummaryTree": summaryTree(t),
		},
		errs: map[string]error{
			"ext.flutter.inspector.disposeGroup": errors.New("gone"),
		},
	}
	svc := newTestService(conn, nil, nil)

	out, err := svc.Snapshot(context.Background(), "/proj", "", snapshot.Options{})
	require.NoError(t, err)
	require.Contains(t, out, "MyApp")
}

func TestSnapshotRejectsNegativeDepth(t *testing.T) {
	svc := newTestService(&fakeConn{}, nil, nil)

	depth := -1
	_, err := svc.Snapshot(context.Background(), "/proj", "", snapshot.Options{MaxDepth: &depth})
	code, ok := domain.CodeFrom(err)
	require.True(t, ok)
	require.Equal(t, domain.CodeInvalidArgument, code)
}

func TestDetailsRejectsNegativeDepth(t *testing.T) {
	svc := newTestService(&fakeConn{}, nil, nil)

	_, err := svc.Details(context.Background(), "/proj", "", "inspector-1", -1)
	code, ok := domain.CodeFrom(err)
	require.True(t, ok)
	require.Equal(t, domain.CodeInvalidArgument, code)
}

func TestUnresponsiveAppCannotHangCommands(t *testing.T) {
	conn := &fakeConn{block: true}
	svc := newTestService(conn, nil, nil)
	svc.callTimeout = 50 * time.Millisecond

	start := time.Now()
	_, err := svc.Snapshot(context.Background(), "/proj", "", snapshot.Options{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestSnapshotConnectionFailureSurfaces(t *testing.T) {
	connector := &fakeConnector{ensureErr: domain.ErrConnectFailed}
	svc := newTestService(nil, connector, nil)

	_, err := svc.Snapshot(context.Background(), "/proj", "", snapshot.Options{})
	require.ErrorIs(t, err, domain.ErrConnectFailed)
}

func TestTextDumpDecodesDataField(t *testing.T) {
	conn := &fakeConn{results: map[string]json.RawMessage{
		"ext.flutter.debugDumpRenderTree": json.RawMessage(`{"data":"RenderView#1\n"}`),
	}}
	svc := newTestService(conn, nil, nil)

	out, err := svc.DumpRender(context.Background(), "/proj", "")
	require.NoError(t, err)
	require.Equal(t, "RenderView#1\n", out)
}

func TestReloadUsesMachineChannelWhenManaged(t *testing.T) {
	connector := &fakeConnector{
		record: &domain.ProcessRecord{PID: 42, AppID: "app-1"},
		alive:  true,
	}
	svc := newTestService(nil, connector, nil)

	require.NoError(t, svc.Reload(context.Background(), "/proj", ""))
	require.Len(t, connector.machine, 1)
	require.Equal(t, "app.restart", connector.machine[0].method)
	require.Equal(t, false, connector.machine[0].params["fullRestart"])
	require.Equal(t, "app-1", connector.machine[0].params["appId"])
}

func TestReloadFallsBackToReassemble(t *testing.T) {
	conn := &fakeConn{}
	connector := &fakeConnector{conn: conn, machineErr: domain.ErrNotManaged}
	svc := newTestService(conn, connector, nil)

	require.NoError(t, svc.Reload(context.Background(), "/proj", ""))
	require.Len(t, conn.methodCalls("ext.flutter.reassemble"), 1)
}

func TestReloadWithExplicitURLSkipsMachineChannel(t *testing.T) {
	conn := &fakeConn{}
	connector := &fakeConnector{
		conn:   conn,
		record: &domain.ProcessRecord{PID: 42, AppID: "app-1"},
		alive:  true,
	}
	svc := newTestService(conn, connector, nil)

	require.NoError(t, svc.Reload(context.Background(), "/proj", "ws://127.0.0.1:9999/ws"))
	require.Empty(t, connector.machine)
	require.Len(t, conn.methodCalls("ext.flutter.reassemble"), 1)
}

func TestRestartRequiresManagedProcess(t *testing.T) {
	svc := newTestService(nil, &fakeConnector{}, nil)

	err := svc.Restart(context.Background(), "/proj", "")
	require.ErrorIs(t, err, domain.ErrNotManaged)

	err = svc.Restart(context.Background(), "/proj", "ws://127.0.0.1:9999/ws")
	require.ErrorIs(t, err, domain.ErrNotManaged)
}

func TestRestartSendsFullRestart(t *testing.T) {
	connector := &fakeConnector{
		record: &domain.ProcessRecord{PID: 42, AppID: "app-1"},
		alive:  true,
	}
	svc := newTestService(nil, connector, nil)

	require.NoError(t, svc.Restart(context.Background(), "/proj", ""))
	require.Len(t, connector.machine, 1)
	require.Equal(t, true, connector.machine[0].params["fullRestart"])
}

func TestStatusWithoutRecord(t *testing.T) {
	svc := newTestService(nil, &fakeConnector{}, nil)

	status := svc.Status(context.Background(), "/proj", "")
	require.False(t, status.Managed)
	require.False(t, status.Reachable)
}

func TestStatusProbesLiveRecord(t *testing.T) {
	probe := &fakeConn{ping: true}
	dial := func(context.Context, string) (domain.Conn, error) { return probe, nil }
	connector := &fakeConnector{
		record: &domain.ProcessRecord{
			PID:        42,
			AppID:      "app-1",
			ServiceURL: "ws://127.0.0.1:50300/abc=/ws",
			LogPath:    "/tmp/x.stderr",
		},
		alive: true,
	}
	svc := newTestService(nil, connector, dial)

	status := svc.Status(context.Background(), "/proj", "")
	require.True(t, status.Managed)
	require.True(t, status.PIDAlive)
	require.True(t, status.Reachable)
	require.Equal(t, 42, status.PID)
	require.Equal(t, 1, probe.closed)
}

func TestStatusDeadPIDSkipsProbe(t *testing.T) {
	dial := func(context.Context, string) (domain.Conn, error) {
		return nil, fmt.Errorf("dial should not run for a dead pid")
	}
	connector := &fakeConnector{
		record: &domain.ProcessRecord{PID: 42, ServiceURL: "ws://127.0.0.1:1/ws"},
		alive:  false,
	}
	svc := newTestService(nil, connector, dial)

	status := svc.Status(context.Background(), "/proj", "")
	require.True(t, status.Managed)
	require.False(t, status.PIDAlive)
	require.False(t, status.Reachable)
}

func TestStatusExplicitURL(t *testing.T) {
	probe := &fakeConn{ping: true}
	dial := func(context.Context, string) (domain.Conn, error) { return probe, nil }
	svc := newTestService(nil, &fakeConnector{}, dial)

	status := svc.Status(context.Background(), "/proj", "ws://127.0.0.1:1234/ws")
	require.False(t, status.Managed)
	require.True(t, status.Reachable)
	require.Equal(t, "ws://127.0.0.1:1234/ws", status.URL)
}

func TestStopDelegatesToConnector(t *testing.T) {
	connector := &fakeConnector{record: &domain.ProcessRecord{PID: 42}}
	svc := newTestService(nil, connector, nil)

	record, err := svc.Stop(context.Background(), "/proj")
	require.NoError(t, err)
	require.Equal(t, 42, record.PID)
	require.Equal(t, []string{"/proj"}, connector.stopped)
}
