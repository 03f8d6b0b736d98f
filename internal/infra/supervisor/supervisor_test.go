package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"flutterctl/internal/domain"
	"flutterctl/internal/infra/statestore"
)

type fakeConn struct {
	pingOK bool
	closed bool
}

func (c *fakeConn) Call(context.Context, string, any) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}
func (c *fakeConn) Notifications() <-chan domain.Notification { return nil }
func (c *fakeConn) Ping(context.Context) bool                 { return c.pingOK }
func (c *fakeConn) Close() error                              { c.closed = true; return nil }

type fakeStore struct {
	records map[string]*domain.ProcessRecord
	saves   int
	clears  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]*domain.ProcessRecord{}}
}

func (s *fakeStore) Load(hash string) (*domain.ProcessRecord, error) {
	return s.records[hash], nil
}

func (s *fakeStore) Save(record *domain.ProcessRecord) error {
	s.saves++
	s.records[record.ProjectHash] = record
	return nil
}

func (s *fakeStore) Clear(hash string) error {
	s.clears++
	delete(s.records, hash)
	return nil
}

type fakeLauncher struct {
	record   *domain.ProcessRecord
	err      error
	launches int
}

func (l *fakeLauncher) Launch(context.Context, string) (*domain.ProcessRecord, error) {
	l.launches++
	if l.err != nil {
		return nil, l.err
	}
	rec := *l.record
	return &rec, nil
}

type harness struct {
	sup        *Supervisor
	store      *fakeStore
	launcher   *fakeLauncher
	dialErrs   map[string]error
	conns      map[string]*fakeConn
	alivePIDs  map[int]bool
	terminated []int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:     newFakeStore(),
		launcher:  &fakeLauncher{},
		dialErrs:  map[string]error{},
		conns:     map[string]*fakeConn{},
		alivePIDs: map[int]bool{},
	}
	h.sup = New(Config{
		Store: h.store,
		Dial: func(_ context.Context, url string) (domain.Conn, error) {
			if err := h.dialErrs[url]; err != nil {
				return nil, err
			}
			conn, ok := h.conns[url]
			if !ok {
				return nil, fmt.Errorf("%w: %s", domain.ErrConnectFailed, url)
			}
			return conn, nil
		},
		Launcher: h.launcher,
		Logger:   zap.NewNop(),
	})
	h.sup.alive = func(pid int) bool { return h.alivePIDs[pid] }
	h.sup.terminate = func(pid int, _ time.Duration) {
		h.terminated = append(h.terminated, pid)
		h.alivePIDs[pid] = false
	}
	return h
}

func TestExplicitURLConnectsExternal(t *testing.T) {
	h := newHarness(t)
	h.conns["ws://external/ws"] = &fakeConn{pingOK: true}

	session, err := h.sup.EnsureConnection(context.Background(), "/proj", "ws://external/ws")
	require.NoError(t, err)
	require.Equal(t, domain.StateConnectedExternal, session.State)
	require.False(t, session.Managed())
	require.Zero(t, h.store.saves, "external connections never touch the store")
	require.Zero(t, h.launcher.launches)
}

func TestExplicitURLFailureIsFatal(t *testing.T) {
	h := newHarness(t)

	_, err := h.sup.EnsureConnection(context.Background(), "/proj", "ws://nowhere/ws")
	require.ErrorIs(t, err, domain.ErrConnectFailed)
	require.Zero(t, h.launcher.launches, "explicit url failure must not trigger a spawn")
}

func TestNoRecordSpawnsAndPersists(t *testing.T) {
	h := newHarness(t)
	h.launcher.record = &domain.ProcessRecord{ServiceURL: "ws://fresh/ws", PID: 100}
	h.conns["ws://fresh/ws"] = &fakeConn{pingOK: true}

	session, err := h.sup.EnsureConnection(context.Background(), "/proj", "")
	require.NoError(t, err)
	require.Equal(t, domain.StateConnectedManaged, session.State)
	require.True(t, session.Managed())
	require.Equal(t, 1, h.launcher.launches)
	require.Equal(t, 1, h.store.saves)

	hash := statestore.ProjectHash("/proj")
	require.Equal(t, hash, session.Record.ProjectHash)
	saved := h.store.records[hash]
	require.NotNil(t, saved)
	require.Equal(t, "ws://fresh/ws", saved.ServiceURL)
	require.Equal(t, 100, saved.PID)
}

func TestRecordedReachableIsReused(t *testing.T) {
	h := newHarness(t)
	hash := statestore.ProjectHash("/proj")
	h.store.records[hash] = &domain.ProcessRecord{ProjectHash: hash, ServiceURL: "ws://old/ws", PID: 42}
	h.alivePIDs[42] = true
	h.conns["ws://old/ws"] = &fakeConn{pingOK: true}

	session, err := h.sup.EnsureConnection(context.Background(), "/proj", "")
	require.NoError(t, err)
	require.Equal(t, domain.StateConnectedManaged, session.State)
	require.Equal(t, 42, session.Record.PID)
	require.Zero(t, h.launcher.launches)
	require.Empty(t, h.terminated)
}

func TestRecordedDeadPidSpawnsWithoutTerminating(t *testing.T) {
	h := newHarness(t)
	hash := statestore.ProjectHash("/proj")
	h.store.records[hash] = &domain.ProcessRecord{ProjectHash: hash, ServiceURL: "ws://stale/ws", PID: 42}
	// pid 42 not alive, url unreachable
	h.launcher.record = &domain.ProcessRecord{ServiceURL: "ws://fresh/ws", PID: 101}
	h.conns["ws://fresh/ws"] = &fakeConn{pingOK: true}

	session, err := h.sup.EnsureConnection(context.Background(), "/proj", "")
	require.NoError(t, err)
	require.Equal(t, domain.StateConnectedManaged, session.State)
	require.Equal(t, 1, h.launcher.launches)
	require.Empty(t, h.terminated, "a dead pid must not be signalled")
	require.Equal(t, 1, h.store.clears)
}

func TestHungProcessIsStoppedBeforeRespawn(t *testing.T) {
	h := newHarness(t)
	hash := statestore.ProjectHash("/proj")
	h.store.records[hash] = &domain.ProcessRecord{ProjectHash: hash, ServiceURL: "ws://hung/ws", PID: 77}
	h.alivePIDs[77] = true
	// url unreachable while pid is alive: hung process
	h.launcher.record = &domain.ProcessRecord{ServiceURL: "ws://fresh/ws", PID: 102}
	h.conns["ws://fresh/ws"] = &fakeConn{pingOK: true}

	session, err := h.sup.EnsureConnection(context.Background(), "/proj", "")
	require.NoError(t, err)
	require.Equal(t, []int{77}, h.terminated)
	require.Equal(t, 1, h.launcher.launches)
	require.Equal(t, 102, session.Record.PID)
}

func TestRecordedURLConnectsButPingFails(t *testing.T) {
	h := newHarness(t)
	hash := statestore.ProjectHash("/proj")
	h.store.records[hash] = &domain.ProcessRecord{ProjectHash: hash, ServiceURL: "ws://zombie/ws", PID: 88}
	h.alivePIDs[88] = true
	stale := &fakeConn{pingOK: false}
	h.conns["ws://zombie/ws"] = stale
	h.launcher.record = &domain.ProcessRecord{ServiceURL: "ws://fresh/ws", PID: 103}
	h.conns["ws://fresh/ws"] = &fakeConn{pingOK: true}

	session, err := h.sup.EnsureConnection(context.Background(), "/proj", "")
	require.NoError(t, err)
	require.True(t, stale.closed, "failed probe connection must be closed")
	require.Equal(t, []int{88}, h.terminated)
	require.Equal(t, 103, session.Record.PID)
}

func TestLaunchFailureSurfaces(t *testing.T) {
	h := newHarness(t)
	h.launcher.err = fmt.Errorf("%w: no device (stderr log: /tmp/x.stderr)", domain.ErrProcessStartFailed)

	_, err := h.sup.EnsureConnection(context.Background(), "/proj", "")
	require.ErrorIs(t, err, domain.ErrProcessStartFailed)
	require.Contains(t, err.Error(), "/tmp/x.stderr")
}

func TestStopClearsRecordOnlyAfterTermination(t *testing.T) {
	h := newHarness(t)
	hash := statestore.ProjectHash("/proj")
	h.store.records[hash] = &domain.ProcessRecord{ProjectHash: hash, ServiceURL: "ws://old/ws", PID: 55}
	h.alivePIDs[55] = true

	record, err := h.sup.Stop(context.Background(), "/proj")
	require.NoError(t, err)
	require.Equal(t, 55, record.PID)
	require.Equal(t, []int{55}, h.terminated)
	require.Equal(t, 1, h.store.clears)
	require.Nil(t, h.store.records[hash])
}

func TestStopWithoutRecordIsNoop(t *testing.T) {
	h := newHarness(t)

	record, err := h.sup.Stop(context.Background(), "/proj")
	require.NoError(t, err)
	require.Nil(t, record)
	require.Zero(t, h.store.clears)
}

func TestStopKeepsRecordWhenProcessSurvives(t *testing.T) {
	h := newHarness(t)
	hash := statestore.ProjectHash("/proj")
	h.store.records[hash] = &domain.ProcessRecord{ProjectHash: hash, PID: 66}
	h.alivePIDs[66] = true
	h.sup.terminate = func(pid int, _ time.Duration) {
		h.terminated = append(h.terminated, pid)
		// process refuses to die
	}

	_, err := h.sup.Stop(context.Background(), "/proj")
	require.Error(t, err)
	require.NotNil(t, h.store.records[hash], "record must survive a failed stop")
}

func TestSessionResolutionLogsRecordState(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := newHarness(t)
	h.sup.logger = zap.New(core)
	h.launcher.record = &domain.ProcessRecord{ServiceURL: "ws://fresh/ws", PID: 7}
	h.conns["ws://fresh/ws"] = &fakeConn{pingOK: true}

	_, err := h.sup.EnsureConnection(context.Background(), "/proj", "")
	require.NoError(t, err)
	entries := logs.FilterMessage("resolving session").All()
	require.Len(t, entries, 1)
	require.Equal(t, string(domain.StateNoRecord), entries[0].ContextMap()["state"])

	h.alivePIDs[7] = true
	_, err = h.sup.EnsureConnection(context.Background(), "/proj", "")
	require.NoError(t, err)
	entries = logs.FilterMessage("resolving session").All()
	require.Len(t, entries, 2)
	require.Equal(t, string(domain.StateRecordedUnverified), entries[1].ContextMap()["state"])
}

func TestSpawnFailureLogsDeadState(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := newHarness(t)
	h.sup.logger = zap.New(core)
	h.launcher.err = domain.ErrProcessStartFailed

	_, err := h.sup.EnsureConnection(context.Background(), "/proj", "")
	require.ErrorIs(t, err, domain.ErrProcessStartFailed)
	entries := logs.FilterMessage("spawn failed").All()
	require.Len(t, entries, 1)
	require.Equal(t, string(domain.StateDead), entries[0].ContextMap()["state"])
}
