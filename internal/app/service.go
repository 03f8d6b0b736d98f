package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"flutterctl/internal/domain"
)

// Connector is the supervision seam: it yields a live session for a project
// and owns the managed process lifecycle.
type Connector interface {
	EnsureConnection(ctx context.Context, projectDir, explicitURL string) (*domain.Session, error)
	Stop(ctx context.Context, projectDir string) (*domain.ProcessRecord, error)
	SendMachineCommand(projectDir, method string, params map[string]any) error
	RecordFor(projectDir string) (*domain.ProcessRecord, bool)
}

// IsolateFinder locates the inspectable isolate on a connection.
type IsolateFinder interface {
	Find(ctx context.Context, conn domain.Conn) (domain.Isolate, error)
}

// Dialer opens a VM service connection directly, used for status probes
// that must not trigger a spawn.
type Dialer func(ctx context.Context, url string) (domain.Conn, error)

// Service implements the CLI-facing operations on top of the supervision
// and transport layers.
type Service struct {
	connector   Connector
	isolates    IsolateFinder
	dial        Dialer
	logger      *zap.Logger
	callTimeout time.Duration
}

func NewService(connector Connector, isolates IsolateFinder, dial Dialer, logger *zap.Logger) *Service {
	if connector == nil {
		panic("app.Service requires a connector")
	}
	if isolates == nil {
		panic("app.Service requires an isolate finder")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		connector:   connector,
		isolates:    isolates,
		dial:        dial,
		logger:      logger.Named("app"),
		callTimeout: domain.DefaultCallTimeout,
	}
}

// withIsolate runs fn against a connected session and its inspectable
// isolate. The connection lives exactly as long as the call. Everything
// after the connection is established runs under the call timeout, so an
// app that accepts a request and never answers cannot hang the command.
// The connect step keeps the caller's context: a spawn needs the full
// startup budget.
func (s *Service) withIsolate(ctx context.Context, projectDir, url string, fn func(ctx context.Context, conn domain.Conn, iso domain.Isolate) error) error {
	session, err := s.connector.EnsureConnection(ctx, projectDir, url)
	if err != nil {
		return err
	}
	defer session.Conn.Close()

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	iso, err := s.isolates.Find(callCtx, session.Conn)
	if err != nil {
		return err
	}
	return fn(callCtx, session.Conn, iso)
}

// objectGroup names an inspector reference group unique to this invocation
// so disposed groups never collide across concurrent CLIs.
func objectGroup(purpose string) string {
	return fmt.Sprintf("flutterctl-%s-%s", purpose, uuid.NewString())
}

// disposeGroup releases inspector references; failure only leaks memory in
// the target app until the next dispose, so it is logged, not returned.
func (s *Service) disposeGroup(ctx context.Context, conn domain.Conn, isolateID, group string) {
	_, err := conn.Call(ctx, "ext.flutter.inspector.disposeGroup", map[string]any{
		"isolateId":   isolateID,
		"objectGroup": group,
	})
	if err != nil {
		s.logger.Debug("disposeGroup failed", zap.String("group", group), zap.Error(err))
	}
}
