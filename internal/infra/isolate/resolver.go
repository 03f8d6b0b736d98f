package isolate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"flutterctl/internal/domain"
	"flutterctl/internal/infra/telemetry"
)

// Resolver locates the one isolate that registered ext.flutter.* service
// extensions. A freshly launched app has not registered them yet, so the
// probe retries with a fixed backoff up to MaxAttempts.
type Resolver struct {
	MaxAttempts int
	Backoff     time.Duration

	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		MaxAttempts: domain.DefaultIsolateAttempts,
		Backoff:     domain.DefaultIsolateBackoff,
		logger:      logger.Named("isolate"),
		sleep:       sleepContext,
	}
}

// Find returns the first isolate (in VM listing order) exposing a flutter
// extension. Exhausting the retry budget yields domain.ErrNoIsolateFound;
// transport failures abort immediately.
func (r *Resolver) Find(ctx context.Context, conn domain.Conn) (domain.Isolate, error) {
	attempts := r.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 1; ; attempt++ {
		iso, err := r.probe(ctx, conn)
		if err != nil {
			return domain.Isolate{}, err
		}
		if iso != nil {
			r.logger.Debug("flutter isolate found",
				telemetry.IsolateIDField(iso.ID),
				telemetry.AttemptField(attempt),
			)
			return *iso, nil
		}
		if attempt >= attempts {
			return domain.Isolate{}, fmt.Errorf("%w after %d attempts", domain.ErrNoIsolateFound, attempts)
		}
		r.logger.Debug("no flutter isolate yet, retrying", telemetry.AttemptField(attempt))
		if err := r.sleep(ctx, r.Backoff); err != nil {
			return domain.Isolate{}, err
		}
	}
}

type isolateRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// probe lists isolates and checks their registered extensions concurrently.
// Responses arrive in any order; the transport routes them by request id.
func (r *Resolver) probe(ctx context.Context, conn domain.Conn) (*domain.Isolate, error) {
	raw, err := conn.Call(ctx, "getVM", nil)
	if err != nil {
		return nil, fmt.Errorf("getVM: %w", err)
	}

	var vm struct {
		Isolates []isolateRef `json:"isolates"`
	}
	if err := json.Unmarshal(raw, &vm); err != nil {
		return nil, fmt.Errorf("decode getVM response: %w", err)
	}
	if len(vm.Isolates) == 0 {
		return nil, nil
	}

	flagged := make([]bool, len(vm.Isolates))
	errs := make([]error, len(vm.Isolates))
	var wg sync.WaitGroup
	for i, ref := range vm.Isolates {
		wg.Add(1)
		go func(i int, ref isolateRef) {
			defer wg.Done()
			has, err := r.hasFlutterExtensions(ctx, conn, ref.ID)
			flagged[i] = has
			errs[i] = err
		}(i, ref)
	}
	wg.Wait()

	// Policy is first-match in listing order, not best-match: plugin
	// isolates may also register extensions.
	for i, ref := range vm.Isolates {
		if errs[i] != nil {
			// An isolate can exit between listing and probing; the VM
			// answers with an RPC error for it. Skip those, abort on
			// transport failure.
			var rpcErr *domain.RPCError
			if errors.As(errs[i], &rpcErr) {
				r.logger.Debug("isolate probe rejected", telemetry.IsolateIDField(ref.ID), zap.Error(errs[i]))
				continue
			}
			return nil, errs[i]
		}
		if flagged[i] {
			return &domain.Isolate{ID: ref.ID, Name: ref.Name, HasFlutterExtensions: true}, nil
		}
	}
	return nil, nil
}

func (r *Resolver) hasFlutterExtensions(ctx context.Context, conn domain.Conn, isolateID string) (bool, error) {
	raw, err := conn.Call(ctx, "getIsolate", map[string]any{"isolateId": isolateID})
	if err != nil {
		return false, fmt.Errorf("getIsolate %s: %w", isolateID, err)
	}
	var isolate struct {
		ExtensionRPCs []string `json:"extensionRPCs"`
	}
	if err := json.Unmarshal(raw, &isolate); err != nil {
		return false, fmt.Errorf("decode getIsolate response: %w", err)
	}
	for _, ext := range isolate.ExtensionRPCs {
		if strings.HasPrefix(ext, domain.FlutterExtensionPrefix) {
			return true, nil
		}
	}
	return false, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
