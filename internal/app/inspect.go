package app

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"flutterctl/internal/domain"
	"flutterctl/internal/infra/snapshot"
)

// Snapshot fetches the widget summary tree and renders it through the
// snapshot engine.
func (s *Service) Snapshot(ctx context.Context, projectDir, url string, opts snapshot.Options) (string, error) {
	if opts.MaxDepth != nil && *opts.MaxDepth < 0 {
		return "", domain.E(domain.CodeInvalidArgument, "app.Snapshot", "depth must be non-negative", nil)
	}
	var out string
	err := s.withIsolate(ctx, projectDir, url, func(ctx context.Context, conn domain.Conn, iso domain.Isolate) error {
		group := objectGroup("snapshot")
		raw, err := conn.Call(ctx, "ext.flutter.inspector.getRootWidgetSummaryTree", map[string]any{
			"isolateId":   iso.ID,
			"objectGroup": group,
		})
		if err != nil {
			return err
		}
		defer s.disposeGroup(ctx, conn, iso.ID, group)

		root, err := snapshot.Parse(raw)
		if err != nil {
			return fmt.Errorf("parse widget tree: %w", err)
		}
		var roots []*snapshot.WidgetNode
		if root != nil {
			roots = append(roots, root)
		}
		out = snapshot.Format(snapshot.Build(roots, opts))
		return nil
	})
	return out, err
}

// Details returns the raw property subtree for a widget value id.
func (s *Service) Details(ctx context.Context, projectDir, url, valueID string, depth int) (json.RawMessage, error) {
	if depth < 0 {
		return nil, domain.E(domain.CodeInvalidArgument, "app.Details", "subtree depth must be non-negative", nil)
	}
	var out json.RawMessage
	err := s.withIsolate(ctx, projectDir, url, func(ctx context.Context, conn domain.Conn, iso domain.Isolate) error {
		group := objectGroup("details")
		raw, err := conn.Call(ctx, "ext.flutter.inspector.getDetailsSubtree", map[string]any{
			"isolateId":    iso.ID,
			"arg":          valueID,
			"objectGroup":  group,
			"subtreeDepth": depth,
		})
		if err != nil {
			return err
		}
		s.disposeGroup(ctx, conn, iso.ID, group)
		out = raw
		return nil
	})
	return out, err
}

// Layout returns constraints, sizes, and flex facts for a widget value id.
func (s *Service) Layout(ctx context.Context, projectDir, url, valueID string) (json.RawMessage, error) {
	var out json.RawMessage
	err := s.withIsolate(ctx, projectDir, url, func(ctx context.Context, conn domain.Conn, iso domain.Isolate) error {
		group := objectGroup("layout")
		raw, err := conn.Call(ctx, "ext.flutter.inspector.getLayoutExplorerNode", map[string]any{
			"isolateId":    iso.ID,
			"id":           valueID,
			"groupName":    group,
			"subtreeDepth": 1,
		})
		if err != nil {
			return err
		}
		s.disposeGroup(ctx, conn, iso.ID, group)
		out = raw
		return nil
	})
	return out, err
}

// DumpRender returns the render tree text dump.
func (s *Service) DumpRender(ctx context.Context, projectDir, url string) (string, error) {
	return s.textDump(ctx, projectDir, url, "ext.flutter.debugDumpRenderTree")
}

// DumpSemantics returns the semantics tree in traversal order.
func (s *Service) DumpSemantics(ctx context.Context, projectDir, url string) (string, error) {
	return s.textDump(ctx, projectDir, url, "ext.flutter.debugDumpSemanticsTreeInTraversalOrder")
}

func (s *Service) textDump(ctx context.Context, projectDir, url, method string) (string, error) {
	var out string
	err := s.withIsolate(ctx, projectDir, url, func(ctx context.Context, conn domain.Conn, iso domain.Isolate) error {
		raw, err := conn.Call(ctx, method, map[string]any{"isolateId": iso.ID})
		if err != nil {
			return err
		}
		var payload struct {
			Data string `json:"data"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("decode %s response: %w", method, err)
		}
		out = payload.Data
		return nil
	})
	return out, err
}

// Screenshot captures the app (or one widget when valueID is set) as PNG
// and writes it to path. Returns the byte count written.
func (s *Service) Screenshot(ctx context.Context, projectDir, url, valueID, path string) (int, error) {
	var size int
	err := s.withIsolate(ctx, projectDir, url, func(ctx context.Context, conn domain.Conn, iso domain.Isolate) error {
		params := map[string]any{
			"isolateId":     iso.ID,
			"width":         1080.0,
			"height":        1920.0,
			"maxPixelRatio": 2.0,
		}
		if valueID != "" {
			params["id"] = valueID
		}
		raw, err := conn.Call(ctx, "ext.flutter.inspector.screenshot", params)
		if err != nil {
			return err
		}

		var payload struct {
			Screenshot string `json:"screenshot"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("decode screenshot response: %w", err)
		}
		if payload.Screenshot == "" {
			return fmt.Errorf("no screenshot data in response")
		}
		data, err := base64.StdEncoding.DecodeString(payload.Screenshot)
		if err != nil {
			return fmt.Errorf("decode screenshot data: %w", err)
		}
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("ensure screenshot dir: %w", err)
			}
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write screenshot: %w", err)
		}
		size = len(data)
		return nil
	})
	return size, err
}
