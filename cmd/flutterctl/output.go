package main

import (
	"encoding/json"
	"fmt"

	"flutterctl/internal/app"
)

func writeJSON(value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func printSnapshot(tree string, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(map[string]any{"tree": tree})
	}
	if tree == "" {
		fmt.Println("(empty widget tree)")
		return nil
	}
	fmt.Println(tree)
	return nil
}

func printTextDump(dump string, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(map[string]any{"dump": dump})
	}
	fmt.Print(dump)
	if len(dump) > 0 && dump[len(dump)-1] != '\n' {
		fmt.Println()
	}
	return nil
}

func printRawResult(label string, payload []byte, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(map[string]any{label: json.RawMessage(payload)})
	}
	var pretty json.RawMessage = payload
	data, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		fmt.Println(string(payload))
		return nil
	}
	fmt.Println(string(data))
	return nil
}

func printStatus(status app.Status, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(status)
	}
	if !status.Managed && status.URL == "" {
		fmt.Println("no session")
		return nil
	}
	kind := "external"
	if status.Managed {
		kind = "managed"
	}
	fmt.Printf("%s url=%s reachable=%v\n", kind, status.URL, status.Reachable)
	if status.Managed {
		fmt.Printf("pid=%d alive=%v\n", status.PID, status.PIDAlive)
		if status.AppID != "" {
			fmt.Printf("app=%s\n", status.AppID)
		}
		if status.LogPath != "" {
			fmt.Printf("log=%s\n", status.LogPath)
		}
	}
	return nil
}
