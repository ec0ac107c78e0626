package cli

import (
	"context"
	"fmt"
	"log"
)

// do sends a request and prints a failure response; the decoded message is
// returned either way so callers can inspect successful payloads.
func (a *App) do(ctx context.Context, req map[string]any) (map[string]any, bool) {
	m, err := a.client.Do(ctx, req)
	if err != nil {
		log.Println(err.Error())
		return nil, false
	}
	if code, ok := m["code"].(float64); !ok || code != 200 {
		printlnFn(fmt.Sprintf("Error %v: %v", m["code"], m["data"]))
		return m, false
	}
	return m, true
}

func (a *App) List(ctx context.Context, args []string) error {
	path, err := a.argOrPrompt(args, 0, "-Enter path")
	if err != nil {
		return err
	}

	m, ok := a.do(ctx, map[string]any{"type": "REQUEST", "command": "LS", "path": path})
	if !ok {
		return nil
	}

	if dirs, ok := m["dirs"].([]any); ok {
		for _, d := range dirs {
			printlnFn(fmt.Sprintf("%v/", d))
		}
	}
	if files, ok := m["files"].([]any); ok {
		for _, f := range files {
			printlnFn(fmt.Sprintf("%v", f))
		}
	}
	return nil
}

func (a *App) Touch(ctx context.Context, args []string) error {
	path, err := a.argOrPrompt(args, 0, "-Enter path")
	if err != nil {
		return err
	}
	name, err := a.argOrPrompt(args, 1, "-Enter file name")
	if err != nil {
		return err
	}

	if m, ok := a.do(ctx, map[string]any{"type": "REQUEST", "command": "TOUCH", "path": path, "name": name}); ok {
		printlnFn(fmt.Sprintf("%v", m["data"]))
	}
	return nil
}

func (a *App) Mkdir(ctx context.Context, args []string) error {
	path, err := a.argOrPrompt(args, 0, "-Enter path")
	if err != nil {
		return err
	}
	name, err := a.argOrPrompt(args, 1, "-Enter directory name")
	if err != nil {
		return err
	}

	if m, ok := a.do(ctx, map[string]any{"type": "REQUEST", "command": "MKDIR", "path": path, "name": name}); ok {
		printlnFn(fmt.Sprintf("%v", m["data"]))
	}
	return nil
}

func (a *App) Remove(ctx context.Context, args []string) error {
	path, err := a.argOrPrompt(args, 0, "-Enter path")
	if err != nil {
		return err
	}

	if m, ok := a.do(ctx, map[string]any{"type": "REQUEST", "command": "RM", "path": path}); ok {
		printlnFn(fmt.Sprintf("%v", m["data"]))
	}
	return nil
}
