package cli

import (
	"context"
	"fmt"
)

func (a *App) promptUserRecord() (map[string]any, error) {
	username, err := GetSimpleText(a.reader, "-Enter username")
	if err != nil {
		return nil, err
	}
	password, err := GetPassword()
	if err != nil {
		return nil, err
	}
	public, err := GetSimpleText(a.reader, "-Enter public quota")
	if err != nil {
		return nil, err
	}
	private, err := GetSimpleText(a.reader, "-Enter private quota")
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"username": username,
		"password": string(password),
		"public":   public,
		"private":  private,
	}, nil
}

func (a *App) UserAdd(ctx context.Context) error {
	req, err := a.promptUserRecord()
	if err != nil {
		return err
	}
	req["type"] = "REQUEST"
	req["command"] = "CREATEUSER"

	if m, ok := a.do(ctx, req); ok {
		printlnFn(fmt.Sprintf("%v", m["data"]))
	}
	return nil
}

func (a *App) UserDelete(ctx context.Context, args []string) error {
	username, err := a.argOrPrompt(args, 0, "-Enter username")
	if err != nil {
		return err
	}

	if m, ok := a.do(ctx, map[string]any{"type": "REQUEST", "command": "DELETEUSER", "username": username}); ok {
		printlnFn(fmt.Sprintf("%v", m["data"]))
	}
	return nil
}

func (a *App) UserModify(ctx context.Context) error {
	req, err := a.promptUserRecord()
	if err != nil {
		return err
	}
	req["type"] = "REQUEST"
	req["command"] = "CHUSER"

	if m, ok := a.do(ctx, req); ok {
		printlnFn(fmt.Sprintf("%v", m["data"]))
	}
	return nil
}

func (a *App) UserShow(ctx context.Context, args []string) error {
	username, err := a.argOrPrompt(args, 0, "-Enter username")
	if err != nil {
		return err
	}

	m, ok := a.do(ctx, map[string]any{"type": "REQUEST", "command": "USER", "username": username})
	if !ok {
		return nil
	}

	if record, ok := m["data"].(map[string]any); ok {
		printlnFn(fmt.Sprintf("username: %v", record["username"]))
		printlnFn(fmt.Sprintf("public quota: %v, used: %v", record["public"], record["publicUsed"]))
		printlnFn(fmt.Sprintf("private quota: %v, used: %v", record["private"], record["privateUsed"]))
	}
	return nil
}
