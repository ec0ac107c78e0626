package cli

import (
	"context"
	"fmt"
	"log"
)

func (a *App) Login(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "-Enter username")
	if err != nil {
		return err
	}
	password, err := GetPassword()
	if err != nil {
		return err
	}

	req := map[string]any{
		"type":     "REQUEST",
		"command":  "AUTH",
		"username": username,
		"password": string(password),
	}

	m, err := a.client.Do(ctx, req)
	if err != nil {
		log.Println(err.Error())
		return err
	}

	if code, ok := m["code"].(float64); !ok || code != 200 {
		printlnFn(fmt.Sprintf("Login failed: %v", m["data"]))
		return nil
	}

	a.username = username
	if token, ok := m["token"].(string); ok {
		a.token = token
	}
	printlnFn(fmt.Sprintf("%v", m["data"]))
	return nil
}
