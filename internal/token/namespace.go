/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package token

import (
	"fmt"
	"strings"
)

// Namespace selects which identity a token, channel or request belongs to.
type Namespace int

const (
	Player Namespace = iota
	Controller
)

// Key is both the storage key and the mirrored cookie name.
func (n Namespace) Key() string {
	if n == Controller {
		return "admintoken"
	}
	return "token"
}

func (n Namespace) Level() Level {
	if n == Controller {
		return LevelControl
	}
	return LevelPlayer
}

func (n Namespace) String() string {
	if n == Controller {
		return "controller"
	}
	return "player"
}

func ParseNamespace(s string) (Namespace, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "player", "client":
		return Player, nil
	case "controller", "control", "ctrl", "admin":
		return Controller, nil
	}
	return Player, fmt.Errorf("unknown namespace %q (must be player or controller)", s)
}
