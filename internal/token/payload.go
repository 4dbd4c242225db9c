/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrDecode is wrapped by every Parse failure.
var ErrDecode = errors.New("malformed token")

type Level string

const (
	LevelPlayer  Level = "player"
	LevelControl Level = "control"
)

// Payload is the claim set carried in the middle segment of a token. The
// signature is never checked on this side of the wire.
type Payload struct {
	Exp       *jwt.NumericDate `json:"exp,omitempty"`
	AuthLevel Level            `json:"auth_level"`
	SessionID string           `json:"session_id,omitempty"`
	UserName  string           `json:"user_name,omitempty"`
	Role      *string          `json:"role,omitempty"`
	State     string           `json:"state,omitempty"`
}

// Expired reports whether exp lies before now. Tokens without exp never expire.
func (p *Payload) Expired(now time.Time) bool {
	if p == nil || p.Exp == nil {
		return false
	}
	return p.Exp.Time.Before(now)
}

// rawPayload keeps pointers so a missing field can be told apart from an
// empty one.
type rawPayload struct {
	Exp       *jwt.NumericDate
	AuthLevel *string
	SessionID *string
	UserName  *string
	Role      *string
	State     *string
}

// fields maps the exact claim names onto rp. Claim names are case
// sensitive, unlike encoding/json's struct matching.
func (rp *rawPayload) fields() map[string]any {
	return map[string]any{
		"exp":        &rp.Exp,
		"auth_level": &rp.AuthLevel,
		"session_id": &rp.SessionID,
		"user_name":  &rp.UserName,
		"role":       &rp.Role,
		"state":      &rp.State,
	}
}

// Parse decodes the claims of a three-segment token. Only the middle segment
// is inspected.
func Parse(raw string) (*Payload, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrDecode, len(parts))
	}

	data, err := jwt.DecodeSegment(strings.TrimRight(parts[1], "="))
	if err != nil {
		return nil, fmt.Errorf("%w: payload segment: %v", ErrDecode, err)
	}

	var claims map[string]json.RawMessage
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, fmt.Errorf("%w: payload json: %v", ErrDecode, err)
	}

	var rp rawPayload
	for name, dst := range rp.fields() {
		value, ok := claims[name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, dst); err != nil {
			return nil, fmt.Errorf("%w: claim %s: %v", ErrDecode, name, err)
		}
	}

	return rp.validate()
}

// ParsePayload is Parse with every failure folded into nil.
func ParsePayload(raw string) *Payload {
	p, err := Parse(raw)
	if err != nil {
		return nil
	}
	return p
}

func (rp *rawPayload) validate() (*Payload, error) {
	if rp.AuthLevel == nil {
		return nil, fmt.Errorf("%w: missing auth_level", ErrDecode)
	}

	p := &Payload{
		Exp:       rp.Exp,
		AuthLevel: Level(*rp.AuthLevel),
		Role:      rp.Role,
	}

	switch p.AuthLevel {
	case LevelPlayer:
		switch {
		case rp.SessionID == nil:
			return nil, fmt.Errorf("%w: player token without session_id", ErrDecode)
		case rp.UserName == nil:
			return nil, fmt.Errorf("%w: player token without user_name", ErrDecode)
		case rp.State == nil:
			return nil, fmt.Errorf("%w: player token without state", ErrDecode)
		}
		p.SessionID = *rp.SessionID
		p.UserName = *rp.UserName
		p.State = *rp.State
	case LevelControl:
		if rp.SessionID != nil {
			p.SessionID = *rp.SessionID
		}
		if rp.UserName != nil {
			p.UserName = *rp.UserName
		}
		if rp.State != nil {
			p.State = *rp.State
		}
	default:
		return nil, fmt.Errorf("%w: unknown auth_level %q", ErrDecode, p.AuthLevel)
	}

	return p, nil
}
