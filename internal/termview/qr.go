/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package termview

import (
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
)

// JoinURL is the player login page prefilled with sessionID.
func JoinURL(server *url.URL, sessionID string) string {
	u := *server
	u.Path = "/"
	u.RawQuery = url.Values{"sid": []string{sessionID}}.Encode()
	return u.String()
}

// RenderQR draws a QR code for content using half-height block characters,
// two modules per line.
func RenderQR(content string) (string, error) {
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", err
	}

	bitmap := q.Bitmap()

	var b strings.Builder
	for y := 0; y < len(bitmap); y += 2 {
		for x := range bitmap[y] {
			top := bitmap[y][x]
			bottom := y+1 < len(bitmap) && bitmap[y+1][x]

			switch {
			case top && bottom:
				b.WriteRune('█')
			case top:
				b.WriteRune('▀')
			case bottom:
				b.WriteRune('▄')
			default:
				b.WriteRune(' ')
			}
		}
		b.WriteRune('\n')
	}

	return b.String(), nil
}

// EncodeQR is the PNG form, sized for a phone screen.
func EncodeQR(content string) ([]byte, error) {
	const qrSize = 320

	return qrcode.Encode(content, qrcode.Medium, qrSize)
}
