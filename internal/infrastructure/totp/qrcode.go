package totp

import (
	"encoding/base64"

	"github.com/skip2/go-qrcode"
)

const qrCodeSize = 256

// QRCode renders a provisioning URI as a PNG data URI
func QRCode(uri string) (string, error) {
	png, err := qrcode.Encode(uri, qrcode.Medium, qrCodeSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
