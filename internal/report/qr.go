package report

import (
	"errors"

	qrcode "github.com/skip2/go-qrcode"

	"example.com/balisegate/internal/bits"
)

const defaultQRSize = 128

// TelegramQR returns a PNG QR code carrying the telegram hex in upper case.
// Characters that are not hex digits are dropped first.
func TelegramQR(hex string, size int) ([]byte, error) {
	normalized := bits.BinaryToHex(bits.HexToBinary(hex))
	if normalized == "" {
		return nil, errors.New("report: telegram hex is empty")
	}
	if size <= 0 {
		size = defaultQRSize
	}
	// Long telegrams are 208 hex digits; Low recovery keeps the symbol small.
	level := qrcode.Medium
	if len(normalized) > 120 {
		level = qrcode.Low
	}
	q, err := qrcode.New(normalized, level)
	if err != nil {
		return nil, err
	}
	q.DisableBorder = true
	return q.PNG(size)
}
