package utils

import (
	"fmt"
	"os"
	"path/filepath"

	qrcode "github.com/skip2/go-qrcode"
)

// TableQRURL builds the guest entry point encoded into a table's QR code.
func TableQRURL(baseURL, restaurantSlug, tableNumber string) string {
	return fmt.Sprintf("%s/t/%s/%s", baseURL, restaurantSlug, tableNumber)
}

// GenerateTableQR renders the QR PNG for a table and returns the file path.
func GenerateTableQR(url, restaurantSlug, tableNumber string) (string, error) {
	dir := filepath.Join("public", "uploads", "qr")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("table_%s_%s.png", restaurantSlug, tableNumber))
	if err := qrcode.WriteFile(url, qrcode.Medium, 256, path); err != nil {
		return "", err
	}
	return path, nil
}
